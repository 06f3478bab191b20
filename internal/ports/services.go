package ports

import (
	"context"

	"ride-hail/internal/domain/ride"
)

// CreateRideInput is the validated input required to create a ride request.
type CreateRideInput struct {
	RiderID       string
	PickupLat     float64
	PickupLon     float64
	PickupAddress string
	DestLat       float64
	DestLon       float64
	DestAddress   string
	VehicleType   ride.VehicleType
}

// RideService is the Ride Service's boundary: accept new ride requests and
// drive the ride FSM from bus-consumed events.
type RideService interface {
	CreateRideRequest(ctx context.Context, in CreateRideInput) (rideID int64, err error)
	RunConsumers(ctx context.Context)
}

// DriverService is the Driver Service's boundary: availability, location,
// and the driver-initiated leg of the ride FSM. It never mutates ride rows
// directly — the ride methods only publish, and the Ride Service's
// ride-updates consumer applies the transitions.
type DriverService interface {
	UpdateDriverAvailability(ctx context.Context, driverID string, online bool) error
	UpdateDriverLocation(ctx context.Context, driverID string, lat, lon float64) error
	AcceptRide(ctx context.Context, driverID string, rideID int64) error
	StartRide(ctx context.Context, driverID string, rideID int64) error
	CompleteRide(ctx context.Context, driverID string, rideID int64, fare float64) error
}
