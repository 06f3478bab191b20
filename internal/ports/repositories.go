// Package ports holds the repository and unit-of-work interfaces the
// service packages depend on, implemented by internal/store.
package ports

import (
	"context"
	"time"

	"ride-hail/internal/domain/driver"
	"ride-hail/internal/domain/ride"
	"ride-hail/internal/domain/rider"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RiderRepository defines the methods for managing rider data.
type RiderRepository interface {
	CreateRider(ctx context.Context, r *rider.Rider) error
	GetByID(ctx context.Context, id string) (*rider.Rider, error)
}

// RideRepository defines the methods for managing ride data.
type RideRepository interface {
	CreateRide(ctx context.Context, r *ride.Ride) error
	GetByID(ctx context.Context, id int64) (*ride.Ride, error)
	UpdateMatch(ctx context.Context, rideID int64, driverID string, fare, distanceKM float64, matchedAt time.Time) error
	UpdateStatus(ctx context.Context, rideID int64, status ride.Status, ts time.Time) error
	Complete(ctx context.Context, rideID int64, finalFare float64, completedAt time.Time) error
	Cancel(ctx context.Context, rideID int64, cancelledAt time.Time) error
}

// RideEventRepository records the append-only fare-authority audit trail:
// the matched-time fare alongside the completed-time fare, so both are
// recoverable even though `rides.fare` itself is overwritten on completion.
type RideEventRepository interface {
	Append(ctx context.Context, rideID int64, eventType string, fare *float64, recordedAt time.Time) error
}

// DriverRepository defines the methods for managing driver data.
type DriverRepository interface {
	CreateDriver(ctx context.Context, d *driver.Driver) error
	GetByID(ctx context.Context, id string) (*driver.Driver, error)
	UpdateOnline(ctx context.Context, id string, online bool) error
	UpdatePosition(ctx context.Context, id string, lat, lon float64) error
	FindNearbyAvailable(ctx context.Context, lat, lon float64, vt ride.VehicleType, radiusKm float64, limit int) ([]driver.Driver, error)
}
