package store

import (
	"context"
	"errors"
	"time"

	"ride-hail/internal/domain/ride"
	"ride-hail/internal/ports"

	"github.com/jackc/pgx/v5"
)

// RideRepo persists rides using pgx and plain SQL.
type RideRepo struct{}

// NewRideRepo constructs a new RideRepo.
func NewRideRepo() ports.RideRepository {
	return &RideRepo{}
}

// CreateRide inserts a new ride row in the requested state.
func (repo *RideRepo) CreateRide(ctx context.Context, r *ride.Ride) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	return tx.QueryRow(ctx, `
		INSERT INTO rides (
			rider_id, vehicle_type, status,
			pickup_lat, pickup_lon, pickup_address,
			dest_lat, dest_lon, dest_address,
			requested_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		r.RiderID, r.VehicleType.String(), r.Status.String(),
		r.PickupLat, r.PickupLon, r.PickupAddress,
		r.DestLat, r.DestLon, r.DestAddress,
		r.RequestedAt,
	).Scan(&r.ID)
}

// GetByID fetches a ride by primary key.
func (repo *RideRepo) GetByID(ctx context.Context, id int64) (*ride.Ride, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out ride.Ride
	var vehicleType, status string

	err = tx.QueryRow(ctx, `
		SELECT
			id, rider_id, driver_id, vehicle_type, status,
			pickup_lat, pickup_lon, pickup_address,
			dest_lat, dest_lon, dest_address,
			fare, distance_km,
			requested_at, matched_at, accepted_at, started_at, completed_at, cancelled_at
		FROM rides
		WHERE id = $1
	`, id).Scan(
		&out.ID, &out.RiderID, &out.DriverID, &vehicleType, &status,
		&out.PickupLat, &out.PickupLon, &out.PickupAddress,
		&out.DestLat, &out.DestLon, &out.DestAddress,
		&out.Fare, &out.DistanceKM,
		&out.RequestedAt, &out.MatchedAt, &out.AcceptedAt, &out.StartedAt, &out.CompletedAt, &out.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	out.VehicleType = ride.VehicleType(vehicleType)
	out.Status = ride.Status(status)
	return &out, nil
}

// UpdateMatch records the matched driver, predictive fare, and trip
// distance, moving status requested -> matched.
func (repo *RideRepo) UpdateMatch(ctx context.Context, rideID int64, driverID string, fare, distanceKM float64, matchedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	var existingDriver *string
	err = tx.QueryRow(ctx, `
		SELECT status, driver_id FROM rides WHERE id = $1 FOR UPDATE
	`, rideID).Scan(&current, &existingDriver)
	if err != nil {
		return err
	}

	if current == ride.StatusMatched.String() && existingDriver != nil && *existingDriver == driverID {
		return nil
	}
	if current != ride.StatusRequested.String() {
		return ride.ErrInvalidStatusTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE rides
		SET driver_id = $1, fare = $2, distance_km = $3,
		    status = $4, matched_at = $5
		WHERE id = $6
	`, driverID, fare, distanceKM, ride.StatusMatched.String(), matchedAt, rideID)
	return err
}

// UpdateStatus drives the linear part of the FSM (accepted/started),
// stamping the matching timeline column.
func (repo *RideRepo) UpdateStatus(ctx context.Context, rideID int64, status ride.Status, ts time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM rides WHERE id = $1 FOR UPDATE`, rideID).Scan(&current)
	if err != nil {
		return err
	}

	if current == status.String() {
		return nil
	}
	if !ride.Status(current).CanTransitionTo(status) {
		return ride.ErrInvalidStatusTransition
	}

	column := ""
	switch status {
	case ride.StatusAccepted:
		column = "accepted_at"
	case ride.StatusStarted:
		column = "started_at"
	default:
		return ride.ErrInvalidStatusTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE rides SET status = $1, `+column+` = $2 WHERE id = $3
	`, status.String(), ts, rideID)
	return err
}

// Complete finalizes a ride with the authoritative fare, overwriting the
// predictive fare set at match time.
func (repo *RideRepo) Complete(ctx context.Context, rideID int64, finalFare float64, completedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM rides WHERE id = $1 FOR UPDATE`, rideID).Scan(&current)
	if err != nil {
		return err
	}

	if current == ride.StatusCompleted.String() {
		return nil
	}
	if current != ride.StatusStarted.String() {
		return ride.ErrInvalidStatusTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE rides SET status = $1, fare = $2, completed_at = $3 WHERE id = $4
	`, ride.StatusCompleted.String(), finalFare, completedAt, rideID)
	return err
}

// Cancel moves a non-terminal ride to cancelled.
func (repo *RideRepo) Cancel(ctx context.Context, rideID int64, cancelledAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM rides WHERE id = $1 FOR UPDATE`, rideID).Scan(&current)
	if err != nil {
		return err
	}

	if current == ride.StatusCancelled.String() {
		return nil
	}
	if !ride.Status(current).CanTransitionTo(ride.StatusCancelled) {
		return ride.ErrInvalidStatusTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE rides SET status = $1, cancelled_at = $2 WHERE id = $3
	`, ride.StatusCancelled.String(), cancelledAt, rideID)
	return err
}
