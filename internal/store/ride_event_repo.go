package store

import (
	"context"
	"time"

	"ride-hail/internal/ports"
)

// RideEventRepo is a narrow audit log holding exactly the fare-authority
// record the Ride Service needs: the matched-time (predictive) fare
// alongside the completed-time (authoritative) one, so both remain
// recoverable even though rides.fare itself is overwritten on completion.
type RideEventRepo struct{}

// NewRideEventRepo constructs a new RideEventRepo.
func NewRideEventRepo() ports.RideEventRepository {
	return &RideEventRepo{}
}

// Append inserts one ride_events row. fare is nil for events that don't
// carry one (e.g. accepted, started, cancelled).
func (repo *RideEventRepo) Append(ctx context.Context, rideID int64, eventType string, fare *float64, recordedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO ride_events (ride_id, event_type, fare, recorded_at)
		VALUES ($1, $2, $3, $4)
	`, rideID, eventType, fare, recordedAt)
	return err
}
