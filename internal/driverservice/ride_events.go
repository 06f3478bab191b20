package driverservice

import (
	"context"
	"fmt"
	"time"

	"ride-hail/internal/bus/contracts"
	"ride-hail/internal/domain/ride"
)

// AcceptRide publishes ride-updates(status=accepted). It does not touch the
// rides table; the Ride Service's consumer applies the transition.
func (s *Service) AcceptRide(ctx context.Context, driverID string, rideID int64) error {
	return s.publishRideUpdate(ctx, driverID, rideID, ride.StatusAccepted, 0)
}

// StartRide publishes ride-updates(status=started).
func (s *Service) StartRide(ctx context.Context, driverID string, rideID int64) error {
	return s.publishRideUpdate(ctx, driverID, rideID, ride.StatusStarted, 0)
}

// CompleteRide publishes ride-updates(status=completed, fare) carrying the
// authoritative fare derived from the driver's trip metadata.
func (s *Service) CompleteRide(ctx context.Context, driverID string, rideID int64, fare float64) error {
	return s.publishRideUpdate(ctx, driverID, rideID, ride.StatusCompleted, fare)
}

func (s *Service) publishRideUpdate(ctx context.Context, driverID string, rideID int64, status ride.Status, fare float64) error {
	rideIDStr := fmt.Sprintf("%d", rideID)
	msg := contracts.RideUpdate{
		Envelope:  contracts.Envelope{Producer: "driver-service"},
		RideID:    rideIDStr,
		Status:    status.String(),
		DriverID:  driverID,
		Timestamp: time.Now().UTC(),
		Fare:      fare,
	}
	if err := s.bus.Publish(ctx, contracts.TopicRideUpdates, rideIDStr, msg); err != nil {
		s.logger.Error(ctx, "ride_update_publish_failed", "failed to publish driver-initiated ride update", err, map[string]any{
			"ride_id": rideID, "driver_id": driverID, "status": status.String(),
		})
		return err
	}
	s.logger.Info(ctx, "ride_update_published", "driver-initiated ride update published", map[string]any{
		"ride_id": rideID, "driver_id": driverID, "status": status.String(),
	})
	return nil
}
