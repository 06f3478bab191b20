package rideservice

import (
	"context"
	"fmt"

	"ride-hail/internal/bus/contracts"
	"ride-hail/internal/domain/ride"
	"ride-hail/internal/ports"
)

// CreateRideRequest persists a new ride row in the requested state, commits,
// then publishes to ride-requests keyed by ride id. A publish failure after
// commit is logged and returned to the caller but the row is NOT rolled
// back — the committed row is the source of truth; a dropped publish only
// means the Matching Service never sees this request until some future
// re-drive mechanism, which this system does not implement.
func (s *Service) CreateRideRequest(ctx context.Context, in ports.CreateRideInput) (int64, error) {
	r, err := ride.NewRide(in.RiderID, in.VehicleType, in.PickupLat, in.PickupLon, in.PickupAddress, in.DestLat, in.DestLon, in.DestAddress)
	if err != nil {
		return 0, err
	}

	err = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return s.rideRepo.CreateRide(txCtx, r)
	})
	if err != nil {
		s.logger.Error(ctx, "ride_create_failed", "failed to create ride", err, map[string]any{
			"rider_id": in.RiderID,
		})
		return 0, err
	}

	ctx = s.logger.WithRideID(ctx, fmt.Sprintf("%d", r.ID))
	s.logger.Info(ctx, "ride_created", "ride created in requested state", map[string]any{
		"ride_id":  r.ID,
		"rider_id": r.RiderID,
	})

	msg := contracts.RideRequest{
		Envelope: contracts.Envelope{Producer: "ride-service", SentAt: r.RequestedAt},
		RideID:   fmt.Sprintf("%d", r.ID),
		RiderID:  r.RiderID,
		Pickup: contracts.GeoPoint{
			Lat: r.PickupLat, Lon: r.PickupLon, Address: r.PickupAddress,
		},
		Destination: contracts.GeoPoint{
			Lat: r.DestLat, Lon: r.DestLon, Address: r.DestAddress,
		},
		VehicleType: r.VehicleType.String(),
	}

	if err := s.bus.Publish(ctx, contracts.TopicRideRequests, msg.RideID, msg); err != nil {
		s.logger.Error(ctx, "ride_request_publish_failed", "failed to publish ride request", err, map[string]any{
			"ride_id": r.ID,
		})
		return r.ID, err
	}

	s.logger.Info(ctx, "ride_request_published", "published ride request", map[string]any{"ride_id": r.ID})
	return r.ID, nil
}
