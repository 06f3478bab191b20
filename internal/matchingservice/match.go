package matchingservice

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"ride-hail/internal/bus/contracts"
	"ride-hail/internal/domain/ride"
)

// consumeRideRequests runs the nearest-driver algorithm ported from
// original_source/services/matching_service.py's find_nearest_driver +
// calculate_fare.
func (s *Service) consumeRideRequests(ctx context.Context) error {
	return s.bus.Consume(ctx, contracts.TopicRideRequests, consumerGroup, 10, func(ctx context.Context, key string, value []byte) error {
		var msg contracts.RideRequest
		if err := json.Unmarshal(value, &msg); err != nil {
			s.logger.Error(ctx, "ride_request_decode_failed", "dropping malformed ride-requests message", err, nil)
			return err
		}
		ctx = s.logger.WithRideID(ctx, msg.RideID)

		vt, err := ride.ParseVehicleType(msg.VehicleType)
		if err != nil {
			s.logger.Error(ctx, "ride_request_bad_vehicle_type", "dropping ride request with unknown vehicle type", err, map[string]any{"ride_id": msg.RideID})
			return err
		}

		var driverID string
		var distanceToPickup float64
		var ok bool
		err = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
			driverID, distanceToPickup, ok = s.findNearestDriver(txCtx, msg.Pickup.Lat, msg.Pickup.Lon, vt)
			return nil
		})
		if err != nil {
			s.logger.Error(ctx, "nearest_driver_lookup_failed", "failed to open a transaction for the nearest-driver lookup", err, map[string]any{"ride_id": msg.RideID})
			return err
		}
		if !ok {
			s.logger.Warn(ctx, "no_candidate_driver", "no available driver found for ride request", map[string]any{
				"ride_id": msg.RideID, "vehicle_type": vt.String(),
			})
			return nil
		}

		tripDistance := ride.Round2(ride.HaversineKM(msg.Pickup.Lat, msg.Pickup.Lon, msg.Destination.Lat, msg.Destination.Lon))
		fare := ride.ComputeFare(vt, tripDistance)

		rideID, err := strconv.ParseInt(msg.RideID, 10, 64)
		if err != nil {
			s.logger.Error(ctx, "ride_request_bad_id", "dropping ride request with non-numeric ride id", err, map[string]any{"ride_id": msg.RideID})
			return err
		}

		now := time.Now().UTC()
		var driverName string
		err = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
			d, derr := s.driverRepo.GetByID(txCtx, driverID)
			if derr != nil {
				return derr
			}
			if d != nil {
				driverName = d.Name
			}
			return s.rideRepo.UpdateMatch(txCtx, rideID, driverID, fare, tripDistance, now)
		})
		if err != nil {
			s.logger.Error(ctx, "ride_match_persist_failed", "failed to persist match, aborting with no publish", err, map[string]any{
				"ride_id": rideID, "driver_id": driverID,
			})
			return err
		}

		out := contracts.RideMatch{
			Envelope:         contracts.Envelope{Producer: "matching-service", SentAt: now},
			RideID:           msg.RideID,
			DriverID:         driverID,
			DriverName:       driverName,
			DistanceToPickup: ride.Round2(distanceToPickup),
			EstimatedFare:    fare,
			RideDistance:     tripDistance,
			VehicleType:      vt.String(),
		}
		if err := s.bus.Publish(ctx, contracts.TopicRideMatches, msg.RideID, out); err != nil {
			s.logger.Error(ctx, "ride_match_publish_failed", "failed to publish ride match", err, map[string]any{"ride_id": rideID})
			return err
		}

		s.logger.Info(ctx, "ride_matched", "matched ride with nearest driver", map[string]any{
			"ride_id": rideID, "driver_id": driverID, "distance_to_pickup_km": distanceToPickup, "fare": fare,
		})
		return nil
	})
}

// findNearestDriver snapshots the live index, filtered by vehicle type; if
// the index has no qualifying candidate (empty, or cold-started), it falls
// back to the authoritative store query so a freshly-started Matching
// Service doesn't silently drop every request until the bus replays
// driver-availability.
func (s *Service) findNearestDriver(ctx context.Context, pickupLat, pickupLon float64, vt ride.VehicleType) (driverID string, distanceKM float64, ok bool) {
	if entry, dist, found := s.index.NearestQualifying(pickupLat, pickupLon, vt); found {
		return entry.DriverID, dist, true
	}

	candidates, err := s.driverRepo.FindNearbyAvailable(ctx, pickupLat, pickupLon, vt, 1000, 1)
	if err != nil {
		s.logger.Error(ctx, "nearest_driver_fallback_failed", "store fallback query for nearest driver failed", err, nil)
		return "", 0, false
	}
	if len(candidates) == 0 {
		return "", 0, false
	}
	d := candidates[0]
	return d.ID, ride.HaversineKM(pickupLat, pickupLon, *d.CurrentLat, *d.CurrentLon), true
}
