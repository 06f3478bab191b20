package gateway

import (
	"context"
	"encoding/json"
	"strconv"

	"ride-hail/internal/bus/contracts"
	"ride-hail/internal/domain/ride"
)

const consumerGroup = "gateway"

// consumeDriverLocations updates the live index and pushes the new position
// straight to the driver's own session (a driver watching its own dashboard).
func (s *Service) consumeDriverLocations(ctx context.Context) error {
	return s.bus.Consume(ctx, contracts.TopicDriverLocations, consumerGroup, 20, func(ctx context.Context, key string, value []byte) error {
		var msg contracts.DriverLocation
		if err := json.Unmarshal(value, &msg); err != nil {
			s.logger.Error(ctx, "driver_location_decode_failed", "dropping malformed driver-locations message", err, nil)
			return err
		}
		ctx = s.logger.WithDriverID(ctx, msg.DriverID)

		vt, err := ride.ParseVehicleType(msg.VehicleType)
		if err != nil {
			s.logger.Warn(ctx, "driver_location_bad_vehicle_type", "dropping driver-locations message with unknown vehicle type", map[string]any{
				"driver_id": msg.DriverID, "vehicle_type": msg.VehicleType,
			})
			return nil
		}
		s.index.Upsert(msg.DriverID, msg.Lat, msg.Lon, vt, msg.Timestamp)

		s.pushToDriver(ctx, msg.DriverID, map[string]any{
			"type": "location_updated", "driver_id": msg.DriverID, "lat": msg.Lat, "lon": msg.Lon, "timestamp": msg.Timestamp,
		})
		return nil
	})
}

// consumeDriverAvailability maintains the live index's membership and
// notifies the driver's own session.
func (s *Service) consumeDriverAvailability(ctx context.Context) error {
	return s.bus.Consume(ctx, contracts.TopicDriverAvailability, consumerGroup, 20, func(ctx context.Context, key string, value []byte) error {
		var msg contracts.DriverAvailability
		if err := json.Unmarshal(value, &msg); err != nil {
			s.logger.Error(ctx, "driver_availability_decode_failed", "dropping malformed driver-availability message", err, nil)
			return err
		}
		ctx = s.logger.WithDriverID(ctx, msg.DriverID)

		if !msg.IsOnline {
			s.index.Remove(msg.DriverID)
		}
		s.pushToDriver(ctx, msg.DriverID, map[string]any{
			"type": "availability_updated", "driver_id": msg.DriverID, "is_online": msg.IsOnline, "timestamp": msg.Timestamp,
		})
		return nil
	})
}

// consumeRideUpdates looks up the ride's rider_id with a single read-only
// SELECT against the authoritative store (no transaction needed) and pushes
// the update to both the rider's and the ride's own sessions.
func (s *Service) consumeRideUpdates(ctx context.Context) error {
	return s.bus.Consume(ctx, contracts.TopicRideUpdates, consumerGroup, 10, func(ctx context.Context, key string, value []byte) error {
		var msg contracts.RideUpdate
		if err := json.Unmarshal(value, &msg); err != nil {
			s.logger.Error(ctx, "ride_update_decode_failed", "dropping malformed ride-updates message", err, nil)
			return err
		}

		id, err := parseRideID(msg.RideID)
		if err != nil {
			s.logger.Error(ctx, "ride_update_bad_id", "dropping ride-updates message with non-numeric ride id", err, map[string]any{"ride_id": msg.RideID})
			return err
		}

		r, err := s.rideRepo.GetByID(ctx, id)
		if err != nil {
			s.logger.Error(ctx, "ride_update_lookup_failed", "failed to look up ride for fan-out", err, map[string]any{"ride_id": msg.RideID})
			return err
		}
		if r == nil {
			s.logger.Warn(ctx, "ride_update_unknown_ride", "ride-updates message for unknown ride, dropping", map[string]any{"ride_id": msg.RideID})
			return nil
		}

		payload := map[string]any{
			"type": "ride_update", "ride_id": msg.RideID, "status": msg.Status,
			"driver_id": msg.DriverID, "fare": msg.Fare, "timestamp": msg.Timestamp,
		}
		s.pushToRider(ctx, r.RiderID, payload)
		s.pushToRide(ctx, msg.RideID, payload)
		return nil
	})
}

func parseRideID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
