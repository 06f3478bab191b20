package matchingservice

import (
	"context"
	"encoding/json"

	"ride-hail/internal/bus/contracts"
	"ride-hail/internal/domain/ride"
)

// consumeDriverLocations feeds the live index directly from the wire, since
// driver-locations now carries vehicle_type and timestamp itself.
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
		return nil
	})
}

// consumeDriverAvailability removes drivers from the live index the moment
// they go offline; coming back online is picked up by the next
// driver-locations event, which now carries its own vehicle type.
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
		return nil
	})
}
