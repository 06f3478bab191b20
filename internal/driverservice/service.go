// Package driverservice owns the drivers table: availability and position
// upserts, plus the driver-initiated leg of the ride FSM. It never mutates a
// ride row directly — its ride methods (ride_events.go) only publish to
// ride-updates, and the Ride Service's consumer applies the transitions.
package driverservice

import (
	"context"
	"fmt"
	"time"

	"ride-hail/internal/bus"
	"ride-hail/internal/bus/contracts"
	"ride-hail/internal/common/log"
	"ride-hail/internal/domain/ride"
	"ride-hail/internal/ports"
)

type Service struct {
	logger     *log.Logger
	uow        ports.UnitOfWork
	driverRepo ports.DriverRepository
	bus        *bus.Client
}

// New constructs the Driver Service.
func New(logger *log.Logger, uow ports.UnitOfWork, driverRepo ports.DriverRepository, busClient *bus.Client) ports.DriverService {
	return &Service{logger: logger, uow: uow, driverRepo: driverRepo, bus: busClient}
}

// UpdateDriverAvailability upserts is_online and publishes driver-availability.
func (s *Service) UpdateDriverAvailability(ctx context.Context, driverID string, online bool) error {
	ctx = s.logger.WithDriverID(ctx, driverID)
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return s.driverRepo.UpdateOnline(txCtx, driverID, online)
	})
	if err != nil {
		s.logger.Error(ctx, "driver_availability_update_failed", "failed to update driver availability", err, map[string]any{"driver_id": driverID})
		return err
	}

	msg := contracts.DriverAvailability{
		Envelope:  contracts.Envelope{Producer: "driver-service"},
		DriverID:  driverID,
		IsOnline:  online,
		Timestamp: time.Now().UTC(),
	}
	if err := s.bus.Publish(ctx, contracts.TopicDriverAvailability, driverID, msg); err != nil {
		s.logger.Error(ctx, "driver_availability_publish_failed", "failed to publish driver availability", err, map[string]any{"driver_id": driverID})
		return err
	}

	s.logger.Info(ctx, "driver_availability_updated", "driver availability updated", map[string]any{
		"driver_id": driverID, "online": online,
	})
	return nil
}

// UpdateDriverLocation upserts the driver's position and publishes
// driver-locations only if the driver is currently online in the store.
func (s *Service) UpdateDriverLocation(ctx context.Context, driverID string, lat, lon float64) error {
	ctx = s.logger.WithDriverID(ctx, driverID)
	var online bool
	var vt ride.VehicleType
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		d, err := s.driverRepo.GetByID(txCtx, driverID)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("driver %s not found", driverID)
		}
		online = d.IsOnline
		vt = d.VehicleType
		return s.driverRepo.UpdatePosition(txCtx, driverID, lat, lon)
	})
	if err != nil {
		s.logger.Error(ctx, "driver_location_update_failed", "failed to update driver location", err, map[string]any{"driver_id": driverID})
		return err
	}

	if !online {
		return nil
	}

	msg := contracts.DriverLocation{
		Envelope:    contracts.Envelope{Producer: "driver-service"},
		DriverID:    driverID,
		Lat:         lat,
		Lon:         lon,
		VehicleType: vt.String(),
		Timestamp:   time.Now().UTC(),
	}
	if err := s.bus.Publish(ctx, contracts.TopicDriverLocations, driverID, msg); err != nil {
		s.logger.Error(ctx, "driver_location_publish_failed", "failed to publish driver location", err, map[string]any{"driver_id": driverID})
		return err
	}
	return nil
}
