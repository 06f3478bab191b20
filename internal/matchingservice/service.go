// Package matchingservice owns a private geo.LiveIndex populated from
// driver-locations/driver-availability, and matches ride-requests against it
// with the nearest-driver algorithm ported from
// original_source/services/matching_service.py's find_nearest_driver +
// calculate_fare.
package matchingservice

import (
	"context"

	"ride-hail/internal/bus"
	"ride-hail/internal/common/log"
	"ride-hail/internal/domain/geo"
	"ride-hail/internal/ports"
)

const consumerGroup = "matching-service"

type Service struct {
	logger     *log.Logger
	uow        ports.UnitOfWork
	rideRepo   ports.RideRepository
	driverRepo ports.DriverRepository
	bus        *bus.Client
	index      *geo.LiveIndex
}

// New constructs the Matching Service with its own, privately-owned live index.
func New(logger *log.Logger, uow ports.UnitOfWork, rideRepo ports.RideRepository, driverRepo ports.DriverRepository, busClient *bus.Client) *Service {
	return &Service{
		logger:     logger,
		uow:        uow,
		rideRepo:   rideRepo,
		driverRepo: driverRepo,
		bus:        busClient,
		index:      geo.NewLiveIndex(),
	}
}

// RunConsumers starts the three consumers this service needs: the two that
// feed its live index, and the one that runs the matching algorithm.
// Each runs in its own goroutine so a slow ride-requests handler never
// blocks the index-feeding consumers.
func (s *Service) RunConsumers(ctx context.Context) {
	go s.runConsumer(ctx, "driver_locations_consumer", s.consumeDriverLocations)
	go s.runConsumer(ctx, "driver_availability_consumer", s.consumeDriverAvailability)
	go s.runConsumer(ctx, "ride_requests_consumer", s.consumeRideRequests)
}

func (s *Service) runConsumer(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if err := fn(ctx); err != nil {
		s.logger.Error(ctx, name+"_stopped", "bus consumer loop exited", err, nil)
	}
}
