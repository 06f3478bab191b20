// Package rideservice owns the ride row, driving the FSM from its own
// CreateRideRequest entry point and from two bus consumers (ride-matches,
// ride-updates). It is not the only writer of `rides`: the Matching Service
// writes driver_id, fare, distance_km, matched_at and status=matched itself
// before publishing ride-matches, so the ride-matches consumer here usually
// finds the ride already matched to the same driver.
package rideservice

import (
	"context"

	"ride-hail/internal/bus"
	"ride-hail/internal/common/log"
	"ride-hail/internal/ports"
)

type Service struct {
	logger        *log.Logger
	uow           ports.UnitOfWork
	rideRepo      ports.RideRepository
	rideEventRepo ports.RideEventRepository
	bus           *bus.Client
}

// New constructs the Ride Service.
func New(logger *log.Logger, uow ports.UnitOfWork, rideRepo ports.RideRepository, rideEventRepo ports.RideEventRepository, busClient *bus.Client) ports.RideService {
	return &Service{
		logger:        logger,
		uow:           uow,
		rideRepo:      rideRepo,
		rideEventRepo: rideEventRepo,
		bus:           busClient,
	}
}

// RunConsumers starts the ride-matches and ride-updates consumers, one
// goroutine each, so a slow handler on one topic never blocks the other.
func (s *Service) RunConsumers(ctx context.Context) {
	go s.runConsumer(ctx, "ride-matches-consumer", s.consumeRideMatches)
	go s.runConsumer(ctx, "ride-updates-consumer", s.consumeRideUpdates)
}

func (s *Service) runConsumer(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if err := fn(ctx); err != nil {
		s.logger.Error(ctx, name+"_stopped", "bus consumer loop exited", err, nil)
	}
}
