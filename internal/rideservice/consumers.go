package rideservice

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"ride-hail/internal/bus/contracts"
	"ride-hail/internal/domain/ride"
)

const consumerGroup = "ride-service"

// consumeRideMatches applies the idempotent requested -> matched transition
// and re-publishes ride-updates(status=matched) so the Fan-out's ride-updates
// consumer observes the match the same way it observes later transitions.
func (s *Service) consumeRideMatches(ctx context.Context) error {
	return s.bus.Consume(ctx, contracts.TopicRideMatches, consumerGroup, 10, func(ctx context.Context, key string, value []byte) error {
		var msg contracts.RideMatch
		if err := json.Unmarshal(value, &msg); err != nil {
			s.logger.Error(ctx, "ride_match_decode_failed", "dropping malformed ride-matches message", err, nil)
			return err
		}

		rideID, err := strconv.ParseInt(msg.RideID, 10, 64)
		if err != nil {
			s.logger.Error(ctx, "ride_match_bad_id", "dropping ride-matches message with non-numeric ride id", err, map[string]any{"ride_id": msg.RideID})
			return err
		}
		ctx = s.logger.WithRideID(ctx, msg.RideID)

		now := time.Now().UTC()
		err = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
			return s.rideRepo.UpdateMatch(txCtx, rideID, msg.DriverID, msg.EstimatedFare, msg.RideDistance, now)
		})
		if err != nil {
			s.logger.Info(ctx, "ride_match_noop", "duplicate or late ride-matches event, no-op", map[string]any{
				"ride_id": rideID, "reason": err.Error(),
			})
			return nil
		}

		fare := msg.EstimatedFare
		_ = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
			return s.rideEventRepo.Append(txCtx, rideID, "matched", &fare, now)
		})

		update := contracts.RideUpdate{
			Envelope:  contracts.Envelope{Producer: "ride-service"},
			RideID:    msg.RideID,
			Status:    ride.StatusMatched.String(),
			DriverID:  msg.DriverID,
			Timestamp: now,
			Fare:      msg.EstimatedFare,
		}
		if err := s.bus.Publish(ctx, contracts.TopicRideUpdates, msg.RideID, update); err != nil {
			s.logger.Error(ctx, "ride_update_publish_failed", "failed to publish matched ride-update", err, map[string]any{"ride_id": rideID})
			return nil
		}

		s.logger.Info(ctx, "ride_matched", "ride transitioned to matched", map[string]any{
			"ride_id": rideID, "driver_id": msg.DriverID,
		})
		return nil
	})
}

// consumeRideUpdates drives every transition except matched (which only the
// ride-matches consumer above emits): accepted, started, completed, cancelled.
func (s *Service) consumeRideUpdates(ctx context.Context) error {
	return s.bus.Consume(ctx, contracts.TopicRideUpdates, consumerGroup, 10, func(ctx context.Context, key string, value []byte) error {
		var msg contracts.RideUpdate
		if err := json.Unmarshal(value, &msg); err != nil {
			s.logger.Error(ctx, "ride_update_decode_failed", "dropping malformed ride-updates message", err, nil)
			return err
		}

		status, err := ride.ParseStatus(msg.Status)
		if err != nil || status == ride.StatusMatched {
			// matched is self-emitted above; any other unknown status is dropped.
			return nil
		}

		rideID, err := strconv.ParseInt(msg.RideID, 10, 64)
		if err != nil {
			s.logger.Error(ctx, "ride_update_bad_id", "dropping ride-updates message with non-numeric ride id", err, map[string]any{"ride_id": msg.RideID})
			return err
		}
		ctx = s.logger.WithRideID(ctx, msg.RideID)

		now := time.Now().UTC()
		err = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
			switch status {
			case ride.StatusAccepted, ride.StatusStarted:
				return s.rideRepo.UpdateStatus(txCtx, rideID, status, now)
			case ride.StatusCompleted:
				return s.rideRepo.Complete(txCtx, rideID, msg.Fare, now)
			case ride.StatusCancelled:
				return s.rideRepo.Cancel(txCtx, rideID, now)
			default:
				return ride.ErrInvalidStatusTransition
			}
		})
		if err != nil {
			s.logger.Info(ctx, "ride_update_noop", "illegal or duplicate ride-updates event, dropped", map[string]any{
				"ride_id": rideID, "status": status.String(), "reason": err.Error(),
			})
			return nil
		}

		if status == ride.StatusCompleted {
			fare := msg.Fare
			_ = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
				return s.rideEventRepo.Append(txCtx, rideID, "completed", &fare, now)
			})
		}

		s.logger.Info(ctx, "ride_status_applied", "ride status transition applied", map[string]any{
			"ride_id": rideID, "status": status.String(),
		})
		return nil
	})
}
