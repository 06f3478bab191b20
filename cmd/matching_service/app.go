package matchingservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"ride-hail/internal/bus"
	"ride-hail/internal/common/config"
	"ride-hail/internal/common/log"
	"ride-hail/internal/matchingservice"
	"ride-hail/internal/store"
)

// Run wires the matching service and blocks until ctx is cancelled. This
// service is purely event-driven — its HTTP surface is a single health
// endpoint, not an operational API.
func Run(ctx context.Context) error {
	logger := log.New("matching-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	pool, err := store.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	busClient, err := bus.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "bus_connection_failed", "Failed to connect to the event bus", err, nil)
		return err
	}
	defer busClient.Close()

	uow := store.NewUnitOfWork(pool)
	rideRepo := store.NewRideRepo()
	driverRepo := store.NewDriverRepo()

	svc := matchingservice.New(logger, uow, rideRepo, driverRepo, busClient)
	svc.RunConsumers(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /matching/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.MatchingServicePort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Matching Service started on port %d", cfg.Services.MatchingServicePort),
		map[string]any{"port": cfg.Services.MatchingServicePort},
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Starting graceful shutdown", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Services.MatchingServicePort})
			return err
		}
		return nil
	}

	return nil
}
