package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"ride-hail/internal/bus"
	"ride-hail/internal/common/log"
	"ride-hail/internal/domain/geo"
	"ride-hail/internal/ports"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Service is the Fan-out: three keyed session registries, a browse set for
// nearby-drivers watchers, a privately-owned live index fed by
// driver-locations/driver-availability, and the consumers that turn bus
// deliveries into pushed frames.
type Service struct {
	logger   *log.Logger
	bus      *bus.Client
	rideRepo ports.RideRepository
	index    *geo.LiveIndex

	riders   *registry
	drivers  *registry
	rides    *registry
	browsers *browseSet

	writeLocks sync.Map // *websocket.Conn -> *sync.Mutex

	mu         sync.RWMutex
	connRider  map[*websocket.Conn]string
	connDriver map[*websocket.Conn]string
	connRide   map[*websocket.Conn]string
}

// New constructs the Fan-out with its own, privately-owned live index.
func New(logger *log.Logger, busClient *bus.Client, rideRepo ports.RideRepository) *Service {
	return &Service{
		logger:     logger,
		bus:        busClient,
		rideRepo:   rideRepo,
		index:      geo.NewLiveIndex(),
		riders:     newRegistry(),
		drivers:    newRegistry(),
		rides:      newRegistry(),
		browsers:   newBrowseSet(),
		connRider:  make(map[*websocket.Conn]string),
		connDriver: make(map[*websocket.Conn]string),
		connRide:   make(map[*websocket.Conn]string),
	}
}

// RunConsumers starts the three bus consumers that drive Fan-out broadcasts.
func (s *Service) RunConsumers(ctx context.Context) {
	go s.runConsumer(ctx, "driver_locations_consumer", s.consumeDriverLocations)
	go s.runConsumer(ctx, "driver_availability_consumer", s.consumeDriverAvailability)
	go s.runConsumer(ctx, "ride_updates_consumer", s.consumeRideUpdates)
}

func (s *Service) runConsumer(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if err := fn(ctx); err != nil {
		s.logger.Error(ctx, name+"_stopped", "bus consumer loop exited", err, nil)
	}
}
