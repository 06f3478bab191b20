package matchingservice

import (
	"context"
	"testing"
	"time"

	"ride-hail/internal/common/log"
	"ride-hail/internal/domain/driver"
	"ride-hail/internal/domain/geo"
	"ride-hail/internal/domain/ride"
	"ride-hail/internal/ports"
)

// stubDriverRepo implements ports.DriverRepository, returning a fixed set of
// candidates from FindNearbyAvailable and panicking on any other method —
// the matching algorithm under test never calls them.
type stubDriverRepo struct {
	ports.DriverRepository
	candidates []driver.Driver
	err        error
}

func (s *stubDriverRepo) FindNearbyAvailable(ctx context.Context, lat, lon float64, vt ride.VehicleType, radiusKm float64, limit int) ([]driver.Driver, error) {
	return s.candidates, s.err
}

func newTestService(driverRepo ports.DriverRepository) *Service {
	return &Service{
		logger:     log.New("matching-service-test"),
		driverRepo: driverRepo,
		index:      geo.NewLiveIndex(),
	}
}

func TestFindNearestDriverPrefersLiveIndex(t *testing.T) {
	s := newTestService(&stubDriverRepo{})
	s.index.Upsert("driver-live", 0.001, 0, ride.VehicleSedan, time.Now().UTC())

	driverID, _, ok := s.findNearestDriver(context.Background(), 0, 0, ride.VehicleSedan)
	if !ok {
		t.Fatal("findNearestDriver() ok = false, want true")
	}
	if driverID != "driver-live" {
		t.Errorf("driverID = %q, want driver-live", driverID)
	}
}

func TestFindNearestDriverFallsBackToStoreOnColdIndex(t *testing.T) {
	lat, lon := 0.001, 0.0
	repo := &stubDriverRepo{candidates: []driver.Driver{
		{ID: "driver-cold", VehicleType: ride.VehicleSedan, IsOnline: true, CurrentLat: &lat, CurrentLon: &lon},
	}}
	s := newTestService(repo)

	driverID, _, ok := s.findNearestDriver(context.Background(), 0, 0, ride.VehicleSedan)
	if !ok {
		t.Fatal("findNearestDriver() ok = false, want true (should fall back to store)")
	}
	if driverID != "driver-cold" {
		t.Errorf("driverID = %q, want driver-cold", driverID)
	}
}

func TestFindNearestDriverNoCandidatesAnywhere(t *testing.T) {
	s := newTestService(&stubDriverRepo{})
	if _, _, ok := s.findNearestDriver(context.Background(), 0, 0, ride.VehicleSedan); ok {
		t.Error("findNearestDriver() ok = true, want false when both index and store are empty")
	}
}

func TestFindNearestDriverStoreErrorIsTreatedAsNoCandidate(t *testing.T) {
	s := newTestService(&stubDriverRepo{err: context.DeadlineExceeded})
	if _, _, ok := s.findNearestDriver(context.Background(), 0, 0, ride.VehicleSedan); ok {
		t.Error("findNearestDriver() ok = true, want false when the store fallback errors")
	}
}
