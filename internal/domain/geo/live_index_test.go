package geo

import (
	"testing"
	"time"

	"ride-hail/internal/domain/ride"
)

func TestLiveIndexUpsertDiscardsStaleTimestamp(t *testing.T) {
	idx := NewLiveIndex()
	t0 := time.Now().UTC()

	idx.Upsert("driver-1", 1, 1, ride.VehicleSedan, t0)
	idx.Upsert("driver-1", 99, 99, ride.VehicleSedan, t0.Add(-time.Second))

	snap := idx.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("len(snap) = %d, want 1", len(snap))
	}
	if snap[0].Lat != 1 || snap[0].Lon != 1 {
		t.Errorf("stale update was applied: lat=%v lon=%v, want (1,1)", snap[0].Lat, snap[0].Lon)
	}

	idx.Upsert("driver-1", 2, 2, ride.VehicleSedan, t0.Add(time.Second))
	snap = idx.Snapshot()
	if snap[0].Lat != 2 || snap[0].Lon != 2 {
		t.Errorf("newer update was not applied: lat=%v lon=%v, want (2,2)", snap[0].Lat, snap[0].Lon)
	}
}

func TestLiveIndexRemove(t *testing.T) {
	idx := NewLiveIndex()
	idx.Upsert("driver-1", 1, 1, ride.VehicleSedan, time.Now().UTC())
	if idx.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", idx.Len())
	}
	idx.Remove("driver-1")
	if idx.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after Remove", idx.Len())
	}
}

func TestNearestQualifyingFiltersByVehicleType(t *testing.T) {
	idx := NewLiveIndex()
	now := time.Now().UTC()
	idx.Upsert("bike-1", 0, 0, ride.VehicleBike, now)
	idx.Upsert("sedan-1", 0.001, 0.001, ride.VehicleSedan, now)

	entry, _, ok := idx.NearestQualifying(0, 0, ride.VehicleSedan)
	if !ok {
		t.Fatal("NearestQualifying() ok = false, want true")
	}
	if entry.DriverID != "sedan-1" {
		t.Errorf("DriverID = %q, want sedan-1", entry.DriverID)
	}
}

func TestNearestQualifyingNoCandidates(t *testing.T) {
	idx := NewLiveIndex()
	if _, _, ok := idx.NearestQualifying(0, 0, ride.VehicleSUV); ok {
		t.Error("NearestQualifying() ok = true on empty index, want false")
	}
}

func TestNearestQualifyingTieBreaksBySmallestDriverID(t *testing.T) {
	idx := NewLiveIndex()
	now := time.Now().UTC()
	// Both drivers sit at the exact same point, so distance ties at zero;
	// the index must pick deterministically by ascending driver_id.
	idx.Upsert("driver-z", 10, 10, ride.VehicleSedan, now)
	idx.Upsert("driver-a", 10, 10, ride.VehicleSedan, now)

	entry, _, ok := idx.NearestQualifying(10, 10, ride.VehicleSedan)
	if !ok {
		t.Fatal("NearestQualifying() ok = false, want true")
	}
	if entry.DriverID != "driver-a" {
		t.Errorf("DriverID = %q, want driver-a (smallest id on tie)", entry.DriverID)
	}
}

func TestNearbyOrdersByDistanceThenDriverID(t *testing.T) {
	idx := NewLiveIndex()
	now := time.Now().UTC()
	idx.Upsert("far", 1, 1, ride.VehicleSedan, now)
	idx.Upsert("near-b", 0.001, 0, ride.VehicleBike, now)
	idx.Upsert("near-a", 0.001, 0, ride.VehicleSUV, now)

	got := idx.Nearby(0, 0, 5000)
	if len(got) != 3 {
		t.Fatalf("len(Nearby()) = %d, want 3", len(got))
	}
	if got[0].DriverID != "near-a" || got[1].DriverID != "near-b" {
		t.Errorf("order = [%s, %s, %s], want near-a, near-b first (tie broken by driver_id)",
			got[0].DriverID, got[1].DriverID, got[2].DriverID)
	}
	if got[2].DriverID != "far" {
		t.Errorf("last entry = %q, want far", got[2].DriverID)
	}
}

func TestNearbyExcludesOutOfRadius(t *testing.T) {
	idx := NewLiveIndex()
	now := time.Now().UTC()
	idx.Upsert("near", 0, 0, ride.VehicleSedan, now)
	idx.Upsert("far", 80, 80, ride.VehicleSedan, now)

	got := idx.Nearby(0, 0, 10)
	if len(got) != 1 || got[0].DriverID != "near" {
		t.Errorf("Nearby() = %+v, want only near", got)
	}
}
