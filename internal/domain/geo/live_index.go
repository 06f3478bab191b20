// Package geo holds the in-memory live driver index shared in spirit (not
// in instance) by the Matching Service and the Fan-out: a
// driver_id -> {lat, lon, vehicle_type, timestamp} map that tracks
// high-frequency position/availability updates without touching Postgres.
package geo

import (
	"sort"
	"sync"
	"time"

	"ride-hail/internal/domain/ride"
)

// Entry is one driver's last-known position and vehicle type.
type Entry struct {
	DriverID    string
	Lat         float64
	Lon         float64
	VehicleType ride.VehicleType
	Timestamp   time.Time
}

// LiveIndex is an RWMutex-guarded map of online drivers, owned by exactly
// one service instance (Matching Service or Fan-out each construct their
// own — there is no package-level singleton).
type LiveIndex struct {
	mu      sync.RWMutex
	drivers map[string]Entry
}

// NewLiveIndex constructs an empty index.
func NewLiveIndex() *LiveIndex {
	return &LiveIndex{drivers: make(map[string]Entry)}
}

// Upsert records a driver's position/vehicle type. A strictly-older update
// (by timestamp) than the one already on file is discarded.
func (idx *LiveIndex) Upsert(driverID string, lat, lon float64, vt ride.VehicleType, ts time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if existing, ok := idx.drivers[driverID]; ok && ts.Before(existing.Timestamp) {
		return
	}
	idx.drivers[driverID] = Entry{DriverID: driverID, Lat: lat, Lon: lon, VehicleType: vt, Timestamp: ts}
}

// Remove drops a driver from the index (e.g. on driver-availability offline).
func (idx *LiveIndex) Remove(driverID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.drivers, driverID)
}

// Len reports how many drivers are currently tracked.
func (idx *LiveIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.drivers)
}

// Snapshot copies the index under a read lock so a long scan never blocks writers.
func (idx *LiveIndex) Snapshot() []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Entry, 0, len(idx.drivers))
	for _, e := range idx.drivers {
		out = append(out, e)
	}
	return out
}

// distanced pairs an Entry with its distance from a reference point.
type distanced struct {
	Entry
	DistanceKM float64
}

// NearestQualifying returns the nearest driver of the given vehicle type to
// (lat, lon), or ok=false if no candidate is tracked. Ties are broken by
// smallest driver_id for determinism.
func (idx *LiveIndex) NearestQualifying(lat, lon float64, vt ride.VehicleType) (Entry, float64, bool) {
	candidates := idx.filterAndRank(lat, lon, func(e Entry) bool { return e.VehicleType == vt })
	if len(candidates) == 0 {
		return Entry{}, 0, false
	}
	return candidates[0].Entry, candidates[0].DistanceKM, true
}

// Nearby returns every driver within radiusKm of (lat, lon), ascending by
// distance then driver_id — the same tie-break rule NearestQualifying uses,
// so the Matching Service and the Fan-out agree when queried at the same instant.
func (idx *LiveIndex) Nearby(lat, lon, radiusKm float64) []Entry {
	candidates := idx.filterAndRank(lat, lon, func(Entry) bool { return true })
	out := make([]Entry, 0, len(candidates))
	for _, c := range candidates {
		if c.DistanceKM <= radiusKm {
			out = append(out, c.Entry)
		}
	}
	return out
}

func (idx *LiveIndex) filterAndRank(lat, lon float64, keep func(Entry) bool) []distanced {
	snap := idx.Snapshot()
	candidates := make([]distanced, 0, len(snap))
	for _, e := range snap {
		if !keep(e) {
			continue
		}
		d := ride.HaversineKM(lat, lon, e.Lat, e.Lon)
		candidates = append(candidates, distanced{Entry: e, DistanceKM: d})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKM != candidates[j].DistanceKM {
			return candidates[i].DistanceKM < candidates[j].DistanceKM
		}
		return candidates[i].DriverID < candidates[j].DriverID
	})
	return candidates
}
