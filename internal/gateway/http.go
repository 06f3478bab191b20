package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ride-hail/internal/domain/ride"
)

// driverLocationDTO is the JSON shape pushed/returned for a live driver.
type driverLocationDTO struct {
	DriverID    string  `json:"driver_id"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	VehicleType string  `json:"vehicle_type"`
	DistanceKM  float64 `json:"distance_km,omitempty"`
}

// allDriverLocations snapshots the entire live index, with no distance
// field since there's no reference point.
func (s *Service) allDriverLocations() []driverLocationDTO {
	entries := s.index.Snapshot()
	out := make([]driverLocationDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, driverLocationDTO{DriverID: e.DriverID, Lat: e.Lat, Lon: e.Lon, VehicleType: e.VehicleType.String()})
	}
	return out
}

// nearbyDrivers runs the same linear Haversine scan, tie-broken ascending
// distance then driver_id, as geo.LiveIndex.Nearby guarantees.
func (s *Service) nearbyDrivers(lat, lon, radiusKm float64) []driverLocationDTO {
	entries := s.index.Nearby(lat, lon, radiusKm)
	out := make([]driverLocationDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, driverLocationDTO{
			DriverID: e.DriverID, Lat: e.Lat, Lon: e.Lon, VehicleType: e.VehicleType.String(),
			DistanceKM: ride.HaversineKM(lat, lon, e.Lat, e.Lon),
		})
	}
	return out
}

// handleNearbyDriversREST is the plain REST mirror of the get_nearby frame.
func (s *Service) handleNearbyDriversREST(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "lat and lon are required"})
		return
	}
	radius := 5.0
	if raw := r.URL.Query().Get("radius"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			radius = parsed
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"drivers": s.nearbyDrivers(lat, lon, radius)})
}
