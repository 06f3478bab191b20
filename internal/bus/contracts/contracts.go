// Package contracts defines the JSON wire schemas carried over the five bus
// topics (ride-requests, ride-matches, ride-updates, driver-locations,
// driver-availability). RideRequest carries pickup and destination as nested
// {lat, lon, address} objects and has no requested_at field.
package contracts

import "time"

// Topic names, each backed by its own durable topic exchange.
const (
	TopicRideRequests       = "ride-requests"
	TopicRideMatches        = "ride-matches"
	TopicRideUpdates        = "ride-updates"
	TopicDriverLocations    = "driver-locations"
	TopicDriverAvailability = "driver-availability"
)

// Envelope carries cross-cutting headers every message has in common.
type Envelope struct {
	CorrelationID string    `json:"correlation_id,omitempty"`
	Producer      string    `json:"producer,omitempty"`
	SentAt        time.Time `json:"sent_at,omitempty"`
}

// GeoPoint is a lat/lon pair, optionally with a human-readable address.
type GeoPoint struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address,omitempty"`
}

// RideRequest is published by the Ride Service to ride-requests, keyed by ride id.
type RideRequest struct {
	Envelope
	RideID      string   `json:"ride_id"`
	RiderID     string   `json:"rider_id"`
	Pickup      GeoPoint `json:"pickup"`
	Destination GeoPoint `json:"destination"`
	VehicleType string   `json:"vehicle_type"`
}

// RideMatch is published by the Matching Service to ride-matches, keyed by ride id.
type RideMatch struct {
	Envelope
	RideID           string  `json:"ride_id"`
	DriverID         string  `json:"driver_id"`
	DriverName       string  `json:"driver_name"`
	DistanceToPickup float64 `json:"distance_to_pickup"`
	EstimatedFare    float64 `json:"estimated_fare"`
	RideDistance     float64 `json:"ride_distance"`
	VehicleType      string  `json:"vehicle_type"`
}

// RideUpdate is published to ride-updates by whichever service drives a
// status transition (Ride Service on `matched`, Driver Service on
// accept/start/complete), keyed by ride id. The Ride Service also applies a
// `cancelled` update when one arrives; no service in this module publishes one.
type RideUpdate struct {
	Envelope
	RideID    string    `json:"ride_id"`
	DriverID  string    `json:"driver_id,omitempty"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Fare      float64   `json:"fare,omitempty"`
}

// DriverLocation is published by the Driver Service to driver-locations,
// keyed by driver id, only while the driver is online.
type DriverLocation struct {
	Envelope
	DriverID    string    `json:"driver_id"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	VehicleType string    `json:"vehicle_type"`
	Timestamp   time.Time `json:"timestamp"`
}

// DriverAvailability is published by the Driver Service to
// driver-availability, keyed by driver id.
type DriverAvailability struct {
	Envelope
	DriverID  string    `json:"driver_id"`
	IsOnline  bool      `json:"is_online"`
	Timestamp time.Time `json:"timestamp"`
}
