package ride

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Ride is the domain entity corresponding to the `rides` table.
type Ride struct {
	ID       int64
	RiderID  string
	DriverID *string // nil until matched

	PickupLat      float64
	PickupLon      float64
	PickupAddress  string
	DestLat        float64
	DestLon        float64
	DestAddress    string

	VehicleType VehicleType
	Status      Status

	Fare       *float64 // nil until matched; overwritten by the authoritative fare on completed
	DistanceKM *float64 // nil until matched

	RequestedAt time.Time
	MatchedAt   *time.Time
	AcceptedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

var (
	ErrRiderRequired           = errors.New("rider id is required")
	ErrInvalidStatusTransition = errors.New("invalid ride status transition")
	ErrAlreadyAssigned         = errors.New("driver already assigned")
	ErrNoDriverAssigned        = errors.New("no driver assigned")
	ErrDriverRequired          = errors.New("driver id is required")
)

// NewRide creates a new ride in the requested state.
func NewRide(riderID string, vt VehicleType, pickupLat, pickupLon float64, pickupAddress string, destLat, destLon float64, destAddress string) (*Ride, error) {
	if riderID = strings.TrimSpace(riderID); riderID == "" {
		return nil, ErrRiderRequired
	}
	if !vt.Valid() {
		return nil, ErrInvalidVehicleType
	}

	now := time.Now().UTC()
	return &Ride{
		RiderID:       riderID,
		VehicleType:   vt,
		Status:        StatusRequested,
		PickupLat:     pickupLat,
		PickupLon:     pickupLon,
		PickupAddress: pickupAddress,
		DestLat:       destLat,
		DestLon:       destLon,
		DestAddress:   destAddress,
		RequestedAt:   now,
	}, nil
}

// ApplyMatch transitions requested -> matched, recording the driver, the
// predictive fare, and the trip distance. Idempotent: reapplying the same
// driver to an already-matched ride is a no-op.
func (r *Ride) ApplyMatch(driverID string, fare, distanceKM float64) error {
	if driverID == "" {
		return ErrDriverRequired
	}
	if r.Status == StatusMatched && r.DriverID != nil && *r.DriverID == driverID {
		return nil
	}
	if r.Status != StatusRequested {
		return ErrInvalidStatusTransition
	}

	r.DriverID = &driverID
	r.Fare = &fare
	r.DistanceKM = &distanceKM
	now := time.Now().UTC()
	r.MatchedAt = &now
	r.Status = StatusMatched
	return nil
}

// Accept transitions matched -> accepted (the matched driver accepted the ride).
func (r *Ride) Accept() error {
	if r.DriverID == nil {
		return ErrNoDriverAssigned
	}
	if r.Status == StatusAccepted {
		return nil
	}
	if r.Status != StatusMatched {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	r.AcceptedAt = &now
	r.Status = StatusAccepted
	return nil
}

// Start transitions accepted -> started.
func (r *Ride) Start() error {
	if r.DriverID == nil {
		return ErrNoDriverAssigned
	}
	if r.Status == StatusStarted {
		return nil
	}
	if r.Status != StatusAccepted {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	r.StartedAt = &now
	r.Status = StatusStarted
	return nil
}

// Complete transitions started -> completed, overwriting the predictive
// fare set at match time with the authoritative fare reported by the driver.
func (r *Ride) Complete(finalFare float64) error {
	if r.Status == StatusCompleted {
		return nil
	}
	if r.Status != StatusStarted {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	r.CompletedAt = &now
	r.Fare = &finalFare
	r.Status = StatusCompleted
	return nil
}

// Cancel transitions to cancelled from any non-terminal, pre-started state.
func (r *Ride) Cancel() error {
	if r.Status == StatusCancelled {
		return nil
	}
	if !r.Status.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	r.CancelledAt = &now
	r.Status = StatusCancelled
	return nil
}

// HaversineKM returns the great-circle distance in kilometers between two
// lat/lon pairs, using the mean Earth radius.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0
	a1 := lat1 * math.Pi / 180
	a2 := lat2 * math.Pi / 180
	da := (lat2 - lat1) * math.Pi / 180
	db := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(da/2)*math.Sin(da/2) +
		math.Cos(a1)*math.Cos(a2)*math.Sin(db/2)*math.Sin(db/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// tariff holds the deterministic per-vehicle-type fare table: fare = base + perKM*distance.
type tariff struct {
	base  float64
	perKM float64
}

var tariffTable = map[VehicleType]tariff{
	VehicleBike:  {base: 2.0, perKM: 0.5},
	VehicleSedan: {base: 3.5, perKM: 1.0},
	VehicleSUV:   {base: 5.0, perKM: 1.5},
}

// ComputeFare returns the deterministic fare for vt over tripDistanceKM,
// rounded to 2 decimals. Unknown vehicle types fall back to the sedan tariff.
func ComputeFare(vt VehicleType, tripDistanceKM float64) float64 {
	t, ok := tariffTable[vt]
	if !ok {
		t = tariffTable[VehicleSedan]
	}
	if tripDistanceKM < 0 {
		tripDistanceKM = 0
	}
	fare := t.base + t.perKM*tripDistanceKM
	return Round2(fare)
}

// Round2 rounds v to 2 decimal places, the precision both fare and distance
// are stored and published at.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
