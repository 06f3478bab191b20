package ride

import (
	"math"
	"testing"
)

func TestHaversineKM(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lon1      float64
		lat2      float64
		lon2      float64
		expected  float64
		tolerance float64
	}{
		{"same point", 37.7749, -122.4194, 37.7749, -122.4194, 0, 0.001},
		{"SF to Oakland", 37.7749, -122.4194, 37.8044, -122.2712, 13.0, 1.0},
		{"NYC to LA", 40.7128, -74.0060, 34.0522, -118.2437, 3940, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKM(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.expected) > tt.tolerance {
				t.Errorf("HaversineKM() = %v, want %v (+/- %v)", got, tt.expected, tt.tolerance)
			}
		})
	}
}

func TestComputeFare(t *testing.T) {
	tests := []struct {
		name     string
		vt       VehicleType
		distance float64
		want     float64
	}{
		{"bike zero distance", VehicleBike, 0, 2.0},
		{"bike 5km", VehicleBike, 5, 4.5},
		{"sedan 5km", VehicleSedan, 5, 8.5},
		{"suv 5km", VehicleSUV, 5, 12.5},
		{"negative distance clamps to zero", VehicleSedan, -10, 3.5},
		{"unknown vehicle type falls back to sedan", VehicleType("unknown"), 5, 8.5},
		{"rounds to 2 decimals", VehicleBike, 1.111, 2.56},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeFare(tt.vt, tt.distance)
			if got != tt.want {
				t.Errorf("ComputeFare(%v, %v) = %v, want %v", tt.vt, tt.distance, got, tt.want)
			}
		})
	}
}

func TestNewRide(t *testing.T) {
	t.Run("valid ride", func(t *testing.T) {
		r, err := NewRide("rider-1", VehicleSedan, 1, 2, "pickup", 3, 4, "dest")
		if err != nil {
			t.Fatalf("NewRide() error = %v", err)
		}
		if r.Status != StatusRequested {
			t.Errorf("Status = %v, want %v", r.Status, StatusRequested)
		}
		if r.DriverID != nil {
			t.Errorf("DriverID = %v, want nil", r.DriverID)
		}
	})

	t.Run("blank rider id rejected", func(t *testing.T) {
		if _, err := NewRide("   ", VehicleSedan, 1, 2, "p", 3, 4, "d"); err != ErrRiderRequired {
			t.Errorf("error = %v, want %v", err, ErrRiderRequired)
		}
	})

	t.Run("invalid vehicle type rejected", func(t *testing.T) {
		if _, err := NewRide("rider-1", VehicleType("hovercraft"), 1, 2, "p", 3, 4, "d"); err != ErrInvalidVehicleType {
			t.Errorf("error = %v, want %v", err, ErrInvalidVehicleType)
		}
	})
}

func TestRideLifecycle(t *testing.T) {
	newRequested := func(t *testing.T) *Ride {
		t.Helper()
		r, err := NewRide("rider-1", VehicleSedan, 1, 2, "p", 3, 4, "d")
		if err != nil {
			t.Fatalf("NewRide() error = %v", err)
		}
		return r
	}

	t.Run("full happy path", func(t *testing.T) {
		r := newRequested(t)

		if err := r.ApplyMatch("driver-1", 8.5, 5); err != nil {
			t.Fatalf("ApplyMatch() error = %v", err)
		}
		if r.Status != StatusMatched || r.DriverID == nil || *r.DriverID != "driver-1" {
			t.Fatalf("after ApplyMatch: status=%v driverID=%v", r.Status, r.DriverID)
		}
		if r.Fare == nil || *r.Fare != 8.5 {
			t.Fatalf("predictive fare = %v, want 8.5", r.Fare)
		}

		if err := r.Accept(); err != nil {
			t.Fatalf("Accept() error = %v", err)
		}
		if r.Status != StatusAccepted {
			t.Fatalf("status = %v, want accepted", r.Status)
		}

		if err := r.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if r.Status != StatusStarted {
			t.Fatalf("status = %v, want started", r.Status)
		}

		if err := r.Complete(9.25); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if r.Status != StatusCompleted {
			t.Fatalf("status = %v, want completed", r.Status)
		}
		if r.Fare == nil || *r.Fare != 9.25 {
			t.Fatalf("authoritative fare = %v, want 9.25 (should overwrite predictive fare)", r.Fare)
		}
	})

	t.Run("ApplyMatch rejects a second, different driver once matched", func(t *testing.T) {
		r := newRequested(t)
		if err := r.ApplyMatch("driver-1", 8.5, 5); err != nil {
			t.Fatalf("ApplyMatch() error = %v", err)
		}
		if err := r.ApplyMatch("driver-2", 9.0, 6); err != ErrInvalidStatusTransition {
			t.Errorf("error = %v, want %v", err, ErrInvalidStatusTransition)
		}
	})

	t.Run("ApplyMatch is idempotent for the same driver", func(t *testing.T) {
		r := newRequested(t)
		if err := r.ApplyMatch("driver-1", 8.5, 5); err != nil {
			t.Fatalf("ApplyMatch() error = %v", err)
		}
		if err := r.ApplyMatch("driver-1", 8.5, 5); err != nil {
			t.Errorf("re-applying same match: error = %v, want nil (idempotent)", err)
		}
	})

	t.Run("Accept before match is rejected", func(t *testing.T) {
		r := newRequested(t)
		if err := r.Accept(); err != ErrNoDriverAssigned {
			t.Errorf("error = %v, want %v", err, ErrNoDriverAssigned)
		}
	})

	t.Run("Start before accept is rejected", func(t *testing.T) {
		r := newRequested(t)
		if err := r.ApplyMatch("driver-1", 8.5, 5); err != nil {
			t.Fatalf("ApplyMatch() error = %v", err)
		}
		if err := r.Start(); err != ErrInvalidStatusTransition {
			t.Errorf("error = %v, want %v", err, ErrInvalidStatusTransition)
		}
	})

	t.Run("Cancel allowed from requested, matched, accepted", func(t *testing.T) {
		for _, advance := range []func(*Ride) error{
			func(r *Ride) error { return nil },
			func(r *Ride) error { return r.ApplyMatch("driver-1", 8.5, 5) },
			func(r *Ride) error {
				if err := r.ApplyMatch("driver-1", 8.5, 5); err != nil {
					return err
				}
				return r.Accept()
			},
		} {
			r := newRequested(t)
			if err := advance(r); err != nil {
				t.Fatalf("setup error = %v", err)
			}
			if err := r.Cancel(); err != nil {
				t.Errorf("Cancel() from %v: error = %v", r.Status, err)
			}
			if r.Status != StatusCancelled {
				t.Errorf("status = %v, want cancelled", r.Status)
			}
		}
	})

	t.Run("Cancel rejected once started", func(t *testing.T) {
		r := newRequested(t)
		if err := r.ApplyMatch("driver-1", 8.5, 5); err != nil {
			t.Fatalf("ApplyMatch() error = %v", err)
		}
		if err := r.Accept(); err != nil {
			t.Fatalf("Accept() error = %v", err)
		}
		if err := r.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if err := r.Cancel(); err != ErrInvalidStatusTransition {
			t.Errorf("error = %v, want %v", err, ErrInvalidStatusTransition)
		}
	})

	t.Run("Cancel is idempotent", func(t *testing.T) {
		r := newRequested(t)
		if err := r.Cancel(); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		if err := r.Cancel(); err != nil {
			t.Errorf("re-cancelling: error = %v, want nil (idempotent)", err)
		}
	})
}
