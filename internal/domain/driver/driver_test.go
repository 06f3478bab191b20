package driver

import (
	"testing"

	"ride-hail/internal/domain/ride"
)

func TestNewDriver(t *testing.T) {
	t.Run("valid driver starts offline and unpositioned", func(t *testing.T) {
		d, err := NewDriver("driver-1", "Ada", "ada@example.com", "555-0100", ride.VehicleSedan, "ABC123")
		if err != nil {
			t.Fatalf("NewDriver() error = %v", err)
		}
		if d.IsOnline {
			t.Error("IsOnline = true, want false for a freshly created driver")
		}
		if d.CurrentLat != nil || d.CurrentLon != nil {
			t.Error("position should be nil until the driver reports one")
		}
		if d.Rating != 5.0 {
			t.Errorf("Rating = %v, want 5.0", d.Rating)
		}
	})

	t.Run("blank id rejected", func(t *testing.T) {
		if _, err := NewDriver("  ", "Ada", "", "", ride.VehicleSedan, ""); err != ErrIDRequired {
			t.Errorf("error = %v, want %v", err, ErrIDRequired)
		}
	})

	t.Run("invalid vehicle type rejected", func(t *testing.T) {
		if _, err := NewDriver("driver-1", "Ada", "", "", ride.VehicleType("blimp"), ""); err != ride.ErrInvalidVehicleType {
			t.Errorf("error = %v, want %v", err, ride.ErrInvalidVehicleType)
		}
	})
}

func TestSetOnlineAndSetPosition(t *testing.T) {
	d, err := NewDriver("driver-1", "Ada", "", "", ride.VehicleSedan, "")
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}

	d.SetOnline(true)
	if !d.IsOnline {
		t.Error("IsOnline = false after SetOnline(true)")
	}

	d.SetPosition(12.5, -45.25)
	if d.CurrentLat == nil || *d.CurrentLat != 12.5 {
		t.Errorf("CurrentLat = %v, want 12.5", d.CurrentLat)
	}
	if d.CurrentLon == nil || *d.CurrentLon != -45.25 {
		t.Errorf("CurrentLon = %v, want -45.25", d.CurrentLon)
	}

	d.SetOnline(false)
	if d.IsOnline {
		t.Error("IsOnline = true after SetOnline(false)")
	}
}
