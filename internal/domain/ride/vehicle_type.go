package ride

import (
	"errors"
	"strings"
)

// VehicleType is a vehicle type as stored in the `rides`/`drivers` tables.
type VehicleType string

const (
	VehicleBike  VehicleType = "bike"
	VehicleSedan VehicleType = "sedan"
	VehicleSUV   VehicleType = "suv"
)

var ErrInvalidVehicleType = errors.New("invalid vehicle type")

// ParseVehicleType normalizes (lowercases+trims) and validates a vehicle type string.
func ParseVehicleType(in string) (VehicleType, error) {
	vt := VehicleType(strings.ToLower(strings.TrimSpace(in)))
	if vt.Valid() {
		return vt, nil
	}
	return "", ErrInvalidVehicleType
}

// Valid reports whether vehicleType is one of the allowed vehicle type constants.
func (vehicleType VehicleType) Valid() bool {
	switch vehicleType {
	case VehicleBike, VehicleSedan, VehicleSUV:
		return true
	default:
		return false
	}
}

// String returns the string representation of the VehicleType.
func (vehicleType VehicleType) String() string {
	return string(vehicleType)
}
