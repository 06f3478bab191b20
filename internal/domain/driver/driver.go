package driver

import (
	"errors"
	"strings"
	"time"

	"ride-hail/internal/domain/ride"
)

// Driver is the domain entity corresponding to the `drivers` table. Created
// by an external admin collaborator; mutated by the Driver Service only.
type Driver struct {
	ID    string
	Name  string
	Email string
	Phone string

	VehicleType  ride.VehicleType
	VehiclePlate string
	Rating       float64

	IsOnline bool
	// CurrentLat/CurrentLon are nil until the driver has reported a position.
	CurrentLat *float64
	CurrentLon *float64

	UpdatedAt time.Time
}

var (
	ErrIDRequired     = errors.New("driver id is required")
	ErrInvalidRating  = errors.New("rating must be between 0 and 5")
)

// NewDriver creates a new Driver entity with sane defaults. The driver
// starts offline and unpositioned; it comes online via SetOnline.
func NewDriver(id, name, email, phone string, vt ride.VehicleType, plate string) (*Driver, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, ErrIDRequired
	}
	if !vt.Valid() {
		return nil, ride.ErrInvalidVehicleType
	}

	return &Driver{
		ID:           id,
		Name:         name,
		Email:        email,
		Phone:        phone,
		VehicleType:  vt,
		VehiclePlate: plate,
		Rating:       5.0,
		IsOnline:     false,
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

// SetOnline sets the online flag, touching UpdatedAt.
func (d *Driver) SetOnline(online bool) {
	d.IsOnline = online
	d.touch()
}

// SetPosition records the driver's current coordinates.
func (d *Driver) SetPosition(lat, lon float64) {
	d.CurrentLat = &lat
	d.CurrentLon = &lon
	d.touch()
}

func (d *Driver) touch() {
	d.UpdatedAt = time.Now().UTC()
}
