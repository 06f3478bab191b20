// Package rider holds the Rider entity: created externally and never
// mutated by the core. No service reads riders either; the Fan-out resolves
// a ride's owner from rides.rider_id.
package rider

import (
	"errors"
	"strings"
)

// Rider is the domain entity corresponding to the `riders` table.
type Rider struct {
	ID     string
	Name   string
	Email  string
	Phone  string
	Rating float64
}

var ErrIDRequired = errors.New("rider id is required")

// NewRider constructs a Rider with a default rating, mirroring how the
// external collaborator that owns rider records would seed one.
func NewRider(id, name, email, phone string) (*Rider, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, ErrIDRequired
	}
	return &Rider{ID: id, Name: name, Email: email, Phone: phone, Rating: 5.0}, nil
}
