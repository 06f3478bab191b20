package store

import (
	"context"
	"errors"
	"sort"

	"ride-hail/internal/domain/driver"
	"ride-hail/internal/domain/ride"
	"ride-hail/internal/ports"

	"github.com/jackc/pgx/v5"
)

// DriverRepo persists drivers using pgx and plain SQL.
type DriverRepo struct{}

// NewDriverRepo constructs a new DriverRepo.
func NewDriverRepo() ports.DriverRepository {
	return &DriverRepo{}
}

// CreateDriver inserts a new driver row.
func (repo *DriverRepo) CreateDriver(ctx context.Context, d *driver.Driver) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO drivers (id, name, email, phone, vehicle_type, vehicle_plate, rating, is_online, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, d.ID, d.Name, d.Email, d.Phone, d.VehicleType.String(), d.VehiclePlate, d.Rating, d.IsOnline, d.UpdatedAt)
	return err
}

// GetByID returns one driver by id.
func (repo *DriverRepo) GetByID(ctx context.Context, id string) (*driver.Driver, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out driver.Driver
	var vehicleType string

	err = tx.QueryRow(ctx, `
		SELECT id, name, email, phone, vehicle_type, vehicle_plate, rating,
		       is_online, current_lat, current_lon, updated_at
		FROM drivers
		WHERE id = $1
	`, id).Scan(
		&out.ID, &out.Name, &out.Email, &out.Phone, &vehicleType, &out.VehiclePlate, &out.Rating,
		&out.IsOnline, &out.CurrentLat, &out.CurrentLon, &out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	out.VehicleType = ride.VehicleType(vehicleType)
	return &out, nil
}

// UpdateOnline sets is_online (idempotent if unchanged).
func (repo *DriverRepo) UpdateOnline(ctx context.Context, id string, online bool) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE drivers SET is_online = $1, updated_at = now() WHERE id = $2
	`, online, id)
	return err
}

// UpdatePosition records the driver's last-known coordinates.
func (repo *DriverRepo) UpdatePosition(ctx context.Context, id string, lat, lon float64) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE drivers SET current_lat = $1, current_lon = $2, updated_at = now() WHERE id = $3
	`, lat, lon, id)
	return err
}

// FindNearbyAvailable returns online drivers of the given vehicle type with a
// known position, ranked by Haversine distance and capped to radiusKm/limit.
// This is the Matching Service's cold-start fallback when its live index is
// empty; it does not require a spatial extension, matching the precision the
// live index itself uses (internal/domain/geo.LiveIndex.Nearby).
func (repo *DriverRepo) FindNearbyAvailable(ctx context.Context, lat, lon float64, vt ride.VehicleType, radiusKm float64, limit int) ([]driver.Driver, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, name, email, phone, vehicle_type, vehicle_plate, rating,
		       is_online, current_lat, current_lon, updated_at
		FROM drivers
		WHERE is_online = true
		  AND vehicle_type = $1
		  AND current_lat IS NOT NULL
		  AND current_lon IS NOT NULL
	`, vt.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []driver.Driver
	for rows.Next() {
		var d driver.Driver
		var vehicleType string
		if err := rows.Scan(
			&d.ID, &d.Name, &d.Email, &d.Phone, &vehicleType, &d.VehiclePlate, &d.Rating,
			&d.IsOnline, &d.CurrentLat, &d.CurrentLon, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		d.VehicleType = ride.VehicleType(vehicleType)
		candidates = append(candidates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	within := candidates[:0]
	for _, d := range candidates {
		if ride.HaversineKM(lat, lon, *d.CurrentLat, *d.CurrentLon) <= radiusKm {
			within = append(within, d)
		}
	}

	sort.Slice(within, func(i, j int) bool {
		di := ride.HaversineKM(lat, lon, *within[i].CurrentLat, *within[i].CurrentLon)
		dj := ride.HaversineKM(lat, lon, *within[j].CurrentLat, *within[j].CurrentLon)
		if di != dj {
			return di < dj
		}
		return within[i].ID < within[j].ID
	})
	if limit > 0 && len(within) > limit {
		within = within[:limit]
	}
	return within, nil
}
