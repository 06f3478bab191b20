package store

import (
	"context"
	"errors"

	"ride-hail/internal/domain/rider"
	"ride-hail/internal/ports"

	"github.com/jackc/pgx/v5"
)

// RiderRepo persists riders using pgx and plain SQL.
type RiderRepo struct{}

// NewRiderRepo constructs a new RiderRepo.
func NewRiderRepo() ports.RiderRepository {
	return &RiderRepo{}
}

// CreateRider inserts a new rider row.
func (repo *RiderRepo) CreateRider(ctx context.Context, r *rider.Rider) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO riders (id, name, email, phone, rating)
		VALUES ($1, $2, $3, $4, $5)
	`, r.ID, r.Name, r.Email, r.Phone, r.Rating)
	return err
}

// GetByID returns one rider by id.
func (repo *RiderRepo) GetByID(ctx context.Context, id string) (*rider.Rider, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out rider.Rider
	err = tx.QueryRow(ctx, `
		SELECT id, name, email, phone, rating FROM riders WHERE id = $1
	`, id).Scan(&out.ID, &out.Name, &out.Email, &out.Phone, &out.Rating)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
