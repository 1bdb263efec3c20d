package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/firasbarkia/energy-connect-hub/internal/models"
)

// StationRepository is the Postgres-backed StationStore.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository returns repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// GetByID returns the station or ErrNoRowMatched when unknown.
func (r *StationRepository) GetByID(ctx context.Context, id string) (*models.Station, error) {
	const query = `
		SELECT id, owner_id, name, address, zone, base_price_per_kwh, auto_pricing_on, created_at, updated_at
		FROM stations
		WHERE id = $1
	`
	var s models.Station
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.OwnerID,
		&s.Name,
		&s.Address,
		&s.Zone,
		&s.BasePricePerKWh,
		&s.AutoPricingOn,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRowMatched
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert persists station metadata.
func (r *StationRepository) Upsert(ctx context.Context, station *models.Station) error {
	const query = `
		INSERT INTO stations (id, owner_id, name, address, zone, base_price_per_kwh, auto_pricing_on, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			zone = EXCLUDED.zone,
			base_price_per_kwh = EXCLUDED.base_price_per_kwh,
			auto_pricing_on = EXCLUDED.auto_pricing_on,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		station.ID,
		station.OwnerID,
		station.Name,
		station.Address,
		station.Zone,
		station.BasePricePerKWh,
		station.AutoPricingOn,
	)
	return err
}
