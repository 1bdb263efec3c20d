package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/firasbarkia/energy-connect-hub/internal/models"
)

// RevenueRepository is the Postgres-backed RevenueStore.
type RevenueRepository struct {
	db *sql.DB
}

// NewRevenueRepository returns repository.
func NewRevenueRepository(db *sql.DB) *RevenueRepository {
	return &RevenueRepository{db: db}
}

// Accumulate adds the delta to the (station, day) rollup. Concurrent writers
// for the same day commute; nothing is overwritten.
func (r *RevenueRepository) Accumulate(ctx context.Context, stationID string, day time.Time, delta models.RevenueDelta) error {
	const query = `
		INSERT INTO station_revenue (station_id, day, sessions_count, total_kwh, total_revenue, auto_pricing_events, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (station_id, day) DO UPDATE SET
			sessions_count = station_revenue.sessions_count + EXCLUDED.sessions_count,
			total_kwh = station_revenue.total_kwh + EXCLUDED.total_kwh,
			total_revenue = station_revenue.total_revenue + EXCLUDED.total_revenue,
			auto_pricing_events = station_revenue.auto_pricing_events + EXCLUDED.auto_pricing_events,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		stationID,
		day.UTC().Truncate(24*time.Hour),
		delta.SessionsCount,
		delta.TotalKWh,
		delta.TotalRevenue,
		delta.AutoPricingEvents,
	)
	return err
}

// RecentDaily returns the latest daily rollups for a station.
func (r *RevenueRepository) RecentDaily(ctx context.Context, stationID string, limit int) ([]models.RevenuePeriod, error) {
	if limit <= 0 {
		limit = 30
	}
	const query = `
		SELECT station_id, day, sessions_count, total_kwh, total_revenue, auto_pricing_events
		FROM station_revenue
		WHERE station_id = $1
		ORDER BY day DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, stationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []models.RevenuePeriod
	for rows.Next() {
		var p models.RevenuePeriod
		if err := rows.Scan(
			&p.StationID,
			&p.Day,
			&p.SessionsCount,
			&p.TotalKWh,
			&p.TotalRevenue,
			&p.AutoPricingEvents,
		); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return periods, nil
}
