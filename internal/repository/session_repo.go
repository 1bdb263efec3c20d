package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/firasbarkia/energy-connect-hub/internal/models"
)

const sessionColumns = `id, station_id, start_time, end_time, available_kw, base_price_per_kwh,
		dynamic_price_per_kwh, status, reserved_by, reserved_until, created_at, updated_at`

// SessionRepository is the Postgres-backed SessionStore.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var s models.Session
	if err := row.Scan(
		&s.ID,
		&s.StationID,
		&s.StartTime,
		&s.EndTime,
		&s.AvailableKW,
		&s.BasePricePerKWh,
		&s.DynamicPricePerKWh,
		&s.Status,
		&s.ReservedBy,
		&s.ReservedUntil,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns the session or ErrNoRowMatched when unknown.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1
	`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRowMatched
	}
	return session, err
}

// ListAvailable returns upcoming available sessions ordered by start time.
func (r *SessionRepository) ListAvailable(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE status = 'available'
		ORDER BY start_time ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Reserve atomically claims an available session. The WHERE clause carries
// the expected status so two racing callers cannot both win.
func (r *SessionRepository) Reserve(ctx context.Context, id, userID string, until time.Time) (*models.Session, error) {
	const query = `
		UPDATE sessions
		SET status = 'reserved',
		    reserved_by = $2,
		    reserved_until = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'available'
		RETURNING ` + sessionColumns + `
	`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id, userID, until))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRowMatched
	}
	return session, err
}

// Activate promotes a reserved session held by holderID to active. Holder
// fields are cleared; they only accompany the reserved status.
func (r *SessionRepository) Activate(ctx context.Context, id, holderID string) (*models.Session, error) {
	const query = `
		UPDATE sessions
		SET status = 'active',
		    reserved_by = NULL,
		    reserved_until = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'reserved' AND reserved_by = $2
		RETURNING ` + sessionColumns + `
	`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id, holderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRowMatched
	}
	return session, err
}

// Cancel transitions from expectedStatus to cancelled, clearing the holder.
func (r *SessionRepository) Cancel(ctx context.Context, id, expectedStatus string) (*models.Session, error) {
	const query = `
		UPDATE sessions
		SET status = 'cancelled',
		    reserved_by = NULL,
		    reserved_until = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + sessionColumns + `
	`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id, expectedStatus))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRowMatched
	}
	return session, err
}

// Complete transitions active -> completed.
func (r *SessionRepository) Complete(ctx context.Context, id string) (*models.Session, error) {
	const query = `
		UPDATE sessions
		SET status = 'completed',
		    updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING ` + sessionColumns + `
	`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRowMatched
	}
	return session, err
}

// ReleaseExpired sweeps lapsed soft-locks back to available. The status
// predicate makes the sweep idempotent and safe against a racing confirm.
// The returned sessions carry the holder they were released from.
func (r *SessionRepository) ReleaseExpired(ctx context.Context, now time.Time) ([]models.Session, error) {
	const query = `
		WITH expired AS (
			SELECT id, reserved_by, reserved_until
			FROM sessions
			WHERE status = 'reserved' AND reserved_until <= $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE sessions
		SET status = 'available',
		    reserved_by = NULL,
		    reserved_until = NULL,
		    updated_at = NOW()
		FROM expired
		WHERE sessions.id = expired.id
		RETURNING sessions.id, sessions.station_id, expired.reserved_by, expired.reserved_until
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var released []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.StationID, &s.ReservedBy, &s.ReservedUntil); err != nil {
			return nil, err
		}
		s.Status = models.SessionStatusAvailable
		released = append(released, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return released, nil
}

// StampDynamicPrice records the computed price on the session.
func (r *SessionRepository) StampDynamicPrice(ctx context.Context, id string, price float64) error {
	const query = `
		UPDATE sessions
		SET dynamic_price_per_kwh = $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, price)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRowMatched
	}
	return nil
}

// CountByStatusSince returns completed and total session counts for the
// station since the given time.
func (r *SessionRepository) CountByStatusSince(ctx context.Context, stationID string, since time.Time) (int64, int64, error) {
	const query = `
		SELECT COUNT(*) FILTER (WHERE status = 'completed'), COUNT(*)
		FROM sessions
		WHERE station_id = $1 AND created_at >= $2
	`
	var completed, total int64
	if err := r.db.QueryRowContext(ctx, query, stationID, since).Scan(&completed, &total); err != nil {
		return 0, 0, err
	}
	return completed, total, nil
}

// HourlyAverages buckets session start times by hour of day and averages
// them over the window. Hours with no sessions stay zero.
func (r *SessionRepository) HourlyAverages(ctx context.Context, stationID string, since time.Time, days int) ([24]float64, error) {
	if days <= 0 {
		days = 30
	}
	const query = `
		SELECT EXTRACT(HOUR FROM start_time)::int AS hour, COUNT(*)
		FROM sessions
		WHERE station_id = $1 AND start_time >= $2
		GROUP BY hour
	`
	var averages [24]float64
	rows, err := r.db.QueryContext(ctx, query, stationID, since)
	if err != nil {
		return averages, err
	}
	defer rows.Close()

	for rows.Next() {
		var hour int
		var count int64
		if err := rows.Scan(&hour, &count); err != nil {
			return averages, err
		}
		if hour >= 0 && hour < 24 {
			averages[hour] = float64(count) / float64(days)
		}
	}
	if err := rows.Err(); err != nil {
		return averages, err
	}
	return averages, nil
}
