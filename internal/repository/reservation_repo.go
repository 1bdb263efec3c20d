package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/firasbarkia/energy-connect-hub/internal/models"
)

// ReservationRepository is the Postgres-backed ReservationStore.
type ReservationRepository struct {
	db *sql.DB
}

// NewReservationRepository returns repository.
func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create inserts a new reservation.
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	const query = `
		INSERT INTO reservations (session_id, user_id, kwh_requested, price_per_kwh, total_price, credits_used, is_priority, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		reservation.SessionID,
		reservation.UserID,
		reservation.KWhRequested,
		reservation.PricePerKWh,
		reservation.TotalPrice,
		reservation.CreditsUsed,
		reservation.IsPriority,
		reservation.Status,
	).Scan(&reservation.ID, &reservation.CreatedAt)
}

// ListByUser returns latest reservations for a user.
func (r *ReservationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Reservation, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, session_id, user_id, kwh_requested, price_per_kwh, total_price, credits_used, is_priority, status, created_at, completed_at
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		var res models.Reservation
		if err := rows.Scan(
			&res.ID,
			&res.SessionID,
			&res.UserID,
			&res.KWhRequested,
			&res.PricePerKWh,
			&res.TotalPrice,
			&res.CreditsUsed,
			&res.IsPriority,
			&res.Status,
			&res.CreatedAt,
			&res.CompletedAt,
		); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

// OpenBySession returns the confirmed reservation of a session.
func (r *ReservationRepository) OpenBySession(ctx context.Context, sessionID string) (*models.Reservation, error) {
	const query = `
		SELECT id, session_id, user_id, kwh_requested, price_per_kwh, total_price, credits_used, is_priority, status, created_at, completed_at
		FROM reservations
		WHERE session_id = $1 AND status = 'confirmed'
		ORDER BY created_at DESC
		LIMIT 1
	`
	var res models.Reservation
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&res.ID,
		&res.SessionID,
		&res.UserID,
		&res.KWhRequested,
		&res.PricePerKWh,
		&res.TotalPrice,
		&res.CreditsUsed,
		&res.IsPriority,
		&res.Status,
		&res.CreatedAt,
		&res.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRowMatched
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CompleteBySession finalizes the confirmed reservation of a session.
func (r *ReservationRepository) CompleteBySession(ctx context.Context, sessionID string, at time.Time) (*models.Reservation, error) {
	const query = `
		UPDATE reservations
		SET status = 'completed',
		    completed_at = $2
		WHERE session_id = $1 AND status = 'confirmed'
		RETURNING id, session_id, user_id, kwh_requested, price_per_kwh, total_price, credits_used, is_priority, status, created_at, completed_at
	`
	var res models.Reservation
	err := r.db.QueryRowContext(ctx, query, sessionID, at).Scan(
		&res.ID,
		&res.SessionID,
		&res.UserID,
		&res.KWhRequested,
		&res.PricePerKWh,
		&res.TotalPrice,
		&res.CreditsUsed,
		&res.IsPriority,
		&res.Status,
		&res.CreatedAt,
		&res.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRowMatched
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CancelBySession cancels open reservation rows of a session.
func (r *ReservationRepository) CancelBySession(ctx context.Context, sessionID string) error {
	const query = `
		UPDATE reservations
		SET status = 'cancelled'
		WHERE session_id = $1 AND status IN ('pending', 'confirmed')
	`
	_, err := r.db.ExecContext(ctx, query, sessionID)
	return err
}
