package models

import "time"

// Reservation statuses mirror a subset of the session lifecycle.
const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusActive    = "active"
	ReservationStatusCompleted = "completed"
	ReservationStatusCancelled = "cancelled"
)

// Reservation is the confirmed booking created from a soft-locked session.
// PricePerKWh is frozen at confirmation time.
type Reservation struct {
	ID           string     `db:"id" json:"id"`
	SessionID    string     `db:"session_id" json:"session_id"`
	UserID       string     `db:"user_id" json:"user_id"`
	KWhRequested float64    `db:"kwh_requested" json:"kwh_requested"`
	PricePerKWh  float64    `db:"price_per_kwh" json:"price_per_kwh"`
	TotalPrice   float64    `db:"total_price" json:"total_price"`
	CreditsUsed  float64    `db:"credits_used" json:"credits_used"`
	IsPriority   bool       `db:"is_priority" json:"is_priority"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
