package events

import (
	"context"
	"time"
)

// Event types emitted by the reservation lifecycle.
const (
	TypeReservationHeld      = "reservation.held"
	TypeReservationConfirmed = "reservation.confirmed"
	TypeReservationCancelled = "reservation.cancelled"
	TypeReservationExpired   = "reservation.expired"
	TypeSessionCompleted     = "session.completed"
)

// Event is a user-facing lifecycle notification. The core only emits these;
// rendering them is the notification sink's problem.
type Event struct {
	Type          string     `json:"type"`
	SessionID     string     `json:"session_id"`
	StationID     string     `json:"station_id"`
	UserID        string     `json:"user_id,omitempty"`
	PricePerKWh   float64    `json:"price_per_kwh,omitempty"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// Sink receives lifecycle events. Implementations must not block the
// reservation flow; failures are the sink's to absorb or report.
type Sink interface {
	Publish(ctx context.Context, event Event)
}

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

// Publish delivers the event to every sink.
func (m MultiSink) Publish(ctx context.Context, event Event) {
	for _, sink := range m {
		sink.Publish(ctx, event)
	}
}

// NopSink discards events.
type NopSink struct{}

// Publish does nothing.
func (NopSink) Publish(context.Context, Event) {}
