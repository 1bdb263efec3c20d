package models

import "time"

// Session statuses. A session leaves "reserved" only through confirmation,
// cancellation, or soft-lock expiry.
const (
	SessionStatusAvailable = "available"
	SessionStatusReserved  = "reserved"
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

// Session is a sellable, time-boxed slice of charging capacity at a station.
// ReservedBy and ReservedUntil are both nil or both set, never one without
// the other.
type Session struct {
	ID                 string     `db:"id" json:"id"`
	StationID          string     `db:"station_id" json:"station_id"`
	StartTime          time.Time  `db:"start_time" json:"start_time"`
	EndTime            time.Time  `db:"end_time" json:"end_time"`
	AvailableKW        float64    `db:"available_kw" json:"available_kw"`
	BasePricePerKWh    float64    `db:"base_price_per_kwh" json:"base_price_per_kwh"`
	DynamicPricePerKWh *float64   `db:"dynamic_price_per_kwh" json:"dynamic_price_per_kwh,omitempty"`
	Status             string     `db:"status" json:"status"`
	ReservedBy         *string    `db:"reserved_by" json:"reserved_by,omitempty"`
	ReservedUntil      *time.Time `db:"reserved_until" json:"reserved_until,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// PricePerKWh returns the price a confirmation freezes: the dynamic price if
// one was stamped at reserve time, the base price otherwise.
func (s *Session) PricePerKWh() float64 {
	if s.DynamicPricePerKWh != nil {
		return *s.DynamicPricePerKWh
	}
	return s.BasePricePerKWh
}
