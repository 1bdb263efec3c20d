package models

import "time"

// RevenuePeriod is the per-station, per-day revenue rollup. Writes for the
// same (station, day) accumulate rather than overwrite.
type RevenuePeriod struct {
	StationID         string    `db:"station_id" json:"station_id"`
	Day               time.Time `db:"day" json:"day"`
	SessionsCount     int64     `db:"sessions_count" json:"sessions_count"`
	TotalKWh          float64   `db:"total_kwh" json:"total_kwh"`
	TotalRevenue      float64   `db:"total_revenue" json:"total_revenue"`
	AutoPricingEvents int64     `db:"auto_pricing_events" json:"auto_pricing_events"`
}

// RevenueDelta is one accumulation against a (station, day) rollup.
type RevenueDelta struct {
	SessionsCount     int64
	TotalKWh          float64
	TotalRevenue      float64
	AutoPricingEvents int64
}
