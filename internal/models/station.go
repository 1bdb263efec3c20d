package models

import "time"

// Station is a charging host offering sessions. OwnerID is the operator's
// user id; base price and the auto-pricing flag feed the pricing engine.
type Station struct {
	ID              string    `db:"id" json:"id"`
	OwnerID         string    `db:"owner_id" json:"owner_id"`
	Name            string    `db:"name" json:"name"`
	Address         string    `db:"address" json:"address"`
	Zone            string    `db:"zone" json:"zone"`
	BasePricePerKWh float64   `db:"base_price_per_kwh" json:"base_price_per_kwh"`
	AutoPricingOn   bool      `db:"auto_pricing_on" json:"auto_pricing_on"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
