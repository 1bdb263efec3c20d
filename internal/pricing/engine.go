package pricing

import "math"

// Config holds the tunable bands of the dynamic pricing engine. It is passed
// in explicitly so the engine stays pure and operators can retune without a
// redeploy.
type Config struct {
	MinMultiplier      float64 `yaml:"minMultiplier" env:"PRICING_MIN_MULTIPLIER"`
	MaxMultiplier      float64 `yaml:"maxMultiplier" env:"PRICING_MAX_MULTIPLIER"`
	HighOccupancy      float64 `yaml:"highOccupancy" env:"PRICING_HIGH_OCCUPANCY"`
	HighOccupancyBoost float64 `yaml:"highOccupancyBoost" env:"PRICING_HIGH_OCCUPANCY_BOOST"`
	MidOccupancy       float64 `yaml:"midOccupancy" env:"PRICING_MID_OCCUPANCY"`
	MidOccupancyBoost  float64 `yaml:"midOccupancyBoost" env:"PRICING_MID_OCCUPANCY_BOOST"`
	LowOccupancy       float64 `yaml:"lowOccupancy" env:"PRICING_LOW_OCCUPANCY"`
	LowOccupancyCut    float64 `yaml:"lowOccupancyCut" env:"PRICING_LOW_OCCUPANCY_CUT"`
	HighDemandRatio    float64 `yaml:"highDemandRatio" env:"PRICING_HIGH_DEMAND_RATIO"`
	HighDemandBoost    float64 `yaml:"highDemandBoost" env:"PRICING_HIGH_DEMAND_BOOST"`
	LowDemandRatio     float64 `yaml:"lowDemandRatio" env:"PRICING_LOW_DEMAND_RATIO"`
	LowDemandCut       float64 `yaml:"lowDemandCut" env:"PRICING_LOW_DEMAND_CUT"`
	PeakHourBoost      float64 `yaml:"peakHourBoost" env:"PRICING_PEAK_HOUR_BOOST"`
	OffPeakCut         float64 `yaml:"offPeakCut" env:"PRICING_OFF_PEAK_CUT"`
}

// DefaultConfig returns the stock pricing bands.
func DefaultConfig() Config {
	return Config{
		MinMultiplier:      0.70,
		MaxMultiplier:      1.40,
		HighOccupancy:      0.8,
		HighOccupancyBoost: 0.20,
		MidOccupancy:       0.6,
		MidOccupancyBoost:  0.10,
		LowOccupancy:       0.3,
		LowOccupancyCut:    0.15,
		HighDemandRatio:    1.5,
		HighDemandBoost:    0.15,
		LowDemandRatio:     0.7,
		LowDemandCut:       0.10,
		PeakHourBoost:      0.10,
		OffPeakCut:         0.20,
	}
}

// DemandSnapshot is the demand input of a price computation. A zero value
// means "no signal" and yields the base price.
type DemandSnapshot struct {
	// OccupancyRate is the fraction of recent sessions that completed,
	// 0 when no sessions were seen.
	OccupancyRate float64
	// TotalSessions is the number of sessions behind OccupancyRate.
	TotalSessions int64
	// HourlyAverages holds the average daily session count per hour of day.
	HourlyAverages [24]float64
}

// IsEmpty reports whether the snapshot carries no demand signal at all.
func (d DemandSnapshot) IsEmpty() bool {
	return d.TotalSessions == 0 && !d.hasHourlyData()
}

// hasHourlyData reports whether any hour carries historical demand.
func (d DemandSnapshot) hasHourlyData() bool {
	for _, avg := range d.HourlyAverages {
		if avg > 0 {
			return true
		}
	}
	return false
}

// Engine computes dynamic prices. Price is pure; recording the computation
// as a revenue event is the caller's explicit side effect.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine with the given bands.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Price returns the dynamic price per kWh for the given base price, demand
// snapshot and hour of day. Adjustments add to a multiplier starting at 1.0,
// which is clamped before the final rounding to two decimals (half-up).
func (e *Engine) Price(basePrice float64, demand DemandSnapshot, hour int) float64 {
	// No demand signal at all: pricing degrades to the base price rather
	// than penalizing a station nobody has visited yet.
	if demand.IsEmpty() {
		return basePrice
	}

	multiplier := 1.0

	// Occupancy bands, first match wins.
	switch {
	case demand.OccupancyRate > e.cfg.HighOccupancy:
		multiplier += e.cfg.HighOccupancyBoost
	case demand.OccupancyRate > e.cfg.MidOccupancy:
		multiplier += e.cfg.MidOccupancyBoost
	case demand.OccupancyRate < e.cfg.LowOccupancy:
		multiplier -= e.cfg.LowOccupancyCut
	}

	// Hourly demand relative to the all-hours average, skipped without data.
	if hour >= 0 && hour < 24 && demand.hasHourlyData() {
		var sum float64
		for _, avg := range demand.HourlyAverages {
			sum += avg
		}
		allHoursAvg := sum / 24
		if allHoursAvg > 0 {
			ratio := demand.HourlyAverages[hour] / allHoursAvg
			if ratio > e.cfg.HighDemandRatio {
				multiplier += e.cfg.HighDemandBoost
			} else if ratio < e.cfg.LowDemandRatio {
				multiplier -= e.cfg.LowDemandCut
			}
		}
	}

	// Peak hours 7-9 and 17-20.
	if (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 20) {
		multiplier += e.cfg.PeakHourBoost
	}

	// Off-peak hours 22-6.
	if hour >= 22 || (hour >= 0 && hour <= 6) {
		multiplier -= e.cfg.OffPeakCut
	}

	multiplier = math.Max(e.cfg.MinMultiplier, math.Min(e.cfg.MaxMultiplier, multiplier))

	// Scale to cents before applying the multiplier so ties land on .5
	// exactly (0.35*1.30 must round up to 0.46, not drift down to 0.45),
	// then round half away from zero.
	return math.Round(basePrice*100*multiplier) / 100
}
