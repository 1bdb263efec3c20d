package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/firasbarkia/energy-connect-hub/internal/models"
	"github.com/firasbarkia/energy-connect-hub/internal/pricing"
	"github.com/firasbarkia/energy-connect-hub/internal/repository"
)

const revenueWriteTimeout = 5 * time.Second

// SnapshotSource supplies demand snapshots for a station.
type SnapshotSource interface {
	Snapshot(ctx context.Context, stationID string, asOf time.Time) (pricing.DemandSnapshot, error)
}

// PricingService wraps the pure engine with its data source and the
// auto-pricing event side effect. It never fails: any missing input degrades
// to the station's base price.
type PricingService struct {
	engine    *pricing.Engine
	snapshots SnapshotSource
	revenue   repository.RevenueStore
	logger    *zap.Logger
}

// NewPricingService builds service.
func NewPricingService(engine *pricing.Engine, snapshots SnapshotSource, revenue repository.RevenueStore, logger *zap.Logger) *PricingService {
	return &PricingService{
		engine:    engine,
		snapshots: snapshots,
		revenue:   revenue,
		logger:    logger,
	}
}

// DynamicPrice returns the price per kWh to stamp on a hold taken now.
// Stations that opted out of auto-pricing keep their base price. Snapshot
// failures are absorbed; pricing is best-effort, never a hard dependency of
// the reservation flow.
func (s *PricingService) DynamicPrice(ctx context.Context, station *models.Station, asOf time.Time) float64 {
	if station == nil {
		return 0
	}
	if !station.AutoPricingOn {
		return station.BasePricePerKWh
	}

	snapshot, err := s.snapshots.Snapshot(ctx, station.ID, asOf)
	if err != nil {
		s.logger.Warn("demand snapshot unavailable, falling back to base price",
			zap.String("station_id", station.ID),
			zap.Error(err),
		)
		return station.BasePricePerKWh
	}

	price := s.engine.Price(station.BasePricePerKWh, snapshot, asOf.Hour())

	s.recordAutoPricingEvent(station.ID, asOf)

	return price
}

// recordAutoPricingEvent increments the station's current-day rollup.
// Fire-and-forget: the computation already returned to the caller.
func (s *PricingService) recordAutoPricingEvent(stationID string, asOf time.Time) {
	if s.revenue == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), revenueWriteTimeout)
		defer cancel()
		err := s.revenue.Accumulate(ctx, stationID, asOf, models.RevenueDelta{AutoPricingEvents: 1})
		if err != nil {
			s.logger.Warn("failed to record auto-pricing event",
				zap.String("station_id", stationID),
				zap.Error(err),
			)
		}
	}()
}
