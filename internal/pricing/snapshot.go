package pricing

import (
	"context"
	"time"
)

const (
	occupancyWindow = 24 * time.Hour
	demandDays      = 30
)

// SessionHistory is the slice of the session store the snapshot provider
// reads: recent completion counts and hour-of-day demand.
type SessionHistory interface {
	CountByStatusSince(ctx context.Context, stationID string, since time.Time) (completed, total int64, err error)
	HourlyAverages(ctx context.Context, stationID string, since time.Time, days int) ([24]float64, error)
}

// SnapshotProvider reduces a station's recent history to the inputs the
// pricing engine needs.
type SnapshotProvider struct {
	history SessionHistory
}

// NewSnapshotProvider returns provider.
func NewSnapshotProvider(history SessionHistory) *SnapshotProvider {
	return &SnapshotProvider{history: history}
}

// Snapshot builds the demand picture for a station as of the given instant.
// A station with zero history yields a zeroed snapshot and no error.
func (p *SnapshotProvider) Snapshot(ctx context.Context, stationID string, asOf time.Time) (DemandSnapshot, error) {
	var snapshot DemandSnapshot

	completed, total, err := p.history.CountByStatusSince(ctx, stationID, asOf.Add(-occupancyWindow))
	if err != nil {
		return snapshot, err
	}
	if total > 0 {
		snapshot.OccupancyRate = float64(completed) / float64(total)
	}
	snapshot.TotalSessions = total

	averages, err := p.history.HourlyAverages(ctx, stationID, asOf.AddDate(0, 0, -demandDays), demandDays)
	if err != nil {
		return snapshot, err
	}
	snapshot.HourlyAverages = averages

	return snapshot, nil
}
