package pricing

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeHistory struct {
	completed int64
	total     int64
	averages  [24]float64
	countErr  error
	hourlyErr error

	countSince  time.Time
	hourlySince time.Time
}

func (f *fakeHistory) CountByStatusSince(_ context.Context, _ string, since time.Time) (int64, int64, error) {
	f.countSince = since
	return f.completed, f.total, f.countErr
}

func (f *fakeHistory) HourlyAverages(_ context.Context, _ string, since time.Time, _ int) ([24]float64, error) {
	f.hourlySince = since
	return f.averages, f.hourlyErr
}

func TestSnapshotComputesOccupancy(t *testing.T) {
	history := &fakeHistory{completed: 9, total: 10}
	history.averages[8] = 2.5
	provider := NewSnapshotProvider(history)

	asOf := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	snapshot, err := provider.Snapshot(context.Background(), "station-1", asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.OccupancyRate != 0.9 {
		t.Fatalf("expected occupancy 0.9, got %v", snapshot.OccupancyRate)
	}
	if snapshot.TotalSessions != 10 {
		t.Fatalf("expected 10 sessions, got %d", snapshot.TotalSessions)
	}
	if snapshot.HourlyAverages[8] != 2.5 {
		t.Fatalf("expected hourly average passthrough, got %v", snapshot.HourlyAverages[8])
	}

	if want := asOf.Add(-24 * time.Hour); !history.countSince.Equal(want) {
		t.Fatalf("occupancy window should start at %v, got %v", want, history.countSince)
	}
	if want := asOf.AddDate(0, 0, -30); !history.hourlySince.Equal(want) {
		t.Fatalf("demand window should start at %v, got %v", want, history.hourlySince)
	}
}

func TestSnapshotZeroHistoryIsNotAnError(t *testing.T) {
	provider := NewSnapshotProvider(&fakeHistory{})

	snapshot, err := provider.Snapshot(context.Background(), "station-1", time.Now())
	if err != nil {
		t.Fatalf("zero history must not error: %v", err)
	}
	if !snapshot.IsEmpty() {
		t.Fatal("expected empty snapshot")
	}
	if snapshot.OccupancyRate != 0 {
		t.Fatalf("occupancy must be 0 with no sessions, got %v", snapshot.OccupancyRate)
	}
}

func TestSnapshotPropagatesLookupFailure(t *testing.T) {
	wantErr := errors.New("db down")
	provider := NewSnapshotProvider(&fakeHistory{countErr: wantErr})

	if _, err := provider.Snapshot(context.Background(), "station-1", time.Now()); !errors.Is(err, wantErr) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}
