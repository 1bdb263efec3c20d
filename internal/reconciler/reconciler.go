package reconciler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/firasbarkia/energy-connect-hub/internal/events"
	"github.com/firasbarkia/energy-connect-hub/internal/models"
	"github.com/firasbarkia/energy-connect-hub/internal/redisstore"
)

// SessionSweeper is the slice of the session store the reconciler needs.
type SessionSweeper interface {
	ReleaseExpired(ctx context.Context, now time.Time) ([]models.Session, error)
}

// Reconciler returns lapsed soft-locks to availability on a fixed interval,
// independent of any client being connected. The sweep shares the session
// store's compare-and-set discipline, so re-running it is a no-op and it
// cannot race a concurrent confirm.
type Reconciler struct {
	sessions SessionSweeper
	holds    *redisstore.HoldStore
	sink     events.Sink
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time
}

// New builds reconciler. holds and sink may be nil.
func New(sessions SessionSweeper, holds *redisstore.HoldStore, sink events.Sink, logger *zap.Logger, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Reconciler{
		sessions: sessions,
		holds:    holds,
		sink:     sink,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("expiry reconciler started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("expiry reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep releases every reserved session whose soft-lock has lapsed and
// reports how many were returned to availability.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	now := r.now().UTC()
	released, err := r.sessions.ReleaseExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, session := range released {
		if r.holds != nil {
			if err := r.holds.Delete(ctx, session.ID); err != nil {
				r.logger.Warn("failed to evict hold cache", zap.String("session_id", session.ID), zap.Error(err))
			}
		}
		event := events.Event{
			Type:       events.TypeReservationExpired,
			SessionID:  session.ID,
			StationID:  session.StationID,
			OccurredAt: now,
		}
		if session.ReservedBy != nil {
			event.UserID = *session.ReservedBy
		}
		r.sink.Publish(ctx, event)
	}

	if len(released) > 0 {
		r.logger.Info("released expired holds", zap.Int("count", len(released)))
	}
	return len(released), nil
}

// WithClock overrides the time source for deterministic tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	if now != nil {
		r.now = now
	}
	return r
}
