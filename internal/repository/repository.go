package repository

import (
	"context"
	"errors"
	"time"

	"github.com/firasbarkia/energy-connect-hub/internal/models"
)

// ErrNoRowMatched indicates a conditional write found no row with the
// expected id and status. Callers translate it into conflict/not-found.
var ErrNoRowMatched = errors.New("repository: no row matched precondition")

// SessionStore persists sessions. Every state transition is a conditional
// write keyed on the session id and its expected current status; a write
// whose precondition no longer holds returns ErrNoRowMatched instead of
// overwriting.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (*models.Session, error)
	ListAvailable(ctx context.Context, limit int) ([]models.Session, error)

	// Reserve transitions available -> reserved, setting holder and expiry.
	Reserve(ctx context.Context, id, userID string, until time.Time) (*models.Session, error)
	// Activate transitions reserved -> active for the given holder.
	Activate(ctx context.Context, id, holderID string) (*models.Session, error)
	// Cancel transitions from the expected status to cancelled, clearing
	// holder fields.
	Cancel(ctx context.Context, id, expectedStatus string) (*models.Session, error)
	// Complete transitions active -> completed.
	Complete(ctx context.Context, id string) (*models.Session, error)
	// ReleaseExpired returns every reserved session whose soft-lock lapsed
	// at or before now to available, clearing holder fields. It reports the
	// released sessions and is a no-op when none qualify.
	ReleaseExpired(ctx context.Context, now time.Time) ([]models.Session, error)

	// StampDynamicPrice records the price computed when the hold was taken.
	StampDynamicPrice(ctx context.Context, id string, price float64) error

	// CountByStatusSince returns (completed, total) counts of sessions for
	// the station created after since.
	CountByStatusSince(ctx context.Context, stationID string, since time.Time) (completed, total int64, err error)
	// HourlyAverages returns, per hour of day, the average number of daily
	// sessions for the station over the window starting at since.
	HourlyAverages(ctx context.Context, stationID string, since time.Time, days int) ([24]float64, error)
}

// ReservationStore persists confirmed bookings.
type ReservationStore interface {
	Create(ctx context.Context, r *models.Reservation) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Reservation, error)
	// OpenBySession returns the confirmed reservation of a session.
	OpenBySession(ctx context.Context, sessionID string) (*models.Reservation, error)
	// CompleteBySession marks the confirmed reservation of a session
	// completed and returns it.
	CompleteBySession(ctx context.Context, sessionID string, at time.Time) (*models.Reservation, error)
	// CancelBySession cancels any open reservation rows of a session.
	CancelBySession(ctx context.Context, sessionID string) error
}

// StationStore reads and writes station metadata.
type StationStore interface {
	GetByID(ctx context.Context, id string) (*models.Station, error)
	Upsert(ctx context.Context, station *models.Station) error
}

// RevenueStore accumulates per-station daily rollups. Accumulate adds the
// delta to the existing (station, day) row, creating it if absent.
type RevenueStore interface {
	Accumulate(ctx context.Context, stationID string, day time.Time, delta models.RevenueDelta) error
	RecentDaily(ctx context.Context, stationID string, limit int) ([]models.RevenuePeriod, error)
}
