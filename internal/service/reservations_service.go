package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/firasbarkia/energy-connect-hub/internal/events"
	"github.com/firasbarkia/energy-connect-hub/internal/models"
	"github.com/firasbarkia/energy-connect-hub/internal/redisstore"
	"github.com/firasbarkia/energy-connect-hub/internal/repository"
)

// PriceSource quotes the price to stamp on a new hold.
type PriceSource interface {
	DynamicPrice(ctx context.Context, station *models.Station, asOf time.Time) float64
}

// ReservationsService owns the session lifecycle: reserve, confirm, cancel,
// complete. Every transition is an atomic conditional write; racing callers
// observe ErrConflict instead of overwriting each other.
type ReservationsService struct {
	sessions     repository.SessionStore
	reservations repository.ReservationStore
	stations     repository.StationStore
	revenue      repository.RevenueStore
	pricing      PriceSource
	holds        *redisstore.HoldStore
	sink         events.Sink
	logger       *zap.Logger
	holdTTL      time.Duration
	now          func() time.Time
}

// NewReservationsService builds service. holds may be nil when no cache is
// configured; sink may be nil when nothing consumes events.
func NewReservationsService(
	sessions repository.SessionStore,
	reservations repository.ReservationStore,
	stations repository.StationStore,
	revenue repository.RevenueStore,
	pricing PriceSource,
	holds *redisstore.HoldStore,
	sink events.Sink,
	logger *zap.Logger,
	holdTTL time.Duration,
) *ReservationsService {
	if sink == nil {
		sink = events.NopSink{}
	}
	if holdTTL <= 0 {
		holdTTL = 5 * time.Minute
	}
	return &ReservationsService{
		sessions:     sessions,
		reservations: reservations,
		stations:     stations,
		revenue:      revenue,
		pricing:      pricing,
		holds:        holds,
		sink:         sink,
		logger:       logger,
		holdTTL:      holdTTL,
		now:          time.Now,
	}
}

// Reserve takes a 5-minute soft-lock on an available session for userID.
// Exactly one of any set of concurrent callers wins; the rest observe
// ErrConflict. The hold is stamped with the current dynamic price.
func (s *ReservationsService) Reserve(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	now := s.now().UTC()
	until := now.Add(s.holdTTL)

	session, err := s.sessions.Reserve(ctx, sessionID, userID, until)
	if errors.Is(err, repository.ErrNoRowMatched) {
		if _, getErr := s.sessions.GetByID(ctx, sessionID); errors.Is(getErr, repository.ErrNoRowMatched) {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}

	s.stampPrice(ctx, session, now)
	s.cacheHold(ctx, session)

	s.sink.Publish(ctx, events.Event{
		Type:          events.TypeReservationHeld,
		SessionID:     session.ID,
		StationID:     session.StationID,
		UserID:        userID,
		PricePerKWh:   session.PricePerKWh(),
		ReservedUntil: session.ReservedUntil,
		OccurredAt:    now,
	})

	s.logger.Info("session reserved",
		zap.String("session_id", session.ID),
		zap.String("user_id", userID),
		zap.Time("reserved_until", until),
	)
	return session, nil
}

// stampPrice consults the pricing engine and records the offered price on the
// session. Pricing is best-effort; any failure leaves the base price.
func (s *ReservationsService) stampPrice(ctx context.Context, session *models.Session, now time.Time) {
	if s.pricing == nil {
		return
	}
	station, err := s.stations.GetByID(ctx, session.StationID)
	if err != nil {
		s.logger.Warn("station lookup failed, hold keeps base price",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return
	}

	price := s.pricing.DynamicPrice(ctx, station, now)
	if price <= 0 {
		return
	}
	if err := s.sessions.StampDynamicPrice(ctx, session.ID, price); err != nil {
		s.logger.Warn("failed to stamp dynamic price",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return
	}
	session.DynamicPricePerKWh = &price
}

func (s *ReservationsService) cacheHold(ctx context.Context, session *models.Session) {
	if s.holds == nil || session.ReservedBy == nil || session.ReservedUntil == nil {
		return
	}
	err := s.holds.Save(ctx, redisstore.Hold{
		SessionID:     session.ID,
		StationID:     session.StationID,
		UserID:        *session.ReservedBy,
		PricePerKWh:   session.PricePerKWh(),
		ReservedUntil: *session.ReservedUntil,
	})
	if err != nil {
		s.logger.Warn("failed to cache hold", zap.String("session_id", session.ID), zap.Error(err))
	}
}

func (s *ReservationsService) evictHold(ctx context.Context, sessionID string) {
	if s.holds == nil {
		return
	}
	if err := s.holds.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("failed to evict hold cache", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// ConfirmInput carries the booking details frozen at confirmation.
type ConfirmInput struct {
	KWhRequested float64
	CreditsUsed  float64
	IsPriority   bool
}

// Confirm converts a live soft-lock into a Reservation and activates the
// session. The expiry check uses the injected clock, never the swept status:
// a lapsed hold is Expired even before the reconciler ran.
func (s *ReservationsService) Confirm(ctx context.Context, sessionID, userID string, input ConfirmInput) (*models.Reservation, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrNoRowMatched) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusReserved {
		return nil, ErrConflict
	}
	if session.ReservedBy == nil || *session.ReservedBy != userID {
		return nil, ErrForbidden
	}
	now := s.now().UTC()
	if session.ReservedUntil == nil || !now.Before(*session.ReservedUntil) {
		return nil, ErrExpired
	}

	activated, err := s.sessions.Activate(ctx, sessionID, userID)
	if errors.Is(err, repository.ErrNoRowMatched) {
		// Lost the race against a sweep or cancel.
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}

	price := session.PricePerKWh()
	total := round2(input.KWhRequested*price) - input.CreditsUsed
	if total < 0 {
		total = 0
	}
	reservation := &models.Reservation{
		SessionID:    sessionID,
		UserID:       userID,
		KWhRequested: input.KWhRequested,
		PricePerKWh:  price,
		TotalPrice:   round2(total),
		CreditsUsed:  input.CreditsUsed,
		IsPriority:   input.IsPriority,
		Status:       models.ReservationStatusConfirmed,
	}
	if err := s.reservations.Create(ctx, reservation); err != nil {
		return nil, err
	}

	s.evictHold(ctx, sessionID)
	s.sink.Publish(ctx, events.Event{
		Type:        events.TypeReservationConfirmed,
		SessionID:   sessionID,
		StationID:   activated.StationID,
		UserID:      userID,
		PricePerKWh: price,
		OccurredAt:  now,
	})

	s.logger.Info("reservation confirmed",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.Float64("price_per_kwh", price),
	)
	return reservation, nil
}

// Cancel releases a session. Reserved sessions may be cancelled by their
// holder; active sessions by the booking's holder or the station owner.
func (s *ReservationsService) Cancel(ctx context.Context, sessionID, userID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrNoRowMatched) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	switch session.Status {
	case models.SessionStatusReserved:
		if session.ReservedBy == nil || *session.ReservedBy != userID {
			return ErrForbidden
		}
	case models.SessionStatusActive:
		if err := s.authorizeActiveActor(ctx, session, userID); err != nil {
			return err
		}
	default:
		return ErrConflict
	}

	cancelled, err := s.sessions.Cancel(ctx, sessionID, session.Status)
	if errors.Is(err, repository.ErrNoRowMatched) {
		return ErrConflict
	}
	if err != nil {
		return err
	}

	if err := s.reservations.CancelBySession(ctx, sessionID); err != nil {
		s.logger.Warn("failed to cancel reservation rows", zap.String("session_id", sessionID), zap.Error(err))
	}
	s.evictHold(ctx, sessionID)
	s.sink.Publish(ctx, events.Event{
		Type:       events.TypeReservationCancelled,
		SessionID:  sessionID,
		StationID:  cancelled.StationID,
		UserID:     userID,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// authorizeActiveActor allows the booking holder or the station owner.
func (s *ReservationsService) authorizeActiveActor(ctx context.Context, session *models.Session, userID string) error {
	if reservation, err := s.reservations.OpenBySession(ctx, session.ID); err == nil && reservation.UserID == userID {
		return nil
	}
	station, err := s.stations.GetByID(ctx, session.StationID)
	if err == nil && station.OwnerID == userID {
		return nil
	}
	return ErrForbidden
}

// Complete finishes an active session (station owner only) and accumulates
// the station's daily revenue rollup.
func (s *ReservationsService) Complete(ctx context.Context, sessionID, actorID string) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrNoRowMatched) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusActive {
		return nil, ErrConflict
	}

	station, err := s.stations.GetByID(ctx, session.StationID)
	if err != nil {
		return nil, err
	}
	if station.OwnerID != actorID {
		return nil, ErrForbidden
	}

	now := s.now().UTC()
	completed, err := s.sessions.Complete(ctx, sessionID)
	if errors.Is(err, repository.ErrNoRowMatched) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}

	reservation, err := s.reservations.CompleteBySession(ctx, sessionID, now)
	if err != nil {
		s.logger.Warn("no reservation to finalize for completed session",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	} else if s.revenue != nil {
		delta := models.RevenueDelta{
			SessionsCount: 1,
			TotalKWh:      reservation.KWhRequested,
			TotalRevenue:  reservation.TotalPrice,
		}
		if err := s.revenue.Accumulate(ctx, completed.StationID, now, delta); err != nil {
			s.logger.Warn("failed to accumulate revenue",
				zap.String("station_id", completed.StationID),
				zap.Error(err),
			)
		}
	}

	s.sink.Publish(ctx, events.Event{
		Type:       events.TypeSessionCompleted,
		SessionID:  sessionID,
		StationID:  completed.StationID,
		UserID:     actorID,
		OccurredAt: now,
	})
	return completed, nil
}

// AvailableSessions lists open slots ordered by start time.
func (s *ReservationsService) AvailableSessions(ctx context.Context, limit int) ([]models.Session, error) {
	return s.sessions.ListAvailable(ctx, limit)
}

// ReservationsForUser returns a user's booking history.
func (s *ReservationsService) ReservationsForUser(ctx context.Context, userID string, limit int) ([]models.Reservation, error) {
	return s.reservations.ListByUser(ctx, userID, limit)
}

// StationRevenue returns recent daily rollups for station-owner reporting.
func (s *ReservationsService) StationRevenue(ctx context.Context, stationID string, limit int) ([]models.RevenuePeriod, error) {
	return s.revenue.RecentDaily(ctx, stationID, limit)
}

// WithClock overrides the time source. Used by tests and the reconciler to
// keep expiry arithmetic deterministic.
func (s *ReservationsService) WithClock(now func() time.Time) *ReservationsService {
	if now != nil {
		s.now = now
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
