package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/firasbarkia/energy-connect-hub/internal/events"
	"github.com/firasbarkia/energy-connect-hub/internal/models"
	"github.com/firasbarkia/energy-connect-hub/internal/repository"
)

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*models.Session)}
}

func (m *memSessionStore) put(s models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := s
	m.sessions[s.ID] = &copied
}

func (m *memSessionStore) GetByID(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNoRowMatched
	}
	copied := *s
	return &copied, nil
}

func (m *memSessionStore) ListAvailable(_ context.Context, limit int) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if s.Status == models.SessionStatusAvailable {
			out = append(out, *s)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memSessionStore) Reserve(_ context.Context, id, userID string, until time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != models.SessionStatusAvailable {
		return nil, repository.ErrNoRowMatched
	}
	s.Status = models.SessionStatusReserved
	holder := userID
	expiry := until
	s.ReservedBy = &holder
	s.ReservedUntil = &expiry
	copied := *s
	return &copied, nil
}

func (m *memSessionStore) Activate(_ context.Context, id, holderID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != models.SessionStatusReserved || s.ReservedBy == nil || *s.ReservedBy != holderID {
		return nil, repository.ErrNoRowMatched
	}
	s.Status = models.SessionStatusActive
	s.ReservedBy = nil
	s.ReservedUntil = nil
	copied := *s
	return &copied, nil
}

func (m *memSessionStore) Cancel(_ context.Context, id, expectedStatus string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != expectedStatus {
		return nil, repository.ErrNoRowMatched
	}
	s.Status = models.SessionStatusCancelled
	s.ReservedBy = nil
	s.ReservedUntil = nil
	copied := *s
	return &copied, nil
}

func (m *memSessionStore) Complete(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != models.SessionStatusActive {
		return nil, repository.ErrNoRowMatched
	}
	s.Status = models.SessionStatusCompleted
	copied := *s
	return &copied, nil
}

func (m *memSessionStore) ReleaseExpired(_ context.Context, now time.Time) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var released []models.Session
	for _, s := range m.sessions {
		if s.Status == models.SessionStatusReserved && s.ReservedUntil != nil && !s.ReservedUntil.After(now) {
			report := *s
			s.Status = models.SessionStatusAvailable
			s.ReservedBy = nil
			s.ReservedUntil = nil
			report.Status = models.SessionStatusAvailable
			released = append(released, report)
		}
	}
	return released, nil
}

func (m *memSessionStore) StampDynamicPrice(_ context.Context, id string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return repository.ErrNoRowMatched
	}
	p := price
	s.DynamicPricePerKWh = &p
	return nil
}

func (m *memSessionStore) CountByStatusSince(context.Context, string, time.Time) (int64, int64, error) {
	return 0, 0, nil
}

func (m *memSessionStore) HourlyAverages(context.Context, string, time.Time, int) ([24]float64, error) {
	return [24]float64{}, nil
}

type memReservationStore struct {
	mu           sync.Mutex
	reservations []*models.Reservation
}

func (m *memReservationStore) Create(_ context.Context, r *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = fmt.Sprintf("res-%d", len(m.reservations)+1)
	r.CreatedAt = time.Now()
	copied := *r
	m.reservations = append(m.reservations, &copied)
	return nil
}

func (m *memReservationStore) ListByUser(_ context.Context, userID string, _ int) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, r := range m.reservations {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memReservationStore) OpenBySession(_ context.Context, sessionID string) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.SessionID == sessionID && r.Status == models.ReservationStatusConfirmed {
			copied := *r
			return &copied, nil
		}
	}
	return nil, repository.ErrNoRowMatched
}

func (m *memReservationStore) CompleteBySession(_ context.Context, sessionID string, at time.Time) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.SessionID == sessionID && r.Status == models.ReservationStatusConfirmed {
			r.Status = models.ReservationStatusCompleted
			completed := at
			r.CompletedAt = &completed
			copied := *r
			return &copied, nil
		}
	}
	return nil, repository.ErrNoRowMatched
}

func (m *memReservationStore) CancelBySession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.SessionID == sessionID && (r.Status == models.ReservationStatusPending || r.Status == models.ReservationStatusConfirmed) {
			r.Status = models.ReservationStatusCancelled
		}
	}
	return nil
}

type memStationStore struct {
	mu       sync.Mutex
	stations map[string]*models.Station
}

func (m *memStationStore) GetByID(_ context.Context, id string) (*models.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stations[id]
	if !ok {
		return nil, repository.ErrNoRowMatched
	}
	copied := *s
	return &copied, nil
}

func (m *memStationStore) Upsert(_ context.Context, station *models.Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *station
	m.stations[station.ID] = &copied
	return nil
}

type revenueCall struct {
	stationID string
	day       time.Time
	delta     models.RevenueDelta
}

type memRevenueStore struct {
	mu    sync.Mutex
	calls []revenueCall
}

func (m *memRevenueStore) Accumulate(_ context.Context, stationID string, day time.Time, delta models.RevenueDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, revenueCall{stationID: stationID, day: day, delta: delta})
	return nil
}

func (m *memRevenueStore) RecentDaily(context.Context, string, int) ([]models.RevenuePeriod, error) {
	return nil, nil
}

type fixedPriceSource struct {
	price float64
}

func (f *fixedPriceSource) DynamicPrice(context.Context, *models.Station, time.Time) float64 {
	return f.price
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Publish(_ context.Context, event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc          *ReservationsService
	sessions     *memSessionStore
	reservations *memReservationStore
	stations     *memStationStore
	revenue      *memRevenueStore
	sink         *recordingSink
	clock        *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sessions := newMemSessionStore()
	sessions.put(models.Session{
		ID:              "sess-1",
		StationID:       "station-1",
		Status:          models.SessionStatusAvailable,
		AvailableKW:     11,
		BasePricePerKWh: 0.35,
	})

	stations := &memStationStore{stations: map[string]*models.Station{
		"station-1": {
			ID:              "station-1",
			OwnerID:         "owner-1",
			BasePricePerKWh: 0.35,
			AutoPricingOn:   true,
		},
	}}

	reservations := &memReservationStore{}
	revenue := &memRevenueStore{}
	sink := &recordingSink{}
	clock := &testClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}

	svc := NewReservationsService(
		sessions,
		reservations,
		stations,
		revenue,
		&fixedPriceSource{price: 0.46},
		nil,
		sink,
		zap.NewNop(),
		5*time.Minute,
	).WithClock(clock.Now)

	return &fixture{
		svc:          svc,
		sessions:     sessions,
		reservations: reservations,
		stations:     stations,
		revenue:      revenue,
		sink:         sink,
		clock:        clock,
	}
}

func TestReserveTakesSoftLockAndStampsPrice(t *testing.T) {
	f := newFixture(t)

	session, err := f.svc.Reserve(context.Background(), "sess-1", "user-a")
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if session.Status != models.SessionStatusReserved {
		t.Fatalf("expected reserved, got %s", session.Status)
	}
	if session.ReservedBy == nil || *session.ReservedBy != "user-a" {
		t.Fatal("holder not recorded")
	}
	wantUntil := f.clock.Now().UTC().Add(5 * time.Minute)
	if session.ReservedUntil == nil || !session.ReservedUntil.Equal(wantUntil) {
		t.Fatalf("expected reserved_until %v, got %v", wantUntil, session.ReservedUntil)
	}
	if session.DynamicPricePerKWh == nil || *session.DynamicPricePerKWh != 0.46 {
		t.Fatalf("expected dynamic price stamped, got %v", session.DynamicPricePerKWh)
	}

	types := f.sink.types()
	if len(types) != 1 || types[0] != events.TypeReservationHeld {
		t.Fatalf("expected held event, got %v", types)
	}
}

func TestReserveUnknownSessionIsNotFound(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "missing", "user-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReserveAlreadyHeldIsConflict(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}
	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-b"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestReserveConcurrentExactlyOneWinner(t *testing.T) {
	f := newFixture(t)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Reserve(context.Background(), "sess-1", fmt.Sprintf("user-%d", i))
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != callers-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d/%d", callers-1, wins, conflicts)
	}
}

func TestHolderAndExpiryAreSetTogether(t *testing.T) {
	f := newFixture(t)

	check := func(stage string) {
		session, err := f.sessions.GetByID(context.Background(), "sess-1")
		if err != nil {
			t.Fatalf("%s: %v", stage, err)
		}
		if (session.ReservedBy == nil) != (session.ReservedUntil == nil) {
			t.Fatalf("%s: reserved_by and reserved_until out of sync: %v / %v",
				stage, session.ReservedBy, session.ReservedUntil)
		}
	}

	check("available")
	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	check("reserved")
	if _, err := f.svc.Confirm(context.Background(), "sess-1", "user-a", ConfirmInput{KWhRequested: 20}); err != nil {
		t.Fatal(err)
	}
	check("active")
	if _, err := f.svc.Complete(context.Background(), "sess-1", "owner-1"); err != nil {
		t.Fatal(err)
	}
	check("completed")
}

func TestConfirmFreezesPriceAndActivates(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	reservation, err := f.svc.Confirm(context.Background(), "sess-1", "user-a", ConfirmInput{
		KWhRequested: 20,
		CreditsUsed:  2,
		IsPriority:   true,
	})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if reservation.PricePerKWh != 0.46 {
		t.Fatalf("expected frozen price 0.46, got %v", reservation.PricePerKWh)
	}
	// 20 * 0.46 = 9.20, minus 2 credits.
	if reservation.TotalPrice != 7.2 {
		t.Fatalf("expected total 7.2, got %v", reservation.TotalPrice)
	}
	if reservation.Status != models.ReservationStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", reservation.Status)
	}
	if !reservation.IsPriority {
		t.Fatal("priority flag lost")
	}

	session, err := f.sessions.GetByID(context.Background(), "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if session.Status != models.SessionStatusActive {
		t.Fatalf("expected active session, got %s", session.Status)
	}
}

func TestConfirmByNonHolderIsForbidden(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Confirm(context.Background(), "sess-1", "user-b", ConfirmInput{KWhRequested: 10}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestConfirmAfterTTLIsExpiredEvenBeforeSweep(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(5*time.Minute + time.Second)

	// No reconciler has run: the row still says reserved. Confirm must
	// check the clock itself.
	if _, err := f.svc.Confirm(context.Background(), "sess-1", "user-a", ConfirmInput{KWhRequested: 10}); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestExpiredHoldCanBeReclaimedAfterSweep(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(5*time.Minute + time.Second)

	if _, err := f.svc.Confirm(context.Background(), "sess-1", "user-a", ConfirmInput{KWhRequested: 10}); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	// The reconciler sweeps the lapsed hold, then another user claims it.
	if _, err := f.sessions.ReleaseExpired(context.Background(), f.clock.Now()); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Second)

	session, err := f.svc.Reserve(context.Background(), "sess-1", "user-b")
	if err != nil {
		t.Fatalf("reserve after sweep failed: %v", err)
	}
	wantUntil := f.clock.Now().UTC().Add(5 * time.Minute)
	if session.ReservedUntil == nil || !session.ReservedUntil.Equal(wantUntil) {
		t.Fatalf("expected fresh reserved_until %v, got %v", wantUntil, session.ReservedUntil)
	}
	if session.ReservedBy == nil || *session.ReservedBy != "user-b" {
		t.Fatal("expected user-b to hold the session")
	}
}

func TestCancelReservedByHolder(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Cancel(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	session, err := f.sessions.GetByID(context.Background(), "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if session.Status != models.SessionStatusCancelled {
		t.Fatalf("expected cancelled, got %s", session.Status)
	}
	if session.ReservedBy != nil || session.ReservedUntil != nil {
		t.Fatal("holder fields must be cleared on cancel")
	}
}

func TestCancelReservedByStrangerIsForbidden(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Cancel(context.Background(), "sess-1", "user-b"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCancelActiveByStationOwner(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Confirm(context.Background(), "sess-1", "user-a", ConfirmInput{KWhRequested: 10}); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Cancel(context.Background(), "sess-1", "owner-1"); err != nil {
		t.Fatalf("owner cancel failed: %v", err)
	}
}

func TestCancelCompletedIsConflict(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Confirm(context.Background(), "sess-1", "user-a", ConfirmInput{KWhRequested: 10}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Complete(context.Background(), "sess-1", "owner-1"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Cancel(context.Background(), "sess-1", "user-a"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCompleteAccumulatesRevenue(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Confirm(context.Background(), "sess-1", "user-a", ConfirmInput{KWhRequested: 20}); err != nil {
		t.Fatal(err)
	}
	session, err := f.svc.Complete(context.Background(), "sess-1", "owner-1")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if session.Status != models.SessionStatusCompleted {
		t.Fatalf("expected completed, got %s", session.Status)
	}

	f.revenue.mu.Lock()
	defer f.revenue.mu.Unlock()
	if len(f.revenue.calls) != 1 {
		t.Fatalf("expected 1 revenue accumulation, got %d", len(f.revenue.calls))
	}
	call := f.revenue.calls[0]
	if call.stationID != "station-1" {
		t.Fatalf("revenue recorded against %s", call.stationID)
	}
	if call.delta.SessionsCount != 1 || call.delta.TotalKWh != 20 || call.delta.TotalRevenue != 9.2 {
		t.Fatalf("unexpected delta %+v", call.delta)
	}
}

func TestCompleteByNonOwnerIsForbidden(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Confirm(context.Background(), "sess-1", "user-a", ConfirmInput{KWhRequested: 10}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Complete(context.Background(), "sess-1", "user-a"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestLifecycleEmitsEvents(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reserve(context.Background(), "sess-1", "user-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Confirm(context.Background(), "sess-1", "user-a", ConfirmInput{KWhRequested: 10}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Complete(context.Background(), "sess-1", "owner-1"); err != nil {
		t.Fatal(err)
	}

	want := []string{
		events.TypeReservationHeld,
		events.TypeReservationConfirmed,
		events.TypeSessionCompleted,
	}
	got := f.sink.types()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
