package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"habits/internal/card"
	"habits/internal/domain"
	"habits/internal/metrics"
)

// CardConfig holds the presentation defaults of habit cards.
type CardConfig struct {
	FirstWeekday time.Weekday
	Prefetch     bool
}

// CardService keeps one card.Manager per habit and serialises access to it.
type CardService struct {
	habits domain.HabitRepository
	values domain.ValueRepository
	log    *zap.Logger
	cfg    CardConfig
	now    func() time.Time

	mu        sync.Mutex
	cards     map[uuid.UUID]*cardEntry
	listeners []card.Listener
}

type cardEntry struct {
	mu sync.Mutex
	m  *card.Manager
	// today is the day the card last followed as the current day.
	today time.Time
	// attached counts the service listeners subscribed to m.
	attached int
}

// NewCardService creates a CardService. log may be nil.
func NewCardService(habits domain.HabitRepository, values domain.ValueRepository, log *zap.Logger, cfg CardConfig) *CardService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CardService{
		habits: habits,
		values: values,
		log:    log,
		cfg:    cfg,
		now:    time.Now,
		cards:  make(map[uuid.UUID]*cardEntry),
	}
}

// SetClock overrides the source of "today" for newly opened cards.
func (s *CardService) SetClock(now func() time.Time) {
	s.now = now
}

// FirstWeekday is the configured first grid column.
func (s *CardService) FirstWeekday() time.Weekday {
	return s.cfg.FirstWeekday
}

// AddListener attaches l to every card. Open cards pick it up on their
// next use, before any event is emitted.
func (s *CardService) AddListener(l card.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Forget drops the cached card of a habit.
func (s *CardService) Forget(habitID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cards, habitID)
	metrics.CardsCached.Set(float64(len(s.cards)))
}

// Card returns the current snapshot of a habit's card.
func (s *CardService) Card(ctx context.Context, userID int64, habitID uuid.UUID) (card.Snapshot, error) {
	var snap card.Snapshot
	err := s.with(ctx, userID, habitID, func(m *card.Manager) {
		snap = m.Snapshot()
	})
	return snap, err
}

// Shift moves the card window one day in dir.
func (s *CardService) Shift(ctx context.Context, userID int64, habitID uuid.UUID, dir card.Direction) (card.Snapshot, error) {
	var snap card.Snapshot
	err := s.with(ctx, userID, habitID, func(m *card.Manager) {
		m.Shift(ctx, dir)
		snap = m.Snapshot()
	})
	return snap, err
}

// JumpTo re-anchors the card window at day.
func (s *CardService) JumpTo(ctx context.Context, userID int64, habitID uuid.UUID, day time.Time) (card.Snapshot, error) {
	var snap card.Snapshot
	err := s.with(ctx, userID, habitID, func(m *card.Manager) {
		m.JumpTo(ctx, day)
		snap = m.Snapshot()
	})
	return snap, err
}

// Increment adds one to the last day's value.
func (s *CardService) Increment(ctx context.Context, userID int64, habitID uuid.UUID) (card.Snapshot, bool, error) {
	return s.mutate(ctx, userID, habitID, (*card.Manager).Increment)
}

// Decrement subtracts one from the last day's value, stopping at zero.
func (s *CardService) Decrement(ctx context.Context, userID int64, habitID uuid.UUID) (card.Snapshot, bool, error) {
	return s.mutate(ctx, userID, habitID, (*card.Manager).Decrement)
}

// Reset sets the last day's value to zero.
func (s *CardService) Reset(ctx context.Context, userID int64, habitID uuid.UUID) (card.Snapshot, bool, error) {
	return s.mutate(ctx, userID, habitID, (*card.Manager).Reset)
}

// Randomize draws a random value for the last day.
func (s *CardService) Randomize(ctx context.Context, userID int64, habitID uuid.UUID) (card.Snapshot, bool, error) {
	return s.mutate(ctx, userID, habitID, (*card.Manager).Randomize)
}

// RandomizeWindow draws a random value for every day of the window and
// reports how many were stored.
func (s *CardService) RandomizeWindow(ctx context.Context, userID int64, habitID uuid.UUID) (card.Snapshot, int, error) {
	var (
		snap card.Snapshot
		n    int
	)
	err := s.with(ctx, userID, habitID, func(m *card.Manager) {
		n = m.RandomizeWindow(ctx)
		snap = m.Snapshot()
	})
	return snap, n, err
}

// Grid lays the card window out with firstWeekday as the first column.
func (s *CardService) Grid(ctx context.Context, userID int64, habitID uuid.UUID, firstWeekday time.Weekday) (card.Grid, error) {
	var g card.Grid
	err := s.with(ctx, userID, habitID, func(m *card.Manager) {
		g = m.Grid(firstWeekday)
	})
	return g, err
}

func (s *CardService) mutate(ctx context.Context, userID int64, habitID uuid.UUID, op func(*card.Manager, context.Context) bool) (card.Snapshot, bool, error) {
	var (
		snap    card.Snapshot
		changed bool
	)
	err := s.with(ctx, userID, habitID, func(m *card.Manager) {
		changed = op(m, ctx)
		snap = m.Snapshot()
	})
	return snap, changed, err
}

// with resolves the habit, opens its card if needed and runs fn while
// holding the card lock.
func (s *CardService) with(ctx context.Context, userID int64, habitID uuid.UUID, fn func(*card.Manager)) error {
	h, err := s.habits.GetHabit(ctx, habitID)
	if err != nil {
		return fmt.Errorf("get habit: %w", err)
	}
	if h == nil || h.UserID != userID {
		return ErrHabitNotFound
	}

	e := s.entry(habitID)
	e.mu.Lock()
	defer e.mu.Unlock()

	today := domain.NormalizeDay(s.now())
	if e.m == nil {
		e.m = s.open(ctx, *h, today)
		e.today = today
	} else {
		e.m.SetHabit(*h)
		s.rollOver(ctx, e, today)
	}
	s.attach(e)
	fn(e.m)
	return nil
}

// rollOver moves a card that sits on the previous current day to today.
// Cards the user has moved elsewhere stay where they are.
func (s *CardService) rollOver(ctx context.Context, e *cardEntry, today time.Time) {
	if !today.After(e.today) {
		return
	}
	if domain.DayKey(e.m.LastDay()) == domain.DayKey(e.today) {
		s.log.Debug("card follows new day",
			zap.String("habit_id", e.m.HabitID().String()),
			zap.String("day", domain.DayKey(today)),
		)
		e.m.JumpTo(ctx, today)
	}
	e.today = today
}

// attach subscribes the service listeners e has not seen yet. Callers hold
// e.mu.
func (s *CardService) attach(e *cardEntry) {
	s.mu.Lock()
	pending := append([]card.Listener(nil), s.listeners[e.attached:]...)
	e.attached = len(s.listeners)
	s.mu.Unlock()

	for _, l := range pending {
		e.m.Subscribe(l)
	}
}

func (s *CardService) entry(habitID uuid.UUID) *cardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cards[habitID]
	if !ok {
		e = &cardEntry{}
		s.cards[habitID] = e
		metrics.CardsCached.Set(float64(len(s.cards)))
	}
	return e
}

func (s *CardService) open(ctx context.Context, h domain.Habit, today time.Time) *card.Manager {
	opts := []card.Option{
		card.WithLogger(s.log.With(zap.String("habit_id", h.ID.String()))),
		card.WithCacheObserver(metrics.RecordCacheLookup),
		card.WithListener(func(e card.Event) { metrics.IncrementCardEvent(string(e.Kind)) }),
	}
	if !s.cfg.Prefetch {
		opts = append(opts, card.WithoutPrefetch())
	}
	s.log.Debug("opening card", zap.String("habit_id", h.ID.String()))
	return card.New(ctx, h, s.values, today, opts...)
}
