// Package card maintains the per-habit rolling window of daily values and
// derives the daily, weekly and monthly figures shown on a habit card.
//
// A Manager is not safe for concurrent use; callers that share one across
// goroutines must serialise access.
package card

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"habits/internal/domain"
)

const (
	// WindowDays is the number of days held in memory, ending on the last day.
	WindowDays = 30
	// WeekDays is the span of the weekly aggregate.
	WeekDays = 7
	// PrefetchDays is how far beyond each end of the window values are
	// pre-loaded into the side cache.
	PrefetchDays = 14
)

// Manager holds the window of values for one habit, anchored at a movable
// last day.
type Manager struct {
	habit    domain.Habit
	repo     domain.ValueRepository
	log      *zap.Logger
	rnd      *rand.Rand
	readOnly bool
	prefetch bool

	lastDay time.Time
	window  []domain.Value
	cache   *dayCache

	listeners    []listenerEntry
	nextListener int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used to report degraded repository calls.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithRand sets the source used by the randomize mutations.
func WithRand(r *rand.Rand) Option {
	return func(m *Manager) {
		if r != nil {
			m.rnd = r
		}
	}
}

// WithReadOnly disables every mutation and lazy materialisation, so the
// manager never writes to the repository.
func WithReadOnly() Option {
	return func(m *Manager) { m.readOnly = true }
}

// WithoutPrefetch skips pre-loading the days around the window.
func WithoutPrefetch() Option {
	return func(m *Manager) { m.prefetch = false }
}

// WithListener subscribes l before the window is first loaded.
func WithListener(l Listener) Option {
	return func(m *Manager) { m.Subscribe(l) }
}

// WithCacheObserver reports every side cache lookup as a hit or a miss.
func WithCacheObserver(fn func(hit bool)) Option {
	return func(m *Manager) { m.cache.observe = fn }
}

// New loads the window of habit ending on lastDay. Repository failures are
// logged and leave the affected days empty.
func New(ctx context.Context, habit domain.Habit, repo domain.ValueRepository, lastDay time.Time, opts ...Option) *Manager {
	m := &Manager{
		habit:    habit,
		repo:     repo,
		log:      zap.NewNop(),
		rnd:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		prefetch: true,
		cache:    newDayCache(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.load(ctx, domain.NormalizeDay(lastDay))
	return m
}

// Habit returns the habit the manager aggregates.
func (m *Manager) Habit() domain.Habit { return m.habit }

// HabitID returns the id of the managed habit.
func (m *Manager) HabitID() uuid.UUID { return m.habit.ID }

// SetHabit replaces the habit metadata (name, target, kind...) without
// reloading values. The id must not change.
func (m *Manager) SetHabit(h domain.Habit) {
	if h.ID != m.habit.ID {
		return
	}
	m.habit = h
}

// ReadOnly reports whether mutations are disabled.
func (m *Manager) ReadOnly() bool { return m.readOnly }

// LastDay returns the day the window ends on.
func (m *Manager) LastDay() time.Time { return m.lastDay }

// FirstDay returns the day the window starts on.
func (m *Manager) FirstDay() time.Time { return domain.AddDays(m.lastDay, -(WindowDays - 1)) }

// Window returns a copy of the window, oldest day first.
func (m *Manager) Window() []domain.Value {
	out := make([]domain.Value, len(m.window))
	copy(out, m.window)
	return out
}

func (m *Manager) load(ctx context.Context, lastDay time.Time) {
	m.lastDay = lastDay
	m.cache.reset()
	first := m.FirstDay()

	stored, _ := m.fetchRange(ctx, first, lastDay)
	window := make([]domain.Value, WindowDays)
	for i := range window {
		day := domain.AddDays(first, i)
		if v, ok := stored[domain.DayKey(day)]; ok {
			window[i] = v
		} else {
			window[i] = m.placeholder(day)
		}
	}
	window[WindowDays-1] = m.materialize(ctx, window[WindowDays-1])
	m.window = window

	if m.prefetch {
		m.prefetchRange(ctx, domain.AddDays(first, -PrefetchDays), domain.AddDays(first, -1))
		m.prefetchRange(ctx, domain.AddDays(lastDay, 1), domain.AddDays(lastDay, PrefetchDays))
	}
}

// prefetchRange caches every day in [from, to], including empty ones, so a
// later shift into the range needs no query.
func (m *Manager) prefetchRange(ctx context.Context, from, to time.Time) {
	stored, ok := m.fetchRange(ctx, from, to)
	if !ok {
		return
	}
	for day := from; !day.After(to); day = domain.AddDays(day, 1) {
		if v, found := stored[domain.DayKey(day)]; found {
			m.cache.put(v)
		} else {
			m.cache.put(m.placeholder(day))
		}
	}
}

func (m *Manager) fetchRange(ctx context.Context, from, to time.Time) (map[string]domain.Value, bool) {
	vals, err := m.repo.ListValues(ctx, m.habit.ID, from, to)
	if err != nil {
		m.log.Warn("list values failed",
			zap.String("habit_id", m.habit.ID.String()),
			zap.String("from", domain.DayKey(from)),
			zap.String("to", domain.DayKey(to)),
			zap.Error(err),
		)
		return map[string]domain.Value{}, false
	}
	out := make(map[string]domain.Value, len(vals))
	for _, v := range vals {
		v.Day = domain.NormalizeDay(v.Day)
		out[domain.DayKey(v.Day)] = v
	}
	return out, true
}

// lookup returns the value for day from the side cache, falling back to the
// repository. Misses that fail are treated as an empty day.
func (m *Manager) lookup(ctx context.Context, day time.Time) domain.Value {
	if v, ok := m.cache.take(day); ok {
		return v
	}
	stored, _ := m.fetchRange(ctx, day, day)
	if v, ok := stored[domain.DayKey(day)]; ok {
		return v
	}
	return m.placeholder(day)
}

// materialize makes sure v has a stored record. Read-only managers and
// failed writes return v unchanged.
func (m *Manager) materialize(ctx context.Context, v domain.Value) domain.Value {
	if v.Persisted() || m.readOnly {
		return v
	}
	got, err := m.repo.GetOrCreateValue(ctx, m.habit.ID, v.Day)
	if err != nil || got == nil {
		m.log.Warn("materialize value failed",
			zap.String("habit_id", m.habit.ID.String()),
			zap.String("day", domain.DayKey(v.Day)),
			zap.Error(err),
		)
		return v
	}
	out := *got
	out.Day = domain.NormalizeDay(out.Day)
	return out
}

func (m *Manager) placeholder(day time.Time) domain.Value {
	return domain.Value{HabitID: m.habit.ID, Day: day}
}
