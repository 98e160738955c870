package card

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habits/internal/domain"
)

type fakeValueRepo struct {
	values map[string]domain.Value
	nextID int64

	listCalls, createCalls, saveCalls int
	listErr, createErr, saveErr       error
}

func newFakeValueRepo() *fakeValueRepo {
	return &fakeValueRepo{values: make(map[string]domain.Value)}
}

func (r *fakeValueRepo) ListValues(_ context.Context, _ uuid.UUID, from, to time.Time) ([]domain.Value, error) {
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	lo, hi := domain.DayKey(from), domain.DayKey(to)
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		if k >= lo && k <= hi {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]domain.Value, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.values[k])
	}
	return out, nil
}

func (r *fakeValueRepo) GetOrCreateValue(_ context.Context, habitID uuid.UUID, day time.Time) (*domain.Value, error) {
	r.createCalls++
	if r.createErr != nil {
		return nil, r.createErr
	}
	key := domain.DayKey(day)
	if v, ok := r.values[key]; ok {
		return &v, nil
	}
	r.nextID++
	v := domain.Value{ID: r.nextID, HabitID: habitID, Day: domain.NormalizeDay(day)}
	r.values[key] = v
	return &v, nil
}

func (r *fakeValueRepo) SaveValue(_ context.Context, v *domain.Value) error {
	r.saveCalls++
	if r.saveErr != nil {
		return r.saveErr
	}
	key := domain.DayKey(v.Day)
	if existing, ok := r.values[key]; ok {
		v.ID = existing.ID
	} else {
		r.nextID++
		v.ID = r.nextID
	}
	r.values[key] = *v
	return nil
}

// seed stores n consecutive days ending on last, with value fn(i) for the
// i-th day. Days where fn returns a negative number are left empty.
func (r *fakeValueRepo) seed(habitID uuid.UUID, last time.Time, n int, fn func(i int) int) {
	first := domain.AddDays(last, -(n - 1))
	for i := 0; i < n; i++ {
		val := fn(i)
		if val < 0 {
			continue
		}
		r.nextID++
		day := domain.AddDays(first, i)
		r.values[domain.DayKey(day)] = domain.Value{ID: r.nextID, HabitID: habitID, Day: day, CurrentValue: val}
	}
}

var baseDay = time.Date(2026, 5, 20, 0, 0, 0, 0, time.Local)

func testHabit(kind domain.Kind, target int) domain.Habit {
	return domain.Habit{ID: uuid.New(), Name: "read", Unit: "pages", Target: target, Kind: kind}
}

func pairs(m *Manager) []string {
	out := make([]string, 0, WindowDays)
	for _, v := range m.Window() {
		out = append(out, fmt.Sprintf("%s=%d", domain.DayKey(v.Day), v.CurrentValue))
	}
	return out
}

func sparse(i int) int {
	if i%4 == 3 {
		return -1
	}
	return (i * 7) % 11
}

func TestNew_LoadsWindowEndingOnLastDay(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 5)
	repo := newFakeValueRepo()
	repo.seed(habit.ID, baseDay, 10, func(i int) int { return i + 1 })

	m := New(ctx, habit, repo, baseDay.Add(15*time.Hour))

	w := m.Window()
	require.Len(t, w, WindowDays)
	assert.True(t, m.LastDay().Equal(baseDay))
	assert.Equal(t, domain.DayKey(domain.AddDays(baseDay, -29)), domain.DayKey(m.FirstDay()))
	for i, v := range w {
		assert.Equal(t, domain.DayKey(domain.AddDays(m.FirstDay(), i)), domain.DayKey(v.Day))
	}
	assert.Equal(t, 10, w[WindowDays-1].CurrentValue)
	assert.Equal(t, 0, w[0].CurrentValue)
	assert.True(t, w[WindowDays-1].Persisted())
}

func TestNew_MaterializesLastDayOnce(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 5)
	repo := newFakeValueRepo()

	m := New(ctx, habit, repo, baseDay)
	require.True(t, m.Window()[WindowDays-1].Persisted())
	require.Len(t, repo.values, 1)

	for i := 0; i < 3; i++ {
		again := New(ctx, habit, repo, baseDay)
		assert.Equal(t, pairs(m), pairs(again))
	}
	assert.Len(t, repo.values, 1, "reads must not create duplicate records")
	for _, v := range m.Window()[:WindowDays-1] {
		assert.False(t, v.Persisted())
		assert.Equal(t, 0, v.CurrentValue)
	}
}

func TestShift_ForwardThenBackwardRestoresWindow(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 5)
	repo := newFakeValueRepo()
	repo.seed(habit.ID, domain.AddDays(baseDay, 60), 150, sparse)

	for _, steps := range []int{1, 3, 14, 15, 40} {
		t.Run(fmt.Sprintf("%d steps", steps), func(t *testing.T) {
			m := New(ctx, habit, repo, baseDay)
			initial := pairs(m)
			for i := 0; i < steps; i++ {
				m.Shift(ctx, Forward)
			}
			for i := 0; i < steps; i++ {
				m.Shift(ctx, Backward)
			}
			assert.Equal(t, initial, pairs(m))
			assert.True(t, m.LastDay().Equal(baseDay))
		})
	}
}

func TestShift_MatchesFullReload(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 5)
	repo := newFakeValueRepo()
	repo.seed(habit.ID, domain.AddDays(baseDay, 60), 150, sparse)

	for _, dir := range []Direction{Forward, Backward} {
		t.Run(dir.String(), func(t *testing.T) {
			m := New(ctx, habit, repo, baseDay)
			m.Shift(ctx, dir)

			target := domain.AddDays(baseDay, int(dir))
			reloaded := New(ctx, habit, repo, target)
			assert.Equal(t, pairs(reloaded), pairs(m))

			jumped := New(ctx, habit, repo, baseDay)
			jumped.JumpTo(ctx, target)
			assert.Equal(t, pairs(reloaded), pairs(jumped))
		})
	}

	t.Run("after a long walk", func(t *testing.T) {
		m := New(ctx, habit, repo, baseDay)
		for i := 0; i < 25; i++ {
			m.Shift(ctx, Forward)
		}
		for i := 0; i < 9; i++ {
			m.Shift(ctx, Backward)
		}
		reloaded := New(ctx, habit, repo, domain.AddDays(baseDay, 16))
		assert.Equal(t, pairs(reloaded), pairs(m))
	})
}

func TestShift_ReadsSideCacheBeforeRepository(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 5)
	repo := newFakeValueRepo()
	repo.seed(habit.ID, domain.AddDays(baseDay, 30), 90, sparse)

	var hits, misses int
	m := New(ctx, habit, repo, baseDay, WithCacheObserver(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}))
	require.Equal(t, 3, repo.listCalls, "window plus two prefetch ranges")

	for i := 0; i < PrefetchDays; i++ {
		m.Shift(ctx, Forward)
	}
	assert.Equal(t, 3, repo.listCalls)
	assert.Equal(t, PrefetchDays, hits)

	m.Shift(ctx, Forward)
	assert.Equal(t, 4, repo.listCalls)
	assert.Equal(t, 1, misses)

	for i := 0; i < 10; i++ {
		m.Shift(ctx, Backward)
	}
	assert.Equal(t, 4, repo.listCalls, "days that left the window are cached")
	assert.LessOrEqual(t, m.cache.len(), 2*PrefetchDays)
}

func TestShift_WithoutPrefetchQueriesEachDay(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 5)
	repo := newFakeValueRepo()

	m := New(ctx, habit, repo, baseDay, WithoutPrefetch())
	require.Equal(t, 1, repo.listCalls)
	m.Shift(ctx, Forward)
	assert.Equal(t, 2, repo.listCalls)
	m.Shift(ctx, Backward)
	assert.Equal(t, 2, repo.listCalls, "the day that left the window is cached")
	m.Shift(ctx, Backward)
	assert.Equal(t, 3, repo.listCalls)
}

func TestJumpTo(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 5)
	repo := newFakeValueRepo()
	repo.seed(habit.ID, baseDay, 120, sparse)

	m := New(ctx, habit, repo, baseDay)
	calls := repo.listCalls

	m.JumpTo(ctx, baseDay.Add(20*time.Hour))
	assert.Equal(t, calls, repo.listCalls, "same day is a no-op")

	m.JumpTo(ctx, domain.AddDays(baseDay, -1))
	assert.Equal(t, calls, repo.listCalls, "adjacent day is served from the side cache")

	far := domain.AddDays(baseDay, -45)
	m.JumpTo(ctx, far)
	assert.Equal(t, calls+3, repo.listCalls, "distant day reloads the window")
	assert.Equal(t, pairs(New(ctx, habit, repo, far)), pairs(m))
}

func TestCurrentValue_Aggregates(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 2)
	repo := newFakeValueRepo()
	repo.seed(habit.ID, baseDay, 45, sparse)

	m := New(ctx, habit, repo, baseDay)
	for step := 0; step < 10; step++ {
		w := m.Window()
		weekly, monthly := 0, 0
		for i, v := range w {
			monthly += v.CurrentValue
			if i >= WindowDays-WeekDays {
				weekly += v.CurrentValue
			}
		}
		assert.Equal(t, w[WindowDays-1].CurrentValue, m.CurrentValue(domain.ModeDaily))
		assert.Equal(t, weekly, m.CurrentValue(domain.ModeWeekly))
		assert.Equal(t, monthly, m.CurrentValue(domain.ModeMonthly))
		m.Shift(ctx, Backward)
	}

	assert.Equal(t, 2, m.CurrentTarget(domain.ModeDaily))
	assert.Equal(t, 14, m.CurrentTarget(domain.ModeWeekly))
	assert.Equal(t, 60, m.CurrentTarget(domain.ModeMonthly))
}

func TestIsCompleted_Polarity(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		kind  domain.Kind
		value int
		want  bool
	}{
		{"good reaches target", domain.KindGood, 5, true},
		{"good below target", domain.KindGood, 4, false},
		{"bad under limit", domain.KindBad, 4, true},
		{"bad at limit", domain.KindBad, 5, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			habit := testHabit(tc.kind, 5)
			repo := newFakeValueRepo()
			repo.seed(habit.ID, baseDay, 1, func(int) int { return tc.value })

			m := New(ctx, habit, repo, baseDay)
			assert.Equal(t, tc.want, m.IsCompleted(domain.ModeDaily))
		})
	}
}

func TestProgress_ZeroTarget(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 0)
	repo := newFakeValueRepo()
	repo.seed(habit.ID, baseDay, 30, func(i int) int { return i })

	m := New(ctx, habit, repo, baseDay)
	for _, mode := range domain.Modes {
		assert.Zero(t, m.Progress(mode))
	}

	habit.Target = 4
	m.SetHabit(habit)
	assert.InDelta(t, 29.0/4.0, m.Progress(domain.ModeDaily), 0.0001)
}

func TestMutations(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 3)
	repo := newFakeValueRepo()

	var events []Event
	m := New(ctx, habit, repo, baseDay, WithListener(func(e Event) { events = append(events, e) }))

	assert.True(t, m.Increment(ctx))
	assert.True(t, m.Increment(ctx))
	assert.Equal(t, 2, m.CurrentValue(domain.ModeDaily))
	assert.Equal(t, 2, repo.values[domain.DayKey(baseDay)].CurrentValue)

	assert.True(t, m.Decrement(ctx))
	assert.Equal(t, 1, m.CurrentValue(domain.ModeDaily))

	assert.True(t, m.Reset(ctx))
	assert.False(t, m.Decrement(ctx), "decrement stops at zero")
	assert.Equal(t, 0, repo.values[domain.DayKey(baseDay)].CurrentValue)
	assert.Len(t, repo.values, 1)

	require.Len(t, events, 4)
	for _, e := range events {
		assert.Equal(t, EventValueChanged, e.Kind)
		assert.Equal(t, habit.ID, e.HabitID)
		assert.True(t, e.Day.Equal(baseDay))
	}
}

func TestRandomize(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindBad, 4)
	repo := newFakeValueRepo()

	m := New(ctx, habit, repo, baseDay, WithRand(rand.New(rand.NewPCG(1, 2))))
	require.True(t, m.Randomize(ctx))
	v := m.CurrentValue(domain.ModeDaily)
	assert.GreaterOrEqual(t, v, 0)
	assert.LessOrEqual(t, v, 8)

	assert.Equal(t, WindowDays, m.RandomizeWindow(ctx))
	assert.Len(t, repo.values, WindowDays)
	for _, val := range m.Window() {
		assert.True(t, val.Persisted())
		assert.GreaterOrEqual(t, val.CurrentValue, 0)
		assert.LessOrEqual(t, val.CurrentValue, 8)
		assert.Equal(t, val.CurrentValue, repo.values[domain.DayKey(val.Day)].CurrentValue)
	}
	assert.Equal(t, pairs(New(ctx, habit, repo, baseDay)), pairs(m))
}

func TestOversizedTargetIsCapped(t *testing.T) {
	ctx := context.Background()
	m := New(ctx, testHabit(domain.KindGood, math.MaxInt), newFakeValueRepo(), baseDay,
		WithRand(rand.New(rand.NewPCG(3, 4))))

	assert.Equal(t, domain.MaxTarget*WeekDays, m.CurrentTarget(domain.ModeWeekly))
	assert.Equal(t, domain.MaxTarget*WindowDays, m.CurrentTarget(domain.ModeMonthly))
	assert.False(t, m.IsCompleted(domain.ModeMonthly))

	require.NotPanics(t, func() { m.Randomize(ctx) })
	v := m.CurrentValue(domain.ModeDaily)
	assert.GreaterOrEqual(t, v, 0)
	assert.LessOrEqual(t, v, 2*domain.MaxTarget)
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 3)
	repo := newFakeValueRepo()
	repo.seed(habit.ID, domain.AddDays(baseDay, -1), 5, func(i int) int { return i })

	m := New(ctx, habit, repo, baseDay, WithReadOnly())
	assert.True(t, m.ReadOnly())
	assert.False(t, m.Increment(ctx))
	assert.False(t, m.Reset(ctx))
	assert.False(t, m.Randomize(ctx))
	assert.Zero(t, m.RandomizeWindow(ctx))
	m.Shift(ctx, Forward)
	m.Shift(ctx, Backward)

	assert.Zero(t, repo.createCalls)
	assert.Zero(t, repo.saveCalls)
	assert.Equal(t, 4, m.Window()[WindowDays-2].CurrentValue)
}

func TestRepositoryFailuresDegradeToEmptyDays(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 3)
	repo := newFakeValueRepo()
	repo.seed(habit.ID, baseDay, 30, func(int) int { return 2 })
	repo.listErr = errors.New("disk on fire")
	repo.createErr = errors.New("disk on fire")

	m := New(ctx, habit, repo, baseDay)
	assert.Zero(t, m.CurrentValue(domain.ModeMonthly))
	assert.False(t, m.Window()[WindowDays-1].Persisted())

	m.Shift(ctx, Forward)
	assert.Zero(t, m.CurrentValue(domain.ModeMonthly))

	repo.listErr, repo.createErr = nil, nil
	m.Reload(ctx, baseDay)
	assert.Equal(t, 60, m.CurrentValue(domain.ModeMonthly))

	repo.saveErr = errors.New("read-only filesystem")
	assert.False(t, m.Increment(ctx))
	assert.Equal(t, 2, m.CurrentValue(domain.ModeDaily))
	assert.Equal(t, 0, m.RandomizeWindow(ctx))
	assert.Equal(t, 60, m.CurrentValue(domain.ModeMonthly))
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 3)
	repo := newFakeValueRepo()
	m := New(ctx, habit, repo, baseDay)

	var kinds []EventKind
	unsubscribe := m.Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })

	m.Shift(ctx, Forward)
	m.JumpTo(ctx, domain.AddDays(baseDay, 40))
	m.Increment(ctx)
	m.RandomizeWindow(ctx)
	unsubscribe()
	m.Increment(ctx)

	assert.Equal(t, []EventKind{EventShifted, EventReloaded, EventValueChanged, EventWindowRandomized}, kinds)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("next")
	require.NoError(t, err)
	assert.Equal(t, Forward, d)
	d, err = ParseDirection(" Backward ")
	require.NoError(t, err)
	assert.Equal(t, Backward, d)
	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 1)
	repo := newFakeValueRepo()
	repo.seed(habit.ID, baseDay, 30, func(int) int { return 1 })

	s := New(ctx, habit, repo, baseDay).Snapshot()
	assert.Equal(t, domain.DayKey(baseDay), s.LastDay)
	assert.Len(t, s.Window, WindowDays)
	assert.Equal(t, ModeSummary{Mode: domain.ModeWeekly, Value: 7, Target: 7, Completed: true, Progress: 1}, s.Mode(domain.ModeWeekly))
	assert.Equal(t, 30, s.Mode(domain.ModeMonthly).Value)
	assert.True(t, s.Window[0].Completed)
}
