package card

import (
	"context"

	"go.uber.org/zap"

	"habits/internal/domain"
)

// Increment adds one to the last day's value. It reports whether the change
// was stored; a failed save leaves the window untouched.
func (m *Manager) Increment(ctx context.Context) bool {
	return m.setLast(ctx, m.lastValue()+1)
}

// Decrement subtracts one from the last day's value, stopping at zero.
func (m *Manager) Decrement(ctx context.Context) bool {
	cur := m.lastValue()
	if cur == 0 {
		return false
	}
	return m.setLast(ctx, cur-1)
}

// Reset sets the last day's value to zero.
func (m *Manager) Reset(ctx context.Context) bool {
	return m.setLast(ctx, 0)
}

// Randomize replaces the last day's value with a random one.
func (m *Manager) Randomize(ctx context.Context) bool {
	return m.setLast(ctx, m.randomValue())
}

// RandomizeWindow redraws every day of the window independently. It returns
// the number of days that were stored.
func (m *Manager) RandomizeWindow(ctx context.Context) int {
	if m.readOnly {
		return 0
	}
	stored := 0
	for i := range m.window {
		if m.store(ctx, i, m.randomValue()) {
			stored++
		}
	}
	if stored > 0 {
		m.emit(Event{Kind: EventWindowRandomized, Day: m.lastDay, Value: m.CurrentValue(domain.ModeMonthly)})
	}
	return stored
}

func (m *Manager) lastValue() int {
	return m.window[len(m.window)-1].CurrentValue
}

func (m *Manager) setLast(ctx context.Context, n int) bool {
	if m.readOnly {
		return false
	}
	idx := len(m.window) - 1
	if !m.store(ctx, idx, n) {
		return false
	}
	m.emit(Event{Kind: EventValueChanged, Day: m.lastDay, Value: n})
	return true
}

func (m *Manager) store(ctx context.Context, idx, n int) bool {
	v := m.window[idx]
	v.CurrentValue = n
	if err := m.repo.SaveValue(ctx, &v); err != nil {
		m.log.Warn("save value failed",
			zap.String("habit_id", m.habit.ID.String()),
			zap.String("day", domain.DayKey(v.Day)),
			zap.Int("value", n),
			zap.Error(err),
		)
		return false
	}
	v.Day = domain.NormalizeDay(v.Day)
	m.window[idx] = v
	return true
}

// randomValue draws from [0, 2*target], using a target of one when the
// habit has none. Targets are capped at domain.MaxTarget.
func (m *Manager) randomValue() int {
	target := min(max(m.habit.Target, 1), domain.MaxTarget)
	return m.rnd.IntN(2*target + 1)
}
