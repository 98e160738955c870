package card

import (
	"context"
	"fmt"
	"strings"
	"time"

	"habits/internal/domain"
)

// Direction is the way a window shift moves the last day.
type Direction int

const (
	// Backward moves the window one day into the past.
	Backward Direction = -1
	// Forward moves the window one day into the future.
	Forward Direction = 1
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// ParseDirection accepts forward/next/+1 and backward/previous/prev/-1.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "next", "+1", "1":
		return Forward, nil
	case "backward", "previous", "prev", "-1":
		return Backward, nil
	}
	return 0, fmt.Errorf("direction must be forward or backward, got %q", s)
}

// Shift moves the last day by one day in dir. The day leaving the window is
// kept in the side cache and the day entering it is read from the side
// cache before the repository, so the result matches a full reload of the
// new window.
func (m *Manager) Shift(ctx context.Context, dir Direction) {
	last := WindowDays - 1
	next := make([]domain.Value, WindowDays)

	switch dir {
	case Forward:
		m.cache.put(m.window[0])
		newLast := domain.AddDays(m.lastDay, 1)
		copy(next, m.window[1:])
		next[last] = m.materialize(ctx, m.lookup(ctx, newLast))
		m.lastDay = newLast
	case Backward:
		m.cache.put(m.window[last])
		newFirst := domain.AddDays(m.FirstDay(), -1)
		next[0] = m.lookup(ctx, newFirst)
		copy(next[1:], m.window[:last])
		next[last] = m.materialize(ctx, next[last])
		m.lastDay = domain.AddDays(m.lastDay, -1)
	default:
		return
	}

	m.window = next
	m.cache.prune(domain.AddDays(m.FirstDay(), -PrefetchDays), domain.AddDays(m.lastDay, PrefetchDays))
	m.emit(Event{Kind: EventShifted, Day: m.lastDay, Value: m.window[last].CurrentValue})
}

// JumpTo moves the window so it ends on day. Adjacent days are reached with
// a single Shift; anything further away reloads the whole window.
func (m *Manager) JumpTo(ctx context.Context, day time.Time) {
	day = domain.NormalizeDay(day)
	switch domain.DaysBetween(m.lastDay, day) {
	case 0:
		return
	case 1:
		m.Shift(ctx, Forward)
	case -1:
		m.Shift(ctx, Backward)
	default:
		m.Reload(ctx, day)
	}
}

// Reload discards the window and side cache and loads the window ending on
// day from the repository.
func (m *Manager) Reload(ctx context.Context, day time.Time) {
	m.load(ctx, domain.NormalizeDay(day))
	m.emit(Event{Kind: EventReloaded, Day: m.lastDay, Value: m.window[WindowDays-1].CurrentValue})
}
