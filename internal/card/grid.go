package card

import (
	"fmt"
	"strings"
	"time"

	"habits/internal/domain"
)

// CellKind distinguishes rendered days from blank grid cells.
type CellKind string

const (
	// CellPadding precedes the first day of the window.
	CellPadding CellKind = "padding"
	// CellDay holds a day of the window.
	CellDay CellKind = "day"
	// CellFuture follows the last day in the final row.
	CellFuture CellKind = "future"
)

// Cell is one slot of the monthly grid.
type Cell struct {
	Kind      CellKind `json:"kind"`
	Day       string   `json:"day"`
	Value     int      `json:"value"`
	Completed bool     `json:"completed"`
}

// Grid is the window laid out in week rows of seven columns, the first
// column being FirstWeekday.
type Grid struct {
	FirstWeekday time.Weekday `json:"firstWeekday"`
	Weekdays     []string     `json:"weekdays"`
	Rows         [][]Cell     `json:"rows"`
}

// ParseWeekday accepts an English weekday name or its three letter prefix.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Sunday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}

// Grid lays out the current window with firstWeekday as the first column.
func (m *Manager) Grid(firstWeekday time.Weekday) Grid {
	return BuildGrid(m.window, m.habit, firstWeekday)
}

// BuildGrid lays out a contiguous, oldest-first window. The last row is the
// week containing the window's last day, and rows are added above it until
// the first day is covered, which takes five or six rows for a 30 day
// window.
func BuildGrid(window []domain.Value, habit domain.Habit, firstWeekday time.Weekday) Grid {
	g := Grid{FirstWeekday: firstWeekday, Weekdays: make([]string, 7)}
	for i := range g.Weekdays {
		g.Weekdays[i] = time.Weekday((int(firstWeekday) + i) % 7).String()[:3]
	}
	if len(window) == 0 {
		return g
	}

	firstDay := window[0].Day
	lastDay := window[len(window)-1].Day
	origin := weekStart(firstDay, firstWeekday)
	rows := domain.DaysBetween(origin, weekStart(lastDay, firstWeekday))/7 + 1

	g.Rows = make([][]Cell, rows)
	for r := range g.Rows {
		row := make([]Cell, 7)
		for c := range row {
			day := domain.AddDays(origin, r*7+c)
			idx := domain.DaysBetween(firstDay, day)
			cell := Cell{Day: domain.DayKey(day)}
			switch {
			case idx < 0:
				cell.Kind = CellPadding
			case idx >= len(window):
				cell.Kind = CellFuture
			default:
				v := window[idx].CurrentValue
				cell.Kind = CellDay
				cell.Value = v
				cell.Completed = domain.Completed(habit.Kind, v, habit.Target)
			}
			row[c] = cell
		}
		g.Rows[r] = row
	}
	return g
}

func weekStart(day time.Time, firstWeekday time.Weekday) time.Time {
	offset := (int(day.Weekday()) - int(firstWeekday) + 7) % 7
	return domain.AddDays(day, -offset)
}
