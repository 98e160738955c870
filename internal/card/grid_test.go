package card

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habits/internal/domain"
)

func countCells(g Grid) map[CellKind]int {
	out := map[CellKind]int{}
	for _, row := range g.Rows {
		for _, c := range row {
			out[c.Kind]++
		}
	}
	return out
}

func TestGrid_AlignsLastDayToWeekdayColumn(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindGood, 2)
	repo := newFakeValueRepo()
	repo.seed(habit.ID, baseDay, 30, func(i int) int { return i % 4 })
	m := New(ctx, habit, repo, baseDay)

	require.Equal(t, time.Wednesday, baseDay.Weekday())

	tests := []struct {
		name     string
		first    time.Weekday
		rows     int
		padding  int
		future   int
		lastCol  int
		weekdays string
	}{
		{"sunday first", time.Sunday, 5, 2, 3, 3, "Sun"},
		{"monday first", time.Monday, 5, 1, 4, 2, "Mon"},
		{"wednesday first", time.Wednesday, 6, 6, 6, 0, "Wed"},
		{"thursday first", time.Thursday, 5, 5, 0, 6, "Thu"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := m.Grid(tc.first)
			require.Len(t, g.Rows, tc.rows)
			assert.Equal(t, tc.weekdays, g.Weekdays[0])

			counts := countCells(g)
			assert.Equal(t, WindowDays, counts[CellDay])
			assert.Equal(t, tc.padding, counts[CellPadding])
			assert.Equal(t, tc.future, counts[CellFuture])

			lastRow := g.Rows[len(g.Rows)-1]
			assert.Equal(t, CellDay, lastRow[tc.lastCol].Kind)
			assert.Equal(t, domain.DayKey(baseDay), lastRow[tc.lastCol].Day)

			for _, row := range g.Rows {
				require.Len(t, row, 7)
				for col, c := range row {
					day, err := domain.ParseDay(c.Day)
					require.NoError(t, err)
					assert.Equal(t, time.Weekday((int(tc.first)+col)%7), day.Weekday())
				}
			}
		})
	}
}

func TestGrid_CellValuesFollowWindow(t *testing.T) {
	ctx := context.Background()
	habit := testHabit(domain.KindBad, 2)
	repo := newFakeValueRepo()
	repo.seed(habit.ID, baseDay, 30, func(i int) int { return i % 4 })
	m := New(ctx, habit, repo, baseDay)

	byDay := map[string]Cell{}
	for _, row := range m.Grid(time.Monday).Rows {
		for _, c := range row {
			if c.Kind == CellDay {
				byDay[c.Day] = c
			}
		}
	}
	for _, v := range m.Window() {
		c, ok := byDay[domain.DayKey(v.Day)]
		require.True(t, ok, "missing cell for %s", domain.DayKey(v.Day))
		assert.Equal(t, v.CurrentValue, c.Value)
		assert.Equal(t, v.CurrentValue < 2, c.Completed)
	}
}

func TestBuildGrid_Empty(t *testing.T) {
	g := BuildGrid(nil, domain.Habit{}, time.Monday)
	assert.Empty(t, g.Rows)
	assert.Len(t, g.Weekdays, 7)
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("Monday")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)
	d, err = ParseWeekday("sat")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d)
	d, err = ParseWeekday("")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d)
	_, err = ParseWeekday("funday")
	assert.Error(t, err)
}
