package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"habits/internal/domain"
)

// MaxHistoryDays bounds the span of a history query.
const MaxHistoryDays = 366

// HistoryPoint is one day of a habit's history.
type HistoryPoint struct {
	Day       string `json:"day"`
	Value     int    `json:"value"`
	Completed bool   `json:"completed"`
}

// History returns one point per day for the last days days ending today,
// oldest first. Days without a stored value are reported as zero.
func (s *CardService) History(ctx context.Context, userID int64, habitID uuid.UUID, days int) ([]HistoryPoint, error) {
	h, err := s.habits.GetHabit(ctx, habitID)
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	if h == nil || h.UserID != userID {
		return nil, ErrHabitNotFound
	}
	if days < 1 {
		days = 1
	}
	if days > MaxHistoryDays {
		days = MaxHistoryDays
	}

	to := domain.NormalizeDay(s.now())
	from := domain.AddDays(to, -(days - 1))
	vals, err := s.values.ListValues(ctx, habitID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list values: %w", err)
	}
	byDay := make(map[string]int, len(vals))
	for _, v := range vals {
		byDay[domain.DayKey(v.Day)] = v.CurrentValue
	}

	points := make([]HistoryPoint, 0, days)
	for d := from; !d.After(to); d = domain.AddDays(d, 1) {
		key := domain.DayKey(d)
		v := byDay[key]
		points = append(points, HistoryPoint{
			Day:       key,
			Value:     v,
			Completed: domain.Completed(h.Kind, v, h.Target),
		})
	}
	return points, nil
}
