package card

import (
	"github.com/google/uuid"

	"habits/internal/domain"
)

// CurrentValue sums the last mode.Days() days of the window: the last day
// alone for daily, seven days for weekly and the whole window for monthly.
func (m *Manager) CurrentValue(mode domain.Mode) int {
	n := min(mode.Days(), len(m.window))
	total := 0
	for _, v := range m.window[len(m.window)-n:] {
		total += v.CurrentValue
	}
	return total
}

// CurrentTarget scales the habit's daily target to mode.
func (m *Manager) CurrentTarget(mode domain.Mode) int {
	return domain.TargetFor(m.habit.Target, mode)
}

// IsCompleted applies the habit's polarity to the value and target of mode.
func (m *Manager) IsCompleted(mode domain.Mode) bool {
	return domain.Completed(m.habit.Kind, m.CurrentValue(mode), m.CurrentTarget(mode))
}

// Progress is CurrentValue/CurrentTarget, 0 when the target is not positive.
func (m *Manager) Progress(mode domain.Mode) float64 {
	return domain.ProgressRatio(m.CurrentValue(mode), m.CurrentTarget(mode))
}

// ModeSummary is the derived figures of one aggregation mode.
type ModeSummary struct {
	Mode      domain.Mode `json:"mode"`
	Value     int         `json:"value"`
	Target    int         `json:"target"`
	Completed bool        `json:"completed"`
	Progress  float64     `json:"progress"`
}

// DayValue is one day of the window as presented to clients.
type DayValue struct {
	Day       string `json:"day"`
	Value     int    `json:"value"`
	Completed bool   `json:"completed"`
}

// Snapshot is an immutable view of a card.
type Snapshot struct {
	HabitID  uuid.UUID     `json:"habitId"`
	Name     string        `json:"name"`
	Unit     string        `json:"unit"`
	Kind     domain.Kind   `json:"kind"`
	Target   int           `json:"target"`
	ReadOnly bool          `json:"readOnly"`
	FirstDay string        `json:"firstDay"`
	LastDay  string        `json:"lastDay"`
	Modes    []ModeSummary `json:"modes"`
	Window   []DayValue    `json:"window"`
}

// Mode returns the summary for mode.
func (s Snapshot) Mode(mode domain.Mode) ModeSummary {
	for _, ms := range s.Modes {
		if ms.Mode == mode {
			return ms
		}
	}
	return ModeSummary{Mode: mode}
}

// Snapshot captures the current window and its derived figures.
func (m *Manager) Snapshot() Snapshot {
	s := Snapshot{
		HabitID:  m.habit.ID,
		Name:     m.habit.Name,
		Unit:     m.habit.Unit,
		Kind:     m.habit.Kind,
		Target:   m.habit.Target,
		ReadOnly: m.readOnly,
		FirstDay: domain.DayKey(m.FirstDay()),
		LastDay:  domain.DayKey(m.lastDay),
		Modes:    make([]ModeSummary, 0, len(domain.Modes)),
		Window:   make([]DayValue, 0, len(m.window)),
	}
	for _, mode := range domain.Modes {
		s.Modes = append(s.Modes, ModeSummary{
			Mode:      mode,
			Value:     m.CurrentValue(mode),
			Target:    m.CurrentTarget(mode),
			Completed: m.IsCompleted(mode),
			Progress:  m.Progress(mode),
		})
	}
	for _, v := range m.window {
		s.Window = append(s.Window, DayValue{
			Day:       domain.DayKey(v.Day),
			Value:     v.CurrentValue,
			Completed: domain.Completed(m.habit.Kind, v.CurrentValue, m.habit.Target),
		})
	}
	return s
}
