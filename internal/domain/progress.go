package domain

import (
	"fmt"
	"strings"
)

// Mode selects the aggregation span of a card.
type Mode string

const (
	ModeDaily   Mode = "daily"
	ModeWeekly  Mode = "weekly"
	ModeMonthly Mode = "monthly"
)

// Modes lists every aggregation mode, shortest span first.
var Modes = []Mode{ModeDaily, ModeWeekly, ModeMonthly}

// ParseMode normalises s into a Mode. An empty string means daily.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeDaily, nil
	case ModeDaily, ModeWeekly, ModeMonthly:
		return m, nil
	}
	return "", fmt.Errorf("mode must be daily, weekly or monthly, got %q", s)
}

// Days returns the number of days a mode aggregates over.
func (m Mode) Days() int {
	switch m {
	case ModeWeekly:
		return 7
	case ModeMonthly:
		return 30
	default:
		return 1
	}
}

// TargetFor scales a daily target to the span of mode. Targets above
// MaxTarget are treated as MaxTarget.
func TargetFor(dailyTarget int, mode Mode) int {
	return min(dailyTarget, MaxTarget) * mode.Days()
}

// Completed reports whether value satisfies target for a habit of kind.
// Good habits need value >= target; bad habits need value < target.
func Completed(kind Kind, value, target int) bool {
	if kind == KindBad {
		return value < target
	}
	return value >= target
}

// ProgressRatio returns value/target, or 0 when target is not positive.
func ProgressRatio(value, target int) float64 {
	if target <= 0 {
		return 0
	}
	return float64(value) / float64(target)
}
