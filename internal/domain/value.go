package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Value is one day's recorded progress for a habit. ID is zero until the
// value has been persisted.
type Value struct {
	ID           int64     `json:"id"`
	HabitID      uuid.UUID `json:"habitId"`
	Day          time.Time `json:"day"`
	CurrentValue int       `json:"currentValue"`
}

// Persisted reports whether v has a backing record.
func (v Value) Persisted() bool { return v.ID != 0 }

// ValueRepository is the port for daily value persistence. There is at most
// one value per (habit, day); day arguments are normalised by callers.
type ValueRepository interface {
	// ListValues returns stored values with from <= day <= to, ordered by day.
	ListValues(ctx context.Context, habitID uuid.UUID, from, to time.Time) ([]Value, error)
	// GetOrCreateValue returns the value for day, inserting a zero value if
	// none exists yet.
	GetOrCreateValue(ctx context.Context, habitID uuid.UUID, day time.Time) (*Value, error)
	// SaveValue upserts v on (habit, day) and sets v.ID.
	SaveValue(ctx context.Context, v *Value) error
}
