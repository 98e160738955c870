package domain

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the polarity of a habit: whether reaching the target is success.
type Kind string

const (
	// KindGood habits are completed once the value reaches the target.
	KindGood Kind = "good"
	// KindBad habits are completed while the value stays under the target.
	KindBad Kind = "bad"
)

// MaxTarget is the largest daily target a habit may have. Its monthly
// total still fits a 32-bit column.
const MaxTarget = math.MaxInt32 / 30

// ParseKind normalises s into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindGood:
		return KindGood, nil
	case KindBad:
		return KindBad, nil
	}
	return "", fmt.Errorf("kind must be %q or %q, got %q", KindGood, KindBad, s)
}

// Habit is a tracked recurring activity with a daily numeric target.
// It is the aggregate root for its Values.
type Habit struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	Target    int       `json:"target"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

// HabitRepository is the port for habit persistence. GetHabit returns
// (nil, nil) when no habit has the given id. DeleteHabit removes the
// habit's values as well.
type HabitRepository interface {
	CreateHabit(ctx context.Context, h *Habit) error
	GetHabit(ctx context.Context, id uuid.UUID) (*Habit, error)
	ListHabits(ctx context.Context, userID int64) ([]Habit, error)
	UpdateHabit(ctx context.Context, h *Habit) error
	DeleteHabit(ctx context.Context, id uuid.UUID) error
}
