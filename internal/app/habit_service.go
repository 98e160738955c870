package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"habits/internal/domain"
)

var (
	// ErrHabitNotFound indicates that the habit does not exist or belongs to another user.
	ErrHabitNotFound = errors.New("habit not found")
	// ErrInvalidHabit indicates that habit fields failed validation.
	ErrInvalidHabit = errors.New("invalid habit")
)

const maxHabitNameLen = 100

// HabitInput carries the user editable fields of a habit.
type HabitInput struct {
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Icon   string `json:"icon"`
	Color  string `json:"color"`
	Target int    `json:"target"`
	Kind   string `json:"kind"`
}

// CardInvalidator drops cached card state for a habit.
type CardInvalidator interface {
	Forget(habitID uuid.UUID)
}

// HabitService encapsulates habit management use cases.
type HabitService struct {
	repo  domain.HabitRepository
	cards CardInvalidator
}

// NewHabitService creates a HabitService backed by the given repository.
// cards may be nil.
func NewHabitService(repo domain.HabitRepository, cards CardInvalidator) *HabitService {
	return &HabitService{repo: repo, cards: cards}
}

// Create validates and stores a new habit owned by userID.
func (s *HabitService) Create(ctx context.Context, userID int64, in HabitInput) (*domain.Habit, error) {
	h := &domain.Habit{UserID: userID}
	if err := apply(h, in); err != nil {
		return nil, err
	}
	if err := s.repo.CreateHabit(ctx, h); err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return h, nil
}

// Get returns a habit owned by userID.
func (s *HabitService) Get(ctx context.Context, userID int64, id uuid.UUID) (*domain.Habit, error) {
	h, err := s.repo.GetHabit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	if h == nil || h.UserID != userID {
		return nil, ErrHabitNotFound
	}
	return h, nil
}

// List returns the habits owned by userID.
func (s *HabitService) List(ctx context.Context, userID int64) ([]domain.Habit, error) {
	return s.repo.ListHabits(ctx, userID)
}

// Update replaces the editable fields of a habit.
func (s *HabitService) Update(ctx context.Context, userID int64, id uuid.UUID, in HabitInput) (*domain.Habit, error) {
	h, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(h, in); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateHabit(ctx, h); err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	s.forget(id)
	return h, nil
}

// Delete removes a habit and its values.
func (s *HabitService) Delete(ctx context.Context, userID int64, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteHabit(ctx, id); err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	s.forget(id)
	return nil
}

func (s *HabitService) forget(id uuid.UUID) {
	if s.cards != nil {
		s.cards.Forget(id)
	}
}

// apply validates in and copies it onto h. An empty kind means good.
func apply(h *domain.Habit, in HabitInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidHabit)
	}
	if len(name) > maxHabitNameLen {
		return fmt.Errorf("%w: name longer than %d characters", ErrInvalidHabit, maxHabitNameLen)
	}
	if in.Target < 0 {
		return fmt.Errorf("%w: target must be >= 0", ErrInvalidHabit)
	}
	if in.Target > domain.MaxTarget {
		return fmt.Errorf("%w: target must be <= %d", ErrInvalidHabit, domain.MaxTarget)
	}
	kind := domain.KindGood
	if strings.TrimSpace(in.Kind) != "" {
		k, err := domain.ParseKind(in.Kind)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidHabit, err)
		}
		kind = k
	}

	h.Name = name
	h.Unit = strings.TrimSpace(in.Unit)
	h.Icon = strings.TrimSpace(in.Icon)
	h.Color = strings.TrimSpace(in.Color)
	h.Target = in.Target
	h.Kind = kind
	return nil
}
