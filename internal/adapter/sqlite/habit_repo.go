package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"habits/internal/domain"
	"habits/internal/metrics"
)

func toHabitModel(h *domain.Habit) habitModel {
	return habitModel{
		ID:        h.ID.String(),
		UserID:    h.UserID,
		Name:      h.Name,
		Unit:      h.Unit,
		Icon:      h.Icon,
		Color:     h.Color,
		Target:    h.Target,
		Kind:      string(h.Kind),
		CreatedAt: h.CreatedAt,
	}
}

func (m habitModel) toDomain() (domain.Habit, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return domain.Habit{}, fmt.Errorf("parse habit id: %w", err)
	}
	return domain.Habit{
		ID:        id,
		UserID:    m.UserID,
		Name:      m.Name,
		Unit:      m.Unit,
		Icon:      m.Icon,
		Color:     m.Color,
		Target:    m.Target,
		Kind:      domain.Kind(m.Kind),
		CreatedAt: m.CreatedAt,
	}, nil
}

// CreateHabit inserts a new habit, assigning an id if it has none.
func (d *DB) CreateHabit(ctx context.Context, h *domain.Habit) error {
	defer metrics.RecordDBQuery("sqlite", "create_habit", time.Now())
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	row := toHabitModel(h)
	if err := d.gdb.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create habit: %w", err)
	}
	return nil
}

// GetHabit returns the habit with the given id, or nil.
func (d *DB) GetHabit(ctx context.Context, id uuid.UUID) (*domain.Habit, error) {
	defer metrics.RecordDBQuery("sqlite", "get_habit", time.Now())
	var row habitModel
	if err := d.gdb.WithContext(ctx).First(&row, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	h, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListHabits returns the habits of a user, oldest first.
func (d *DB) ListHabits(ctx context.Context, userID int64) ([]domain.Habit, error) {
	defer metrics.RecordDBQuery("sqlite", "list_habits", time.Now())
	var rows []habitModel
	if err := d.gdb.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, name ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	out := make([]domain.Habit, 0, len(rows))
	for _, row := range rows {
		h, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// UpdateHabit stores the editable fields of a habit.
func (d *DB) UpdateHabit(ctx context.Context, h *domain.Habit) error {
	defer metrics.RecordDBQuery("sqlite", "update_habit", time.Now())
	res := d.gdb.WithContext(ctx).Model(&habitModel{}).
		Where("id = ?", h.ID.String()).
		Updates(map[string]any{
			"name":   h.Name,
			"unit":   h.Unit,
			"icon":   h.Icon,
			"color":  h.Color,
			"target": h.Target,
			"kind":   string(h.Kind),
		})
	if res.Error != nil {
		return fmt.Errorf("update habit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.New("habit not found")
	}
	return nil
}

// DeleteHabit removes a habit and its values in one transaction.
func (d *DB) DeleteHabit(ctx context.Context, id uuid.UUID) error {
	defer metrics.RecordDBQuery("sqlite", "delete_habit", time.Now())
	return d.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", id.String()).Delete(&valueModel{}).Error; err != nil {
			return fmt.Errorf("delete habit values: %w", err)
		}
		if err := tx.Where("id = ?", id.String()).Delete(&habitModel{}).Error; err != nil {
			return fmt.Errorf("delete habit: %w", err)
		}
		return nil
	})
}
