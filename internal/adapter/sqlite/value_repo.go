package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"habits/internal/domain"
	"habits/internal/metrics"
)

func (m valueModel) toDomain(habitID uuid.UUID) (domain.Value, error) {
	day, err := domain.ParseDay(m.Day)
	if err != nil {
		return domain.Value{}, fmt.Errorf("parse value day: %w", err)
	}
	return domain.Value{ID: m.ID, HabitID: habitID, Day: day, CurrentValue: m.CurrentValue}, nil
}

// ListValues returns the values of a habit between two local days, inclusive.
func (d *DB) ListValues(ctx context.Context, habitID uuid.UUID, from, to time.Time) ([]domain.Value, error) {
	defer metrics.RecordDBQuery("sqlite", "list_values", time.Now())
	var rows []valueModel
	if err := d.gdb.WithContext(ctx).
		Where("habit_id = ?", habitID.String()).
		Where("day BETWEEN ? AND ?", domain.DayKey(from), domain.DayKey(to)).
		Order("day ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list values: %w", err)
	}
	out := make([]domain.Value, 0, len(rows))
	for _, row := range rows {
		v, err := row.toDomain(habitID)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// GetOrCreateValue returns the value for a day, inserting a zero value first
// if there is none.
func (d *DB) GetOrCreateValue(ctx context.Context, habitID uuid.UUID, day time.Time) (*domain.Value, error) {
	defer metrics.RecordDBQuery("sqlite", "get_or_create_value", time.Now())
	row := valueModel{HabitID: habitID.String(), Day: domain.DayKey(day)}
	if err := d.gdb.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create value: %w", err)
	}
	return d.reloadValue(ctx, habitID, row.Day)
}

// SaveValue upserts a value on (habit, day).
func (d *DB) SaveValue(ctx context.Context, v *domain.Value) error {
	defer metrics.RecordDBQuery("sqlite", "save_value", time.Now())
	row := valueModel{HabitID: v.HabitID.String(), Day: domain.DayKey(v.Day), CurrentValue: v.CurrentValue}
	if err := d.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "habit_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_value"}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("save value: %w", err)
	}
	stored, err := d.reloadValue(ctx, v.HabitID, row.Day)
	if err != nil {
		return err
	}
	v.ID = stored.ID
	return nil
}

func (d *DB) reloadValue(ctx context.Context, habitID uuid.UUID, day string) (*domain.Value, error) {
	var row valueModel
	if err := d.gdb.WithContext(ctx).
		Where("habit_id = ? AND day = ?", habitID.String(), day).
		First(&row).Error; err != nil {
		return nil, fmt.Errorf("reload value: %w", err)
	}
	v, err := row.toDomain(habitID)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
