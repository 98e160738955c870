package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"habits/internal/domain"
	"habits/internal/metrics"
)

const habitColumns = "id, user_id, name, unit, icon, color, target, kind, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (domain.Habit, error) {
	var h domain.Habit
	var kind string
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Unit, &h.Icon, &h.Color, &h.Target, &kind, &h.CreatedAt)
	h.Kind = domain.Kind(kind)
	return h, err
}

// CreateHabit inserts a new habit, assigning an id if it has none.
func (d *DB) CreateHabit(ctx context.Context, h *domain.Habit) error {
	defer metrics.RecordDBQuery("postgres", "create_habit", time.Now())
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO habits("+habitColumns+") VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9);",
		h.ID, h.UserID, h.Name, h.Unit, h.Icon, h.Color, h.Target, string(h.Kind), h.CreatedAt.UTC(),
	)
	return err
}

// GetHabit returns the habit with the given id, or nil.
func (d *DB) GetHabit(ctx context.Context, id uuid.UUID) (*domain.Habit, error) {
	defer metrics.RecordDBQuery("postgres", "get_habit", time.Now())
	h, err := scanHabit(d.sql.QueryRowContext(ctx,
		"SELECT "+habitColumns+" FROM habits WHERE id=$1;", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListHabits returns the habits of a user, oldest first.
func (d *DB) ListHabits(ctx context.Context, userID int64) ([]domain.Habit, error) {
	defer metrics.RecordDBQuery("postgres", "list_habits", time.Now())
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+habitColumns+" FROM habits WHERE user_id=$1 ORDER BY created_at ASC, name ASC;", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.Habit, 0)
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// UpdateHabit stores the editable fields of a habit.
func (d *DB) UpdateHabit(ctx context.Context, h *domain.Habit) error {
	defer metrics.RecordDBQuery("postgres", "update_habit", time.Now())
	res, err := d.sql.ExecContext(ctx,
		"UPDATE habits SET name=$2, unit=$3, icon=$4, color=$5, target=$6, kind=$7 WHERE id=$1;",
		h.ID, h.Name, h.Unit, h.Icon, h.Color, h.Target, string(h.Kind),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("habit not found")
	}
	return nil
}

// DeleteHabit removes a habit; its values go with it through the foreign key.
func (d *DB) DeleteHabit(ctx context.Context, id uuid.UUID) error {
	defer metrics.RecordDBQuery("postgres", "delete_habit", time.Now())
	_, err := d.sql.ExecContext(ctx, "DELETE FROM habits WHERE id=$1;", id)
	return err
}
