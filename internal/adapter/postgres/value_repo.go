package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"habits/internal/domain"
	"habits/internal/metrics"
)

// ListValues returns the values of a habit between two local days, inclusive.
func (d *DB) ListValues(ctx context.Context, habitID uuid.UUID, from, to time.Time) ([]domain.Value, error) {
	defer metrics.RecordDBQuery("postgres", "list_values", time.Now())
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, day, current_value FROM habit_values WHERE habit_id=$1 AND day >= $2 AND day <= $3 ORDER BY day ASC;",
		habitID, domain.DayKey(from), domain.DayKey(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.Value, 0)
	for rows.Next() {
		var v domain.Value
		var day string
		if err := rows.Scan(&v.ID, &day, &v.CurrentValue); err != nil {
			return nil, err
		}
		if v.Day, err = domain.ParseDay(day); err != nil {
			return nil, err
		}
		v.HabitID = habitID
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetOrCreateValue returns the value for a day, inserting a zero value first
// if there is none. The no-op update makes RETURNING yield the existing row.
func (d *DB) GetOrCreateValue(ctx context.Context, habitID uuid.UUID, day time.Time) (*domain.Value, error) {
	defer metrics.RecordDBQuery("postgres", "get_or_create_value", time.Now())
	key := domain.DayKey(day)
	v := domain.Value{HabitID: habitID}
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO habit_values(habit_id, day, current_value) VALUES($1, $2, 0) ON CONFLICT (habit_id, day) DO UPDATE SET day = EXCLUDED.day RETURNING id, current_value;",
		habitID, key,
	).Scan(&v.ID, &v.CurrentValue)
	if err != nil {
		return nil, err
	}
	if v.Day, err = domain.ParseDay(key); err != nil {
		return nil, err
	}
	return &v, nil
}

// SaveValue upserts a value on (habit, day).
func (d *DB) SaveValue(ctx context.Context, v *domain.Value) error {
	defer metrics.RecordDBQuery("postgres", "save_value", time.Now())
	return d.sql.QueryRowContext(ctx,
		"INSERT INTO habit_values(habit_id, day, current_value) VALUES($1, $2, $3) ON CONFLICT (habit_id, day) DO UPDATE SET current_value = EXCLUDED.current_value RETURNING id;",
		v.HabitID, domain.DayKey(v.Day), v.CurrentValue,
	).Scan(&v.ID)
}
