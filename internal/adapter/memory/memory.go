// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"habits/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	habits   map[uuid.UUID]domain.Habit
	values   map[uuid.UUID]map[string]domain.Value
	users    []*domain.User
	sessions map[string]*domain.Session

	valueIDCounter int64
	userIDCounter  int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		habits:   make(map[uuid.UUID]domain.Habit),
		values:   make(map[uuid.UUID]map[string]domain.Value),
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.HabitRepository = (*DB)(nil)
var _ domain.ValueRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- HabitRepository ---

// CreateHabit stores a new habit, assigning an id if it has none.
func (db *DB) CreateHabit(ctx context.Context, h *domain.Habit) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if _, ok := db.habits[h.ID]; ok {
		return errors.New("habit already exists")
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	db.habits[h.ID] = *h
	return nil
}

// GetHabit returns the habit with the given id, or nil.
func (db *DB) GetHabit(ctx context.Context, id uuid.UUID) (*domain.Habit, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	h, ok := db.habits[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// ListHabits returns the habits of a user, oldest first.
func (db *DB) ListHabits(ctx context.Context, userID int64) ([]domain.Habit, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Habit, 0)
	for _, h := range db.habits {
		if h.UserID == userID {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].Name < result[j].Name
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateHabit replaces a stored habit.
func (db *DB) UpdateHabit(ctx context.Context, h *domain.Habit) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.habits[h.ID]; !ok {
		return errors.New("habit not found")
	}
	db.habits[h.ID] = *h
	return nil
}

// DeleteHabit removes a habit and all of its values.
func (db *DB) DeleteHabit(ctx context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.habits, id)
	delete(db.values, id)
	return nil
}

// --- ValueRepository ---

// ListValues returns the values of a habit between two days, inclusive.
func (db *DB) ListValues(ctx context.Context, habitID uuid.UUID, from, to time.Time) ([]domain.Value, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	lo, hi := domain.DayKey(from), domain.DayKey(to)
	result := make([]domain.Value, 0)
	for key, v := range db.values[habitID] {
		if key >= lo && key <= hi {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Day.Before(result[j].Day)
	})
	return result, nil
}

// GetOrCreateValue returns the value for a day, inserting a zero value first
// if there is none.
func (db *DB) GetOrCreateValue(ctx context.Context, habitID uuid.UUID, day time.Time) (*domain.Value, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.habits[habitID]; !ok {
		return nil, errors.New("habit not found")
	}
	key := domain.DayKey(day)
	if v, ok := db.values[habitID][key]; ok {
		return &v, nil
	}
	v := db.insertLocked(domain.Value{HabitID: habitID, Day: day})
	return &v, nil
}

// SaveValue upserts a value on (habit, day).
func (db *DB) SaveValue(ctx context.Context, v *domain.Value) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.habits[v.HabitID]; !ok {
		return errors.New("habit not found")
	}
	if existing, ok := db.values[v.HabitID][domain.DayKey(v.Day)]; ok {
		v.ID = existing.ID
		stored := *v
		stored.Day = existing.Day
		db.values[v.HabitID][domain.DayKey(v.Day)] = stored
		return nil
	}
	stored := db.insertLocked(*v)
	v.ID = stored.ID
	return nil
}

func (db *DB) insertLocked(v domain.Value) domain.Value {
	key := domain.DayKey(v.Day)
	day, _ := domain.ParseDay(key)
	db.valueIDCounter++
	v.ID = db.valueIDCounter
	v.Day = day
	if db.values[v.HabitID] == nil {
		db.values[v.HabitID] = make(map[string]domain.Value)
	}
	db.values[v.HabitID][key] = v
	return v
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return u, nil
		}
	}
	// Return nil if not found
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, errors.New("user already exists")
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	return u, nil
}

// Count returns the total number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		if time.Now().After(s.ExpiresAt) {
			delete(r.db.sessions, token)
			return nil, nil
		}
		return s, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
