// Package repotest holds behaviour checks shared by every repository adapter.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habits/internal/domain"
)

// Store is the set of ports every adapter implements on one type.
type Store interface {
	domain.HabitRepository
	domain.ValueRepository
	domain.UserRepository
}

// Run exercises habit and value storage against a fresh store per subtest.
func Run(t *testing.T, open func(t *testing.T) Store) {
	t.Run("habit lifecycle", func(t *testing.T) { habitLifecycle(t, open(t)) })
	t.Run("value upsert", func(t *testing.T) { valueUpsert(t, open(t)) })
	t.Run("delete cascades", func(t *testing.T) { deleteCascades(t, open(t)) })
	t.Run("users", func(t *testing.T) { users(t, open(t)) })
}

// RunSessions exercises a session repository backed by users from the store.
func RunSessions(t *testing.T, users domain.UserRepository, sessions domain.SessionRepository) {
	ctx := context.Background()
	u, err := users.Create(ctx, "session-owner-"+uuid.NewString()[:8], "hash")
	require.NoError(t, err)

	require.NoError(t, sessions.Create(ctx, u.ID, "live", "agent", "10.0.0.1", time.Now().Add(time.Hour)))
	require.NoError(t, sessions.Create(ctx, u.ID, "stale", "agent", "10.0.0.1", time.Now().Add(-time.Hour)))

	s, err := sessions.GetByToken(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, u.ID, s.UserID)
	assert.Equal(t, "agent", s.UserAgent)
	assert.Equal(t, "10.0.0.1", s.IP)

	s, err = sessions.GetByToken(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, s, "expired session must not be returned")

	require.NoError(t, sessions.DeleteExpired(ctx))
	require.NoError(t, sessions.Delete(ctx, "live"))
	s, err = sessions.GetByToken(ctx, "live")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func habitLifecycle(t *testing.T, s Store) {
	ctx := context.Background()

	h := &domain.Habit{UserID: 7, Name: "read", Unit: "pages", Icon: "book", Color: "#336699", Target: 20, Kind: domain.KindGood}
	require.NoError(t, s.CreateHabit(ctx, h))
	require.NotEqual(t, uuid.Nil, h.ID)

	got, err := s.GetHabit(ctx, h.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "read", got.Name)
	assert.Equal(t, "#336699", got.Color)
	assert.Equal(t, domain.KindGood, got.Kind)

	missing, err := s.GetHabit(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	h.Name = "read more"
	h.Kind = domain.KindBad
	require.NoError(t, s.UpdateHabit(ctx, h))

	list, err := s.ListHabits(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "read more", list[0].Name)
	assert.Equal(t, domain.KindBad, list[0].Kind)

	others, err := s.ListHabits(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, others)

	assert.Error(t, s.UpdateHabit(ctx, &domain.Habit{ID: uuid.New(), Name: "ghost", Kind: domain.KindGood}))
}

func valueUpsert(t *testing.T, s Store) {
	ctx := context.Background()
	h := &domain.Habit{UserID: 1, Name: "water", Target: 8, Kind: domain.KindGood}
	require.NoError(t, s.CreateHabit(ctx, h))

	d := day(2026, 3, 10)
	first, err := s.GetOrCreateValue(ctx, h.ID, d)
	require.NoError(t, err)
	require.True(t, first.Persisted())
	assert.Equal(t, 0, first.CurrentValue)

	again, err := s.GetOrCreateValue(ctx, h.ID, d.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "same day must map to the same record")

	first.CurrentValue = 4
	require.NoError(t, s.SaveValue(ctx, first))

	fresh := &domain.Value{HabitID: h.ID, Day: day(2026, 3, 8), CurrentValue: 2}
	require.NoError(t, s.SaveValue(ctx, fresh))
	assert.True(t, fresh.Persisted())

	dup := &domain.Value{HabitID: h.ID, Day: d, CurrentValue: 9}
	require.NoError(t, s.SaveValue(ctx, dup))
	assert.Equal(t, first.ID, dup.ID, "save on an existing day updates in place")

	vals, err := s.ListValues(ctx, h.ID, day(2026, 3, 1), day(2026, 3, 10))
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Equal(t, 2, vals[0].CurrentValue)
	assert.Equal(t, 9, vals[1].CurrentValue)
	assert.True(t, vals[1].Day.Equal(d))

	none, err := s.ListValues(ctx, h.ID, day(2026, 3, 11), day(2026, 3, 31))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func deleteCascades(t *testing.T, s Store) {
	ctx := context.Background()
	h := &domain.Habit{UserID: 1, Name: "smoke", Target: 1, Kind: domain.KindBad}
	require.NoError(t, s.CreateHabit(ctx, h))
	_, err := s.GetOrCreateValue(ctx, h.ID, day(2026, 1, 1))
	require.NoError(t, err)

	require.NoError(t, s.DeleteHabit(ctx, h.ID))
	got, err := s.GetHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	vals, err := s.ListValues(ctx, h.ID, day(2025, 12, 1), day(2026, 2, 1))
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func users(t *testing.T, s Store) {
	ctx := context.Background()
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	u, err := s.Create(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	byName, err := s.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, u.ID, byName.ID)

	byID, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice", byID.Username)

	nobody, err := s.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, nobody)

	_, err = s.Create(ctx, "alice", "other")
	assert.Error(t, err)
}
