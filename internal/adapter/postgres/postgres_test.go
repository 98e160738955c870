package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"habits/internal/adapter/repotest"
)

// openTest connects to HABITS_TEST_DATABASE_URL and empties every table.
func openTest(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("HABITS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("HABITS_TEST_DATABASE_URL not set")
	}
	db, err := Open(url)
	require.NoError(t, err)
	_, err = db.sql.ExecContext(context.Background(),
		"TRUNCATE habit_values, habits, sessions, users RESTART IDENTITY CASCADE;")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRepositories(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repotest.Store { return openTest(t) })
}

func TestSessions(t *testing.T) {
	db := openTest(t)
	repotest.RunSessions(t, db, db.NewSessionRepo())
}
