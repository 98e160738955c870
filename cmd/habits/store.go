package main

import (
	"fmt"

	"go.uber.org/zap"

	"habits/internal/adapter/memory"
	"habits/internal/adapter/postgres"
	"habits/internal/adapter/sqlite"
	"habits/internal/config"
	"habits/internal/domain"
)

// store bundles the repositories of one backend.
type store struct {
	habits   domain.HabitRepository
	values   domain.ValueRepository
	users    domain.UserRepository
	sessions domain.SessionRepository
	close    func() error
}

func openStore(sc config.StorageConfig, log *zap.Logger) (*store, error) {
	switch sc.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory storage; data is lost on exit")
		db := memory.New()
		return &store{habits: db, values: db, users: db, sessions: db.NewSessionRepo(), close: func() error { return nil }}, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(sc.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("opened sqlite store", zap.String("path", sc.SQLitePath))
		return &store{habits: db, values: db, users: db, sessions: db.NewSessionRepo(), close: db.Close}, nil
	case config.DriverPostgres:
		db, err := postgres.Open(sc.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		log.Info("opened postgres store")
		return &store{habits: db, values: db, users: db, sessions: db.NewSessionRepo(), close: db.Close}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
}
