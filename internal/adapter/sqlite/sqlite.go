// Package sqlite implements the domain repositories on an embedded SQLite
// database through gorm.
package sqlite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"habits/internal/domain"
)

// DB wraps a *gorm.DB and implements domain repository interfaces.
type DB struct {
	gdb *gorm.DB
}

var _ domain.HabitRepository = (*DB)(nil)
var _ domain.ValueRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

type habitModel struct {
	ID        string `gorm:"primaryKey;type:text"`
	UserID    int64  `gorm:"index;not null"`
	Name      string `gorm:"not null"`
	Unit      string
	Icon      string
	Color     string
	Target    int    `gorm:"not null"`
	Kind      string `gorm:"not null"`
	CreatedAt time.Time
	Values    []valueModel `gorm:"foreignKey:HabitID;constraint:OnDelete:CASCADE"`
}

func (habitModel) TableName() string { return "habits" }

// valueModel is unique on (habit_id, day); day is a YYYY-MM-DD key.
type valueModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	HabitID      string `gorm:"not null;index:idx_habit_values_habit_day,unique"`
	Day          string `gorm:"not null;index:idx_habit_values_habit_day,unique"`
	CurrentValue int    `gorm:"not null;default:0"`
}

func (valueModel) TableName() string { return "habit_values" }

type userModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

type sessionModel struct {
	Token     string `gorm:"primaryKey"`
	UserID    int64  `gorm:"index;not null"`
	UserAgent string
	IP        string
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (sessionModel) TableName() string { return "sessions" }

// Open opens (creating if needed) the database file at path and migrates
// the schema. An empty path falls back to habits.db.
func Open(path string) (*DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "habits.db"
	}
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(&userModel{}, &sessionModel{}, &habitModel{}, &valueModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{gdb: gdb}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	sqlDB, err := d.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
