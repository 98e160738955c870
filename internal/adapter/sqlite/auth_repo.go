package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"habits/internal/domain"
	"habits/internal/metrics"
)

func (m userModel) toDomain() *domain.User {
	return &domain.User{ID: m.ID, Username: m.Username, PasswordHash: m.PasswordHash, CreatedAt: m.CreatedAt}
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	defer metrics.RecordDBQuery("sqlite", "get_user_by_username", time.Now())
	var row userModel
	if err := d.gdb.WithContext(ctx).First(&row, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	defer metrics.RecordDBQuery("sqlite", "get_user_by_id", time.Now())
	var row userModel
	if err := d.gdb.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	defer metrics.RecordDBQuery("sqlite", "create_user", time.Now())
	row := userModel{Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	if err := d.gdb.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return row.toDomain(), nil
}

// Count returns the total number of users.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int64
	if err := d.gdb.WithContext(ctx).Model(&userModel{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// SessionRepo implements domain.SessionRepository.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (d *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: d}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	row := sessionModel{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return r.db.gdb.WithContext(ctx).Create(&row).Error
}

// GetByToken retrieves a live session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var row sessionModel
	err := r.db.gdb.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, time.Now().UTC()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.Session{
		Token:     row.Token,
		UserID:    row.UserID,
		UserAgent: row.UserAgent,
		IP:        row.IP,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	return r.db.gdb.WithContext(ctx).Where("token = ?", token).Delete(&sessionModel{}).Error
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	return r.db.gdb.WithContext(ctx).Where("expires_at < ?", time.Now().UTC()).Delete(&sessionModel{}).Error
}
