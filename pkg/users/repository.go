package users

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nexa-sys/userhub/pkg/errors"
)

// Repository provides data access for users, sessions and preferences
type Repository struct {
	db *gorm.DB
}

// NewRepository opens the sqlite store at path and migrates the schema.
// Use ":memory:" for tests.
func NewRepository(path string) (*Repository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	return r.db.AutoMigrate(
		&User{},
		&Session{},
		&Preference{},
	)
}

// User operations

// CreateUser creates a new user
func (r *Repository) CreateUser(user *User) (*User, error) {
	if err := r.db.Create(user).Error; err != nil {
		return nil, errors.NewDatabaseError("failed to create user", err)
	}
	return user, nil
}

// GetUser retrieves a user by ID. Returns (nil, nil) when not found.
func (r *Repository) GetUser(userID uint) (*User, error) {
	var user User
	if err := r.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.NewDatabaseError("failed to get user", err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email. Returns (nil, nil) when not found.
func (r *Repository) GetUserByEmail(email string) (*User, error) {
	var user User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.NewDatabaseError("failed to get user by email", err)
	}
	return &user, nil
}

// UpdateUser saves a user without a version check. Reserved for flows that
// already hold the only reference to the row (tests, admin tooling).
func (r *Repository) UpdateUser(user *User) error {
	if err := r.db.Save(user).Error; err != nil {
		return errors.NewDatabaseError("failed to update user", err)
	}
	return nil
}

// UpdateUserVersioned saves a user only if its version column still matches
// the version the row was read with. A lost race surfaces as a conflict
// error so the caller can reload and retry.
func (r *Repository) UpdateUserVersioned(user *User) error {
	readVersion := user.Version
	user.Version = readVersion + 1
	user.UpdatedAt = time.Now()

	result := r.db.Model(&User{}).
		Where("id = ? AND version = ?", user.ID, readVersion).
		Updates(map[string]interface{}{
			"email":         user.Email,
			"display_name":  user.DisplayName,
			"role":          user.Role,
			"password_hash": user.PasswordHash,
			"status":        user.Status,
			"last_login_at": user.LastLoginAt,
			"updated_at":    user.UpdatedAt,
			"version":       user.Version,
		})
	if result.Error != nil {
		user.Version = readVersion
		return errors.NewDatabaseError("failed to update user", result.Error)
	}
	if result.RowsAffected == 0 {
		user.Version = readVersion
		return errors.NewConflictError("user row was modified concurrently")
	}
	return nil
}

// Session operations

// CreateSession persists a session row. The token hash carries a unique
// index; a collision is cryptographically negligible and surfaces as a
// database error rather than being specially handled.
func (r *Repository) CreateSession(session *Session) (*Session, error) {
	if err := r.db.Create(session).Error; err != nil {
		return nil, errors.NewDatabaseError("failed to create session", err)
	}
	return session, nil
}

// GetSessionByTokenHash looks up a session by the digest of its token.
// Returns (nil, nil) when no row matches.
func (r *Repository) GetSessionByTokenHash(tokenHash string) (*Session, error) {
	var session Session
	if err := r.db.Where("token_hash = ?", tokenHash).First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.NewDatabaseError("failed to get session", err)
	}
	return &session, nil
}

// SessionsForUser returns all session rows for a user
func (r *Repository) SessionsForUser(userID uint) ([]Session, error) {
	var sessions []Session
	if err := r.db.Where("user_id = ?", userID).Find(&sessions).Error; err != nil {
		return nil, errors.NewDatabaseError("failed to list sessions", err)
	}
	return sessions, nil
}

// DeleteUserSessions removes every session for a user (global logout).
// Deleting zero rows is not an error.
func (r *Repository) DeleteUserSessions(userID uint) error {
	if err := r.db.Where("user_id = ?", userID).Delete(&Session{}).Error; err != nil {
		return errors.NewDatabaseError("failed to delete user sessions", err)
	}
	return nil
}

// CleanupExpiredSessions removes sessions past their expiry and returns
// the number deleted
func (r *Repository) CleanupExpiredSessions() (int64, error) {
	result := r.db.Where("expires_at < ?", time.Now()).Delete(&Session{})
	if result.Error != nil {
		return 0, errors.NewDatabaseError("failed to cleanup expired sessions", result.Error)
	}
	return result.RowsAffected, nil
}

// Preference operations

// GetPreferences retrieves a user's preferences. Returns (nil, nil) when
// the user has no stored preferences.
func (r *Repository) GetPreferences(userID uint) (*Preference, error) {
	var pref Preference
	if err := r.db.Where("user_id = ?", userID).First(&pref).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.NewDatabaseError("failed to get preferences", err)
	}
	return &pref, nil
}

// SavePreferences creates or replaces a user's preferences
func (r *Repository) SavePreferences(pref *Preference) error {
	if err := r.db.Save(pref).Error; err != nil {
		return errors.NewDatabaseError("failed to save preferences", err)
	}
	return nil
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
