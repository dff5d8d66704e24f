// Package users provides the user, session and preference store for userhub.
package users

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStatus represents the lifecycle state of a user account
type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusBlocked  UserStatus = "blocked"
	StatusDisabled UserStatus = "disabled"
)

// IsValid checks if the UserStatus is a known status
func (s UserStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusBlocked, StatusDisabled:
		return true
	default:
		return false
	}
}

// User represents a user account. PasswordHash is never serialized outward.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName  string     `json:"display_name"`
	Role         string     `gorm:"not null;default:'user'" json:"role"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Status       UserStatus `gorm:"not null;default:'active'" json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`

	// Version guards concurrent updates to the same row. Writers must go
	// through Repository.UpdateUserVersioned.
	Version int64 `gorm:"not null;default:0" json:"-"`

	Sessions []Session `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate hook for User model
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate hook for User model
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// CanLogin reports whether the account may authenticate. Blocked and
// disabled accounts are rejected even with correct credentials.
func (u *User) CanLogin() bool {
	return u.Status == StatusActive
}

// Sanitized returns a copy safe to hand to the API layer
func (u *User) Sanitized() User {
	out := *u
	out.PasswordHash = ""
	out.Sessions = nil
	return out
}

// Session correlates the hash of an issued bearer token to a user and an
// expiry. The raw token is never stored, only its one-way digest, so a
// database read cannot leak a usable credential.
type Session struct {
	SessionID string    `gorm:"primaryKey;type:varchar(36)" json:"session_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	TokenHash string    `gorm:"not null;uniqueIndex" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate hook for Session model
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.SessionID == "" {
		s.SessionID = uuid.New().String()
	}
	s.CreatedAt = time.Now()
	return nil
}

// IsExpired checks if the session has expired. A session past its expiry
// is invalid even if not yet deleted.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Preference holds a user's accessibility preferences
type Preference struct {
	UserID       uint      `gorm:"primaryKey" json:"user_id"`
	Theme        string    `gorm:"not null;default:'system'" json:"theme"`
	FontScale    float64   `gorm:"not null;default:1.0" json:"font_scale"`
	ReduceMotion bool      `gorm:"not null;default:false" json:"reduce_motion"`
	ScreenReader bool      `gorm:"not null;default:false" json:"screen_reader"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeSave hook for Preference model
func (p *Preference) BeforeSave(tx *gorm.DB) error {
	p.UpdatedAt = time.Now()
	return nil
}
