package api

import (
	"time"

	"github.com/nexa-sys/userhub/pkg/users"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LogoutRequest is the body of POST /auth/logout
type LogoutRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// ChangePasswordRequest is the body of POST /auth/change-password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// UserPayload is the profile shape returned to callers. It never carries
// the password hash.
type UserPayload struct {
	ID          uint       `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// userPayloadFrom maps a store user to the wire shape
func userPayloadFrom(u users.User) UserPayload {
	return UserPayload{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Status:      string(u.Status),
		LastLoginAt: u.LastLoginAt,
	}
}

// PreferencesPayload is the accessibility preferences wire shape
type PreferencesPayload struct {
	Theme        string  `json:"theme"`
	FontScale    float64 `json:"fontScale"`
	ReduceMotion bool    `json:"reduceMotion"`
	ScreenReader bool    `json:"screenReader"`
}

func preferencesPayloadFrom(p *users.Preference) *PreferencesPayload {
	if p == nil {
		return nil
	}
	return &PreferencesPayload{
		Theme:        p.Theme,
		FontScale:    p.FontScale,
		ReduceMotion: p.ReduceMotion,
		ScreenReader: p.ScreenReader,
	}
}

// PreferencesUpdateRequest is the body of PUT /users/me/preferences
type PreferencesUpdateRequest struct {
	Theme        string  `json:"theme" binding:"required,oneof=system light dark high-contrast"`
	FontScale    float64 `json:"fontScale" binding:"required,gte=0.5,lte=3"`
	ReduceMotion bool    `json:"reduceMotion"`
	ScreenReader bool    `json:"screenReader"`
}

// LoginResponse is the success body of POST /auth/login
type LoginResponse struct {
	Token       string              `json:"token"`
	ExpiresAt   time.Time           `json:"expiresAt"`
	User        UserPayload         `json:"user"`
	Preferences *PreferencesPayload `json:"preferences"`
}

// MessageResponse is the generic success body
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the machine-readable failure body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
