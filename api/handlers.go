package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexa-sys/userhub/pkg/errors"
	"github.com/nexa-sys/userhub/pkg/users"
)

// respondError maps a service error to its HTTP status. Internal error
// text never reaches the client; it is logged with the operation name and
// request id instead.
func (s *Server) respondError(c *gin.Context, operation string, err error) {
	se := errors.GetServiceError(err)
	if se == nil {
		se = errors.NewInternalErrorWithCause("unexpected error", err)
	}

	status := se.HTTPStatus()
	message := se.Message
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", err, map[string]interface{}{
			"operation":  operation,
			"request_id": c.GetString(ctxKeyRequestID),
		})
		message = "internal server error"
	}

	c.JSON(status, ErrorResponse{
		Error:   string(se.Code),
		Message: message,
	})
}

// handleLogin implements POST /auth/login
func (s *Server) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(errors.ErrCodeInvalidInput),
			Message: "email and password are required",
		})
		return
	}

	result, err := s.flow.Login(req.Email, req.Password)
	if err != nil {
		s.respondError(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:       result.Token,
		ExpiresAt:   result.ExpiresAt,
		User:        userPayloadFrom(result.User),
		Preferences: preferencesPayloadFrom(result.Preferences),
	})
}

// handleLogout implements POST /auth/logout
func (s *Server) handleLogout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(errors.ErrCodeInvalidInput),
			Message: "email is required",
		})
		return
	}

	if err := s.flow.Logout(req.Email); err != nil {
		s.respondError(c, "logout", err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// handleResetPassword implements POST /auth/reset-password
func (s *Server) handleResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(errors.ErrCodeInvalidInput),
			Message: "email and newPassword are required",
		})
		return
	}

	if err := s.flow.ResetPassword(req.Email, req.NewPassword); err != nil {
		s.respondError(c, "reset_password", err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password reset"})
}

// handleChangePassword implements POST /auth/change-password. Requires an
// authenticated identity resolved by the pipeline.
func (s *Server) handleChangePassword(c *gin.Context) {
	idc := IdentityFromContext(c)
	if !idc.Authenticated {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   string(errors.ErrCodeUnauthorized),
			Message: "authentication required",
		})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(errors.ErrCodeInvalidInput),
			Message: "currentPassword and newPassword are required",
		})
		return
	}

	if err := s.flow.ChangePassword(idc.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		s.respondError(c, "change_password", err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// handleMe implements GET /users/me
func (s *Server) handleMe(c *gin.Context) {
	idc := IdentityFromContext(c)
	if !idc.Authenticated {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   string(errors.ErrCodeUnauthorized),
			Message: "authentication required",
		})
		return
	}

	user, err := s.repo.GetUser(idc.UserID)
	if err != nil {
		s.respondError(c, "get_profile", err)
		return
	}
	if user == nil {
		s.respondError(c, "get_profile", errors.NewNotFoundError("user"))
		return
	}

	c.JSON(http.StatusOK, userPayloadFrom(user.Sanitized()))
}

// handleGetPreferences implements GET /users/me/preferences
func (s *Server) handleGetPreferences(c *gin.Context) {
	idc := IdentityFromContext(c)
	if !idc.Authenticated {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   string(errors.ErrCodeUnauthorized),
			Message: "authentication required",
		})
		return
	}

	prefs, err := s.repo.GetPreferences(idc.UserID)
	if err != nil {
		s.respondError(c, "get_preferences", err)
		return
	}
	if prefs == nil {
		s.respondError(c, "get_preferences", errors.NewNotFoundError("preferences"))
		return
	}

	c.JSON(http.StatusOK, preferencesPayloadFrom(prefs))
}

// handlePutPreferences implements PUT /users/me/preferences
func (s *Server) handlePutPreferences(c *gin.Context) {
	idc := IdentityFromContext(c)
	if !idc.Authenticated {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   string(errors.ErrCodeUnauthorized),
			Message: "authentication required",
		})
		return
	}

	var req PreferencesUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(errors.ErrCodeInvalidInput),
			Message: "invalid preferences payload",
		})
		return
	}

	pref := &users.Preference{
		UserID:       idc.UserID,
		Theme:        req.Theme,
		FontScale:    req.FontScale,
		ReduceMotion: req.ReduceMotion,
		ScreenReader: req.ScreenReader,
	}
	if err := s.repo.SavePreferences(pref); err != nil {
		s.respondError(c, "put_preferences", err)
		return
	}

	c.JSON(http.StatusOK, preferencesPayloadFrom(pref))
}

// handleHealth implements GET /health
func (s *Server) handleHealth(c *gin.Context) {
	dbStatus := "ok"
	status := http.StatusOK
	if err := s.repo.HealthCheck(); err != nil {
		dbStatus = "unreachable"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, HealthResponse{
		Status:   "ok",
		Database: dbStatus,
	})
}
