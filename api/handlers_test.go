package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexa-sys/userhub/pkg/auth"
	"github.com/nexa-sys/userhub/pkg/identity"
	"github.com/nexa-sys/userhub/pkg/users"
)

func seedUser(t *testing.T, server *Server, email, password string, status users.UserStatus) *users.User {
	hash, err := auth.NewPasswordHasher().Hash(password)
	require.NoError(t, err)

	user := &users.User{
		Email:        email,
		DisplayName:  "Jane Doe",
		Role:         "user",
		PasswordHash: hash,
		Status:       status,
	}
	_, err = server.repo.CreateUser(user)
	require.NoError(t, err)
	return user
}

func postJSON(t *testing.T, server *Server, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func TestHandleLogin(t *testing.T) {
	server := newTestServer(t, nil)
	user := seedUser(t, server, "jdoe@email.com", "Test1234!", users.StatusActive)

	w := postJSON(t, server, "/auth/login", LoginRequest{
		Email:    "jdoe@email.com",
		Password: "Test1234!",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, "jdoe@email.com", resp.User.Email)
	assert.Nil(t, resp.Preferences)

	// The response body never carries the password hash
	assert.NotContains(t, w.Body.String(), "passwordHash")
	assert.NotContains(t, w.Body.String(), "password_hash")

	// A session row exists keyed by the digest of the returned token
	session, err := server.repo.GetSessionByTokenHash(auth.NewOpaqueTokenGenerator().Hash(resp.Token))
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, user.ID, session.UserID)
}

func TestHandleLogin_Failures(t *testing.T) {
	server := newTestServer(t, nil)
	seedUser(t, server, "jdoe@email.com", "Test1234!", users.StatusActive)
	seedUser(t, server, "blocked@email.com", "Test1234!", users.StatusBlocked)

	tests := []struct {
		name       string
		body       LoginRequest
		wantStatus int
	}{
		{"wrong password", LoginRequest{Email: "jdoe@email.com", Password: "Wrong1234!"}, http.StatusUnauthorized},
		{"unknown user", LoginRequest{Email: "nobody@email.com", Password: "Test1234!"}, http.StatusUnauthorized},
		{"blocked account with correct credentials", LoginRequest{Email: "blocked@email.com", Password: "Test1234!"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, server, "/auth/login", tt.body, nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}

	t.Run("missing fields", func(t *testing.T) {
		w := postJSON(t, server, "/auth/login", map[string]string{"email": "jdoe@email.com"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleLogin_FailureMessagesDoNotEnumerate(t *testing.T) {
	server := newTestServer(t, nil)
	seedUser(t, server, "jdoe@email.com", "Test1234!", users.StatusActive)

	unknown := postJSON(t, server, "/auth/login", LoginRequest{Email: "nobody@email.com", Password: "Test1234!"}, nil)
	wrongPassword := postJSON(t, server, "/auth/login", LoginRequest{Email: "jdoe@email.com", Password: "Wrong1234!"}, nil)

	// Identical wire responses for unknown user and wrong password
	assert.Equal(t, unknown.Code, wrongPassword.Code)
	assert.Equal(t, unknown.Body.String(), wrongPassword.Body.String())
}

func TestHandleLogout(t *testing.T) {
	server := newTestServer(t, nil)
	user := seedUser(t, server, "jdoe@email.com", "Test1234!", users.StatusActive)

	login := postJSON(t, server, "/auth/login", LoginRequest{Email: "jdoe@email.com", Password: "Test1234!"}, nil)
	require.Equal(t, http.StatusOK, login.Code)

	first := postJSON(t, server, "/auth/logout", LogoutRequest{Email: "jdoe@email.com"}, nil)
	assert.Equal(t, http.StatusOK, first.Code)

	sessions, err := server.repo.SessionsForUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// Logout is idempotent
	second := postJSON(t, server, "/auth/logout", LogoutRequest{Email: "jdoe@email.com"}, nil)
	assert.Equal(t, http.StatusOK, second.Code)

	unknown := postJSON(t, server, "/auth/logout", LogoutRequest{Email: "nobody@email.com"}, nil)
	assert.Equal(t, http.StatusNotFound, unknown.Code)
}

func TestHandleResetPassword(t *testing.T) {
	server := newTestServer(t, nil)
	seedUser(t, server, "jdoe@email.com", "Test1234!", users.StatusActive)

	w := postJSON(t, server, "/auth/reset-password", ResetPasswordRequest{
		Email:       "jdoe@email.com",
		NewPassword: "Fresh1234!",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// The new password logs in
	login := postJSON(t, server, "/auth/login", LoginRequest{Email: "jdoe@email.com", Password: "Fresh1234!"}, nil)
	assert.Equal(t, http.StatusOK, login.Code)

	unknown := postJSON(t, server, "/auth/reset-password", ResetPasswordRequest{
		Email:       "nobody@email.com",
		NewPassword: "Fresh1234!",
	}, nil)
	assert.Equal(t, http.StatusNotFound, unknown.Code)
}

func TestHandleChangePassword(t *testing.T) {
	server := newTestServer(t, nil)
	user := seedUser(t, server, "jdoe@email.com", "Test1234!", users.StatusActive)

	identityHeaders := map[string]string{
		identity.HeaderUserID: "1",
	}
	require.Equal(t, uint(1), user.ID)

	t.Run("unauthenticated", func(t *testing.T) {
		w := postJSON(t, server, "/auth/change-password", ChangePasswordRequest{
			CurrentPassword: "Test1234!",
			NewPassword:     "Fresh1234!",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong current password", func(t *testing.T) {
		w := postJSON(t, server, "/auth/change-password", ChangePasswordRequest{
			CurrentPassword: "Wrong1234!",
			NewPassword:     "Fresh1234!",
		}, identityHeaders)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("new equals old", func(t *testing.T) {
		w := postJSON(t, server, "/auth/change-password", ChangePasswordRequest{
			CurrentPassword: "Test1234!",
			NewPassword:     "Test1234!",
		}, identityHeaders)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("too short", func(t *testing.T) {
		w := postJSON(t, server, "/auth/change-password", ChangePasswordRequest{
			CurrentPassword: "Test1234!",
			NewPassword:     "short",
		}, identityHeaders)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		w := postJSON(t, server, "/auth/change-password", ChangePasswordRequest{
			CurrentPassword: "Test1234!",
			NewPassword:     "Fresh1234!",
		}, identityHeaders)
		assert.Equal(t, http.StatusOK, w.Code)

		login := postJSON(t, server, "/auth/login", LoginRequest{Email: "jdoe@email.com", Password: "Fresh1234!"}, nil)
		assert.Equal(t, http.StatusOK, login.Code)
	})
}

func TestHandleMe(t *testing.T) {
	server := newTestServer(t, nil)
	user := seedUser(t, server, "jdoe@email.com", "Test1234!", users.StatusActive)

	login := postJSON(t, server, "/auth/login", LoginRequest{Email: "jdoe@email.com", Password: "Test1234!"}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	var loginResp LoginResponse
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &loginResp))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Token)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var profile UserPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, "jdoe@email.com", profile.Email)

	// Without any identity the endpoint requires authentication
	req = httptest.NewRequest(http.MethodGet, "/users/me", nil)
	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlePreferences(t *testing.T) {
	server := newTestServer(t, nil)
	user := seedUser(t, server, "jdoe@email.com", "Test1234!", users.StatusActive)
	require.Equal(t, uint(1), user.ID)

	headers := map[string]string{identity.HeaderUserID: "1"}

	t.Run("get before any are stored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me/preferences", nil)
		req.Header.Set(identity.HeaderUserID, "1")
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("put then get", func(t *testing.T) {
		body, err := json.Marshal(PreferencesUpdateRequest{
			Theme:        "high-contrast",
			FontScale:    1.5,
			ReduceMotion: true,
			ScreenReader: true,
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPut, "/users/me/preferences", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest(http.MethodGet, "/users/me/preferences", nil)
		req.Header.Set(identity.HeaderUserID, "1")
		w = httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var prefs PreferencesPayload
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prefs))
		assert.Equal(t, "high-contrast", prefs.Theme)
		assert.Equal(t, 1.5, prefs.FontScale)
		assert.True(t, prefs.ReduceMotion)
	})

	t.Run("invalid payload", func(t *testing.T) {
		body := []byte(`{"theme":"neon","fontScale":99}`)
		req := httptest.NewRequest(http.MethodPut, "/users/me/preferences", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(identity.HeaderUserID, "1")
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Database)
}
