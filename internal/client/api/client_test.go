package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, 5*time.Second), srv
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func TestRegisterSuccess(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "ok"})
	}))
	defer srv.Close()

	err := client.Register(context.Background(), "alice", "alice@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "/api/auth/register/password", gotPath)
	assert.Equal(t, "alice", gotBody["username"])
	assert.Equal(t, "alice@example.com", gotBody["email"])
	assert.Equal(t, "password1", gotBody["password"])
}

func TestRegisterConflict(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"status":  "conflict",
			"message": "Username is already taken.",
		})
	}))
	defer srv.Close()

	err := client.Register(context.Background(), "alice", "alice@example.com", "password1")
	require.Error(t, err)

	apiErr := &APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "conflict", apiErr.Status)
	assert.Equal(t, "Username is already taken.", err.Error())
}

func TestLoginReturnsTokens(t *testing.T) {
	issued := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login/password", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "Login successful.",
			"data": map[string]any{
				"access_token":       "access-1",
				"access_expires_at":  issued.Add(15 * time.Minute),
				"refresh_token":      "refresh-1",
				"refresh_expires_at": issued.Add(time.Hour),
			},
		})
	}))
	defer srv.Close()

	pair, err := client.Login(context.Background(), "alice", "password1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", pair.AccessToken)
	assert.Equal(t, "refresh-1", pair.RefreshToken)
	assert.Equal(t, issued.Add(15*time.Minute), pair.AccessExpiresAt)
	assert.Equal(t, issued.Add(time.Hour), pair.RefreshExpiresAt)
}

func TestLoginUnauthorized(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"status":  "unauthorized",
			"message": "Invalid credentials.",
		})
	}))
	defer srv.Close()

	pair, err := client.Login(context.Background(), "alice", "wrong")
	assert.Nil(t, pair)
	assert.EqualError(t, err, "Invalid credentials.")
}

func TestRefreshSendsBothTokens(t *testing.T) {
	var gotBody map[string]string

	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/refreshtoken", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"data": map[string]any{
				"access_token":  "access-2",
				"refresh_token": "refresh-2",
			},
		})
	}))
	defer srv.Close()

	pair, err := client.Refresh(context.Background(), "access-1", "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", gotBody["access_token"])
	assert.Equal(t, "refresh-1", gotBody["refresh_token"])
	assert.Equal(t, "access-2", pair.AccessToken)
	assert.Equal(t, "refresh-2", pair.RefreshToken)
}

func TestLogoutSendsBearer(t *testing.T) {
	var gotAuth string

	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/logout", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Logged out."})
	}))
	defer srv.Close()

	require.NoError(t, client.Logout(context.Background(), "access-1"))
	assert.Equal(t, "Bearer access-1", gotAuth)
}

func TestPromoteAdminForbidden(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/admin/create", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusForbidden, map[string]string{
			"status":  "forbidden",
			"message": "Admin role required.",
		})
	}))
	defer srv.Close()

	err := client.PromoteAdmin(context.Background(), "access-1", "bob")
	assert.EqualError(t, err, "Admin role required.")
}

func TestVerifyPassesTokenAsQueryParam(t *testing.T) {
	var gotToken string

	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/auth/verify", r.URL.Path)
		gotToken = r.URL.Query().Get("token")
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Email verified."})
	}))
	defer srv.Close()

	require.NoError(t, client.Verify(context.Background(), "tok en+special"))
	assert.Equal(t, "tok en+special", gotToken)
}

func TestServerUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, time.Second)
	err := client.Register(context.Background(), "alice", "a@example.com", "password1")
	assert.ErrorContains(t, err, "server unavailable")
}
