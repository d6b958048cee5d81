// ABOUTME: Tests for the backend REST client using an httptest server.
// ABOUTME: Covers auth headers, error decoding, and the password wire rules.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		// Login must not carry a bearer token even when one is installed.
		require.Empty(t, r.Header.Get("Authorization"))

		var body struct {
			ID       string `json:"id"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "root", body.ID)
		assert.Equal(t, "hunter2", body.Password)

		json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-123",
			"user":  map[string]any{"id": "root", "role": "admin"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("stale")
	resp, err := c.Login(context.Background(), "root", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", resp.Token)
	assert.Equal(t, "root", resp.User.ID)
	assert.True(t, resp.User.Role.IsAdmin())
	// Login never installs the new token on its own.
	assert.Equal(t, "stale", c.Token())
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Login(context.Background(), "root", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Error())
}

func TestValidateSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/validate", r.URL.Path)
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": "root", "role": "admin"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok-123")
	user, err := c.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "root", user.ID)
}

func TestListUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/users", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]any{
				{"id": "root", "role": "admin", "created_at": "2024-01-15T00:00:00Z"},
				{"id": "alice", "role": "user", "gps_latitude": "35.0", "gps_longitude": "139.0",
					"created_at": "2024-02-01T00:00:00Z", "last_login": "2024-03-01T12:00:00Z"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok")
	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Nil(t, users[0].GPSLatitude)
	assert.Nil(t, users[0].LastLogin)
	require.NotNil(t, users[1].GPSLatitude)
	assert.Equal(t, "35.0", *users[1].GPSLatitude)
	require.NotNil(t, users[1].LastLogin)
}

func TestUpdateUserOmitsNilPassword(t *testing.T) {
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/admin/users/alice", r.URL.Path)
		var err error
		raw, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		json.NewEncoder(w).Encode(map[string]string{"message": "User updated successfully"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok")
	msg, err := c.UpdateUser(context.Background(), "alice", UpdateUserRequest{Comment: "ops"})
	require.NoError(t, err)
	assert.Equal(t, "User updated successfully", msg)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "password")
	// Absent coordinates still travel as explicit nulls.
	assert.Contains(t, fields, "gps_latitude")
	assert.Equal(t, "null", string(fields["gps_latitude"]))
}

func TestUpdateUserEscapesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/users/a%2Fb", r.URL.RawPath)
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok")
	_, err := c.UpdateUser(context.Background(), "a/b", UpdateUserRequest{})
	require.NoError(t, err)
}

func TestDeleteUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/admin/users/bob", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"message": "User deleted successfully"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok")
	msg, err := c.DeleteUser(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "User deleted successfully", msg)
}

func TestErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok")
	_, err := c.ListUsers(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "HTTP 502", apiErr.Error())
}

func TestWithTimeout(t *testing.T) {
	c := New("http://localhost:3000", WithTimeout(42*time.Second))
	assert.Equal(t, 42*time.Second, c.timeout)
	assert.Equal(t, 42*time.Second, c.httpc.Timeout)

	// Non-positive values keep the default.
	c = New("http://localhost:3000", WithTimeout(0))
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Equal(t, DefaultTimeout, c.httpc.Timeout)
}

func TestNetworkErrorIsNotAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New(srv.URL)
	_, err := c.ListUsers(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
