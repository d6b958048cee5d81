// ABOUTME: REST client for the cosmic-watch measurement backend.
// ABOUTME: Covers login, token validation, and the admin user endpoints.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds each backend request when the caller's context
// carries no earlier deadline.
const DefaultTimeout = 15 * time.Second

// Role is an account role as reported by the backend.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// IsAdmin reports whether the role grants access to the admin panel.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// User is a backend user record. The client holds a transient copy fetched
// on each directory listing; the backend owns the data.
type User struct {
	ID           string     `json:"id"`
	Role         Role       `json:"role"`
	Comment      string     `json:"comment"`
	GPSLatitude  *string    `json:"gps_latitude"`
	GPSLongitude *string    `json:"gps_longitude"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

// LoginResponse is the body of a successful POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// CreateUserRequest is the body for POST /admin/users. Nil coordinates are
// serialized as null, never as empty strings.
type CreateUserRequest struct {
	ID           string  `json:"id"`
	Password     string  `json:"password"`
	Comment      string  `json:"comment"`
	GPSLatitude  *string `json:"gps_latitude"`
	GPSLongitude *string `json:"gps_longitude"`
}

// UpdateUserRequest is the body for PUT /admin/users/{id}. A nil Password
// leaves the stored password unchanged and is omitted from the wire body.
type UpdateUserRequest struct {
	Comment      string  `json:"comment"`
	Password     *string `json:"password,omitempty"`
	GPSLatitude  *string `json:"gps_latitude"`
	GPSLongitude *string `json:"gps_longitude"`
}

// APIError is a failure reported by the backend, carrying the message from
// the response's error field when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Client talks to the backend REST API. All authenticated requests carry
// the bearer token set via SetToken. Client methods are safe to call from
// a single event loop; the token is not guarded for concurrent mutation.
type Client struct {
	baseURL string
	httpc   *http.Client
	timeout time.Duration
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithTimeout overrides the per-request timeout. Non-positive values keep
// the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		c.timeout = d
		c.httpc.Timeout = d
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: DefaultTimeout},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken installs the bearer token used for authenticated requests.
// An empty string clears it.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the currently installed bearer token.
func (c *Client) Token() string { return c.token }

// Login authenticates with the backend and returns the issued token and
// the account. The caller decides whether to keep the token; Login itself
// never installs it.
func (c *Client) Login(ctx context.Context, id, password string) (*LoginResponse, error) {
	body := struct {
		ID       string `json:"id"`
		Password string `json:"password"`
	}{ID: id, Password: password}

	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Validate checks the installed token and returns the account bound to it.
func (c *Client) Validate(ctx context.Context) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/validate", nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ListUsers fetches the full user directory.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// CreateUser creates a user and returns the server's confirmation message.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (string, error) {
	return c.mutate(ctx, http.MethodPost, "/admin/users", req)
}

// UpdateUser updates a user and returns the server's confirmation message.
func (c *Client) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (string, error) {
	return c.mutate(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id), req)
}

// DeleteUser deletes a user and returns the server's confirmation message.
func (c *Client) DeleteUser(ctx context.Context, id string) (string, error) {
	return c.mutate(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil)
}

func (c *Client) mutate(ctx context.Context, method, path string, body any) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, method, path, body, true, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// do issues one request and decodes the JSON response into out. Non-2xx
// responses are returned as *APIError with the server's error message.
func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
