// ABOUTME: Session-scoped admin controller: auth state machine, user CRUD,
// ABOUTME: edit/delete sessions, and transient notifications.

package console

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cosmicwatch/station-console/internal/api"
	"github.com/cosmicwatch/station-console/internal/geo"
	"github.com/cosmicwatch/station-console/internal/journal"
	"github.com/cosmicwatch/station-console/internal/mapwidget"
)

// AuthState is the controller's authentication state.
type AuthState int

const (
	StateLoggedOut AuthState = iota
	StateValidating
	StateLoggedIn
)

// Notification auto-dismiss delays.
const (
	errorNoticeTTL   = 5 * time.Second
	successNoticeTTL = 3 * time.Second
)

const createdDateFormat = "Jan 02, 2006"

// Backend is the slice of the REST client the controller drives.
type Backend interface {
	SetToken(token string)
	Login(ctx context.Context, id, password string) (*api.LoginResponse, error)
	Validate(ctx context.Context) (*api.User, error)
	ListUsers(ctx context.Context) ([]api.User, error)
	CreateUser(ctx context.Context, req api.CreateUserRequest) (string, error)
	UpdateUser(ctx context.Context, id string, req api.UpdateUserRequest) (string, error)
	DeleteUser(ctx context.Context, id string) (string, error)
}

// TokenStore persists the bearer token across console sessions.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Clock schedules notification auto-dismissal. Tests substitute a manual
// implementation so they never sleep.
type Clock interface {
	AfterFunc(d time.Duration, f func())
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// Controller owns the admin session: the bearer token, the displayed user
// directory, the in-progress edit or delete target, and the GPS picker's
// lifecycle. All state transitions happen synchronously inside one driving
// event loop; only notification timers run elsewhere.
type Controller struct {
	backend  Backend
	tokens   TokenStore
	renderer Renderer
	picker   *mapwidget.Picker
	actions  journal.Store
	clock    Clock
	logger   *slog.Logger

	protected string

	state       AuthState
	currentUser string

	listSeq uint64

	formOpen bool
	editing  string // user being edited; empty while creating

	pendingDelete string

	noteMu sync.Mutex
	notes  []Notification
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPicker attaches the GPS picker so edit-session resets reach it.
func WithPicker(p *mapwidget.Picker) ControllerOption {
	return func(c *Controller) { c.picker = p }
}

// WithJournal records confirmed directory mutations to the given store.
func WithJournal(s journal.Store) ControllerOption {
	return func(c *Controller) { c.actions = s }
}

// WithProtectedAccount overrides the identifier exempt from deletion.
func WithProtectedAccount(id string) ControllerOption {
	return func(c *Controller) { c.protected = id }
}

// WithClock substitutes the notification timer source.
func WithClock(clock Clock) ControllerOption {
	return func(c *Controller) { c.clock = clock }
}

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// NewController creates a controller in the logged-out state. Call Start
// to restore a persisted session.
func NewController(backend Backend, tokens TokenStore, renderer Renderer, opts ...ControllerOption) *Controller {
	c := &Controller{
		backend:   backend,
		tokens:    tokens,
		renderer:  renderer,
		clock:     realClock{},
		logger:    slog.Default().With("component", "console"),
		protected: "root",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current authentication state.
func (c *Controller) State() AuthState { return c.state }

// CurrentUser returns the logged-in account identifier, or "".
func (c *Controller) CurrentUser() string { return c.currentUser }

// PendingDelete returns the recorded delete target, or "".
func (c *Controller) PendingDelete() string { return c.pendingDelete }

// Editing reports whether the open form edits an existing user, and which.
func (c *Controller) Editing() (string, bool) {
	return c.editing, c.formOpen && c.editing != ""
}

// Start restores a persisted session. With no stored token the login
// screen is shown; otherwise the token is validated lazily against the
// backend and discarded if it no longer maps to an admin account.
func (c *Controller) Start(ctx context.Context) {
	token, err := c.tokens.Load()
	if err != nil {
		c.logger.Warn("loading persisted token", "error", err)
	}
	if token == "" {
		c.state = StateLoggedOut
		c.renderer.ShowLogin("")
		return
	}

	c.state = StateValidating
	c.backend.SetToken(token)

	user, err := c.backend.Validate(ctx)
	if err != nil {
		c.logger.Info("persisted token rejected", "error", err)
		c.discardSession()
		c.renderer.ShowLogin("")
		return
	}
	if !user.Role.IsAdmin() {
		c.Error("Admin access required")
		c.discardSession()
		c.renderer.ShowLogin("")
		return
	}

	c.enterDashboard(ctx, user.ID)
}

// Login submits credentials. Only admin accounts get a persisted token;
// a valid non-admin login is treated as a failure and nothing is stored.
func (c *Controller) Login(ctx context.Context, id, password string) {
	resp, err := c.backend.Login(ctx, id, password)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			msg := apiErr.Message
			if msg == "" {
				msg = "Admin access required"
			}
			c.renderer.ShowLogin(msg)
			return
		}
		c.logger.Warn("login request failed", "error", err)
		c.renderer.ShowLogin("Network error. Please try again.")
		return
	}

	if !resp.User.Role.IsAdmin() {
		c.renderer.ShowLogin("Admin access required")
		return
	}

	c.backend.SetToken(resp.Token)
	if err := c.tokens.Save(resp.Token); err != nil {
		c.logger.Warn("persisting token", "error", err)
	}

	c.enterDashboard(ctx, resp.User.ID)
}

// Logout clears the persisted token immediately. No server call is made.
func (c *Controller) Logout() {
	c.discardSession()
	c.renderer.ShowLogin("")
}

func (c *Controller) discardSession() {
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("clearing persisted token", "error", err)
	}
	c.backend.SetToken("")
	c.state = StateLoggedOut
	c.currentUser = ""
	c.formOpen = false
	c.editing = ""
	c.pendingDelete = ""
}

func (c *Controller) enterDashboard(ctx context.Context, userID string) {
	c.state = StateLoggedIn
	c.currentUser = userID
	c.renderer.ShowDashboard(userID)
	c.RefreshUsers(ctx)
}

// RefreshUsers fetches the directory and renders it. Responses are gated
// by a monotonic sequence number: when refreshes overlap, only the latest
// request's outcome is ever rendered.
func (c *Controller) RefreshUsers(ctx context.Context) {
	if c.state != StateLoggedIn {
		return
	}

	c.listSeq++
	seq := c.listSeq
	c.renderer.SetUserList(ListLoading, nil, "")

	users, err := c.backend.ListUsers(ctx)

	if seq != c.listSeq {
		c.logger.Debug("dropping stale user list response", "seq", seq)
		return
	}

	if err != nil {
		msg := "Network error loading users"
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			msg = "Failed to load users"
		}
		c.logger.Warn("user list fetch failed", "error", err)
		c.renderer.SetUserList(ListError, nil, msg)
		c.Error(msg)
		return
	}

	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, RowFor(u, c.protected))
	}
	c.renderer.SetUserList(ListReady, rows, "")
}

// RowFor formats one directory row for a user record. The protected
// identifier's row carries no delete action.
func RowFor(u api.User, protected string) UserRow {
	row := UserRow{
		ID:        u.ID,
		Admin:     u.Role.IsAdmin(),
		Role:      string(u.Role),
		Comment:   u.Comment,
		Location:  "-",
		Created:   u.CreatedAt.Format(createdDateFormat),
		LastLogin: "Never",
		CanDelete: u.ID != protected,
	}
	if row.Comment == "" {
		row.Comment = "-"
	}
	if u.GPSLatitude != nil && u.GPSLongitude != nil {
		if coord, ok := geo.Parse(*u.GPSLatitude, *u.GPSLongitude); ok {
			row.Location = "📍 " + geo.DisplayPair(coord)
		}
	}
	if u.LastLogin != nil {
		row.LastLogin = u.LastLogin.Format(createdDateFormat)
	}
	return row
}

// BeginCreate opens an empty form. The identifier is editable and a
// password is required.
func (c *Controller) BeginCreate() {
	if c.state != StateLoggedIn {
		return
	}
	c.formOpen = true
	c.editing = ""
	c.resetPicker("", "")
	c.renderer.ShowUserForm(FormView{
		Title:            "Add User",
		PasswordRequired: true,
	})
}

// BeginEdit locates the target in a fresh directory fetch and opens the
// form pre-filled. There is no single-user endpoint; the full list is
// fetched and filtered here.
func (c *Controller) BeginEdit(ctx context.Context, userID string) {
	if c.state != StateLoggedIn {
		return
	}

	users, err := c.backend.ListUsers(ctx)
	if err != nil {
		c.logger.Warn("edit target fetch failed", "error", err, "user", userID)
		c.Error("Failed to load user data")
		return
	}

	for _, u := range users {
		if u.ID != userID {
			continue
		}
		lat, lon := "", ""
		if u.GPSLatitude != nil {
			lat = *u.GPSLatitude
		}
		if u.GPSLongitude != nil {
			lon = *u.GPSLongitude
		}

		c.formOpen = true
		c.editing = userID
		c.resetPicker(lat, lon)
		c.renderer.ShowUserForm(FormView{
			Title:     "Edit User",
			Editing:   true,
			ID:        u.ID,
			Comment:   u.Comment,
			Latitude:  lat,
			Longitude: lon,
		})
		return
	}

	c.Error("Failed to load user data")
}

// SubmitForm validates and sends the pending create or update. On failure
// the form stays open with the entered values intact.
func (c *Controller) SubmitForm(ctx context.Context, in FormInput) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		c.Error("User ID is required")
		return
	}

	creating := c.editing == ""
	password := in.Password
	if strings.TrimSpace(password) == "" {
		password = ""
	}
	if creating && password == "" {
		c.Error("Password is required for new users")
		return
	}

	lat := optionalCoordinate(in.Latitude)
	lon := optionalCoordinate(in.Longitude)

	var (
		message string
		err     error
		action  string
		target  string
	)
	if creating {
		action, target = journal.ActionCreate, id
		message, err = c.backend.CreateUser(ctx, api.CreateUserRequest{
			ID:           id,
			Password:     password,
			Comment:      in.Comment,
			GPSLatitude:  lat,
			GPSLongitude: lon,
		})
	} else {
		action, target = journal.ActionUpdate, c.editing
		req := api.UpdateUserRequest{
			Comment:      in.Comment,
			GPSLatitude:  lat,
			GPSLongitude: lon,
		}
		if password != "" {
			req.Password = &password
		}
		message, err = c.backend.UpdateUser(ctx, c.editing, req)
	}

	if err != nil {
		msg := "Network error saving user"
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
			if msg == "" {
				msg = "Failed to save user"
			}
		}
		c.logger.Warn("save user failed", "error", err, "user", target)
		c.Error(msg)
		return
	}

	c.formOpen = false
	c.editing = ""
	if c.picker != nil {
		c.picker.Reset()
	}
	c.renderer.CloseUserForm()
	c.Success(message)
	c.record(ctx, action, target, message)
	c.RefreshUsers(ctx)
}

// CancelForm discards the edit session without saving.
func (c *Controller) CancelForm() {
	if !c.formOpen {
		return
	}
	c.formOpen = false
	c.editing = ""
	if c.picker != nil {
		c.picker.Reset()
	}
	c.renderer.CloseUserForm()
}

// RequestDelete records the target and opens the confirmation dialog.
func (c *Controller) RequestDelete(userID string) {
	if c.state != StateLoggedIn {
		return
	}
	c.pendingDelete = userID
	c.renderer.ShowDeleteConfirm(userID)
}

// ConfirmDelete issues the delete for the recorded target. On success the
// dialog closes and the directory refreshes; on failure the dialog stays
// open, target intact, so the operator can retry or dismiss.
func (c *Controller) ConfirmDelete(ctx context.Context) {
	if c.pendingDelete == "" {
		return
	}
	target := c.pendingDelete

	message, err := c.backend.DeleteUser(ctx, target)
	if err != nil {
		msg := "Network error deleting user"
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
			if msg == "" {
				msg = "Failed to delete user"
			}
		}
		c.logger.Warn("delete user failed", "error", err, "user", target)
		c.Error(msg)
		return
	}

	c.pendingDelete = ""
	c.renderer.CloseDeleteConfirm()
	c.Success(message)
	c.record(ctx, journal.ActionDelete, target, message)
	c.RefreshUsers(ctx)
}

// DismissDelete closes the confirmation dialog and clears the recorded
// target, so a later unrelated confirm can never act on it.
func (c *Controller) DismissDelete() {
	c.pendingDelete = ""
	c.renderer.CloseDeleteConfirm()
}

// Success shows a success banner that auto-dismisses after three seconds.
func (c *Controller) Success(message string) {
	c.notify(NoticeSuccess, message, successNoticeTTL)
}

// Error shows an error banner that auto-dismisses after five seconds.
func (c *Controller) Error(message string) {
	c.notify(NoticeError, message, errorNoticeTTL)
}

// Dismiss removes a banner before its timer fires.
func (c *Controller) Dismiss(id string) {
	c.dismissNotification(id)
}

// Notifications returns the currently displayed banners.
func (c *Controller) Notifications() []Notification {
	c.noteMu.Lock()
	defer c.noteMu.Unlock()
	out := make([]Notification, len(c.notes))
	copy(out, c.notes)
	return out
}

func (c *Controller) notify(kind NoticeKind, message string, ttl time.Duration) {
	n := Notification{ID: uuid.NewString(), Kind: kind, Message: message}

	c.noteMu.Lock()
	c.notes = append(c.notes, n)
	c.noteMu.Unlock()

	c.renderer.ShowNotification(n)
	c.clock.AfterFunc(ttl, func() { c.dismissNotification(n.ID) })
}

func (c *Controller) dismissNotification(id string) {
	c.noteMu.Lock()
	found := false
	for i, n := range c.notes {
		if n.ID == id {
			c.notes = append(c.notes[:i], c.notes[i+1:]...)
			found = true
			break
		}
	}
	c.noteMu.Unlock()

	if found {
		c.renderer.DismissNotification(id)
	}
}

// resetPicker applies the edit-session reset and seeds the coordinate
// inputs with the (possibly new) form values.
func (c *Controller) resetPicker(lat, lon string) {
	if c.picker == nil {
		return
	}
	c.picker.Reset()
	c.picker.Seed(lat, lon)
}

func (c *Controller) record(ctx context.Context, action, userID, message string) {
	if c.actions == nil {
		return
	}
	if err := c.actions.Record(ctx, action, userID, message); err != nil {
		c.logger.Warn("recording action", "error", err, "action", action, "user", userID)
	}
}

// optionalCoordinate maps an absent input to nil rather than an empty
// string, matching what the backend expects for cleared coordinates.
func optionalCoordinate(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
