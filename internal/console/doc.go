// Package console implements the admin panel controller for the
// cosmic-watch backend.
//
// # Overview
//
// The Controller is a session-scoped object owning the authentication
// state (a bearer token persisted across console sessions), the displayed
// user directory, the in-progress edit or delete target, and the GPS
// picker's widget lifecycle. Operator actions drive state transitions and
// backend requests; outcomes are emitted as render instructions through
// the Renderer interface, so the controller can be exercised without any
// live UI.
//
// # Authentication
//
//	StateLoggedOut -> StateValidating -> StateLoggedIn
//	StateLoggedIn  -> StateLoggedOut (logout or validation failure)
//
// A persisted token is validated lazily at startup. Only accounts with
// the admin role ever reach StateLoggedIn; a successful login as a
// non-admin account is treated as a failure and no token is stored.
//
// # User directory
//
// The directory is fetched in full on every listing; the controller holds
// a transient copy only long enough to format rows. Overlapping fetches
// are sequence-gated: a stale response is dropped rather than rendered.
// The protected account's row never exposes a delete action.
//
// # Edit and delete sessions
//
// At most one edit session is active at a time, either creating or
// editing. Opening a form resets the GPS picker so its widget is rebuilt
// around the new form values. Deletion is a two-step confirmation; the
// recorded target is cleared when the dialog closes, confirmed or not.
package console
