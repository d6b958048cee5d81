// ABOUTME: Render instruction types forming the controller's view boundary.
// ABOUTME: The controller emits these; hosts (CLI, web) decide how to draw them.

package console

// ListState describes what the user directory area should display.
type ListState int

const (
	// ListLoading shows the loading indicator while a fetch is in flight.
	ListLoading ListState = iota
	// ListReady shows the directory table.
	ListReady
	// ListError shows a failure state in place of the table.
	ListError
)

// UserRow is one rendered directory row. All formatting decisions (badges,
// coordinate precision, date display, whether a delete action exists) are
// made before it reaches a renderer.
type UserRow struct {
	ID        string
	Admin     bool
	Role      string
	Comment   string
	Location  string
	Created   string
	LastLogin string
	CanDelete bool
}

// FormView describes the user form to display. Editing locks the
// identifier field; PasswordRequired marks creation, where a blank
// password is rejected before any request is sent.
type FormView struct {
	Title            string
	Editing          bool
	PasswordRequired bool
	ID               string
	Comment          string
	Latitude         string
	Longitude        string
}

// FormInput carries the submitted form values back to the controller.
type FormInput struct {
	ID        string
	Password  string
	Comment   string
	Latitude  string
	Longitude string
}

// NoticeKind distinguishes banner styles and auto-dismiss delays.
type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota
	NoticeError
)

// Notification is one dismissible banner. Banners stack when triggered in
// quick succession; each is identified for targeted dismissal.
type Notification struct {
	ID      string
	Kind    NoticeKind
	Message string
}

// Renderer receives render instructions from the controller. Methods are
// invoked from whatever goroutine drove the controller, plus the timer
// goroutine for auto-dismissed notifications.
type Renderer interface {
	// ShowLogin displays the login screen with an optional error message,
	// replacing the dashboard if shown.
	ShowLogin(errorMessage string)

	// ShowDashboard displays the admin dashboard for the given account.
	ShowDashboard(userID string)

	// SetUserList updates the directory area. Rows are only meaningful in
	// ListReady; errorMessage only in ListError.
	SetUserList(state ListState, rows []UserRow, errorMessage string)

	// ShowUserForm opens (or reopens) the user form.
	ShowUserForm(form FormView)

	// CloseUserForm closes the user form.
	CloseUserForm()

	// ShowDeleteConfirm opens the delete confirmation naming the target.
	ShowDeleteConfirm(userID string)

	// CloseDeleteConfirm closes the delete confirmation.
	CloseDeleteConfirm()

	// ShowNotification inserts a banner at the top of the content area.
	ShowNotification(n Notification)

	// DismissNotification removes a banner, whether auto or manual.
	DismissNotification(id string)
}
