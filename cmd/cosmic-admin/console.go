// ABOUTME: Interactive console mode driving the admin controller from a REPL.
// ABOUTME: Implements the controller's Renderer boundary for a terminal.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/cosmicwatch/station-console/internal/config"
	"github.com/cosmicwatch/station-console/internal/console"
	"github.com/cosmicwatch/station-console/internal/geo"
	"github.com/cosmicwatch/station-console/internal/mapwidget"
)

func cmdConsole(env *environment) error {
	store, err := env.openJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	r := &termRenderer{out: os.Stdout}
	picker := consolePicker(env.cfg, os.Stdout)
	ctrl := console.NewController(env.client, env.tokens, r,
		console.WithProtectedAccount(env.cfg.Admin.ProtectedAccount),
		console.WithJournal(store),
		console.WithPicker(picker),
	)

	ctx := context.Background()
	ctrl.Start(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	green := color.New(color.FgGreen)

	for {
		if ctrl.State() != console.StateLoggedIn {
			if !promptLogin(ctx, ctrl, scanner) {
				return scanner.Err()
			}
			continue
		}

		green.Print("cosmic> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "list", "ls":
			ctrl.RefreshUsers(ctx)
		case "add", "create":
			ctrl.BeginCreate()
			promptForm(ctx, ctrl, picker, r, scanner)
		case "edit":
			if len(args) < 1 {
				color.Red("usage: edit <id>\n")
				continue
			}
			ctrl.BeginEdit(ctx, args[0])
			promptForm(ctx, ctrl, picker, r, scanner)
		case "map":
			picker.Toggle()
		case "rm", "delete":
			if len(args) < 1 {
				color.Red("usage: rm <id>\n")
				continue
			}
			ctrl.RequestDelete(args[0])
			promptDeleteConfirm(ctx, ctrl, scanner)
		case "logout":
			ctrl.Logout()
		case "help":
			fmt.Println("Commands: list, add, edit <id>, rm <id>, map, logout, quit")
		case "quit", "exit":
			return nil
		default:
			color.Red("Unknown command: %s (try help)\n", cmd)
		}
	}
}

// promptLogin collects credentials. Returns false on EOF.
func promptLogin(ctx context.Context, ctrl *console.Controller, scanner *bufio.Scanner) bool {
	fmt.Print("User ID (or 'quit'): ")
	if !scanner.Scan() {
		fmt.Println()
		return false
	}
	id := strings.TrimSpace(scanner.Text())
	if id == "quit" || id == "exit" {
		return false
	}
	if id == "" {
		return true
	}

	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		color.Red("reading password: %v\n", err)
		return true
	}

	ctrl.Login(ctx, id, string(pw))
	return true
}

// promptForm walks the open form's fields and submits. A closed form
// (failed edit lookup) is a no-op.
func promptForm(ctx context.Context, ctrl *console.Controller, picker *mapwidget.Picker, r *termRenderer, scanner *bufio.Scanner) {
	if !r.formOpen {
		return
	}
	form := r.form

	in := console.FormInput{ID: form.ID}
	if !form.Editing {
		in.ID = promptLine(scanner, "User ID", "")
	}

	label := "Password"
	if !form.PasswordRequired {
		label = "Password (blank = unchanged)"
	}
	fmt.Printf("%s: ", label)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err == nil {
		in.Password = string(pw)
	}

	in.Comment = promptLine(scanner, "Comment", form.Comment)
	in.Latitude = promptLine(scanner, "GPS latitude (blank = none)", form.Latitude)
	in.Longitude = promptLine(scanner, "GPS longitude (blank = none)", form.Longitude)
	picker.InputChanged(in.Latitude, in.Longitude)

	ctrl.SubmitForm(ctx, in)
	if r.formOpen {
		// Save failed. A line-based prompt cannot hold the form open, so
		// discard the session and let the operator start over.
		ctrl.CancelForm()
	}
}

func promptLine(scanner *bufio.Scanner, label, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	if !scanner.Scan() {
		return current
	}
	line := scanner.Text()
	if strings.TrimSpace(line) == "" {
		return current
	}
	return line
}

func promptDeleteConfirm(ctx context.Context, ctrl *console.Controller, scanner *bufio.Scanner) {
	target := ctrl.PendingDelete()
	if target == "" {
		return
	}
	fmt.Printf("Delete user %q? This cannot be undone. [y/N] ", target)
	if !scanner.Scan() {
		ctrl.DismissDelete()
		return
	}
	answer := strings.TrimSpace(scanner.Text())
	if answer == "y" || answer == "Y" || answer == "yes" {
		ctrl.ConfirmDelete(ctx)
		return
	}
	ctrl.DismissDelete()
}

// termRenderer draws the controller's render instructions on a terminal.
// Banners become colored lines; dismissal is meaningless once printed.
type termRenderer struct {
	out      *os.File
	form     console.FormView
	formOpen bool
}

func (r *termRenderer) ShowLogin(errorMessage string) {
	if errorMessage != "" {
		color.Red("%s\n", errorMessage)
	}
}

func (r *termRenderer) ShowDashboard(userID string) {
	color.New(color.FgCyan).Fprintf(r.out, "\nSigned in as %s\n", userID)
}

func (r *termRenderer) SetUserList(state console.ListState, rows []console.UserRow, errorMessage string) {
	switch state {
	case console.ListLoading:
		fmt.Fprintln(r.out, "Loading users...")
	case console.ListError:
		color.Red("%s\n", errorMessage)
	case console.ListReady:
		w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  ID\tROLE\tCOMMENT\tGPS\tCREATED\tLAST LOGIN\t")
		fmt.Fprintln(w, "  --\t----\t-------\t---\t-------\t----------\t")
		for _, row := range rows {
			id := row.ID
			if !row.CanDelete {
				id += " (protected)"
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\t\n",
				id, row.Role, truncate(row.Comment, 24), row.Location, row.Created, row.LastLogin)
		}
		w.Flush()
	}
}

func (r *termRenderer) ShowUserForm(form console.FormView) {
	r.form = form
	r.formOpen = true
	color.New(color.FgCyan).Fprintf(r.out, "\n%s\n", form.Title)
}

func (r *termRenderer) CloseUserForm() {
	r.formOpen = false
}

func (r *termRenderer) ShowDeleteConfirm(userID string) {}

func (r *termRenderer) CloseDeleteConfirm() {}

func (r *termRenderer) ShowNotification(n console.Notification) {
	if n.Kind == console.NoticeError {
		color.Red("✗ %s\n", n.Message)
		return
	}
	color.Green("✓ %s\n", n.Message)
}

func (r *termRenderer) DismissNotification(id string) {}

// consolePicker builds the GPS picker for the interactive console, with
// the configured default map view. Geolocation has no terminal source, so
// the locator is absent.
func consolePicker(cfg *config.Config, out io.Writer) *mapwidget.Picker {
	center := geo.Coordinate{Lat: cfg.Map.DefaultLatitude, Lon: cfg.Map.DefaultLongitude}
	return mapwidget.NewPicker(
		textMapFactory(out),
		nil,
		&pickerControls{},
		termNotifier{},
		mapwidget.WithDefaultView(center, cfg.Map.DefaultZoom),
	)
}

// pickerControls absorbs the picker's widget-chrome instructions; a line
// terminal has no persistent inputs or toggle button to update.
type pickerControls struct {
	lat, lon string
}

func (c *pickerControls) SetMapVisible(visible bool)  {}
func (c *pickerControls) SetToggleLabel(label string) {}
func (c *pickerControls) SetInputs(lat, lon string)   { c.lat, c.lon = lat, lon }
func (c *pickerControls) SetLocateBusy(busy bool)     {}

// termNotifier prints picker outcomes in the same shape as the
// controller's notification banners.
type termNotifier struct{}

func (termNotifier) Success(message string) { color.Green("✓ %s\n", message) }
func (termNotifier) Error(message string)   { color.Red("✗ %s\n", message) }

// textMapView stands in for the interactive map widget: view changes
// print as console lines, markers and size bookkeeping have no terminal
// representation.
type textMapView struct {
	out  io.Writer
	zoom int
}

func textMapFactory(out io.Writer) mapwidget.Factory {
	return func(center geo.Coordinate, zoom int, onClick func(geo.Coordinate)) mapwidget.MapView {
		v := &textMapView{out: out, zoom: zoom}
		v.SetView(center, zoom)
		return v
	}
}

func (v *textMapView) SetView(center geo.Coordinate, zoom int) {
	v.zoom = zoom
	fmt.Fprintf(v.out, "  Map centered at %s (zoom %d)\n", geo.DisplayPair(center), zoom)
}

func (v *textMapView) Zoom() int { return v.zoom }

func (v *textMapView) PlaceMarker(c geo.Coordinate) {}

func (v *textMapView) MoveMarker(c geo.Coordinate) {}

func (v *textMapView) RemoveMarker() {}

func (v *textMapView) ShowPopup(title string, c geo.Coordinate) {
	fmt.Fprintf(v.out, "  %s: %s\n", title, geo.DisplayPair(c))
}

func (v *textMapView) InvalidateSize() {}

func (v *textMapView) Remove() {}
