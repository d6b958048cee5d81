// ABOUTME: Operator CLI for managing cosmic-watch station accounts.
// ABOUTME: Talks to the backend REST API with bearer-token authentication.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/cosmicwatch/station-console/internal/api"
	"github.com/cosmicwatch/station-console/internal/config"
	"github.com/cosmicwatch/station-console/internal/console"
	"github.com/cosmicwatch/station-console/internal/credstore"
	"github.com/cosmicwatch/station-console/internal/journal"
)

const banner = `
                          _                      _       _
  ___ ___  ___ _ __ ___  (_) ___       __ _  __| |_ __ ___ (_)_ __
 / __/ _ \/ __| '_ ' _ \ | |/ __|____ / _' |/ _' | '_ ' _ \| | '_ \
| (_| (_) \__ \ | | | | || | (_|_____| (_| | (_| | | | | | | | | | |
 \___\___/|___/_| |_| |_||_|\___|     \__,_|\__,_|_| |_| |_|_|_| |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	env, err := loadEnv()
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(setupLogger(env.cfg.Logging))

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "login":
		err = cmdLogin(env, args)
	case "logout":
		err = cmdLogout(env)
	case "status":
		err = cmdStatus(env)
	case "users":
		err = cmdUsers(env, args)
	case "history":
		err = cmdHistory(env, args)
	case "console":
		err = cmdConsole(env)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: cosmic-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  login                    Log in and store the session token")
	fmt.Println("  logout                   Clear the stored session token")
	fmt.Println("  status                   Show backend reachability and identity")
	fmt.Println("  users                    List user accounts")
	fmt.Println("  users list               List user accounts")
	fmt.Println("  users create             Create an account")
	fmt.Println("  users update <id>        Update an account")
	fmt.Println("  users delete <id>        Delete an account (with confirmation)")
	fmt.Println("  history                  Show recent admin actions from the local journal")
	fmt.Println("  console                  Interactive admin console")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  COSMIC_SERVER_URL        Backend base URL (default: http://localhost:3000)")
	fmt.Println("  COSMIC_TOKEN             Session token (overrides the stored token)")
	fmt.Println("  COSMIC_CONFIG            Config file path (default: ~/.config/cosmic-watch/config.yaml)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  cosmic-admin login")
	fmt.Println("  cosmic-admin users")
	fmt.Println("  cosmic-admin users create --id alice --comment 'Tokyo rooftop' --lat 35.6762 --lon 139.6503")
	fmt.Println("  cosmic-admin users delete alice")
	fmt.Println()
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Logs go to stderr so tables and prompts on stdout stay clean.
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// environment bundles what every command needs: config, the API client,
// and the token store.
type environment struct {
	cfg    *config.Config
	client *api.Client
	tokens *credstore.FileStore
}

// loadEnv assembles the command environment. COSMIC_TOKEN, when set,
// overrides the stored token without touching it.
func loadEnv() (*environment, error) {
	path := os.Getenv("COSMIC_CONFIG")
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if url := os.Getenv("COSMIC_SERVER_URL"); url != "" {
		cfg.Server.URL = url
	}

	tokens, err := credstore.NewFileStore()
	if err != nil {
		return nil, err
	}

	client := api.New(cfg.Server.URL, api.WithTimeout(cfg.Server.Timeout))
	if token := os.Getenv("COSMIC_TOKEN"); token != "" {
		client.SetToken(token)
	} else if token, err := tokens.Load(); err == nil {
		client.SetToken(token)
	}

	return &environment{cfg: cfg, client: client, tokens: tokens}, nil
}

func (e *environment) openJournal() (journal.Store, error) {
	path := e.cfg.Journal.Path
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(filepath.Dir(p), "journal.db")
	}
	return journal.NewSQLiteStore(path)
}

func cmdLogin(env *environment, args []string) error {
	var id string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--id", "-i":
			if i+1 < len(args) {
				id = args[i+1]
				i++
			}
		}
	}

	if id == "" {
		fmt.Print("User ID: ")
		if _, err := fmt.Scanln(&id); err != nil {
			return fmt.Errorf("reading user id: %w", err)
		}
	}

	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	resp, err := env.client.Login(context.Background(), id, string(pw))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if !resp.User.Role.IsAdmin() {
		return fmt.Errorf("admin access required (account role is %q)", resp.User.Role)
	}

	if err := env.tokens.Save(resp.Token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Logged in as %s\n", resp.User.ID)
	if exp, ok := credstore.TokenExpiry(resp.Token); ok {
		fmt.Printf("  Session expires: %s\n", time.Unix(exp, 0).Format(time.RFC3339))
	}
	return nil
}

func cmdLogout(env *environment) error {
	if err := env.tokens.Clear(); err != nil {
		return err
	}
	color.New(color.FgGreen).Println("✓ Logged out")
	return nil
}

func cmdStatus(env *environment) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Printf("  Backend:  %s\n", env.cfg.Server.URL)

	if env.client.Token() == "" {
		yellow.Println("  Identity: (not logged in - run cosmic-admin login)")
		fmt.Println()
		return nil
	}

	user, err := env.client.Validate(context.Background())
	if err != nil {
		yellow.Printf("  Identity: ")
		color.Red("validation failed (%v)\n", err)
		fmt.Println()
		return nil
	}

	green.Printf("  Identity: ")
	fmt.Printf("%s (%s)\n", user.ID, user.Role)
	if exp, ok := credstore.TokenExpiry(env.client.Token()); ok {
		fmt.Printf("  Expires:  %s\n", time.Unix(exp, 0).Format(time.RFC3339))
	}
	fmt.Println()
	return nil
}

func cmdUsers(env *environment, args []string) error {
	subcmd := "list"
	if len(args) > 0 {
		subcmd = args[0]
		args = args[1:]
	}

	switch subcmd {
	case "list", "ls":
		return cmdUsersList(env)
	case "create", "add":
		return cmdUsersCreate(env, args)
	case "update", "edit":
		return cmdUsersUpdate(env, args)
	case "delete", "rm", "remove":
		return cmdUsersDelete(env, args)
	default:
		return fmt.Errorf("unknown users subcommand: %s (use list, create, update, delete)", subcmd)
	}
}

func cmdUsersList(env *environment) error {
	users, err := env.client.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  User Accounts")
	cyan.Println("  -------------")

	if len(users) == 0 {
		fmt.Println("  (no users)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tROLE\tCOMMENT\tGPS\tCREATED\tLAST LOGIN\t")
	fmt.Fprintln(w, "  --\t----\t-------\t---\t-------\t----------\t")

	for _, u := range users {
		row := console.RowFor(u, env.cfg.Admin.ProtectedAccount)
		id := row.ID
		if !row.CanDelete {
			id += " (protected)"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\t\n",
			id, row.Role, truncate(row.Comment, 24), row.Location, row.Created, row.LastLogin)
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdUsersCreate(env *environment, args []string) error {
	var id, password, comment, lat, lon string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--id", "-i":
			if i+1 < len(args) {
				id = args[i+1]
				i++
			}
		case "--password", "-p":
			if i+1 < len(args) {
				password = args[i+1]
				i++
			}
		case "--comment", "-c":
			if i+1 < len(args) {
				comment = args[i+1]
				i++
			}
		case "--lat":
			if i+1 < len(args) {
				lat = args[i+1]
				i++
			}
		case "--lon":
			if i+1 < len(args) {
				lon = args[i+1]
				i++
			}
		}
	}

	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("usage: users create --id <id> [--password <pw>] [--comment <text>] [--lat <deg> --lon <deg>]")
	}
	if strings.TrimSpace(password) == "" {
		fmt.Print("Password for new user: ")
		pw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = string(pw)
		if strings.TrimSpace(password) == "" {
			return fmt.Errorf("password is required for new users")
		}
	}
	if (lat == "") != (lon == "") {
		return fmt.Errorf("coordinates must be given as a pair (--lat and --lon)")
	}

	req := api.CreateUserRequest{
		ID:           id,
		Password:     password,
		Comment:      comment,
		GPSLatitude:  optional(lat),
		GPSLongitude: optional(lon),
	}

	message, err := env.client.CreateUser(context.Background(), req)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	recordAction(env, journal.ActionCreate, id, message)
	color.New(color.FgGreen).Printf("✓ %s\n", message)
	return nil
}

func cmdUsersUpdate(env *environment, args []string) error {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("usage: users update <id> [--password <pw>] [--comment <text>] [--lat <deg> --lon <deg>] [--clear-gps]")
	}
	id := args[0]
	args = args[1:]

	var password, comment, lat, lon string
	var clearGPS, haveComment bool

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--password", "-p":
			if i+1 < len(args) {
				password = args[i+1]
				i++
			}
		case "--comment", "-c":
			if i+1 < len(args) {
				comment = args[i+1]
				haveComment = true
				i++
			}
		case "--lat":
			if i+1 < len(args) {
				lat = args[i+1]
				i++
			}
		case "--lon":
			if i+1 < len(args) {
				lon = args[i+1]
				i++
			}
		case "--clear-gps":
			clearGPS = true
		}
	}

	if (lat == "") != (lon == "") {
		return fmt.Errorf("coordinates must be given as a pair (--lat and --lon)")
	}

	// The update body always carries comment and coordinates, so fetch the
	// current record and start from it.
	users, err := env.client.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("loading user data: %w", err)
	}
	var current *api.User
	for i := range users {
		if users[i].ID == id {
			current = &users[i]
			break
		}
	}
	if current == nil {
		return fmt.Errorf("user %q not found", id)
	}

	req := api.UpdateUserRequest{
		Comment:      current.Comment,
		GPSLatitude:  current.GPSLatitude,
		GPSLongitude: current.GPSLongitude,
	}
	if haveComment {
		req.Comment = comment
	}
	if clearGPS {
		req.GPSLatitude, req.GPSLongitude = nil, nil
	}
	if lat != "" {
		req.GPSLatitude, req.GPSLongitude = optional(lat), optional(lon)
	}
	// A blank password means unchanged and is omitted from the request.
	if strings.TrimSpace(password) != "" {
		req.Password = &password
	}

	message, err := env.client.UpdateUser(context.Background(), id, req)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}

	recordAction(env, journal.ActionUpdate, id, message)
	color.New(color.FgGreen).Printf("✓ %s\n", message)
	return nil
}

func cmdUsersDelete(env *environment, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: users delete <id> [--yes]")
	}
	id := args[0]
	confirmed := len(args) > 1 && (args[1] == "--yes" || args[1] == "-y")

	if id == env.cfg.Admin.ProtectedAccount {
		return fmt.Errorf("account %q is protected and cannot be deleted", id)
	}

	if !confirmed {
		fmt.Printf("Delete user %q? This cannot be undone. [y/N] ", id)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	message, err := env.client.DeleteUser(context.Background(), id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	recordAction(env, journal.ActionDelete, id, message)
	color.New(color.FgGreen).Printf("✓ %s\n", message)
	return nil
}

func cmdHistory(env *environment, args []string) error {
	limit := 20
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--limit", "-n":
			if i+1 < len(args) {
				n, err := strconv.Atoi(args[i+1])
				if err != nil {
					return fmt.Errorf("invalid limit: %w", err)
				}
				limit = n
				i++
			}
		}
	}

	store, err := env.openJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Recent Actions")
	cyan.Println("  --------------")

	if len(entries) == 0 {
		fmt.Println("  (no recorded actions)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  WHEN\tACTION\tUSER\tRESULT\t")
	fmt.Fprintln(w, "  ----\t------\t----\t------\t")
	for _, e := range entries {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t\n",
			e.At.Local().Format("Jan 02 15:04"), e.Action, e.UserID, truncate(e.Message, 40))
	}
	w.Flush()
	fmt.Println()
	return nil
}

// recordAction appends to the local journal; journal failures never fail
// the command that already succeeded against the backend.
func recordAction(env *environment, action, userID, message string) {
	store, err := env.openJournal()
	if err != nil {
		color.New(color.FgYellow).Printf("  (journal unavailable: %v)\n", err)
		return
	}
	defer store.Close()
	if err := store.Record(context.Background(), action, userID, message); err != nil {
		color.New(color.FgYellow).Printf("  (journal write failed: %v)\n", err)
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// truncate shortens s to maxLen runes. Counting runes rather than bytes
// keeps multi-byte comments from being cut mid-character.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
