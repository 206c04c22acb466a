// ABOUTME: Google Contacts and Calendar CLI commands
// ABOUTME: OAuth setup through a local callback, then People and Calendar imports
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"runtime"
	"sort"
	"time"

	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/google"
	"golang.org/x/oauth2"
)

// GoogleAuthCommand runs the OAuth flow and stores the token.
func GoogleAuthCommand(out io.Writer, args []string) error {
	fs := newFlagSet("google-auth", out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	config, err := google.Config()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tokens := make(chan *oauth2.Token, 1)
	errs := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(google.CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errs <- fmt.Errorf("no authorization code received")
			return
		}
		token, err := config.Exchange(ctx, code)
		if err != nil {
			errs <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}
		tokens <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: google.CallbackAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	defer func() { _ = server.Shutdown(ctx) }()

	authURL := config.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Fprintln(out, "Opening browser for Google OAuth...")
	fmt.Fprintf(out, "\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)
	_ = openBrowser(authURL)

	select {
	case token := <-tokens:
		path := google.TokenPath()
		if err := google.SaveToken(path, token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		fmt.Fprintf(out, "\n✓ Authenticated successfully\n")
		fmt.Fprintf(out, "✓ Tokens saved to %s\n\n", path)
		fmt.Fprintln(out, "Run 'pipecrm google-import' to import contacts or 'pipecrm google-calendar' for appointments.")
		return nil
	case err := <-errs:
		return fmt.Errorf("OAuth flow failed: %w", err)
	}
}

// GoogleImportCommand imports Google Contacts through the contact importer.
func GoogleImportCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("google-import", out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	config, err := google.Config()
	if err != nil {
		return err
	}
	token, err := google.LoadToken(google.TokenPath())
	if err != nil {
		return fmt.Errorf("no authentication token found. Run 'pipecrm google-auth' first: %w", err)
	}

	ctx := context.Background()
	service, err := google.NewPeopleClient(ctx, config, token)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Fetching Google Contacts...")
	persons, err := google.FetchConnections(ctx, service)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  → %d contacts fetched\n", len(persons))

	report, err := google.ImportPeople(ctx, a.Importer, persons)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	printReport(out, report)
	return nil
}

// GoogleCalendarCommand imports calendar events as appointments.
func GoogleCalendarCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("google-calendar", out)
	days := fs.Int("days", 30, "Import events starting within this many days")
	past := fs.Int("past", 0, "Also import events from this many past days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *days < 0 || *past < 0 {
		return fmt.Errorf("--days and --past must not be negative")
	}

	config, err := google.Config()
	if err != nil {
		return err
	}
	token, err := google.LoadToken(google.TokenPath())
	if err != nil {
		return fmt.Errorf("no authentication token found. Run 'pipecrm google-auth' first: %w", err)
	}

	ctx := context.Background()
	service, err := google.NewCalendarClient(ctx, config, token)
	if err != nil {
		return err
	}

	now := time.Now()
	fmt.Fprintln(out, "Fetching Google Calendar events...")
	events, err := google.FetchEvents(ctx, service, now.AddDate(0, 0, -*past), now.AddDate(0, 0, *days))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  → %d events fetched\n", len(events))

	contacts, err := a.Pipeline.Contacts().Ensure(ctx)
	if err != nil {
		return err
	}
	ci := &google.CalendarImport{
		Appointments: a.Appointments,
		Contacts:     contacts,
		Owner:        a.Config.Owner,
		Location:     time.Local,
	}
	report, err := ci.Run(ctx, events)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(out, "✓ Imported %d appointments\n", report.Imported)
	if report.Duplicates > 0 {
		fmt.Fprintf(out, "  %d already imported\n", report.Duplicates)
	}
	reasons := make([]string, 0, len(report.Skipped))
	for reason := range report.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(out, "  skipped %d (%s)\n", report.Skipped[reason], reason)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(out, "  ✗ %s\n", e)
	}
	return nil
}

// openBrowser attempts to open URL in default browser
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	return exec.Command(cmd, args...).Start()
}
