// ABOUTME: Appointment CLI commands
// ABOUTME: Schedule an appointment and list upcoming ones
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/models"
)

// AddAppointmentCommand schedules an appointment.
func AddAppointmentCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("add-appointment", out)
	title := fs.String("title", "", "Title (required)")
	date := fs.String("date", "", "Date YYYY-MM-DD (required)")
	clock := fs.String("time", "", "Time HH:MM")
	assigned := fs.String("assigned", a.Config.Owner, "Assigned user")
	contact := fs.String("contact", "", "Contact ID")
	notes := fs.String("notes", "", "Notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	appt := models.Appointment{
		Title:      *title,
		Date:       *date,
		Time:       *clock,
		AssignedTo: *assigned,
		Notes:      *notes,
	}
	if *contact != "" {
		id, err := uuid.Parse(*contact)
		if err != nil {
			return fmt.Errorf("invalid contact ID: %w", err)
		}
		appt.ContactID = &id
	}

	saved, err := a.Appointments.Schedule(context.Background(), appt)
	if err != nil {
		return fmt.Errorf("failed to schedule appointment: %w", err)
	}
	fmt.Fprintf(out, "✓ Appointment scheduled: %s on %s (ID: %s)\n", saved.Title, saved.Date, saved.ID)
	return nil
}

// AppointmentsCommand lists upcoming appointments.
func AppointmentsCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("appointments", out)
	owner := fs.String("owner", a.Config.Owner, "Assigned user")
	limit := fs.Int("limit", 20, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	upcoming, err := a.Appointments.Upcoming(context.Background(), *owner, today, *limit)
	if err != nil {
		return err
	}
	if len(upcoming) == 0 {
		fmt.Fprintln(out, "No upcoming appointments")
		return nil
	}

	w := newTable(out)
	fmt.Fprintln(w, "DATE\tTIME\tTITLE\tASSIGNED")
	fmt.Fprintln(w, "----\t----\t-----\t--------")
	for _, ap := range upcoming {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ap.Date, orDash(ap.Time), ap.Title, orDash(ap.AssignedTo))
	}
	return w.Flush()
}
