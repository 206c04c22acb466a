// ABOUTME: Google Calendar client and event conversion
// ABOUTME: Accepted events in a date window become appointments linked to known contacts
package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/pipecrm/appointments"
	"github.com/harperreed/pipecrm/models"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// NewCalendarClient creates an authenticated Calendar API service.
func NewCalendarClient(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*calendar.Service, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}
	service, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return service, nil
}

// FetchEvents lists single events on the primary calendar between from and to.
func FetchEvents(ctx context.Context, service *calendar.Service, from, to time.Time) ([]*calendar.Event, error) {
	var all []*calendar.Event
	pageToken := ""
	for {
		call := service.Events.List("primary").
			MaxResults(250).
			SingleEvents(true).
			OrderBy("startTime").
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch events: %w", err)
		}
		if resp == nil {
			break
		}
		all = append(all, resp.Items...)

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return all, nil
}

// shouldSkipEvent reports whether event should not become an appointment,
// and why.
func shouldSkipEvent(event *calendar.Event) (bool, string) {
	if event == nil {
		return true, "nil event"
	}
	if event.Start == nil || (event.Start.Date == "" && event.Start.DateTime == "") {
		return true, "missing start time"
	}
	if event.Status == "cancelled" {
		return true, "cancelled"
	}
	for _, attendee := range event.Attendees {
		if attendee.Self && attendee.ResponseStatus == "declined" {
			return true, "declined"
		}
	}
	return false, ""
}

// EventAppointment converts event to an appointment in loc. All-day events
// keep their date and carry no clock time.
func EventAppointment(event *calendar.Event, owner string, loc *time.Location) (models.Appointment, error) {
	appt := models.Appointment{
		Title:      strings.TrimSpace(event.Summary),
		AssignedTo: owner,
		Notes:      strings.TrimSpace(event.Description),
	}
	if appt.Title == "" {
		appt.Title = "(no title)"
	}
	if event.Location != "" {
		appt.Notes = strings.TrimSpace(appt.Notes + "\n" + event.Location)
	}

	if event.Start.Date != "" {
		appt.Date = event.Start.Date
		return appt, nil
	}
	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		return appt, fmt.Errorf("event %s: invalid start %q: %w", event.Id, event.Start.DateTime, err)
	}
	start = start.In(loc)
	appt.Date = start.Format("2006-01-02")
	appt.Time = start.Format("15:04")
	return appt, nil
}

// CalendarReport tallies one calendar import.
type CalendarReport struct {
	Imported   int            `json:"imported"`
	Duplicates int            `json:"duplicates"`
	Skipped    map[string]int `json:"skipped"`
	Errors     []string       `json:"errors,omitempty"`
}

// CalendarImport turns events into appointments for one owner.
type CalendarImport struct {
	Appointments *appointments.Service
	// Contacts links an appointment to the first attendee with a known email.
	Contacts []models.Contact
	Owner    string
	Location *time.Location
}

func (ci *CalendarImport) contactFor(event *calendar.Event) *models.Contact {
	for _, attendee := range event.Attendees {
		if attendee.Self || attendee.Email == "" {
			continue
		}
		for i := range ci.Contacts {
			if strings.EqualFold(ci.Contacts[i].Email, attendee.Email) {
				return &ci.Contacts[i]
			}
		}
	}
	return nil
}

func appointmentKey(a models.Appointment) string {
	return a.Title + "|" + a.Date + "|" + a.Time
}

// Run imports events. Events already present with the same title, date and
// time count as duplicates.
func (ci *CalendarImport) Run(ctx context.Context, events []*calendar.Event) (CalendarReport, error) {
	report := CalendarReport{Skipped: map[string]int{}}
	loc := ci.Location
	if loc == nil {
		loc = time.Local
	}

	existing, err := ci.Appointments.Upcoming(ctx, ci.Owner, time.Time{}, 0)
	if err != nil {
		return report, err
	}
	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		seen[appointmentKey(a)] = true
	}

	for _, event := range events {
		if skip, reason := shouldSkipEvent(event); skip {
			report.Skipped[reason]++
			continue
		}
		appt, err := EventAppointment(event, ci.Owner, loc)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		if seen[appointmentKey(appt)] {
			report.Duplicates++
			continue
		}
		if c := ci.contactFor(event); c != nil {
			id := c.ID
			appt.ContactID = &id
		}

		if _, err := ci.Appointments.Schedule(ctx, appt); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", appt.Title, err))
			continue
		}
		seen[appointmentKey(appt)] = true
		report.Imported++
	}
	return report, nil
}
