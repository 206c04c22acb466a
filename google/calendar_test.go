package google

import (
	"context"
	"testing"
	"time"

	"github.com/harperreed/pipecrm/appointments"
	"github.com/harperreed/pipecrm/db"
	"github.com/harperreed/pipecrm/logging"
	"github.com/harperreed/pipecrm/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
)

func timed(id, summary, start string, attendees ...*calendar.EventAttendee) *calendar.Event {
	return &calendar.Event{
		Id:        id,
		Summary:   summary,
		Status:    "confirmed",
		Start:     &calendar.EventDateTime{DateTime: start},
		Attendees: attendees,
	}
}

func TestShouldSkipEvent(t *testing.T) {
	tests := []struct {
		name   string
		event  *calendar.Event
		skip   bool
		reason string
	}{
		{"nil", nil, true, "nil event"},
		{"no start", &calendar.Event{}, true, "missing start time"},
		{"empty start", &calendar.Event{Start: &calendar.EventDateTime{}}, true, "missing start time"},
		{"cancelled", &calendar.Event{Status: "cancelled", Start: &calendar.EventDateTime{Date: "2026-11-02"}}, true, "cancelled"},
		{"declined", timed("1", "Sync", "2026-11-02T10:00:00Z",
			&calendar.EventAttendee{Email: "me@example.com", Self: true, ResponseStatus: "declined"}), true, "declined"},
		{"someone else declined", timed("1", "Sync", "2026-11-02T10:00:00Z",
			&calendar.EventAttendee{Email: "jane@example.com", ResponseStatus: "declined"}), false, ""},
		{"all day", &calendar.Event{Start: &calendar.EventDateTime{Date: "2026-11-02"}}, false, ""},
		{"solo", timed("1", "Focus", "2026-11-02T10:00:00Z"), false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skip, reason := shouldSkipEvent(tt.event)
			assert.Equal(t, tt.skip, skip)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestEventAppointment(t *testing.T) {
	loc := time.FixedZone("CET", 3600)

	appt, err := EventAppointment(timed("1", " Demo ", "2026-11-02T09:30:00Z"), "sam", loc)
	require.NoError(t, err)
	assert.Equal(t, "Demo", appt.Title)
	assert.Equal(t, "2026-11-02", appt.Date)
	assert.Equal(t, "10:30", appt.Time)
	assert.Equal(t, "sam", appt.AssignedTo)

	allDay := &calendar.Event{Start: &calendar.EventDateTime{Date: "2026-11-03"}, Location: "Office"}
	appt, err = EventAppointment(allDay, "", loc)
	require.NoError(t, err)
	assert.Equal(t, "(no title)", appt.Title)
	assert.Equal(t, "2026-11-03", appt.Date)
	assert.Equal(t, "", appt.Time)
	assert.Equal(t, "Office", appt.Notes)

	_, err = EventAppointment(timed("2", "Bad", "tomorrow"), "", loc)
	assert.Error(t, err)
}

func TestCalendarImport(t *testing.T) {
	backend := db.NewTestStore(t)
	ctx := context.Background()
	svc := appointments.New(backend, logging.Discard())

	jane := models.Contact{Name: "Jane", Email: "jane@example.com"}
	require.NoError(t, backend.CreateContact(ctx, &jane))

	ci := &CalendarImport{
		Appointments: svc,
		Contacts:     []models.Contact{jane},
		Owner:        "sam",
		Location:     time.UTC,
	}
	events := []*calendar.Event{
		timed("1", "Kickoff", "2026-11-02T09:00:00Z",
			&calendar.EventAttendee{Email: "me@example.com", Self: true},
			&calendar.EventAttendee{Email: "JANE@example.com"}),
		timed("2", "Kickoff", "2026-11-02T09:00:00Z"),
		{Status: "cancelled", Start: &calendar.EventDateTime{Date: "2026-11-04"}},
		timed("3", "Broken", "soon"),
	}

	report, err := ci.Run(ctx, events)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 1, report.Skipped["cancelled"])
	assert.Len(t, report.Errors, 1)

	upcoming, err := svc.Upcoming(ctx, "sam", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.NotNil(t, upcoming[0].ContactID)
	assert.Equal(t, jane.ID, *upcoming[0].ContactID)

	// A second run finds everything already imported.
	report, err = ci.Run(ctx, events[:1])
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 1, report.Duplicates)
}
