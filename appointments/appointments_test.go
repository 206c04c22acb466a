package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harperreed/pipecrm/db"
	"github.com/harperreed/pipecrm/logging"
	"github.com/harperreed/pipecrm/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleValidates(t *testing.T) {
	svc := New(db.NewTestStore(t), logging.Discard())
	ctx := context.Background()

	_, err := svc.Schedule(ctx, models.Appointment{Title: "Demo", Date: "next week"})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = svc.Schedule(ctx, models.Appointment{Title: "", Date: "2026-11-02"})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = svc.Schedule(ctx, models.Appointment{Title: "Demo", Date: "2026-11-02", Time: "25:00"})
	assert.True(t, errors.Is(err, models.ErrValidation))

	a, err := svc.Schedule(ctx, models.Appointment{Title: "Demo", Date: "2026-11-02", Time: "09:30"})
	require.NoError(t, err)
	assert.NotEqual(t, "", a.ID.String())
}

func TestRescheduleAndUpcoming(t *testing.T) {
	svc := New(db.NewTestStore(t), logging.Discard())
	ctx := context.Background()

	late, err := svc.Schedule(ctx, models.Appointment{Title: "Late", Date: "2026-12-01", AssignedTo: "sam"})
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, models.Appointment{Title: "Early", Date: "2026-11-01", Time: "10:00", AssignedTo: "sam"})
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, models.Appointment{Title: "Past", Date: "2020-01-01", AssignedTo: "sam"})
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, models.Appointment{Title: "Other", Date: "2026-11-05", AssignedTo: "ana"})
	require.NoError(t, err)

	from := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	upcoming, err := svc.Upcoming(ctx, "sam", from, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "Early", upcoming[0].Title)
	assert.Equal(t, "Late", upcoming[1].Title)

	moved, err := svc.Reschedule(ctx, late.ID, "2026-10-20", "08:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", moved.Date)

	upcoming, err = svc.Upcoming(ctx, "sam", from, 1)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Late", upcoming[0].Title)

	_, err = svc.Reschedule(ctx, late.ID, "bad", "")
	assert.True(t, errors.Is(err, models.ErrValidation))

	require.NoError(t, svc.Cancel(ctx, late.ID))
	assert.Error(t, svc.Cancel(ctx, late.ID))
}
