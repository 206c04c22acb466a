// ABOUTME: Appointment scheduling on top of the appointment store
// ABOUTME: Schedule, reschedule, cancel and list upcoming appointments in date order

package appointments

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
	"github.com/sirupsen/logrus"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type Service struct {
	backend store.AppointmentStore
	log     logrus.FieldLogger
}

func New(backend store.AppointmentStore, log logrus.FieldLogger) *Service {
	return &Service{backend: backend, log: log}
}

// Schedule validates and stores a new appointment.
func (s *Service) Schedule(ctx context.Context, a models.Appointment) (*models.Appointment, error) {
	a.Title = strings.TrimSpace(a.Title)
	a.Date = strings.TrimSpace(a.Date)
	a.Time = strings.TrimSpace(a.Time)
	if err := models.Validate(&a); err != nil {
		return nil, err
	}
	if err := s.backend.CreateAppointment(ctx, &a); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"appointment_id": a.ID, "date": a.Date}).Info("scheduled appointment")
	return &a, nil
}

// Reschedule moves an appointment. An empty clock time clears it.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, date, clock string) (*models.Appointment, error) {
	current, err := s.backend.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("appointment %s: %w", id, store.ErrNotFound)
	}

	patch := models.AppointmentPatch{
		Date: models.String(strings.TrimSpace(date)),
		Time: models.String(strings.TrimSpace(clock)),
	}
	merged := *current
	patch.Apply(&merged)
	if err := models.Validate(&merged); err != nil {
		return nil, err
	}

	if err := s.backend.UpdateAppointment(ctx, id, patch); err != nil {
		return nil, err
	}
	return s.backend.GetAppointment(ctx, id)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := s.backend.DeleteAppointment(ctx, id); err != nil {
		return err
	}
	s.log.WithField("appointment_id", id).Info("cancelled appointment")
	return nil
}

// When is the appointment's start. Appointments without a clock time start
// at midnight UTC.
func When(a models.Appointment) (time.Time, error) {
	if a.Time == "" {
		return time.Parse(dateLayout, a.Date)
	}
	return time.Parse(dateLayout+" "+timeLayout, a.Date+" "+a.Time)
}

// Upcoming lists appointments assigned to owner starting at or after from,
// earliest first. limit <= 0 returns all of them.
func (s *Service) Upcoming(ctx context.Context, owner string, from time.Time, limit int) ([]models.Appointment, error) {
	all, err := store.All(ctx, s.backend.ListAppointments, store.ListOptions{Owner: owner})
	if err != nil {
		return nil, err
	}

	type dated struct {
		appt models.Appointment
		at   time.Time
	}
	var upcoming []dated
	for _, a := range all {
		at, err := When(a)
		if err != nil {
			s.log.WithError(err).WithField("appointment_id", a.ID).Warn("skipping appointment with bad date")
			continue
		}
		if at.Before(from) {
			continue
		}
		upcoming = append(upcoming, dated{a, at})
	}

	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].at.Before(upcoming[j].at) })

	if limit > 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	out := make([]models.Appointment, len(upcoming))
	for i, d := range upcoming {
		out[i] = d.appt
	}
	return out, nil
}
