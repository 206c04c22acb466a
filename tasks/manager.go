// ABOUTME: Task and note operations scoped to one opportunity
// ABOUTME: Every change rewrites the whole embedded array through the opportunity update

package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotPermitted = errors.New("not permitted")
	ErrTaskNotFound = errors.New("task not found")
	ErrNoteNotFound = errors.New("note not found")
)

// Opportunities is the part of the backend the manager needs.
type Opportunities interface {
	GetOpportunity(ctx context.Context, id uuid.UUID) (*models.Opportunity, error)
	UpdateOpportunity(ctx context.Context, id uuid.UUID, patch models.OpportunityPatch) error
}

// TaskPatch changes task fields; nil fields are kept.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	DueTime     *string `json:"due_time,omitempty"`
	IsRecurring *bool   `json:"is_recurring,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
}

func (p TaskPatch) apply(t *models.Task) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.DueTime != nil {
		t.DueTime = *p.DueTime
	}
	if p.IsRecurring != nil {
		t.IsRecurring = *p.IsRecurring
	}
	if p.Assignee != nil {
		t.Assignee = strings.TrimSpace(*p.Assignee)
	}
}

type Manager struct {
	opps   Opportunities
	policy Policy
	log    logrus.FieldLogger
	now    func() time.Time
}

func New(opps Opportunities, log logrus.FieldLogger) *Manager {
	return &Manager{opps: opps, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (m *Manager) Policy() Policy {
	return m.policy
}

func (m *Manager) load(ctx context.Context, oppID uuid.UUID) (*models.Opportunity, error) {
	opp, err := m.opps.GetOpportunity(ctx, oppID)
	if err != nil {
		return nil, err
	}
	if opp == nil {
		return nil, fmt.Errorf("opportunity %s: %w", oppID, store.ErrNotFound)
	}
	return opp, nil
}

func (m *Manager) saveTasks(ctx context.Context, oppID uuid.UUID, tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	return m.opps.UpdateOpportunity(ctx, oppID, models.OpportunityPatch{Tasks: &tasks})
}

func (m *Manager) saveNotes(ctx context.Context, oppID uuid.UUID, notes []models.Note) error {
	if notes == nil {
		notes = []models.Note{}
	}
	return m.opps.UpdateOpportunity(ctx, oppID, models.OpportunityPatch{Notes: &notes})
}

func findTask(tasks []models.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Tasks lists an opportunity's tasks in insertion order.
func (m *Manager) Tasks(ctx context.Context, oppID uuid.UUID) ([]models.Task, error) {
	opp, err := m.load(ctx, oppID)
	if err != nil {
		return nil, err
	}
	return opp.Tasks, nil
}

// AddTask appends a task with a new local id, recording by as its creator.
func (m *Manager) AddTask(ctx context.Context, oppID uuid.UUID, task models.Task, by Identity) (models.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return models.Task{}, models.Invalid("title", "is required")
	}

	opp, err := m.load(ctx, oppID)
	if err != nil {
		return models.Task{}, err
	}

	task.ID = models.NewLocalID()
	task.CreatedAt = m.now()
	task.IsCompleted = false
	if task.CreatedBy == "" {
		task.CreatedBy = by.Label()
	}

	tasks := append(opp.Tasks, task)
	if err := m.saveTasks(ctx, oppID, tasks); err != nil {
		return models.Task{}, err
	}

	m.log.WithFields(logrus.Fields{"opportunity_id": oppID, "task_id": task.ID}).Debug("added task")
	return task, nil
}

// UpdateTask edits a task if by may edit it.
func (m *Manager) UpdateTask(ctx context.Context, oppID uuid.UUID, taskID string, patch TaskPatch, by Identity) (models.Task, error) {
	opp, err := m.load(ctx, oppID)
	if err != nil {
		return models.Task{}, err
	}
	i := findTask(opp.Tasks, taskID)
	if i < 0 {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if !m.policy.CanEditTask(opp.Tasks[i], by) {
		return models.Task{}, fmt.Errorf("%w: edit task %s", ErrNotPermitted, taskID)
	}

	task := opp.Tasks[i]
	patch.apply(&task)
	if task.Title == "" {
		return models.Task{}, models.Invalid("title", "is required")
	}
	opp.Tasks[i] = task

	if err := m.saveTasks(ctx, oppID, opp.Tasks); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// RemoveTask deletes a task if by may delete it.
func (m *Manager) RemoveTask(ctx context.Context, oppID uuid.UUID, taskID string, by Identity) error {
	opp, err := m.load(ctx, oppID)
	if err != nil {
		return err
	}
	i := findTask(opp.Tasks, taskID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if !m.policy.CanDeleteTask(opp.Tasks[i], by) {
		return fmt.Errorf("%w: delete task %s", ErrNotPermitted, taskID)
	}

	tasks := append(opp.Tasks[:i:i], opp.Tasks[i+1:]...)
	return m.saveTasks(ctx, oppID, tasks)
}

// ToggleTask flips completion if by is the assignee.
func (m *Manager) ToggleTask(ctx context.Context, oppID uuid.UUID, taskID string, by Identity) (models.Task, error) {
	opp, err := m.load(ctx, oppID)
	if err != nil {
		return models.Task{}, err
	}
	i := findTask(opp.Tasks, taskID)
	if i < 0 {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if !m.policy.CanToggleTaskCompletion(opp.Tasks[i], by) {
		return models.Task{}, fmt.Errorf("%w: only the assignee can complete task %s", ErrNotPermitted, taskID)
	}

	opp.Tasks[i].IsCompleted = !opp.Tasks[i].IsCompleted
	if err := m.saveTasks(ctx, oppID, opp.Tasks); err != nil {
		return models.Task{}, err
	}
	return opp.Tasks[i], nil
}

// AddNote appends a note with a new local id.
func (m *Manager) AddNote(ctx context.Context, oppID uuid.UUID, content string) (models.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Note{}, models.Invalid("content", "is required")
	}

	opp, err := m.load(ctx, oppID)
	if err != nil {
		return models.Note{}, err
	}

	note := models.Note{ID: models.NewLocalID(), Content: content, CreatedAt: m.now()}
	if err := m.saveNotes(ctx, oppID, append(opp.Notes, note)); err != nil {
		return models.Note{}, err
	}
	return note, nil
}

func (m *Manager) RemoveNote(ctx context.Context, oppID uuid.UUID, noteID string) error {
	opp, err := m.load(ctx, oppID)
	if err != nil {
		return err
	}
	for i := range opp.Notes {
		if opp.Notes[i].ID == noteID {
			notes := append(opp.Notes[:i:i], opp.Notes[i+1:]...)
			return m.saveNotes(ctx, oppID, notes)
		}
	}
	return fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
}
