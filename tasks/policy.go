// ABOUTME: Permission policy for tasks embedded in opportunities
// ABOUTME: Completion is assignee-gated; edit and delete are creator-gated

package tasks

import (
	"strings"

	"github.com/harperreed/pipecrm/models"
)

// Identity is the caller a permission check is made for.
type Identity struct {
	ID    string
	Email string
}

// Is reports whether who is exactly this identity's id or email. An empty
// who never matches.
func (i Identity) Is(who string) bool {
	if who == "" {
		return false
	}
	return (i.ID != "" && who == i.ID) || (i.Email != "" && who == i.Email)
}

// Label is the value recorded as a task's creator.
func (i Identity) Label() string {
	if i.ID != "" {
		return i.ID
	}
	return i.Email
}

// Policy holds the read-only permission derivations. Nothing in the backend
// enforces them.
type Policy struct{}

// CanToggleTaskCompletion is true only for the assignee. Unassigned tasks
// cannot be toggled by anyone.
func (Policy) CanToggleTaskCompletion(task models.Task, who Identity) bool {
	return who.Is(task.Assignee)
}

// CanEditTask is true for the task's creator, or anyone when no creator was
// recorded.
func (Policy) CanEditTask(task models.Task, who Identity) bool {
	if strings.TrimSpace(task.CreatedBy) == "" {
		return true
	}
	return who.Is(task.CreatedBy)
}

// CanDeleteTask follows the same rule as CanEditTask.
func (p Policy) CanDeleteTask(task models.Task, who Identity) bool {
	return p.CanEditTask(task, who)
}
