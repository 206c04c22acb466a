// ABOUTME: Task and note MCP tool handlers
// ABOUTME: Implements add_task, toggle_task and add_note on opportunities
package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/tasks"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type TaskHandlers struct {
	tasks *tasks.Manager
	// identity is used when a call does not name the acting user.
	identity tasks.Identity
}

func NewTaskHandlers(manager *tasks.Manager, identity tasks.Identity) *TaskHandlers {
	return &TaskHandlers{tasks: manager, identity: identity}
}

func (h *TaskHandlers) actor(as string) tasks.Identity {
	if as == "" {
		return h.identity
	}
	return tasks.Identity{ID: as, Email: as}
}

type AddTaskInput struct {
	OpportunityID string `json:"opportunity_id" jsonschema:"Opportunity UUID (required)"`
	Title         string `json:"title" jsonschema:"Task title (required)"`
	Description   string `json:"description,omitempty" jsonschema:"Task description"`
	DueDate       string `json:"due_date,omitempty" jsonschema:"Due date YYYY-MM-DD"`
	DueTime       string `json:"due_time,omitempty" jsonschema:"Due time HH:MM"`
	IsRecurring   bool   `json:"is_recurring,omitempty" jsonschema:"Whether the task repeats"`
	Assignee      string `json:"assignee,omitempty" jsonschema:"User id or email allowed to complete the task"`
	As            string `json:"as,omitempty" jsonschema:"Acting user id or email"`
}

type TaskOutput struct {
	OpportunityID string `json:"opportunity_id"`
	ID            string `json:"id"`
	Title         string `json:"title"`
	IsCompleted   bool   `json:"is_completed"`
	DueDate       string `json:"due_date,omitempty"`
	Assignee      string `json:"assignee,omitempty"`
	CreatedBy     string `json:"created_by,omitempty"`
}

func taskToOutput(oppID uuid.UUID, t models.Task) TaskOutput {
	return TaskOutput{
		OpportunityID: oppID.String(),
		ID:            t.ID,
		Title:         t.Title,
		IsCompleted:   t.IsCompleted,
		DueDate:       t.DueDate,
		Assignee:      t.Assignee,
		CreatedBy:     t.CreatedBy,
	}
}

func (h *TaskHandlers) AddTask(ctx context.Context, request *mcp.CallToolRequest, input AddTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	oppID, err := uuid.Parse(input.OpportunityID)
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("invalid opportunity_id: %w", err)
	}

	task, err := h.tasks.AddTask(ctx, oppID, models.Task{
		Title:       input.Title,
		Description: input.Description,
		DueDate:     input.DueDate,
		DueTime:     input.DueTime,
		IsRecurring: input.IsRecurring,
		Assignee:    input.Assignee,
	}, h.actor(input.As))
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to add task: %w", err)
	}
	return nil, taskToOutput(oppID, task), nil
}

type ToggleTaskInput struct {
	OpportunityID string `json:"opportunity_id" jsonschema:"Opportunity UUID (required)"`
	TaskID        string `json:"task_id" jsonschema:"Task id (required)"`
	As            string `json:"as,omitempty" jsonschema:"Acting user id or email; must be the assignee"`
}

func (h *TaskHandlers) ToggleTask(ctx context.Context, request *mcp.CallToolRequest, input ToggleTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	oppID, err := uuid.Parse(input.OpportunityID)
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("invalid opportunity_id: %w", err)
	}
	if input.TaskID == "" {
		return nil, TaskOutput{}, fmt.Errorf("task_id is required")
	}

	task, err := h.tasks.ToggleTask(ctx, oppID, input.TaskID, h.actor(input.As))
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to toggle task: %w", err)
	}
	return nil, taskToOutput(oppID, task), nil
}

type AddNoteInput struct {
	OpportunityID string `json:"opportunity_id" jsonschema:"Opportunity UUID (required)"`
	Content       string `json:"content" jsonschema:"Note text (required)"`
}

type NoteOutput struct {
	OpportunityID string `json:"opportunity_id"`
	ID            string `json:"id"`
	Content       string `json:"content"`
	CreatedAt     string `json:"created_at"`
}

func (h *TaskHandlers) AddNote(ctx context.Context, request *mcp.CallToolRequest, input AddNoteInput) (*mcp.CallToolResult, NoteOutput, error) {
	oppID, err := uuid.Parse(input.OpportunityID)
	if err != nil {
		return nil, NoteOutput{}, fmt.Errorf("invalid opportunity_id: %w", err)
	}

	note, err := h.tasks.AddNote(ctx, oppID, input.Content)
	if err != nil {
		return nil, NoteOutput{}, fmt.Errorf("failed to add note: %w", err)
	}
	return nil, NoteOutput{
		OpportunityID: oppID.String(),
		ID:            note.ID,
		Content:       note.Content,
		CreatedAt:     note.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}
