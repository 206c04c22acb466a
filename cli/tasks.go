// ABOUTME: Task and note CLI commands
// ABOUTME: Tasks are checked against the permission policy for the --as identity
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/models"
)

// AddTaskCommand adds a task: add-task <opportunity-id> --title ...
func AddTaskCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("add-task", out)
	oppFlag := fs.String("opportunity", "", "Opportunity ID (or first argument)")
	title := fs.String("title", "", "Task title (required)")
	description := fs.String("description", "", "Description")
	due := fs.String("due", "", "Due date YYYY-MM-DD")
	dueTime := fs.String("time", "", "Due time HH:MM")
	recurring := fs.Bool("recurring", false, "Repeating task")
	assignee := fs.String("assignee", "", "Who may complete it")
	as := fs.String("as", a.Config.Owner, "Acting user")
	if err := fs.Parse(args); err != nil {
		return err
	}

	oppID, err := parseID("opportunity ID", firstArg(fs, *oppFlag))
	if err != nil {
		return err
	}

	task, err := a.Tasks.AddTask(context.Background(), oppID, models.Task{
		Title:       *title,
		Description: *description,
		DueDate:     *due,
		DueTime:     *dueTime,
		IsRecurring: *recurring,
		Assignee:    *assignee,
	}, identity(*as))
	if err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	fmt.Fprintf(out, "✓ Task added: %s (ID: %s)\n", task.Title, task.ID)
	return nil
}

// ToggleTaskCommand flips completion: toggle-task <opportunity-id> <task-id>.
func ToggleTaskCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("toggle-task", out)
	as := fs.String("as", a.Config.Owner, "Acting user")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: toggle-task [--as user] <opportunity-id> <task-id>")
	}

	oppID, err := parseID("opportunity ID", fs.Arg(0))
	if err != nil {
		return err
	}

	task, err := a.Tasks.ToggleTask(context.Background(), oppID, fs.Arg(1), identity(*as))
	if err != nil {
		return err
	}
	state := "open"
	if task.IsCompleted {
		state = "done"
	}
	fmt.Fprintf(out, "✓ %s is %s\n", task.Title, state)
	return nil
}

// DeleteTaskCommand removes a task: delete-task <opportunity-id> <task-id>.
func DeleteTaskCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("delete-task", out)
	as := fs.String("as", a.Config.Owner, "Acting user")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: delete-task [--as user] <opportunity-id> <task-id>")
	}

	oppID, err := parseID("opportunity ID", fs.Arg(0))
	if err != nil {
		return err
	}

	if err := a.Tasks.RemoveTask(context.Background(), oppID, fs.Arg(1), identity(*as)); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Deleted task %s\n", fs.Arg(1))
	return nil
}

// AddNoteCommand appends a note: add-note <opportunity-id> <text>.
func AddNoteCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("add-note", out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: add-note <opportunity-id> <text>")
	}

	oppID, err := parseID("opportunity ID", fs.Arg(0))
	if err != nil {
		return err
	}

	note, err := a.Tasks.AddNote(context.Background(), oppID, fs.Arg(1))
	if err != nil {
		return fmt.Errorf("failed to add note: %w", err)
	}
	fmt.Fprintf(out, "✓ Note added (ID: %s)\n", note.ID)
	return nil
}
