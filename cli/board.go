// ABOUTME: Interactive board and graph commands
// ABOUTME: Launches the Kanban TUI or prints the pipeline graph in DOT
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/tui"
	"github.com/harperreed/pipecrm/viz"
)

// BoardCommand opens the Kanban board.
func BoardCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("board", out)
	owner := fs.String("owner", a.Config.Owner, "Only this owner's opportunities")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !isTerminal() {
		return fmt.Errorf("board needs an interactive terminal")
	}

	model := tui.NewModel(context.Background(), a.Pipeline, *owner)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("board failed: %w", err)
	}
	return nil
}

// GraphCommand writes the stage chain as DOT.
func GraphCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("graph", out)
	output := fs.String("output", "", "Write DOT to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dot, err := viz.NewGraphGenerator(a.Pipeline).GeneratePipelineGraph(context.Background())
	if err != nil {
		return fmt.Errorf("failed to generate graph: %w", err)
	}

	if *output == "" {
		fmt.Fprint(out, dot)
		return nil
	}
	if err := os.WriteFile(*output, []byte(dot), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *output, err)
	}
	fmt.Fprintf(out, "✓ Graph written to %s\n", *output)
	return nil
}
