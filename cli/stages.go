// ABOUTME: Stage CLI commands
// ABOUTME: Show the configured stage list and replace it
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/models"
)

// StagesCommand prints the stage list in board order.
func StagesCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("stages", out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	stages, err := a.Pipeline.Stages(context.Background())
	if err != nil {
		return err
	}

	w := newTable(out)
	fmt.Fprintln(w, "ID\tTITLE\tCOLOR")
	fmt.Fprintln(w, "--\t-----\t-----")
	for _, st := range stages {
		marker := ""
		if st.ID == a.Pipeline.ClosedStageID() {
			marker = " (closed)"
		}
		fmt.Fprintf(w, "%s\t%s%s\t%s\n", st.ID, st.Title, marker, orDash(st.Color))
	}
	return w.Flush()
}

// SaveStagesCommand replaces the stage list, either from a JSON file or from
// a comma-separated title list. Titles are matched to the current stages by
// position, so renaming keeps ids; extra titles become new stages.
func SaveStagesCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("save-stages", out)
	file := fs.String("file", "", "JSON file with [{\"id\",\"title\",\"color\"}]")
	titles := fs.String("titles", "", "Comma-separated stage titles")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	var stages []models.Stage

	switch {
	case *file != "":
		data, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", *file, err)
		}
		if err := json.Unmarshal(data, &stages); err != nil {
			return fmt.Errorf("failed to parse %s: %w", *file, err)
		}
	case *titles != "":
		current, err := a.Pipeline.Stages(ctx)
		if err != nil {
			return err
		}
		for i, title := range splitList(*titles) {
			st := models.Stage{Title: title}
			if i < len(current) {
				st.ID = current[i].ID
				st.Color = current[i].Color
			}
			stages = append(stages, st)
		}
	default:
		return fmt.Errorf("--file or --titles is required")
	}

	saved, err := a.Pipeline.SaveStages(ctx, stages)
	if err != nil {
		return fmt.Errorf("failed to save stages: %w", err)
	}
	fmt.Fprintf(out, "✓ Saved %d stages\n", len(saved))
	return nil
}
