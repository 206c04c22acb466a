// ABOUTME: Import, export and duplicate cleanup CLI commands
// ABOUTME: CSV files in, CSV files or stdout out, with a per-row report
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/importer"
	"github.com/harperreed/pipecrm/pipeline"
)

func readRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return importer.ReadCSV(f)
}

func printReport(out io.Writer, report importer.Report) {
	fmt.Fprintf(out, "✓ Imported %d rows\n", report.SuccessCount)
	if report.DuplicateCount > 0 {
		fmt.Fprintf(out, "  %d duplicate rows ignored\n", report.DuplicateCount)
	}
	if report.SkippedCount > 0 {
		fmt.Fprintf(out, "  %d empty rows skipped\n", report.SkippedCount)
	}
	if report.ErrorCount > 0 {
		fmt.Fprintf(out, "  ✗ %d rows failed\n", report.ErrorCount)
		for _, e := range report.Errors {
			fmt.Fprintf(out, "    row %d: %s\n", e.Row, e.Reason)
		}
	}
	printWarnings(out, report.Warnings)
}

func importCommand(name string, out io.Writer, args []string, run func(context.Context, []map[string]string) (importer.Report, error)) error {
	fs := newFlagSet(name, out)
	file := fs.String("file", "", "CSV file (or first argument)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := firstArg(fs, *file)
	if path == "" {
		return fmt.Errorf("--file is required")
	}
	rows, err := readRows(path)
	if err != nil {
		return err
	}

	report, err := run(context.Background(), rows)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	printReport(out, report)
	return nil
}

// ImportOpportunitiesCommand imports an opportunity CSV.
func ImportOpportunitiesCommand(a *app.App, out io.Writer, args []string) error {
	return importCommand("import-opportunities", out, args, a.Importer.ImportOpportunities)
}

// ImportContactsCommand imports a contact CSV.
func ImportContactsCommand(a *app.App, out io.Writer, args []string) error {
	return importCommand("import-contacts", out, args, a.Importer.ImportContacts)
}

func exportCommand(name string, out io.Writer, args []string, run func(context.Context, io.Writer) (int, error)) error {
	fs := newFlagSet(name, out)
	file := fs.String("file", "", "Output CSV file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *file == "" {
		_, err := run(context.Background(), out)
		return err
	}

	f, err := os.Create(*file)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", *file, err)
	}
	n, err := run(context.Background(), f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Fprintf(out, "✓ Exported %d rows to %s\n", n, *file)
	return nil
}

// ExportOpportunitiesCommand writes the opportunity CSV.
func ExportOpportunitiesCommand(a *app.App, out io.Writer, args []string) error {
	return exportCommand("export-opportunities", out, args, func(ctx context.Context, w io.Writer) (int, error) {
		return a.Importer.ExportOpportunities(ctx, w, a.Config.Owner)
	})
}

// ExportContactsCommand writes the contact CSV.
func ExportContactsCommand(a *app.App, out io.Writer, args []string) error {
	return exportCommand("export-contacts", out, args, a.Importer.ExportContacts)
}

// DedupeCommand removes duplicates of one kind.
func DedupeCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("dedupe", out)
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: dedupe [--yes] contacts|opportunities")
	}

	kind, err := pipeline.ParseKind(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := confirm(out, fmt.Sprintf("Remove duplicate %s?", kind), *yes); err != nil {
		return err
	}

	res, err := a.Pipeline.RemoveDuplicates(context.Background(), kind)
	if err != nil {
		return fmt.Errorf("failed to remove duplicates: %w", err)
	}
	fmt.Fprintf(out, "✓ Removed %d duplicate %s, kept %d\n", res.Removed, kind, res.Kept)
	return nil
}
