// ABOUTME: Opportunity CLI commands
// ABOUTME: Add, update, move, list by stage, summarize and delete opportunities
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/pipeline"
	"github.com/harperreed/pipecrm/store"
	"github.com/harperreed/pipecrm/viz"
)

func resolveStage(ctx context.Context, a *app.App, ref string) (models.Stage, error) {
	st, ok, err := a.Pipeline.ResolveStage(ctx, ref)
	if err != nil {
		return models.Stage{}, err
	}
	if !ok {
		return models.Stage{}, fmt.Errorf("%w: %s", pipeline.ErrUnknownStage, ref)
	}
	return st, nil
}

func printWarnings(out io.Writer, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(out, "  ! %s\n", w)
	}
}

func printSave(out io.Writer, verb string, res pipeline.SaveResult) {
	o := res.Opportunity
	fmt.Fprintf(out, "✓ Opportunity %s: %s (ID: %s)\n", verb, o.Name, o.ID)
	fmt.Fprintf(out, "  Stage: %s  Status: %s  Value: %s\n", o.Stage, o.Status, viz.FormatMoney(o.Value))
	if res.Contact != nil {
		switch {
		case res.ContactCreated:
			fmt.Fprintf(out, "  Contact created: %s\n", res.Contact.Name)
		case res.ContactPatched:
			fmt.Fprintf(out, "  Contact updated: %s\n", res.Contact.Name)
		default:
			fmt.Fprintf(out, "  Contact: %s\n", res.Contact.Name)
		}
	}
	printWarnings(out, res.Warnings)
}

// AddOpportunityCommand creates an opportunity and links its contact.
func AddOpportunityCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("add-opportunity", out)
	name := fs.String("name", "", "Opportunity name (required)")
	value := fs.Float64("value", 0, "Monetary value")
	stage := fs.String("stage", "", "Stage id or title (default: first stage)")
	status := fs.String("status", "", "Open, Won, Lost or Abandoned")
	owner := fs.String("owner", a.Config.Owner, "Owner")
	tags := fs.String("tags", "", "Comma-separated tags")
	contact := fs.String("contact", "", "Contact name")
	email := fs.String("email", "", "Contact email")
	phone := fs.String("phone", "", "Contact phone")
	company := fs.String("company", "", "Company name")
	tier := fs.String("tier", "", "Contact value tier: Standard, Mid or High")
	source := fs.String("source", "", "Lead source")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	ctx := context.Background()
	o := models.Opportunity{
		Name:         *name,
		Value:        *value,
		Status:       *status,
		Owner:        *owner,
		Tags:         splitList(*tags),
		ContactName:  *contact,
		ContactEmail: *email,
		ContactPhone: *phone,
		CompanyName:  *company,
		Source:       *source,
	}
	if *stage != "" {
		st, err := resolveStage(ctx, a, *stage)
		if err != nil {
			return err
		}
		o.Stage = st.ID
	}

	var opts []pipeline.SaveOption
	if *tier != "" {
		opts = append(opts, pipeline.WithValueTier(*tier))
	}

	res, err := a.Pipeline.Create(ctx, o, opts...)
	if err != nil {
		return fmt.Errorf("failed to create opportunity: %w", err)
	}
	printSave(out, "created", res)
	return nil
}

// UpdateOpportunityCommand patches the flags that were given.
func UpdateOpportunityCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("update-opportunity", out)
	idFlag := fs.String("id", "", "Opportunity ID (or first argument)")
	name := fs.String("name", "", "New name")
	value := fs.Float64("value", 0, "New value")
	status := fs.String("status", "", "New status")
	owner := fs.String("owner", "", "New owner")
	tags := fs.String("tags", "", "Replacement comma-separated tags")
	contact := fs.String("contact", "", "Contact name")
	email := fs.String("email", "", "Contact email")
	phone := fs.String("phone", "", "Contact phone")
	company := fs.String("company", "", "Company name")
	source := fs.String("source", "", "Lead source")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := parseID("opportunity ID", firstArg(fs, *idFlag))
	if err != nil {
		return err
	}

	var patch models.OpportunityPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			patch.Name = name
		case "value":
			patch.Value = value
		case "status":
			patch.Status = status
		case "owner":
			patch.Owner = owner
		case "tags":
			t := splitList(*tags)
			patch.Tags = &t
		case "contact":
			patch.ContactName = contact
		case "email":
			patch.ContactEmail = email
		case "phone":
			patch.ContactPhone = phone
		case "company":
			patch.CompanyName = company
		case "source":
			patch.Source = source
		}
	})

	res, err := a.Pipeline.Update(context.Background(), id, patch)
	if err != nil {
		return fmt.Errorf("failed to update opportunity: %w", err)
	}
	printSave(out, "updated", res)
	return nil
}

// MoveCommand moves an opportunity: move <id> <stage>.
func MoveCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("move", out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: move <opportunity-id> <stage>")
	}

	id, err := parseID("opportunity ID", fs.Arg(0))
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := resolveStage(ctx, a, fs.Arg(1))
	if err != nil {
		return err
	}

	opp, err := a.Pipeline.MoveToStage(ctx, id, st.ID)
	if err != nil {
		return fmt.Errorf("failed to move opportunity: %w", err)
	}
	fmt.Fprintf(out, "✓ %s moved to %s (status: %s)\n", opp.Name, st.Title, opp.Status)
	return nil
}

// ListStageCommand lists one page of a stage.
func ListStageCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("list-stage", out)
	stage := fs.String("stage", "", "Stage id or title (or first argument)")
	owner := fs.String("owner", a.Config.Owner, "Only this owner's opportunities")
	cursor := fs.String("cursor", "", "Cursor from a previous page")
	limit := fs.Int("limit", 0, "Page size (default from config, -1 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ref := firstArg(fs, *stage)
	if ref == "" {
		return fmt.Errorf("--stage is required")
	}

	ctx := context.Background()
	st, err := resolveStage(ctx, a, ref)
	if err != nil {
		return err
	}

	page, err := a.Pipeline.ListByStage(ctx, st.ID, store.ListOptions{Owner: *owner, Cursor: *cursor, PageSize: *limit})
	if err != nil {
		return fmt.Errorf("failed to list stage: %w", err)
	}

	if len(page.Items) == 0 {
		fmt.Fprintf(out, "No opportunities in %s\n", st.Title)
		return nil
	}

	w := newTable(out)
	fmt.Fprintln(w, "ID\tNAME\tVALUE\tSTATUS\tCONTACT\tOWNER")
	fmt.Fprintln(w, "--\t----\t-----\t------\t-------\t-----")
	for _, o := range page.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID.String()[:8], o.Name, viz.FormatMoney(o.Value), o.Status, orDash(o.ContactName), orDash(o.Owner))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if page.HasMore {
		fmt.Fprintf(out, "\nMore: --cursor %s\n", page.NextCursor)
	}
	return nil
}

// SummaryCommand prints the per-stage dashboard.
func SummaryCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("summary", out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	stats, err := viz.GenerateDashboardStats(context.Background(), a.Pipeline)
	if err != nil {
		return err
	}
	fmt.Fprint(out, viz.RenderDashboard(stats))
	return nil
}

// DeleteOpportunityCommand deletes one opportunity and its contact.
func DeleteOpportunityCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("delete-opportunity", out)
	idFlag := fs.String("id", "", "Opportunity ID (or first argument)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := parseID("opportunity ID", firstArg(fs, *idFlag))
	if err != nil {
		return err
	}

	res, err := a.Pipeline.Delete(context.Background(), id)
	if err != nil {
		return fmt.Errorf("failed to delete opportunity: %w", err)
	}

	fmt.Fprintf(out, "✓ Deleted opportunity %s\n", id)
	if res.ContactDeleted {
		fmt.Fprintf(out, "  Contact %s deleted\n", res.ContactID)
	}
	printWarnings(out, res.Warnings)
	return nil
}

// BulkDeleteCommand deletes several opportunities in one batch.
func BulkDeleteCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("bulk-delete", out)
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: bulk-delete [--yes] <opportunity-id>...")
	}

	ids := make([]uuid.UUID, 0, fs.NArg())
	for _, arg := range fs.Args() {
		id, err := parseID("opportunity ID", arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	if err := confirm(out, fmt.Sprintf("Delete %d opportunities?", len(ids)), *yes); err != nil {
		return err
	}

	if err := a.Pipeline.BulkDelete(context.Background(), ids); err != nil {
		return fmt.Errorf("bulk delete failed: %w", err)
	}
	fmt.Fprintf(out, "✓ Deleted %d opportunities\n", len(ids))
	return nil
}
