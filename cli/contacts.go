// ABOUTME: Contact CLI commands
// ABOUTME: Human-friendly commands for adding and listing contacts
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/models"
)

// AddContactCommand adds a new contact.
func AddContactCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("add-contact", out)
	name := fs.String("name", "", "Contact name (required unless --email)")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	company := fs.String("company", "", "Company name")
	tier := fs.String("tier", "", "Value tier: Standard, Mid or High")
	owner := fs.String("owner", a.Config.Owner, "Owner")
	notes := fs.String("notes", "", "Notes about the contact")
	if err := fs.Parse(args); err != nil {
		return err
	}

	contact, err := a.Pipeline.AddContact(context.Background(), models.Contact{
		Name:        *name,
		Email:       *email,
		Phone:       *phone,
		CompanyName: *company,
		ValueTier:   *tier,
		Owner:       *owner,
		Notes:       *notes,
	})
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	fmt.Fprintf(out, "✓ Contact created: %s (ID: %s)\n", contact.Name, contact.ID)
	if contact.Email != "" {
		fmt.Fprintf(out, "  Email: %s\n", contact.Email)
	}
	if contact.Phone != "" {
		fmt.Fprintf(out, "  Phone: %s\n", contact.Phone)
	}
	if contact.CompanyName != "" {
		fmt.Fprintf(out, "  Company: %s\n", contact.CompanyName)
	}
	return nil
}

// ListContactsCommand lists or searches contacts.
func ListContactsCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("list-contacts", out)
	query := fs.String("query", "", "Search by name, email, phone or company")
	owner := fs.String("owner", "", "Only this owner's contacts")
	limit := fs.Int("limit", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	contacts, err := a.Pipeline.SearchContacts(context.Background(), *owner, *query)
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}
	if len(contacts) == 0 {
		fmt.Fprintln(out, "No contacts found")
		return nil
	}
	if *limit > 0 && len(contacts) > *limit {
		contacts = contacts[:*limit]
	}

	w := newTable(out)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tCOMPANY\tTIER")
	fmt.Fprintln(w, "--\t----\t-----\t-----\t-------\t----")
	for _, c := range contacts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID.String()[:8], orDash(c.Name), orDash(c.Email), orDash(c.Phone), orDash(c.CompanyName), orDash(c.ValueTier))
	}
	return w.Flush()
}
