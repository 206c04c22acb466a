// ABOUTME: Google People API client and contact conversion
// ABOUTME: Connections become contact import rows that run through the regular importer
package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/pipecrm/importer"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
)

const personFields = "names,emailAddresses,phoneNumbers,organizations,biographies"

// NewPeopleClient creates an authenticated People API service.
func NewPeopleClient(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*people.Service, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}
	service, err := people.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create People service: %w", err)
	}
	return service, nil
}

// FetchConnections pages through every connection of the signed-in user.
func FetchConnections(ctx context.Context, service *people.Service) ([]*people.Person, error) {
	var all []*people.Person
	pageToken := ""
	for {
		call := service.People.Connections.List("people/me").
			PageSize(1000).
			PersonFields(personFields).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch contacts: %w", err)
		}
		if resp == nil {
			break
		}
		all = append(all, resp.Connections...)

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return all, nil
}

// PersonRow converts a person to a contact import row. Primary email and
// phone win over the first listed ones.
func PersonRow(person *people.Person) map[string]string {
	row := map[string]string{}
	if person == nil {
		return row
	}

	if len(person.Names) > 0 && person.Names[0].DisplayName != "" {
		row["name"] = person.Names[0].DisplayName
	}

	for _, email := range person.EmailAddresses {
		if email.Value == "" {
			continue
		}
		if row["email"] == "" {
			row["email"] = email.Value
		}
		if email.Metadata != nil && email.Metadata.Primary {
			row["email"] = email.Value
			break
		}
	}

	for _, phone := range person.PhoneNumbers {
		if phone.Value == "" {
			continue
		}
		if row["phone"] == "" {
			row["phone"] = phone.Value
		}
		if phone.Metadata != nil && phone.Metadata.Primary {
			row["phone"] = phone.Value
			break
		}
	}

	if len(person.Organizations) > 0 && person.Organizations[0].Name != "" {
		row["company name"] = person.Organizations[0].Name
	}

	if len(person.Biographies) > 0 && person.Biographies[0].Value != "" {
		row["notes"] = strings.TrimSpace(person.Biographies[0].Value)
	}
	return row
}

// Rows converts persons, dropping the ones with neither a name nor an email.
func Rows(persons []*people.Person) []map[string]string {
	rows := make([]map[string]string, 0, len(persons))
	for _, p := range persons {
		row := PersonRow(p)
		if row["name"] == "" && row["email"] == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// ImportPeople runs persons through the contact importer.
func ImportPeople(ctx context.Context, imp *importer.Importer, persons []*people.Person) (importer.Report, error) {
	return imp.ImportContacts(ctx, Rows(persons))
}
