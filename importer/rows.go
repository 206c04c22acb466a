// ABOUTME: Row normalization for loosely shaped import data
// ABOUTME: Lowercase header keys, alias precedence lists and typed field parsing

package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harperreed/pipecrm/models"
)

// Row is one input record keyed by lowercase, trimmed header names.
type Row map[string]string

// Normalize lowercases and trims header keys and trims values. When two raw
// headers normalize to the same key the first non-empty value is kept.
func Normalize(raw map[string]string) Row {
	row := make(Row, len(raw))
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if existing, ok := row[key]; ok && existing != "" {
			continue
		}
		row[key] = v
	}
	return row
}

// Empty reports whether every field is blank.
func (r Row) Empty() bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}

// First returns the value of the first alias with a non-empty value.
func (r Row) First(aliases []string) string {
	for _, a := range aliases {
		if v := r[a]; v != "" {
			return v
		}
	}
	return ""
}

// Header aliases, in precedence order.
var (
	opportunityNameAliases = []string{"opportunity name", "opportunity", "name", "title"}
	contactNameAliases     = []string{"name", "contact name", "first name"}

	// Contact fields on an opportunity row. "name" belongs to the opportunity there.
	linkedContactNameAliases = []string{"contact name", "contact", "client name", "client"}

	emailAliases    = []string{"contact email", "email", "e-mail", "email address"}
	phoneAliases    = []string{"contact phone", "phone", "phone number", "mobile"}
	tierAliases     = []string{"value tier", "tier"}
	companyAliases  = []string{"company name", "company", "organization"}
	stageAliases    = []string{"stage", "pipeline stage"}
	valueAliases    = []string{"value", "amount", "deal value"}
	statusAliases   = []string{"status"}
	ownerAliases    = []string{"owner", "assigned to"}
	sourceAliases   = []string{"source", "lead source"}
	tagsAliases     = []string{"tags", "labels"}
	pipelineAliases = []string{"pipeline", "pipeline id"}
	typeAliases     = []string{"type", "contact type"}
	notesAliases    = []string{"notes", "note"}
)

// contactName resolves the contact name of a contact row, appending a last
// name when only "first name" resolved.
func contactName(r Row) string {
	for _, a := range contactNameAliases {
		v := r[a]
		if v == "" {
			continue
		}
		if a == "first name" {
			if last := r["last name"]; last != "" {
				return v + " " + last
			}
		}
		return v
	}
	return ""
}

// parseValue accepts currency formatting like "$1,200.50".
func parseValue(s string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if cleaned == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %q", s)
	}
	return v, nil
}

// parseStatus matches case-insensitively and defaults to Open.
func parseStatus(s string) string {
	for _, st := range models.Statuses {
		if strings.EqualFold(st, s) {
			return st
		}
	}
	return models.StatusOpen
}

// parseTier matches case-insensitively. Empty input returns "".
func parseTier(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	for _, t := range models.Tiers {
		if strings.EqualFold(t, s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown value tier %q", s)
}
