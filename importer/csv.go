// ABOUTME: CSV reading and writing for bulk import and export
// ABOUTME: Header-keyed records in, fixed canonical columns out

package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/pipeline"
)

const utf8BOM = "\ufeff"

// ReadCSV reads a header row and returns one record per data row keyed by the
// raw header text. Short rows leave missing columns empty; extra cells are dropped.
func ReadCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var records []map[string]string
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(records)+1, err)
		}

		rec := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(cells) {
				rec[h] = cells[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// OpportunityHeaders are the export columns for opportunities.
var OpportunityHeaders = []string{
	"Opportunity Name", "Value", "Stage", "Status", "Owner", "Source",
	"Contact Name", "Contact Email", "Contact Phone", "Company Name",
	"Pipeline", "Tags", "Created At", "Updated At",
}

// ContactHeaders are the export columns for contacts.
var ContactHeaders = []string{
	"Name", "Email", "Phone", "Value Tier", "Owner", "Company Name",
	"Type", "Status", "Notes", "Created At",
}

// WriteOpportunities writes opps with stage titles resolved from stages. A
// stage id with no configured stage is written as the id.
func WriteOpportunities(w io.Writer, opps []models.Opportunity, stages []models.Stage) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OpportunityHeaders); err != nil {
		return err
	}

	for _, o := range opps {
		stage := o.Stage
		if st, ok := pipeline.FindStage(stages, o.Stage); ok && st.ID == o.Stage {
			stage = st.Title
		}
		record := []string{
			o.Name,
			strconv.FormatFloat(o.Value, 'f', -1, 64),
			stage,
			o.Status,
			o.Owner,
			o.Source,
			o.ContactName,
			o.ContactEmail,
			o.ContactPhone,
			o.CompanyName,
			o.PipelineID,
			strings.Join(o.Tags, ","),
			formatTime(o.CreatedAt),
			formatTime(o.UpdatedAt),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteContacts writes contacts in ContactHeaders order.
func WriteContacts(w io.Writer, contacts []models.Contact) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ContactHeaders); err != nil {
		return err
	}

	for _, c := range contacts {
		record := []string{
			c.Name, c.Email, c.Phone, c.ValueTier, c.Owner, c.CompanyName,
			c.Type, c.Status, c.Notes, formatTime(c.CreatedAt),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
