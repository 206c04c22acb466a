// ABOUTME: Bulk import of opportunities and contacts from normalized rows
// ABOUTME: Rows run sequentially through contact reconciliation; failures are counted, never rolled back

package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/harperreed/pipecrm/dedupe"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/pipeline"
	"github.com/harperreed/pipecrm/reconcile"
	"github.com/harperreed/pipecrm/store"
	"github.com/sirupsen/logrus"
)

// Backend is what imports write through.
type Backend interface {
	store.ContactStore
	store.OpportunityStore
}

// RowError records why one row was not imported. Row is 1-based over data rows.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Report summarizes an import. Skipped rows were entirely empty; duplicates
// repeated an earlier row of the same file.
type Report struct {
	SuccessCount   int        `json:"success_count"`
	ErrorCount     int        `json:"error_count"`
	DuplicateCount int        `json:"duplicate_count"`
	SkippedCount   int        `json:"skipped_count"`
	Errors         []RowError `json:"errors,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
}

func (r *Report) fail(row int, reason string) {
	r.ErrorCount++
	r.Errors = append(r.Errors, RowError{Row: row, Reason: reason})
}

type Importer struct {
	backend    Backend
	engine     *pipeline.Service
	reconciler *reconcile.Reconciler
	log        logrus.FieldLogger
	owner      string
}

// New builds an importer. Records without an owner column get owner.
func New(backend Backend, engine *pipeline.Service, owner string, log logrus.FieldLogger) *Importer {
	return &Importer{
		backend:    backend,
		engine:     engine,
		reconciler: reconcile.New(backend, log),
		log:        log,
		owner:      owner,
	}
}

// session holds per-import state that must stay consistent row to row.
type session struct {
	stages   []models.Stage
	contacts []models.Contact
	seen     map[string]bool
}

func (imp *Importer) begin(ctx context.Context) (*session, error) {
	stages, err := imp.engine.Stages(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := imp.engine.Contacts().Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}
	return &session{stages: stages, contacts: contacts, seen: make(map[string]bool)}, nil
}

func (imp *Importer) finish(ctx context.Context, report *Report) {
	if err := imp.engine.Contacts().Refresh(ctx); err != nil {
		imp.log.WithError(err).Warn("failed to refresh contacts after import")
	}
	imp.log.WithFields(logrus.Fields{
		"success":    report.SuccessCount,
		"errors":     report.ErrorCount,
		"duplicates": report.DuplicateCount,
		"skipped":    report.SkippedCount,
	}).Info("import finished")
}

// track keeps the working contact set in step with a reconciliation result.
func (s *session) track(res reconcile.Result) {
	if res.Contact == nil {
		return
	}
	if res.Created {
		s.contacts = append(s.contacts, *res.Contact)
		return
	}
	if res.Patched {
		for i := range s.contacts {
			if s.contacts[i].ID == res.Contact.ID {
				s.contacts[i] = *res.Contact
				return
			}
		}
	}
}

func (s *session) stageFor(ref string) string {
	if st, ok := pipeline.FindStage(s.stages, ref); ok {
		return st.ID
	}
	return s.stages[0].ID
}

func (imp *Importer) ownerOr(v string) string {
	if v != "" {
		return v
	}
	return imp.owner
}

// ImportOpportunities imports one opportunity per row, reconciling the row's
// contact fields against the contacts known so far in this import.
func (imp *Importer) ImportOpportunities(ctx context.Context, records []map[string]string) (Report, error) {
	var report Report
	sess, err := imp.begin(ctx)
	if err != nil {
		return report, err
	}

	for i, raw := range records {
		n := i + 1
		row := Normalize(raw)
		if row.Empty() {
			report.SkippedCount++
			continue
		}
		log := imp.log.WithField("row", n)

		name := row.First(opportunityNameAliases)
		if name == "" {
			log.Warn("row has no opportunity name")
			report.fail(n, "missing opportunity name")
			continue
		}

		value, err := parseValue(row.First(valueAliases))
		if err != nil {
			log.WithError(err).Warn("bad value")
			report.fail(n, err.Error())
			continue
		}
		tier, err := parseTier(row.First(tierAliases))
		if err != nil {
			report.fail(n, err.Error())
			continue
		}

		candidate := reconcile.Candidate{
			Name:            row.First(linkedContactNameAliases),
			Email:           row.First(emailAliases),
			Phone:           row.First(phoneAliases),
			CompanyName:     row.First(companyAliases),
			ValueTier:       tier,
			Owner:           imp.ownerOr(row.First(ownerAliases)),
			FallbackCompany: name,
		}

		opp := models.Opportunity{
			Name:         name,
			Value:        value,
			Stage:        sess.stageFor(row.First(stageAliases)),
			Status:       parseStatus(row.First(statusAliases)),
			Owner:        imp.ownerOr(row.First(ownerAliases)),
			Tags:         models.SplitTags(row.First(tagsAliases)),
			ContactName:  candidate.Name,
			ContactEmail: candidate.Email,
			ContactPhone: candidate.Phone,
			CompanyName:  candidate.CompanyName,
			Source:       row.First(sourceAliases),
			PipelineID:   row.First(pipelineAliases),
			Tasks:        []models.Task{},
			Notes:        []models.Note{},
		}
		if err := models.Validate(&opp); err != nil {
			report.fail(n, err.Error())
			continue
		}

		res, err := imp.reconciler.Reconcile(ctx, candidate, sess.contacts)
		if err != nil {
			log.WithError(err).Warn("contact sync failed; importing opportunity without contact link")
			report.Warnings = append(report.Warnings, fmt.Sprintf("row %d: %v", n, err))
		} else {
			sess.track(res)
			opp.ContactID = res.ContactID
		}

		// Same identity as the cleanup job; rows without a linked contact are
		// never treated as repeats.
		if opp.ContactID != nil {
			key := dedupe.OpportunityKey(opp)
			if sess.seen[key] {
				report.DuplicateCount++
				continue
			}
			sess.seen[key] = true
		}

		if err := imp.backend.CreateOpportunity(ctx, &opp); err != nil {
			log.WithError(err).Warn("failed to save opportunity")
			report.fail(n, err.Error())
			continue
		}
		report.SuccessCount++
	}

	imp.finish(ctx, &report)
	return report, nil
}

// ImportContacts imports one contact per row. A newly created contact also
// gets a companion opportunity in the first stage.
func (imp *Importer) ImportContacts(ctx context.Context, records []map[string]string) (Report, error) {
	var report Report
	sess, err := imp.begin(ctx)
	if err != nil {
		return report, err
	}

	for i, raw := range records {
		n := i + 1
		row := Normalize(raw)
		if row.Empty() {
			report.SkippedCount++
			continue
		}
		log := imp.log.WithField("row", n)

		name := contactName(row)
		email := row.First(emailAliases)
		if name == "" && email == "" {
			log.Warn("row has no contact name or email")
			report.fail(n, "missing contact name and email")
			continue
		}
		derived := name == ""
		if derived {
			name = email
		}

		tier, err := parseTier(row.First(tierAliases))
		if err != nil {
			report.fail(n, err.Error())
			continue
		}

		key := dedupe.ContactKey(models.Contact{Name: name, Email: email})
		if sess.seen[key] {
			report.DuplicateCount++
			continue
		}
		sess.seen[key] = true

		candidate := reconcile.Candidate{
			Name:        name,
			Email:       email,
			Phone:       row.First(phoneAliases),
			CompanyName: row.First(companyAliases),
			ValueTier:   tier,
			Owner:       imp.ownerOr(row.First(ownerAliases)),
			Type:        row.First(typeAliases),
			Status:      row.First(statusAliases),
			Notes:       row.First(notesAliases),
		}

		// An email standing in for the name must not rename a matched contact.
		if derived {
			if match := reconcile.Match(candidate, sess.contacts); match != nil && match.Name != "" {
				candidate.Name = match.Name
			}
		}

		res, err := imp.reconciler.Reconcile(ctx, candidate, sess.contacts)
		if err != nil {
			log.WithError(err).Warn("failed to save contact")
			report.fail(n, err.Error())
			continue
		}
		sess.track(res)
		report.SuccessCount++

		if !res.Created {
			continue
		}
		if err := imp.companion(ctx, sess, res.Contact); err != nil {
			log.WithError(err).Warn("failed to create companion opportunity")
			report.Warnings = append(report.Warnings, fmt.Sprintf("row %d: companion opportunity: %v", n, err))
		}
	}

	imp.finish(ctx, &report)
	return report, nil
}

func (imp *Importer) companion(ctx context.Context, sess *session, c *models.Contact) error {
	name := c.CompanyName
	if name == "" {
		name = c.Name
	}
	id := c.ID
	opp := models.Opportunity{
		Name:         name,
		Stage:        sess.stages[0].ID,
		Status:       models.StatusOpen,
		Owner:        c.Owner,
		ContactID:    &id,
		ContactName:  c.Name,
		ContactEmail: c.Email,
		ContactPhone: c.Phone,
		CompanyName:  c.CompanyName,
		Source:       "import",
		Tasks:        []models.Task{},
		Notes:        []models.Note{},
	}
	return imp.backend.CreateOpportunity(ctx, &opp)
}

// ExportOpportunities writes every opportunity visible to owner.
func (imp *Importer) ExportOpportunities(ctx context.Context, w io.Writer, owner string) (int, error) {
	opps, err := imp.engine.All(ctx, owner)
	if err != nil {
		return 0, err
	}
	stages, err := imp.engine.Stages(ctx)
	if err != nil {
		return 0, err
	}
	return len(opps), WriteOpportunities(w, opps, stages)
}

// ExportContacts writes the loaded contact list.
func (imp *Importer) ExportContacts(ctx context.Context, w io.Writer) (int, error) {
	contacts, err := imp.engine.Contacts().Ensure(ctx)
	if err != nil {
		return 0, err
	}
	return len(contacts), WriteContacts(w, contacts)
}
