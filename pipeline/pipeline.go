// ABOUTME: Opportunity stage engine: create, update, move, list and delete opportunities
// ABOUTME: Keeps linked contacts reconciled and infers status from closed-stage transitions

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/cache"
	"github.com/harperreed/pipecrm/dedupe"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/reconcile"
	"github.com/harperreed/pipecrm/store"
	"github.com/sirupsen/logrus"
)

// Backend is the part of the storage port the engine needs.
type Backend interface {
	store.ContactStore
	store.OpportunityStore
	store.StageStore
}

type Config struct {
	// ClosedStageID is the closed/won stage. Defaults to "10".
	ClosedStageID string
	// PageSize is the default page size for per-stage listing. Defaults to 10.
	PageSize int
	// CascadeSharedContacts controls whether deleting an opportunity also
	// deletes a contact that other opportunities still reference.
	CascadeSharedContacts bool
}

type Service struct {
	backend    Backend
	contacts   *cache.Cache[models.Contact]
	reconciler *reconcile.Reconciler
	cfg        Config
	log        logrus.FieldLogger

	mu     sync.Mutex
	stages []models.Stage
}

// New builds the engine. contacts is the shared contact working set used for
// reconciliation; it is refreshed after any contact write.
func New(backend Backend, contacts *cache.Cache[models.Contact], cfg Config, log logrus.FieldLogger) *Service {
	if cfg.ClosedStageID == "" {
		cfg.ClosedStageID = "10"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = store.DefaultPageSize
	}
	return &Service{
		backend:    backend,
		contacts:   contacts,
		reconciler: reconcile.New(backend, log),
		cfg:        cfg,
		log:        log,
	}
}

// Contacts exposes the shared contact cache.
func (s *Service) Contacts() *cache.Cache[models.Contact] {
	return s.contacts
}

// InferStatus applies the closed-stage rule to a stage move: entering the
// closed stage forces Won, leaving it re-opens, anything else keeps current.
func InferStatus(fromStage, toStage, current, closedStage string) string {
	switch {
	case toStage == closedStage:
		return models.StatusWon
	case fromStage == closedStage:
		return models.StatusOpen
	default:
		return current
	}
}

// SaveOption adjusts how the linked contact is reconciled.
type SaveOption func(*reconcile.Candidate)

// WithValueTier sets the value tier carried to the linked contact.
func WithValueTier(tier string) SaveOption {
	return func(c *reconcile.Candidate) { c.ValueTier = tier }
}

// WithContactOwner assigns the owner of a newly created contact.
func WithContactOwner(owner string) SaveOption {
	return func(c *reconcile.Candidate) { c.Owner = owner }
}

// SaveResult carries the persisted opportunity and what happened to its contact.
// Warnings hold non-fatal reconciliation problems.
type SaveResult struct {
	Opportunity    *models.Opportunity `json:"opportunity"`
	Contact        *models.Contact     `json:"contact,omitempty"`
	ContactCreated bool                `json:"contact_created"`
	ContactPatched bool                `json:"contact_patched"`
	Warnings       []string            `json:"warnings,omitempty"`
}

func candidateFor(o *models.Opportunity, opts []SaveOption) reconcile.Candidate {
	c := reconcile.Candidate{
		Name:            o.ContactName,
		Email:           o.ContactEmail,
		Phone:           o.ContactPhone,
		CompanyName:     o.CompanyName,
		Owner:           o.Owner,
		FallbackCompany: o.Name,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// link reconciles the opportunity's contact fields. Failures are downgraded to
// warnings and leave the opportunity unlinked.
func (s *Service) link(ctx context.Context, o *models.Opportunity, opts []SaveOption, result *SaveResult) {
	candidate := candidateFor(o, opts)
	if strings.TrimSpace(candidate.Name) == "" {
		return
	}

	existing, err := s.contacts.Ensure(ctx)
	if err != nil {
		s.warn(result, o, fmt.Errorf("%w: load contacts: %v", reconcile.ErrReconcile, err))
		return
	}

	rec, err := s.reconciler.Reconcile(ctx, candidate, existing)
	if err != nil {
		s.warn(result, o, err)
		return
	}
	if rec.ContactID == nil {
		return
	}

	o.ContactID = rec.ContactID
	result.Contact = rec.Contact
	result.ContactCreated = rec.Created
	result.ContactPatched = rec.Patched

	// Fill denormalized copies the caller left empty.
	if rec.Contact != nil {
		if o.ContactEmail == "" {
			o.ContactEmail = rec.Contact.Email
		}
		if o.ContactPhone == "" {
			o.ContactPhone = rec.Contact.Phone
		}
		if o.CompanyName == "" {
			o.CompanyName = rec.Contact.CompanyName
		}
	}

	if rec.Created || rec.Patched {
		if err := s.contacts.Refresh(ctx); err != nil {
			s.log.WithError(err).Warn("failed to refresh contacts after reconciliation")
		}
	}
}

func (s *Service) warn(result *SaveResult, o *models.Opportunity, err error) {
	s.log.WithFields(logrus.Fields{
		"opportunity": o.Name,
		"contact":     o.ContactName,
	}).WithError(err).Warn("contact sync failed; saving opportunity without contact link")
	result.Warnings = append(result.Warnings, err.Error())
}

// Create validates and persists a new opportunity, reconciling its contact
// first. An empty stage means the first configured stage.
func (s *Service) Create(ctx context.Context, o models.Opportunity, opts ...SaveOption) (SaveResult, error) {
	var result SaveResult

	o.Name = strings.TrimSpace(o.Name)
	o.Tags = models.NormalizeTags(o.Tags)
	if o.Tasks == nil {
		o.Tasks = []models.Task{}
	}
	if o.Notes == nil {
		o.Notes = []models.Note{}
	}
	if o.Stage == "" {
		first, err := s.DefaultStage(ctx)
		if err != nil {
			return result, err
		}
		o.Stage = first.ID
	}
	if o.Status == "" {
		o.Status = InferStatus("", o.Stage, models.StatusOpen, s.cfg.ClosedStageID)
	}

	if err := models.Validate(&o); err != nil {
		return result, err
	}

	s.link(ctx, &o, opts, &result)

	if err := s.backend.CreateOpportunity(ctx, &o); err != nil {
		return result, fmt.Errorf("failed to save opportunity: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"opportunity_id": o.ID,
		"stage":          o.Stage,
	}).Info("created opportunity")

	result.Opportunity = &o
	return result, nil
}

// Update applies a partial update. When the patch changes contact fields the
// contact is reconciled again and the link follows the result.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch models.OpportunityPatch, opts ...SaveOption) (SaveResult, error) {
	var result SaveResult

	current, err := s.backend.GetOpportunity(ctx, id)
	if err != nil {
		return result, err
	}
	if current == nil {
		return result, fmt.Errorf("opportunity %s: %w", id, store.ErrNotFound)
	}

	if patch.Name != nil {
		patch.Name = models.String(strings.TrimSpace(*patch.Name))
	}

	merged := *current
	patch.Apply(&merged)
	if err := models.Validate(&merged); err != nil {
		return result, err
	}

	if patch.TouchesContact() || len(opts) > 0 {
		before := merged.ContactID
		// Changed contact fields must not keep pointing at the old contact.
		if patch.TouchesContact() {
			merged.ContactID = nil
		}
		s.link(ctx, &merged, opts, &result)
		switch {
		case merged.ContactID == nil && before != nil:
			patch.ClearContact = true
		case merged.ContactID != nil && (before == nil || *before != *merged.ContactID):
			patch.ContactID = merged.ContactID
		}
		patch.ContactEmail = models.String(merged.ContactEmail)
		patch.ContactPhone = models.String(merged.ContactPhone)
		patch.CompanyName = models.String(merged.CompanyName)
	}

	if err := s.backend.UpdateOpportunity(ctx, id, patch); err != nil {
		return result, err
	}

	updated, err := s.backend.GetOpportunity(ctx, id)
	if err != nil {
		return result, err
	}
	result.Opportunity = updated
	return result, nil
}

// MoveToStage moves an opportunity, applying InferStatus. Moving to the stage
// it is already in is a no-op and writes nothing.
func (s *Service) MoveToStage(ctx context.Context, id uuid.UUID, stageID string) (*models.Opportunity, error) {
	opp, err := s.backend.GetOpportunity(ctx, id)
	if err != nil {
		return nil, err
	}
	if opp == nil {
		return nil, fmt.Errorf("opportunity %s: %w", id, store.ErrNotFound)
	}
	if opp.Stage == stageID {
		return opp, nil
	}

	stages, err := s.Stages(ctx)
	if err != nil {
		return nil, err
	}
	if !hasStage(stages, stageID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStage, stageID)
	}

	patch := models.OpportunityPatch{Stage: models.String(stageID)}
	if status := InferStatus(opp.Stage, stageID, opp.Status, s.cfg.ClosedStageID); status != opp.Status {
		patch.Status = models.String(status)
	}

	if err := s.backend.UpdateOpportunity(ctx, id, patch); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"opportunity_id": id,
		"from":           opp.Stage,
		"stage":          stageID,
	}).Info("moved opportunity")

	return s.backend.GetOpportunity(ctx, id)
}

func hasStage(stages []models.Stage, id string) bool {
	for _, st := range stages {
		if st.ID == id {
			return true
		}
	}
	return false
}

// ListByStage returns one creation-ordered page of a stage. A zero page size
// uses the configured default; a negative one returns the rest of the stage.
func (s *Service) ListByStage(ctx context.Context, stageID string, opts store.ListOptions) (store.Page[models.Opportunity], error) {
	switch {
	case opts.PageSize == 0:
		opts.PageSize = s.cfg.PageSize
	case opts.PageSize < 0:
		opts.PageSize = 0
	}
	return s.backend.ListOpportunitiesByStage(ctx, stageID, opts)
}

func (s *Service) StageAggregates(ctx context.Context) (map[string]store.StageTotals, error) {
	return s.backend.StageAggregates(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	return s.backend.GetOpportunity(ctx, id)
}

// All returns every opportunity, optionally for one owner.
func (s *Service) All(ctx context.Context, owner string) ([]models.Opportunity, error) {
	return store.All(ctx, s.backend.ListOpportunities, store.ListOptions{Owner: owner})
}

// DeleteResult describes the effect of deleting an opportunity on its contact.
type DeleteResult struct {
	ContactID      *uuid.UUID `json:"contact_id,omitempty"`
	ContactDeleted bool       `json:"contact_deleted"`
	// SharedWith counts other opportunities that referenced the contact.
	SharedWith int      `json:"shared_with"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Delete removes an opportunity and then its linked contact. When other
// opportunities still reference that contact a warning is reported, and the
// contact is kept if CascadeSharedContacts is off.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (DeleteResult, error) {
	var result DeleteResult

	opp, err := s.backend.GetOpportunity(ctx, id)
	if err != nil {
		return result, err
	}
	if opp == nil {
		return result, fmt.Errorf("opportunity %s: %w", id, store.ErrNotFound)
	}

	if err := s.backend.DeleteOpportunity(ctx, id); err != nil {
		return result, err
	}
	s.log.WithField("opportunity_id", id).Info("deleted opportunity")

	if opp.ContactID == nil {
		return result, nil
	}
	contactID := *opp.ContactID
	result.ContactID = &contactID
	log := s.log.WithFields(logrus.Fields{"opportunity_id": id, "contact_id": contactID})

	shared, err := s.referencesTo(ctx, contactID)
	if err != nil {
		log.WithError(err).Warn("could not check other references to contact")
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not check other references to contact %s: %v", contactID, err))
	}
	result.SharedWith = shared

	if shared > 0 {
		if !s.cfg.CascadeSharedContacts {
			msg := fmt.Sprintf("kept contact %s: still referenced by %d other opportunities", contactID, shared)
			log.Warn(msg)
			result.Warnings = append(result.Warnings, msg)
			return result, nil
		}
		msg := fmt.Sprintf("deleted contact %s although %d other opportunities reference it", contactID, shared)
		log.Warn(msg)
		result.Warnings = append(result.Warnings, msg)
	}

	err = s.backend.DeleteContact(ctx, contactID)
	switch {
	case err == nil:
		result.ContactDeleted = true
	case errors.Is(err, store.ErrNotFound):
		// already gone
	default:
		log.WithError(err).Warn("failed to delete linked contact")
		result.Warnings = append(result.Warnings, fmt.Sprintf("failed to delete contact %s: %v", contactID, err))
	}

	if err := s.contacts.Refresh(ctx); err != nil {
		log.WithError(err).Warn("failed to refresh contacts after delete")
	}
	return result, nil
}

func (s *Service) referencesTo(ctx context.Context, contactID uuid.UUID) (int, error) {
	opps, err := s.All(ctx, "")
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range opps {
		if opps[i].HasContact(contactID) {
			n++
		}
	}
	return n, nil
}

// BulkDelete removes many opportunities in one backend call. Linked contacts
// are not touched.
func (s *Service) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.backend.BulkDeleteOpportunities(ctx, ids); err != nil {
		return fmt.Errorf("bulk delete failed, no opportunities were removed: %w", err)
	}
	s.log.WithField("count", len(ids)).Info("bulk deleted opportunities")
	return nil
}

// Kind selects the entity kind for duplicate cleanup.
type Kind string

const (
	KindContacts      Kind = "contacts"
	KindOpportunities Kind = "opportunities"
)

// ParseKind accepts singular or plural kind names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contact", "contacts":
		return KindContacts, nil
	case "opportunity", "opportunities", "opp", "opps":
		return KindOpportunities, nil
	}
	return "", models.Invalid("kind", fmt.Sprintf("unknown entity kind %q", s))
}

// RemoveDuplicates runs the duplicate cleanup job for one kind. Dependent
// records are not updated, so opportunities may keep pointing at a removed
// duplicate contact.
func (s *Service) RemoveDuplicates(ctx context.Context, kind Kind) (dedupe.Result, error) {
	var result dedupe.Result
	var err error

	switch kind {
	case KindContacts:
		result, err = s.backend.RemoveDuplicateContacts(ctx)
		if err == nil && result.Removed > 0 {
			if rerr := s.contacts.Refresh(ctx); rerr != nil {
				s.log.WithError(rerr).Warn("failed to refresh contacts after cleanup")
			}
		}
	case KindOpportunities:
		result, err = s.backend.RemoveDuplicateOpportunities(ctx)
	default:
		return result, models.Invalid("kind", fmt.Sprintf("unknown entity kind %q", kind))
	}
	if err != nil {
		return dedupe.Result{}, err
	}

	s.log.WithFields(logrus.Fields{
		"kind":    kind,
		"removed": result.Removed,
		"kept":    result.Kept,
	}).Info("removed duplicates")
	return result, nil
}
