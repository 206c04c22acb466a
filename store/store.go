// ABOUTME: Backend access port shared by every storage implementation
// ABOUTME: Per-kind CRUD and query interfaces, page and list option types
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/dedupe"
	"github.com/harperreed/pipecrm/models"
)

// ErrNotFound is returned by update and delete calls on ids that do not exist.
// Get calls return nil, nil instead.
var ErrNotFound = errors.New("not found")

// DefaultPageSize is used by callers that do not pick their own.
const DefaultPageSize = 10

// ListOptions filters and paginates a list call. PageSize <= 0 returns
// everything after the cursor.
type ListOptions struct {
	Owner    string
	Cursor   string
	PageSize int
}

// Page is one slice of a creation-ordered listing.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// StageTotals is the per-stage header summary.
type StageTotals struct {
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type ContactStore interface {
	ListContacts(ctx context.Context, opts ListOptions) (Page[models.Contact], error)
	SearchContacts(ctx context.Context, owner, term string) ([]models.Contact, error)
	GetContact(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	CreateContact(ctx context.Context, c *models.Contact) error
	UpdateContact(ctx context.Context, id uuid.UUID, patch models.ContactPatch) error
	DeleteContact(ctx context.Context, id uuid.UUID) error
	BulkDeleteContacts(ctx context.Context, ids []uuid.UUID) error
	RemoveDuplicateContacts(ctx context.Context) (dedupe.Result, error)
	SubscribeContacts(fn func([]models.Contact), owner string) (unsubscribe func())
}

type OpportunityStore interface {
	ListOpportunities(ctx context.Context, opts ListOptions) (Page[models.Opportunity], error)
	ListOpportunitiesByStage(ctx context.Context, stageID string, opts ListOptions) (Page[models.Opportunity], error)
	GetOpportunity(ctx context.Context, id uuid.UUID) (*models.Opportunity, error)
	CreateOpportunity(ctx context.Context, o *models.Opportunity) error
	UpdateOpportunity(ctx context.Context, id uuid.UUID, patch models.OpportunityPatch) error
	DeleteOpportunity(ctx context.Context, id uuid.UUID) error
	BulkDeleteOpportunities(ctx context.Context, ids []uuid.UUID) error
	StageAggregates(ctx context.Context) (map[string]StageTotals, error)
	RemoveDuplicateOpportunities(ctx context.Context) (dedupe.Result, error)
	SubscribeOpportunities(fn func([]models.Opportunity), owner string) (unsubscribe func())
}

// StageStore persists the stage list as a whole. SaveStages replaces it in one write.
type StageStore interface {
	LoadStages(ctx context.Context) ([]models.Stage, error)
	SaveStages(ctx context.Context, stages []models.Stage) error
}

type AppointmentStore interface {
	ListAppointments(ctx context.Context, opts ListOptions) (Page[models.Appointment], error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	UpdateAppointment(ctx context.Context, id uuid.UUID, patch models.AppointmentPatch) error
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	BulkDeleteAppointments(ctx context.Context, ids []uuid.UUID) error
}

type ConversationStore interface {
	ListConversations(ctx context.Context, opts ListOptions) (Page[models.Conversation], error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	CreateConversation(ctx context.Context, c *models.Conversation) error
	AppendMessage(ctx context.Context, id uuid.UUID, msg models.Message) error
	DeleteConversation(ctx context.Context, id uuid.UUID) error
}

// Backend is one storage implementation serving every entity kind.
type Backend interface {
	ContactStore
	OpportunityStore
	StageStore
	AppointmentStore
	ConversationStore
	Close() error
}

// All drains a paginated listing into a single slice.
func All[T any](ctx context.Context, list func(context.Context, ListOptions) (Page[T], error), opts ListOptions) ([]T, error) {
	var items []T
	for {
		page, err := list(ctx, opts)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if !page.HasMore || page.NextCursor == "" {
			return items, nil
		}
		opts.Cursor = page.NextCursor
	}
}
