// ABOUTME: Charm KV implementation of the backend access port
// ABOUTME: Entities are JSON documents under kind prefixes, ordered by (created_at, id)

package charm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/dedupe"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
)

const (
	contactPrefix      = "contact:"
	opportunityPrefix  = "opportunity:"
	appointmentPrefix  = "appointment:"
	conversationPrefix = "conversation:"
	stagesKey          = "stages"
)

// Store is the Charm KV implementation of store.Backend.
type Store struct {
	client *Client

	// mu serializes read-modify-write cycles and keeps created_at strictly
	// increasing so creation order survives identical clock readings.
	mu      sync.Mutex
	lastNow time.Time

	contacts      collection[models.Contact]
	opportunities collection[models.Opportunity]
	appointments  collection[models.Appointment]
	conversations collection[models.Conversation]

	contactFeed     store.Feed[models.Contact]
	opportunityFeed store.Feed[models.Opportunity]
}

var _ store.Backend = (*Store)(nil)

// NewStore builds a backend over an open client.
func NewStore(client *Client) *Store {
	return &Store{
		client: client,
		contacts: collection[models.Contact]{
			client: client, prefix: contactPrefix, kind: "contact",
			id:      func(c *models.Contact) uuid.UUID { return c.ID },
			created: func(c *models.Contact) time.Time { return c.CreatedAt },
		},
		opportunities: collection[models.Opportunity]{
			client: client, prefix: opportunityPrefix, kind: "opportunity",
			id:      func(o *models.Opportunity) uuid.UUID { return o.ID },
			created: func(o *models.Opportunity) time.Time { return o.CreatedAt },
		},
		appointments: collection[models.Appointment]{
			client: client, prefix: appointmentPrefix, kind: "appointment",
			id:      func(a *models.Appointment) uuid.UUID { return a.ID },
			created: func(a *models.Appointment) time.Time { return a.CreatedAt },
		},
		conversations: collection[models.Conversation]{
			client: client, prefix: conversationPrefix, kind: "conversation",
			id:      func(c *models.Conversation) uuid.UUID { return c.ID },
			created: func(c *models.Conversation) time.Time { return c.CreatedAt },
		},
	}
}

// Client exposes the KV client for sync commands.
func (s *Store) Client() *Client {
	return s.client
}

func (s *Store) Close() error {
	return s.client.Close()
}

// now must be called with s.mu held.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.lastNow) {
		t = s.lastNow.Add(time.Nanosecond)
	}
	s.lastNow = t
	return t
}

// collection is one entity kind stored as JSON documents keyed prefix+id.
type collection[T any] struct {
	client  *Client
	prefix  string
	kind    string
	id      func(*T) uuid.UUID
	created func(*T) time.Time
}

func (col collection[T]) key(id uuid.UUID) []byte {
	return []byte(col.prefix + id.String())
}

func (col collection[T]) get(id uuid.UUID) (*T, error) {
	data, err := col.client.Get(col.key(id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %w", col.kind, id, err)
	}

	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", col.kind, id, err)
	}
	return &item, nil
}

func (col collection[T]) put(item *T) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", col.kind, err)
	}
	return col.client.Set(col.key(col.id(item)), data)
}

func (col collection[T]) mustGet(id uuid.UUID) (*T, error) {
	item, err := col.get(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%s %s: %w", col.kind, id, store.ErrNotFound)
	}
	return item, nil
}

func (col collection[T]) remove(id uuid.UUID) error {
	if _, err := col.mustGet(id); err != nil {
		return err
	}
	return col.client.Delete(col.key(id))
}

// all loads every document of the kind in creation order.
func (col collection[T]) all() ([]T, error) {
	keys, err := col.client.KeysWithPrefix([]byte(col.prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s keys: %w", col.kind, err)
	}

	items := make([]T, 0, len(keys))
	for _, k := range keys {
		data, err := col.client.Get(k)
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", k, err)
		}
		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", k, err)
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := col.created(&items[i]), col.created(&items[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return col.id(&items[i]).String() < col.id(&items[j]).String()
	})
	return items, nil
}

// page filters items with keep, skips everything up to and including the
// cursor position and cuts the result to the page size.
func (col collection[T]) page(items []T, opts store.ListOptions, keep func(*T) bool) (store.Page[T], error) {
	var result store.Page[T]

	var afterTime time.Time
	var afterID string
	if opts.Cursor != "" {
		parts, err := store.DecodeCursor(opts.Cursor, 2)
		if err != nil {
			return result, err
		}
		afterTime, err = time.Parse(time.RFC3339Nano, parts[0])
		if err != nil {
			return result, fmt.Errorf("%w: %v", store.ErrBadCursor, err)
		}
		afterID = parts[1]
	}

	for i := range items {
		item := &items[i]
		if keep != nil && !keep(item) {
			continue
		}
		if opts.Cursor != "" {
			created, id := col.created(item), col.id(item).String()
			if created.Before(afterTime) || (created.Equal(afterTime) && id <= afterID) {
				continue
			}
		}
		if opts.PageSize > 0 && len(result.Items) == opts.PageSize {
			result.HasMore = true
			break
		}
		result.Items = append(result.Items, *item)
	}

	if result.HasMore {
		last := &result.Items[len(result.Items)-1]
		result.NextCursor = store.EncodeCursor(col.created(last).Format(time.RFC3339Nano), col.id(last).String())
	}
	return result, nil
}

func (col collection[T]) list(opts store.ListOptions, keep func(*T) bool) (store.Page[T], error) {
	items, err := col.all()
	if err != nil {
		return store.Page[T]{}, err
	}
	return col.page(items, opts, keep)
}

// deleteAll applies a batch delete key by key with a single sync and stops at
// the first failure.
func (col collection[T]) deleteAll(ids []uuid.UUID) error {
	keys := make([][]byte, len(ids))
	for i, id := range ids {
		keys[i] = col.key(id)
	}
	if err := col.client.DeleteMany(keys); err != nil {
		return fmt.Errorf("failed to delete %s batch: %w", col.kind, err)
	}
	return nil
}

func ownedBy[T any](owner string, ownerOf func(*T) string) func(*T) bool {
	if owner == "" {
		return nil
	}
	return func(item *T) bool { return ownerOf(item) == owner }
}

func contactOwner(c *models.Contact) string         { return c.Owner }
func opportunityOwner(o *models.Opportunity) string { return o.Owner }

func (s *Store) publishContacts() {
	if !s.contactFeed.Active() {
		return
	}
	items, err := s.contacts.all()
	if err != nil {
		return
	}
	s.contactFeed.Publish(items, func(c models.Contact) string { return c.Owner })
}

func (s *Store) publishOpportunities() {
	if !s.opportunityFeed.Active() {
		return
	}
	items, err := s.opportunities.all()
	if err != nil {
		return
	}
	s.opportunityFeed.Publish(items, func(o models.Opportunity) string { return o.Owner })
}

// Contacts

func (s *Store) ListContacts(_ context.Context, opts store.ListOptions) (store.Page[models.Contact], error) {
	return s.contacts.list(opts, ownedBy(opts.Owner, contactOwner))
}

func (s *Store) SearchContacts(_ context.Context, owner, term string) ([]models.Contact, error) {
	term = strings.ToLower(term)
	matches := func(c *models.Contact) bool {
		if owner != "" && c.Owner != owner {
			return false
		}
		for _, field := range []string{c.Name, c.Email, c.Phone, c.CompanyName} {
			if strings.Contains(strings.ToLower(field), term) {
				return true
			}
		}
		return false
	}

	page, err := s.contacts.list(store.ListOptions{}, matches)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (s *Store) GetContact(_ context.Context, id uuid.UUID) (*models.Contact, error) {
	return s.contacts.get(id)
}

func (s *Store) CreateContact(_ context.Context, c *models.Contact) error {
	s.mu.Lock()
	c.ID = uuid.New()
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	err := s.contacts.put(c)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	s.publishContacts()
	return nil
}

func (s *Store) UpdateContact(_ context.Context, id uuid.UUID, patch models.ContactPatch) error {
	s.mu.Lock()
	err := func() error {
		c, err := s.contacts.mustGet(id)
		if err != nil {
			return err
		}
		patch.Apply(c)
		c.UpdatedAt = s.now()
		return s.contacts.put(c)
	}()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publishContacts()
	return nil
}

func (s *Store) DeleteContact(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	err := s.contacts.remove(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publishContacts()
	return nil
}

func (s *Store) BulkDeleteContacts(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	err := s.contacts.deleteAll(ids)
	s.mu.Unlock()

	s.publishContacts()
	return err
}

func (s *Store) RemoveDuplicateContacts(_ context.Context) (dedupe.Result, error) {
	s.mu.Lock()
	result, err := func() (dedupe.Result, error) {
		items, err := s.contacts.all()
		if err != nil {
			return dedupe.Result{}, err
		}
		remove, result := dedupe.Plan(dedupe.Contacts(items))
		return result, s.contacts.deleteAll(remove)
	}()
	s.mu.Unlock()
	if err != nil {
		return dedupe.Result{}, fmt.Errorf("failed to remove duplicate contacts: %w", err)
	}

	if result.Removed > 0 {
		s.publishContacts()
	}
	return result, nil
}

func (s *Store) SubscribeContacts(fn func([]models.Contact), owner string) func() {
	return s.contactFeed.Subscribe(fn, owner)
}

// Opportunities

func (s *Store) ListOpportunities(_ context.Context, opts store.ListOptions) (store.Page[models.Opportunity], error) {
	return s.opportunities.list(opts, ownedBy(opts.Owner, opportunityOwner))
}

func (s *Store) ListOpportunitiesByStage(_ context.Context, stageID string, opts store.ListOptions) (store.Page[models.Opportunity], error) {
	return s.opportunities.list(opts, func(o *models.Opportunity) bool {
		return o.Stage == stageID && (opts.Owner == "" || o.Owner == opts.Owner)
	})
}

func (s *Store) GetOpportunity(_ context.Context, id uuid.UUID) (*models.Opportunity, error) {
	return s.opportunities.get(id)
}

func (s *Store) CreateOpportunity(_ context.Context, o *models.Opportunity) error {
	s.mu.Lock()
	o.ID = uuid.New()
	o.CreatedAt = s.now()
	o.UpdatedAt = o.CreatedAt
	err := s.opportunities.put(o)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to create opportunity: %w", err)
	}

	s.publishOpportunities()
	return nil
}

func (s *Store) UpdateOpportunity(_ context.Context, id uuid.UUID, patch models.OpportunityPatch) error {
	s.mu.Lock()
	err := func() error {
		o, err := s.opportunities.mustGet(id)
		if err != nil {
			return err
		}
		patch.Apply(o)
		o.UpdatedAt = s.now()
		return s.opportunities.put(o)
	}()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publishOpportunities()
	return nil
}

func (s *Store) DeleteOpportunity(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	err := s.opportunities.remove(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publishOpportunities()
	return nil
}

func (s *Store) BulkDeleteOpportunities(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	err := s.opportunities.deleteAll(ids)
	s.mu.Unlock()

	s.publishOpportunities()
	return err
}

// StageAggregates scans one snapshot of every opportunity.
func (s *Store) StageAggregates(_ context.Context) (map[string]store.StageTotals, error) {
	items, err := s.opportunities.all()
	if err != nil {
		return nil, err
	}

	totals := make(map[string]store.StageTotals)
	for _, o := range items {
		t := totals[o.Stage]
		t.Count++
		t.Value += o.Value
		totals[o.Stage] = t
	}
	return totals, nil
}

func (s *Store) RemoveDuplicateOpportunities(_ context.Context) (dedupe.Result, error) {
	s.mu.Lock()
	result, err := func() (dedupe.Result, error) {
		items, err := s.opportunities.all()
		if err != nil {
			return dedupe.Result{}, err
		}
		remove, result := dedupe.Plan(dedupe.Opportunities(items))
		return result, s.opportunities.deleteAll(remove)
	}()
	s.mu.Unlock()
	if err != nil {
		return dedupe.Result{}, fmt.Errorf("failed to remove duplicate opportunities: %w", err)
	}

	if result.Removed > 0 {
		s.publishOpportunities()
	}
	return result, nil
}

func (s *Store) SubscribeOpportunities(fn func([]models.Opportunity), owner string) func() {
	return s.opportunityFeed.Subscribe(fn, owner)
}

// Stages

func (s *Store) LoadStages(_ context.Context) ([]models.Stage, error) {
	data, err := s.client.Get([]byte(stagesKey))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stages: %w", err)
	}

	var stages []models.Stage
	if err := json.Unmarshal(data, &stages); err != nil {
		return nil, fmt.Errorf("failed to decode stages: %w", err)
	}
	if len(stages) == 0 {
		return nil, nil
	}
	return stages, nil
}

// SaveStages writes the whole list as a single document.
func (s *Store) SaveStages(_ context.Context, stages []models.Stage) error {
	if stages == nil {
		stages = []models.Stage{}
	}
	data, err := json.Marshal(stages)
	if err != nil {
		return fmt.Errorf("failed to encode stages: %w", err)
	}
	if err := s.client.Set([]byte(stagesKey), data); err != nil {
		return fmt.Errorf("failed to save stages: %w", err)
	}
	return nil
}

// Appointments

func (s *Store) ListAppointments(_ context.Context, opts store.ListOptions) (store.Page[models.Appointment], error) {
	return s.appointments.list(opts, ownedBy(opts.Owner, func(a *models.Appointment) string { return a.AssignedTo }))
}

func (s *Store) GetAppointment(_ context.Context, id uuid.UUID) (*models.Appointment, error) {
	return s.appointments.get(id)
}

func (s *Store) CreateAppointment(_ context.Context, a *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = uuid.New()
	a.CreatedAt = s.now()
	if err := s.appointments.put(a); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (s *Store) UpdateAppointment(_ context.Context, id uuid.UUID, patch models.AppointmentPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.appointments.mustGet(id)
	if err != nil {
		return err
	}
	patch.Apply(a)
	return s.appointments.put(a)
}

func (s *Store) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appointments.remove(id)
}

func (s *Store) BulkDeleteAppointments(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appointments.deleteAll(ids)
}

// Conversations

func (s *Store) ListConversations(_ context.Context, opts store.ListOptions) (store.Page[models.Conversation], error) {
	return s.conversations.list(opts, ownedBy(opts.Owner, func(c *models.Conversation) string { return c.Owner }))
}

func (s *Store) GetConversation(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	return s.conversations.get(id)
}

func (s *Store) CreateConversation(_ context.Context, c *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = uuid.New()
	c.CreatedAt = s.now()
	if c.Time.IsZero() {
		c.Time = c.CreatedAt
	}
	if c.Messages == nil {
		c.Messages = []models.Message{}
	}
	if err := s.conversations.put(c); err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (s *Store) AppendMessage(_ context.Context, id uuid.UUID, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.conversations.mustGet(id)
	if err != nil {
		return err
	}
	c.Append(msg)
	return s.conversations.put(c)
}

func (s *Store) DeleteConversation(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations.remove(id)
}
