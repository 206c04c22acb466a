// ABOUTME: Conversations with contacts: one thread per contact, append-only messages
// ABOUTME: Sends can run in the background; the caller may stop listening at any time

package inbox

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
	"github.com/sirupsen/logrus"
)

// ContactLookup resolves the contact a thread is opened for.
type ContactLookup interface {
	GetContact(ctx context.Context, id uuid.UUID) (*models.Contact, error)
}

type Service struct {
	conversations store.ConversationStore
	contacts      ContactLookup
	log           logrus.FieldLogger
	now           func() time.Time
}

func New(conversations store.ConversationStore, contacts ContactLookup, log logrus.FieldLogger) *Service {
	return &Service{
		conversations: conversations,
		contacts:      contacts,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Open returns the contact's thread, creating it on first use.
func (s *Service) Open(ctx context.Context, contactID uuid.UUID, owner string) (*models.Conversation, error) {
	all, err := store.All(ctx, s.conversations.ListConversations, store.ListOptions{Owner: owner})
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ContactID == contactID {
			return &all[i], nil
		}
	}

	contact, err := s.contacts.GetContact(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("contact %s: %w", contactID, store.ErrNotFound)
	}

	conv := &models.Conversation{
		ContactID:   contactID,
		ContactName: contact.Name,
		Owner:       owner,
		Messages:    []models.Message{},
	}
	if err := s.conversations.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"conversation_id": conv.ID, "contact_id": contactID}).Debug("opened conversation")
	return conv, nil
}

func (s *Service) post(ctx context.Context, convID uuid.UUID, sender, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, models.Invalid("message", "is required")
	}
	msg := models.Message{Sender: sender, Message: text, Timestamp: s.now()}
	if err := s.conversations.AppendMessage(ctx, convID, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Send appends an outgoing message.
func (s *Service) Send(ctx context.Context, convID uuid.UUID, text string) (models.Message, error) {
	return s.post(ctx, convID, models.SenderMe, text)
}

// Receive appends an incoming message.
func (s *Service) Receive(ctx context.Context, convID uuid.UUID, text string) (models.Message, error) {
	return s.post(ctx, convID, models.SenderThem, text)
}

// SendAsync sends in a goroutine. The channel is buffered, so a caller that
// never reads from it does not leak the goroutine.
func (s *Service) SendAsync(ctx context.Context, convID uuid.UUID, text string) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := s.Send(ctx, convID, text)
		if err != nil {
			s.log.WithError(err).WithField("conversation_id", convID).Warn("send failed")
		}
		done <- err
	}()
	return done
}

// List returns owner's threads, most recently active first.
func (s *Service) List(ctx context.Context, owner string) ([]models.Conversation, error) {
	all, err := store.All(ctx, s.conversations.ListConversations, store.ListOptions{Owner: owner})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Time.After(all[j].Time) })
	return all, nil
}

func (s *Service) Thread(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv, err := s.conversations.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s: %w", id, store.ErrNotFound)
	}
	return conv, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.conversations.DeleteConversation(ctx, id)
}
