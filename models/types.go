// ABOUTME: Data models for CRM entities
// ABOUTME: Defines Contact, Opportunity, Stage, Task, Note, Conversation and Appointment structs
package models

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name" validate:"required_without=Email"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	ValueTier   string    `json:"value_tier,omitempty" validate:"omitempty,oneof=Standard Mid High"`
	Owner       string    `json:"owner,omitempty"`
	CompanyName string    `json:"company_name,omitempty"`
	Type        string    `json:"type,omitempty"`
	Status      string    `json:"status,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Opportunity is a deal moving through the pipeline stages.
// ContactName, ContactEmail, ContactPhone and CompanyName are denormalized
// copies of the linked contact so the record survives the contact being removed.
type Opportunity struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name" validate:"required"`
	Value        float64    `json:"value" validate:"gte=0"`
	Stage        string     `json:"stage"`
	Status       string     `json:"status" validate:"oneof=Open Won Lost Abandoned"`
	Owner        string     `json:"owner,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	ContactID    *uuid.UUID `json:"contact_id,omitempty"`
	ContactName  string     `json:"contact_name,omitempty"`
	ContactEmail string     `json:"contact_email,omitempty"`
	ContactPhone string     `json:"contact_phone,omitempty"`
	CompanyName  string     `json:"company_name,omitempty"`
	Source       string     `json:"source,omitempty"`
	PipelineID   string     `json:"pipeline_id,omitempty"`
	Tasks        []Task     `json:"tasks"`
	Notes        []Note     `json:"notes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Stage struct {
	ID    string `json:"id"`
	Title string `json:"title" validate:"required"`
	Color string `json:"color,omitempty"`
}

// Task is embedded in an Opportunity and has no identity outside it.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsCompleted bool      `json:"is_completed"`
	DueDate     string    `json:"due_date,omitempty"`
	DueTime     string    `json:"due_time,omitempty"`
	IsRecurring bool      `json:"is_recurring,omitempty"`
	Assignee    string    `json:"assignee,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Conversation struct {
	ID          uuid.UUID `json:"id"`
	ContactID   uuid.UUID `json:"contact_id"`
	ContactName string    `json:"contact_name"`
	Owner       string    `json:"owner,omitempty"`
	LastMessage string    `json:"last_message,omitempty"`
	Time        time.Time `json:"time"`
	Messages    []Message `json:"messages"`
	CreatedAt   time.Time `json:"created_at"`
}

type Message struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Appointment struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title" validate:"required"`
	Date       string     `json:"date" validate:"required,datetime=2006-01-02"`
	Time       string     `json:"time,omitempty" validate:"omitempty,datetime=15:04"`
	AssignedTo string     `json:"assigned_to,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	ContactID  *uuid.UUID `json:"contact_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Opportunity statuses.
const (
	StatusOpen      = "Open"
	StatusWon       = "Won"
	StatusLost      = "Lost"
	StatusAbandoned = "Abandoned"
)

// Contact value tiers.
const (
	TierStandard = "Standard"
	TierMid      = "Mid"
	TierHigh     = "High"
)

// Message senders.
const (
	SenderMe   = "me"
	SenderThem = "them"
)

// Statuses lists every opportunity status in display order.
var Statuses = []string{StatusOpen, StatusWon, StatusLost, StatusAbandoned}

// Tiers lists every contact value tier from lowest to highest.
var Tiers = []string{TierStandard, TierMid, TierHigh}

// Append adds a message and refreshes the rolling summary fields.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.LastMessage = msg.Message
	c.Time = msg.Timestamp
}

// HasContact reports whether the opportunity links to the given contact.
func (o *Opportunity) HasContact(id uuid.UUID) bool {
	return o.ContactID != nil && *o.ContactID == id
}
