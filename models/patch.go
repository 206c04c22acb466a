// ABOUTME: Partial update types for contacts, opportunities and appointments
// ABOUTME: Nil fields are left untouched when a patch is applied
package models

import (
	"github.com/google/uuid"
)

type ContactPatch struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	ValueTier   *string `json:"value_tier,omitempty"`
	Owner       *string `json:"owner,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
	Type        *string `json:"type,omitempty"`
	Status      *string `json:"status,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ContactPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.ValueTier == nil &&
		p.Owner == nil && p.CompanyName == nil && p.Type == nil && p.Status == nil && p.Notes == nil
}

func (p ContactPatch) Apply(c *Contact) {
	setString(&c.Name, p.Name)
	setString(&c.Email, p.Email)
	setString(&c.Phone, p.Phone)
	setString(&c.ValueTier, p.ValueTier)
	setString(&c.Owner, p.Owner)
	setString(&c.CompanyName, p.CompanyName)
	setString(&c.Type, p.Type)
	setString(&c.Status, p.Status)
	setString(&c.Notes, p.Notes)
}

type OpportunityPatch struct {
	Name         *string    `json:"name,omitempty"`
	Value        *float64   `json:"value,omitempty"`
	Stage        *string    `json:"stage,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Owner        *string    `json:"owner,omitempty"`
	Tags         *[]string  `json:"tags,omitempty"`
	ContactID    *uuid.UUID `json:"contact_id,omitempty"`
	ClearContact bool       `json:"clear_contact,omitempty"`
	ContactName  *string    `json:"contact_name,omitempty"`
	ContactEmail *string    `json:"contact_email,omitempty"`
	ContactPhone *string    `json:"contact_phone,omitempty"`
	CompanyName  *string    `json:"company_name,omitempty"`
	Source       *string    `json:"source,omitempty"`
	PipelineID   *string    `json:"pipeline_id,omitempty"`
	Tasks        *[]Task    `json:"tasks,omitempty"`
	Notes        *[]Note    `json:"notes,omitempty"`
}

// TouchesContact reports whether the patch changes any denormalized contact field.
func (p OpportunityPatch) TouchesContact() bool {
	return p.ContactName != nil || p.ContactEmail != nil || p.ContactPhone != nil || p.CompanyName != nil
}

func (p OpportunityPatch) Apply(o *Opportunity) {
	setString(&o.Name, p.Name)
	if p.Value != nil {
		o.Value = *p.Value
	}
	setString(&o.Stage, p.Stage)
	setString(&o.Status, p.Status)
	setString(&o.Owner, p.Owner)
	if p.Tags != nil {
		o.Tags = NormalizeTags(*p.Tags)
	}
	if p.ClearContact {
		o.ContactID = nil
	}
	if p.ContactID != nil {
		id := *p.ContactID
		o.ContactID = &id
	}
	setString(&o.ContactName, p.ContactName)
	setString(&o.ContactEmail, p.ContactEmail)
	setString(&o.ContactPhone, p.ContactPhone)
	setString(&o.CompanyName, p.CompanyName)
	setString(&o.Source, p.Source)
	setString(&o.PipelineID, p.PipelineID)
	if p.Tasks != nil {
		o.Tasks = append([]Task(nil), (*p.Tasks)...)
	}
	if p.Notes != nil {
		o.Notes = append([]Note(nil), (*p.Notes)...)
	}
}

type AppointmentPatch struct {
	Title      *string    `json:"title,omitempty"`
	Date       *string    `json:"date,omitempty"`
	Time       *string    `json:"time,omitempty"`
	AssignedTo *string    `json:"assigned_to,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	ContactID  *uuid.UUID `json:"contact_id,omitempty"`
}

func (p AppointmentPatch) Apply(a *Appointment) {
	setString(&a.Title, p.Title)
	setString(&a.Date, p.Date)
	setString(&a.Time, p.Time)
	setString(&a.AssignedTo, p.AssignedTo)
	setString(&a.Notes, p.Notes)
	if p.ContactID != nil {
		id := *p.ContactID
		a.ContactID = &id
	}
}

// String returns a pointer to s, for building patches.
func String(s string) *string {
	return &s
}

// Float returns a pointer to f, for building patches.
func Float(f float64) *float64 {
	return &f
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
