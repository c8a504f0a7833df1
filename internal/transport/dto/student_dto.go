package dto

import (
	"io"
	"time"

	"internship-portal/internal/models"

	"github.com/google/uuid"
)

// --- Student Request DTOs ---

// ChoiceInput is one ranked preference as submitted by a student.
type ChoiceInput struct {
	Priority  int       `json:"priority" validate:"min=1,max=4"`
	CompanyID uuid.UUID `json:"company_id" validate:"required"`
	DomainID  uuid.UUID `json:"domain_id" validate:"required"`
	Location  string    `json:"location" validate:"required,max=200"`
}

// Attachment is an uploaded resume for one priority slot.
type Attachment struct {
	Filename string
	Body     io.Reader
}

// SubmitChoicesRequest carries a one-shot choice submission.
type SubmitChoicesRequest struct {
	StudentID uuid.UUID     `json:"-"` // Set internally by handler
	Choices   []ChoiceInput `json:"choices" validate:"min=1,max=4,unique=Priority,dive"`
	// Attachments is keyed by priority.
	Attachments map[int]Attachment `json:"-"`
}

type UpdatePreferredDomainsRequest struct {
	StudentID uuid.UUID   `json:"-"` // Set internally by handler
	DomainIDs []uuid.UUID `json:"domain_ids" validate:"max=20"`
}

// --- Student Response DTOs ---

// ChoiceView is a choice with its referenced names populated.
type ChoiceView struct {
	Priority    int       `json:"priority"`
	CompanyID   uuid.UUID `json:"company_id"`
	CompanyName string    `json:"company_name"`
	DomainID    uuid.UUID `json:"domain_id"`
	DomainName  string    `json:"domain_name"`
	Location    string    `json:"location"`
	ResumeURL   string    `json:"resume_url"`
}

type DomainRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type CompanyRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ApplicationView is the populated application of one student.
type ApplicationView struct {
	StudentID        uuid.UUID               `json:"student_id"`
	RollNumber       string                  `json:"roll_number"`
	Name             string                  `json:"name"`
	IsFormSubmitted  bool                    `json:"is_form_submitted"`
	ApprovalStatus   models.ApprovalStatus   `json:"approval_status"`
	AllocationStatus models.AllocationStatus `json:"allocation_status"`
	AllocatedCompany *CompanyRef             `json:"allocated_company,omitempty"`
	RejectionReason  string                  `json:"rejection_reason,omitempty"`
	PreferredDomains []DomainRef             `json:"preferred_domains"`
	Choices          []ChoiceView            `json:"choices"`
	History          []models.Transition     `json:"approval_status_history"`
	UpdatedAt        time.Time               `json:"updated_at"`
}
