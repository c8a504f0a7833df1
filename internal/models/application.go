package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxChoices is the number of ranked priority slots a student may fill.
const MaxChoices = 4

// --- Approval Status Enum ---
type ApprovalStatus string

const (
	ApprovalNotApplied    ApprovalStatus = "NOT_APPLIED"
	ApprovalSubmitted     ApprovalStatus = "SUBMITTED"
	ApprovalPendingReview ApprovalStatus = "PENDING_REVIEW"
	ApprovalApprovedByTPO ApprovalStatus = "APPROVED_BY_TPO"
	ApprovalAllocated     ApprovalStatus = "ALLOCATED"
	ApprovalRejectedByTPO ApprovalStatus = "REJECTED_BY_TPO"
	ApprovalRejected      ApprovalStatus = "REJECTED"
	ApprovalNotAllocated  ApprovalStatus = "NOT_ALLOCATED"
)

// Scan implements the sql.Scanner interface for ApprovalStatus
func (as *ApprovalStatus) Scan(value interface{}) error {
	strVal, err := scanString(value, "ApprovalStatus")
	if err != nil {
		return err
	}
	v := ApprovalStatus(strVal)
	if !v.Valid() {
		return fmt.Errorf("invalid ApprovalStatus value: %s", strVal)
	}
	*as = v
	return nil
}

// Value implements the driver.Valuer interface for ApprovalStatus
func (as ApprovalStatus) Value() (driver.Value, error) {
	return string(as), nil
}

func (as ApprovalStatus) Valid() bool {
	switch as {
	case ApprovalNotApplied, ApprovalSubmitted, ApprovalPendingReview, ApprovalApprovedByTPO,
		ApprovalAllocated, ApprovalRejectedByTPO, ApprovalRejected, ApprovalNotAllocated:
		return true
	default:
		return false
	}
}

// --- Allocation Status Enum ---
// AllocationStatus is the coarse dashboard projection of ApprovalStatus.
type AllocationStatus string

const (
	AllocationNotApplied   AllocationStatus = "NOT_APPLIED"
	AllocationAllocated    AllocationStatus = "ALLOCATED"
	AllocationRejected     AllocationStatus = "REJECTED"
	AllocationNotAllocated AllocationStatus = "NOT_ALLOCATED"
)

// Scan implements the sql.Scanner interface for AllocationStatus
func (as *AllocationStatus) Scan(value interface{}) error {
	strVal, err := scanString(value, "AllocationStatus")
	if err != nil {
		return err
	}
	v := AllocationStatus(strVal)
	if !v.Valid() {
		return fmt.Errorf("invalid AllocationStatus value: %s", strVal)
	}
	*as = v
	return nil
}

// Value implements the driver.Valuer interface for AllocationStatus
func (as AllocationStatus) Value() (driver.Value, error) {
	return string(as), nil
}

func (as AllocationStatus) Valid() bool {
	switch as {
	case AllocationNotApplied, AllocationAllocated, AllocationRejected, AllocationNotAllocated:
		return true
	default:
		return false
	}
}

// ProjectAllocation maps an approval status onto the allocation axis.
func ProjectAllocation(status ApprovalStatus) AllocationStatus {
	switch status {
	case ApprovalAllocated:
		return AllocationAllocated
	case ApprovalRejectedByTPO, ApprovalRejected:
		return AllocationRejected
	case ApprovalSubmitted, ApprovalPendingReview, ApprovalApprovedByTPO, ApprovalNotAllocated:
		return AllocationNotAllocated
	default:
		return AllocationNotApplied
	}
}

// Transition is one entry of the append-only application history.
// Transitions are recorded in pairs: the first entry carries the time the
// action happened, the second records the resulting steady state and has a
// nil OccurredAt because it has no independent occurrence time.
type Transition struct {
	From       ApprovalStatus `json:"from"`
	To         ApprovalStatus `json:"to"`
	OccurredAt *time.Time     `json:"occurred_at"`
}

// Choice is one ranked company/domain preference.
type Choice struct {
	Priority  int       `json:"priority"`
	CompanyID uuid.UUID `json:"company_id"`
	DomainID  uuid.UUID `json:"domain_id"`
	Location  string    `json:"location"`
	ResumeURL string    `json:"resume_url"`
}

var (
	ErrFormAlreadySubmitted = errors.New("application form already submitted")
	ErrFormNotSubmitted     = errors.New("application form not submitted")
	ErrAlreadyAllocated     = errors.New("student already allocated")
	ErrNotAllocated         = errors.New("student has no allocation")
	ErrNoChoices            = errors.New("student has no submitted choices")
	ErrChoiceNotFound       = errors.New("company is not one of the student's choices")
)

// Application is the approval/allocation state of one student.
// ApprovalStatus is authoritative; AllocationStatus is derived from it, and all
// changes go through the transition methods so the two never diverge.
type Application struct {
	Choices            []Choice       `json:"choices"`
	IsFormSubmitted    bool           `json:"is_form_submitted"`
	ApprovalStatus     ApprovalStatus `json:"approval_status"`
	AllocatedCompanyID *uuid.UUID     `json:"allocated_company_id,omitempty"`
	RejectionReason    string         `json:"rejection_reason,omitempty"`
	History            []Transition   `json:"approval_status_history"`
}

func NewApplication() Application {
	return Application{ApprovalStatus: ApprovalNotApplied}
}

func (a *Application) AllocationStatus() AllocationStatus {
	return ProjectAllocation(a.ApprovalStatus)
}

func (a *Application) IsAllocated() bool { return a.AllocatedCompanyID != nil }

// ChoiceFor returns the submitted choice naming the company, if any.
func (a *Application) ChoiceFor(companyID uuid.UUID) (Choice, bool) {
	for _, c := range a.Choices {
		if c.CompanyID == companyID {
			return c, true
		}
	}
	return Choice{}, false
}

// Submit latches the form and moves the application to PENDING_REVIEW.
func (a *Application) Submit(choices []Choice, now time.Time) ([]Transition, error) {
	if a.IsFormSubmitted {
		return nil, ErrFormAlreadySubmitted
	}
	a.Choices = choices
	a.IsFormSubmitted = true
	a.RejectionReason = ""
	return a.move(ApprovalSubmitted, ApprovalPendingReview, now), nil
}

// Approve marks the application eligible for allocation. It records no history;
// the dated APPROVED_BY_TPO entry is written when a company is bound.
func (a *Application) Approve() error {
	if !a.IsFormSubmitted {
		return ErrFormNotSubmitted
	}
	if a.IsAllocated() {
		return ErrAlreadyAllocated
	}
	a.ApprovalStatus = ApprovalApprovedByTPO
	return nil
}

// Allocate binds the student to a company from their submitted choices.
func (a *Application) Allocate(companyID uuid.UUID, now time.Time) ([]Transition, error) {
	if a.IsAllocated() {
		return nil, ErrAlreadyAllocated
	}
	if len(a.Choices) == 0 {
		return nil, ErrNoChoices
	}
	if _, ok := a.ChoiceFor(companyID); !ok {
		return nil, ErrChoiceNotFound
	}
	id := companyID
	a.AllocatedCompanyID = &id
	return a.move(ApprovalApprovedByTPO, ApprovalAllocated, now), nil
}

// Reallocate moves an existing allocation and returns the previous company.
func (a *Application) Reallocate(companyID uuid.UUID, now time.Time) (uuid.UUID, []Transition, error) {
	if !a.IsAllocated() {
		return uuid.Nil, nil, ErrNotAllocated
	}
	previous := *a.AllocatedCompanyID
	id := companyID
	a.AllocatedCompanyID = &id
	return previous, a.move(ApprovalApprovedByTPO, ApprovalAllocated, now), nil
}

// Reject clears choices and any allocation. The released company, if the
// student held a seat, is returned so the caller can free it.
func (a *Application) Reject(reason string, now time.Time) (*uuid.UUID, []Transition) {
	released := a.AllocatedCompanyID
	a.AllocatedCompanyID = nil
	a.Choices = nil
	a.IsFormSubmitted = false
	a.RejectionReason = reason
	return released, a.move(ApprovalRejectedByTPO, ApprovalRejected, now)
}

func (a *Application) move(via, to ApprovalStatus, now time.Time) []Transition {
	at := now
	pair := []Transition{
		{From: a.ApprovalStatus, To: via, OccurredAt: &at},
		{From: via, To: to, OccurredAt: nil},
	}
	a.ApprovalStatus = to
	a.History = append(a.History, pair...)
	return pair
}
