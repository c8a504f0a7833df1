package dto

import (
	"internship-portal/internal/models"

	"github.com/google/uuid"
)

// --- Review / Allocation Request DTOs ---

type RejectRequest struct {
	StudentID uuid.UUID `json:"-"` // From URL path
	Reason    string    `json:"reason" validate:"required,max=1000"`
}

type AllocateRequest struct {
	StudentID uuid.UUID `json:"-"` // From URL path
	CompanyID uuid.UUID `json:"company_id" validate:"required"`
}

// ResetSummary reports how many records a global reset touched.
type ResetSummary struct {
	Students  int64 `json:"students"`
	Companies int64 `json:"companies"`
	Full      bool  `json:"full"`
}

// --- Catalog Admin DTOs ---

type CreateCompanyRequest struct {
	Name              string                   `json:"name" validate:"required,max=200"`
	TotalSeats        int                      `json:"total_seats" validate:"required,gt=0"`
	RecruitmentStatus models.RecruitmentStatus `json:"recruitment_status" validate:"omitempty,oneof=OPEN CLOSED PAUSED"`
	DomainTags        []uuid.UUID              `json:"domain_tags"`
	AllowedBranches   []uuid.UUID              `json:"allowed_branches"`
}

// UpdateCompanyRequest replaces only the fields that are set.
type UpdateCompanyRequest struct {
	ID                uuid.UUID                 `json:"-"` // From URL path
	Name              *string                   `json:"name,omitempty" validate:"omitempty,max=200"`
	TotalSeats        *int                      `json:"total_seats,omitempty" validate:"omitempty,gt=0"`
	RecruitmentStatus *models.RecruitmentStatus `json:"recruitment_status,omitempty" validate:"omitempty,oneof=OPEN CLOSED PAUSED"`
	DomainTags        *[]uuid.UUID              `json:"domain_tags,omitempty"`
	AllowedBranches   *[]uuid.UUID              `json:"allowed_branches,omitempty"`
}

type ListCompaniesRequest struct {
	Status *models.RecruitmentStatus `form:"status" validate:"omitempty,oneof=OPEN CLOSED PAUSED"`
}

type CreateDomainRequest struct {
	Name      string      `json:"name" validate:"required,max=200"`
	Active    *bool       `json:"active,omitempty"`
	BranchIDs []uuid.UUID `json:"branch_ids"`
}

type BranchMappingInput struct {
	ExternalBranchID  string `json:"external_branch_id" validate:"required"`
	ExternalCollegeID string `json:"external_college_id" validate:"required"`
	Year              int    `json:"year" validate:"required,gt=0"`
}

type CreateBranchRequest struct {
	Name             string               `json:"name" validate:"required,max=200"`
	Code             string               `json:"code" validate:"required,max=20"`
	ExternalMappings []BranchMappingInput `json:"external_mappings" validate:"dive"`
}

// ListStudentsRequest filters the student dashboard.
type ListStudentsRequest struct {
	AllocationStatus   *models.AllocationStatus `form:"allocation_status" validate:"omitempty,oneof=NOT_APPLIED ALLOCATED REJECTED NOT_ALLOCATED"`
	ApprovalStatus     *models.ApprovalStatus   `form:"approval_status"`
	BranchID           *uuid.UUID               `form:"-"` // From query, parsed by handler
	AllocatedCompanyID *uuid.UUID               `form:"-"` // From query, parsed by handler
	Limit              int                      `form:"limit,default=50" validate:"min=0,max=1000"`
	Offset             int                      `form:"offset,default=0" validate:"min=0"`
}

type UpdateSettingsRequest struct {
	ChoiceSubmissionOpen  *bool `json:"choice_submission_open,omitempty"`
	PreferenceEditingOpen *bool `json:"preference_editing_open,omitempty"`
}

// BulkRowsRequest carries spreadsheet rows as header to cell maps.
type BulkRowsRequest struct {
	Rows []map[string]string `json:"rows"`
}
