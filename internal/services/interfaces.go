package services

import (
	"context"
	"io"

	"internship-portal/internal/attachments"
	"internship-portal/internal/export"
	"internship-portal/internal/models"
	"internship-portal/internal/reconcile"
	"internship-portal/internal/transport/dto"

	"github.com/google/uuid"
)

// AuthService issues bearer tokens for users.
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
}

// ChoiceService handles the student side of the application.
type ChoiceService interface {
	StudentForUser(ctx context.Context, userID uuid.UUID) (*models.Student, error)
	SubmitChoices(ctx context.Context, req *dto.SubmitChoicesRequest) (*models.Student, error)
	UpdatePreferredDomains(ctx context.Context, req *dto.UpdatePreferredDomainsRequest) (*models.Student, error)
	GetApplication(ctx context.Context, studentID uuid.UUID) (*dto.ApplicationView, error)
}

// ReviewService holds TPO review actions and the global resets.
type ReviewService interface {
	Approve(ctx context.Context, studentID uuid.UUID) (*models.Student, error)
	RejectByAdmin(ctx context.Context, req *dto.RejectRequest) (*models.Student, error)
	ResetChoices(ctx context.Context) (*dto.ResetSummary, error)
	FullReset(ctx context.Context) (*dto.ResetSummary, error)
}

// AllocationService binds students to company seats.
type AllocationService interface {
	Allocate(ctx context.Context, req *dto.AllocateRequest) (*models.Company, error)
	Reallocate(ctx context.Context, req *dto.AllocateRequest) (*models.Company, error)
	Reject(ctx context.Context, req *dto.RejectRequest) (*models.Student, error)
}

// CatalogService administers companies, domains and branches.
type CatalogService interface {
	CreateCompany(ctx context.Context, req *dto.CreateCompanyRequest) (*models.Company, error)
	UpdateCompany(ctx context.Context, req *dto.UpdateCompanyRequest) (*models.Company, error)
	ListCompanies(ctx context.Context, req *dto.ListCompaniesRequest) ([]models.Company, error)
	CreateDomain(ctx context.Context, req *dto.CreateDomainRequest) (*models.Domain, error)
	ListDomains(ctx context.Context) ([]models.Domain, error)
	CreateBranch(ctx context.Context, req *dto.CreateBranchRequest) (*models.Branch, error)
	ListBranches(ctx context.Context) ([]models.Branch, error)
}

// ReportService serves dashboards and exports.
type ReportService interface {
	ListStudents(ctx context.Context, req *dto.ListStudentsRequest) ([]models.Student, error)
	AllocationReport(ctx context.Context, req *dto.ListStudentsRequest) ([]export.Row, error)
	WriteAllocationCSV(ctx context.Context, w io.Writer, req *dto.ListStudentsRequest) error
}

// BulkService runs the reconciliation pipelines one at a time.
type BulkService interface {
	BulkRegister(ctx context.Context, rows []reconcile.RawRow) (*reconcile.RegistrationResult, error)
	BulkReconcileDomains(ctx context.Context, rows []reconcile.RawRow) (*reconcile.DomainResult, error)
}

// AttachmentStore persists resume uploads.
type AttachmentStore interface {
	Save(ctx context.Context, f attachments.File) (*attachments.Stored, error)
	Delete(ctx context.Context, url string) error
}

// Catalog serves the canonical domain and branch lists.
type Catalog interface {
	Domains(ctx context.Context, activeOnly bool) ([]models.Domain, error)
	Branches(ctx context.Context) ([]models.Branch, error)
	Invalidate()
}
