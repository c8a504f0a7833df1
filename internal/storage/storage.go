package storage

import (
	"context"

	"internship-portal/internal/models"

	"github.com/google/uuid"
)

// StudentFilter narrows student queries. Zero values are ignored.
type StudentFilter struct {
	AllocationStatus   *models.AllocationStatus
	ApprovalStatus     *models.ApprovalStatus
	BranchID           *uuid.UUID
	AllocatedCompanyID *uuid.UUID
	Limit              int
	Offset             int
}

// StudentRepository defines the interface for student profile and application data.
type StudentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error)
	// GetByIDForUpdate locks the student row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Student, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Student, error)
	GetByEmail(ctx context.Context, email string) (*models.Student, error)
	GetByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error)
	List(ctx context.Context, filter StudentFilter) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	// Update writes profile fields, the application, choices and preferred domains.
	Update(ctx context.Context, student *models.Student) error
	// AppendHistory appends transitions; existing history is never rewritten.
	AppendHistory(ctx context.Context, studentID uuid.UUID, entries []models.Transition) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ResetApplications restores every student's application defaults and
	// clears history. full additionally clears preferred domains.
	ResetApplications(ctx context.Context, full bool) (int64, error)
}

// CompanyRepository defines the interface for company data and seat counters.
type CompanyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Company, error)
	List(ctx context.Context, status *models.RecruitmentStatus) ([]models.Company, error)
	Create(ctx context.Context, company *models.Company) error
	Update(ctx context.Context, company *models.Company) error
	// IncrementFilledSeats takes one seat if the company is OPEN and has headroom.
	// It reports false, without error, when the condition does not hold.
	IncrementFilledSeats(ctx context.Context, id uuid.UUID) (bool, error)
	// DecrementFilledSeats releases one seat, never going below zero.
	DecrementFilledSeats(ctx context.Context, id uuid.UUID) error
	ResetFilledSeats(ctx context.Context) (int64, error)
}

// DomainRepository defines the interface for canonical domain data.
type DomainRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Domain, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Domain, error)
	Create(ctx context.Context, domain *models.Domain) error
}

// BranchRepository defines the interface for canonical branch data.
type BranchRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Branch, error)
	List(ctx context.Context) ([]models.Branch, error)
	FindByExternalMapping(ctx context.Context, mapping models.BranchMapping) (*models.Branch, error)
	Create(ctx context.Context, branch *models.Branch) error
}

// UserRepository defines the interface for authentication identities.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SettingsRepository stores the single feature-flag row.
type SettingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
	Save(ctx context.Context, settings *models.Settings) error
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Students  StudentRepository
	Companies CompanyRepository
	Domains   DomainRepository
	Branches  BranchRepository
	Users     UserRepository
	Settings  SettingsRepository
}

// Store is the record store: repositories plus a transaction boundary.
type Store interface {
	Repos() Repositories
	// RunInTx runs fn with repositories bound to one transaction. Any error
	// returned by fn rolls the transaction back.
	RunInTx(ctx context.Context, fn func(tx Repositories) error) error
}
