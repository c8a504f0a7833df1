package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"internship-portal/internal/logging"
	"internship-portal/internal/metrics"
	"internship-portal/internal/models"
	"internship-portal/internal/storage"
	"internship-portal/internal/transport/dto"

	"github.com/go-playground/validator/v10"
)

type allocationService struct {
	store    storage.Store
	validate *validator.Validate
}

// NewAllocationService creates a new instance of AllocationService.
func NewAllocationService(store storage.Store) AllocationService {
	return &allocationService{store: store, validate: newValidator()}
}

func recordSeatOperation(operation string, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case Taxonomy(err) == "INTERNAL":
		outcome = metrics.OutcomeError
	default:
		outcome = metrics.OutcomeRejected
	}
	metrics.SeatOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// loadOpenCompany fetches a company that can currently take students.
func loadOpenCompany(ctx context.Context, tx storage.Repositories, req *dto.AllocateRequest) (*models.Company, error) {
	company, err := tx.Companies.GetByID(ctx, req.CompanyID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: company %s does not exist", ErrCompanyUnavailable, req.CompanyID)
	}
	if err != nil {
		return nil, mapRepoError(ctx, err, "fetching company", ErrCompanyNotFound)
	}
	if !company.IsOpen() {
		return nil, fmt.Errorf("%w: %s is %s", ErrCompanyUnavailable, company.Name, company.RecruitmentStatus)
	}
	return company, nil
}

// takeSeat claims one seat with a conditional increment, so the capacity
// check and the write cannot be split by a concurrent allocation.
func takeSeat(ctx context.Context, tx storage.Repositories, company *models.Company) error {
	if !company.HasFreeSeat() {
		return fmt.Errorf("%w: %s has %d/%d seats filled", ErrSeatsFull, company.Name, company.FilledSeats, company.TotalSeats)
	}
	taken, err := tx.Companies.IncrementFilledSeats(ctx, company.ID)
	if err != nil {
		return mapRepoError(ctx, err, "taking seat", ErrCompanyNotFound)
	}
	if !taken {
		return fmt.Errorf("%w: %s filled up concurrently", ErrSeatsFull, company.Name)
	}
	company.FilledSeats++
	return nil
}

// Allocate binds a student to one of their chosen companies and takes a seat.
func (s *allocationService) Allocate(ctx context.Context, req *dto.AllocateRequest) (*models.Company, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	var allocated *models.Company
	err := s.store.RunInTx(ctx, func(tx storage.Repositories) error {
		student, err := tx.Students.GetByIDForUpdate(ctx, req.StudentID)
		if err != nil {
			return mapRepoError(ctx, err, "locking student for allocation", ErrStudentNotFound)
		}
		entries, err := student.Allocate(req.CompanyID, time.Now().UTC())
		if err != nil {
			return mapStateError(err)
		}
		company, err := loadOpenCompany(ctx, tx, req)
		if err != nil {
			return err
		}
		if err := takeSeat(ctx, tx, company); err != nil {
			return err
		}
		if err := tx.Students.Update(ctx, student); err != nil {
			return mapRepoError(ctx, err, "saving allocation", ErrStudentNotFound)
		}
		if err := tx.Students.AppendHistory(ctx, student.ID, entries); err != nil {
			return mapRepoError(ctx, err, "recording allocation history", ErrStudentNotFound)
		}
		allocated = company
		return nil
	})
	recordSeatOperation("allocate", err)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("Allocate: student allocated",
		"student_id", req.StudentID, "company_id", allocated.ID,
		"filled_seats", allocated.FilledSeats, "total_seats", allocated.TotalSeats)
	return allocated, nil
}

// Reallocate moves an allocated student to another company. The new seat is
// taken before the old one is released.
func (s *allocationService) Reallocate(ctx context.Context, req *dto.AllocateRequest) (*models.Company, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	var allocated *models.Company
	err := s.store.RunInTx(ctx, func(tx storage.Repositories) error {
		student, err := tx.Students.GetByIDForUpdate(ctx, req.StudentID)
		if err != nil {
			return mapRepoError(ctx, err, "locking student for reallocation", ErrStudentNotFound)
		}
		if !student.IsAllocated() {
			return fmt.Errorf("%w: student %s has no allocation to move", ErrNotAllocated, student.ID)
		}
		if *student.AllocatedCompanyID == req.CompanyID {
			return fmt.Errorf("%w: student is already allocated to this company", ErrAlreadyAllocated)
		}
		company, err := loadOpenCompany(ctx, tx, req)
		if err != nil {
			return err
		}
		if err := takeSeat(ctx, tx, company); err != nil {
			return err
		}
		previous, entries, err := student.Reallocate(company.ID, time.Now().UTC())
		if err != nil {
			return mapStateError(err)
		}
		if err := tx.Companies.DecrementFilledSeats(ctx, previous); err != nil {
			return mapRepoError(ctx, err, "releasing previous seat", ErrCompanyNotFound)
		}
		if err := tx.Students.Update(ctx, student); err != nil {
			return mapRepoError(ctx, err, "saving reallocation", ErrStudentNotFound)
		}
		if err := tx.Students.AppendHistory(ctx, student.ID, entries); err != nil {
			return mapRepoError(ctx, err, "recording reallocation history", ErrStudentNotFound)
		}
		allocated = company
		return nil
	})
	recordSeatOperation("reallocate", err)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("Reallocate: student moved", "student_id", req.StudentID, "company_id", allocated.ID)
	return allocated, nil
}

// Reject rejects the student's application. It only frees a seat the
// student actually holds.
func (s *allocationService) Reject(ctx context.Context, req *dto.RejectRequest) (*models.Student, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	return rejectApplication(ctx, s.store, req)
}
