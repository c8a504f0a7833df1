package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"internship-portal/internal/logging"
	"internship-portal/internal/metrics"
	"internship-portal/internal/models"
	"internship-portal/internal/storage"
	"internship-portal/internal/transport/dto"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type reviewService struct {
	store    storage.Store
	validate *validator.Validate
}

// NewReviewService creates a new instance of ReviewService.
func NewReviewService(store storage.Store) ReviewService {
	return &reviewService{store: store, validate: newValidator()}
}

// Approve marks a submitted application eligible for allocation.
func (s *reviewService) Approve(ctx context.Context, studentID uuid.UUID) (*models.Student, error) {
	var approved *models.Student
	err := s.store.RunInTx(ctx, func(tx storage.Repositories) error {
		student, err := tx.Students.GetByIDForUpdate(ctx, studentID)
		if err != nil {
			return mapRepoError(ctx, err, "locking student for approval", ErrStudentNotFound)
		}
		if err := student.Approve(); err != nil {
			return mapStateError(err)
		}
		if err := tx.Students.Update(ctx, student); err != nil {
			return mapRepoError(ctx, err, "saving approval", ErrStudentNotFound)
		}
		approved = student
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("Approve: application approved", "student_id", studentID)
	return approved, nil
}

func (s *reviewService) RejectByAdmin(ctx context.Context, req *dto.RejectRequest) (*models.Student, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	return rejectApplication(ctx, s.store, req)
}

// rejectApplication clears the student's choices and moves them to REJECTED.
// A held seat is released; otherwise no company counter is touched.
func rejectApplication(ctx context.Context, store storage.Store, req *dto.RejectRequest) (*models.Student, error) {
	reason := strings.TrimSpace(req.Reason)
	var (
		rejected *models.Student
		released *uuid.UUID
	)
	err := store.RunInTx(ctx, func(tx storage.Repositories) error {
		student, err := tx.Students.GetByIDForUpdate(ctx, req.StudentID)
		if err != nil {
			return mapRepoError(ctx, err, "locking student for rejection", ErrStudentNotFound)
		}
		seat, entries := student.Reject(reason, time.Now().UTC())
		if seat != nil {
			if err := tx.Companies.DecrementFilledSeats(ctx, *seat); err != nil {
				return mapRepoError(ctx, err, "releasing seat", ErrCompanyNotFound)
			}
		}
		if err := tx.Students.Update(ctx, student); err != nil {
			return mapRepoError(ctx, err, "saving rejection", ErrStudentNotFound)
		}
		if err := tx.Students.AppendHistory(ctx, student.ID, entries); err != nil {
			return mapRepoError(ctx, err, "recording rejection history", ErrStudentNotFound)
		}
		rejected, released = student, seat
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	if released != nil {
		metrics.SeatOperationsTotal.WithLabelValues("release", metrics.OutcomeOK).Inc()
		logger.Info("Reject: application rejected, seat released", "student_id", req.StudentID, "company_id", *released)
	} else {
		logger.Info("Reject: application rejected", "student_id", req.StudentID)
	}
	return rejected, nil
}

func (s *reviewService) ResetChoices(ctx context.Context) (*dto.ResetSummary, error) {
	return s.reset(ctx, false)
}

func (s *reviewService) FullReset(ctx context.Context) (*dto.ResetSummary, error) {
	return s.reset(ctx, true)
}

// reset restores every application and zeroes every seat counter in one transaction.
func (s *reviewService) reset(ctx context.Context, full bool) (*dto.ResetSummary, error) {
	summary := &dto.ResetSummary{Full: full}
	err := s.store.RunInTx(ctx, func(tx storage.Repositories) error {
		students, err := tx.Students.ResetApplications(ctx, full)
		if err != nil {
			return mapRepoError(ctx, err, "resetting applications", nil)
		}
		companies, err := tx.Companies.ResetFilledSeats(ctx)
		if err != nil {
			return mapRepoError(ctx, err, "resetting seat counters", nil)
		}
		summary.Students, summary.Companies = students, companies
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reset failed: %w", err)
	}

	scope := "choices"
	if full {
		scope = "full"
	}
	metrics.ResetsTotal.WithLabelValues(scope).Inc()
	logging.FromContext(ctx).Warn("Applications reset",
		"scope", scope, "students", summary.Students, "companies", summary.Companies)
	return summary, nil
}
