package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"internship-portal/internal/logging"
	"internship-portal/internal/models"
	"internship-portal/internal/storage"
)

// Taxonomy errors. Every error a service returns wraps exactly one of these.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// reasonError is a taxonomy error narrowed by a machine-readable code.
type reasonError struct {
	kind error
	code string
}

func (e *reasonError) Error() string { return e.kind.Error() + ": " + e.code }
func (e *reasonError) Unwrap() error { return e.kind }

func reason(kind error, code string) error { return &reasonError{kind: kind, code: code} }

var (
	ErrAlreadySubmitted   = reason(ErrConflict, "ALREADY_SUBMITTED")
	ErrNotSubmitted       = reason(ErrConflict, "NOT_SUBMITTED")
	ErrAlreadyAllocated   = reason(ErrConflict, "ALREADY_ALLOCATED")
	ErrNotAllocated       = reason(ErrConflict, "NOT_ALLOCATED")
	ErrNoChoices          = reason(ErrConflict, "NO_CHOICES")
	ErrCompanyUnavailable = reason(ErrConflict, "COMPANY_UNAVAILABLE")
	ErrSeatsFull          = reason(ErrConflict, "SEATS_FULL")
	ErrSubmissionsClosed  = reason(ErrConflict, "SUBMISSIONS_CLOSED")
	ErrPreferencesLocked  = reason(ErrConflict, "PREFERENCES_LOCKED")
	ErrBulkInProgress     = reason(ErrConflict, "BULK_IN_PROGRESS")
	ErrDuplicate          = reason(ErrConflict, "DUPLICATE")

	ErrInvalidInput      = reason(ErrValidation, "INVALID_INPUT")
	ErrInvalidChoice     = reason(ErrValidation, "INVALID_CHOICE")
	ErrMissingAttachment = reason(ErrValidation, "MISSING_ATTACHMENT")
	ErrInvalidAttachment = reason(ErrValidation, "INVALID_ATTACHMENT")

	ErrStudentNotFound = reason(ErrNotFound, "STUDENT_NOT_FOUND")
	ErrCompanyNotFound = reason(ErrNotFound, "COMPANY_NOT_FOUND")
	ErrDomainNotFound  = reason(ErrNotFound, "DOMAIN_NOT_FOUND")
	ErrBranchNotFound  = reason(ErrNotFound, "BRANCH_NOT_FOUND")

	ErrInvalidCredentials = reason(ErrUnauthorized, "INVALID_CREDENTIALS")
)

// ValidationError reports every rule a request broke, not just the first.
type ValidationError struct {
	Reason     error
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Reason, strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Unwrap() error { return e.Reason }

func newValidationError(reason error, violations []string) *ValidationError {
	return &ValidationError{Reason: reason, Violations: violations}
}

// ReasonCode returns the machine-readable code carried by err, or "".
func ReasonCode(err error) string {
	var re *reasonError
	if errors.As(err, &re) {
		return re.code
	}
	return ""
}

// Taxonomy returns VALIDATION, CONFLICT, NOT_FOUND, UNAUTHORIZED or INTERNAL.
func Taxonomy(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL"
	}
}

// Violations returns the collected messages of a ValidationError, if any.
func Violations(err error) []string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Violations
	}
	return nil
}

// mapRepoError maps storage errors to service errors. notFound is the
// specific NOT_FOUND reason for the entity being looked up.
func mapRepoError(ctx context.Context, err error, operation string, notFound error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if notFound == nil {
			notFound = ErrNotFound
		}
		return fmt.Errorf("%w: %s", notFound, operation)
	case errors.Is(err, storage.ErrDuplicateEmail):
		return fmt.Errorf("%w: %s (duplicate email)", ErrDuplicate, operation)
	case errors.Is(err, storage.ErrDuplicateRollNumber):
		return fmt.Errorf("%w: %s (duplicate roll number)", ErrDuplicate, operation)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %s (%v)", ErrConflict, operation, err)
	}
	// already a service error, e.g. returned from inside a transaction
	if Taxonomy(err) != "INTERNAL" {
		return err
	}
	logging.FromContext(ctx).Error("Unexpected repository error", "operation", operation, "error", err)
	return fmt.Errorf("internal error during %s: %w", operation, err)
}

// mapStateError translates application state machine errors.
func mapStateError(err error) error {
	switch {
	case errors.Is(err, models.ErrFormAlreadySubmitted):
		return fmt.Errorf("%w: %v", ErrAlreadySubmitted, err)
	case errors.Is(err, models.ErrFormNotSubmitted):
		return fmt.Errorf("%w: %v", ErrNotSubmitted, err)
	case errors.Is(err, models.ErrAlreadyAllocated):
		return fmt.Errorf("%w: %v", ErrAlreadyAllocated, err)
	case errors.Is(err, models.ErrNotAllocated):
		return fmt.Errorf("%w: %v", ErrNotAllocated, err)
	case errors.Is(err, models.ErrNoChoices):
		return fmt.Errorf("%w: %v", ErrNoChoices, err)
	case errors.Is(err, models.ErrChoiceNotFound):
		return fmt.Errorf("%w: %v", ErrInvalidChoice, err)
	default:
		return err
	}
}
