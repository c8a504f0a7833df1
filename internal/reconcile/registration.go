package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"internship-portal/internal/logging"
	"internship-portal/internal/models"
	"internship-portal/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Register creates a user and student profile per row. Rows whose email or
// roll number is already known are skipped. The initial password is the
// roll number.
func (r *Reconciler) Register(ctx context.Context, rows []RawRow) (*RegistrationResult, error) {
	result := &RegistrationResult{
		Created: []RowOutcome{},
		Skipped: []RowOutcome{},
		Failed:  []RowOutcome{},
	}
	logger := logging.WithFields(ctx, "pipeline", "register", "rows", len(rows))
	logger.Info("Bulk registration started")

	for i, raw := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		line := i + 1
		row, problems := ParseRegistrationRow(line, raw)
		key := row.Email
		if key == "" {
			key = row.RollNumber
		}
		if len(problems) > 0 {
			result.Failed = append(result.Failed, RowOutcome{Line: line, Key: key, Reason: strings.Join(problems, "; ")})
			continue
		}

		skip, err := r.alreadyRegistered(ctx, row)
		if err != nil {
			logger.Error("Registration lookup failed", "line", line, "error", err)
			result.Failed = append(result.Failed, RowOutcome{Line: line, Key: key, Reason: "lookup failed"})
			continue
		}
		if skip != "" {
			result.Skipped = append(result.Skipped, RowOutcome{Line: line, Key: key, Reason: skip})
			continue
		}

		if err := r.registerRow(ctx, row); err != nil {
			logger.Warn("Registration row failed", "line", line, "key", key, "error", err)
			result.Failed = append(result.Failed, RowOutcome{Line: line, Key: key, Reason: err.Error()})
			continue
		}
		result.Created = append(result.Created, RowOutcome{Line: line, Key: key})
	}

	logger.Info("Bulk registration finished",
		"created", len(result.Created), "skipped", len(result.Skipped), "failed", len(result.Failed))
	return result, nil
}

// alreadyRegistered returns a skip reason, or "" when the row is new.
func (r *Reconciler) alreadyRegistered(ctx context.Context, row RegistrationRow) (string, error) {
	repos := r.store.Repos()
	if _, err := repos.Users.GetByEmail(ctx, row.Email); err == nil {
		return "email already registered", nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	if _, err := repos.Students.GetByRollNumber(ctx, row.RollNumber); err == nil {
		return "roll number already registered", nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	return "", nil
}

var errBranchNotMapped = errors.New("branch mapping not found")

func (r *Reconciler) resolveBranch(ctx context.Context, m models.BranchMapping) (*uuid.UUID, error) {
	if m.ExternalBranchID == "" && m.ExternalCollegeID == "" && m.Year == 0 {
		return nil, nil
	}
	branch, err := r.store.Repos().Branches.FindByExternalMapping(ctx, m)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: branch %q college %q year %d",
			errBranchNotMapped, m.ExternalBranchID, m.ExternalCollegeID, m.Year)
	}
	if err != nil {
		return nil, fmt.Errorf("branch lookup failed: %w", err)
	}
	return &branch.ID, nil
}

// registerRow creates the user and then the student. If the student cannot
// be created the user is deleted again so no half-registered identity remains.
func (r *Reconciler) registerRow(ctx context.Context, row RegistrationRow) error {
	branchID, err := r.resolveBranch(ctx, row.Mapping)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(row.RollNumber), r.passwordCost)
	if err != nil {
		return fmt.Errorf("failed to hash initial password: %w", err)
	}

	repos := r.store.Repos()
	user := &models.User{
		ID:           uuid.New(),
		Email:        row.Email,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
	}
	if err := repos.Users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	student := models.NewStudent()
	student.UserID = user.ID
	student.Name = row.Name
	student.Email = row.Email
	student.RollNumber = row.RollNumber
	student.Phone = row.Phone
	student.Gender = row.Gender
	student.DateOfBirth = row.DateOfBirth
	student.BranchID = branchID
	student.Year = row.Mapping.Year
	student.Participating = true

	if err := repos.Students.Create(ctx, student); err != nil {
		if delErr := repos.Users.Delete(ctx, user.ID); delErr != nil {
			logging.FromContext(ctx).Error("Compensating user delete failed",
				"user_id", user.ID, "email", row.Email, "error", delErr)
			return fmt.Errorf("failed to create student: %v (cleanup of user also failed: %v)", err, delErr)
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}
