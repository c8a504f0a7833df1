package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"internship-portal/internal/models"
	"internship-portal/internal/storage"

	"github.com/google/uuid"
)

type studentRepo struct{ v *view }

var _ storage.StudentRepository = (*studentRepo)(nil)

func (r *studentRepo) find(match func(s *models.Student) bool) (*models.Student, error) {
	var found *models.Student
	err := r.v.do(func(d *data) error {
		for _, s := range d.students {
			if match(s) {
				found = cloneStudent(s)
				return nil
			}
		}
		return storage.ErrNotFound
	})
	return found, err
}

func (r *studentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Student, error) {
	var found *models.Student
	err := r.v.do(func(d *data) error {
		s, ok := d.students[id]
		if !ok {
			return storage.ErrNotFound
		}
		found = cloneStudent(s)
		return nil
	})
	return found, err
}

// GetByIDForUpdate needs no extra locking: transactions are already serialized.
func (r *studentRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	return r.GetByID(ctx, id)
}

func (r *studentRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Student, error) {
	return r.find(func(s *models.Student) bool { return s.UserID == userID })
}

func (r *studentRepo) GetByEmail(_ context.Context, email string) (*models.Student, error) {
	email = strings.TrimSpace(email)
	return r.find(func(s *models.Student) bool { return strings.EqualFold(s.Email, email) })
}

func (r *studentRepo) GetByRollNumber(_ context.Context, rollNumber string) (*models.Student, error) {
	rollNumber = strings.TrimSpace(rollNumber)
	return r.find(func(s *models.Student) bool { return s.RollNumber == rollNumber })
}

func matchesFilter(s *models.Student, f storage.StudentFilter) bool {
	if f.AllocationStatus != nil && s.AllocationStatus() != *f.AllocationStatus {
		return false
	}
	if f.ApprovalStatus != nil && s.ApprovalStatus != *f.ApprovalStatus {
		return false
	}
	if f.BranchID != nil && (s.BranchID == nil || *s.BranchID != *f.BranchID) {
		return false
	}
	if f.AllocatedCompanyID != nil && (s.AllocatedCompanyID == nil || *s.AllocatedCompanyID != *f.AllocatedCompanyID) {
		return false
	}
	return true
}

func (r *studentRepo) List(_ context.Context, filter storage.StudentFilter) ([]models.Student, error) {
	var students []models.Student
	err := r.v.do(func(d *data) error {
		for _, s := range d.students {
			if matchesFilter(s, filter) {
				students = append(students, *cloneStudent(s))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(students, func(i, j int) bool { return students[i].RollNumber < students[j].RollNumber })

	if filter.Offset > 0 {
		if filter.Offset >= len(students) {
			return []models.Student{}, nil
		}
		students = students[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(students) {
		students = students[:filter.Limit]
	}
	return students, nil
}

func checkStudentRefs(d *data, s *models.Student) error {
	if _, ok := d.users[s.UserID]; s.UserID != uuid.Nil && !ok {
		return fmt.Errorf("unknown user %s: %w", s.UserID, storage.ErrConflict)
	}
	if s.BranchID != nil {
		if _, ok := d.branches[*s.BranchID]; !ok {
			return fmt.Errorf("unknown branch %s: %w", *s.BranchID, storage.ErrConflict)
		}
	}
	if s.AllocatedCompanyID != nil {
		if _, ok := d.companies[*s.AllocatedCompanyID]; !ok {
			return fmt.Errorf("unknown company %s: %w", *s.AllocatedCompanyID, storage.ErrConflict)
		}
	}
	if (s.AllocatedCompanyID != nil) != (s.ApprovalStatus == models.ApprovalAllocated) {
		return fmt.Errorf("allocation does not match approval status %s: %w", s.ApprovalStatus, storage.ErrConflict)
	}
	priorities := make(map[int]bool, len(s.Choices))
	for _, c := range s.Choices {
		if c.Priority < 1 || c.Priority > models.MaxChoices || priorities[c.Priority] {
			return fmt.Errorf("invalid choice priority %d: %w", c.Priority, storage.ErrConflict)
		}
		priorities[c.Priority] = true
		if _, ok := d.companies[c.CompanyID]; !ok {
			return fmt.Errorf("choice %d: unknown company: %w", c.Priority, storage.ErrConflict)
		}
		if _, ok := d.domains[c.DomainID]; !ok {
			return fmt.Errorf("choice %d: unknown domain: %w", c.Priority, storage.ErrConflict)
		}
	}
	for _, id := range s.PreferredDomains {
		if _, ok := d.domains[id]; !ok {
			return fmt.Errorf("unknown preferred domain %s: %w", id, storage.ErrConflict)
		}
	}
	return nil
}

func (r *studentRepo) Create(_ context.Context, s *models.Student) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.ApprovalStatus == "" {
		s.ApprovalStatus = models.ApprovalNotApplied
	}
	return r.v.do(func(d *data) error {
		for _, existing := range d.students {
			if existing.RollNumber == s.RollNumber {
				return fmt.Errorf("failed to create student %s: %w", s.RollNumber, storage.ErrDuplicateRollNumber)
			}
			if strings.EqualFold(existing.Email, s.Email) {
				return fmt.Errorf("failed to create student %s: %w", s.Email, storage.ErrDuplicateEmail)
			}
		}
		if _, ok := d.students[s.ID]; ok {
			return fmt.Errorf("failed to create student %s: %w", s.ID, storage.ErrConflict)
		}
		if err := checkStudentRefs(d, s); err != nil {
			return fmt.Errorf("failed to create student: %w", err)
		}
		now := time.Now().UTC()
		s.CreatedAt, s.UpdatedAt = now, now
		stored := cloneStudent(s)
		stored.History = nil
		d.students[s.ID] = stored
		return nil
	})
}

// Update writes everything except history, which only grows through AppendHistory.
func (r *studentRepo) Update(_ context.Context, s *models.Student) error {
	return r.v.do(func(d *data) error {
		existing, ok := d.students[s.ID]
		if !ok {
			return storage.ErrNotFound
		}
		if err := checkStudentRefs(d, s); err != nil {
			return fmt.Errorf("failed to update student %s: %w", s.ID, err)
		}
		s.UpdatedAt = time.Now().UTC()
		stored := cloneStudent(s)
		stored.Email = existing.Email
		stored.RollNumber = existing.RollNumber
		stored.UserID = existing.UserID
		stored.CreatedAt = existing.CreatedAt
		stored.History = existing.History
		d.students[s.ID] = stored
		return nil
	})
}

func (r *studentRepo) AppendHistory(_ context.Context, studentID uuid.UUID, entries []models.Transition) error {
	return r.v.do(func(d *data) error {
		s, ok := d.students[studentID]
		if !ok {
			return fmt.Errorf("failed to append history for student %s: %w", studentID, storage.ErrConflict)
		}
		s.History = append(s.History, cloneHistory(entries)...)
		return nil
	})
}

func (r *studentRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.v.do(func(d *data) error {
		if _, ok := d.students[id]; !ok {
			return storage.ErrNotFound
		}
		delete(d.students, id)
		return nil
	})
}

func (r *studentRepo) ResetApplications(_ context.Context, full bool) (int64, error) {
	var n int64
	err := r.v.do(func(d *data) error {
		now := time.Now().UTC()
		for _, s := range d.students {
			s.ResetApplication(full)
			s.UpdatedAt = now
			n++
		}
		return nil
	})
	return n, err
}
