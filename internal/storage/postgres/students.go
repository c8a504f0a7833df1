package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"internship-portal/internal/models"
	"internship-portal/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const studentColumns = `
	id, user_id, name, email, roll_number, phone, gender, date_of_birth, branch_id, year,
	participating, expected_salary, is_form_submitted, approval_status, allocated_company_id,
	rejection_reason, created_at, updated_at`

// StudentRepo implements the storage.StudentRepository interface using PostgreSQL.
type StudentRepo struct {
	db Querier
}

// NewStudentRepo creates a new StudentRepo.
func NewStudentRepo(db Querier) *StudentRepo {
	return &StudentRepo{db: db}
}

// Compile-time check to ensure StudentRepo implements StudentRepository
var _ storage.StudentRepository = (*StudentRepo)(nil)

func scanStudent(row pgx.Row) (*models.Student, error) {
	var s models.Student
	err := row.Scan(
		&s.ID, &s.UserID, &s.Name, &s.Email, &s.RollNumber, &s.Phone, &s.Gender, &s.DateOfBirth,
		&s.BranchID, &s.Year, &s.Participating, &s.ExpectedSalary, &s.IsFormSubmitted,
		&s.ApprovalStatus, &s.AllocatedCompanyID, &s.RejectionReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StudentRepo) getOne(ctx context.Context, where string, arg any) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE ` + where
	student, err := scanStudent(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get student (%s): %w", where, err)
	}
	if err := r.loadApplications(ctx, []*models.Student{student}); err != nil {
		return nil, err
	}
	return student, nil
}

func (r *StudentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByIDForUpdate takes a row lock held until the surrounding transaction ends.
func (r *StudentRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	return r.getOne(ctx, "id = $1 FOR UPDATE", id)
}

func (r *StudentRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Student, error) {
	return r.getOne(ctx, "user_id = $1", userID)
}

func (r *StudentRepo) GetByEmail(ctx context.Context, email string) (*models.Student, error) {
	return r.getOne(ctx, "lower(email) = lower($1)", strings.TrimSpace(email))
}

func (r *StudentRepo) GetByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	return r.getOne(ctx, "roll_number = $1", strings.TrimSpace(rollNumber))
}

func (r *StudentRepo) List(ctx context.Context, filter storage.StudentFilter) ([]models.Student, error) {
	var conditions []string
	var args []any

	if filter.AllocationStatus != nil {
		args = append(args, *filter.AllocationStatus)
		conditions = append(conditions, fmt.Sprintf("allocation_status = $%d", len(args)))
	}
	if filter.ApprovalStatus != nil {
		args = append(args, *filter.ApprovalStatus)
		conditions = append(conditions, fmt.Sprintf("approval_status = $%d", len(args)))
	}
	if filter.BranchID != nil {
		args = append(args, *filter.BranchID)
		conditions = append(conditions, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if filter.AllocatedCompanyID != nil {
		args = append(args, *filter.AllocatedCompanyID)
		conditions = append(conditions, fmt.Sprintf("allocated_company_id = $%d", len(args)))
	}

	var qb strings.Builder
	qb.WriteString(`SELECT ` + studentColumns + ` FROM students`)
	if len(conditions) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(conditions, " AND "))
	}
	qb.WriteString(" ORDER BY roll_number")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		qb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		qb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	rows, err := r.db.Query(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var ptrs []*models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		ptrs = append(ptrs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}
	if err := r.loadApplications(ctx, ptrs); err != nil {
		return nil, err
	}

	students := make([]models.Student, 0, len(ptrs))
	for _, s := range ptrs {
		students = append(students, *s)
	}
	return students, nil
}

// loadApplications populates choices, preferred domains and history.
func (r *StudentRepo) loadApplications(ctx context.Context, students []*models.Student) error {
	if len(students) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.Student, len(students))
	ids := make([]uuid.UUID, 0, len(students))
	for _, s := range students {
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT student_id, priority, company_id, domain_id, location, resume_url
		FROM student_choices WHERE student_id = ANY($1) ORDER BY student_id, priority`, ids)
	if err != nil {
		return fmt.Errorf("failed to query student choices: %w", err)
	}
	for rows.Next() {
		var studentID uuid.UUID
		var c models.Choice
		if err := rows.Scan(&studentID, &c.Priority, &c.CompanyID, &c.DomainID, &c.Location, &c.ResumeURL); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan student choice: %w", err)
		}
		byID[studentID].Choices = append(byID[studentID].Choices, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate student choices: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT student_id, domain_id FROM student_preferred_domains
		WHERE student_id = ANY($1) ORDER BY student_id, domain_id`, ids)
	if err != nil {
		return fmt.Errorf("failed to query preferred domains: %w", err)
	}
	for rows.Next() {
		var studentID, domainID uuid.UUID
		if err := rows.Scan(&studentID, &domainID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan preferred domain: %w", err)
		}
		byID[studentID].PreferredDomains = append(byID[studentID].PreferredDomains, domainID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate preferred domains: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT student_id, from_status, to_status, occurred_at FROM application_history
		WHERE student_id = ANY($1) ORDER BY student_id, id`, ids)
	if err != nil {
		return fmt.Errorf("failed to query application history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var studentID uuid.UUID
		var t models.Transition
		if err := rows.Scan(&studentID, &t.From, &t.To, &t.OccurredAt); err != nil {
			return fmt.Errorf("failed to scan application history: %w", err)
		}
		byID[studentID].History = append(byID[studentID].History, t)
	}
	return rows.Err()
}

func (r *StudentRepo) Create(ctx context.Context, s *models.Student) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.ApprovalStatus == "" {
		s.ApprovalStatus = models.ApprovalNotApplied
	}
	query := `
		INSERT INTO students (id, user_id, name, email, roll_number, phone, gender, date_of_birth,
			branch_id, year, participating, expected_salary, is_form_submitted, approval_status,
			allocation_status, allocated_company_id, rejection_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		s.ID, s.UserID, s.Name, s.Email, s.RollNumber, s.Phone, s.Gender, s.DateOfBirth,
		s.BranchID, s.Year, s.Participating, s.ExpectedSalary, s.IsFormSubmitted, s.ApprovalStatus,
		s.AllocationStatus(), s.AllocatedCompanyID, s.RejectionReason,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			_, constraint := pgErrorCode(err)
			switch {
			case strings.Contains(constraint, "roll_number"):
				return fmt.Errorf("failed to create student %s: %w", s.RollNumber, storage.ErrDuplicateRollNumber)
			case strings.Contains(constraint, "email"):
				return fmt.Errorf("failed to create student %s: %w", s.Email, storage.ErrDuplicateEmail)
			}
			return fmt.Errorf("failed to create student: %w", storage.ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to create student: invalid user or branch reference: %w", storage.ErrConflict)
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return r.replaceCollections(ctx, s)
}

func (r *StudentRepo) Update(ctx context.Context, s *models.Student) error {
	query := `
		UPDATE students SET name = $2, phone = $3, gender = $4, date_of_birth = $5, branch_id = $6,
			year = $7, participating = $8, expected_salary = $9, is_form_submitted = $10,
			approval_status = $11, allocation_status = $12, allocated_company_id = $13,
			rejection_reason = $14, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		s.ID, s.Name, s.Phone, s.Gender, s.DateOfBirth, s.BranchID, s.Year, s.Participating,
		s.ExpectedSalary, s.IsFormSubmitted, s.ApprovalStatus, s.AllocationStatus(),
		s.AllocatedCompanyID, s.RejectionReason,
	).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		if isCheckViolation(err) || isForeignKeyViolation(err) {
			return fmt.Errorf("failed to update student %s: %v: %w", s.ID, err, storage.ErrConflict)
		}
		return fmt.Errorf("failed to update student %s: %w", s.ID, err)
	}
	return r.replaceCollections(ctx, s)
}

func (r *StudentRepo) replaceCollections(ctx context.Context, s *models.Student) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM student_choices WHERE student_id = $1`, s.ID); err != nil {
		return fmt.Errorf("failed to clear choices for student %s: %w", s.ID, err)
	}
	for _, c := range s.Choices {
		_, err := r.db.Exec(ctx, `
			INSERT INTO student_choices (student_id, priority, company_id, domain_id, location, resume_url)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			s.ID, c.Priority, c.CompanyID, c.DomainID, c.Location, c.ResumeURL)
		if err != nil {
			if isForeignKeyViolation(err) || isUniqueViolation(err) {
				return fmt.Errorf("failed to store choice %d: %w", c.Priority, storage.ErrConflict)
			}
			return fmt.Errorf("failed to store choice %d for student %s: %w", c.Priority, s.ID, err)
		}
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM student_preferred_domains WHERE student_id = $1`, s.ID); err != nil {
		return fmt.Errorf("failed to clear preferred domains for student %s: %w", s.ID, err)
	}
	if len(s.PreferredDomains) > 0 {
		_, err := r.db.Exec(ctx, `
			INSERT INTO student_preferred_domains (student_id, domain_id)
			SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING`, s.ID, s.PreferredDomains)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("failed to store preferred domains: unknown domain: %w", storage.ErrConflict)
			}
			return fmt.Errorf("failed to store preferred domains for student %s: %w", s.ID, err)
		}
	}
	return nil
}

func (r *StudentRepo) AppendHistory(ctx context.Context, studentID uuid.UUID, entries []models.Transition) error {
	for _, e := range entries {
		_, err := r.db.Exec(ctx, `
			INSERT INTO application_history (student_id, from_status, to_status, occurred_at)
			VALUES ($1, $2, $3, $4)`, studentID, e.From, e.To, e.OccurredAt)
		if err != nil {
			return fmt.Errorf("failed to append history for student %s: %w", studentID, err)
		}
	}
	return nil
}

func (r *StudentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete student %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ResetApplications is meant to run inside a transaction together with
// CompanyRepo.ResetFilledSeats. Re-running it after a partial failure is safe.
func (r *StudentRepo) ResetApplications(ctx context.Context, full bool) (int64, error) {
	statements := []string{
		`DELETE FROM student_choices`,
		`DELETE FROM application_history`,
	}
	if full {
		statements = append(statements, `DELETE FROM student_preferred_domains`)
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to reset applications (%s): %w", stmt, err)
		}
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE students SET is_form_submitted = FALSE, approval_status = $1, allocation_status = $2,
			allocated_company_id = NULL, rejection_reason = '', updated_at = NOW()`,
		models.ApprovalNotApplied, models.AllocationNotApplied)
	if err != nil {
		return 0, fmt.Errorf("failed to reset student applications: %w", err)
	}
	return tag.RowsAffected(), nil
}
