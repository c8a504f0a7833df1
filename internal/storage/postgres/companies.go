package postgres

import (
	"context"
	"errors"
	"fmt"

	"internship-portal/internal/models"
	"internship-portal/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const companyColumns = `id, name, total_seats, filled_seats, recruitment_status, created_at, updated_at`

// CompanyRepo implements the storage.CompanyRepository interface using PostgreSQL.
type CompanyRepo struct {
	db Querier
}

// NewCompanyRepo creates a new CompanyRepo.
func NewCompanyRepo(db Querier) *CompanyRepo {
	return &CompanyRepo{db: db}
}

// Compile-time check to ensure CompanyRepo implements CompanyRepository
var _ storage.CompanyRepository = (*CompanyRepo)(nil)

func scanCompany(row pgx.Row) (*models.Company, error) {
	var c models.Company
	if err := row.Scan(&c.ID, &c.Name, &c.TotalSeats, &c.FilledSeats, &c.RecruitmentStatus, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CompanyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	company, err := scanCompany(r.db.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company by ID %s: %w", id, err)
	}
	if err := r.loadTags(ctx, map[uuid.UUID]*models.Company{company.ID: company}); err != nil {
		return nil, err
	}
	return company, nil
}

func (r *CompanyRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Company, error) {
	result := make(map[uuid.UUID]*models.Company, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies by IDs: %w", err)
	}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		result[c.ID] = c
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate companies: %w", err)
	}
	if err := r.loadTags(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *CompanyRepo) List(ctx context.Context, status *models.RecruitmentStatus) ([]models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies`
	var args []any
	if status != nil {
		query += ` WHERE recruitment_status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	var ptrs []*models.Company
	byID := make(map[uuid.UUID]*models.Company)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		ptrs = append(ptrs, c)
		byID[c.ID] = c
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate companies: %w", err)
	}
	if err := r.loadTags(ctx, byID); err != nil {
		return nil, err
	}

	companies := make([]models.Company, 0, len(ptrs))
	for _, c := range ptrs {
		companies = append(companies, *c)
	}
	return companies, nil
}

func (r *CompanyRepo) loadTags(ctx context.Context, byID map[uuid.UUID]*models.Company) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	load := func(query string, assign func(c *models.Company, ref uuid.UUID)) error {
		rows, err := r.db.Query(ctx, query, ids)
		if err != nil {
			return fmt.Errorf("failed to query company references: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var companyID, ref uuid.UUID
			if err := rows.Scan(&companyID, &ref); err != nil {
				return fmt.Errorf("failed to scan company reference: %w", err)
			}
			assign(byID[companyID], ref)
		}
		return rows.Err()
	}

	if err := load(`SELECT company_id, domain_id FROM company_domains WHERE company_id = ANY($1)`,
		func(c *models.Company, ref uuid.UUID) { c.DomainTags = append(c.DomainTags, ref) }); err != nil {
		return err
	}
	return load(`SELECT company_id, branch_id FROM company_branches WHERE company_id = ANY($1)`,
		func(c *models.Company, ref uuid.UUID) { c.AllowedBranches = append(c.AllowedBranches, ref) })
}

func (r *CompanyRepo) Create(ctx context.Context, c *models.Company) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO companies (id, name, total_seats, filled_seats, recruitment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.TotalSeats, c.FilledSeats, c.RecruitmentStatus,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isCheckViolation(err) || isUniqueViolation(err) {
			return fmt.Errorf("failed to create company %q: %v: %w", c.Name, err, storage.ErrConflict)
		}
		return fmt.Errorf("failed to create company: %w", err)
	}
	return r.replaceTags(ctx, c)
}

// Update changes name, capacity, status and tags. filled_seats is owned by
// the seat operations and is never written here.
func (r *CompanyRepo) Update(ctx context.Context, c *models.Company) error {
	err := r.db.QueryRow(ctx, `
		UPDATE companies SET name = $2, total_seats = $3, recruitment_status = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING filled_seats, updated_at`,
		c.ID, c.Name, c.TotalSeats, c.RecruitmentStatus,
	).Scan(&c.FilledSeats, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		if isCheckViolation(err) {
			return fmt.Errorf("failed to update company %s: total seats below filled seats: %w", c.ID, storage.ErrConflict)
		}
		return fmt.Errorf("failed to update company %s: %w", c.ID, err)
	}
	return r.replaceTags(ctx, c)
}

func (r *CompanyRepo) replaceTags(ctx context.Context, c *models.Company) error {
	stmts := []struct {
		clear  string
		insert string
		refs   []uuid.UUID
	}{
		{`DELETE FROM company_domains WHERE company_id = $1`,
			`INSERT INTO company_domains (company_id, domain_id) SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING`, c.DomainTags},
		{`DELETE FROM company_branches WHERE company_id = $1`,
			`INSERT INTO company_branches (company_id, branch_id) SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING`, c.AllowedBranches},
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(ctx, s.clear, c.ID); err != nil {
			return fmt.Errorf("failed to clear company references: %w", err)
		}
		if len(s.refs) == 0 {
			continue
		}
		if _, err := r.db.Exec(ctx, s.insert, c.ID, s.refs); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("failed to store company references: unknown reference: %w", storage.ErrConflict)
			}
			return fmt.Errorf("failed to store company references: %w", err)
		}
	}
	return nil
}

// IncrementFilledSeats is a single conditional UPDATE, so concurrent callers
// cannot both pass the headroom check.
func (r *CompanyRepo) IncrementFilledSeats(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE companies SET filled_seats = filled_seats + 1, updated_at = NOW()
		WHERE id = $1 AND recruitment_status = $2 AND filled_seats < total_seats`,
		id, models.RecruitmentOpen)
	if err != nil {
		return false, fmt.Errorf("failed to increment filled seats for company %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CompanyRepo) DecrementFilledSeats(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE companies SET filled_seats = GREATEST(filled_seats - 1, 0), updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to decrement filled seats for company %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *CompanyRepo) ResetFilledSeats(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE companies SET filled_seats = 0, updated_at = NOW() WHERE filled_seats <> 0`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset filled seats: %w", err)
	}
	return tag.RowsAffected(), nil
}
