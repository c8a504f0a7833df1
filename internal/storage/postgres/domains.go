package postgres

import (
	"context"
	"fmt"

	"internship-portal/internal/models"
	"internship-portal/internal/storage"

	"github.com/google/uuid"
)

// DomainRepo implements the storage.DomainRepository interface using PostgreSQL.
type DomainRepo struct {
	db Querier
}

// NewDomainRepo creates a new DomainRepo.
func NewDomainRepo(db Querier) *DomainRepo {
	return &DomainRepo{db: db}
}

var _ storage.DomainRepository = (*DomainRepo)(nil)

func (r *DomainRepo) query(ctx context.Context, where string, args ...any) ([]*models.Domain, error) {
	rows, err := r.db.Query(ctx, `
		SELECT d.id, d.name, d.active, d.created_at,
			COALESCE(array_agg(db.branch_id) FILTER (WHERE db.branch_id IS NOT NULL), '{}')
		FROM domains d
		LEFT JOIN domain_branches db ON db.domain_id = d.id
		`+where+`
		GROUP BY d.id
		ORDER BY d.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query domains: %w", err)
	}
	defer rows.Close()

	var domains []*models.Domain
	for rows.Next() {
		var d models.Domain
		if err := rows.Scan(&d.ID, &d.Name, &d.Active, &d.CreatedAt, &d.BranchIDs); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, &d)
	}
	return domains, rows.Err()
}

func (r *DomainRepo) List(ctx context.Context, activeOnly bool) ([]models.Domain, error) {
	where := ""
	if activeOnly {
		where = "WHERE d.active"
	}
	ptrs, err := r.query(ctx, where)
	if err != nil {
		return nil, err
	}
	domains := make([]models.Domain, 0, len(ptrs))
	for _, d := range ptrs {
		domains = append(domains, *d)
	}
	return domains, nil
}

func (r *DomainRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Domain, error) {
	result := make(map[uuid.UUID]*models.Domain, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	ptrs, err := r.query(ctx, "WHERE d.id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	for _, d := range ptrs {
		result[d.ID] = d
	}
	return result, nil
}

func (r *DomainRepo) Create(ctx context.Context, d *models.Domain) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO domains (id, name, active, created_at) VALUES ($1, $2, $3, NOW())
		RETURNING created_at`, d.ID, d.Name, d.Active).Scan(&d.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create domain %q: %w", d.Name, storage.ErrConflict)
		}
		return fmt.Errorf("failed to create domain: %w", err)
	}
	if len(d.BranchIDs) > 0 {
		_, err := r.db.Exec(ctx, `
			INSERT INTO domain_branches (domain_id, branch_id) SELECT $1, unnest($2::uuid[])
			ON CONFLICT DO NOTHING`, d.ID, d.BranchIDs)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("failed to link domain branches: unknown branch: %w", storage.ErrConflict)
			}
			return fmt.Errorf("failed to link domain branches: %w", err)
		}
	}
	return nil
}
