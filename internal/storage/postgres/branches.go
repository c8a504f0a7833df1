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

// BranchRepo implements the storage.BranchRepository interface using PostgreSQL.
type BranchRepo struct {
	db Querier
}

// NewBranchRepo creates a new BranchRepo.
func NewBranchRepo(db Querier) *BranchRepo {
	return &BranchRepo{db: db}
}

var _ storage.BranchRepository = (*BranchRepo)(nil)

func (r *BranchRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	var b models.Branch
	err := r.db.QueryRow(ctx, `SELECT id, name, code, created_at FROM branches WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.Code, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get branch %s: %w", id, err)
	}
	if err := r.loadMappings(ctx, map[uuid.UUID]*models.Branch{b.ID: &b}); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BranchRepo) List(ctx context.Context) ([]models.Branch, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, code, created_at FROM branches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query branches: %w", err)
	}
	var ptrs []*models.Branch
	byID := make(map[uuid.UUID]*models.Branch)
	for rows.Next() {
		var b models.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Code, &b.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		ptrs = append(ptrs, &b)
		byID[b.ID] = &b
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate branches: %w", err)
	}
	if err := r.loadMappings(ctx, byID); err != nil {
		return nil, err
	}
	branches := make([]models.Branch, 0, len(ptrs))
	for _, b := range ptrs {
		branches = append(branches, *b)
	}
	return branches, nil
}

func (r *BranchRepo) loadMappings(ctx context.Context, byID map[uuid.UUID]*models.Branch) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	rows, err := r.db.Query(ctx, `
		SELECT branch_id, external_branch_id, external_college_id, year
		FROM branch_external_mappings WHERE branch_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to query branch mappings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var branchID uuid.UUID
		var m models.BranchMapping
		if err := rows.Scan(&branchID, &m.ExternalBranchID, &m.ExternalCollegeID, &m.Year); err != nil {
			return fmt.Errorf("failed to scan branch mapping: %w", err)
		}
		byID[branchID].ExternalMappings = append(byID[branchID].ExternalMappings, m)
	}
	return rows.Err()
}

func (r *BranchRepo) FindByExternalMapping(ctx context.Context, m models.BranchMapping) (*models.Branch, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		SELECT branch_id FROM branch_external_mappings
		WHERE external_branch_id = $1 AND external_college_id = $2 AND year = $3`,
		m.ExternalBranchID, m.ExternalCollegeID, m.Year).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve branch mapping: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *BranchRepo) Create(ctx context.Context, b *models.Branch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO branches (id, name, code, created_at) VALUES ($1, $2, $3, NOW())
		RETURNING created_at`, b.ID, b.Name, b.Code).Scan(&b.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create branch %q: %w", b.Name, storage.ErrConflict)
		}
		return fmt.Errorf("failed to create branch: %w", err)
	}
	for _, m := range b.ExternalMappings {
		_, err := r.db.Exec(ctx, `
			INSERT INTO branch_external_mappings (branch_id, external_branch_id, external_college_id, year)
			VALUES ($1, $2, $3, $4)`, b.ID, m.ExternalBranchID, m.ExternalCollegeID, m.Year)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("failed to create branch mapping %+v: %w", m, storage.ErrConflict)
			}
			return fmt.Errorf("failed to create branch mapping: %w", err)
		}
	}
	return nil
}
