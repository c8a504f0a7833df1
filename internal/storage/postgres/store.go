package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"internship-portal/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements storage.Store on top of a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Compile-time check to ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

func (s *Store) Repos() storage.Repositories {
	return newRepositories(s.pool)
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			slog.Warn("RunInTx: rollback failed", "error", rbErr)
		}
	}()

	if err := fn(newRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func newRepositories(db Querier) storage.Repositories {
	return storage.Repositories{
		Students:  NewStudentRepo(db),
		Companies: NewCompanyRepo(db),
		Domains:   NewDomainRepo(db),
		Branches:  NewBranchRepo(db),
		Users:     NewUserRepo(db),
		Settings:  NewSettingsRepo(db),
	}
}
