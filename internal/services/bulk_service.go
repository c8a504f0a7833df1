package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"internship-portal/internal/lock"
	"internship-portal/internal/logging"
	"internship-portal/internal/metrics"
	"internship-portal/internal/reconcile"
)

const (
	registerLockKey = "bulk:register"
	domainsLockKey  = "bulk:domains"
)

type bulkService struct {
	reconciler *reconcile.Reconciler
	locker     lock.Locker
	lockTTL    time.Duration
}

// NewBulkService creates a new instance of BulkService. Each pipeline runs
// under its own lock so two runs of the same pipeline never overlap.
func NewBulkService(reconciler *reconcile.Reconciler, locker lock.Locker, lockTTL time.Duration) BulkService {
	return &bulkService{reconciler: reconciler, locker: locker, lockTTL: lockTTL}
}

func (s *bulkService) withLock(ctx context.Context, key string, run func() error) error {
	release, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if errors.Is(err, lock.ErrHeld) {
		return fmt.Errorf("%w: %s is already running", ErrBulkInProgress, key)
	}
	if err != nil {
		logging.FromContext(ctx).Error("Failed to acquire bulk lock", "key", key, "error", err)
		return fmt.Errorf("failed to acquire %s lock: %w", key, err)
	}
	defer func() {
		// the request context may already be cancelled
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logging.FromContext(ctx).Warn("Failed to release bulk lock", "key", key, "error", err)
		}
	}()
	return run()
}

func (s *bulkService) BulkRegister(ctx context.Context, rows []reconcile.RawRow) (*reconcile.RegistrationResult, error) {
	var result *reconcile.RegistrationResult
	err := s.withLock(ctx, registerLockKey, func() error {
		var err error
		result, err = s.reconciler.Register(ctx, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	countRows("register", map[string]int{
		"created": len(result.Created),
		"skipped": len(result.Skipped),
		"failed":  len(result.Failed),
	})
	return result, nil
}

func (s *bulkService) BulkReconcileDomains(ctx context.Context, rows []reconcile.RawRow) (*reconcile.DomainResult, error) {
	var result *reconcile.DomainResult
	err := s.withLock(ctx, domainsLockKey, func() error {
		var err error
		result, err = s.reconciler.ReconcileDomains(ctx, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	countRows("domains", map[string]int{
		"updated":            len(result.Updated),
		"already_registered": len(result.AlreadyRegistered),
		"failed":             len(result.Failed),
		"user_not_found":     len(result.UserNotFound),
	})
	return result, nil
}

func countRows(pipeline string, byStatus map[string]int) {
	for status, n := range byStatus {
		metrics.BulkRowsTotal.WithLabelValues(pipeline, status).Add(float64(n))
	}
}
