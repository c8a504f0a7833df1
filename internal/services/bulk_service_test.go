package services_test

import (
	"context"
	"testing"
	"time"

	"internship-portal/internal/auth"
	"internship-portal/internal/cache"
	"internship-portal/internal/lock"
	"internship-portal/internal/models"
	"internship-portal/internal/reconcile"
	"internship-portal/internal/services"
	"internship-portal/internal/transport/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newBulkService(f *fixture, locker lock.Locker) services.BulkService {
	repos := f.store.Repos()
	catalog := cache.NewCatalog(repos.Domains, repos.Branches, 8, time.Minute)
	r := reconcile.New(f.store, catalog, reconcile.WithPasswordCost(bcrypt.MinCost))
	return services.NewBulkService(r, locker, time.Minute)
}

func TestBulkService_RegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	bulk := newBulkService(f, lock.NewLocalLocker())

	result, err := bulk.BulkRegister(f.ctx, []reconcile.RawRow{
		{"Email": "asha@example.edu", "Roll No": "21cs500", "Name": "Asha"},
		{"Email": "asha@example.edu", "Roll No": "21CS501", "Name": "Asha Again"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Created, 1)
	assert.Len(t, result.Skipped, 1)

	authSvc := services.NewAuthService(f.store.Repos().Users, auth.NewIssuer("secret", "portal", time.Hour))
	resp, err := authSvc.Login(f.ctx, &dto.LoginRequest{Email: "Asha@example.edu", Password: "21CS500"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, resp.Role)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	_, err = authSvc.Login(f.ctx, &dto.LoginRequest{Email: "asha@example.edu", Password: "wrong"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = authSvc.Login(f.ctx, &dto.LoginRequest{Email: "nobody@example.edu", Password: "x"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	assert.Equal(t, "UNAUTHORIZED", services.Taxonomy(err))
}

func TestBulkService_ReconcileDomains(t *testing.T) {
	f := newFixture(t)
	bulk := newBulkService(f, lock.NewLocalLocker())
	s := f.addStudent(t, "21CS510")

	result, err := bulk.BulkReconcileDomains(f.ctx, []reconcile.RawRow{
		{"email": s.Email, "domains": "backend development\nData  Science"},
	})
	require.NoError(t, err)
	require.Len(t, result.Updated, 1)
	assert.ElementsMatch(t, []uuid.UUID{f.backend.ID, f.data.ID}, f.student(t, s.ID).PreferredDomains)
}

func TestBulkService_RejectsOverlappingRuns(t *testing.T) {
	f := newFixture(t)
	locker := lock.NewLocalLocker()
	bulk := newBulkService(f, locker)

	release, err := locker.Acquire(context.Background(), "bulk:register", time.Minute)
	require.NoError(t, err)

	_, err = bulk.BulkRegister(f.ctx, []reconcile.RawRow{{"email": "a@example.edu", "roll no": "1", "name": "A"}})
	assert.ErrorIs(t, err, services.ErrBulkInProgress)
	assert.Equal(t, "CONFLICT", services.Taxonomy(err))

	// the other pipeline has its own lock
	_, err = bulk.BulkReconcileDomains(f.ctx, []reconcile.RawRow{})
	assert.NoError(t, err)

	require.NoError(t, release(context.Background()))
	result, err := bulk.BulkRegister(f.ctx, []reconcile.RawRow{{"email": "a@example.edu", "roll no": "1", "name": "A"}})
	require.NoError(t, err)
	assert.Len(t, result.Created, 1)
}
