package cache_test

import (
	"context"
	"testing"
	"time"

	"internship-portal/internal/cache"
	"internship-portal/internal/models"
	"internship-portal/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_CachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repos()
	require.NoError(t, repos.Domains.Create(ctx, &models.Domain{Name: "Backend", Active: true}))
	require.NoError(t, repos.Domains.Create(ctx, &models.Domain{Name: "Legacy", Active: false}))

	catalog := cache.NewCatalog(repos.Domains, repos.Branches, 8, time.Minute)

	active, err := catalog.Domains(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := catalog.Domains(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repos.Domains.Create(ctx, &models.Domain{Name: "Frontend", Active: true}))

	active, err = catalog.Domains(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 1, "served from cache")

	catalog.Invalidate()
	active, err = catalog.Domains(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestCatalog_Branches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repos()
	require.NoError(t, repos.Branches.Create(ctx, &models.Branch{Name: "Computer Science", Code: "CSE"}))

	catalog := cache.NewCatalog(repos.Domains, repos.Branches, 8, time.Minute)
	branches, err := catalog.Branches(ctx)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "CSE", branches[0].Code)
}
