// Package cache keeps the canonical domain and branch lists in an
// expiring LRU so bulk pipelines and choice validation avoid re-reading them.
package cache

import (
	"context"
	"time"

	"internship-portal/internal/models"
	"internship-portal/internal/storage"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "internship_catalog_cache_hits_total",
		Help: "Catalog cache hits.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "internship_catalog_cache_misses_total",
		Help: "Catalog cache misses.",
	})
)

const (
	keyActiveDomains = "domains:active"
	keyAllDomains    = "domains:all"
	keyBranches      = "branches"
)

// Catalog serves cached domain and branch lists. Returned slices are shared
// with the cache and must not be modified.
type Catalog struct {
	domains  storage.DomainRepository
	branches storage.BranchRepository

	domainLists *expirable.LRU[string, []models.Domain]
	branchLists *expirable.LRU[string, []models.Branch]
}

func NewCatalog(domains storage.DomainRepository, branches storage.BranchRepository, size int, ttl time.Duration) *Catalog {
	return &Catalog{
		domains:     domains,
		branches:    branches,
		domainLists: expirable.NewLRU[string, []models.Domain](size, nil, ttl),
		branchLists: expirable.NewLRU[string, []models.Branch](size, nil, ttl),
	}
}

func (c *Catalog) Domains(ctx context.Context, activeOnly bool) ([]models.Domain, error) {
	key := keyAllDomains
	if activeOnly {
		key = keyActiveDomains
	}
	if list, ok := c.domainLists.Get(key); ok {
		cacheHitsTotal.Inc()
		return list, nil
	}
	cacheMissesTotal.Inc()

	list, err := c.domains.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	c.domainLists.Add(key, list)
	return list, nil
}

func (c *Catalog) Branches(ctx context.Context) ([]models.Branch, error) {
	if list, ok := c.branchLists.Get(keyBranches); ok {
		cacheHitsTotal.Inc()
		return list, nil
	}
	cacheMissesTotal.Inc()

	list, err := c.branches.List(ctx)
	if err != nil {
		return nil, err
	}
	c.branchLists.Add(keyBranches, list)
	return list, nil
}

// Invalidate drops every cached list. Call after catalog writes.
func (c *Catalog) Invalidate() {
	c.domainLists.Purge()
	c.branchLists.Purge()
}
