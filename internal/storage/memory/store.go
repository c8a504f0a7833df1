// Package memory is an in-process implementation of storage.Store.
// Transactions run against a copy of the data set under a store-wide lock and
// replace it on success, so they are atomic and serializable.
package memory

import (
	"context"
	"sync"

	"internship-portal/internal/models"
	"internship-portal/internal/storage"

	"github.com/google/uuid"
)

type data struct {
	students  map[uuid.UUID]*models.Student
	companies map[uuid.UUID]*models.Company
	domains   map[uuid.UUID]*models.Domain
	branches  map[uuid.UUID]*models.Branch
	users     map[uuid.UUID]*models.User
	settings  *models.Settings
}

func newData() *data {
	defaults := models.DefaultSettings()
	return &data{
		students:  make(map[uuid.UUID]*models.Student),
		companies: make(map[uuid.UUID]*models.Company),
		domains:   make(map[uuid.UUID]*models.Domain),
		branches:  make(map[uuid.UUID]*models.Branch),
		users:     make(map[uuid.UUID]*models.User),
		settings:  &defaults,
	}
}

func (d *data) clone() *data {
	c := &data{
		students:  make(map[uuid.UUID]*models.Student, len(d.students)),
		companies: make(map[uuid.UUID]*models.Company, len(d.companies)),
		domains:   make(map[uuid.UUID]*models.Domain, len(d.domains)),
		branches:  make(map[uuid.UUID]*models.Branch, len(d.branches)),
		users:     make(map[uuid.UUID]*models.User, len(d.users)),
	}
	for id, s := range d.students {
		c.students[id] = cloneStudent(s)
	}
	for id, co := range d.companies {
		c.companies[id] = cloneCompany(co)
	}
	for id, dm := range d.domains {
		c.domains[id] = cloneDomain(dm)
	}
	for id, b := range d.branches {
		c.branches[id] = cloneBranch(b)
	}
	for id, u := range d.users {
		uc := *u
		c.users[id] = &uc
	}
	settings := *d.settings
	c.settings = &settings
	return c
}

// Store implements storage.Store in memory.
type Store struct {
	mu   sync.Mutex
	data *data
}

// NewStore returns an empty store with default settings.
func NewStore() *Store {
	return &Store{data: newData()}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) Repos() storage.Repositories {
	return s.repositories(&view{store: s})
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(s.repositories(&view{store: s, tx: snapshot})); err != nil {
		return err
	}
	s.data = snapshot
	return nil
}

func (s *Store) repositories(v *view) storage.Repositories {
	return storage.Repositories{
		Students:  &studentRepo{v},
		Companies: &companyRepo{v},
		Domains:   &domainRepo{v},
		Branches:  &branchRepo{v},
		Users:     &userRepo{v},
		Settings:  &settingsRepo{v},
	}
}

// view gives repositories either the live data set (locking per call) or a
// transaction snapshot (already locked by RunInTx).
type view struct {
	store *Store
	tx    *data
}

func (v *view) do(fn func(d *data) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func cloneIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return nil
	}
	return append([]uuid.UUID(nil), ids...)
}

func cloneIDPtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func cloneStudent(s *models.Student) *models.Student {
	c := *s
	c.PreferredDomains = cloneIDs(s.PreferredDomains)
	c.BranchID = cloneIDPtr(s.BranchID)
	c.AllocatedCompanyID = cloneIDPtr(s.AllocatedCompanyID)
	if s.DateOfBirth != nil {
		dob := *s.DateOfBirth
		c.DateOfBirth = &dob
	}
	if s.ExpectedSalary != nil {
		salary := *s.ExpectedSalary
		c.ExpectedSalary = &salary
	}
	if s.Choices != nil {
		c.Choices = append([]models.Choice(nil), s.Choices...)
	}
	c.History = cloneHistory(s.History)
	return &c
}

func cloneHistory(entries []models.Transition) []models.Transition {
	if entries == nil {
		return nil
	}
	out := make([]models.Transition, len(entries))
	for i, t := range entries {
		out[i] = t
		if t.OccurredAt != nil {
			at := *t.OccurredAt
			out[i].OccurredAt = &at
		}
	}
	return out
}

func cloneCompany(co *models.Company) *models.Company {
	c := *co
	c.DomainTags = cloneIDs(co.DomainTags)
	c.AllowedBranches = cloneIDs(co.AllowedBranches)
	return &c
}

func cloneDomain(d *models.Domain) *models.Domain {
	c := *d
	c.BranchIDs = cloneIDs(d.BranchIDs)
	return &c
}

func cloneBranch(b *models.Branch) *models.Branch {
	c := *b
	if b.ExternalMappings != nil {
		c.ExternalMappings = append([]models.BranchMapping(nil), b.ExternalMappings...)
	}
	return &c
}
