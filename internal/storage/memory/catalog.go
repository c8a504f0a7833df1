package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"internship-portal/internal/models"
	"internship-portal/internal/storage"

	"github.com/google/uuid"
)

type companyRepo struct{ v *view }

var _ storage.CompanyRepository = (*companyRepo)(nil)

func (r *companyRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Company, error) {
	var found *models.Company
	err := r.v.do(func(d *data) error {
		c, ok := d.companies[id]
		if !ok {
			return storage.ErrNotFound
		}
		found = cloneCompany(c)
		return nil
	})
	return found, err
}

func (r *companyRepo) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Company, error) {
	result := make(map[uuid.UUID]*models.Company, len(ids))
	err := r.v.do(func(d *data) error {
		for _, id := range ids {
			if c, ok := d.companies[id]; ok {
				result[id] = cloneCompany(c)
			}
		}
		return nil
	})
	return result, err
}

func (r *companyRepo) List(_ context.Context, status *models.RecruitmentStatus) ([]models.Company, error) {
	var companies []models.Company
	err := r.v.do(func(d *data) error {
		for _, c := range d.companies {
			if status == nil || c.RecruitmentStatus == *status {
				companies = append(companies, *cloneCompany(c))
			}
		}
		return nil
	})
	sort.Slice(companies, func(i, j int) bool { return companies[i].Name < companies[j].Name })
	return companies, err
}

func checkCompany(d *data, c *models.Company) error {
	if c.TotalSeats <= 0 || c.FilledSeats < 0 || c.FilledSeats > c.TotalSeats {
		return fmt.Errorf("seat bounds violated for company %q: %w", c.Name, storage.ErrConflict)
	}
	for _, id := range c.DomainTags {
		if _, ok := d.domains[id]; !ok {
			return fmt.Errorf("unknown domain %s: %w", id, storage.ErrConflict)
		}
	}
	for _, id := range c.AllowedBranches {
		if _, ok := d.branches[id]; !ok {
			return fmt.Errorf("unknown branch %s: %w", id, storage.ErrConflict)
		}
	}
	return nil
}

func (r *companyRepo) Create(_ context.Context, c *models.Company) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.v.do(func(d *data) error {
		if _, ok := d.companies[c.ID]; ok {
			return fmt.Errorf("failed to create company %q: %w", c.Name, storage.ErrConflict)
		}
		if err := checkCompany(d, c); err != nil {
			return fmt.Errorf("failed to create company: %w", err)
		}
		now := time.Now().UTC()
		c.CreatedAt, c.UpdatedAt = now, now
		d.companies[c.ID] = cloneCompany(c)
		return nil
	})
}

// Update keeps the stored filled_seats; only the seat operations change it.
func (r *companyRepo) Update(_ context.Context, c *models.Company) error {
	return r.v.do(func(d *data) error {
		existing, ok := d.companies[c.ID]
		if !ok {
			return storage.ErrNotFound
		}
		c.FilledSeats = existing.FilledSeats
		if err := checkCompany(d, c); err != nil {
			return fmt.Errorf("failed to update company %s: %w", c.ID, err)
		}
		c.CreatedAt = existing.CreatedAt
		c.UpdatedAt = time.Now().UTC()
		d.companies[c.ID] = cloneCompany(c)
		return nil
	})
}

func (r *companyRepo) IncrementFilledSeats(_ context.Context, id uuid.UUID) (bool, error) {
	var taken bool
	err := r.v.do(func(d *data) error {
		c, ok := d.companies[id]
		if !ok || !c.IsOpen() || !c.HasFreeSeat() {
			return nil
		}
		c.FilledSeats++
		c.UpdatedAt = time.Now().UTC()
		taken = true
		return nil
	})
	return taken, err
}

func (r *companyRepo) DecrementFilledSeats(_ context.Context, id uuid.UUID) error {
	return r.v.do(func(d *data) error {
		c, ok := d.companies[id]
		if !ok {
			return storage.ErrNotFound
		}
		if c.FilledSeats > 0 {
			c.FilledSeats--
		}
		c.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *companyRepo) ResetFilledSeats(_ context.Context) (int64, error) {
	var n int64
	err := r.v.do(func(d *data) error {
		for _, c := range d.companies {
			if c.FilledSeats != 0 {
				c.FilledSeats = 0
				n++
			}
		}
		return nil
	})
	return n, err
}

type domainRepo struct{ v *view }

var _ storage.DomainRepository = (*domainRepo)(nil)

func (r *domainRepo) List(_ context.Context, activeOnly bool) ([]models.Domain, error) {
	var domains []models.Domain
	err := r.v.do(func(d *data) error {
		for _, dm := range d.domains {
			if !activeOnly || dm.Active {
				domains = append(domains, *cloneDomain(dm))
			}
		}
		return nil
	})
	sort.Slice(domains, func(i, j int) bool { return domains[i].Name < domains[j].Name })
	return domains, err
}

func (r *domainRepo) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Domain, error) {
	result := make(map[uuid.UUID]*models.Domain, len(ids))
	err := r.v.do(func(d *data) error {
		for _, id := range ids {
			if dm, ok := d.domains[id]; ok {
				result[id] = cloneDomain(dm)
			}
		}
		return nil
	})
	return result, err
}

func (r *domainRepo) Create(_ context.Context, dm *models.Domain) error {
	if dm.ID == uuid.Nil {
		dm.ID = uuid.New()
	}
	return r.v.do(func(d *data) error {
		for _, existing := range d.domains {
			if existing.ID == dm.ID || existing.Name == dm.Name {
				return fmt.Errorf("failed to create domain %q: %w", dm.Name, storage.ErrConflict)
			}
		}
		for _, id := range dm.BranchIDs {
			if _, ok := d.branches[id]; !ok {
				return fmt.Errorf("failed to link domain branches: unknown branch: %w", storage.ErrConflict)
			}
		}
		dm.CreatedAt = time.Now().UTC()
		d.domains[dm.ID] = cloneDomain(dm)
		return nil
	})
}

type branchRepo struct{ v *view }

var _ storage.BranchRepository = (*branchRepo)(nil)

func (r *branchRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Branch, error) {
	var found *models.Branch
	err := r.v.do(func(d *data) error {
		b, ok := d.branches[id]
		if !ok {
			return storage.ErrNotFound
		}
		found = cloneBranch(b)
		return nil
	})
	return found, err
}

func (r *branchRepo) List(_ context.Context) ([]models.Branch, error) {
	var branches []models.Branch
	err := r.v.do(func(d *data) error {
		for _, b := range d.branches {
			branches = append(branches, *cloneBranch(b))
		}
		return nil
	})
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, err
}

func (r *branchRepo) FindByExternalMapping(_ context.Context, m models.BranchMapping) (*models.Branch, error) {
	var found *models.Branch
	err := r.v.do(func(d *data) error {
		for _, b := range d.branches {
			for _, bm := range b.ExternalMappings {
				if bm == m {
					found = cloneBranch(b)
					return nil
				}
			}
		}
		return storage.ErrNotFound
	})
	return found, err
}

func (r *branchRepo) Create(_ context.Context, b *models.Branch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return r.v.do(func(d *data) error {
		for _, existing := range d.branches {
			if existing.ID == b.ID || strings.EqualFold(existing.Name, b.Name) {
				return fmt.Errorf("failed to create branch %q: %w", b.Name, storage.ErrConflict)
			}
			for _, em := range existing.ExternalMappings {
				for _, m := range b.ExternalMappings {
					if em == m {
						return fmt.Errorf("failed to create branch mapping %+v: %w", m, storage.ErrConflict)
					}
				}
			}
		}
		b.CreatedAt = time.Now().UTC()
		d.branches[b.ID] = cloneBranch(b)
		return nil
	})
}

type userRepo struct{ v *view }

var _ storage.UserRepository = (*userRepo)(nil)

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	var found *models.User
	err := r.v.do(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return storage.ErrNotFound
		}
		c := *u
		found = &c
		return nil
	})
	return found, err
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	var found *models.User
	err := r.v.do(func(d *data) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, email) {
				c := *u
				found = &c
				return nil
			}
		}
		return storage.ErrNotFound
	})
	return found, err
}

func (r *userRepo) Create(_ context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return r.v.do(func(d *data) error {
		for _, existing := range d.users {
			if strings.EqualFold(existing.Email, u.Email) {
				return fmt.Errorf("failed to create user %s: %w", u.Email, storage.ErrDuplicateEmail)
			}
		}
		now := time.Now().UTC()
		u.CreatedAt, u.UpdatedAt = now, now
		c := *u
		d.users[u.ID] = &c
		return nil
	})
}

func (r *userRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.v.do(func(d *data) error {
		if _, ok := d.users[id]; !ok {
			return storage.ErrNotFound
		}
		for _, s := range d.students {
			if s.UserID == id {
				return fmt.Errorf("user %s still has a student profile: %w", id, storage.ErrConflict)
			}
		}
		delete(d.users, id)
		return nil
	})
}

type settingsRepo struct{ v *view }

var _ storage.SettingsRepository = (*settingsRepo)(nil)

func (r *settingsRepo) Get(_ context.Context) (*models.Settings, error) {
	var found models.Settings
	err := r.v.do(func(d *data) error {
		found = *d.settings
		return nil
	})
	return &found, err
}

func (r *settingsRepo) Save(_ context.Context, s *models.Settings) error {
	return r.v.do(func(d *data) error {
		s.UpdatedAt = time.Now().UTC()
		c := *s
		d.settings = &c
		return nil
	})
}
