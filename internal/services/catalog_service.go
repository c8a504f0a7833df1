package services

import (
	"context"
	"fmt"
	"strings"

	"internship-portal/internal/logging"
	"internship-portal/internal/models"
	"internship-portal/internal/storage"
	"internship-portal/internal/transport/dto"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type catalogService struct {
	store    storage.Store
	catalog  Catalog
	validate *validator.Validate
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(store storage.Store, catalog Catalog) CatalogService {
	return &catalogService{store: store, catalog: catalog, validate: newValidator()}
}

// checkReferences verifies domain tags and allowed branches before a company write.
func checkReferences(ctx context.Context, repos storage.Repositories, domainIDs, branchIDs []uuid.UUID) error {
	if len(domainIDs) > 0 {
		domains, err := repos.Domains.GetByIDs(ctx, domainIDs)
		if err != nil {
			return mapRepoError(ctx, err, "fetching domain tags", ErrDomainNotFound)
		}
		for _, id := range domainIDs {
			if _, ok := domains[id]; !ok {
				return fmt.Errorf("%w: %s", ErrDomainNotFound, id)
			}
		}
	}
	for _, id := range branchIDs {
		if _, err := repos.Branches.GetByID(ctx, id); err != nil {
			return mapRepoError(ctx, err, "fetching allowed branch", ErrBranchNotFound)
		}
	}
	return nil
}

func (s *catalogService) CreateCompany(ctx context.Context, req *dto.CreateCompanyRequest) (*models.Company, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	if err := checkReferences(ctx, repos, req.DomainTags, req.AllowedBranches); err != nil {
		return nil, err
	}

	status := req.RecruitmentStatus
	if status == "" {
		status = models.RecruitmentOpen
	}
	company := &models.Company{
		ID:                uuid.New(),
		Name:              strings.TrimSpace(req.Name),
		TotalSeats:        req.TotalSeats,
		RecruitmentStatus: status,
		DomainTags:        req.DomainTags,
		AllowedBranches:   req.AllowedBranches,
	}
	if err := repos.Companies.Create(ctx, company); err != nil {
		return nil, mapRepoError(ctx, err, "creating company", nil)
	}
	logging.FromContext(ctx).Info("CreateCompany: company created", "company_id", company.ID, "seats", company.TotalSeats)
	return company, nil
}

// UpdateCompany applies the fields that are set. Seat capacity may not drop
// below the seats already filled.
func (s *catalogService) UpdateCompany(ctx context.Context, req *dto.UpdateCompanyRequest) (*models.Company, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	var updated *models.Company
	err := s.store.RunInTx(ctx, func(tx storage.Repositories) error {
		company, err := tx.Companies.GetByID(ctx, req.ID)
		if err != nil {
			return mapRepoError(ctx, err, "fetching company for update", ErrCompanyNotFound)
		}
		if req.Name != nil {
			company.Name = strings.TrimSpace(*req.Name)
		}
		if req.TotalSeats != nil {
			if *req.TotalSeats < company.FilledSeats {
				return fmt.Errorf("%w: total seats %d is below the %d seats already filled",
					ErrConflict, *req.TotalSeats, company.FilledSeats)
			}
			company.TotalSeats = *req.TotalSeats
		}
		if req.RecruitmentStatus != nil {
			company.RecruitmentStatus = *req.RecruitmentStatus
		}
		if req.DomainTags != nil {
			company.DomainTags = *req.DomainTags
		}
		if req.AllowedBranches != nil {
			company.AllowedBranches = *req.AllowedBranches
		}
		if err := checkReferences(ctx, tx, company.DomainTags, company.AllowedBranches); err != nil {
			return err
		}
		if err := tx.Companies.Update(ctx, company); err != nil {
			return mapRepoError(ctx, err, "updating company", ErrCompanyNotFound)
		}
		updated = company
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *catalogService) ListCompanies(ctx context.Context, req *dto.ListCompaniesRequest) ([]models.Company, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	companies, err := s.store.Repos().Companies.List(ctx, req.Status)
	if err != nil {
		return nil, mapRepoError(ctx, err, "listing companies", nil)
	}
	return companies, nil
}

func (s *catalogService) CreateDomain(ctx context.Context, req *dto.CreateDomainRequest) (*models.Domain, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	for _, id := range req.BranchIDs {
		if _, err := repos.Branches.GetByID(ctx, id); err != nil {
			return nil, mapRepoError(ctx, err, "fetching domain branch", ErrBranchNotFound)
		}
	}
	domain := &models.Domain{
		ID:        uuid.New(),
		Name:      strings.Join(strings.Fields(req.Name), " "),
		Active:    req.Active == nil || *req.Active,
		BranchIDs: req.BranchIDs,
	}
	if err := repos.Domains.Create(ctx, domain); err != nil {
		return nil, mapRepoError(ctx, err, "creating domain", nil)
	}
	s.catalog.Invalidate()
	return domain, nil
}

func (s *catalogService) ListDomains(ctx context.Context) ([]models.Domain, error) {
	domains, err := s.catalog.Domains(ctx, false)
	if err != nil {
		return nil, mapRepoError(ctx, err, "listing domains", nil)
	}
	return domains, nil
}

func (s *catalogService) CreateBranch(ctx context.Context, req *dto.CreateBranchRequest) (*models.Branch, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	branch := &models.Branch{
		ID:   uuid.New(),
		Name: strings.TrimSpace(req.Name),
		Code: strings.ToUpper(strings.TrimSpace(req.Code)),
	}
	for _, m := range req.ExternalMappings {
		branch.ExternalMappings = append(branch.ExternalMappings, models.BranchMapping{
			ExternalBranchID:  strings.TrimSpace(m.ExternalBranchID),
			ExternalCollegeID: strings.TrimSpace(m.ExternalCollegeID),
			Year:              m.Year,
		})
	}
	if err := s.store.Repos().Branches.Create(ctx, branch); err != nil {
		return nil, mapRepoError(ctx, err, "creating branch", nil)
	}
	s.catalog.Invalidate()
	return branch, nil
}

func (s *catalogService) ListBranches(ctx context.Context) ([]models.Branch, error) {
	branches, err := s.catalog.Branches(ctx)
	if err != nil {
		return nil, mapRepoError(ctx, err, "listing branches", nil)
	}
	return branches, nil
}
