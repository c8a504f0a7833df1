package services

import (
	"context"
	"fmt"
	"io"

	"internship-portal/internal/export"
	"internship-portal/internal/models"
	"internship-portal/internal/storage"
	"internship-portal/internal/transport/dto"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// exportPageSize bounds a single student query while building a report.
const exportPageSize = 500

type reportService struct {
	store    storage.Store
	catalog  Catalog
	validate *validator.Validate
}

// NewReportService creates a new instance of ReportService.
func NewReportService(store storage.Store, catalog Catalog) ReportService {
	return &reportService{store: store, catalog: catalog, validate: newValidator()}
}

func toFilter(req *dto.ListStudentsRequest) storage.StudentFilter {
	return storage.StudentFilter{
		AllocationStatus:   req.AllocationStatus,
		ApprovalStatus:     req.ApprovalStatus,
		BranchID:           req.BranchID,
		AllocatedCompanyID: req.AllocatedCompanyID,
		Limit:              req.Limit,
		Offset:             req.Offset,
	}
}

func (s *reportService) ListStudents(ctx context.Context, req *dto.ListStudentsRequest) ([]models.Student, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	students, err := s.store.Repos().Students.List(ctx, toFilter(req))
	if err != nil {
		return nil, mapRepoError(ctx, err, "listing students", nil)
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// AllocationReport resolves every matching student into a flat export row.
// Limit and Offset are ignored; the whole filtered set is reported.
func (s *reportService) AllocationReport(ctx context.Context, req *dto.ListStudentsRequest) ([]export.Row, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	repos := s.store.Repos()

	filter := toFilter(req)
	filter.Limit, filter.Offset = exportPageSize, 0
	var students []models.Student
	for {
		page, err := repos.Students.List(ctx, filter)
		if err != nil {
			return nil, mapRepoError(ctx, err, "listing students for report", nil)
		}
		students = append(students, page...)
		if len(page) < exportPageSize {
			break
		}
		filter.Offset += exportPageSize
	}

	companyIDs, domainIDs := referencedIDs(students)
	companies, err := repos.Companies.GetByIDs(ctx, companyIDs)
	if err != nil {
		return nil, mapRepoError(ctx, err, "populating report companies", nil)
	}
	domains, err := repos.Domains.GetByIDs(ctx, domainIDs)
	if err != nil {
		return nil, mapRepoError(ctx, err, "populating report domains", nil)
	}
	branches, err := s.catalog.Branches(ctx)
	if err != nil {
		return nil, mapRepoError(ctx, err, "populating report branches", nil)
	}
	branchNames := make(map[uuid.UUID]string, len(branches))
	for _, b := range branches {
		branchNames[b.ID] = b.Name
	}

	rows := make([]export.Row, 0, len(students))
	for _, st := range students {
		row := export.Row{
			RollNumber:       st.RollNumber,
			Name:             st.Name,
			Email:            st.Email,
			ApprovalStatus:   string(st.ApprovalStatus),
			AllocationStatus: string(st.AllocationStatus()),
		}
		if st.BranchID != nil {
			row.Branch = branchNames[*st.BranchID]
		}
		if st.AllocatedCompanyID != nil {
			if c, ok := companies[*st.AllocatedCompanyID]; ok {
				row.Company = c.Name
			}
		}
		for _, c := range st.Choices {
			var companyName, domainName string
			if co, ok := companies[c.CompanyID]; ok {
				companyName = co.Name
			}
			if d, ok := domains[c.DomainID]; ok {
				domainName = d.Name
			}
			row.Choices = append(row.Choices, export.FormatChoice(c.Priority, companyName, domainName, c.Location))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func referencedIDs(students []models.Student) (companies, domains []uuid.UUID) {
	seenCompany := make(map[uuid.UUID]bool)
	seenDomain := make(map[uuid.UUID]bool)
	addCompany := func(id uuid.UUID) {
		if !seenCompany[id] {
			seenCompany[id] = true
			companies = append(companies, id)
		}
	}
	for _, st := range students {
		if st.AllocatedCompanyID != nil {
			addCompany(*st.AllocatedCompanyID)
		}
		for _, c := range st.Choices {
			addCompany(c.CompanyID)
			if !seenDomain[c.DomainID] {
				seenDomain[c.DomainID] = true
				domains = append(domains, c.DomainID)
			}
		}
	}
	return companies, domains
}

func (s *reportService) WriteAllocationCSV(ctx context.Context, w io.Writer, req *dto.ListStudentsRequest) error {
	rows, err := s.AllocationReport(ctx, req)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(w, rows); err != nil {
		return fmt.Errorf("failed to render allocation report: %w", err)
	}
	return nil
}
