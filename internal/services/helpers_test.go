package services_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"internship-portal/internal/attachments"
	"internship-portal/internal/models"
	"internship-portal/internal/services"
	"internship-portal/internal/storage/memory"
	"internship-portal/internal/transport/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockAttachments is a testify mock of services.AttachmentStore.
type mockAttachments struct {
	mock.Mock
	accepting bool
}

func (m *mockAttachments) Save(ctx context.Context, f attachments.File) (*attachments.Stored, error) {
	args := m.Called(ctx, f)
	if fn, ok := args.Get(0).(func(context.Context, attachments.File) (*attachments.Stored, error)); ok {
		return fn(ctx, f)
	}
	stored, _ := args.Get(0).(*attachments.Stored)
	return stored, args.Error(1)
}

func (m *mockAttachments) Delete(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

// acceptAll makes every upload succeed with a URL derived from the filename.
func (m *mockAttachments) acceptAll() {
	if m.accepting {
		return
	}
	m.accepting = true
	m.On("Save", mock.Anything, mock.Anything).Return(func(_ context.Context, f attachments.File) (*attachments.Stored, error) {
		return &attachments.Stored{URL: "/attachments/" + f.Name, ContentType: "application/pdf"}, nil
	})
}

type fixture struct {
	ctx         context.Context
	store       *memory.Store
	settings    *services.SettingsService
	attachments *mockAttachments
	choices     services.ChoiceService
	review      services.ReviewService
	allocation  services.AllocationService

	branch  models.Branch
	backend models.Domain
	data    models.Domain
	acme    models.Company
	globex  models.Company
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repos()

	settings, err := services.NewSettingsService(ctx, repos.Settings)
	require.NoError(t, err)

	f := &fixture{
		ctx:         ctx,
		store:       store,
		settings:    settings,
		attachments: &mockAttachments{},
		branch:      models.Branch{Name: "Computer Science", Code: "CSE"},
		backend:     models.Domain{Name: "Backend Development", Active: true},
		data:        models.Domain{Name: "Data Science", Active: true},
	}
	require.NoError(t, repos.Branches.Create(ctx, &f.branch))
	require.NoError(t, repos.Domains.Create(ctx, &f.backend))
	require.NoError(t, repos.Domains.Create(ctx, &f.data))

	f.acme = f.addCompany(t, "Acme", 2, models.RecruitmentOpen, f.backend.ID, f.data.ID)
	f.globex = f.addCompany(t, "Globex", 2, models.RecruitmentOpen, f.backend.ID)

	f.choices = services.NewChoiceService(store, f.attachments, settings)
	f.review = services.NewReviewService(store)
	f.allocation = services.NewAllocationService(store)
	return f
}

func (f *fixture) addCompany(t *testing.T, name string, seats int, status models.RecruitmentStatus, domains ...uuid.UUID) models.Company {
	t.Helper()
	c := models.Company{Name: name, TotalSeats: seats, RecruitmentStatus: status, DomainTags: domains}
	require.NoError(t, f.store.Repos().Companies.Create(f.ctx, &c))
	return c
}

func (f *fixture) addStudent(t *testing.T, roll string, preferred ...uuid.UUID) *models.Student {
	t.Helper()
	s := models.NewStudent()
	s.Name = "Student " + roll
	s.RollNumber = roll
	s.Email = strings.ToLower(roll) + "@example.edu"
	s.BranchID = &f.branch.ID
	s.Participating = true
	s.PreferredDomains = preferred
	require.NoError(t, f.store.Repos().Students.Create(f.ctx, s))
	return s
}

func (f *fixture) student(t *testing.T, id uuid.UUID) *models.Student {
	t.Helper()
	s, err := f.store.Repos().Students.GetByID(f.ctx, id)
	require.NoError(t, err)
	return s
}

func (f *fixture) company(t *testing.T, id uuid.UUID) *models.Company {
	t.Helper()
	c, err := f.store.Repos().Companies.GetByID(f.ctx, id)
	require.NoError(t, err)
	return c
}

// submitRequest builds a request with one resume per choice.
func submitRequest(studentID uuid.UUID, choices ...dto.ChoiceInput) *dto.SubmitChoicesRequest {
	req := &dto.SubmitChoicesRequest{
		StudentID:   studentID,
		Choices:     choices,
		Attachments: make(map[int]dto.Attachment, len(choices)),
	}
	for _, c := range choices {
		req.Attachments[c.Priority] = dto.Attachment{
			Filename: fmt.Sprintf("resume-%d.pdf", c.Priority),
			Body:     strings.NewReader("%PDF-1.4 resume"),
		}
	}
	return req
}

func choice(priority int, company models.Company, domain models.Domain) dto.ChoiceInput {
	return dto.ChoiceInput{Priority: priority, CompanyID: company.ID, DomainID: domain.ID, Location: "Pune"}
}

// submitted creates a student who has already submitted choices for the given companies.
func (f *fixture) submitted(t *testing.T, roll string, companies ...models.Company) *models.Student {
	t.Helper()
	s := f.addStudent(t, roll, f.backend.ID)
	var inputs []dto.ChoiceInput
	for i, c := range companies {
		inputs = append(inputs, choice(i+1, c, f.backend))
	}
	f.attachments.acceptAll()
	out, err := f.choices.SubmitChoices(f.ctx, submitRequest(s.ID, inputs...))
	require.NoError(t, err)
	return out
}
