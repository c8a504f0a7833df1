package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"internship-portal/internal/attachments"
	"internship-portal/internal/logging"
	"internship-portal/internal/metrics"
	"internship-portal/internal/models"
	"internship-portal/internal/storage"
	"internship-portal/internal/transport/dto"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type choiceService struct {
	store       storage.Store
	attachments AttachmentStore
	settings    *SettingsService
	validate    *validator.Validate
}

// NewChoiceService creates a new instance of ChoiceService.
func NewChoiceService(store storage.Store, attachmentStore AttachmentStore, settings *SettingsService) ChoiceService {
	return &choiceService{
		store:       store,
		attachments: attachmentStore,
		settings:    settings,
		validate:    newValidator(),
	}
}

func (s *choiceService) StudentForUser(ctx context.Context, userID uuid.UUID) (*models.Student, error) {
	student, err := s.store.Repos().Students.GetByUserID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(ctx, err, "fetching student for user", ErrStudentNotFound)
	}
	return student, nil
}

// SubmitChoices validates and stores a student's one-shot choice submission.
// Checks run in a fixed order and the first failing stage rejects the whole
// submission; within the domain stage every violation is reported.
func (s *choiceService) SubmitChoices(ctx context.Context, req *dto.SubmitChoicesRequest) (*models.Student, error) {
	student, err := s.submitChoices(ctx, req)
	switch {
	case err == nil:
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	case Taxonomy(err) == "INTERNAL":
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeError).Inc()
	default:
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
	}
	return student, err
}

func (s *choiceService) submitChoices(ctx context.Context, req *dto.SubmitChoicesRequest) (*models.Student, error) {
	logger := logging.WithFields(ctx, "student_id", req.StudentID)
	repos := s.store.Repos()

	student, err := repos.Students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, mapRepoError(ctx, err, "fetching student for submission", ErrStudentNotFound)
	}
	if student.IsFormSubmitted {
		return nil, fmt.Errorf("%w: choices can only be submitted once", ErrAlreadySubmitted)
	}
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	if !s.settings.Current().ChoiceSubmissionOpen {
		return nil, fmt.Errorf("%w: choice submission is closed", ErrSubmissionsClosed)
	}

	companyIDs := make([]uuid.UUID, 0, len(req.Choices))
	for _, c := range req.Choices {
		companyIDs = append(companyIDs, c.CompanyID)
	}
	companies, err := repos.Companies.GetByIDs(ctx, companyIDs)
	if err != nil {
		return nil, mapRepoError(ctx, err, "fetching choice companies", ErrCompanyNotFound)
	}
	for _, c := range req.Choices {
		company, ok := companies[c.CompanyID]
		if !ok {
			return nil, fmt.Errorf("%w: company %s (priority %d)", ErrCompanyNotFound, c.CompanyID, c.Priority)
		}
		if !company.IsOpen() {
			return nil, fmt.Errorf("%w: %s is %s", ErrCompanyUnavailable, company.Name, company.RecruitmentStatus)
		}
	}

	if violations := checkChoiceDomains(student, req.Choices, companies); len(violations) > 0 {
		logger.Info("SubmitChoices: choices rejected", "violations", len(violations))
		return nil, newValidationError(ErrInvalidChoice, violations)
	}

	var missing []string
	for _, c := range req.Choices {
		if a, ok := req.Attachments[c.Priority]; !ok || a.Body == nil {
			missing = append(missing, fmt.Sprintf("resume for priority %d is missing", c.Priority))
		}
	}
	if len(missing) > 0 {
		return nil, newValidationError(ErrMissingAttachment, missing)
	}

	choices, stored, err := s.uploadResumes(ctx, req)
	if err != nil {
		return nil, err
	}

	var updated *models.Student
	err = s.store.RunInTx(ctx, func(tx storage.Repositories) error {
		locked, err := tx.Students.GetByIDForUpdate(ctx, req.StudentID)
		if err != nil {
			return mapRepoError(ctx, err, "locking student for submission", ErrStudentNotFound)
		}
		entries, err := locked.Submit(choices, time.Now().UTC())
		if err != nil {
			return mapStateError(err)
		}
		if err := tx.Students.Update(ctx, locked); err != nil {
			return mapRepoError(ctx, err, "saving submitted choices", ErrStudentNotFound)
		}
		if err := tx.Students.AppendHistory(ctx, locked.ID, entries); err != nil {
			return mapRepoError(ctx, err, "recording submission history", ErrStudentNotFound)
		}
		updated = locked
		return nil
	})
	if err != nil {
		s.discard(ctx, stored)
		return nil, err
	}

	logger.Info("SubmitChoices: choices submitted", "choices", len(choices))
	return updated, nil
}

// checkChoiceDomains collects every domain violation instead of stopping at the first.
func checkChoiceDomains(student *models.Student, choices []dto.ChoiceInput, companies map[uuid.UUID]*models.Company) []string {
	var violations []string
	for _, c := range choices {
		company := companies[c.CompanyID]
		if !company.HasDomain(c.DomainID) {
			violations = append(violations,
				fmt.Sprintf("priority %d: %s does not recruit for domain %s", c.Priority, company.Name, c.DomainID))
		}
		if !student.PrefersDomain(c.DomainID) {
			violations = append(violations,
				fmt.Sprintf("priority %d: domain %s is not one of your preferred domains", c.Priority, c.DomainID))
		}
		if len(company.AllowedBranches) > 0 && !branchAllowed(company, student.BranchID) {
			violations = append(violations,
				fmt.Sprintf("priority %d: %s does not recruit from your branch", c.Priority, company.Name))
		}
	}
	return violations
}

func branchAllowed(company *models.Company, branchID *uuid.UUID) bool {
	if branchID == nil {
		return false
	}
	for _, id := range company.AllowedBranches {
		if id == *branchID {
			return true
		}
	}
	return false
}

// uploadResumes stores one resume per choice, in priority order. If any upload
// fails, the ones already stored are deleted and nothing is persisted.
func (s *choiceService) uploadResumes(ctx context.Context, req *dto.SubmitChoicesRequest) ([]models.Choice, []string, error) {
	inputs := append([]dto.ChoiceInput(nil), req.Choices...)
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Priority < inputs[j].Priority })

	choices := make([]models.Choice, 0, len(inputs))
	stored := make([]string, 0, len(inputs))
	for _, in := range inputs {
		a := req.Attachments[in.Priority]
		saved, err := s.attachments.Save(ctx, attachments.File{Name: a.Filename, Body: a.Body})
		if err != nil {
			s.discard(ctx, stored)
			if errors.Is(err, attachments.ErrTooLarge) || errors.Is(err, attachments.ErrUnsupportedType) || errors.Is(err, attachments.ErrEmpty) {
				return nil, nil, newValidationError(ErrInvalidAttachment,
					[]string{fmt.Sprintf("resume for priority %d: %v", in.Priority, err)})
			}
			logging.FromContext(ctx).Error("SubmitChoices: resume upload failed",
				"student_id", req.StudentID, "priority", in.Priority, "error", err)
			return nil, nil, fmt.Errorf("failed to store resume for priority %d: %w", in.Priority, err)
		}
		stored = append(stored, saved.URL)
		choices = append(choices, models.Choice{
			Priority:  in.Priority,
			CompanyID: in.CompanyID,
			DomainID:  in.DomainID,
			Location:  in.Location,
			ResumeURL: saved.URL,
		})
	}
	return choices, stored, nil
}

func (s *choiceService) discard(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.attachments.Delete(ctx, url); err != nil {
			logging.FromContext(ctx).Warn("Failed to delete orphaned resume", "url", url, "error", err)
		}
	}
}

func (s *choiceService) UpdatePreferredDomains(ctx context.Context, req *dto.UpdatePreferredDomainsRequest) (*models.Student, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	if !s.settings.Current().PreferenceEditingOpen {
		return nil, fmt.Errorf("%w: preference editing is closed", ErrPreferencesLocked)
	}

	ids := make([]uuid.UUID, 0, len(req.DomainIDs))
	seen := make(map[uuid.UUID]bool, len(req.DomainIDs))
	for _, id := range req.DomainIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	var updated *models.Student
	err := s.store.RunInTx(ctx, func(tx storage.Repositories) error {
		student, err := tx.Students.GetByIDForUpdate(ctx, req.StudentID)
		if err != nil {
			return mapRepoError(ctx, err, "locking student for preference update", ErrStudentNotFound)
		}
		if student.IsFormSubmitted {
			return fmt.Errorf("%w: preferences cannot change after submission", ErrPreferencesLocked)
		}

		domains, err := tx.Domains.GetByIDs(ctx, ids)
		if err != nil {
			return mapRepoError(ctx, err, "fetching domains", ErrDomainNotFound)
		}
		var violations []string
		for _, id := range ids {
			d, ok := domains[id]
			if !ok || !d.Active {
				return fmt.Errorf("%w: %s", ErrDomainNotFound, id)
			}
			if student.BranchID != nil && !d.AppliesTo(*student.BranchID) {
				violations = append(violations, fmt.Sprintf("domain %q is not offered to your branch", d.Name))
			}
		}
		if len(violations) > 0 {
			return newValidationError(ErrInvalidInput, violations)
		}

		student.PreferredDomains = ids
		if err := tx.Students.Update(ctx, student); err != nil {
			return mapRepoError(ctx, err, "saving preferred domains", ErrStudentNotFound)
		}
		updated = student
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetApplication returns the application with company and domain names filled in.
func (s *choiceService) GetApplication(ctx context.Context, studentID uuid.UUID) (*dto.ApplicationView, error) {
	repos := s.store.Repos()
	student, err := repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return nil, mapRepoError(ctx, err, "fetching application", ErrStudentNotFound)
	}

	companyIDs := make([]uuid.UUID, 0, len(student.Choices)+1)
	domainIDs := append([]uuid.UUID(nil), student.PreferredDomains...)
	for _, c := range student.Choices {
		companyIDs = append(companyIDs, c.CompanyID)
		domainIDs = append(domainIDs, c.DomainID)
	}
	if student.AllocatedCompanyID != nil {
		companyIDs = append(companyIDs, *student.AllocatedCompanyID)
	}
	companies, err := repos.Companies.GetByIDs(ctx, companyIDs)
	if err != nil {
		return nil, mapRepoError(ctx, err, "populating companies", nil)
	}
	domains, err := repos.Domains.GetByIDs(ctx, domainIDs)
	if err != nil {
		return nil, mapRepoError(ctx, err, "populating domains", nil)
	}

	view := &dto.ApplicationView{
		StudentID:        student.ID,
		RollNumber:       student.RollNumber,
		Name:             student.Name,
		IsFormSubmitted:  student.IsFormSubmitted,
		ApprovalStatus:   student.ApprovalStatus,
		AllocationStatus: student.AllocationStatus(),
		RejectionReason:  student.RejectionReason,
		PreferredDomains: make([]dto.DomainRef, 0, len(student.PreferredDomains)),
		Choices:          make([]dto.ChoiceView, 0, len(student.Choices)),
		History:          student.History,
		UpdatedAt:        student.UpdatedAt,
	}
	if view.History == nil {
		view.History = []models.Transition{}
	}
	for _, id := range student.PreferredDomains {
		ref := dto.DomainRef{ID: id}
		if d, ok := domains[id]; ok {
			ref.Name = d.Name
		}
		view.PreferredDomains = append(view.PreferredDomains, ref)
	}
	for _, c := range student.Choices {
		cv := dto.ChoiceView{
			Priority:  c.Priority,
			CompanyID: c.CompanyID,
			DomainID:  c.DomainID,
			Location:  c.Location,
			ResumeURL: c.ResumeURL,
		}
		if co, ok := companies[c.CompanyID]; ok {
			cv.CompanyName = co.Name
		}
		if d, ok := domains[c.DomainID]; ok {
			cv.DomainName = d.Name
		}
		view.Choices = append(view.Choices, cv)
	}
	if id := student.AllocatedCompanyID; id != nil {
		ref := &dto.CompanyRef{ID: *id}
		if co, ok := companies[*id]; ok {
			ref.Name = co.Name
		}
		view.AllocatedCompany = ref
	}
	return view, nil
}
