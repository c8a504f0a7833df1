package models_test

import (
	"testing"
	"time"

	"internship-portal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

func submittedApp(t *testing.T, companies ...uuid.UUID) *models.Application {
	t.Helper()
	app := models.NewApplication()
	choices := make([]models.Choice, len(companies))
	for i, id := range companies {
		choices[i] = models.Choice{Priority: i + 1, CompanyID: id, DomainID: uuid.New(), Location: "Pune"}
	}
	_, err := app.Submit(choices, now)
	require.NoError(t, err)
	return &app
}

func TestProjectAllocation(t *testing.T) {
	tests := []struct {
		approval models.ApprovalStatus
		want     models.AllocationStatus
	}{
		{models.ApprovalNotApplied, models.AllocationNotApplied},
		{models.ApprovalSubmitted, models.AllocationNotAllocated},
		{models.ApprovalPendingReview, models.AllocationNotAllocated},
		{models.ApprovalApprovedByTPO, models.AllocationNotAllocated},
		{models.ApprovalNotAllocated, models.AllocationNotAllocated},
		{models.ApprovalAllocated, models.AllocationAllocated},
		{models.ApprovalRejectedByTPO, models.AllocationRejected},
		{models.ApprovalRejected, models.AllocationRejected},
	}
	for _, tt := range tests {
		t.Run(string(tt.approval), func(t *testing.T) {
			assert.Equal(t, tt.want, models.ProjectAllocation(tt.approval))
		})
	}
}

func TestApplication_Submit(t *testing.T) {
	acme := uuid.New()
	app := submittedApp(t, acme)

	assert.True(t, app.IsFormSubmitted)
	assert.Equal(t, models.ApprovalPendingReview, app.ApprovalStatus)
	require.Len(t, app.History, 2)
	assert.Equal(t, models.Transition{From: models.ApprovalNotApplied, To: models.ApprovalSubmitted, OccurredAt: &now}, app.History[0])
	assert.Equal(t, models.Transition{From: models.ApprovalSubmitted, To: models.ApprovalPendingReview}, app.History[1])

	_, err := app.Submit(nil, now)
	assert.ErrorIs(t, err, models.ErrFormAlreadySubmitted)
	assert.Len(t, app.History, 2)
}

func TestApplication_Approve(t *testing.T) {
	fresh := models.NewApplication()
	assert.ErrorIs(t, fresh.Approve(), models.ErrFormNotSubmitted)

	app := submittedApp(t, uuid.New())
	require.NoError(t, app.Approve())
	assert.Equal(t, models.ApprovalApprovedByTPO, app.ApprovalStatus)
	assert.Len(t, app.History, 2)
}

func TestApplication_Allocate(t *testing.T) {
	acme, globex := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		app     func(t *testing.T) *models.Application
		company uuid.UUID
		wantErr error
	}{
		{"from pending review", func(t *testing.T) *models.Application { return submittedApp(t, acme, globex) }, globex, nil},
		{"from approved", func(t *testing.T) *models.Application {
			a := submittedApp(t, acme)
			require.NoError(t, a.Approve())
			return a
		}, acme, nil},
		{"not among choices", func(t *testing.T) *models.Application { return submittedApp(t, acme) }, globex, models.ErrChoiceNotFound},
		{"no choices", func(t *testing.T) *models.Application { a := models.NewApplication(); return &a }, acme, models.ErrNoChoices},
		{"already allocated", func(t *testing.T) *models.Application {
			a := submittedApp(t, acme, globex)
			_, err := a.Allocate(acme, now)
			require.NoError(t, err)
			return a
		}, globex, models.ErrAlreadyAllocated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := tt.app(t)
			before := len(app.History)
			pair, err := app.Allocate(tt.company, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Len(t, app.History, before)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, app.AllocatedCompanyID)
			assert.Equal(t, tt.company, *app.AllocatedCompanyID)
			assert.Equal(t, models.AllocationAllocated, app.AllocationStatus())
			require.Len(t, pair, 2)
			assert.Equal(t, models.ApprovalApprovedByTPO, pair[0].To)
			assert.NotNil(t, pair[0].OccurredAt)
			assert.Equal(t, models.ApprovalAllocated, pair[1].To)
			assert.Nil(t, pair[1].OccurredAt)
		})
	}
}

func TestApplication_Reallocate(t *testing.T) {
	acme, globex := uuid.New(), uuid.New()

	pending := submittedApp(t, acme)
	_, _, err := pending.Reallocate(globex, now)
	assert.ErrorIs(t, err, models.ErrNotAllocated)

	app := submittedApp(t, acme)
	_, err = app.Allocate(acme, now)
	require.NoError(t, err)

	previous, pair, err := app.Reallocate(globex, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, acme, previous)
	assert.Equal(t, globex, *app.AllocatedCompanyID)
	assert.Equal(t, models.ApprovalAllocated, pair[0].From)
	assert.Len(t, app.History, 6)
}

func TestApplication_Reject(t *testing.T) {
	acme := uuid.New()

	t.Run("releases the held seat", func(t *testing.T) {
		app := submittedApp(t, acme)
		_, err := app.Allocate(acme, now)
		require.NoError(t, err)

		released, pair := app.Reject("no show", now)
		require.NotNil(t, released)
		assert.Equal(t, acme, *released)
		assert.Nil(t, app.AllocatedCompanyID)
		assert.Empty(t, app.Choices)
		assert.False(t, app.IsFormSubmitted)
		assert.Equal(t, "no show", app.RejectionReason)
		assert.Equal(t, models.AllocationRejected, app.AllocationStatus())
		assert.Equal(t, models.ApprovalRejectedByTPO, pair[0].To)
		assert.Equal(t, models.ApprovalRejected, pair[1].To)
	})

	t.Run("nothing held", func(t *testing.T) {
		app := submittedApp(t, acme)
		released, _ := app.Reject("incomplete", now)
		assert.Nil(t, released)
	})

	t.Run("resubmission clears the reason", func(t *testing.T) {
		app := submittedApp(t, acme)
		app.Reject("incomplete", now)
		_, err := app.Submit([]models.Choice{{Priority: 1, CompanyID: acme}}, now)
		require.NoError(t, err)
		assert.Empty(t, app.RejectionReason)
		assert.Len(t, app.History, 6)
	})
}

func TestStudent_ResetApplication(t *testing.T) {
	domain := uuid.New()
	s := models.NewStudent()
	s.PreferredDomains = []uuid.UUID{domain}
	_, err := s.Submit([]models.Choice{{Priority: 1, CompanyID: uuid.New()}}, now)
	require.NoError(t, err)

	s.ResetApplication(false)
	assert.Equal(t, models.NewApplication(), s.Application)
	assert.Equal(t, []uuid.UUID{domain}, s.PreferredDomains)

	s.ResetApplication(true)
	assert.Empty(t, s.PreferredDomains)
}

func TestDomain_AppliesTo(t *testing.T) {
	cse, ece := uuid.New(), uuid.New()
	open := models.Domain{Name: "Backend Development"}
	scoped := models.Domain{Name: "VLSI Design", BranchIDs: []uuid.UUID{ece}}

	assert.True(t, open.AppliesTo(cse))
	assert.True(t, scoped.AppliesTo(ece))
	assert.False(t, scoped.AppliesTo(cse))
}
