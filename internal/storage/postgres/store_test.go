package postgres_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"internship-portal/config"
	"internship-portal/internal/database"
	"internship-portal/internal/models"
	"internship-portal/internal/storage"
	"internship-portal/internal/storage/postgres"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupStore starts a PostgreSQL container, applies the migrations and
// returns a Store on top of it.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		tcpostgres.WithDatabase("internships_test"),
		tcpostgres.WithUsername("portal"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DBConfig{
		Driver:   config.DriverPostgres,
		Host:     host,
		Port:     port.Int(),
		User:     "portal",
		Password: "test-password",
		Name:     "internships_test",
		SSLMode:  "disable",
		MaxConns: 4,
	}
	require.NoError(t, database.Migrate(cfg))

	pool, err := database.NewConnectionPool(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return postgres.NewStore(pool)
}

type seed struct {
	branch  models.Branch
	backend models.Domain
	acme    models.Company
}

func seedCatalog(t *testing.T, ctx context.Context, repos storage.Repositories) seed {
	t.Helper()
	s := seed{
		branch: models.Branch{Name: "Computer Science", Code: "CSE", ExternalMappings: []models.BranchMapping{
			{ExternalBranchID: "CS", ExternalCollegeID: "C1", Year: 2025},
		}},
		backend: models.Domain{Name: "Backend Development", Active: true},
	}
	require.NoError(t, repos.Branches.Create(ctx, &s.branch))
	require.NoError(t, repos.Domains.Create(ctx, &s.backend))
	s.acme = models.Company{
		Name: "Acme", TotalSeats: 1, RecruitmentStatus: models.RecruitmentOpen,
		DomainTags: []uuid.UUID{s.backend.ID}, AllowedBranches: []uuid.UUID{s.branch.ID},
	}
	require.NoError(t, repos.Companies.Create(ctx, &s.acme))
	return s
}

func createStudent(t *testing.T, ctx context.Context, repos storage.Repositories, roll string, sd seed) *models.Student {
	t.Helper()
	u := &models.User{Email: strings.ToLower(roll) + "@example.edu", PasswordHash: "x", Role: models.RoleStudent}
	require.NoError(t, repos.Users.Create(ctx, u))
	s := models.NewStudent()
	s.UserID = u.ID
	s.Name = "Student " + roll
	s.Email = u.Email
	s.RollNumber = roll
	s.BranchID = &sd.branch.ID
	s.PreferredDomains = []uuid.UUID{sd.backend.ID}
	require.NoError(t, repos.Students.Create(ctx, s))
	return s
}

func TestPostgresStore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	repos := store.Repos()
	sd := seedCatalog(t, ctx, repos)

	t.Run("branch mapping lookup", func(t *testing.T) {
		got, err := repos.Branches.FindByExternalMapping(ctx, models.BranchMapping{ExternalBranchID: "CS", ExternalCollegeID: "C1", Year: 2025})
		require.NoError(t, err)
		assert.Equal(t, sd.branch.ID, got.ID)

		_, err = repos.Branches.FindByExternalMapping(ctx, models.BranchMapping{ExternalBranchID: "CS", ExternalCollegeID: "C1", Year: 2024})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("company tags round trip", func(t *testing.T) {
		got, err := repos.Companies.GetByID(ctx, sd.acme.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{sd.backend.ID}, got.DomainTags)
		assert.Equal(t, []uuid.UUID{sd.branch.ID}, got.AllowedBranches)
	})

	t.Run("application round trip", func(t *testing.T) {
		s := createStudent(t, ctx, repos, "21CS001", sd)
		now := time.Now().UTC().Truncate(time.Microsecond)

		err := store.RunInTx(ctx, func(tx storage.Repositories) error {
			locked, err := tx.Students.GetByIDForUpdate(ctx, s.ID)
			if err != nil {
				return err
			}
			pair, err := locked.Submit([]models.Choice{
				{Priority: 1, CompanyID: sd.acme.ID, DomainID: sd.backend.ID, Location: "Pune", ResumeURL: "/attachments/a.pdf"},
			}, now)
			if err != nil {
				return err
			}
			if err := tx.Students.Update(ctx, locked); err != nil {
				return err
			}
			return tx.Students.AppendHistory(ctx, s.ID, pair)
		})
		require.NoError(t, err)

		got, err := repos.Students.GetByID(ctx, s.ID)
		require.NoError(t, err)
		assert.True(t, got.IsFormSubmitted)
		assert.Equal(t, models.ApprovalPendingReview, got.ApprovalStatus)
		require.Len(t, got.Choices, 1)
		assert.Equal(t, "/attachments/a.pdf", got.Choices[0].ResumeURL)
		assert.Equal(t, []uuid.UUID{sd.backend.ID}, got.PreferredDomains)
		require.Len(t, got.History, 2)
		require.NotNil(t, got.History[0].OccurredAt)
		assert.WithinDuration(t, now, *got.History[0].OccurredAt, time.Millisecond)
		assert.Nil(t, got.History[1].OccurredAt)

		byUser, err := repos.Students.GetByUserID(ctx, s.UserID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, byUser.ID)
	})

	t.Run("duplicate identities", func(t *testing.T) {
		createStudent(t, ctx, repos, "21CS002", sd)

		u := &models.User{Email: "other@example.edu", PasswordHash: "x", Role: models.RoleStudent}
		require.NoError(t, repos.Users.Create(ctx, u))
		dup := models.NewStudent()
		dup.UserID = u.ID
		dup.Name = "Dup"
		dup.Email = "other@example.edu"
		dup.RollNumber = "21CS002"
		assert.ErrorIs(t, repos.Students.Create(ctx, dup), storage.ErrDuplicateRollNumber)

		dup.ID = uuid.Nil
		dup.RollNumber = "21CS999"
		dup.Email = "21cs002@example.edu"
		assert.ErrorIs(t, repos.Students.Create(ctx, dup), storage.ErrDuplicateEmail)
	})

	t.Run("seat increment is conditional", func(t *testing.T) {
		ok, err := repos.Companies.IncrementFilledSeats(ctx, sd.acme.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repos.Companies.IncrementFilledSeats(ctx, sd.acme.ID)
		require.NoError(t, err)
		assert.False(t, ok, "no headroom left")

		shrink := sd.acme
		shrink.TotalSeats = 1
		shrink.RecruitmentStatus = models.RecruitmentPaused
		require.NoError(t, repos.Companies.Update(ctx, &shrink))
		assert.Equal(t, 1, shrink.FilledSeats)

		require.NoError(t, repos.Companies.DecrementFilledSeats(ctx, sd.acme.ID))
		ok, err = repos.Companies.IncrementFilledSeats(ctx, sd.acme.ID)
		require.NoError(t, err)
		assert.False(t, ok, "paused companies take no seats")

		shrink.RecruitmentStatus = models.RecruitmentOpen
		require.NoError(t, repos.Companies.Update(ctx, &shrink))
	})

	t.Run("failed transaction leaves no trace", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.RunInTx(ctx, func(tx storage.Repositories) error {
			if _, err := tx.Companies.IncrementFilledSeats(ctx, sd.acme.ID); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := repos.Companies.GetByID(ctx, sd.acme.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.FilledSeats)
	})

	t.Run("reset applications", func(t *testing.T) {
		_, err := repos.Companies.IncrementFilledSeats(ctx, sd.acme.ID)
		require.NoError(t, err)

		var studentsReset, companiesReset int64
		err = store.RunInTx(ctx, func(tx storage.Repositories) error {
			var err error
			if studentsReset, err = tx.Students.ResetApplications(ctx, false); err != nil {
				return err
			}
			companiesReset, err = tx.Companies.ResetFilledSeats(ctx)
			return err
		})
		require.NoError(t, err)
		assert.Positive(t, studentsReset, "reset count is reported to the caller")
		assert.Positive(t, companiesReset)

		s, err := repos.Students.GetByRollNumber(ctx, "21CS001")
		require.NoError(t, err)
		assert.False(t, s.IsFormSubmitted)
		assert.Equal(t, models.ApprovalNotApplied, s.ApprovalStatus)
		assert.Empty(t, s.Choices)
		assert.Empty(t, s.History)
		assert.Equal(t, []uuid.UUID{sd.backend.ID}, s.PreferredDomains)

		c, err := repos.Companies.GetByID(ctx, sd.acme.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, c.FilledSeats)
	})

	t.Run("settings", func(t *testing.T) {
		got, err := repos.Settings.Get(ctx)
		require.NoError(t, err)
		assert.True(t, got.ChoiceSubmissionOpen)

		got.ChoiceSubmissionOpen = false
		require.NoError(t, repos.Settings.Save(ctx, got))
		again, err := repos.Settings.Get(ctx)
		require.NoError(t, err)
		assert.False(t, again.ChoiceSubmissionOpen)
	})
}
