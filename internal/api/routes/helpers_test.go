package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"internship-portal/config"
	"internship-portal/internal/app"
	"internship-portal/internal/lock"
	"internship-portal/internal/models"
	"internship-portal/internal/server"
	"internship-portal/internal/storage/memory"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "s3cret-pass"

type testEnv struct {
	t      *testing.T
	ctx    context.Context
	app    *app.Application
	router *gin.Engine

	branch  models.Branch
	backend models.Domain
	acme    models.Company
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		DB:  config.DBConfig{Driver: config.DriverMemory},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "internship-portal-test", Expiration: time.Hour},
		Attachments: config.AttachmentsConfig{
			Dir:      t.TempDir(),
			BaseURL:  "/attachments/",
			MaxBytes: 1 << 20,
		},
		Cache: config.CacheConfig{Size: 16, TTL: time.Minute},
		Bulk:  config.BulkConfig{LockTTL: time.Minute},
	}

	ctx := context.Background()
	application, err := app.Assemble(ctx, cfg, memory.NewStore(), lock.NewLocalLocker())
	require.NoError(t, err)

	env := &testEnv{
		t:       t,
		ctx:     ctx,
		app:     application,
		router:  server.NewRouter(application),
		branch:  models.Branch{Name: "Computer Science", Code: "CSE"},
		backend: models.Domain{Name: "Backend Development", Active: true},
	}
	repos := application.Store.Repos()
	require.NoError(t, repos.Branches.Create(ctx, &env.branch))
	require.NoError(t, repos.Domains.Create(ctx, &env.backend))
	env.acme = models.Company{
		Name: "Acme", TotalSeats: 1, RecruitmentStatus: models.RecruitmentOpen,
		DomainTags: []uuid.UUID{env.backend.ID},
	}
	require.NoError(t, repos.Companies.Create(ctx, &env.acme))
	return env
}

// addUser creates a login with testPassword.
func (e *testEnv) addUser(email string, role models.Role) *models.User {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(e.t, err)
	u := &models.User{Email: email, PasswordHash: string(hash), Role: role}
	require.NoError(e.t, e.app.Store.Repos().Users.Create(e.ctx, u))
	return u
}

// addStudent creates a student user preferring the backend domain.
func (e *testEnv) addStudent(roll string) (*models.Student, string) {
	e.t.Helper()
	u := e.addUser(strings.ToLower(roll)+"@example.edu", models.RoleStudent)
	s := models.NewStudent()
	s.UserID = u.ID
	s.Name = "Student " + roll
	s.Email = u.Email
	s.RollNumber = roll
	s.BranchID = &e.branch.ID
	s.Participating = true
	s.PreferredDomains = []uuid.UUID{e.backend.ID}
	require.NoError(e.t, e.app.Store.Repos().Students.Create(e.ctx, s))
	return s, e.token(u)
}

// staff creates a tpo or admin user and returns its bearer token.
func (e *testEnv) staff(role models.Role) string {
	e.t.Helper()
	return e.token(e.addUser(fmt.Sprintf("%s-%s@example.edu", role, uuid.NewString()[:8]), role))
}

func (e *testEnv) token(u *models.User) string {
	e.t.Helper()
	token, err := e.app.Issuer.Issue(u.ID, u.Role)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(method, path, token string, payload any) *httptest.ResponseRecorder {
	e.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(e.t, err)
		body = bytes.NewReader(raw)
	}
	return e.do(method, path, token, body, "application/json")
}

type choiceField struct {
	Priority  int       `json:"priority"`
	CompanyID uuid.UUID `json:"company_id"`
	DomainID  uuid.UUID `json:"domain_id"`
	Location  string    `json:"location"`
}

// multipartChoices builds a submission body. resumes maps priority to file content.
func multipartChoices(t *testing.T, choices []choiceField, resumes map[int]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	raw, err := json.Marshal(choices)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("choices", string(raw)))

	for priority, content := range resumes {
		part, err := mw.CreateFormFile(fmt.Sprintf("resume_%d", priority), fmt.Sprintf("cv-%d.pdf", priority))
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}

