package routes_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"internship-portal/internal/api/handlers"
	"internship-portal/internal/models"
	"internship-portal/internal/reconcile"
	"internship-portal/internal/transport/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resumePDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("tpo@example.edu", models.RoleTPO)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"valid credentials", dto.LoginRequest{Email: "TPO@example.edu", Password: testPassword}, http.StatusOK, ""},
		{"wrong password", dto.LoginRequest{Email: "tpo@example.edu", Password: "nope"}, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"unknown email", dto.LoginRequest{Email: "ghost@example.edu", Password: testPassword}, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"invalid email", dto.LoginRequest{Email: "not-an-email", Password: testPassword}, http.StatusBadRequest, "INVALID_INPUT"},
		{"malformed body", "{", http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.doJSON(http.MethodPost, "/api/v1/auth/login", "", tt.body)
			requireStatus(t, w, tt.wantStatus)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decode[handlers.ErrorResponse](t, w).Code)
				return
			}
			resp := decode[dto.LoginResponse](t, w)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, models.RoleTPO, resp.Role)
			assert.Equal(t, int64(3600), resp.ExpiresIn)
		})
	}
}

func TestAuthorization(t *testing.T) {
	env := newTestEnv(t)
	_, studentToken := env.addStudent("21CS100")
	tpoToken := env.staff(models.RoleTPO)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"no token", http.MethodGet, "/api/v1/students/me/application", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"garbage token", http.MethodGet, "/api/v1/students/me/application", "garbage", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"student on admin route", http.MethodGet, "/api/v1/admin/settings", studentToken, http.StatusForbidden, "FORBIDDEN_ROLE"},
		{"tpo on admin route", http.MethodPost, "/api/v1/admin/full-reset", tpoToken, http.StatusForbidden, "FORBIDDEN_ROLE"},
		{"tpo on allocation", http.MethodPost, "/api/v1/students/" + uuid.NewString() + "/allocate", tpoToken, http.StatusForbidden, "FORBIDDEN_ROLE"},
		{"staff without profile", http.MethodGet, "/api/v1/students/me/application", tpoToken, http.StatusForbidden, "FORBIDDEN_ROLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.doJSON(tt.method, tt.path, tt.token, nil)
			requireStatus(t, w, tt.wantStatus)
			assert.Equal(t, tt.wantCode, decode[handlers.ErrorResponse](t, w).Code)
		})
	}

	t.Run("tpo sees the dashboard", func(t *testing.T) {
		w := env.doJSON(http.MethodGet, "/api/v1/admin/students", tpoToken, nil)
		requireStatus(t, w, http.StatusOK)
		assert.Len(t, decode[[]models.Student](t, w), 1)
	})
}

func TestApplicationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	student, studentToken := env.addStudent("21CS101")
	tpoToken := env.staff(models.RoleTPO)
	adminToken := env.staff(models.RoleAdmin)
	choices := []choiceField{{Priority: 1, CompanyID: env.acme.ID, DomainID: env.backend.ID, Location: "Pune"}}

	// submit
	body, contentType := multipartChoices(t, choices, map[int]string{1: resumePDF})
	w := env.do(http.MethodPost, "/api/v1/students/me/choices", studentToken, body, contentType)
	requireStatus(t, w, http.StatusCreated)
	view := decode[dto.ApplicationView](t, w)
	assert.Equal(t, models.ApprovalPendingReview, view.ApprovalStatus)
	require.Len(t, view.Choices, 1)
	assert.Equal(t, "Acme", view.Choices[0].CompanyName)
	require.True(t, strings.HasPrefix(view.Choices[0].ResumeURL, "/attachments/"), view.Choices[0].ResumeURL)

	// the stored resume is served back
	w = env.do(http.MethodGet, view.Choices[0].ResumeURL, "", nil, "")
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, resumePDF, w.Body.String())

	// one-shot
	body, contentType = multipartChoices(t, choices, map[int]string{1: resumePDF})
	w = env.do(http.MethodPost, "/api/v1/students/me/choices", studentToken, body, contentType)
	requireStatus(t, w, http.StatusConflict)
	assert.Equal(t, "ALREADY_SUBMITTED", decode[handlers.ErrorResponse](t, w).Code)

	// approve
	w = env.doJSON(http.MethodPost, "/api/v1/students/"+student.ID.String()+"/approve", tpoToken, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, models.ApprovalApprovedByTPO, decode[dto.ApplicationView](t, w).ApprovalStatus)

	// allocate
	w = env.doJSON(http.MethodPost, "/api/v1/students/"+student.ID.String()+"/allocate", adminToken,
		dto.AllocateRequest{CompanyID: env.acme.ID})
	requireStatus(t, w, http.StatusOK)
	view = decode[dto.ApplicationView](t, w)
	assert.Equal(t, models.AllocationAllocated, view.AllocationStatus)
	require.NotNil(t, view.AllocatedCompany)
	assert.Equal(t, "Acme", view.AllocatedCompany.Name)

	// the only seat is gone
	other, otherToken := env.addStudent("21CS102")
	body, contentType = multipartChoices(t, choices, map[int]string{1: resumePDF})
	requireStatus(t, env.do(http.MethodPost, "/api/v1/students/me/choices", otherToken, body, contentType), http.StatusCreated)
	w = env.doJSON(http.MethodPost, "/api/v1/students/"+other.ID.String()+"/allocate", adminToken,
		dto.AllocateRequest{CompanyID: env.acme.ID})
	requireStatus(t, w, http.StatusConflict)
	assert.Equal(t, "SEATS_FULL", decode[handlers.ErrorResponse](t, w).Code)

	// the student sees the outcome
	w = env.doJSON(http.MethodGet, "/api/v1/students/me/application", studentToken, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, models.AllocationAllocated, decode[dto.ApplicationView](t, w).AllocationStatus)

	// report
	w = env.doJSON(http.MethodGet, "/api/v1/admin/reports/allocations.csv?allocation_status=ALLOCATED", adminToken, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "21CS101,"), lines[1])

	// release the seat
	w = env.doJSON(http.MethodPost, "/api/v1/students/"+student.ID.String()+"/allocation/reject", adminToken,
		dto.RejectRequest{Reason: "offer withdrawn"})
	requireStatus(t, w, http.StatusOK)
	view = decode[dto.ApplicationView](t, w)
	assert.Equal(t, models.ApprovalRejected, view.ApprovalStatus)
	assert.Equal(t, "offer withdrawn", view.RejectionReason)
}

func TestSubmitChoices_Rejections(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.staff(models.RoleAdmin)
	choices := []choiceField{{Priority: 1, CompanyID: env.acme.ID, DomainID: env.backend.ID, Location: "Pune"}}

	t.Run("missing resume", func(t *testing.T) {
		_, token := env.addStudent("21CS110")
		body, contentType := multipartChoices(t, choices, nil)
		w := env.do(http.MethodPost, "/api/v1/students/me/choices", token, body, contentType)
		requireStatus(t, w, http.StatusBadRequest)
		resp := decode[handlers.ErrorResponse](t, w)
		assert.Equal(t, "VALIDATION", resp.Error)
		assert.Equal(t, "MISSING_ATTACHMENT", resp.Code)
		assert.Len(t, resp.Details, 1)
	})

	t.Run("not a pdf", func(t *testing.T) {
		_, token := env.addStudent("21CS111")
		body, contentType := multipartChoices(t, choices, map[int]string{1: "just some text"})
		w := env.do(http.MethodPost, "/api/v1/students/me/choices", token, body, contentType)
		requireStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, "INVALID_ATTACHMENT", decode[handlers.ErrorResponse](t, w).Code)
	})

	t.Run("choices not json", func(t *testing.T) {
		_, token := env.addStudent("21CS112")
		w := env.do(http.MethodPost, "/api/v1/students/me/choices", token,
			strings.NewReader("choices=oops"), "application/x-www-form-urlencoded")
		requireStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, "INVALID_INPUT", decode[handlers.ErrorResponse](t, w).Code)
	})

	t.Run("submissions closed", func(t *testing.T) {
		closed := false
		w := env.doJSON(http.MethodPut, "/api/v1/admin/settings", adminToken,
			dto.UpdateSettingsRequest{ChoiceSubmissionOpen: &closed})
		requireStatus(t, w, http.StatusOK)
		assert.False(t, decode[models.Settings](t, w).ChoiceSubmissionOpen)

		_, token := env.addStudent("21CS113")
		body, contentType := multipartChoices(t, choices, map[int]string{1: resumePDF})
		w = env.do(http.MethodPost, "/api/v1/students/me/choices", token, body, contentType)
		requireStatus(t, w, http.StatusConflict)
		assert.Equal(t, "SUBMISSIONS_CLOSED", decode[handlers.ErrorResponse](t, w).Code)
	})
}

func TestPreferredDomains(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addStudent("21CS120")

	w := env.doJSON(http.MethodPut, "/api/v1/students/me/preferred-domains", token,
		dto.UpdatePreferredDomainsRequest{DomainIDs: []uuid.UUID{uuid.New()}})
	requireStatus(t, w, http.StatusNotFound)
	assert.Equal(t, "DOMAIN_NOT_FOUND", decode[handlers.ErrorResponse](t, w).Code)

	w = env.doJSON(http.MethodPut, "/api/v1/students/me/preferred-domains", token,
		dto.UpdatePreferredDomainsRequest{DomainIDs: []uuid.UUID{}})
	requireStatus(t, w, http.StatusOK)
	assert.Empty(t, decode[dto.ApplicationView](t, w).PreferredDomains)
}

func TestStaffRoutes_BadPathID(t *testing.T) {
	env := newTestEnv(t)
	w := env.doJSON(http.MethodPost, "/api/v1/students/not-a-uuid/approve", env.staff(models.RoleTPO), nil)
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "INVALID_INPUT", decode[handlers.ErrorResponse](t, w).Code)

	w = env.doJSON(http.MethodPost, "/api/v1/students/"+uuid.NewString()+"/approve", env.staff(models.RoleTPO), nil)
	requireStatus(t, w, http.StatusNotFound)
	assert.Equal(t, "STUDENT_NOT_FOUND", decode[handlers.ErrorResponse](t, w).Code)
}

func TestBulkRegisterRoute(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.staff(models.RoleAdmin)

	w := env.doJSON(http.MethodPost, "/api/v1/admin/bulk/register", adminToken, dto.BulkRowsRequest{
		Rows: []map[string]string{
			{"Email": "neha@example.edu", "Roll No": "21CS130", "Name": "Neha"},
			{"Email": "", "Roll No": "21CS131", "Name": "No Email"},
		},
	})
	requireStatus(t, w, http.StatusOK)
	result := decode[reconcile.RegistrationResult](t, w)
	assert.Len(t, result.Created, 1)
	assert.Len(t, result.Failed, 1)

	w = env.doJSON(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "neha@example.edu", Password: "21CS130"})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, models.RoleStudent, decode[dto.LoginResponse](t, w).Role)
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.staff(models.RoleAdmin)
	_, studentToken := env.addStudent("21CS140")
	req := dto.CreateCompanyRequest{Name: "Globex", TotalSeats: 3, DomainTags: []uuid.UUID{env.backend.ID}}

	w := env.doJSON(http.MethodPost, "/api/v1/companies", studentToken, req)
	requireStatus(t, w, http.StatusForbidden)

	w = env.doJSON(http.MethodPost, "/api/v1/companies", adminToken, req)
	requireStatus(t, w, http.StatusCreated)
	created := decode[models.Company](t, w)
	assert.Equal(t, models.RecruitmentOpen, created.RecruitmentStatus)

	w = env.doJSON(http.MethodGet, "/api/v1/companies", studentToken, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[[]models.Company](t, w), 2)

	w = env.doJSON(http.MethodPatch, "/api/v1/companies/"+created.ID.String(), adminToken,
		map[string]any{"recruitment_status": "PAUSED"})
	requireStatus(t, w, http.StatusOK)

	w = env.doJSON(http.MethodGet, "/api/v1/companies?status=PAUSED", studentToken, nil)
	requireStatus(t, w, http.StatusOK)
	paused := decode[[]models.Company](t, w)
	require.Len(t, paused, 1)
	assert.Equal(t, created.ID, paused[0].ID)

	w = env.doJSON(http.MethodGet, "/api/v1/domains", studentToken, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[[]models.Domain](t, w), 1)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "probe-1")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "probe-1", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "ok", decode[map[string]any](t, w)["status"])

	w = env.do(http.MethodGet, "/metrics", "", nil, "")
	requireStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), "internship_http_requests_total")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
