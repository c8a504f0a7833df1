package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"internship-portal/internal/reconcile"
	"internship-portal/internal/services"
	"internship-portal/internal/transport/dto"

	"github.com/gin-gonic/gin"
)

// maxBulkRows bounds a single bulk request.
const maxBulkRows = 5000

// AdminHandler serves resets, portal settings, bulk pipelines and reports.
type AdminHandler struct {
	review   services.ReviewService
	settings *services.SettingsService
	bulk     services.BulkService
	reports  services.ReportService
}

func NewAdminHandler(review services.ReviewService, settings *services.SettingsService, bulk services.BulkService, reports services.ReportService) *AdminHandler {
	return &AdminHandler{review: review, settings: settings, bulk: bulk, reports: reports}
}

// ResetChoices godoc
// @Summary      Reset every application
// @Description  Clears choices, approvals and allocations. Preferred domains survive.
// @Tags         admin
// @Produce      json
// @Success      200  {object}  dto.ResetSummary
// @Router       /admin/reset-choices [post]
func (h *AdminHandler) ResetChoices(c *gin.Context) {
	summary, err := h.review.ResetChoices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// FullReset godoc
// @Summary      Reset every application and preferred domains
// @Tags         admin
// @Produce      json
// @Success      200  {object}  dto.ResetSummary
// @Router       /admin/full-reset [post]
func (h *AdminHandler) FullReset(c *gin.Context) {
	summary, err := h.review.FullReset(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetSettings godoc
// @Summary      Current portal settings
// @Tags         admin
// @Produce      json
// @Success      200  {object}  models.Settings
// @Router       /admin/settings [get]
func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Current())
}

// UpdateSettings godoc
// @Summary      Update portal settings
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body body dto.UpdateSettingsRequest true "Flags to change"
// @Success      200  {object}  models.Settings
// @Router       /admin/settings [put]
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.settings.Update(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ReloadSettings godoc
// @Summary      Reload settings from storage
// @Tags         admin
// @Produce      json
// @Success      200  {object}  models.Settings
// @Router       /admin/settings/reload [post]
func (h *AdminHandler) ReloadSettings(c *gin.Context) {
	current, err := h.settings.Reload(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

// BulkRegister godoc
// @Summary      Bulk register students
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body body dto.BulkRowsRequest true "Spreadsheet rows"
// @Success      200  {object}  reconcile.RegistrationResult
// @Failure      409  {object}  ErrorResponse "Another run is in progress"
// @Router       /admin/bulk/register [post]
func (h *AdminHandler) BulkRegister(c *gin.Context) {
	rows, ok := bindRows(c)
	if !ok {
		return
	}
	result, err := h.bulk.BulkRegister(c.Request.Context(), rows)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BulkReconcileDomains godoc
// @Summary      Bulk reconcile preferred domains
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body body dto.BulkRowsRequest true "Spreadsheet rows"
// @Success      200  {object}  reconcile.DomainResult
// @Router       /admin/bulk/domains [post]
func (h *AdminHandler) BulkReconcileDomains(c *gin.Context) {
	rows, ok := bindRows(c)
	if !ok {
		return
	}
	result, err := h.bulk.BulkReconcileDomains(c.Request.Context(), rows)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func bindRows(c *gin.Context) ([]reconcile.RawRow, bool) {
	var req dto.BulkRowsRequest
	if !bindJSON(c, &req) {
		return nil, false
	}
	if len(req.Rows) > maxBulkRows {
		badRequest(c, fmt.Sprintf("at most %d rows per request", maxBulkRows))
		return nil, false
	}
	rows := make([]reconcile.RawRow, len(req.Rows))
	for i, r := range req.Rows {
		rows[i] = reconcile.RawRow(r)
	}
	return rows, true
}

// ListStudents godoc
// @Summary      List students
// @Tags         admin
// @Produce      json
// @Param        allocation_status query string false "NOT_APPLIED, ALLOCATED, REJECTED or NOT_ALLOCATED"
// @Param        branch_id         query string false "Branch ID" Format(uuid)
// @Param        company_id        query string false "Allocated company ID" Format(uuid)
// @Param        limit             query int    false "Page size"
// @Param        offset            query int    false "Page offset"
// @Success      200  {array}   models.Student
// @Router       /admin/students [get]
func (h *AdminHandler) ListStudents(c *gin.Context) {
	req, ok := bindStudentFilter(c)
	if !ok {
		return
	}
	students, err := h.reports.ListStudents(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

// AllocationCSV godoc
// @Summary      Download the allocation report
// @Tags         admin
// @Produce      text/csv
// @Success      200  {string}  string "CSV file"
// @Router       /admin/reports/allocations.csv [get]
func (h *AdminHandler) AllocationCSV(c *gin.Context) {
	req, ok := bindStudentFilter(c)
	if !ok {
		return
	}
	// buffered so a failure can still be answered with a JSON error
	var buf bytes.Buffer
	if err := h.reports.WriteAllocationCSV(c.Request.Context(), &buf, req); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("allocations-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func bindStudentFilter(c *gin.Context) (*dto.ListStudentsRequest, bool) {
	var req dto.ListStudentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query: "+err.Error())
		return nil, false
	}
	var ok bool
	if req.BranchID, ok = queryUUID(c, "branch_id"); !ok {
		return nil, false
	}
	if req.AllocatedCompanyID, ok = queryUUID(c, "company_id"); !ok {
		return nil, false
	}
	return &req, true
}
