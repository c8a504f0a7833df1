package handlers

import (
	"net/http"

	"internship-portal/internal/services"
	"internship-portal/internal/transport/dto"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves companies, domains and branches.
type CatalogHandler struct {
	catalog services.CatalogService
}

func NewCatalogHandler(catalog services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListCompanies godoc
// @Summary      List companies
// @Tags         catalog
// @Produce      json
// @Param        status query string false "OPEN, CLOSED or PAUSED"
// @Success      200  {array}   models.Company
// @Router       /companies [get]
func (h *CatalogHandler) ListCompanies(c *gin.Context) {
	var req dto.ListCompaniesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query: "+err.Error())
		return
	}
	companies, err := h.catalog.ListCompanies(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

// CreateCompany godoc
// @Summary      Create a company
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        company body dto.CreateCompanyRequest true "Company"
// @Success      201  {object}  models.Company
// @Failure      400  {object}  ErrorResponse
// @Router       /companies [post]
func (h *CatalogHandler) CreateCompany(c *gin.Context) {
	var req dto.CreateCompanyRequest
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.catalog.CreateCompany(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

// UpdateCompany godoc
// @Summary      Update a company
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        id      path string                   true "Company ID" Format(uuid)
// @Param        company body dto.UpdateCompanyRequest true "Fields to change"
// @Success      200  {object}  models.Company
// @Failure      409  {object}  ErrorResponse "Seats below filled seats"
// @Router       /companies/{id} [patch]
func (h *CatalogHandler) UpdateCompany(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCompanyRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ID = id
	company, err := h.catalog.UpdateCompany(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

// ListDomains godoc
// @Summary      List domains
// @Tags         catalog
// @Produce      json
// @Success      200  {array}   models.Domain
// @Router       /domains [get]
func (h *CatalogHandler) ListDomains(c *gin.Context) {
	domains, err := h.catalog.ListDomains(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domains)
}

// CreateDomain godoc
// @Summary      Create a domain
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        domain body dto.CreateDomainRequest true "Domain"
// @Success      201  {object}  models.Domain
// @Router       /domains [post]
func (h *CatalogHandler) CreateDomain(c *gin.Context) {
	var req dto.CreateDomainRequest
	if !bindJSON(c, &req) {
		return
	}
	domain, err := h.catalog.CreateDomain(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, domain)
}

// ListBranches godoc
// @Summary      List branches
// @Tags         catalog
// @Produce      json
// @Success      200  {array}   models.Branch
// @Router       /branches [get]
func (h *CatalogHandler) ListBranches(c *gin.Context) {
	branches, err := h.catalog.ListBranches(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, branches)
}

// CreateBranch godoc
// @Summary      Create a branch
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        branch body dto.CreateBranchRequest true "Branch"
// @Success      201  {object}  models.Branch
// @Router       /branches [post]
func (h *CatalogHandler) CreateBranch(c *gin.Context) {
	var req dto.CreateBranchRequest
	if !bindJSON(c, &req) {
		return
	}
	branch, err := h.catalog.CreateBranch(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, branch)
}
