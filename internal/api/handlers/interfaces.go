package handlers

import "github.com/gin-gonic/gin"

// AuthHandlerInterface defines the methods needed by the auth routes.
type AuthHandlerInterface interface {
	Login(c *gin.Context)
}

// StudentHandlerInterface defines the methods needed by the self-service student routes.
type StudentHandlerInterface interface {
	SubmitChoices(c *gin.Context)
	UpdatePreferredDomains(c *gin.Context)
	GetMyApplication(c *gin.Context)
}

// ApplicationHandlerInterface defines the methods needed by the staff application routes.
type ApplicationHandlerInterface interface {
	GetApplication(c *gin.Context)
	Approve(c *gin.Context)
	Reject(c *gin.Context)
	Allocate(c *gin.Context)
	Reallocate(c *gin.Context)
	RejectAllocation(c *gin.Context)
}

// AdminHandlerInterface defines the methods needed by the admin routes.
type AdminHandlerInterface interface {
	ResetChoices(c *gin.Context)
	FullReset(c *gin.Context)
	GetSettings(c *gin.Context)
	UpdateSettings(c *gin.Context)
	ReloadSettings(c *gin.Context)
	BulkRegister(c *gin.Context)
	BulkReconcileDomains(c *gin.Context)
	ListStudents(c *gin.Context)
	AllocationCSV(c *gin.Context)
}

// CatalogHandlerInterface defines the methods needed by the catalog routes.
type CatalogHandlerInterface interface {
	ListCompanies(c *gin.Context)
	CreateCompany(c *gin.Context)
	UpdateCompany(c *gin.Context)
	ListDomains(c *gin.Context)
	CreateDomain(c *gin.Context)
	ListBranches(c *gin.Context)
	CreateBranch(c *gin.Context)
}

// Ensure handlers implements the interface (compile-time check)
var (
	_ AuthHandlerInterface        = (*AuthHandler)(nil)
	_ StudentHandlerInterface     = (*StudentHandler)(nil)
	_ ApplicationHandlerInterface = (*ApplicationHandler)(nil)
	_ AdminHandlerInterface       = (*AdminHandler)(nil)
	_ CatalogHandlerInterface     = (*CatalogHandler)(nil)
)
