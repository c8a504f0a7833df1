package routes

import (
	"internship-portal/internal/api/handlers"
	"internship-portal/internal/api/middleware"
	"internship-portal/internal/models"

	"github.com/gin-gonic/gin"
)

// RegisterAdminRoutes registers the admin-only routes under /admin.
func RegisterAdminRoutes(rg *gin.RouterGroup, adminHandler handlers.AdminHandlerInterface, authMiddleware gin.HandlerFunc) {
	admin := rg.Group("/admin")
	admin.Use(authMiddleware, middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/reset-choices", adminHandler.ResetChoices)
		admin.POST("/full-reset", adminHandler.FullReset)

		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings", adminHandler.UpdateSettings)
		admin.POST("/settings/reload", adminHandler.ReloadSettings)

		admin.POST("/bulk/register", adminHandler.BulkRegister)
		admin.POST("/bulk/domains", adminHandler.BulkReconcileDomains)

		admin.GET("/reports/allocations.csv", adminHandler.AllocationCSV)
	}

	// TPO staff need the dashboard too
	dashboard := rg.Group("/admin")
	dashboard.Use(authMiddleware, middleware.RequireRole(models.RoleTPO, models.RoleAdmin))
	{
		dashboard.GET("/students", adminHandler.ListStudents)
	}
}
