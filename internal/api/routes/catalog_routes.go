package routes

import (
	"internship-portal/internal/api/handlers"
	"internship-portal/internal/api/middleware"
	"internship-portal/internal/models"

	"github.com/gin-gonic/gin"
)

// RegisterCatalogRoutes registers companies, domains and branches. Any
// authenticated user may read; only admins may write.
func RegisterCatalogRoutes(rg *gin.RouterGroup, catalogHandler handlers.CatalogHandlerInterface, authMiddleware gin.HandlerFunc) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	companies := rg.Group("/companies", authMiddleware)
	{
		companies.GET("", catalogHandler.ListCompanies)
		companies.POST("", adminOnly, catalogHandler.CreateCompany)
		companies.PATCH("/:id", adminOnly, catalogHandler.UpdateCompany)
	}

	domains := rg.Group("/domains", authMiddleware)
	{
		domains.GET("", catalogHandler.ListDomains)
		domains.POST("", adminOnly, catalogHandler.CreateDomain)
	}

	branches := rg.Group("/branches", authMiddleware)
	{
		branches.GET("", catalogHandler.ListBranches)
		branches.POST("", adminOnly, catalogHandler.CreateBranch)
	}
}
