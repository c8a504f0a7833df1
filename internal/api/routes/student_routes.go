package routes

import (
	"internship-portal/internal/api/handlers"
	"internship-portal/internal/api/middleware"
	"internship-portal/internal/models"

	"github.com/gin-gonic/gin"
)

// RegisterStudentRoutes registers the self-service routes under /students/me
// and the staff actions on /students/:id.
func RegisterStudentRoutes(rg *gin.RouterGroup, studentHandler handlers.StudentHandlerInterface, applicationHandler handlers.ApplicationHandlerInterface, authMiddleware gin.HandlerFunc) {
	students := rg.Group("/students")
	students.Use(authMiddleware)

	me := students.Group("/me", middleware.RequireRole(models.RoleStudent))
	{
		me.POST("/choices", studentHandler.SubmitChoices)
		me.PUT("/preferred-domains", studentHandler.UpdatePreferredDomains)
		me.GET("/application", studentHandler.GetMyApplication)
	}

	review := students.Group("/:id", middleware.RequireRole(models.RoleTPO, models.RoleAdmin))
	{
		review.GET("/application", applicationHandler.GetApplication)
		review.POST("/approve", applicationHandler.Approve)
		review.POST("/reject", applicationHandler.Reject)
	}

	allocation := students.Group("/:id", middleware.RequireRole(models.RoleAdmin))
	{
		allocation.POST("/allocate", applicationHandler.Allocate)
		allocation.POST("/reallocate", applicationHandler.Reallocate)
		allocation.POST("/allocation/reject", applicationHandler.RejectAllocation)
	}
}
