package routes

import (
	"internship-portal/internal/api/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers the unauthenticated auth routes.
func RegisterAuthRoutes(rg *gin.RouterGroup, authHandler handlers.AuthHandlerInterface) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
	}
}
