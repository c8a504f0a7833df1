package routes

import (
	"context"
	"log/slog"
	"strings"

	"internship-portal/internal/api/handlers"
	"internship-portal/internal/api/middleware"
	"internship-portal/internal/app"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// RegisterRoutes sets up the API routes by calling resource-specific registration functions
func RegisterRoutes(router *gin.Engine, app *app.Application) {
	// --- Base API Group ---
	apiV1 := router.Group("/api/v1")

	// Create handlers
	svc := app.Services
	authHandler := handlers.NewAuthHandler(svc.Auth)
	studentHandler := handlers.NewStudentHandler(svc.Choices, maxSubmissionBytes(app.Config.Attachments.MaxBytes))
	applicationHandler := handlers.NewApplicationHandler(svc.Review, svc.Allocation, svc.Choices)
	adminHandler := handlers.NewAdminHandler(svc.Review, svc.Settings, svc.Bulk, svc.Reports)
	catalogHandler := handlers.NewCatalogHandler(svc.Catalog)

	// --- Middleware ---
	authMiddleware := middleware.JWTAuthMiddleware(app.Issuer)

	// --- Register Resource Routes ---
	RegisterAuthRoutes(apiV1, authHandler)
	RegisterStudentRoutes(apiV1, studentHandler, applicationHandler, authMiddleware)
	RegisterAdminRoutes(apiV1, adminHandler, authMiddleware)
	RegisterCatalogRoutes(apiV1, catalogHandler, authMiddleware)

	// --- Uploaded resumes ---
	if base := strings.TrimSuffix(app.Config.Attachments.BaseURL, "/"); strings.HasPrefix(base, "/") {
		router.Static(base, app.Attachments.Dir())
	}

	// --- Health Check and Metrics ---
	checks := map[string]handlers.Pinger{}
	if app.DBPool != nil {
		checks["database"] = app.DBPool
	}
	if app.RedisClient != nil {
		checks["redis"] = redisPinger{app.RedisClient}
	}
	router.GET("/health", handlers.NewHealthHandler(checks).HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	slog.Info("Routes registered", "routes", len(router.Routes()))
}

// maxSubmissionBytes allows one resume per priority plus the form fields.
func maxSubmissionBytes(perFile int64) int64 {
	return 4*perFile + 1<<20
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
