// Package app wires configuration, storage and services into one container.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"internship-portal/config"
	"internship-portal/internal/attachments"
	"internship-portal/internal/auth"
	"internship-portal/internal/cache"
	"internship-portal/internal/database"
	"internship-portal/internal/lock"
	"internship-portal/internal/reconcile"
	"internship-portal/internal/services"
	"internship-portal/internal/storage"
	"internship-portal/internal/storage/memory"
	"internship-portal/internal/storage/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "internship-portal:lock:"

// Services groups the business services used by the handlers.
type Services struct {
	Auth       services.AuthService
	Choices    services.ChoiceService
	Review     services.ReviewService
	Allocation services.AllocationService
	Catalog    services.CatalogService
	Reports    services.ReportService
	Bulk       services.BulkService
	Settings   *services.SettingsService
}

// Application holds core application dependencies.
type Application struct {
	Config      *config.Config
	Store       storage.Store
	DBPool      *pgxpool.Pool // nil with the memory driver
	RedisClient *redis.Client // nil when redis is not configured
	Issuer      *auth.Issuer
	Attachments *attachments.FileStore
	Services    Services
}

// New connects to the configured backends and assembles the application.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	var (
		store storage.Store
		pool  *pgxpool.Pool
	)
	switch cfg.DB.Driver {
	case config.DriverMemory:
		slog.Warn("Using in-memory storage, data is lost on restart")
		store = memory.NewStore()
		if cfg.JWT.Secret == "" {
			secret, err := randomSecret()
			if err != nil {
				return nil, err
			}
			cfg.JWT.Secret = secret
			slog.Warn("jwt.secret not set, generated an ephemeral secret")
		}
	default:
		if err := database.Migrate(cfg.DB); err != nil {
			return nil, err
		}
		var err error
		pool, err = database.NewConnectionPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		store = postgres.NewStore(pool)
	}

	var (
		locker      lock.Locker
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		var err error
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, err
		}
		locker = lock.NewRedisLocker(redisClient, lockPrefix)
	} else {
		slog.Info("Redis not configured, bulk runs are serialised per process only")
		locker = lock.NewLocalLocker()
	}

	application, err := Assemble(ctx, cfg, store, locker)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if pool != nil {
			pool.Close()
		}
		return nil, err
	}
	application.DBPool = pool
	application.RedisClient = redisClient
	return application, nil
}

// Assemble builds the services on top of an already opened store.
func Assemble(ctx context.Context, cfg *config.Config, store storage.Store, locker lock.Locker) (*Application, error) {
	files, err := attachments.NewFileStore(cfg.Attachments.Dir, cfg.Attachments.BaseURL,
		cfg.Attachments.MaxBytes, cfg.Attachments.AllowedTypes)
	if err != nil {
		return nil, err
	}

	repos := store.Repos()
	catalog := cache.NewCatalog(repos.Domains, repos.Branches, cfg.Cache.Size, cfg.Cache.TTL)

	settings, err := services.NewSettingsService(ctx, repos.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	issuer := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)
	reconciler := reconcile.New(store, catalog)

	return &Application{
		Config:      cfg,
		Store:       store,
		Issuer:      issuer,
		Attachments: files,
		Services: Services{
			Auth:       services.NewAuthService(repos.Users, issuer),
			Choices:    services.NewChoiceService(store, files, settings),
			Review:     services.NewReviewService(store),
			Allocation: services.NewAllocationService(store),
			Catalog:    services.NewCatalogService(store, catalog),
			Reports:    services.NewReportService(store, catalog),
			Bulk:       services.NewBulkService(reconciler, locker, cfg.Bulk.LockTTL),
			Settings:   settings,
		},
	}, nil
}

// Close releases the backend connections.
func (a *Application) Close() {
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			slog.Warn("Failed to close redis client", "error", err)
		}
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
