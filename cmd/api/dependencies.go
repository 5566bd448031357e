package main

import (
	"fmt"
	"log/slog"
	"time"

	authrepo "github.com/findoc-labs/findoc-analyzer/internal/domain/auth/repository"
	authservice "github.com/findoc-labs/findoc-analyzer/internal/domain/auth/service"
	docrepo "github.com/findoc-labs/findoc-analyzer/internal/domain/documents/repository"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/documents/search"
	docservice "github.com/findoc-labs/findoc-analyzer/internal/domain/documents/service"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/qa"
	tplrepo "github.com/findoc-labs/findoc-analyzer/internal/domain/templates/repository"
	tplservice "github.com/findoc-labs/findoc-analyzer/internal/domain/templates/service"
	"github.com/findoc-labs/findoc-analyzer/internal/server"
	"github.com/findoc-labs/findoc-analyzer/pkg/config"
	"github.com/findoc-labs/findoc-analyzer/pkg/cron"
	"github.com/findoc-labs/findoc-analyzer/pkg/db"
	"github.com/findoc-labs/findoc-analyzer/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	UserRepo     authrepo.UserRepository
	TemplateRepo tplrepo.TemplateRepository
	DocumentRepo docrepo.DocumentRepository

	// Services
	TokenManager     *authservice.TokenManager
	AuthService      *authservice.AuthService
	TemplateService  *tplservice.Service
	DocumentService  *docservice.Service
	QAService        *qa.Service
	FileStorage      storage.Storage
	SearchIndex      *search.Index
	Scheduler        *cron.Scheduler

	// Handlers
	AuthHandler     *server.AuthHandler
	TemplateHandler *server.TemplateHandler
	DocumentHandler *server.DocumentHandler
	Metrics         *server.Metrics
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.UserRepo = authrepo.NewPostgresUserRepository(d.DB.Pool)
	d.TemplateRepo = tplrepo.NewPostgresTemplateRepository(d.DB.Pool)
	d.DocumentRepo = docrepo.NewPostgresDocumentRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	jwtSecret := []byte(d.Config.Auth.JWTSecret)
	if len(jwtSecret) == 0 {
		return fmt.Errorf("jwt secret is required")
	}

	d.TokenManager = authservice.NewTokenManager(jwtSecret, 1*time.Hour)
	d.AuthService = authservice.NewAuthService(d.UserRepo, d.TokenManager, d.Logger)

	d.TemplateService = tplservice.NewService(d.TemplateRepo, d.Logger)

	fileStorage, err := storage.NewLocalStorage(d.Config.Storage.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	index, err := search.NewIndex(d.Config.Search.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to init search index: %w", err)
	}
	d.SearchIndex = index

	d.DocumentService = docservice.NewService(d.DocumentRepo, d.FileStorage, d.SearchIndex, d.Logger)
	d.QAService = qa.NewService(d.DocumentRepo, qa.NewEngine(), d.Logger)

	d.Scheduler = cron.NewScheduler(d.DocumentService, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.Metrics = server.NewMetrics()
	d.AuthHandler = server.NewAuthHandler(d.AuthService, d.Logger)
	d.TemplateHandler = server.NewTemplateHandler(d.TemplateService, d.DocumentService, d.Logger)
	d.DocumentHandler = server.NewDocumentHandler(d.DocumentService, d.QAService, d.Config.Server.MaxUploadBytes, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.SearchIndex != nil {
		if err := d.SearchIndex.Close(); err != nil {
			d.Logger.Warn("failed to close search index", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
