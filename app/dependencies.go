package app

import (
	"context"
	"fmt"

	"github.com/paintdesk/ai-engine/config"
	"github.com/paintdesk/ai-engine/middleware"
	"github.com/paintdesk/ai-engine/repositories"
	"github.com/paintdesk/ai-engine/repositories/postgres"
	"github.com/paintdesk/ai-engine/services/chat"
	"github.com/paintdesk/ai-engine/services/engine"
	"github.com/paintdesk/ai-engine/services/providers"
	"github.com/paintdesk/ai-engine/services/providers/claudecli"
	"github.com/paintdesk/ai-engine/services/providers/gemini"
	"github.com/paintdesk/ai-engine/services/providers/openai"
	"github.com/paintdesk/ai-engine/services/settings"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	Settings    repositories.SettingRepository
	Generations repositories.GenerationRepository

	// Services
	SettingsResolver *settings.Resolver
	ProviderRegistry *providers.Registry
	Engine           *engine.Engine
	ChatService      *chat.Service

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initServices(cfg)
	deps.AuthMiddleware = middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return err
	}
	d.DB = db

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))
	return nil
}

func (d *Dependencies) initRepositories() {
	d.Settings = postgres.NewSettingRepository(d.DB, d.Logger)
	d.Generations = postgres.NewGenerationRepository(d.DB, d.Logger)
	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices(cfg *config.Config) {
	d.SettingsResolver = settings.NewResolver(d.Settings, cfg.Engine.SettingsTTL, d.Logger)

	registry := providers.NewRegistry()
	adapters := []providers.Provider{
		openai.NewAdapter(openai.Config{
			BaseURL: cfg.Providers.OpenAIBaseURL,
			Timeout: cfg.Providers.HTTPTimeout,
		}, d.SettingsResolver, d.Logger),
		gemini.NewAdapter(gemini.Config{
			BaseURL: cfg.Providers.GeminiBaseURL,
			Timeout: cfg.Providers.HTTPTimeout,
		}, d.SettingsResolver, d.Logger),
		claudecli.NewAdapter(claudecli.Config{
			Binary:  cfg.Providers.ClaudeBinary,
			Timeout: cfg.Providers.HTTPTimeout,
		}, d.SettingsResolver, d.Logger),
	}
	for _, adapter := range adapters {
		if err := registry.Register(adapter); err != nil {
			// Registration only fails for unknown or duplicate IDs,
			// which would be a programming error here.
			d.Logger.Error("provider registration failed",
				zap.String("provider", string(adapter.ID())),
				zap.Error(err))
			continue
		}
		d.Logger.Info("provider registered", zap.String("provider", string(adapter.ID())))
	}
	d.ProviderRegistry = registry

	d.Engine = engine.New(registry, d.SettingsResolver, cfg.Engine.CallTimeout, d.Logger)
	d.ChatService = chat.NewService(d.Engine, nil, d.Generations, d.Logger)
	d.Logger.Info("services initialized")
}

// Close gracefully shuts down all dependencies.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
