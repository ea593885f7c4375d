package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chemifol/fieldops/internal/config"
	"github.com/chemifol/fieldops/pkg/clients/sheetsclient"
	"github.com/chemifol/fieldops/pkg/core/model"
	"github.com/chemifol/fieldops/pkg/core/services"
	"github.com/chemifol/fieldops/pkg/db"
	"github.com/chemifol/fieldops/pkg/postgres"
	"github.com/chemifol/fieldops/pkg/redisstore"
	"github.com/chemifol/fieldops/pkg/sheetssql"
	"github.com/chemifol/fieldops/pkg/xlsxstore"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env      string
	Cfg      *config.Config
	Database *db.DB
	Logger   *zap.Logger
	Ctx      context.Context
	// Actor is who the commands run as; empty until Login succeeds
	Actor model.Actor

	closers []func()
}

// Policy returns the roster credential policy from configuration
func (app *AppContext) Policy() services.RosterPolicy {
	return services.RosterPolicy{
		InitialPassword: app.Cfg.Roster.InitialPassword,
		BcryptCost:      app.Cfg.Roster.BcryptCost,
	}
}

// Now returns the current time in the configured timezone
func (app *AppContext) Now() time.Time {
	return time.Now().In(app.Cfg.Location())
}

// Login authenticates username and makes it the acting identity
func (app *AppContext) Login(username, password string) error {
	actor, err := services.Authenticate(app.Ctx, app.Database, app.Logger, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	app.Actor = actor
	app.Logger.Info("Logged in", zap.String("username", actor.Username), zap.String("role", string(actor.Role)))
	return nil
}

// Close releases the backend connection
func (app *AppContext) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}

// OpenDatabase connects to the backend selected in configuration
func (app *AppContext) OpenDatabase() error {
	store, closer, err := openStore(app.Ctx, app.Cfg, app.Env, app.Logger)
	if err != nil {
		return err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	app.Database = db.NewDB(store)
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, env string, logger *zap.Logger) (db.Store, func(), error) {
	logger.Info("Connecting to database", zap.String("backend", string(cfg.Backend)))

	switch cfg.Backend {
	case config.BackendSheets:
		oauthCfg, err := config.LoadOAuthClientWithEnv(env)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load OAuth client config: %w", err)
		}
		client, err := sheetsclient.NewClient(ctx, oauthCfg, env, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create sheets client: %w", err)
		}
		schema, err := sheetssql.SchemaFromModels(db.Models()...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database schema: %w", err)
		}
		logger.Debug("Database schema created", zap.Int("tables", len(schema.Tables)))
		store, err := sheetssql.NewDB(ctx, client, cfg.Sheets.DatabaseSheetID, schema)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return store, nil, nil

	case config.BackendPostgres:
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return nil, nil, err
		}
		store, err := postgres.NewDB(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.BackendRedis:
		store, err := redisstore.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	case config.BackendXLSX:
		schema, err := sheetssql.SchemaFromModels(db.Models()...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database schema: %w", err)
		}
		store, err := xlsxstore.Open(cfg.XLSX.Path, schema)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	case config.BackendMemory:
		logger.Warn("Using the in-memory backend; nothing outlives this process")
		return db.NewMemoryStore(), nil, nil
	}

	return nil, nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
}
