// Identity Core - multi-tenant user management and authentication service
//
// This is the main entry point for the Identity Core application. The
// service issues RS256 access tokens verifiable offline via JWKS, manages
// HS256 refresh tokens bound to revocable session rows, and exposes REST
// endpoints for registration, login, session rotation, and admin
// management of users and tenants.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/stonegate-io/identity-core/migrations"

	"github.com/stonegate-io/identity-core/internal/api"
	"github.com/stonegate-io/identity-core/internal/auth"
	"github.com/stonegate-io/identity-core/internal/infrastructure/config"
	"github.com/stonegate-io/identity-core/internal/infrastructure/database"
	"github.com/stonegate-io/identity-core/internal/infrastructure/logging"
	"github.com/stonegate-io/identity-core/internal/tenant"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Identity Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Load signing key material. A missing or unparsable key is fatal:
	// the service must never fall back to an ad-hoc generated key, or
	// every restart would silently invalidate all outstanding tokens.
	keys, err := auth.LoadKeys(cfg.Auth.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("loading signing keys: %w", err)
	}
	log.Info("signing keys loaded", "kid", keys.KeyID())

	// Wire the auth domain
	userRepo := auth.NewUserRepository(db.DB)
	sessionRepo := auth.NewSessionRepository(db.DB)
	tenantRepo := tenant.NewSQLiteRepository(db.DB)

	codec := auth.NewCodec(auth.CodecConfig{
		Keys:            keys,
		RefreshSecret:   []byte(cfg.Auth.RefreshSecret),
		Issuer:          cfg.Auth.Issuer,
		AccessTokenTTL:  cfg.Auth.AccessTokenLifetime(),
		RefreshTokenTTL: cfg.Auth.RefreshTokenLifetime(),
	})
	sessionManager := auth.NewManager(codec, sessionRepo, userRepo)

	// Seed the first admin on an empty database
	if _, seedErr := auth.SeedAdmin(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin: %w", seedErr)
	}

	// Clear out expired session rows from previous runs
	if removed, cleanErr := sessionRepo.DeleteExpired(ctx); cleanErr != nil {
		log.Warn("expired session cleanup failed", "error", cleanErr)
	} else if removed > 0 {
		log.Info("expired sessions removed", "count", removed)
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:   cfg.Server,
		Logger:   log,
		Sessions: sessionManager,
		Users:    userRepo,
		Tenants:  tenantRepo,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("Identity Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses IDENTITY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IDENTITY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
