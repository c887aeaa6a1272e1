package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/harborlane/authcore/internal/cache"
	"github.com/harborlane/authcore/internal/config"
	"github.com/harborlane/authcore/internal/database"
	"github.com/harborlane/authcore/internal/domain/attempt"
	"github.com/harborlane/authcore/internal/domain/audit"
	"github.com/harborlane/authcore/internal/domain/auth"
	"github.com/harborlane/authcore/internal/domain/session"
	"github.com/harborlane/authcore/internal/domain/token"
	"github.com/harborlane/authcore/internal/idp"
	"github.com/harborlane/authcore/internal/migrations"
)

const sweepInterval = 15 * time.Minute

// Start wires the services and runs the HTTP server. provider is the
// external identity provider; the caller injects it so no process-wide
// state is involved.
func Start(ctx context.Context, cfg *config.Config, env *config.Environment, provider idp.Provider) error {
	InitLogger(cfg.Logging.Level)

	db, err := database.Connect(&cfg.Database)
	if err != nil {
		return err
	}
	slog.Info("Database connected successfully")

	if err := migrations.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Migrations completed successfully")

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.Connect(&cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	policy, err := token.PolicyFromString(cfg.Auth.Verification)
	if err != nil {
		return err
	}
	if policy == token.PolicyRelaxed && env.Environment == config.EnvironmentProduction {
		return fmt.Errorf("relaxed token verification is not allowed in production")
	}

	keyStore, err := loadKeyStore(cfg, env)
	if err != nil {
		return err
	}

	keySource, err := selectKeySource(ctx, cfg, policy, keyStore)
	if err != nil {
		return err
	}

	validator := token.NewValidator(keySource, policy, cfg.Auth.Issuer, cfg.Auth.Audience)
	issuer := token.NewIssuer(keyStore, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.AccessTTL.Std())

	auditSvc := audit.NewService(audit.NewRepository(db))

	var revocations *cache.RevocationCache
	var counter *cache.Counter
	if redisClient != nil {
		revocations = cache.NewRevocationCache(redisClient)
		counter = cache.NewCounter(redisClient)
	}

	strategy, err := session.ParseLimitStrategy(cfg.Sessions.LimitStrategy)
	if err != nil {
		return err
	}

	sessionSvc := session.NewService(session.NewRepository(db), session.Config{
		TTL:             cfg.Sessions.TTL.Std(),
		MaxRefreshCount: cfg.Sessions.MaxRefreshCount,
		MaxConcurrent:   cfg.Sessions.MaxConcurrent,
		Strategy:        strategy,
		BindFingerprint: cfg.Sessions.BindFingerprint,
		StepUpTTL:       cfg.Sessions.StepUpTTL.Std(),
	}, auditSvc, revocations)

	tracker := attempt.NewTracker(attempt.NewRepository(db), attempt.Config{
		Threshold:   cfg.Lockout.Threshold,
		Window:      cfg.Lockout.Window.Std(),
		IPThreshold: cfg.Lockout.IPThreshold,
	}, counter)

	authSvc := auth.NewService(provider, sessionSvc, tracker, issuer, auditSvc)

	go housekeeping(ctx, sessionSvc, tracker)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	SetupRoutes(app, auth.NewHandler(authSvc), auth.Middleware(validator, revocations), keyStore)

	addr := cfg.Server.Address()
	slog.Info("Server starting", "address", addr)
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// loadKeyStore loads signing keys from disk, generating an ephemeral key
// in development when none are configured
func loadKeyStore(cfg *config.Config, env *config.Environment) (*token.KeyStore, error) {
	if cfg.Auth.KeysPath != "" {
		return token.LoadKeys(cfg.Auth.KeysPath, cfg.Auth.ActiveKID)
	}
	if env.Environment == config.EnvironmentProduction {
		return nil, fmt.Errorf("signing keys are required in production")
	}
	slog.Warn("No signing keys configured, generating an ephemeral development key")
	return token.GenerateKeyStore("dev")
}

// selectKeySource picks where verification keys come from: the identity
// provider's JWKS endpoint under the strict policy, the local key store
// otherwise
func selectKeySource(ctx context.Context, cfg *config.Config, policy token.VerificationPolicy, keyStore *token.KeyStore) (token.KeySource, error) {
	if policy == token.PolicyStrict && cfg.Auth.JWKSURL != "" {
		return idp.NewJWKSKeys(ctx, cfg.Auth.JWKSURL)
	}
	return keyStore, nil
}

// housekeeping periodically sweeps expired sessions and prunes aged
// login attempts
func housekeeping(ctx context.Context, sessions session.Service, tracker *attempt.Tracker) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := sessions.SweepExpired(ctx); err != nil {
				slog.Warn("session sweep failed", "error", err)
			} else if n > 0 {
				slog.Debug("swept expired sessions", "count", n)
			}

			if n, err := tracker.Prune(ctx); err != nil {
				slog.Warn("attempt prune failed", "error", err)
			} else if n > 0 {
				slog.Debug("pruned expired login attempts", "count", n)
			}
		}
	}
}

// InitLogger configures the process-wide slog handler
func InitLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}
