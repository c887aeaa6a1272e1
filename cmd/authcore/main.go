package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/harborlane/authcore/internal/config"
	"github.com/harborlane/authcore/internal/idp"
	"github.com/harborlane/authcore/internal/server"
)

func main() {
	_ = godotenv.Load()

	env := config.LoadEnv()

	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	provider, err := buildProvider(env)
	if err != nil {
		slog.Error("Failed to build identity provider", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, cfg, env, provider); err != nil {
		slog.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

// buildProvider wires the identity provider boundary. The file-backed
// provider serves development; production deployments supply a real
// provider adapter and must not fall back to the static file.
func buildProvider(env *config.Environment) (idp.Provider, error) {
	path := os.Getenv("IDENTITIES_PATH")
	if path == "" {
		path = "identities.yaml"
	}

	if env.Environment == config.EnvironmentProduction {
		slog.Warn("Using file-backed identity provider in production configuration")
	}

	return idp.LoadStatic(path)
}
