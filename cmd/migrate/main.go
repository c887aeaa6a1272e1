package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/harborlane/authcore/internal/config"
)

func main() {
	_ = godotenv.Load()

	var down bool
	flag.BoolVar(&down, "down", false, "roll back one migration instead of migrating up")
	flag.Parse()

	env := config.LoadEnv()
	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	m, err := migrate.New("file://migrations", cfg.Database.URL())
	if err != nil {
		slog.Error("Failed to initialize migrations", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	if down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("Migration failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Migrations applied")
}
