package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/session"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		logger.Warnf("failed to open database at %v, falling back to in-memory store: %v", config.Database.Path, err)
		if db, err = shared.NewDatabase(":memory:"); err != nil {
			logger.Fatalf("failed to open in-memory database: %v", err)
		}
	}
	defer db.Close()
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	tokens := repositories.NewTokenRepository(db, logger)
	if err := tokens.Migrate(); err != nil {
		logger.Fatalf("failed to migrate database: %v", err)
	}

	httpClient := &http.Client{Timeout: time.Duration(config.API.TimeoutSeconds) * time.Second}
	apiService := services.NewAPIService(config.API.BaseURL, httpClient)
	sessionManager := session.NewManager(apiService, tokens, logger)

	runner := NewRunner(RunnerOpts{
		Config:  config,
		API:     apiService,
		Session: sessionManager,
		Tokens:  tokens,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "encore",
		Usage:    "Rate and review what you listen to, from the terminal",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			logger.Error("not authenticated, run 'encore login' first")
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}
