package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/beatm8/backbeat/internal/artist"
	"github.com/beatm8/backbeat/internal/config"
	"github.com/beatm8/backbeat/internal/database"
	"github.com/beatm8/backbeat/internal/logging"
	"github.com/beatm8/backbeat/internal/platform"
	"github.com/beatm8/backbeat/internal/platform/mixcloud"
	"github.com/beatm8/backbeat/internal/platform/spotify"
	"github.com/beatm8/backbeat/internal/sync"
)

// app wires configuration, logging, the store, and the platform clients
// together for one process.
type app struct {
	cfg        *config.Config
	logManager *logging.Manager
	logger     *slog.Logger
	db         *sql.DB
	artists    *artist.Service
	runner     *sync.Runner
	clients    []platform.Client
}

// newApp loads configuration, opens the store (running migrations), and
// constructs the enabled platform clients.
func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logManager.Close() //nolint:errcheck
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		logManager.Close() //nolint:errcheck
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	artists := artist.NewService(db)
	runner := sync.NewRunner(artists, sync.Config{
		FreshnessWindow: cfg.Sync.FreshnessWindow(),
		BatchSize:       cfg.Sync.BatchSize,
		BatchDelay:      cfg.Sync.BatchDelay(),
		SearchDelay:     cfg.Sync.SearchDelay(),
		LockDir:         cfg.Data.Dir,
	}, logger)

	limiter := platform.NewRateLimiterMap()
	var clients []platform.Client
	if cfg.Spotify.Enabled {
		clients = append(clients, spotify.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, limiter, logger))
	}
	if cfg.Mixcloud.Enabled {
		clients = append(clients, mixcloud.New(limiter, logger))
	}

	return &app{
		cfg:        cfg,
		logManager: logManager,
		logger:     logger,
		db:         db,
		artists:    artists,
		runner:     runner,
		clients:    clients,
	}, nil
}

// Close releases the store and log writer.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("closing database", "error", err)
	}
	a.logManager.Close() //nolint:errcheck
}
