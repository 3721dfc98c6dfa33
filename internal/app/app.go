// Package app initializes and orchestrates the main components of the
// Prompt Warden application. It wires together the configuration, storage,
// gateway client, and HTTP server.
package app

import (
	"log/slog"

	"github.com/sevigo/prompt-warden/internal/config"
	"github.com/sevigo/prompt-warden/internal/db"
	"github.com/sevigo/prompt-warden/internal/server"
)

// App holds the main application components.
type App struct {
	cfg    *config.Config
	server *server.Server
	logger *slog.Logger
	dbConn *db.DB
}

// NewApp assembles the application from its already-constructed parts.
func NewApp(cfg *config.Config, dbConn *db.DB, srv *server.Server, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		server: srv,
		logger: logger,
		dbConn: dbConn,
	}
}

// Start runs the HTTP server.
func (a *App) Start() error {
	a.logger.Info("starting Prompt Warden",
		"server_port", a.cfg.Server.Port,
		"gateway_url", a.cfg.Gateway.BaseURL)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down Prompt Warden services")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.logger.Info("closing database connection")
	if err := a.dbConn.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}

	if serverErr != nil {
		return serverErr
	}

	a.logger.Info("Prompt Warden stopped successfully")
	return nil
}
