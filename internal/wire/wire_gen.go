// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/sevigo/prompt-warden/internal/app"
	"github.com/sevigo/prompt-warden/internal/config"
	"github.com/sevigo/prompt-warden/internal/db"
	"github.com/sevigo/prompt-warden/internal/storage"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(_ context.Context) (*app.App, func(), error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	loggerConfig := provideLoggerConfig(cfg)
	logWriter := provideLogWriter(cfg)
	slogLogger := provideSlogLogger(loggerConfig, logWriter)

	// Database
	dbConfig := provideDBConfig(cfg)
	dbConn, dbCleanup, err := db.NewDatabase(dbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Storage
	store := storage.NewStore(dbConn.DB)

	// Gateway client
	gw := provideGateway(cfg)

	// Services
	prompts := providePromptService(store, slogLogger)
	mergeRequests := provideMergeRequestService(store, slogLogger)
	executor := provideExecutor(cfg, store, gw, slogLogger)
	analytics := provideAnalytics(store, slogLogger)

	// HTTP layer
	router := provideRouter(prompts, mergeRequests, executor, analytics, gw, slogLogger)
	srv := provideServer(cfg, router, slogLogger)

	// App
	application := app.NewApp(cfg, dbConn, srv, slogLogger)

	cleanup := func() {
		dbCleanup()
	}

	return application, cleanup, nil
}
