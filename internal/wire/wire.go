//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sevigo/prompt-warden/internal/app"
	"github.com/sevigo/prompt-warden/internal/config"
	"github.com/sevigo/prompt-warden/internal/db"
	"github.com/sevigo/prompt-warden/internal/storage"
)

func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(
		app.NewApp,
		config.LoadConfig,
		db.NewDatabase,
		storage.NewStore,
		provideGateway,
		providePromptService,
		provideMergeRequestService,
		provideExecutor,
		provideAnalytics,
		provideRouter,
		provideServer,
		provideLoggerConfig,
		provideLogWriter,
		provideDBConfig,
		provideSlogLogger,
	)
	return &app.App{}, nil, nil
}
