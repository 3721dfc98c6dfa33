package wire

import (
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/sevigo/prompt-warden/internal/config"
	"github.com/sevigo/prompt-warden/internal/gateway"
	"github.com/sevigo/prompt-warden/internal/logger"
	"github.com/sevigo/prompt-warden/internal/server"
	"github.com/sevigo/prompt-warden/internal/service"
	"github.com/sevigo/prompt-warden/internal/storage"
)

func provideGateway(cfg *config.Config) gateway.Gateway {
	return gateway.NewClient(cfg.Gateway)
}

func providePromptService(store storage.Store, log *slog.Logger) *service.Prompts {
	return service.NewPrompts(store, log)
}

func provideMergeRequestService(store storage.Store, log *slog.Logger) *service.MergeRequests {
	return service.NewMergeRequests(store, log)
}

func provideExecutor(cfg *config.Config, store storage.Store, gw gateway.Gateway, log *slog.Logger) *service.Executor {
	return service.NewExecutor(store, gw, cfg.Gateway.Timeout, log)
}

func provideAnalytics(store storage.Store, log *slog.Logger) *service.Analytics {
	return service.NewAnalytics(store, log)
}

func provideRouter(
	prompts *service.Prompts,
	mergeRequests *service.MergeRequests,
	executor *service.Executor,
	analytics *service.Analytics,
	gw gateway.Gateway,
	log *slog.Logger,
) http.Handler {
	return server.NewRouter(prompts, mergeRequests, executor, analytics, gw, log)
}

func provideServer(cfg *config.Config, handler http.Handler, log *slog.Logger) *server.Server {
	return server.NewServer(cfg, handler, log)
}

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return cfg.Database
}

func provideLogWriter(cfg *config.Config) io.Writer {
	switch cfg.Logging.Output {
	case "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	case "file":
		f, _ := os.OpenFile("prompt-warden.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		return f
	default:
		return os.Stdout
	}
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	return logger.NewLogger(loggerConfig, writer)
}
