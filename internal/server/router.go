package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/prompt-warden/internal/gateway"
	"github.com/sevigo/prompt-warden/internal/server/handler"
	"github.com/sevigo/prompt-warden/internal/service"
)

// NewRouter creates and configures the HTTP router with middleware and API
// routes.
func NewRouter(
	prompts *service.Prompts,
	mergeRequests *service.MergeRequests,
	executor *service.Executor,
	analytics *service.Analytics,
	gw gateway.Gateway,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	promptHandler := handler.NewPromptHandler(prompts, logger)
	mergeRequestHandler := handler.NewMergeRequestHandler(mergeRequests, logger)
	executionHandler := handler.NewExecutionHandler(executor, gw, logger)
	analyticsHandler := handler.NewAnalyticsHandler(analytics, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/prompts", promptHandler.Create)
		r.Get("/prompts/{promptID}", promptHandler.Get)
		r.Post("/prompts/{promptID}", promptHandler.Update)
		r.Delete("/prompts/{promptID}", promptHandler.Delete)
		r.Get("/prompts/{promptID}/versions", promptHandler.ListVersions)
		r.Get("/versions/{versionID}", promptHandler.GetVersion)

		r.Post("/prompts/{promptID}/create-merge-request", mergeRequestHandler.Create)
		r.Get("/prompts/{promptID}/merge-requests", mergeRequestHandler.List)
		r.Get("/merge-requests/{mergeRequestID}", mergeRequestHandler.Get)
		r.Post("/merge-requests/{mergeRequestID}/reviews", mergeRequestHandler.Review)
		r.Get("/merge-requests/{mergeRequestID}/reviews", mergeRequestHandler.ListReviews)
		r.Post("/merge-requests/{mergeRequestID}/comments", mergeRequestHandler.Comment)
		r.Get("/merge-requests/{mergeRequestID}/comments", mergeRequestHandler.ListComments)
		r.Post("/merge-requests/{mergeRequestID}/merge", mergeRequestHandler.Merge)
		r.Post("/merge-requests/{mergeRequestID}/reject", mergeRequestHandler.Reject)

		r.Post("/prompt-execution/run", executionHandler.Run)
		r.Get("/models", executionHandler.Models)

		r.Get("/analytics/prompts/{promptID}/performance", analyticsHandler.Performance)
		r.Get("/analytics/prompts/{promptID}/runs", analyticsHandler.Runs)
		r.Get("/analytics/prompts/{promptID}/versions/compare", analyticsHandler.Compare)
	})

	return r
}
