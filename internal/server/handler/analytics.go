package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/prompt-warden/internal/service"
	"github.com/sevigo/prompt-warden/internal/storage"
)

// AnalyticsHandler serves run-ledger aggregations.
type AnalyticsHandler struct {
	analytics *service.Analytics
	logger    *slog.Logger
}

// NewAnalyticsHandler creates the analytics handler.
func NewAnalyticsHandler(analytics *service.Analytics, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// Performance returns time-bucketed run statistics. The period query
// parameter selects day, week, or month buckets.
func (h *AnalyticsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	period := service.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = service.PeriodDay
	}

	stats, err := h.analytics.PerformanceByPeriod(r.Context(), chi.URLParam(r, "promptID"), period)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"performance": stats})
}

// Runs returns a filtered page of the run history.
func (h *AnalyticsHandler) Runs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := storage.RunFilter{}

	if v := query.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := query.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}
	if v := query.Get("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Message: "startDate must be RFC 3339", Error: "validation"})
			return
		}
		filter.StartDate = &t
	}
	if v := query.Get("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Message: "endDate must be RFC 3339", Error: "validation"})
			return
		}
		filter.EndDate = &t
	}

	runs, total, err := h.analytics.RunHistory(r.Context(), chi.URLParam(r, "promptID"), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"runs": runs, "total": total})
}

// Compare returns per-version run statistics for the comma-separated
// versionIds query parameter, in input order.
func (h *AnalyticsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var versionIDs []string
	for _, id := range strings.Split(r.URL.Query().Get("versionIds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			versionIDs = append(versionIDs, id)
		}
	}

	stats, err := h.analytics.VersionComparison(r.Context(), chi.URLParam(r, "promptID"), versionIDs)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"versions": stats})
}
