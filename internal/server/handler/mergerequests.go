package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/prompt-warden/internal/core"
	"github.com/sevigo/prompt-warden/internal/service"
)

// MergeRequestHandler serves the merge-request workflow.
type MergeRequestHandler struct {
	mergeRequests *service.MergeRequests
	logger        *slog.Logger
}

// NewMergeRequestHandler creates the merge-request handler.
func NewMergeRequestHandler(mergeRequests *service.MergeRequests, logger *slog.Logger) *MergeRequestHandler {
	return &MergeRequestHandler{mergeRequests: mergeRequests, logger: logger}
}

// Create opens a merge request for a prompt.
func (h *MergeRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req struct {
		Content     core.PromptContent `json:"content"`
		Description string             `json:"description"`
		Metadata    core.JSONMap       `json:"metadata"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	mr, err := h.mergeRequests.Create(r.Context(), chi.URLParam(r, "promptID"), caller,
		req.Content, req.Description, req.Metadata)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, mr)
}

// Get returns one merge request.
func (h *MergeRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	mr, err := h.mergeRequests.Get(r.Context(), chi.URLParam(r, "mergeRequestID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, mr)
}

// List returns a prompt's merge requests filtered by all/open/closed.
func (h *MergeRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := core.MergeRequestFilter(r.URL.Query().Get("filter"))

	mrs, err := h.mergeRequests.ListForPrompt(r.Context(), chi.URLParam(r, "promptID"), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"mergeRequests": mrs})
}

// Review records or updates the caller's review.
func (h *MergeRequestHandler) Review(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req struct {
		Approved *bool  `json:"approved"`
		Comment  string `json:"comment"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	review, err := h.mergeRequests.Review(r.Context(), chi.URLParam(r, "mergeRequestID"),
		caller, req.Approved, req.Comment)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, review)
}

// ListReviews returns all reviews on a merge request.
func (h *MergeRequestHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.mergeRequests.ListReviews(r.Context(), chi.URLParam(r, "mergeRequestID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

// Merge integrates an approved merge request as the prompt's next version.
func (h *MergeRequestHandler) Merge(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	mr, version, err := h.mergeRequests.Merge(r.Context(), chi.URLParam(r, "mergeRequestID"), caller)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"mergeRequest": mr, "version": version})
}

// Reject closes a merge request without merging.
func (h *MergeRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	mr, err := h.mergeRequests.Reject(r.Context(), chi.URLParam(r, "mergeRequestID"), caller)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, mr)
}

// Comment adds a discussion entry.
func (h *MergeRequestHandler) Comment(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	comment, err := h.mergeRequests.Comment(r.Context(), chi.URLParam(r, "mergeRequestID"), caller, req.Body)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

// ListComments returns the discussion, oldest first.
func (h *MergeRequestHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.mergeRequests.ListComments(r.Context(), chi.URLParam(r, "mergeRequestID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"comments": comments})
}
