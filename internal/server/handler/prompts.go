package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/prompt-warden/internal/core"
	"github.com/sevigo/prompt-warden/internal/service"
)

// PromptHandler serves prompt CRUD and version-history reads.
type PromptHandler struct {
	prompts *service.Prompts
	logger  *slog.Logger
}

// NewPromptHandler creates the prompt handler.
func NewPromptHandler(prompts *service.Prompts, logger *slog.Logger) *PromptHandler {
	return &PromptHandler{prompts: prompts, logger: logger}
}

type promptRequest struct {
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Metadata      core.JSONMap        `json:"metadata"`
	Content       *core.PromptContent `json:"content"`
	CommitMessage string              `json:"commitMessage"`
}

// Create registers a new prompt, optionally with its first version.
func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	prompt, err := h.prompts.Create(r.Context(), req.Title, req.Description, req.Metadata, req.Content, caller)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, prompt)
}

// Get returns one prompt.
func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.prompts.Get(r.Context(), chi.URLParam(r, "promptID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, prompt)
}

// Update changes prompt metadata and appends a version when content is
// present in the body.
func (h *PromptHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	prompt, err := h.prompts.Update(r.Context(), chi.URLParam(r, "promptID"),
		req.Title, req.Description, req.Metadata, req.Content, caller, req.CommitMessage)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, prompt)
}

// Delete removes a prompt and everything it owns.
func (h *PromptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}

	if err := h.prompts.Delete(r.Context(), chi.URLParam(r, "promptID")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListVersions returns the prompt's history, newest first.
func (h *PromptHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.prompts.ListVersions(r.Context(), chi.URLParam(r, "promptID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

// GetVersion returns a single version by id.
func (h *PromptHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	version, err := h.prompts.GetVersion(r.Context(), chi.URLParam(r, "versionID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, version)
}
