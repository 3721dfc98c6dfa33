package handler

import (
	"log/slog"
	"net/http"

	"github.com/sevigo/prompt-warden/internal/core"
	"github.com/sevigo/prompt-warden/internal/gateway"
	"github.com/sevigo/prompt-warden/internal/service"
)

// ExecutionHandler serves prompt execution and model discovery. Execution
// permits anonymous callers; the run is recorded without a user id.
type ExecutionHandler struct {
	executor *service.Executor
	gateway  gateway.Gateway
	logger   *slog.Logger
}

// NewExecutionHandler creates the execution handler.
func NewExecutionHandler(executor *service.Executor, gw gateway.Gateway, logger *slog.Logger) *ExecutionHandler {
	return &ExecutionHandler{executor: executor, gateway: gw, logger: logger}
}

// Run executes a prompt version against the LLM gateway.
func (h *ExecutionHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PromptID   string       `json:"promptId"`
		VersionID  string       `json:"versionId"`
		Input      core.VarMap  `json:"input"`
		Model      string       `json:"model"`
		Parameters core.JSONMap `json:"parameters"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	result, err := h.executor.Execute(r.Context(), service.ExecuteRequest{
		PromptID:   req.PromptID,
		VersionID:  req.VersionID,
		Variables:  req.Input,
		Model:      req.Model,
		Parameters: req.Parameters,
		CallerID:   callerID(r),
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Models proxies the gateway's model listing.
func (h *ExecutionHandler) Models(w http.ResponseWriter, r *http.Request) {
	models, err := h.gateway.ListModels(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"models": models})
}
