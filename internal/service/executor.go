package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sevigo/prompt-warden/internal/core"
	"github.com/sevigo/prompt-warden/internal/gateway"
	"github.com/sevigo/prompt-warden/internal/storage"
	"github.com/sevigo/prompt-warden/internal/template"
)

// Executor runs a prompt version through the template renderer and the LLM
// gateway, recording every dispatched call in the run ledger. Validation
// failures before dispatch leave no trace; once the gateway has been called,
// the outcome is persisted whether it succeeded or not.
type Executor struct {
	store   storage.Store
	gateway gateway.Gateway
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecutor creates the executor. The timeout bounds each gateway call.
func NewExecutor(store storage.Store, gw gateway.Gateway, timeout time.Duration, logger *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Executor{store: store, gateway: gw, timeout: timeout, logger: logger}
}

// ExecuteRequest selects the version to run and the inputs to run it with.
// Exactly one of PromptID (current version) or VersionID (pinned version) is
// required; CallerID may be empty for anonymous execution.
type ExecuteRequest struct {
	PromptID   string
	VersionID  string
	Variables  core.VarMap
	Model      string
	Parameters core.JSONMap
	CallerID   string
}

// ExecuteResult is the caller-visible outcome of a successful run.
type ExecuteResult struct {
	RunID   string          `json:"runId"`
	Output  string          `json:"output"`
	Metrics core.RunMetrics `json:"metrics"`
}

// Execute resolves, renders, validates, dispatches, and records one run.
func (e *Executor) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	if req.Model == "" {
		return nil, core.Validationf("model is required")
	}
	if req.PromptID == "" && req.VersionID == "" {
		return nil, core.Validationf("either promptId or versionId is required")
	}

	version, err := e.resolveVersion(ctx, req)
	if err != nil {
		return nil, err
	}

	if missing := template.Missing(version.Content, req.Variables); len(missing) > 0 {
		return nil, core.Validationf("missing required variables: %s", strings.Join(missing, ", "))
	}
	rendered := template.Render(version.Content, req.Variables)

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	resp, gwErr := e.dispatch(callCtx, rendered, req)
	elapsed := time.Since(started)

	run := &core.PromptRun{
		PromptID:       version.PromptID,
		VersionID:      &version.ID,
		Model:          req.Model,
		InputVariables: req.Variables,
		RenderedPrompt: rendered,
		Metrics:        core.RunMetrics{ModelParameters: req.Parameters},
	}
	if req.CallerID != "" {
		run.UserID = &req.CallerID
	}

	if gwErr != nil {
		run.Success = false
		run.ErrorMessage = classify(gwErr) + ": " + gwErr.Error()
		run.Metrics.ResponseTime = core.Float64(float64(elapsed.Milliseconds()))

		if persistErr := e.store.CreateRun(ctx, run); persistErr != nil {
			e.logger.Error("failed to record failed run",
				"prompt_id", version.PromptID, "error", persistErr)
		}

		e.logger.Warn("prompt run failed",
			"prompt_id", version.PromptID,
			"version", version.VersionNumber,
			"model", req.Model,
			"error", gwErr,
		)
		return nil, gwErr
	}

	run.Success = true
	run.Output = resp.Output
	run.Metrics = metricsFromGateway(resp.Metrics, req.Parameters)

	if err := e.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	e.logger.Info("prompt run completed",
		"prompt_id", version.PromptID,
		"version", version.VersionNumber,
		"model", req.Model,
		"run_id", run.ID,
	)
	return &ExecuteResult{RunID: run.ID, Output: run.Output, Metrics: run.Metrics}, nil
}

// resolveVersion picks the pinned version when given, otherwise the prompt's
// current version.
func (e *Executor) resolveVersion(ctx context.Context, req ExecuteRequest) (*core.PromptVersion, error) {
	if req.VersionID != "" {
		version, err := e.store.GetVersion(ctx, req.VersionID)
		if err != nil {
			return nil, err
		}
		if req.PromptID != "" && version.PromptID != req.PromptID {
			return nil, core.Validationf("version %s does not belong to prompt %s", req.VersionID, req.PromptID)
		}
		return version, nil
	}

	version, err := e.store.GetCurrentVersion(ctx, req.PromptID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		if _, err := e.store.GetPrompt(ctx, req.PromptID); err != nil {
			return nil, err
		}
		return nil, core.NotFoundf("prompt %s has no versions to execute", req.PromptID)
	}
	return version, nil
}

func (e *Executor) dispatch(ctx context.Context, rendered core.PromptContent, req ExecuteRequest) (*gateway.Response, error) {
	if rendered.IsChat() {
		return e.gateway.Chat(ctx, gateway.ChatRequest{
			Model:      req.Model,
			Messages:   rendered.Messages,
			Parameters: req.Parameters,
		})
	}
	return e.gateway.Generate(ctx, gateway.GenerateRequest{
		Model:      req.Model,
		Prompt:     rendered.Text,
		Parameters: req.Parameters,
	})
}

func classify(err error) string {
	if core.KindOf(err) == core.KindGatewayUnavailable {
		return "gateway_unavailable"
	}
	return "gateway_error"
}

func metricsFromGateway(m gateway.Metrics, params core.JSONMap) core.RunMetrics {
	total := m.TokensInput + m.TokensOutput
	return core.RunMetrics{
		ResponseTime:    core.Float64(float64(m.ProcessingTimeMS)),
		TokenCount:      core.Float64(float64(total)),
		TokenUsage:      core.Float64(float64(m.TokensOutput)),
		Cost:            m.Cost,
		TokensInput:     m.TokensInput,
		TokensOutput:    m.TokensOutput,
		ModelParameters: params,
	}
}
