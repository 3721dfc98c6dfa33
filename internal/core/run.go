package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PromptRun records one execution attempt of a rendered prompt against a
// language model. Rows are written once and never mutated; a failed gateway
// call is a recorded fact, not a transient error.
type PromptRun struct {
	ID             string        `db:"id" json:"id"`
	PromptID       string        `db:"prompt_id" json:"promptId"`
	VersionID      *string       `db:"version_id" json:"versionId,omitempty"`
	UserID         *string       `db:"user_id" json:"userId,omitempty"`
	Model          string        `db:"model" json:"model"`
	InputVariables VarMap        `db:"input_variables" json:"inputVariables,omitempty"`
	RenderedPrompt PromptContent `db:"rendered_prompt" json:"renderedPrompt"`
	Output         string        `db:"output" json:"output,omitempty"`
	Success        bool          `db:"success" json:"success"`
	ErrorMessage   string        `db:"error_message" json:"errorMessage,omitempty"`
	Metrics        RunMetrics    `db:"metrics" json:"metrics"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
}

// RunMetrics carries the numeric measurements of a run. The five pointer
// fields are the ones analytics averages over; nil means the run did not
// report that metric. ModelParameters and Extra are the escape hatch for
// free-form data.
type RunMetrics struct {
	ResponseTime          *float64 `json:"responseTime,omitempty"`
	TokenCount            *float64 `json:"tokenCount,omitempty"`
	TokenUsage            *float64 `json:"tokenUsage,omitempty"`
	CompletionRate        *float64 `json:"completionRate,omitempty"`
	UserSatisfactionScore *float64 `json:"userSatisfactionScore,omitempty"`
	Cost                  *float64 `json:"cost,omitempty"`
	TokensInput           int      `json:"tokensInput,omitempty"`
	TokensOutput          int      `json:"tokensOutput,omitempty"`
	ModelParameters       JSONMap  `json:"modelParameters,omitempty"`
	Extra                 JSONMap  `json:"extra,omitempty"`
}

func (m RunMetrics) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *RunMetrics) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = RunMetrics{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into RunMetrics", src)
	}
}

// Float64 returns a pointer to v, for building optional metrics.
func Float64(v float64) *float64 { return &v }
