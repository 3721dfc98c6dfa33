package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sevigo/prompt-warden/internal/core"
)

const runColumns = `id, prompt_id, version_id, user_id, model, input_variables,
	rendered_prompt, output, success, error_message, metrics, created_at`

func (s *postgresStore) CreateRun(ctx context.Context, run *core.PromptRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO prompt_runs
		(id, prompt_id, version_id, user_id, model, input_variables, rendered_prompt, output, success, error_message, metrics, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.q().ExecContext(ctx, query,
		run.ID, run.PromptID, run.VersionID, run.UserID, run.Model, run.InputVariables,
		run.RenderedPrompt, run.Output, run.Success, run.ErrorMessage, run.Metrics, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *postgresStore) ListRuns(ctx context.Context, promptID string, filter RunFilter) ([]core.PromptRun, int, error) {
	where := []string{"prompt_id = $1"}
	args := []any{promptID}

	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM prompt_runs WHERE ` + whereClause
	if err := sqlx.GetContext(ctx, s.q(), &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	query := `SELECT ` + runColumns + ` FROM prompt_runs WHERE ` + whereClause +
		` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var runs []core.PromptRun
	if err := sqlx.SelectContext(ctx, s.q(), &runs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("select runs: %w", err)
	}
	return runs, total, nil
}

func (s *postgresStore) ListRunsAscending(ctx context.Context, promptID string) ([]core.PromptRun, error) {
	query := `SELECT ` + runColumns + ` FROM prompt_runs WHERE prompt_id = $1 ORDER BY created_at ASC`

	var runs []core.PromptRun
	if err := sqlx.SelectContext(ctx, s.q(), &runs, query, promptID); err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	return runs, nil
}

func (s *postgresStore) ListRunsByVersions(ctx context.Context, promptID string, versionIDs []string) ([]core.PromptRun, error) {
	if len(versionIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(
		`SELECT `+runColumns+` FROM prompt_runs WHERE prompt_id = ? AND version_id IN (?) ORDER BY created_at ASC`,
		promptID, versionIDs)
	if err != nil {
		return nil, fmt.Errorf("build version runs query: %w", err)
	}
	query = s.db.Rebind(query)

	var runs []core.PromptRun
	if err := sqlx.SelectContext(ctx, s.q(), &runs, query, args...); err != nil {
		return nil, fmt.Errorf("select version runs: %w", err)
	}
	return runs, nil
}
