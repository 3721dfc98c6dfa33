package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/prompt-warden/internal/core"
)

type postgresStore struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

// NewStore creates a postgres-backed Store.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// q returns the active querier: the transaction when inside WithTx,
// otherwise the connection pool.
func (s *postgresStore) q() sqlx.ExtContext {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *postgresStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&postgresStore{db: s.db, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *postgresStore) CreatePrompt(ctx context.Context, prompt *core.Prompt) error {
	if prompt.ID == "" {
		prompt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	prompt.CreatedAt = now
	prompt.UpdatedAt = now

	query := `INSERT INTO prompts (id, title, description, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.q().ExecContext(ctx, query,
		prompt.ID, prompt.Title, prompt.Description, prompt.Metadata, prompt.CreatedAt, prompt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	return nil
}

func (s *postgresStore) GetPrompt(ctx context.Context, id string) (*core.Prompt, error) {
	query := `SELECT id, title, description, metadata, created_at, updated_at
		FROM prompts WHERE id = $1`

	var p core.Prompt
	if err := sqlx.GetContext(ctx, s.q(), &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NotFoundf("prompt %s not found", id)
		}
		return nil, fmt.Errorf("select prompt: %w", err)
	}
	return &p, nil
}

func (s *postgresStore) UpdatePrompt(ctx context.Context, prompt *core.Prompt) error {
	prompt.UpdatedAt = time.Now().UTC()

	query := `UPDATE prompts SET title = $2, description = $3, metadata = $4, updated_at = $5
		WHERE id = $1`
	res, err := s.q().ExecContext(ctx, query,
		prompt.ID, prompt.Title, prompt.Description, prompt.Metadata, prompt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update prompt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFoundf("prompt %s not found", prompt.ID)
	}
	return nil
}

func (s *postgresStore) DeletePrompt(ctx context.Context, id string) error {
	// versions, runs, and merge requests go with it via ON DELETE CASCADE
	res, err := s.q().ExecContext(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFoundf("prompt %s not found", id)
	}
	return nil
}

func (s *postgresStore) AppendVersion(ctx context.Context, promptID string, content core.PromptContent, authorID, commitMessage string) (*core.PromptVersion, error) {
	var version *core.PromptVersion

	err := s.WithTx(ctx, func(txStore Store) error {
		tx := txStore.(*postgresStore)

		// Lock the prompt row so concurrent appends for the same prompt
		// serialize on the max-version read.
		var lockedID string
		err := sqlx.GetContext(ctx, tx.q(), &lockedID,
			`SELECT id FROM prompts WHERE id = $1 FOR UPDATE`, promptID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return core.NotFoundf("prompt %s not found", promptID)
			}
			return fmt.Errorf("lock prompt: %w", err)
		}

		var maxNumber int
		err = sqlx.GetContext(ctx, tx.q(), &maxNumber,
			`SELECT COALESCE(MAX(version_number), 0) FROM prompt_versions WHERE prompt_id = $1`, promptID)
		if err != nil {
			return fmt.Errorf("read max version number: %w", err)
		}

		v := core.PromptVersion{
			ID:            uuid.NewString(),
			PromptID:      promptID,
			VersionNumber: maxNumber + 1,
			Content:       content,
			CommitMessage: commitMessage,
			AuthorID:      authorID,
			CreatedAt:     time.Now().UTC(),
		}

		_, err = tx.q().ExecContext(ctx,
			`INSERT INTO prompt_versions (id, prompt_id, version_number, content, commit_message, author_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			v.ID, v.PromptID, v.VersionNumber, v.Content, v.CommitMessage, v.AuthorID, v.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert version: %w", err)
		}

		version = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

func (s *postgresStore) GetVersion(ctx context.Context, versionID string) (*core.PromptVersion, error) {
	query := `SELECT id, prompt_id, version_number, content, commit_message, author_id, created_at
		FROM prompt_versions WHERE id = $1`

	var v core.PromptVersion
	if err := sqlx.GetContext(ctx, s.q(), &v, query, versionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NotFoundf("version %s not found", versionID)
		}
		return nil, fmt.Errorf("select version: %w", err)
	}
	return &v, nil
}

func (s *postgresStore) GetCurrentVersion(ctx context.Context, promptID string) (*core.PromptVersion, error) {
	query := `SELECT id, prompt_id, version_number, content, commit_message, author_id, created_at
		FROM prompt_versions
		WHERE prompt_id = $1
		ORDER BY version_number DESC
		LIMIT 1`

	var v core.PromptVersion
	if err := sqlx.GetContext(ctx, s.q(), &v, query, promptID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select current version: %w", err)
	}
	return &v, nil
}

func (s *postgresStore) ListVersions(ctx context.Context, promptID string) ([]core.PromptVersion, error) {
	query := `SELECT id, prompt_id, version_number, content, commit_message, author_id, created_at
		FROM prompt_versions
		WHERE prompt_id = $1
		ORDER BY version_number DESC`

	var versions []core.PromptVersion
	if err := sqlx.SelectContext(ctx, s.q(), &versions, query, promptID); err != nil {
		return nil, fmt.Errorf("select versions: %w", err)
	}
	return versions, nil
}
