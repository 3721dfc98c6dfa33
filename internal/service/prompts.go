// Package service implements the prompt version and merge workflow engine:
// prompt lifecycle, the review-gated merge-request state machine, prompt
// execution against the LLM gateway, and run analytics.
package service

import (
	"context"
	"log/slog"

	"github.com/sevigo/prompt-warden/internal/core"
	"github.com/sevigo/prompt-warden/internal/storage"
)

// Prompts manages prompts and their linear version history.
type Prompts struct {
	store  storage.Store
	logger *slog.Logger
}

// NewPrompts creates the prompt service.
func NewPrompts(store storage.Store, logger *slog.Logger) *Prompts {
	return &Prompts{store: store, logger: logger}
}

// Create registers a new prompt. When initial content is given, version 1 is
// created in the same transaction.
func (s *Prompts) Create(ctx context.Context, title, description string, metadata core.JSONMap, content *core.PromptContent, authorID string) (*core.Prompt, error) {
	if title == "" {
		return nil, core.Validationf("prompt title must not be empty")
	}
	if content != nil && content.IsEmpty() {
		return nil, core.Validationf("initial content must not be empty")
	}

	prompt := &core.Prompt{Title: title, Description: description, Metadata: metadata}
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.CreatePrompt(ctx, prompt); err != nil {
			return err
		}
		if content != nil {
			if _, err := tx.AppendVersion(ctx, prompt.ID, *content, authorID, "Initial version"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("prompt created", "prompt_id", prompt.ID, "title", title)
	return prompt, nil
}

// Get returns a prompt by id.
func (s *Prompts) Get(ctx context.Context, id string) (*core.Prompt, error) {
	return s.store.GetPrompt(ctx, id)
}

// Update changes prompt metadata and, when content is given, appends a new
// version in the same transaction.
func (s *Prompts) Update(ctx context.Context, id, title, description string, metadata core.JSONMap, content *core.PromptContent, authorID, commitMessage string) (*core.Prompt, error) {
	if content != nil && content.IsEmpty() {
		return nil, core.Validationf("version content must not be empty")
	}

	var prompt *core.Prompt
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		existing, err := tx.GetPrompt(ctx, id)
		if err != nil {
			return err
		}

		if title != "" {
			existing.Title = title
		}
		if description != "" {
			existing.Description = description
		}
		if metadata != nil {
			existing.Metadata = metadata
		}
		if err := tx.UpdatePrompt(ctx, existing); err != nil {
			return err
		}

		if content != nil {
			if _, err := tx.AppendVersion(ctx, id, *content, authorID, commitMessage); err != nil {
				return err
			}
		}

		prompt = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prompt, nil
}

// Delete removes a prompt with all its versions, runs, and merge requests.
func (s *Prompts) Delete(ctx context.Context, id string) error {
	if err := s.store.DeletePrompt(ctx, id); err != nil {
		return err
	}
	s.logger.Info("prompt deleted", "prompt_id", id)
	return nil
}

// AppendVersion creates the next version of the prompt's history.
func (s *Prompts) AppendVersion(ctx context.Context, promptID string, content core.PromptContent, authorID, commitMessage string) (*core.PromptVersion, error) {
	if content.IsEmpty() {
		return nil, core.Validationf("version content must not be empty")
	}
	version, err := s.store.AppendVersion(ctx, promptID, content, authorID, commitMessage)
	if err != nil {
		return nil, err
	}
	s.logger.Info("version appended", "prompt_id", promptID, "version", version.VersionNumber)
	return version, nil
}

// ListVersions returns the prompt's history, newest first.
func (s *Prompts) ListVersions(ctx context.Context, promptID string) ([]core.PromptVersion, error) {
	if _, err := s.store.GetPrompt(ctx, promptID); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, promptID)
}

// GetVersion returns a single version by id.
func (s *Prompts) GetVersion(ctx context.Context, versionID string) (*core.PromptVersion, error) {
	return s.store.GetVersion(ctx, versionID)
}

// CurrentVersion returns the version with the highest number, or (nil, nil)
// when the prompt has none.
func (s *Prompts) CurrentVersion(ctx context.Context, promptID string) (*core.PromptVersion, error) {
	if _, err := s.store.GetPrompt(ctx, promptID); err != nil {
		return nil, err
	}
	return s.store.GetCurrentVersion(ctx, promptID)
}
