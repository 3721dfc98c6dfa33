// Package core defines the domain entities and error taxonomy shared by all
// components of Prompt Warden: prompts, their immutable version history, the
// merge-request workflow, and the execution-run ledger.
package core

import "time"

// Prompt is a named, versioned LLM template. Its content lives in the
// immutable PromptVersion chain; the row itself only carries metadata.
type Prompt struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Metadata    JSONMap   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// PromptVersion is an immutable snapshot of a prompt's content. Version
// numbers start at 1 and form a contiguous, strictly increasing sequence per
// prompt; the highest number is the current version.
type PromptVersion struct {
	ID            string        `db:"id" json:"id"`
	PromptID      string        `db:"prompt_id" json:"promptId"`
	VersionNumber int           `db:"version_number" json:"versionNumber"`
	Content       PromptContent `db:"content" json:"content"`
	CommitMessage string        `db:"commit_message" json:"commitMessage,omitempty"`
	AuthorID      string        `db:"author_id" json:"authorId,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
}
