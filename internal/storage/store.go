// Package storage persists prompts, versions, merge requests, and the run
// ledger. The postgres implementation is the production store; a mutex-backed
// in-memory implementation exists for tests.
package storage

import (
	"context"
	"time"

	"github.com/sevigo/prompt-warden/internal/core"
)

// RunFilter bounds and pages a run-history listing. StartDate and EndDate
// are inclusive at the boundary they specify.
type RunFilter struct {
	Limit     int
	Offset    int
	StartDate *time.Time
	EndDate   *time.Time
}

// Store defines all database operations. Multi-step mutations run inside
// WithTx, which hands the callback a transaction-scoped Store; everything the
// callback does commits or rolls back as one unit.
type Store interface {
	// WithTx runs fn inside a transaction. Nested calls join the outer
	// transaction.
	WithTx(ctx context.Context, fn func(Store) error) error

	CreatePrompt(ctx context.Context, prompt *core.Prompt) error
	GetPrompt(ctx context.Context, id string) (*core.Prompt, error)
	UpdatePrompt(ctx context.Context, prompt *core.Prompt) error
	// DeletePrompt removes the prompt and cascades to its versions, runs,
	// and merge requests.
	DeletePrompt(ctx context.Context, id string) error

	// AppendVersion assigns the next version number for the prompt and
	// inserts the snapshot. The read of the current maximum and the write
	// are serialized per prompt, so concurrent appends never collide.
	AppendVersion(ctx context.Context, promptID string, content core.PromptContent, authorID, commitMessage string) (*core.PromptVersion, error)
	GetVersion(ctx context.Context, versionID string) (*core.PromptVersion, error)
	// GetCurrentVersion returns the version with the highest number, or
	// (nil, nil) when the prompt has no versions yet.
	GetCurrentVersion(ctx context.Context, promptID string) (*core.PromptVersion, error)
	// ListVersions returns versions ordered by version number descending.
	ListVersions(ctx context.Context, promptID string) ([]core.PromptVersion, error)

	CreateMergeRequest(ctx context.Context, mr *core.MergeRequest) error
	GetMergeRequest(ctx context.Context, id string) (*core.MergeRequest, error)
	// GetMergeRequestForUpdate locks the row for the remainder of the
	// enclosing transaction, serializing concurrent status transitions.
	GetMergeRequestForUpdate(ctx context.Context, id string) (*core.MergeRequest, error)
	SetMergeRequestStatus(ctx context.Context, id string, status core.MergeStatus, mergedAt *time.Time) error
	ListMergeRequests(ctx context.Context, promptID string, filter core.MergeRequestFilter) ([]core.MergeRequest, error)

	// UpsertReview inserts the review or, when the reviewer already has one
	// on this request, updates it in place.
	UpsertReview(ctx context.Context, review *core.MergeRequestReview) error
	ListReviews(ctx context.Context, mergeRequestID string) ([]core.MergeRequestReview, error)
	CountApprovals(ctx context.Context, mergeRequestID string) (int, error)

	CreateComment(ctx context.Context, comment *core.MergeRequestComment) error
	ListComments(ctx context.Context, mergeRequestID string) ([]core.MergeRequestComment, error)

	CreateRun(ctx context.Context, run *core.PromptRun) error
	// ListRuns returns a page ordered by created_at descending plus the
	// total count matching the filter.
	ListRuns(ctx context.Context, promptID string, filter RunFilter) ([]core.PromptRun, int, error)
	// ListRunsAscending returns every run for the prompt ordered by
	// created_at ascending, for analytics aggregation.
	ListRunsAscending(ctx context.Context, promptID string) ([]core.PromptRun, error)
	ListRunsByVersions(ctx context.Context, promptID string, versionIDs []string) ([]core.PromptRun, error)
}
