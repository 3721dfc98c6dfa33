package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/prompt-warden/internal/core"
	"github.com/sevigo/prompt-warden/internal/storage"
)

// MergeRequests drives the merge-request lifecycle: open, review, and the
// terminal merge/reject transitions. Merging overwrites the prompt's content
// with the proposal verbatim; there is no three-way merge, and edits made
// after the request was opened stay visible only as earlier history.
type MergeRequests struct {
	store  storage.Store
	logger *slog.Logger
}

// NewMergeRequests creates the merge-request service.
func NewMergeRequests(store storage.Store, logger *slog.Logger) *MergeRequests {
	return &MergeRequests{store: store, logger: logger}
}

// Create opens a merge request proposing new content for the prompt. The
// current version is captured as the target, the basis diffs are shown
// against. Empty and no-op proposals are rejected.
func (s *MergeRequests) Create(ctx context.Context, promptID, authorID string, proposed core.PromptContent, description string, metadata core.JSONMap) (*core.MergeRequest, error) {
	if authorID == "" {
		return nil, core.Validationf("merge request author is required")
	}
	if proposed.IsEmpty() {
		return nil, core.Validationf("proposed content must not be empty")
	}

	var mr *core.MergeRequest
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetPrompt(ctx, promptID); err != nil {
			return err
		}

		current, err := tx.GetCurrentVersion(ctx, promptID)
		if err != nil {
			return err
		}
		if current == nil {
			return core.Conflictf("prompt %s has no version to propose against", promptID)
		}
		if proposed.Equal(current.Content) {
			return core.Validationf("proposed content is identical to the current version")
		}

		mr = &core.MergeRequest{
			PromptID:        promptID,
			TargetVersionID: current.ID,
			ProposedContent: proposed,
			Description:     description,
			Metadata:        metadata,
			AuthorID:        authorID,
		}
		return tx.CreateMergeRequest(ctx, mr)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("merge request opened", "merge_request_id", mr.ID, "prompt_id", promptID, "author", authorID)
	return mr, nil
}

// Review records a reviewer's verdict. Approved nil means comment-only. A
// reviewer's repeated submissions update the existing review instead of
// stacking duplicates. Authors may not review their own requests.
func (s *MergeRequests) Review(ctx context.Context, mergeRequestID, reviewerID string, approved *bool, comment string) (*core.MergeRequestReview, error) {
	if reviewerID == "" {
		return nil, core.Validationf("reviewer is required")
	}

	review := &core.MergeRequestReview{
		MergeRequestID: mergeRequestID,
		ReviewerID:     reviewerID,
		Approved:       approved,
		Comment:        comment,
	}

	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		mr, err := tx.GetMergeRequestForUpdate(ctx, mergeRequestID)
		if err != nil {
			return err
		}
		if mr.Status != core.MergeStatusOpen {
			return core.Conflictf("merge request %s is %s and can no longer be reviewed", mergeRequestID, mr.Status)
		}
		if mr.AuthorID == reviewerID {
			return core.Forbiddenf("authors may not review their own merge request")
		}
		return tx.UpsertReview(ctx, review)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// Merge integrates the proposal: it appends the proposed content as the next
// version and marks the request merged, atomically. The gate is a single
// approval; rejections do not veto. A request opened against an older
// version still merges, overwriting intervening edits in the new version.
func (s *MergeRequests) Merge(ctx context.Context, mergeRequestID, actorID string) (*core.MergeRequest, *core.PromptVersion, error) {
	var (
		mr      *core.MergeRequest
		version *core.PromptVersion
	)

	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		locked, err := tx.GetMergeRequestForUpdate(ctx, mergeRequestID)
		if err != nil {
			return err
		}
		if locked.Status != core.MergeStatusOpen {
			return core.Conflictf("merge request %s is already %s", mergeRequestID, locked.Status)
		}

		approvals, err := tx.CountApprovals(ctx, mergeRequestID)
		if err != nil {
			return err
		}
		if approvals == 0 {
			return core.Conflictf("merge request %s has no approving review", mergeRequestID)
		}

		commitMessage := locked.Description
		if commitMessage == "" {
			commitMessage = fmt.Sprintf("Merge request %s", locked.ID)
		}
		version, err = tx.AppendVersion(ctx, locked.PromptID, locked.ProposedContent, locked.AuthorID, commitMessage)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.SetMergeRequestStatus(ctx, mergeRequestID, core.MergeStatusMerged, &now); err != nil {
			return err
		}

		locked.Status = core.MergeStatusMerged
		locked.MergedAt = &now
		mr = locked
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("merge request merged",
		"merge_request_id", mergeRequestID,
		"prompt_id", mr.PromptID,
		"version", version.VersionNumber,
		"actor", actorID,
	)
	return mr, version, nil
}

// Reject closes the request without creating a version.
func (s *MergeRequests) Reject(ctx context.Context, mergeRequestID, actorID string) (*core.MergeRequest, error) {
	var mr *core.MergeRequest

	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		locked, err := tx.GetMergeRequestForUpdate(ctx, mergeRequestID)
		if err != nil {
			return err
		}
		if locked.Status != core.MergeStatusOpen {
			return core.Conflictf("merge request %s is already %s", mergeRequestID, locked.Status)
		}

		if err := tx.SetMergeRequestStatus(ctx, mergeRequestID, core.MergeStatusRejected, nil); err != nil {
			return err
		}
		locked.Status = core.MergeStatusRejected
		mr = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("merge request rejected", "merge_request_id", mergeRequestID, "actor", actorID)
	return mr, nil
}

// Get returns a merge request by id.
func (s *MergeRequests) Get(ctx context.Context, mergeRequestID string) (*core.MergeRequest, error) {
	return s.store.GetMergeRequest(ctx, mergeRequestID)
}

// ListForPrompt returns the prompt's merge requests, newest first.
func (s *MergeRequests) ListForPrompt(ctx context.Context, promptID string, filter core.MergeRequestFilter) ([]core.MergeRequest, error) {
	switch filter {
	case "", core.FilterAll:
		filter = core.FilterAll
	case core.FilterOpen, core.FilterClosed:
	default:
		return nil, core.Validationf("unknown merge request filter %q", filter)
	}

	if _, err := s.store.GetPrompt(ctx, promptID); err != nil {
		return nil, err
	}
	return s.store.ListMergeRequests(ctx, promptID, filter)
}

// ListReviews returns all reviews on a merge request.
func (s *MergeRequests) ListReviews(ctx context.Context, mergeRequestID string) ([]core.MergeRequestReview, error) {
	if _, err := s.store.GetMergeRequest(ctx, mergeRequestID); err != nil {
		return nil, err
	}
	return s.store.ListReviews(ctx, mergeRequestID)
}

// Comment adds a free-text discussion entry. Comments carry no workflow
// state and are allowed on closed requests too.
func (s *MergeRequests) Comment(ctx context.Context, mergeRequestID, authorID, body string) (*core.MergeRequestComment, error) {
	if authorID == "" {
		return nil, core.Validationf("comment author is required")
	}
	if body == "" {
		return nil, core.Validationf("comment body must not be empty")
	}
	if _, err := s.store.GetMergeRequest(ctx, mergeRequestID); err != nil {
		return nil, err
	}

	comment := &core.MergeRequestComment{
		MergeRequestID: mergeRequestID,
		AuthorID:       authorID,
		Body:           body,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns the discussion on a merge request, oldest first.
func (s *MergeRequests) ListComments(ctx context.Context, mergeRequestID string) ([]core.MergeRequestComment, error) {
	if _, err := s.store.GetMergeRequest(ctx, mergeRequestID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, mergeRequestID)
}
