package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sevigo/prompt-warden/internal/core"
)

const mergeRequestColumns = `id, prompt_id, target_version_id, proposed_content, description,
	metadata, author_id, status, created_at, merged_at`

func (s *postgresStore) CreateMergeRequest(ctx context.Context, mr *core.MergeRequest) error {
	if mr.ID == "" {
		mr.ID = uuid.NewString()
	}
	mr.Status = core.MergeStatusOpen
	mr.CreatedAt = time.Now().UTC()

	query := `INSERT INTO merge_requests
		(id, prompt_id, target_version_id, proposed_content, description, metadata, author_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.q().ExecContext(ctx, query,
		mr.ID, mr.PromptID, mr.TargetVersionID, mr.ProposedContent, mr.Description,
		mr.Metadata, mr.AuthorID, mr.Status, mr.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert merge request: %w", err)
	}
	return nil
}

func (s *postgresStore) GetMergeRequest(ctx context.Context, id string) (*core.MergeRequest, error) {
	return s.getMergeRequest(ctx, id, false)
}

func (s *postgresStore) GetMergeRequestForUpdate(ctx context.Context, id string) (*core.MergeRequest, error) {
	return s.getMergeRequest(ctx, id, true)
}

func (s *postgresStore) getMergeRequest(ctx context.Context, id string, forUpdate bool) (*core.MergeRequest, error) {
	query := `SELECT ` + mergeRequestColumns + ` FROM merge_requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var mr core.MergeRequest
	if err := sqlx.GetContext(ctx, s.q(), &mr, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NotFoundf("merge request %s not found", id)
		}
		return nil, fmt.Errorf("select merge request: %w", err)
	}
	return &mr, nil
}

func (s *postgresStore) SetMergeRequestStatus(ctx context.Context, id string, status core.MergeStatus, mergedAt *time.Time) error {
	res, err := s.q().ExecContext(ctx,
		`UPDATE merge_requests SET status = $2, merged_at = $3 WHERE id = $1`,
		id, status, mergedAt)
	if err != nil {
		return fmt.Errorf("update merge request status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFoundf("merge request %s not found", id)
	}
	return nil
}

func (s *postgresStore) ListMergeRequests(ctx context.Context, promptID string, filter core.MergeRequestFilter) ([]core.MergeRequest, error) {
	query := `SELECT ` + mergeRequestColumns + ` FROM merge_requests WHERE prompt_id = $1`
	switch filter {
	case core.FilterOpen:
		query += ` AND status = 'open'`
	case core.FilterClosed:
		query += ` AND status <> 'open'`
	}
	query += ` ORDER BY created_at DESC`

	var mrs []core.MergeRequest
	if err := sqlx.SelectContext(ctx, s.q(), &mrs, query, promptID); err != nil {
		return nil, fmt.Errorf("select merge requests: %w", err)
	}
	return mrs, nil
}

func (s *postgresStore) UpsertReview(ctx context.Context, review *core.MergeRequestReview) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	review.ReviewedAt = time.Now().UTC()

	query := `INSERT INTO merge_request_reviews (id, merge_request_id, reviewer_id, approved, comment, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (merge_request_id, reviewer_id)
		DO UPDATE SET approved = EXCLUDED.approved, comment = EXCLUDED.comment, reviewed_at = EXCLUDED.reviewed_at`
	_, err := s.q().ExecContext(ctx, query,
		review.ID, review.MergeRequestID, review.ReviewerID, review.Approved, review.Comment, review.ReviewedAt)
	if err != nil {
		return fmt.Errorf("upsert review: %w", err)
	}
	return nil
}

func (s *postgresStore) ListReviews(ctx context.Context, mergeRequestID string) ([]core.MergeRequestReview, error) {
	query := `SELECT id, merge_request_id, reviewer_id, approved, comment, reviewed_at
		FROM merge_request_reviews
		WHERE merge_request_id = $1
		ORDER BY reviewed_at ASC`

	var reviews []core.MergeRequestReview
	if err := sqlx.SelectContext(ctx, s.q(), &reviews, query, mergeRequestID); err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	return reviews, nil
}

func (s *postgresStore) CountApprovals(ctx context.Context, mergeRequestID string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, s.q(), &count,
		`SELECT COUNT(*) FROM merge_request_reviews WHERE merge_request_id = $1 AND approved = TRUE`,
		mergeRequestID)
	if err != nil {
		return 0, fmt.Errorf("count approvals: %w", err)
	}
	return count, nil
}

func (s *postgresStore) CreateComment(ctx context.Context, comment *core.MergeRequestComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = time.Now().UTC()

	query := `INSERT INTO merge_request_comments (id, merge_request_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.q().ExecContext(ctx, query,
		comment.ID, comment.MergeRequestID, comment.AuthorID, comment.Body, comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *postgresStore) ListComments(ctx context.Context, mergeRequestID string) ([]core.MergeRequestComment, error) {
	query := `SELECT id, merge_request_id, author_id, body, created_at
		FROM merge_request_comments
		WHERE merge_request_id = $1
		ORDER BY created_at ASC`

	var comments []core.MergeRequestComment
	if err := sqlx.SelectContext(ctx, s.q(), &comments, query, mergeRequestID); err != nil {
		return nil, fmt.Errorf("select comments: %w", err)
	}
	return comments, nil
}
