package core

import "time"

// MergeStatus is the lifecycle state of a merge request. Open is the only
// non-terminal state; merged and rejected requests are immutable.
type MergeStatus string

const (
	MergeStatusOpen     MergeStatus = "open"
	MergeStatusMerged   MergeStatus = "merged"
	MergeStatusRejected MergeStatus = "rejected"
)

// MergeRequestFilter selects which merge requests a listing returns.
type MergeRequestFilter string

const (
	FilterAll    MergeRequestFilter = "all"
	FilterOpen   MergeRequestFilter = "open"
	FilterClosed MergeRequestFilter = "closed"
)

// MergeRequest proposes replacing a prompt's current content with new
// content. The target version is captured at creation time and is the basis
// diffs are shown against; merging overwrites, it does not patch, so a
// request opened against an older version can still be merged later.
type MergeRequest struct {
	ID              string        `db:"id" json:"id"`
	PromptID        string        `db:"prompt_id" json:"promptId"`
	TargetVersionID string        `db:"target_version_id" json:"targetVersionId"`
	ProposedContent PromptContent `db:"proposed_content" json:"proposedContent"`
	Description     string        `db:"description" json:"description,omitempty"`
	Metadata        JSONMap       `db:"metadata" json:"metadata,omitempty"`
	AuthorID        string        `db:"author_id" json:"authorId"`
	Status          MergeStatus   `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	MergedAt        *time.Time    `db:"merged_at" json:"mergedAt,omitempty"`
}

// MergeRequestReview is one reviewer's verdict. Approved is nil for a
// comment-only review. A reviewer has at most one review per request;
// resubmission updates it in place.
type MergeRequestReview struct {
	ID             string    `db:"id" json:"id"`
	MergeRequestID string    `db:"merge_request_id" json:"mergeRequestId"`
	ReviewerID     string    `db:"reviewer_id" json:"reviewerId"`
	Approved       *bool     `db:"approved" json:"approved"`
	Comment        string    `db:"comment" json:"comment,omitempty"`
	ReviewedAt     time.Time `db:"reviewed_at" json:"reviewedAt"`
}

// MergeRequestComment is a free-text discussion entry with no state
// semantics.
type MergeRequestComment struct {
	ID             string    `db:"id" json:"id"`
	MergeRequestID string    `db:"merge_request_id" json:"mergeRequestId"`
	AuthorID       string    `db:"author_id" json:"authorId"`
	Body           string    `db:"body" json:"body"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
