package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/prompt-warden/internal/core"
)

func newTestPrompt(t *testing.T, store Store) *core.Prompt {
	t.Helper()
	prompt := &core.Prompt{Title: "test prompt"}
	require.NoError(t, store.CreatePrompt(context.Background(), prompt))
	return prompt
}

func TestAppendVersionNumbersAreContiguous(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	prompt := newTestPrompt(t, store)

	for i := 1; i <= 5; i++ {
		v, err := store.AppendVersion(ctx, prompt.ID, core.TextContent("v"), "alice", "msg")
		require.NoError(t, err)
		assert.Equal(t, i, v.VersionNumber)
	}

	current, err := store.GetCurrentVersion(ctx, prompt.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, current.VersionNumber)
}

func TestAppendVersionConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	prompt := newTestPrompt(t, store)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AppendVersion(ctx, prompt.ID, core.TextContent("v"), "alice", "msg")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	versions, err := store.ListVersions(ctx, prompt.ID)
	require.NoError(t, err)
	require.Len(t, versions, workers)

	// newest first, every number assigned exactly once
	for i, v := range versions {
		assert.Equal(t, workers-i, v.VersionNumber)
	}
}

func TestAppendVersionUnknownPrompt(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.AppendVersion(context.Background(), "missing", core.TextContent("v"), "alice", "msg")
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestGetCurrentVersionEmptyHistory(t *testing.T) {
	store := NewMemoryStore()
	prompt := newTestPrompt(t, store)

	current, err := store.GetCurrentVersion(context.Background(), prompt.ID)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	prompt := newTestPrompt(t, store)

	failed := errors.New("boom")
	err := store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.AppendVersion(ctx, prompt.ID, core.TextContent("v"), "alice", "msg"); err != nil {
			return err
		}
		return failed
	})
	require.ErrorIs(t, err, failed)

	versions, err := store.ListVersions(ctx, prompt.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestWithTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	prompt := newTestPrompt(t, store)

	err := store.WithTx(ctx, func(tx Store) error {
		_, err := tx.AppendVersion(ctx, prompt.ID, core.TextContent("v"), "alice", "msg")
		return err
	})
	require.NoError(t, err)

	versions, err := store.ListVersions(ctx, prompt.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestDeletePromptCascades(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	prompt := newTestPrompt(t, store)

	v, err := store.AppendVersion(ctx, prompt.ID, core.TextContent("v"), "alice", "msg")
	require.NoError(t, err)

	mr := &core.MergeRequest{PromptID: prompt.ID, TargetVersionID: v.ID, ProposedContent: core.TextContent("p"), AuthorID: "alice"}
	require.NoError(t, store.CreateMergeRequest(ctx, mr))
	require.NoError(t, store.CreateComment(ctx, &core.MergeRequestComment{MergeRequestID: mr.ID, AuthorID: "bob", Body: "hi"}))
	require.NoError(t, store.CreateRun(ctx, &core.PromptRun{PromptID: prompt.ID, VersionID: &v.ID, Model: "m", Success: true}))

	require.NoError(t, store.DeletePrompt(ctx, prompt.ID))

	_, err = store.GetPrompt(ctx, prompt.ID)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))

	versions, err := store.ListVersions(ctx, prompt.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)

	runs, total, err := store.ListRuns(ctx, prompt.ID, RunFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, runs)

	_, err = store.GetMergeRequest(ctx, mr.ID)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestUpsertReviewReplacesPriorVerdict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	prompt := newTestPrompt(t, store)

	v, err := store.AppendVersion(ctx, prompt.ID, core.TextContent("v"), "alice", "msg")
	require.NoError(t, err)
	mr := &core.MergeRequest{PromptID: prompt.ID, TargetVersionID: v.ID, ProposedContent: core.TextContent("p"), AuthorID: "alice"}
	require.NoError(t, store.CreateMergeRequest(ctx, mr))

	approved := true
	rejected := false
	require.NoError(t, store.UpsertReview(ctx, &core.MergeRequestReview{MergeRequestID: mr.ID, ReviewerID: "bob", Approved: &approved}))

	count, err := store.CountApprovals(ctx, mr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.UpsertReview(ctx, &core.MergeRequestReview{MergeRequestID: mr.ID, ReviewerID: "bob", Approved: &rejected}))

	count, err = store.CountApprovals(ctx, mr.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	reviews, err := store.ListReviews(ctx, mr.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestCountApprovalsIgnoresCommentOnlyReviews(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	prompt := newTestPrompt(t, store)

	v, err := store.AppendVersion(ctx, prompt.ID, core.TextContent("v"), "alice", "msg")
	require.NoError(t, err)
	mr := &core.MergeRequest{PromptID: prompt.ID, TargetVersionID: v.ID, ProposedContent: core.TextContent("p"), AuthorID: "alice"}
	require.NoError(t, store.CreateMergeRequest(ctx, mr))

	require.NoError(t, store.UpsertReview(ctx, &core.MergeRequestReview{MergeRequestID: mr.ID, ReviewerID: "bob", Comment: "looks odd"}))

	count, err := store.CountApprovals(ctx, mr.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListMergeRequestsFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	prompt := newTestPrompt(t, store)

	v, err := store.AppendVersion(ctx, prompt.ID, core.TextContent("v"), "alice", "msg")
	require.NoError(t, err)

	open := &core.MergeRequest{PromptID: prompt.ID, TargetVersionID: v.ID, ProposedContent: core.TextContent("a"), AuthorID: "alice"}
	require.NoError(t, store.CreateMergeRequest(ctx, open))

	closed := &core.MergeRequest{PromptID: prompt.ID, TargetVersionID: v.ID, ProposedContent: core.TextContent("b"), AuthorID: "alice"}
	require.NoError(t, store.CreateMergeRequest(ctx, closed))
	require.NoError(t, store.SetMergeRequestStatus(ctx, closed.ID, core.MergeStatusRejected, nil))

	all, err := store.ListMergeRequests(ctx, prompt.ID, core.FilterAll)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, closed.ID, all[0].ID, "newest first")

	openOnly, err := store.ListMergeRequests(ctx, prompt.ID, core.FilterOpen)
	require.NoError(t, err)
	require.Len(t, openOnly, 1)
	assert.Equal(t, open.ID, openOnly[0].ID)

	closedOnly, err := store.ListMergeRequests(ctx, prompt.ID, core.FilterClosed)
	require.NoError(t, err)
	require.Len(t, closedOnly, 1)
	assert.Equal(t, closed.ID, closedOnly[0].ID)
}

func TestListRunsPaginationAndDateFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	prompt := newTestPrompt(t, store)

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := &core.PromptRun{
			PromptID:  prompt.ID,
			Model:     "m",
			Success:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.CreateRun(ctx, run))
	}

	page, total, err := store.ListRuns(ctx, prompt.ID, RunFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	// newest first: offset 1 skips the newest run
	assert.Equal(t, base.Add(3*time.Hour), page[0].CreatedAt)
	assert.Equal(t, base.Add(2*time.Hour), page[1].CreatedAt)

	start := base.Add(90 * time.Minute)
	end := base.Add(210 * time.Minute)
	window, total, err := store.ListRuns(ctx, prompt.ID, RunFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, window, 2)
}
