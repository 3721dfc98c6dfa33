package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/prompt-warden/internal/core"
)

// memoryStore is a mutex-guarded in-memory Store used by tests and local
// experimentation. WithTx runs the callback against a copy of the data and
// swaps it in on success, so a failed callback leaves no partial state.
type memoryStore struct {
	mu   *sync.Mutex
	data *memoryData
	inTx bool
}

type memoryData struct {
	prompts       map[string]core.Prompt
	versions      []core.PromptVersion
	mergeRequests []core.MergeRequest
	reviews       []core.MergeRequestReview
	comments      []core.MergeRequestComment
	runs          []core.PromptRun
}

// NewMemoryStore creates an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		mu:   &sync.Mutex{},
		data: &memoryData{prompts: make(map[string]core.Prompt)},
	}
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		prompts:       make(map[string]core.Prompt, len(d.prompts)),
		versions:      append([]core.PromptVersion(nil), d.versions...),
		mergeRequests: append([]core.MergeRequest(nil), d.mergeRequests...),
		reviews:       append([]core.MergeRequestReview(nil), d.reviews...),
		comments:      append([]core.MergeRequestComment(nil), d.comments...),
		runs:          append([]core.PromptRun(nil), d.runs...),
	}
	for id, p := range d.prompts {
		c.prompts[id] = p
	}
	return c
}

func (s *memoryStore) WithTx(_ context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scratch := s.data.clone()
	if err := fn(&memoryStore{mu: s.mu, data: scratch, inTx: true}); err != nil {
		return err
	}
	s.data = scratch
	return nil
}

func (s *memoryStore) locked(fn func(d *memoryData) error) error {
	if s.inTx {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *memoryStore) CreatePrompt(_ context.Context, prompt *core.Prompt) error {
	return s.locked(func(d *memoryData) error {
		if prompt.ID == "" {
			prompt.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		prompt.CreatedAt = now
		prompt.UpdatedAt = now
		d.prompts[prompt.ID] = *prompt
		return nil
	})
}

func (s *memoryStore) GetPrompt(_ context.Context, id string) (*core.Prompt, error) {
	var prompt *core.Prompt
	err := s.locked(func(d *memoryData) error {
		p, ok := d.prompts[id]
		if !ok {
			return core.NotFoundf("prompt %s not found", id)
		}
		prompt = &p
		return nil
	})
	return prompt, err
}

func (s *memoryStore) UpdatePrompt(_ context.Context, prompt *core.Prompt) error {
	return s.locked(func(d *memoryData) error {
		existing, ok := d.prompts[prompt.ID]
		if !ok {
			return core.NotFoundf("prompt %s not found", prompt.ID)
		}
		prompt.CreatedAt = existing.CreatedAt
		prompt.UpdatedAt = time.Now().UTC()
		d.prompts[prompt.ID] = *prompt
		return nil
	})
}

func (s *memoryStore) DeletePrompt(_ context.Context, id string) error {
	return s.locked(func(d *memoryData) error {
		if _, ok := d.prompts[id]; !ok {
			return core.NotFoundf("prompt %s not found", id)
		}
		delete(d.prompts, id)

		d.versions = filterSlice(d.versions, func(v core.PromptVersion) bool { return v.PromptID != id })
		d.runs = filterSlice(d.runs, func(r core.PromptRun) bool { return r.PromptID != id })

		removed := make(map[string]struct{})
		d.mergeRequests = filterSlice(d.mergeRequests, func(mr core.MergeRequest) bool {
			if mr.PromptID == id {
				removed[mr.ID] = struct{}{}
				return false
			}
			return true
		})
		d.reviews = filterSlice(d.reviews, func(r core.MergeRequestReview) bool {
			_, gone := removed[r.MergeRequestID]
			return !gone
		})
		d.comments = filterSlice(d.comments, func(c core.MergeRequestComment) bool {
			_, gone := removed[c.MergeRequestID]
			return !gone
		})
		return nil
	})
}

func (s *memoryStore) AppendVersion(_ context.Context, promptID string, content core.PromptContent, authorID, commitMessage string) (*core.PromptVersion, error) {
	var version *core.PromptVersion
	err := s.locked(func(d *memoryData) error {
		if _, ok := d.prompts[promptID]; !ok {
			return core.NotFoundf("prompt %s not found", promptID)
		}

		maxNumber := 0
		for _, v := range d.versions {
			if v.PromptID == promptID && v.VersionNumber > maxNumber {
				maxNumber = v.VersionNumber
			}
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
		d.versions = append(d.versions, v)
		version = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

func (s *memoryStore) GetVersion(_ context.Context, versionID string) (*core.PromptVersion, error) {
	var version *core.PromptVersion
	err := s.locked(func(d *memoryData) error {
		for _, v := range d.versions {
			if v.ID == versionID {
				cp := v
				version = &cp
				return nil
			}
		}
		return core.NotFoundf("version %s not found", versionID)
	})
	return version, err
}

func (s *memoryStore) GetCurrentVersion(_ context.Context, promptID string) (*core.PromptVersion, error) {
	var version *core.PromptVersion
	err := s.locked(func(d *memoryData) error {
		for _, v := range d.versions {
			if v.PromptID == promptID && (version == nil || v.VersionNumber > version.VersionNumber) {
				cp := v
				version = &cp
			}
		}
		return nil
	})
	return version, err
}

func (s *memoryStore) ListVersions(_ context.Context, promptID string) ([]core.PromptVersion, error) {
	var versions []core.PromptVersion
	err := s.locked(func(d *memoryData) error {
		for _, v := range d.versions {
			if v.PromptID == promptID {
				versions = append(versions, v)
			}
		}
		sort.Slice(versions, func(i, j int) bool {
			return versions[i].VersionNumber > versions[j].VersionNumber
		})
		return nil
	})
	return versions, err
}

func (s *memoryStore) CreateMergeRequest(_ context.Context, mr *core.MergeRequest) error {
	return s.locked(func(d *memoryData) error {
		if mr.ID == "" {
			mr.ID = uuid.NewString()
		}
		mr.Status = core.MergeStatusOpen
		mr.CreatedAt = time.Now().UTC()
		d.mergeRequests = append(d.mergeRequests, *mr)
		return nil
	})
}

func (s *memoryStore) GetMergeRequest(ctx context.Context, id string) (*core.MergeRequest, error) {
	var mr *core.MergeRequest
	err := s.locked(func(d *memoryData) error {
		for _, m := range d.mergeRequests {
			if m.ID == id {
				cp := m
				mr = &cp
				return nil
			}
		}
		return core.NotFoundf("merge request %s not found", id)
	})
	return mr, err
}

func (s *memoryStore) GetMergeRequestForUpdate(ctx context.Context, id string) (*core.MergeRequest, error) {
	return s.GetMergeRequest(ctx, id)
}

func (s *memoryStore) SetMergeRequestStatus(_ context.Context, id string, status core.MergeStatus, mergedAt *time.Time) error {
	return s.locked(func(d *memoryData) error {
		for i, m := range d.mergeRequests {
			if m.ID == id {
				d.mergeRequests[i].Status = status
				d.mergeRequests[i].MergedAt = mergedAt
				return nil
			}
		}
		return core.NotFoundf("merge request %s not found", id)
	})
}

func (s *memoryStore) ListMergeRequests(_ context.Context, promptID string, filter core.MergeRequestFilter) ([]core.MergeRequest, error) {
	var mrs []core.MergeRequest
	err := s.locked(func(d *memoryData) error {
		for _, m := range d.mergeRequests {
			if m.PromptID != promptID {
				continue
			}
			switch filter {
			case core.FilterOpen:
				if m.Status != core.MergeStatusOpen {
					continue
				}
			case core.FilterClosed:
				if m.Status == core.MergeStatusOpen {
					continue
				}
			}
			mrs = append(mrs, m)
		}
		// newest first, matching the postgres ordering
		for i, j := 0, len(mrs)-1; i < j; i, j = i+1, j-1 {
			mrs[i], mrs[j] = mrs[j], mrs[i]
		}
		return nil
	})
	return mrs, err
}

func (s *memoryStore) UpsertReview(_ context.Context, review *core.MergeRequestReview) error {
	return s.locked(func(d *memoryData) error {
		review.ReviewedAt = time.Now().UTC()
		for i, r := range d.reviews {
			if r.MergeRequestID == review.MergeRequestID && r.ReviewerID == review.ReviewerID {
				review.ID = r.ID
				d.reviews[i] = *review
				return nil
			}
		}
		if review.ID == "" {
			review.ID = uuid.NewString()
		}
		d.reviews = append(d.reviews, *review)
		return nil
	})
}

func (s *memoryStore) ListReviews(_ context.Context, mergeRequestID string) ([]core.MergeRequestReview, error) {
	var reviews []core.MergeRequestReview
	err := s.locked(func(d *memoryData) error {
		for _, r := range d.reviews {
			if r.MergeRequestID == mergeRequestID {
				reviews = append(reviews, r)
			}
		}
		return nil
	})
	return reviews, err
}

func (s *memoryStore) CountApprovals(_ context.Context, mergeRequestID string) (int, error) {
	count := 0
	err := s.locked(func(d *memoryData) error {
		for _, r := range d.reviews {
			if r.MergeRequestID == mergeRequestID && r.Approved != nil && *r.Approved {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (s *memoryStore) CreateComment(_ context.Context, comment *core.MergeRequestComment) error {
	return s.locked(func(d *memoryData) error {
		if comment.ID == "" {
			comment.ID = uuid.NewString()
		}
		comment.CreatedAt = time.Now().UTC()
		d.comments = append(d.comments, *comment)
		return nil
	})
}

func (s *memoryStore) ListComments(_ context.Context, mergeRequestID string) ([]core.MergeRequestComment, error) {
	var comments []core.MergeRequestComment
	err := s.locked(func(d *memoryData) error {
		for _, c := range d.comments {
			if c.MergeRequestID == mergeRequestID {
				comments = append(comments, c)
			}
		}
		return nil
	})
	return comments, err
}

func (s *memoryStore) CreateRun(_ context.Context, run *core.PromptRun) error {
	return s.locked(func(d *memoryData) error {
		if run.ID == "" {
			run.ID = uuid.NewString()
		}
		if run.CreatedAt.IsZero() {
			run.CreatedAt = time.Now().UTC()
		}
		d.runs = append(d.runs, *run)
		return nil
	})
}

func (s *memoryStore) ListRuns(_ context.Context, promptID string, filter RunFilter) ([]core.PromptRun, int, error) {
	var page []core.PromptRun
	total := 0
	err := s.locked(func(d *memoryData) error {
		var matched []core.PromptRun
		for _, r := range d.runs {
			if r.PromptID != promptID {
				continue
			}
			if filter.StartDate != nil && r.CreatedAt.Before(*filter.StartDate) {
				continue
			}
			if filter.EndDate != nil && r.CreatedAt.After(*filter.EndDate) {
				continue
			}
			matched = append(matched, r)
		}
		total = len(matched)

		// runs are appended in time order; reverse for newest-first
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}

		if filter.Offset > 0 {
			if filter.Offset >= len(matched) {
				matched = nil
			} else {
				matched = matched[filter.Offset:]
			}
		}
		if filter.Limit > 0 && filter.Limit < len(matched) {
			matched = matched[:filter.Limit]
		}
		page = matched
		return nil
	})
	return page, total, err
}

func (s *memoryStore) ListRunsAscending(_ context.Context, promptID string) ([]core.PromptRun, error) {
	var runs []core.PromptRun
	err := s.locked(func(d *memoryData) error {
		for _, r := range d.runs {
			if r.PromptID == promptID {
				runs = append(runs, r)
			}
		}
		return nil
	})
	return runs, err
}

func (s *memoryStore) ListRunsByVersions(_ context.Context, promptID string, versionIDs []string) ([]core.PromptRun, error) {
	wanted := make(map[string]struct{}, len(versionIDs))
	for _, id := range versionIDs {
		wanted[id] = struct{}{}
	}

	var runs []core.PromptRun
	err := s.locked(func(d *memoryData) error {
		for _, r := range d.runs {
			if r.PromptID != promptID || r.VersionID == nil {
				continue
			}
			if _, ok := wanted[*r.VersionID]; ok {
				runs = append(runs, r)
			}
		}
		return nil
	})
	return runs, err
}

func filterSlice[T any](items []T, keep func(T) bool) []T {
	out := items[:0]
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
