package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/prompt-warden/internal/core"
	"github.com/sevigo/prompt-warden/internal/storage"
)

// Period selects the time-bucket granularity for performance aggregation.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Analytics aggregates the run ledger into performance summaries.
//
// Bucket keys intentionally reproduce the original platform's format:
// months are zero-based, and the week index is month-relative
// (ceil((dayOfMonth + weekday offset of the 1st) / 7)), not ISO-8601.
// Behavior compatibility wins over calendar correctness here.
type Analytics struct {
	store  storage.Store
	logger *slog.Logger
}

// NewAnalytics creates the analytics service.
func NewAnalytics(store storage.Store, logger *slog.Logger) *Analytics {
	return &Analytics{store: store, logger: logger}
}

// averagedMetrics is the fixed set of per-run measurements analytics
// averages over.
var averagedMetrics = []string{
	"responseTime",
	"tokenCount",
	"tokenUsage",
	"completionRate",
	"userSatisfactionScore",
}

// BucketStats summarizes the runs falling into one time bucket. AvgMetrics
// holds the mean of each reported metric; metrics no run in the bucket
// reports are absent.
type BucketStats struct {
	Bucket      string             `json:"bucket"`
	TotalRuns   int                `json:"totalRuns"`
	SuccessRate float64            `json:"successRate"`
	AvgMetrics  map[string]float64 `json:"avgMetrics"`
}

// VersionStats summarizes the runs of one version. Versions with no runs
// still produce a row with zero totals.
type VersionStats struct {
	VersionID   string             `json:"versionId"`
	TotalRuns   int                `json:"totalRuns"`
	SuccessRate float64            `json:"successRate"`
	AvgMetrics  map[string]float64 `json:"avgMetrics"`
}

// PerformanceByPeriod groups the prompt's runs into day, week, or month
// buckets in first-seen (chronological) order. Buckets with zero runs are
// never emitted.
func (s *Analytics) PerformanceByPeriod(ctx context.Context, promptID string, period Period) ([]BucketStats, error) {
	switch period {
	case PeriodDay, PeriodWeek, PeriodMonth:
	default:
		return nil, core.Validationf("unknown period %q, want day, week, or month", period)
	}

	if _, err := s.store.GetPrompt(ctx, promptID); err != nil {
		return nil, err
	}
	runs, err := s.store.ListRunsAscending(ctx, promptID)
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string][]core.PromptRun)
	for _, run := range runs {
		key := bucketKey(run.CreatedAt.UTC(), period)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], run)
	}

	stats := make([]BucketStats, 0, len(order))
	for _, key := range order {
		bucket := groups[key]
		stats = append(stats, BucketStats{
			Bucket:      key,
			TotalRuns:   len(bucket),
			SuccessRate: successRate(bucket),
			AvgMetrics:  averageMetrics(bucket),
		})
	}
	return stats, nil
}

// VersionComparison summarizes runs per requested version, in input order.
func (s *Analytics) VersionComparison(ctx context.Context, promptID string, versionIDs []string) ([]VersionStats, error) {
	if len(versionIDs) == 0 {
		return nil, core.Validationf("at least one version id is required")
	}

	if _, err := s.store.GetPrompt(ctx, promptID); err != nil {
		return nil, err
	}
	runs, err := s.store.ListRunsByVersions(ctx, promptID, versionIDs)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string][]core.PromptRun)
	for _, run := range runs {
		if run.VersionID == nil {
			continue
		}
		byVersion[*run.VersionID] = append(byVersion[*run.VersionID], run)
	}

	stats := make([]VersionStats, 0, len(versionIDs))
	for _, versionID := range versionIDs {
		group := byVersion[versionID]
		stats = append(stats, VersionStats{
			VersionID:   versionID,
			TotalRuns:   len(group),
			SuccessRate: successRate(group),
			AvgMetrics:  averageMetrics(group),
		})
	}
	return stats, nil
}

// RunHistory returns a filtered page of the run ledger, newest first, along
// with the total number of matching runs.
func (s *Analytics) RunHistory(ctx context.Context, promptID string, filter storage.RunFilter) ([]core.PromptRun, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, 0, core.Validationf("endDate must not be before startDate")
	}

	if _, err := s.store.GetPrompt(ctx, promptID); err != nil {
		return nil, 0, err
	}
	return s.store.ListRuns(ctx, promptID, filter)
}

// bucketKey derives the grouping key for a run timestamp. Months are
// zero-based throughout.
func bucketKey(t time.Time, period Period) string {
	year := t.Year()
	month := int(t.Month()) - 1

	switch period {
	case PeriodDay:
		return fmt.Sprintf("%d-%d-%d", year, month, t.Day())
	case PeriodWeek:
		firstWeekday := int(time.Date(year, t.Month(), 1, 0, 0, 0, 0, t.Location()).Weekday())
		week := (t.Day() + firstWeekday + 6) / 7
		return fmt.Sprintf("%d-%d-W%d", year, month, week)
	default:
		return fmt.Sprintf("%d-%d", year, month)
	}
}

func successRate(runs []core.PromptRun) float64 {
	if len(runs) == 0 {
		return 0
	}
	successful := 0
	for _, run := range runs {
		if run.Success {
			successful++
		}
	}
	return float64(successful) / float64(len(runs))
}

// averageMetrics means each reported metric over the group; nil values do
// not count toward the denominator.
func averageMetrics(runs []core.PromptRun) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, run := range runs {
		for _, name := range averagedMetrics {
			if value := metricValue(run.Metrics, name); value != nil {
				sums[name] += *value
				counts[name]++
			}
		}
	}

	averages := make(map[string]float64, len(sums))
	for name, sum := range sums {
		averages[name] = sum / float64(counts[name])
	}
	return averages
}

func metricValue(m core.RunMetrics, name string) *float64 {
	switch name {
	case "responseTime":
		return m.ResponseTime
	case "tokenCount":
		return m.TokenCount
	case "tokenUsage":
		return m.TokenUsage
	case "completionRate":
		return m.CompletionRate
	case "userSatisfactionScore":
		return m.UserSatisfactionScore
	default:
		return nil
	}
}
