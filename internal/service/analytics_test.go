package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/prompt-warden/internal/core"
	"github.com/sevigo/prompt-warden/internal/storage"
)

type analyticsFixture struct {
	store     storage.Store
	analytics *Analytics
	prompt    *core.Prompt
	version   *core.PromptVersion
}

func newAnalyticsFixture(t *testing.T) *analyticsFixture {
	t.Helper()

	store := storage.NewMemoryStore()
	logger := testLogger()

	content := core.TextContent("hello")
	prompt, err := NewPrompts(store, logger).Create(context.Background(), "analyzed", "", nil, &content, "alice")
	require.NoError(t, err)
	version, err := store.GetCurrentVersion(context.Background(), prompt.ID)
	require.NoError(t, err)

	return &analyticsFixture{
		store:     store,
		analytics: NewAnalytics(store, logger),
		prompt:    prompt,
		version:   version,
	}
}

func (f *analyticsFixture) addRun(t *testing.T, at time.Time, success bool, responseTime *float64) {
	t.Helper()
	run := &core.PromptRun{
		PromptID:  f.prompt.ID,
		VersionID: &f.version.ID,
		Model:     "m",
		Success:   success,
		CreatedAt: at,
		Metrics:   core.RunMetrics{ResponseTime: responseTime},
	}
	require.NoError(t, f.store.CreateRun(context.Background(), run))
}

func TestBucketKey(t *testing.T) {
	tests := []struct {
		name   string
		at     time.Time
		period Period
		want   string
	}{
		{
			name:   "day uses zero-based month",
			at:     time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC),
			period: PeriodDay,
			want:   "2025-0-15",
		},
		{
			name:   "month is zero-based",
			at:     time.Date(2025, time.December, 3, 0, 0, 0, 0, time.UTC),
			period: PeriodMonth,
			want:   "2025-11",
		},
		{
			// March 2025 starts on a Saturday (weekday 6):
			// the 1st falls into week 1, the 2nd starts week 2.
			name:   "week is month-relative",
			at:     time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
			period: PeriodWeek,
			want:   "2025-2-W1",
		},
		{
			name:   "second day of March 2025 rolls into week two",
			at:     time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC),
			period: PeriodWeek,
			want:   "2025-2-W2",
		},
		{
			// June 2025 starts on a Sunday (weekday 0): days 1-7 are week 1.
			name:   "sunday-start month keeps first seven days in week one",
			at:     time.Date(2025, time.June, 7, 0, 0, 0, 0, time.UTC),
			period: PeriodWeek,
			want:   "2025-5-W1",
		},
		{
			name:   "eighth day of a sunday-start month is week two",
			at:     time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC),
			period: PeriodWeek,
			want:   "2025-5-W2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bucketKey(tt.at, tt.period))
		})
	}
}

func TestPerformanceByPeriod(t *testing.T) {
	ctx := context.Background()
	f := newAnalyticsFixture(t)

	day1 := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	day3 := time.Date(2025, time.April, 3, 9, 0, 0, 0, time.UTC)

	f.addRun(t, day1, true, core.Float64(100))
	f.addRun(t, day1.Add(time.Hour), false, nil)
	f.addRun(t, day3, true, core.Float64(300))

	stats, err := f.analytics.PerformanceByPeriod(ctx, f.prompt.ID, PeriodDay)
	require.NoError(t, err)
	require.Len(t, stats, 2, "empty buckets between runs are not emitted")

	assert.Equal(t, "2025-3-1", stats[0].Bucket)
	assert.Equal(t, 2, stats[0].TotalRuns)
	assert.InDelta(t, 0.5, stats[0].SuccessRate, 1e-9)
	assert.InDelta(t, 100, stats[0].AvgMetrics["responseTime"], 1e-9)

	assert.Equal(t, "2025-3-3", stats[1].Bucket)
	assert.Equal(t, 1, stats[1].TotalRuns)
	assert.InDelta(t, 1.0, stats[1].SuccessRate, 1e-9)
}

func TestPerformanceByPeriodValidation(t *testing.T) {
	ctx := context.Background()
	f := newAnalyticsFixture(t)

	_, err := f.analytics.PerformanceByPeriod(ctx, f.prompt.ID, "year")
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	_, err = f.analytics.PerformanceByPeriod(ctx, "missing", PeriodDay)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestAverageMetricsSkipsAbsentValues(t *testing.T) {
	ctx := context.Background()
	f := newAnalyticsFixture(t)

	at := time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)
	f.addRun(t, at, true, core.Float64(80))
	f.addRun(t, at.Add(time.Minute), true, nil)

	stats, err := f.analytics.PerformanceByPeriod(ctx, f.prompt.ID, PeriodDay)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	// the nil measurement does not drag the mean down
	assert.InDelta(t, 80, stats[0].AvgMetrics["responseTime"], 1e-9)
	_, present := stats[0].AvgMetrics["tokenCount"]
	assert.False(t, present, "unreported metrics are absent, not zero")
}

func TestVersionComparison(t *testing.T) {
	ctx := context.Background()
	f := newAnalyticsFixture(t)

	v2, err := f.store.AppendVersion(ctx, f.prompt.ID, core.TextContent("v2"), "alice", "update")
	require.NoError(t, err)

	at := time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)
	f.addRun(t, at, true, core.Float64(100))
	f.addRun(t, at.Add(time.Minute), false, nil)

	run := &core.PromptRun{
		PromptID:  f.prompt.ID,
		VersionID: &v2.ID,
		Model:     "m",
		Success:   true,
		CreatedAt: at.Add(2 * time.Minute),
		Metrics:   core.RunMetrics{ResponseTime: core.Float64(50)},
	}
	require.NoError(t, f.store.CreateRun(ctx, run))

	stats, err := f.analytics.VersionComparison(ctx, f.prompt.ID, []string{v2.ID, f.version.ID, "unknown"})
	require.NoError(t, err)
	require.Len(t, stats, 3)

	// rows come back in input order
	assert.Equal(t, v2.ID, stats[0].VersionID)
	assert.Equal(t, 1, stats[0].TotalRuns)
	assert.InDelta(t, 1.0, stats[0].SuccessRate, 1e-9)

	assert.Equal(t, f.version.ID, stats[1].VersionID)
	assert.Equal(t, 2, stats[1].TotalRuns)
	assert.InDelta(t, 0.5, stats[1].SuccessRate, 1e-9)

	// unknown versions yield a zero row instead of an error
	assert.Equal(t, "unknown", stats[2].VersionID)
	assert.Zero(t, stats[2].TotalRuns)
	assert.Zero(t, stats[2].SuccessRate)
	assert.Empty(t, stats[2].AvgMetrics)
}

func TestVersionComparisonRequiresIDs(t *testing.T) {
	ctx := context.Background()
	f := newAnalyticsFixture(t)

	_, err := f.analytics.VersionComparison(ctx, f.prompt.ID, nil)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}

func TestRunHistory(t *testing.T) {
	ctx := context.Background()
	f := newAnalyticsFixture(t)

	base := time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		f.addRun(t, base.Add(time.Duration(i)*time.Hour), true, nil)
	}

	runs, total, err := f.analytics.RunHistory(ctx, f.prompt.ID, storage.RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, runs, 2)
	assert.Equal(t, base.Add(2*time.Hour), runs[0].CreatedAt, "newest first")

	start := base.Add(time.Hour)
	end := base
	_, _, err = f.analytics.RunHistory(ctx, f.prompt.ID, storage.RunFilter{StartDate: &start, EndDate: &end})
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}
