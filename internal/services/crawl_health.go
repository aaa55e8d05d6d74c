package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/crawler"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/repos"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

// SourceHealth is one source's aggregate over a health window.
type SourceHealth struct {
	Source         string  `json:"source"`
	TotalRuns      int     `json:"total_runs"`
	CompletedRuns  int     `json:"completed_runs"`
	FailedRuns     int     `json:"failed_runs"`
	RunningRuns    int     `json:"running_runs"`
	ItemsFetched   int     `json:"items_fetched"`
	SuccessRatePct float64 `json:"success_rate_pct"`
}

// HealthSummary is the operator-facing rollup across all sources.
type HealthSummary struct {
	WindowStart time.Time      `json:"window_start"`
	WindowEnd   time.Time      `json:"window_end"`
	Sources     []SourceHealth `json:"sources"`
}

// SourceStats extends SourceHealth with averages and recent error samples
// for a single source.
type SourceStats struct {
	SourceHealth
	AvgItemsPerRun     float64  `json:"avg_items_per_run"`
	AvgRunDurationSecs float64  `json:"avg_run_duration_secs"`
	RecentErrors       []string `json:"recent_errors,omitempty"`
}

// CrawlHealthService answers observability queries over crawl run history.
type CrawlHealthService struct {
	log      *logger.Logger
	runs     repos.CrawlRunRepo
	registry *crawler.Registry
	now      func() time.Time
}

func NewCrawlHealthService(baseLog *logger.Logger, runs repos.CrawlRunRepo, registry *crawler.Registry) *CrawlHealthService {
	return &CrawlHealthService{
		log:      baseLog.With("service", "CrawlHealthService"),
		runs:     runs,
		registry: registry,
		now:      time.Now,
	}
}

// Summary aggregates the last `window` of crawl runs per source. Registered
// sources with no runs in the window still appear, at a 100% success rate,
// so a silent source is visible rather than missing.
func (s *CrawlHealthService) Summary(ctx context.Context, window time.Duration) (*HealthSummary, error) {
	if window <= 0 {
		window = 24 * time.Hour
	}
	end := s.now().UTC()
	start := end.Add(-window)

	runs, err := s.runs.ListSince(ctx, nil, "", start)
	if err != nil {
		return nil, fmt.Errorf("list crawl runs: %w", err)
	}

	bySource := map[string]*SourceHealth{}
	for _, name := range s.registry.Names() {
		bySource[name] = &SourceHealth{Source: name}
	}
	for _, run := range runs {
		h, ok := bySource[run.SourceType]
		if !ok {
			h = &SourceHealth{Source: run.SourceType}
			bySource[run.SourceType] = h
		}
		accumulate(h, run)
	}

	summary := &HealthSummary{WindowStart: start, WindowEnd: end}
	for _, name := range sortedKeys(bySource) {
		h := bySource[name]
		h.SuccessRatePct = successRate(h.CompletedRuns, h.FailedRuns)
		summary.Sources = append(summary.Sources, *h)
	}
	return summary, nil
}

// RecentLogs returns the most recent runs, optionally filtered by source
// and status.
func (s *CrawlHealthService) RecentLogs(ctx context.Context, source, status string, limit int) ([]*types.CrawlRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.runs.ListRecent(ctx, nil, source, status, limit)
}

// Stats computes per-source averages and recent error samples over a window.
func (s *CrawlHealthService) Stats(ctx context.Context, source string, window time.Duration) (*SourceStats, error) {
	if source == "" {
		return nil, fmt.Errorf("source is required")
	}
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	start := s.now().UTC().Add(-window)

	runs, err := s.runs.ListSince(ctx, nil, source, start)
	if err != nil {
		return nil, fmt.Errorf("list crawl runs: %w", err)
	}

	stats := &SourceStats{SourceHealth: SourceHealth{Source: source}}
	var durationSum float64
	var finished int
	for _, run := range runs {
		accumulate(&stats.SourceHealth, run)
		if run.FinishedAt != nil {
			durationSum += run.FinishedAt.Sub(run.StartedAt).Seconds()
			finished++
		}
		if run.Status == types.CrawlRunStatusFailed && run.ErrorMessage != "" && len(stats.RecentErrors) < 5 {
			stats.RecentErrors = append(stats.RecentErrors, run.ErrorMessage)
		}
	}

	stats.SuccessRatePct = successRate(stats.CompletedRuns, stats.FailedRuns)
	if stats.TotalRuns > 0 {
		stats.AvgItemsPerRun = float64(stats.ItemsFetched) / float64(stats.TotalRuns)
	}
	if finished > 0 {
		stats.AvgRunDurationSecs = durationSum / float64(finished)
	}
	return stats, nil
}

func accumulate(h *SourceHealth, run *types.CrawlRun) {
	h.TotalRuns++
	h.ItemsFetched += run.ItemsFetched
	switch run.Status {
	case types.CrawlRunStatusCompleted:
		h.CompletedRuns++
	case types.CrawlRunStatusFailed:
		h.FailedRuns++
	case types.CrawlRunStatusRunning:
		h.RunningRuns++
	}
}

// successRate ignores in-flight runs. A source with no finished runs in
// the window reads as healthy.
func successRate(completed, failed int) float64 {
	total := completed + failed
	if total == 0 {
		return 100.0
	}
	return float64(completed) / float64(total) * 100.0
}

func sortedKeys(m map[string]*SourceHealth) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
