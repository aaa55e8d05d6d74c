package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/config"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/crawler"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/dedup"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/quality"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/repos"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
	"gorm.io/gorm"
)

type orchestratorFixture struct {
	db        *gorm.DB
	registry  *crawler.Registry
	materials repos.MaterialRepo
	mappings  repos.MappingRepo
	runs      repos.CrawlRunRepo
	syllabus  repos.SyllabusRepo
	orch      *CrawlOrchestrator
}

func newOrchestratorFixture(t *testing.T, sources ...crawler.SourceCrawler) *orchestratorFixture {
	t.Helper()
	db := openTestDB(t)
	log := testLogger()

	registry := crawler.NewRegistry()
	for _, src := range sources {
		registry.Register(src)
	}

	f := &orchestratorFixture{
		db:        db,
		registry:  registry,
		materials: repos.NewMaterialRepo(db, log),
		mappings:  repos.NewMappingRepo(db, log),
		runs:      repos.NewCrawlRunRepo(db, log),
		syllabus:  repos.NewSyllabusRepo(db, log),
	}
	f.orch = NewCrawlOrchestrator(
		db, log, registry,
		f.materials, f.mappings, f.runs, f.syllabus,
		quality.NewScorer(log, config.Default().Quality),
		config.Default().AutoMap,
	)
	return f
}

func TestRunCrawlPersistsAndDeduplicatesBatch(t *testing.T) {
	src := &fakeSource{
		name: "dummy",
		items: []crawler.RawItem{
			rawItem("dummy", map[string]any{"title": "Intro to Graphs", "url": "https://example.com/graphs", "content": "graph theory basics"}),
			rawItem("dummy", map[string]any{"title": "Intro to Graphs (repost)", "url": "https://example.com/graphs?utm_source=feed", "content": "graph theory basics again"}),
			rawItem("dummy", map[string]any{"title": "Sorting Algorithms", "url": "https://example.com/sorting", "content": "quicksort and mergesort"}),
		},
	}
	f := newOrchestratorFixture(t, src)

	run, err := f.orch.RunCrawl(context.Background(), "dummy", "algorithms", 10)
	if err != nil {
		t.Fatalf("RunCrawl: %v", err)
	}
	if run == nil {
		t.Fatal("expected a run record")
	}
	if run.Status != types.CrawlRunStatusCompleted {
		t.Fatalf("status = %q, want completed", run.Status)
	}
	if run.ItemsFetched != 2 {
		t.Fatalf("items_fetched = %d, want 2 (tracking-param duplicate collapsed)", run.ItemsFetched)
	}

	all, err := f.materials.ListAll(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("materials = %d, want 2", len(all))
	}
	for _, m := range all {
		if m.QualityScore < 0 || m.QualityScore > 1 {
			t.Fatalf("quality score %f out of [0,1]", m.QualityScore)
		}
		if m.ContentHash == "" {
			t.Fatalf("material %s missing content hash", m.ID)
		}
	}
}

func TestRunCrawlUnknownSourceIsNoOp(t *testing.T) {
	f := newOrchestratorFixture(t)

	run, err := f.orch.RunCrawl(context.Background(), "nonexistent", "q", 5)
	if err != nil {
		t.Fatalf("RunCrawl: %v", err)
	}
	if run != nil {
		t.Fatalf("run = %+v, want nil", run)
	}

	logs, err := f.runs.ListRecent(context.Background(), nil, "", "", 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("crawl runs = %d, want 0", len(logs))
	}
}

func TestRunCrawlFetchFailureClosesRunFailed(t *testing.T) {
	src := &fakeSource{name: "flaky", fetchErr: errors.New("upstream 503")}
	f := newOrchestratorFixture(t, src)

	run, err := f.orch.RunCrawl(context.Background(), "flaky", "q", 5)
	if err != nil {
		t.Fatalf("RunCrawl: %v", err)
	}
	if run.Status != types.CrawlRunStatusFailed {
		t.Fatalf("status = %q, want failed", run.Status)
	}
	if run.ErrorMessage == "" {
		t.Fatal("expected error message on failed run")
	}
	if run.ItemsFetched != 0 {
		t.Fatalf("items_fetched = %d, want 0", run.ItemsFetched)
	}

	stored, err := f.runs.ListRecent(context.Background(), nil, "flaky", types.CrawlRunStatusFailed, 1)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(stored) != 1 || stored[0].FinishedAt == nil {
		t.Fatalf("stored run = %+v, want one finished failed run", stored)
	}
}

func TestRunCrawlSkipsExistingURLAndContentHash(t *testing.T) {
	src := &fakeSource{
		name: "dummy",
		items: []crawler.RawItem{
			rawItem("dummy", map[string]any{"title": "Known Page", "url": "https://example.com/known", "content": "already stored"}),
			rawItem("dummy", map[string]any{"title": "Mirror Copy", "url": "https://mirror.example.org/copy", "content": "Same   Body Text"}),
		},
	}
	f := newOrchestratorFixture(t, src)

	ctx := context.Background()
	seedURL := &types.Material{Title: "Known Page", URL: "https://example.com/known", ContentHash: "unrelated"}
	if _, err := f.materials.Create(ctx, nil, seedURL); err != nil {
		t.Fatalf("seed url material: %v", err)
	}
	seedHash := &types.Material{
		Title:       "Original Body",
		URL:         "https://origin.example.net/original",
		ContentHash: dedup.ContentHash("Same   Body Text"),
	}
	if _, err := f.materials.Create(ctx, nil, seedHash); err != nil {
		t.Fatalf("seed hash material: %v", err)
	}

	run, err := f.orch.RunCrawl(ctx, "dummy", "q", 10)
	if err != nil {
		t.Fatalf("RunCrawl: %v", err)
	}
	if run.Status != types.CrawlRunStatusCompleted {
		t.Fatalf("status = %q, want completed", run.Status)
	}
	if run.ItemsFetched != 0 {
		t.Fatalf("items_fetched = %d, want 0 (both items are duplicates)", run.ItemsFetched)
	}

	all, err := f.materials.ListAll(ctx, nil, 0)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("materials = %d, want the 2 seeds only", len(all))
	}
}

func TestRunCrawlAutoMapsKeywordMatches(t *testing.T) {
	src := &fakeSource{
		name: "dummy",
		items: []crawler.RawItem{
			rawItem("dummy", map[string]any{
				"title":   "Neural Network Tutorial for Beginners",
				"url":     "https://example.com/nn-tutorial",
				"content": "A gentle introduction to neural network training and backpropagation.",
			}),
		},
	}
	f := newOrchestratorFixture(t, src)
	ctx := context.Background()

	courseID := uuid.New()
	matching := &types.SyllabusTopic{
		CourseID:   courseID,
		WeekNumber: 3,
		TopicTitle: "Neural Network Fundamentals",
		Active:     true,
	}
	unrelated := &types.SyllabusTopic{
		CourseID:   courseID,
		WeekNumber: 7,
		TopicTitle: "Relational Database Design",
		Active:     true,
	}
	if err := f.db.Create(matching).Error; err != nil {
		t.Fatalf("seed topic: %v", err)
	}
	if err := f.db.Create(unrelated).Error; err != nil {
		t.Fatalf("seed topic: %v", err)
	}

	if _, err := f.orch.RunCrawl(ctx, "dummy", "neural networks", 10); err != nil {
		t.Fatalf("RunCrawl: %v", err)
	}

	var mappings []types.MaterialTopicMapping
	if err := f.db.Find(&mappings).Error; err != nil {
		t.Fatalf("load mappings: %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("mappings = %d, want 1 (only the keyword-matching topic)", len(mappings))
	}
	got := mappings[0]
	if got.WeekNumber != 3 {
		t.Fatalf("mapped week = %d, want 3", got.WeekNumber)
	}
	if got.Approved {
		t.Fatal("auto-created mapping must be pending, not approved")
	}
	if got.RelevanceScore <= 0 || got.RelevanceScore > 1 {
		t.Fatalf("relevance = %f, want in (0,1]", got.RelevanceScore)
	}
}

func TestRunCrawlAutoMapThresholdRoundsUp(t *testing.T) {
	src := &fakeSource{
		name: "dummy",
		items: []crawler.RawItem{
			rawItem("dummy", map[string]any{
				"title":   "Neural style learning guide",
				"url":     "https://example.com/neural-style",
				"content": "Covers neural representations and transfer learning basics.",
			}),
		},
	}
	f := newOrchestratorFixture(t, src)
	ctx := context.Background()

	courseID := uuid.New()
	// Four significant keywords; two matched clears ceil(4/2) = 2.
	fourKeyword := &types.SyllabusTopic{
		CourseID:   courseID,
		WeekNumber: 2,
		TopicTitle: "Neural Networks and Deep Learning",
		Active:     true,
	}
	// Five significant keywords; two matched falls short of ceil(5/2) = 3.
	fiveKeyword := &types.SyllabusTopic{
		CourseID:   courseID,
		WeekNumber: 5,
		TopicTitle: "Neural Learning Optimization Gradient Methods",
		Active:     true,
	}
	if err := f.db.Create(fourKeyword).Error; err != nil {
		t.Fatalf("seed topic: %v", err)
	}
	if err := f.db.Create(fiveKeyword).Error; err != nil {
		t.Fatalf("seed topic: %v", err)
	}

	if _, err := f.orch.RunCrawl(ctx, "dummy", "neural", 10); err != nil {
		t.Fatalf("RunCrawl: %v", err)
	}

	var mappings []types.MaterialTopicMapping
	if err := f.db.Find(&mappings).Error; err != nil {
		t.Fatalf("load mappings: %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("mappings = %d, want 1 (five-keyword topic needs 3 matches)", len(mappings))
	}
	got := mappings[0]
	if got.WeekNumber != 2 {
		t.Fatalf("mapped week = %d, want 2", got.WeekNumber)
	}
	if got.RelevanceScore != 0.5 {
		t.Fatalf("relevance = %f, want 0.5 (2 of 4 keywords)", got.RelevanceScore)
	}
}
