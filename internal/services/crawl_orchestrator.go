package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/config"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/crawler"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/dedup"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/quality"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/repos"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

const maxErrorMessageLen = 2000

var defaultStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"into": true, "that": true, "this": true, "are": true, "was": true,
	"its": true, "has": true, "have": true, "will": true, "can": true,
	"not": true, "but": true, "all": true, "any": true, "our": true,
	"per": true, "via": true, "use": true, "using": true, "how": true,
	"what": true, "why": true, "when": true, "where": true, "week": true,
}

// CrawlOrchestrator owns the crawl lifecycle for one (source, query)
// invocation: fetch, parse, dedupe, persist, auto-map, with exactly one
// CrawlRun record opened at the start and closed at the end.
type CrawlOrchestrator struct {
	db        *gorm.DB
	log       *logger.Logger
	registry  *crawler.Registry
	materials repos.MaterialRepo
	mappings  repos.MappingRepo
	runs      repos.CrawlRunRepo
	syllabus  repos.SyllabusRepo
	scorer    *quality.Scorer
	stopWords map[string]bool
	tracer    trace.Tracer
}

func NewCrawlOrchestrator(
	db *gorm.DB,
	baseLog *logger.Logger,
	registry *crawler.Registry,
	materials repos.MaterialRepo,
	mappings repos.MappingRepo,
	runs repos.CrawlRunRepo,
	syllabus repos.SyllabusRepo,
	scorer *quality.Scorer,
	cfg config.AutoMapConfig,
) *CrawlOrchestrator {
	stopWords := make(map[string]bool, len(defaultStopWords)+len(cfg.StopWords))
	for w := range defaultStopWords {
		stopWords[w] = true
	}
	for _, w := range cfg.StopWords {
		stopWords[strings.ToLower(strings.TrimSpace(w))] = true
	}
	return &CrawlOrchestrator{
		db:        db,
		log:       baseLog.With("service", "CrawlOrchestrator"),
		registry:  registry,
		materials: materials,
		mappings:  mappings,
		runs:      runs,
		syllabus:  syllabus,
		scorer:    scorer,
		stopWords: stopWords,
		tracer:    otel.Tracer("crawl"),
	}
}

// RunCrawlAsync launches a crawl as a fire-and-forget background task.
// Errors end up in the CrawlRun record, never back at the caller.
func (o *CrawlOrchestrator) RunCrawlAsync(ctx context.Context, sourceName, query string, limit int) {
	detached := context.WithoutCancel(ctx)
	go func() {
		_, _ = o.RunCrawl(detached, sourceName, query, limit)
	}()
}

// RunCrawl executes one crawl end to end and returns the terminal run
// record. An unknown source is a logged no-op with no run created. All run
// failures are captured into the record; the returned error is reserved
// for the bookkeeping layer itself being unreachable.
func (o *CrawlOrchestrator) RunCrawl(ctx context.Context, sourceName, query string, limit int) (*types.CrawlRun, error) {
	src, ok := o.registry.Get(sourceName)
	if !ok {
		o.log.Warn("Unknown crawl source, skipping", "source", sourceName, "known", o.registry.Names())
		return nil, nil
	}

	ctx, span := o.tracer.Start(ctx, "crawl.run",
		trace.WithAttributes(
			attribute.String("crawl.source", src.SourceName()),
			attribute.String("crawl.query", query),
		))
	defer span.End()

	run, err := o.runs.Open(ctx, nil, src.SourceName())
	if err != nil {
		return nil, fmt.Errorf("open crawl run: %w", err)
	}

	persisted := 0
	var runErr error
	defer func() {
		// The run must land in a terminal state even when the crawl
		// context is cancelled mid-flight, so close with a fresh context.
		closeCtx := context.WithoutCancel(ctx)
		if r := recover(); r != nil {
			runErr = fmt.Errorf("panic: %v", r)
		}
		if runErr != nil {
			msg := truncate(runErr.Error()+"\n"+string(debug.Stack()), maxErrorMessageLen)
			run.Status = types.CrawlRunStatusFailed
			run.ErrorMessage = msg
			run.ItemsFetched = persisted
			if cErr := o.runs.Close(closeCtx, nil, run.ID, types.CrawlRunStatusFailed, persisted, msg); cErr != nil {
				o.log.Error("Failed to close crawl run", "run_id", run.ID, "error", cErr)
			}
			o.log.Warn("Crawl run failed", "run_id", run.ID, "source", src.SourceName(), "error", runErr)
			return
		}
		run.Status = types.CrawlRunStatusCompleted
		run.ItemsFetched = persisted
		if cErr := o.runs.Close(closeCtx, nil, run.ID, types.CrawlRunStatusCompleted, persisted, ""); cErr != nil {
			o.log.Error("Failed to close crawl run", "run_id", run.ID, "error", cErr)
		}
		o.log.Info("Crawl run completed", "run_id", run.ID, "source", src.SourceName(), "items", persisted)
	}()

	items, err := src.Fetch(ctx, query, limit)
	if err != nil {
		runErr = fmt.Errorf("fetch %q: %w", query, err)
		return run, nil
	}

	seenURLs := make(map[string]bool, len(items))
	for _, item := range items {
		record, ok := src.Parse(item)
		if !ok || record == nil {
			continue
		}

		normalizedURL := dedup.NormalizeURL(record.URL)
		if normalizedURL == "" {
			continue
		}
		// Two duplicate raw items can arrive in the same batch, so the
		// in-memory check must run before the store lookups.
		if seenURLs[normalizedURL] {
			continue
		}
		seenURLs[normalizedURL] = true

		existing, err := o.materials.GetByURL(ctx, nil, normalizedURL)
		if err != nil {
			runErr = err
			return run, nil
		}
		if existing != nil {
			continue
		}

		contentHash := dedup.ContentHash(record.ContentText)
		if contentHash != "" {
			byHash, err := o.materials.GetByContentHash(ctx, nil, contentHash)
			if err != nil {
				runErr = err
				return run, nil
			}
			if byHash != nil {
				continue
			}
		}

		material, err := o.buildMaterial(src.SourceName(), normalizedURL, contentHash, record)
		if err != nil {
			runErr = err
			return run, nil
		}

		if _, err := o.materials.Create(ctx, nil, material); err != nil {
			if isDuplicateKeyError(err) {
				// A concurrent run for another source won the insert race;
				// the uniqueness constraint is the final arbiter.
				o.log.Debug("URL uniqueness race, treating as duplicate", "url", normalizedURL)
				continue
			}
			runErr = err
			return run, nil
		}
		persisted++

		if err := o.autoMapMaterial(ctx, material); err != nil {
			runErr = err
			return run, nil
		}
	}

	span.SetAttributes(attribute.Int("crawl.items_persisted", persisted))
	return run, nil
}

func (o *CrawlOrchestrator) buildMaterial(sourceName, url, contentHash string, record *crawler.NormalizedRecord) (*types.Material, error) {
	var metadata datatypes.JSON
	if len(record.Metadata) > 0 {
		raw, err := json.Marshal(record.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = datatypes.JSON(raw)
	}

	m := &types.Material{
		Title:       record.Title,
		URL:         url,
		SourceName:  sourceName,
		ContentType: record.ContentType,
		Author:      record.Author,
		PublishDate: record.PublishDate,
		Description: record.Description,
		ContentText: record.ContentText,
		Snippet:     record.Snippet,
		ContentHash: contentHash,
		Metadata:    metadata,
	}

	// The multi-factor score carries the material; the crawler's own
	// heuristic, when present, is blended in equally since it sees
	// source signals the generic scorer cannot.
	score := o.scorer.Score(m)
	if record.QualityScore > 0 {
		score = (score + clamp01(record.QualityScore)) / 2
	}
	m.QualityScore = clamp01(score)
	return m, nil
}

// autoMapMaterial creates pending (unapproved) topic mappings for every
// active syllabus topic whose significant keywords appear often enough in
// the material's combined text.
func (o *CrawlOrchestrator) autoMapMaterial(ctx context.Context, m *types.Material) error {
	topics, err := o.syllabus.ListAllActive(ctx, nil)
	if err != nil {
		return fmt.Errorf("list syllabus topics: %w", err)
	}
	if len(topics) == 0 {
		return nil
	}

	combined := strings.ToLower(m.Title + " " + m.Description + " " + m.ContentText)

	for _, topic := range topics {
		keywords := o.significantKeywords(topic.TopicTitle)
		if len(keywords) == 0 {
			continue
		}

		matched := 0
		for _, kw := range keywords {
			if strings.Contains(combined, kw) {
				matched++
			}
		}

		threshold := (len(keywords) + 1) / 2
		if threshold < 2 {
			threshold = 2
		}
		if matched < threshold {
			continue
		}

		relevance := float64(matched) / float64(len(keywords))

		exists, err := o.mappings.Exists(ctx, nil, m.ID, topic.CourseID, topic.WeekNumber)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		mapping := &types.MaterialTopicMapping{
			MaterialID:     m.ID,
			CourseID:       topic.CourseID,
			WeekNumber:     topic.WeekNumber,
			RelevanceScore: relevance,
			Approved:       false,
		}
		if _, err := o.mappings.Create(ctx, nil, mapping); err != nil {
			if isDuplicateKeyError(err) {
				continue
			}
			return err
		}
		o.log.Debug("Auto-mapped material to topic",
			"material_id", m.ID,
			"course_id", topic.CourseID,
			"week", topic.WeekNumber,
			"relevance", relevance,
		)
	}
	return nil
}

// significantKeywords tokenizes a topic title, dropping stop words and
// tokens of two characters or fewer.
func (o *CrawlOrchestrator) significantKeywords(title string) []string {
	fields := strings.Fields(strings.ToLower(title))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		token := strings.Trim(f, ".,;:!?()[]{}\"'")
		if len(token) <= 2 || o.stopWords[token] {
			continue
		}
		keywords = append(keywords, token)
	}
	return keywords
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
