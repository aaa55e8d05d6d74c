package services

import (
	"context"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/crawler"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Every pooled connection gets its own :memory: database; pin the
	// pool to one so reads outside a transaction see the migrated schema.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&types.Material{},
		&types.MaterialTopicMapping{},
		&types.CrawlRun{},
		&types.SyllabusTopic{},
		&types.StudentTopicPerformance{},
		&types.MaterialRating{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger() *logger.Logger {
	return logger.NewNop()
}

// fakeSource is an in-memory SourceCrawler. Fetch returns canned items or
// a canned error; Parse reads title/url/content fields from the item.
type fakeSource struct {
	name     string
	items    []crawler.RawItem
	fetchErr error
}

func (f *fakeSource) SourceName() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, query string, limit int) ([]crawler.RawItem, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if limit > 0 && len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func (f *fakeSource) Parse(item crawler.RawItem) (*crawler.NormalizedRecord, bool) {
	title := item.Str("title")
	url := item.Str("url")
	if title == "" || url == "" {
		return nil, false
	}
	return &crawler.NormalizedRecord{
		Title:       title,
		URL:         url,
		ContentType: "article",
		ContentText: item.Str("content"),
		Description: item.Str("description"),
	}, true
}

func rawItem(source string, fields map[string]any) crawler.RawItem {
	return crawler.RawItem{Source: source, Fields: fields}
}

// stubEmbedder returns a fixed vector per marker word so similarity is
// fully controlled by the test fixtures. Texts mentioning the same marker
// embed identically; texts with opposing markers embed as opposites.
type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "neural"):
		return []float32{1, 0, 0}
	case strings.Contains(lower, "calculus"):
		return []float32{-1, 0, 0}
	default:
		return []float32{0, 1, 0}
	}
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	return s.vector(text), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }
