package crawler

import (
	"context"
	"strings"
	"time"
)

// RawItem is one unparsed record as fetched from a source. Fields carries
// the source-shaped payload; Parse turns it into a NormalizedRecord.
type RawItem struct {
	Source string
	Fields map[string]any
}

func (r RawItem) Str(key string) string {
	if v, ok := r.Fields[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (r RawItem) Int64(key string) int64 {
	switch v := r.Fields[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func (r RawItem) Time(key string) *time.Time {
	switch v := r.Fields[key].(type) {
	case time.Time:
		t := v
		return &t
	case *time.Time:
		return v
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return &t
			}
		}
	}
	return nil
}

// NormalizedRecord is the uniform output shape every crawler produces.
type NormalizedRecord struct {
	Title        string
	URL          string
	ContentType  string
	Author       string
	PublishDate  *time.Time
	Description  string
	ContentText  string
	Snippet      string
	QualityScore float64
	Metadata     map[string]any
}

// SourceCrawler is the per-source fetch/parse contract. Fetch performs
// network I/O and may fail transiently; Parse is pure and signals a
// malformed record by returning ok=false.
type SourceCrawler interface {
	SourceName() string
	Fetch(ctx context.Context, query string, limit int) ([]RawItem, error)
	Parse(item RawItem) (*NormalizedRecord, bool)
}

// Registry maps source names to crawlers with case-insensitive lookup.
type Registry struct {
	crawlers map[string]SourceCrawler
}

func NewRegistry() *Registry {
	return &Registry{crawlers: make(map[string]SourceCrawler)}
}

func (r *Registry) Register(c SourceCrawler) {
	r.crawlers[strings.ToLower(strings.TrimSpace(c.SourceName()))] = c
}

func (r *Registry) Get(name string) (SourceCrawler, bool) {
	c, ok := r.crawlers[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.crawlers))
	for name := range r.crawlers {
		names = append(names, name)
	}
	return names
}

// snippetOf truncates to at most maxLen bytes, preferring the last word
// boundary past the midpoint so snippets do not end mid-word.
func snippetOf(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if len(text) <= maxLen {
		return text
	}
	cut := text[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

func containsAnyFold(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

var educationalKeywords = []string{
	"tutorial", "course", "lecture", "introduction", "learn", "guide",
	"explained", "fundamentals", "basics", "crash course", "walkthrough",
}
