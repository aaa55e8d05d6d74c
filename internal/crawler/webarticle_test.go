package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
)

const articleFixture = `<!DOCTYPE html>
<html>
<head>
  <title>Fallback Title</title>
  <meta property="og:title" content="Recursion Tutorial">
  <meta name="description" content="A practical guide to recursion.">
  <meta name="author" content="Jo Writer">
</head>
<body>
  <article>
    <p>Recursion is a function calling itself.</p>
    <p>Every recursive function needs a base case.</p>
  </article>
</body>
</html>`

func TestWebArticleFetchAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleFixture))
	}))
	defer srv.Close()

	log := logger.NewNop()
	c := NewWebArticleCrawler(log, NewFetcher(log, 5*time.Second, 0), []string{srv.URL + "/recursion"}, 2)

	items, err := c.Fetch(context.Background(), "recursion", 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}

	record, ok := c.Parse(items[0])
	if !ok {
		t.Fatal("Parse rejected a matching article")
	}
	if record.Title != "Recursion Tutorial" {
		t.Fatalf("title = %q, want the og:title value", record.Title)
	}
	if record.Author != "Jo Writer" {
		t.Fatalf("author = %q", record.Author)
	}
	if record.Description != "A practical guide to recursion." {
		t.Fatalf("description = %q", record.Description)
	}
	if record.ContentText == "" {
		t.Fatal("expected extracted paragraph text")
	}
}

func TestWebArticleParseFiltersByQuery(t *testing.T) {
	c := NewWebArticleCrawler(logger.NewNop(), nil, nil, 1)

	item := RawItem{Fields: map[string]any{
		"url":   "https://example.com/post",
		"html":  articleFixture,
		"query": "quantum chromodynamics",
	}}
	if _, ok := c.Parse(item); ok {
		t.Fatal("Parse kept a page that never mentions the query terms")
	}

	item.Fields["query"] = "recursion"
	if _, ok := c.Parse(item); !ok {
		t.Fatal("Parse dropped a page that matches the query")
	}
}

func TestScoreArticleDomainTrust(t *testing.T) {
	c := NewWebArticleCrawler(logger.NewNop(), nil, nil, 1)

	mdn := c.scoreArticle("https://developer.mozilla.org/en-US/docs/Glossary/Recursion", "Recursion", "")
	campus := c.scoreArticle("https://cs.someuniversity.edu/notes/recursion", "Recursion", "")
	unknown := c.scoreArticle("https://random-blog.example.com/recursion", "Recursion", "")

	if mdn <= unknown || campus <= unknown {
		t.Fatalf("trusted domains should outscore unknown ones: mdn=%f campus=%f unknown=%f", mdn, campus, unknown)
	}
}
