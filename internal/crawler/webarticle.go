package crawler

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
)

// Domains known for dependable educational writing.
var trustedArticleDomains = map[string]float64{
	"developer.mozilla.org": 0.9,
	"docs.python.org":       0.9,
	"go.dev":                0.9,
	"realpython.com":        0.8,
	"geeksforgeeks.org":     0.6,
	"towardsdatascience.com": 0.65,
	"medium.com":            0.5,
}

// WebArticleCrawler fetches a configured list of article pages and extracts
// title/description/body with goquery. The query filters the parsed pages
// by keyword match rather than driving a search API.
type WebArticleCrawler struct {
	log     *logger.Logger
	fetcher *Fetcher
	seeds   []string
	maxConc int64
}

func NewWebArticleCrawler(log *logger.Logger, fetcher *Fetcher, seeds []string, maxConcurrent int64) *WebArticleCrawler {
	return &WebArticleCrawler{
		log:     log.With("crawler", "web"),
		fetcher: fetcher,
		seeds:   seeds,
		maxConc: maxConcurrent,
	}
}

func (c *WebArticleCrawler) SourceName() string { return "web" }

func (c *WebArticleCrawler) Fetch(ctx context.Context, query string, limit int) ([]RawItem, error) {
	urls := c.seeds
	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	pages := c.fetcher.FetchMany(ctx, urls, c.maxConc)

	items := make([]RawItem, 0, len(pages))
	// Iterate seeds rather than the map so batch order is stable.
	for _, u := range urls {
		raw, ok := pages[u]
		if !ok {
			continue
		}
		items = append(items, RawItem{
			Source: c.SourceName(),
			Fields: map[string]any{
				"url":   u,
				"html":  string(raw),
				"query": query,
			},
		})
	}
	return items, nil
}

func (c *WebArticleCrawler) Parse(item RawItem) (*NormalizedRecord, bool) {
	pageURL := strings.TrimSpace(item.Str("url"))
	html := item.Str("html")
	if pageURL == "" || html == "" {
		return nil, false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		return nil, false
	}

	title := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		return nil, false
	}

	description := strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	author := strings.TrimSpace(doc.Find(`meta[name="author"]`).AttrOr("content", ""))

	var body strings.Builder
	doc.Find("article p, main p, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			body.WriteString(text)
			body.WriteString("\n")
		}
		return body.Len() < 20_000
	})
	contentText := strings.TrimSpace(body.String())

	// When a crawl query is set, drop pages that never mention any of its
	// terms; the seeds are shared across courses.
	query := strings.TrimSpace(item.Str("query"))
	if query != "" {
		combined := strings.ToLower(title + " " + description + " " + contentText)
		matched := false
		for _, term := range strings.Fields(strings.ToLower(query)) {
			if strings.Contains(combined, term) {
				matched = true
				break
			}
		}
		if !matched {
			return nil, false
		}
	}

	return &NormalizedRecord{
		Title:        title,
		URL:          pageURL,
		ContentType:  "article",
		Author:       author,
		Description:  description,
		ContentText:  contentText,
		Snippet:      snippetOf(firstNonEmpty(description, contentText), 300),
		QualityScore: c.scoreArticle(pageURL, title, contentText),
		Metadata: map[string]any{
			"word_count": len(strings.Fields(contentText)),
		},
	}, true
}

func (c *WebArticleCrawler) scoreArticle(pageURL, title, contentText string) float64 {
	score := 0.3

	if parsed, err := url.Parse(pageURL); err == nil {
		host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
		if boost, ok := trustedArticleDomains[host]; ok {
			score = boost
		} else if strings.HasSuffix(host, ".edu") || strings.HasSuffix(host, ".ac.uk") {
			score = 0.85
		}
	}

	words := len(strings.Fields(contentText))
	switch {
	case words >= 1500:
		score += 0.15
	case words >= 500:
		score += 0.1
	case words >= 150:
		score += 0.05
	}

	if containsAnyFold(title, educationalKeywords) {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
