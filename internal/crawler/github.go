package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
)

type GitHubCrawler struct {
	log     *logger.Logger
	fetcher *Fetcher
	baseURL string
}

func NewGitHubCrawler(log *logger.Logger, fetcher *Fetcher, baseURL string) *GitHubCrawler {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &GitHubCrawler{
		log:     log.With("crawler", "github"),
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *GitHubCrawler) SourceName() string { return "github" }

type ghSearchResponse struct {
	Items []struct {
		FullName    string   `json:"full_name"`
		HTMLURL     string   `json:"html_url"`
		Description string   `json:"description"`
		Stars       int64    `json:"stargazers_count"`
		Forks       int64    `json:"forks_count"`
		PushedAt    string   `json:"pushed_at"`
		Topics      []string `json:"topics"`
		Owner       struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"items"`
}

func (c *GitHubCrawler) Fetch(ctx context.Context, query string, limit int) ([]RawItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	searchURL := fmt.Sprintf("%s/search/repositories?q=%s&sort=stars&order=desc&per_page=%d",
		c.baseURL, url.QueryEscape(query), limit)

	var resp ghSearchResponse
	if err := c.fetcher.GetJSON(ctx, searchURL, &resp); err != nil {
		return nil, fmt.Errorf("github search: %w", err)
	}

	items := make([]RawItem, 0, len(resp.Items))
	for _, repo := range resp.Items {
		topics := make([]any, 0, len(repo.Topics))
		for _, t := range repo.Topics {
			topics = append(topics, t)
		}
		items = append(items, RawItem{
			Source: c.SourceName(),
			Fields: map[string]any{
				"full_name":   repo.FullName,
				"html_url":    repo.HTMLURL,
				"description": repo.Description,
				"stars":       repo.Stars,
				"forks":       repo.Forks,
				"pushed_at":   repo.PushedAt,
				"owner":       repo.Owner.Login,
				"topics":      topics,
			},
		})
	}
	return items, nil
}

func (c *GitHubCrawler) Parse(item RawItem) (*NormalizedRecord, bool) {
	fullName := strings.TrimSpace(item.Str("full_name"))
	htmlURL := strings.TrimSpace(item.Str("html_url"))
	if fullName == "" || htmlURL == "" {
		return nil, false
	}

	description := item.Str("description")
	topics, _ := item.Fields["topics"].([]any)
	return &NormalizedRecord{
		Title:        fullName,
		URL:          htmlURL,
		ContentType:  "repo",
		Author:       item.Str("owner"),
		PublishDate:  item.Time("pushed_at"),
		Description:  description,
		ContentText:  description + " " + joinAny(topics),
		Snippet:      snippetOf(description, 300),
		QualityScore: c.scoreRepo(item),
		Metadata: map[string]any{
			"stars":  item.Int64("stars"),
			"forks":  item.Int64("forks"),
			"topics": topics,
		},
	}, true
}

// scoreRepo buckets star and fork counts the way a reviewer would eyeball
// them: anything above a few thousand stars is a well-known project.
func (c *GitHubCrawler) scoreRepo(item RawItem) float64 {
	score := 0.3

	stars := item.Int64("stars")
	switch {
	case stars >= 10_000:
		score += 0.35
	case stars >= 1_000:
		score += 0.25
	case stars >= 100:
		score += 0.15
	case stars >= 10:
		score += 0.05
	}

	forks := item.Int64("forks")
	switch {
	case forks >= 1_000:
		score += 0.15
	case forks >= 100:
		score += 0.1
	case forks >= 10:
		score += 0.05
	}

	if topics, ok := item.Fields["topics"].([]any); ok && len(topics) >= 3 {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func joinAny(vals []any) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
