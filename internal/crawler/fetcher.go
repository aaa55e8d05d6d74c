package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/pkg/httpx"
)

const maxBodyBytes = 4 << 20

// Fetcher is the shared HTTP layer for all crawlers: bounded timeouts,
// retry with exponential backoff on 429/5xx, and a concurrency-capped
// multi-URL helper.
type Fetcher struct {
	log        *logger.Logger
	client     *http.Client
	maxRetries int
	userAgent  string
}

func NewFetcher(log *logger.Logger, timeout time.Duration, maxRetries int) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Fetcher{
		log:        log.With("component", "Fetcher"),
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		userAgent:  "fyp-ai-lms-crawler/1.0",
	}
}

func (f *Fetcher) getOnce(ctx context.Context, url string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, application/atom+xml, text/html;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := string(raw)
		if len(body) > 512 {
			body = body[:512]
		}
		return resp, raw, &httpx.StatusError{StatusCode: resp.StatusCode, URL: url, Body: body}
	}
	return resp, raw, nil
}

// Get retries transient failures with jittered exponential backoff and
// honors Retry-After on rate limits. The last error is returned once the
// retry ceiling is exhausted.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, raw, err := f.getOnce(ctx, url)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if !httpx.IsRetryableError(err) || attempt == f.maxRetries {
			return nil, lastErr
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		f.log.Warn("Fetch retrying",
			"url", url,
			"attempt", attempt+1,
			"max_retries", f.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (f *Fetcher) GetJSON(ctx context.Context, url string, out any) error {
	raw, err := f.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// FetchMany fetches a batch of URLs with at most maxConcurrent in flight.
// A URL whose fetch fails simply yields no entry in the result map; the
// batch itself never aborts.
func (f *Fetcher) FetchMany(ctx context.Context, urls []string, maxConcurrent int64) map[string][]byte {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	sem := semaphore.NewWeighted(maxConcurrent)

	var mu sync.Mutex
	results := make(map[string][]byte, len(urls))

	var wg sync.WaitGroup
	for _, url := range urls {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			defer sem.Release(1)
			raw, err := f.Get(ctx, u)
			if err != nil {
				f.log.Warn("Fetch failed, skipping URL", "url", u, "error", err)
				return
			}
			mu.Lock()
			results[u] = raw
			mu.Unlock()
		}(url)
	}
	wg.Wait()
	return results
}
