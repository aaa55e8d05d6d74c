package embedding

import (
	"bytes"
	"encoding/json"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/pkg/httpx"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/utils"
)

// OpenAIBackend generates embeddings through the OpenAI embeddings API.
type OpenAIBackend struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	maxChars   int
	httpClient *http.Client
	maxRetries int
}

func NewOpenAIBackend(log *logger.Logger, maxChars int) (*OpenAIBackend, error) {
	apiKey := strings.TrimSpace(utils.GetEnv("OPENAI_API_KEY", "", log))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com", log), "/")
	model := utils.GetEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small", log)
	dims := utils.GetEnvAsInt("OPENAI_EMBED_DIMENSIONS", 1536, log)
	timeoutSec := utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", 60, log)
	maxRetries := utils.GetEnvAsInt("OPENAI_MAX_RETRIES", 4, log)
	if maxChars <= 0 {
		maxChars = 8000
	}

	return &OpenAIBackend{
		log:        log.With("service", "OpenAIBackend"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		dimensions: dims,
		maxChars:   maxChars,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

func (b *OpenAIBackend) Dimensions() int { return b.dimensions }

func (b *OpenAIBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := b.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (b *OpenAIBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	clean := make([]string, 0, len(texts))
	cleanIdx := make([]int, 0, len(texts))
	for i, text := range texts {
		trimmed := strings.TrimSpace(Truncate(text, b.maxChars))
		if trimmed == "" {
			out[i] = ZeroVector(b.dimensions)
			continue
		}
		clean = append(clean, trimmed)
		cleanIdx = append(cleanIdx, i)
	}
	if len(clean) == 0 {
		return out, nil
	}

	var resp embeddingsResponse
	if err := b.do(ctx, embeddingsRequest{Model: b.model, Input: clean}, &resp); err != nil {
		return nil, err
	}

	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(cleanIdx) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[cleanIdx[d.Index]] = vec
	}
	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("embeddings response missing vector for input %d", i)
		}
	}
	return out, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (b *OpenAIBackend) doOnce(ctx context.Context, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/embeddings", &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := string(raw)
		if len(body) > 1024 {
			body = body[:1024]
		}
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: body}
	}
	return resp, raw, nil
}

func (b *OpenAIBackend) do(ctx context.Context, body any, out any) error {
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := b.doOnce(ctx, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}
		lastErr = err

		if !httpx.IsRetryableError(err) || attempt == b.maxRetries {
			return lastErr
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		b.log.Warn("OpenAI embeddings request retrying",
			"attempt", attempt+1,
			"max_retries", b.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
	return lastErr
}
