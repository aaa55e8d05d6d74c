package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
)

func TestGetRetriesRateLimitThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := NewFetcher(logger.NewNop(), 5*time.Second, 2)
	raw, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(raw) != "payload" {
		t.Fatalf("body = %q, want payload", raw)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls = %d, want 2 (one rate-limited, one success)", got)
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(logger.NewNop(), 5*time.Second, 3)
	if _, err := f.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected an error for a 404")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1 (404 is terminal)", got)
	}
}

func TestGetStopsAtRetryCeiling(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(logger.NewNop(), 5*time.Second, 2)
	if _, err := f.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected the last error after retries are exhausted")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3 (initial attempt + 2 retries)", got)
	}
}

func TestGetJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"graphs","count":3}`))
	}))
	defer srv.Close()

	f := NewFetcher(logger.NewNop(), 5*time.Second, 0)
	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := f.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Name != "graphs" || out.Count != 3 {
		t.Fatalf("decoded = %+v", out)
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer bad.Close()
	if err := f.GetJSON(context.Background(), bad.URL, &out); err == nil {
		t.Fatal("expected a decode error for non-JSON")
	}
}

func TestFetchManyToleratesPartialFailure(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer good.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer broken.Close()

	f := NewFetcher(logger.NewNop(), 5*time.Second, 0)
	results := f.FetchMany(context.Background(), []string{good.URL, broken.URL}, 2)

	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 (failed URL dropped, batch survives)", len(results))
	}
	if string(results[good.URL]) != "ok" {
		t.Fatalf("result body = %q", results[good.URL])
	}
}
