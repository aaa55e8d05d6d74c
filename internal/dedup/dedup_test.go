package dedup

import (
	"strings"
	"testing"
)

func TestNormalizeURLIdempotent(t *testing.T) {
	urls := []string{
		"https://www.Example.com/Path/To/Page?utm_source=mail&id=7",
		"https://youtu.be/dqw4w9wgxcq",
		"https://arxiv.org/abs/2301.00001v1",
		"example.com/guide",
	}
	for _, u := range urls {
		once := NormalizeURL(u)
		twice := NormalizeURL(once)
		if once != twice {
			t.Fatalf("NormalizeURL not idempotent for %q: first %q then %q", u, once, twice)
		}
	}
}

func TestNormalizeURLYouTube(t *testing.T) {
	a := NormalizeURL("https://www.youtube.com/watch?v=dqw4w9wgxcq&utm_source=newsletter&feature=share")
	b := NormalizeURL("https://youtu.be/dqw4w9wgxcq?ref=homepage")
	if a != b {
		t.Fatalf("expected identical canonical YouTube URLs, got %q and %q", a, b)
	}
	if a != "https://youtube.com/watch?v=dqw4w9wgxcq" {
		t.Fatalf("unexpected canonical form %q", a)
	}
}

func TestNormalizeURLPreservesValueCase(t *testing.T) {
	got := NormalizeURL("https://WWW.YouTube.com/watch?v=dQw4w9WgXcQ&utm_source=share")
	if got != "https://youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("video id case must survive, got %q", got)
	}
	if NormalizeURL("https://youtu.be/dQw4w9WgXcQ") != got {
		t.Fatal("short-link form should canonicalize to the same URL")
	}
	if got := NormalizeURL("https://Example.com/Docs/Guide?Page=2"); got != "https://example.com/Docs/Guide?Page=2" {
		t.Fatalf("path and query case must survive, got %q", got)
	}
}

func TestNormalizeURLArxiv(t *testing.T) {
	want := "https://arxiv.org/abs/2301.00001"
	if got := NormalizeURL("https://arxiv.org/abs/2301.00001v1"); got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
	if got := NormalizeURL("https://arxiv.org/pdf/2301.00001"); got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestNormalizeURLStripsTracking(t *testing.T) {
	got := NormalizeURL("https://www.example.com/article?utm_source=x&utm_medium=y&ref=z&id=42")
	if strings.Contains(got, "utm_") || strings.Contains(got, "ref=") {
		t.Fatalf("tracking params survived normalization: %q", got)
	}
	if !strings.Contains(got, "id=42") {
		t.Fatalf("non-tracking param dropped: %q", got)
	}
	if strings.Contains(got, "www.") {
		t.Fatalf("www. prefix survived: %q", got)
	}
}

func TestContentHashDeterminism(t *testing.T) {
	if ContentHash("Hello  World") != ContentHash("hello world") {
		t.Fatal("expected case and whitespace invariant hashes to match")
	}
	if got := ContentHash(""); got != "" {
		t.Fatalf("expected empty hash for empty input, got %q", got)
	}
	if got := ContentHash("   \n\t "); got != "" {
		t.Fatalf("expected empty hash for whitespace-only input, got %q", got)
	}
	if got := ContentHash("abc"); len(got) != 64 {
		t.Fatalf("expected 64-hex digest, got len %d", len(got))
	}
}

func TestTitleSimilarity(t *testing.T) {
	if got := TitleSimilarity("Intro to Go", "Intro to Go"); got != 1.0 {
		t.Fatalf("identical titles: expected 1.0 got %f", got)
	}
	if got := TitleSimilarity("Intro to Go!", "intro to go"); got != 1.0 {
		t.Fatalf("punctuation/case should not matter: got %f", got)
	}
	got := TitleSimilarity("Neural Networks Explained", "Neural Networks Explained (2024 Edition)")
	if got < 0.7 || got >= 1.0 {
		t.Fatalf("near-duplicate titles: expected high partial similarity, got %f", got)
	}
	if got := TitleSimilarity("Completely Different", "Nothing Alike Here qzx"); got >= titleSimilarityThreshold {
		t.Fatalf("unrelated titles scored %f, above threshold", got)
	}
	a, b := "Graph Algorithms Lecture", "Lecture Graph Algorithms"
	if TitleSimilarity(a, b) != TitleSimilarity(b, a) {
		t.Fatal("similarity should be symmetric")
	}
}
