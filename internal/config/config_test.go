package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsInternallyConsistent(t *testing.T) {
	cfg := Default()

	w := cfg.Quality.Weights
	sum := w.Authority + w.Popularity + w.Recency + w.Completeness
	if sum < 0.99 || sum > 1.01 {
		t.Fatalf("quality weights sum to %f, want 1.0", sum)
	}
	if cfg.Ranking.SimilarityWeight+cfg.Ranking.QualityWeight != 1.0 {
		t.Fatalf("ranking weights sum to %f, want 1.0",
			cfg.Ranking.SimilarityWeight+cfg.Ranking.QualityWeight)
	}
	if cfg.Ranking.TopK <= 0 || cfg.AutoMap.MaxPerWeek <= 0 {
		t.Fatal("default limits must be positive")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Crawl.DefaultLimit != Default().Crawl.DefaultLimit {
		t.Fatalf("empty path should yield defaults, got limit %d", cfg.Crawl.DefaultLimit)
	}
}

func TestLoadOverlaysPartialFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	body := []byte("ranking:\n  top_k: 25\nauto_map:\n  min_similarity: 0.8\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ranking.TopK != 25 {
		t.Fatalf("top_k = %d, want 25", cfg.Ranking.TopK)
	}
	if cfg.AutoMap.MinSimilarity != 0.8 {
		t.Fatalf("auto_map.min_similarity = %f, want 0.8", cfg.AutoMap.MinSimilarity)
	}
	// Untouched sections keep their defaults.
	if cfg.Ranking.MinSimilarity != 0.3 {
		t.Fatalf("ranking.min_similarity = %f, want default 0.3", cfg.Ranking.MinSimilarity)
	}
	if cfg.Embed.CacheCapacity != 1000 {
		t.Fatalf("embed.cache_capacity = %d, want default 1000", cfg.Embed.CacheCapacity)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load should fail on a missing file")
	}
}
