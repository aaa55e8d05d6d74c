package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PipelineConfig is the file-backed configuration for the ingestion and
// recommendation pipeline. Process-level settings (ports, DSNs, API keys)
// stay in the environment; this file carries the data-shaped knobs that
// lecturers tune without a redeploy.
type PipelineConfig struct {
	Crawl    CrawlConfig    `yaml:"crawl"`
	Quality  QualityConfig  `yaml:"quality"`
	Embed    EmbedConfig    `yaml:"embed"`
	Ranking  RankingConfig  `yaml:"ranking"`
	AutoMap  AutoMapConfig  `yaml:"auto_map"`
	Personal PersonalConfig `yaml:"personalization"`
}

type CrawlConfig struct {
	MaxConcurrentFetches int `yaml:"max_concurrent_fetches"`
	MaxRetries           int `yaml:"max_retries"`
	TimeoutSeconds       int `yaml:"timeout_seconds"`
	DefaultLimit         int `yaml:"default_limit"`
}

type QualityConfig struct {
	Weights          QualityWeights     `yaml:"weights"`
	AuthorityScores  map[string]float64 `yaml:"authority_scores"`
	DefaultAuthority float64            `yaml:"default_authority"`
}

type QualityWeights struct {
	Authority    float64 `yaml:"authority"`
	Popularity   float64 `yaml:"popularity"`
	Recency      float64 `yaml:"recency"`
	Completeness float64 `yaml:"completeness"`
}

type EmbedConfig struct {
	CacheCapacity int `yaml:"cache_capacity"`
	MaxChars      int `yaml:"max_chars"`
	RedisTTLHours int `yaml:"redis_ttl_hours"`
}

type RankingConfig struct {
	SimilarityWeight float64 `yaml:"similarity_weight"`
	QualityWeight    float64 `yaml:"quality_weight"`
	RatingWeight     float64 `yaml:"rating_weight"`
	MinSimilarity    float64 `yaml:"min_similarity"`
	TopK             int     `yaml:"top_k"`
}

type AutoMapConfig struct {
	MinSimilarity float64  `yaml:"min_similarity"`
	MinQuality    float64  `yaml:"min_quality"`
	MaxPerWeek    int      `yaml:"max_per_week"`
	StopWords     []string `yaml:"stop_words"`
}

type PersonalConfig struct {
	NewTopicBoost  float64 `yaml:"new_topic_boost"`
	WeakTopicBoost float64 `yaml:"weak_topic_boost"`
	NoAttemptBoost float64 `yaml:"no_attempt_boost"`
	RecencyBoost   float64 `yaml:"recency_boost"`
	MasteryTarget  float64 `yaml:"mastery_target"`
}

// Default returns the configuration used when no file is supplied. Values
// mirror the tuned production settings.
func Default() *PipelineConfig {
	return &PipelineConfig{
		Crawl: CrawlConfig{
			MaxConcurrentFetches: 5,
			MaxRetries:           3,
			TimeoutSeconds:       30,
			DefaultLimit:         20,
		},
		Quality: QualityConfig{
			Weights: QualityWeights{
				Authority:    0.3,
				Popularity:   0.25,
				Recency:      0.2,
				Completeness: 0.25,
			},
			DefaultAuthority: 0.3,
		},
		Embed: EmbedConfig{
			CacheCapacity: 1000,
			MaxChars:      8000,
			RedisTTLHours: 24,
		},
		Ranking: RankingConfig{
			SimilarityWeight: 0.6,
			QualityWeight:    0.4,
			RatingWeight:     0.2,
			MinSimilarity:    0.3,
			TopK:             10,
		},
		AutoMap: AutoMapConfig{
			MinSimilarity: 0.65,
			MinQuality:    0.5,
			MaxPerWeek:    5,
		},
		Personal: PersonalConfig{
			NewTopicBoost:  0.15,
			WeakTopicBoost: 0.5,
			NoAttemptBoost: 0.05,
			RecencyBoost:   0.1,
			MasteryTarget:  0.8,
		},
	}
}

// Load reads a YAML config file and overlays it on the defaults, so a
// partial file only overrides what it mentions.
func Load(path string) (*PipelineConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}
	return cfg, nil
}
