package quality

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/config"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

// Curated baseline for sources the config file does not mention. Academic
// institutions and standards bodies sit at the top.
var builtinAuthority = map[string]float64{
	"mit":                 0.95,
	"stanford":            0.95,
	"mit opencourseware":  0.95,
	"ieee":                0.9,
	"acm":                 0.9,
	"w3c":                 0.9,
	"arxiv":               0.85,
	"khan academy":        0.85,
	"freecodecamp":        0.8,
	"coursera":            0.8,
	"edx":                 0.8,
	"mozilla":             0.8,
	"google developers":   0.75,
	"github":              0.6,
	"youtube":             0.5,
	"medium":              0.4,
}

var titleKeywords = []string{
	"introduction", "tutorial", "guide", "course", "lecture", "fundamentals",
	"explained", "basics", "advanced", "complete",
}

// Breakdown exposes every component of a quality score so callers can
// explain (and tests can pin) how a material earned its number.
type Breakdown struct {
	Authority    float64                `json:"authority"`
	Popularity   float64                `json:"popularity"`
	Recency      float64                `json:"recency"`
	Completeness float64                `json:"completeness"`
	Weights      config.QualityWeights  `json:"weights"`
	Final        float64                `json:"final"`
}

type Scorer struct {
	log     *logger.Logger
	weights config.QualityWeights
	table   map[string]float64
	defaultAuthority float64
	now     func() time.Time
}

func NewScorer(baseLog *logger.Logger, cfg config.QualityConfig) *Scorer {
	weights := normalizeWeights(cfg.Weights)

	table := make(map[string]float64, len(builtinAuthority)+len(cfg.AuthorityScores))
	for k, v := range builtinAuthority {
		table[strings.ToLower(k)] = clamp01(v)
	}
	for k, v := range cfg.AuthorityScores {
		table[strings.ToLower(k)] = clamp01(v)
	}

	defaultAuthority := cfg.DefaultAuthority
	if defaultAuthority <= 0 {
		defaultAuthority = 0.3
	}

	return &Scorer{
		log:              baseLog.With("component", "QualityScorer"),
		weights:          weights,
		table:            table,
		defaultAuthority: defaultAuthority,
		now:              time.Now,
	}
}

// normalizeWeights rescales overridden weights to sum to 1 so a partial
// override cannot push scores out of [0,1].
func normalizeWeights(w config.QualityWeights) config.QualityWeights {
	sum := w.Authority + w.Popularity + w.Recency + w.Completeness
	if sum <= 0 {
		return config.QualityWeights{Authority: 0.3, Popularity: 0.25, Recency: 0.2, Completeness: 0.25}
	}
	return config.QualityWeights{
		Authority:    w.Authority / sum,
		Popularity:   w.Popularity / sum,
		Recency:      w.Recency / sum,
		Completeness: w.Completeness / sum,
	}
}

// Score produces the final [0,1] quality score for a material.
func (s *Scorer) Score(m *types.Material) float64 {
	return s.Breakdown(m).Final
}

func (s *Scorer) Breakdown(m *types.Material) Breakdown {
	meta := decodeMetadata(m)
	b := Breakdown{
		Authority:    s.authorityScore(m),
		Popularity:   s.popularityScore(m, meta),
		Recency:      s.recencyScore(m),
		Completeness: s.completenessScore(m, meta),
		Weights:      s.weights,
	}
	b.Final = clamp01(b.Authority*s.weights.Authority +
		b.Popularity*s.weights.Popularity +
		b.Recency*s.weights.Recency +
		b.Completeness*s.weights.Completeness)
	return b
}

func (s *Scorer) authorityScore(m *types.Material) float64 {
	for _, candidate := range []string{m.Author, m.SourceName} {
		key := strings.ToLower(strings.TrimSpace(candidate))
		if key == "" {
			continue
		}
		if score, ok := s.table[key]; ok {
			return score
		}
	}
	return s.defaultAuthority
}

func (s *Scorer) popularityScore(m *types.Material, meta map[string]any) float64 {
	switch strings.ToLower(m.ContentType) {
	case "video":
		return videoPopularity(metaInt64(meta, "view_count"), metaInt64(meta, "like_count"))
	case "repo", "repository":
		return repoPopularity(metaInt64(meta, "stars"), metaInt64(meta, "forks"))
	case "article", "paper", "course":
		if citations := metaInt64(meta, "citation_count"); citations > 0 {
			return citationPopularity(citations)
		}
		return 0.5
	default:
		return 0.5
	}
}

func videoPopularity(views, likes int64) float64 {
	var score float64
	switch {
	case views >= 1_000_000:
		score = 0.9
	case views >= 100_000:
		score = 0.75
	case views >= 10_000:
		score = 0.6
	case views >= 1_000:
		score = 0.4
	default:
		score = 0.2
	}
	if views > 0 && likes > 0 {
		if ratio := float64(likes) / float64(views); ratio >= 0.04 {
			score += 0.1
		}
	}
	return clamp01(score)
}

func repoPopularity(stars, forks int64) float64 {
	var score float64
	switch {
	case stars >= 10_000:
		score = 0.9
	case stars >= 1_000:
		score = 0.75
	case stars >= 100:
		score = 0.55
	case stars >= 10:
		score = 0.35
	default:
		score = 0.2
	}
	if forks >= 1_000 {
		score += 0.1
	}
	return clamp01(score)
}

func citationPopularity(citations int64) float64 {
	switch {
	case citations >= 1_000:
		return 0.95
	case citations >= 100:
		return 0.8
	case citations >= 10:
		return 0.6
	default:
		return 0.45
	}
}

// recencyScore decays monotonically with age: full score inside 30 days
// down to a floor past roughly five years. Materials without a publish
// date sit at the neutral midpoint.
func (s *Scorer) recencyScore(m *types.Material) float64 {
	if m.PublishDate == nil {
		return 0.5
	}
	ageDays := s.now().Sub(*m.PublishDate).Hours() / 24
	switch {
	case ageDays <= 30:
		return 1.0
	case ageDays <= 90:
		return 0.9
	case ageDays <= 180:
		return 0.8
	case ageDays <= 365:
		return 0.7
	case ageDays <= 730:
		return 0.5
	case ageDays <= 1825:
		return 0.3
	default:
		return 0.1
	}
}

func (s *Scorer) completenessScore(m *types.Material, meta map[string]any) float64 {
	var score float64

	title := strings.TrimSpace(m.Title)
	if len(title) >= 20 {
		score += 0.15
	} else if len(title) >= 8 {
		score += 0.08
	}
	if containsAnyFold(title, titleKeywords) {
		score += 0.1
	}

	if len(m.Description) >= 200 {
		score += 0.25
	} else if len(m.Description) >= 50 {
		score += 0.15
	}

	if len(m.ContentText) >= 2000 {
		score += 0.25
	} else if len(m.ContentText) >= 500 {
		score += 0.15
	}

	if metaBool(meta, "has_captions") || metaBool(meta, "has_transcript") {
		score += 0.1
	}
	if metaBool(meta, "has_readme") {
		score += 0.05
	}
	if topics, ok := meta["topics"].([]any); ok && len(topics) >= 3 {
		score += 0.1
	}

	return clamp01(score)
}

func decodeMetadata(m *types.Material) map[string]any {
	if len(m.Metadata) == 0 {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal(m.Metadata, &meta); err != nil {
		return nil
	}
	return meta
}

func metaInt64(meta map[string]any, key string) int64 {
	if meta == nil {
		return 0
	}
	switch v := meta[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func metaBool(meta map[string]any, key string) bool {
	if meta == nil {
		return false
	}
	b, _ := meta[key].(bool)
	return b
}

func containsAnyFold(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
