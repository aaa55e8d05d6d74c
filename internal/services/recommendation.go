package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/config"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/embedding"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/repos"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

// Recommendation is one ranked material for a syllabus slot.
type Recommendation struct {
	Material    *types.Material `json:"material"`
	WeekNumber  int             `json:"week_number"`
	Similarity  float64         `json:"similarity"`
	Quality     float64         `json:"quality"`
	Combined    float64         `json:"combined_score"`
	RatingCount int64           `json:"rating_count"`
}

// StudentRecommendation is a base recommendation with the personalization
// adjustment applied, plus the reasons behind it.
type StudentRecommendation struct {
	Recommendation
	AdjustedScore float64  `json:"adjusted_score"`
	Reasons       []string `json:"reasons"`
}

// ContextBundle is a per-week study digest.
type ContextBundle struct {
	CourseID    uuid.UUID   `json:"course_id"`
	WeekNumber  int         `json:"week_number"`
	TopicTitle  string      `json:"topic_title"`
	Summary     string      `json:"summary"`
	MaterialIDs []uuid.UUID `json:"material_ids"`
}

// RecommendOptions are the knobs for a single topic ranking.
type RecommendOptions struct {
	TopK            int
	MinSimilarity   float64
	MinQuality      float64
	ExcludeApproved bool
}

// RecommendationEngine ranks materials for syllabus topics by semantic
// similarity and quality, optionally personalized per student.
type RecommendationEngine struct {
	db        *gorm.DB
	log       *logger.Logger
	cache     *embedding.Cache
	materials repos.MaterialRepo
	mappings  repos.MappingRepo
	syllabus  repos.SyllabusRepo
	perf      repos.PerformanceRepo
	ratings   repos.RatingRepo
	ranking   config.RankingConfig
	autoMap   config.AutoMapConfig
	personal  config.PersonalConfig
	tracer    trace.Tracer
	now       func() time.Time
}

func NewRecommendationEngine(
	db *gorm.DB,
	baseLog *logger.Logger,
	cache *embedding.Cache,
	materials repos.MaterialRepo,
	mappings repos.MappingRepo,
	syllabus repos.SyllabusRepo,
	perf repos.PerformanceRepo,
	ratings repos.RatingRepo,
	cfg *config.PipelineConfig,
) *RecommendationEngine {
	return &RecommendationEngine{
		db:        db,
		log:       baseLog.With("service", "RecommendationEngine"),
		cache:     cache,
		materials: materials,
		mappings:  mappings,
		syllabus:  syllabus,
		perf:      perf,
		ratings:   ratings,
		ranking:   cfg.Ranking,
		autoMap:   cfg.AutoMap,
		personal:  cfg.Personal,
		tracer:    otel.Tracer("recommendation"),
		now:       time.Now,
	}
}

func (e *RecommendationEngine) defaults(opts RecommendOptions) RecommendOptions {
	if opts.TopK <= 0 {
		opts.TopK = e.ranking.TopK
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = e.ranking.MinSimilarity
	}
	return opts
}

// RecommendForTopic ranks materials for one (course, week) slot. A missing
// or inactive syllabus entry yields an empty result, not an error.
func (e *RecommendationEngine) RecommendForTopic(ctx context.Context, courseID uuid.UUID, week int, opts RecommendOptions) ([]Recommendation, error) {
	ctx, span := e.tracer.Start(ctx, "recommend.topic",
		trace.WithAttributes(
			attribute.String("course_id", courseID.String()),
			attribute.Int("week", week),
		))
	defer span.End()

	opts = e.defaults(opts)

	topic, err := e.syllabus.GetActiveTopic(ctx, nil, courseID, week)
	if err != nil {
		return nil, fmt.Errorf("load syllabus topic: %w", err)
	}
	if topic == nil {
		return []Recommendation{}, nil
	}

	topicVec, err := e.cache.TopicEmbedding(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("embed topic: %w", err)
	}

	candidates, err := e.materials.ListByMinQuality(ctx, nil, opts.MinQuality)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	excluded := map[uuid.UUID]bool{}
	if opts.ExcludeApproved {
		approvedIDs, err := e.mappings.ApprovedMaterialIDs(ctx, nil, courseID, week)
		if err != nil {
			return nil, fmt.Errorf("list approved materials: %w", err)
		}
		for _, id := range approvedIDs {
			excluded[id] = true
		}
	}

	candidateIDs := make([]uuid.UUID, 0, len(candidates))
	for _, m := range candidates {
		if !excluded[m.ID] {
			candidateIDs = append(candidateIDs, m.ID)
		}
	}
	ratingStats, err := e.ratings.StatsByMaterialIDs(ctx, nil, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("load rating stats: %w", err)
	}

	recs := make([]Recommendation, 0, len(candidates))
	for _, m := range candidates {
		if excluded[m.ID] {
			continue
		}
		vec, err := e.cache.MaterialEmbedding(ctx, nil, m)
		if err != nil {
			e.log.Warn("Skipping material, embedding failed", "material_id", m.ID, "error", err)
			continue
		}
		sim := embedding.Similarity(topicVec, vec)
		if sim < opts.MinSimilarity {
			continue
		}
		stats := ratingStats[m.ID]
		recs = append(recs, Recommendation{
			Material:    m,
			WeekNumber:  week,
			Similarity:  sim,
			Quality:     m.QualityScore,
			Combined:    e.combinedScore(sim, m.QualityScore, stats),
			RatingCount: stats.Count,
		})
	}

	// Stable sort keeps insertion order on ties.
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Combined > recs[j].Combined
	})
	if len(recs) > opts.TopK {
		recs = recs[:opts.TopK]
	}
	span.SetAttributes(attribute.Int("recommend.count", len(recs)))
	return recs, nil
}

// combinedScore blends similarity and quality, then nudges the result by
// the student-rating signal. The rating deviation from neutral is scaled
// by a confidence factor that saturates at five ratings.
func (e *RecommendationEngine) combinedScore(similarity, qualityScore float64, stats repos.RatingStats) float64 {
	score := similarity*e.ranking.SimilarityWeight + qualityScore*e.ranking.QualityWeight
	if stats.Count > 0 {
		scaled := (stats.Average + 1.0) / 2.0
		confidence := float64(stats.Count) / 5.0
		if confidence > 1.0 {
			confidence = 1.0
		}
		adjusted := 0.5 + (scaled-0.5)*confidence
		score += (adjusted - 0.5) * e.ranking.RatingWeight
	}
	return score
}

// AutoMapMaterials runs the topic ranking per week with thresholds
// stricter than manual browsing and records up to MaxPerWeek new pending
// mappings, committing once for the whole course.
func (e *RecommendationEngine) AutoMapMaterials(ctx context.Context, courseID uuid.UUID) (int, error) {
	topics, err := e.syllabus.ListActiveByCourse(ctx, nil, courseID)
	if err != nil {
		return 0, fmt.Errorf("list course topics: %w", err)
	}

	created := 0
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, topic := range topics {
			recs, err := e.RecommendForTopic(ctx, courseID, topic.WeekNumber, RecommendOptions{
				TopK:          e.autoMap.MaxPerWeek,
				MinSimilarity: e.autoMap.MinSimilarity,
				MinQuality:    e.autoMap.MinQuality,
			})
			if err != nil {
				return err
			}
			for _, rec := range recs {
				exists, err := e.mappings.Exists(ctx, tx, rec.Material.ID, courseID, topic.WeekNumber)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
				mapping := &types.MaterialTopicMapping{
					MaterialID:     rec.Material.ID,
					CourseID:       courseID,
					WeekNumber:     topic.WeekNumber,
					RelevanceScore: rec.Similarity,
					Approved:       false,
				}
				if _, err := e.mappings.Create(ctx, tx, mapping); err != nil {
					if isDuplicateKeyError(err) {
						continue
					}
					return err
				}
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.log.Info("Auto-map finished", "course_id", courseID, "mappings_created", created)
	return created, nil
}

// RecommendForStudent blends each week's base recommendations with the
// student's performance: weak or unattempted topics get boosted so the
// list surfaces what the student most needs next.
func (e *RecommendationEngine) RecommendForStudent(ctx context.Context, studentID, courseID uuid.UUID, limit int) ([]StudentRecommendation, error) {
	ctx, span := e.tracer.Start(ctx, "recommend.student",
		trace.WithAttributes(attribute.String("course_id", courseID.String())))
	defer span.End()

	if limit <= 0 {
		limit = e.ranking.TopK
	}

	topics, err := e.syllabus.ListActiveByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("list course topics: %w", err)
	}

	perfRows, err := e.perf.ListByStudentCourse(ctx, nil, studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("load performance: %w", err)
	}
	perfByWeek := make(map[int]*types.StudentTopicPerformance, len(perfRows))
	for _, p := range perfRows {
		perfByWeek[p.WeekNumber] = p
	}

	var all []StudentRecommendation
	for _, topic := range topics {
		recs, err := e.RecommendForTopic(ctx, courseID, topic.WeekNumber, RecommendOptions{})
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			boost, reasons := e.performanceAdjustment(perfByWeek[topic.WeekNumber])
			all = append(all, StudentRecommendation{
				Recommendation: rec,
				AdjustedScore:  rec.Combined + boost,
				Reasons:        reasons,
			})
		}
	}

	// First occurrence wins when the same material ranks in several weeks.
	seen := make(map[uuid.UUID]bool, len(all))
	deduped := all[:0]
	for _, rec := range all {
		if seen[rec.Material.ID] {
			continue
		}
		seen[rec.Material.ID] = true
		deduped = append(deduped, rec)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].AdjustedScore > deduped[j].AdjustedScore
	})
	if len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped, nil
}

func (e *RecommendationEngine) performanceAdjustment(p *types.StudentTopicPerformance) (float64, []string) {
	if p == nil {
		return e.personal.NewTopicBoost, []string{"new topic"}
	}

	var boost float64
	var reasons []string

	if p.IsWeakTopic || p.AverageScore < e.personal.MasteryTarget {
		gap := e.personal.MasteryTarget - p.AverageScore
		if gap < 0 {
			gap = 0
		}
		weakBoost := math.Min(gap*e.personal.WeakTopicBoost, 0.25)
		if p.IsWeakTopic && weakBoost == 0 {
			weakBoost = 0.05
		}
		boost += weakBoost
		reasons = append(reasons, "below mastery target")
	}

	if p.AttemptCount == 0 {
		boost += e.personal.NoAttemptBoost
		reasons = append(reasons, "not yet attempted")
	}

	if p.LastAttemptAt != nil {
		daysSince := e.now().Sub(*p.LastAttemptAt).Hours() / 24
		if daysSince < 0 {
			daysSince = 0
		}
		boost += e.personal.RecencyBoost / (1 + daysSince/3)
		reasons = append(reasons, "recently studied")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "on track")
	}
	return boost, reasons
}

// GenerateContextBundles builds a short "what to study this week" digest
// per syllabus week from the top base recommendations.
func (e *RecommendationEngine) GenerateContextBundles(ctx context.Context, courseID uuid.UUID, perWeek int) ([]ContextBundle, error) {
	if perWeek <= 0 {
		perWeek = 3
	}
	topics, err := e.syllabus.ListActiveByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("list course topics: %w", err)
	}

	bundles := make([]ContextBundle, 0, len(topics))
	for _, topic := range topics {
		recs, err := e.RecommendForTopic(ctx, courseID, topic.WeekNumber, RecommendOptions{TopK: perWeek})
		if err != nil {
			return nil, err
		}

		bundle := ContextBundle{
			CourseID:   courseID,
			WeekNumber: topic.WeekNumber,
			TopicTitle: topic.TopicTitle,
		}
		if len(recs) == 0 {
			bundle.Summary = fmt.Sprintf("No vetted materials yet for %q.", topic.TopicTitle)
			bundles = append(bundles, bundle)
			continue
		}

		titles := make([]string, 0, 3)
		for i, rec := range recs {
			if i >= 3 {
				break
			}
			titles = append(titles, fmt.Sprintf("%q", rec.Material.Title))
			bundle.MaterialIDs = append(bundle.MaterialIDs, rec.Material.ID)
		}
		for i := 3; i < len(recs); i++ {
			bundle.MaterialIDs = append(bundle.MaterialIDs, recs[i].Material.ID)
		}
		bundle.Summary = fmt.Sprintf("For %q this week, start with %s.",
			topic.TopicTitle, strings.Join(titles, ", then "))
		bundles = append(bundles, bundle)
	}
	return bundles, nil
}

// UpdateMaterialEmbeddings backfills embeddings for materials that have
// none, committing once at the end of the batch. Returns the number of
// materials updated.
func (e *RecommendationEngine) UpdateMaterialEmbeddings(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 50
	}
	missing, err := e.materials.ListMissingEmbedding(ctx, nil, batchSize)
	if err != nil {
		return 0, fmt.Errorf("list materials missing embedding: %w", err)
	}

	updated := 0
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range missing {
			if _, err := e.cache.MaterialEmbedding(ctx, tx, m); err != nil {
				return fmt.Errorf("embed material %s: %w", m.ID, err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.log.Info("Embedding backfill finished", "updated", updated)
	return updated, nil
}
