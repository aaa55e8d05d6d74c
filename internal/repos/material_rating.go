package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

// RatingStats aggregates the signed thumbs ratings for one material.
type RatingStats struct {
	MaterialID uuid.UUID
	Count      int64
	Average    float64 // mean of the -1/+1 ratings
}

// RatingRepo is a read-only view over rating rows owned by the rating
// subsystem.
type RatingRepo interface {
	StatsByMaterialIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]RatingStats, error)
}

type ratingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRatingRepo(db *gorm.DB, baseLog *logger.Logger) RatingRepo {
	return &ratingRepo{db: db, log: baseLog.With("repo", "RatingRepo")}
}

func (r *ratingRepo) StatsByMaterialIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]RatingStats, error) {
	out := make(map[uuid.UUID]RatingStats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	conn := tx
	if conn == nil {
		conn = r.db
	}
	var rows []RatingStats
	if err := conn.WithContext(ctx).
		Model(&types.MaterialRating{}).
		Select("material_id, COUNT(*) AS count, AVG(CAST(rating AS REAL)) AS average").
		Where("material_id IN ?", ids).
		Group("material_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.MaterialID] = row
	}
	return out, nil
}
