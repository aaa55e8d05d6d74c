package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

type CrawlRunRepo interface {
	Open(ctx context.Context, tx *gorm.DB, sourceType string) (*types.CrawlRun, error)
	Close(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, itemsFetched int, errorMessage string) error
	ListRecent(ctx context.Context, tx *gorm.DB, sourceType, status string, limit int) ([]*types.CrawlRun, error)
	ListSince(ctx context.Context, tx *gorm.DB, sourceType string, since time.Time) ([]*types.CrawlRun, error)
}

type crawlRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCrawlRunRepo(db *gorm.DB, baseLog *logger.Logger) CrawlRunRepo {
	return &crawlRunRepo{db: db, log: baseLog.With("repo", "CrawlRunRepo")}
}

func (r *crawlRunRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *crawlRunRepo) Open(ctx context.Context, tx *gorm.DB, sourceType string) (*types.CrawlRun, error) {
	run := &types.CrawlRun{
		SourceType: sourceType,
		Status:     types.CrawlRunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if err := r.conn(tx).WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *crawlRunRepo) Close(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, itemsFetched int, errorMessage string) error {
	now := time.Now().UTC()
	return r.conn(tx).WithContext(ctx).
		Model(&types.CrawlRun{}).
		Where("id = ? AND status = ?", id, types.CrawlRunStatusRunning).
		Updates(map[string]interface{}{
			"status":        status,
			"items_fetched": itemsFetched,
			"error_message": errorMessage,
			"finished_at":   now,
		}).Error
}

func (r *crawlRunRepo) ListRecent(ctx context.Context, tx *gorm.DB, sourceType, status string, limit int) ([]*types.CrawlRun, error) {
	var results []*types.CrawlRun
	q := r.conn(tx).WithContext(ctx).Order("started_at DESC")
	if sourceType != "" {
		q = q.Where("source_type = ?", sourceType)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *crawlRunRepo) ListSince(ctx context.Context, tx *gorm.DB, sourceType string, since time.Time) ([]*types.CrawlRun, error) {
	var results []*types.CrawlRun
	q := r.conn(tx).WithContext(ctx).Where("started_at >= ?", since).Order("started_at DESC")
	if sourceType != "" {
		q = q.Where("source_type = ?", sourceType)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
