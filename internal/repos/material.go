package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

type MaterialRepo interface {
	Create(ctx context.Context, tx *gorm.DB, m *types.Material) (*types.Material, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Material, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Material, error)
	GetByURL(ctx context.Context, tx *gorm.DB, url string) (*types.Material, error)
	GetByContentHash(ctx context.Context, tx *gorm.DB, hash string) (*types.Material, error)
	ListAll(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Material, error)
	ListByMinQuality(ctx context.Context, tx *gorm.DB, minQuality float64) ([]*types.Material, error)
	ListMissingEmbedding(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Material, error)
	UpdateEmbedding(ctx context.Context, tx *gorm.DB, id uuid.UUID, embedding datatypes.JSON) error
	AddCounters(ctx context.Context, tx *gorm.DB, id uuid.UUID, views, downloads int64) error
	Delete(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type materialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMaterialRepo(db *gorm.DB, baseLog *logger.Logger) MaterialRepo {
	return &materialRepo{db: db, log: baseLog.With("repo", "MaterialRepo")}
}

func (r *materialRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *materialRepo) Create(ctx context.Context, tx *gorm.DB, m *types.Material) (*types.Material, error) {
	if err := r.conn(tx).WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *materialRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Material, error) {
	var m types.Material
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *materialRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Material, error) {
	var results []*types.Material
	if len(ids) == 0 {
		return results, nil
	}
	if err := r.conn(tx).WithContext(ctx).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *materialRepo) GetByURL(ctx context.Context, tx *gorm.DB, url string) (*types.Material, error) {
	var m types.Material
	err := r.conn(tx).WithContext(ctx).Where("url = ?", url).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *materialRepo) GetByContentHash(ctx context.Context, tx *gorm.DB, hash string) (*types.Material, error) {
	if hash == "" {
		return nil, nil
	}
	var m types.Material
	err := r.conn(tx).WithContext(ctx).Where("content_hash = ?", hash).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *materialRepo) ListAll(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Material, error) {
	var results []*types.Material
	q := r.conn(tx).WithContext(ctx).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *materialRepo) ListByMinQuality(ctx context.Context, tx *gorm.DB, minQuality float64) ([]*types.Material, error) {
	var results []*types.Material
	if err := r.conn(tx).WithContext(ctx).
		Where("quality_score >= ?", minQuality).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *materialRepo) ListMissingEmbedding(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Material, error) {
	var results []*types.Material
	q := r.conn(tx).WithContext(ctx).Where("embedding IS NULL")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *materialRepo) UpdateEmbedding(ctx context.Context, tx *gorm.DB, id uuid.UUID, embedding datatypes.JSON) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.Material{}).
		Where("id = ?", id).
		Update("embedding", embedding).Error
}

func (r *materialRepo) AddCounters(ctx context.Context, tx *gorm.DB, id uuid.UUID, views, downloads int64) error {
	if views == 0 && downloads == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).
		Model(&types.Material{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"view_count":     gorm.Expr("view_count + ?", views),
			"download_count": gorm.Expr("download_count + ?", downloads),
		}).Error
}

func (r *materialRepo) Delete(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Where("id IN ?", ids).Delete(&types.Material{}).Error
}
