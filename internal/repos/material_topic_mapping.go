package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

type MappingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, m *types.MaterialTopicMapping) (*types.MaterialTopicMapping, error)
	Exists(ctx context.Context, tx *gorm.DB, materialID, courseID uuid.UUID, week int) (bool, error)
	GetForSlot(ctx context.Context, tx *gorm.DB, materialID, courseID uuid.UUID, week int) (*types.MaterialTopicMapping, error)
	ListByMaterial(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) ([]*types.MaterialTopicMapping, error)
	ApprovedMaterialIDs(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, week int) ([]uuid.UUID, error)
	UpdateScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, score float64) error
	Repoint(ctx context.Context, tx *gorm.DB, id, newMaterialID uuid.UUID) error
	Approve(ctx context.Context, tx *gorm.DB, id, approverID uuid.UUID, at time.Time) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type mappingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMappingRepo(db *gorm.DB, baseLog *logger.Logger) MappingRepo {
	return &mappingRepo{db: db, log: baseLog.With("repo", "MappingRepo")}
}

func (r *mappingRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *mappingRepo) Create(ctx context.Context, tx *gorm.DB, m *types.MaterialTopicMapping) (*types.MaterialTopicMapping, error) {
	if err := r.conn(tx).WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *mappingRepo) Exists(ctx context.Context, tx *gorm.DB, materialID, courseID uuid.UUID, week int) (bool, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).
		Model(&types.MaterialTopicMapping{}).
		Where("material_id = ? AND course_id = ? AND week_number = ?", materialID, courseID, week).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *mappingRepo) GetForSlot(ctx context.Context, tx *gorm.DB, materialID, courseID uuid.UUID, week int) (*types.MaterialTopicMapping, error) {
	var m types.MaterialTopicMapping
	err := r.conn(tx).WithContext(ctx).
		Where("material_id = ? AND course_id = ? AND week_number = ?", materialID, courseID, week).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mappingRepo) ListByMaterial(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) ([]*types.MaterialTopicMapping, error) {
	var results []*types.MaterialTopicMapping
	if err := r.conn(tx).WithContext(ctx).
		Where("material_id = ?", materialID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *mappingRepo) ApprovedMaterialIDs(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, week int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.conn(tx).WithContext(ctx).
		Model(&types.MaterialTopicMapping{}).
		Where("course_id = ? AND week_number = ? AND approved = ?", courseID, week, true).
		Pluck("material_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *mappingRepo) UpdateScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, score float64) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.MaterialTopicMapping{}).
		Where("id = ?", id).
		Update("relevance_score", score).Error
}

func (r *mappingRepo) Repoint(ctx context.Context, tx *gorm.DB, id, newMaterialID uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.MaterialTopicMapping{}).
		Where("id = ?", id).
		Update("material_id", newMaterialID).Error
}

func (r *mappingRepo) Approve(ctx context.Context, tx *gorm.DB, id, approverID uuid.UUID, at time.Time) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.MaterialTopicMapping{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"approved":    true,
			"approved_by": approverID,
			"approved_at": at,
		}).Error
}

func (r *mappingRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).Where("id = ?", id).Delete(&types.MaterialTopicMapping{}).Error
}
