package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

// SyllabusRepo is a read-only view over syllabus rows owned by the syllabus
// subsystem.
type SyllabusRepo interface {
	GetActiveTopic(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, week int) (*types.SyllabusTopic, error)
	ListActiveByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.SyllabusTopic, error)
	ListAllActive(ctx context.Context, tx *gorm.DB) ([]*types.SyllabusTopic, error)
}

type syllabusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyllabusRepo(db *gorm.DB, baseLog *logger.Logger) SyllabusRepo {
	return &syllabusRepo{db: db, log: baseLog.With("repo", "SyllabusRepo")}
}

func (r *syllabusRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *syllabusRepo) GetActiveTopic(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, week int) (*types.SyllabusTopic, error) {
	var topic types.SyllabusTopic
	err := r.conn(tx).WithContext(ctx).
		Where("course_id = ? AND week_number = ? AND active = ?", courseID, week, true).
		First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *syllabusRepo) ListActiveByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.SyllabusTopic, error) {
	var results []*types.SyllabusTopic
	if err := r.conn(tx).WithContext(ctx).
		Where("course_id = ? AND active = ?", courseID, true).
		Order("week_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *syllabusRepo) ListAllActive(ctx context.Context, tx *gorm.DB) ([]*types.SyllabusTopic, error) {
	var results []*types.SyllabusTopic
	if err := r.conn(tx).WithContext(ctx).
		Where("active = ?", true).
		Order("course_id, week_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
