package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

// PerformanceRepo is a read-only view over performance rows owned by the
// performance-tracking subsystem.
type PerformanceRepo interface {
	ListByStudentCourse(ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID) ([]*types.StudentTopicPerformance, error)
}

type performanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPerformanceRepo(db *gorm.DB, baseLog *logger.Logger) PerformanceRepo {
	return &performanceRepo{db: db, log: baseLog.With("repo", "PerformanceRepo")}
}

func (r *performanceRepo) ListByStudentCourse(ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID) ([]*types.StudentTopicPerformance, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	var results []*types.StudentTopicPerformance
	if err := conn.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Order("week_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
