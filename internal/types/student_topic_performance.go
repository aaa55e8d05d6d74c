package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudentTopicPerformance is owned by the performance-tracking subsystem;
// the personalization layer reads it to bias ranking toward weak topics.
type StudentTopicPerformance struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_perf_student_course" json:"student_id"`
	CourseID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_perf_student_course" json:"course_id"`
	WeekNumber    int        `gorm:"column:week_number;not null" json:"week_number"`
	AverageScore  float64    `gorm:"column:average_score;not null;default:0" json:"average_score"`
	AttemptCount  int        `gorm:"column:attempt_count;not null;default:0" json:"attempt_count"`
	IsWeakTopic   bool       `gorm:"column:is_weak_topic;not null;default:false" json:"is_weak_topic"`
	LastAttemptAt *time.Time `gorm:"column:last_attempt_at" json:"last_attempt_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

func (StudentTopicPerformance) TableName() string { return "student_topic_performance" }

func (p *StudentTopicPerformance) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
