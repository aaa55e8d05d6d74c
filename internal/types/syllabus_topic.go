package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyllabusTopic is owned by the syllabus subsystem; the pipeline consumes it
// read-only as the semantic anchor for recommendation.
type SyllabusTopic struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID     uuid.UUID `gorm:"type:uuid;not null;index:idx_syllabus_course_week" json:"course_id"`
	WeekNumber   int       `gorm:"column:week_number;not null;index:idx_syllabus_course_week" json:"week_number"`
	TopicTitle   string    `gorm:"column:topic_title;not null" json:"topic_title"`
	TopicContent string    `gorm:"column:topic_content" json:"topic_content"`
	Active       bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (SyllabusTopic) TableName() string { return "syllabus_topic" }

func (s *SyllabusTopic) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
