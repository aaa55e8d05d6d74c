package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaterialTopicMapping links a material to a (course, week) syllabus slot.
// At most one mapping may exist per (material, course, week) triple; the
// composite unique index enforces it. A mapping is either approved (visible
// to students) or deleted on rejection, never retained as "rejected".
type MaterialTopicMapping struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	MaterialID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_material_course_week" json:"material_id"`
	Material       *Material  `gorm:"constraint:OnDelete:CASCADE;foreignKey:MaterialID;references:ID" json:"material,omitempty"`
	CourseID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_material_course_week;index" json:"course_id"`
	WeekNumber     int        `gorm:"column:week_number;not null;uniqueIndex:idx_material_course_week;check:week_number >= 1 AND week_number <= 52" json:"week_number"`
	RelevanceScore float64    `gorm:"column:relevance_score;not null;default:0" json:"relevance_score"`
	Approved       bool       `gorm:"column:approved;not null;default:false;index" json:"approved"`
	ApprovedBy     *uuid.UUID `gorm:"column:approved_by;type:uuid" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (MaterialTopicMapping) TableName() string { return "material_topic_mapping" }

func (m *MaterialTopicMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
