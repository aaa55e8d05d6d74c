package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaterialRating is a student thumbs-up/down on a material. Rating is +1 or
// -1. The pipeline only reads these as a ranking signal.
type MaterialRating struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MaterialID uuid.UUID `gorm:"type:uuid;not null;index" json:"material_id"`
	Material   *Material `gorm:"constraint:OnDelete:CASCADE;foreignKey:MaterialID;references:ID" json:"material,omitempty"`
	StudentID  uuid.UUID `gorm:"type:uuid;not null" json:"student_id"`
	Rating     int       `gorm:"column:rating;not null;check:rating IN (-1, 1)" json:"rating"`
	Note       string    `gorm:"column:note" json:"note"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (MaterialRating) TableName() string { return "material_rating" }

func (r *MaterialRating) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
