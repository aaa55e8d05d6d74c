package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Material is a discovered or uploaded educational resource. URL is the
// canonical (already normalized) address and is globally unique; the
// database constraint is the final arbiter when concurrent crawl runs race.
type Material struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	URL           string         `gorm:"column:url;uniqueIndex;not null" json:"url"`
	SourceName    string         `gorm:"column:source_name;index" json:"source_name"`
	ContentType   string         `gorm:"column:content_type" json:"content_type"`
	Author        string         `gorm:"column:author" json:"author"`
	PublishDate   *time.Time     `gorm:"column:publish_date" json:"publish_date,omitempty"`
	Description   string         `gorm:"column:description" json:"description"`
	ContentText   string         `gorm:"column:content_text" json:"content_text"`
	Snippet       string         `gorm:"column:snippet" json:"snippet"`
	QualityScore  float64        `gorm:"column:quality_score;not null;default:0" json:"quality_score"`
	ContentHash   string         `gorm:"column:content_hash;index" json:"content_hash"`
	Embedding     datatypes.JSON `gorm:"column:embedding;type:jsonb" json:"embedding,omitempty"`
	Metadata      datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	ViewCount     int64          `gorm:"column:view_count;not null;default:0" json:"view_count"`
	DownloadCount int64          `gorm:"column:download_count;not null;default:0" json:"download_count"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Material) TableName() string { return "material" }

func (m *Material) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
