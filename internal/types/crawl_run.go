package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CrawlRunStatusRunning   = "running"
	CrawlRunStatusCompleted = "completed"
	CrawlRunStatusFailed    = "failed"
)

// CrawlRun records one orchestrator invocation for one source. Status only
// ever moves running -> completed or running -> failed, written exactly once
// at open and once at close.
type CrawlRun struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SourceType   string     `gorm:"column:source_type;not null;index" json:"source_type"`
	Status       string     `gorm:"column:status;not null;index" json:"status"`
	ItemsFetched int        `gorm:"column:items_fetched;not null;default:0" json:"items_fetched"`
	ErrorMessage string     `gorm:"column:error_message" json:"error_message,omitempty"`
	StartedAt    time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt   *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

func (CrawlRun) TableName() string { return "crawl_run" }

func (r *CrawlRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
