package entities

import "time"

// AlertBatch records one aggregated delivery of lower-priority alerts that
// share a channel set.
type AlertBatch struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	AlertIDs []string `gorm:"serializer:json" json:"alert_ids"`
	Channels []string `gorm:"serializer:json" json:"channels"`

	Dedup  BatchDedupPolicy `gorm:"serializer:json" json:"dedup"`
	Result BatchResult      `gorm:"serializer:json" json:"result"`
}

// TableName returns the table name for GORM.
func (AlertBatch) TableName() string {
	return "alert_batches"
}

// BatchDedupPolicy controls in-batch deduplication.
type BatchDedupPolicy struct {
	Enabled   bool     `json:"enabled"`
	WindowSec int      `json:"window_sec"`
	KeyFields []string `json:"key_fields,omitempty"` // default: symbol, type
	Strategy  string   `json:"strategy"`             // merge, skip, replace
}

// BatchResult tallies the outcome of processing one batch.
type BatchResult struct {
	Delivered    int `json:"delivered"`
	Failed       int `json:"failed"`
	Suppressed   int `json:"suppressed"`
	Deduplicated int `json:"deduplicated"`
}
