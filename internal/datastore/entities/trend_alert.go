package entities

import (
	"time"

	"github.com/signalwatch/trendalert-go/internal/trend"
)

// TrendAlert is a generated alert owned by the engine for its full lifetime.
// It is created exclusively by the alert factory and transitions state only
// via delivery, acknowledgment, resolution, escalation, or expiry.
type TrendAlert struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	RuleID      uint      `gorm:"not null;index" json:"rule_id"`
	Type        string    `gorm:"size:50;not null;index" json:"type"`
	Priority    string    `gorm:"size:20;not null;index" json:"priority"`
	Status      string    `gorm:"size:20;not null;index" json:"status"`
	TriggeredAt time.Time `gorm:"not null;index" json:"triggered_at"`

	Symbol    string `gorm:"size:32;not null;index" json:"symbol"`
	Category  string `gorm:"size:64;default:''" json:"category,omitempty"`
	Hierarchy string `gorm:"size:64;default:''" json:"hierarchy,omitempty"`
	Timeframe string `gorm:"size:16;default:''" json:"timeframe,omitempty"`

	Title       string `gorm:"size:500;not null" json:"title"`
	Message     string `gorm:"size:2000;not null" json:"message"`
	Description string `gorm:"type:text;default:''" json:"description,omitempty"`

	// Snapshot is the trend data that caused the alert.
	Snapshot        trend.Data `gorm:"serializer:json" json:"snapshot"`
	Confidence      float64    `gorm:"not null;default:0" json:"confidence"`
	MatchedFields   []string   `gorm:"serializer:json" json:"matched_fields,omitempty"`
	Recommendations []string   `gorm:"serializer:json" json:"recommendations,omitempty"`

	Channels    []string          `gorm:"serializer:json" json:"channels"`
	Delivery    DeliveryRecord    `gorm:"serializer:json" json:"delivery"`
	Interaction InteractionRecord `gorm:"serializer:json" json:"interaction"`
	Escalation  EscalationState   `gorm:"serializer:json" json:"escalation"`

	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries int       `gorm:"not null;default:3" json:"max_retries"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (TrendAlert) TableName() string {
	return "trend_alerts"
}

// DeliveryRecord accumulates per-channel delivery attempts.
type DeliveryRecord struct {
	Attempts    []DeliveryAttempt `json:"attempts,omitempty"`
	Delivered   bool              `json:"delivered"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty"`
}

// DeliveryAttempt is a single timestamped channel send result.
type DeliveryAttempt struct {
	Channel   string    `json:"channel"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// InteractionRecord tracks user acknowledgment and resolution.
type InteractionRecord struct {
	Acknowledged   bool           `json:"acknowledged"`
	AcknowledgedBy string         `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	Resolved       bool           `json:"resolved"`
	ResolvedBy     string         `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	Feedback       *AlertFeedback `json:"feedback,omitempty"`
}

// AlertFeedback is optional user feedback supplied at resolution.
type AlertFeedback struct {
	Useful   bool    `json:"useful"`
	Accuracy float64 `json:"accuracy"`
	Comments string  `json:"comments,omitempty"`
}

// EscalationState tracks an alert's position in its escalation ladder.
type EscalationState struct {
	Level    int        `json:"level"`
	MaxLevel int        `json:"max_level"`
	NextAt   *time.Time `json:"next_at,omitempty"`
	LastAt   *time.Time `json:"last_at,omitempty"`
}
