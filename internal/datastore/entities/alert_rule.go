package entities

import "time"

// AlertRule defines a user-configurable trend alerting rule. Conditions are
// combined per CombineOp; policy blocks are stored as JSON documents.
type AlertRule struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	Name         string           `gorm:"size:255;not null" json:"name"`
	Description  string           `gorm:"size:1000;default:''" json:"description"`
	Enabled      bool             `gorm:"not null;index" json:"enabled"`
	BuiltIn      bool             `gorm:"not null;default:false" json:"built_in"`
	UserID       string           `gorm:"size:64;default:'';index" json:"user_id,omitempty"`
	AlertType    string           `gorm:"size:50;not null" json:"alert_type"`
	BasePriority string           `gorm:"size:20;not null" json:"base_priority"`
	CombineOp    string           `gorm:"size:10;not null;default:'AND'" json:"combine_op"`
	Conditions   []AlertCondition `gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE" json:"conditions"`
	Channels     []string         `gorm:"serializer:json" json:"channels"`
	Scope        RuleScope        `gorm:"serializer:json" json:"scope"`
	Throttle     ThrottlePolicy   `gorm:"serializer:json" json:"throttle"`
	Schedule     RuleSchedule     `gorm:"serializer:json" json:"schedule"`
	Escalation   EscalationPolicy `gorm:"serializer:json" json:"escalation"`
	Metrics      RuleMetrics      `gorm:"serializer:json" json:"metrics"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (AlertRule) TableName() string {
	return "alert_rules"
}

// RuleScope restricts a rule to specific instruments. Empty slices match all.
type RuleScope struct {
	Symbols     []string `json:"symbols,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Hierarchies []string `json:"hierarchies,omitempty"`
	Timeframes  []string `json:"timeframes,omitempty"`
}

// ThrottlePolicy rate-limits rule triggers.
type ThrottlePolicy struct {
	// IntervalSec is the sliding window over which MaxAlerts applies.
	IntervalSec int `json:"interval_sec"`
	// MaxAlerts is the trigger budget within IntervalSec. Zero disables.
	MaxAlerts int `json:"max_alerts"`
	// CooldownSec is the minimum quiet time between consecutive triggers.
	CooldownSec int `json:"cooldown_sec"`
}

// RuleSchedule restricts evaluation to active hours and days in a timezone.
// A disabled schedule means the rule is always eligible.
type RuleSchedule struct {
	Enabled   bool   `json:"enabled"`
	Days      []int  `json:"days,omitempty"` // 0=Sunday .. 6=Saturday
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"` // exclusive; 9..17 means 09:00-16:59
	Timezone  string `json:"timezone,omitempty"`
}

// EscalationPolicy configures re-notification of unacknowledged alerts.
type EscalationPolicy struct {
	Enabled    bool              `json:"enabled"`
	RequireAck bool              `json:"require_ack"`
	Levels     []EscalationLevel `json:"levels,omitempty"`
}

// EscalationLevel is one step of the escalation ladder. An empty channel set
// falls back to the rule's default channels.
type EscalationLevel struct {
	DelaySec int      `json:"delay_sec"`
	Channels []string `json:"channels,omitempty"`
}

// RuleMetrics is the running effectiveness bookkeeping for a rule.
type RuleMetrics struct {
	TriggerCount    int64      `json:"trigger_count"`
	SuppressedCount int64      `json:"suppressed_count"`
	TruePositives   int64      `json:"true_positives"`
	FalsePositives  int64      `json:"false_positives"`
	AckRate         float64    `json:"ack_rate"`
	Effectiveness   float64    `json:"effectiveness"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
}
