package entities

import "time"

// AlertThreshold configures how the triggering value for a field is computed.
// The three modes are independently enableable; the highest-fidelity enabled
// mode that can produce a value wins (adaptive > dynamic > static).
type AlertThreshold struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Field  string `gorm:"size:100;not null;index" json:"field"`
	Symbol string `gorm:"size:32;default:'';index" json:"symbol,omitempty"` // empty = all symbols

	Static   *StaticThreshold   `gorm:"serializer:json" json:"static,omitempty"`
	Dynamic  *DynamicThreshold  `gorm:"serializer:json" json:"dynamic,omitempty"`
	Adaptive *AdaptiveThreshold `gorm:"serializer:json" json:"adaptive,omitempty"`

	// CurrentValue is the last computed threshold and Method the mode that
	// produced it.
	CurrentValue float64 `gorm:"not null;default:0" json:"current_value"`
	Method       string  `gorm:"size:20;default:''" json:"method"`

	Accuracy ThresholdAccuracy `gorm:"serializer:json" json:"accuracy"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (AlertThreshold) TableName() string {
	return "alert_thresholds"
}

// StaticThreshold is a fixed value with a comparison operator.
type StaticThreshold struct {
	Enabled  bool    `json:"enabled"`
	Value    float64 `json:"value"`
	Operator string  `json:"operator"`
}

// DynamicThreshold adjusts a base value multiplicatively by volatility,
// market condition, and time of day.
type DynamicThreshold struct {
	Enabled              bool               `json:"enabled"`
	BaseValue            float64            `json:"base_value"`
	VolatilityMultiplier float64            `json:"volatility_multiplier"`
	MarketAdjustments    map[string]float64 `json:"market_adjustments,omitempty"`
	HourAdjustments      map[int]float64    `json:"hour_adjustments,omitempty"`
}

// AdaptiveThreshold derives the value statistically from historical samples:
// mean + z(confidence) × stddev over LookbackHours.
type AdaptiveThreshold struct {
	Enabled            bool    `json:"enabled"`
	LookbackHours      int     `json:"lookback_hours"`
	MinDataPoints      int     `json:"min_data_points"`
	ConfidenceInterval float64 `json:"confidence_interval"` // 0.90, 0.95, 0.99
}

// ThresholdAccuracy is the historical accuracy bookkeeping for a threshold.
type ThresholdAccuracy struct {
	Evaluations    int64      `json:"evaluations"`
	TruePositives  int64      `json:"true_positives"`
	FalsePositives int64      `json:"false_positives"`
	LastComputedAt *time.Time `json:"last_computed_at,omitempty"`
}
