package entities

// AlertCondition defines a single weighted condition within an alert rule.
// Value is stored as a string; list and range operators (in, between) expect
// a JSON array in that string.
type AlertCondition struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	RuleID   uint    `gorm:"not null;index" json:"rule_id"`
	Field    string  `gorm:"size:100;not null" json:"field"`
	Operator string  `gorm:"size:20;not null" json:"operator"`
	Value    string  `gorm:"size:500;not null" json:"value"`
	Weight   float64 `gorm:"not null;default:1" json:"weight"`

	// WindowSec requires the trend to have persisted at least this long.
	WindowSec int `gorm:"default:0" json:"window_sec,omitempty"`

	// CompareField and CompareOperator add an optional cross-field test that
	// must pass in addition to the direct operator test.
	CompareField    string `gorm:"size:100;default:''" json:"compare_field,omitempty"`
	CompareOperator string `gorm:"size:20;default:''" json:"compare_operator,omitempty"`

	// Contextual gates the condition on the signal's market context.
	Contextual *ContextFilter `gorm:"serializer:json" json:"contextual,omitempty"`

	SortOrder int `gorm:"default:0" json:"sort_order"`
}

// TableName returns the table name for GORM.
func (AlertCondition) TableName() string {
	return "alert_conditions"
}

// ContextFilter restricts a condition to matching market context. All
// specified dimensions must match; nil bounds and empty lists are ignored.
type ContextFilter struct {
	MarketConditions []string `json:"market_conditions,omitempty"`
	Sentiments       []string `json:"sentiments,omitempty"`
	VolatilityMin    *float64 `json:"volatility_min,omitempty"`
	VolatilityMax    *float64 `json:"volatility_max,omitempty"`
	VolumeMin        *float64 `json:"volume_min,omitempty"`
	VolumeMax        *float64 `json:"volume_max,omitempty"`
}
