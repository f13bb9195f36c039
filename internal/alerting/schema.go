package alerting

// Schema describes the full catalog of alert types, condition fields, and
// operators available for rule building.
type Schema struct {
	AlertTypes []AlertTypeSchema `json:"alertTypes"`
	Fields     []FieldSchema     `json:"fields"`
	Operators  []OperatorSchema  `json:"operators"`
	Priorities []string          `json:"priorities"`
	Strategies []string          `json:"batchStrategies"`
}

// AlertTypeSchema describes one alert type for the UI.
type AlertTypeSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// FieldSchema describes a condition field available for rule building.
type FieldSchema struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Type      string   `json:"type"` // "string" or "number"
	Operators []string `json:"operators"`
}

// OperatorSchema describes an operator for the UI.
type OperatorSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"` // "string", "number", or "all"
}

// stringOperators are operators valid for string fields.
var stringOperators = []string{
	OperatorEqual, OperatorNotEqual, OperatorContains, OperatorNotContains,
	OperatorIn, OperatorNotIn,
}

// numericOperators are operators valid for numeric fields.
var numericOperators = []string{
	OperatorGreaterThan, OperatorLessThan, OperatorGreaterOrEqual,
	OperatorLessOrEqual, OperatorEqual, OperatorNotEqual,
	OperatorBetween, OperatorNotBetween,
}

// GetSchema returns the full rule-building schema for the UI.
func GetSchema() Schema {
	return Schema{
		AlertTypes: []AlertTypeSchema{
			{Name: AlertTypeTrendEmergence, Label: "Trend Emergence"},
			{Name: AlertTypeTrendReversal, Label: "Trend Reversal"},
			{Name: AlertTypeBreakout, Label: "Breakout"},
			{Name: AlertTypeMomentumShift, Label: "Momentum Shift"},
			{Name: AlertTypeVolatilitySpike, Label: "Volatility Spike"},
			{Name: AlertTypeSentimentShift, Label: "Sentiment Shift"},
		},
		Fields: []FieldSchema{
			{Name: "symbol", Label: "Symbol", Type: "string", Operators: stringOperators},
			{Name: "category", Label: "Category", Type: "string", Operators: stringOperators},
			{Name: "hierarchy", Label: "Hierarchy", Type: "string", Operators: stringOperators},
			{Name: "timeframe", Label: "Timeframe", Type: "string", Operators: stringOperators},
			{Name: "direction", Label: "Trend Direction", Type: "string", Operators: stringOperators},
			{Name: "strength", Label: "Trend Strength", Type: "number", Operators: numericOperators},
			{Name: "confidence", Label: "Detector Confidence", Type: "number", Operators: numericOperators},
			{Name: "magnitude", Label: "Move Magnitude", Type: "number", Operators: numericOperators},
			{Name: "duration", Label: "Trend Duration (s)", Type: "number", Operators: numericOperators},
			{Name: "context.marketCondition", Label: "Market Condition", Type: "string", Operators: stringOperators},
			{Name: "context.volatility", Label: "Volatility", Type: "number", Operators: numericOperators},
			{Name: "context.volume", Label: "Volume", Type: "number", Operators: numericOperators},
			{Name: "context.sentiment", Label: "Sentiment", Type: "string", Operators: stringOperators},
		},
		Operators: []OperatorSchema{
			{Name: OperatorEqual, Label: "equals", Type: "all"},
			{Name: OperatorNotEqual, Label: "does not equal", Type: "all"},
			{Name: OperatorGreaterThan, Label: "greater than", Type: "number"},
			{Name: OperatorLessThan, Label: "less than", Type: "number"},
			{Name: OperatorGreaterOrEqual, Label: "greater or equal", Type: "number"},
			{Name: OperatorLessOrEqual, Label: "less or equal", Type: "number"},
			{Name: OperatorContains, Label: "contains", Type: "string"},
			{Name: OperatorNotContains, Label: "does not contain", Type: "string"},
			{Name: OperatorIn, Label: "is one of", Type: "string"},
			{Name: OperatorNotIn, Label: "is not one of", Type: "string"},
			{Name: OperatorBetween, Label: "between", Type: "number"},
			{Name: OperatorNotBetween, Label: "not between", Type: "number"},
		},
		Priorities: Priorities(),
		Strategies: []string{StrategyMerge, StrategySkip, StrategyReplace},
	}
}
