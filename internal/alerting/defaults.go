package alerting

import (
	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
)

// DefaultRules returns the built-in starter rules. These are seeded on first
// startup and can be restored via reset-defaults.
func DefaultRules() []entities.AlertRule {
	return []entities.AlertRule{
		{
			Name:         "Strong trend emergence",
			Description:  "Fires when a new trend emerges with high strength and confidence",
			Enabled:      true,
			BuiltIn:      true,
			AlertType:    AlertTypeTrendEmergence,
			BasePriority: PriorityMedium,
			CombineOp:    CombineAnd,
			Conditions: []entities.AlertCondition{
				{Field: "strength", Operator: OperatorGreaterOrEqual, Value: "0.7", Weight: 1, SortOrder: 0},
				{Field: "confidence", Operator: OperatorGreaterOrEqual, Value: "0.7", Weight: 1, SortOrder: 1},
			},
			Channels: []string{"log"},
			Throttle: entities.ThrottlePolicy{IntervalSec: 300, MaxAlerts: 5, CooldownSec: 60},
		},
		{
			Name:         "Trend reversal warning",
			Description:  "Fires when an established trend reverses direction",
			Enabled:      true,
			BuiltIn:      true,
			AlertType:    AlertTypeTrendReversal,
			BasePriority: PriorityHigh,
			CombineOp:    CombineAnd,
			Conditions: []entities.AlertCondition{
				{Field: "strength", Operator: OperatorGreaterOrEqual, Value: "0.6", Weight: 1, SortOrder: 0},
				{Field: "duration", Operator: OperatorGreaterOrEqual, Value: "3600", Weight: 0.5, SortOrder: 1},
			},
			Channels: []string{"log"},
			Throttle: entities.ThrottlePolicy{IntervalSec: 600, MaxAlerts: 3, CooldownSec: 120},
		},
		{
			Name:         "Breakout on high volume",
			Description:  "Fires on price breakouts confirmed by elevated volume",
			Enabled:      true,
			BuiltIn:      true,
			AlertType:    AlertTypeBreakout,
			BasePriority: PriorityHigh,
			CombineOp:    CombineAnd,
			Conditions: []entities.AlertCondition{
				{Field: "magnitude", Operator: OperatorGreaterOrEqual, Value: "2.0", Weight: 1, SortOrder: 0},
				{Field: "context.volume", Operator: OperatorGreaterOrEqual, Value: "1.5", Weight: 1, SortOrder: 1},
			},
			Channels: []string{"log"},
			Throttle: entities.ThrottlePolicy{IntervalSec: 300, MaxAlerts: 5, CooldownSec: 60},
		},
		{
			Name:         "Volatility spike",
			Description:  "Fires when volatility jumps above the adaptive baseline",
			Enabled:      true,
			BuiltIn:      true,
			AlertType:    AlertTypeVolatilitySpike,
			BasePriority: PriorityCritical,
			CombineOp:    CombineOr,
			Conditions: []entities.AlertCondition{
				{Field: "context.volatility", Operator: OperatorGreaterThan, Value: "", Weight: 1, SortOrder: 0},
				{Field: "magnitude", Operator: OperatorGreaterOrEqual, Value: "3.0", Weight: 0.5, SortOrder: 1},
			},
			Channels: []string{"log"},
			Throttle: entities.ThrottlePolicy{IntervalSec: 300, MaxAlerts: 3, CooldownSec: 60},
			Escalation: entities.EscalationPolicy{
				Enabled:    true,
				RequireAck: true,
				Levels: []entities.EscalationLevel{
					{DelaySec: 300},
					{DelaySec: 900},
				},
			},
		},
		{
			Name:         "Sentiment shift",
			Description:  "Fires when market sentiment flips on a tracked symbol",
			Enabled:      true,
			BuiltIn:      true,
			AlertType:    AlertTypeSentimentShift,
			BasePriority: PriorityLow,
			CombineOp:    CombineAnd,
			Conditions: []entities.AlertCondition{
				{Field: "context.sentiment", Operator: OperatorIn, Value: `["bearish","bullish"]`, Weight: 1, SortOrder: 0},
				{Field: "confidence", Operator: OperatorGreaterOrEqual, Value: "0.6", Weight: 0.5, SortOrder: 1},
			},
			Channels: []string{"log"},
			Throttle: entities.ThrottlePolicy{IntervalSec: 900, MaxAlerts: 2, CooldownSec: 300},
		},
	}
}
