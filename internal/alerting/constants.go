// Package alerting implements the trend alerting rules engine: condition
// evaluation, threshold computation, rule matching, alert construction,
// deduplication, scheduling, batching, delivery and escalation.
package alerting

import "time"

// Alert types categorize what kind of trend event an alert describes.
const (
	AlertTypeTrendEmergence  = "trend_emergence"
	AlertTypeTrendReversal   = "trend_reversal"
	AlertTypeBreakout        = "breakout"
	AlertTypeMomentumShift   = "momentum_shift"
	AlertTypeVolatilitySpike = "volatility_spike"
	AlertTypeSentimentShift  = "sentiment_shift"
)

// Priorities order alerts for queue routing and escalation urgency.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Alert lifecycle statuses.
const (
	StatusPending      = "pending"
	StatusActive       = "active"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
	StatusSuppressed   = "suppressed"
	StatusExpired      = "expired"
)

// Condition operators define how field values are compared.
const (
	OperatorGreaterThan    = "gt"
	OperatorLessThan       = "lt"
	OperatorEqual          = "eq"
	OperatorNotEqual       = "ne"
	OperatorGreaterOrEqual = "gte"
	OperatorLessOrEqual    = "lte"
	OperatorContains       = "contains"
	OperatorNotContains    = "not_contains"
	OperatorIn             = "in"
	OperatorNotIn          = "not_in"
	OperatorBetween        = "between"
	OperatorNotBetween     = "not_between"
)

// Condition combination operators.
const (
	CombineAnd = "AND"
	CombineOr  = "OR"
)

// Threshold computation methods, in increasing data-fidelity order.
const (
	MethodStatic   = "static"
	MethodDynamic  = "dynamic"
	MethodAdaptive = "adaptive"
)

// Batch deduplication strategies.
const (
	StrategyMerge   = "merge"
	StrategySkip    = "skip"
	StrategyReplace = "replace"
)

// Priority upgrade thresholds. Fixed defaults, not per-rule configurable.
const (
	strongSignalThreshold   = 0.8
	highConfidenceThreshold = 0.9
)

// alertExpiry maps alert types to their time-to-live.
var alertExpiry = map[string]time.Duration{
	AlertTypeTrendEmergence:  2 * time.Hour,
	AlertTypeTrendReversal:   1 * time.Hour,
	AlertTypeBreakout:        30 * time.Minute,
	AlertTypeMomentumShift:   30 * time.Minute,
	AlertTypeVolatilitySpike: 15 * time.Minute,
	AlertTypeSentimentShift:  1 * time.Hour,
}

// defaultAlertExpiry applies to unknown alert types.
const defaultAlertExpiry = 1 * time.Hour

// ExpiryFor returns the time-to-live for an alert type.
func ExpiryFor(alertType string) time.Duration {
	if d, ok := alertExpiry[alertType]; ok {
		return d
	}
	return defaultAlertExpiry
}

// AlertTypes lists all known alert types.
func AlertTypes() []string {
	return []string{
		AlertTypeTrendEmergence,
		AlertTypeTrendReversal,
		AlertTypeBreakout,
		AlertTypeMomentumShift,
		AlertTypeVolatilitySpike,
		AlertTypeSentimentShift,
	}
}

// Priorities lists all priorities from lowest to highest.
func Priorities() []string {
	return []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// upgradePriority raises a priority one level, capped at critical.
func upgradePriority(priority string) string {
	switch priority {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	case PriorityHigh, PriorityCritical:
		return PriorityCritical
	default:
		return priority
	}
}

// isRealtimePriority reports whether a priority is served by the realtime
// queue rather than batched.
func isRealtimePriority(priority string) bool {
	return priority == PriorityCritical || priority == PriorityHigh
}

// priorityRank orders priorities numerically for comparisons.
func priorityRank(priority string) int {
	switch priority {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}
