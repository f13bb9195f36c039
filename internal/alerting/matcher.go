package alerting

import (
	"strconv"
	"sync"
	"time"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/trend"
)

// EvalOutcome is the result of evaluating one rule against a trend signal.
// Confidence is the weighted fraction of matched conditions, independent of
// whether the AND/OR combination triggered.
type EvalOutcome struct {
	Triggered     bool
	Confidence    float64
	MatchedFields []string
}

// ThresholdResolver supplies the active computed threshold for a field so
// conditions with an empty value can bind to dynamic/adaptive thresholds.
type ThresholdResolver interface {
	ActiveThreshold(field, symbol string) (float64, bool)
}

// Matcher selects applicable rules for a signal, gates them on schedule and
// throttling, and evaluates their conditions. Trigger bookkeeping for the
// sliding throttle window is in-memory and resets on restart.
type Matcher struct {
	resolver ThresholdResolver

	triggers map[uint][]time.Time
	mu       sync.Mutex
}

// NewMatcher creates a Matcher. resolver may be nil when no threshold
// binding is wanted.
func NewMatcher(resolver ThresholdResolver) *Matcher {
	return &Matcher{
		resolver: resolver,
		triggers: make(map[uint][]time.Time),
	}
}

// RuleInScope reports whether the rule's scope filters admit the signal.
// Empty filters match everything.
func RuleInScope(rule *entities.AlertRule, data *trend.Data) bool {
	if len(rule.Scope.Symbols) > 0 && !containsFold(rule.Scope.Symbols, data.Symbol) {
		return false
	}
	if len(rule.Scope.Categories) > 0 && !containsFold(rule.Scope.Categories, data.Category) {
		return false
	}
	if len(rule.Scope.Hierarchies) > 0 && !containsFold(rule.Scope.Hierarchies, data.Hierarchy) {
		return false
	}
	if len(rule.Scope.Timeframes) > 0 && !containsFold(rule.Scope.Timeframes, data.Timeframe) {
		return false
	}
	return true
}

// Select returns the enabled rules whose scope admits the signal.
func (m *Matcher) Select(rules []entities.AlertRule, data *trend.Data) []*entities.AlertRule {
	var out []*entities.AlertRule
	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled {
			continue
		}
		if RuleInScope(rule, data) {
			out = append(out, rule)
		}
	}
	return out
}

// Eligible checks the schedule and throttle gates. Ineligible rules are
// skipped entirely: no evaluation, no metric update.
func (m *Matcher) Eligible(rule *entities.AlertRule, now time.Time) bool {
	if !ScheduleAllows(rule.Schedule, now) {
		return false
	}
	return m.throttleAllows(rule, now)
}

// ScheduleAllows reports whether the rule's schedule admits evaluation at
// the given instant, in the schedule's timezone.
func ScheduleAllows(schedule entities.RuleSchedule, now time.Time) bool {
	if !schedule.Enabled {
		return true
	}

	loc := time.UTC
	if schedule.Timezone != "" {
		if parsed, err := time.LoadLocation(schedule.Timezone); err == nil {
			loc = parsed
		}
	}
	local := now.In(loc)

	if len(schedule.Days) > 0 {
		day := int(local.Weekday())
		found := false
		for _, d := range schedule.Days {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	// StartHour == EndHour means no hour restriction.
	if schedule.StartHour == schedule.EndHour {
		return true
	}
	hour := local.Hour()
	if schedule.StartHour < schedule.EndHour {
		return hour >= schedule.StartHour && hour < schedule.EndHour
	}
	// Overnight window, e.g. 22..6
	return hour >= schedule.StartHour || hour < schedule.EndHour
}

// throttleAllows enforces the cooldown and the sliding-interval trigger cap.
func (m *Matcher) throttleAllows(rule *entities.AlertRule, now time.Time) bool {
	policy := rule.Throttle
	if policy.CooldownSec <= 0 && policy.MaxAlerts <= 0 {
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.triggers[rule.ID]

	if policy.CooldownSec > 0 && len(log) > 0 {
		last := log[len(log)-1]
		if now.Sub(last) < time.Duration(policy.CooldownSec)*time.Second {
			return false
		}
	}

	if policy.MaxAlerts > 0 && policy.IntervalSec > 0 {
		windowStart := now.Add(-time.Duration(policy.IntervalSec) * time.Second)
		count := 0
		for _, t := range log {
			if !t.Before(windowStart) {
				count++
			}
		}
		if count >= policy.MaxAlerts {
			return false
		}
	}

	return true
}

// RecordTrigger logs a trigger for throttle bookkeeping and compacts
// entries that fell out of the sliding window.
func (m *Matcher) RecordTrigger(rule *entities.AlertRule, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := append(m.triggers[rule.ID], now)

	retain := time.Duration(rule.Throttle.IntervalSec) * time.Second
	if cooldown := time.Duration(rule.Throttle.CooldownSec) * time.Second; cooldown > retain {
		retain = cooldown
	}
	if retain > 0 {
		cutoff := now.Add(-retain)
		start := 0
		for start < len(log) && log[start].Before(cutoff) {
			start++
		}
		log = log[start:]
	}

	m.triggers[rule.ID] = log
}

// ForgetRule drops throttle bookkeeping for a deleted rule.
func (m *Matcher) ForgetRule(ruleID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.triggers, ruleID)
}

// EvaluateRule scores every condition and combines the results per the
// rule's combination operator. Confidence is Σ matched weight / Σ all
// weight regardless of the operator.
func (m *Matcher) EvaluateRule(rule *entities.AlertRule, data *trend.Data) EvalOutcome {
	if len(rule.Conditions) == 0 {
		return EvalOutcome{}
	}

	var totalWeight, matchedWeight float64
	var matchedFields []string
	matchedCount := 0

	for i := range rule.Conditions {
		cond := m.bindThreshold(&rule.Conditions[i], data)
		totalWeight += cond.Weight
		if EvaluateCondition(cond, data) {
			matchedCount++
			matchedWeight += cond.Weight
			matchedFields = append(matchedFields, cond.Field)
		}
	}

	triggered := false
	switch rule.CombineOp {
	case CombineOr:
		triggered = matchedCount > 0
	default: // AND
		triggered = matchedCount == len(rule.Conditions)
	}

	confidence := 0.0
	if totalWeight > 0 {
		confidence = matchedWeight / totalWeight
	}

	return EvalOutcome{
		Triggered:     triggered,
		Confidence:    confidence,
		MatchedFields: matchedFields,
	}
}

// bindThreshold substitutes the active computed threshold into a condition
// with an empty value. With no resolver or no active threshold the
// condition is left untouched and will fail its numeric parse.
func (m *Matcher) bindThreshold(cond *entities.AlertCondition, data *trend.Data) *entities.AlertCondition {
	if cond.Value != "" || m.resolver == nil {
		return cond
	}
	value, ok := m.resolver.ActiveThreshold(cond.Field, data.Symbol)
	if !ok {
		return cond
	}
	bound := *cond
	bound.Value = strconv.FormatFloat(value, 'f', -1, 64)
	return &bound
}
