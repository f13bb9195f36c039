package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
)

// fakeResolver serves canned threshold values keyed by field.
type fakeResolver struct {
	values map[string]float64
}

func (r *fakeResolver) ActiveThreshold(field, symbol string) (float64, bool) {
	v, ok := r.values[field]
	return v, ok
}

func TestRuleInScope(t *testing.T) {
	data := testTrendData() // AAPL, tech, equities/us/tech, 1h

	tests := []struct {
		name  string
		scope entities.RuleScope
		want  bool
	}{
		{"empty scope matches all", entities.RuleScope{}, true},
		{"symbol match", entities.RuleScope{Symbols: []string{"AAPL", "MSFT"}}, true},
		{"symbol case insensitive", entities.RuleScope{Symbols: []string{"aapl"}}, true},
		{"symbol miss", entities.RuleScope{Symbols: []string{"TSLA"}}, false},
		{"category match", entities.RuleScope{Categories: []string{"tech"}}, true},
		{"hierarchy miss", entities.RuleScope{Hierarchies: []string{"equities/eu"}}, false},
		{"timeframe match", entities.RuleScope{Timeframes: []string{"1h", "4h"}}, true},
		{"all dimensions must pass", entities.RuleScope{Symbols: []string{"AAPL"}, Timeframes: []string{"1d"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &entities.AlertRule{Scope: tt.scope}
			assert.Equal(t, tt.want, RuleInScope(rule, data))
		})
	}
}

func TestMatcher_SelectSkipsDisabled(t *testing.T) {
	m := NewMatcher(nil)
	rules := []entities.AlertRule{
		{ID: 1, Enabled: true},
		{ID: 2, Enabled: false},
		{ID: 3, Enabled: true, Scope: entities.RuleScope{Symbols: []string{"TSLA"}}},
	}

	selected := m.Select(rules, testTrendData())
	require.Len(t, selected, 1)
	assert.Equal(t, uint(1), selected[0].ID)
}

func TestScheduleAllows(t *testing.T) {
	// Wednesday 2026-01-07 14:30 UTC
	wednesday := time.Date(2026, 1, 7, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		schedule entities.RuleSchedule
		now      time.Time
		want     bool
	}{
		{"disabled schedule always allows", entities.RuleSchedule{}, wednesday, true},
		{"within hours", entities.RuleSchedule{Enabled: true, StartHour: 9, EndHour: 17}, wednesday, true},
		{"before start", entities.RuleSchedule{Enabled: true, StartHour: 15, EndHour: 17}, wednesday, false},
		{"end hour exclusive", entities.RuleSchedule{Enabled: true, StartHour: 9, EndHour: 14}, wednesday, false},
		{"equal hours unrestricted", entities.RuleSchedule{Enabled: true, StartHour: 0, EndHour: 0}, wednesday, true},
		{"day match", entities.RuleSchedule{Enabled: true, Days: []int{1, 2, 3, 4, 5}}, wednesday, true},
		{"day miss", entities.RuleSchedule{Enabled: true, Days: []int{0, 6}}, wednesday, false},
		{"overnight inside late", entities.RuleSchedule{Enabled: true, StartHour: 22, EndHour: 6},
			time.Date(2026, 1, 7, 23, 0, 0, 0, time.UTC), true},
		{"overnight inside early", entities.RuleSchedule{Enabled: true, StartHour: 22, EndHour: 6},
			time.Date(2026, 1, 7, 3, 0, 0, 0, time.UTC), true},
		{"overnight outside", entities.RuleSchedule{Enabled: true, StartHour: 22, EndHour: 6}, wednesday, false},
		{"timezone shift", entities.RuleSchedule{Enabled: true, StartHour: 9, EndHour: 17, Timezone: "America/New_York"},
			wednesday, true}, // 14:30 UTC = 09:30 EST
		{"bad timezone falls back to UTC", entities.RuleSchedule{Enabled: true, StartHour: 9, EndHour: 17, Timezone: "Not/AZone"},
			wednesday, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScheduleAllows(tt.schedule, tt.now))
		})
	}
}

func TestMatcher_ThrottleMaxAlerts(t *testing.T) {
	m := NewMatcher(nil)
	rule := &entities.AlertRule{
		ID:       1,
		Throttle: entities.ThrottlePolicy{IntervalSec: 300, MaxAlerts: 5},
	}
	now := time.Now()

	for i := 0; i < 5; i++ {
		at := now.Add(time.Duration(i) * time.Second)
		assert.True(t, m.Eligible(rule, at), "trigger %d should be allowed", i+1)
		m.RecordTrigger(rule, at)
	}

	assert.False(t, m.Eligible(rule, now.Add(6*time.Second)), "sixth trigger within the window is throttled")
	assert.True(t, m.Eligible(rule, now.Add(301*time.Second)), "allowed again once the window slides")
}

func TestMatcher_ThrottleCooldown(t *testing.T) {
	m := NewMatcher(nil)
	rule := &entities.AlertRule{
		ID:       2,
		Throttle: entities.ThrottlePolicy{CooldownSec: 60},
	}
	now := time.Now()

	assert.True(t, m.Eligible(rule, now))
	m.RecordTrigger(rule, now)

	assert.False(t, m.Eligible(rule, now.Add(30*time.Second)))
	assert.True(t, m.Eligible(rule, now.Add(61*time.Second)))
}

func TestMatcher_ForgetRule(t *testing.T) {
	m := NewMatcher(nil)
	rule := &entities.AlertRule{ID: 3, Throttle: entities.ThrottlePolicy{CooldownSec: 600}}
	now := time.Now()

	m.RecordTrigger(rule, now)
	assert.False(t, m.Eligible(rule, now.Add(time.Second)))

	m.ForgetRule(rule.ID)
	assert.True(t, m.Eligible(rule, now.Add(time.Second)))
}

func TestMatcher_EvaluateRule_AndCombination(t *testing.T) {
	m := NewMatcher(nil)
	data := testTrendData() // strength 0.85, context.volatility 0.3

	rule := &entities.AlertRule{
		CombineOp: CombineAnd,
		Conditions: []entities.AlertCondition{
			{Field: "strength", Operator: OperatorGreaterThan, Value: "0.7", Weight: 2},
			{Field: "context.volatility", Operator: OperatorGreaterThan, Value: "0.25", Weight: 1},
		},
	}

	outcome := m.EvaluateRule(rule, data)
	assert.True(t, outcome.Triggered)
	assert.InDelta(t, 1.0, outcome.Confidence, 1e-9)
	assert.Equal(t, []string{"strength", "context.volatility"}, outcome.MatchedFields)
}

func TestMatcher_EvaluateRule_AndPartialMatch(t *testing.T) {
	m := NewMatcher(nil)
	data := testTrendData()

	// First condition (weight 3) matches, second (weight 2) does not.
	rule := &entities.AlertRule{
		CombineOp: CombineAnd,
		Conditions: []entities.AlertCondition{
			{Field: "strength", Operator: OperatorGreaterThan, Value: "0.7", Weight: 3},
			{Field: "context.volatility", Operator: OperatorGreaterThan, Value: "0.9", Weight: 2},
		},
	}

	outcome := m.EvaluateRule(rule, data)
	assert.False(t, outcome.Triggered, "AND with one failed condition must not trigger")
	assert.InDelta(t, 0.6, outcome.Confidence, 1e-9, "confidence is reported independently of triggering")
}

func TestMatcher_EvaluateRule_OrCombination(t *testing.T) {
	m := NewMatcher(nil)
	data := testTrendData()

	rule := &entities.AlertRule{
		CombineOp: CombineOr,
		Conditions: []entities.AlertCondition{
			{Field: "strength", Operator: OperatorGreaterThan, Value: "0.99", Weight: 1},
			{Field: "confidence", Operator: OperatorGreaterOrEqual, Value: "0.9", Weight: 1},
		},
	}

	outcome := m.EvaluateRule(rule, data)
	assert.True(t, outcome.Triggered, "OR triggers on any match")
	assert.InDelta(t, 0.5, outcome.Confidence, 1e-9)
	assert.Equal(t, []string{"confidence"}, outcome.MatchedFields)
}

func TestMatcher_EvaluateRule_EmptyConditions(t *testing.T) {
	m := NewMatcher(nil)
	outcome := m.EvaluateRule(&entities.AlertRule{CombineOp: CombineAnd}, testTrendData())
	assert.False(t, outcome.Triggered, "a rule without conditions never triggers")
	assert.Zero(t, outcome.Confidence)
}

func TestMatcher_EvaluateRule_ZeroTotalWeight(t *testing.T) {
	m := NewMatcher(nil)
	rule := &entities.AlertRule{
		CombineOp: CombineAnd,
		Conditions: []entities.AlertCondition{
			{Field: "strength", Operator: OperatorGreaterThan, Value: "0.7", Weight: 0},
		},
	}

	outcome := m.EvaluateRule(rule, testTrendData())
	assert.True(t, outcome.Triggered)
	assert.Zero(t, outcome.Confidence, "zero total weight yields zero confidence, not NaN")
}

func TestMatcher_ThresholdBinding(t *testing.T) {
	resolver := &fakeResolver{values: map[string]float64{"context.volatility": 0.25}}
	m := NewMatcher(resolver)
	data := testTrendData() // volatility 0.3

	rule := &entities.AlertRule{
		CombineOp: CombineAnd,
		Conditions: []entities.AlertCondition{
			// Empty value binds to the resolver's active threshold.
			{Field: "context.volatility", Operator: OperatorGreaterThan, Value: "", Weight: 1},
		},
	}

	outcome := m.EvaluateRule(rule, data)
	assert.True(t, outcome.Triggered, "0.3 > bound threshold 0.25")

	resolver.values["context.volatility"] = 0.5
	outcome = m.EvaluateRule(rule, data)
	assert.False(t, outcome.Triggered, "0.3 is below the raised threshold")

	// Binding must not mutate the stored condition.
	assert.Empty(t, rule.Conditions[0].Value)
}

func TestMatcher_ThresholdBindingNoResolver(t *testing.T) {
	m := NewMatcher(nil)
	rule := &entities.AlertRule{
		CombineOp: CombineAnd,
		Conditions: []entities.AlertCondition{
			{Field: "strength", Operator: OperatorGreaterThan, Value: "", Weight: 1},
		},
	}

	outcome := m.EvaluateRule(rule, testTrendData())
	assert.False(t, outcome.Triggered, "unbound empty value fails its numeric parse")
}
