package alerting

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/trend"
)

// Factory builds TrendAlert entities from triggered rules. It owns priority
// computation, deterministic content templating and expiry assignment.
type Factory struct{}

// NewFactory creates a Factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Build constructs an alert for a triggered rule. The alert starts pending;
// the deduplicator decides whether it is admitted.
func (f *Factory) Build(rule *entities.AlertRule, data *trend.Data, outcome EvalOutcome, now time.Time) *entities.TrendAlert {
	priority := computePriority(rule.BasePriority, data, outcome)

	maxLevel := 0
	if rule.Escalation.Enabled {
		maxLevel = len(rule.Escalation.Levels)
	}

	alert := &entities.TrendAlert{
		ID:          uuid.New().String(),
		RuleID:      rule.ID,
		Type:        rule.AlertType,
		Priority:    priority,
		Status:      StatusPending,
		TriggeredAt: now,

		Symbol:    data.Symbol,
		Category:  data.Category,
		Hierarchy: data.Hierarchy,
		Timeframe: data.Timeframe,

		Title:       buildTitle(rule, data),
		Message:     buildMessage(rule, data, outcome),
		Description: buildDescription(rule, data, outcome),

		Snapshot:        *data,
		Confidence:      outcome.Confidence,
		MatchedFields:   outcome.MatchedFields,
		Recommendations: buildRecommendations(data),

		Channels: append([]string(nil), rule.Channels...),
		Escalation: entities.EscalationState{
			Level:    0,
			MaxLevel: maxLevel,
		},

		ExpiresAt:  now.Add(ExpiryFor(rule.AlertType)),
		MaxRetries: 3,
	}

	return alert
}

// computePriority starts from the rule's base priority and upgrades one
// level when trend strength and confidence both exceed 0.8, and once more
// when the evaluator confidence exceeds 0.9.
func computePriority(base string, data *trend.Data, outcome EvalOutcome) string {
	priority := base
	if priority == "" {
		priority = PriorityLow
	}
	if data.Strength > strongSignalThreshold && data.Confidence > strongSignalThreshold {
		priority = upgradePriority(priority)
	}
	if outcome.Confidence > highConfidenceThreshold {
		priority = upgradePriority(priority)
	}
	return priority
}

func buildTitle(rule *entities.AlertRule, data *trend.Data) string {
	return fmt.Sprintf("%s: %s %s", rule.Name, data.Symbol, data.Direction)
}

func buildMessage(rule *entities.AlertRule, data *trend.Data, outcome EvalOutcome) string {
	return fmt.Sprintf("%s detected a %s trend on %s (strength %.2f, signal confidence %.2f, match confidence %.2f)",
		rule.Name, data.Direction, data.Symbol, data.Strength, data.Confidence, outcome.Confidence)
}

func buildDescription(rule *entities.AlertRule, data *trend.Data, outcome EvalOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rule %q triggered for %s", rule.Name, data.Symbol)
	if data.Timeframe != "" {
		fmt.Fprintf(&b, " on the %s timeframe", data.Timeframe)
	}
	b.WriteString(".")
	if len(outcome.MatchedFields) > 0 {
		fmt.Fprintf(&b, " Matched conditions: %s.", strings.Join(outcome.MatchedFields, ", "))
	}
	if data.Context.MarketCondition != "" {
		fmt.Fprintf(&b, " Market condition: %s.", data.Context.MarketCondition)
	}
	return b.String()
}

// buildRecommendations derives short, deterministic follow-ups from the
// signal. No scoring models are involved.
func buildRecommendations(data *trend.Data) []string {
	var recs []string
	if len(data.KeyLevels) > 0 {
		levels := make([]string, 0, len(data.KeyLevels))
		for _, l := range data.KeyLevels {
			levels = append(levels, fmt.Sprintf("%.2f", l))
		}
		recs = append(recs, fmt.Sprintf("Watch key levels: %s", strings.Join(levels, ", ")))
	}
	if len(data.Context.CorrelatedSymbols) > 0 {
		recs = append(recs, fmt.Sprintf("Check correlated symbols: %s", strings.Join(data.Context.CorrelatedSymbols, ", ")))
	}
	if len(data.Context.Catalysts) > 0 {
		recs = append(recs, fmt.Sprintf("Review catalysts: %s", strings.Join(data.Context.Catalysts, ", ")))
	}
	return recs
}
