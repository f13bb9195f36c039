package alerting

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/trend"
)

// EvaluateCondition checks a single condition against a trend snapshot.
// A missing or null field resolves to false, never an error. When contextual
// filters are present, every specified dimension must match or the condition
// fails outright. When a cross-field comparison is present, both the direct
// operator test and the cross-field test must pass. Side-effect free.
func EvaluateCondition(cond *entities.AlertCondition, data *trend.Data) bool {
	if !contextMatches(cond.Contextual, &data.Context) {
		return false
	}

	if cond.WindowSec > 0 && data.Duration < float64(cond.WindowSec) {
		return false
	}

	fields := data.Fields()
	fieldVal, ok := trend.Resolve(fields, cond.Field)
	if !ok {
		return false
	}

	if !applyOperator(cond.Operator, fieldVal, cond.Value) {
		return false
	}

	if cond.CompareField != "" {
		otherVal, ok := trend.Resolve(fields, cond.CompareField)
		if !ok {
			return false
		}
		if !compareCrossField(cond.CompareOperator, fieldVal, otherVal) {
			return false
		}
	}

	return true
}

// contextMatches checks the contextual filter against the signal's market
// context. A nil filter always matches.
func contextMatches(filter *entities.ContextFilter, ctx *trend.Context) bool {
	if filter == nil {
		return true
	}
	if len(filter.MarketConditions) > 0 && !containsFold(filter.MarketConditions, ctx.MarketCondition) {
		return false
	}
	if len(filter.Sentiments) > 0 && !containsFold(filter.Sentiments, ctx.Sentiment) {
		return false
	}
	if filter.VolatilityMin != nil && ctx.Volatility < *filter.VolatilityMin {
		return false
	}
	if filter.VolatilityMax != nil && ctx.Volatility > *filter.VolatilityMax {
		return false
	}
	if filter.VolumeMin != nil && ctx.Volume < *filter.VolumeMin {
		return false
	}
	if filter.VolumeMax != nil && ctx.Volume > *filter.VolumeMax {
		return false
	}
	return true
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

// applyOperator evaluates fieldVal against the condition's encoded value.
func applyOperator(operator string, fieldVal any, condVal string) bool {
	switch operator {
	case OperatorGreaterThan, OperatorLessThan, OperatorGreaterOrEqual, OperatorLessOrEqual:
		return evaluateNumeric(operator, fieldVal, condVal)
	case OperatorEqual:
		return evaluateEqual(fieldVal, condVal)
	case OperatorNotEqual:
		return !evaluateEqual(fieldVal, condVal)
	case OperatorContains:
		return strings.Contains(strings.ToLower(toString(fieldVal)), strings.ToLower(condVal))
	case OperatorNotContains:
		return !strings.Contains(strings.ToLower(toString(fieldVal)), strings.ToLower(condVal))
	case OperatorIn:
		return evaluateIn(fieldVal, condVal)
	case OperatorNotIn:
		list, ok := parseList(condVal)
		if !ok {
			return false
		}
		return !containsFold(list, toString(fieldVal))
	case OperatorBetween:
		lo, hi, ok := parseRange(condVal)
		if !ok {
			return false
		}
		v, err := toFloat64(fieldVal)
		if err != nil {
			return false
		}
		return v >= lo && v <= hi
	case OperatorNotBetween:
		lo, hi, ok := parseRange(condVal)
		if !ok {
			return false
		}
		v, err := toFloat64(fieldVal)
		if err != nil {
			return false
		}
		return v < lo || v > hi
	default:
		return false
	}
}

func evaluateNumeric(operator string, fieldVal any, condVal string) bool {
	fieldFloat, err := toFloat64(fieldVal)
	if err != nil {
		return false
	}
	condFloat, err := strconv.ParseFloat(condVal, 64)
	if err != nil {
		return false
	}
	switch operator {
	case OperatorGreaterThan:
		return fieldFloat > condFloat
	case OperatorLessThan:
		return fieldFloat < condFloat
	case OperatorGreaterOrEqual:
		return fieldFloat >= condFloat
	case OperatorLessOrEqual:
		return fieldFloat <= condFloat
	default:
		return false
	}
}

// evaluateEqual compares numerically when both sides parse as numbers,
// otherwise case-insensitively as strings.
func evaluateEqual(fieldVal any, condVal string) bool {
	if fieldFloat, err := toFloat64(fieldVal); err == nil {
		if condFloat, err := strconv.ParseFloat(condVal, 64); err == nil {
			return fieldFloat == condFloat
		}
	}
	return strings.EqualFold(toString(fieldVal), condVal)
}

func evaluateIn(fieldVal any, condVal string) bool {
	list, ok := parseList(condVal)
	if !ok {
		return false
	}
	return containsFold(list, toString(fieldVal))
}

// compareCrossField compares two resolved field values numerically.
// An empty operator defaults to gt.
func compareCrossField(operator string, left, right any) bool {
	leftFloat, err := toFloat64(left)
	if err != nil {
		return false
	}
	rightFloat, err := toFloat64(right)
	if err != nil {
		return false
	}
	switch operator {
	case OperatorGreaterThan, "":
		return leftFloat > rightFloat
	case OperatorLessThan:
		return leftFloat < rightFloat
	case OperatorGreaterOrEqual:
		return leftFloat >= rightFloat
	case OperatorLessOrEqual:
		return leftFloat <= rightFloat
	case OperatorEqual:
		return leftFloat == rightFloat
	case OperatorNotEqual:
		return leftFloat != rightFloat
	default:
		return false
	}
}

// parseList decodes a JSON array value ("[\"a\",\"b\"]"). A plain
// comma-separated string is accepted as a fallback.
func parseList(value string) ([]string, bool) {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "[") {
		var raw []any
		if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
			return nil, false
		}
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			out = append(out, toString(item))
		}
		return out, true
	}
	if trimmed == "" {
		return nil, false
	}
	parts := strings.Split(trimmed, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, true
}

// parseRange decodes a two-element numeric JSON array ("[0.2, 0.8]").
// Returns false for anything else; between requires exactly two bounds.
func parseRange(value string) (lo, hi float64, ok bool) {
	var raw []float64
	if err := json.Unmarshal([]byte(strings.TrimSpace(value)), &raw); err != nil {
		return 0, 0, false
	}
	if len(raw) != 2 {
		return 0, 0, false
	}
	lo, hi = raw[0], raw[1]
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, true
}

func toString(val any) string {
	return fmt.Sprintf("%v", val)
}

func toFloat64(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", val)
	}
}
