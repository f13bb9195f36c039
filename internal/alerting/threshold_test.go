package alerting

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
)

func TestThresholdCalculator_StaticMode(t *testing.T) {
	calc := NewThresholdCalculator()
	def := &entities.AlertThreshold{
		Field:  "context.volatility",
		Static: &entities.StaticThreshold{Enabled: true, Value: 0.5},
	}

	result := calc.Compute(def, DynamicInputs{}, time.Now())
	assert.True(t, result.Updated)
	assert.Equal(t, MethodStatic, result.Method)
	assert.InDelta(t, 0.5, result.Value, 1e-9)
}

func TestThresholdCalculator_DynamicFormula(t *testing.T) {
	calc := NewThresholdCalculator()
	def := &entities.AlertThreshold{
		Field: "magnitude",
		Dynamic: &entities.DynamicThreshold{
			Enabled:              true,
			BaseValue:            2.0,
			VolatilityMultiplier: 0.5,
			MarketAdjustments:    map[string]float64{"bearish": 0.2},
			HourAdjustments:      map[int]float64{9: 0.1},
		},
	}

	inputs := DynamicInputs{Volatility: 0.4, MarketCondition: "bearish", Hour: 9}
	result := calc.Compute(def, inputs, time.Now())

	// 2.0 × (1 + 0.4×0.5) × (1 + 0.2) × (1 + 0.1)
	want := 2.0 * 1.2 * 1.2 * 1.1
	assert.True(t, result.Updated)
	assert.Equal(t, MethodDynamic, result.Method)
	assert.InDelta(t, want, result.Value, 1e-9)
}

func TestThresholdCalculator_DynamicUnknownKeys(t *testing.T) {
	calc := NewThresholdCalculator()
	def := &entities.AlertThreshold{
		Field: "magnitude",
		Dynamic: &entities.DynamicThreshold{
			Enabled:           true,
			BaseValue:         3.0,
			MarketAdjustments: map[string]float64{"bearish": 0.2},
		},
	}

	result := calc.Compute(def, DynamicInputs{MarketCondition: "sideways", Hour: 15}, time.Now())
	assert.InDelta(t, 3.0, result.Value, 1e-9, "unknown adjustment keys contribute zero")
}

func TestThresholdCalculator_AdaptiveMeanPlusZ(t *testing.T) {
	calc := NewThresholdCalculator()
	now := time.Now()

	// Values 1..10: mean 5.5, sample stddev ~3.0277
	for i := 1; i <= 10; i++ {
		calc.RecordSample("context.volatility", "AAPL", float64(i), now.Add(-time.Duration(i)*time.Minute))
	}

	def := &entities.AlertThreshold{
		Field:  "context.volatility",
		Symbol: "AAPL",
		Adaptive: &entities.AdaptiveThreshold{
			Enabled:            true,
			LookbackHours:      24,
			MinDataPoints:      5,
			ConfidenceInterval: 0.95,
		},
	}

	result := calc.Compute(def, DynamicInputs{}, now)
	require.True(t, result.Updated)
	assert.Equal(t, MethodAdaptive, result.Method)

	mean := 5.5
	stddev := math.Sqrt(82.5 / 9.0)
	assert.InDelta(t, mean+1.96*stddev, result.Value, 1e-6)
}

func TestThresholdCalculator_ZScores(t *testing.T) {
	assert.InDelta(t, 1.645, zScore(0.90), 1e-9)
	assert.InDelta(t, 1.96, zScore(0.95), 1e-9)
	assert.InDelta(t, 2.576, zScore(0.99), 1e-9)
	assert.InDelta(t, 1.96, zScore(0.80), 1e-9, "unknown interval defaults to 0.95 z")
}

func TestThresholdCalculator_AdaptiveInsufficientData(t *testing.T) {
	calc := NewThresholdCalculator()
	now := time.Now()

	for i := 0; i < 3; i++ {
		calc.RecordSample("strength", "TSLA", 0.5, now.Add(-time.Duration(i)*time.Minute))
	}

	def := &entities.AlertThreshold{
		Field:        "strength",
		Symbol:       "TSLA",
		CurrentValue: 0.7,
		Method:       MethodAdaptive,
		Adaptive: &entities.AdaptiveThreshold{
			Enabled:            true,
			LookbackHours:      24,
			MinDataPoints:      10,
			ConfidenceInterval: 0.95,
		},
	}

	result := calc.Compute(def, DynamicInputs{}, now)
	assert.False(t, result.Updated, "below MinDataPoints the threshold must not update")
	assert.InDelta(t, 0.7, result.Value, 1e-9, "last known value is retained")
}

func TestThresholdCalculator_AdaptiveFallsBackToDynamic(t *testing.T) {
	calc := NewThresholdCalculator()
	def := &entities.AlertThreshold{
		Field: "strength",
		Adaptive: &entities.AdaptiveThreshold{
			Enabled:       true,
			LookbackHours: 24,
			MinDataPoints: 10,
		},
		Dynamic: &entities.DynamicThreshold{Enabled: true, BaseValue: 0.6},
	}

	result := calc.Compute(def, DynamicInputs{}, time.Now())
	assert.True(t, result.Updated)
	assert.Equal(t, MethodDynamic, result.Method, "adaptive without data falls through to dynamic")
	assert.InDelta(t, 0.6, result.Value, 1e-9)
}

func TestThresholdCalculator_ChurnGuard(t *testing.T) {
	calc := NewThresholdCalculator()
	def := &entities.AlertThreshold{
		Field:        "magnitude",
		CurrentValue: 2.0,
		Method:       MethodDynamic,
		Dynamic:      &entities.DynamicThreshold{Enabled: true, BaseValue: 2.0, VolatilityMultiplier: 1.0},
	}

	// 2.0 × 1.04 moves 4%, inside the 5% tolerance
	result := calc.Compute(def, DynamicInputs{Volatility: 0.04}, time.Now())
	assert.False(t, result.Updated, "movement within 5% is suppressed")
	assert.InDelta(t, 2.0, result.Value, 1e-9)

	// 2.0 × 1.10 moves 10%
	result = calc.Compute(def, DynamicInputs{Volatility: 0.10}, time.Now())
	assert.True(t, result.Updated)
	assert.InDelta(t, 2.2, result.Value, 1e-9)
}

func TestThresholdCalculator_ChurnGuardIgnoredOnMethodChange(t *testing.T) {
	calc := NewThresholdCalculator()
	def := &entities.AlertThreshold{
		Field:        "magnitude",
		CurrentValue: 2.0,
		Method:       MethodStatic,
		Dynamic:      &entities.DynamicThreshold{Enabled: true, BaseValue: 2.02},
	}

	result := calc.Compute(def, DynamicInputs{}, time.Now())
	assert.True(t, result.Updated, "method change always updates even within tolerance")
	assert.Equal(t, MethodDynamic, result.Method)
}

func TestThresholdCalculator_SampleEviction(t *testing.T) {
	calc := NewThresholdCalculator()
	now := time.Now()

	calc.RecordSample("strength", "AAPL", 1.0, now.Add(-8*24*time.Hour))
	calc.RecordSample("strength", "AAPL", 2.0, now.Add(-time.Hour))
	calc.RecordSample("strength", "AAPL", 3.0, now)

	assert.Equal(t, 2, calc.SampleCount("strength", "AAPL"), "samples past the age cap are evicted")
}

func TestThresholdCalculator_LastComputed(t *testing.T) {
	calc := NewThresholdCalculator()
	def := &entities.AlertThreshold{
		Field:  "context.volatility",
		Symbol: "AAPL",
		Static: &entities.StaticThreshold{Enabled: true, Value: 0.4},
	}

	_, ok := calc.LastComputed("context.volatility", "AAPL")
	assert.False(t, ok)

	calc.Compute(def, DynamicInputs{}, time.Now())
	v, ok := calc.LastComputed("context.volatility", "AAPL")
	assert.True(t, ok)
	assert.InDelta(t, 0.4, v, 1e-9)
}

func TestThresholdCalculator_NoModeEnabled(t *testing.T) {
	calc := NewThresholdCalculator()
	def := &entities.AlertThreshold{Field: "strength", CurrentValue: 0.9, Method: MethodStatic}

	result := calc.Compute(def, DynamicInputs{}, time.Now())
	assert.False(t, result.Updated)
	assert.InDelta(t, 0.9, result.Value, 1e-9)
}
