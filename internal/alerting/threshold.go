package alerting

import (
	"math"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
)

const (
	// maxSamplesPerSeries caps the retained history for one field/symbol pair.
	maxSamplesPerSeries = 5000
	// maxSampleAge is the hard eviction age, independent of lookback windows.
	maxSampleAge = 7 * 24 * time.Hour
	// churnTolerance guards against threshold churn: recomputation is skipped
	// when the new value is within this relative distance of the current one.
	churnTolerance = 0.05
	// lastValueTTL bounds the last-computed cache entries.
	lastValueTTL = 24 * time.Hour
)

// thresholdSample is a single timestamped observation of a field value.
type thresholdSample struct {
	value     float64
	timestamp time.Time
}

// DynamicInputs carries the market context needed for dynamic threshold
// computation.
type DynamicInputs struct {
	Volatility      float64
	MarketCondition string
	Hour            int
}

// ThresholdResult is the outcome of one threshold computation.
type ThresholdResult struct {
	Value   float64
	Method  string
	Updated bool
}

// ThresholdCalculator computes static, dynamic and adaptive threshold values.
// It keeps per-series sample history for the adaptive mode and a small cache
// of last-computed values for the churn guard.
type ThresholdCalculator struct {
	samples map[string][]thresholdSample
	mu      sync.RWMutex

	lastValues *gocache.Cache
}

// NewThresholdCalculator creates a ThresholdCalculator.
func NewThresholdCalculator() *ThresholdCalculator {
	return &ThresholdCalculator{
		samples:    make(map[string][]thresholdSample),
		lastValues: gocache.New(lastValueTTL, 2*lastValueTTL),
	}
}

// RecordSample adds an observation for a field/symbol series and evicts
// stale entries.
func (c *ThresholdCalculator) RecordSample(field, symbol string, value float64, timestamp time.Time) {
	key := seriesKey(field, symbol)

	c.mu.Lock()
	defer c.mu.Unlock()

	series := c.samples[key]
	series = append(series, thresholdSample{value: value, timestamp: timestamp})

	cutoff := timestamp.Add(-maxSampleAge)
	start := 0
	for start < len(series) && series[start].timestamp.Before(cutoff) {
		start++
	}
	series = series[start:]

	if len(series) > maxSamplesPerSeries {
		series = series[len(series)-maxSamplesPerSeries:]
	}

	c.samples[key] = series
}

// SampleCount returns the retained sample count for a series.
func (c *ThresholdCalculator) SampleCount(field, symbol string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.samples[seriesKey(field, symbol)])
}

// Compute derives the active threshold value for the configuration. Modes
// are tried highest-fidelity first: adaptive, then dynamic, then static.
// Updated is false when no enabled mode can produce a value (the caller
// retains the last known value) or when the churn guard suppressed a
// recomputation that moved less than 5% from the current value.
func (c *ThresholdCalculator) Compute(t *entities.AlertThreshold, inputs DynamicInputs, now time.Time) ThresholdResult {
	if t.Adaptive != nil && t.Adaptive.Enabled {
		if value, ok := c.computeAdaptive(t, now); ok {
			return c.applyChurnGuard(t, value, MethodAdaptive)
		}
	}
	if t.Dynamic != nil && t.Dynamic.Enabled {
		value := computeDynamic(t.Dynamic, inputs)
		return c.applyChurnGuard(t, value, MethodDynamic)
	}
	if t.Static != nil && t.Static.Enabled {
		return c.applyChurnGuard(t, t.Static.Value, MethodStatic)
	}
	return ThresholdResult{Value: t.CurrentValue, Method: t.Method, Updated: false}
}

// computeAdaptive returns mean + z(confidence) × stddev over the lookback
// window. Returns false when fewer than MinDataPoints samples are available.
func (c *ThresholdCalculator) computeAdaptive(t *entities.AlertThreshold, now time.Time) (float64, bool) {
	cfg := t.Adaptive
	windowStart := now.Add(-time.Duration(cfg.LookbackHours) * time.Hour)

	c.mu.RLock()
	series := c.samples[seriesKey(t.Field, t.Symbol)]
	var values []float64
	for _, s := range series {
		if !s.timestamp.Before(windowStart) && !s.timestamp.After(now) {
			values = append(values, s.value)
		}
	}
	c.mu.RUnlock()

	if len(values) < cfg.MinDataPoints || len(values) < 2 {
		return 0, false
	}

	mean, stddev := meanStddev(values)
	return mean + zScore(cfg.ConfidenceInterval)*stddev, true
}

// computeDynamic adjusts the base value multiplicatively. Unknown market
// condition or hour keys contribute zero adjustment.
func computeDynamic(cfg *entities.DynamicThreshold, inputs DynamicInputs) float64 {
	value := cfg.BaseValue
	value *= 1 + inputs.Volatility*cfg.VolatilityMultiplier
	value *= 1 + cfg.MarketAdjustments[inputs.MarketCondition]
	value *= 1 + cfg.HourAdjustments[inputs.Hour]
	return value
}

// applyChurnGuard suppresses updates that move less than churnTolerance
// relative to the current value.
func (c *ThresholdCalculator) applyChurnGuard(t *entities.AlertThreshold, value float64, method string) ThresholdResult {
	current := t.CurrentValue
	if current != 0 && method == t.Method {
		if math.Abs(value-current)/math.Abs(current) <= churnTolerance {
			return ThresholdResult{Value: current, Method: method, Updated: false}
		}
	}
	c.lastValues.SetDefault(seriesKey(t.Field, t.Symbol), value)
	return ThresholdResult{Value: value, Method: method, Updated: true}
}

// LastComputed returns the most recently computed value for a series.
func (c *ThresholdCalculator) LastComputed(field, symbol string) (float64, bool) {
	v, ok := c.lastValues.Get(seriesKey(field, symbol))
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

// meanStddev returns the sample mean and sample standard deviation (n-1).
func meanStddev(values []float64) (mean, stddev float64) {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / n

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	stddev = math.Sqrt(sq / (n - 1))
	return mean, stddev
}

// zScore maps a confidence interval to its z value. Unknown intervals
// default to the 0.95 value.
func zScore(confidence float64) float64 {
	switch {
	case almostEqual(confidence, 0.90):
		return 1.645
	case almostEqual(confidence, 0.95):
		return 1.96
	case almostEqual(confidence, 0.99):
		return 2.576
	default:
		return 1.96
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func seriesKey(field, symbol string) string {
	return field + "|" + symbol
}
