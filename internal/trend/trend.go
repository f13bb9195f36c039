// Package trend defines the inbound trend signal payload produced by the
// upstream trend, pattern and sentiment detectors.
package trend

import (
	"strings"
	"time"
)

// Context carries the market context captured alongside a trend signal.
type Context struct {
	MarketCondition   string   `json:"marketCondition"`
	Volatility        float64  `json:"volatility"`
	Volume            float64  `json:"volume"`
	Sentiment         string   `json:"sentiment"`
	CorrelatedSymbols []string `json:"correlatedSymbols,omitempty"`
	Catalysts         []string `json:"catalysts,omitempty"`
}

// Data is a single trend signal snapshot. Strength and Confidence are
// normalized to [0,1] by the upstream detectors.
type Data struct {
	Symbol     string    `json:"symbol"`
	Category   string    `json:"category"`
	Hierarchy  string    `json:"hierarchy"`
	Timeframe  string    `json:"timeframe"`
	Direction  string    `json:"direction"`
	Strength   float64   `json:"strength"`
	Confidence float64   `json:"confidence"`
	Magnitude  float64   `json:"magnitude"`
	Duration   float64   `json:"duration"` // seconds the trend has persisted
	KeyLevels  []float64 `json:"keyLevels,omitempty"`
	Context    Context   `json:"context"`
	Timestamp  time.Time `json:"timestamp"`
}

// Fields flattens the payload into a nested map for dot-path resolution by
// condition evaluation. The map mirrors the wire shape of the payload.
func (d *Data) Fields() map[string]any {
	return map[string]any{
		"symbol":     d.Symbol,
		"category":   d.Category,
		"hierarchy":  d.Hierarchy,
		"timeframe":  d.Timeframe,
		"direction":  d.Direction,
		"strength":   d.Strength,
		"confidence": d.Confidence,
		"magnitude":  d.Magnitude,
		"duration":   d.Duration,
		"keyLevels":  d.KeyLevels,
		"context": map[string]any{
			"marketCondition":   d.Context.MarketCondition,
			"volatility":        d.Context.Volatility,
			"volume":            d.Context.Volume,
			"sentiment":         d.Context.Sentiment,
			"correlatedSymbols": d.Context.CorrelatedSymbols,
			"catalysts":         d.Context.Catalysts,
		},
	}
}

// Resolve walks a dot-notation path ("context.volatility") through nested
// maps. The second return is false when any segment is missing or a
// non-terminal segment is not a map.
func Resolve(fields map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	var current any = fields
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}
