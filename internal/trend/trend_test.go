package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields(t *testing.T) {
	d := &Data{
		Symbol:     "AAPL",
		Category:   "tech",
		Hierarchy:  "equities/us/tech",
		Timeframe:  "1h",
		Direction:  "up",
		Strength:   0.85,
		Confidence: 0.9,
		Magnitude:  2.5,
		Duration:   7200,
		KeyLevels:  []float64{150, 155},
		Context: Context{
			MarketCondition:   "bullish",
			Volatility:        0.3,
			Volume:            1.8,
			Sentiment:         "positive",
			CorrelatedSymbols: []string{"MSFT"},
		},
	}

	fields := d.Fields()
	assert.Equal(t, "AAPL", fields["symbol"])
	assert.Equal(t, 0.85, fields["strength"])

	ctx, ok := fields["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bullish", ctx["marketCondition"])
	assert.Equal(t, 0.3, ctx["volatility"])
}

func TestResolve(t *testing.T) {
	d := &Data{
		Symbol:   "AAPL",
		Strength: 0.85,
		Context:  Context{Volatility: 0.3, Sentiment: "positive"},
	}
	fields := d.Fields()

	tests := []struct {
		name  string
		path  string
		want  any
		found bool
	}{
		{"top level string", "symbol", "AAPL", true},
		{"top level number", "strength", 0.85, true},
		{"nested number", "context.volatility", 0.3, true},
		{"nested string", "context.sentiment", "positive", true},
		{"missing top level", "price", nil, false},
		{"missing nested", "context.mood", nil, false},
		{"descend into non-map", "strength.inner", nil, false},
		{"empty path", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(fields, tt.path)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResolve_NonMapRoot(t *testing.T) {
	_, ok := Resolve(nil, "symbol")
	assert.False(t, ok)
}
