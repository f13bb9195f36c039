package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
)

func batchAlert(id, symbol, alertType string, channels ...string) *entities.TrendAlert {
	return &entities.TrendAlert{
		ID:       id,
		Symbol:   symbol,
		Type:     alertType,
		Priority: PriorityMedium,
		Title:    symbol + " " + alertType,
		Channels: channels,
	}
}

func newTestAggregator(t *testing.T, strategy string, channels ...*fakeChannel) *BatchAggregator {
	t.Helper()
	d := NewDispatcher(testRegistry(t, channels...), time.Second, testLogger())
	return NewBatchAggregator(d, entities.BatchDedupPolicy{
		Enabled:  true,
		Strategy: strategy,
	}, testLogger())
}

func TestBatchAggregator_GroupsByChannelSet(t *testing.T) {
	slack := &fakeChannel{name: "slack"}
	mail := &fakeChannel{name: "mail"}
	agg := newTestAggregator(t, StrategySkip, slack, mail)

	out := agg.Process(context.Background(), []*entities.TrendAlert{
		batchAlert("a1", "AAPL", AlertTypeSentimentShift, "slack"),
		batchAlert("a2", "MSFT", AlertTypeSentimentShift, "slack", "mail"),
		batchAlert("a3", "TSLA", AlertTypeBreakout, "mail", "slack"),
	}, time.Now())

	require.Len(t, out.Batches, 2, "channel sets are order-insensitive")
	assert.Len(t, out.Delivered, 3)
	assert.Equal(t, 2, slack.sentCount(), "one digest per group touching slack")
	assert.Equal(t, 1, mail.sentCount())
}

func TestBatchAggregator_DedupSkip(t *testing.T) {
	slack := &fakeChannel{name: "slack"}
	agg := newTestAggregator(t, StrategySkip, slack)

	first := batchAlert("a1", "AAPL", AlertTypeSentimentShift, "slack")
	dup := batchAlert("a2", "AAPL", AlertTypeSentimentShift, "slack")

	out := agg.Process(context.Background(), []*entities.TrendAlert{first, dup}, time.Now())

	require.Len(t, out.Deduplicated, 1)
	assert.Equal(t, "a2", out.Deduplicated[0].ID, "skip keeps the first arrival")
	require.Len(t, out.Delivered, 1)
	assert.Equal(t, "a1", out.Delivered[0].ID)
	assert.Equal(t, 1, out.Batches[0].Result.Deduplicated)
}

func TestBatchAggregator_DedupReplace(t *testing.T) {
	slack := &fakeChannel{name: "slack"}
	agg := newTestAggregator(t, StrategyReplace, slack)

	first := batchAlert("a1", "AAPL", AlertTypeSentimentShift, "slack")
	second := batchAlert("a2", "AAPL", AlertTypeSentimentShift, "slack")

	out := agg.Process(context.Background(), []*entities.TrendAlert{first, second}, time.Now())

	require.Len(t, out.Deduplicated, 1)
	assert.Equal(t, "a1", out.Deduplicated[0].ID, "replace keeps the latest arrival")
	require.Len(t, out.Delivered, 1)
	assert.Equal(t, "a2", out.Delivered[0].ID)
}

func TestBatchAggregator_DedupMerge(t *testing.T) {
	slack := &fakeChannel{name: "slack"}
	agg := newTestAggregator(t, StrategyMerge, slack)

	out := agg.Process(context.Background(), []*entities.TrendAlert{
		batchAlert("a1", "AAPL", AlertTypeSentimentShift, "slack"),
		batchAlert("a2", "AAPL", AlertTypeSentimentShift, "slack"),
		batchAlert("a3", "AAPL", AlertTypeSentimentShift, "slack"),
	}, time.Now())

	require.Len(t, out.Delivered, 1)
	require.Len(t, out.Deduplicated, 2)
	require.Equal(t, 1, slack.sentCount())
	assert.Contains(t, slack.sent[0].Body, "+2 similar", "merge annotates the fold count")
}

func TestBatchAggregator_DedupDisabled(t *testing.T) {
	slack := &fakeChannel{name: "slack"}
	d := NewDispatcher(testRegistry(t, slack), time.Second, testLogger())
	agg := NewBatchAggregator(d, entities.BatchDedupPolicy{Enabled: false}, testLogger())

	out := agg.Process(context.Background(), []*entities.TrendAlert{
		batchAlert("a1", "AAPL", AlertTypeSentimentShift, "slack"),
		batchAlert("a2", "AAPL", AlertTypeSentimentShift, "slack"),
	}, time.Now())

	assert.Len(t, out.Delivered, 2)
	assert.Empty(t, out.Deduplicated)
}

func TestBatchAggregator_CustomKeyFields(t *testing.T) {
	slack := &fakeChannel{name: "slack"}
	d := NewDispatcher(testRegistry(t, slack), time.Second, testLogger())
	agg := NewBatchAggregator(d, entities.BatchDedupPolicy{
		Enabled:   true,
		KeyFields: []string{"symbol"},
		Strategy:  StrategySkip,
	}, testLogger())

	out := agg.Process(context.Background(), []*entities.TrendAlert{
		batchAlert("a1", "AAPL", AlertTypeSentimentShift, "slack"),
		batchAlert("a2", "AAPL", AlertTypeBreakout, "slack"), // same symbol, different type
	}, time.Now())

	assert.Len(t, out.Deduplicated, 1, "symbol-only key folds across types")
}

func TestBatchAggregator_DedupWindow(t *testing.T) {
	slack := &fakeChannel{name: "slack"}
	d := NewDispatcher(testRegistry(t, slack), time.Second, testLogger())
	agg := NewBatchAggregator(d, entities.BatchDedupPolicy{
		Enabled:   true,
		Strategy:  StrategySkip,
		WindowSec: 300,
	}, testLogger())

	now := time.Now()
	early := batchAlert("a1", "AAPL", AlertTypeSentimentShift, "slack")
	early.TriggeredAt = now.Add(-10 * time.Minute)
	late := batchAlert("a2", "AAPL", AlertTypeSentimentShift, "slack")
	late.TriggeredAt = now
	near := batchAlert("a3", "AAPL", AlertTypeSentimentShift, "slack")
	near.TriggeredAt = now.Add(-time.Minute)

	out := agg.Process(context.Background(), []*entities.TrendAlert{early, late, near}, now)

	assert.Len(t, out.Delivered, 2, "alerts outside the window stay separate")
	require.Len(t, out.Deduplicated, 1, "only the in-window duplicate is folded")
	assert.Equal(t, "a3", out.Deduplicated[0].ID)
}

func TestBatchAggregator_FailedDelivery(t *testing.T) {
	bad := &fakeChannel{name: "bad", err: errors.New("down")}
	agg := newTestAggregator(t, StrategySkip, bad)

	out := agg.Process(context.Background(), []*entities.TrendAlert{
		batchAlert("a1", "AAPL", AlertTypeSentimentShift, "bad"),
	}, time.Now())

	assert.Empty(t, out.Delivered)
	require.Len(t, out.Failed, 1)
	assert.Equal(t, 1, out.Batches[0].Result.Failed)
}

func TestBatchAggregator_BatchRecord(t *testing.T) {
	slack := &fakeChannel{name: "slack"}
	agg := newTestAggregator(t, StrategySkip, slack)
	now := time.Now()

	out := agg.Process(context.Background(), []*entities.TrendAlert{
		batchAlert("a1", "AAPL", AlertTypeSentimentShift, "slack"),
		batchAlert("a2", "MSFT", AlertTypeSentimentShift, "slack"),
	}, now)

	require.Len(t, out.Batches, 1)
	batch := out.Batches[0]
	assert.NotEmpty(t, batch.ID)
	assert.ElementsMatch(t, []string{"a1", "a2"}, batch.AlertIDs)
	assert.Equal(t, []string{"slack"}, batch.Channels)
	assert.Equal(t, 2, batch.Result.Delivered)
	require.NotNil(t, batch.ProcessedAt)
	assert.Equal(t, now, *batch.ProcessedAt)
}

func TestBatchAggregator_Empty(t *testing.T) {
	agg := newTestAggregator(t, StrategySkip)
	out := agg.Process(context.Background(), nil, time.Now())
	assert.Empty(t, out.Batches)
	assert.Empty(t, out.Delivered)
}
