package alerting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/logger"
	"github.com/signalwatch/trendalert-go/internal/notification"
)

// BatchAggregator collapses queued low-priority alerts into per-channel-set
// digests. Alerts sharing the same channel set travel in one notification;
// within a group the dedup policy folds alerts with identical key fields.
type BatchAggregator struct {
	dispatcher *Dispatcher
	policy     entities.BatchDedupPolicy
	log        logger.Logger
}

func NewBatchAggregator(dispatcher *Dispatcher, policy entities.BatchDedupPolicy, log logger.Logger) *BatchAggregator {
	if len(policy.KeyFields) == 0 {
		policy.KeyFields = []string{"symbol", "type"}
	}
	return &BatchAggregator{dispatcher: dispatcher, policy: policy, log: log}
}

// batchEntry is one line of a digest: a surviving alert plus how many
// duplicates were folded into it.
type batchEntry struct {
	alert  *entities.TrendAlert
	merged int
}

// ProcessOutcome reports what happened to each alert of one Process call.
type ProcessOutcome struct {
	Batches      []*entities.AlertBatch
	Delivered    []*entities.TrendAlert
	Failed       []*entities.TrendAlert
	Deduplicated []*entities.TrendAlert
}

// Process groups, deduplicates, and delivers the given alerts, returning one
// AlertBatch record per channel group. Alerts without channels are counted
// as suppressed.
func (b *BatchAggregator) Process(ctx context.Context, alerts []*entities.TrendAlert, now time.Time) ProcessOutcome {
	var out ProcessOutcome
	if len(alerts) == 0 {
		return out
	}

	groups := make(map[string][]*entities.TrendAlert)
	order := make([]string, 0)
	suppressed := make([]*entities.TrendAlert, 0)

	for _, alert := range alerts {
		if len(alert.Channels) == 0 {
			suppressed = append(suppressed, alert)
			continue
		}
		key := channelGroupKey(alert.Channels)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], alert)
	}

	for _, key := range order {
		group := groups[key]
		entries, dropped := b.dedupe(group)
		out.Deduplicated = append(out.Deduplicated, dropped...)

		channels := group[0].Channels
		batch := &entities.AlertBatch{
			ID:       uuid.NewString(),
			Channels: channels,
			Dedup:    b.policy,
		}
		for _, a := range group {
			batch.AlertIDs = append(batch.AlertIDs, a.ID)
		}
		batch.Result.Deduplicated = len(dropped)

		content := b.renderDigest(entries)
		outcome := b.dispatcher.Deliver(ctx, channels, content, now)

		for _, e := range entries {
			e.alert.Delivery.Attempts = append(e.alert.Delivery.Attempts, outcome.Attempts...)
			if outcome.Delivered {
				out.Delivered = append(out.Delivered, e.alert)
				batch.Result.Delivered++
			} else {
				out.Failed = append(out.Failed, e.alert)
				batch.Result.Failed++
			}
		}

		processed := now
		batch.ProcessedAt = &processed
		out.Batches = append(out.Batches, batch)
	}

	if len(suppressed) > 0 && len(out.Batches) > 0 {
		out.Batches[0].Result.Suppressed = len(suppressed)
	}

	return out
}

// dedupe folds alerts with identical key fields according to the configured
// strategy. It returns the surviving entries in arrival order and the alerts
// that were folded away.
func (b *BatchAggregator) dedupe(group []*entities.TrendAlert) ([]*batchEntry, []*entities.TrendAlert) {
	if !b.policy.Enabled {
		entries := make([]*batchEntry, 0, len(group))
		for _, a := range group {
			entries = append(entries, &batchEntry{alert: a})
		}
		return entries, nil
	}

	var (
		entries []*batchEntry
		index   = make(map[string]*batchEntry)
		dropped []*entities.TrendAlert
	)

	for _, a := range group {
		key := b.entryKey(a)
		existing, seen := index[key]
		if seen && !b.withinWindow(existing.alert, a) {
			// Same key but too far apart to be the same event. The newer
			// alert opens a fresh window for this key.
			seen = false
		}
		if !seen {
			e := &batchEntry{alert: a}
			index[key] = e
			entries = append(entries, e)
			continue
		}

		switch b.policy.Strategy {
		case StrategyReplace:
			dropped = append(dropped, existing.alert)
			existing.alert = a
		case StrategyMerge:
			existing.merged++
			dropped = append(dropped, a)
		default: // skip
			dropped = append(dropped, a)
		}
	}

	return entries, dropped
}

// withinWindow reports whether two same-key alerts triggered close enough
// to fold. WindowSec <= 0 treats the whole batch as one window.
func (b *BatchAggregator) withinWindow(existing, candidate *entities.TrendAlert) bool {
	if b.policy.WindowSec <= 0 {
		return true
	}
	gap := candidate.TriggeredAt.Sub(existing.TriggeredAt)
	if gap < 0 {
		gap = -gap
	}
	return gap <= time.Duration(b.policy.WindowSec)*time.Second
}

func (b *BatchAggregator) entryKey(alert *entities.TrendAlert) string {
	parts := make([]string, 0, len(b.policy.KeyFields))
	for _, f := range b.policy.KeyFields {
		switch f {
		case "symbol":
			parts = append(parts, alert.Symbol)
		case "type":
			parts = append(parts, alert.Type)
		case "rule_id":
			parts = append(parts, fmt.Sprintf("%d", alert.RuleID))
		case "priority":
			parts = append(parts, alert.Priority)
		case "timeframe":
			parts = append(parts, alert.Timeframe)
		}
	}
	return strings.Join(parts, "|")
}

func (b *BatchAggregator) renderDigest(entries []*batchEntry) notification.Content {
	var sb strings.Builder
	highest := PriorityLow
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("- %s", e.alert.Title))
		if e.merged > 0 {
			sb.WriteString(fmt.Sprintf(" (+%d similar)", e.merged))
		}
		if priorityRank(e.alert.Priority) > priorityRank(highest) {
			highest = e.alert.Priority
		}
	}
	return notification.Content{
		Title:    fmt.Sprintf("Trend digest: %d alerts", len(entries)),
		Body:     sb.String(),
		Priority: highest,
		Metadata: map[string]string{"batch_size": fmt.Sprintf("%d", len(entries))},
	}
}

func channelGroupKey(channels []string) string {
	sorted := make([]string, len(channels))
	copy(sorted, channels)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
