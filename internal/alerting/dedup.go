package alerting

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
)

// Deduplicator suppresses alerts that duplicate a recent one sharing
// {symbol, type, ruleId} within the deduplication window. The index is a
// TTL cache so stale keys age out without a sweep of the alert registry.
type Deduplicator struct {
	window time.Duration
	index  *gocache.Cache
}

// NewDeduplicator creates a Deduplicator with the given window.
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		window: window,
		index:  gocache.New(window, 2*window),
	}
}

// Window returns the configured deduplication window.
func (d *Deduplicator) Window() time.Duration {
	return d.window
}

// IsDuplicate reports whether an active alert with the candidate's key was
// triggered inside the window at or before the candidate's trigger time.
func (d *Deduplicator) IsDuplicate(candidate *entities.TrendAlert) bool {
	v, ok := d.index.Get(dedupKey(candidate.Symbol, candidate.Type, candidate.RuleID))
	if !ok {
		return false
	}
	existing := v.(time.Time)
	if existing.After(candidate.TriggeredAt) {
		return false
	}
	return candidate.TriggeredAt.Sub(existing) <= d.window
}

// Record indexes an admitted alert for future duplicate checks.
func (d *Deduplicator) Record(alert *entities.TrendAlert) {
	d.index.SetDefault(dedupKey(alert.Symbol, alert.Type, alert.RuleID), alert.TriggeredAt)
}

// Rehydrate rebuilds the index from alerts loaded at startup, skipping
// entries already outside the window.
func (d *Deduplicator) Rehydrate(alerts []entities.TrendAlert, now time.Time) {
	for i := range alerts {
		a := &alerts[i]
		if now.Sub(a.TriggeredAt) > d.window {
			continue
		}
		d.Record(a)
	}
}

func dedupKey(symbol, alertType string, ruleID uint) string {
	return fmt.Sprintf("%s|%s|%d", symbol, alertType, ruleID)
}
