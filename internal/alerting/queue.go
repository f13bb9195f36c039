package alerting

import (
	"sync"
	"time"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
)

// queueItem is one queued alert. notBefore delays retry items; seq preserves
// FIFO order within a priority partition.
type queueItem struct {
	alert     *entities.TrendAlert
	notBefore time.Time
	seq       uint64
}

// AlertQueue partitions pending alerts into a realtime lane (critical/high)
// and a batch lane (everything else). Push and pop are linearizable; each
// lane is FIFO within priority.
type AlertQueue struct {
	mu       sync.Mutex
	realtime []queueItem
	batch    []queueItem
	seq      uint64
}

// NewAlertQueue creates an empty AlertQueue.
func NewAlertQueue() *AlertQueue {
	return &AlertQueue{}
}

// Push enqueues an alert, routed by its priority.
func (q *AlertQueue) Push(alert *entities.TrendAlert) {
	q.push(alert, time.Time{})
}

// PushRetry enqueues an alert that must not be dispatched before notBefore.
func (q *AlertQueue) PushRetry(alert *entities.TrendAlert, notBefore time.Time) {
	q.push(alert, notBefore)
}

func (q *AlertQueue) push(alert *entities.TrendAlert, notBefore time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	item := queueItem{alert: alert, notBefore: notBefore, seq: q.seq}
	if isRealtimePriority(alert.Priority) {
		q.realtime = append(q.realtime, item)
	} else {
		q.batch = append(q.batch, item)
	}
}

// PopRealtime removes and returns up to limit due alerts from the realtime
// lane, critical before high, FIFO within each priority. Items whose
// notBefore has not elapsed stay queued.
func (q *AlertQueue) PopRealtime(limit int, now time.Time) []*entities.TrendAlert {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*entities.TrendAlert
	// Two passes keep critical ahead of high without a priority heap.
	for _, wanted := range []string{PriorityCritical, PriorityHigh} {
		var remaining []queueItem
		for _, item := range q.realtime {
			if len(out) < limit && item.alert.Priority == wanted && !item.notBefore.After(now) {
				out = append(out, item.alert)
				continue
			}
			remaining = append(remaining, item)
		}
		q.realtime = remaining
	}
	return out
}

// DrainBatch removes and returns all due alerts from the batch lane in FIFO
// order. Retry items not yet due stay queued.
func (q *AlertQueue) DrainBatch(now time.Time) []*entities.TrendAlert {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*entities.TrendAlert
	var remaining []queueItem
	for _, item := range q.batch {
		if item.notBefore.After(now) {
			remaining = append(remaining, item)
			continue
		}
		out = append(out, item.alert)
	}
	q.batch = remaining
	return out
}

// Len returns the current realtime and batch lane depths.
func (q *AlertQueue) Len() (realtime, batch int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.realtime), len(q.batch)
}
