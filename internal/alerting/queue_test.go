package alerting

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
)

func queuedAlert(id, priority string) *entities.TrendAlert {
	return &entities.TrendAlert{ID: id, Priority: priority}
}

func TestAlertQueue_PriorityRouting(t *testing.T) {
	q := NewAlertQueue()
	q.Push(queuedAlert("c", PriorityCritical))
	q.Push(queuedAlert("h", PriorityHigh))
	q.Push(queuedAlert("m", PriorityMedium))
	q.Push(queuedAlert("l", PriorityLow))

	realtime, batch := q.Len()
	assert.Equal(t, 2, realtime)
	assert.Equal(t, 2, batch)
}

func TestAlertQueue_PopRealtimeOrdering(t *testing.T) {
	q := NewAlertQueue()
	now := time.Now()

	q.Push(queuedAlert("h1", PriorityHigh))
	q.Push(queuedAlert("c1", PriorityCritical))
	q.Push(queuedAlert("h2", PriorityHigh))
	q.Push(queuedAlert("c2", PriorityCritical))

	out := q.PopRealtime(10, now)
	require.Len(t, out, 4)
	ids := []string{out[0].ID, out[1].ID, out[2].ID, out[3].ID}
	assert.Equal(t, []string{"c1", "c2", "h1", "h2"}, ids, "critical first, FIFO within priority")
}

func TestAlertQueue_PopRealtimeLimit(t *testing.T) {
	q := NewAlertQueue()
	now := time.Now()

	for i := 0; i < 5; i++ {
		q.Push(queuedAlert(fmt.Sprintf("a%d", i), PriorityHigh))
	}

	out := q.PopRealtime(3, now)
	assert.Len(t, out, 3)

	realtime, _ := q.Len()
	assert.Equal(t, 2, realtime, "undrained items stay queued")
}

func TestAlertQueue_RetryNotBefore(t *testing.T) {
	q := NewAlertQueue()
	now := time.Now()

	q.PushRetry(queuedAlert("r", PriorityCritical), now.Add(30*time.Second))

	assert.Empty(t, q.PopRealtime(10, now), "retry item held until its backoff elapses")
	assert.Empty(t, q.PopRealtime(10, now.Add(29*time.Second)))

	out := q.PopRealtime(10, now.Add(30*time.Second))
	require.Len(t, out, 1)
	assert.Equal(t, "r", out[0].ID)
}

func TestAlertQueue_DrainBatch(t *testing.T) {
	q := NewAlertQueue()
	now := time.Now()

	q.Push(queuedAlert("m1", PriorityMedium))
	q.Push(queuedAlert("l1", PriorityLow))
	q.PushRetry(queuedAlert("m2", PriorityMedium), now.Add(time.Minute))

	out := q.DrainBatch(now)
	require.Len(t, out, 2)
	assert.Equal(t, "m1", out[0].ID)
	assert.Equal(t, "l1", out[1].ID)

	_, batch := q.Len()
	assert.Equal(t, 1, batch, "not-yet-due retry item remains")
}
