package alerting

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/trend"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestTrendBus_PublishDelivers(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewTrendBus()

	var (
		mu       sync.Mutex
		received []*trend.Data
	)
	bus.Subscribe(func(data *trend.Data) {
		mu.Lock()
		received = append(received, data)
		mu.Unlock()
	})

	bus.Publish(&trend.Data{Symbol: "AAPL"})
	bus.Publish(&trend.Data{Symbol: "MSFT"})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	})
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "AAPL", received[0].Symbol)
	assert.Equal(t, "MSFT", received[1].Symbol)
}

func TestTrendBus_StampsTimestamp(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewTrendBus()
	defer bus.Stop()

	done := make(chan *trend.Data, 1)
	bus.Subscribe(func(data *trend.Data) { done <- data })

	bus.Publish(&trend.Data{Symbol: "AAPL"})

	select {
	case data := <-done:
		assert.False(t, data.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("signal not delivered")
	}
}

func TestTrendBus_PublishAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewTrendBus()

	var count int64
	var mu sync.Mutex
	bus.Subscribe(func(*trend.Data) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Stop()
	// Give the worker a moment to observe the stop.
	time.Sleep(20 * time.Millisecond)
	bus.Publish(&trend.Data{Symbol: "AAPL"})
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, count)
}

func TestTrendBus_PanickingHandlerDoesNotKillBus(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewTrendBus()
	defer bus.Stop()

	bus.Subscribe(func(*trend.Data) { panic("handler bug") })

	done := make(chan struct{}, 1)
	bus.Subscribe(func(*trend.Data) { done <- struct{}{} })

	bus.Publish(&trend.Data{Symbol: "AAPL"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bus died after handler panic")
	}
}

func TestAlertStream_EmitDelivers(t *testing.T) {
	defer goleak.VerifyNone(t)

	stream := NewAlertStream()

	done := make(chan AlertEvent, 1)
	stream.Subscribe(func(event AlertEvent) { done <- event })

	now := time.Now()
	alert := &entities.TrendAlert{ID: "a1", Symbol: "AAPL"}
	stream.Emit(EventAlertCreated, alert, now)

	select {
	case event := <-done:
		assert.Equal(t, EventAlertCreated, event.Kind)
		require.NotNil(t, event.Alert)
		assert.Equal(t, "a1", event.Alert.ID)
		assert.Equal(t, now, event.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	stream.Stop()
}

func TestAlertStream_StopIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	stream := NewAlertStream()
	stream.Stop()
	stream.Stop()
	stream.Emit(EventAlertResolved, &entities.TrendAlert{ID: "a1"}, time.Now())
}
