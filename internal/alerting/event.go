package alerting

import (
	"sync"
	"time"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/trend"
)

const (
	// trendBusBufferSize is the capacity of the async inbound channel.
	// Signals are dropped if the buffer is full to avoid blocking detectors.
	trendBusBufferSize = 1000
	// streamBufferSize is the capacity of the outbound event channel.
	streamBufferSize = 256
)

// TrendHandler processes inbound trend signals.
type TrendHandler func(data *trend.Data)

// TrendBus is an async pub/sub for inbound trend signals. Publish is
// non-blocking: signals are sent to a buffered channel and processed by a
// worker goroutine, so upstream detectors are never blocked by evaluation,
// persistence or delivery.
type TrendBus struct {
	handlers []TrendHandler
	mu       sync.RWMutex
	dataCh   chan *trend.Data
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewTrendBus creates a trend bus and starts its worker.
func NewTrendBus() *TrendBus {
	b := &TrendBus{
		dataCh: make(chan *trend.Data, trendBusBufferSize),
		stopCh: make(chan struct{}),
	}
	go b.processLoop()
	return b
}

// Subscribe registers a handler for trend signals.
func (b *TrendBus) Subscribe(handler TrendHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish enqueues a signal for async processing. Non-blocking: if the
// buffer is full the signal is dropped to protect callers on hot paths.
// Signals are silently dropped after Stop.
func (b *TrendBus) Publish(data *trend.Data) {
	select {
	case <-b.stopCh:
		return
	default:
	}

	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now()
	}

	select {
	case b.dataCh <- data:
	default:
		// Buffer full, drop to avoid blocking the detector
	}
}

// Stop shuts down the worker goroutine. Safe to call multiple times.
func (b *TrendBus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
}

func (b *TrendBus) processLoop() {
	for {
		select {
		case data := <-b.dataCh:
			b.dispatch(data)
		case <-b.stopCh:
			// Drain remaining signals before exiting
			for {
				select {
				case data := <-b.dataCh:
					b.dispatch(data)
				default:
					return
				}
			}
		}
	}
}

func (b *TrendBus) dispatch(data *trend.Data) {
	b.mu.RLock()
	handlers := make([]TrendHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		safeCallTrend(handler, data)
	}
}

// safeCallTrend invokes a handler with panic recovery so a panicking
// handler cannot kill the bus goroutine.
func safeCallTrend(handler TrendHandler, data *trend.Data) {
	defer func() {
		recover() //nolint:errcheck // intentionally swallowed to keep bus alive
	}()
	handler(data)
}

// Alert lifecycle event kinds emitted on the outbound stream.
const (
	EventAlertCreated      = "alert.created"
	EventAlertSuppressed   = "alert.suppressed"
	EventAlertDelivered    = "alert.delivered"
	EventAlertEscalated    = "alert.escalated"
	EventAlertAcknowledged = "alert.acknowledged"
	EventAlertResolved     = "alert.resolved"
	EventAlertExpired      = "alert.expired"
)

// AlertEvent is one entry on the outbound lifecycle stream.
type AlertEvent struct {
	Kind      string               `json:"kind"`
	Alert     *entities.TrendAlert `json:"alert"`
	Timestamp time.Time            `json:"timestamp"`
}

// AlertEventHandler consumes outbound lifecycle events.
type AlertEventHandler func(event AlertEvent)

// AlertStream is the engine's outbound event stream. Components (websocket
// API, metrics) subscribe instead of polling the registry.
type AlertStream struct {
	handlers []AlertEventHandler
	mu       sync.RWMutex
	eventCh  chan AlertEvent
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewAlertStream creates an alert stream and starts its worker.
func NewAlertStream() *AlertStream {
	s := &AlertStream{
		eventCh: make(chan AlertEvent, streamBufferSize),
		stopCh:  make(chan struct{}),
	}
	go s.processLoop()
	return s
}

// Subscribe registers a handler for lifecycle events.
func (s *AlertStream) Subscribe(handler AlertEventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Emit enqueues a lifecycle event. Non-blocking; drops on full buffer.
func (s *AlertStream) Emit(kind string, alert *entities.TrendAlert, now time.Time) {
	select {
	case <-s.stopCh:
		return
	default:
	}

	select {
	case s.eventCh <- AlertEvent{Kind: kind, Alert: alert, Timestamp: now}:
	default:
	}
}

// Stop shuts down the worker goroutine. Safe to call multiple times.
func (s *AlertStream) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *AlertStream) processLoop() {
	for {
		select {
		case event := <-s.eventCh:
			s.dispatch(event)
		case <-s.stopCh:
			for {
				select {
				case event := <-s.eventCh:
					s.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (s *AlertStream) dispatch(event AlertEvent) {
	s.mu.RLock()
	handlers := make([]AlertEventHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				recover() //nolint:errcheck // keep the stream alive
			}()
			handler(event)
		}()
	}
}
