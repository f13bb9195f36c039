package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/signalwatch/trendalert-go/internal/conf"
	"github.com/signalwatch/trendalert-go/internal/logger"
)

// Scheduler drives the engine's periodic work: a fast realtime tick, a slow
// batch tick, an escalation sweep, threshold recomputation, and cleanup.
// Each loop runs in its own goroutine so a slow channel cannot stall the
// realtime path.
type Scheduler struct {
	engine   *Engine
	settings conf.AlertingSettings
	log      logger.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

func NewScheduler(engine *Engine, settings conf.AlertingSettings, log logger.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		settings: settings,
		log:      log,
	}
}

// Start launches the tick loops. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})

	s.loop(s.settings.RealtimeInterval.Std(), func(now time.Time) {
		s.engine.ProcessRealtime(context.Background(), now)
	})
	s.loop(s.settings.BatchInterval.Std(), func(now time.Time) {
		s.engine.ProcessBatch(context.Background(), now)
	})
	s.loop(s.settings.EscalationInterval.Std(), func(now time.Time) {
		s.engine.ProcessEscalations(context.Background(), now)
	})
	s.loop(s.settings.ThresholdInterval.Std(), func(now time.Time) {
		s.engine.ComputeThresholds(context.Background(), now)
	})
	s.loop(s.settings.CleanupInterval.Std(), func(now time.Time) {
		s.engine.Cleanup(now)
	})

	s.log.Info("alert scheduler started",
		logger.Duration("realtime_interval", s.settings.RealtimeInterval.Std()),
		logger.Duration("batch_interval", s.settings.BatchInterval.Std()),
		logger.Duration("escalation_interval", s.settings.EscalationInterval.Std()))
}

// Stop halts all tick loops and waits for in-flight ticks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	close(s.stopCh)
	s.wg.Wait()
	s.started = false
	s.log.Info("alert scheduler stopped")
}

func (s *Scheduler) loop(interval time.Duration, tick func(now time.Time)) {
	if interval <= 0 {
		return
	}
	stop := s.stopCh
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				tick(now)
			case <-stop:
				return
			}
		}
	}()
}
