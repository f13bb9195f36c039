package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/signalwatch/trendalert-go/internal/conf"
	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/datastore/repository"
	"github.com/signalwatch/trendalert-go/internal/logger"
	"github.com/signalwatch/trendalert-go/internal/notification"
	"github.com/signalwatch/trendalert-go/internal/observability"
	"github.com/signalwatch/trendalert-go/internal/trend"
)

const (
	// saveAlertTimeout is the context deadline for persisting alert state.
	saveAlertTimeout = 3 * time.Second
	// cleanupTimeout is the context deadline for the periodic purge.
	cleanupTimeout = 5 * time.Second
)

// EngineDeps bundles the engine's collaborators.
type EngineDeps struct {
	Rules      repository.AlertRuleRepository
	Alerts     repository.TrendAlertRepository
	Thresholds repository.ThresholdRepository
	Batches    repository.BatchRepository
	Registry   *notification.Registry
	Settings   conf.AlertingSettings
	Metrics    *observability.Metrics
	Log        logger.Logger
}

// Engine evaluates incoming trend data against configured rules and owns the
// resulting alerts through delivery, escalation, and resolution.
type Engine struct {
	ruleRepo      repository.AlertRuleRepository
	alertRepo     repository.TrendAlertRepository
	thresholdRepo repository.ThresholdRepository
	batchRepo     repository.BatchRepository

	settings   conf.AlertingSettings
	matcher    *Matcher
	factory    *Factory
	dedup      *Deduplicator
	queue      *AlertQueue
	dispatcher *Dispatcher
	batcher    *BatchAggregator
	escalator  *EscalationController
	thresholds *ThresholdCalculator
	stream     *AlertStream
	metrics    *observability.Metrics
	log        logger.Logger

	// Cached rules (refreshed on startup and rule mutation)
	rules   []entities.AlertRule
	rulesMu sync.RWMutex

	// Cached threshold definitions
	thresholdDefs []entities.AlertThreshold
	thresholdMu   sync.RWMutex

	// Open alerts by ID (pending or active)
	active   map[string]*entities.TrendAlert
	activeMu sync.RWMutex

	// Latest trend context per symbol, feeds dynamic threshold inputs
	lastContext   map[string]trend.Context
	lastContextMu sync.RWMutex
}

// NewEngine creates the alerting engine. Call Recover before the scheduler
// starts so restart state is rebuilt.
func NewEngine(deps EngineDeps) *Engine {
	e := &Engine{
		ruleRepo:      deps.Rules,
		alertRepo:     deps.Alerts,
		thresholdRepo: deps.Thresholds,
		batchRepo:     deps.Batches,
		settings:      deps.Settings,
		factory:       NewFactory(),
		dedup:         NewDeduplicator(deps.Settings.DedupWindow.Std()),
		queue:         NewAlertQueue(),
		thresholds:    NewThresholdCalculator(),
		stream:        NewAlertStream(),
		metrics:       deps.Metrics,
		log:           deps.Log,
		active:        make(map[string]*entities.TrendAlert),
		lastContext:   make(map[string]trend.Context),
	}
	e.matcher = NewMatcher(e)
	e.dispatcher = NewDispatcher(deps.Registry, deps.Settings.ChannelTimeout.Std(), deps.Log)
	e.batcher = NewBatchAggregator(e.dispatcher, entities.BatchDedupPolicy{
		Enabled:   true,
		WindowSec: int(deps.Settings.BatchInterval.Std().Seconds()),
		Strategy:  StrategyMerge,
	}, deps.Log)
	e.escalator = NewEscalationController(e.dispatcher, deps.Log)
	return e
}

// Stream returns the outbound alert lifecycle stream.
func (e *Engine) Stream() *AlertStream {
	return e.stream
}

// ActiveThreshold implements ThresholdResolver: conditions with an empty
// value bind to the last computed threshold for their field, falling back to
// the persisted current value of a matching definition.
func (e *Engine) ActiveThreshold(field, symbol string) (float64, bool) {
	if v, ok := e.thresholds.LastComputed(field, symbol); ok {
		return v, true
	}
	e.thresholdMu.RLock()
	defer e.thresholdMu.RUnlock()
	for i := range e.thresholdDefs {
		def := &e.thresholdDefs[i]
		if def.Field != field {
			continue
		}
		if def.Symbol != "" && def.Symbol != symbol {
			continue
		}
		if def.CurrentValue != 0 {
			return def.CurrentValue, true
		}
	}
	return 0, false
}

// RefreshRules reloads enabled rules from the database. Call on startup and
// whenever rules are modified via the API.
func (e *Engine) RefreshRules(ctx context.Context) error {
	rules, err := e.ruleRepo.GetEnabledRules(ctx)
	if err != nil {
		return err
	}
	e.rulesMu.Lock()
	e.rules = rules
	e.rulesMu.Unlock()
	return nil
}

// RefreshThresholds reloads threshold definitions from the database.
func (e *Engine) RefreshThresholds(ctx context.Context) error {
	defs, err := e.thresholdRepo.ListThresholds(ctx)
	if err != nil {
		return err
	}
	e.thresholdMu.Lock()
	e.thresholdDefs = defs
	e.thresholdMu.Unlock()
	return nil
}

// Recover rebuilds in-memory state from persisted open alerts after a
// restart: pending alerts re-enter the queues, active alerts resume their
// escalation ladders, and the dedup index is rehydrated.
func (e *Engine) Recover(ctx context.Context, now time.Time) error {
	open, err := e.alertRepo.ListOpenAlerts(ctx)
	if err != nil {
		return err
	}
	e.dedup.Rehydrate(open, now)

	for i := range open {
		alert := open[i]
		e.registerActive(&alert)
		if alert.Status == StatusPending {
			e.queue.Push(&alert)
		}
	}
	if len(open) > 0 {
		e.log.Info("recovered open alerts", logger.Int("count", len(open)))
	}
	return nil
}

// HandleTrend evaluates one trend signal against all enabled rules.
func (e *Engine) HandleTrend(data *trend.Data) {
	now := data.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	e.recordThresholdSamples(data, now)

	e.lastContextMu.Lock()
	e.lastContext[data.Symbol] = data.Context
	e.lastContextMu.Unlock()

	e.rulesMu.RLock()
	rules := make([]entities.AlertRule, len(e.rules))
	copy(rules, e.rules)
	e.rulesMu.RUnlock()

	for _, rule := range e.matcher.Select(rules, data) {
		if !ScheduleAllows(rule.Schedule, now) {
			continue
		}
		// A throttled rule is skipped outright. Only the process-level
		// counter moves, the rule's own metrics stay untouched.
		if !e.matcher.throttleAllows(rule, now) {
			e.metrics.SuppressedTotal.WithLabelValues("throttle").Inc()
			continue
		}

		outcome := e.matcher.EvaluateRule(rule, data)
		if !outcome.Triggered {
			continue
		}
		e.fireRule(rule, data, outcome, now)
	}
}

func (e *Engine) fireRule(rule *entities.AlertRule, data *trend.Data, outcome EvalOutcome, now time.Time) {
	alert := e.factory.Build(rule, data, outcome, now)
	alert.MaxRetries = e.settings.MaxRetries

	if e.dedup.IsDuplicate(alert) {
		alert.Status = StatusSuppressed
		e.metrics.SuppressedTotal.WithLabelValues("duplicate").Inc()
		e.bumpRuleMetrics(rule.ID, func(m *entities.RuleMetrics) {
			m.SuppressedCount++
		})
		e.stream.Emit(EventAlertSuppressed, alert, now)
		e.saveAlert(alert)
		return
	}

	e.dedup.Record(alert)
	e.matcher.RecordTrigger(rule, now)
	e.bumpRuleMetrics(rule.ID, func(m *entities.RuleMetrics) {
		m.TriggerCount++
		t := now
		m.LastTriggeredAt = &t
	})

	e.metrics.TriggersTotal.WithLabelValues(alert.Type, alert.Priority).Inc()
	e.registerActive(alert)
	e.queue.Push(alert)
	e.updateQueueGauges()
	e.stream.Emit(EventAlertCreated, alert, now)
	e.saveAlert(alert)

	e.log.Info("alert created",
		logger.String("alert_id", alert.ID),
		logger.String("symbol", alert.Symbol),
		logger.String("type", alert.Type),
		logger.String("priority", alert.Priority),
		logger.Float64("confidence", alert.Confidence))
}

// ProcessRealtime drains the realtime queue and delivers each alert
// individually. Called by the scheduler on the realtime tick.
func (e *Engine) ProcessRealtime(ctx context.Context, now time.Time) {
	alerts := e.queue.PopRealtime(e.settings.RealtimeDrainLimit, now)
	for _, alert := range alerts {
		e.deliverAlert(ctx, alert, now)
	}
	e.updateQueueGauges()
}

func (e *Engine) deliverAlert(ctx context.Context, alert *entities.TrendAlert, now time.Time) {
	content := RenderContent(alert)
	start := time.Now()
	outcome := e.dispatcher.Deliver(ctx, alert.Channels, content, now)
	e.metrics.DeliveryTime.Observe(time.Since(start).Seconds())

	alert.Delivery.Attempts = append(alert.Delivery.Attempts, outcome.Attempts...)
	for _, a := range outcome.Attempts {
		e.metrics.RecordDeliveryAttempts(a.Channel, a.Success)
	}

	if outcome.Delivered {
		e.markDelivered(alert, now)
		return
	}
	e.retryOrExpire(alert, now)
}

func (e *Engine) markDelivered(alert *entities.TrendAlert, now time.Time) {
	alert.Status = StatusActive
	alert.Delivery.Delivered = true
	t := now
	alert.Delivery.DeliveredAt = &t

	if rule := e.ruleByID(alert.RuleID); rule != nil {
		e.escalator.Schedule(alert, rule.Escalation, now)
	}
	e.stream.Emit(EventAlertDelivered, alert, now)
	e.saveAlert(alert)
}

// retryOrExpire requeues a failed alert with backoff, or expires it once the
// retry budget or its TTL is exhausted.
func (e *Engine) retryOrExpire(alert *entities.TrendAlert, now time.Time) {
	if alert.RetryCount >= alert.MaxRetries || now.After(alert.ExpiresAt) {
		e.expireAlert(alert, now)
		return
	}
	alert.RetryCount++
	e.queue.PushRetry(alert, now.Add(e.settings.RetryBackoff.Std()))
	e.log.Warn("delivery failed, retry scheduled",
		logger.String("alert_id", alert.ID),
		logger.Int("attempt", alert.RetryCount),
		logger.Int("max_retries", alert.MaxRetries))
	e.saveAlert(alert)
}

func (e *Engine) expireAlert(alert *entities.TrendAlert, now time.Time) {
	alert.Status = StatusExpired
	e.metrics.ExpiredTotal.Inc()
	e.unregisterActive(alert.ID)
	e.stream.Emit(EventAlertExpired, alert, now)
	e.saveAlert(alert)
	e.log.Warn("alert expired undelivered", logger.String("alert_id", alert.ID))
}

// ProcessBatch aggregates the batch queue into digests and delivers them.
// Called by the scheduler on the batch tick.
func (e *Engine) ProcessBatch(ctx context.Context, now time.Time) {
	alerts := e.queue.DrainBatch(now)
	if len(alerts) == 0 {
		return
	}

	outcome := e.batcher.Process(ctx, alerts, now)

	for _, alert := range outcome.Delivered {
		e.markDelivered(alert, now)
	}
	for _, alert := range outcome.Failed {
		e.retryOrExpire(alert, now)
	}
	for _, alert := range outcome.Deduplicated {
		alert.Status = StatusSuppressed
		e.metrics.SuppressedTotal.WithLabelValues("batch_dedup").Inc()
		e.unregisterActive(alert.ID)
		e.stream.Emit(EventAlertSuppressed, alert, now)
		e.saveAlert(alert)
	}

	for _, batch := range outcome.Batches {
		e.saveBatch(batch)
	}
	e.updateQueueGauges()
}

// ProcessEscalations advances due escalation ladders. Called by the
// scheduler on the escalation tick.
func (e *Engine) ProcessEscalations(ctx context.Context, now time.Time) {
	for _, alert := range e.snapshotActive() {
		if !e.escalator.Due(alert, now) {
			continue
		}
		rule := e.ruleByID(alert.RuleID)
		if rule == nil || !rule.Escalation.Enabled {
			e.escalator.Halt(alert)
			continue
		}
		if err := e.escalator.Escalate(ctx, alert, rule.Escalation, now); err != nil {
			continue
		}
		e.metrics.EscalationsTotal.Inc()
		e.stream.Emit(EventAlertEscalated, alert, now)
		e.saveAlert(alert)
	}
}

// ComputeThresholds recomputes every threshold definition from the sample
// history and latest market context, persisting changed values. Called by
// the scheduler on the threshold tick.
func (e *Engine) ComputeThresholds(ctx context.Context, now time.Time) {
	e.thresholdMu.Lock()
	defs := make([]entities.AlertThreshold, len(e.thresholdDefs))
	copy(defs, e.thresholdDefs)
	e.thresholdMu.Unlock()

	for i := range defs {
		def := &defs[i]
		result := e.thresholds.Compute(def, e.dynamicInputs(def.Symbol, now), now)
		if !result.Updated {
			continue
		}
		def.CurrentValue = result.Value
		def.Method = result.Method
		if err := e.thresholdRepo.SaveThreshold(ctx, def); err != nil {
			e.log.Error("failed to persist threshold",
				logger.Uint64("threshold_id", uint64(def.ID)),
				logger.Error(err))
		}
	}

	e.thresholdMu.Lock()
	e.thresholdDefs = defs
	e.thresholdMu.Unlock()
}

func (e *Engine) dynamicInputs(symbol string, now time.Time) DynamicInputs {
	e.lastContextMu.RLock()
	ctx := e.lastContext[symbol]
	e.lastContextMu.RUnlock()
	return DynamicInputs{
		Volatility:      ctx.Volatility,
		MarketCondition: ctx.MarketCondition,
		Hour:            now.Hour(),
	}
}

func (e *Engine) recordThresholdSamples(data *trend.Data, now time.Time) {
	e.thresholdMu.RLock()
	defs := make([]entities.AlertThreshold, len(e.thresholdDefs))
	copy(defs, e.thresholdDefs)
	e.thresholdMu.RUnlock()

	fields := data.Fields()
	for i := range defs {
		def := &defs[i]
		if def.Symbol != "" && def.Symbol != data.Symbol {
			continue
		}
		raw, ok := trend.Resolve(fields, def.Field)
		if !ok {
			continue
		}
		v, err := toFloat64(raw)
		if err != nil {
			continue
		}
		e.thresholds.RecordSample(def.Field, data.Symbol, v, now)
	}
}

// Cleanup expires stale open alerts and purges resolved alerts past the
// retention window. Called by the scheduler on the cleanup tick.
func (e *Engine) Cleanup(now time.Time) {
	for _, alert := range e.snapshotActive() {
		if now.After(alert.ExpiresAt) && alert.Status == StatusPending {
			e.expireAlert(alert, now)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	cutoff := now.Add(-e.settings.Retention.Std())
	deleted, err := e.alertRepo.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		e.log.Error("alert retention purge failed", logger.Error(err))
		return
	}
	if deleted > 0 {
		e.log.Info("purged resolved alerts", logger.Int64("deleted", deleted))
	}
}

// Acknowledge marks an alert acknowledged and halts its escalation ladder.
func (e *Engine) Acknowledge(ctx context.Context, id, by string, now time.Time) (*entities.TrendAlert, error) {
	alert, err := e.lookupAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Interaction.Acknowledged {
		return alert, nil
	}

	alert.Interaction.Acknowledged = true
	alert.Interaction.AcknowledgedBy = by
	t := now
	alert.Interaction.AcknowledgedAt = &t
	alert.Status = StatusAcknowledged
	e.escalator.Halt(alert)
	e.unregisterActive(alert.ID)

	e.stream.Emit(EventAlertAcknowledged, alert, now)
	if err := e.alertRepo.SaveAlert(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// Resolve closes an alert, optionally recording user feedback that feeds the
// rule's effectiveness metrics.
func (e *Engine) Resolve(ctx context.Context, id, by string, feedback *entities.AlertFeedback, now time.Time) (*entities.TrendAlert, error) {
	alert, err := e.lookupAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Interaction.Resolved {
		return alert, nil
	}

	alert.Interaction.Resolved = true
	alert.Interaction.ResolvedBy = by
	t := now
	alert.Interaction.ResolvedAt = &t
	alert.Interaction.Feedback = feedback
	alert.Status = StatusResolved
	e.escalator.Halt(alert)
	e.unregisterActive(alert.ID)

	if feedback != nil {
		e.bumpRuleMetrics(alert.RuleID, func(m *entities.RuleMetrics) {
			if feedback.Useful {
				m.TruePositives++
			} else {
				m.FalsePositives++
			}
			total := m.TruePositives + m.FalsePositives
			if total > 0 {
				m.Effectiveness = float64(m.TruePositives) / float64(total)
			}
		})
	}

	e.stream.Emit(EventAlertResolved, alert, now)
	if err := e.alertRepo.SaveAlert(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// TestFire evaluates a rule against synthetic trend data and returns the
// alert it would produce, without queueing or persisting anything.
func (e *Engine) TestFire(ctx context.Context, ruleID uint, data *trend.Data) (*entities.TrendAlert, EvalOutcome, error) {
	rule, err := e.ruleRepo.GetRule(ctx, ruleID)
	if err != nil {
		return nil, EvalOutcome{}, err
	}
	outcome := e.matcher.EvaluateRule(rule, data)
	if !outcome.Triggered {
		return nil, outcome, nil
	}
	now := data.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	return e.factory.Build(rule, data, outcome, now), outcome, nil
}

// Stop shuts the outbound stream down.
func (e *Engine) Stop() {
	e.stream.Stop()
}

// QueueDepth returns the current realtime and batch queue lengths.
func (e *Engine) QueueDepth() (realtime, batch int) {
	return e.queue.Len()
}

func (e *Engine) lookupAlert(ctx context.Context, id string) (*entities.TrendAlert, error) {
	e.activeMu.RLock()
	alert, ok := e.active[id]
	e.activeMu.RUnlock()
	if ok {
		return alert, nil
	}
	return e.alertRepo.GetAlert(ctx, id)
}

func (e *Engine) ruleByID(id uint) *entities.AlertRule {
	e.rulesMu.RLock()
	defer e.rulesMu.RUnlock()
	for i := range e.rules {
		if e.rules[i].ID == id {
			rule := e.rules[i]
			return &rule
		}
	}
	return nil
}

// bumpRuleMetrics mutates the cached rule's metrics block and persists it
// best-effort.
func (e *Engine) bumpRuleMetrics(ruleID uint, fn func(*entities.RuleMetrics)) {
	var metrics entities.RuleMetrics
	found := false

	e.rulesMu.Lock()
	for i := range e.rules {
		if e.rules[i].ID == ruleID {
			fn(&e.rules[i].Metrics)
			metrics = e.rules[i].Metrics
			found = true
			break
		}
	}
	e.rulesMu.Unlock()

	if !found {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveAlertTimeout)
	defer cancel()
	if err := e.ruleRepo.UpdateRuleMetrics(ctx, ruleID, metrics); err != nil {
		e.log.Error("failed to persist rule metrics",
			logger.Uint64("rule_id", uint64(ruleID)),
			logger.Error(err))
	}
}

func (e *Engine) registerActive(alert *entities.TrendAlert) {
	e.activeMu.Lock()
	e.active[alert.ID] = alert
	count := len(e.active)
	e.activeMu.Unlock()
	e.metrics.ActiveAlerts.Set(float64(count))
}

func (e *Engine) unregisterActive(id string) {
	e.activeMu.Lock()
	delete(e.active, id)
	count := len(e.active)
	e.activeMu.Unlock()
	e.metrics.ActiveAlerts.Set(float64(count))
}

func (e *Engine) snapshotActive() []*entities.TrendAlert {
	e.activeMu.RLock()
	defer e.activeMu.RUnlock()
	out := make([]*entities.TrendAlert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, a)
	}
	return out
}

func (e *Engine) updateQueueGauges() {
	realtime, batch := e.queue.Len()
	e.metrics.QueueDepth.WithLabelValues("realtime").Set(float64(realtime))
	e.metrics.QueueDepth.WithLabelValues("batch").Set(float64(batch))
}

// saveAlert persists alert state best-effort with a bounded deadline.
func (e *Engine) saveAlert(alert *entities.TrendAlert) {
	ctx, cancel := context.WithTimeout(context.Background(), saveAlertTimeout)
	defer cancel()
	if err := e.alertRepo.SaveAlert(ctx, alert); err != nil {
		e.log.Error("failed to persist alert",
			logger.String("alert_id", alert.ID),
			logger.Error(err))
	}
}

func (e *Engine) saveBatch(batch *entities.AlertBatch) {
	ctx, cancel := context.WithTimeout(context.Background(), saveAlertTimeout)
	defer cancel()
	if err := e.batchRepo.SaveBatch(ctx, batch); err != nil {
		e.log.Error("failed to persist batch",
			logger.String("batch_id", batch.ID),
			logger.Error(err))
	}
}
