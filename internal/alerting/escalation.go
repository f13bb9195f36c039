package alerting

import (
	"context"
	"time"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/errors"
	"github.com/signalwatch/trendalert-go/internal/logger"
)

// EscalationController advances unacknowledged alerts through the
// escalation ladder of their rule. Each step notifies the channels of the
// next level and schedules the step after it. Acknowledgement and terminal
// statuses halt the ladder.
type EscalationController struct {
	dispatcher *Dispatcher
	log        logger.Logger
}

func NewEscalationController(dispatcher *Dispatcher, log logger.Logger) *EscalationController {
	return &EscalationController{dispatcher: dispatcher, log: log}
}

// Due reports whether the alert has a pending escalation step at now.
func (c *EscalationController) Due(alert *entities.TrendAlert, now time.Time) bool {
	if alert == nil || alert.Escalation.NextAt == nil {
		return false
	}
	if alert.Status != StatusActive {
		return false
	}
	if alert.Interaction.Acknowledged {
		return false
	}
	return !alert.Escalation.NextAt.After(now)
}

// Schedule sets the first escalation step on a freshly delivered alert.
// Alerts whose rule has no escalation policy are left untouched.
func (c *EscalationController) Schedule(alert *entities.TrendAlert, policy entities.EscalationPolicy, now time.Time) {
	if !policy.Enabled || len(policy.Levels) == 0 {
		return
	}
	next := now.Add(time.Duration(policy.Levels[0].DelaySec) * time.Second)
	alert.Escalation.Level = 0
	alert.Escalation.MaxLevel = len(policy.Levels)
	alert.Escalation.NextAt = &next
}

// Halt cancels any pending escalation, typically on acknowledgement or
// resolution.
func (c *EscalationController) Halt(alert *entities.TrendAlert) {
	alert.Escalation.NextAt = nil
}

// Escalate performs one due step: raises the level, notifies the level's
// channels (falling back to the alert's own channels when the level names
// none), and schedules the following step. At the top of the ladder it
// returns ErrEscalationMaxLevel and stops scheduling.
func (c *EscalationController) Escalate(ctx context.Context, alert *entities.TrendAlert, policy entities.EscalationPolicy, now time.Time) error {
	// The rule's levels may have changed since the ladder was armed.
	// Re-sync so a shortened policy ends the ladder instead of indexing
	// past its levels.
	alert.Escalation.MaxLevel = len(policy.Levels)

	if alert.Escalation.Level >= alert.Escalation.MaxLevel {
		alert.Escalation.NextAt = nil
		return errors.ErrEscalationMaxLevel
	}

	level := alert.Escalation.Level + 1
	idx := level - 1
	channels := alert.Channels
	if idx < len(policy.Levels) && len(policy.Levels[idx].Channels) > 0 {
		channels = policy.Levels[idx].Channels
	}

	content := RenderEscalationContent(alert, level)
	outcome := c.dispatcher.Deliver(ctx, channels, content, now)
	alert.Delivery.Attempts = append(alert.Delivery.Attempts, outcome.Attempts...)
	if !outcome.Delivered {
		c.log.Warn("escalation delivery failed on all channels",
			logger.String("alert_id", alert.ID),
			logger.Int("level", level))
	}

	alert.Escalation.Level = level
	alert.Escalation.LastAt = &now

	if level >= alert.Escalation.MaxLevel {
		alert.Escalation.NextAt = nil
		c.log.Warn("alert reached maximum escalation level",
			logger.String("alert_id", alert.ID),
			logger.String("symbol", alert.Symbol),
			logger.Int("level", level))
		return nil
	}

	next := now.Add(time.Duration(policy.Levels[level].DelaySec) * time.Second)
	alert.Escalation.NextAt = &next
	return nil
}
