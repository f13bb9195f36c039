package alerting

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/logger"
	"github.com/signalwatch/trendalert-go/internal/notification"
)

// Dispatcher fans a rendered alert out to its configured channels. Channels
// are independent: a stalled send cannot block the others, and the attempt
// log accumulates results from every channel even after the first success.
type Dispatcher struct {
	registry *notification.Registry
	timeout  time.Duration
	log      logger.Logger
}

// NewDispatcher creates a Dispatcher. timeout bounds each channel send.
func NewDispatcher(registry *notification.Registry, timeout time.Duration, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		timeout:  timeout,
		log:      log,
	}
}

// DeliveryOutcome aggregates one fan-out round.
type DeliveryOutcome struct {
	Attempts  []entities.DeliveryAttempt
	Delivered bool
}

// Deliver sends content to each named channel concurrently and returns the
// per-channel attempt records. Delivered is true when at least one channel
// succeeded. Unknown channel names are recorded as failed attempts.
func (d *Dispatcher) Deliver(ctx context.Context, channels []string, content notification.Content, now time.Time) DeliveryOutcome {
	if len(channels) == 0 {
		return DeliveryOutcome{}
	}

	var (
		mu       sync.Mutex
		attempts []entities.DeliveryAttempt
		wg       sync.WaitGroup
	)

	for _, name := range channels {
		ch, ok := d.registry.Get(name)
		if !ok {
			mu.Lock()
			attempts = append(attempts, entities.DeliveryAttempt{
				Channel:   name,
				Success:   false,
				Error:     fmt.Sprintf("channel %q not configured", name),
				Timestamp: now,
			})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(name string, ch notification.Channel) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			err := ch.Send(sendCtx, content)

			attempt := entities.DeliveryAttempt{
				Channel:   name,
				Success:   err == nil,
				Timestamp: now,
			}
			if err != nil {
				attempt.Error = err.Error()
				d.log.Warn("channel delivery failed",
					logger.String("channel", name),
					logger.Error(err))
			}

			mu.Lock()
			attempts = append(attempts, attempt)
			mu.Unlock()
		}(name, ch)
	}

	wg.Wait()

	delivered := false
	for _, a := range attempts {
		if a.Success {
			delivered = true
			break
		}
	}
	return DeliveryOutcome{Attempts: attempts, Delivered: delivered}
}

// RenderContent builds a notification from an alert using the default
// templates.
func RenderContent(alert *entities.TrendAlert) notification.Content {
	vars := templateVars(alert)
	return notification.Content{
		Title:    RenderTemplate("{{title}}", vars),
		Body:     RenderTemplate("{{message}}", vars),
		Priority: alert.Priority,
		Metadata: map[string]string{
			"alert_id": alert.ID,
			"symbol":   alert.Symbol,
			"type":     alert.Type,
		},
	}
}

// RenderEscalationContent builds the escalation-flavored notification for
// the given level.
func RenderEscalationContent(alert *entities.TrendAlert, level int) notification.Content {
	vars := templateVars(alert)
	vars["level"] = fmt.Sprintf("%d", level)
	return notification.Content{
		Title:    RenderTemplate("[ESCALATION L{{level}}] {{title}}", vars),
		Body:     RenderTemplate("Unacknowledged alert escalated to level {{level}}: {{message}}", vars),
		Priority: alert.Priority,
		Metadata: map[string]string{
			"alert_id":         alert.ID,
			"symbol":           alert.Symbol,
			"type":             alert.Type,
			"escalation_level": fmt.Sprintf("%d", level),
		},
	}
}

// RenderTemplate substitutes {{var}} tokens in the template. Unknown tokens
// are left intact.
func RenderTemplate(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func templateVars(alert *entities.TrendAlert) map[string]string {
	return map[string]string{
		"title":      alert.Title,
		"message":    alert.Message,
		"symbol":     alert.Symbol,
		"type":       alert.Type,
		"priority":   alert.Priority,
		"direction":  alert.Snapshot.Direction,
		"strength":   fmt.Sprintf("%.2f", alert.Snapshot.Strength),
		"confidence": fmt.Sprintf("%.2f", alert.Confidence),
	}
}
