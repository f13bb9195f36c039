// Package repository provides persistence for rules, alerts, thresholds and
// batches so the engine can restart without losing in-flight state.
package repository

import (
	"context"
	"time"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/errors"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.ErrNotFound

// AlertRuleRepository handles alert rule CRUD.
type AlertRuleRepository interface {
	ListRules(ctx context.Context, filter AlertRuleFilter) ([]entities.AlertRule, error)
	GetRule(ctx context.Context, id uint) (*entities.AlertRule, error)
	CreateRule(ctx context.Context, rule *entities.AlertRule) error
	UpdateRule(ctx context.Context, rule *entities.AlertRule) error
	DeleteRule(ctx context.Context, id uint) error
	ToggleRule(ctx context.Context, id uint, enabled bool) error

	GetEnabledRules(ctx context.Context) ([]entities.AlertRule, error)
	DeleteBuiltInRules(ctx context.Context) (int64, error)
	CountRulesByName(ctx context.Context, name string) (int64, error)

	// UpdateRuleMetrics persists the running metrics block without touching
	// the rule definition.
	UpdateRuleMetrics(ctx context.Context, id uint, metrics entities.RuleMetrics) error
}

// AlertRuleFilter controls rule listing queries.
type AlertRuleFilter struct {
	AlertType string
	UserID    string
	Enabled   *bool
	BuiltIn   *bool
}

// TrendAlertRepository persists generated alerts.
type TrendAlertRepository interface {
	// SaveAlert inserts or updates an alert by ID.
	SaveAlert(ctx context.Context, alert *entities.TrendAlert) error
	GetAlert(ctx context.Context, id string) (*entities.TrendAlert, error)
	ListAlerts(ctx context.Context, filter TrendAlertFilter) ([]entities.TrendAlert, int64, error)

	// ListOpenAlerts returns alerts in a non-terminal status (pending or
	// active) for restart recovery.
	ListOpenAlerts(ctx context.Context) ([]entities.TrendAlert, error)

	// DeleteResolvedBefore purges resolved alerts older than the cutoff.
	DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error)
}

// TrendAlertFilter controls alert listing queries.
type TrendAlertFilter struct {
	Symbol   string
	Type     string
	Priority string
	Status   string
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}

// ThresholdRepository persists threshold configurations.
type ThresholdRepository interface {
	ListThresholds(ctx context.Context) ([]entities.AlertThreshold, error)
	GetThreshold(ctx context.Context, id uint) (*entities.AlertThreshold, error)
	SaveThreshold(ctx context.Context, threshold *entities.AlertThreshold) error
	DeleteThreshold(ctx context.Context, id uint) error
}

// BatchRepository persists batch delivery records.
type BatchRepository interface {
	SaveBatch(ctx context.Context, batch *entities.AlertBatch) error
	ListBatches(ctx context.Context, limit, offset int) ([]entities.AlertBatch, int64, error)
}
