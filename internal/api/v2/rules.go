package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/signalwatch/trendalert-go/internal/alerting"
	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/datastore/repository"
	"github.com/signalwatch/trendalert-go/internal/errors"
	"github.com/signalwatch/trendalert-go/internal/logger"
	"github.com/signalwatch/trendalert-go/internal/trend"
)

// initRuleRoutes registers alert rule endpoints.
func (c *Controller) initRuleRoutes() {
	rules := c.Group.Group("/rules")

	rules.GET("", c.ListRules)
	rules.GET("/schema", c.GetSchema)
	rules.GET("/:id", c.GetRule)
	rules.POST("", c.CreateRule)
	rules.PUT("/:id", c.UpdateRule)
	rules.PATCH("/:id/toggle", c.ToggleRule)
	rules.DELETE("/:id", c.DeleteRule)
	rules.POST("/:id/test", c.TestRule)
	rules.POST("/reset-defaults", c.ResetDefaultRules)
}

// GetSchema returns the rule-building schema for the UI.
func (c *Controller) GetSchema(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, alerting.GetSchema())
}

// ListRules returns all alert rules, optionally filtered.
func (c *Controller) ListRules(ctx echo.Context) error {
	filter := repository.AlertRuleFilter{
		AlertType: ctx.QueryParam("alert_type"),
		UserID:    ctx.QueryParam("user_id"),
	}
	if enabledParam := ctx.QueryParam("enabled"); enabledParam != "" {
		v := enabledParam == QueryValueTrue
		filter.Enabled = &v
	}
	if builtInParam := ctx.QueryParam("built_in"); builtInParam != "" {
		v := builtInParam == QueryValueTrue
		filter.BuiltIn = &v
	}

	rules, err := c.ruleRepo.ListRules(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list rules", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// GetRule returns a single rule by ID.
func (c *Controller) GetRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	rule, err := c.ruleRepo.GetRule(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Rule not found"})
		}
		return c.HandleError(ctx, err, "Failed to get rule", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, rule)
}

// CreateRule creates a new alert rule.
func (c *Controller) CreateRule(ctx echo.Context) error {
	var rule entities.AlertRule
	if err := ctx.Bind(&rule); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if msg, ok := validateRule(&rule); !ok {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	count, err := c.ruleRepo.CountRulesByName(ctx.Request().Context(), rule.Name)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to create rule", http.StatusInternalServerError)
	}
	if count > 0 {
		return ctx.JSON(http.StatusConflict, map[string]string{"error": "A rule with this name already exists"})
	}

	if err := c.ruleRepo.CreateRule(ctx.Request().Context(), &rule); err != nil {
		return c.HandleError(ctx, err, "Failed to create rule", http.StatusInternalServerError)
	}

	c.refreshEngine(ctx)

	c.log.Info("alert rule created",
		logger.String("name", rule.Name),
		logger.Uint64("id", uint64(rule.ID)))

	return ctx.JSON(http.StatusCreated, rule)
}

// UpdateRule replaces an existing rule.
func (c *Controller) UpdateRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	existing, err := c.ruleRepo.GetRule(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Rule not found"})
		}
		return c.HandleError(ctx, err, "Failed to get rule", http.StatusInternalServerError)
	}

	var rule entities.AlertRule
	if err := ctx.Bind(&rule); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if msg, ok := validateRule(&rule); !ok {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt

	if err := c.ruleRepo.UpdateRule(ctx.Request().Context(), &rule); err != nil {
		return c.HandleError(ctx, err, "Failed to update rule", http.StatusInternalServerError)
	}

	c.refreshEngine(ctx)

	return ctx.JSON(http.StatusOK, rule)
}

// ToggleRule enables or disables a rule.
func (c *Controller) ToggleRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if err := c.ruleRepo.ToggleRule(ctx.Request().Context(), id, body.Enabled); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Rule not found"})
		}
		return c.HandleError(ctx, err, "Failed to toggle rule", http.StatusInternalServerError)
	}

	c.refreshEngine(ctx)

	return ctx.JSON(http.StatusOK, map[string]any{"id": id, "enabled": body.Enabled})
}

// DeleteRule deletes a rule.
func (c *Controller) DeleteRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	if err := c.ruleRepo.DeleteRule(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Rule not found"})
		}
		return c.HandleError(ctx, err, "Failed to delete rule", http.StatusInternalServerError)
	}

	c.refreshEngine(ctx)

	return ctx.NoContent(http.StatusNoContent)
}

// TestRule evaluates a rule against caller-supplied trend data and returns
// the alert it would produce, without queueing or persisting anything.
func (c *Controller) TestRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	var data trend.Data
	if err := ctx.Bind(&data); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid trend data"})
	}
	if data.Symbol == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Symbol is required"})
	}

	alert, outcome, err := c.engine.TestFire(ctx.Request().Context(), id, &data)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Rule not found"})
		}
		return c.HandleError(ctx, err, "Failed to test rule", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"triggered":  outcome.Triggered,
		"confidence": outcome.Confidence,
		"matched":    outcome.MatchedFields,
		"alert":      alert,
	})
}

// ResetDefaultRules deletes all built-in rules and re-seeds them.
func (c *Controller) ResetDefaultRules(ctx echo.Context) error {
	deleted, err := alerting.ResetDefaultRules(ctx.Request().Context(), c.ruleRepo, c.log)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to reset default rules", http.StatusInternalServerError)
	}

	c.refreshEngine(ctx)

	return ctx.JSON(http.StatusOK, map[string]any{
		"status":  "defaults reset",
		"deleted": deleted,
	})
}

func (c *Controller) refreshEngine(ctx echo.Context) {
	if c.engine == nil {
		return
	}
	if err := c.engine.RefreshRules(ctx.Request().Context()); err != nil {
		c.log.Warn("failed to refresh engine rules", logger.Error(err))
	}
}

// validateRule checks the fields a rule cannot function without.
func validateRule(rule *entities.AlertRule) (string, bool) {
	if rule.Name == "" {
		return "Rule name is required", false
	}
	if rule.AlertType == "" {
		return "Alert type is required", false
	}
	if rule.BasePriority == "" {
		return "Base priority is required", false
	}
	switch rule.CombineOp {
	case "", alerting.CombineAnd, alerting.CombineOr:
	default:
		return "Combine operator must be AND or OR", false
	}
	if len(rule.Conditions) == 0 {
		return "At least one condition is required", false
	}
	if len(rule.Channels) == 0 {
		return "At least one delivery channel is required", false
	}
	for i := range rule.Conditions {
		cond := &rule.Conditions[i]
		if cond.Field == "" {
			return "Condition field is required", false
		}
		if cond.Operator == "" {
			return "Condition operator is required", false
		}
		if cond.Value == "" && !thresholdBindable(cond.Operator) {
			return "Condition value is required", false
		}
		if cond.Weight < 0 || cond.Weight > 1 {
			return "Condition weight must be between 0 and 1", false
		}
	}
	return "", true
}

// thresholdBindable reports whether a condition with an empty value can
// bind the active computed threshold at evaluation time. Only numeric
// comparisons qualify.
func thresholdBindable(operator string) bool {
	switch operator {
	case alerting.OperatorGreaterThan, alerting.OperatorLessThan,
		alerting.OperatorGreaterOrEqual, alerting.OperatorLessOrEqual:
		return true
	}
	return false
}
