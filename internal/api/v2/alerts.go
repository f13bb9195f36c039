package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/datastore/repository"
	"github.com/signalwatch/trendalert-go/internal/errors"
)

const maxAlertLimit = 200

// initAlertRoutes registers alert lifecycle endpoints.
func (c *Controller) initAlertRoutes() {
	alerts := c.Group.Group("/alerts")

	alerts.GET("", c.ListAlerts)
	alerts.GET("/analytics", c.GetAnalytics)
	alerts.GET("/:id", c.GetAlert)
	alerts.POST("/:id/acknowledge", c.AcknowledgeAlert)
	alerts.POST("/:id/resolve", c.ResolveAlert)
}

// ListAlerts returns paginated alerts, optionally filtered.
func (c *Controller) ListAlerts(ctx echo.Context) error {
	filter := repository.TrendAlertFilter{
		Symbol:   ctx.QueryParam("symbol"),
		Type:     ctx.QueryParam("type"),
		Priority: ctx.QueryParam("priority"),
		Status:   ctx.QueryParam("status"),
		Limit:    50,
	}

	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		v, err := strconv.Atoi(limitParam)
		if err != nil || v < 1 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
		}
		filter.Limit = min(v, maxAlertLimit)
	}
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		v, err := strconv.Atoi(offsetParam)
		if err != nil || v < 0 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid offset"})
		}
		filter.Offset = v
	}
	if sinceParam := ctx.QueryParam("since"); sinceParam != "" {
		t, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid since timestamp"})
		}
		filter.Since = t
	}
	if untilParam := ctx.QueryParam("until"); untilParam != "" {
		t, err := time.Parse(time.RFC3339, untilParam)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid until timestamp"})
		}
		filter.Until = t
	}

	alerts, total, err := c.alertRepo.ListAlerts(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list alerts", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"alerts": alerts,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetAlert returns a single alert by ID.
func (c *Controller) GetAlert(ctx echo.Context) error {
	alert, err := c.alertRepo.GetAlert(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
		}
		return c.HandleError(ctx, err, "Failed to get alert", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, alert)
}

// AcknowledgeAlert marks an alert acknowledged and halts its escalation.
func (c *Controller) AcknowledgeAlert(ctx echo.Context) error {
	var body struct {
		By string `json:"by"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	alert, err := c.engine.Acknowledge(ctx.Request().Context(), ctx.Param("id"), body.By, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
		}
		return c.HandleError(ctx, err, "Failed to acknowledge alert", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, alert)
}

// ResolveAlert closes an alert with optional feedback.
func (c *Controller) ResolveAlert(ctx echo.Context) error {
	var body struct {
		By       string                  `json:"by"`
		Feedback *entities.AlertFeedback `json:"feedback,omitempty"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	alert, err := c.engine.Resolve(ctx.Request().Context(), ctx.Param("id"), body.By, body.Feedback, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
		}
		return c.HandleError(ctx, err, "Failed to resolve alert", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, alert)
}

// GetAnalytics summarizes alert activity over a timeframe query parameter
// such as "24h" or "7d". Defaults to the last 24 hours.
func (c *Controller) GetAnalytics(ctx echo.Context) error {
	window := 24 * time.Hour
	if tf := ctx.QueryParam("timeframe"); tf != "" {
		d, err := parseTimeframe(tf)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid timeframe"})
		}
		window = d
	}

	now := time.Now()
	summary, err := c.engine.Analytics(ctx.Request().Context(), now.Add(-window), now)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to compute analytics", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, summary)
}

// parseTimeframe accepts Go duration strings plus a "d" suffix for days.
func parseTimeframe(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		days, err := strconv.Atoi(s[:len(s)-1])
		if err != nil || days < 1 {
			return 0, errors.New("invalid day count")
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
