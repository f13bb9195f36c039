package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/signalwatch/trendalert-go/internal/trend"
)

// IngestTrend accepts a trend signal from an upstream detector and publishes
// it onto the trend bus. Evaluation happens asynchronously.
func (c *Controller) IngestTrend(ctx echo.Context) error {
	if c.bus == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Trend ingestion not available"})
	}

	var data trend.Data
	if err := ctx.Bind(&data); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid trend data"})
	}
	if data.Symbol == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Symbol is required"})
	}
	if data.Strength < 0 || data.Strength > 1 || data.Confidence < 0 || data.Confidence > 1 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Strength and confidence must be within [0,1]"})
	}

	c.bus.Publish(&data)
	return ctx.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}
