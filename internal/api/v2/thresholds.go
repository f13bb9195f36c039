package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/datastore/repository"
	"github.com/signalwatch/trendalert-go/internal/errors"
	"github.com/signalwatch/trendalert-go/internal/logger"
)

// initThresholdRoutes registers threshold and batch endpoints.
func (c *Controller) initThresholdRoutes() {
	thresholds := c.Group.Group("/thresholds")
	thresholds.GET("", c.ListThresholds)
	thresholds.POST("", c.SaveThreshold)
	thresholds.DELETE("/:id", c.DeleteThreshold)

	c.Group.GET("/batches", c.ListBatches)
}

// ListThresholds returns all threshold definitions.
func (c *Controller) ListThresholds(ctx echo.Context) error {
	defs, err := c.thresholdRepo.ListThresholds(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list thresholds", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"thresholds": defs,
		"count":      len(defs),
	})
}

// SaveThreshold creates or updates a threshold definition.
func (c *Controller) SaveThreshold(ctx echo.Context) error {
	var def entities.AlertThreshold
	if err := ctx.Bind(&def); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if def.Field == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Threshold field is required"})
	}

	if err := c.thresholdRepo.SaveThreshold(ctx.Request().Context(), &def); err != nil {
		return c.HandleError(ctx, err, "Failed to save threshold", http.StatusInternalServerError)
	}

	if c.engine != nil {
		if err := c.engine.RefreshThresholds(ctx.Request().Context()); err != nil {
			c.log.Warn("failed to refresh engine thresholds", logger.Error(err))
		}
	}

	return ctx.JSON(http.StatusOK, def)
}

// DeleteThreshold deletes a threshold definition.
func (c *Controller) DeleteThreshold(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid threshold ID"})
	}

	if err := c.thresholdRepo.DeleteThreshold(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Threshold not found"})
		}
		return c.HandleError(ctx, err, "Failed to delete threshold", http.StatusInternalServerError)
	}

	if c.engine != nil {
		if err := c.engine.RefreshThresholds(ctx.Request().Context()); err != nil {
			c.log.Warn("failed to refresh engine thresholds", logger.Error(err))
		}
	}

	return ctx.NoContent(http.StatusNoContent)
}

// ListBatches returns recent batch delivery records.
func (c *Controller) ListBatches(ctx echo.Context) error {
	limit := 50
	offset := 0
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		v, err := strconv.Atoi(limitParam)
		if err != nil || v < 1 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
		}
		limit = min(v, maxAlertLimit)
	}
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		v, err := strconv.Atoi(offsetParam)
		if err != nil || v < 0 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid offset"})
		}
		offset = v
	}

	batches, total, err := c.batchRepo.ListBatches(ctx.Request().Context(), limit, offset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list batches", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"batches": batches,
		"total":   total,
	})
}
