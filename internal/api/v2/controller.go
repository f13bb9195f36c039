// Package api implements the v2 management HTTP API: rule CRUD, alert
// lifecycle operations, threshold management, analytics, and the websocket
// alert stream.
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalwatch/trendalert-go/internal/alerting"
	"github.com/signalwatch/trendalert-go/internal/datastore/repository"
	"github.com/signalwatch/trendalert-go/internal/logger"
	"github.com/signalwatch/trendalert-go/internal/observability"
)

// QueryValueTrue is the accepted truthy query parameter value.
const QueryValueTrue = "true"

// Options bundles the controller's collaborators.
type Options struct {
	Engine     *alerting.Engine
	Bus        *alerting.TrendBus
	Rules      repository.AlertRuleRepository
	Alerts     repository.TrendAlertRepository
	Thresholds repository.ThresholdRepository
	Batches    repository.BatchRepository
	Metrics    *observability.Metrics
	Log        logger.Logger
}

// Controller handles all v2 API endpoints.
type Controller struct {
	Group *echo.Group

	engine        *alerting.Engine
	bus           *alerting.TrendBus
	ruleRepo      repository.AlertRuleRepository
	alertRepo     repository.TrendAlertRepository
	thresholdRepo repository.ThresholdRepository
	batchRepo     repository.BatchRepository
	metrics       *observability.Metrics
	log           logger.Logger
}

// New registers the v2 API routes on the given echo instance.
func New(e *echo.Echo, opts Options) *Controller {
	c := &Controller{
		Group:         e.Group("/api/v2"),
		engine:        opts.Engine,
		bus:           opts.Bus,
		ruleRepo:      opts.Rules,
		alertRepo:     opts.Alerts,
		thresholdRepo: opts.Thresholds,
		batchRepo:     opts.Batches,
		metrics:       opts.Metrics,
		log:           opts.Log,
	}

	c.Group.Use(middleware.Recover())

	c.initRuleRoutes()
	c.initAlertRoutes()
	c.initThresholdRoutes()
	c.initStreamRoutes()
	c.Group.POST("/trends", c.IngestTrend)

	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
			opts.Metrics.Registry(), promhttp.HandlerOpts{})))
	}
	e.GET("/healthz", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return c
}

// HandleError logs an error and returns a consistent JSON error response.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	c.log.Error(message,
		logger.String("path", ctx.Path()),
		logger.Error(err))
	return ctx.JSON(code, map[string]string{"error": message})
}

// parseUintParam parses a numeric path parameter.
func parseUintParam(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
