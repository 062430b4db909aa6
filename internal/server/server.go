// Package server exposes the dashboard over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"macrodash/internal/catalog"
	"macrodash/internal/dashboard"
	"macrodash/internal/export"
	"macrodash/internal/model"
)

type Dashboard interface {
	State(ctx context.Context) (dashboard.State, error)
	Refresh(ctx context.Context) (dashboard.State, error)
	Indicator(ctx context.Context, id string) (model.Indicator, bool, error)
}

type Options struct {
	Logger      *zap.Logger
	OTelEnabled bool
	ServiceName string
	// Now stamps CSV download names. Defaults to time.Now.
	Now func() time.Time
}

type handler struct {
	dashboard Dashboard
	catalog   catalog.Catalog
	logger    *zap.Logger
	now       func() time.Time
}

func New(d Dashboard, cat catalog.Catalog, opts Options) *echo.Echo {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	h := &handler{dashboard: d, catalog: cat, logger: logger, now: now}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if opts.OTelEnabled {
		e.Use(otelecho.Middleware(opts.ServiceName))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/healthz" || path == "/metrics"
		},
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Info("HTTP request completed", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/catalog", h.getCatalog)
	api.GET("/indicators", h.getIndicators)
	api.POST("/refresh", h.refresh)
	api.GET("/indicators/:id/csv", h.downloadCSV)

	return e
}

func (h *handler) getCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"indicators": h.catalog.Specs()})
}

func (h *handler) getIndicators(c echo.Context) error {
	state, err := h.dashboard.State(c.Request().Context())
	if err != nil {
		h.logger.Error("read dashboard state", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read dashboard state")
	}
	return c.JSON(http.StatusOK, state)
}

// refresh answers 502 when the fetch failed; the body still carries the
// state, which keeps the previous indicators and the error message.
func (h *handler) refresh(c echo.Context) error {
	state, err := h.dashboard.Refresh(c.Request().Context())
	if err != nil {
		if state.Error == nil {
			h.logger.Error("refresh dashboard", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to refresh dashboard")
		}
		return c.JSON(http.StatusBadGateway, state)
	}
	return c.JSON(http.StatusOK, state)
}

func (h *handler) downloadCSV(c echo.Context) error {
	id := c.Param("id")
	indicator, found, err := h.dashboard.Indicator(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("read indicator", zap.String("id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read indicator")
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "indicator not found")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+export.FileName(indicator, h.now())+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(export.CSV(indicator)))
}
