package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer builds the echo instance with the shared middleware and the
// health and metrics endpoints. Route groups register themselves on it.
func NewServer(s store.KeyStore, gatherer prometheus.Gatherer, logger log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(RequestID())
	e.Use(RequestLogger(logger))

	e.GET("/healthz", func(c echo.Context) error {
		if err := s.Ping(c.Request().Context()); err != nil {
			logger.Warn(c.Request().Context(), "Health check failed", map[string]interface{}{"error": err.Error()})
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return e
}
