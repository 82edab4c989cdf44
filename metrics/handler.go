package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an Echo handler serving the default Prometheus registry.
func Handler() echo.HandlerFunc {
	h := promhttp.Handler()
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Register mounts the metrics handler at path (default "/metrics").
func Register(e *echo.Echo, path string) {
	if path == "" {
		path = "/metrics"
	}
	e.GET(path, Handler())
}
