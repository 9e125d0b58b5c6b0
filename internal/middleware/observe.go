package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cloud-asset-api/internal/metrics"
)

// RequestLogger logs one line per request.  Bodies and the Authorization
// header are never logged.
func RequestLogger(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := []interface{}{
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"latency", time.Since(start),
				"remote_ip", c.RealIP(),
			}
			if s := Subject(c); s != "" {
				fields = append(fields, "subject", s)
			}
			if err != nil {
				fields = append(fields, "error", err)
			}

			switch status := c.Response().Status; {
			case status >= 500:
				log.Errorw("request", fields...)
			case status >= 400:
				log.Warnw("request", fields...)
			default:
				log.Infow("request", fields...)
			}
			return nil
		}
	}
}

// Metrics records request counts and latency, labelled by route pattern so
// asset ids do not blow up cardinality.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.ObserveHTTP(c.Request().Method, path, c.Response().Status, time.Since(start))
			return nil
		}
	}
}
