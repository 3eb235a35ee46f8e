package web

import (
	"fmt"
	"strconv"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Middleware struct {
	logger *zap.SugaredLogger
	statsd statsd.ClientInterface
}

func NewMiddleware(logger *zap.SugaredLogger, statsd statsd.ClientInterface) *Middleware {
	return &Middleware{
		logger: logger.Named("http"),
		statsd: statsd,
	}
}

func (m *Middleware) recoverer() echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			m.logger.Errorw("Recovered from panic", "path", c.Path(), "error", err, "stack", string(stack))
			return err
		},
	})
}

func (m *Middleware) logRequests() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/health" {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			res := c.Response()
			msg := fmt.Sprintf("%d - %s %s (time: %s)", res.Status, req.Method, req.URL.RequestURI(), time.Since(start))
			fields := []interface{}{
				"method", req.Method,
				"status", res.Status,
				"route", c.Path(),
				"bytes", res.Size,
			}
			if err != nil {
				fields = append(fields, "error", err)
			}
			if res.Status >= 500 {
				m.logger.Errorw(msg, fields...)
			} else {
				m.logger.Infow(msg, fields...)
			}
			// already written by c.Error
			return nil
		}
	}
}

func (m *Middleware) timeRequests() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			tags := []string{
				"method:" + c.Request().Method,
				"route:" + c.Path(),
				"status:" + strconv.Itoa(c.Response().Status),
			}
			_ = m.statsd.Timing("http.request.time", time.Since(start), tags, 1)
			_ = m.statsd.Incr("http.request.count", tags, 1)
			return err
		}
	}
}
