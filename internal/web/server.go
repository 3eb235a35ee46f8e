package web

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mimiro-io/entity-variable-datalayer/internal/conf"
)

func NewWebServer(env *conf.Env) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = env.Env == "test"
	return e
}

// Register attaches the middleware chain and the health route, and binds the
// server to the fx lifecycle.
func Register(lc fx.Lifecycle, env *conf.Env, e *echo.Echo, mw *Middleware, logger *zap.SugaredLogger) {
	log := logger.Named("web")
	e.Use(mw.recoverer(), mw.timeRequests(), mw.logRequests())
	e.GET("/health", health)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infof("Starting Http server on :%s", env.Port)
			go func() {
				if err := e.Start(":" + env.Port); err != nil && err != http.ErrServerClosed {
					log.Errorf("Http server stopped: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Http server")
			return e.Shutdown(ctx)
		},
	})
}

func health(c echo.Context) error {
	return c.String(http.StatusOK, "UP")
}
