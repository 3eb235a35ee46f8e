package web

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mimiro-io/entity-variable-datalayer/internal/store"
	"github.com/mimiro-io/entity-variable-datalayer/internal/variable"
)

func toHTTPError(logger *zap.SugaredLogger, err error) *echo.HTTPError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, variable.ErrUnsupportedType), errors.Is(err, variable.ErrInvalidValue):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	logger.Warnw("Request failed", "error", err)
	return echo.ErrInternalServerError
}

func badRequest(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
