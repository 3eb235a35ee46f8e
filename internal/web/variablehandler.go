package web

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mimiro-io/entity-variable-datalayer/internal/service"
	"github.com/mimiro-io/entity-variable-datalayer/internal/store"
	"github.com/mimiro-io/entity-variable-datalayer/internal/variable"
)

type variableHandler struct {
	logger    *zap.SugaredLogger
	variables *service.VariableService
}

func NewVariableHandler(lc fx.Lifecycle, e *echo.Echo, logger *zap.SugaredLogger, variables *service.VariableService) {
	h := &variableHandler{
		logger:    logger.Named("web"),
		variables: variables,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			e.POST("/instances/:id/variables", h.saveVariables)
			e.GET("/instances/:id/variables", h.getVariables)
			e.GET("/instances/:id/variables/:name", h.getVariable)
			return nil
		},
	})
}

// saveVariables streams the posted array into batch writes. Variables of
// earlier batches stay saved when a later batch fails.
func (h *variableHandler) saveVariables(c echo.Context) error {
	instanceID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	owner, err := h.variables.Owner(ctx, instanceID)
	if err != nil {
		return toHTTPError(h.logger, err)
	}

	batchSize := store.ChunkSize
	if requested := c.QueryParam("batchSize"); requested != "" {
		batchSize, err = strconv.Atoi(requested)
		if err != nil || batchSize <= 0 {
			return badRequest(strconv.ErrSyntax)
		}
	}

	saved := make([]variable.Variable, 0)
	var saveErr error
	err = variable.ParseStream(c.Request().Body, owner, func(variables []variable.Variable) error {
		result, err := h.variables.SaveVariables(ctx, instanceID, variables)
		saved = append(saved, result...)
		saveErr = err
		return err
	}, batchSize)
	if saveErr != nil {
		h.logger.Warnw("Saved part of a variable batch", "instance", instanceID, "saved", len(saved), "error", saveErr)
		return toHTTPError(h.logger, saveErr)
	}
	if err != nil {
		return badRequest(err)
	}
	return c.JSON(http.StatusCreated, saved)
}

func (h *variableHandler) getVariables(c echo.Context) error {
	instanceID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if c.QueryParam("format") == "map" {
		values, err := h.variables.GetVariablesAsMap(c.Request().Context(), instanceID)
		if err != nil {
			return toHTTPError(h.logger, err)
		}
		return c.JSON(http.StatusOK, values)
	}
	variables, err := h.variables.GetVariables(c.Request().Context(), instanceID)
	if err != nil {
		return toHTTPError(h.logger, err)
	}
	return c.JSON(http.StatusOK, variables)
}

func (h *variableHandler) getVariable(c echo.Context) error {
	instanceID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	name, _ := url.PathUnescape(c.Param("name"))
	v, ok, err := h.variables.GetVariable(c.Request().Context(), instanceID, name)
	if err != nil {
		return toHTTPError(h.logger, err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "variable "+name+" not found")
	}
	return c.JSON(http.StatusOK, v)
}
