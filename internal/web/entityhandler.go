package web

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mimiro-io/entity-variable-datalayer/internal/entity"
	"github.com/mimiro-io/entity-variable-datalayer/internal/service"
)

type entityHandler struct {
	logger    *zap.SugaredLogger
	entities  *service.EntityService
	instances *service.InstanceService
}

type entityRequest struct {
	Name             string                 `json:"name"`
	DisplayName      string                 `json:"displayName"`
	Description      string                 `json:"description"`
	SchemaDefinition map[string]interface{} `json:"schemaDefinition"`
	Metadata         map[string]interface{} `json:"metadata"`
}

type instanceRequest struct {
	CorrelationID *uuid.UUID             `json:"uuid"`
	Status        string                 `json:"status"`
	RegisteredAt  *time.Time             `json:"registeredAt"`
	ExpiresAt     *time.Time             `json:"expiresAt"`
	Context       map[string]interface{} `json:"context"`
	Metadata      map[string]interface{} `json:"metadata"`
}

func NewEntityHandler(lc fx.Lifecycle, e *echo.Echo, logger *zap.SugaredLogger, entities *service.EntityService, instances *service.InstanceService) {
	h := &entityHandler{
		logger:    logger.Named("web"),
		entities:  entities,
		instances: instances,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			e.POST("/entities", h.createEntity)
			e.GET("/entities", h.listEntities)
			e.GET("/entities/by-name/:name", h.getEntityByName)
			e.GET("/entities/:id", h.getEntity)
			e.GET("/entities/:id/partitions", h.listPartitions)
			e.POST("/entities/:id/instances", h.createInstance)
			e.GET("/entities/:id/instances", h.listInstances)
			e.GET("/instances/:id", h.getInstance)
			return nil
		},
	})
}

func (h *entityHandler) createEntity(c echo.Context) error {
	req := &entityRequest{}
	if err := c.Bind(req); err != nil {
		return err
	}
	en, err := entity.NewEntity(req.Name, req.DisplayName,
		entity.WithDescription(req.Description),
		entity.WithSchemaDefinition(req.SchemaDefinition),
		entity.WithEntityMetadata(req.Metadata))
	if err != nil {
		return badRequest(err)
	}
	created, err := h.entities.CreateEntity(c.Request().Context(), en)
	if err != nil {
		return toHTTPError(h.logger, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *entityHandler) listEntities(c echo.Context) error {
	entities, err := h.entities.ListEntities(c.Request().Context())
	if err != nil {
		return toHTTPError(h.logger, err)
	}
	return c.JSON(http.StatusOK, entities)
}

func (h *entityHandler) getEntity(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	en, err := h.entities.GetEntity(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.logger, err)
	}
	return c.JSON(http.StatusOK, en)
}

func (h *entityHandler) getEntityByName(c echo.Context) error {
	name, _ := url.PathUnescape(c.Param("name"))
	en, err := h.entities.GetEntityByName(c.Request().Context(), name)
	if err != nil {
		return toHTTPError(h.logger, err)
	}
	return c.JSON(http.StatusOK, en)
}

func (h *entityHandler) listPartitions(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	partitions, err := h.entities.Partitions(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.logger, err)
	}
	return c.JSON(http.StatusOK, partitions)
}

func (h *entityHandler) createInstance(c echo.Context) error {
	entityID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	req := &instanceRequest{}
	if err := c.Bind(req); err != nil {
		return err
	}

	var opts []entity.InstanceOption
	if req.Status != "" {
		status, err := entity.ParseStatus(req.Status)
		if err != nil {
			return badRequest(err)
		}
		opts = append(opts, entity.WithStatus(status))
	}
	if req.RegisteredAt != nil {
		opts = append(opts, entity.RegisteredAt(*req.RegisteredAt))
	}
	if req.ExpiresAt != nil {
		opts = append(opts, entity.ExpiresAt(*req.ExpiresAt))
	}
	opts = append(opts, entity.WithContext(req.Context), entity.WithInstanceMetadata(req.Metadata))

	correlationID := uuid.Nil
	if req.CorrelationID != nil {
		correlationID = *req.CorrelationID
	}
	instance, err := entity.NewInstance(entityID, correlationID, opts...)
	if err != nil {
		return badRequest(err)
	}
	created, err := h.instances.CreateInstance(c.Request().Context(), instance)
	if err != nil {
		return toHTTPError(h.logger, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *entityHandler) listInstances(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	instances, err := h.instances.ListInstances(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.logger, err)
	}
	return c.JSON(http.StatusOK, instances)
}

func (h *entityHandler) getInstance(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	instance, err := h.instances.GetInstance(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.logger, err)
	}
	return c.JSON(http.StatusOK, instance)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, badRequest(errors.Wrapf(err, "invalid %s", name))
	}
	return id, nil
}
