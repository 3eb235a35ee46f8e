package service

import (
	"context"

	"github.com/goburrow/cache"
	"github.com/google/uuid"
	"github.com/mimiro-io/entity-variable-datalayer/internal/conf"
	"github.com/mimiro-io/entity-variable-datalayer/internal/entity"
	"github.com/mimiro-io/entity-variable-datalayer/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type InstanceService struct {
	instances *store.InstanceStore
	entities  *EntityService
	cache     cache.Cache
	logger    *zap.SugaredLogger
}

func NewInstanceService(lc fx.Lifecycle, instances *store.InstanceStore, entities *EntityService, env *conf.Env, logger *zap.SugaredLogger) *InstanceService {
	s := &InstanceService{
		instances: instances,
		entities:  entities,
		cache:     newCache(env),
		logger:    logger.Named("instances"),
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.cache.Close()
		},
	})
	return s
}

// CreateInstance registers an instance of an existing entity.
func (s *InstanceService) CreateInstance(ctx context.Context, i *entity.Instance) (*entity.Instance, error) {
	e, err := s.entities.GetEntity(ctx, i.EntityID)
	if err != nil {
		return nil, err
	}
	if err := s.instances.Insert(ctx, i); err != nil {
		return nil, err
	}
	s.cache.Put(i.ID, i)
	s.logger.Debugw("Created instance", "entity", e.Name, "uuid", i.CorrelationID)
	return i, nil
}

func (s *InstanceService) GetInstance(ctx context.Context, id uuid.UUID) (*entity.Instance, error) {
	if cached, ok := s.cache.GetIfPresent(id); ok {
		return cached.(*entity.Instance), nil
	}
	i, err := s.instances.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Put(id, i)
	return i, nil
}

func (s *InstanceService) GetByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*entity.Instance, error) {
	return s.instances.FindByCorrelationID(ctx, correlationID)
}

// ListInstances returns the instances of an entity, newest first.
func (s *InstanceService) ListInstances(ctx context.Context, entityID uuid.UUID) ([]*entity.Instance, error) {
	if _, err := s.entities.GetEntity(ctx, entityID); err != nil {
		return nil, err
	}
	return s.instances.FindByEntity(ctx, entityID)
}
