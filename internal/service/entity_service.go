package service

import (
	"context"
	"time"

	"github.com/goburrow/cache"
	"github.com/google/uuid"
	"github.com/mimiro-io/entity-variable-datalayer/internal/conf"
	"github.com/mimiro-io/entity-variable-datalayer/internal/entity"
	"github.com/mimiro-io/entity-variable-datalayer/internal/store"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// EntityService owns entity creation. An entity and its partitions are either
// both created or neither is.
type EntityService struct {
	db          *store.Database
	entities    *store.EntityStore
	provisioner *store.PartitionProvisioner
	cache       cache.Cache
	logger      *zap.SugaredLogger
}

func NewEntityService(lc fx.Lifecycle, db *store.Database, entities *store.EntityStore, provisioner *store.PartitionProvisioner, env *conf.Env, logger *zap.SugaredLogger) *EntityService {
	s := &EntityService{
		db:          db,
		entities:    entities,
		provisioner: provisioner,
		cache:       newCache(env),
		logger:      logger.Named("entities"),
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.cache.Close()
		},
	})
	return s
}

func newCache(env *conf.Env) cache.Cache {
	size := env.CacheSize
	if size <= 0 {
		size = 10000
	}
	return cache.New(
		cache.WithMaximumSize(size),
		cache.WithExpireAfterWrite(10*time.Minute),
	)
}

// CreateEntity inserts the entity and provisions its variable partitions in
// one transaction.
func (s *EntityService) CreateEntity(ctx context.Context, e *entity.Entity) (*entity.Entity, error) {
	tx, err := s.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "starting entity transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.entities.Insert(ctx, tx, e); err != nil {
		return nil, err
	}
	if err := s.provisioner.EnsurePartitionWith(ctx, tx, e.ID, e.Name); err != nil {
		return nil, errors.Wrapf(err, "provisioning entity %s", e.Name)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrapf(err, "committing entity %s", e.Name)
	}
	committed = true

	s.cache.Put(e.ID, e)
	s.logger.Infow("Created entity", "entity", e.Name, "id", e.ID)
	return e, nil
}

func (s *EntityService) GetEntity(ctx context.Context, id uuid.UUID) (*entity.Entity, error) {
	if cached, ok := s.cache.GetIfPresent(id); ok {
		return cached.(*entity.Entity), nil
	}
	e, err := s.entities.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Put(id, e)
	return e, nil
}

func (s *EntityService) GetEntityByName(ctx context.Context, name string) (*entity.Entity, error) {
	return s.entities.FindByName(ctx, name)
}

func (s *EntityService) ListEntities(ctx context.Context) ([]*entity.Entity, error) {
	return s.entities.FindAll(ctx)
}

// Partitions lists the registered storage partitions of an existing entity.
func (s *EntityService) Partitions(ctx context.Context, id uuid.UUID) ([]store.Partition, error) {
	if _, err := s.GetEntity(ctx, id); err != nil {
		return nil, err
	}
	return s.provisioner.Partitions(ctx, id)
}
