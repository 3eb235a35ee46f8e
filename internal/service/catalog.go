package service

import (
	"context"
	"time"

	"github.com/mimiro-io/entity-variable-datalayer/internal/conf"
	"github.com/mimiro-io/entity-variable-datalayer/internal/entity"
	"github.com/mimiro-io/entity-variable-datalayer/internal/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CatalogSync creates the catalog entities that do not exist yet. Existing
// entities are never changed.
type CatalogSync struct {
	entities *EntityService
	logger   *zap.SugaredLogger
}

func NewCatalogSync(entities *EntityService, logger *zap.SugaredLogger) *CatalogSync {
	return &CatalogSync{
		entities: entities,
		logger:   logger.Named("catalog"),
	}
}

// RegisterCatalogSync applies every catalog the manager loads.
func RegisterCatalogSync(manager *conf.ConfigurationManager, sync *CatalogSync) {
	manager.Subscribe(func(catalog *conf.Catalog) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := sync.Apply(ctx, catalog); err != nil {
			sync.logger.Warnf("Catalog sync incomplete: %v", err)
		}
	})
}

// Apply returns the number of entities created.
func (s *CatalogSync) Apply(ctx context.Context, catalog *conf.Catalog) (int, error) {
	created := 0
	var failed []string
	for _, ce := range catalog.Entities {
		_, err := s.entities.GetEntityByName(ctx, ce.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			failed = append(failed, ce.Name)
			s.logger.Warnw("Unable to look up catalog entity", "entity", ce.Name, "error", err)
			continue
		}

		e, err := entity.NewEntity(ce.Name, ce.DisplayName,
			entity.WithDescription(ce.Description),
			entity.WithSchemaDefinition(ce.SchemaDefinition),
			entity.WithEntityMetadata(ce.Metadata))
		if err != nil {
			failed = append(failed, ce.Name)
			s.logger.Warnw("Invalid catalog entity", "entity", ce.Name, "error", err)
			continue
		}
		if _, err := s.entities.CreateEntity(ctx, e); err != nil {
			if errors.Is(err, store.ErrConflict) {
				// created concurrently
				continue
			}
			failed = append(failed, ce.Name)
			s.logger.Warnw("Unable to create catalog entity", "entity", ce.Name, "error", err)
			continue
		}
		created++
	}
	if len(failed) > 0 {
		return created, errors.Errorf("failed catalog entities: %v", failed)
	}
	if created > 0 {
		s.logger.Infof("Created %d entities from catalog %s", created, catalog.Id)
	}
	return created, nil
}
