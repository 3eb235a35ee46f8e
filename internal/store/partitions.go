package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mimiro-io/entity-variable-datalayer/internal/conf"
	"github.com/mimiro-io/entity-variable-datalayer/internal/schema"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Partition is one registered storage partition. Entity partitions have no
// range; monthly partitions cover [RangeStart, RangeEnd).
type Partition struct {
	Name       string     `json:"name"`
	Parent     string     `json:"parent"`
	EntityID   uuid.UUID  `json:"entityId"`
	EntityName string     `json:"entityName"`
	RangeStart *time.Time `json:"rangeStart,omitempty"`
	RangeEnd   *time.Time `json:"rangeEnd,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// PartitionProvisioner makes sure an entity's variables have somewhere to go
// before the first write. On postgres it creates the list partition for the
// entity, range partitions for the current month and HorizonMonths ahead, and
// a default partition. Other dialects only keep the registry.
type PartitionProvisioner struct {
	db            *Database
	horizonMonths int
	logger        *zap.SugaredLogger
	clock         func() time.Time
}

func NewPartitionProvisioner(db *Database, env *conf.Env, logger *zap.SugaredLogger) *PartitionProvisioner {
	horizon := env.Partitions.HorizonMonths
	if horizon < 0 {
		horizon = 0
	}
	return &PartitionProvisioner{
		db:            db,
		horizonMonths: horizon,
		logger:        logger.Named("partitions"),
		clock:         now,
	}
}

// EnsurePartition provisions on a connection of its own. Running it again is a no-op.
func (p *PartitionProvisioner) EnsurePartition(ctx context.Context, entityID uuid.UUID, entityName string) error {
	conn, err := p.db.DB.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return p.EnsurePartitionWith(ctx, conn, entityID, entityName)
}

// EnsurePartitionWith provisions through q, so entity creation can do it in
// its own transaction.
func (p *PartitionProvisioner) EnsurePartitionWith(ctx context.Context, q Querier, entityID uuid.UUID, entityName string) error {
	parent := schema.EntityPartition(entityID)
	if p.db.Dialect.Partitioned() {
		stmt, err := schema.NewPartitionBuilder(parent, schema.VariablesTable).
			ForValuesIn(entityID.String()).
			PartitionByRange("registered_at").
			Build()
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "creating partition %s", parent)
		}
	}
	if err := p.record(ctx, q, Partition{
		Name:       parent,
		Parent:     schema.VariablesTable,
		EntityID:   entityID,
		EntityName: entityName,
	}); err != nil {
		return err
	}
	return p.extend(ctx, q, entityID, entityName)
}

// Refresh moves the monthly horizon forward for every registered entity. A
// failing entity is logged and skipped.
func (p *PartitionProvisioner) Refresh(ctx context.Context) error {
	entities, err := p.registered(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for _, e := range entities {
		if err := p.extendOwn(ctx, e.EntityID, e.EntityName); err != nil {
			failed++
			p.logger.Warnw("Unable to extend partitions", "entity", e.EntityName, "error", err)
		}
	}
	p.logger.Infof("Refreshed partitions for %d entities", len(entities)-failed)
	if failed > 0 {
		return errors.Errorf("%d of %d entities could not be refreshed", failed, len(entities))
	}
	return nil
}

// Partitions lists the registered partitions of an entity by name.
func (p *PartitionProvisioner) Partitions(ctx context.Context, entityID uuid.UUID) ([]Partition, error) {
	conn, err := p.db.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, p.db.Rebind(`SELECT partition_name, parent_name, entity_id, entity_name, range_start, range_end, created_at
FROM variable_partitions WHERE entity_id = ? ORDER BY partition_name`), entityID)
	if err != nil {
		return nil, errors.Wrap(err, "listing partitions")
	}
	defer rows.Close()
	return scanPartitions(rows)
}

func (p *PartitionProvisioner) registered(ctx context.Context) ([]Partition, error) {
	conn, err := p.db.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, p.db.Rebind(`SELECT partition_name, parent_name, entity_id, entity_name, range_start, range_end, created_at
FROM variable_partitions WHERE parent_name = ? ORDER BY entity_name`), schema.VariablesTable)
	if err != nil {
		return nil, errors.Wrap(err, "listing entity partitions")
	}
	defer rows.Close()
	return scanPartitions(rows)
}

func (p *PartitionProvisioner) extendOwn(ctx context.Context, entityID uuid.UUID, entityName string) error {
	conn, err := p.db.DB.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return p.extend(ctx, conn, entityID, entityName)
}

// extend creates the monthly partitions from the current month through the
// horizon, then the default partition.
func (p *PartitionProvisioner) extend(ctx context.Context, q Querier, entityID uuid.UUID, entityName string) error {
	parent := schema.EntityPartition(entityID)
	current, _ := schema.MonthBounds(p.clock())
	for m := 0; m <= p.horizonMonths; m++ {
		from := current.AddDate(0, m, 0)
		to := from.AddDate(0, 1, 0)
		name := schema.MonthPartition(parent, from)
		if p.db.Dialect.Partitioned() {
			stmt, err := schema.NewPartitionBuilder(name, parent).ForValuesFromTo(from, to).Build()
			if err != nil {
				return err
			}
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, "creating partition %s", name)
			}
		}
		if err := p.record(ctx, q, Partition{
			Name:       name,
			Parent:     parent,
			EntityID:   entityID,
			EntityName: entityName,
			RangeStart: &from,
			RangeEnd:   &to,
		}); err != nil {
			return err
		}
	}

	name := schema.DefaultPartition(parent)
	if p.db.Dialect.Partitioned() {
		stmt, err := schema.NewPartitionBuilder(name, parent).AsDefault().Build()
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "creating partition %s", name)
		}
	}
	return p.record(ctx, q, Partition{
		Name:       name,
		Parent:     parent,
		EntityID:   entityID,
		EntityName: entityName,
	})
}

func (p *PartitionProvisioner) record(ctx context.Context, q Querier, partition Partition) error {
	_, err := q.ExecContext(ctx, p.db.Rebind(`INSERT INTO variable_partitions
(partition_name, parent_name, entity_id, entity_name, range_start, range_end, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (partition_name) DO NOTHING`),
		partition.Name, partition.Parent, partition.EntityID, partition.EntityName,
		nullTime(partition.RangeStart), nullTime(partition.RangeEnd), p.clock())
	if err != nil {
		return errors.Wrapf(err, "registering partition %s", partition.Name)
	}
	return nil
}

func scanPartitions(rows *sql.Rows) ([]Partition, error) {
	partitions := make([]Partition, 0)
	for rows.Next() {
		var (
			partition  Partition
			start, end sql.NullTime
		)
		if err := rows.Scan(&partition.Name, &partition.Parent, &partition.EntityID, &partition.EntityName,
			&start, &end, &partition.CreatedAt); err != nil {
			return nil, err
		}
		if start.Valid {
			t := start.Time.UTC()
			partition.RangeStart = &t
		}
		if end.Valid {
			t := end.Time.UTC()
			partition.RangeEnd = &t
		}
		partition.CreatedAt = partition.CreatedAt.UTC()
		partitions = append(partitions, partition)
	}
	return partitions, rows.Err()
}
