package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/mimiro-io/entity-variable-datalayer/internal/entity"
	"github.com/mimiro-io/entity-variable-datalayer/internal/variable"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const instanceColumns = `id, entity_id, uuid, status, registered_at, expires_at, context, metadata, created_at, updated_at, created_by`

type InstanceStore struct {
	db     *Database
	logger *zap.SugaredLogger
}

func NewInstanceStore(db *Database, logger *zap.SugaredLogger) *InstanceStore {
	return &InstanceStore{db: db, logger: logger.Named("instance-store")}
}

// Insert writes a new instance. A taken correlation id is ErrConflict.
func (s *InstanceStore) Insert(ctx context.Context, i *entity.Instance) error {
	ctxDoc, err := variable.MarshalDocument(i.Context)
	if err != nil {
		return err
	}
	metadata, err := variable.MarshalDocument(i.Metadata)
	if err != nil {
		return err
	}

	conn, err := s.db.DB.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx, s.db.Rebind(`INSERT INTO entity_instances (`+instanceColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		i.ID, i.EntityID, i.CorrelationID, string(i.Status), i.RegisteredAt, nullTime(i.ExpiresAt),
		ctxDoc, metadata, i.CreatedAt, i.UpdatedAt, i.CreatedBy)
	if err != nil {
		return errors.Wrapf(classify(err), "inserting instance %s", i.CorrelationID)
	}
	return nil
}

func (s *InstanceStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Instance, error) {
	return s.findOne(ctx, `WHERE id = ?`, id)
}

// FindByCorrelationID looks an instance up by its caller facing uuid.
func (s *InstanceStore) FindByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*entity.Instance, error) {
	return s.findOne(ctx, `WHERE uuid = ?`, correlationID)
}

// FindByEntity lists the instances of an entity, newest registration first.
func (s *InstanceStore) FindByEntity(ctx context.Context, entityID uuid.UUID) ([]*entity.Instance, error) {
	conn, err := s.db.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, s.db.Rebind(`SELECT `+instanceColumns+` FROM entity_instances
WHERE entity_id = ? ORDER BY registered_at DESC, id`), entityID)
	if err != nil {
		return nil, errors.Wrap(err, "listing instances")
	}
	defer rows.Close()

	instances := make([]*entity.Instance, 0)
	for rows.Next() {
		i, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, i)
	}
	return instances, rows.Err()
}

func (s *InstanceStore) findOne(ctx context.Context, where string, arg interface{}) (*entity.Instance, error) {
	conn, err := s.db.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	row := conn.QueryRowContext(ctx, s.db.Rebind(`SELECT `+instanceColumns+` FROM entity_instances `+where), arg)
	i, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "instance %v", arg)
	}
	return i, err
}

func scanInstance(row scanner) (*entity.Instance, error) {
	var (
		i         entity.Instance
		status    string
		expiresAt sql.NullTime
		ctxDoc    string
		metadata  string
	)
	err := row.Scan(&i.ID, &i.EntityID, &i.CorrelationID, &status, &i.RegisteredAt, &expiresAt,
		&ctxDoc, &metadata, &i.CreatedAt, &i.UpdatedAt, &i.CreatedBy)
	if err != nil {
		return nil, err
	}
	if i.Status, err = entity.ParseStatus(status); err != nil {
		return nil, err
	}
	i.RegisteredAt = i.RegisteredAt.UTC()
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		i.ExpiresAt = &t
	}
	if i.Context, err = variable.UnmarshalDocument(ctxDoc); err != nil {
		return nil, err
	}
	if i.Metadata, err = variable.UnmarshalDocument(metadata); err != nil {
		return nil, err
	}
	return &i, nil
}
