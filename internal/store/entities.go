package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mimiro-io/entity-variable-datalayer/internal/entity"
	"github.com/mimiro-io/entity-variable-datalayer/internal/variable"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const entityColumns = `id, name, display_name, description, schema_definition, metadata, is_active, created_at, updated_at, created_by`

type EntityStore struct {
	db     *Database
	logger *zap.SugaredLogger
}

func NewEntityStore(db *Database, logger *zap.SugaredLogger) *EntityStore {
	return &EntityStore{db: db, logger: logger.Named("entity-store")}
}

// Insert writes a new entity through q, which may be a transaction.
// A taken name is ErrConflict.
func (s *EntityStore) Insert(ctx context.Context, q Querier, e *entity.Entity) error {
	schemaDef, err := variable.MarshalDocument(e.SchemaDefinition)
	if err != nil {
		return err
	}
	metadata, err := variable.MarshalDocument(e.Metadata)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, s.db.Rebind(`INSERT INTO entities (`+entityColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.Name, e.DisplayName, nullString(e.Description), schemaDef, metadata,
		e.IsActive, e.CreatedAt, e.UpdatedAt, e.CreatedBy)
	if err != nil {
		return errors.Wrapf(classify(err), "inserting entity %s", e.Name)
	}
	return nil
}

func (s *EntityStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Entity, error) {
	return s.findOne(ctx, `WHERE id = ?`, id)
}

func (s *EntityStore) FindByName(ctx context.Context, name string) (*entity.Entity, error) {
	return s.findOne(ctx, `WHERE name = ?`, name)
}

// FindAll lists every entity ordered by name.
func (s *EntityStore) FindAll(ctx context.Context) ([]*entity.Entity, error) {
	conn, err := s.db.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `SELECT `+entityColumns+` FROM entities ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "listing entities")
	}
	defer rows.Close()

	entities := make([]*entity.Entity, 0)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *EntityStore) findOne(ctx context.Context, where string, arg interface{}) (*entity.Entity, error) {
	conn, err := s.db.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	row := conn.QueryRowContext(ctx, s.db.Rebind(`SELECT `+entityColumns+` FROM entities `+where), arg)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "entity %v", arg)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row scanner) (*entity.Entity, error) {
	var (
		e           entity.Entity
		description sql.NullString
		schemaDef   string
		metadata    string
	)
	err := row.Scan(&e.ID, &e.Name, &e.DisplayName, &description, &schemaDef, &metadata,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt, &e.CreatedBy)
	if err != nil {
		return nil, err
	}
	e.Description = description.String
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	if e.SchemaDefinition, err = variable.UnmarshalDocument(schemaDef); err != nil {
		return nil, err
	}
	if e.Metadata, err = variable.UnmarshalDocument(metadata); err != nil {
		return nil, err
	}
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
