package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/google/uuid"
	"github.com/mimiro-io/entity-variable-datalayer/internal/variable"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ChunkSize is the most rows a single batch insert statement carries.
const ChunkSize = 1000

var selectColumns = `id, entity_id, entity_instance_id, variable_name, variable_type, ` +
	strings.Join(variable.ValueColumns(), ", ") +
	`, value_binary IS NULL, is_indexed, is_sensitive, is_encrypted, registered_at, created_at, updated_at, created_by`

type VariableStore struct {
	db     *Database
	statsd statsd.ClientInterface
	logger *zap.SugaredLogger
}

func NewVariableStore(db *Database, statsd statsd.ClientInterface, logger *zap.SugaredLogger) *VariableStore {
	return &VariableStore{
		db:     db,
		statsd: statsd,
		logger: logger.Named("variable-store"),
	}
}

// encoded is a variable with its value already mapped to a column.
type encoded struct {
	v      variable.Variable
	column string
	arg    interface{}
}

type typeGroup struct {
	typ    variable.Type
	column string
	rows   []encoded
}

// Save inserts a single variable and returns it with its assigned id.
func (s *VariableStore) Save(ctx context.Context, v variable.Variable) (variable.Variable, error) {
	row, err := prepare(v, now())
	if err != nil {
		return variable.Variable{}, err
	}

	ids, err := s.insert(ctx, row.v.Type(), row.column, []encoded{row})
	if err != nil {
		return variable.Variable{}, &PersistenceError{Op: "saving variable " + v.Name, Err: err}
	}
	return row.v.WithID(ids[0]), nil
}

// SaveBatch inserts variables grouped by type, one statement per chunk of at
// most ChunkSize rows. The result is ordered group by group, groups in the
// order their type first appears, rows in input order within a group. Chunks
// commit independently; on failure the already saved rows are returned with
// the error.
func (s *VariableStore) SaveBatch(ctx context.Context, variables []variable.Variable) ([]variable.Variable, error) {
	if len(variables) == 0 {
		return []variable.Variable{}, nil
	}
	groups, err := groupByType(variables, now())
	if err != nil {
		return nil, err
	}

	saved := make([]variable.Variable, 0, len(variables))
	for _, group := range groups {
		for _, c := range chunk(group.rows, ChunkSize) {
			ids, err := s.insert(ctx, group.typ, group.column, c.rows)
			if err != nil {
				return saved, &BatchPersistenceError{
					Type:   group.typ,
					Offset: c.offset,
					Size:   len(c.rows),
					Err:    err,
				}
			}
			for i, row := range c.rows {
				saved = append(saved, row.v.WithID(ids[i]))
			}
		}
	}
	s.logger.Debugf("Saved %d variables in %d type groups", len(saved), len(groups))
	return saved, nil
}

// FindByInstance returns every variable of an instance ordered by name, then id.
func (s *VariableStore) FindByInstance(ctx context.Context, instanceID uuid.UUID) ([]variable.Variable, error) {
	conn, err := s.db.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, s.db.Rebind(`SELECT `+selectColumns+` FROM variables
WHERE entity_instance_id = ? ORDER BY variable_name, id`), instanceID)
	if err != nil {
		return nil, errors.Wrap(err, "listing variables")
	}
	defer rows.Close()

	variables := make([]variable.Variable, 0)
	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return nil, err
		}
		variables = append(variables, v)
	}
	return variables, rows.Err()
}

// FindByInstanceAndName returns the first saved variable with that name. A
// missing variable is reported with false, not an error.
func (s *VariableStore) FindByInstanceAndName(ctx context.Context, instanceID uuid.UUID, name string) (variable.Variable, bool, error) {
	conn, err := s.db.DB.Conn(ctx)
	if err != nil {
		return variable.Variable{}, false, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, s.db.Rebind(`SELECT `+selectColumns+` FROM variables
WHERE entity_instance_id = ? AND variable_name = ? ORDER BY id LIMIT 1`), instanceID, name)
	if err != nil {
		return variable.Variable{}, false, errors.Wrapf(err, "finding variable %s", name)
	}
	defer rows.Close()

	if !rows.Next() {
		return variable.Variable{}, false, rows.Err()
	}
	v, err := scanVariable(rows)
	if err != nil {
		return variable.Variable{}, false, err
	}
	return v, true, nil
}

// insert runs one multi row statement and returns the assigned ids ascending,
// which is the order the rows were inserted in.
func (s *VariableStore) insert(ctx context.Context, typ variable.Type, column string, rows []encoded) ([]int64, error) {
	conn, err := s.db.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tags := []string{"type:" + string(typ), "dialect:" + string(s.db.Dialect)}
	start := time.Now()
	_ = s.statsd.Incr("variables.insert.statements", tags, 1)
	result, err := conn.QueryContext(ctx, s.db.Rebind(insertStatement(column, len(rows))), insertArgs(rows)...)
	if err != nil {
		return nil, classify(err)
	}
	defer result.Close()

	ids := make([]int64, 0, len(rows))
	for result.Next() {
		var id int64
		if err := result.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := result.Err(); err != nil {
		return nil, classify(err)
	}
	if len(ids) != len(rows) {
		return nil, errors.Errorf("inserted %d rows but got %d ids back", len(rows), len(ids))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	_ = s.statsd.Timing("variables.insert.time", time.Since(start), tags, 1)
	return ids, nil
}

func insertStatement(column string, n int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO variables (entity_id, entity_instance_id, variable_name, variable_type, ")
	sb.WriteString(column)
	sb.WriteString(", is_indexed, is_sensitive, is_encrypted, registered_at, created_at, updated_at, created_by) VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	}
	sb.WriteString(" RETURNING id")
	return sb.String()
}

func insertArgs(rows []encoded) []interface{} {
	args := make([]interface{}, 0, len(rows)*12)
	for _, row := range rows {
		v := row.v
		args = append(args,
			v.EntityID, v.InstanceID, v.Name, string(v.Type()), row.arg,
			v.Indexed, v.Sensitive, v.Encrypted,
			v.RegisteredAt, v.CreatedAt, v.UpdatedAt, v.CreatedBy)
	}
	return args
}

// prepare encodes the value and fills audit times. Unsupported values fail
// here, before any statement is sent.
func prepare(v variable.Variable, at time.Time) (encoded, error) {
	if strings.TrimSpace(v.Name) == "" {
		return encoded{}, errors.New("variable name is required")
	}
	column, arg, err := variable.Encode(v.Value)
	if err != nil {
		return encoded{}, errors.Wrapf(err, "variable %s", v.Name)
	}
	if v.RegisteredAt.IsZero() {
		v.RegisteredAt = at
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = at
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = v.CreatedAt
	}
	return encoded{v: v, column: column, arg: arg}, nil
}

// groupByType keeps the first appearance order of types and the input order
// within each type.
func groupByType(variables []variable.Variable, at time.Time) ([]*typeGroup, error) {
	groups := make([]*typeGroup, 0)
	byType := make(map[variable.Type]*typeGroup)
	for _, v := range variables {
		row, err := prepare(v, at)
		if err != nil {
			return nil, err
		}
		typ := row.v.Type()
		group, ok := byType[typ]
		if !ok {
			group = &typeGroup{typ: typ, column: row.column}
			byType[typ] = group
			groups = append(groups, group)
		}
		group.rows = append(group.rows, row)
	}
	return groups, nil
}

type rowChunk struct {
	offset int
	rows   []encoded
}

func chunk(rows []encoded, size int) []rowChunk {
	chunks := make([]rowChunk, 0, (len(rows)+size-1)/size)
	for offset := 0; offset < len(rows); offset += size {
		end := offset + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rowChunk{offset: offset, rows: rows[offset:end]})
	}
	return chunks
}

func scanVariable(row scanner) (variable.Variable, error) {
	var (
		v          variable.Variable
		tag        string
		slots      variable.Slots
		binaryNull bool
	)
	dest := []interface{}{&v.ID, &v.EntityID, &v.InstanceID, &v.Name, &tag}
	dest = append(dest, slots.Dest()...)
	dest = append(dest, &binaryNull, &v.Indexed, &v.Sensitive, &v.Encrypted,
		&v.RegisteredAt, &v.CreatedAt, &v.UpdatedAt, &v.CreatedBy)
	if err := row.Scan(dest...); err != nil {
		return variable.Variable{}, err
	}

	typ, err := variable.ParseType(tag)
	if err != nil {
		return variable.Variable{}, err
	}
	if typ == variable.TypeBinary && !binaryNull && slots.Binary == nil {
		// drivers may hand back an empty blob as nil
		slots.Binary = []byte{}
	}
	if slots.Timestamp.Valid {
		slots.Timestamp.Time = slots.Timestamp.Time.UTC()
	}
	if v.Value, err = variable.Decode(typ, slots); err != nil {
		return variable.Variable{}, err
	}
	v.RegisteredAt = v.RegisteredAt.UTC()
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return v, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
