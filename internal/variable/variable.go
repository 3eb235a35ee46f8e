package variable

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Owner identifies the instance a variable belongs to. RegisteredAt is the
// instance registration time and routes the row to its partition.
type Owner struct {
	EntityID     uuid.UUID
	InstanceID   uuid.UUID
	RegisteredAt time.Time
}

// Variable is one typed named value of an instance. ID is zero until the row
// has been persisted.
type Variable struct {
	ID           int64
	EntityID     uuid.UUID
	InstanceID   uuid.UUID
	Name         string
	Value        Value
	Indexed      bool
	Sensitive    bool
	Encrypted    bool
	RegisteredAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedBy    uuid.NullUUID
}

type Option func(*Variable)

func Indexed() Option {
	return func(v *Variable) { v.Indexed = true }
}

func Sensitive() Option {
	return func(v *Variable) { v.Sensitive = true }
}

func Encrypted() Option {
	return func(v *Variable) { v.Encrypted = true }
}

func CreatedBy(id uuid.UUID) Option {
	return func(v *Variable) { v.CreatedBy = uuid.NullUUID{UUID: id, Valid: true} }
}

// New builds an unsaved variable for owner. A zero owner registration time
// defaults to now.
func New(owner Owner, name string, value Value, opts ...Option) (Variable, error) {
	if strings.TrimSpace(name) == "" {
		return Variable{}, errors.New("variable name is required")
	}
	if value == nil {
		return Variable{}, errors.Wrapf(ErrUnsupportedType, "variable %q has no value", name)
	}
	registeredAt := owner.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	v := Variable{
		EntityID:     owner.EntityID,
		InstanceID:   owner.InstanceID,
		Name:         name,
		Value:        value,
		RegisteredAt: registeredAt,
	}
	for _, opt := range opts {
		opt(&v)
	}
	return v, nil
}

// Type is the tag of the held value, or "" when the variable has none.
func (v Variable) Type() Type {
	if v.Value == nil {
		return ""
	}
	return v.Value.Type()
}

// WithID returns a copy carrying the storage assigned identifier.
func (v Variable) WithID(id int64) Variable {
	v.ID = id
	return v
}

func (v Variable) AsString() (string, bool) {
	if s, ok := v.Value.(StringValue); ok && s.Valid {
		return s.V, true
	}
	return "", false
}

func (v Variable) AsInt() (int64, bool) {
	if i, ok := v.Value.(IntValue); ok && i.Valid {
		return i.V, true
	}
	return 0, false
}

func (v Variable) AsFloat() (float64, bool) {
	if f, ok := v.Value.(FloatValue); ok && f.Valid {
		return f.V, true
	}
	return 0, false
}

func (v Variable) AsBool() (bool, bool) {
	if b, ok := v.Value.(BoolValue); ok && b.Valid {
		return b.V, true
	}
	return false, false
}

func (v Variable) AsJSON() (Document, bool) {
	if d, ok := v.Value.(JSONValue); ok && d.Valid {
		return d.V, true
	}
	return nil, false
}

func (v Variable) AsTimestamp() (time.Time, bool) {
	if t, ok := v.Value.(TimestampValue); ok && t.Valid {
		return t.V, true
	}
	return time.Time{}, false
}

func (v Variable) AsBinary() ([]byte, bool) {
	if b, ok := v.Value.(BinaryValue); ok && b.Valid {
		return b.V, true
	}
	return nil, false
}

func (v Variable) AsUUID() (uuid.UUID, bool) {
	if u, ok := v.Value.(UUIDValue); ok && u.Valid {
		return u.V, true
	}
	return uuid.Nil, false
}
