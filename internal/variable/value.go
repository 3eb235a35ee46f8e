package variable

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Document is a structured JSON object value.
type Document map[string]interface{}

// Value is a tagged variable value. The set of implementations is closed; one
// per Type. A value with Valid=false is the typed null of its tag.
type Value interface {
	Type() Type
	IsNull() bool
	// Interface returns the plain Go value, or nil for null.
	Interface() interface{}
	sealed()
}

type StringValue struct {
	V     string
	Valid bool
}

type IntValue struct {
	V     int64
	Valid bool
}

type FloatValue struct {
	V     float64
	Valid bool
}

type BoolValue struct {
	V     bool
	Valid bool
}

type JSONValue struct {
	V     Document
	Valid bool
}

type TimestampValue struct {
	V     time.Time
	Valid bool
}

type BinaryValue struct {
	V     []byte
	Valid bool
}

type UUIDValue struct {
	V     uuid.UUID
	Valid bool
}

func String(s string) Value  { return StringValue{V: s, Valid: true} }
func Int(i int64) Value      { return IntValue{V: i, Valid: true} }
func Float(f float64) Value  { return FloatValue{V: f, Valid: true} }
func Bool(b bool) Value      { return BoolValue{V: b, Valid: true} }
func UUID(u uuid.UUID) Value { return UUIDValue{V: u, Valid: true} }

// Timestamp keeps microsecond precision, the finest postgres stores.
func Timestamp(t time.Time) Value {
	return TimestampValue{V: t.Truncate(time.Microsecond), Valid: true}
}

// JSON wraps a copy of doc. A nil doc is the empty document, not null.
func JSON(doc Document) Value {
	c := make(Document, len(doc))
	for k, v := range doc {
		c[k] = v
	}
	return JSONValue{V: c, Valid: true}
}

// Binary wraps a copy of b. A nil slice is the empty byte sequence, not null.
func Binary(b []byte) Value {
	c := make([]byte, len(b))
	copy(c, b)
	return BinaryValue{V: c, Valid: true}
}

// Null returns the typed absence for t.
func Null(t Type) (Value, error) {
	switch t {
	case TypeString:
		return StringValue{}, nil
	case TypeInteger:
		return IntValue{}, nil
	case TypeFloat:
		return FloatValue{}, nil
	case TypeBoolean:
		return BoolValue{}, nil
	case TypeJSON:
		return JSONValue{}, nil
	case TypeTimestamp:
		return TimestampValue{}, nil
	case TypeBinary:
		return BinaryValue{}, nil
	case TypeUUID:
		return UUIDValue{}, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedType, "tag %q", string(t))
}

func (StringValue) Type() Type    { return TypeString }
func (IntValue) Type() Type       { return TypeInteger }
func (FloatValue) Type() Type     { return TypeFloat }
func (BoolValue) Type() Type      { return TypeBoolean }
func (JSONValue) Type() Type      { return TypeJSON }
func (TimestampValue) Type() Type { return TypeTimestamp }
func (BinaryValue) Type() Type    { return TypeBinary }
func (UUIDValue) Type() Type      { return TypeUUID }

func (v StringValue) IsNull() bool    { return !v.Valid }
func (v IntValue) IsNull() bool       { return !v.Valid }
func (v FloatValue) IsNull() bool     { return !v.Valid }
func (v BoolValue) IsNull() bool      { return !v.Valid }
func (v JSONValue) IsNull() bool      { return !v.Valid }
func (v TimestampValue) IsNull() bool { return !v.Valid }
func (v BinaryValue) IsNull() bool    { return !v.Valid }
func (v UUIDValue) IsNull() bool      { return !v.Valid }

func (v StringValue) Interface() interface{} {
	if !v.Valid {
		return nil
	}
	return v.V
}

func (v IntValue) Interface() interface{} {
	if !v.Valid {
		return nil
	}
	return v.V
}

func (v FloatValue) Interface() interface{} {
	if !v.Valid {
		return nil
	}
	return v.V
}

func (v BoolValue) Interface() interface{} {
	if !v.Valid {
		return nil
	}
	return v.V
}

func (v JSONValue) Interface() interface{} {
	if !v.Valid {
		return nil
	}
	return map[string]interface{}(v.V)
}

func (v TimestampValue) Interface() interface{} {
	if !v.Valid {
		return nil
	}
	return v.V
}

func (v BinaryValue) Interface() interface{} {
	if !v.Valid {
		return nil
	}
	return v.V
}

func (v UUIDValue) Interface() interface{} {
	if !v.Valid {
		return nil
	}
	return v.V
}

func (StringValue) sealed()    {}
func (IntValue) sealed()       {}
func (FloatValue) sealed()     {}
func (BoolValue) sealed()      {}
func (JSONValue) sealed()      {}
func (TimestampValue) sealed() {}
func (BinaryValue) sealed()    {}
func (UUIDValue) sealed()      {}
