package variable

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Encode maps a value onto its physical column and the argument to bind there.
// Null values bind as nil.
func Encode(v Value) (string, interface{}, error) {
	switch val := v.(type) {
	case StringValue:
		if !val.Valid {
			return columns[TypeString], nil, nil
		}
		return columns[TypeString], val.V, nil
	case IntValue:
		if !val.Valid {
			return columns[TypeInteger], nil, nil
		}
		return columns[TypeInteger], val.V, nil
	case FloatValue:
		if !val.Valid {
			return columns[TypeFloat], nil, nil
		}
		return columns[TypeFloat], val.V, nil
	case BoolValue:
		if !val.Valid {
			return columns[TypeBoolean], nil, nil
		}
		return columns[TypeBoolean], val.V, nil
	case JSONValue:
		if !val.Valid {
			return columns[TypeJSON], nil, nil
		}
		doc, err := MarshalDocument(val.V)
		if err != nil {
			return "", nil, err
		}
		return columns[TypeJSON], doc, nil
	case TimestampValue:
		if !val.Valid {
			return columns[TypeTimestamp], nil, nil
		}
		return columns[TypeTimestamp], val.V.Truncate(time.Microsecond), nil
	case BinaryValue:
		if !val.Valid {
			return columns[TypeBinary], nil, nil
		}
		return columns[TypeBinary], val.V, nil
	case UUIDValue:
		if !val.Valid {
			return columns[TypeUUID], nil, nil
		}
		return columns[TypeUUID], val.V, nil
	}
	return "", nil, errors.Wrapf(ErrUnsupportedType, "value %T", v)
}

// Slots are the scan targets for the eight value columns of a variable row.
type Slots struct {
	String    sql.NullString
	Int       sql.NullInt64
	Float     sql.NullFloat64
	Bool      sql.NullBool
	JSON      sql.NullString
	Timestamp sql.NullTime
	Binary    []byte
	UUID      uuid.NullUUID
}

// Dest returns pointers in ValueColumns order.
func (s *Slots) Dest() []interface{} {
	return []interface{}{
		&s.String,
		&s.Int,
		&s.Float,
		&s.Bool,
		&s.JSON,
		&s.Timestamp,
		&s.Binary,
		&s.UUID,
	}
}

// Decode rebuilds a value from the slot selected by t. The other slots are
// never consulted.
func Decode(t Type, s Slots) (Value, error) {
	switch t {
	case TypeString:
		return StringValue{V: s.String.String, Valid: s.String.Valid}, nil
	case TypeInteger:
		return IntValue{V: s.Int.Int64, Valid: s.Int.Valid}, nil
	case TypeFloat:
		return FloatValue{V: s.Float.Float64, Valid: s.Float.Valid}, nil
	case TypeBoolean:
		return BoolValue{V: s.Bool.Bool, Valid: s.Bool.Valid}, nil
	case TypeJSON:
		if !s.JSON.Valid {
			return JSONValue{}, nil
		}
		doc, err := UnmarshalDocument(s.JSON.String)
		if err != nil {
			return nil, err
		}
		return JSONValue{V: doc, Valid: true}, nil
	case TypeTimestamp:
		return TimestampValue{V: s.Timestamp.Time, Valid: s.Timestamp.Valid}, nil
	case TypeBinary:
		if s.Binary == nil {
			return BinaryValue{}, nil
		}
		return BinaryValue{V: s.Binary, Valid: true}, nil
	case TypeUUID:
		return UUIDValue{V: s.UUID.UUID, Valid: s.UUID.Valid}, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedType, "tag %q", string(t))
}

// MarshalDocument serializes a document to JSON object text. Keys are written
// sorted so the same document always produces the same text. An empty or nil
// document becomes "{}".
func MarshalDocument(doc map[string]interface{}) (string, error) {
	if len(doc) == 0 {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", errors.Wrap(err, "serializing document")
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// UnmarshalDocument parses JSON object text. Blank input is the empty document.
func UnmarshalDocument(text string) (Document, error) {
	doc := Document{}
	if strings.TrimSpace(text) == "" {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, errors.Wrap(err, "deserializing document")
	}
	if doc == nil {
		// the literal null
		doc = Document{}
	}
	return doc, nil
}
