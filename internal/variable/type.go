package variable

import (
	"github.com/pkg/errors"
)

// ErrUnsupportedType is returned whenever a type tag or value has no matching
// storage slot. It is never retried.
var ErrUnsupportedType = errors.New("unsupported variable type")

// Type is the closed set of type tags. The string form is stored verbatim in
// the variable_type column.
type Type string

const (
	TypeString    Type = "STRING"
	TypeInteger   Type = "INTEGER"
	TypeFloat     Type = "FLOAT"
	TypeBoolean   Type = "BOOLEAN"
	TypeJSON      Type = "JSON"
	TypeTimestamp Type = "TIMESTAMP"
	TypeBinary    Type = "BINARY"
	TypeUUID      Type = "UUID"
)

// Types lists every supported tag in physical column order.
var Types = []Type{
	TypeString,
	TypeInteger,
	TypeFloat,
	TypeBoolean,
	TypeJSON,
	TypeTimestamp,
	TypeBinary,
	TypeUUID,
}

var columns = map[Type]string{
	TypeString:    "value_string",
	TypeInteger:   "value_int",
	TypeFloat:     "value_float",
	TypeBoolean:   "value_bool",
	TypeJSON:      "value_json",
	TypeTimestamp: "value_timestamp",
	TypeBinary:    "value_binary",
	TypeUUID:      "value_uuid",
}

// ValueColumns returns the eight value columns in the order Slots.Dest scans them.
func ValueColumns() []string {
	cols := make([]string, 0, len(Types))
	for _, t := range Types {
		cols = append(cols, columns[t])
	}
	return cols
}

// ParseType resolves a stored tag.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := columns[t]; !ok {
		return "", errors.Wrapf(ErrUnsupportedType, "tag %q", s)
	}
	return t, nil
}

// Column is the physical column holding values of this type.
func (t Type) Column() (string, error) {
	c, ok := columns[t]
	if !ok {
		return "", errors.Wrapf(ErrUnsupportedType, "tag %q", string(t))
	}
	return c, nil
}

func (t Type) String() string {
	return string(t)
}
