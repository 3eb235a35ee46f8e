package variable

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrInvalidValue means a wire value does not have the shape its declared type needs.
var ErrInvalidValue = errors.New("invalid variable value")

// FromJSON converts a decoded JSON value into the tagged value for t. A JSON
// null becomes the typed null.
func FromJSON(t Type, raw interface{}) (Value, error) {
	if _, err := t.Column(); err != nil {
		return nil, err
	}
	if raw == nil {
		return Null(t)
	}
	switch t {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid(t, raw)
		}
		return String(s), nil
	case TypeInteger:
		i, ok := toInt64(raw)
		if !ok {
			return nil, invalid(t, raw)
		}
		return Int(i), nil
	case TypeFloat:
		f, ok := raw.(float64)
		if !ok {
			return nil, invalid(t, raw)
		}
		return Float(f), nil
	case TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, invalid(t, raw)
		}
		return Bool(b), nil
	case TypeJSON:
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, invalid(t, raw)
		}
		return JSON(m), nil
	case TypeTimestamp:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid(t, raw)
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, invalid(t, raw)
		}
		return Timestamp(ts), nil
	case TypeBinary:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid(t, raw)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, invalid(t, raw)
		}
		return Binary(b), nil
	case TypeUUID:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid(t, raw)
		}
		u, err := uuid.Parse(s)
		if err != nil {
			return nil, invalid(t, raw)
		}
		return UUID(u), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedType, "tag %q", string(t))
}

// toInt64 accepts integral numbers within the int64 range and decimal strings.
func toInt64(raw interface{}) (int64, bool) {
	switch n := raw.(type) {
	case float64:
		// 2^63 is exactly representable, the largest int64 is not
		if n != math.Trunc(n) || n < -(1<<63) || n >= 1<<63 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func invalid(t Type, raw interface{}) error {
	return errors.Wrapf(ErrInvalidValue, "%v is not a valid %s", raw, t)
}

type variableJSON struct {
	ID           int64       `json:"id"`
	EntityID     uuid.UUID   `json:"entityId"`
	InstanceID   uuid.UUID   `json:"entityInstanceId"`
	Name         string      `json:"name"`
	Type         Type        `json:"type"`
	Value        interface{} `json:"value"`
	Indexed      bool        `json:"indexed"`
	Sensitive    bool        `json:"sensitive"`
	Encrypted    bool        `json:"encrypted"`
	RegisteredAt time.Time   `json:"registeredAt"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	CreatedBy    *uuid.UUID  `json:"createdBy,omitempty"`
}

func (v Variable) MarshalJSON() ([]byte, error) {
	out := variableJSON{
		ID:           v.ID,
		EntityID:     v.EntityID,
		InstanceID:   v.InstanceID,
		Name:         v.Name,
		Type:         v.Type(),
		Indexed:      v.Indexed,
		Sensitive:    v.Sensitive,
		Encrypted:    v.Encrypted,
		RegisteredAt: v.RegisteredAt,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
	if v.Value != nil {
		out.Value = v.Value.Interface()
	}
	if v.CreatedBy.Valid {
		out.CreatedBy = &v.CreatedBy.UUID
	}
	return json.Marshal(out)
}
