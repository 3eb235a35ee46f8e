package variable

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	owner := Owner{EntityID: uuid.New(), InstanceID: uuid.New()}

	t.Run("defaults the registration time", func(t *testing.T) {
		before := time.Now().UTC().Truncate(time.Microsecond)
		v, err := New(owner, "email", String("a@b.c"), Indexed(), Sensitive(), Encrypted())
		require.NoError(t, err)
		assert.False(t, v.RegisteredAt.Before(before))
		assert.True(t, v.Indexed)
		assert.True(t, v.Sensitive)
		assert.True(t, v.Encrypted)
		assert.Zero(t, v.ID)
		assert.Equal(t, TypeString, v.Type())
	})

	t.Run("keeps the owner registration time", func(t *testing.T) {
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		o := owner
		o.RegisteredAt = at
		v, err := New(o, "age", Int(3))
		require.NoError(t, err)
		assert.Equal(t, at, v.RegisteredAt)
		assert.Equal(t, int64(9), v.WithID(9).ID)
		assert.Zero(t, v.ID, "WithID returns a copy")
	})

	t.Run("rejects missing names and values", func(t *testing.T) {
		_, err := New(owner, " ", String("x"))
		assert.Error(t, err)
		_, err = New(owner, "x", nil)
		assert.True(t, errors.Is(err, ErrUnsupportedType))
	})

	t.Run("records the creator", func(t *testing.T) {
		by := uuid.New()
		v, err := New(owner, "x", Bool(true), CreatedBy(by))
		require.NoError(t, err)
		assert.True(t, v.CreatedBy.Valid)
		assert.Equal(t, by, v.CreatedBy.UUID)
	})
}

func TestAccessors(t *testing.T) {
	v := Variable{Value: Float(1.5)}
	f, ok := v.AsFloat()
	assert.True(t, ok)
	assert.Equal(t, 1.5, f)
	_, ok = v.AsString()
	assert.False(t, ok, "accessor of another type")

	null, err := Null(TypeFloat)
	require.NoError(t, err)
	_, ok = Variable{Value: null}.AsFloat()
	assert.False(t, ok, "accessor of a typed null")

	assert.Equal(t, Type(""), Variable{}.Type())
}

func TestFromJSON(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name string
		typ  Type
		raw  interface{}
		want Value
	}{
		{"string", TypeString, "x", String("x")},
		{"integral number", TypeInteger, float64(42), Int(42)},
		{"numeric string", TypeInteger, "9007199254740993", Int(9007199254740993)},
		{"smallest integer", TypeInteger, float64(math.MinInt64), Int(math.MinInt64)},
		{"float", TypeFloat, 2.25, Float(2.25)},
		{"integer as float", TypeFloat, float64(2), Float(2)},
		{"boolean", TypeBoolean, false, Bool(false)},
		{"document", TypeJSON, map[string]interface{}{"a": "b"}, JSON(Document{"a": "b"})},
		{"timestamp", TypeTimestamp, "2026-10-14T10:00:00.5Z", Timestamp(time.Date(2026, 10, 14, 10, 0, 0, 500000000, time.UTC))},
		{"binary", TypeBinary, "aGk=", Binary([]byte("hi"))},
		{"uuid", TypeUUID, id.String(), UUID(id)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FromJSON(tc.typ, tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("null is the typed null", func(t *testing.T) {
		for _, typ := range Types {
			v, err := FromJSON(typ, nil)
			require.NoError(t, err)
			assert.True(t, v.IsNull())
			assert.Equal(t, typ, v.Type())
		}
	})

	invalid := []struct {
		typ Type
		raw interface{}
	}{
		{TypeString, float64(1)},
		{TypeInteger, 1.5},
		{TypeString, true},
		{TypeInteger, "many"},
		{TypeInteger, "1.5"},
		{TypeInteger, true},
		{TypeInteger, 1e20},
		{TypeInteger, float64(1 << 63)},
		{TypeInteger, math.Inf(-1)},
		{TypeInteger, math.NaN()},
		{TypeFloat, "lots"},
		{TypeFloat, "3.5"},
		{TypeFloat, true},
		{TypeBoolean, "maybe"},
		{TypeBoolean, "t"},
		{TypeBoolean, float64(42)},
		{TypeBoolean, float64(0)},
		{TypeJSON, []interface{}{1}},
		{TypeJSON, "{}"},
		{TypeTimestamp, "yesterday"},
		{TypeTimestamp, float64(1760436000)},
		{TypeBinary, "***"},
		{TypeBinary, float64(1)},
		{TypeUUID, "not-a-uuid"},
		{TypeUUID, float64(1)},
	}
	for _, tc := range invalid {
		_, err := FromJSON(tc.typ, tc.raw)
		assert.True(t, errors.Is(err, ErrInvalidValue), "%s %v", tc.typ, tc.raw)
	}

	_, err := FromJSON(Type("DECIMAL"), 1)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestMarshalJSON(t *testing.T) {
	owner := Owner{EntityID: uuid.New(), InstanceID: uuid.New(), RegisteredAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)}
	v, err := New(owner, "settings", JSON(Document{"theme": "dark"}), Indexed())
	require.NoError(t, err)

	data, err := json.Marshal(v.WithID(7))
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, float64(7), out["id"])
	assert.Equal(t, "settings", out["name"])
	assert.Equal(t, "JSON", out["type"])
	assert.Equal(t, map[string]interface{}{"theme": "dark"}, out["value"])
	assert.Equal(t, owner.EntityID.String(), out["entityId"])
	assert.Equal(t, owner.InstanceID.String(), out["entityInstanceId"])
	assert.Equal(t, true, out["indexed"])
	_, hasCreator := out["createdBy"]
	assert.False(t, hasCreator)

	null, err := Null(TypeString)
	require.NoError(t, err)
	v, err = New(owner, "nickname", null)
	require.NoError(t, err)
	data, err = json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Nil(t, out["value"])
}
