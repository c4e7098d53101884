package structwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumSpec(t *testing.T) {
	assert.Equal(t, "City", citySpec.Name())
	assert.Equal(t, 4, citySpec.Len())
	assert.Equal(t, []int32{0, 1, 2, 3}, citySpec.Values())

	v, ok := citySpec.ValueOf("LON")
	assert.True(t, ok)
	assert.Equal(t, int32(3), v)

	_, ok = citySpec.NameOf(42)
	assert.False(t, ok)

	_, err := citySpec.EnumValue("PAR")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestNewEnumSpec_Errors(t *testing.T) {
	_, err := NewEnumSpec("", nil)
	assert.ErrorIs(t, err, ErrInvalidSpec)

	_, err = NewEnumSpec("Company", map[string]int32{"FACEBOOK": 0, "META": 0})
	assert.ErrorIs(t, err, ErrInvalidSpec)

	_, err = NewEnumSpec("Company", map[string]int32{"": 1})
	assert.ErrorIs(t, err, ErrInvalidSpec)

	empty, err := NewEnumSpec("EmptyEnum", nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}

// Enums are open: undeclared values decode as plain integers.
func TestEnum_UndeclaredValueRoundTrips(t *testing.T) {
	tokens := stream(
		toks(tStructBegin()),
		field(STRING, 1, tString("s")),
		field(I32, 4, tI32(99)),
		toks(tStop(), tStructEnd()),
	)

	rec := decodeTape(t, defaultEngine, shapeSpec, tokens)
	city, ok := rec.Get("city").AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(99), city)
}
