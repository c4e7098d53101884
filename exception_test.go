package structwire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestException_DefaultMessage(t *testing.T) {
	exc, err := NewException(bazSpec, nil)
	require.NoError(t, err)

	assert.Equal(t, "", exc.Message())
	assert.Equal(t, FieldDefaulted, exc.Record().State("message"))
	assert.Equal(t, "Baz", exc.Error())
}

func TestException_RoundTrip(t *testing.T) {
	exc, err := NewException(bazSpec, map[string]Value{"message": StringValue("boom")})
	require.NoError(t, err)

	var asErr error = exc
	assert.EqualError(t, asErr, "Baz: boom")

	tokens := encodeTape(t, bazSpec, exc.Record())
	assert.Equal(t, stream(
		toks(tStructBegin()),
		field(STRING, 1, tString("boom")),
		toks(tStop(), tStructEnd()),
	), tokens)

	decoded := decodeTape(t, defaultEngine, bazSpec, tokens)
	got, ok := decoded.AsException()
	require.True(t, ok)
	assert.Equal(t, "boom", got.Message())

	var target *Exception
	assert.True(t, errors.As(asErr, &target))
}

func TestException_EmptyRoundTrip(t *testing.T) {
	rec := MustRecord(bazSpec, nil)
	decoded := decodeTape(t, defaultEngine, bazSpec, encodeTape(t, bazSpec, rec))
	assert.True(t, rec.Equal(decoded))

	msg, _ := decoded.Get("message").AsString()
	assert.Equal(t, "", msg)
}

func TestException_NotAnExceptionType(t *testing.T) {
	_, err := NewException(fooSpec, nil)
	assert.ErrorIs(t, err, ErrInvalidSpec)

	_, ok := MustRecord(fooSpec, nil).AsException()
	assert.False(t, ok)
	assert.True(t, bazSpec.IsException())
	assert.Equal(t, "message", bazSpec.MessageField())
}
