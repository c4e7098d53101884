package binary

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/structwire"
	"github.com/hengadev/structwire/protocol"
)

var fooSpec = structwire.MustStructSpec("Foo", []*structwire.FieldDescriptor{
	structwire.Field(1, "a", structwire.ListOf(structwire.TypeOf(structwire.STRING))),
	structwire.Field(2, "b", structwire.MapOf(
		structwire.TypeOf(structwire.STRING),
		structwire.ListOf(structwire.SetOf(structwire.TypeOf(structwire.I32))),
	)),
	structwire.Field(3, "c", structwire.TypeOf(structwire.I64), structwire.Default(structwire.IntValue(7))),
	structwire.Field(4, "d", structwire.TypeOf(structwire.BOOL), structwire.Default(structwire.BoolValue(false))),
})

var msgSpec = structwire.MustStructSpec("Msg", []*structwire.FieldDescriptor{
	structwire.Field(1, "text", structwire.TypeOf(structwire.STRING), structwire.Required()),
})

func fooRecord(t *testing.T) *structwire.Record {
	t.Helper()
	rec, err := structwire.NewRecord(fooSpec, map[string]structwire.Value{
		"a": structwire.ListValue(structwire.StringValue("x"), structwire.StringValue("y")),
	})
	require.NoError(t, err)
	return rec
}

func TestMarshal_Layout(t *testing.T) {
	data, err := Marshal(fooRecord(t))
	require.NoError(t, err)

	expected := []byte{
		0x0F, 0x00, 0x01, // a: list, ordinal 1
		0x0B, 0x00, 0x00, 0x00, 0x02, // list<string>, 2 elements
		0x00, 0x00, 0x00, 0x01, 'x',
		0x00, 0x00, 0x00, 0x01, 'y',
		0x0A, 0x00, 0x03, // c: i64, ordinal 3
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x07,
		0x02, 0x00, 0x04, // d: bool, ordinal 4
		0x00,
		0x00, // stop
	}
	assert.Equal(t, expected, data)

	size, err := SerializedSize(fooRecord(t))
	require.NoError(t, err)
	assert.Equal(t, len(expected), size)
}

func TestRoundTrip(t *testing.T) {
	rec, err := structwire.NewRecord(fooSpec, map[string]structwire.Value{
		"a": structwire.ListValue(),
		"b": structwire.MapValue(
			structwire.Entry(structwire.StringValue("k"), structwire.ListValue(
				structwire.SetValue(structwire.IntValue(-1), structwire.IntValue(1<<30)),
			)),
		),
		"c": structwire.IntValue(-9_000_000_000),
		"d": structwire.BoolValue(true),
	})
	require.NoError(t, err)

	data, err := Marshal(rec)
	require.NoError(t, err)

	decoded, err := Unmarshal(fooSpec, data)
	require.NoError(t, err)
	assert.True(t, rec.Equal(decoded), "got %s", decoded)
}

func TestUnmarshal_TrailingBytesIgnored(t *testing.T) {
	data, err := Marshal(fooRecord(t))
	require.NoError(t, err)

	decoded, err := Unmarshal(fooSpec, append(data, 0xDE, 0xAD))
	require.NoError(t, err)
	assert.True(t, fooRecord(t).Equal(decoded))
}

func TestUnmarshal_NewerWriter(t *testing.T) {
	point := structwire.MustStructSpec("Point", []*structwire.FieldDescriptor{
		structwire.Field(1, "x", structwire.TypeOf(structwire.DOUBLE)),
	})
	fooV2 := structwire.MustStructSpec("Foo", []*structwire.FieldDescriptor{
		structwire.Field(1, "a", structwire.ListOf(structwire.TypeOf(structwire.STRING))),
		structwire.Field(3, "c", structwire.TypeOf(structwire.I64)),
		structwire.Field(5, "where", structwire.StructOf(point)),
		structwire.Field(6, "scores", structwire.MapOf(
			structwire.TypeOf(structwire.I16),
			structwire.ListOf(structwire.TypeOf(structwire.BYTE)),
		)),
	})

	rec, err := structwire.NewRecord(fooV2, map[string]structwire.Value{
		"a": structwire.ListValue(structwire.StringValue("x")),
		"c": structwire.IntValue(3),
		"where": structwire.RecordValue(structwire.MustRecord(point, map[string]structwire.Value{
			"x": structwire.FloatValue(1.25),
		})),
		"scores": structwire.MapValue(structwire.Entry(
			structwire.IntValue(1),
			structwire.ListValue(structwire.IntValue(-3)),
		)),
	})
	require.NoError(t, err)

	data, err := Marshal(rec)
	require.NoError(t, err)

	hook := &skipCounter{}
	engine, err := structwire.NewEngine(structwire.WithObservabilityHook(hook))
	require.NoError(t, err)

	decoded, err := engine.Unmarshal(context.Background(), Protocol, fooSpec, data)
	require.NoError(t, err)

	c, _ := decoded.Get("c").AsInt()
	assert.Equal(t, int64(3), c)
	assert.Equal(t, 1, decoded.Get("a").Len())
	assert.Equal(t, 2, hook.skipped)
}

type skipCounter struct {
	structwire.NoOpObservabilityHook
	skipped int
}

func (s *skipCounter) OnFieldSkipped(context.Context, structwire.SkipEvent) { s.skipped++ }

func TestUnmarshal_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "truncated header", data: []byte{0x0B, 0x00}},
		{name: "negative string length", data: []byte{0x0B, 0x00, 0x01, 0xFF, 0xFF, 0xFF, 0xFF}},
		{name: "string past end", data: []byte{0x0B, 0x00, 0x01, 0x00, 0x00, 0x00, 0x09, 'h', 'i'}},
		{name: "negative list count", data: []byte{0x0F, 0x00, 0x02, 0x0B, 0xFF, 0xFF, 0xFF, 0xFE, 0x00}},
		{name: "missing stop", data: []byte{0x0B, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}},
		{name: "invalid field tag", data: []byte{0x07, 0x00, 0x01, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Unmarshal(msgSpec, tt.data)
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, structwire.ErrMalformedStream)
		})
	}
}

func TestUnmarshal_RequiredField(t *testing.T) {
	_, err := Unmarshal(msgSpec, []byte{0x00})
	assert.ErrorIs(t, err, structwire.ErrMissingRequiredField)
}

func TestReader_Limits(t *testing.T) {
	rec, err := structwire.NewRecord(msgSpec, map[string]structwire.Value{"text": structwire.StringValue("hello")})
	require.NoError(t, err)
	data, err := Marshal(rec)
	require.NoError(t, err)

	strict := New(protocol.WithMaxStringLength(4))
	_, err = structwire.Unmarshal(strict, msgSpec, data)
	assert.ErrorIs(t, err, structwire.ErrMalformedStream)

	unbounded := New(protocol.WithMaxStringLength(0))
	_, err = structwire.Unmarshal(unbounded, msgSpec, data)
	assert.NoError(t, err)

	listData, err := Marshal(fooRecord(t))
	require.NoError(t, err)
	_, err = structwire.Unmarshal(New(protocol.WithMaxContainerSize(1)), fooSpec, listData)
	assert.ErrorIs(t, err, structwire.ErrMalformedStream)
}

func TestWriterReader_Scalars(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteI8(-2))
	require.NoError(t, w.WriteI16(-300))
	require.NoError(t, w.WriteI32(1<<31-1))
	require.NoError(t, w.WriteDouble(-0.5))
	require.NoError(t, w.WriteBinary([]byte{1, 2, 3}))
	require.NoError(t, w.WriteMapBegin(structwire.I32, structwire.STRING, 0))
	require.NoError(t, w.Flush())

	r := NewReader(&buf, protocol.DefaultLimits())
	i8, err := r.ReadI8()
	require.NoError(t, err)
	assert.Equal(t, int8(-2), i8)
	i16, err := r.ReadI16()
	require.NoError(t, err)
	assert.Equal(t, int16(-300), i16)
	i32, err := r.ReadI32()
	require.NoError(t, err)
	assert.Equal(t, int32(1<<31-1), i32)
	f, err := r.ReadDouble()
	require.NoError(t, err)
	assert.Equal(t, -0.5, f)
	b, err := r.ReadBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
	k, v, n, err := r.ReadMapBegin()
	require.NoError(t, err)
	assert.Equal(t, structwire.I32, k)
	assert.Equal(t, structwire.STRING, v)
	assert.Zero(t, n)

	_, err = r.ReadBool()
	assert.ErrorIs(t, err, structwire.ErrMalformedStream)
}

func TestProtocol_Name(t *testing.T) {
	assert.Equal(t, "binary", Protocol.Name())
}
