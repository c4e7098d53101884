package dump

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/structwire"
)

var (
	innerSpec = structwire.MustStructSpec("Inner", []*structwire.FieldDescriptor{
		structwire.Field(1, "ok", structwire.TypeOf(structwire.BOOL)),
	})
	outerSpec = structwire.MustStructSpec("Outer", []*structwire.FieldDescriptor{
		structwire.Field(1, "name", structwire.TypeOf(structwire.STRING)),
		structwire.Field(2, "count", structwire.TypeOf(structwire.I32), structwire.Default(structwire.IntValue(7))),
		structwire.Field(3, "scores", structwire.MapOf(structwire.TypeOf(structwire.I16), structwire.TypeOf(structwire.DOUBLE))),
		structwire.Field(4, "tags", structwire.SetOf(structwire.TypeOf(structwire.STRING))),
		structwire.Field(5, "inner", structwire.StructOf(innerSpec)),
		structwire.Field(6, "note", structwire.TypeOf(structwire.STRING)),
	})
)

func outerRecord(t *testing.T, scores ...structwire.MapEntry) *structwire.Record {
	t.Helper()
	rec, err := structwire.NewRecord(outerSpec, map[string]structwire.Value{
		"name":   structwire.StringValue("probe"),
		"scores": structwire.MapValue(scores...),
		"tags":   structwire.SetValue(structwire.StringValue("a"), structwire.StringValue("b")),
		"inner": structwire.RecordValue(structwire.MustRecord(innerSpec, map[string]structwire.Value{
			"ok": structwire.BoolValue(true),
		})),
	})
	require.NoError(t, err)
	return rec
}

func TestMarshal_KeyedByFieldName(t *testing.T) {
	rec := outerRecord(t,
		structwire.Entry(structwire.IntValue(1), structwire.FloatValue(0.5)),
		structwire.Entry(structwire.IntValue(-2), structwire.FloatValue(2)),
	)

	data, err := Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, cbor.Unmarshal(data, &decoded))

	assert.Equal(t, "probe", decoded["name"])
	assert.EqualValues(t, 7, decoded["count"])
	assert.Equal(t, []any{"a", "b"}, decoded["tags"])
	assert.NotContains(t, decoded, "note", "absent fields are left out")

	inner, ok := decoded["inner"].(map[any]any)
	require.True(t, ok, "got %T", decoded["inner"])
	assert.Equal(t, true, inner["ok"])

	scores, ok := decoded["scores"].(map[any]any)
	require.True(t, ok)
	assert.Len(t, scores, 2)
}

func TestMarshal_Deterministic(t *testing.T) {
	a := outerRecord(t,
		structwire.Entry(structwire.IntValue(1), structwire.FloatValue(0.5)),
		structwire.Entry(structwire.IntValue(2), structwire.FloatValue(1.5)),
	)
	b := outerRecord(t,
		structwire.Entry(structwire.IntValue(2), structwire.FloatValue(1.5)),
		structwire.Entry(structwire.IntValue(1), structwire.FloatValue(0.5)),
	)

	first, err := Marshal(a)
	require.NoError(t, err)
	second, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDiagnose(t *testing.T) {
	rec := structwire.MustRecord(innerSpec, map[string]structwire.Value{"ok": structwire.BoolValue(false)})
	notation, err := Diagnose(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": false}`, notation)
}

func TestTree(t *testing.T) {
	listKeyed := structwire.MustStructSpec("ListKeyed", []*structwire.FieldDescriptor{
		structwire.Field(1, "m", structwire.MapOf(
			structwire.ListOf(structwire.TypeOf(structwire.I32)),
			structwire.TypeOf(structwire.STRING),
		)),
	})
	rec := structwire.MustRecord(listKeyed, map[string]structwire.Value{
		"m": structwire.MapValue(structwire.Entry(
			structwire.ListValue(structwire.IntValue(1)),
			structwire.StringValue("one"),
		)),
	})

	tree := Tree(rec)
	m, ok := tree["m"].(map[any]any)
	require.True(t, ok)
	require.Len(t, m, 1)
	for k, v := range m {
		assert.IsType(t, "", k, "container keys are rendered as text")
		assert.Equal(t, "one", v)
	}

	_, err := Marshal(rec)
	assert.NoError(t, err)
}

func TestMarshal_Nil(t *testing.T) {
	_, err := Marshal(nil)
	assert.ErrorIs(t, err, structwire.ErrInvalidValue)
}

func TestMarshal_BinaryField(t *testing.T) {
	blobSpec := structwire.MustStructSpec("Blob", []*structwire.FieldDescriptor{
		structwire.Field(1, "data", structwire.TypeOf(structwire.STRING)),
		structwire.Field(2, "index", structwire.MapOf(
			structwire.TypeOf(structwire.STRING),
			structwire.TypeOf(structwire.I32),
		)),
	})
	rec := structwire.MustRecord(blobSpec, map[string]structwire.Value{
		"data":  structwire.BytesValue([]byte{0xff, 0xfe}),
		"index": structwire.MapValue(structwire.Entry(structwire.BytesValue([]byte{0x80}), structwire.IntValue(1))),
	})

	data, err := Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.Equal(t, []byte{0xff, 0xfe}, decoded["data"])

	notation, err := Diagnose(rec)
	require.NoError(t, err)
	assert.Contains(t, notation, `"data": h'fffe'`)
	assert.Contains(t, notation, `h'80': 1`)
}
