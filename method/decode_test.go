package method

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opcua "github.com/edgeo-scada/opcua-di"
)

func TestDecodeInputsIdempotent(t *testing.T) {
	in := []opcua.Variant{
		{Type: opcua.TypeExtensionObject, Value: rawPoint(4, 2)},
		opcua.MustVariant([]opcua.Structure{&point{X: 1, Y: 1}}),
		opcua.MustVariant(2.5),
		opcua.MustVariant([]string{"x"}),
	}
	snapshot := append([]opcua.Variant(nil), in...)

	first, results, err := DecodeInputs(shapeDesc, in)
	require.NoError(t, err)
	assert.Nil(t, results)
	second, _, err := DecodeInputs(shapeDesc, in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, in)
	assert.Equal(t, &point{X: 4, Y: 2}, first[0])
	assert.Equal(t, []opcua.Structure{&point{X: 1, Y: 1}}, first[1])
}

func TestDecodeInputsWidening(t *testing.T) {
	tests := []struct {
		name  string
		to    opcua.TypeID
		value interface{}
		want  interface{}
		ok    bool
	}{
		{name: "int16 to Int32", to: opcua.TypeInt32, value: int16(-5), want: int32(-5), ok: true},
		{name: "uint16 to Int32", to: opcua.TypeInt32, value: uint16(65535), want: int32(65535), ok: true},
		{name: "byte to UInt64", to: opcua.TypeUInt64, value: uint8(9), want: uint64(9), ok: true},
		{name: "uint32 to Int64", to: opcua.TypeInt64, value: uint32(4000000000), want: int64(4000000000), ok: true},
		{name: "float to Double", to: opcua.TypeDouble, value: float32(0.5), want: float64(0.5), ok: true},
		{name: "int64 to Int32", to: opcua.TypeInt32, value: int64(1), ok: false},
		{name: "int32 to UInt32", to: opcua.TypeUInt32, value: int32(1), ok: false},
		{name: "uint32 to Int32", to: opcua.TypeInt32, value: uint32(1), ok: false},
		{name: "double to Float", to: opcua.TypeFloat, value: float64(1), ok: false},
		{name: "string to Int32", to: opcua.TypeInt32, value: "1", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Descriptor{Name: "M", Inputs: []Argument{{Name: "v", DataType: tt.to, ValueRank: Scalar}}}
			got, results, err := DecodeInputs(desc, variants(tt.value))
			if !tt.ok {
				assert.Error(t, err)
				assert.Equal(t, []opcua.StatusCode{opcua.StatusBadTypeMismatch}, results)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestDecodeInputsArrays(t *testing.T) {
	desc := Descriptor{Name: "M", Inputs: []Argument{{Name: "v", DataType: opcua.TypeInt32, ValueRank: Array}}}

	got, _, err := DecodeInputs(desc, []opcua.Variant{{Type: opcua.TypeInt32, Value: []interface{}{int32(1), int32(2)}}})
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, got[0])

	got, _, err = DecodeInputs(desc, variants([]int16{3}))
	require.NoError(t, err)
	assert.Equal(t, []int32{3}, got[0])

	_, _, err = DecodeInputs(desc, []opcua.Variant{{Type: opcua.TypeInt32, Value: []interface{}{int32(1), "two"}}})
	assert.True(t, opcua.IsTypeMismatch(err))

	_, _, err = DecodeInputs(desc, variants(int32(1)))
	assert.True(t, opcua.IsTypeMismatch(err), "scalar for array")

	scalar := Descriptor{Name: "M", Inputs: []Argument{{Name: "v", DataType: opcua.TypeInt32, ValueRank: Scalar}}}
	_, _, err = DecodeInputs(scalar, variants([]int32{1}))
	assert.True(t, opcua.IsTypeMismatch(err), "array for scalar")

	raw := Argument{Name: "raw", DataType: opcua.TypeByte, ValueRank: Array}
	bytesDesc := Descriptor{Name: "M", Inputs: []Argument{raw}}
	v, err := EncodeOutput(raw, []byte{1, 2})
	require.NoError(t, err)
	got, _, err = DecodeInputs(bytesDesc, []opcua.Variant{v})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got[0])

	got, _, err = DecodeInputs(bytesDesc, []opcua.Variant{{Type: opcua.TypeByte, Value: []interface{}{uint8(3)}}})
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, got[0])
}

func TestDecodeInputsOptional(t *testing.T) {
	desc := Descriptor{Name: "M", Inputs: []Argument{
		{Name: "a", DataType: opcua.TypeNodeID, ValueRank: Scalar, Optional: true},
		{Name: "b", DataType: opcua.TypeString, ValueRank: Array, Optional: true},
	}}
	got, _, err := DecodeInputs(desc, make([]opcua.Variant, 2))
	require.NoError(t, err)
	assert.Equal(t, opcua.NodeID{}, got[0])
	assert.Equal(t, []string(nil), got[1])
}

func TestEncodeOutput(t *testing.T) {
	scalar := Argument{Name: "s", DataType: opcua.TypeString, ValueRank: Scalar}
	array := Argument{Name: "a", DataType: opcua.TypeUInt16, ValueRank: Array}
	structure := Argument{Name: "p", DataType: opcua.TypeExtensionObject, ValueRank: Scalar, New: newPoint}

	v, err := EncodeOutput(scalar, "x")
	require.NoError(t, err)
	assert.Equal(t, opcua.Variant{Type: opcua.TypeString, Value: "x"}, v)

	_, err = EncodeOutput(scalar, 1)
	assert.Error(t, err)

	v, err = EncodeOutput(array, []uint16{1})
	require.NoError(t, err)
	assert.Equal(t, opcua.Variant{Type: opcua.TypeUInt16, Value: []uint16{1}}, v)

	_, err = EncodeOutput(array, []int32{1})
	assert.Error(t, err)

	v, err = EncodeOutput(structure, nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestSeedRoundTrip(t *testing.T) {
	args := []Argument{
		{Name: "b", DataType: opcua.TypeBoolean, ValueRank: Scalar},
		{Name: "i", DataType: opcua.TypeInt32, ValueRank: Scalar},
		{Name: "s", DataType: opcua.TypeString, ValueRank: Scalar},
		{Name: "n", DataType: opcua.TypeNodeID, ValueRank: Scalar},
		{Name: "t", DataType: opcua.TypeDateTime, ValueRank: Scalar},
		{Name: "l", DataType: opcua.TypeString, ValueRank: Array},
		{Name: "p", DataType: opcua.TypeExtensionObject, ValueRank: Scalar, New: newPoint},
	}
	values := []interface{}{
		true, int32(-9), "sentinel", opcua.NewStringNodeID(3, "n"),
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), []string{"a"}, &point{X: 1, Y: 2},
	}
	for i, a := range args {
		slot, err := EncodeOutput(a, values[i])
		require.NoError(t, err, a.Name)
		seeded := seedOutput(a, slot)
		assert.Equal(t, values[i], seeded, a.Name)
		again, err := EncodeOutput(a, seeded)
		require.NoError(t, err, a.Name)
		assert.Equal(t, slot, again, a.Name)
	}
}

func TestParseArgument(t *testing.T) {
	tests := []struct {
		name string
		arg  Argument
		text string
		want opcua.Variant
	}{
		{
			name: "int32",
			arg:  Argument{Name: "v", DataType: opcua.TypeInt32, ValueRank: Scalar},
			text: "-12",
			want: opcua.Variant{Type: opcua.TypeInt32, Value: int32(-12)},
		},
		{
			name: "boolean",
			arg:  Argument{Name: "v", DataType: opcua.TypeBoolean, ValueRank: Scalar},
			text: "true",
			want: opcua.Variant{Type: opcua.TypeBoolean, Value: true},
		},
		{
			name: "node id",
			arg:  Argument{Name: "v", DataType: opcua.TypeNodeID, ValueRank: Scalar},
			text: "ns=2;s=Pump",
			want: opcua.Variant{Type: opcua.TypeNodeID, Value: opcua.NewStringNodeID(2, "Pump")},
		},
		{
			name: "status code",
			arg:  Argument{Name: "v", DataType: opcua.TypeStatusCode, ValueRank: Scalar},
			text: "BadTypeMismatch",
			want: opcua.Variant{Type: opcua.TypeStatusCode, Value: opcua.StatusBadTypeMismatch},
		},
		{
			name: "qualified name",
			arg:  Argument{Name: "v", DataType: opcua.TypeQualifiedName, ValueRank: Scalar},
			text: "2:Setpoint",
			want: opcua.Variant{Type: opcua.TypeQualifiedName, Value: opcua.QualifiedName{NamespaceIndex: 2, Name: "Setpoint"}},
		},
		{
			name: "byte string",
			arg:  Argument{Name: "v", DataType: opcua.TypeByteString, ValueRank: Scalar},
			text: "0x0a0b",
			want: opcua.Variant{Type: opcua.TypeByteString, Value: []byte{0x0a, 0x0b}},
		},
		{
			name: "string array",
			arg:  Argument{Name: "v", DataType: opcua.TypeString, ValueRank: Array},
			text: `["a", "b"]`,
			want: opcua.Variant{Type: opcua.TypeString, Value: []string{"a", "b"}},
		},
		{
			name: "int array",
			arg:  Argument{Name: "v", DataType: opcua.TypeUInt16, ValueRank: Array},
			text: `[1, 2]`,
			want: opcua.Variant{Type: opcua.TypeUInt16, Value: []uint16{1, 2}},
		},
		{
			name: "structure",
			arg:  Argument{Name: "v", DataType: opcua.TypeExtensionObject, ValueRank: Scalar, New: newPoint},
			text: `{"x": 3, "y": 4}`,
			want: opcua.Variant{Type: opcua.TypeExtensionObject, Value: &point{X: 3, Y: 4}},
		},
		{
			name: "structure array",
			arg:  Argument{Name: "v", DataType: opcua.TypeExtensionObject, ValueRank: Array, New: newPoint},
			text: `[{"x": 1}]`,
			want: opcua.Variant{Type: opcua.TypeExtensionObject, Value: []opcua.Structure{&point{X: 1}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgument(tt.arg, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		arg  Argument
		text string
	}{
		{name: "int overflow", arg: Argument{Name: "v", DataType: opcua.TypeSByte, ValueRank: Scalar}, text: "300"},
		{name: "bad bool", arg: Argument{Name: "v", DataType: opcua.TypeBoolean, ValueRank: Scalar}, text: "maybe"},
		{name: "not json array", arg: Argument{Name: "v", DataType: opcua.TypeString, ValueRank: Array}, text: "a,b"},
		{name: "unknown field", arg: Argument{Name: "v", DataType: opcua.TypeExtensionObject, ValueRank: Scalar, New: newPoint}, text: `{"z": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgument(tt.arg, tt.text)
			assert.True(t, opcua.IsStatusCode(err, opcua.StatusBadSyntaxError), "error: %v", err)
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "null", FormatValue(opcua.Variant{}))
	assert.Equal(t, `"abc"`, FormatValue(opcua.MustVariant("abc")))
	assert.Equal(t, "ns=2;i=7", FormatValue(opcua.MustVariant(opcua.NewNumericNodeID(2, 7))))
	assert.Equal(t, "[1, 2]", FormatValue(opcua.MustVariant([]int32{1, 2})))
	assert.Equal(t, `{"x":1,"y":2}`, FormatValue(opcua.Variant{Type: opcua.TypeExtensionObject, Value: &point{X: 1, Y: 2}}))
	assert.Equal(t, "BadNotFound", FormatValue(opcua.MustVariant(opcua.StatusBadNotFound)))
}
