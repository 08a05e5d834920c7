// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package method

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"

	opcua "github.com/edgeo-scada/opcua-di"
)

// DecodeInputs converts input variants into the native values declared by
// desc. It does not modify in. On failure the returned status slice holds one
// entry per input, BadTypeMismatch on each offending slot, unless the count
// itself is wrong, in which case it is nil.
func DecodeInputs(desc Descriptor, in []opcua.Variant) ([]interface{}, []opcua.StatusCode, error) {
	switch {
	case len(in) < len(desc.Inputs):
		return nil, nil, &ArgumentError{
			Method:     desc.Name,
			Index:      len(in),
			Argument:   desc.Inputs[len(in)].Name,
			StatusCode: opcua.StatusBadArgumentsMissing,
		}
	case len(in) > len(desc.Inputs):
		return nil, nil, &ArgumentError{
			Method:     desc.Name,
			Index:      len(desc.Inputs),
			StatusCode: opcua.StatusBadTooManyArguments,
		}
	}

	values := make([]interface{}, len(in))
	var results []opcua.StatusCode
	var first error
	for i, a := range desc.Inputs {
		v, err := decodeArgument(a, in[i])
		if err != nil {
			if results == nil {
				results = make([]opcua.StatusCode, len(in))
			}
			results[i] = opcua.StatusBadTypeMismatch
			if first == nil {
				first = &ArgumentError{
					Method:     desc.Name,
					Index:      i,
					Argument:   a.Name,
					StatusCode: opcua.StatusBadTypeMismatch,
					Err:        err,
				}
			}
			continue
		}
		values[i] = v
	}
	if first != nil {
		return nil, results, first
	}
	return values, nil, nil
}

// EncodeOutput converts a native output value back into a variant of the
// declared type. A value of any other Go type is an error.
func EncodeOutput(a Argument, value interface{}) (opcua.Variant, error) {
	if a.IsArray() {
		if !isNativeArray(a, value) {
			return opcua.Variant{}, mismatch("%s: expected %s, got %T", a.Name, a.TypeName(), value)
		}
		return opcua.Variant{Type: a.DataType, Value: value}, nil
	}

	if a.DataType == opcua.TypeExtensionObject {
		if value == nil || isNilStructure(value) {
			return opcua.Variant{}, nil
		}
		s, ok := value.(opcua.Structure)
		if !ok || !sameStructure(a, s) {
			return opcua.Variant{}, mismatch("%s: expected %s, got %T", a.Name, a.TypeName(), value)
		}
		return opcua.Variant{Type: opcua.TypeExtensionObject, Value: s}, nil
	}

	t, ok := opcua.TypeOf(value)
	if !ok || t != a.DataType {
		return opcua.Variant{}, mismatch("%s: expected %s, got %T", a.Name, a.TypeName(), value)
	}
	return opcua.Variant{Type: t, Value: value}, nil
}

// seedOutput returns the native value of a slot, or the zero value of the
// declared type when the slot is null or holds something else.
func seedOutput(a Argument, v opcua.Variant) interface{} {
	if !v.IsNull() {
		if native, err := decodeArgument(a, v); err == nil {
			return native
		}
	}
	return zeroValue(a)
}

func decodeArgument(a Argument, v opcua.Variant) (interface{}, error) {
	if v.IsNull() {
		if a.Optional {
			return zeroValue(a), nil
		}
		return nil, mismatch("%s: null value for %s", a.Name, a.TypeName())
	}
	if v.Type != a.DataType && !widens(v.Type, a.DataType) {
		return nil, mismatch("%s: expected %s, got %s", a.Name, a.TypeName(), v.Type)
	}
	if !a.IsArray() {
		if _, isArray := opcua.ArrayItems(v.Value); isArray {
			return nil, mismatch("%s: expected scalar %s, got array", a.Name, a.TypeName())
		}
		return decodeScalar(a, v.Value)
	}

	if b, ok := v.Value.([]byte); ok && a.DataType == opcua.TypeByte {
		return append([]byte{}, b...), nil
	}
	items, isArray := opcua.ArrayItems(v.Value)
	if !isArray {
		return nil, mismatch("%s: expected %s, got scalar %T", a.Name, a.TypeName(), v.Value)
	}
	return decodeArray(a, items)
}

func decodeArray(a Argument, items []interface{}) (interface{}, error) {
	switch a.DataType {
	case opcua.TypeBoolean:
		return collect[bool](a, items)
	case opcua.TypeSByte:
		return collect[int8](a, items)
	case opcua.TypeByte:
		return collect[uint8](a, items)
	case opcua.TypeInt16:
		return collect[int16](a, items)
	case opcua.TypeUInt16:
		return collect[uint16](a, items)
	case opcua.TypeInt32:
		return collect[int32](a, items)
	case opcua.TypeUInt32:
		return collect[uint32](a, items)
	case opcua.TypeInt64:
		return collect[int64](a, items)
	case opcua.TypeUInt64:
		return collect[uint64](a, items)
	case opcua.TypeFloat:
		return collect[float32](a, items)
	case opcua.TypeDouble:
		return collect[float64](a, items)
	case opcua.TypeString:
		return collect[string](a, items)
	case opcua.TypeDateTime:
		return collect[time.Time](a, items)
	case opcua.TypeGUID:
		return collect[[16]byte](a, items)
	case opcua.TypeByteString:
		return collect[[]byte](a, items)
	case opcua.TypeNodeID:
		return collect[opcua.NodeID](a, items)
	case opcua.TypeStatusCode:
		return collect[opcua.StatusCode](a, items)
	case opcua.TypeQualifiedName:
		return collect[opcua.QualifiedName](a, items)
	case opcua.TypeLocalizedText:
		return collect[opcua.LocalizedText](a, items)
	case opcua.TypeExtensionObject:
		return collect[opcua.Structure](a, items)
	}
	return nil, errors.Wrapf(opcua.ErrUnsupportedType, "%s: %s", a.Name, a.DataType)
}

func collect[T any](a Argument, items []interface{}) ([]T, error) {
	out := make([]T, len(items))
	for i, item := range items {
		if item == nil {
			return nil, mismatch("%s[%d]: null element", a.Name, i)
		}
		v, err := decodeScalar(a, item)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		out[i] = v.(T)
	}
	return out, nil
}

// decodeScalar converts a single value into the native type of a.DataType.
// The result always has exactly that Go type.
func decodeScalar(a Argument, value interface{}) (interface{}, error) {
	if a.DataType == opcua.TypeExtensionObject {
		return decodeStructure(a, value)
	}

	from, ok := opcua.TypeOf(value)
	if !ok {
		return nil, mismatch("%s: unsupported value %T", a.Name, value)
	}
	if from == a.DataType {
		return value, nil
	}
	if widens(from, a.DataType) {
		return widen(value, a.DataType), nil
	}
	return nil, mismatch("%s: expected %s, got %s", a.Name, a.TypeName(), from)
}

func decodeStructure(a Argument, value interface{}) (interface{}, error) {
	switch x := value.(type) {
	case opcua.ExtensionObject:
		return decodeExtensionObject(a, x)
	case *opcua.ExtensionObject:
		if x == nil {
			return nil, mismatch("%s: null extension object", a.Name)
		}
		return decodeExtensionObject(a, *x)
	case opcua.Structure:
		if isNilStructure(x) {
			return nil, mismatch("%s: null %s", a.Name, a.TypeName())
		}
		if !sameStructure(a, x) {
			return nil, mismatch("%s: expected %s, got %T", a.Name, a.TypeName(), x)
		}
		return x, nil
	}
	return nil, mismatch("%s: expected %s, got %T", a.Name, a.TypeName(), value)
}

func decodeExtensionObject(a Argument, x opcua.ExtensionObject) (interface{}, error) {
	if x.Value != nil {
		return decodeStructure(a, x.Value)
	}
	s := a.New()
	if err := x.DecodeInto(s); err != nil {
		return nil, mismatch("%s: %v", a.Name, err)
	}
	return s, nil
}

// isNilStructure reports whether value is a nil pointer behind a non-nil
// interface, e.g. (*T)(nil) stored in a []opcua.Structure.
func isNilStructure(value interface{}) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func sameStructure(a Argument, s opcua.Structure) bool {
	return s.EncodingID().Equal(a.New().EncodingID())
}

// intKind gives the signedness and width of the integer built-in types.
var intKind = map[opcua.TypeID]struct {
	signed bool
	bits   int
}{
	opcua.TypeSByte:  {true, 8},
	opcua.TypeByte:   {false, 8},
	opcua.TypeInt16:  {true, 16},
	opcua.TypeUInt16: {false, 16},
	opcua.TypeInt32:  {true, 32},
	opcua.TypeUInt32: {false, 32},
	opcua.TypeInt64:  {true, 64},
	opcua.TypeUInt64: {false, 64},
}

// widens reports whether every value of from is representable in to.
func widens(from, to opcua.TypeID) bool {
	if from == opcua.TypeFloat && to == opcua.TypeDouble {
		return true
	}
	f, ok := intKind[from]
	if !ok {
		return false
	}
	t, ok := intKind[to]
	if !ok || from == to {
		return false
	}
	if f.signed == t.signed {
		return f.bits < t.bits
	}
	return !f.signed && t.signed && f.bits < t.bits
}

func widen(value interface{}, to opcua.TypeID) interface{} {
	if f, ok := value.(float32); ok {
		return float64(f)
	}
	var i int64
	var u uint64
	signed := true
	switch v := value.(type) {
	case int8:
		i = int64(v)
	case int16:
		i = int64(v)
	case int32:
		i = int64(v)
	case uint8:
		u, signed = uint64(v), false
	case uint16:
		u, signed = uint64(v), false
	case uint32:
		u, signed = uint64(v), false
	}
	if !signed {
		i = int64(u)
	}
	switch to {
	case opcua.TypeInt16:
		return int16(i)
	case opcua.TypeUInt16:
		return uint16(u)
	case opcua.TypeInt32:
		return int32(i)
	case opcua.TypeUInt32:
		return uint32(u)
	case opcua.TypeInt64:
		return i
	case opcua.TypeUInt64:
		return u
	}
	return value
}

func zeroValue(a Argument) interface{} {
	if a.IsArray() {
		return nilSlice(a.DataType)
	}
	switch a.DataType {
	case opcua.TypeBoolean:
		return false
	case opcua.TypeSByte:
		return int8(0)
	case opcua.TypeByte:
		return uint8(0)
	case opcua.TypeInt16:
		return int16(0)
	case opcua.TypeUInt16:
		return uint16(0)
	case opcua.TypeInt32:
		return int32(0)
	case opcua.TypeUInt32:
		return uint32(0)
	case opcua.TypeInt64:
		return int64(0)
	case opcua.TypeUInt64:
		return uint64(0)
	case opcua.TypeFloat:
		return float32(0)
	case opcua.TypeDouble:
		return float64(0)
	case opcua.TypeString:
		return ""
	case opcua.TypeDateTime:
		return time.Time{}
	case opcua.TypeGUID:
		return [16]byte{}
	case opcua.TypeByteString:
		return []byte(nil)
	case opcua.TypeNodeID:
		return opcua.NodeID{}
	case opcua.TypeStatusCode:
		return opcua.StatusGood
	case opcua.TypeQualifiedName:
		return opcua.QualifiedName{}
	case opcua.TypeLocalizedText:
		return opcua.LocalizedText{}
	}
	return nil
}

func nilSlice(t opcua.TypeID) interface{} {
	switch t {
	case opcua.TypeBoolean:
		return []bool(nil)
	case opcua.TypeSByte:
		return []int8(nil)
	case opcua.TypeByte:
		return []uint8(nil)
	case opcua.TypeInt16:
		return []int16(nil)
	case opcua.TypeUInt16:
		return []uint16(nil)
	case opcua.TypeInt32:
		return []int32(nil)
	case opcua.TypeUInt32:
		return []uint32(nil)
	case opcua.TypeInt64:
		return []int64(nil)
	case opcua.TypeUInt64:
		return []uint64(nil)
	case opcua.TypeFloat:
		return []float32(nil)
	case opcua.TypeDouble:
		return []float64(nil)
	case opcua.TypeString:
		return []string(nil)
	case opcua.TypeDateTime:
		return []time.Time(nil)
	case opcua.TypeGUID:
		return [][16]byte(nil)
	case opcua.TypeByteString:
		return [][]byte(nil)
	case opcua.TypeNodeID:
		return []opcua.NodeID(nil)
	case opcua.TypeStatusCode:
		return []opcua.StatusCode(nil)
	case opcua.TypeQualifiedName:
		return []opcua.QualifiedName(nil)
	case opcua.TypeLocalizedText:
		return []opcua.LocalizedText(nil)
	case opcua.TypeExtensionObject:
		return []opcua.Structure(nil)
	}
	return nil
}

func isNativeArray(a Argument, value interface{}) bool {
	ok := false
	switch a.DataType {
	case opcua.TypeBoolean:
		_, ok = value.([]bool)
	case opcua.TypeSByte:
		_, ok = value.([]int8)
	case opcua.TypeByte:
		_, ok = value.([]uint8)
	case opcua.TypeInt16:
		_, ok = value.([]int16)
	case opcua.TypeUInt16:
		_, ok = value.([]uint16)
	case opcua.TypeInt32:
		_, ok = value.([]int32)
	case opcua.TypeUInt32:
		_, ok = value.([]uint32)
	case opcua.TypeInt64:
		_, ok = value.([]int64)
	case opcua.TypeUInt64:
		_, ok = value.([]uint64)
	case opcua.TypeFloat:
		_, ok = value.([]float32)
	case opcua.TypeDouble:
		_, ok = value.([]float64)
	case opcua.TypeString:
		_, ok = value.([]string)
	case opcua.TypeDateTime:
		_, ok = value.([]time.Time)
	case opcua.TypeGUID:
		_, ok = value.([][16]byte)
	case opcua.TypeByteString:
		_, ok = value.([][]byte)
	case opcua.TypeNodeID:
		_, ok = value.([]opcua.NodeID)
	case opcua.TypeStatusCode:
		_, ok = value.([]opcua.StatusCode)
	case opcua.TypeQualifiedName:
		_, ok = value.([]opcua.QualifiedName)
	case opcua.TypeLocalizedText:
		_, ok = value.([]opcua.LocalizedText)
	case opcua.TypeExtensionObject:
		var list []opcua.Structure
		list, ok = value.([]opcua.Structure)
		for _, s := range list {
			if s == nil || isNilStructure(s) || !sameStructure(a, s) {
				return false
			}
		}
	}
	return ok
}

// structName returns the bare Go type name of a structure.
func structName(s opcua.Structure) string {
	name := fmt.Sprintf("%T", s)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
