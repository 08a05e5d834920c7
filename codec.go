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

package opcua

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"github.com/pkg/errors"
)

// OPC UA DateTime is 100-nanosecond intervals since January 1, 1601.
const dateTimeEpochDiff = 116444736000000000

// Encoder provides methods for encoding OPC UA types.
type Encoder struct {
	buf *bytes.Buffer
	err error
}

// NewEncoder creates a new encoder.
func NewEncoder() *Encoder {
	return &Encoder{buf: new(bytes.Buffer)}
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Err returns the first error recorded while encoding, typically a variant
// holding a value with no built-in type.
func (e *Encoder) Err() error {
	return e.err
}

// Reset resets the encoder.
func (e *Encoder) Reset() {
	e.buf.Reset()
	e.err = nil
}

func (e *Encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// WriteBoolean writes a boolean value.
func (e *Encoder) WriteBoolean(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

// WriteByte writes a byte value.
func (e *Encoder) WriteByte(v byte) {
	e.buf.WriteByte(v)
}

// WriteSByte writes a signed byte value.
func (e *Encoder) WriteSByte(v int8) {
	e.buf.WriteByte(byte(v))
}

// WriteUInt16 writes a uint16 value.
func (e *Encoder) WriteUInt16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	e.buf.Write(buf[:])
}

// WriteInt16 writes an int16 value.
func (e *Encoder) WriteInt16(v int16) {
	e.WriteUInt16(uint16(v))
}

// WriteUInt32 writes a uint32 value.
func (e *Encoder) WriteUInt32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	e.buf.Write(buf[:])
}

// WriteInt32 writes an int32 value.
func (e *Encoder) WriteInt32(v int32) {
	e.WriteUInt32(uint32(v))
}

// WriteUInt64 writes a uint64 value.
func (e *Encoder) WriteUInt64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	e.buf.Write(buf[:])
}

// WriteInt64 writes an int64 value.
func (e *Encoder) WriteInt64(v int64) {
	e.WriteUInt64(uint64(v))
}

// WriteFloat writes a float32 value.
func (e *Encoder) WriteFloat(v float32) {
	e.WriteUInt32(math.Float32bits(v))
}

// WriteDouble writes a float64 value.
func (e *Encoder) WriteDouble(v float64) {
	e.WriteUInt64(math.Float64bits(v))
}

// WriteString writes a string value. The empty string is encoded as null.
func (e *Encoder) WriteString(v string) {
	if v == "" {
		e.WriteInt32(-1)
		return
	}
	e.WriteInt32(int32(len(v)))
	e.buf.WriteString(v)
}

// WriteByteString writes a byte string value.
func (e *Encoder) WriteByteString(v []byte) {
	if v == nil {
		e.WriteInt32(-1)
		return
	}
	e.WriteInt32(int32(len(v)))
	e.buf.Write(v)
}

// WriteDateTime writes a DateTime value.
func (e *Encoder) WriteDateTime(t time.Time) {
	if t.IsZero() {
		e.WriteInt64(0)
		return
	}
	e.WriteInt64(t.UnixNano()/100 + dateTimeEpochDiff)
}

// WriteGUID writes a GUID value.
func (e *Encoder) WriteGUID(v [16]byte) {
	// Data1 (4 bytes LE), Data2 (2 bytes LE), Data3 (2 bytes LE), Data4 (8 bytes)
	e.WriteUInt32(binary.BigEndian.Uint32(v[0:4]))
	e.WriteUInt16(binary.BigEndian.Uint16(v[4:6]))
	e.WriteUInt16(binary.BigEndian.Uint16(v[6:8]))
	e.buf.Write(v[8:16])
}

// WriteNodeID writes a NodeID value.
func (e *Encoder) WriteNodeID(n NodeID) {
	switch n.Type {
	case NodeIDTypeNumeric:
		if n.Namespace == 0 && n.Numeric <= 255 {
			// Two-byte numeric
			e.WriteByte(0x00)
			e.WriteByte(byte(n.Numeric))
		} else if n.Namespace <= 255 && n.Numeric <= 65535 {
			// Four-byte numeric
			e.WriteByte(0x01)
			e.WriteByte(byte(n.Namespace))
			e.WriteUInt16(uint16(n.Numeric))
		} else {
			e.WriteByte(0x02)
			e.WriteUInt16(n.Namespace)
			e.WriteUInt32(n.Numeric)
		}
	case NodeIDTypeString:
		e.WriteByte(0x03)
		e.WriteUInt16(n.Namespace)
		e.WriteString(n.String)
	case NodeIDTypeGUID:
		e.WriteByte(0x04)
		e.WriteUInt16(n.Namespace)
		e.WriteGUID(n.GUID)
	case NodeIDTypeOpaque:
		e.WriteByte(0x05)
		e.WriteUInt16(n.Namespace)
		e.WriteByteString(n.Opaque)
	}
}

// WriteQualifiedName writes a QualifiedName value.
func (e *Encoder) WriteQualifiedName(q QualifiedName) {
	e.WriteUInt16(q.NamespaceIndex)
	e.WriteString(q.Name)
}

// WriteLocalizedText writes a LocalizedText value.
func (e *Encoder) WriteLocalizedText(l LocalizedText) {
	var encodingMask byte
	if l.Locale != "" {
		encodingMask |= 0x01
	}
	if l.Text != "" {
		encodingMask |= 0x02
	}
	e.WriteByte(encodingMask)
	if l.Locale != "" {
		e.WriteString(l.Locale)
	}
	if l.Text != "" {
		e.WriteString(l.Text)
	}
}

// WriteStatusCode writes a StatusCode value.
func (e *Encoder) WriteStatusCode(s StatusCode) {
	e.WriteUInt32(uint32(s))
}

// WriteExtensionObject writes an ExtensionObject. A locally built object is
// encoded from its Value; an object read off the wire is written back
// verbatim.
func (e *Encoder) WriteExtensionObject(x ExtensionObject) {
	if x.Value != nil {
		e.WriteStructure(x.Value)
		return
	}
	e.WriteNodeID(x.TypeID)
	e.WriteByte(x.Encoding)
	if x.Encoding != ExtensionObjectEmpty {
		e.WriteByteString(x.Body)
	}
}

// WriteStructure writes s as a binary encoded ExtensionObject.
func (e *Encoder) WriteStructure(s Structure) {
	if s == nil {
		e.WriteNodeID(NodeID{})
		e.WriteByte(ExtensionObjectEmpty)
		return
	}
	body := NewEncoder()
	s.Encode(body)
	if body.err != nil {
		e.fail(body.err)
	}
	e.WriteNodeID(s.EncodingID())
	e.WriteByte(ExtensionObjectBinary)
	e.WriteByteString(body.Bytes())
}

// WriteVariant writes a Variant, scalar or one-dimensional array.
func (e *Encoder) WriteVariant(v Variant) {
	if v.IsNull() {
		e.WriteByte(byte(TypeNull))
		return
	}
	items, isArray := ArrayItems(v.Value)
	if b, ok := v.Value.([]byte); ok && v.Type == TypeByte {
		items, isArray = toItems(b), true
	}
	if !isArray {
		e.WriteByte(byte(v.Type))
		e.writeVariantScalar(v.Type, v.Value)
		return
	}
	e.WriteByte(byte(v.Type) | 0x80)
	e.WriteInt32(int32(len(items)))
	for _, item := range items {
		e.writeVariantScalar(v.Type, item)
	}
}

func (e *Encoder) writeVariantScalar(t TypeID, value interface{}) {
	ok := true
	switch t {
	case TypeBoolean:
		var v bool
		v, ok = value.(bool)
		e.WriteBoolean(v)
	case TypeSByte:
		var v int8
		v, ok = value.(int8)
		e.WriteSByte(v)
	case TypeByte:
		var v byte
		v, ok = value.(byte)
		e.WriteByte(v)
	case TypeInt16:
		var v int16
		v, ok = value.(int16)
		e.WriteInt16(v)
	case TypeUInt16:
		var v uint16
		v, ok = value.(uint16)
		e.WriteUInt16(v)
	case TypeInt32:
		var v int32
		v, ok = value.(int32)
		e.WriteInt32(v)
	case TypeUInt32:
		var v uint32
		v, ok = value.(uint32)
		e.WriteUInt32(v)
	case TypeInt64:
		var v int64
		v, ok = value.(int64)
		e.WriteInt64(v)
	case TypeUInt64:
		var v uint64
		v, ok = value.(uint64)
		e.WriteUInt64(v)
	case TypeFloat:
		var v float32
		v, ok = value.(float32)
		e.WriteFloat(v)
	case TypeDouble:
		var v float64
		v, ok = value.(float64)
		e.WriteDouble(v)
	case TypeString:
		var v string
		v, ok = value.(string)
		e.WriteString(v)
	case TypeDateTime:
		var v time.Time
		v, ok = value.(time.Time)
		e.WriteDateTime(v)
	case TypeGUID:
		var v [16]byte
		v, ok = value.([16]byte)
		e.WriteGUID(v)
	case TypeByteString:
		var v []byte
		v, ok = value.([]byte)
		e.WriteByteString(v)
	case TypeNodeID:
		var v NodeID
		v, ok = value.(NodeID)
		e.WriteNodeID(v)
	case TypeStatusCode:
		var v StatusCode
		v, ok = value.(StatusCode)
		e.WriteStatusCode(v)
	case TypeQualifiedName:
		var v QualifiedName
		v, ok = value.(QualifiedName)
		e.WriteQualifiedName(v)
	case TypeLocalizedText:
		var v LocalizedText
		v, ok = value.(LocalizedText)
		e.WriteLocalizedText(v)
	case TypeExtensionObject:
		switch v := value.(type) {
		case ExtensionObject:
			e.WriteExtensionObject(v)
		case *ExtensionObject:
			e.WriteExtensionObject(*v)
		case Structure:
			e.WriteStructure(v)
		default:
			ok = false
		}
	default:
		e.fail(errors.Wrapf(ErrUnsupportedType, "variant type %s", t))
		return
	}
	if !ok {
		e.fail(errors.Wrapf(ErrUnsupportedType, "%T as %s", value, t))
	}
}

// ArrayItems flattens the supported array representations. []byte is a
// ByteString scalar, not an array.
func ArrayItems(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []byte:
		return nil, false
	case []bool:
		return toItems(v), true
	case []int8:
		return toItems(v), true
	case []int16:
		return toItems(v), true
	case []uint16:
		return toItems(v), true
	case []int32:
		return toItems(v), true
	case []uint32:
		return toItems(v), true
	case []int64:
		return toItems(v), true
	case []uint64:
		return toItems(v), true
	case []float32:
		return toItems(v), true
	case []float64:
		return toItems(v), true
	case []string:
		return toItems(v), true
	case []time.Time:
		return toItems(v), true
	case [][16]byte:
		return toItems(v), true
	case [][]byte:
		return toItems(v), true
	case []NodeID:
		return toItems(v), true
	case []StatusCode:
		return toItems(v), true
	case []QualifiedName:
		return toItems(v), true
	case []LocalizedText:
		return toItems(v), true
	case []ExtensionObject:
		return toItems(v), true
	case []Structure:
		return toItems(v), true
	}
	return nil, false
}

func toItems[T any](s []T) []interface{} {
	items := make([]interface{}, len(s))
	for i, v := range s {
		items[i] = v
	}
	return items
}

// Decoder provides methods for decoding OPC UA types.
type Decoder struct {
	data []byte
	pos  int
}

// NewDecoder creates a new decoder.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data, pos: 0}
}

// Remaining returns the number of remaining bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}


func (d *Decoder) need(n int, what string) error {
	if n < 0 || d.pos+n > len(d.data) {
		return errors.Wrapf(ErrInvalidMessage, "%s truncated", what)
	}
	return nil
}

// ReadBoolean reads a boolean value.
func (d *Decoder) ReadBoolean() (bool, error) {
	b, err := d.ReadByte()
	return b != 0, err
}

// ReadByte reads a byte value.
func (d *Decoder) ReadByte() (byte, error) {
	if err := d.need(1, "byte"); err != nil {
		return 0, err
	}
	v := d.data[d.pos]
	d.pos++
	return v, nil
}

// ReadSByte reads a signed byte value.
func (d *Decoder) ReadSByte() (int8, error) {
	b, err := d.ReadByte()
	return int8(b), err
}

// ReadUInt16 reads a uint16 value.
func (d *Decoder) ReadUInt16() (uint16, error) {
	if err := d.need(2, "uint16"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.data[d.pos:])
	d.pos += 2
	return v, nil
}

// ReadInt16 reads an int16 value.
func (d *Decoder) ReadInt16() (int16, error) {
	v, err := d.ReadUInt16()
	return int16(v), err
}

// ReadUInt32 reads a uint32 value.
func (d *Decoder) ReadUInt32() (uint32, error) {
	if err := d.need(4, "uint32"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v, nil
}

// ReadInt32 reads an int32 value.
func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadUInt32()
	return int32(v), err
}

// ReadUInt64 reads a uint64 value.
func (d *Decoder) ReadUInt64() (uint64, error) {
	if err := d.need(8, "uint64"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.data[d.pos:])
	d.pos += 8
	return v, nil
}

// ReadInt64 reads an int64 value.
func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.ReadUInt64()
	return int64(v), err
}

// ReadFloat reads a float32 value.
func (d *Decoder) ReadFloat() (float32, error) {
	v, err := d.ReadUInt32()
	return math.Float32frombits(v), err
}

// ReadDouble reads a float64 value.
func (d *Decoder) ReadDouble() (float64, error) {
	v, err := d.ReadUInt64()
	return math.Float64frombits(v), err
}

// ReadString reads a string value.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadInt32()
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", nil
	}
	if err := d.need(int(length), "string"); err != nil {
		return "", err
	}
	v := string(d.data[d.pos : d.pos+int(length)])
	d.pos += int(length)
	return v, nil
}

// ReadByteString reads a byte string value.
func (d *Decoder) ReadByteString() ([]byte, error) {
	length, err := d.ReadInt32()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, nil
	}
	if err := d.need(int(length), "byte string"); err != nil {
		return nil, err
	}
	v := make([]byte, length)
	copy(v, d.data[d.pos:d.pos+int(length)])
	d.pos += int(length)
	return v, nil
}

// ReadDateTime reads a DateTime value.
func (d *Decoder) ReadDateTime() (time.Time, error) {
	ticks, err := d.ReadInt64()
	if err != nil {
		return time.Time{}, err
	}
	if ticks == 0 {
		return time.Time{}, nil
	}
	return time.Unix(0, (ticks-dateTimeEpochDiff)*100).UTC(), nil
}

// ReadGUID reads a GUID value.
func (d *Decoder) ReadGUID() ([16]byte, error) {
	var guid [16]byte
	if err := d.need(16, "GUID"); err != nil {
		return guid, err
	}
	binary.BigEndian.PutUint32(guid[0:4], binary.LittleEndian.Uint32(d.data[d.pos:]))
	binary.BigEndian.PutUint16(guid[4:6], binary.LittleEndian.Uint16(d.data[d.pos+4:]))
	binary.BigEndian.PutUint16(guid[6:8], binary.LittleEndian.Uint16(d.data[d.pos+6:]))
	copy(guid[8:16], d.data[d.pos+8:d.pos+16])
	d.pos += 16
	return guid, nil
}

// ReadNodeID reads a NodeID value.
func (d *Decoder) ReadNodeID() (NodeID, error) {
	encodingByte, err := d.ReadByte()
	if err != nil {
		return NodeID{}, err
	}
	return d.readNodeIDBody(encodingByte & 0x0F)
}

// ReadExpandedNodeID reads an ExpandedNodeID value. The optional
// NamespaceURI and ServerIndex are consumed and dropped.
func (d *Decoder) ReadExpandedNodeID() (NodeID, error) {
	encodingByte, err := d.ReadByte()
	if err != nil {
		return NodeID{}, err
	}
	nodeID, err := d.readNodeIDBody(encodingByte & 0x0F)
	if err != nil {
		return NodeID{}, err
	}
	if encodingByte&0x80 != 0 {
		if _, err := d.ReadString(); err != nil {
			return NodeID{}, err
		}
	}
	if encodingByte&0x40 != 0 {
		if _, err := d.ReadUInt32(); err != nil {
			return NodeID{}, err
		}
	}
	return nodeID, nil
}

func (d *Decoder) readNodeIDBody(nodeIDType byte) (NodeID, error) {
	switch nodeIDType {
	case 0x00: // Two-byte numeric
		id, err := d.ReadByte()
		if err != nil {
			return NodeID{}, err
		}
		return NewNumericNodeID(0, uint32(id)), nil

	case 0x01: // Four-byte numeric
		ns, err := d.ReadByte()
		if err != nil {
			return NodeID{}, err
		}
		id, err := d.ReadUInt16()
		if err != nil {
			return NodeID{}, err
		}
		return NewNumericNodeID(uint16(ns), uint32(id)), nil

	case 0x02: // Numeric
		ns, err := d.ReadUInt16()
		if err != nil {
			return NodeID{}, err
		}
		id, err := d.ReadUInt32()
		if err != nil {
			return NodeID{}, err
		}
		return NewNumericNodeID(ns, id), nil

	case 0x03: // String
		ns, err := d.ReadUInt16()
		if err != nil {
			return NodeID{}, err
		}
		str, err := d.ReadString()
		if err != nil {
			return NodeID{}, err
		}
		return NewStringNodeID(ns, str), nil

	case 0x04: // GUID
		ns, err := d.ReadUInt16()
		if err != nil {
			return NodeID{}, err
		}
		guid, err := d.ReadGUID()
		if err != nil {
			return NodeID{}, err
		}
		return NewGUIDNodeID(ns, guid), nil

	case 0x05: // Opaque
		ns, err := d.ReadUInt16()
		if err != nil {
			return NodeID{}, err
		}
		opaque, err := d.ReadByteString()
		if err != nil {
			return NodeID{}, err
		}
		return NodeID{Type: NodeIDTypeOpaque, Namespace: ns, Opaque: opaque}, nil

	default:
		return NodeID{}, errors.Wrapf(ErrInvalidMessage, "unknown NodeID type %d", nodeIDType)
	}
}

// ReadQualifiedName reads a QualifiedName value.
func (d *Decoder) ReadQualifiedName() (QualifiedName, error) {
	ns, err := d.ReadUInt16()
	if err != nil {
		return QualifiedName{}, err
	}
	name, err := d.ReadString()
	if err != nil {
		return QualifiedName{}, err
	}
	return QualifiedName{NamespaceIndex: ns, Name: name}, nil
}

// ReadLocalizedText reads a LocalizedText value.
func (d *Decoder) ReadLocalizedText() (LocalizedText, error) {
	encodingMask, err := d.ReadByte()
	if err != nil {
		return LocalizedText{}, err
	}

	var lt LocalizedText
	if encodingMask&0x01 != 0 {
		lt.Locale, err = d.ReadString()
		if err != nil {
			return LocalizedText{}, err
		}
	}
	if encodingMask&0x02 != 0 {
		lt.Text, err = d.ReadString()
		if err != nil {
			return LocalizedText{}, err
		}
	}
	return lt, nil
}

// ReadStatusCode reads a StatusCode value.
func (d *Decoder) ReadStatusCode() (StatusCode, error) {
	v, err := d.ReadUInt32()
	return StatusCode(v), err
}

// ReadExtensionObject reads an ExtensionObject, leaving the body undecoded.
func (d *Decoder) ReadExtensionObject() (ExtensionObject, error) {
	typeID, err := d.ReadNodeID()
	if err != nil {
		return ExtensionObject{}, err
	}
	encoding, err := d.ReadByte()
	if err != nil {
		return ExtensionObject{}, err
	}
	x := ExtensionObject{TypeID: typeID, Encoding: encoding}
	if encoding == ExtensionObjectEmpty {
		return x, nil
	}
	x.Body, err = d.ReadByteString()
	if err != nil {
		return ExtensionObject{}, err
	}
	return x, nil
}

// ReadVariant reads a Variant value.
func (d *Decoder) ReadVariant() (Variant, error) {
	encodingMask, err := d.ReadByte()
	if err != nil {
		return Variant{}, err
	}

	typeID := TypeID(encodingMask & 0x3F)
	isArray := encodingMask&0x80 != 0
	hasDimensions := encodingMask&0x40 != 0

	if isArray {
		return d.readVariantArray(typeID, hasDimensions)
	}

	return d.readVariantScalar(typeID)
}

func (d *Decoder) readVariantScalar(typeID TypeID) (Variant, error) {
	var value interface{}
	var err error

	switch typeID {
	case TypeNull:
		value = nil
	case TypeBoolean:
		value, err = d.ReadBoolean()
	case TypeSByte:
		value, err = d.ReadSByte()
	case TypeByte:
		value, err = d.ReadByte()
	case TypeInt16:
		value, err = d.ReadInt16()
	case TypeUInt16:
		value, err = d.ReadUInt16()
	case TypeInt32:
		value, err = d.ReadInt32()
	case TypeUInt32:
		value, err = d.ReadUInt32()
	case TypeInt64:
		value, err = d.ReadInt64()
	case TypeUInt64:
		value, err = d.ReadUInt64()
	case TypeFloat:
		value, err = d.ReadFloat()
	case TypeDouble:
		value, err = d.ReadDouble()
	case TypeString:
		value, err = d.ReadString()
	case TypeDateTime:
		value, err = d.ReadDateTime()
	case TypeGUID:
		value, err = d.ReadGUID()
	case TypeByteString:
		value, err = d.ReadByteString()
	case TypeNodeID:
		value, err = d.ReadNodeID()
	case TypeExpandedNodeID:
		value, err = d.ReadExpandedNodeID()
		typeID = TypeNodeID
	case TypeStatusCode:
		value, err = d.ReadStatusCode()
	case TypeQualifiedName:
		value, err = d.ReadQualifiedName()
	case TypeLocalizedText:
		value, err = d.ReadLocalizedText()
	case TypeExtensionObject:
		value, err = d.ReadExtensionObject()
	default:
		return Variant{}, errors.Wrapf(ErrInvalidMessage, "unsupported variant type %d", typeID)
	}

	if err != nil {
		return Variant{}, err
	}

	return Variant{Type: typeID, Value: value}, nil
}

func (d *Decoder) readVariantArray(typeID TypeID, hasDimensions bool) (Variant, error) {
	length, err := d.ReadInt32()
	if err != nil {
		return Variant{}, err
	}

	if length < 0 {
		return Variant{Type: typeID, Value: nil}, nil
	}
	// every element takes at least one byte
	if err := d.need(int(length), "array"); err != nil {
		return Variant{}, err
	}

	values := make([]interface{}, length)
	for i := int32(0); i < length; i++ {
		v, err := d.readVariantScalar(typeID)
		if err != nil {
			return Variant{}, err
		}
		values[i] = v.Value
	}

	if hasDimensions {
		// Multi-dimensional arrays are flattened; dimensions are skipped.
		dimCount, err := d.ReadInt32()
		if err != nil {
			return Variant{}, err
		}
		for i := int32(0); i < dimCount; i++ {
			if _, err := d.ReadInt32(); err != nil {
				return Variant{}, err
			}
		}
	}

	if typeID == TypeExpandedNodeID {
		typeID = TypeNodeID
	}
	return Variant{Type: typeID, Value: values}, nil
}
