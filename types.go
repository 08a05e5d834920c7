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

// Package opcua provides the OPC UA built-in types, status codes and binary
// codec shared by the DI/FDI method invocation packages.
package opcua

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// NodeIDType represents the type of a NodeID.
type NodeIDType uint8

// NodeID types.
const (
	NodeIDTypeNumeric NodeIDType = iota
	NodeIDTypeString
	NodeIDTypeGUID
	NodeIDTypeOpaque
)

// NodeID represents an OPC UA NodeID.
type NodeID struct {
	Type      NodeIDType
	Namespace uint16
	Numeric   uint32
	String    string
	GUID      [16]byte
	Opaque    []byte
}

// NewNumericNodeID creates a new numeric NodeID.
func NewNumericNodeID(namespace uint16, id uint32) NodeID {
	return NodeID{
		Type:      NodeIDTypeNumeric,
		Namespace: namespace,
		Numeric:   id,
	}
}

// NewStringNodeID creates a new string NodeID.
func NewStringNodeID(namespace uint16, id string) NodeID {
	return NodeID{
		Type:      NodeIDTypeString,
		Namespace: namespace,
		String:    id,
	}
}

// NewGUIDNodeID creates a new GUID NodeID.
func NewGUIDNodeID(namespace uint16, guid [16]byte) NodeID {
	return NodeID{
		Type:      NodeIDTypeGUID,
		Namespace: namespace,
		GUID:      guid,
	}
}

// IsNull reports whether n is the null NodeID (ns=0;i=0).
func (n NodeID) IsNull() bool {
	return n.Type == NodeIDTypeNumeric && n.Namespace == 0 && n.Numeric == 0
}

// Equal reports whether two NodeIDs identify the same node.
func (n NodeID) Equal(o NodeID) bool {
	if n.Type != o.Type || n.Namespace != o.Namespace {
		return false
	}
	switch n.Type {
	case NodeIDTypeNumeric:
		return n.Numeric == o.Numeric
	case NodeIDTypeString:
		return n.String == o.String
	case NodeIDTypeGUID:
		return n.GUID == o.GUID
	case NodeIDTypeOpaque:
		return bytes.Equal(n.Opaque, o.Opaque)
	}
	return false
}

// Text returns the standard text form of the NodeID, e.g. "ns=2;i=1234".
// The result round-trips through ParseNodeID and is stable, so it is
// used as a map key.
func (n NodeID) Text() string {
	var id string
	switch n.Type {
	case NodeIDTypeNumeric:
		id = fmt.Sprintf("i=%d", n.Numeric)
	case NodeIDTypeString:
		id = "s=" + n.String
	case NodeIDTypeGUID:
		id = "g=" + formatGUID(n.GUID)
	case NodeIDTypeOpaque:
		id = "b=" + hex.EncodeToString(n.Opaque)
	default:
		return fmt.Sprintf("<unknown type %d>", n.Type)
	}
	if n.Namespace == 0 {
		return id
	}
	return fmt.Sprintf("ns=%d;%s", n.Namespace, id)
}

// ParseNodeID parses the text form of a NodeID ("ns=2;i=1", "s=Name",
// "g=...", "b=..."). A bare number is numeric, any other bare text is a
// string identifier.
func ParseNodeID(s string) (NodeID, error) {
	ns := uint16(0)
	identifier := s

	if strings.HasPrefix(s, "ns=") {
		parts := strings.SplitN(s, ";", 2)
		if len(parts) != 2 {
			return NodeID{}, errors.Wrapf(ErrInvalidNodeID, "format %q", s)
		}
		nsVal, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "ns="), 10, 16)
		if err != nil {
			return NodeID{}, errors.Wrapf(ErrInvalidNodeID, "namespace in %q", s)
		}
		ns = uint16(nsVal)
		identifier = parts[1]
	}

	switch {
	case strings.HasPrefix(identifier, "i="):
		id, err := strconv.ParseUint(strings.TrimPrefix(identifier, "i="), 10, 32)
		if err != nil {
			return NodeID{}, errors.Wrapf(ErrInvalidNodeID, "numeric id in %q", s)
		}
		return NewNumericNodeID(ns, uint32(id)), nil
	case strings.HasPrefix(identifier, "s="):
		return NewStringNodeID(ns, strings.TrimPrefix(identifier, "s=")), nil
	case strings.HasPrefix(identifier, "g="):
		guid, err := ParseGUID(strings.TrimPrefix(identifier, "g="))
		if err != nil {
			return NodeID{}, errors.Wrapf(ErrInvalidNodeID, "guid in %q", s)
		}
		return NewGUIDNodeID(ns, guid), nil
	case strings.HasPrefix(identifier, "b="):
		opaque, err := hex.DecodeString(strings.TrimPrefix(identifier, "b="))
		if err != nil {
			return NodeID{}, errors.Wrapf(ErrInvalidNodeID, "opaque id in %q", s)
		}
		return NodeID{Type: NodeIDTypeOpaque, Namespace: ns, Opaque: opaque}, nil
	}

	if id, err := strconv.ParseUint(identifier, 10, 32); err == nil {
		return NewNumericNodeID(ns, uint32(id)), nil
	}
	if identifier == "" {
		return NodeID{}, errors.Wrapf(ErrInvalidNodeID, "empty identifier in %q", s)
	}
	return NewStringNodeID(ns, identifier), nil
}

// MustParseNodeID is like ParseNodeID but panics on error. It is meant for
// package-level tables.
func MustParseNodeID(s string) NodeID {
	n, err := ParseNodeID(s)
	if err != nil {
		panic(err)
	}
	return n
}

// MarshalText implements encoding.TextMarshaler.
func (n NodeID) MarshalText() ([]byte, error) {
	return []byte(n.Text()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *NodeID) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeID(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

func formatGUID(g [16]byte) string {
	h := hex.EncodeToString(g[:])
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}

// ParseGUID parses a GUID in its 8-4-4-4-12 hex form; dashes are optional.
func ParseGUID(s string) ([16]byte, error) {
	var g [16]byte
	raw, err := hex.DecodeString(strings.ReplaceAll(s, "-", ""))
	if err != nil {
		return g, err
	}
	if len(raw) != 16 {
		return g, errors.Errorf("guid must be 16 bytes, got %d", len(raw))
	}
	copy(g[:], raw)
	return g, nil
}

// ServiceID represents an OPC UA service identifier.
type ServiceID uint32

// OPC UA Service IDs on the method path.
const (
	ServiceCall ServiceID = 712
)

// String returns the string representation of a ServiceID.
func (s ServiceID) String() string {
	switch s {
	case ServiceCall:
		return "Call"
	default:
		return "Unknown"
	}
}

// TypeID represents an OPC UA built-in type.
type TypeID uint8

// OPC UA Built-in Types.
const (
	TypeNull            TypeID = 0
	TypeBoolean         TypeID = 1
	TypeSByte           TypeID = 2
	TypeByte            TypeID = 3
	TypeInt16           TypeID = 4
	TypeUInt16          TypeID = 5
	TypeInt32           TypeID = 6
	TypeUInt32          TypeID = 7
	TypeInt64           TypeID = 8
	TypeUInt64          TypeID = 9
	TypeFloat           TypeID = 10
	TypeDouble          TypeID = 11
	TypeString          TypeID = 12
	TypeDateTime        TypeID = 13
	TypeGUID            TypeID = 14
	TypeByteString      TypeID = 15
	TypeXMLElement      TypeID = 16
	TypeNodeID          TypeID = 17
	TypeExpandedNodeID  TypeID = 18
	TypeStatusCode      TypeID = 19
	TypeQualifiedName   TypeID = 20
	TypeLocalizedText   TypeID = 21
	TypeExtensionObject TypeID = 22
	TypeDataValue       TypeID = 23
	TypeVariant         TypeID = 24
	TypeDiagnosticInfo  TypeID = 25
)

var typeNames = [...]string{
	"Null", "Boolean", "SByte", "Byte", "Int16", "UInt16", "Int32", "UInt32",
	"Int64", "UInt64", "Float", "Double", "String", "DateTime", "Guid",
	"ByteString", "XmlElement", "NodeId", "ExpandedNodeId", "StatusCode",
	"QualifiedName", "LocalizedText", "ExtensionObject", "DataValue",
	"Variant", "DiagnosticInfo",
}

// String returns the OPC UA name of the built-in type.
func (t TypeID) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("TypeID(%d)", uint8(t))
}

// ParseTypeID maps an OPC UA built-in type name (case-insensitive) or its
// ns=0 numeric data type id to a TypeID.
func ParseTypeID(s string) (TypeID, error) {
	for i, name := range typeNames {
		if strings.EqualFold(name, s) {
			return TypeID(i), nil
		}
	}
	if n, err := strconv.ParseUint(strings.TrimPrefix(s, "i="), 10, 8); err == nil && int(n) < len(typeNames) {
		return TypeID(n), nil
	}
	return TypeNull, errors.Wrapf(ErrUnsupportedType, "type name %q", s)
}

// StatusCode represents an OPC UA StatusCode.
type StatusCode uint32

// QualifiedName represents an OPC UA QualifiedName.
type QualifiedName struct {
	NamespaceIndex uint16
	Name           string
}

// LocalizedText represents an OPC UA LocalizedText.
type LocalizedText struct {
	Locale string
	Text   string
}

// Variant represents an OPC UA Variant. Arrays are carried either as a
// typed Go slice or as []interface{} (the form produced by Decoder).
type Variant struct {
	Type  TypeID
	Value interface{}
}

// IsNull reports whether the variant carries no value.
func (v Variant) IsNull() bool {
	return v.Type == TypeNull || v.Value == nil
}

// NewVariant wraps a Go value into a Variant, inferring the built-in type.
// Slices of supported element types become array variants.
func NewVariant(value interface{}) (Variant, error) {
	if value == nil {
		return Variant{}, nil
	}
	if t, ok := TypeOf(value); ok {
		return Variant{Type: t, Value: value}, nil
	}
	switch v := value.(type) {
	case []bool:
		return Variant{Type: TypeBoolean, Value: v}, nil
	case []int8:
		return Variant{Type: TypeSByte, Value: v}, nil
	case []int16:
		return Variant{Type: TypeInt16, Value: v}, nil
	case []uint16:
		return Variant{Type: TypeUInt16, Value: v}, nil
	case []int32:
		return Variant{Type: TypeInt32, Value: v}, nil
	case []uint32:
		return Variant{Type: TypeUInt32, Value: v}, nil
	case []int64:
		return Variant{Type: TypeInt64, Value: v}, nil
	case []uint64:
		return Variant{Type: TypeUInt64, Value: v}, nil
	case []float32:
		return Variant{Type: TypeFloat, Value: v}, nil
	case []float64:
		return Variant{Type: TypeDouble, Value: v}, nil
	case []string:
		return Variant{Type: TypeString, Value: v}, nil
	case []time.Time:
		return Variant{Type: TypeDateTime, Value: v}, nil
	case [][16]byte:
		return Variant{Type: TypeGUID, Value: v}, nil
	case [][]byte:
		return Variant{Type: TypeByteString, Value: v}, nil
	case []NodeID:
		return Variant{Type: TypeNodeID, Value: v}, nil
	case []StatusCode:
		return Variant{Type: TypeStatusCode, Value: v}, nil
	case []QualifiedName:
		return Variant{Type: TypeQualifiedName, Value: v}, nil
	case []LocalizedText:
		return Variant{Type: TypeLocalizedText, Value: v}, nil
	case []Structure:
		return Variant{Type: TypeExtensionObject, Value: v}, nil
	}
	return Variant{}, errors.Wrapf(ErrUnsupportedType, "%T", value)
}

// MustVariant is like NewVariant but panics on unsupported values.
func MustVariant(value interface{}) Variant {
	v, err := NewVariant(value)
	if err != nil {
		panic(err)
	}
	return v
}

// TypeOf returns the built-in type of a scalar Go value. Slices other than
// []byte are not scalars and report false.
func TypeOf(value interface{}) (TypeID, bool) {
	switch value.(type) {
	case bool:
		return TypeBoolean, true
	case int8:
		return TypeSByte, true
	case uint8:
		return TypeByte, true
	case int16:
		return TypeInt16, true
	case uint16:
		return TypeUInt16, true
	case int32:
		return TypeInt32, true
	case uint32:
		return TypeUInt32, true
	case int64:
		return TypeInt64, true
	case uint64:
		return TypeUInt64, true
	case float32:
		return TypeFloat, true
	case float64:
		return TypeDouble, true
	case string:
		return TypeString, true
	case time.Time:
		return TypeDateTime, true
	case [16]byte:
		return TypeGUID, true
	case []byte:
		return TypeByteString, true
	case NodeID:
		return TypeNodeID, true
	case StatusCode:
		return TypeStatusCode, true
	case QualifiedName:
		return TypeQualifiedName, true
	case LocalizedText:
		return TypeLocalizedText, true
	case ExtensionObject, *ExtensionObject, Structure:
		return TypeExtensionObject, true
	}
	return TypeNull, false
}

// Structure is implemented by structured DataTypes that travel inside an
// ExtensionObject using the binary encoding.
type Structure interface {
	// EncodingID returns the NodeID of the DefaultBinary encoding.
	EncodingID() NodeID
	Encode(e *Encoder)
	Decode(d *Decoder) error
}

// Extension object body encodings.
const (
	ExtensionObjectEmpty  byte = 0x00
	ExtensionObjectBinary byte = 0x01
	ExtensionObjectXML    byte = 0x02
)

// ExtensionObject carries a structured value. Objects read off the wire hold
// the raw Body; objects built locally hold the decoded Value.
type ExtensionObject struct {
	TypeID   NodeID
	Encoding byte
	Body     []byte
	Value    Structure
}

// NewExtensionObject wraps a structure for transport.
func NewExtensionObject(s Structure) ExtensionObject {
	return ExtensionObject{TypeID: s.EncodingID(), Encoding: ExtensionObjectBinary, Value: s}
}

// DecodeInto decodes the binary body into s. The encoding id of s must match
// the object's TypeID.
func (x ExtensionObject) DecodeInto(s Structure) error {
	if x.Value != nil {
		return errors.Errorf("opcua: extension object already decoded as %T", x.Value)
	}
	if x.Encoding != ExtensionObjectBinary {
		return errors.Wrapf(ErrStructureUnknown, "encoding 0x%02X", x.Encoding)
	}
	if !x.TypeID.Equal(s.EncodingID()) {
		return errors.Wrapf(ErrStructureUnknown, "type %s, want %s", x.TypeID.Text(), s.EncodingID().Text())
	}
	d := NewDecoder(x.Body)
	if err := s.Decode(d); err != nil {
		return errors.Wrapf(err, "decode %s", x.TypeID.Text())
	}
	return nil
}

// DiagnosticInfo contains diagnostic information.
type DiagnosticInfo struct {
	SymbolicID          int32
	NamespaceURI        int32
	Locale              int32
	LocalizedText       int32
	AdditionalInfo      string
	InnerStatusCode     StatusCode
	InnerDiagnosticInfo *DiagnosticInfo
}

// CallMethodRequest describes a method to call.
type CallMethodRequest struct {
	ObjectID       NodeID
	MethodID       NodeID
	InputArguments []Variant
}

// CallMethodResult contains the result of a method call.
type CallMethodResult struct {
	StatusCode                   StatusCode
	InputArgumentResults         []StatusCode
	InputArgumentDiagnosticInfos []DiagnosticInfo
	OutputArguments              []Variant
}
