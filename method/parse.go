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
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	opcua "github.com/edgeo-scada/opcua-di"
)

// ParseArgument converts operator text into a variant of the declared type.
// Arrays and structures are given as JSON; scalars use their usual text form
// (node ids as "ns=2;s=Foo", status codes by name, byte strings as hex).
func ParseArgument(a Argument, s string) (opcua.Variant, error) {
	if a.IsArray() {
		var raw []json.RawMessage
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return opcua.Variant{}, errors.Wrapf(opcua.StatusBadSyntaxError, "%s: expected JSON array: %v", a.Name, err)
		}
		items := make([]interface{}, len(raw))
		for i, r := range raw {
			v, err := parseElement(a, r)
			if err != nil {
				return opcua.Variant{}, errors.Wrapf(err, "%s[%d]", a.Name, i)
			}
			items[i] = v
		}
		native, err := decodeArray(a, items)
		if err != nil {
			return opcua.Variant{}, err
		}
		return opcua.Variant{Type: a.DataType, Value: native}, nil
	}

	v, err := parseScalar(a, s)
	if err != nil {
		return opcua.Variant{}, errors.Wrap(err, a.Name)
	}
	return opcua.Variant{Type: a.DataType, Value: v}, nil
}

func parseElement(a Argument, raw json.RawMessage) (interface{}, error) {
	if a.DataType == opcua.TypeExtensionObject {
		return parseStructure(a, raw)
	}
	var text string
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, errors.Wrap(opcua.StatusBadSyntaxError, err.Error())
		}
	} else {
		text = string(raw)
	}
	return parseScalar(a, text)
}

func parseStructure(a Argument, raw []byte) (opcua.Structure, error) {
	s := a.New()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return nil, errors.Wrapf(opcua.StatusBadSyntaxError, "%s: %v", a.TypeName(), err)
	}
	return s, nil
}

func parseScalar(a Argument, s string) (interface{}, error) {
	syntax := func(err error) error {
		return errors.Wrapf(opcua.StatusBadSyntaxError, "%q as %s: %v", s, a.DataType, err)
	}
	switch a.DataType {
	case opcua.TypeBoolean:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, syntax(err)
		}
		return v, nil
	case opcua.TypeSByte, opcua.TypeInt16, opcua.TypeInt32, opcua.TypeInt64:
		v, err := strconv.ParseInt(s, 0, intKind[a.DataType].bits)
		if err != nil {
			return nil, syntax(err)
		}
		return narrowInt(a.DataType, v), nil
	case opcua.TypeByte, opcua.TypeUInt16, opcua.TypeUInt32, opcua.TypeUInt64:
		v, err := strconv.ParseUint(s, 0, intKind[a.DataType].bits)
		if err != nil {
			return nil, syntax(err)
		}
		return narrowUint(a.DataType, v), nil
	case opcua.TypeFloat:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, syntax(err)
		}
		return float32(v), nil
	case opcua.TypeDouble:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, syntax(err)
		}
		return v, nil
	case opcua.TypeString:
		return s, nil
	case opcua.TypeDateTime:
		v, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, syntax(err)
		}
		return v, nil
	case opcua.TypeGUID:
		v, err := opcua.ParseGUID(s)
		if err != nil {
			return nil, syntax(err)
		}
		return v, nil
	case opcua.TypeByteString:
		v, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return nil, syntax(err)
		}
		return v, nil
	case opcua.TypeNodeID:
		v, err := opcua.ParseNodeID(s)
		if err != nil {
			return nil, syntax(err)
		}
		return v, nil
	case opcua.TypeStatusCode:
		v, err := opcua.ParseStatusCode(s)
		if err != nil {
			return nil, syntax(err)
		}
		return v, nil
	case opcua.TypeQualifiedName:
		return parseQualifiedName(s), nil
	case opcua.TypeLocalizedText:
		return opcua.LocalizedText{Text: s}, nil
	case opcua.TypeExtensionObject:
		return parseStructure(a, []byte(s))
	}
	return nil, errors.Wrapf(opcua.ErrUnsupportedType, "%s", a.DataType)
}

func parseQualifiedName(s string) opcua.QualifiedName {
	if i := strings.IndexByte(s, ':'); i > 0 {
		if ns, err := strconv.ParseUint(s[:i], 10, 16); err == nil {
			return opcua.QualifiedName{NamespaceIndex: uint16(ns), Name: s[i+1:]}
		}
	}
	return opcua.QualifiedName{Name: s}
}

func narrowInt(t opcua.TypeID, v int64) interface{} {
	switch t {
	case opcua.TypeSByte:
		return int8(v)
	case opcua.TypeInt16:
		return int16(v)
	case opcua.TypeInt32:
		return int32(v)
	}
	return v
}

func narrowUint(t opcua.TypeID, v uint64) interface{} {
	switch t {
	case opcua.TypeByte:
		return uint8(v)
	case opcua.TypeUInt16:
		return uint16(v)
	case opcua.TypeUInt32:
		return uint32(v)
	}
	return v
}

// FormatValue renders a variant for display. Structures are shown as JSON.
func FormatValue(v opcua.Variant) string {
	if v.IsNull() {
		return "null"
	}
	if items, isArray := opcua.ArrayItems(v.Value); isArray {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = formatScalar(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return formatScalar(v.Value)
}

func formatScalar(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case []byte:
		return "0x" + hex.EncodeToString(v)
	case [16]byte:
		return opcua.NewGUIDNodeID(0, v).Text()[len("g="):]
	case opcua.NodeID:
		return v.Text()
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case opcua.StatusCode:
		return v.String()
	case opcua.LocalizedText:
		return strconv.Quote(v.Text)
	case opcua.QualifiedName:
		if v.NamespaceIndex == 0 {
			return v.Name
		}
		return fmt.Sprintf("%d:%s", v.NamespaceIndex, v.Name)
	case opcua.ExtensionObject:
		if v.Value != nil {
			return formatScalar(v.Value)
		}
		return fmt.Sprintf("ExtensionObject(%s, %d bytes)", v.TypeID.Text(), len(v.Body))
	case opcua.Structure:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%T", v)
		}
		return string(data)
	}
	return fmt.Sprint(value)
}
