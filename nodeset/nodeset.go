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

// Package nodeset reads OPC UA information models in the UANodeSet XML format
// and generates Go constant tables from them.
package nodeset

import (
	"encoding/xml"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	opcua "github.com/edgeo-scada/opcua-di"
)

// Reference type names used to resolve the model.
const (
	refHasEncoding  = "HasEncoding"
	refHasComponent = "HasComponent"
)

// ErrInvalidNodeSet indicates a document that is not a usable UANodeSet.
var ErrInvalidNodeSet = errors.New("nodeset: invalid node set")

// Model is the subset of an information model needed for method binding:
// object types, their methods with argument lists, and structured data types.
// Node ids are kept as written in the document, with namespace indexes
// relative to NamespaceURIs (ns=1 is NamespaceURIs[0]).
type Model struct {
	NamespaceURIs []string
	Aliases       map[string]string
	ObjectTypes   []Node
	Methods       []Method
	DataTypes     []DataType
}

// NamespaceURI returns the URI of the model's own namespace.
func (m *Model) NamespaceURI() string {
	if len(m.NamespaceURIs) == 0 {
		return ""
	}
	return m.NamespaceURIs[0]
}

// Node is the common part of all node classes.
type Node struct {
	NodeID       opcua.NodeID
	BrowseName   opcua.QualifiedName
	SymbolicName string
}

// Name returns the symbolic name, falling back to the browse name.
func (n Node) Name() string {
	if n.SymbolicName != "" {
		return n.SymbolicName
	}
	return n.BrowseName.Name
}

// Method is a UAMethod node with its argument properties.
type Method struct {
	Node
	Parent     opcua.NodeID
	ParentName string
	Inputs     []Argument
	Outputs    []Argument
}

// Symbol returns the constant name of the method, "<Parent>_<Method>".
func (m Method) Symbol() string {
	if m.ParentName == "" {
		return identifier(m.Name())
	}
	return identifier(m.ParentName) + "_" + identifier(m.Name())
}

// Argument is one entry of an InputArguments or OutputArguments property.
type Argument struct {
	Name        string
	DataType    opcua.NodeID
	ValueRank   int32
	Description string
}

// BuiltInType returns the built-in type of the argument when its data type
// lives in namespace 0.
func (a Argument) BuiltInType() (opcua.TypeID, bool) {
	return BuiltInType(a.DataType)
}

// DataType is a UADataType node.
type DataType struct {
	Node
	Encoding opcua.NodeID
	Fields   []Field
}

// Symbol returns the constant name of the DefaultBinary encoding node.
func (d DataType) Symbol() string {
	return identifier(d.Name()) + "_Encoding_DefaultBinary"
}

// Field is one field of a structure definition.
type Field struct {
	Name      string
	DataType  opcua.NodeID
	ValueRank int32
}

// BuiltInType maps ns=0 data type ids 1..25 to the built-in type, and the
// Structure data type (i=22) to ExtensionObject.
func BuiltInType(id opcua.NodeID) (opcua.TypeID, bool) {
	if id.Namespace != 0 || id.Type != opcua.NodeIDTypeNumeric {
		return opcua.TypeNull, false
	}
	if id.Numeric >= 1 && id.Numeric <= uint32(opcua.TypeDiagnosticInfo) {
		return opcua.TypeID(id.Numeric), true
	}
	return opcua.TypeNull, false
}

type xmlNodeSet struct {
	XMLName       xml.Name      `xml:"UANodeSet"`
	NamespaceURIs []string      `xml:"NamespaceUris>Uri"`
	Aliases       []xmlAlias    `xml:"Aliases>Alias"`
	ObjectTypes   []xmlNode     `xml:"UAObjectType"`
	Objects       []xmlNode     `xml:"UAObject"`
	Methods       []xmlNode     `xml:"UAMethod"`
	Variables     []xmlVariable `xml:"UAVariable"`
	DataTypes     []xmlDataType `xml:"UADataType"`
}

type xmlAlias struct {
	Alias string `xml:"Alias,attr"`
	Value string `xml:",chardata"`
}

type xmlNode struct {
	NodeID       string         `xml:"NodeId,attr"`
	BrowseName   string         `xml:"BrowseName,attr"`
	SymbolicName string         `xml:"SymbolicName,attr"`
	ParentNodeID string         `xml:"ParentNodeId,attr"`
	References   []xmlReference `xml:"References>Reference"`
}

type xmlReference struct {
	ReferenceType string `xml:"ReferenceType,attr"`
	IsForward     string `xml:"IsForward,attr"`
	Target        string `xml:",chardata"`
}

type xmlVariable struct {
	xmlNode
	Arguments []xmlArgument `xml:"Value>ListOfExtensionObject>ExtensionObject>Body>Argument"`
}

type xmlArgument struct {
	Name        string `xml:"Name"`
	DataType    string `xml:"DataType>Identifier"`
	ValueRank   string `xml:"ValueRank"`
	Description string `xml:"Description>Text"`
}

type xmlDataType struct {
	xmlNode
	Fields []xmlField `xml:"Definition>Field"`
}

type xmlField struct {
	Name      string `xml:"Name,attr"`
	DataType  string `xml:"DataType,attr"`
	ValueRank string `xml:"ValueRank,attr"`
}

// Load parses a UANodeSet document.
func Load(r io.Reader) (*Model, error) {
	var doc xmlNodeSet
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(ErrInvalidNodeSet, err.Error())
	}
	if len(doc.NamespaceURIs) == 0 {
		return nil, errors.Wrap(ErrInvalidNodeSet, "no namespace URIs")
	}

	l := &loader{
		model: &Model{
			NamespaceURIs: doc.NamespaceURIs,
			Aliases:       make(map[string]string, len(doc.Aliases)),
		},
		names: make(map[string]string),
	}
	for _, a := range doc.Aliases {
		l.model.Aliases[a.Alias] = strings.TrimSpace(a.Value)
	}
	if err := l.load(&doc); err != nil {
		return nil, err
	}
	return l.model, nil
}

type loader struct {
	model *Model
	// names maps node id text to browse name for parent resolution.
	names map[string]string
}

func (l *loader) load(doc *xmlNodeSet) error {
	for _, n := range doc.ObjectTypes {
		node, err := l.node(n)
		if err != nil {
			return err
		}
		l.model.ObjectTypes = append(l.model.ObjectTypes, node)
	}
	encodings := make(map[string]string)
	for _, n := range doc.Objects {
		node, err := l.node(n)
		if err != nil {
			return err
		}
		encodings[node.NodeID.Text()] = node.BrowseName.Name
	}

	args := make(map[string]map[string][]Argument)
	for _, v := range doc.Variables {
		node, err := l.node(v.xmlNode)
		if err != nil {
			return err
		}
		if node.BrowseName.Name != "InputArguments" && node.BrowseName.Name != "OutputArguments" {
			continue
		}
		parent, err := l.nodeID(v.ParentNodeID)
		if err != nil {
			return errors.Wrapf(err, "%s parent", v.NodeID)
		}
		list, err := l.arguments(v.Arguments)
		if err != nil {
			return errors.Wrapf(err, "%s", v.NodeID)
		}
		key := parent.Text()
		if args[key] == nil {
			args[key] = make(map[string][]Argument)
		}
		args[key][node.BrowseName.Name] = list
	}

	for _, n := range doc.Methods {
		node, err := l.node(n)
		if err != nil {
			return err
		}
		m := Method{Node: node}
		if parent, ok, err := l.parent(n); err != nil {
			return err
		} else if ok {
			m.Parent = parent
			m.ParentName = l.names[parent.Text()]
		}
		m.Inputs = args[node.NodeID.Text()]["InputArguments"]
		m.Outputs = args[node.NodeID.Text()]["OutputArguments"]
		l.model.Methods = append(l.model.Methods, m)
	}

	for _, n := range doc.DataTypes {
		node, err := l.node(n.xmlNode)
		if err != nil {
			return err
		}
		dt := DataType{Node: node}
		for _, ref := range n.References {
			if ref.ReferenceType != refHasEncoding || ref.IsForward == "false" {
				continue
			}
			target, err := l.nodeID(ref.Target)
			if err != nil {
				return errors.Wrapf(err, "%s encoding", n.NodeID)
			}
			if encodings[target.Text()] == "Default Binary" {
				dt.Encoding = target
			}
		}
		for _, f := range n.Fields {
			field, err := l.field(f)
			if err != nil {
				return errors.Wrapf(err, "%s field %s", n.NodeID, f.Name)
			}
			dt.Fields = append(dt.Fields, field)
		}
		l.model.DataTypes = append(l.model.DataTypes, dt)
	}

	sort.SliceStable(l.model.Methods, func(i, j int) bool {
		return l.model.Methods[i].NodeID.Numeric < l.model.Methods[j].NodeID.Numeric
	})
	sort.SliceStable(l.model.DataTypes, func(i, j int) bool {
		return l.model.DataTypes[i].NodeID.Numeric < l.model.DataTypes[j].NodeID.Numeric
	})
	return nil
}

func (l *loader) node(n xmlNode) (Node, error) {
	id, err := l.nodeID(n.NodeID)
	if err != nil {
		return Node{}, err
	}
	node := Node{
		NodeID:       id,
		BrowseName:   parseBrowseName(n.BrowseName),
		SymbolicName: n.SymbolicName,
	}
	l.names[id.Text()] = node.Name()
	return node, nil
}

// parent resolves the owner of a method from ParentNodeId or an inverse
// HasComponent reference.
func (l *loader) parent(n xmlNode) (opcua.NodeID, bool, error) {
	if n.ParentNodeID != "" {
		id, err := l.nodeID(n.ParentNodeID)
		return id, err == nil, err
	}
	for _, ref := range n.References {
		if ref.ReferenceType == refHasComponent && ref.IsForward == "false" {
			id, err := l.nodeID(ref.Target)
			return id, err == nil, err
		}
	}
	return opcua.NodeID{}, false, nil
}

func (l *loader) nodeID(s string) (opcua.NodeID, error) {
	s = strings.TrimSpace(s)
	if alias, ok := l.model.Aliases[s]; ok {
		s = alias
	}
	id, err := opcua.ParseNodeID(s)
	if err != nil {
		return opcua.NodeID{}, errors.Wrap(ErrInvalidNodeSet, err.Error())
	}
	return id, nil
}

func (l *loader) arguments(list []xmlArgument) ([]Argument, error) {
	out := make([]Argument, 0, len(list))
	for _, a := range list {
		dt, err := l.nodeID(a.DataType)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %s", a.Name)
		}
		rank, err := valueRank(a.ValueRank)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %s", a.Name)
		}
		out = append(out, Argument{
			Name:        strings.TrimSpace(a.Name),
			DataType:    dt,
			ValueRank:   rank,
			Description: strings.TrimSpace(a.Description),
		})
	}
	return out, nil
}

func (l *loader) field(f xmlField) (Field, error) {
	dt, err := l.nodeID(f.DataType)
	if err != nil {
		return Field{}, err
	}
	rank, err := valueRank(f.ValueRank)
	if err != nil {
		return Field{}, err
	}
	return Field{Name: f.Name, DataType: dt, ValueRank: rank}, nil
}

func valueRank(s string) (int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidNodeSet, "value rank %q", s)
	}
	return int32(v), nil
}

func parseBrowseName(s string) opcua.QualifiedName {
	if i := strings.IndexByte(s, ':'); i > 0 {
		if ns, err := strconv.ParseUint(s[:i], 10, 16); err == nil {
			return opcua.QualifiedName{NamespaceIndex: uint16(ns), Name: s[i+1:]}
		}
	}
	return opcua.QualifiedName{Name: s}
}

// identifier turns a browse name into an exported Go identifier by dropping
// characters that are not letters or digits.
func identifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "X"
	}
	switch {
	case out[0] >= '0' && out[0] <= '9':
		out = "X" + out
	case out[0] >= 'a' && out[0] <= 'z':
		out = strings.ToUpper(out[:1]) + out[1:]
	}
	return out
}
