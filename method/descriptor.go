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
	"github.com/pkg/errors"

	opcua "github.com/edgeo-scada/opcua-di"
)

// Value ranks supported for method arguments.
const (
	Scalar int32 = -1
	Array  int32 = 1
)

// Argument describes one positional input or output of a method.
type Argument struct {
	Name        string
	DataType    opcua.TypeID
	ValueRank   int32
	Optional    bool
	Description string

	// New allocates an empty structure for ExtensionObject arguments. It is
	// required when DataType is opcua.TypeExtensionObject.
	New func() opcua.Structure
}

// IsArray reports whether the argument is a one-dimensional array.
func (a Argument) IsArray() bool {
	return a.ValueRank == Array
}

// TypeName returns the argument type as shown to operators, such as
// "Int32", "String[]" or "RegistrationParameters[]".
func (a Argument) TypeName() string {
	name := a.DataType.String()
	if a.DataType == opcua.TypeExtensionObject && a.New != nil {
		name = structName(a.New())
	}
	if a.IsArray() {
		name += "[]"
	}
	return name
}

// Descriptor is the immutable signature of a method: its name, node and
// ordered argument lists.
type Descriptor struct {
	Name    string
	NodeID  opcua.NodeID
	Inputs  []Argument
	Outputs []Argument
}

// Validate checks that the descriptor can drive the adapter.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return errors.Wrap(ErrInvalidDescriptor, "empty method name")
	}
	if err := validateArguments(d.Inputs); err != nil {
		return errors.Wrapf(err, "%s inputs", d.Name)
	}
	if err := validateArguments(d.Outputs); err != nil {
		return errors.Wrapf(err, "%s outputs", d.Name)
	}
	return nil
}

func validateArguments(args []Argument) error {
	seen := make(map[string]struct{}, len(args))
	for i, a := range args {
		if a.Name == "" {
			return errors.Wrapf(ErrInvalidDescriptor, "argument %d has no name", i)
		}
		if _, dup := seen[a.Name]; dup {
			return errors.Wrapf(ErrInvalidDescriptor, "duplicate argument %q", a.Name)
		}
		seen[a.Name] = struct{}{}

		if a.ValueRank != Scalar && a.ValueRank != Array {
			return errors.Wrapf(ErrInvalidDescriptor, "argument %q: value rank %d", a.Name, a.ValueRank)
		}
		if !supportedType(a.DataType) {
			return errors.Wrapf(ErrInvalidDescriptor, "argument %q: data type %s", a.Name, a.DataType)
		}
		if a.DataType == opcua.TypeExtensionObject && a.New == nil {
			return errors.Wrapf(ErrInvalidDescriptor, "argument %q: structure without constructor", a.Name)
		}
	}
	return nil
}

func supportedType(t opcua.TypeID) bool {
	switch t {
	case opcua.TypeNull, opcua.TypeXMLElement, opcua.TypeExpandedNodeID,
		opcua.TypeDataValue, opcua.TypeVariant, opcua.TypeDiagnosticInfo:
		return false
	}
	return t <= opcua.TypeDiagnosticInfo
}

func (d Descriptor) clone() Descriptor {
	c := d
	c.Inputs = append([]Argument(nil), d.Inputs...)
	c.Outputs = append([]Argument(nil), d.Outputs...)
	return c
}
