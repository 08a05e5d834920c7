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

// Package di describes the OPC UA Device Integration (DI) and Field Device
// Integration (FDI) methods: their node ids, argument lists, structured data
// types and typed handler bindings.
package di

//go:generate go run ../cmd/edgeo-di gen --package di --output ids_gen.go schema/Opc.Ua.Di.NodeSet2.xml schema/Opc.Fdi7.NodeSet2.xml

import (
	"embed"

	opcua "github.com/edgeo-scada/opcua-di"
)

// Namespace URIs of the companion specifications.
const (
	NamespaceDI   = "http://opcfoundation.org/UA/DI/"
	NamespaceFDI5 = "http://fdi-cooperation.com/OPCUA/FDI5/"
	NamespaceFDI7 = "http://fdi-cooperation.com/OPCUA/FDI7/"
)

// Namespace indexes under which hosts register the DI and FDI7 models.
const (
	NamespaceIndexDI  uint16 = 2
	NamespaceIndexFDI uint16 = 3
)

// Schema holds the node-set excerpts ids_gen.go is generated from.
//
//go:embed schema/*.xml
var Schema embed.FS

// SchemaFiles lists the node-set files in Schema, in namespace index order.
var SchemaFiles = []string{
	"schema/Opc.Ua.Di.NodeSet2.xml",
	"schema/Opc.Fdi7.NodeSet2.xml",
}

// NamespaceURIs returns the URIs in namespace index order, starting at
// NamespaceIndexDI.
func NamespaceURIs() []string {
	return []string{NamespaceDI, NamespaceFDI7}
}

// DINode returns the node id of a DI model node.
func DINode(id uint32) opcua.NodeID {
	return opcua.NewNumericNodeID(NamespaceIndexDI, id)
}

// FDINode returns the node id of an FDI7 model node.
func FDINode(id uint32) opcua.NodeID {
	return opcua.NewNumericNodeID(NamespaceIndexFDI, id)
}

// BrowseName returns the browse name of a generated node, if known.
func BrowseName(id opcua.NodeID) (string, bool) {
	if id.Type != opcua.NodeIDTypeNumeric {
		return "", false
	}
	var uri string
	switch id.Namespace {
	case NamespaceIndexDI:
		uri = NamespaceDI
	case NamespaceIndexFDI:
		uri = NamespaceFDI7
	default:
		return "", false
	}
	name, ok := BrowseNames[uri][id.Numeric]
	return name, ok
}
