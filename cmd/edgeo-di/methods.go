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

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	opcua "github.com/edgeo-scada/opcua-di"
	"github.com/edgeo-scada/opcua-di/di"
	"github.com/edgeo-scada/opcua-di/method"
	"github.com/edgeo-scada/opcua-di/nodeset"
)

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List the DI/FDI method signatures",
	Long: `List the DI/FDI method signatures known to the toolkit. With --nodeset,
compare them with the methods declared in UANodeSet files.

Examples:
  edgeo-di methods
  edgeo-di methods --nodeset Opc.Ua.Di.NodeSet2.xml --nodeset Opc.Fdi7.NodeSet2.xml`,
	RunE: runMethods,
}

var methodsNodeSets []string

func init() {
	methodsCmd.Flags().StringArrayVar(&methodsNodeSets, "nodeset", nil, "UANodeSet file to compare against (can specify multiple)")
}

func runMethods(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	if len(methodsNodeSets) == 0 {
		for _, d := range di.Descriptors() {
			fmt.Fprintf(w, "%-24s %-14s (%s) -> (%s)\n", d.Name, d.NodeID.Text(), signature(d.Inputs), signature(d.Outputs))
		}
		return nil
	}

	known := make(map[string]method.Descriptor)
	for _, d := range di.Descriptors() {
		known[d.Name] = d
	}
	for _, path := range methodsNodeSets {
		model, err := loadNodeSet(path)
		if err != nil {
			return err
		}
		printComparison(w, model, known)
	}
	return nil
}

func loadNodeSet(path string) (*nodeset.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "nodeset")
	}
	defer f.Close()
	model, err := nodeset.Load(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return model, nil
}

func printComparison(w io.Writer, model *nodeset.Model, known map[string]method.Descriptor) {
	fmt.Fprintf(w, "%s\n", model.NamespaceURI())
	for _, m := range model.Methods {
		status := "missing"
		if d, ok := known[m.BrowseName.Name]; ok {
			status = compareMethod(d, m)
		}
		fmt.Fprintf(w, "  %-44s %s\n", m.Symbol(), status)
	}
}

// compareMethod checks arity, names, types and ranks of a descriptor against
// a node set method.
func compareMethod(d method.Descriptor, m nodeset.Method) string {
	if err := compareArguments(d.Inputs, m.Inputs); err != nil {
		return "inputs differ: " + err.Error()
	}
	if err := compareArguments(d.Outputs, m.Outputs); err != nil {
		return "outputs differ: " + err.Error()
	}
	return "ok"
}

func compareArguments(want []method.Argument, got []nodeset.Argument) error {
	if len(want) != len(got) {
		return errors.Errorf("%d arguments, node set has %d", len(want), len(got))
	}
	for i, a := range want {
		g := got[i]
		if a.Name != g.Name {
			return errors.Errorf("argument %d is %s, node set has %s", i, a.Name, g.Name)
		}
		t, builtIn := g.BuiltInType()
		if !builtIn {
			t = opcua.TypeExtensionObject
		}
		if t != a.DataType {
			return errors.Errorf("%s is %s, node set has %s", a.Name, a.DataType, t)
		}
		if (g.ValueRank > 0) != a.IsArray() {
			return errors.Errorf("%s has value rank %d", a.Name, g.ValueRank)
		}
	}
	return nil
}
