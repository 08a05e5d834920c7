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
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edgeo-scada/opcua-di/nodeset"
)

var genCmd = &cobra.Command{
	Use:   "gen FILE...",
	Short: "Generate Go node id constants from UANodeSet files",
	Long: `Generate a Go file with the numeric node ids of the methods and data type
encodings declared in UANodeSet files.

Examples:
  edgeo-di gen --package di --output ids_gen.go schema/Opc.Ua.Di.NodeSet2.xml schema/Opc.Fdi7.NodeSet2.xml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGen,
}

var (
	genPackage string
	genOutput  string
)

func init() {
	genCmd.Flags().StringVar(&genPackage, "package", "", "Package name of the generated file")
	genCmd.Flags().StringVar(&genOutput, "output", "", "Output file (default stdout)")
	genCmd.MarkFlagRequired("package")
}

func runGen(cmd *cobra.Command, args []string) error {
	models := make([]*nodeset.Model, 0, len(args))
	for _, path := range args {
		model, err := loadNodeSet(path)
		if err != nil {
			return err
		}
		models = append(models, model)
	}

	src, err := nodeset.Generate(models, nodeset.Options{Package: genPackage})
	if err != nil {
		return err
	}
	if genOutput == "" || genOutput == "-" {
		_, err = cmd.OutOrStdout().Write(src)
		return err
	}
	return errors.Wrap(os.WriteFile(genOutput, src, 0o644), "write")
}
