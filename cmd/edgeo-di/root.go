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
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string
	verbose    bool
	objectID   string
	timeout    int
)

var rootCmd = &cobra.Command{
	Use:   "edgeo-di",
	Short: "OPC UA DI/FDI method toolkit",
	Long: `Inspect and exercise the OPC UA DI and FDI method set against a
simulated device, and generate node id tables from node set files.

Examples:
  edgeo-di methods
  edgeo-di methods --nodeset Opc.Ua.Di.NodeSet2.xml
  edgeo-di call InitLock operator-1
  edgeo-di run -c device.yaml script.yaml
  edgeo-di gen --package di --output ids_gen.go schema/*.xml`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Device configuration file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&objectID, "object", "o", "", "Node ID of the device object (overrides the configuration)")
	rootCmd.PersistentFlags().IntVarP(&timeout, "timeout", "t", 5000, "Operation timeout in milliseconds")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("object", rootCmd.PersistentFlags().Lookup("object"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	rootCmd.AddCommand(methodsCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	viper.SetEnvPrefix("EDGEO_DI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
