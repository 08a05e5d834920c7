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
	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call METHOD [ARGUMENT...]",
	Short: "Call a DI/FDI method on the simulated device",
	Long: `Call one DI/FDI method on a freshly configured simulated device and print
the call status and output arguments.

Scalars use their text form, node ids are written as "ns=4;s=Device",
arrays and structures as JSON.

Examples:
  edgeo-di call InitLock operator-1
  edgeo-di call GetEditContext Device -c device.yaml
  edgeo-di call RegisterNodes 0b6c... '[{"context":"ns=4;s=Device","path":"Setpoint"}]'
  edgeo-di call GetEditContext --binary 0c06000000446576696365`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCall,
}

var binaryArgs bool

func init() {
	callCmd.Flags().BoolVar(&binaryArgs, "binary", false, "Arguments and outputs are hex encoded binary Variants")
}

func runCall(cmd *cobra.Command, args []string) error {
	sim, err := newSimulator()
	if err != nil {
		return err
	}
	defer sim.Close()

	ctx, cancel := operationContext()
	defer cancel()

	if binaryArgs {
		desc, res, err := sim.callBinary(ctx, args[0], sim.object, args[1:])
		if err != nil {
			return err
		}
		return printBinary(cmd.OutOrStdout(), desc, res)
	}
	desc, res, err := sim.call(ctx, args[0], sim.object, args[1:])
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), desc, res)
	return nil
}
