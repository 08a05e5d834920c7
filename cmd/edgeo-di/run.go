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
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	opcua "github.com/edgeo-scada/opcua-di"
	"github.com/edgeo-scada/opcua-di/internal/config"
	"github.com/edgeo-scada/opcua-di/method"
)

var runCmd = &cobra.Command{
	Use:   "run SCRIPT",
	Short: "Run a YAML call script against the simulated device",
	Long: `Run a sequence of method calls and staged edits against one simulated
device. Outputs can be saved into variables and used as "$name" in later
steps. A step fails when its status differs from "expect", or is Bad when
no expectation is given.

Example script:
  steps:
    - method: GetEditContext
      inputs: [Device]
      save: {editContextId: ctx}
    - stage: {edit_context: $ctx, path: Device/Setpoint, value: "2.5"}
    - method: Apply
      inputs: [$ctx]`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	script, err := config.LoadScript(args[0])
	if err != nil {
		return err
	}
	sim, err := newSimulator()
	if err != nil {
		return err
	}
	defer sim.Close()

	ctx, cancel := operationContext()
	defer cancel()
	return sim.run(ctx, cmd.OutOrStdout(), script)
}

// run executes the steps of script in order and stops at the first failure.
func (s *simulator) run(ctx context.Context, w io.Writer, script *config.Script) error {
	vars := make(map[string]string)
	for i, step := range script.Steps {
		var err error
		if step.Stage != nil {
			err = s.stage(w, vars, step.Stage)
		} else {
			err = s.runStep(ctx, w, vars, step)
		}
		if err != nil {
			return errors.Wrapf(err, "step %d", i+1)
		}
	}
	return nil
}

func (s *simulator) stage(w io.Writer, vars map[string]string, st *config.StageConfig) error {
	editContext, err := expand(vars, st.EditContext)
	if err != nil {
		return err
	}
	value, err := expand(vars, st.Value)
	if err != nil {
		return err
	}
	p, ok := s.dev.Parameter(st.Path)
	if !ok {
		return errors.Errorf("unknown parameter %s", st.Path)
	}
	v, err := method.ParseArgument(method.Argument{Name: st.Path, DataType: p.Value.Type, ValueRank: method.Scalar}, value)
	if err != nil {
		return err
	}
	if err := s.dev.Stage(editContext, st.Path, v.Value); err != nil {
		return err
	}
	fmt.Fprintf(w, "stage %s = %s\n", p.Path, method.FormatValue(v))
	return nil
}

func (s *simulator) runStep(ctx context.Context, w io.Writer, vars map[string]string, step config.StepConfig) error {
	object := s.object
	if step.Object != "" {
		var err error
		if object, err = opcua.ParseNodeID(step.Object); err != nil {
			return err
		}
	}
	inputs := make([]string, len(step.Inputs))
	for i, in := range step.Inputs {
		v, err := expand(vars, in)
		if err != nil {
			return err
		}
		inputs[i] = v
	}

	desc, res, err := s.call(ctx, step.Method, object, inputs)
	if err != nil {
		return err
	}
	printResult(w, desc, res)

	if step.Expect != "" {
		want, err := opcua.ParseStatusCode(step.Expect)
		if err != nil {
			return err
		}
		if res.StatusCode != want {
			return errors.Errorf("%s returned %s, expected %s", desc.Name, res.StatusCode.String(), want.String())
		}
	} else if res.StatusCode.IsBad() {
		return errors.Wrap(res.StatusCode, desc.Name)
	}

	for output, variable := range step.Save {
		i := outputIndex(desc, output)
		if i < 0 {
			return errors.Errorf("%s has no output %s", desc.Name, output)
		}
		if i >= len(res.OutputArguments) {
			return errors.Errorf("%s returned no outputs", desc.Name)
		}
		vars[variable] = plainText(res.OutputArguments[i])
	}
	return nil
}

func outputIndex(desc method.Descriptor, name string) int {
	for i, a := range desc.Outputs {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// plainText renders a value so that ParseArgument reads it back.
func plainText(v opcua.Variant) string {
	switch x := v.Value.(type) {
	case string:
		return x
	case opcua.NodeID:
		return x.Text()
	}
	return method.FormatValue(v)
}

// expand replaces a "$name" reference with the saved variable.
func expand(vars map[string]string, s string) (string, error) {
	if !strings.HasPrefix(s, "$") {
		return s, nil
	}
	v, ok := vars[s[1:]]
	if !ok {
		return "", errors.Errorf("undefined variable %s", s)
	}
	return v, nil
}
