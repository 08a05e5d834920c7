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

package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Script is a sequence of steps run against the simulated device.
type Script struct {
	Steps []StepConfig `yaml:"steps"`
}

// StepConfig is either a method call or a staged edit. Inputs and stage
// fields may reference saved variables as "$name".
type StepConfig struct {
	Method string            `yaml:"method"`
	Object string            `yaml:"object"` // defaults to the device object
	Inputs []string          `yaml:"inputs"`
	Expect string            `yaml:"expect"` // status name or hex code
	Save   map[string]string `yaml:"save"`   // output name -> variable

	Stage *StageConfig `yaml:"stage"`
}

// StageConfig writes a pending value into an edit context.
type StageConfig struct {
	EditContext string `yaml:"edit_context"`
	Path        string `yaml:"path"`
	Value       string `yaml:"value"`
}

// ParseScript decodes and validates a script.
func ParseScript(r io.Reader) (*Script, error) {
	s := &Script{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, errors.Wrap(err, "script: decode")
	}
	if err := ValidateScript(s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadScript reads the script file at path.
func LoadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "script: open")
	}
	defer f.Close()
	return ParseScript(f)
}
