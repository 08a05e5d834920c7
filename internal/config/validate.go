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
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	opcua "github.com/edgeo-scada/opcua-di"
	"github.com/edgeo-scada/opcua-di/method"
)

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if _, err := zap.ParseAtomicLevel(cfg.Log.Level); err != nil {
		return errors.Errorf("log: invalid level %q", cfg.Log.Level)
	}
	switch cfg.Log.Encoding {
	case "json", "console":
	default:
		return errors.Errorf("log: invalid encoding %q", cfg.Log.Encoding)
	}

	d := cfg.Device
	if _, err := opcua.ParseNodeID(d.Object); err != nil {
		return errors.Wrapf(err, "device: object")
	}
	if d.Namespace == 0 {
		return errors.New("device: namespace 0 is reserved")
	}
	if d.PoolSize <= 0 {
		return errors.Errorf("device: pool_size must be positive, got %d", d.PoolSize)
	}
	if d.AuditSize <= 0 {
		return errors.Errorf("device: audit_size must be positive, got %d", d.AuditSize)
	}
	if d.AcquireTimeout <= 0 || d.LockTimeout <= 0 {
		return errors.New("device: timeouts must be positive")
	}

	paths := make(map[string]struct{}, len(d.Parameters))
	for i, p := range d.Parameters {
		path := strings.Trim(p.Path, "/")
		if path == "" {
			return errors.Errorf("device: parameter %d has no path", i)
		}
		if _, dup := paths[path]; dup {
			return errors.Errorf("device: duplicate parameter %q", path)
		}
		paths[path] = struct{}{}
		if _, err := p.Variant(); err != nil {
			return err
		}
	}

	actions := make(map[string]struct{}, len(d.Actions))
	for i, a := range d.Actions {
		if a.Name == "" {
			return errors.Errorf("device: action %d has no name", i)
		}
		if _, dup := actions[a.Name]; dup {
			return errors.Errorf("device: duplicate action %q", a.Name)
		}
		actions[a.Name] = struct{}{}
		if a.Responses < 0 {
			return errors.Errorf("device: action %q: responses must not be negative", a.Name)
		}
	}
	return nil
}

// Variant parses the configured value as the configured built-in type.
func (p ParameterConfig) Variant() (opcua.Variant, error) {
	t, err := opcua.ParseTypeID(p.Type)
	if err != nil {
		return opcua.Variant{}, errors.Wrapf(err, "device: parameter %q", p.Path)
	}
	if t == opcua.TypeNull || t == opcua.TypeExtensionObject {
		return opcua.Variant{}, errors.Errorf("device: parameter %q: type %s cannot be configured", p.Path, t)
	}
	v, err := method.ParseArgument(method.Argument{Name: p.Path, DataType: t, ValueRank: method.Scalar}, p.Value)
	if err != nil {
		return opcua.Variant{}, errors.Wrapf(err, "device: parameter %q", p.Path)
	}
	return v, nil
}

// ValidateScript checks a script. It does not mutate s.
func ValidateScript(s *Script) error {
	if len(s.Steps) == 0 {
		return errors.New("script: no steps")
	}
	for i, step := range s.Steps {
		switch {
		case step.Method != "" && step.Stage != nil:
			return errors.Errorf("script: step %d has both method and stage", i)
		case step.Method == "" && step.Stage == nil:
			return errors.Errorf("script: step %d has neither method nor stage", i)
		case step.Stage != nil:
			if step.Stage.EditContext == "" || step.Stage.Path == "" {
				return errors.Errorf("script: step %d: stage needs edit_context and path", i)
			}
			continue
		}
		if step.Object != "" {
			if _, err := opcua.ParseNodeID(step.Object); err != nil {
				return errors.Wrapf(err, "script: step %d: object", i)
			}
		}
		if step.Expect != "" {
			if _, err := opcua.ParseStatusCode(step.Expect); err != nil {
				return errors.Wrapf(err, "script: step %d: expect", i)
			}
		}
		for output, variable := range step.Save {
			if output == "" || variable == "" {
				return errors.Errorf("script: step %d: empty save entry", i)
			}
		}
	}
	return nil
}
