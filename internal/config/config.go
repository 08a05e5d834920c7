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

// Package config holds the YAML configuration of the edgeo-di tool: the
// simulated device, adapter options, logging, and call scripts.
package config

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the root of a configuration file.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Adapter AdapterConfig `yaml:"adapter"`
	Device  DeviceConfig  `yaml:"device"`
}

// ---- LOGGING ----

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	Encoding    string `yaml:"encoding"` // json or console
}

// ---- ADAPTER ----

type AdapterConfig struct {
	SerializedCalls bool `yaml:"serialized_calls"`
	StrictOutputs   bool `yaml:"strict_outputs"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Object         string            `yaml:"object"` // node id of the device object
	Namespace      uint16            `yaml:"namespace"`
	PoolSize       int               `yaml:"pool_size"`
	AcquireTimeout time.Duration     `yaml:"acquire_timeout"`
	LockTimeout    time.Duration     `yaml:"lock_timeout"`
	AuditSize      int               `yaml:"audit_size"`
	Parameters     []ParameterConfig `yaml:"parameters"`
	Actions        []ActionConfig    `yaml:"actions"`
}

type ParameterConfig struct {
	Path     string `yaml:"path"`
	Type     string `yaml:"type"` // built-in type name, e.g. Double
	Value    string `yaml:"value"`
	ReadOnly bool   `yaml:"read_only"`
}

// ActionConfig declares a scripted action that completes after it has
// received Responses RespondAction calls.
type ActionConfig struct {
	Name      string `yaml:"name"`
	Responses int    `yaml:"responses"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Encoding == "" {
		cfg.Log.Encoding = "console"
	}
	d := &cfg.Device
	if d.Object == "" {
		d.Object = "ns=4;i=1000"
	}
	if d.Namespace == 0 {
		d.Namespace = 4
	}
	if d.PoolSize == 0 {
		d.PoolSize = 1
	}
	if d.AcquireTimeout == 0 {
		d.AcquireTimeout = time.Second
	}
	if d.LockTimeout == 0 {
		d.LockTimeout = 10 * time.Minute
	}
	if d.AuditSize == 0 {
		d.AuditSize = 256
	}
}

// Parse decodes a configuration, fills defaults and validates it. Unknown
// keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "config: decode")
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: open")
	}
	defer f.Close()
	return Parse(f)
}
