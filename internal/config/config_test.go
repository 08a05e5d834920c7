package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opcua "github.com/edgeo-scada/opcua-di"
)

const sampleConfig = `
log:
  level: debug
adapter:
  serialized_calls: true
device:
  lock_timeout: 30s
  parameters:
    - path: Device/Setpoint
      type: Double
      value: "1.5"
    - path: Device/Serial
      type: String
      value: SN-1
      read_only: true
  actions:
    - name: Calibrate
      responses: 1
`

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Encoding)
	assert.True(t, cfg.Adapter.SerializedCalls)
	assert.False(t, cfg.Adapter.StrictOutputs)
	assert.Equal(t, "ns=4;i=1000", cfg.Device.Object)
	assert.Equal(t, uint16(4), cfg.Device.Namespace)
	assert.Equal(t, 30*time.Second, cfg.Device.LockTimeout)
	assert.Equal(t, time.Second, cfg.Device.AcquireTimeout)
	require.Len(t, cfg.Device.Parameters, 2)
	assert.True(t, cfg.Device.Parameters[1].ReadOnly)
	assert.Equal(t, []ActionConfig{{Name: "Calibrate", Responses: 1}}, cfg.Device.Actions)

	v, err := cfg.Device.Parameters[0].Variant()
	require.NoError(t, err)
	assert.Equal(t, opcua.Variant{Type: opcua.TypeDouble, Value: 1.5}, v)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader("device:\n  colour: red\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log encoding", func(c *Config) { c.Log.Encoding = "xml" }},
		{"object", func(c *Config) { c.Device.Object = "ns=x" }},
		{"namespace", func(c *Config) { c.Device.Namespace = 0 }},
		{"pool size", func(c *Config) { c.Device.PoolSize = -1 }},
		{"audit size", func(c *Config) { c.Device.AuditSize = 0 }},
		{"timeout", func(c *Config) { c.Device.LockTimeout = -time.Second }},
		{"empty path", func(c *Config) {
			c.Device.Parameters = []ParameterConfig{{Path: "/", Type: "Int32", Value: "1"}}
		}},
		{"duplicate path", func(c *Config) {
			c.Device.Parameters = []ParameterConfig{
				{Path: "A", Type: "Int32", Value: "1"},
				{Path: "/A/", Type: "Int32", Value: "2"},
			}
		}},
		{"unknown type", func(c *Config) {
			c.Device.Parameters = []ParameterConfig{{Path: "A", Type: "Decimal", Value: "1"}}
		}},
		{"structure type", func(c *Config) {
			c.Device.Parameters = []ParameterConfig{{Path: "A", Type: "ExtensionObject", Value: "{}"}}
		}},
		{"bad value", func(c *Config) {
			c.Device.Parameters = []ParameterConfig{{Path: "A", Type: "Int16", Value: "70000"}}
		}},
		{"unnamed action", func(c *Config) { c.Device.Actions = []ActionConfig{{}} }},
		{"duplicate action", func(c *Config) { c.Device.Actions = []ActionConfig{{Name: "A"}, {Name: "A"}} }},
		{"negative responses", func(c *Config) { c.Device.Actions = []ActionConfig{{Name: "A", Responses: -1}} }},
	}

	require.NoError(t, Validate(Default()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

const sampleScript = `
steps:
  - method: GetEditContext
    inputs: [Device]
    save: {editContextId: ctx}
  - stage: {edit_context: $ctx, path: Device/Setpoint, value: "2.5"}
  - method: Apply
    inputs: [$ctx]
    expect: Good
  - method: Transfer
    object: ns=4;i=2000
    inputs: [ping]
    expect: BadInvalidState
`

func TestParseScript(t *testing.T) {
	s, err := ParseScript(strings.NewReader(sampleScript))
	require.NoError(t, err)
	require.Len(t, s.Steps, 4)
	assert.Equal(t, map[string]string{"editContextId": "ctx"}, s.Steps[0].Save)
	assert.Equal(t, &StageConfig{EditContext: "$ctx", Path: "Device/Setpoint", Value: "2.5"}, s.Steps[1].Stage)
	assert.Equal(t, "ns=4;i=2000", s.Steps[3].Object)
}

func TestValidateScript(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"empty", "steps: []"},
		{"both", "steps: [{method: Apply, stage: {edit_context: a, path: b}}]"},
		{"neither", "steps: [{inputs: [a]}]"},
		{"incomplete stage", "steps: [{stage: {path: b}}]"},
		{"bad object", "steps: [{method: Apply, object: 'ns=x'}]"},
		{"bad expect", "steps: [{method: Apply, expect: Sunny}]"},
		{"empty save", "steps: [{method: Apply, save: {applyStatus: ''}}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript(strings.NewReader(tt.script))
			assert.Error(t, err)
		})
	}
}
