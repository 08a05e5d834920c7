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
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	opcua "github.com/edgeo-scada/opcua-di"
	"github.com/edgeo-scada/opcua-di/device"
	"github.com/edgeo-scada/opcua-di/di"
	"github.com/edgeo-scada/opcua-di/internal/config"
	"github.com/edgeo-scada/opcua-di/method"
)

// loadConfig reads the file named by --config or EDGEO_DI_CONFIG, or
// returns the defaults.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development || viper.GetBool("verbose") {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	zc.Level = level
	if viper.GetBool("verbose") {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zc.Encoding = cfg.Encoding
	return zc.Build()
}

// simulator is a registry with the DI/FDI methods bound to a simulated device.
type simulator struct {
	logger *zap.Logger
	reg    *method.Registry
	dev    *device.Device
	object opcua.NodeID
}

func newSimulator() (*simulator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	object := cfg.Device.Object
	if o := viper.GetString("object"); o != "" {
		object = o
	}
	objectNode, err := opcua.ParseNodeID(object)
	if err != nil {
		return nil, errors.Wrap(err, "object")
	}

	reg := method.NewRegistry(method.WithRegistryLogger(logger.Named("registry")))
	notifier := method.NotifierFunc(func(id opcua.NodeID, mask method.ChangeMask) {
		logger.Debug("method node changed", zap.String("node", id.Text()), zap.Stringer("mask", mask))
	})
	err = di.Register(reg,
		method.WithLogger(logger.Named("method")),
		method.WithNotifier(notifier),
		method.WithSerializedCalls(cfg.Adapter.SerializedCalls),
		method.WithStrictOutputs(cfg.Adapter.StrictOutputs))
	if err != nil {
		return nil, err
	}

	dc := cfg.Device
	dev, err := device.New(
		device.WithLogger(logger.Named("device")),
		device.WithNamespace(dc.Namespace),
		device.WithPoolSize(dc.PoolSize),
		device.WithAcquireTimeout(dc.AcquireTimeout),
		device.WithLockTimeout(dc.LockTimeout),
		device.WithAuditSize(dc.AuditSize))
	if err != nil {
		return nil, err
	}
	for _, p := range dc.Parameters {
		v, err := p.Variant()
		if err != nil {
			return nil, err
		}
		if err := dev.SetParameter(p.Path, v.Value, p.ReadOnly); err != nil {
			return nil, err
		}
	}
	for _, a := range dc.Actions {
		dev.HandleAction(a.Name, scriptedAction(a.Responses))
	}
	if err := dev.Attach(reg); err != nil {
		return nil, err
	}

	return &simulator{logger: logger, reg: reg, dev: dev, object: objectNode}, nil
}

func (s *simulator) Close() {
	s.dev.Close()
	s.logger.Sync()
}

// scriptedAction completes after n responses.
func scriptedAction(n int) device.ActionFunc {
	return func(ctx context.Context, _ string, responses <-chan string) error {
		for i := 0; i < n; i++ {
			select {
			case <-responses:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
}

// call parses text arguments against the method signature and invokes it
// through the registry. Missing arguments are left to the adapter to report.
func (s *simulator) call(ctx context.Context, name string, object opcua.NodeID, args []string) (method.Descriptor, opcua.CallMethodResult, error) {
	desc, err := s.lookup(name, len(args))
	if err != nil {
		return desc, opcua.CallMethodResult{}, err
	}
	in := make([]opcua.Variant, len(args))
	for i, text := range args {
		v, err := method.ParseArgument(desc.Inputs[i], text)
		if err != nil {
			return desc, opcua.CallMethodResult{}, err
		}
		in[i] = v
	}
	return desc, s.invoke(ctx, desc, object, in), nil
}

// callBinary is like call but takes each argument as a hex encoded binary
// Variant, the form it has inside a Call request on the wire.
func (s *simulator) callBinary(ctx context.Context, name string, object opcua.NodeID, args []string) (method.Descriptor, opcua.CallMethodResult, error) {
	desc, err := s.lookup(name, len(args))
	if err != nil {
		return desc, opcua.CallMethodResult{}, err
	}
	in, err := decodeBinary(args)
	if err != nil {
		return desc, opcua.CallMethodResult{}, err
	}
	return desc, s.invoke(ctx, desc, object, in), nil
}

func (s *simulator) lookup(name string, argc int) (method.Descriptor, error) {
	m, ok := s.reg.LookupName(name)
	if !ok {
		return method.Descriptor{}, errors.Errorf("unknown method %q", name)
	}
	desc := m.Descriptor()
	if argc > len(desc.Inputs) {
		return desc, errors.Errorf("%s takes %d arguments, got %d", name, len(desc.Inputs), argc)
	}
	return desc, nil
}

func (s *simulator) invoke(ctx context.Context, desc method.Descriptor, object opcua.NodeID, in []opcua.Variant) opcua.CallMethodResult {
	results := s.reg.Call(ctx, []opcua.CallMethodRequest{{
		ObjectID:       object,
		MethodID:       desc.NodeID,
		InputArguments: in,
	}})
	return results[0]
}

func decodeBinary(args []string) ([]opcua.Variant, error) {
	in := make([]opcua.Variant, len(args))
	for i, text := range args {
		data, err := hex.DecodeString(strings.TrimPrefix(text, "0x"))
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i+1)
		}
		d := opcua.NewDecoder(data)
		v, err := d.ReadVariant()
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i+1)
		}
		if d.Remaining() != 0 {
			return nil, errors.Errorf("argument %d: %d trailing bytes", i+1, d.Remaining())
		}
		in[i] = v
	}
	return in, nil
}

// printBinary prints the status and each output as a hex encoded binary
// Variant.
func printBinary(w io.Writer, desc method.Descriptor, res opcua.CallMethodResult) error {
	fmt.Fprintf(w, "%s: %s\n", desc.Name, res.StatusCode.String())
	e := opcua.NewEncoder()
	for i, v := range res.OutputArguments {
		e.Reset()
		e.WriteVariant(v)
		if err := e.Err(); err != nil {
			return errors.Wrap(err, desc.Outputs[i].Name)
		}
		fmt.Fprintf(w, "  %s = %s\n", desc.Outputs[i].Name, hex.EncodeToString(e.Bytes()))
	}
	return nil
}

func operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(viper.GetInt("timeout"))*time.Millisecond)
}

func printResult(w io.Writer, desc method.Descriptor, res opcua.CallMethodResult) {
	fmt.Fprintf(w, "%s: %s\n", desc.Name, res.StatusCode.String())
	for i, sc := range res.InputArgumentResults {
		if sc.IsBad() && i < len(desc.Inputs) {
			fmt.Fprintf(w, "  input %s: %s\n", desc.Inputs[i].Name, sc.String())
		}
	}
	for i, v := range res.OutputArguments {
		fmt.Fprintf(w, "  %s (%s) = %s\n", desc.Outputs[i].Name, desc.Outputs[i].TypeName(), method.FormatValue(v))
	}
}

func signature(args []method.Argument) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Name + " " + a.TypeName()
	}
	return strings.Join(parts, ", ")
}
