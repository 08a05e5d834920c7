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

package method

import (
	"context"

	"go.uber.org/zap"

	opcua "github.com/edgeo-scada/opcua-di"
)

// Option is a functional option for configuring a method adapter.
type Option func(*methodOptions)

type methodOptions struct {
	logger     *zap.Logger
	notifier   ChangeNotifier
	serialized bool
	strict     bool
}

func defaultOptions() *methodOptions {
	return &methodOptions{
		logger:   zap.NewNop(),
		notifier: nopNotifier{},
	}
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *methodOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNotifier sets the receiver of node change notifications.
func WithNotifier(n ChangeNotifier) Option {
	return func(o *methodOptions) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithSerializedCalls runs at most one handler invocation at a time for the
// method.
func WithSerializedCalls(enabled bool) Option {
	return func(o *methodOptions) {
		o.serialized = enabled
	}
}

// WithStrictOutputs makes an output that cannot be encoded panic instead of
// failing the call with BadInternalError. Meant for development builds.
func WithStrictOutputs(enabled bool) Option {
	return func(o *methodOptions) {
		o.strict = enabled
	}
}

// FallbackFunc produces the result of a call on a method without a handler.
type FallbackFunc func(ctx context.Context, m *Method, req opcua.CallMethodRequest) opcua.CallMethodResult

// DefaultFallback answers BadNotImplemented.
func DefaultFallback(context.Context, *Method, opcua.CallMethodRequest) opcua.CallMethodResult {
	return opcua.CallMethodResult{StatusCode: opcua.StatusBadNotImplemented}
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	logger   *zap.Logger
	fallback FallbackFunc
}

func defaultRegistryOptions() *registryOptions {
	return &registryOptions{
		logger:   zap.NewNop(),
		fallback: DefaultFallback,
	}
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(logger *zap.Logger) RegistryOption {
	return func(o *registryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithFallback sets the handler of calls on unbound methods.
func WithFallback(f FallbackFunc) RegistryOption {
	return func(o *registryOptions) {
		if f != nil {
			o.fallback = f
		}
	}
}
