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

// Package method binds OPC UA Method nodes to Go handlers.
//
// A Method adapts the variant-typed Call service arguments to a Handler that
// works on native Go values. The adapter decodes inputs positionally against a
// Descriptor, seeds the outputs from the current slots, runs the handler once
// and encodes the outputs back, whatever status the handler returned.
package method

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	opcua "github.com/edgeo-scada/opcua-di"
)

// Method is the invocation adapter of one method node.
type Method struct {
	desc    Descriptor
	opts    *methodOptions
	logger  *zap.Logger
	handler atomic.Pointer[Handler]
	callMu  sync.Mutex
	metrics *MethodMetrics
}

// New creates an adapter for desc. The descriptor is copied.
func New(desc Descriptor, opts ...Option) (*Method, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	desc = desc.clone()
	return &Method{
		desc:    desc,
		opts:    o,
		logger:  o.logger.With(zap.String("method", desc.Name), zap.String("node", desc.NodeID.Text())),
		metrics: NewMethodMetrics(),
	}, nil
}

// MustNew is like New but panics on an invalid descriptor.
func MustNew(desc Descriptor, opts ...Option) *Method {
	m, err := New(desc, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Descriptor returns a copy of the method signature.
func (m *Method) Descriptor() Descriptor {
	return m.desc.clone()
}

// Name returns the method browse name.
func (m *Method) Name() string {
	return m.desc.Name
}

// NodeID returns the method node id.
func (m *Method) NodeID() opcua.NodeID {
	return m.desc.NodeID
}

// Metrics returns the adapter metrics.
func (m *Method) Metrics() *MethodMetrics {
	return m.metrics
}

// Bind installs h as the handler, replacing any previous one. A nil h
// unbinds.
func (m *Method) Bind(h Handler) {
	if h == nil {
		m.Unbind()
		return
	}
	prev := m.handler.Swap(&h)
	mask := ChangeHandler
	if prev == nil {
		mask |= ChangeExecutable
	}
	m.logger.Debug("handler bound")
	m.opts.notifier.NodeChanged(m.desc.NodeID, mask)
}

// Unbind removes the handler. Later calls take the fallback path.
func (m *Method) Unbind() {
	if prev := m.handler.Swap(nil); prev == nil {
		return
	}
	m.logger.Debug("handler unbound")
	m.opts.notifier.NodeChanged(m.desc.NodeID, ChangeHandler|ChangeExecutable)
}

// Bound reports whether a handler is installed. It mirrors the Executable
// attribute of the node.
func (m *Method) Bound() bool {
	return m.handler.Load() != nil
}

// Call invokes the bound handler with the given arguments.
//
// out must have exactly one slot per declared output. It is written only when
// the handler runs, and then always, even if the handler reports a failure.
// in is never modified.
func (m *Method) Call(ctx context.Context, objectID opcua.NodeID, in, out []opcua.Variant) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	m.metrics.Calls.Add(1)
	defer func() {
		m.metrics.Latency.Observe(time.Since(start))
	}()

	h := m.handler.Load()
	if h == nil {
		m.metrics.Fallbacks.Add(1)
		m.logger.Debug("call on unbound method")
		return Result{StatusCode: opcua.StatusBadNotImplemented, Err: ErrNotBound}
	}

	if len(out) != len(m.desc.Outputs) {
		m.metrics.EncodeErrors.Add(1)
		err := errors.Wrapf(opcua.StatusBadInternalError, "method: %s has %d outputs, got %d slots",
			m.desc.Name, len(m.desc.Outputs), len(out))
		m.logger.Error("output slot count mismatch", zap.Error(err))
		return Result{StatusCode: opcua.StatusBadInternalError, Err: err}
	}

	inputs, argResults, err := DecodeInputs(m.desc, in)
	if err != nil {
		m.metrics.DecodeErrors.Add(1)
		status := opcua.StatusOf(err)
		if argResults != nil {
			status = opcua.StatusBadInvalidArgument
		}
		m.logger.Debug("input decode failed", zap.Stringer("status", status), zap.Error(err))
		return Result{StatusCode: status, InputArgumentResults: argResults, Err: err}
	}

	outputs := make([]interface{}, len(out))
	for i, a := range m.desc.Outputs {
		outputs[i] = seedOutput(a, out[i])
	}

	c := &Call{
		Context:  ctx,
		Method:   m,
		ObjectID: objectID,
		Inputs:   inputs,
		Outputs:  outputs,
		Logger:   m.logger,
	}
	status := m.invoke(*h, c)

	if err := m.encodeOutputs(c.Outputs, out); err != nil {
		if m.opts.strict {
			panic(err)
		}
		m.metrics.EncodeErrors.Add(1)
		m.logger.Error("output encode failed", zap.Stringer("handler_status", status), zap.Error(err))
		return Result{StatusCode: opcua.StatusBadInternalError, Invoked: true, Err: err}
	}

	if status.IsBad() {
		m.metrics.Failures.Add(1)
		m.logger.Debug("handler failed", zap.Stringer("status", status))
		return Result{StatusCode: status, Invoked: true, Err: status}
	}
	m.metrics.Success.Add(1)
	return Result{StatusCode: status, Invoked: true}
}

func (m *Method) invoke(h Handler, c *Call) opcua.StatusCode {
	if m.opts.serialized {
		m.callMu.Lock()
		defer m.callMu.Unlock()
	}
	return h(c)
}

// encodeOutputs copies every encodable output into its slot and returns the
// first failure.
func (m *Method) encodeOutputs(values []interface{}, out []opcua.Variant) error {
	if len(values) != len(out) {
		return errors.Wrapf(opcua.StatusBadInternalError, "method: %s handler left %d outputs, want %d",
			m.desc.Name, len(values), len(out))
	}
	var first error
	for i, a := range m.desc.Outputs {
		v, err := EncodeOutput(a, values[i])
		if err != nil {
			if first == nil {
				first = &ArgumentError{
					Method:     m.desc.Name,
					Index:      i,
					Argument:   a.Name,
					StatusCode: opcua.StatusBadInternalError,
					Err:        err,
				}
			}
			continue
		}
		out[i] = v
	}
	return first
}
