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

	"github.com/pkg/errors"
	"go.uber.org/zap"

	opcua "github.com/edgeo-scada/opcua-di"
)

// Handler implements a method. It reads decoded inputs from c.Inputs, writes
// results into c.Outputs and returns the status of the call. Output values
// must keep the Go type declared by the descriptor.
type Handler func(c *Call) opcua.StatusCode

// Call is the invocation context handed to a Handler.
type Call struct {
	Context  context.Context
	Method   *Method
	ObjectID opcua.NodeID

	// Inputs holds one decoded value per declared input, in order.
	Inputs []interface{}
	// Outputs is seeded from the current output slots and copied back after
	// the handler returns.
	Outputs []interface{}

	Logger *zap.Logger
}

// In returns input i as T. It panics if the declared type is not T.
func In[T any](c *Call, i int) T {
	return c.Inputs[i].(T)
}

// Out returns output i as T, or the zero T if the slot holds another type.
func Out[T any](c *Call, i int) T {
	v, _ := c.Outputs[i].(T)
	return v
}

// SetOut stores v into output i.
func SetOut[T any](c *Call, i int, v T) {
	c.Outputs[i] = v
}

// Result is the outcome of one invocation.
type Result struct {
	// StatusCode is the call-level status returned to the client.
	StatusCode opcua.StatusCode
	// InputArgumentResults is set when individual inputs were rejected.
	InputArgumentResults []opcua.StatusCode
	// Invoked reports whether the handler ran. Output slots are only written
	// when it did.
	Invoked bool
	Err     error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.StatusCode.IsGood()
}

// Fallback reports whether no handler was bound.
func (r Result) Fallback() bool {
	return errors.Is(r.Err, ErrNotBound)
}

// Error returns the failure reason, or nil.
func (r Result) Error() error {
	if r.Err != nil {
		return r.Err
	}
	if r.StatusCode.IsBad() {
		return r.StatusCode
	}
	return nil
}
