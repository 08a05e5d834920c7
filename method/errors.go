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
	"fmt"

	"github.com/pkg/errors"

	opcua "github.com/edgeo-scada/opcua-di"
)

// Common errors.
var (
	// ErrNotBound indicates a call on a method without a handler.
	ErrNotBound = errors.New("method: no handler bound")

	// ErrInvalidDescriptor indicates a descriptor that cannot drive the adapter.
	ErrInvalidDescriptor = errors.New("method: invalid descriptor")

	// ErrDuplicateMethod indicates a registry already holds the node id.
	ErrDuplicateMethod = errors.New("method: duplicate method node")

	// ErrWrongMethod indicates a typed binding applied to another method.
	ErrWrongMethod = errors.New("method: binding does not match method")
)

// ArgumentError reports an argument that could not be converted between its
// variant and native form.
type ArgumentError struct {
	Method     string
	Index      int
	Argument   string
	StatusCode opcua.StatusCode
	Err        error
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	msg := fmt.Sprintf("method: %s argument %d", e.Method, e.Index)
	if e.Argument != "" {
		msg += fmt.Sprintf(" (%s)", e.Argument)
	}
	msg += ": " + e.StatusCode.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the status code and the underlying cause.
func (e *ArgumentError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.StatusCode}
	}
	return []error{e.StatusCode, e.Err}
}

func mismatch(format string, args ...interface{}) error {
	return errors.Wrapf(opcua.StatusBadTypeMismatch, format, args...)
}
