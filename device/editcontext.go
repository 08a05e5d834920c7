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

package device

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	opcua "github.com/edgeo-scada/opcua-di"
	"github.com/edgeo-scada/opcua-di/di"
	"github.com/edgeo-scada/opcua-di/method"
)

// ErrUnknownEditContext is returned by Stage for ids that GetEditContext did
// not mint or that were discarded.
var ErrUnknownEditContext = errors.New("device: unknown edit context")

type editContext struct {
	id         string
	root       string
	created    time.Time
	registered map[string]struct{}
	staged     map[string]opcua.Variant
}

// EditContext describes an open edit context.
type EditContext struct {
	ID         string
	Root       string
	Created    time.Time
	Registered []string
	Staged     []string
}

// EditContexts returns the open edit contexts sorted by id.
func (d *Device) EditContexts() []EditContext {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]EditContext, 0, len(d.contexts))
	for _, ec := range d.contexts {
		out = append(out, EditContext{
			ID:         ec.id,
			Root:       ec.root,
			Created:    ec.created,
			Registered: sortedKeys(ec.registered),
			Staged:     sortedKeys(ec.staged),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stage records a pending value for path in an edit context. The value is
// committed by Apply and dropped by Reset or Discard.
func (d *Device) Stage(editContextID, path string, value interface{}) error {
	v, err := opcua.NewVariant(value)
	if err != nil {
		return errors.Wrapf(err, "device: stage %s", path)
	}
	path = cleanPath(path)

	d.mu.Lock()
	defer d.mu.Unlock()
	ec, ok := d.contexts[editContextID]
	if !ok {
		return errors.Wrapf(ErrUnknownEditContext, "%q", editContextID)
	}
	p, ok := d.params[path]
	if !ok {
		return errors.Wrapf(opcua.StatusBadNodeIdUnknown, "device: parameter %s", path)
	}
	if p.Value.Type != v.Type {
		return errors.Wrapf(opcua.StatusBadTypeMismatch, "device: parameter %s is %s, got %s", path, p.Value.Type, v.Type)
	}
	ec.staged[path] = v
	return nil
}

// resolve maps a node reference to a parameter path. References are either
// string node ids in the device namespace or plain paths.
func (d *Device) resolve(ref string) string {
	if id, err := opcua.ParseNodeID(ref); err == nil && id.Type == opcua.NodeIDTypeString && id.Namespace == d.opts.namespace {
		return cleanPath(id.String)
	}
	return cleanPath(ref)
}

// covers reports whether root names a parameter or a folder of parameters.
func (d *Device) covers(root string) bool {
	if root == "" {
		return true
	}
	if _, ok := d.params[root]; ok {
		return true
	}
	for path := range d.params {
		if len(path) > len(root) && path[:len(root)] == root && path[len(root)] == '/' {
			return true
		}
	}
	return false
}

func (d *Device) getEditContext(c *method.Call, nodeID string, editContextID *string, errorCode *int32) opcua.StatusCode {
	root := d.resolve(nodeID)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.covers(root) {
		*errorCode = CodeUnknownNode
		return opcua.StatusGood
	}
	ec := &editContext{
		id:         uuid.NewString(),
		root:       root,
		created:    d.opts.now(),
		registered: make(map[string]struct{}),
		staged:     make(map[string]opcua.Variant),
	}
	d.contexts[ec.id] = ec
	*editContextID = ec.id
	*errorCode = CodeOK

	d.logger.Debug("edit context opened", zap.String("edit_context", ec.id), zap.String("root", root))
	return opcua.StatusGood
}

func (d *Device) registerNodes(c *method.Call, editContextID string, nodes []di.RegistrationParameters, result *di.RegisterNodesResult) opcua.StatusCode {
	d.mu.Lock()
	defer d.mu.Unlock()

	ec, ok := d.contexts[editContextID]
	if !ok {
		*result = di.RegisterNodesResult{Status: CodeUnknownEditContext}
		return opcua.StatusGood
	}

	*result = di.RegisterNodesResult{Status: CodeOK, NodeIDs: make([]opcua.NodeID, len(nodes))}
	for i, n := range nodes {
		base := ec.root
		if !n.Context.IsNull() {
			base = d.resolve(n.Context.Text())
		}
		path := cleanPath(base + "/" + n.Path)
		if _, ok := d.params[path]; !ok {
			result.Status = CodeUnresolvedNodes
			continue
		}
		ec.registered[path] = struct{}{}
		result.NodeIDs[i] = d.NodeID(path)
	}
	return opcua.StatusGood
}

func (d *Device) apply(c *method.Call, editContextID string, result *di.ApplyResult) opcua.StatusCode {
	d.mu.Lock()
	defer d.mu.Unlock()

	ec, ok := d.contexts[editContextID]
	if !ok {
		*result = di.ApplyResult{}
		return opcua.StatusBadInvalidArgument
	}

	*result = di.ApplyResult{}
	for _, path := range sortedKeys(ec.staged) {
		p, ok := d.params[path]
		switch {
		case !ok:
			result.NodeErrors = append(result.NodeErrors, di.NodeError{NodeID: d.NodeID(path), Status: CodeUnknownNode})
		case p.ReadOnly:
			result.NodeErrors = append(result.NodeErrors, di.NodeError{NodeID: d.NodeID(path), Status: CodeNotWritable})
		default:
			p.Value = ec.staged[path]
		}
	}
	result.TransferIncomplete = len(result.NodeErrors) > 0
	applied := len(ec.staged) - len(result.NodeErrors)
	ec.staged = make(map[string]opcua.Variant)

	d.logger.Info("edit context applied",
		zap.String("edit_context", ec.id),
		zap.Int("applied", applied),
		zap.Int("rejected", len(result.NodeErrors)))
	return opcua.StatusGood
}

func (d *Device) reset(c *method.Call, editContextID string, status *int32) opcua.StatusCode {
	d.mu.Lock()
	defer d.mu.Unlock()

	ec, ok := d.contexts[editContextID]
	if !ok {
		*status = CodeUnknownEditContext
		return opcua.StatusGood
	}
	ec.staged = make(map[string]opcua.Variant)
	*status = CodeOK
	return opcua.StatusGood
}

func (d *Device) discard(c *method.Call, editContextID string, status *int32) opcua.StatusCode {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.contexts[editContextID]; !ok {
		*status = CodeUnknownEditContext
		return opcua.StatusGood
	}
	delete(d.contexts, editContextID)
	*status = CodeOK

	d.logger.Debug("edit context discarded", zap.String("edit_context", editContextID))
	return opcua.StatusGood
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
