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
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	opcua "github.com/edgeo-scada/opcua-di"
)

// Registry maps method node ids to adapters and serves the Call service.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]*Method
	opts    *registryOptions
	logger  *zap.Logger
	metrics *RegistryMetrics
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := defaultRegistryOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Registry{
		methods: make(map[string]*Method),
		opts:    o,
		logger:  o.logger,
		metrics: NewRegistryMetrics(),
	}
}

// Register adds m under its node id.
func (r *Registry) Register(m *Method) error {
	key := m.NodeID().Text()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.methods[key]; exists {
		return errors.Wrapf(ErrDuplicateMethod, "%s (%s)", key, m.Name())
	}
	r.methods[key] = m
	r.logger.Debug("method registered", zap.String("method", m.Name()), zap.String("node", key))
	return nil
}

// Unregister removes the method with the given node id.
func (r *Registry) Unregister(id opcua.NodeID) bool {
	key := id.Text()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.methods[key]; !exists {
		return false
	}
	delete(r.methods, key)
	return true
}

// Lookup returns the method registered under id.
func (r *Registry) Lookup(id opcua.NodeID) (*Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.methods[id.Text()]
	return m, ok
}

// LookupName returns the first registered method with the given browse name.
func (r *Registry) LookupName(name string) (*Method, bool) {
	for _, m := range r.Methods() {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

// Methods returns the registered methods ordered by name.
func (r *Registry) Methods() []*Method {
	r.mu.RLock()
	list := make([]*Method, 0, len(r.methods))
	for _, m := range r.methods {
		list = append(list, m)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].Name() != list[j].Name() {
			return list[i].Name() < list[j].Name()
		}
		return list[i].NodeID().Text() < list[j].NodeID().Text()
	})
	return list
}

// Call runs each request and returns one result per request, in order.
func (r *Registry) Call(ctx context.Context, reqs []opcua.CallMethodRequest) []opcua.CallMethodResult {
	results := make([]opcua.CallMethodResult, len(reqs))
	for i, req := range reqs {
		results[i] = r.call(ctx, req)
	}
	return results
}

func (r *Registry) call(ctx context.Context, req opcua.CallMethodRequest) opcua.CallMethodResult {
	start := time.Now()
	r.metrics.Requests.Add(1)
	defer func() {
		r.metrics.Latency.Observe(time.Since(start))
	}()

	m, ok := r.Lookup(req.MethodID)
	if !ok {
		r.metrics.UnknownMethods.Add(1)
		r.logger.Debug("unknown method", zap.String("node", req.MethodID.Text()))
		return opcua.CallMethodResult{StatusCode: opcua.StatusBadMethodInvalid}
	}

	out := make([]opcua.Variant, len(m.desc.Outputs))
	res := m.Call(ctx, req.ObjectID, req.InputArguments, out)
	if res.Fallback() {
		return r.opts.fallback(ctx, m, req)
	}

	result := opcua.CallMethodResult{
		StatusCode:           res.StatusCode,
		InputArgumentResults: res.InputArgumentResults,
	}
	if res.Invoked {
		result.OutputArguments = out
	}
	return result
}

// Metrics returns the registry metrics.
func (r *Registry) Metrics() *RegistryMetrics {
	return r.metrics
}

// Collect returns the registry counters plus one entry per method name.
func (r *Registry) Collect() map[string]interface{} {
	perMethod := make(map[string]interface{})
	for _, m := range r.Methods() {
		perMethod[m.Name()] = m.Metrics().Collect()
	}
	return map[string]interface{}{
		"requests":        r.metrics.Requests.Value(),
		"unknown_methods": r.metrics.UnknownMethods.Value(),
		"latency":         r.metrics.Latency.Stats(),
		"methods":         perMethod,
	}
}
