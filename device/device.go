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

// Package device is an in-memory DI/FDI device that serves the di method
// set. It keeps parameters by path, edit contexts, running actions, direct
// access sessions, locks, transfers and an audit trail.
//
// Application level results are reported through the Int32 error outputs of
// the methods: zero means success, negative values are the Code constants
// below. Call level failures use OPC UA status codes.
package device

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	opcua "github.com/edgeo-scada/opcua-di"
	"github.com/edgeo-scada/opcua-di/di"
	"github.com/edgeo-scada/opcua-di/method"
)

// Result codes written to the Int32 outputs.
const (
	CodeOK int32 = 0

	// GetEditContext, RegisterNodes, Apply, Reset, Discard.
	CodeUnknownNode        int32 = -1
	CodeUnknownEditContext int32 = -1
	CodeUnresolvedNodes    int32 = -2
	CodeNotWritable        int32 = -3

	// InvokeAction, RespondAction, AbortAction.
	CodeUnknownAction  int32 = -1
	CodeActionFinished int32 = -2

	// InitDirectAccess, EndDirectAccess.
	CodeAccessOpen     int32 = -1
	CodeAccessBusy     int32 = -2
	CodeAccessNotOpen  int32 = -1
	CodeAccessMismatch int32 = -2

	// InitLock, RenewLock, ExitLock, BreakLock.
	CodeAlreadyLocked  int32 = -1
	CodeInvalidContext int32 = -2
	CodeNotLocked      int32 = -1

	// TransferToDevice, TransferFromDevice.
	CodeTransferNotLocked  int32 = -1
	CodeTransferInProgress int32 = -2
)

// Namespace index of the string node ids minted for parameters and actions.
const DefaultNamespace uint16 = 4

// Option is a functional option for configuring a Device.
type Option func(*options)

type options struct {
	logger         *zap.Logger
	namespace      uint16
	dialer         Dialer
	poolSize       int
	acquireTimeout time.Duration
	lockTimeout    time.Duration
	auditSize      int
	now            func() time.Time
}

func defaultOptions() *options {
	return &options{
		logger:         zap.NewNop(),
		namespace:      DefaultNamespace,
		dialer:         Loopback(),
		poolSize:       1,
		acquireTimeout: time.Second,
		lockTimeout:    10 * time.Minute,
		auditSize:      256,
		now:            time.Now,
	}
}

// WithLogger sets the device logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNamespace sets the namespace index of minted node ids.
func WithNamespace(ns uint16) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithDialer sets how direct access transports are opened.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithPoolSize sets the number of direct access sessions that may be open
// at once.
func WithPoolSize(n int) Option {
	return func(o *options) {
		o.poolSize = n
	}
}

// WithAcquireTimeout bounds how long InitDirectAccess waits for a free
// transport.
func WithAcquireTimeout(d time.Duration) Option {
	return func(o *options) {
		o.acquireTimeout = d
	}
}

// WithLockTimeout sets how long a lock lasts without RenewLock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

// WithAuditSize sets how many audit trail entries are retained.
func WithAuditSize(n int) Option {
	return func(o *options) {
		o.auditSize = n
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Parameter is one device parameter.
type Parameter struct {
	Path     string
	Value    opcua.Variant
	ReadOnly bool
}

// Device is an in-memory DI/FDI device.
type Device struct {
	opts   *options
	logger *zap.Logger
	pool   *Pool

	mu         sync.Mutex
	params     map[string]*Parameter
	contexts   map[string]*editContext
	actions    map[string]*action
	actionFns  map[string]ActionFunc
	sessions   map[string]*session
	locks      map[string]*lock
	transfers  map[int32]*transfer
	transferID int32
	audit      *auditTrail
}

// New creates an empty device.
func New(opts ...Option) (*Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.auditSize <= 0 {
		return nil, errors.Errorf("device: invalid audit size %d", o.auditSize)
	}
	if o.lockTimeout <= 0 {
		return nil, errors.Errorf("device: invalid lock timeout %s", o.lockTimeout)
	}
	pool, err := NewPool(o.dialer, o.poolSize)
	if err != nil {
		return nil, err
	}
	return &Device{
		opts:      o,
		logger:    o.logger,
		pool:      pool,
		params:    make(map[string]*Parameter),
		contexts:  make(map[string]*editContext),
		actions:   make(map[string]*action),
		actionFns: make(map[string]ActionFunc),
		sessions:  make(map[string]*session),
		locks:     make(map[string]*lock),
		transfers: make(map[int32]*transfer),
		audit:     newAuditTrail(o.auditSize),
	}, nil
}

// Close aborts running actions and closes the transport pool.
func (d *Device) Close() error {
	d.mu.Lock()
	for _, a := range d.actions {
		a.cancel()
	}
	sessions := make([]*session, 0, len(d.sessions))
	for key, s := range d.sessions {
		sessions = append(sessions, s)
		delete(d.sessions, key)
	}
	d.mu.Unlock()

	// Waits for transfers in flight.
	for _, s := range sessions {
		s.mu.Lock()
		if s.transport != nil {
			d.pool.Put(s.transport)
			s.transport = nil
		}
		s.mu.Unlock()
	}
	return d.pool.Close()
}

// SetParameter creates or replaces a parameter. Paths are slash separated.
func (d *Device) SetParameter(path string, value interface{}, readOnly bool) error {
	path = cleanPath(path)
	if path == "" {
		return errors.New("device: empty parameter path")
	}
	v, err := opcua.NewVariant(value)
	if err != nil {
		return errors.Wrapf(err, "device: parameter %s", path)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.params[path] = &Parameter{Path: path, Value: v, ReadOnly: readOnly}
	return nil
}

// Parameter returns the committed value of a parameter.
func (d *Device) Parameter(path string) (Parameter, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.params[cleanPath(path)]
	if !ok {
		return Parameter{}, false
	}
	return *p, true
}

// Parameters returns every parameter sorted by path.
func (d *Device) Parameters() []Parameter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sortedParameters()
}

func (d *Device) sortedParameters() []Parameter {
	out := make([]Parameter, 0, len(d.params))
	for _, p := range d.params {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// NodeID returns the node id of the parameter at path.
func (d *Device) NodeID(path string) opcua.NodeID {
	return opcua.NewStringNodeID(d.opts.namespace, cleanPath(path))
}

// Pool returns the direct access transport pool.
func (d *Device) Pool() *Pool {
	return d.pool
}

func cleanPath(path string) string {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	return strings.Join(parts, "/")
}

func objectKey(c *method.Call) string {
	return c.ObjectID.Text()
}

// Attach binds the device handlers to the di methods held by reg.
func (d *Device) Attach(reg *method.Registry) error {
	lookup := func(desc method.Descriptor) (*method.Method, error) {
		m, ok := reg.Lookup(desc.NodeID)
		if !ok {
			return nil, errors.Errorf("device: method %s is not registered", desc.Name)
		}
		return m, nil
	}

	binders := []struct {
		desc method.Descriptor
		bind func(m *method.Method) error
	}{
		{di.LogAuditTrailMessage, func(m *method.Method) error { return di.BindLogAuditTrailMessage(m, d.logAuditTrailMessage) }},
		{di.GetEditContext, func(m *method.Method) error { return di.BindGetEditContext(m, d.getEditContext) }},
		{di.RegisterNodes, func(m *method.Method) error { return di.BindRegisterNodes(m, d.registerNodes) }},
		{di.Apply, func(m *method.Method) error { return di.BindApply(m, d.apply) }},
		{di.Reset, func(m *method.Method) error { return di.BindReset(m, d.reset) }},
		{di.Discard, func(m *method.Method) error { return di.BindDiscard(m, d.discard) }},
		{di.InvokeAction, func(m *method.Method) error { return di.BindInvokeAction(m, d.invokeAction) }},
		{di.RespondAction, func(m *method.Method) error { return di.BindRespondAction(m, d.respondAction) }},
		{di.AbortAction, func(m *method.Method) error { return di.BindAbortAction(m, d.abortAction) }},
		{di.InitDirectAccess, func(m *method.Method) error { return di.BindContextStatus(m, d.initDirectAccess) }},
		{di.Transfer, func(m *method.Method) error { return di.BindTransfer(m, d.transfer) }},
		{di.EndDirectAccess, func(m *method.Method) error { return di.BindContextStatus(m, d.endDirectAccess) }},
		{di.InitLock, func(m *method.Method) error { return di.BindContextStatus(m, d.initLock) }},
		{di.RenewLock, func(m *method.Method) error { return di.BindStatus(m, d.renewLock) }},
		{di.ExitLock, func(m *method.Method) error { return di.BindStatus(m, d.exitLock) }},
		{di.BreakLock, func(m *method.Method) error { return di.BindStatus(m, d.breakLock) }},
		{di.TransferToDevice, func(m *method.Method) error { return di.BindInitTransfer(m, d.transferToDevice) }},
		{di.TransferFromDevice, func(m *method.Method) error { return di.BindInitTransfer(m, d.transferFromDevice) }},
		{di.FetchTransferResultData, func(m *method.Method) error {
			return di.BindFetchTransferResultData(m, d.fetchTransferResultData)
		}},
	}
	for _, b := range binders {
		m, err := lookup(b.desc)
		if err != nil {
			return err
		}
		if err := b.bind(m); err != nil {
			return errors.Wrapf(err, "device: bind %s", b.desc.Name)
		}
	}
	d.logger.Info("device attached", zap.Int("methods", len(binders)))
	return nil
}
