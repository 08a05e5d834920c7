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
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/edgeo-scada/opcua-di/method"
)

// ErrPoolClosed is returned when acquiring from a closed pool.
var ErrPoolClosed = errors.New("device: transport pool closed")

// Transport exchanges payloads with the physical device.
type Transport interface {
	Exchange(ctx context.Context, request []byte) ([]byte, error)
	Close() error
}

// Dialer opens a new transport.
type Dialer func(ctx context.Context) (Transport, error)

// Loopback returns a dialer whose transports echo every request.
func Loopback() Dialer {
	return func(context.Context) (Transport, error) {
		return loopback{}, nil
	}
}

type loopback struct{}

func (loopback) Exchange(_ context.Context, request []byte) ([]byte, error) {
	return append([]byte(nil), request...), nil
}

func (loopback) Close() error { return nil }

// PoolMetrics holds transport pool metrics.
type PoolMetrics struct {
	Active       method.Counter
	Dialed       method.Counter
	Closed       method.Counter
	WaitCount    method.Counter
	WaitDuration *method.LatencyHistogram
}

// NewPoolMetrics creates a new PoolMetrics instance.
func NewPoolMetrics() *PoolMetrics {
	return &PoolMetrics{WaitDuration: method.NewLatencyHistogram()}
}

// Collect returns all pool metrics as a map.
func (m *PoolMetrics) Collect() map[string]interface{} {
	return map[string]interface{}{
		"active":        m.Active.Value(),
		"dialed":        m.Dialed.Value(),
		"closed":        m.Closed.Value(),
		"wait_count":    m.WaitCount.Value(),
		"wait_duration": m.WaitDuration.Stats(),
	}
}

// Pool bounds the number of transports open to the device. Slots are dialed
// lazily on first use and reused after Put.
type Pool struct {
	dial    Dialer
	slots   chan Transport
	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
	metrics *PoolMetrics
}

// NewPool creates a pool of size slots.
func NewPool(dial Dialer, size int) (*Pool, error) {
	if dial == nil {
		return nil, errors.New("device: dialer cannot be nil")
	}
	if size <= 0 {
		return nil, errors.Errorf("device: invalid pool size %d", size)
	}
	p := &Pool{
		dial:    dial,
		slots:   make(chan Transport, size),
		closeCh: make(chan struct{}),
		metrics: NewPoolMetrics(),
	}
	for i := 0; i < size; i++ {
		p.slots <- nil
	}
	return p, nil
}

// Get takes a transport from the pool, dialing it if the slot is empty.
// It blocks until a slot is free, ctx is done or the pool is closed.
func (p *Pool) Get(ctx context.Context) (Transport, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	start := time.Now()
	p.metrics.WaitCount.Add(1)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closeCh:
		return nil, ErrPoolClosed
	case t := <-p.slots:
		p.metrics.WaitDuration.Observe(time.Since(start))
		if t == nil {
			var err error
			if t, err = p.dial(ctx); err != nil {
				p.slots <- nil
				return nil, errors.Wrap(err, "device: dial")
			}
			p.metrics.Dialed.Add(1)
		}
		p.metrics.Active.Add(1)
		return t, nil
	}
}

// Put returns t to the pool.
func (p *Pool) Put(t Transport) {
	p.release(t)
}

// Discard closes t and frees its slot for a fresh dial.
func (p *Pool) Discard(t Transport) {
	t.Close()
	p.metrics.Closed.Add(1)
	p.release(nil)
}

func (p *Pool) release(t Transport) {
	p.metrics.Active.Add(-1)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		if t != nil {
			t.Close()
			p.metrics.Closed.Add(1)
		}
		return
	}
	p.slots <- t
}

// Close closes the pool and every idle transport. Transports still in use
// are closed when they are returned.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.closeCh)

	for {
		select {
		case t := <-p.slots:
			if t != nil {
				t.Close()
				p.metrics.Closed.Add(1)
			}
		default:
			return nil
		}
	}
}

// Metrics returns the pool metrics.
func (p *Pool) Metrics() *PoolMetrics {
	return p.metrics
}

// Idle returns the number of free slots.
func (p *Pool) Idle() int {
	return len(p.slots)
}
