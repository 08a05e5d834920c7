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

	"go.uber.org/zap"

	opcua "github.com/edgeo-scada/opcua-di"
	"github.com/edgeo-scada/opcua-di/method"
)

type session struct {
	mu        sync.Mutex
	context   string
	transport Transport
	opened    time.Time
}

type lock struct {
	context string
	expires time.Time
}

// Session reports the context of the direct access session open on object.
func (d *Device) Session(object opcua.NodeID) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[object.Text()]
	if !ok {
		return "", false
	}
	return s.context, true
}

func (d *Device) initDirectAccess(c *method.Call, accessContext string, status *int32) opcua.StatusCode {
	key := objectKey(c)

	d.mu.Lock()
	_, open := d.sessions[key]
	d.mu.Unlock()
	if open {
		*status = CodeAccessOpen
		return opcua.StatusGood
	}

	ctx, cancel := context.WithTimeout(c.Context, d.opts.acquireTimeout)
	defer cancel()
	t, err := d.pool.Get(ctx)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		*status = CodeAccessBusy
		return opcua.StatusGood
	default:
		d.logger.Warn("direct access transport unavailable", zap.String("object", key), zap.Error(err))
		return opcua.StatusBadDeviceFailure
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, open := d.sessions[key]; open {
		d.pool.Put(t)
		*status = CodeAccessOpen
		return opcua.StatusGood
	}
	d.sessions[key] = &session{context: accessContext, transport: t, opened: d.opts.now()}
	*status = CodeOK

	d.logger.Debug("direct access opened", zap.String("object", key), zap.String("context", accessContext))
	return opcua.StatusGood
}

func (d *Device) transfer(c *method.Call, sendData string, receiveData *string) opcua.StatusCode {
	key := objectKey(c)

	d.mu.Lock()
	s, ok := d.sessions[key]
	d.mu.Unlock()
	if !ok {
		return opcua.StatusBadInvalidState
	}

	// s.mu is never held while taking d.mu.
	s.mu.Lock()
	if s.transport == nil {
		s.mu.Unlock()
		return opcua.StatusBadInvalidState
	}
	reply, err := s.transport.Exchange(c.Context, []byte(sendData))
	if err != nil {
		d.logger.Warn("direct access transfer failed", zap.String("object", key), zap.Error(err))
		d.pool.Discard(s.transport)
		s.transport = nil
		s.mu.Unlock()

		d.mu.Lock()
		if d.sessions[key] == s {
			delete(d.sessions, key)
		}
		d.mu.Unlock()
		return opcua.StatusBadDeviceFailure
	}
	s.mu.Unlock()
	*receiveData = string(reply)
	return opcua.StatusGood
}

func (d *Device) endDirectAccess(c *method.Call, accessContext string, status *int32) opcua.StatusCode {
	key := objectKey(c)

	d.mu.Lock()
	s, ok := d.sessions[key]
	switch {
	case !ok:
		*status = CodeAccessNotOpen
	case s.context != accessContext:
		*status = CodeAccessMismatch
	default:
		delete(d.sessions, key)
		*status = CodeOK
	}
	d.mu.Unlock()
	if *status != CodeOK {
		return opcua.StatusGood
	}

	s.mu.Lock()
	if s.transport != nil {
		d.pool.Put(s.transport)
		s.transport = nil
	}
	s.mu.Unlock()

	d.logger.Debug("direct access closed", zap.String("object", key), zap.Duration("open", d.opts.now().Sub(s.opened)))
	return opcua.StatusGood
}

// Locked reports the context holding the lock on object.
func (d *Device) Locked(object opcua.NodeID) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l := d.activeLock(object.Text())
	if l == nil {
		return "", false
	}
	return l.context, true
}

// activeLock returns the unexpired lock on key, dropping an expired one.
// d.mu must be held.
func (d *Device) activeLock(key string) *lock {
	l, ok := d.locks[key]
	if !ok {
		return nil
	}
	if !d.opts.now().Before(l.expires) {
		delete(d.locks, key)
		d.logger.Debug("lock expired", zap.String("object", key), zap.String("context", l.context))
		return nil
	}
	return l
}

func (d *Device) initLock(c *method.Call, lockContext string, status *int32) opcua.StatusCode {
	if lockContext == "" {
		*status = CodeInvalidContext
		return opcua.StatusGood
	}
	key := objectKey(c)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activeLock(key) != nil {
		*status = CodeAlreadyLocked
		return opcua.StatusGood
	}
	d.locks[key] = &lock{context: lockContext, expires: d.opts.now().Add(d.opts.lockTimeout)}
	*status = CodeOK
	return opcua.StatusGood
}

func (d *Device) renewLock(c *method.Call, status *int32) opcua.StatusCode {
	key := objectKey(c)

	d.mu.Lock()
	defer d.mu.Unlock()
	l := d.activeLock(key)
	if l == nil {
		*status = CodeNotLocked
		return opcua.StatusGood
	}
	l.expires = d.opts.now().Add(d.opts.lockTimeout)
	*status = CodeOK
	return opcua.StatusGood
}

func (d *Device) exitLock(c *method.Call, status *int32) opcua.StatusCode {
	key := objectKey(c)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activeLock(key) == nil {
		*status = CodeNotLocked
		return opcua.StatusGood
	}
	delete(d.locks, key)
	*status = CodeOK
	return opcua.StatusGood
}

func (d *Device) breakLock(c *method.Call, status *int32) opcua.StatusCode {
	key := objectKey(c)

	d.mu.Lock()
	defer d.mu.Unlock()
	l := d.activeLock(key)
	if l == nil {
		*status = CodeNotLocked
		return opcua.StatusGood
	}
	delete(d.locks, key)
	*status = CodeOK

	d.logger.Warn("lock broken", zap.String("object", key), zap.String("context", l.context))
	return opcua.StatusGood
}
