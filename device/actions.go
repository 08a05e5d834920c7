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

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	opcua "github.com/edgeo-scada/opcua-di"
	"github.com/edgeo-scada/opcua-di/method"
)

// ActionFunc runs a device action started by InvokeAction. Responses sent
// with RespondAction arrive on responses; ctx is cancelled by AbortAction
// and by Close.
type ActionFunc func(ctx context.Context, args string, responses <-chan string) error

// ErrActionAborted is the result of an action cancelled by AbortAction.
var ErrActionAborted = errors.New("device: action aborted")

type action struct {
	id        opcua.NodeID
	name      string
	responses chan string
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
}

// ActionState is a snapshot of an invoked action.
type ActionState struct {
	ID   opcua.NodeID
	Name string
	Done bool
	Err  error
}

// HandleAction registers the action invoked under name.
func (d *Device) HandleAction(name string, fn ActionFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if fn == nil {
		delete(d.actionFns, name)
		return
	}
	d.actionFns[name] = fn
}

// Action returns the state of an invoked action.
func (d *Device) Action(id opcua.NodeID) (ActionState, bool) {
	d.mu.Lock()
	a, ok := d.actions[id.Text()]
	d.mu.Unlock()
	if !ok {
		return ActionState{}, false
	}
	state := ActionState{ID: a.id, Name: a.name}
	select {
	case <-a.done:
		state.Done = true
		state.Err = a.err
	default:
	}
	return state, true
}

// WaitAction blocks until the action finishes and returns its error.
func (d *Device) WaitAction(ctx context.Context, id opcua.NodeID) error {
	d.mu.Lock()
	a, ok := d.actions[id.Text()]
	d.mu.Unlock()
	if !ok {
		return errors.Errorf("device: unknown action %s", id.Text())
	}
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Device) invokeAction(c *method.Call, name, args string, actionNodeID *opcua.NodeID, errorCode *int32) opcua.StatusCode {
	d.mu.Lock()
	fn, ok := d.actionFns[name]
	if !ok {
		d.mu.Unlock()
		*errorCode = CodeUnknownAction
		return opcua.StatusGood
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &action{
		id:        opcua.NewGUIDNodeID(d.opts.namespace, uuid.New()),
		name:      name,
		responses: make(chan string),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	d.actions[a.id.Text()] = a
	d.mu.Unlock()

	go d.runAction(ctx, a, fn, args)

	*actionNodeID = a.id
	*errorCode = CodeOK
	return opcua.StatusGood
}

func (d *Device) runAction(ctx context.Context, a *action, fn ActionFunc, args string) {
	defer close(a.done)
	defer a.cancel()

	d.logger.Debug("action started", zap.String("action", a.name), zap.String("id", a.id.Text()))
	err := fn(ctx, args, a.responses)
	if err == nil && ctx.Err() != nil {
		err = ErrActionAborted
	}
	a.err = err
	if err != nil {
		d.logger.Info("action failed", zap.String("action", a.name), zap.Error(err))
		return
	}
	d.logger.Debug("action finished", zap.String("action", a.name))
}

func (d *Device) lookupAction(id opcua.NodeID) (*action, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.actions[id.Text()]
	return a, ok
}

func (d *Device) respondAction(c *method.Call, id opcua.NodeID, response string, errorCode *int32) opcua.StatusCode {
	a, ok := d.lookupAction(id)
	if !ok {
		*errorCode = CodeUnknownAction
		return opcua.StatusGood
	}
	select {
	case a.responses <- response:
		*errorCode = CodeOK
	case <-a.done:
		*errorCode = CodeActionFinished
	case <-c.Context.Done():
		return opcua.StatusBadTimeout
	}
	return opcua.StatusGood
}

// abortAction cancels a running action and waits for it to stop. Aborting a
// finished action forgets it.
func (d *Device) abortAction(c *method.Call, id opcua.NodeID, errorCode *int32) opcua.StatusCode {
	a, ok := d.lookupAction(id)
	if !ok {
		*errorCode = CodeUnknownAction
		return opcua.StatusGood
	}

	select {
	case <-a.done:
		*errorCode = CodeActionFinished
	default:
		a.cancel()
		select {
		case <-a.done:
		case <-c.Context.Done():
			return opcua.StatusBadTimeout
		}
		*errorCode = CodeOK
	}

	d.mu.Lock()
	delete(d.actions, id.Text())
	d.mu.Unlock()
	return opcua.StatusGood
}
