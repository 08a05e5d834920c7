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
	opcua "github.com/edgeo-scada/opcua-di"
)

// ChangeMask tells an address space which attributes of a method node changed.
type ChangeMask uint32

const (
	// ChangeExecutable is set when the node's Executable attribute flipped.
	ChangeExecutable ChangeMask = 1 << iota
	// ChangeHandler is set whenever the bound handler was replaced or removed.
	ChangeHandler
)

// Has reports whether all bits of flag are set.
func (m ChangeMask) Has(flag ChangeMask) bool {
	return m&flag == flag
}

// String returns the set flags joined by '|'.
func (m ChangeMask) String() string {
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if m.Has(ChangeExecutable) {
		add("Executable")
	}
	if m.Has(ChangeHandler) {
		add("Handler")
	}
	if s == "" {
		return "None"
	}
	return s
}

// ChangeNotifier receives node change notifications from method adapters.
type ChangeNotifier interface {
	NodeChanged(id opcua.NodeID, mask ChangeMask)
}

// NotifierFunc adapts a function to ChangeNotifier.
type NotifierFunc func(id opcua.NodeID, mask ChangeMask)

// NodeChanged calls f(id, mask).
func (f NotifierFunc) NodeChanged(id opcua.NodeID, mask ChangeMask) {
	f(id, mask)
}

type nopNotifier struct{}

func (nopNotifier) NodeChanged(opcua.NodeID, ChangeMask) {}
