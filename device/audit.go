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
	"time"

	"go.uber.org/zap"

	opcua "github.com/edgeo-scada/opcua-di"
	"github.com/edgeo-scada/opcua-di/method"
)

// AuditEntry is one audit trail message.
type AuditEntry struct {
	Time    time.Time
	Object  string
	Message string
}

// auditTrail keeps the most recent entries in a ring.
type auditTrail struct {
	entries []AuditEntry
	next    int
	full    bool
}

func newAuditTrail(size int) *auditTrail {
	return &auditTrail{entries: make([]AuditEntry, size)}
}

func (a *auditTrail) add(e AuditEntry) {
	a.entries[a.next] = e
	a.next = (a.next + 1) % len(a.entries)
	if a.next == 0 {
		a.full = true
	}
}

func (a *auditTrail) list() []AuditEntry {
	if !a.full {
		return append([]AuditEntry(nil), a.entries[:a.next]...)
	}
	out := make([]AuditEntry, 0, len(a.entries))
	out = append(out, a.entries[a.next:]...)
	return append(out, a.entries[:a.next]...)
}

// AuditTrail returns the retained audit messages, oldest first.
func (d *Device) AuditTrail() []AuditEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.audit.list()
}

func (d *Device) logAuditTrailMessage(c *method.Call, message string) opcua.StatusCode {
	if message == "" {
		return opcua.StatusBadInvalidArgument
	}
	e := AuditEntry{Time: d.opts.now(), Object: objectKey(c), Message: message}

	d.mu.Lock()
	d.audit.add(e)
	d.mu.Unlock()

	d.logger.Info("audit trail", zap.String("object", e.Object), zap.String("message", message))
	return opcua.StatusGood
}
