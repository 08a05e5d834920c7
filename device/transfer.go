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
	"strings"

	"go.uber.org/zap"

	opcua "github.com/edgeo-scada/opcua-di"
	"github.com/edgeo-scada/opcua-di/di"
	"github.com/edgeo-scada/opcua-di/method"
)

type transfer struct {
	id      int32
	object  string
	results []di.ParameterResult
	offset  int
	next    int32
}

func (d *Device) transferToDevice(c *method.Call, transferID, status *int32) opcua.StatusCode {
	return d.startTransfer(c, true, transferID, status)
}

func (d *Device) transferFromDevice(c *method.Call, transferID, status *int32) opcua.StatusCode {
	return d.startTransfer(c, false, transferID, status)
}

// startTransfer snapshots the parameter set of the device into a transfer
// whose results are paged out by FetchTransferResultData. Writing to the
// device reports BadNotWritable for read-only parameters. The caller must
// hold the lock on the object.
func (d *Device) startTransfer(c *method.Call, toDevice bool, transferID, status *int32) opcua.StatusCode {
	key := objectKey(c)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activeLock(key) == nil {
		*status = CodeTransferNotLocked
		return opcua.StatusGood
	}
	for _, t := range d.transfers {
		if t.object == key {
			*status = CodeTransferInProgress
			return opcua.StatusGood
		}
	}

	params := d.sortedParameters()
	results := make([]di.ParameterResult, len(params))
	for i, p := range params {
		results[i] = di.ParameterResult{NodePath: d.nodePath(p.Path), StatusCode: opcua.StatusGood}
		if toDevice && p.ReadOnly {
			results[i].StatusCode = opcua.StatusBadNotWritable
		}
	}

	d.transferID++
	t := &transfer{id: d.transferID, object: key, results: results}
	d.transfers[t.id] = t
	*transferID = t.id
	*status = CodeOK

	d.logger.Info("transfer started",
		zap.Int32("transfer", t.id),
		zap.String("object", key),
		zap.Bool("to_device", toDevice),
		zap.Int("parameters", len(results)))
	return opcua.StatusGood
}

func (d *Device) nodePath(path string) []opcua.QualifiedName {
	parts := strings.Split(path, "/")
	out := make([]opcua.QualifiedName, len(parts))
	for i, p := range parts {
		out[i] = opcua.QualifiedName{NamespaceIndex: d.opts.namespace, Name: p}
	}
	return out
}

// fetchTransferResultData returns the next page of a transfer. Pages are
// numbered from zero and must be fetched in order. A non-positive maximum
// returns everything left. The transfer is forgotten after its last page.
func (d *Device) fetchTransferResultData(c *method.Call, transferID, sequenceNumber, maxResults int32, omitGood bool, result *di.TransferResultData) opcua.StatusCode {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.transfers[transferID]
	if !ok || sequenceNumber != t.next {
		*result = di.TransferResultData{SequenceNumber: sequenceNumber}
		return opcua.StatusBadInvalidArgument
	}

	page := make([]di.ParameterResult, 0)
	for t.offset < len(t.results) && (maxResults <= 0 || int32(len(page)) < maxResults) {
		r := t.results[t.offset]
		t.offset++
		if omitGood && r.StatusCode.IsGood() {
			continue
		}
		page = append(page, r)
	}
	*result = di.TransferResultData{
		SequenceNumber:   sequenceNumber,
		EndOfResults:     t.offset == len(t.results),
		ParameterResults: page,
	}
	t.next++
	if result.EndOfResults {
		delete(d.transfers, transferID)
	}
	return opcua.StatusGood
}
