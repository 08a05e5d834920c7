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

package di

import (
	"github.com/pkg/errors"

	opcua "github.com/edgeo-scada/opcua-di"
)

// RegistrationParameters identifies a node to register in an edit context.
type RegistrationParameters struct {
	Context opcua.NodeID `json:"context"`
	Path    string       `json:"path"`
}

// EncodingID implements opcua.Structure.
func (*RegistrationParameters) EncodingID() opcua.NodeID {
	return FDINode(RegistrationParameters_Encoding_DefaultBinary)
}

// Encode implements opcua.Structure.
func (p *RegistrationParameters) Encode(e *opcua.Encoder) {
	e.WriteNodeID(p.Context)
	e.WriteString(p.Path)
}

// Decode implements opcua.Structure.
func (p *RegistrationParameters) Decode(d *opcua.Decoder) error {
	var err error
	if p.Context, err = d.ReadNodeID(); err != nil {
		return errors.Wrap(err, "Context")
	}
	if p.Path, err = d.ReadString(); err != nil {
		return errors.Wrap(err, "Path")
	}
	return nil
}

// RegisterNodesResult is the outcome of RegisterNodes: one node id per
// registration, in request order.
type RegisterNodesResult struct {
	Status  int32          `json:"status"`
	NodeIDs []opcua.NodeID `json:"nodeIds"`
}

// EncodingID implements opcua.Structure.
func (*RegisterNodesResult) EncodingID() opcua.NodeID {
	return FDINode(RegisterNodesResult_Encoding_DefaultBinary)
}

// Encode implements opcua.Structure.
func (r *RegisterNodesResult) Encode(e *opcua.Encoder) {
	e.WriteInt32(r.Status)
	writeLength(e, len(r.NodeIDs), r.NodeIDs == nil)
	for _, id := range r.NodeIDs {
		e.WriteNodeID(id)
	}
}

// Decode implements opcua.Structure.
func (r *RegisterNodesResult) Decode(d *opcua.Decoder) error {
	var err error
	if r.Status, err = d.ReadInt32(); err != nil {
		return errors.Wrap(err, "Status")
	}
	n, null, err := readLength(d)
	if err != nil {
		return errors.Wrap(err, "NodeIds")
	}
	r.NodeIDs = nil
	if !null {
		r.NodeIDs = make([]opcua.NodeID, n)
	}
	for i := range r.NodeIDs {
		if r.NodeIDs[i], err = d.ReadNodeID(); err != nil {
			return errors.Wrapf(err, "NodeIds[%d]", i)
		}
	}
	return nil
}

// NodeError reports a node that could not be written by Apply.
type NodeError struct {
	NodeID opcua.NodeID `json:"nodeId"`
	Status int32        `json:"status"`
}

// EncodingID implements opcua.Structure.
func (*NodeError) EncodingID() opcua.NodeID {
	return FDINode(NodeError_Encoding_DefaultBinary)
}

// Encode implements opcua.Structure.
func (n *NodeError) Encode(e *opcua.Encoder) {
	e.WriteNodeID(n.NodeID)
	e.WriteInt32(n.Status)
}

// Decode implements opcua.Structure.
func (n *NodeError) Decode(d *opcua.Decoder) error {
	var err error
	if n.NodeID, err = d.ReadNodeID(); err != nil {
		return errors.Wrap(err, "NodeId")
	}
	if n.Status, err = d.ReadInt32(); err != nil {
		return errors.Wrap(err, "Status")
	}
	return nil
}

// ApplyResult is the outcome of Apply.
type ApplyResult struct {
	TransferIncomplete bool        `json:"transferIncomplete"`
	NodeErrors         []NodeError `json:"nodeErrors"`
}

// EncodingID implements opcua.Structure.
func (*ApplyResult) EncodingID() opcua.NodeID {
	return FDINode(ApplyResult_Encoding_DefaultBinary)
}

// Encode implements opcua.Structure.
func (r *ApplyResult) Encode(e *opcua.Encoder) {
	e.WriteBoolean(r.TransferIncomplete)
	writeLength(e, len(r.NodeErrors), r.NodeErrors == nil)
	for i := range r.NodeErrors {
		r.NodeErrors[i].Encode(e)
	}
}

// Decode implements opcua.Structure.
func (r *ApplyResult) Decode(d *opcua.Decoder) error {
	var err error
	if r.TransferIncomplete, err = d.ReadBoolean(); err != nil {
		return errors.Wrap(err, "TransferIncomplete")
	}
	n, null, err := readLength(d)
	if err != nil {
		return errors.Wrap(err, "NodeErrors")
	}
	r.NodeErrors = nil
	if !null {
		r.NodeErrors = make([]NodeError, n)
	}
	for i := range r.NodeErrors {
		if err := r.NodeErrors[i].Decode(d); err != nil {
			return errors.Wrapf(err, "NodeErrors[%d]", i)
		}
	}
	return nil
}

// ParameterResult is the result of transferring one parameter.
type ParameterResult struct {
	NodePath   []opcua.QualifiedName `json:"nodePath"`
	StatusCode opcua.StatusCode      `json:"statusCode"`
}

// EncodingID implements opcua.Structure.
func (*ParameterResult) EncodingID() opcua.NodeID {
	return DINode(ParameterResultDataType_Encoding_DefaultBinary)
}

// Encode implements opcua.Structure.
func (p *ParameterResult) Encode(e *opcua.Encoder) {
	writeLength(e, len(p.NodePath), p.NodePath == nil)
	for _, q := range p.NodePath {
		e.WriteQualifiedName(q)
	}
	e.WriteStatusCode(p.StatusCode)
}

// Decode implements opcua.Structure.
func (p *ParameterResult) Decode(d *opcua.Decoder) error {
	n, null, err := readLength(d)
	if err != nil {
		return errors.Wrap(err, "NodePath")
	}
	p.NodePath = nil
	if !null {
		p.NodePath = make([]opcua.QualifiedName, n)
	}
	for i := range p.NodePath {
		if p.NodePath[i], err = d.ReadQualifiedName(); err != nil {
			return errors.Wrapf(err, "NodePath[%d]", i)
		}
	}
	if p.StatusCode, err = d.ReadStatusCode(); err != nil {
		return errors.Wrap(err, "StatusCode")
	}
	return nil
}

// TransferResultData is one page of transfer results returned by
// FetchTransferResultData.
type TransferResultData struct {
	SequenceNumber   int32             `json:"sequenceNumber"`
	EndOfResults     bool              `json:"endOfResults"`
	ParameterResults []ParameterResult `json:"parameterResults"`
}

// EncodingID implements opcua.Structure.
func (*TransferResultData) EncodingID() opcua.NodeID {
	return DINode(TransferResultDataDataType_Encoding_DefaultBinary)
}

// Encode implements opcua.Structure.
func (t *TransferResultData) Encode(e *opcua.Encoder) {
	e.WriteInt32(t.SequenceNumber)
	e.WriteBoolean(t.EndOfResults)
	writeLength(e, len(t.ParameterResults), t.ParameterResults == nil)
	for i := range t.ParameterResults {
		t.ParameterResults[i].Encode(e)
	}
}

// Decode implements opcua.Structure.
func (t *TransferResultData) Decode(d *opcua.Decoder) error {
	var err error
	if t.SequenceNumber, err = d.ReadInt32(); err != nil {
		return errors.Wrap(err, "SequenceNumber")
	}
	if t.EndOfResults, err = d.ReadBoolean(); err != nil {
		return errors.Wrap(err, "EndOfResults")
	}
	n, null, err := readLength(d)
	if err != nil {
		return errors.Wrap(err, "ParameterResults")
	}
	t.ParameterResults = nil
	if !null {
		t.ParameterResults = make([]ParameterResult, n)
	}
	for i := range t.ParameterResults {
		if err := t.ParameterResults[i].Decode(d); err != nil {
			return errors.Wrapf(err, "ParameterResults[%d]", i)
		}
	}
	return nil
}

// writeLength writes an array length prefix; -1 marks a null array.
func writeLength(e *opcua.Encoder, n int, null bool) {
	if null {
		e.WriteInt32(-1)
		return
	}
	e.WriteInt32(int32(n))
}

// readLength reads an array length prefix. Lengths larger than the remaining
// input are rejected before anything is allocated.
func readLength(d *opcua.Decoder) (int, bool, error) {
	n, err := d.ReadInt32()
	if err != nil {
		return 0, false, err
	}
	if n < 0 {
		return 0, true, nil
	}
	if int(n) > d.Remaining() {
		return 0, false, errors.Wrapf(opcua.ErrInvalidMessage, "array length %d exceeds %d remaining bytes", n, d.Remaining())
	}
	return int(n), false, nil
}
