package method

import (
	"sync/atomic"

	opcua "github.com/edgeo-scada/opcua-di"
)

type point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

var pointEncoding = opcua.NewNumericNodeID(1, 5001)

func (p *point) EncodingID() opcua.NodeID { return pointEncoding }

func (p *point) Encode(e *opcua.Encoder) {
	e.WriteInt32(p.X)
	e.WriteInt32(p.Y)
}

func (p *point) Decode(d *opcua.Decoder) error {
	var err error
	if p.X, err = d.ReadInt32(); err != nil {
		return err
	}
	p.Y, err = d.ReadInt32()
	return err
}

func newPoint() opcua.Structure { return &point{} }

func rawPoint(x, y int32) opcua.ExtensionObject {
	e := opcua.NewEncoder()
	e.WriteInt32(x)
	e.WriteInt32(y)
	return opcua.ExtensionObject{TypeID: pointEncoding, Encoding: opcua.ExtensionObjectBinary, Body: e.Bytes()}
}

var (
	resetDesc = Descriptor{
		Name:    "Reset",
		NodeID:  opcua.NewNumericNodeID(2, 100),
		Inputs:  []Argument{{Name: "editContextId", DataType: opcua.TypeString, ValueRank: Scalar}},
		Outputs: []Argument{{Name: "resetStatus", DataType: opcua.TypeInt32, ValueRank: Scalar}},
	}
	invokeActionDesc = Descriptor{
		Name:   "InvokeAction",
		NodeID: opcua.NewNumericNodeID(2, 101),
		Inputs: []Argument{
			{Name: "actionName", DataType: opcua.TypeString, ValueRank: Scalar},
			{Name: "methodArguments", DataType: opcua.TypeString, ValueRank: Scalar},
		},
		Outputs: []Argument{
			{Name: "actionNodeId", DataType: opcua.TypeNodeID, ValueRank: Scalar},
			{Name: "invokeActionError", DataType: opcua.TypeInt32, ValueRank: Scalar},
		},
	}
	transferDesc = Descriptor{
		Name:    "Transfer",
		NodeID:  opcua.NewNumericNodeID(2, 102),
		Inputs:  []Argument{{Name: "sendData", DataType: opcua.TypeString, ValueRank: Scalar}},
		Outputs: []Argument{{Name: "receiveData", DataType: opcua.TypeString, ValueRank: Scalar}},
	}
	auditDesc = Descriptor{
		Name:   "LogAuditTrailMessage",
		NodeID: opcua.NewNumericNodeID(2, 103),
		Inputs: []Argument{{Name: "message", DataType: opcua.TypeString, ValueRank: Scalar}},
	}
	shapeDesc = Descriptor{
		Name:   "Shape",
		NodeID: opcua.NewStringNodeID(2, "Shape"),
		Inputs: []Argument{
			{Name: "origin", DataType: opcua.TypeExtensionObject, ValueRank: Scalar, New: newPoint},
			{Name: "corners", DataType: opcua.TypeExtensionObject, ValueRank: Array, New: newPoint},
			{Name: "scale", DataType: opcua.TypeDouble, ValueRank: Scalar, Optional: true},
			{Name: "tags", DataType: opcua.TypeString, ValueRank: Array},
		},
		Outputs: []Argument{
			{Name: "center", DataType: opcua.TypeExtensionObject, ValueRank: Scalar, New: newPoint},
			{Name: "area", DataType: opcua.TypeInt64, ValueRank: Scalar},
		},
	}
)

// countingHandler wraps h and counts its invocations.
func countingHandler(n *int32, h Handler) Handler {
	return func(c *Call) opcua.StatusCode {
		atomic.AddInt32(n, 1)
		return h(c)
	}
}

func variants(values ...interface{}) []opcua.Variant {
	out := make([]opcua.Variant, len(values))
	for i, v := range values {
		out[i] = opcua.MustVariant(v)
	}
	return out
}
