package method

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opcua "github.com/edgeo-scada/opcua-di"
)

func resetHandler(c *Call) opcua.StatusCode {
	if In[string](c, 0) == "ctx-1" {
		c.Outputs[0] = int32(0)
	} else {
		c.Outputs[0] = int32(1)
	}
	return opcua.StatusGood
}

func TestCallZeroOutputs(t *testing.T) {
	m := MustNew(auditDesc)
	var got []string
	var calls int32
	m.Bind(countingHandler(&calls, func(c *Call) opcua.StatusCode {
		got = append(got, In[string](c, 0))
		assert.Empty(t, c.Outputs)
		return opcua.StatusGood
	}))

	res := m.Call(context.Background(), opcua.NodeID{}, variants("hello"), nil)

	require.True(t, res.OK(), "result: %v", res.Error())
	assert.True(t, res.Invoked)
	assert.EqualValues(t, 1, calls)
	assert.Equal(t, []string{"hello"}, got)
}

func TestCallUnboundLeavesOutputsUnchanged(t *testing.T) {
	m := MustNew(transferDesc)
	out := variants("previous")
	before := append([]opcua.Variant(nil), out...)

	res := m.Call(context.Background(), opcua.NodeID{}, variants("payload"), out)

	assert.True(t, res.Fallback())
	assert.False(t, res.Invoked)
	assert.Equal(t, opcua.StatusBadNotImplemented, res.StatusCode)
	assert.ErrorIs(t, res.Error(), ErrNotBound)
	assert.Equal(t, before, out)
	assert.EqualValues(t, 1, m.Metrics().Fallbacks.Value())
}

func TestCallUnboundTransferKeepsNullSlot(t *testing.T) {
	m := MustNew(transferDesc)
	out := make([]opcua.Variant, 1)

	res := m.Call(context.Background(), opcua.NodeID{}, variants("abc"), out)

	assert.Equal(t, opcua.StatusBadNotImplemented, res.StatusCode)
	assert.True(t, out[0].IsNull())
	assert.Nil(t, out[0].Value)
}

func TestCallReset(t *testing.T) {
	m := MustNew(resetDesc)
	m.Bind(resetHandler)

	tests := []struct {
		name string
		ctx  string
		want int32
	}{
		{name: "known context", ctx: "ctx-1", want: 0},
		{name: "unknown context", ctx: "bad", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]opcua.Variant, 1)
			res := m.Call(context.Background(), opcua.NodeID{}, variants(tt.ctx), out)
			require.True(t, res.OK())
			assert.Equal(t, opcua.Variant{Type: opcua.TypeInt32, Value: tt.want}, out[0])
		})
	}
}

func TestCallInvokeActionOutputOrder(t *testing.T) {
	actionID := opcua.NewGUIDNodeID(1, [16]byte{0xde, 0xad, 0xbe, 0xef})
	m := MustNew(invokeActionDesc)
	m.Bind(func(c *Call) opcua.StatusCode {
		assert.Equal(t, "Calibrate", In[string](c, 0))
		assert.Equal(t, "{}", In[string](c, 1))
		c.Outputs[0] = actionID
		c.Outputs[1] = int32(0)
		return opcua.StatusGood
	})

	out := make([]opcua.Variant, 2)
	res := m.Call(context.Background(), opcua.NodeID{}, variants("Calibrate", "{}"), out)

	require.True(t, res.OK())
	assert.Equal(t, opcua.Variant{Type: opcua.TypeNodeID, Value: actionID}, out[0])
	assert.Equal(t, opcua.Variant{Type: opcua.TypeInt32, Value: int32(0)}, out[1])
}

func TestCallSeedsOutputsFromSlots(t *testing.T) {
	m := MustNew(resetDesc)
	m.Bind(func(c *Call) opcua.StatusCode {
		assert.Equal(t, int32(7), Out[int32](c, 0))
		return opcua.StatusGood
	})

	out := variants(int32(7))
	before := append([]opcua.Variant(nil), out...)
	res := m.Call(context.Background(), opcua.NodeID{}, variants("ctx-1"), out)

	require.True(t, res.OK())
	assert.Equal(t, before, out)
}

func TestCallSeedsZeroForNullSlots(t *testing.T) {
	m := MustNew(transferDesc)
	m.Bind(func(c *Call) opcua.StatusCode {
		assert.Equal(t, "", Out[string](c, 0))
		return opcua.StatusGood
	})

	out := make([]opcua.Variant, 1)
	res := m.Call(context.Background(), opcua.NodeID{}, variants("x"), out)

	require.True(t, res.OK())
	assert.Equal(t, opcua.Variant{Type: opcua.TypeString, Value: ""}, out[0])
}

func TestCallShortInputRejected(t *testing.T) {
	var calls int32
	m := MustNew(resetDesc)
	m.Bind(countingHandler(&calls, resetHandler))
	out := variants(int32(42))

	res := m.Call(context.Background(), opcua.NodeID{}, nil, out)

	assert.Equal(t, opcua.StatusBadArgumentsMissing, res.StatusCode)
	assert.True(t, opcua.IsArgumentsMissing(res.Err))
	assert.False(t, res.Invoked)
	assert.Zero(t, calls)
	assert.Equal(t, variants(int32(42)), out)
}

func TestCallTooManyInputsRejected(t *testing.T) {
	var calls int32
	m := MustNew(resetDesc)
	m.Bind(countingHandler(&calls, resetHandler))

	res := m.Call(context.Background(), opcua.NodeID{}, variants("ctx-1", "extra"), make([]opcua.Variant, 1))

	assert.Equal(t, opcua.StatusBadTooManyArguments, res.StatusCode)
	assert.Zero(t, calls)
}

func TestCallTypeMismatchRejected(t *testing.T) {
	var calls int32
	m := MustNew(invokeActionDesc)
	m.Bind(countingHandler(&calls, func(c *Call) opcua.StatusCode { return opcua.StatusGood }))
	out := make([]opcua.Variant, 2)

	res := m.Call(context.Background(), opcua.NodeID{}, variants("Calibrate", int32(3)), out)

	assert.Equal(t, opcua.StatusBadInvalidArgument, res.StatusCode)
	assert.Equal(t, []opcua.StatusCode{opcua.StatusGood, opcua.StatusBadTypeMismatch}, res.InputArgumentResults)
	assert.True(t, opcua.IsTypeMismatch(res.Err))
	var argErr *ArgumentError
	require.ErrorAs(t, res.Err, &argErr)
	assert.Equal(t, 1, argErr.Index)
	assert.Equal(t, "methodArguments", argErr.Argument)
	assert.Zero(t, calls)
	assert.Equal(t, make([]opcua.Variant, 2), out)
	assert.EqualValues(t, 1, m.Metrics().DecodeErrors.Value())
}

func TestCallNullInputRejected(t *testing.T) {
	m := MustNew(resetDesc)
	m.Bind(resetHandler)

	res := m.Call(context.Background(), opcua.NodeID{}, []opcua.Variant{{}}, make([]opcua.Variant, 1))

	assert.Equal(t, opcua.StatusBadInvalidArgument, res.StatusCode)
	assert.Equal(t, []opcua.StatusCode{opcua.StatusBadTypeMismatch}, res.InputArgumentResults)
}

func TestCallHandlerFailureStillCopiesOutputs(t *testing.T) {
	m := MustNew(resetDesc)
	m.Bind(func(c *Call) opcua.StatusCode {
		c.Outputs[0] = int32(-3)
		return opcua.StatusBadInvalidState
	})

	out := make([]opcua.Variant, 1)
	res := m.Call(context.Background(), opcua.NodeID{}, variants("ctx-1"), out)

	assert.Equal(t, opcua.StatusBadInvalidState, res.StatusCode)
	assert.True(t, res.Invoked)
	assert.ErrorIs(t, res.Error(), opcua.StatusBadInvalidState)
	assert.Equal(t, opcua.Variant{Type: opcua.TypeInt32, Value: int32(-3)}, out[0])
	assert.EqualValues(t, 1, m.Metrics().Failures.Value())
}

func TestCallUncertainStatusPropagated(t *testing.T) {
	m := MustNew(resetDesc)
	m.Bind(func(c *Call) opcua.StatusCode { return opcua.StatusUncertain })

	res := m.Call(context.Background(), opcua.NodeID{}, variants("ctx-1"), make([]opcua.Variant, 1))

	assert.Equal(t, opcua.StatusUncertain, res.StatusCode)
	assert.NoError(t, res.Error())
}

func TestCallOutputEncodeError(t *testing.T) {
	m := MustNew(invokeActionDesc)
	m.Bind(func(c *Call) opcua.StatusCode {
		c.Outputs[0] = "not a node id"
		c.Outputs[1] = int32(5)
		return opcua.StatusGood
	})

	out := make([]opcua.Variant, 2)
	res := m.Call(context.Background(), opcua.NodeID{}, variants("a", "b"), out)

	assert.Equal(t, opcua.StatusBadInternalError, res.StatusCode)
	assert.True(t, out[0].IsNull())
	assert.Equal(t, opcua.Variant{Type: opcua.TypeInt32, Value: int32(5)}, out[1])
	assert.EqualValues(t, 1, m.Metrics().EncodeErrors.Value())
}

func TestCallOutputEncodeErrorStrict(t *testing.T) {
	m := MustNew(resetDesc, WithStrictOutputs(true))
	m.Bind(func(c *Call) opcua.StatusCode {
		c.Outputs[0] = int64(1)
		return opcua.StatusGood
	})

	assert.Panics(t, func() {
		m.Call(context.Background(), opcua.NodeID{}, variants("ctx-1"), make([]opcua.Variant, 1))
	})
}

func TestCallOutputSlotMismatch(t *testing.T) {
	var calls int32
	m := MustNew(invokeActionDesc)
	m.Bind(countingHandler(&calls, func(c *Call) opcua.StatusCode { return opcua.StatusGood }))

	res := m.Call(context.Background(), opcua.NodeID{}, variants("a", "b"), make([]opcua.Variant, 1))

	assert.Equal(t, opcua.StatusBadInternalError, res.StatusCode)
	assert.Zero(t, calls)
}

func TestCallStructuredArguments(t *testing.T) {
	m := MustNew(shapeDesc)
	m.Bind(func(c *Call) opcua.StatusCode {
		origin := In[opcua.Structure](c, 0).(*point)
		corners := In[[]opcua.Structure](c, 1)
		assert.Equal(t, float64(0), In[float64](c, 2))
		assert.Equal(t, []string{"a", "b"}, In[[]string](c, 3))

		var area int64
		for _, s := range corners {
			p := s.(*point)
			area += int64(p.X-origin.X) * int64(p.Y-origin.Y)
		}
		c.Outputs[0] = &point{X: origin.X + 1, Y: origin.Y + 1}
		c.Outputs[1] = area
		return opcua.StatusGood
	})

	in := []opcua.Variant{
		{Type: opcua.TypeExtensionObject, Value: rawPoint(1, 1)},
		{Type: opcua.TypeExtensionObject, Value: []interface{}{rawPoint(3, 3), opcua.NewExtensionObject(&point{X: 2, Y: 5})}},
		{},
		opcua.MustVariant([]string{"a", "b"}),
	}
	out := make([]opcua.Variant, 2)
	res := m.Call(context.Background(), opcua.NodeID{}, in, out)

	require.True(t, res.OK(), "result: %v", res.Error())
	assert.Equal(t, opcua.Variant{Type: opcua.TypeExtensionObject, Value: &point{X: 2, Y: 2}}, out[0])
	assert.Equal(t, opcua.Variant{Type: opcua.TypeInt64, Value: int64(8)}, out[1])
}

func TestCallWrongStructureRejected(t *testing.T) {
	m := MustNew(shapeDesc)
	m.Bind(func(c *Call) opcua.StatusCode { return opcua.StatusGood })

	other := opcua.ExtensionObject{TypeID: opcua.NewNumericNodeID(1, 9999), Encoding: opcua.ExtensionObjectBinary}
	in := []opcua.Variant{
		{Type: opcua.TypeExtensionObject, Value: other},
		opcua.MustVariant([]opcua.Structure{}),
		{},
		opcua.MustVariant([]string{}),
	}
	res := m.Call(context.Background(), opcua.NodeID{}, in, make([]opcua.Variant, 2))

	assert.Equal(t, opcua.StatusBadInvalidArgument, res.StatusCode)
	assert.Equal(t, opcua.StatusBadTypeMismatch, res.InputArgumentResults[0])
}

func TestCallNilStructureRejected(t *testing.T) {
	var called atomic.Bool
	m := MustNew(shapeDesc)
	m.Bind(func(c *Call) opcua.StatusCode {
		called.Store(true)
		return opcua.StatusGood
	})

	var nilPoint *point
	origin := opcua.Variant{Type: opcua.TypeExtensionObject, Value: &point{}}
	corners := opcua.MustVariant([]opcua.Structure{})
	tests := []struct {
		name string
		slot int
		in   []opcua.Variant
	}{
		{"scalar", 0, []opcua.Variant{{Type: opcua.TypeExtensionObject, Value: opcua.Structure(nilPoint)}, corners}},
		{"array element", 1, []opcua.Variant{origin, opcua.MustVariant([]opcua.Structure{nilPoint})}},
		{"inside extension object", 0, []opcua.Variant{{
			Type:  opcua.TypeExtensionObject,
			Value: opcua.ExtensionObject{TypeID: pointEncoding, Encoding: opcua.ExtensionObjectBinary, Value: nilPoint},
		}, corners}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append(tt.in, opcua.Variant{}, opcua.MustVariant([]string{}))
			out := make([]opcua.Variant, 2)
			var res Result
			require.NotPanics(t, func() { res = m.Call(context.Background(), opcua.NodeID{}, in, out) })

			assert.Equal(t, opcua.StatusBadInvalidArgument, res.StatusCode)
			assert.Equal(t, opcua.StatusBadTypeMismatch, res.InputArgumentResults[tt.slot])
			assert.False(t, res.Invoked)
			assert.False(t, called.Load())
		})
	}
}

func TestCallPassesContextAndObject(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "session-7")
	object := opcua.NewStringNodeID(2, "Device1")

	m := MustNew(auditDesc)
	m.Bind(func(c *Call) opcua.StatusCode {
		assert.Equal(t, "session-7", c.Context.Value(key{}))
		assert.Equal(t, object, c.ObjectID)
		assert.Same(t, m, c.Method)
		return opcua.StatusGood
	})

	res := m.Call(ctx, object, variants("x"), nil)
	assert.True(t, res.OK())
}

func TestBindNotifies(t *testing.T) {
	var masks []ChangeMask
	notifier := NotifierFunc(func(id opcua.NodeID, mask ChangeMask) {
		assert.Equal(t, resetDesc.NodeID, id)
		masks = append(masks, mask)
	})
	m := MustNew(resetDesc, WithNotifier(notifier))

	assert.False(t, m.Bound())
	m.Bind(resetHandler)
	assert.True(t, m.Bound())
	m.Bind(resetHandler)
	m.Unbind()
	m.Unbind()
	assert.False(t, m.Bound())

	assert.Equal(t, []ChangeMask{
		ChangeHandler | ChangeExecutable,
		ChangeHandler,
		ChangeHandler | ChangeExecutable,
	}, masks)
	assert.Equal(t, "Executable|Handler", masks[0].String())
	assert.Equal(t, "Handler", masks[1].String())
}

func TestRebindTakesEffect(t *testing.T) {
	m := MustNew(resetDesc)
	m.Bind(func(c *Call) opcua.StatusCode {
		c.Outputs[0] = int32(1)
		return opcua.StatusGood
	})
	m.Bind(func(c *Call) opcua.StatusCode {
		c.Outputs[0] = int32(2)
		return opcua.StatusGood
	})

	out := make([]opcua.Variant, 1)
	m.Call(context.Background(), opcua.NodeID{}, variants("x"), out)
	assert.Equal(t, int32(2), out[0].Value)
}

func TestRebindDuringCalls(t *testing.T) {
	m := MustNew(resetDesc)
	handler := func(c *Call) opcua.StatusCode {
		c.Outputs[0] = int32(1)
		return opcua.StatusGood
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				out := make([]opcua.Variant, 1)
				res := m.Call(context.Background(), opcua.NodeID{}, variants("x"), out)
				if res.Invoked {
					assert.Equal(t, int32(1), out[0].Value)
				} else {
					assert.True(t, res.Fallback())
					assert.True(t, out[0].IsNull())
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		m.Bind(handler)
		m.Unbind()
	}
	close(stop)
	wg.Wait()

	calls := m.Metrics().Calls.Value()
	assert.Equal(t, calls, m.Metrics().Success.Value()+m.Metrics().Fallbacks.Value())
}

func TestSerializedCalls(t *testing.T) {
	var active, peak int32
	m := MustNew(resetDesc, WithSerializedCalls(true))
	m.Bind(func(c *Call) opcua.StatusCode {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&active, -1)
		c.Outputs[0] = int32(0)
		return opcua.StatusGood
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Call(context.Background(), opcua.NodeID{}, variants("x"), make([]opcua.Variant, 1))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, peak)
	assert.EqualValues(t, 8, m.Metrics().Success.Value())
}

func TestNewRejectsInvalidDescriptor(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
	}{
		{name: "empty name", desc: Descriptor{}},
		{name: "duplicate input", desc: Descriptor{Name: "M", Inputs: []Argument{
			{Name: "a", DataType: opcua.TypeInt32, ValueRank: Scalar},
			{Name: "a", DataType: opcua.TypeInt32, ValueRank: Scalar},
		}}},
		{name: "unnamed output", desc: Descriptor{Name: "M", Outputs: []Argument{
			{DataType: opcua.TypeInt32, ValueRank: Scalar},
		}}},
		{name: "matrix", desc: Descriptor{Name: "M", Inputs: []Argument{
			{Name: "a", DataType: opcua.TypeInt32, ValueRank: 2},
		}}},
		{name: "variant type", desc: Descriptor{Name: "M", Inputs: []Argument{
			{Name: "a", DataType: opcua.TypeVariant, ValueRank: Scalar},
		}}},
		{name: "structure without constructor", desc: Descriptor{Name: "M", Inputs: []Argument{
			{Name: "a", DataType: opcua.TypeExtensionObject, ValueRank: Scalar},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.desc)
			assert.ErrorIs(t, err, ErrInvalidDescriptor)
		})
	}
}

func TestDescriptorIsCopied(t *testing.T) {
	desc := resetDesc.clone()
	m := MustNew(desc)
	desc.Inputs[0].Name = "changed"

	assert.Equal(t, "editContextId", m.Descriptor().Inputs[0].Name)
	got := m.Descriptor()
	got.Outputs[0].Name = "changed"
	assert.Equal(t, "resetStatus", m.Descriptor().Outputs[0].Name)
}

func TestArgumentTypeName(t *testing.T) {
	assert.Equal(t, "Int32", resetDesc.Outputs[0].TypeName())
	assert.Equal(t, "point", shapeDesc.Inputs[0].TypeName())
	assert.Equal(t, "point[]", shapeDesc.Inputs[1].TypeName())
	assert.Equal(t, "String[]", shapeDesc.Inputs[3].TypeName())
}
