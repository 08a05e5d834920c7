package device

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opcua "github.com/edgeo-scada/opcua-di"
	"github.com/edgeo-scada/opcua-di/di"
	"github.com/edgeo-scada/opcua-di/method"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	t      *testing.T
	dev    *Device
	reg    *method.Registry
	object opcua.NodeID
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	dev, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	reg := method.NewRegistry()
	require.NoError(t, di.Register(reg))
	require.NoError(t, dev.Attach(reg))

	return &harness{t: t, dev: dev, reg: reg, object: opcua.NewNumericNodeID(DefaultNamespace, 1000)}
}

func (h *harness) call(desc method.Descriptor, in ...interface{}) ([]opcua.Variant, method.Result) {
	return h.callOn(h.object, desc, in...)
}

func (h *harness) callOn(object opcua.NodeID, desc method.Descriptor, in ...interface{}) ([]opcua.Variant, method.Result) {
	h.t.Helper()
	m, ok := h.reg.Lookup(desc.NodeID)
	require.True(h.t, ok, desc.Name)

	args := make([]opcua.Variant, len(in))
	for i, v := range in {
		if variant, ok := v.(opcua.Variant); ok {
			args[i] = variant
			continue
		}
		args[i] = opcua.MustVariant(v)
	}
	out := make([]opcua.Variant, len(desc.Outputs))
	res := m.Call(context.Background(), object, args, out)
	return out, res
}

// code calls a method whose last output is an Int32 result code.
func (h *harness) code(desc method.Descriptor, in ...interface{}) int32 {
	h.t.Helper()
	out, res := h.call(desc, in...)
	require.True(h.t, res.OK(), "%s: %v", desc.Name, res.Error())
	return out[len(out)-1].Value.(int32)
}

func TestAttach(t *testing.T) {
	dev, err := New()
	require.NoError(t, err)
	defer dev.Close()

	assert.Error(t, dev.Attach(method.NewRegistry()))

	h := newHarness(t)
	for _, m := range h.reg.Methods() {
		assert.True(t, m.Bound(), m.Name())
	}
}

func TestNewInvalidOptions(t *testing.T) {
	_, err := New(WithAuditSize(0))
	assert.Error(t, err)
	_, err = New(WithPoolSize(0))
	assert.Error(t, err)
	_, err = New(WithLockTimeout(-time.Second))
	assert.Error(t, err)
}

func TestParameters(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.dev.SetParameter("/Device//Setpoint/", 1.5, false))
	require.Error(t, h.dev.SetParameter("", 1, false))
	require.Error(t, h.dev.SetParameter("Device/Bad", struct{}{}, false))

	p, ok := h.dev.Parameter("Device/Setpoint")
	require.True(t, ok)
	assert.Equal(t, Parameter{Path: "Device/Setpoint", Value: opcua.MustVariant(1.5)}, p)
	assert.Equal(t, opcua.NewStringNodeID(DefaultNamespace, "Device/Setpoint"), h.dev.NodeID("Device/Setpoint/"))
}

func setupParameters(t *testing.T, dev *Device) {
	t.Helper()
	require.NoError(t, dev.SetParameter("Device/Setpoint", 1.5, false))
	require.NoError(t, dev.SetParameter("Device/Serial", "SN-1", true))
	require.NoError(t, dev.SetParameter("Device/Range/High", int32(100), false))
}

func TestEditContextLifecycle(t *testing.T) {
	h := newHarness(t)
	setupParameters(t, h.dev)

	out, res := h.call(di.GetEditContext, "Nope")
	require.True(t, res.OK())
	assert.Equal(t, CodeUnknownNode, out[1].Value)

	out, res = h.call(di.GetEditContext, "ns=4;s=Device")
	require.True(t, res.OK())
	require.Equal(t, CodeOK, out[1].Value)
	id := out[0].Value.(string)
	require.NotEmpty(t, id)

	out, res = h.call(di.RegisterNodes, id, opcua.Variant{
		Type: opcua.TypeExtensionObject,
		Value: []interface{}{
			opcua.NewExtensionObject(&di.RegistrationParameters{Path: "Setpoint"}),
			opcua.NewExtensionObject(&di.RegistrationParameters{Path: "Missing"}),
			opcua.NewExtensionObject(&di.RegistrationParameters{Context: h.dev.NodeID("Device/Range"), Path: "High"}),
		},
	})
	require.True(t, res.OK(), "%v", res.Error())
	assert.Equal(t, &di.RegisterNodesResult{
		Status: CodeUnresolvedNodes,
		NodeIDs: []opcua.NodeID{
			h.dev.NodeID("Device/Setpoint"),
			{},
			h.dev.NodeID("Device/Range/High"),
		},
	}, out[0].Value)

	require.NoError(t, h.dev.Stage(id, "Device/Setpoint", 2.5))
	require.NoError(t, h.dev.Stage(id, "Device/Serial", "SN-2"))
	assert.True(t, opcua.IsTypeMismatch(h.dev.Stage(id, "Device/Setpoint", int32(3))))
	assert.True(t, opcua.IsNodeIDUnknown(h.dev.Stage(id, "Device/Missing", 1.0)))
	assert.ErrorIs(t, h.dev.Stage("bogus", "Device/Setpoint", 1.0), ErrUnknownEditContext)

	contexts := h.dev.EditContexts()
	require.Len(t, contexts, 1)
	assert.Equal(t, "Device", contexts[0].Root)
	assert.Equal(t, []string{"Device/Range/High", "Device/Setpoint"}, contexts[0].Registered)
	assert.Equal(t, []string{"Device/Serial", "Device/Setpoint"}, contexts[0].Staged)

	out, res = h.call(di.Apply, id)
	require.True(t, res.OK())
	assert.Equal(t, &di.ApplyResult{
		TransferIncomplete: true,
		NodeErrors:         []di.NodeError{{NodeID: h.dev.NodeID("Device/Serial"), Status: CodeNotWritable}},
	}, out[0].Value)

	p, _ := h.dev.Parameter("Device/Setpoint")
	assert.Equal(t, 2.5, p.Value.Value)
	p, _ = h.dev.Parameter("Device/Serial")
	assert.Equal(t, "SN-1", p.Value.Value)

	require.NoError(t, h.dev.Stage(id, "Device/Setpoint", 9.0))
	assert.Equal(t, CodeOK, h.code(di.Reset, id))
	out, res = h.call(di.Apply, id)
	require.True(t, res.OK())
	assert.Equal(t, &di.ApplyResult{}, out[0].Value)
	p, _ = h.dev.Parameter("Device/Setpoint")
	assert.Equal(t, 2.5, p.Value.Value)

	assert.Equal(t, CodeUnknownEditContext, h.code(di.Reset, "bogus"))
	assert.Equal(t, CodeOK, h.code(di.Discard, id))
	assert.Equal(t, CodeUnknownEditContext, h.code(di.Discard, id))
	assert.Empty(t, h.dev.EditContexts())

	_, res = h.call(di.Apply, id)
	assert.Equal(t, opcua.StatusBadInvalidArgument, res.StatusCode)
	assert.True(t, res.Invoked)
}

func TestRegisterNodesUnknownContext(t *testing.T) {
	h := newHarness(t)
	out, res := h.call(di.RegisterNodes, "bogus", opcua.Variant{
		Type:  opcua.TypeExtensionObject,
		Value: []interface{}{opcua.NewExtensionObject(&di.RegistrationParameters{Path: "x"})},
	})
	require.True(t, res.OK())
	assert.Equal(t, &di.RegisterNodesResult{Status: CodeUnknownEditContext}, out[0].Value)
}

func TestActions(t *testing.T) {
	h := newHarness(t)
	h.dev.HandleAction("Calibrate", func(ctx context.Context, args string, responses <-chan string) error {
		select {
		case r := <-responses:
			if r != "confirm:"+args {
				return errors.Errorf("unexpected response %q", r)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	out, res := h.call(di.InvokeAction, "Missing", "")
	require.True(t, res.OK())
	assert.Equal(t, CodeUnknownAction, out[1].Value)

	out, res = h.call(di.InvokeAction, "Calibrate", "zero")
	require.True(t, res.OK())
	require.Equal(t, CodeOK, out[1].Value)
	id := out[0].Value.(opcua.NodeID)
	assert.Equal(t, opcua.NodeIDTypeGUID, id.Type)
	assert.Equal(t, DefaultNamespace, id.Namespace)

	state, ok := h.dev.Action(id)
	require.True(t, ok)
	assert.Equal(t, "Calibrate", state.Name)

	assert.Equal(t, CodeOK, h.code(di.RespondAction, id, "confirm:zero"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.dev.WaitAction(ctx, id))

	state, _ = h.dev.Action(id)
	assert.True(t, state.Done)
	assert.NoError(t, state.Err)

	assert.Equal(t, CodeActionFinished, h.code(di.RespondAction, id, "again"))
	assert.Equal(t, CodeActionFinished, h.code(di.AbortAction, id))
	_, ok = h.dev.Action(id)
	assert.False(t, ok)

	other := opcua.NewGUIDNodeID(DefaultNamespace, [16]byte{9})
	assert.Equal(t, CodeUnknownAction, h.code(di.RespondAction, other, "x"))
	assert.Equal(t, CodeUnknownAction, h.code(di.AbortAction, other))
}

func TestAbortAction(t *testing.T) {
	h := newHarness(t)
	started := make(chan struct{})
	stopped := make(chan error, 1)
	h.dev.HandleAction("Sweep", func(ctx context.Context, _ string, _ <-chan string) error {
		close(started)
		<-ctx.Done()
		stopped <- ctx.Err()
		return nil
	})

	out, res := h.call(di.InvokeAction, "Sweep", "")
	require.True(t, res.OK())
	id := out[0].Value.(opcua.NodeID)
	<-started

	assert.Equal(t, CodeOK, h.code(di.AbortAction, id))
	assert.ErrorIs(t, <-stopped, context.Canceled)
	_, ok := h.dev.Action(id)
	assert.False(t, ok)
}

type failingTransport struct{}

func (failingTransport) Exchange(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("line down")
}

func (failingTransport) Close() error { return nil }

func TestDirectAccess(t *testing.T) {
	h := newHarness(t)

	_, res := h.call(di.Transfer, "ping")
	assert.Equal(t, opcua.StatusBadInvalidState, res.StatusCode)

	assert.Equal(t, CodeOK, h.code(di.InitDirectAccess, "s1"))
	assert.Equal(t, CodeAccessOpen, h.code(di.InitDirectAccess, "s1"))
	accessContext, ok := h.dev.Session(h.object)
	require.True(t, ok)
	assert.Equal(t, "s1", accessContext)

	out, res := h.call(di.Transfer, "ping")
	require.True(t, res.OK())
	assert.Equal(t, "ping", out[0].Value)

	assert.Equal(t, CodeAccessMismatch, h.code(di.EndDirectAccess, "s2"))
	assert.Equal(t, CodeOK, h.code(di.EndDirectAccess, "s1"))
	assert.Equal(t, CodeAccessNotOpen, h.code(di.EndDirectAccess, "s1"))
	assert.Equal(t, 1, h.dev.Pool().Idle())
	assert.Equal(t, int64(1), h.dev.Pool().Metrics().Dialed.Value())
}

func TestDirectAccessBusy(t *testing.T) {
	h := newHarness(t, WithPoolSize(1), WithAcquireTimeout(10*time.Millisecond))
	other := opcua.NewNumericNodeID(DefaultNamespace, 2000)

	assert.Equal(t, CodeOK, h.code(di.InitDirectAccess, "a"))

	out, res := h.callOn(other, di.InitDirectAccess, "b")
	require.True(t, res.OK())
	assert.Equal(t, CodeAccessBusy, out[0].Value)

	assert.Equal(t, CodeOK, h.code(di.EndDirectAccess, "a"))
	out, res = h.callOn(other, di.InitDirectAccess, "b")
	require.True(t, res.OK())
	assert.Equal(t, CodeOK, out[0].Value)
}

func TestDirectAccessTransportFailure(t *testing.T) {
	dial := func(context.Context) (Transport, error) { return failingTransport{}, nil }
	h := newHarness(t, WithDialer(dial))

	assert.Equal(t, CodeOK, h.code(di.InitDirectAccess, "s1"))
	_, res := h.call(di.Transfer, "ping")
	assert.Equal(t, opcua.StatusBadDeviceFailure, res.StatusCode)

	_, ok := h.dev.Session(h.object)
	assert.False(t, ok)
	assert.Equal(t, 1, h.dev.Pool().Idle())
	assert.Equal(t, int64(1), h.dev.Pool().Metrics().Closed.Value())
}

// gatedTransport blocks in Exchange until released, then fails.
type gatedTransport struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedTransport) Exchange(context.Context, []byte) ([]byte, error) {
	close(g.entered)
	<-g.release
	return nil, errors.New("line down")
}

func (g *gatedTransport) Close() error { return nil }

func TestCloseDuringFailingTransfer(t *testing.T) {
	g := &gatedTransport{entered: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, WithDialer(func(context.Context) (Transport, error) { return g, nil }))
	require.Equal(t, CodeOK, h.code(di.InitDirectAccess, "s1"))

	m, ok := h.reg.Lookup(di.Transfer.NodeID)
	require.True(t, ok)
	transferred := make(chan opcua.StatusCode, 1)
	go func() {
		res := m.Call(context.Background(), h.object, []opcua.Variant{opcua.MustVariant("ping")}, make([]opcua.Variant, 1))
		transferred <- res.StatusCode
	}()
	<-g.entered

	closed := make(chan error, 1)
	go func() { closed <- h.dev.Close() }()
	time.Sleep(20 * time.Millisecond)
	close(g.release)

	timeout := time.After(2 * time.Second)
	select {
	case sc := <-transferred:
		assert.Equal(t, opcua.StatusBadDeviceFailure, sc)
	case <-timeout:
		t.Fatal("transfer did not return")
	}
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-timeout:
		t.Fatal("close did not return")
	}
	_, ok = h.dev.Session(h.object)
	assert.False(t, ok)
}

func TestDirectAccessDialFailure(t *testing.T) {
	dial := func(context.Context) (Transport, error) { return nil, errors.New("no route") }
	h := newHarness(t, WithDialer(dial))

	_, res := h.call(di.InitDirectAccess, "s1")
	assert.Equal(t, opcua.StatusBadDeviceFailure, res.StatusCode)
	assert.Equal(t, 1, h.dev.Pool().Idle())
}

func TestLocking(t *testing.T) {
	clk := newClock()
	h := newHarness(t, WithClock(clk.Now), WithLockTimeout(time.Minute))
	other := opcua.NewNumericNodeID(DefaultNamespace, 2000)

	assert.Equal(t, CodeInvalidContext, h.code(di.InitLock, ""))
	assert.Equal(t, CodeNotLocked, h.code(di.RenewLock))
	assert.Equal(t, CodeOK, h.code(di.InitLock, "a"))
	assert.Equal(t, CodeAlreadyLocked, h.code(di.InitLock, "b"))

	out, res := h.callOn(other, di.InitLock, "b")
	require.True(t, res.OK())
	assert.Equal(t, CodeOK, out[0].Value)

	clk.Advance(50 * time.Second)
	assert.Equal(t, CodeOK, h.code(di.RenewLock))
	clk.Advance(50 * time.Second)
	owner, ok := h.dev.Locked(h.object)
	require.True(t, ok)
	assert.Equal(t, "a", owner)

	clk.Advance(time.Minute)
	assert.Equal(t, CodeNotLocked, h.code(di.RenewLock))
	assert.Equal(t, CodeOK, h.code(di.InitLock, "b"))
	assert.Equal(t, CodeOK, h.code(di.ExitLock))
	assert.Equal(t, CodeNotLocked, h.code(di.ExitLock))
	assert.Equal(t, CodeNotLocked, h.code(di.BreakLock))

	assert.Equal(t, CodeOK, h.code(di.InitLock, "c"))
	assert.Equal(t, CodeOK, h.code(di.BreakLock))
	_, ok = h.dev.Locked(h.object)
	assert.False(t, ok)
}

func fetch(t *testing.T, h *harness, id, seq, maxResults int32, omitGood bool) (*di.TransferResultData, method.Result) {
	t.Helper()
	out, res := h.call(di.FetchTransferResultData, id, seq, maxResults, omitGood)
	data, _ := out[0].Value.(*di.TransferResultData)
	return data, res
}

func TestTransfers(t *testing.T) {
	h := newHarness(t)
	setupParameters(t, h.dev)

	out, res := h.call(di.TransferToDevice)
	require.True(t, res.OK())
	assert.Equal(t, []opcua.Variant{opcua.MustVariant(int32(0)), opcua.MustVariant(CodeTransferNotLocked)}, out)

	require.Equal(t, CodeOK, h.code(di.InitLock, "tool"))
	out, res = h.call(di.TransferToDevice)
	require.True(t, res.OK())
	require.Equal(t, CodeOK, out[1].Value)
	id := out[0].Value.(int32)
	assert.Equal(t, int32(1), id)
	assert.Equal(t, CodeTransferInProgress, h.code(di.TransferFromDevice))

	path := func(names ...string) []opcua.QualifiedName {
		out := make([]opcua.QualifiedName, len(names))
		for i, n := range names {
			out[i] = opcua.QualifiedName{NamespaceIndex: DefaultNamespace, Name: n}
		}
		return out
	}

	data, res := fetch(t, h, id, 0, 2, false)
	require.True(t, res.OK())
	assert.Equal(t, &di.TransferResultData{
		SequenceNumber: 0,
		ParameterResults: []di.ParameterResult{
			{NodePath: path("Device", "Range", "High"), StatusCode: opcua.StatusGood},
			{NodePath: path("Device", "Serial"), StatusCode: opcua.StatusBadNotWritable},
		},
	}, data)

	_, res = fetch(t, h, id, 0, 2, false)
	assert.Equal(t, opcua.StatusBadInvalidArgument, res.StatusCode)

	data, res = fetch(t, h, id, 1, 0, false)
	require.True(t, res.OK())
	assert.Equal(t, &di.TransferResultData{
		SequenceNumber:   1,
		EndOfResults:     true,
		ParameterResults: []di.ParameterResult{{NodePath: path("Device", "Setpoint"), StatusCode: opcua.StatusGood}},
	}, data)

	_, res = fetch(t, h, id, 2, 0, false)
	assert.Equal(t, opcua.StatusBadInvalidArgument, res.StatusCode)

	out, res = h.call(di.TransferFromDevice)
	require.True(t, res.OK())
	require.Equal(t, CodeOK, out[1].Value)
	assert.Equal(t, int32(2), out[0].Value)

	data, res = fetch(t, h, 2, 0, 0, true)
	require.True(t, res.OK())
	assert.Equal(t, &di.TransferResultData{EndOfResults: true, ParameterResults: []di.ParameterResult{}}, data)
}

func TestAuditTrail(t *testing.T) {
	clk := newClock()
	h := newHarness(t, WithAuditSize(2), WithClock(clk.Now))

	for _, msg := range []string{"one", "two", "three"} {
		_, res := h.call(di.LogAuditTrailMessage, msg)
		require.True(t, res.OK())
	}
	_, res := h.call(di.LogAuditTrailMessage, "")
	assert.Equal(t, opcua.StatusBadInvalidArgument, res.StatusCode)

	trail := h.dev.AuditTrail()
	require.Len(t, trail, 2)
	assert.Equal(t, "two", trail[0].Message)
	assert.Equal(t, "three", trail[1].Message)
	assert.Equal(t, h.object.Text(), trail[1].Object)
	assert.Equal(t, clk.Now(), trail[1].Time)
}

func TestRegistryCall(t *testing.T) {
	h := newHarness(t)
	setupParameters(t, h.dev)

	results := h.reg.Call(context.Background(), []opcua.CallMethodRequest{
		{ObjectID: h.object, MethodID: di.GetEditContext.NodeID, InputArguments: []opcua.Variant{opcua.MustVariant("Device")}},
		{ObjectID: h.object, MethodID: di.Reset.NodeID, InputArguments: []opcua.Variant{opcua.MustVariant("bogus")}},
		{ObjectID: h.object, MethodID: di.Reset.NodeID},
	})
	require.Len(t, results, 3)
	assert.Equal(t, opcua.StatusGood, results[0].StatusCode)
	assert.Equal(t, opcua.MustVariant(CodeOK), results[0].OutputArguments[1])
	assert.Equal(t, []opcua.Variant{opcua.MustVariant(CodeUnknownEditContext)}, results[1].OutputArguments)
	assert.Equal(t, opcua.StatusBadArgumentsMissing, results[2].StatusCode)
}
