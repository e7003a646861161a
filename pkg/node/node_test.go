package node_test

import (
	"testing"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/models"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sumWithInputs builds a node around a Sum with one connection per input.
func sumWithInputs(t *testing.T, n int) (*node.Node, *models.Sum, *fakeRegistry, []*fakeConn) {
	t.Helper()
	reg := newFakeRegistry()
	sum := models.NewSum(n)
	nd := node.New(sum, reg)
	conns := make([]*fakeConn, n)
	for i := range conns {
		conns[i] = reg.attach(t, nd, domain.PortIn, domain.PortIndex(i))
	}
	return nd, sum, reg, conns
}

func TestNode_InsertEntry_ShiftsLaterConnectionsUp(t *testing.T) {
	nd, _, _, conns := sumWithInputs(t, 3)

	require.NoError(t, nd.InsertEntry(domain.PortIn, 1))

	assert.Equal(t, 4, nd.State().Len(domain.PortIn))
	assert.Equal(t, domain.PortIndex(0), conns[0].PortIndex(domain.PortIn))
	assert.Equal(t, domain.PortIndex(2), conns[1].PortIndex(domain.PortIn))
	assert.Equal(t, domain.PortIndex(3), conns[2].PortIndex(domain.PortIn))

	empty, err := nd.State().Connections(domain.PortIn, 1)
	require.NoError(t, err)
	assert.Empty(t, empty)
	moved, _ := nd.State().Connections(domain.PortIn, 2)
	assert.Equal(t, []domain.ConnectionID{conns[1].id}, moved)
}

func TestNode_InsertEntry_Append(t *testing.T) {
	nd, _, _, conns := sumWithInputs(t, 2)

	require.NoError(t, nd.InsertEntry(domain.PortIn, 2))

	assert.Equal(t, 3, nd.State().Len(domain.PortIn))
	assert.Equal(t, domain.PortIndex(0), conns[0].PortIndex(domain.PortIn))
	assert.Equal(t, domain.PortIndex(1), conns[1].PortIndex(domain.PortIn))
}

func TestNode_EraseEntry_ShiftsLaterConnectionsDown(t *testing.T) {
	nd, _, _, conns := sumWithInputs(t, 3)

	require.NoError(t, nd.EraseEntry(domain.PortIn, 1))

	assert.Equal(t, 2, nd.State().Len(domain.PortIn))
	assert.Equal(t, domain.PortIndex(0), conns[0].PortIndex(domain.PortIn))
	assert.Equal(t, domain.PortIndex(1), conns[2].PortIndex(domain.PortIn))
	// The erased connection is no longer referenced and is left untouched.
	assert.Equal(t, domain.PortIndex(1), conns[1].PortIndex(domain.PortIn))
	assert.False(t, nd.State().HasConnection(domain.PortIn, 1, conns[1].id))
}

func TestNode_EntryBounds(t *testing.T) {
	nd, _, _, _ := sumWithInputs(t, 2)

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"Insert Past End", nd.InsertEntry(domain.PortIn, 3), domain.ErrPortIndexOutOfRange},
		{"Insert Negative", nd.InsertEntry(domain.PortIn, -1), domain.ErrPortIndexOutOfRange},
		{"Erase Past End", nd.EraseEntry(domain.PortOut, 1), domain.ErrPortIndexOutOfRange},
		{"Invalid Port Type", nd.InsertEntry(domain.PortNone, 0), domain.ErrInvalidPortType},
		{"Propagate Past End", nd.PropagateData(models.Decimal{Value: 1}, 2), domain.ErrPortIndexOutOfRange},
		{"Data Updated Past End", nd.OnDataUpdated(1), domain.ErrPortIndexOutOfRange},
		{"Moved To Past End", nd.OnPortMoved(domain.PortIn, 0, 2), domain.ErrPortIndexOutOfRange},
		{"Removed Past End", nd.OnPortRemoved(domain.PortIn, 2), domain.ErrPortIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.want)
		})
	}

	// Failed mutations leave the table untouched.
	assert.Equal(t, 2, nd.State().Len(domain.PortIn))
	assert.NoError(t, nd.Validate())
}

func TestNode_ModelPortAdded(t *testing.T) {
	nd, sum, _, conns := sumWithInputs(t, 2)
	g := &recordingGraphics{}
	nd.SetGraphicsObject(g)

	require.NoError(t, sum.InsertPort(domain.PortIn, 0))

	assert.Equal(t, 3, nd.State().Len(domain.PortIn))
	assert.Equal(t, domain.PortIndex(1), conns[0].PortIndex(domain.PortIn))
	assert.Equal(t, domain.PortIndex(2), conns[1].PortIndex(domain.PortIn))
	assert.NoError(t, nd.Validate())
	assert.Equal(t, []string{"geometry_changed", "update", "move_connections"}, g.calls)
}

func TestNode_ModelPortMoved_ConnectionsFollowThePort(t *testing.T) {
	nd, sum, _, conns := sumWithInputs(t, 3)

	require.NoError(t, sum.MovePort(domain.PortIn, 0, 2))

	assert.Equal(t, 3, nd.State().Len(domain.PortIn))
	assert.Equal(t, domain.PortIndex(2), conns[0].PortIndex(domain.PortIn))
	assert.Equal(t, domain.PortIndex(0), conns[1].PortIndex(domain.PortIn))
	assert.Equal(t, domain.PortIndex(1), conns[2].PortIndex(domain.PortIn))
	assert.True(t, nd.State().HasConnection(domain.PortIn, 2, conns[0].id))
	assert.NoError(t, nd.Validate())
}

func TestNode_ModelPortMoved_Backwards(t *testing.T) {
	nd, sum, _, conns := sumWithInputs(t, 4)

	require.NoError(t, sum.MovePort(domain.PortIn, 3, 1))

	want := []domain.PortIndex{0, 2, 3, 1}
	for i, c := range conns {
		assert.Equal(t, want[i], c.PortIndex(domain.PortIn), "connection %d", i)
	}
	assert.NoError(t, nd.Validate())
}

func TestNode_ModelPortRemoved_SignalsBeforeErase(t *testing.T) {
	nd, sum, _, conns := sumWithInputs(t, 3)

	type signal struct {
		id         domain.ConnectionID
		side       domain.PortType
		stillThere bool
	}
	var signals []signal
	nd.OnConnectionRemoved(func(c ports.Connection, side domain.PortType) {
		signals = append(signals, signal{
			id:         c.ID(),
			side:       side,
			stillThere: nd.State().HasConnection(side, c.PortIndex(side), c.ID()),
		})
	})

	require.NoError(t, sum.RemovePort(domain.PortIn, 1))

	require.Len(t, signals, 1)
	assert.Equal(t, signal{id: conns[1].id, side: domain.PortIn, stillThere: true}, signals[0])

	assert.Equal(t, 2, nd.State().Len(domain.PortIn))
	assert.Equal(t, domain.PortIndex(0), conns[0].PortIndex(domain.PortIn))
	assert.Equal(t, domain.PortIndex(1), conns[2].PortIndex(domain.PortIn))
	assert.NoError(t, nd.Validate())
}

func TestNode_ModelPortRemoved_HandlerMayDetachConnection(t *testing.T) {
	nd, sum, _, conns := sumWithInputs(t, 2)

	var seen []domain.ConnectionID
	nd.OnConnectionRemoved(func(c ports.Connection, side domain.PortType) {
		seen = append(seen, c.ID())
		require.NoError(t, nd.State().EraseConnection(side, c.PortIndex(side), c.ID()))
	})

	require.NoError(t, sum.RemovePort(domain.PortIn, 0))

	assert.Equal(t, []domain.ConnectionID{conns[0].id}, seen)
	assert.Equal(t, domain.PortIndex(0), conns[1].PortIndex(domain.PortIn))
	assert.NoError(t, nd.Validate())
}

func TestNode_OnPortRemoved_NoSignalWithoutSurplus(t *testing.T) {
	nd, _, _, _ := sumWithInputs(t, 2)

	signalled := 0
	nd.OnConnectionRemoved(func(ports.Connection, domain.PortType) { signalled++ })

	// The model still reports two inputs, so nothing is beyond its port count.
	require.NoError(t, nd.OnPortRemoved(domain.PortIn, 0))

	assert.Zero(t, signalled)
	assert.Equal(t, 1, nd.State().Len(domain.PortIn))
	assert.ErrorIs(t, nd.Validate(), domain.ErrInvariantViolated)
}

func TestNode_OnConnectionRemoved_Cancel(t *testing.T) {
	nd, sum, _, _ := sumWithInputs(t, 2)

	calls := 0
	cancel := nd.OnConnectionRemoved(func(ports.Connection, domain.PortType) { calls++ })
	cancel()

	require.NoError(t, sum.RemovePort(domain.PortIn, 0))
	assert.Zero(t, calls)
}

func TestNode_OnDataUpdated_PushesToOutputConnectionsOnly(t *testing.T) {
	reg := newFakeRegistry()
	sum := models.NewSum(1)
	nd := node.New(sum, reg)

	outA := reg.attach(t, nd, domain.PortOut, 0)
	outB := reg.attach(t, nd, domain.PortOut, 0)
	in := reg.attach(t, nd, domain.PortIn, 0)

	var events []*domain.DataEvent
	nd2 := node.New(models.NewNumberSource(3), reg, node.WithHooks(domain.NodeHooks{
		OnDataPropagated: func(e *domain.DataEvent) { events = append(events, e) },
	}))
	other := reg.attach(t, nd2, domain.PortOut, 0)

	// SetInData recomputes the sum and the model notifies the node.
	require.NoError(t, nd.PropagateData(models.Decimal{Value: 4}, 0))

	assert.Equal(t, []domain.NodeData{models.Decimal{Value: 4}}, outA.received)
	assert.Equal(t, []domain.NodeData{models.Decimal{Value: 4}}, outB.received)
	assert.Empty(t, in.received)
	assert.Empty(t, other.received)
	assert.Empty(t, events)

	require.NoError(t, nd2.OnDataUpdated(0))
	assert.Equal(t, []domain.NodeData{models.Decimal{Value: 3}}, other.received)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].Connections)
}

func TestNode_OnDataUpdated_SkipsStaleHandles(t *testing.T) {
	reg := newFakeRegistry()
	src := models.NewNumberSource(1)
	nd := node.New(src, reg)

	live := reg.attach(t, nd, domain.PortOut, 0)
	require.NoError(t, nd.State().SetConnection(domain.PortOut, 0, "gone"))

	src.SetValue(2)

	assert.Equal(t, []domain.NodeData{models.Decimal{Value: 2}}, live.received)
	assert.ErrorIs(t, nd.Validate(), domain.ErrInvariantViolated)
}

func TestNode_PropagateData_UpdatesGraphics(t *testing.T) {
	sum := models.NewSum(2)
	nd := node.New(sum, nil)
	g := &recordingGraphics{}
	nd.SetGraphicsObject(g)

	require.NoError(t, nd.PropagateData(models.Decimal{Value: 5}, 1))

	v, ok := sum.Input(1)
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, []string{"geometry_changed", "update", "move_connections"}, g.calls)
}

func TestNode_SaveRestore_RoundTrip(t *testing.T) {
	nd := node.New(models.NewSum(3), nil)
	nd.SetGraphicsObject(&recordingGraphics{})
	nd.SetPosition(domain.Point{X: 12.5, Y: -4})

	rec := nd.Save()
	assert.Equal(t, string(nd.ID()), rec.ID)
	assert.Equal(t, domain.PositionRecord{X: 12.5, Y: -4}, rec.Position)
	assert.Equal(t, "sum", rec.ModelName())

	sum := models.NewSum(2)
	restored := node.New(sum, nil)
	restored.SetGraphicsObject(&recordingGraphics{})
	require.NoError(t, restored.Restore(rec))

	assert.Equal(t, nd.ID(), restored.ID())
	assert.Equal(t, nd.Position(), restored.Position())
	assert.Equal(t, 3, sum.NPorts(domain.PortIn))
	assert.Equal(t, 3, restored.State().Len(domain.PortIn), "model restore keeps entries in step")
	assert.NoError(t, restored.Validate())
}

func TestNode_RestoreBeforeGraphicsAttached(t *testing.T) {
	src := node.New(models.NewNumberSource(1), nil)
	src.SetPosition(domain.Point{X: 3, Y: 4})
	rec := src.Save()

	nd := node.New(models.NewNumberSource(0), nil)
	require.NoError(t, nd.Restore(rec))

	g := &recordingGraphics{}
	nd.SetGraphicsObject(g)
	assert.Equal(t, domain.Point{X: 3, Y: 4}, g.pos)
}

func TestNode_AttachKeepsGraphicsPosition(t *testing.T) {
	nd := node.New(models.NewNumberSource(1), nil)
	g := &recordingGraphics{pos: domain.Point{X: 50, Y: 60}}

	nd.SetGraphicsObject(g)
	assert.Equal(t, domain.Point{X: 50, Y: 60}, g.pos)
	assert.Equal(t, domain.Point{X: 50, Y: 60}, nd.Position())

	// Detaching keeps the last position for the next graphics object.
	nd.SetGraphicsObject(nil)
	assert.Equal(t, domain.Point{X: 50, Y: 60}, nd.Position())
	next := &recordingGraphics{}
	nd.SetGraphicsObject(next)
	assert.Equal(t, domain.Point{X: 50, Y: 60}, next.pos)
}

func TestNode_RestoreRejectsInvalidID(t *testing.T) {
	nd := node.New(models.NewNumberSource(0), nil)
	before := nd.ID()

	err := nd.Restore(domain.NodeRecord{ID: "not-a-uuid"})
	assert.Error(t, err)
	assert.Equal(t, before, nd.ID())
}

func TestNode_ReactToPossibleConnection(t *testing.T) {
	nd := node.New(models.NewDisplay(), nil)

	err := nd.ReactToPossibleConnection(domain.PortIn, models.DecimalType, domain.Point{})
	assert.ErrorIs(t, err, domain.ErrNoGraphicsObject)

	g := &recordingGraphics{}
	nd.SetGraphicsObject(g)
	nd.SetPosition(domain.Point{X: 100, Y: 50})
	g.calls = nil

	require.NoError(t, nd.ReactToPossibleConnection(domain.PortIn, models.DecimalType, domain.Point{X: 110, Y: 70}))

	assert.Equal(t, domain.Point{X: 10, Y: 20}, nd.Geometry().DraggingPosition())
	assert.True(t, nd.State().IsReacting())
	assert.Equal(t, domain.PortIn, nd.State().ReactingPortType())
	assert.Equal(t, models.DecimalType, nd.State().ReactingDataType())
	assert.Equal(t, []string{"update"}, g.calls)

	nd.ResetReactionToConnection()
	assert.False(t, nd.State().IsReacting())
	assert.Equal(t, domain.NotReacting, nd.State().Reaction())
	assert.Equal(t, []string{"update", "update"}, g.calls)
}

func TestNode_ReactToPossibleConnection_SingularTransform(t *testing.T) {
	nd := node.New(models.NewDisplay(), nil)
	flat := domain.Scaling(0, 1)
	nd.SetGraphicsObject(&recordingGraphics{transform: &flat})

	err := nd.ReactToPossibleConnection(domain.PortIn, models.DecimalType, domain.Point{X: 1, Y: 1})
	assert.ErrorIs(t, err, domain.ErrSingularTransform)
	assert.False(t, nd.State().IsReacting())
}

func TestNode_Hooks(t *testing.T) {
	stub := &stubModel{in: 1, out: 1}
	var (
		portEvents []domain.PortEvent
		errs       []error
	)
	nd := node.New(stub, nil, node.WithHooks(domain.NodeHooks{
		OnPortEvent: func(e *domain.PortEvent) { portEvents = append(portEvents, *e) },
		OnError:     func(_ domain.NodeID, err error) { errs = append(errs, err) },
	}))

	stub.in = 2
	stub.EmitPortAdded(domain.PortIn, 1)
	// A notification with a bogus index is reported, not applied.
	stub.EmitPortAdded(domain.PortIn, 7)

	require.Len(t, portEvents, 1)
	assert.Equal(t, domain.PortEvent{Kind: domain.PortAdded, NodeID: nd.ID(), PortType: domain.PortIn, Index: 1}, portEvents[0])
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrPortIndexOutOfRange)
	assert.NoError(t, nd.Validate())
}

func TestNode_Close_StopsListening(t *testing.T) {
	nd, sum, _, _ := sumWithInputs(t, 2)
	nd.Close()

	require.NoError(t, sum.InsertPort(domain.PortIn, 0))
	assert.Equal(t, 2, nd.State().Len(domain.PortIn))
}
