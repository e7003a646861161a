package scene_test

import (
	"testing"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/models"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/aretw0/espalier/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adder is the scene a, b -> sum -> display.
type adder struct {
	scene      *scene.Scene
	a, b       *models.NumberSource
	sum        *models.Sum
	display    *models.Display
	nA, nB     *node.Node
	nSum, nOut *node.Node
	toA, toB   *scene.Connection
	toDisplay  *scene.Connection
}

func newRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	models.Register(reg)
	return reg
}

func newAdder(t *testing.T, opts ...scene.Option) *adder {
	t.Helper()
	s := scene.New(append([]scene.Option{scene.WithRegistry(newRegistry())}, opts...)...)
	f := &adder{
		scene:   s,
		a:       models.NewNumberSource(4),
		b:       models.NewNumberSource(3),
		sum:     models.NewSum(2),
		display: models.NewDisplay(),
	}
	var err error
	f.nA, err = s.CreateNode(f.a)
	require.NoError(t, err)
	f.nB, err = s.CreateNode(f.b)
	require.NoError(t, err)
	f.nSum, err = s.CreateNode(f.sum)
	require.NoError(t, err)
	f.nOut, err = s.CreateNode(f.display)
	require.NoError(t, err)

	f.toA, err = s.CreateConnection(f.nA.ID(), 0, f.nSum.ID(), 0)
	require.NoError(t, err)
	f.toB, err = s.CreateConnection(f.nB.ID(), 0, f.nSum.ID(), 1)
	require.NoError(t, err)
	f.toDisplay, err = s.CreateConnection(f.nSum.ID(), 0, f.nOut.ID(), 0)
	require.NoError(t, err)
	return f
}

func displayed(t *testing.T, d *models.Display) float64 {
	t.Helper()
	v, ok := d.Value()
	require.True(t, ok, "display should hold a value")
	return v
}

func TestScene_DataFlow(t *testing.T) {
	f := newAdder(t)

	assert.Equal(t, 7.0, displayed(t, f.display))

	f.a.SetValue(10)
	assert.Equal(t, 13.0, displayed(t, f.display))
	assert.NoError(t, f.scene.Validate())
}

func TestScene_DeleteConnectionClearsInput(t *testing.T) {
	f := newAdder(t)

	require.NoError(t, f.scene.DeleteConnection(f.toA.ID()))

	assert.Equal(t, 3.0, displayed(t, f.display))
	assert.False(t, f.nA.State().HasConnection(domain.PortOut, 0, f.toA.ID()))
	assert.Len(t, f.scene.Connections(), 2)
	assert.NoError(t, f.scene.Validate())

	assert.ErrorIs(t, f.scene.DeleteConnection(f.toA.ID()), domain.ErrConnectionNotFound)
}

func TestScene_InputTakesOneConnection(t *testing.T) {
	f := newAdder(t)
	c := models.NewNumberSource(20)
	nC, err := f.scene.CreateNode(c)
	require.NoError(t, err)

	toC, err := f.scene.CreateConnection(nC.ID(), 0, f.nSum.ID(), 0)
	require.NoError(t, err)

	assert.Equal(t, 23.0, displayed(t, f.display))
	_, err = f.scene.Lookup(f.toA.ID())
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
	assert.False(t, f.nA.State().HasConnection(domain.PortOut, 0, f.toA.ID()))
	ids, err := f.nSum.State().Connections(domain.PortIn, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.ConnectionID{toC.ID()}, ids)
	assert.Len(t, f.scene.Connections(), 3)
	assert.NoError(t, f.scene.Validate())

	// The replaced source no longer reaches the input.
	f.a.SetValue(100)
	assert.Equal(t, 23.0, displayed(t, f.display))

	require.NoError(t, f.scene.DeleteConnection(toC.ID()))
	assert.Equal(t, 3.0, displayed(t, f.display))
}

func TestScene_RemovePortDropsItsConnections(t *testing.T) {
	f := newAdder(t)

	require.NoError(t, f.scene.RemovePort(f.nSum.ID(), domain.PortIn, 0))

	_, err := f.scene.Lookup(f.toA.ID())
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
	assert.Empty(t, mustConnections(t, f.nA, domain.PortOut, 0))

	assert.Equal(t, domain.PortIndex(0), f.toB.PortIndex(domain.PortIn))
	assert.Equal(t, 3.0, displayed(t, f.display))
	assert.NoError(t, f.scene.Validate())
}

func TestScene_RemoveNodeClearsDownstream(t *testing.T) {
	f := newAdder(t)

	require.NoError(t, f.scene.RemoveNode(f.nSum.ID()))

	_, ok := f.display.Value()
	assert.False(t, ok)
	assert.Empty(t, f.scene.Connections())
	assert.Len(t, f.scene.Nodes(), 3)
	assert.NoError(t, f.scene.Validate())

	_, err := f.scene.Node(f.nSum.ID())
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestScene_MovePortKeepsConnections(t *testing.T) {
	f := newAdder(t)

	require.NoError(t, f.scene.MovePort(f.nSum.ID(), domain.PortIn, 0, 1))

	assert.Equal(t, domain.PortIndex(1), f.toA.PortIndex(domain.PortIn))
	assert.Equal(t, domain.PortIndex(0), f.toB.PortIndex(domain.PortIn))
	assert.NoError(t, f.scene.Validate())

	require.NoError(t, f.scene.InsertPort(f.nSum.ID(), domain.PortIn, 0))
	assert.Equal(t, domain.PortIndex(2), f.toA.PortIndex(domain.PortIn))
	assert.Equal(t, domain.PortIndex(1), f.toB.PortIndex(domain.PortIn))
	assert.NoError(t, f.scene.Validate())
}

func TestScene_PortMutationOnFixedModel(t *testing.T) {
	f := newAdder(t)

	err := f.scene.InsertPort(f.nOut.ID(), domain.PortIn, 0)
	assert.ErrorIs(t, err, domain.ErrPortsNotDynamic)
}

func TestScene_CreateConnectionErrors(t *testing.T) {
	f := newAdder(t)
	s := f.scene

	text, err := s.CreateNode(&textSink{})
	require.NoError(t, err)

	tests := []struct {
		name    string
		out, in domain.NodeID
		outIdx  domain.PortIndex
		inIdx   domain.PortIndex
		want    error
	}{
		{"Unknown Node", "missing", f.nOut.ID(), 0, 0, domain.ErrNodeNotFound},
		{"Output Out Of Range", f.nA.ID(), f.nSum.ID(), 1, 0, domain.ErrPortIndexOutOfRange},
		{"Input Out Of Range", f.nA.ID(), f.nSum.ID(), 0, 2, domain.ErrPortIndexOutOfRange},
		{"Incompatible Types", f.nA.ID(), text.ID(), 0, 0, domain.ErrIncompatibleDataType},
		{"Self Loop", f.nSum.ID(), f.nSum.ID(), 0, 0, domain.ErrCycleDetected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateConnection(tt.out, tt.outIdx, tt.in, tt.inIdx)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Len(t, s.Connections(), 3)
}

func TestScene_CycleThroughSeveralNodes(t *testing.T) {
	s := scene.New()
	first, err := s.CreateNode(models.NewSum(1))
	require.NoError(t, err)
	second, err := s.CreateNode(models.NewSum(1))
	require.NoError(t, err)

	_, err = s.CreateConnection(first.ID(), 0, second.ID(), 0)
	require.NoError(t, err)

	_, err = s.CreateConnection(second.ID(), 0, first.ID(), 0)
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
}

func TestScene_SaveRestore(t *testing.T) {
	f := newAdder(t)
	f.nA.SetPosition(domain.Point{X: -20, Y: 10})
	f.nSum.SetPosition(domain.Point{X: 150, Y: 60.5})

	rec := f.scene.Save()
	require.Len(t, rec.Nodes, 4)
	require.Len(t, rec.Connections, 3)
	assert.Equal(t, string(f.nA.ID()), rec.Nodes[0].ID)
	assert.Equal(t, f.toDisplay.Record(), rec.Connections[2])

	restored := scene.New(scene.WithRegistry(newRegistry()))
	require.NoError(t, restored.Restore(rec))

	assert.Equal(t, rec, restored.Save())
	assert.NoError(t, restored.Validate())

	out, err := restored.Node(f.nOut.ID())
	require.NoError(t, err)
	v, ok := out.Model().(*models.Display).Value()
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)
}

func TestScene_RestoreUnknownModel(t *testing.T) {
	s := scene.New(scene.WithRegistry(newRegistry()))
	_, err := s.CreateNode(models.NewDisplay())
	require.NoError(t, err)

	err = s.Restore(&domain.SceneRecord{Nodes: []domain.NodeRecord{
		{ID: "0b6b9d4e-3b3e-4a55-9d1f-1c8a3f0f2f10", Model: map[string]any{"name": "teapot"}},
	}})

	assert.ErrorIs(t, err, domain.ErrModelNotRegistered)
	assert.Empty(t, s.Nodes())
}

func TestScene_RestoreWithoutRegistry(t *testing.T) {
	err := scene.New().Restore(&domain.SceneRecord{})
	assert.ErrorIs(t, err, domain.ErrModelNotRegistered)
}

func TestScene_ConnectionEndpointsFollowNodes(t *testing.T) {
	f := newAdder(t)

	f.nSum.SetPosition(domain.Point{X: 100, Y: 50})

	g := f.nSum.GraphicsObject()
	want := f.nSum.Geometry().PortScenePosition(domain.PortIn, 1, g.SceneTransform())
	assert.Equal(t, want, f.toB.Endpoint(domain.PortIn))
	assert.Equal(t, domain.Point{X: 100, Y: 130}, want)

	outAnchor := f.nSum.Geometry().PortScenePosition(domain.PortOut, 0, g.SceneTransform())
	assert.Equal(t, outAnchor, f.toDisplay.Endpoint(domain.PortOut))
}

func TestScene_HooksReachEveryNode(t *testing.T) {
	var events []domain.PortEvent
	removed := 0
	f := newAdder(t, scene.WithHooks(domain.NodeHooks{
		OnPortEvent:         func(e *domain.PortEvent) { events = append(events, *e) },
		OnConnectionRemoved: func(*domain.ConnectionEvent) { removed++ },
	}))

	require.NoError(t, f.scene.RemovePort(f.nSum.ID(), domain.PortIn, 1))

	require.Len(t, events, 1)
	assert.Equal(t, domain.PortRemoved, events[0].Kind)
	assert.Equal(t, f.nSum.ID(), events[0].NodeID)
	assert.Equal(t, 1, removed)
}

func mustConnections(t *testing.T, n *node.Node, pt domain.PortType, idx domain.PortIndex) []domain.ConnectionID {
	t.Helper()
	ids, err := n.State().Connections(pt, idx)
	require.NoError(t, err)
	return ids
}

// textSink accepts a data type no reference model produces.
type textSink struct {
	models.Base
}

var textType = domain.NodeDataType{ID: "text", Name: "Text"}

func (m *textSink) Name() string    { return "text_sink" }
func (m *textSink) Caption() string { return "Text" }

func (m *textSink) NPorts(pt domain.PortType) int {
	if pt == domain.PortIn {
		return 1
	}
	return 0
}

func (m *textSink) DataType(domain.PortType, domain.PortIndex) domain.NodeDataType { return textType }
func (m *textSink) PortCaption(domain.PortType, domain.PortIndex) string          { return "" }
func (m *textSink) OutData(domain.PortIndex) domain.NodeData                      { return nil }
func (m *textSink) SetInData(domain.NodeData, domain.PortIndex)                   {}
func (m *textSink) Save() map[string]any                                          { return map[string]any{"name": "text_sink"} }
func (m *textSink) Restore(map[string]any) error                                  { return nil }

func TestScene_AddNode(t *testing.T) {
	s := scene.New(scene.WithRegistry(newRegistry()))

	n, err := s.AddNode(domain.NodeRecord{
		Model:    map[string]any{"name": "number", "number": 2.5},
		Position: domain.PositionRecord{X: 5, Y: 6},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID())
	assert.Equal(t, domain.Point{X: 5, Y: 6}, n.Position())
	assert.Equal(t, 2.5, n.Model().(*models.NumberSource).Value())

	_, err = s.AddNode(domain.NodeRecord{ID: string(n.ID()), Model: map[string]any{"name": "display"}})
	assert.Error(t, err)
	assert.Len(t, s.Nodes(), 1)

	_, err = s.AddNode(domain.NodeRecord{Model: map[string]any{"name": "teapot"}})
	assert.ErrorIs(t, err, domain.ErrModelNotRegistered)

	_, err = scene.New().AddNode(domain.NodeRecord{Model: map[string]any{"name": "number"}})
	assert.ErrorIs(t, err, domain.ErrModelNotRegistered)
}
