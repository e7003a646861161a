package node_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/models"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/stretchr/testify/require"
)

// fakeConn is a minimal ports.Connection that records what it receives.
type fakeConn struct {
	id       domain.ConnectionID
	nodes    map[domain.PortType]domain.NodeID
	indices  map[domain.PortType]domain.PortIndex
	received []domain.NodeData
}

func (c *fakeConn) ID() domain.ConnectionID { return c.id }

func (c *fakeConn) NodeID(pt domain.PortType) (domain.NodeID, bool) {
	id, ok := c.nodes[pt]
	return id, ok
}

func (c *fakeConn) PortIndex(pt domain.PortType) domain.PortIndex {
	idx, ok := c.indices[pt]
	if !ok {
		return domain.InvalidPortIndex
	}
	return idx
}

func (c *fakeConn) SetNodeToPort(n domain.NodeID, pt domain.PortType, idx domain.PortIndex) {
	c.nodes[pt] = n
	c.indices[pt] = idx
}

func (c *fakeConn) PropagateData(data domain.NodeData) {
	c.received = append(c.received, data)
}

// fakeRegistry owns fakeConns and resolves handles.
type fakeRegistry struct {
	conns map[domain.ConnectionID]*fakeConn
	next  int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{conns: make(map[domain.ConnectionID]*fakeConn)}
}

func (r *fakeRegistry) Connection(id domain.ConnectionID) (ports.Connection, bool) {
	c, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return c, true
}

// attach creates a connection whose pt side sits on n at idx and registers it in n's entries.
func (r *fakeRegistry) attach(t *testing.T, n *node.Node, pt domain.PortType, idx domain.PortIndex) *fakeConn {
	t.Helper()
	r.next++
	c := &fakeConn{
		id:      domain.ConnectionID(fmt.Sprintf("c%02d", r.next)),
		nodes:   map[domain.PortType]domain.NodeID{},
		indices: map[domain.PortType]domain.PortIndex{},
	}
	c.SetNodeToPort(n.ID(), pt, idx)
	r.conns[c.id] = c
	require.NoError(t, n.State().SetConnection(pt, idx, c.id))
	return c
}

// recordingGraphics is a ports.GraphicsObject that logs calls.
type recordingGraphics struct {
	pos       domain.Point
	transform *domain.Transform
	calls     []string
}

func (g *recordingGraphics) Pos() domain.Point     { return g.pos }
func (g *recordingGraphics) SetPos(p domain.Point) { g.pos = p }

func (g *recordingGraphics) SceneTransform() domain.Transform {
	if g.transform != nil {
		return *g.transform
	}
	return domain.Translation(g.pos.X, g.pos.Y)
}

func (g *recordingGraphics) Update()             { g.calls = append(g.calls, "update") }
func (g *recordingGraphics) MoveConnections()    { g.calls = append(g.calls, "move_connections") }
func (g *recordingGraphics) SetGeometryChanged() { g.calls = append(g.calls, "geometry_changed") }

// stubModel has fixed port counts and exposes the emitters of models.Base.
type stubModel struct {
	models.Base
	in, out  int
	captions map[domain.PortType][]string
	caption  string
}

func (m *stubModel) Name() string    { return "stub" }
func (m *stubModel) Caption() string { return m.caption }

func (m *stubModel) NPorts(pt domain.PortType) int {
	if pt == domain.PortIn {
		return m.in
	}
	if pt == domain.PortOut {
		return m.out
	}
	return 0
}

func (m *stubModel) DataType(domain.PortType, domain.PortIndex) domain.NodeDataType {
	return models.DecimalType
}

func (m *stubModel) PortCaption(pt domain.PortType, i domain.PortIndex) string {
	labels := m.captions[pt]
	if int(i) < len(labels) {
		return labels[i]
	}
	return ""
}

func (m *stubModel) OutData(domain.PortIndex) domain.NodeData      { return nil }
func (m *stubModel) SetInData(domain.NodeData, domain.PortIndex)   {}
func (m *stubModel) Save() map[string]any                          { return map[string]any{"name": "stub"} }
func (m *stubModel) Restore(map[string]any) error                  { return nil }
