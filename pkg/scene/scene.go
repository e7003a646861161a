// Package scene owns nodes and the connections between them.
//
// A Scene is the connection registry nodes resolve handles against, the
// receiver of their connection-removed signals, and the unit that is saved to
// and restored from a ports.SceneStore.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/adapters/canvas"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/google/uuid"
)

// GraphicsFactory builds the graphics object of a new node. moveConnections
// must be called whenever the object re-anchors its connections.
type GraphicsFactory func(moveConnections func()) ports.GraphicsObject

// DefaultGraphics builds headless canvas items.
func DefaultGraphics(moveConnections func()) ports.GraphicsObject {
	return canvas.New(canvas.WithMoveConnections(moveConnections))
}

// Scene is not safe for concurrent use. Share it through a session.Manager.
type Scene struct {
	nodes     map[domain.NodeID]*node.Node
	nodeOrder []domain.NodeID

	conns     map[domain.ConnectionID]*Connection
	connOrder []domain.ConnectionID

	registry    *registry.Registry
	graphics    GraphicsFactory
	geometryCfg node.GeometryConfig
	logger      *slog.Logger
	hooks       domain.NodeHooks
}

// Option configures a Scene.
type Option func(*Scene)

// WithRegistry sets the model registry used by Restore.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Scene) {
		s.registry = reg
	}
}

// WithGraphicsFactory replaces the headless canvas.
func WithGraphicsFactory(f GraphicsFactory) Option {
	return func(s *Scene) {
		s.graphics = f
	}
}

// WithGeometryConfig sets the layout of every node created by the scene.
func WithGeometryConfig(cfg node.GeometryConfig) Option {
	return func(s *Scene) {
		s.geometryCfg = cfg
	}
}

// WithLogger configures a logger for the scene and its nodes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scene) {
		s.logger = logger
	}
}

// WithHooks registers hooks on every node of the scene.
func WithHooks(hooks domain.NodeHooks) Option {
	return func(s *Scene) {
		s.hooks = hooks
	}
}

// New creates an empty scene.
func New(opts ...Option) *Scene {
	s := &Scene{
		nodes:       make(map[domain.NodeID]*node.Node),
		conns:       make(map[domain.ConnectionID]*Connection),
		graphics:    DefaultGraphics,
		geometryCfg: node.DefaultGeometryConfig(),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connection implements ports.ConnectionLookup.
func (s *Scene) Connection(id domain.ConnectionID) (ports.Connection, bool) {
	c, ok := s.conns[id]
	if !ok {
		return nil, false
	}
	return c, true
}

// Lookup returns the concrete connection for a handle.
func (s *Scene) Lookup(id domain.ConnectionID) (*Connection, error) {
	c, ok := s.conns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrConnectionNotFound, id)
	}
	return c, nil
}

// CreateNode wraps model in a node, attaches a graphics object and adds it to the scene.
func (s *Scene) CreateNode(model ports.DataModel, opts ...node.Option) (*node.Node, error) {
	n := s.newNode(model, opts...)
	if _, exists := s.nodes[n.ID()]; exists {
		n.Close()
		return nil, fmt.Errorf("duplicate node id %s", n.ID())
	}
	s.add(n)
	return n, nil
}

// AddNode creates a registry model from rec and adds it to the scene. An empty
// rec.ID gets a fresh one.
func (s *Scene) AddNode(rec domain.NodeRecord) (*node.Node, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("%w: scene has no model registry", domain.ErrModelNotRegistered)
	}
	model, err := s.registry.Create(rec.ModelName())
	if err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	n := s.newNode(model)
	if err := n.Restore(rec); err != nil {
		n.Close()
		return nil, err
	}
	if _, exists := s.nodes[n.ID()]; exists {
		n.Close()
		return nil, fmt.Errorf("duplicate node id %s", n.ID())
	}
	s.add(n)
	return n, nil
}

func (s *Scene) newNode(model ports.DataModel, opts ...node.Option) *node.Node {
	base := []node.Option{
		node.WithLogger(s.logger),
		node.WithHooks(s.hooks),
		node.WithGeometryConfig(s.geometryCfg),
	}
	n := node.New(model, s, append(base, opts...)...)
	n.SetGraphicsObject(s.graphics(func() { s.anchor(n) }))
	n.OnConnectionRemoved(func(c ports.Connection, side domain.PortType) {
		// An input port going away takes its data with it; only an output
		// removal leaves a live input that must be cleared.
		if err := s.detach(c.ID(), side == domain.PortOut); err != nil {
			s.logger.Warn("failed to drop connection of removed port", "connection_id", c.ID(), "error", err)
		}
	})
	return n
}

func (s *Scene) add(n *node.Node) {
	s.nodes[n.ID()] = n
	s.nodeOrder = append(s.nodeOrder, n.ID())
	s.logger.Debug("node created", "node_id", n.ID(), "model", n.Model().Name())
}

// Node returns a node by id.
func (s *Scene) Node(id domain.NodeID) (*node.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	return n, nil
}

// Nodes returns the nodes in creation order.
func (s *Scene) Nodes() []*node.Node {
	out := make([]*node.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id])
	}
	return out
}

// RemoveNode deletes the connections attached to a node, then the node itself.
func (s *Scene) RemoveNode(id domain.NodeID) error {
	n, err := s.Node(id)
	if err != nil {
		return err
	}
	for _, c := range s.attached(n) {
		if err := s.DeleteConnection(c); err != nil {
			return err
		}
	}
	n.Close()
	delete(s.nodes, id)
	s.nodeOrder = slices.DeleteFunc(s.nodeOrder, func(x domain.NodeID) bool { return x == id })
	s.logger.Debug("node removed", "node_id", id)
	return nil
}

func (s *Scene) attached(n *node.Node) []domain.ConnectionID {
	var ids []domain.ConnectionID
	for _, portType := range []domain.PortType{domain.PortIn, domain.PortOut} {
		for i := 0; i < n.State().Len(portType); i++ {
			entry, _ := n.State().Connections(portType, domain.PortIndex(i))
			ids = append(ids, entry...)
		}
	}
	return ids
}

// CreateConnection links an output port to an input port and pushes the
// current output through it once. A connection already feeding the input
// port is replaced.
func (s *Scene) CreateConnection(outID domain.NodeID, outIndex domain.PortIndex, inID domain.NodeID, inIndex domain.PortIndex) (*Connection, error) {
	return s.connect(domain.ConnectionID(uuid.NewString()), outID, outIndex, inID, inIndex)
}

func (s *Scene) connect(id domain.ConnectionID, outID domain.NodeID, outIndex domain.PortIndex, inID domain.NodeID, inIndex domain.PortIndex) (*Connection, error) {
	if _, exists := s.conns[id]; exists {
		return nil, fmt.Errorf("duplicate connection id %s", id)
	}
	out, err := s.Node(outID)
	if err != nil {
		return nil, err
	}
	in, err := s.Node(inID)
	if err != nil {
		return nil, err
	}
	if outIndex < 0 || int(outIndex) >= out.State().Len(domain.PortOut) {
		return nil, fmt.Errorf("%w: output %d of node %s", domain.ErrPortIndexOutOfRange, outIndex, outID)
	}
	if inIndex < 0 || int(inIndex) >= in.State().Len(domain.PortIn) {
		return nil, fmt.Errorf("%w: input %d of node %s", domain.ErrPortIndexOutOfRange, inIndex, inID)
	}
	outType := out.Model().DataType(domain.PortOut, outIndex)
	inType := in.Model().DataType(domain.PortIn, inIndex)
	if outType.ID != inType.ID {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrIncompatibleDataType, outType.ID, inType.ID)
	}
	if s.reaches(inID, outID) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrCycleDetected, outID, inID)
	}

	// An input port holds one value, so it takes one connection.
	existing, _ := in.State().Connections(domain.PortIn, inIndex)
	for _, old := range existing {
		if err := s.detach(old, false); err != nil {
			return nil, err
		}
		s.logger.Debug("connection replaced", "connection_id", old, "by", id)
	}

	c := &Connection{
		id:    id,
		scene: s,
		out:   end{node: outID, index: outIndex},
		in:    end{node: inID, index: inIndex},
	}
	s.conns[id] = c
	s.connOrder = append(s.connOrder, id)
	_ = out.State().SetConnection(domain.PortOut, outIndex, id)
	_ = in.State().SetConnection(domain.PortIn, inIndex, id)

	s.anchor(out)
	s.anchor(in)
	s.logger.Debug("connection created", "connection_id", id, "out", outID, "in", inID)

	c.PropagateData(out.Model().OutData(outIndex))
	return c, nil
}

// reaches reports whether data leaving from can arrive at to.
func (s *Scene) reaches(from, to domain.NodeID) bool {
	seen := map[domain.NodeID]bool{}
	stack := []domain.NodeID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, c := range s.conns {
			if c.out.node == id {
				stack = append(stack, c.in.node)
			}
		}
	}
	return false
}

// DeleteConnection unregisters a connection from both nodes and clears the
// input it was feeding.
func (s *Scene) DeleteConnection(id domain.ConnectionID) error {
	return s.detach(id, true)
}

func (s *Scene) detach(id domain.ConnectionID, clearInput bool) error {
	c, err := s.Lookup(id)
	if err != nil {
		return err
	}
	for _, portType := range []domain.PortType{domain.PortOut, domain.PortIn} {
		nodeID, ok := c.NodeID(portType)
		if !ok {
			continue
		}
		if n, ok := s.nodes[nodeID]; ok {
			_ = n.State().EraseConnection(portType, c.PortIndex(portType), id)
		}
	}
	delete(s.conns, id)
	s.connOrder = slices.DeleteFunc(s.connOrder, func(x domain.ConnectionID) bool { return x == id })
	s.logger.Debug("connection deleted", "connection_id", id)

	if clearInput {
		c.PropagateData(nil)
	}
	return nil
}

// Connections returns the connections in creation order.
func (s *Scene) Connections() []*Connection {
	out := make([]*Connection, 0, len(s.connOrder))
	for _, id := range s.connOrder {
		out = append(out, s.conns[id])
	}
	return out
}

// anchor recomputes the scene endpoints of every connection attached to n.
func (s *Scene) anchor(n *node.Node) {
	g := n.GraphicsObject()
	if g == nil {
		return
	}
	t := g.SceneTransform()
	for _, portType := range []domain.PortType{domain.PortIn, domain.PortOut} {
		for i := 0; i < n.State().Len(portType); i++ {
			idx := domain.PortIndex(i)
			ids, _ := n.State().Connections(portType, idx)
			for _, id := range ids {
				if c, ok := s.conns[id]; ok {
					c.side(portType).anchor = n.Geometry().PortScenePosition(portType, idx, t)
				}
			}
		}
	}
}

// InsertPort asks a dynamic model to insert a port. The node follows through
// the model notification.
func (s *Scene) InsertPort(id domain.NodeID, portType domain.PortType, index domain.PortIndex) error {
	dyn, err := s.dynamic(id)
	if err != nil {
		return err
	}
	return dyn.InsertPort(portType, index)
}

// RemovePort asks a dynamic model to remove a port. Connections on it are dropped.
func (s *Scene) RemovePort(id domain.NodeID, portType domain.PortType, index domain.PortIndex) error {
	dyn, err := s.dynamic(id)
	if err != nil {
		return err
	}
	return dyn.RemovePort(portType, index)
}

// MovePort asks a dynamic model to move a port. Connections follow it.
func (s *Scene) MovePort(id domain.NodeID, portType domain.PortType, oldIndex, newIndex domain.PortIndex) error {
	dyn, err := s.dynamic(id)
	if err != nil {
		return err
	}
	return dyn.MovePort(portType, oldIndex, newIndex)
}

func (s *Scene) dynamic(id domain.NodeID) (ports.DynamicPorts, error) {
	n, err := s.Node(id)
	if err != nil {
		return nil, err
	}
	dyn, ok := n.Model().(ports.DynamicPorts)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPortsNotDynamic, n.Model().Name())
	}
	return dyn, nil
}

// Save exports nodes and connections in creation order.
func (s *Scene) Save() *domain.SceneRecord {
	rec := &domain.SceneRecord{
		Nodes:       make([]domain.NodeRecord, 0, len(s.nodeOrder)),
		Connections: make([]domain.ConnectionRecord, 0, len(s.connOrder)),
	}
	for _, n := range s.Nodes() {
		rec.Nodes = append(rec.Nodes, n.Save())
	}
	for _, c := range s.Connections() {
		rec.Connections = append(rec.Connections, c.Record())
	}
	return rec
}

// Clear removes every node and connection.
func (s *Scene) Clear() {
	for _, n := range s.nodes {
		n.Close()
	}
	s.nodes = make(map[domain.NodeID]*node.Node)
	s.nodeOrder = nil
	s.conns = make(map[domain.ConnectionID]*Connection)
	s.connOrder = nil
}

// Restore replaces the scene content with rec. Models are created through the
// registry by the "name" stored in their state. On error the scene is left empty.
func (s *Scene) Restore(rec *domain.SceneRecord) error {
	s.Clear()
	if rec == nil {
		return nil
	}
	if s.registry == nil {
		return fmt.Errorf("%w: scene has no model registry", domain.ErrModelNotRegistered)
	}
	if err := s.restore(rec); err != nil {
		s.Clear()
		return err
	}
	return nil
}

func (s *Scene) restore(rec *domain.SceneRecord) error {
	for i, nr := range rec.Nodes {
		model, err := s.registry.Create(nr.ModelName())
		if err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		n := s.newNode(model)
		if err := n.Restore(nr); err != nil {
			n.Close()
			return fmt.Errorf("node %d: %w", i, err)
		}
		if _, exists := s.nodes[n.ID()]; exists {
			n.Close()
			return fmt.Errorf("node %d: duplicate node id %s", i, n.ID())
		}
		s.add(n)
	}
	for i, cr := range rec.Connections {
		if cr.ID == "" {
			cr.ID = uuid.NewString()
		}
		if _, err := s.connect(domain.ConnectionID(cr.ID), domain.NodeID(cr.OutID), cr.OutIndex, domain.NodeID(cr.InID), cr.InIndex); err != nil {
			return fmt.Errorf("connection %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks every node and that both ends of every connection are registered.
func (s *Scene) Validate() error {
	var errs []error
	for _, n := range s.Nodes() {
		if err := n.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range s.Connections() {
		for _, portType := range []domain.PortType{domain.PortOut, domain.PortIn} {
			nodeID, _ := c.NodeID(portType)
			n, ok := s.nodes[nodeID]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: connection %s references missing node %s",
					domain.ErrInvariantViolated, c.ID(), nodeID))
				continue
			}
			if !n.State().HasConnection(portType, c.PortIndex(portType), c.ID()) {
				errs = append(errs, fmt.Errorf("%w: connection %s is not registered on %s port %d of node %s",
					domain.ErrInvariantViolated, c.ID(), portType, c.PortIndex(portType), nodeID))
			}
		}
	}
	return errors.Join(errs...)
}
