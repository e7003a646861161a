package node

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/google/uuid"
)

// Node is a visual element owning a data model, a connection table and a layout.
// It is not safe for concurrent use; all calls are expected on the editor's event goroutine.
type Node struct {
	id       domain.NodeID
	model    ports.DataModel
	state    *State
	geometry *Geometry
	graphics ports.GraphicsObject

	// pendingPos holds the position while no graphics object is attached.
	// hasPending is set once a position was given before attachment.
	pendingPos domain.Point
	hasPending bool

	conns       ports.ConnectionLookup
	geometryCfg GeometryConfig
	logger      *slog.Logger
	hooks       domain.NodeHooks

	removedObservers []removedObserver
	nextObserverID   int
	cancelModel      func()
}

type removedObserver struct {
	id int
	fn func(ports.Connection, domain.PortType)
}

// Option configures a Node.
type Option func(*Node)

// WithID overrides the generated node ID.
func WithID(id domain.NodeID) Option {
	return func(n *Node) {
		n.id = id
	}
}

// WithLogger configures a logger for the node.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		n.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.NodeHooks) Option {
	return func(n *Node) {
		n.hooks = hooks
	}
}

// WithGeometryConfig sets the layout tunables.
func WithGeometryConfig(cfg GeometryConfig) Option {
	return func(n *Node) {
		n.geometryCfg = cfg
	}
}

type noConnections struct{}

func (noConnections) Connection(domain.ConnectionID) (ports.Connection, bool) { return nil, false }

// New creates a node around model. conns resolves the connection handles stored
// in the node's entries; it may be nil for a node that is never connected.
func New(model ports.DataModel, conns ports.ConnectionLookup, opts ...Option) *Node {
	if conns == nil {
		conns = noConnections{}
	}
	n := &Node{
		id:          domain.NodeID(uuid.NewString()),
		model:       model,
		conns:       conns,
		geometryCfg: DefaultGeometryConfig(),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}

	n.state = NewState(model)
	n.geometry = NewGeometry(model, n.geometryCfg)
	n.geometry.RecalculateSize()

	// propagate notifications: model => node
	n.cancelModel = model.Observe(&modelListener{node: n})
	return n
}

// Close detaches the node from its model. Connections are left to their owner.
func (n *Node) Close() {
	if n.cancelModel != nil {
		n.cancelModel()
		n.cancelModel = nil
	}
	n.removedObservers = nil
}

func (n *Node) ID() domain.NodeID                    { return n.id }
func (n *Node) Model() ports.DataModel               { return n.model }
func (n *Node) State() *State                        { return n.state }
func (n *Node) Geometry() *Geometry                  { return n.geometry }
func (n *Node) GraphicsObject() ports.GraphicsObject { return n.graphics }

// SetGraphicsObject attaches the scene presence of the node.
// A position restored or set before attachment is handed over to the
// graphics object; otherwise it keeps its own.
func (n *Node) SetGraphicsObject(g ports.GraphicsObject) {
	if g == nil && n.graphics != nil {
		n.pendingPos, n.hasPending = n.graphics.Pos(), true
	}
	n.graphics = g
	if g != nil && n.hasPending {
		g.SetPos(n.pendingPos)
		n.hasPending = false
	}
	n.geometry.RecalculateSize()
}

// Position returns the scene position of the node.
func (n *Node) Position() domain.Point {
	if n.graphics != nil {
		return n.graphics.Pos()
	}
	return n.pendingPos
}

// SetPosition moves the node and, when drawn, its connection endpoints.
func (n *Node) SetPosition(p domain.Point) {
	if n.graphics == nil {
		n.pendingPos, n.hasPending = p, true
		return
	}
	n.graphics.SetPos(p)
	n.graphics.MoveConnections()
}

// Save serializes the node id, the model state and the position.
func (n *Node) Save() domain.NodeRecord {
	pos := n.Position()
	return domain.NodeRecord{
		ID:       string(n.id),
		Model:    n.model.Save(),
		Position: domain.PositionRecord{X: pos.X, Y: pos.Y},
	}
}

// Restore is the inverse of Save: it sets the id and position, then restores the model.
func (n *Node) Restore(rec domain.NodeRecord) error {
	if _, err := uuid.Parse(rec.ID); err != nil {
		return fmt.Errorf("invalid node id %q: %w", rec.ID, err)
	}
	n.id = domain.NodeID(rec.ID)
	n.SetPosition(domain.Point{X: rec.Position.X, Y: rec.Position.Y})

	if err := n.model.Restore(rec.Model); err != nil {
		return fmt.Errorf("failed to restore model %s: %w", n.model.Name(), err)
	}
	return nil
}

// ReactToPossibleConnection previews a pending connection drop at scenePoint.
func (n *Node) ReactToPossibleConnection(portType domain.PortType, dataType domain.NodeDataType, scenePoint domain.Point) error {
	if n.graphics == nil {
		return domain.ErrNoGraphicsObject
	}
	inv, err := n.graphics.SceneTransform().Inverted()
	if err != nil {
		return fmt.Errorf("failed to map scene point: %w", err)
	}

	n.geometry.SetDraggingPosition(inv.Map(scenePoint))
	n.graphics.Update()
	n.state.SetReaction(domain.Reacting, portType, dataType)
	return nil
}

// ResetReactionToConnection ends a connection preview.
func (n *Node) ResetReactionToConnection() {
	n.state.ResetReaction()
	if n.graphics != nil {
		n.graphics.Update()
	}
}

// PropagateData feeds an input port of the model.
func (n *Node) PropagateData(data domain.NodeData, inPortIndex domain.PortIndex) error {
	if err := n.checkPort(domain.PortIn, inPortIndex); err != nil {
		return err
	}
	n.model.SetInData(data, inPortIndex)

	// New data can change the node's size.
	n.UpdateGraphics()
	return nil
}

// OnDataUpdated pushes the model's output at outIndex to every connection on that port.
func (n *Node) OnDataUpdated(outIndex domain.PortIndex) error {
	ids, err := n.state.Connections(domain.PortOut, outIndex)
	if err != nil {
		return fmt.Errorf("data updated: %w", err)
	}
	data := n.model.OutData(outIndex)

	pushed := 0
	for _, id := range ids {
		c, ok := n.lookup(id)
		if !ok {
			continue
		}
		c.PropagateData(data)
		pushed++
	}

	if n.hooks.OnDataPropagated != nil {
		n.hooks.OnDataPropagated(&domain.DataEvent{NodeID: n.id, PortIndex: outIndex, Connections: pushed})
	}
	return nil
}

// UpdateGraphics refreshes geometry and asks the graphics object to repaint
// and re-anchor its connections.
func (n *Node) UpdateGraphics() {
	if n.graphics != nil {
		n.graphics.SetGeometryChanged()
	}
	n.geometry.RecalculateSize()
	if n.graphics != nil {
		n.graphics.Update()
		n.graphics.MoveConnections()
	}
}

// InsertEntry inserts an empty entry at index. Connections on entries that were
// at or after index are rewired one port up.
func (n *Node) InsertEntry(portType domain.PortType, index domain.PortIndex) error {
	if err := n.state.insert(portType, index); err != nil {
		return err
	}
	n.shiftFrom(portType, index+1, +1)
	return nil
}

// EraseEntry removes the entry at index. Connections on entries after it are
// rewired one port down.
func (n *Node) EraseEntry(portType domain.PortType, index domain.PortIndex) error {
	if _, err := n.state.erase(portType, index); err != nil {
		return err
	}
	n.shiftFrom(portType, index, -1)
	return nil
}

func (n *Node) shiftFrom(portType domain.PortType, from domain.PortIndex, delta domain.PortIndex) {
	for i := int(from); i < n.state.Len(portType); i++ {
		ids, _ := n.state.Connections(portType, domain.PortIndex(i))
		for _, id := range ids {
			c, ok := n.lookup(id)
			if !ok {
				continue
			}
			owner, ok := c.NodeID(portType)
			if !ok {
				continue
			}
			c.SetNodeToPort(owner, portType, c.PortIndex(portType)+delta)
		}
	}
}

// OnPortAdded reacts to a port inserted by the model.
func (n *Node) OnPortAdded(portType domain.PortType, index domain.PortIndex) error {
	if err := n.InsertEntry(portType, index); err != nil {
		return fmt.Errorf("port added: %w", err)
	}
	n.emitPortEvent(&domain.PortEvent{Kind: domain.PortAdded, NodeID: n.id, PortType: portType, Index: index})

	n.UpdateGraphics()
	return nil
}

// OnPortMoved reacts to a port moved by the model. The connections of the old
// entry follow the port to newIndex.
func (n *Node) OnPortMoved(portType domain.PortType, oldIndex, newIndex domain.PortIndex) error {
	moved, err := n.state.Connections(portType, oldIndex)
	if err != nil {
		return fmt.Errorf("port moved: %w", err)
	}
	if newIndex < 0 || int(newIndex) >= n.state.Len(portType) {
		return fmt.Errorf("port moved: %w: %s port %d (have %d)",
			domain.ErrPortIndexOutOfRange, portType, newIndex, n.state.Len(portType))
	}

	if err := n.EraseEntry(portType, oldIndex); err != nil {
		return fmt.Errorf("port moved: %w", err)
	}
	if err := n.InsertEntry(portType, newIndex); err != nil {
		return fmt.Errorf("port moved: %w", err)
	}

	for _, id := range moved {
		c, ok := n.lookup(id)
		if !ok {
			continue
		}
		_ = n.state.SetConnection(portType, newIndex, id)
		c.SetNodeToPort(n.id, portType, newIndex)
	}
	n.emitPortEvent(&domain.PortEvent{Kind: domain.PortMoved, NodeID: n.id, PortType: portType, Index: newIndex, OldIndex: oldIndex})

	n.UpdateGraphics()
	return nil
}

// OnPortRemoved reacts to a port removed by the model. Connections on the
// removed port are signalled to OnConnectionRemoved observers before the entry
// is erased, so handlers still see live connections.
func (n *Node) OnPortRemoved(portType domain.PortType, index domain.PortIndex) error {
	if err := n.checkPort(portType, index); err != nil {
		return fmt.Errorf("port removed: %w", err)
	}

	if n.state.Len(portType) > n.model.NPorts(portType) {
		ids, _ := n.state.Connections(portType, index)
		for _, id := range ids {
			c, ok := n.lookup(id)
			if !ok {
				continue
			}
			// Handlers may erase c from this entry; ids is a snapshot.
			n.emitConnectionRemoved(c, portType, index)
		}
	}

	if err := n.EraseEntry(portType, index); err != nil {
		return fmt.Errorf("port removed: %w", err)
	}
	n.emitPortEvent(&domain.PortEvent{Kind: domain.PortRemoved, NodeID: n.id, PortType: portType, Index: index})

	n.UpdateGraphics()
	return nil
}

// OnConnectionRemoved registers fn for connection-removed signals. side is the
// port type of this node the connection was attached to.
// The returned function unregisters it.
func (n *Node) OnConnectionRemoved(fn func(c ports.Connection, side domain.PortType)) (cancel func()) {
	id := n.nextObserverID
	n.nextObserverID++
	n.removedObservers = append(n.removedObservers, removedObserver{id: id, fn: fn})

	return func() {
		for i, o := range n.removedObservers {
			if o.id == id {
				n.removedObservers = append(n.removedObservers[:i], n.removedObservers[i+1:]...)
				return
			}
		}
	}
}

func (n *Node) emitConnectionRemoved(c ports.Connection, portType domain.PortType, index domain.PortIndex) {
	if n.hooks.OnConnectionRemoved != nil {
		n.hooks.OnConnectionRemoved(&domain.ConnectionEvent{
			NodeID:       n.id,
			ConnectionID: c.ID(),
			PortType:     portType,
			PortIndex:    index,
		})
	}
	observers := append([]removedObserver(nil), n.removedObservers...)
	for _, o := range observers {
		o.fn(c, portType)
	}
}

func (n *Node) emitPortEvent(e *domain.PortEvent) {
	n.logger.Debug("port entries changed",
		"node_id", n.id,
		"kind", e.Kind,
		"port_type", e.PortType,
		"index", e.Index,
	)
	if n.hooks.OnPortEvent != nil {
		n.hooks.OnPortEvent(e)
	}
}

// Validate checks that entry counts match the model and that every referenced
// connection records this node and the entry position.
func (n *Node) Validate() error {
	var errs []error
	for _, portType := range []domain.PortType{domain.PortIn, domain.PortOut} {
		if got, want := n.state.Len(portType), n.model.NPorts(portType); got != want {
			errs = append(errs, fmt.Errorf("%w: node %s has %d %s entries, model reports %d",
				domain.ErrInvariantViolated, n.id, got, portType, want))
		}
		for i := 0; i < n.state.Len(portType); i++ {
			idx := domain.PortIndex(i)
			ids, _ := n.state.Connections(portType, idx)
			for _, id := range ids {
				c, ok := n.conns.Connection(id)
				if !ok {
					errs = append(errs, fmt.Errorf("%w: node %s %s port %d references unknown connection %s",
						domain.ErrInvariantViolated, n.id, portType, idx, id))
					continue
				}
				if owner, ok := c.NodeID(portType); !ok || owner != n.id {
					errs = append(errs, fmt.Errorf("%w: connection %s is not attached to node %s on its %s side",
						domain.ErrInvariantViolated, id, n.id, portType))
				}
				if got := c.PortIndex(portType); got != idx {
					errs = append(errs, fmt.Errorf("%w: connection %s records %s port %d, entry is %d",
						domain.ErrInvariantViolated, id, portType, got, idx))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func (n *Node) checkPort(portType domain.PortType, index domain.PortIndex) error {
	if !portType.Valid() {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPortType, portType)
	}
	if index < 0 || int(index) >= n.state.Len(portType) {
		return fmt.Errorf("%w: %s port %d (have %d)", domain.ErrPortIndexOutOfRange, portType, index, n.state.Len(portType))
	}
	return nil
}

func (n *Node) lookup(id domain.ConnectionID) (ports.Connection, bool) {
	c, ok := n.conns.Connection(id)
	if !ok {
		n.logger.Warn("stale connection handle", "node_id", n.id, "connection_id", id)
	}
	return c, ok
}

func (n *Node) report(op string, err error) {
	if err == nil {
		return
	}
	n.logger.Error("model notification failed", "node_id", n.id, "op", op, "error", err)
	if n.hooks.OnError != nil {
		n.hooks.OnError(n.id, err)
	}
}

// modelListener adapts model notifications to node handlers.
type modelListener struct {
	node *Node
}

func (l *modelListener) DataUpdated(index domain.PortIndex) {
	l.node.report("data_updated", l.node.OnDataUpdated(index))
}

func (l *modelListener) PortAdded(portType domain.PortType, index domain.PortIndex) {
	l.node.report("port_added", l.node.OnPortAdded(portType, index))
}

func (l *modelListener) PortMoved(portType domain.PortType, oldIndex, newIndex domain.PortIndex) {
	l.node.report("port_moved", l.node.OnPortMoved(portType, oldIndex, newIndex))
}

func (l *modelListener) PortRemoved(portType domain.PortType, index domain.PortIndex) {
	l.node.report("port_removed", l.node.OnPortRemoved(portType, index))
}
