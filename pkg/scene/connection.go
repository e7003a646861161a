package scene

import (
	"github.com/aretw0/espalier/pkg/domain"
)

type end struct {
	node   domain.NodeID
	index  domain.PortIndex
	anchor domain.Point
}

// Connection links an output port to an input port. It is owned by the Scene;
// nodes only keep its handle.
type Connection struct {
	id    domain.ConnectionID
	scene *Scene
	out   end
	in    end
}

func (c *Connection) side(portType domain.PortType) *end {
	switch portType {
	case domain.PortOut:
		return &c.out
	case domain.PortIn:
		return &c.in
	}
	return nil
}

func (c *Connection) ID() domain.ConnectionID { return c.id }

func (c *Connection) NodeID(portType domain.PortType) (domain.NodeID, bool) {
	e := c.side(portType)
	if e == nil || e.node == "" {
		return "", false
	}
	return e.node, true
}

func (c *Connection) PortIndex(portType domain.PortType) domain.PortIndex {
	e := c.side(portType)
	if e == nil {
		return domain.InvalidPortIndex
	}
	return e.index
}

func (c *Connection) SetNodeToPort(node domain.NodeID, portType domain.PortType, index domain.PortIndex) {
	if e := c.side(portType); e != nil {
		e.node = node
		e.index = index
	}
}

// PropagateData feeds the input node. Errors are logged by the scene.
func (c *Connection) PropagateData(data domain.NodeData) {
	in, ok := c.scene.nodes[c.in.node]
	if !ok {
		return
	}
	if err := in.PropagateData(data, c.in.index); err != nil {
		c.scene.logger.Error("failed to propagate data", "connection_id", c.id, "error", err)
	}
}

// Endpoint returns the last scene anchor computed for a side.
func (c *Connection) Endpoint(portType domain.PortType) domain.Point {
	if e := c.side(portType); e != nil {
		return e.anchor
	}
	return domain.Point{}
}

// Record exports the persisted shape of the connection.
func (c *Connection) Record() domain.ConnectionRecord {
	return domain.ConnectionRecord{
		ID:       string(c.id),
		OutID:    string(c.out.node),
		OutIndex: c.out.index,
		InID:     string(c.in.node),
		InIndex:  c.in.index,
	}
}
