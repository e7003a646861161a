package domain

// PortEventKind tells which structural change happened to a port.
type PortEventKind string

const (
	PortAdded   PortEventKind = "added"
	PortMoved   PortEventKind = "moved"
	PortRemoved PortEventKind = "removed"
)

// PortEvent describes an entry mutation on a node.
type PortEvent struct {
	Kind     PortEventKind `json:"kind"`
	NodeID   NodeID        `json:"node_id"`
	PortType PortType      `json:"port_type"`
	Index    PortIndex     `json:"index"`
	OldIndex PortIndex     `json:"old_index,omitempty"` // Only set for PortMoved
}

// DataEvent describes data pushed out of a node port.
type DataEvent struct {
	NodeID      NodeID    `json:"node_id"`
	PortIndex   PortIndex `json:"port_index"`
	Connections int       `json:"connections"`
}

// ConnectionEvent describes a connection-removed signal emitted by a node.
type ConnectionEvent struct {
	NodeID       NodeID       `json:"node_id"`
	ConnectionID ConnectionID `json:"connection_id"`
	PortType     PortType     `json:"port_type"`
	PortIndex    PortIndex    `json:"port_index"`
}

// NodeHooks defines callbacks for node observability.
// Every field is optional.
type NodeHooks struct {
	OnPortEvent         func(*PortEvent)
	OnDataPropagated    func(*DataEvent)
	OnConnectionRemoved func(*ConnectionEvent)
	OnError             func(NodeID, error)
}

// Merge returns hooks calling h first, then other.
func (h NodeHooks) Merge(other NodeHooks) NodeHooks {
	return NodeHooks{
		OnPortEvent: func(e *PortEvent) {
			if h.OnPortEvent != nil {
				h.OnPortEvent(e)
			}
			if other.OnPortEvent != nil {
				other.OnPortEvent(e)
			}
		},
		OnDataPropagated: func(e *DataEvent) {
			if h.OnDataPropagated != nil {
				h.OnDataPropagated(e)
			}
			if other.OnDataPropagated != nil {
				other.OnDataPropagated(e)
			}
		},
		OnConnectionRemoved: func(e *ConnectionEvent) {
			if h.OnConnectionRemoved != nil {
				h.OnConnectionRemoved(e)
			}
			if other.OnConnectionRemoved != nil {
				other.OnConnectionRemoved(e)
			}
		},
		OnError: func(id NodeID, err error) {
			if h.OnError != nil {
				h.OnError(id, err)
			}
			if other.OnError != nil {
				other.OnError(id, err)
			}
		},
	}
}
