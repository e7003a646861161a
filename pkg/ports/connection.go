package ports

import "github.com/aretw0/espalier/pkg/domain"

// Connection is the surface of an edge a node relies on.
// Nodes never own connections, they address them by handle through a ConnectionLookup.
type Connection interface {
	ID() domain.ConnectionID

	// NodeID returns the node attached on the given side, if any.
	NodeID(portType domain.PortType) (domain.NodeID, bool)
	// PortIndex returns the port index on the given side.
	PortIndex(portType domain.PortType) domain.PortIndex
	// SetNodeToPort attaches the given side to a node port.
	SetNodeToPort(node domain.NodeID, portType domain.PortType, index domain.PortIndex)

	// PropagateData pushes data to the input side.
	PropagateData(data domain.NodeData)
}

// ConnectionLookup resolves connection handles. It is implemented by the owning registry.
type ConnectionLookup interface {
	Connection(id domain.ConnectionID) (Connection, bool)
}
