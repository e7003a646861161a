package ports

import "github.com/aretw0/espalier/pkg/domain"

// ModelObserver receives notifications from a DataModel.
// Calls happen synchronously on the goroutine that mutates the model.
type ModelObserver interface {
	// DataUpdated signals fresh output data at the given output port.
	DataUpdated(index domain.PortIndex)

	// PortAdded signals that a port was inserted at index. NPorts already reflects it.
	PortAdded(portType domain.PortType, index domain.PortIndex)

	// PortMoved signals that a port moved from oldIndex to newIndex.
	PortMoved(portType domain.PortType, oldIndex, newIndex domain.PortIndex)

	// PortRemoved signals that the port at index was removed. NPorts already reflects it.
	PortRemoved(portType domain.PortType, index domain.PortIndex)
}

// DataModel is the user-supplied processing unit owned by a node.
type DataModel interface {
	// Name is the registry key used to recreate the model on restore.
	Name() string
	// Caption is the human-readable title drawn on the node.
	Caption() string

	NPorts(portType domain.PortType) int
	DataType(portType domain.PortType, index domain.PortIndex) domain.NodeDataType
	PortCaption(portType domain.PortType, index domain.PortIndex) string

	// OutData returns the current value of an output port (nil when empty).
	OutData(index domain.PortIndex) domain.NodeData
	// SetInData feeds an input port. A nil value clears it.
	SetInData(data domain.NodeData, index domain.PortIndex)

	// Save returns the model state. It must contain "name".
	Save() map[string]any
	// Restore applies a state previously produced by Save.
	Restore(state map[string]any) error

	// Observe registers an observer and returns a function that unregisters it.
	Observe(observer ModelObserver) (cancel func())
}

// DynamicPorts is implemented by models whose port layout can change at runtime.
type DynamicPorts interface {
	InsertPort(portType domain.PortType, index domain.PortIndex) error
	RemovePort(portType domain.PortType, index domain.PortIndex) error
	MovePort(portType domain.PortType, oldIndex, newIndex domain.PortIndex) error
}
