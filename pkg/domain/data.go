package domain

// NodeDataType describes what flows through a port.
// Two ports are compatible when their type IDs match.
type NodeDataType struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// NodeData is a value produced by an output port and consumed by an input port.
type NodeData interface {
	Type() NodeDataType
}

// ReactionState tells whether a node is previewing a pending connection drop.
type ReactionState int

const (
	NotReacting ReactionState = iota
	Reacting
)

func (r ReactionState) String() string {
	if r == Reacting {
		return "reacting"
	}
	return "not_reacting"
}
