package node

import (
	"fmt"
	"sort"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// entry is the set of connections attached to one port.
type entry map[domain.ConnectionID]struct{}

// State is the connection table of a node: one ordered sequence of entries per port type.
// It also carries the transient interaction state (connection preview, resizing).
type State struct {
	in  []entry
	out []entry

	reaction         domain.ReactionState
	reactingPortType domain.PortType
	reactingDataType domain.NodeDataType

	resizing bool
}

// NewState sizes the table from the model's current port counts.
func NewState(model ports.DataModel) *State {
	s := &State{}
	s.in = make([]entry, model.NPorts(domain.PortIn))
	for i := range s.in {
		s.in[i] = entry{}
	}
	s.out = make([]entry, model.NPorts(domain.PortOut))
	for i := range s.out {
		s.out[i] = entry{}
	}
	return s
}

func (s *State) entries(portType domain.PortType) (*[]entry, error) {
	switch portType {
	case domain.PortIn:
		return &s.in, nil
	case domain.PortOut:
		return &s.out, nil
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPortType, portType)
}

func (s *State) at(portType domain.PortType, index domain.PortIndex) (entry, error) {
	entries, err := s.entries(portType)
	if err != nil {
		return nil, err
	}
	if index < 0 || int(index) >= len(*entries) {
		return nil, fmt.Errorf("%w: %s port %d (have %d)", domain.ErrPortIndexOutOfRange, portType, index, len(*entries))
	}
	return (*entries)[index], nil
}

// Len returns the number of entries for a port type.
func (s *State) Len(portType domain.PortType) int {
	entries, err := s.entries(portType)
	if err != nil {
		return 0
	}
	return len(*entries)
}

// Connections returns the handles attached to a port, sorted for deterministic iteration.
func (s *State) Connections(portType domain.PortType, index domain.PortIndex) ([]domain.ConnectionID, error) {
	e, err := s.at(portType, index)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.ConnectionID, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SetConnection attaches a connection handle to a port.
func (s *State) SetConnection(portType domain.PortType, index domain.PortIndex, id domain.ConnectionID) error {
	e, err := s.at(portType, index)
	if err != nil {
		return err
	}
	e[id] = struct{}{}
	return nil
}

// EraseConnection detaches a connection handle from a port. Unknown handles are ignored.
func (s *State) EraseConnection(portType domain.PortType, index domain.PortIndex, id domain.ConnectionID) error {
	e, err := s.at(portType, index)
	if err != nil {
		return err
	}
	delete(e, id)
	return nil
}

// HasConnection reports whether the handle is attached to the port.
func (s *State) HasConnection(portType domain.PortType, index domain.PortIndex, id domain.ConnectionID) bool {
	e, err := s.at(portType, index)
	if err != nil {
		return false
	}
	_, ok := e[id]
	return ok
}

// insert adds an empty entry at index. index == Len is an append.
func (s *State) insert(portType domain.PortType, index domain.PortIndex) error {
	entries, err := s.entries(portType)
	if err != nil {
		return err
	}
	if index < 0 || int(index) > len(*entries) {
		return fmt.Errorf("%w: cannot insert %s port at %d (have %d)", domain.ErrPortIndexOutOfRange, portType, index, len(*entries))
	}
	*entries = append(*entries, nil)
	copy((*entries)[index+1:], (*entries)[index:])
	(*entries)[index] = entry{}
	return nil
}

// erase removes the entry at index and returns it.
func (s *State) erase(portType domain.PortType, index domain.PortIndex) (entry, error) {
	removed, err := s.at(portType, index)
	if err != nil {
		return nil, err
	}
	entries, _ := s.entries(portType)
	*entries = append((*entries)[:index], (*entries)[index+1:]...)
	return removed, nil
}

// SetReaction records the connection preview state.
func (s *State) SetReaction(reaction domain.ReactionState, portType domain.PortType, dataType domain.NodeDataType) {
	s.reaction = reaction
	s.reactingPortType = portType
	s.reactingDataType = dataType
}

// ResetReaction clears the connection preview state.
func (s *State) ResetReaction() {
	s.SetReaction(domain.NotReacting, domain.PortNone, domain.NodeDataType{})
}

func (s *State) Reaction() domain.ReactionState        { return s.reaction }
func (s *State) IsReacting() bool                      { return s.reaction == domain.Reacting }
func (s *State) ReactingPortType() domain.PortType     { return s.reactingPortType }
func (s *State) ReactingDataType() domain.NodeDataType { return s.reactingDataType }

func (s *State) SetResizing(resizing bool) { s.resizing = resizing }
func (s *State) Resizing() bool            { return s.resizing }
