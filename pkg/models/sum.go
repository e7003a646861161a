package models

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// SumName is the registry key of Sum.
const SumName = "sum"

// Sum adds a variable number of decimal inputs. Its inputs can be inserted,
// moved and removed at runtime, which makes it the reference model for
// dynamic port layouts.
type Sum struct {
	Base
	inputs []*Decimal
}

// NewSum creates a sum with n empty inputs.
func NewSum(n int) *Sum {
	return &Sum{inputs: make([]*Decimal, max(n, 0))}
}

func (m *Sum) Name() string    { return SumName }
func (m *Sum) Caption() string { return "Sum" }

func (m *Sum) NPorts(portType domain.PortType) int {
	switch portType {
	case domain.PortIn:
		return len(m.inputs)
	case domain.PortOut:
		return 1
	}
	return 0
}

func (m *Sum) DataType(domain.PortType, domain.PortIndex) domain.NodeDataType {
	return DecimalType
}

func (m *Sum) PortCaption(portType domain.PortType, index domain.PortIndex) string {
	if portType == domain.PortOut {
		return "sum"
	}
	return fmt.Sprintf("x%d", index)
}

// OutData is the sum of the inputs that hold a value, or nil when none do.
func (m *Sum) OutData(index domain.PortIndex) domain.NodeData {
	if index != 0 {
		return nil
	}
	var (
		total float64
		seen  bool
	)
	for _, in := range m.inputs {
		if in == nil {
			continue
		}
		total += in.Value
		seen = true
	}
	if !seen {
		return nil
	}
	return Decimal{Value: total}
}

// SetInData stores the input and recomputes the output. Out-of-range indices are ignored.
func (m *Sum) SetInData(data domain.NodeData, index domain.PortIndex) {
	if index < 0 || int(index) >= len(m.inputs) {
		return
	}
	if d, ok := asDecimal(data); ok {
		m.inputs[index] = &d
	} else {
		m.inputs[index] = nil
	}
	m.EmitDataUpdated(0)
}

// Input returns the value held by an input port.
func (m *Sum) Input(index domain.PortIndex) (float64, bool) {
	if index < 0 || int(index) >= len(m.inputs) || m.inputs[index] == nil {
		return 0, false
	}
	return m.inputs[index].Value, true
}

// InsertPort adds an empty input at index.
func (m *Sum) InsertPort(portType domain.PortType, index domain.PortIndex) error {
	if portType != domain.PortIn {
		return fmt.Errorf("%w: sum has a single output", domain.ErrPortsNotDynamic)
	}
	if index < 0 || int(index) > len(m.inputs) {
		return fmt.Errorf("%w: cannot insert input at %d (have %d)", domain.ErrPortIndexOutOfRange, index, len(m.inputs))
	}
	m.inputs = append(m.inputs, nil)
	copy(m.inputs[index+1:], m.inputs[index:])
	m.inputs[index] = nil

	m.EmitPortAdded(domain.PortIn, index)
	return nil
}

// RemovePort drops the input at index and recomputes the output.
func (m *Sum) RemovePort(portType domain.PortType, index domain.PortIndex) error {
	if portType != domain.PortIn {
		return fmt.Errorf("%w: sum has a single output", domain.ErrPortsNotDynamic)
	}
	if index < 0 || int(index) >= len(m.inputs) {
		return fmt.Errorf("%w: cannot remove input %d (have %d)", domain.ErrPortIndexOutOfRange, index, len(m.inputs))
	}
	m.inputs = append(m.inputs[:index], m.inputs[index+1:]...)

	m.EmitPortRemoved(domain.PortIn, index)
	m.EmitDataUpdated(0)
	return nil
}

// MovePort moves the input at oldIndex, with its value, to newIndex.
func (m *Sum) MovePort(portType domain.PortType, oldIndex, newIndex domain.PortIndex) error {
	if portType != domain.PortIn {
		return fmt.Errorf("%w: sum has a single output", domain.ErrPortsNotDynamic)
	}
	n := domain.PortIndex(len(m.inputs))
	if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n {
		return fmt.Errorf("%w: cannot move input %d to %d (have %d)", domain.ErrPortIndexOutOfRange, oldIndex, newIndex, n)
	}
	moved := m.inputs[oldIndex]
	m.inputs = append(m.inputs[:oldIndex], m.inputs[oldIndex+1:]...)
	m.inputs = append(m.inputs, nil)
	copy(m.inputs[newIndex+1:], m.inputs[newIndex:])
	m.inputs[newIndex] = moved

	m.EmitPortMoved(domain.PortIn, oldIndex, newIndex)
	return nil
}

func (m *Sum) Save() map[string]any {
	return map[string]any{
		"name":   SumName,
		"inputs": len(m.inputs),
	}
}

// Restore resizes the inputs to the saved count, emitting port notifications
// so an owning node keeps its entries in step.
func (m *Sum) Restore(state map[string]any) error {
	var saved struct {
		Inputs *int `mapstructure:"inputs"`
	}
	if err := decodeState(state, &saved); err != nil {
		return fmt.Errorf("invalid sum state: %w", err)
	}
	if saved.Inputs == nil {
		return nil
	}
	if *saved.Inputs < 0 {
		return fmt.Errorf("invalid sum state: negative input count %d", *saved.Inputs)
	}
	for len(m.inputs) < *saved.Inputs {
		if err := m.InsertPort(domain.PortIn, domain.PortIndex(len(m.inputs))); err != nil {
			return err
		}
	}
	for len(m.inputs) > *saved.Inputs {
		if err := m.RemovePort(domain.PortIn, domain.PortIndex(len(m.inputs)-1)); err != nil {
			return err
		}
	}
	return nil
}
