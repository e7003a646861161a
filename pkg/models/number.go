package models

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// NumberSourceName is the registry key of NumberSource.
const NumberSourceName = "number"

// NumberSource emits a constant decimal on its single output.
type NumberSource struct {
	Base
	value float64
}

// NewNumberSource returns a source emitting v.
func NewNumberSource(v float64) *NumberSource {
	return &NumberSource{value: v}
}

func (m *NumberSource) Name() string    { return NumberSourceName }
func (m *NumberSource) Caption() string { return "Number" }

func (m *NumberSource) NPorts(portType domain.PortType) int {
	if portType == domain.PortOut {
		return 1
	}
	return 0
}

func (m *NumberSource) DataType(domain.PortType, domain.PortIndex) domain.NodeDataType {
	return DecimalType
}

func (m *NumberSource) PortCaption(portType domain.PortType, _ domain.PortIndex) string {
	if portType == domain.PortOut {
		return "value"
	}
	return ""
}

func (m *NumberSource) OutData(index domain.PortIndex) domain.NodeData {
	if index != 0 {
		return nil
	}
	return Decimal{Value: m.value}
}

// SetInData is a no-op: a source has no inputs.
func (m *NumberSource) SetInData(domain.NodeData, domain.PortIndex) {}

// Value returns the emitted number.
func (m *NumberSource) Value() float64 { return m.value }

// SetValue changes the emitted number and notifies observers.
func (m *NumberSource) SetValue(v float64) {
	m.value = v
	m.EmitDataUpdated(0)
}

func (m *NumberSource) Save() map[string]any {
	return map[string]any{
		"name":   NumberSourceName,
		"number": m.value,
	}
}

func (m *NumberSource) Restore(state map[string]any) error {
	var saved struct {
		Number *float64 `mapstructure:"number"`
	}
	if err := decodeState(state, &saved); err != nil {
		return fmt.Errorf("invalid number state: %w", err)
	}
	if saved.Number != nil {
		m.SetValue(*saved.Number)
	}
	return nil
}
