package models

import (
	"github.com/aretw0/espalier/pkg/domain"
)

// DisplayName is the registry key of Display.
const DisplayName = "display"

// Display is a sink that keeps the last decimal it received.
type Display struct {
	Base
	value *Decimal
}

func NewDisplay() *Display { return &Display{} }

func (m *Display) Name() string    { return DisplayName }
func (m *Display) Caption() string { return "Display" }

func (m *Display) NPorts(portType domain.PortType) int {
	if portType == domain.PortIn {
		return 1
	}
	return 0
}

func (m *Display) DataType(domain.PortType, domain.PortIndex) domain.NodeDataType {
	return DecimalType
}

func (m *Display) PortCaption(domain.PortType, domain.PortIndex) string { return "" }

func (m *Display) OutData(domain.PortIndex) domain.NodeData { return nil }

func (m *Display) SetInData(data domain.NodeData, index domain.PortIndex) {
	if index != 0 {
		return
	}
	if d, ok := asDecimal(data); ok {
		m.value = &d
		return
	}
	m.value = nil
}

// Value returns the last received value, if any.
func (m *Display) Value() (float64, bool) {
	if m.value == nil {
		return 0, false
	}
	return m.value.Value, true
}

func (m *Display) Save() map[string]any {
	return map[string]any{"name": DisplayName}
}

func (m *Display) Restore(map[string]any) error { return nil }
