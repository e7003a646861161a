package domain

import (
	"fmt"
	"strings"
)

// PortType distinguishes input ports from output ports.
type PortType int

const (
	PortNone PortType = iota
	PortIn
	PortOut
)

// PortIndex is the position of a port within its port type.
type PortIndex int

// InvalidPortIndex marks the absence of a port (e.g. a failed hit test).
const InvalidPortIndex PortIndex = -1

// Opposite returns the other side of a connection.
func (p PortType) Opposite() PortType {
	switch p {
	case PortIn:
		return PortOut
	case PortOut:
		return PortIn
	default:
		return PortNone
	}
}

// Valid reports whether p is either In or Out.
func (p PortType) Valid() bool {
	return p == PortIn || p == PortOut
}

func (p PortType) String() string {
	switch p {
	case PortIn:
		return "in"
	case PortOut:
		return "out"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p PortType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PortType) UnmarshalText(text []byte) error {
	parsed, err := ParsePortType(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePortType accepts "in"/"input" and "out"/"output" (case-insensitive).
func ParsePortType(s string) (PortType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in", "input":
		return PortIn, nil
	case "out", "output":
		return PortOut, nil
	case "", "none":
		return PortNone, nil
	}
	return PortNone, fmt.Errorf("unknown port type %q", s)
}

// NodeID identifies a node inside a scene.
type NodeID string

// ConnectionID is a stable handle to a connection owned by a scene.
type ConnectionID string
