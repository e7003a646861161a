package node

import (
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/mattn/go-runewidth"
)

// GeometryConfig holds the layout tunables of a node.
type GeometryConfig struct {
	EntryHeight   float64 `json:"entry_height" yaml:"entry_height"`
	Spacing       float64 `json:"spacing" yaml:"spacing"`
	CaptionHeight float64 `json:"caption_height" yaml:"caption_height"`
	MinWidth      float64 `json:"min_width" yaml:"min_width"`
	CellWidth     float64 `json:"cell_width" yaml:"cell_width"` // Pixels per terminal cell of caption text
	HitTolerance  float64 `json:"hit_tolerance" yaml:"hit_tolerance"`
}

// DefaultGeometryConfig returns the stock layout.
func DefaultGeometryConfig() GeometryConfig {
	return GeometryConfig{
		EntryHeight:   20,
		Spacing:       20,
		CaptionHeight: 20,
		MinWidth:      80,
		CellWidth:     7,
		HitTolerance:  10,
	}
}

// withDefaults fills zero fields, so partial configs from YAML stay usable.
func (c GeometryConfig) withDefaults() GeometryConfig {
	d := DefaultGeometryConfig()
	if c.EntryHeight <= 0 {
		c.EntryHeight = d.EntryHeight
	}
	if c.Spacing <= 0 {
		c.Spacing = d.Spacing
	}
	if c.CaptionHeight <= 0 {
		c.CaptionHeight = d.CaptionHeight
	}
	if c.MinWidth <= 0 {
		c.MinWidth = d.MinWidth
	}
	if c.CellWidth <= 0 {
		c.CellWidth = d.CellWidth
	}
	if c.HitTolerance <= 0 {
		c.HitTolerance = d.HitTolerance
	}
	return c
}

// Geometry computes the size of a node and the position of its ports.
type Geometry struct {
	cfg   GeometryConfig
	model ports.DataModel

	width, height float64
	inputWidth    float64
	outputWidth   float64
	nSinks        int // input ports
	nSources      int // output ports

	draggingPos domain.Point
	hovered     bool
}

// NewGeometry creates a geometry for the model. Call RecalculateSize before reading sizes.
func NewGeometry(model ports.DataModel, cfg GeometryConfig) *Geometry {
	return &Geometry{
		cfg:   cfg.withDefaults(),
		model: model,
	}
}

func (g *Geometry) step() float64 {
	return g.cfg.EntryHeight + g.cfg.Spacing
}

// RecalculateSize refreshes port counts and derives width and height from them
// and from the port and model captions.
func (g *Geometry) RecalculateSize() {
	g.nSinks = g.model.NPorts(domain.PortIn)
	g.nSources = g.model.NPorts(domain.PortOut)

	entries := max(g.nSinks, g.nSources)
	g.height = g.step()*float64(entries) + g.cfg.CaptionHeight

	g.inputWidth = g.portWidth(domain.PortIn)
	g.outputWidth = g.portWidth(domain.PortOut)

	g.width = g.inputWidth + g.outputWidth + 2*g.cfg.Spacing
	g.width = max(g.width, g.captionWidth(), g.cfg.MinWidth)
}

func (g *Geometry) textWidth(s string) float64 {
	return float64(runewidth.StringWidth(s)) * g.cfg.CellWidth
}

func (g *Geometry) captionWidth() float64 {
	return g.textWidth(g.model.Caption()) + 2*g.cfg.Spacing
}

// portWidth is the widest label among ports of a type. Unnamed ports show their data type.
func (g *Geometry) portWidth(portType domain.PortType) float64 {
	var widest float64
	for i := 0; i < g.model.NPorts(portType); i++ {
		idx := domain.PortIndex(i)
		label := g.model.PortCaption(portType, idx)
		if label == "" {
			label = g.model.DataType(portType, idx).Name
		}
		widest = max(widest, g.textWidth(label))
	}
	return widest
}

func (g *Geometry) Width() float64  { return g.width }
func (g *Geometry) Height() float64 { return g.height }

// BoundingRect is the node rectangle in node-local coordinates.
func (g *Geometry) BoundingRect() domain.Rect {
	return domain.Rect{Width: g.width, Height: g.height}
}

// SetDraggingPosition stores the node-local position of a pending connection end.
func (g *Geometry) SetDraggingPosition(p domain.Point) { g.draggingPos = p }

func (g *Geometry) DraggingPosition() domain.Point { return g.draggingPos }

func (g *Geometry) SetHovered(h bool) { g.hovered = h }
func (g *Geometry) Hovered() bool     { return g.hovered }

// PortPosition returns the node-local anchor of a port.
// Inputs sit on the left edge, outputs on the right edge.
func (g *Geometry) PortPosition(portType domain.PortType, index domain.PortIndex) domain.Point {
	step := g.step()
	p := domain.Point{Y: g.cfg.CaptionHeight + step*float64(index) + step/2}
	if portType == domain.PortOut {
		p.X = g.width
	}
	return p
}

// PortScenePosition maps a port anchor through the node's scene transform.
func (g *Geometry) PortScenePosition(portType domain.PortType, index domain.PortIndex, t domain.Transform) domain.Point {
	return t.Map(g.PortPosition(portType, index))
}

// CheckHitScenePoint returns the port of the given type whose anchor lies within
// the hit tolerance of scenePoint, or domain.InvalidPortIndex.
func (g *Geometry) CheckHitScenePoint(portType domain.PortType, scenePoint domain.Point, t domain.Transform) domain.PortIndex {
	if !portType.Valid() {
		return domain.InvalidPortIndex
	}
	for i := 0; i < g.model.NPorts(portType); i++ {
		idx := domain.PortIndex(i)
		if g.PortScenePosition(portType, idx, t).Sub(scenePoint).Length() < g.cfg.HitTolerance {
			return idx
		}
	}
	return domain.InvalidPortIndex
}
