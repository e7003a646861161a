package node_test

import (
	"testing"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/models"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry_RecalculateSize(t *testing.T) {
	tests := []struct {
		name   string
		model  *stubModel
		width  float64
		height float64
	}{
		{
			name:   "Minimum Width",
			model:  &stubModel{in: 3, out: 1, captions: map[domain.PortType][]string{domain.PortIn: {"a", "b", "c"}, domain.PortOut: {"o"}}},
			width:  80,
			height: 140,
		},
		{
			name:   "Unnamed Port Shows Data Type",
			model:  &stubModel{in: 1},
			width:  49 + 40,
			height: 60,
		},
		{
			name:   "Caption Drives Width",
			model:  &stubModel{caption: "Long caption here"},
			width:  17*7 + 40,
			height: 20,
		},
		{
			name:   "Wide Runes",
			model:  &stubModel{caption: "日本語のノード名前"},
			width:  18*7 + 40,
			height: 20,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := node.NewGeometry(tt.model, node.DefaultGeometryConfig())
			g.RecalculateSize()
			assert.InDelta(t, tt.width, g.Width(), 1e-9)
			assert.InDelta(t, tt.height, g.Height(), 1e-9)
			assert.Equal(t, domain.Rect{Width: g.Width(), Height: g.Height()}, g.BoundingRect())
		})
	}
}

func TestGeometry_PartialConfigUsesDefaults(t *testing.T) {
	g := node.NewGeometry(models.NewSum(1), node.GeometryConfig{EntryHeight: 10, CaptionHeight: -1})
	g.RecalculateSize()

	// step = 10 + default spacing 20; caption height falls back to 20
	assert.InDelta(t, 50.0, g.Height(), 1e-9)
}

func TestGeometry_PortPosition(t *testing.T) {
	g := node.NewGeometry(models.NewSum(3), node.DefaultGeometryConfig())
	g.RecalculateSize()

	assert.Equal(t, domain.Point{X: 0, Y: 40}, g.PortPosition(domain.PortIn, 0))
	assert.Equal(t, domain.Point{X: 0, Y: 80}, g.PortPosition(domain.PortIn, 1))
	assert.Equal(t, domain.Point{X: g.Width(), Y: 40}, g.PortPosition(domain.PortOut, 0))

	scene := g.PortScenePosition(domain.PortIn, 1, domain.Translation(100, 50))
	assert.Equal(t, domain.Point{X: 100, Y: 130}, scene)
}

func TestGeometry_CheckHitScenePoint(t *testing.T) {
	g := node.NewGeometry(models.NewSum(3), node.DefaultGeometryConfig())
	g.RecalculateSize()
	at := domain.Translation(100, 50)

	assert.Equal(t, domain.PortIndex(1), g.CheckHitScenePoint(domain.PortIn, domain.Point{X: 103, Y: 128}, at))
	assert.Equal(t, domain.PortIndex(2), g.CheckHitScenePoint(domain.PortIn, domain.Point{X: 100, Y: 170}, at))
	assert.Equal(t, domain.InvalidPortIndex, g.CheckHitScenePoint(domain.PortIn, domain.Point{X: 100, Y: 200}, at))
	assert.Equal(t, domain.InvalidPortIndex, g.CheckHitScenePoint(domain.PortNone, domain.Point{X: 100, Y: 130}, at))
}

func TestGeometry_HoverAndDrag(t *testing.T) {
	g := node.NewGeometry(models.NewDisplay(), node.DefaultGeometryConfig())

	assert.False(t, g.Hovered())
	g.SetHovered(true)
	assert.True(t, g.Hovered())

	g.SetDraggingPosition(domain.Point{X: 4, Y: 2})
	assert.Equal(t, domain.Point{X: 4, Y: 2}, g.DraggingPosition())
}

func TestNode_UpdateGraphicsOrder(t *testing.T) {
	sum := models.NewSum(1)
	nd := node.New(sum, nil)
	before := nd.Geometry().Height()

	g := &recordingGraphics{}
	nd.SetGraphicsObject(g)
	require.NoError(t, sum.InsertPort(domain.PortIn, 1))

	assert.Equal(t, []string{"geometry_changed", "update", "move_connections"}, g.calls)
	assert.Greater(t, nd.Geometry().Height(), before)
}
