// Package canvas provides a headless graphics object for nodes.
// It keeps position and zoom, counts repaints and re-anchors connection
// endpoints through a callback, which is all the editor core needs to run
// without a widget toolkit.
package canvas

import (
	"github.com/aretw0/espalier/pkg/domain"
)

// Item is a headless ports.GraphicsObject.
type Item struct {
	pos   domain.Point
	scale float64

	repaints        int
	geometryChanges int
	moves           int

	onMoveConnections func()
}

// Option configures an Item.
type Option func(*Item)

// WithMoveConnections sets the callback run when the node asks its
// connections to follow it.
func WithMoveConnections(fn func()) Option {
	return func(i *Item) {
		i.onMoveConnections = fn
	}
}

// WithScale sets the zoom factor of the view hosting the item.
func WithScale(scale float64) Option {
	return func(i *Item) {
		i.scale = scale
	}
}

// New creates an item at the origin.
func New(opts ...Option) *Item {
	i := &Item{scale: 1}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Item) Pos() domain.Point     { return i.pos }
func (i *Item) SetPos(p domain.Point) { i.pos = p }

// SceneTransform maps node-local coordinates to the scene: scale, then
// translate to the item position.
func (i *Item) SceneTransform() domain.Transform {
	return domain.Scaling(i.scale, i.scale).Then(domain.Translation(i.pos.X, i.pos.Y))
}

func (i *Item) Update() { i.repaints++ }

func (i *Item) SetGeometryChanged() { i.geometryChanges++ }

func (i *Item) MoveConnections() {
	i.moves++
	if i.onMoveConnections != nil {
		i.onMoveConnections()
	}
}

// Repaints returns how many times Update was called.
func (i *Item) Repaints() int { return i.repaints }

// GeometryChanges returns how many times SetGeometryChanged was called.
func (i *Item) GeometryChanges() int { return i.geometryChanges }

// Moves returns how many times MoveConnections was called.
func (i *Item) Moves() int { return i.moves }
