package ports

import "github.com/aretw0/espalier/pkg/domain"

// GraphicsObject is a node's presence in a rendered scene.
// The rendering toolkit is external; nodes only use this surface.
type GraphicsObject interface {
	Pos() domain.Point
	SetPos(p domain.Point)

	// SceneTransform maps node-local coordinates to scene coordinates.
	SceneTransform() domain.Transform

	// Update schedules a repaint.
	Update()
	// MoveConnections re-anchors attached connection endpoints.
	MoveConnections()
	// SetGeometryChanged tells the toolkit the bounding rect is about to change.
	SetGeometryChanged()
}
