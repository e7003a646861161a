package domain

import "math"

// Point is a position in either scene or node-local coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Length is the euclidean norm of p.
func (p Point) Length() float64 {
	return math.Hypot(p.X, p.Y)
}

// Rect is an axis aligned rectangle.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether p is inside r (edges included).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Transform is a 2D affine transform:
//
//	x' = A*x + C*y + Dx
//	y' = B*x + D*y + Dy
type Transform struct {
	A, B, C, D float64
	Dx, Dy     float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{A: 1, D: 1}
}

// Translation returns a pure translation by (dx, dy).
func Translation(dx, dy float64) Transform {
	return Transform{A: 1, D: 1, Dx: dx, Dy: dy}
}

// Scaling returns a pure scale transform.
func Scaling(sx, sy float64) Transform {
	return Transform{A: sx, D: sy}
}

// Translate returns t followed by a translation.
func (t Transform) Translate(dx, dy float64) Transform {
	t.Dx += dx
	t.Dy += dy
	return t
}

// Then returns the transform applying t first and u second.
func (t Transform) Then(u Transform) Transform {
	return Transform{
		A:  u.A*t.A + u.C*t.B,
		B:  u.B*t.A + u.D*t.B,
		C:  u.A*t.C + u.C*t.D,
		D:  u.B*t.C + u.D*t.D,
		Dx: u.A*t.Dx + u.C*t.Dy + u.Dx,
		Dy: u.B*t.Dx + u.D*t.Dy + u.Dy,
	}
}

// Map applies t to p.
func (t Transform) Map(p Point) Point {
	return Point{
		X: t.A*p.X + t.C*p.Y + t.Dx,
		Y: t.B*p.X + t.D*p.Y + t.Dy,
	}
}

// Determinant of the linear part.
func (t Transform) Determinant() float64 {
	return t.A*t.D - t.B*t.C
}

// Inverted returns the inverse transform.
// Returns ErrSingularTransform when the linear part cannot be inverted.
func (t Transform) Inverted() (Transform, error) {
	det := t.Determinant()
	if math.Abs(det) < 1e-12 {
		return Transform{}, ErrSingularTransform
	}
	inv := Transform{
		A: t.D / det,
		B: -t.B / det,
		C: -t.C / det,
		D: t.A / det,
	}
	inv.Dx = -(inv.A*t.Dx + inv.C*t.Dy)
	inv.Dy = -(inv.B*t.Dx + inv.D*t.Dy)
	return inv, nil
}
