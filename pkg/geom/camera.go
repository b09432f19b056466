package geom

import "math"

// Camera is a pinhole perspective camera. It turns screen points into pick
// rays and projects world points back to the screen for box selection.
type Camera struct {
	Position Vec3    `json:"position"`
	Target   Vec3    `json:"target"`
	Up       Vec3    `json:"up"`
	FovY     float64 `json:"fovY"` // vertical field of view in degrees
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// NewCamera returns a camera with a +Y up vector.
func NewCamera(position, target Vec3, fovY, width, height float64) Camera {
	return Camera{
		Position: position,
		Target:   target,
		Up:       Vec3{Y: 1},
		FovY:     fovY,
		Width:    width,
		Height:   height,
	}
}

// basis returns the camera's forward, right and up unit vectors.
func (c Camera) basis() (forward, right, up Vec3) {
	forward = c.Target.Sub(c.Position).Normalize()
	right = forward.Cross(c.Up).Normalize()
	up = right.Cross(forward)
	return forward, right, up
}

func (c Camera) halfExtents() (hx, hy float64) {
	hy = math.Tan(Radians(c.FovY) / 2)
	aspect := 1.0
	if c.Height > 0 {
		aspect = c.Width / c.Height
	}
	return hy * aspect, hy
}

// ScreenToRay returns the world-space ray through a screen point.
func (c Camera) ScreenToRay(p Vec2) Ray {
	forward, right, up := c.basis()
	hx, hy := c.halfExtents()
	ndcX := 2*p.X/c.Width - 1
	ndcY := 1 - 2*p.Y/c.Height
	dir := forward.Add(right.Scale(ndcX * hx)).Add(up.Scale(ndcY * hy))
	return NewRay(c.Position, dir)
}

// Project maps a world point to screen space. ok is false for points at or
// behind the camera plane.
func (c Camera) Project(p Vec3) (screen Vec2, ok bool) {
	forward, right, up := c.basis()
	d := p.Sub(c.Position)
	depth := d.Dot(forward)
	if depth <= 0 {
		return Vec2{}, false
	}
	hx, hy := c.halfExtents()
	ndcX := d.Dot(right) / (depth * hx)
	ndcY := d.Dot(up) / (depth * hy)
	return Vec2{
		X: (ndcX + 1) / 2 * c.Width,
		Y: (1 - ndcY) / 2 * c.Height,
	}, true
}

// Rect is a screen-space rectangle given by two opposite corners.
type Rect struct {
	A Vec2 `json:"a"`
	B Vec2 `json:"b"`
}

// Contains reports whether p lies inside r, regardless of corner order.
func (r Rect) Contains(p Vec2) bool {
	minX, maxX := math.Min(r.A.X, r.B.X), math.Max(r.A.X, r.B.X)
	minY, maxY := math.Min(r.A.Y, r.B.Y), math.Max(r.A.Y, r.B.Y)
	return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY
}
