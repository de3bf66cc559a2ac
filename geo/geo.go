// Package geo defines the minimal geometry abstraction entities and patches
// carry: a cell rectangle and the spatial queries the engine needs
// (containment, distance) without depending on any particular projection
// or raster library — reprojection and raster access are explicitly out of
// scope (spec.md §1).
package geo

import "math"

// Geometry is the spatial handle an entity or patch carries. A child
// entity without its own geometry inherits its parent's (spec §3).
type Geometry interface {
	Center() (x, y float64)
	Bounds() (minX, minY, maxX, maxY float64)
	DistanceTo(other Geometry) float64
}

// Rect is an axis-aligned cell rectangle, the concrete Geometry every Patch
// owns (spec §3: "geometry (cell rectangle)").
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// NewRect builds a Rect from its corners.
func NewRect(minX, minY, maxX, maxY float64) Rect {
	return Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

func (r Rect) Center() (float64, float64) {
	return (r.MinX + r.MaxX) / 2, (r.MinY + r.MaxY) / 2
}

func (r Rect) Bounds() (float64, float64, float64, float64) {
	return r.MinX, r.MinY, r.MaxX, r.MaxY
}

func (r Rect) DistanceTo(other Geometry) float64 {
	x1, y1 := r.Center()
	x2, y2 := other.Center()
	dx, dy := x1-x2, y1-y2
	return math.Sqrt(dx*dx + dy*dy)
}

// Within reports whether other lies within radius distance of g, the
// primitive behind spatial queries like "Trees within 30m radial at prior"
// (spec §4.5).
func Within(g, other Geometry, radius float64) bool {
	return g.DistanceTo(other) <= radius
}
