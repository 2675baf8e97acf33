// Package accel implements the tree-based spatial acceleration structures of
// §4.2–§4.4: an element-processor trait that adapts arbitrary primitives for
// tree storage, an 8-way octree, and an axis-cycling BSP tree.
package accel

import (
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/isect"
)

// Side classifies an element's relationship to a splitting plane.
type Side int

const (
	SideNegative Side = iota
	SidePositive
	SideStraddle
)

// ElementProcessor adapts an arbitrary element type E for storage and
// traversal in Octree[E] and BSPTree[E] (§4.2). The same tree code indexes
// triangles, bilinear/Bézier patches, or whole objects by supplying a
// different processor.
type ElementProcessor[E any] interface {
	// Intersect performs the full geometric ray test, returning a hit and
	// whether the element was hit at all.
	Intersect(e E, r geom.Ray, tMin, tMax float64) (isect.Hit, bool)

	// IntersectAny is the any-hit ("shadow ray") variant: it may stop at
	// the first qualifying intersection without populating full hit data.
	IntersectAny(e E, r geom.Ray, tMin, tMax float64) bool

	// BoundingBox returns the element's axis-aligned bounds.
	BoundingBox(e E) geom.BoundingBox

	// Overlaps reports whether the element's bounds overlap box.
	Overlaps(e E, box geom.BoundingBox) bool

	// ClassifyAxis reports which side of the plane `axisValue` (on the
	// given axis, 0=X/1=Y/2=Z) the element lies on.
	ClassifyAxis(e E, axis int, axisValue float64) Side

	// Serialize/Deserialize encode a single element for the tree
	// serialization round-trip (§8).
	Serialize(e E) []byte
	Deserialize([]byte) (E, int)
}
