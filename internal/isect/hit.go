// Package isect implements the closed-form ray/primitive intersection
// kernels of §4.1: triangle, sphere/ellipsoid, box, cylinder, torus and
// bilinear patch (the plane test is geom.Plane.Intersect). Each kernel
// returns "no hit" on any math degeneracy
// (singular determinant, negative discriminant, flat plane) rather than
// signalling an error — per spec §7, this is normal, not exceptional.
package isect

import "github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"

// Epsilon mirrors geom.Epsilon for local readability in kernel math.
const Epsilon = geom.Epsilon

// Hit is the geometric intersection record (§3 RayHit). Range/Range2 are in
// world units of the traversing ray; Point/Normal/UV/Basis describe the
// near intersection, ExitPoint/ExitNormal the far one (for transmission).
type Hit struct {
	Found      bool
	Range      float64
	Range2     float64
	Point      geom.Vector3
	Normal     geom.Vector3
	UV         geom.UV
	Basis      geom.OrthonormalBasis3D
	ExitPoint  geom.Vector3
	ExitNormal geom.Vector3
}

// NoHit is the zero-value "no intersection" result.
var NoHit = Hit{}
