package isect

import "github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"

// BicubicBezierPatch is the direct analytic intersection pathway for a
// 4x4-control-point bicubic Bézier patch via resultant-polynomial root
// finding over a Bernstein-basis subdivision (§4.1). The running system
// does not exercise this path — Bézier patches are tessellated on demand
// instead (§4.6, internal/bezierpatch) — so this is the reserved fast-path
// interface only; new implementers should build tessellation first and
// treat this as optional, per §9.
//
// controlPoints is indexed [row][col], row/col in [0,3].
func BicubicBezierPatch(r geom.Ray, controlPoints [4][4]geom.Vector3) Hit {
	_ = r
	_ = controlPoints
	return NoHit
}
