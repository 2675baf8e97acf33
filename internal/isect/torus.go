package isect

import (
	"math"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
)

// Torus intersects r against a torus centered at `center` with its axis
// along Y, major radius R (distance from center to tube centerline) and
// minor radius r0 (tube radius). The intersection reduces to a quartic in
// the ray parameter; every positive real root is considered and the
// smallest is kept, per §4.1.
func Torus(ray geom.Ray, center geom.Vector3, majorRadius, minorRadius float64) Hit {
	o := ray.Origin.Sub(center)
	d := ray.Dir

	R2 := majorRadius * majorRadius
	r2 := minorRadius * minorRadius

	dd := d.Dot(d)
	oo := o.Dot(o)
	od := o.Dot(d)

	// Standard torus quartic coefficients: (|p|^2 + R^2 - r^2)^2 = 4R^2(px^2+pz^2)
	// where p = o + t*d, expanded in t.
	k := oo - r2 - R2

	c4 := dd * dd
	c3 := 4 * dd * od
	c2 := 2*dd*k + 4*od*od + 4*R2*d.Y*d.Y
	c1 := 4*od*k + 8*R2*o.Y*d.Y
	c0 := k*k + 4*R2*o.Y*o.Y - 4*R2*r2

	roots := solveQuartic(c4, c3, c2, c1, c0)

	best := -1.0
	found := false
	for _, t := range roots {
		if t > Epsilon && (!found || t < best) {
			best = t
			found = true
		}
	}
	if !found {
		return NoHit
	}

	p := ray.PointAt(best)
	local := p.Sub(center)
	radial := math.Sqrt(local.X*local.X + local.Z*local.Z)
	if radial < Epsilon {
		radial = Epsilon
	}
	alpha := majorRadius / radial
	n := geom.Vec3(local.X*(1-alpha), local.Y, local.Z*(1-alpha)).Normalize()

	return Hit{Found: true, Range: best, Range2: best, Point: p, Normal: n}
}
