package isect

import (
	"math"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
)

// Bilinear intersects r against a bilinear patch with corners p00, p10,
// p01, p11 (indexed by (u,v) in {0,1}^2), using the Ramsey/Kensler/Shirley
// formulation referenced by §4.1: the patch equation reduces to a quadratic
// in v; for each valid root u is computed from whichever component of the
// ray/patch equation has the larger-magnitude denominator, and t is
// solved along the ray axis of largest direction magnitude.
func Bilinear(r geom.Ray, p00, p10, p01, p11 geom.Vector3) Hit {
	// Patch(u,v) = (1-u)(1-v)p00 + u(1-v)p10 + (1-u)v*p01 + u*v*p11
	//            = p00 + u*(p10-p00) + v*(p01-p00) + u*v*(p00-p10-p01+p11)
	a := p10.Sub(p00)
	b := p01.Sub(p00)
	c := p00.Sub(p10).Sub(p01).Add(p11)

	// Solve via the classic two-plane sweep: build the quadratic in v by
	// eliminating u from the two coordinate equations formed from the ray
	// and the patch's partial derivatives, following Ramsey et al.
	qa := crossDot(r.Dir, c, b)
	qb := crossDot(r.Dir, c, p00.Sub(r.Origin)) + crossDot(r.Dir, a, b)
	qc := crossDot(r.Dir, a, p00.Sub(r.Origin))

	vs := quadRootsOrNone(qa, qb, qc)

	bestT := math.MaxFloat64
	found := false
	var bestU, bestV float64

	for _, v := range vs {
		if v < -Epsilon || v > 1+Epsilon {
			continue
		}
		// With e = a + v*c and q = p00 - origin + v*b the hit condition is
		// q + u*e = t*dir; crossing with dir removes t and leaves the
		// component equations u*(dir x e) = -(dir x q). u is taken from the
		// component with the larger-magnitude denominator for stability.
		e := a.Add(c.Scale(v))
		q := p00.Sub(r.Origin).Add(b.Scale(v))
		de := r.Dir.Cross(e)
		dq := r.Dir.Cross(q)

		u, ok := pickBetterRatio(-dq.X, de.X, -dq.Y, de.Y, -dq.Z, de.Z)
		if !ok || u < -Epsilon || u > 1+Epsilon {
			continue
		}

		axis := r.Dir.DominantAxis()
		pointOnPatch := p00.Add(a.Scale(u)).Add(b.Scale(v)).Add(c.Scale(u * v))
		var t float64
		switch axis {
		case 0:
			t = (pointOnPatch.X - r.Origin.X) / r.Dir.X
		case 1:
			t = (pointOnPatch.Y - r.Origin.Y) / r.Dir.Y
		default:
			t = (pointOnPatch.Z - r.Origin.Z) / r.Dir.Z
		}
		if t > Epsilon && t < bestT {
			bestT = t
			bestU, bestV = u, v
			found = true
		}
	}

	if !found {
		return NoHit
	}

	du := a.Add(c.Scale(bestV))
	dv := b.Add(c.Scale(bestU))
	normal := du.Cross(dv).Normalize()
	point := r.PointAt(bestT)

	return Hit{
		Found:  true,
		Range:  bestT,
		Range2: bestT,
		Point:  point,
		Normal: normal,
		UV:     geom.UV{U: bestU, V: bestV},
	}
}

// crossDot computes (dir x edge) . vec, a building block of the bilinear
// patch's derivation.
func crossDot(dir, edge, vec geom.Vector3) float64 {
	return dir.Cross(edge).Dot(vec)
}

func quadRootsOrNone(a, b, c float64) []float64 {
	if a > -Epsilon && a < Epsilon {
		if b > -Epsilon && b < Epsilon {
			return nil
		}
		return []float64{-c / b}
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	return []float64{(-b + sq) / (2 * a), (-b - sq) / (2 * a)}
}

// pickBetterRatio returns num/denom using whichever of the three
// (num,denom) pairs has the largest-magnitude denominator.
func pickBetterRatio(n1, d1, n2, d2, n3, d3 float64) (float64, bool) {
	ad1, ad2, ad3 := math.Abs(d1), math.Abs(d2), math.Abs(d3)
	switch {
	case ad1 >= ad2 && ad1 >= ad3:
		if ad1 < Epsilon {
			return 0, false
		}
		return n1 / d1, true
	case ad2 >= ad3:
		if ad2 < Epsilon {
			return 0, false
		}
		return n2 / d2, true
	default:
		if ad3 < Epsilon {
			return 0, false
		}
		return n3 / d3, true
	}
}
