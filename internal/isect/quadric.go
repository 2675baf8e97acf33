package isect

import (
	"math"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
)

// Sphere intersects r against a sphere of the given center and radius.
// Both positive roots of the resulting quadratic become (Range, Range2).
func Sphere(r geom.Ray, center geom.Vector3, radius float64) Hit {
	oc := r.Origin.Sub(center)
	a := r.Dir.Dot(r.Dir)
	b := 2 * oc.Dot(r.Dir)
	c := oc.Dot(oc) - radius*radius

	t0, t1, ok := solveQuadratic(a, b, c)
	if !ok {
		return NoHit
	}
	if t1 < Epsilon {
		return NoHit
	}
	if t0 < Epsilon {
		t0 = Epsilon
	}

	p0 := r.PointAt(t0)
	p1 := r.PointAt(t1)
	return Hit{
		Found:      true,
		Range:      t0,
		Range2:     t1,
		Point:      p0,
		Normal:     p0.Sub(center).Normalize(),
		ExitPoint:  p1,
		ExitNormal: p1.Sub(center).Normalize(),
	}
}

// QuadricMatrix describes a quadric surface by a 4x4 matrix Q such that
// points p (homogeneous) on the surface satisfy
// p^T Q p = 0. This is the general form used for ellipsoids and other
// central quadrics.
type QuadricMatrix struct {
	Q [4][4]float64
}

func (q QuadricMatrix) eval(x, y, z, w float64) float64 {
	v := [4]float64{x, y, z, w}
	sum := 0.0
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			sum += v[i] * q.Q[i][j] * v[j]
		}
	}
	return sum
}

// Ellipsoid intersects r against the quadric matrix form, returning the
// same Hit shape as Sphere.
func Ellipsoid(r geom.Ray, q QuadricMatrix) Hit {
	ox, oy, oz := r.Origin.X, r.Origin.Y, r.Origin.Z
	dx, dy, dz := r.Dir.X, r.Dir.Y, r.Dir.Z

	a := q.eval(dx, dy, dz, 0)
	// b coefficient comes from the cross terms between origin and direction.
	b := 2 * (q.Q[0][0]*ox*dx + q.Q[1][1]*oy*dy + q.Q[2][2]*oz*dz +
		(q.Q[0][1]+q.Q[1][0])*(ox*dy+oy*dx)/2 +
		(q.Q[0][2]+q.Q[2][0])*(ox*dz+oz*dx)/2 +
		(q.Q[1][2]+q.Q[2][1])*(oy*dz+oz*dy)/2 +
		(q.Q[0][3]+q.Q[3][0])*dx/2 +
		(q.Q[1][3]+q.Q[3][1])*dy/2 +
		(q.Q[2][3]+q.Q[3][2])*dz/2)
	c := q.eval(ox, oy, oz, 1)

	t0, t1, ok := solveQuadratic(a, b, c)
	if !ok || t1 < Epsilon {
		return NoHit
	}
	if t0 < Epsilon {
		t0 = Epsilon
	}
	p0 := r.PointAt(t0)
	p1 := r.PointAt(t1)
	return Hit{Found: true, Range: t0, Range2: t1, Point: p0, ExitPoint: p1}
}

// solveQuadratic solves a*t^2 + b*t + c = 0, returning roots ordered
// ascending. ok is false if the discriminant is negative (no real roots).
func solveQuadratic(a, b, c float64) (t0, t1 float64, ok bool) {
	if a > -Epsilon && a < Epsilon {
		if b > -Epsilon && b < Epsilon {
			return 0, 0, false
		}
		t := -c / b
		return t, t, true
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, 0, false
	}
	sq := math.Sqrt(disc)
	q := -0.5 * (b + math.Copysign(sq, b))
	r0 := q / a
	r1 := c / q
	if r0 > r1 {
		r0, r1 = r1, r0
	}
	return r0, r1, true
}
