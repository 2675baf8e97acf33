package isect

import "github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"

// Cylinder intersects r against a finite cylinder whose axis runs along
// the given axis index (0=X,1=Y,2=Z) centered at `center`, with the given
// radius and half-height (extent along the axis, measured from center).
// The returned flag reports whether the entry is the far side of the
// cylinder: the near wall crossing falls outside the height clip and only
// the far crossing lies within it (§4.1).
func Cylinder(r geom.Ray, axis int, center geom.Vector3, radius, halfHeight float64) (Hit, bool) {
	a1, a2 := (axis+1)%3, (axis+2)%3

	ox := r.Origin.Component(a1) - center.Component(a1)
	oy := r.Origin.Component(a2) - center.Component(a2)
	dx := r.Dir.Component(a1)
	dy := r.Dir.Component(a2)

	a := dx*dx + dy*dy
	b := 2 * (ox*dx + oy*dy)
	c := ox*ox + oy*oy - radius*radius

	t0, t1, ok := solveQuadratic(a, b, c)
	if !ok {
		return NoHit, false
	}

	loAxis := center.Component(axis) - halfHeight
	hiAxis := center.Component(axis) + halfHeight

	clip := func(t float64) (float64, bool) {
		axisPos := r.Origin.Component(axis) + t*r.Dir.Component(axis)
		return t, axisPos >= loAxis && axisPos <= hiAxis
	}

	t0c, ok0 := clip(t0)
	t1c, ok1 := clip(t1)

	var near, far float64
	var enteredFar bool
	switch {
	case ok0 && ok1:
		near, far = t0c, t1c
	case ok0:
		near, far = t0c, t0c
	case ok1:
		near, far = t1c, t1c
		enteredFar = true
	default:
		return NoHit, false
	}

	if far < Epsilon {
		return NoHit, false
	}
	if near < Epsilon {
		near = Epsilon
	}

	p := r.PointAt(near)
	n := p.Sub(center)
	n = n.SetComponent(axis, 0)
	n = n.Normalize()

	return Hit{Found: true, Range: near, Range2: far, Point: p, Normal: n}, enteredFar
}
