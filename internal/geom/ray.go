package geom

// Ray is a parametric ray: a point at parameter t is Origin + t*Dir. Dir is
// expected to be a unit vector; Advance relies on that.
type Ray struct {
	Origin Vector3
	Dir    Vector3
}

// NewRay builds a ray with a normalized direction.
func NewRay(origin, dir Vector3) Ray {
	return Ray{Origin: origin, Dir: dir.Normalize()}
}

// PointAt returns the point at parameter t along the ray.
func (r Ray) PointAt(t float64) Vector3 {
	return r.Origin.Add(r.Dir.Scale(t))
}

// Advance returns a new ray whose origin has been moved to PointAt(t),
// preserving direction. Used to push a ray off a surface by RayEpsilon to
// avoid self-intersection.
func (r Ray) Advance(t float64) Ray {
	return Ray{Origin: r.PointAt(t), Dir: r.Dir}
}

// Plane is a surface with an origin point and a unit normal.
type Plane struct {
	Origin Vector3
	Normal Vector3
}

// Distance returns the signed distance from q to the plane (positive on the
// side the normal points toward).
func (p Plane) Distance(q Vector3) float64 {
	return q.Sub(p.Origin).Dot(p.Normal)
}

// Intersect solves for the ray parameter t at which r crosses the plane.
// Returns ok=false if the ray is (near) parallel to the plane.
func (p Plane) Intersect(r Ray) (t float64, ok bool) {
	denom := r.Dir.Dot(p.Normal)
	if denom > -Epsilon && denom < Epsilon {
		return 0, false
	}
	t = p.Origin.Sub(r.Origin).Dot(p.Normal) / denom
	return t, true
}
