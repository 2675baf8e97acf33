package isect

import "github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"

// TriangleResult is the raw (t, alpha, beta) solved by Cramer's rule; the
// caller is responsible for interpolating shading normal and UV from the
// barycentric weights (1-alpha-beta, alpha, beta) on vertices (0,1,2).
type TriangleResult struct {
	Found      bool
	T          float64
	Alpha      float64
	Beta       float64
}

// Triangle solves the 3x3 linear system [−dir, edge1, edge2] * (t,α,β)^T =
// (origin − v0) via Cramer's rule, matching the classic Möller–Trumbore
// formulation used by the original kernel. v0, v1, v2 are the triangle's
// vertices.
func Triangle(r geom.Ray, v0, v1, v2 geom.Vector3) TriangleResult {
	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)

	pvec := r.Dir.Cross(edge2)
	det := edge1.Dot(pvec)
	if det > -Epsilon && det < Epsilon {
		return TriangleResult{}
	}
	invDet := 1.0 / det

	tvec := r.Origin.Sub(v0)
	alpha := tvec.Dot(pvec) * invDet
	if alpha < -Epsilon || alpha > 1+Epsilon {
		return TriangleResult{}
	}

	qvec := tvec.Cross(edge1)
	beta := r.Dir.Dot(qvec) * invDet
	if beta < -Epsilon || alpha+beta > 1+Epsilon {
		return TriangleResult{}
	}

	t := edge2.Dot(qvec) * invDet
	return TriangleResult{Found: true, T: t, Alpha: alpha, Beta: beta}
}

// InterpolateNormal applies the barycentric weights from a TriangleResult to
// three per-vertex shading normals.
func InterpolateNormal(res TriangleResult, n0, n1, n2 geom.Vector3) geom.Vector3 {
	w0 := 1 - res.Alpha - res.Beta
	return geom.Barycentric(n0, n1, n2, w0, res.Alpha, res.Beta).Normalize()
}

// InterpolateUV applies the barycentric weights from a TriangleResult to
// three per-vertex texture coordinates.
func InterpolateUV(res TriangleResult, uv0, uv1, uv2 geom.UV) geom.UV {
	w0 := 1 - res.Alpha - res.Beta
	return geom.BarycentricUV(uv0, uv1, uv2, w0, res.Alpha, res.Beta)
}
