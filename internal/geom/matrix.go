package geom

// Matrix4 is an affine 4x4 transform stored row-major. The bottom row is
// always implicitly (0,0,0,1); callers never populate it.
type Matrix4 struct {
	M [3][4]float64
}

// Identity returns the identity transform.
func Identity() Matrix4 {
	var m Matrix4
	m.M[0][0], m.M[1][1], m.M[2][2] = 1, 1, 1
	return m
}

// Translation returns a pure translation matrix.
func Translation(t Vector3) Matrix4 {
	m := Identity()
	m.M[0][3], m.M[1][3], m.M[2][3] = t.X, t.Y, t.Z
	return m
}

// Scaling returns a pure (non-uniform) scale matrix.
func Scaling(s Vector3) Matrix4 {
	var m Matrix4
	m.M[0][0], m.M[1][1], m.M[2][2] = s.X, s.Y, s.Z
	return m
}

// Mul composes two affine transforms: (m * o) applies o first, then m.
func (m Matrix4) Mul(o Matrix4) Matrix4 {
	var r Matrix4
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += m.M[i][k] * o.M[k][j]
			}
			if j == 3 {
				sum += m.M[i][3]
			}
			r.M[i][j] = sum
		}
	}
	return r
}

// TransformPoint applies the affine transform to a point (implicit w=1).
func (m Matrix4) TransformPoint(p Vector3) Vector3 {
	return Vector3{
		m.M[0][0]*p.X + m.M[0][1]*p.Y + m.M[0][2]*p.Z + m.M[0][3],
		m.M[1][0]*p.X + m.M[1][1]*p.Y + m.M[1][2]*p.Z + m.M[1][3],
		m.M[2][0]*p.X + m.M[2][1]*p.Y + m.M[2][2]*p.Z + m.M[2][3],
	}
}

// TransformVector applies only the linear part (no translation), for
// direction vectors.
func (m Matrix4) TransformVector(v Vector3) Vector3 {
	return Vector3{
		m.M[0][0]*v.X + m.M[0][1]*v.Y + m.M[0][2]*v.Z,
		m.M[1][0]*v.X + m.M[1][1]*v.Y + m.M[1][2]*v.Z,
		m.M[2][0]*v.X + m.M[2][1]*v.Y + m.M[2][2]*v.Z,
	}
}

// linear3x3Inverse inverts the upper-left 3x3 linear part via the adjugate,
// returning the determinant so callers can detect a singular matrix.
func (m Matrix4) linear3x3Inverse() (Matrix4, float64) {
	a, b, c := m.M[0][0], m.M[0][1], m.M[0][2]
	d, e, f := m.M[1][0], m.M[1][1], m.M[1][2]
	g, h, i := m.M[2][0], m.M[2][1], m.M[2][2]

	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if det == 0 {
		return Identity(), 0
	}
	invDet := 1.0 / det

	var r Matrix4
	r.M[0][0] = (e*i - f*h) * invDet
	r.M[0][1] = (c*h - b*i) * invDet
	r.M[0][2] = (b*f - c*e) * invDet
	r.M[1][0] = (f*g - d*i) * invDet
	r.M[1][1] = (a*i - c*g) * invDet
	r.M[1][2] = (c*d - a*f) * invDet
	r.M[2][0] = (d*h - e*g) * invDet
	r.M[2][1] = (b*g - a*h) * invDet
	r.M[2][2] = (a*e - b*d) * invDet
	return r, det
}

// Inverse returns the full affine inverse of m (linear inverse plus the
// translation needed to cancel m's own translation), and whether m was
// invertible.
func (m Matrix4) Inverse() (Matrix4, bool) {
	linInv, det := m.linear3x3Inverse()
	if det == 0 {
		return Identity(), false
	}
	t := Vector3{m.M[0][3], m.M[1][3], m.M[2][3]}
	inverted := linInv.TransformVector(t).Negate()
	linInv.M[0][3], linInv.M[1][3], linInv.M[2][3] = inverted.X, inverted.Y, inverted.Z
	return linInv, true
}

// Transpose3x3 returns the transpose of the linear 3x3 part only (the form
// used to transform surface normals), with zero translation.
func (m Matrix4) Transpose3x3() Matrix4 {
	var r Matrix4
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.M[i][j] = m.M[j][i]
		}
	}
	return r
}
