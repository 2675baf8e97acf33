// Package geom implements the double-precision point/vector/matrix algebra
// that the rest of the renderer core is built on: Vector3, Matrix4,
// OrthonormalBasis3D, BoundingBox, Ray and Plane.
package geom

import "math"

// Epsilon is the tolerance used for arithmetic comparisons near zero.
const Epsilon = 1e-19

// RayEpsilon offsets rays off a surface to avoid self-intersection.
const RayEpsilon = 1e-8

// Vector3 is a 3D double-precision point or direction.
type Vector3 struct {
	X, Y, Z float64
}

// Vec3 is a convenience constructor.
func Vec3(x, y, z float64) Vector3 { return Vector3{x, y, z} }

func (v Vector3) Add(o Vector3) Vector3 { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector3) Sub(o Vector3) Vector3 { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector3) Scale(s float64) Vector3 { return Vector3{v.X * s, v.Y * s, v.Z * s} }
func (v Vector3) Negate() Vector3         { return Vector3{-v.X, -v.Y, -v.Z} }

func (v Vector3) Dot(o Vector3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vector3) LengthSqr() float64 { return v.Dot(v) }
func (v Vector3) Length() float64    { return math.Sqrt(v.LengthSqr()) }

// Normalize returns a unit vector in the direction of v. The zero vector
// normalizes to itself rather than producing NaNs.
func (v Vector3) Normalize() Vector3 {
	l := v.Length()
	if l < Epsilon {
		return v
	}
	return v.Scale(1.0 / l)
}

// Component returns the i'th component (0=X, 1=Y, 2=Z).
func (v Vector3) Component(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// SetComponent returns v with the i'th component replaced.
func (v Vector3) SetComponent(i int, val float64) Vector3 {
	switch i {
	case 0:
		v.X = val
	case 1:
		v.Y = val
	default:
		v.Z = val
	}
	return v
}

// DominantAxis returns the index (0,1,2) of the component with the largest
// magnitude, used by the bilinear-patch kernel to pick the most stable axis
// for solving the ray parameter t.
func (v Vector3) DominantAxis() int {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	if ax >= ay && ax >= az {
		return 0
	}
	if ay >= az {
		return 1
	}
	return 2
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b Vector3, t float64) Vector3 {
	return a.Add(b.Sub(a).Scale(t))
}

// Barycentric interpolates f0, f1, f2 by barycentric weights (w0, alpha, beta).
func Barycentric(f0, f1, f2 Vector3, w0, alpha, beta float64) Vector3 {
	return f0.Scale(w0).Add(f1.Scale(alpha)).Add(f2.Scale(beta))
}

// UV is a 2D texture coordinate.
type UV struct {
	U, V float64
}

func LerpUV(a, b UV, t float64) UV {
	return UV{a.U + (b.U-a.U)*t, a.V + (b.V-a.V)*t}
}

func BarycentricUV(uv0, uv1, uv2 UV, w0, alpha, beta float64) UV {
	return UV{
		U: uv0.U*w0 + uv1.U*alpha + uv2.U*beta,
		V: uv0.V*w0 + uv1.V*alpha + uv2.V*beta,
	}
}
