package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBoxIncludeInvariant(t *testing.T) {
	b := EmptyBox()
	pts := []Vector3{{3, -1, 2}, {-4, 5, 0}, {1, 1, -9}}
	for _, p := range pts {
		b = b.Include(p)
	}
	b = b.SanityCheck()
	for i := 0; i < 3; i++ {
		assert.LessOrEqual(t, b.LL.Component(i), b.UR.Component(i), "axis %d", i)
	}
}

func TestBoundingBoxEnsureHasVolume(t *testing.T) {
	flat := BoundingBox{LL: Vec3(0, 0, 0), UR: Vec3(1, 0, 1)}
	widened := flat.EnsureHasVolume()
	assert.Greater(t, widened.UR.Y-widened.LL.Y, 0.0)
}

func TestOrthonormalBasisRoundTrip(t *testing.T) {
	t.Run("generic axis", func(t *testing.T) {
		w := Vec3(0.3, 0.7, 0.2).Normalize()
		basis := CreateFromW(w)
		roundTripped := basis.ToCanonical(basis.ToLocal(Vec3(0, 0, 1)))
		require.InDelta(t, 0, roundTripped.Sub(Vec3(0, 0, 1)).Length(), 1e-9)
	})

	t.Run("degenerate near global up", func(t *testing.T) {
		w := Vec3(0, 1, 1e-10).Normalize()
		basis := CreateFromW(w)
		assert.Greater(t, basis.U.Length(), 0.5, "canonical fallback must avoid a near-zero U")
	})
}

func TestMatrixInverse(t *testing.T) {
	m := Translation(Vec3(1, 2, 3)).Mul(Scaling(Vec3(2, 3, 4)))
	inv, ok := m.Inverse()
	require.True(t, ok)

	p := Vec3(5, -1, 7)
	roundTripped := inv.TransformPoint(m.TransformPoint(p))
	assert.InDelta(t, 0, roundTripped.Sub(p).Length(), 1e-9)
}

func TestPlaneIntersect(t *testing.T) {
	plane := Plane{Origin: Vec3(0, 0, 5), Normal: Vec3(0, 0, -1)}
	ray := NewRay(Vec3(0, 0, 0), Vec3(0, 0, 1))
	tHit, ok := plane.Intersect(ray)
	require.True(t, ok)
	assert.InDelta(t, 5, tHit, 1e-9)
}

func TestDominantAxis(t *testing.T) {
	assert.Equal(t, 1, Vec3(1, 5, -2).DominantAxis())
	assert.Equal(t, 0, Vec3(9, 1, 1).DominantAxis())
}
