package isect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
)

func TestSphereScenarioS3(t *testing.T) {
	ray := geom.NewRay(geom.Vec3(0, 0, -5), geom.Vec3(0, 0, 1))
	hit := Sphere(ray, geom.Vec3(0, 0, 0), 1)
	require.True(t, hit.Found)
	assert.InDelta(t, 4, hit.Range, 1e-9)
	assert.InDelta(t, 6, hit.Range2, 1e-9)
	assert.InDelta(t, 0, hit.Normal.Sub(geom.Vec3(0, 0, -1)).Length(), 1e-9)
}

func TestBoxScenarioS4(t *testing.T) {
	ray := geom.NewRay(geom.Vec3(0, 0, 0), geom.Vec3(1, 0, 0))
	box := geom.BoundingBox{LL: geom.Vec3(1, -1, -1), UR: geom.Vec3(2, 1, 1)}
	hit := Box(ray, box)
	require.True(t, hit.Found)
	assert.InDelta(t, 1, hit.Range, 1e-9)
	assert.Equal(t, 0, hit.SideA)
	assert.InDelta(t, 2, hit.Range2, 1e-9)
	assert.Equal(t, 1, hit.SideB)
	assert.Less(t, hit.NormalA.Dot(ray.Dir), 0.0, "entry normal must oppose ray direction")
}

func TestTriangleBasic(t *testing.T) {
	v0 := geom.Vec3(-1, -1, 0)
	v1 := geom.Vec3(1, -1, 0)
	v2 := geom.Vec3(0, 1, 0)
	ray := geom.NewRay(geom.Vec3(0, 0, -5), geom.Vec3(0, 0, 1))

	res := Triangle(ray, v0, v1, v2)
	require.True(t, res.Found)
	assert.InDelta(t, 5, res.T, 1e-9)

	t.Run("miss outside triangle", func(t *testing.T) {
		missRay := geom.NewRay(geom.Vec3(5, 5, -5), geom.Vec3(0, 0, 1))
		res := Triangle(missRay, v0, v1, v2)
		assert.False(t, res.Found)
	})
}

func TestCylinderFinite(t *testing.T) {
	ray := geom.NewRay(geom.Vec3(0, 0, -5), geom.Vec3(0, 0, 1))
	hit, enteredFar := Cylinder(ray, 1, geom.Vec3(0, 0, 0), 1, 2)
	require.True(t, hit.Found)
	assert.False(t, enteredFar)
	assert.InDelta(t, 4, hit.Range, 1e-9)
}

func TestTorusHasSmallestPositiveRoot(t *testing.T) {
	ray := geom.NewRay(geom.Vec3(2, 5, 0), geom.Vec3(0, -1, 0))
	hit := Torus(ray, geom.Vec3(0, 0, 0), 2, 0.5)
	require.True(t, hit.Found)
	assert.InDelta(t, 4.5, hit.Range, 1e-9, "nearer of the tube crossings at t=4.5 and t=5.5")
}

func TestBilinearDegeneratesToTriangleLikePatch(t *testing.T) {
	p00 := geom.Vec3(-1, -1, 0)
	p10 := geom.Vec3(1, -1, 0)
	p01 := geom.Vec3(-1, 1, 0)
	p11 := geom.Vec3(1, 1, 0)
	ray := geom.NewRay(geom.Vec3(0, 0, -5), geom.Vec3(0, 0, 1))

	hit := Bilinear(ray, p00, p10, p01, p11)
	require.True(t, hit.Found)
	assert.InDelta(t, 5, hit.Range, 1e-6)
	assert.InDelta(t, 0.5, hit.UV.U, 1e-6)
	assert.InDelta(t, 0.5, hit.UV.V, 1e-6)
}

func TestPlaneRejectsNearParallel(t *testing.T) {
	plane := geom.Plane{Origin: geom.Vec3(0, 0, 0), Normal: geom.Vec3(0, 1, 0)}
	ray := geom.NewRay(geom.Vec3(0, 5, 0), geom.Vec3(1, 0, 0))
	_, ok := plane.Intersect(ray)
	assert.False(t, ok)
}
