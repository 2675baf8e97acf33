package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/isect"
)

// sphereGeom is a minimal surface.Geometry over a unit sphere at the
// geometry's local origin, used to exercise the object manager without
// depending on internal/mesh.
type sphereGeom struct{ radius float64 }

func (s sphereGeom) Intersect(r geom.Ray, tMin, tMax float64) (isect.Hit, bool) {
	hit := isect.Sphere(r, geom.Vec3(0, 0, 0), s.radius)
	if !hit.Found || hit.Range < tMin || hit.Range > tMax {
		return isect.NoHit, false
	}
	return hit, true
}

func (s sphereGeom) IntersectAny(r geom.Ray, tMin, tMax float64) bool {
	_, ok := s.Intersect(r, tMin, tMax)
	return ok
}

func (s sphereGeom) LocalBoundingBox() geom.BoundingBox {
	rv := geom.Vec3(s.radius, s.radius, s.radius)
	return geom.BoundingBox{LL: rv.Negate(), UR: rv}
}

func (s sphereGeom) WantsLocalBoxTest() bool { return true }

func TestManagerLinearIterationFindsHit(t *testing.T) {
	m := NewManager(0) // threshold 0 disables the tree
	obj := NewObject(sphereGeom{radius: 1}, geom.Translation(geom.Vec3(5, 0, 0)))
	m.Add(obj)

	r := geom.NewRay(geom.Vec3(0, 0, 0), geom.Vec3(1, 0, 0))
	hit, ref, found := m.CastRay(r, 0, math.MaxFloat64)
	require.True(t, found)
	assert.InDelta(t, 4.0, hit.Range, 1e-6)
	assert.NotNil(t, ref)
}

func TestManagerScalesBudgetUnderUniformScale(t *testing.T) {
	m := NewManager(0)
	// Scale the sphere geometry by 2 on every axis; a unit-radius sphere
	// becomes radius-2 in world space.
	obj := NewObject(sphereGeom{radius: 1}, geom.Scaling(geom.Vec3(2, 2, 2)))
	m.Add(obj)

	r := geom.NewRay(geom.Vec3(-10, 0, 0), geom.Vec3(1, 0, 0))
	hit, _, found := m.CastRay(r, 0, math.MaxFloat64)
	require.True(t, found)
	assert.InDelta(t, 8.0, hit.Range, 1e-6, "world-space entry distance must account for the 2x scale")
}

func TestManagerTreeAndLinearAgree(t *testing.T) {
	build := func(threshold int) *Manager {
		m := NewManager(threshold)
		for i := 0; i < 20; i++ {
			obj := NewObject(sphereGeom{radius: 0.4}, geom.Translation(geom.Vec3(float64(i)*3, 0, 0)))
			m.Add(obj)
		}
		return m
	}
	linear := build(0)
	tree := build(5)

	r := geom.NewRay(geom.Vec3(-5, 0, 0), geom.Vec3(1, 0, 0))
	linHit, _, linFound := linear.CastRay(r, 0, math.MaxFloat64)
	treeHit, _, treeFound := tree.CastRay(r, 0, math.MaxFloat64)

	require.Equal(t, linFound, treeFound)
	assert.InDelta(t, linHit.Range, treeHit.Range, 1e-6)
}

func TestShadowRaySkipsNonCastingObjects(t *testing.T) {
	m := NewManager(0)
	obj := NewObject(sphereGeom{radius: 1}, geom.Translation(geom.Vec3(5, 0, 0)))
	obj.ShadowCaster = false
	m.Add(obj)

	r := geom.NewRay(geom.Vec3(0, 0, 0), geom.Vec3(1, 0, 0))
	assert.False(t, m.TestShadowRay(r, 0, math.MaxFloat64))
}
