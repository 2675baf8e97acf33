package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
)

// quad builds a unit square in the XY plane as two triangles, each corner's
// UV equal to its XY position.
func quad() ([]geom.Vector3, []geom.Vector3, []geom.UV, []Face) {
	verts := []geom.Vector3{
		geom.Vec3(0, 0, 0),
		geom.Vec3(1, 0, 0),
		geom.Vec3(1, 1, 0),
		geom.Vec3(0, 1, 0),
	}
	norms := []geom.Vector3{geom.Vec3(0, 0, 1)}
	uvs := []geom.UV{{U: 0, V: 0}, {U: 1, V: 0}, {U: 1, V: 1}, {U: 0, V: 1}}
	faces := []Face{
		{V: [3]int32{0, 1, 2}, N: [3]int32{0, 0, 0}, UVIdx: [3]int32{0, 1, 2}},
		{V: [3]int32{0, 2, 3}, N: [3]int32{0, 0, 0}, UVIdx: [3]int32{0, 2, 3}},
	}
	return verts, norms, uvs, faces
}

func TestMeshIntersectHitsFromFront(t *testing.T) {
	verts, norms, uvs, faces := quad()
	m := Build(verts, norms, uvs, faces, BuildOptions{})

	r := geom.NewRay(geom.Vec3(0.25, 0.25, 5), geom.Vec3(0, 0, -1))
	hit, ok := m.Intersect(r, 0, math.MaxFloat64)
	require.True(t, ok)
	assert.InDelta(t, 5.0, hit.Range, 1e-9)
	assert.InDelta(t, 1.0, hit.Normal.Z, 1e-9)
}

func TestMeshDoubleSidedFlipsNormal(t *testing.T) {
	verts, norms, uvs, faces := quad()
	m := Build(verts, norms, uvs, faces, BuildOptions{DoubleSided: true})

	r := geom.NewRay(geom.Vec3(0.25, 0.25, -5), geom.Vec3(0, 0, 1))
	hit, ok := m.Intersect(r, 0, math.MaxFloat64)
	require.True(t, ok)
	assert.Less(t, hit.Normal.Dot(r.Dir), 0.0, "double-sided hit normal must oppose the incoming ray")
}

func TestMeshSingleSidedStillHitsFromBehind(t *testing.T) {
	verts, norms, uvs, faces := quad()
	m := Build(verts, norms, uvs, faces, BuildOptions{})

	r := geom.NewRay(geom.Vec3(0.25, 0.25, -5), geom.Vec3(0, 0, 1))
	_, ok := m.Intersect(r, 0, math.MaxFloat64)
	assert.True(t, ok, "triangle kernel itself is not backface-culling")
}

func TestMirrorUVRemapsBothHalves(t *testing.T) {
	verts, norms, _, faces := quad()
	uvs := []geom.UV{{U: 0.25, V: 0}, {U: 0.75, V: 0}, {U: 0.9, V: 1}, {U: 0.1, V: 1}}
	m := Build(verts, norms, uvs, faces, BuildOptions{MirrorUV: true})

	assert.InDelta(t, 0.5, m.uvs[0].U, 1e-9)
	assert.InDelta(t, 0.5, m.uvs[1].U, 1e-9)
	assert.InDelta(t, 0.8, m.uvs[2].U, 1e-9)
	assert.InDelta(t, 0.2, m.uvs[3].U, 1e-9)
}

func TestComputeAreaWeightedNormalsProducesUnitVectors(t *testing.T) {
	verts, norms, uvs, faces := quad()
	m := Build(verts, norms, uvs, faces, BuildOptions{ComputeNormals: true})
	for _, n := range m.normals {
		assert.InDelta(t, 1.0, n.Length(), 1e-9)
	}
}

func TestDisplacementAppliesOncePerUniqueVertex(t *testing.T) {
	verts, norms, uvs, faces := quad()
	calls := 0
	fn := func(uv geom.UV) float64 {
		calls++
		return 0.5
	}
	m := Build(verts, norms, uvs, faces, BuildOptions{Displace: fn})
	assert.Equal(t, 4, calls, "each of the 4 unique vertices displaces exactly once despite 2 shared corners")
	for _, v := range m.vertices {
		assert.InDelta(t, 0.5, v.Z, 1e-9)
	}
}

// TestSampleDistributesProportionalToArea covers testable property 6: a mesh
// made of a large and small triangle should be sampled from the large one
// roughly in proportion to their area ratio.
func TestSampleDistributesProportionalToArea(t *testing.T) {
	verts := []geom.Vector3{
		geom.Vec3(0, 0, 0), geom.Vec3(10, 0, 0), geom.Vec3(10, 10, 0), // big: area 50
		geom.Vec3(20, 0, 0), geom.Vec3(21, 0, 0), geom.Vec3(21, 1, 0), // small: area 0.5
	}
	norms := []geom.Vector3{geom.Vec3(0, 0, 1)}
	uvs := []geom.UV{{}}
	faces := []Face{
		{V: [3]int32{0, 1, 2}, N: [3]int32{0, 0, 0}, UVIdx: [3]int32{0, 0, 0}},
		{V: [3]int32{3, 4, 5}, N: [3]int32{0, 0, 0}, UVIdx: [3]int32{0, 0, 0}},
	}
	m := Build(verts, norms, uvs, faces, BuildOptions{})

	bigHits := 0
	const n = 2000
	for i := 0; i < n; i++ {
		u := (float64(i) + 0.5) / n
		v := 0.37
		w := math.Mod(float64(i)*0.61803398875, 1.0)
		p, _, _, pdf := m.Sample(u, v, w)
		assert.Greater(t, pdf, 0.0)
		if p.X < 15 {
			bigHits++
		}
	}
	ratio := float64(bigHits) / n
	assert.InDelta(t, 50.0/50.5, ratio, 0.05)
}
