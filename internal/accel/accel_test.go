package accel

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/isect"
)

// sphereElem and sphereProc give the tree tests a trivial, fully-specified
// element kind to exercise ElementProcessor against.
type sphereElem struct {
	id     int32
	center geom.Vector3
	radius float64
}

type sphereProc struct{}

func (sphereProc) Intersect(e sphereElem, r geom.Ray, tMin, tMax float64) (isect.Hit, bool) {
	hit := isect.Sphere(r, e.center, e.radius)
	if !hit.Found || hit.Range < tMin || hit.Range > tMax {
		return isect.NoHit, false
	}
	return hit, true
}

func (p sphereProc) IntersectAny(e sphereElem, r geom.Ray, tMin, tMax float64) bool {
	_, ok := p.Intersect(e, r, tMin, tMax)
	return ok
}

func (sphereProc) BoundingBox(e sphereElem) geom.BoundingBox {
	rv := geom.Vec3(e.radius, e.radius, e.radius)
	return geom.BoundingBox{LL: e.center.Sub(rv), UR: e.center.Add(rv)}
}

func (p sphereProc) Overlaps(e sphereElem, box geom.BoundingBox) bool {
	return p.BoundingBox(e).Overlaps(box)
}

func (sphereProc) ClassifyAxis(e sphereElem, axis int, axisValue float64) Side {
	lo := e.center.Component(axis) - e.radius
	hi := e.center.Component(axis) + e.radius
	switch {
	case hi < axisValue:
		return SideNegative
	case lo > axisValue:
		return SidePositive
	default:
		return SideStraddle
	}
}

func (sphereProc) Serialize(e sphereElem) []byte {
	buf := make([]byte, 4+8*4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(e.id))
	binary.LittleEndian.PutUint64(buf[4:12], math.Float64bits(e.center.X))
	binary.LittleEndian.PutUint64(buf[12:20], math.Float64bits(e.center.Y))
	binary.LittleEndian.PutUint64(buf[20:28], math.Float64bits(e.center.Z))
	binary.LittleEndian.PutUint64(buf[28:36], math.Float64bits(e.radius))
	return buf
}

func (sphereProc) Deserialize(b []byte) (sphereElem, int) {
	e := sphereElem{
		id: int32(binary.LittleEndian.Uint32(b[0:4])),
		center: geom.Vec3(
			math.Float64frombits(binary.LittleEndian.Uint64(b[4:12])),
			math.Float64frombits(binary.LittleEndian.Uint64(b[12:20])),
			math.Float64frombits(binary.LittleEndian.Uint64(b[20:28])),
		),
		radius: math.Float64frombits(binary.LittleEndian.Uint64(b[28:36])),
	}
	return e, 36
}

func gridOfSpheres(n int) []sphereElem {
	elems := make([]sphereElem, 0, n*n*n)
	id := int32(0)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				elems = append(elems, sphereElem{
					id:     id,
					center: geom.Vec3(float64(x)*3, float64(y)*3, float64(z)*3),
					radius: 0.4,
				})
				id++
			}
		}
	}
	return elems
}

func worldBox(n int) geom.BoundingBox {
	return geom.BoundingBox{LL: geom.Vec3(-1, -1, -1), UR: geom.Vec3(float64(n)*3, float64(n)*3, float64(n)*3)}
}

func TestOctreeLeafInvariants(t *testing.T) {
	elems := gridOfSpheres(4)
	proc := sphereProc{}
	tree := BuildOctree(elems, proc, worldBox(4), 4, 10)

	tree.EachLeaf(func(box geom.BoundingBox, leafElems []sphereElem) {
		assert.LessOrEqual(t, len(leafElems), 4, "leaf element count must respect max_per_node unless bounded by depth/extent")
		for _, e := range leafElems {
			assert.True(t, proc.Overlaps(e, box.WidenedByFace()), "element bounds must overlap the leaf's widened box")
		}
	})
}

func TestOctreeNeverSkipsCloserHit(t *testing.T) {
	elems := gridOfSpheres(4)
	proc := sphereProc{}
	tree := BuildOctree(elems, proc, worldBox(4), 4, 10)

	ray := geom.NewRay(geom.Vec3(-5, 0, 0), geom.Vec3(1, 0, 0))
	treeHit, _, treeFound := tree.Intersect(ray, 0, math.MaxFloat64)

	bestT := math.MaxFloat64
	linearFound := false
	for _, e := range elems {
		hit, ok := proc.Intersect(e, ray, 0, math.MaxFloat64)
		if ok && hit.Range < bestT {
			bestT = hit.Range
			linearFound = true
		}
	}

	require.Equal(t, linearFound, treeFound)
	if treeFound {
		assert.InDelta(t, bestT, treeHit.Range, 1e-9)
	}
}

func TestOctreeSerializeRoundTrip(t *testing.T) {
	elems := gridOfSpheres(3)
	proc := sphereProc{}
	tree := BuildOctree(elems, proc, worldBox(3), 4, 10)

	buf1 := tree.Serialize()
	restored := DeserializeOctree[sphereElem](buf1, proc)
	buf2 := restored.Serialize()

	assert.Equal(t, buf1, buf2)
}

func TestBSPNeverSkipsCloserHit(t *testing.T) {
	elems := gridOfSpheres(4)
	proc := sphereProc{}
	tree := BuildBSPTree(elems, proc, worldBox(4), 4, 12)

	ray := geom.NewRay(geom.Vec3(-5, 3, 3), geom.Vec3(1, 0, 0))
	treeHit, _, treeFound := tree.Intersect(ray, 0, math.MaxFloat64)

	bestT := math.MaxFloat64
	linearFound := false
	for _, e := range elems {
		hit, ok := proc.Intersect(e, ray, 0, math.MaxFloat64)
		if ok && hit.Range < bestT {
			bestT = hit.Range
			linearFound = true
		}
	}

	require.Equal(t, linearFound, treeFound)
	if treeFound {
		assert.InDelta(t, bestT, treeHit.Range, 1e-9)
	}
}

func TestBSPSerializeRoundTrip(t *testing.T) {
	elems := gridOfSpheres(3)
	proc := sphereProc{}
	tree := BuildBSPTree(elems, proc, worldBox(3), 4, 12)

	buf1 := tree.Serialize()
	restored := DeserializeBSPTree[sphereElem](buf1, proc)
	buf2 := restored.Serialize()

	assert.Equal(t, buf1, buf2)
}

func TestEmptyTreesReturnNoHit(t *testing.T) {
	proc := sphereProc{}
	octTree := BuildOctree[sphereElem](nil, proc, worldBox(1), 4, 10)
	_, _, found := octTree.Intersect(geom.NewRay(geom.Vec3(0, 0, 0), geom.Vec3(1, 0, 0)), 0, math.MaxFloat64)
	assert.False(t, found)

	bspTree := BuildBSPTree[sphereElem](nil, proc, worldBox(1), 4, 10)
	_, _, found2 := bspTree.Intersect(geom.NewRay(geom.Vec3(0, 0, 0), geom.Vec3(1, 0, 0)), 0, math.MaxFloat64)
	assert.False(t, found2)
}
