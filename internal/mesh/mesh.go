// Package mesh implements triangle-mesh geometry (§4.5): an indexed vertex
// pool with per-face vertex/normal/UV index triples, optional area-weighted
// normal recomputation, UV mirroring, vertex displacement, a spatial index
// built from internal/accel, and uniform surface-area sampling.
package mesh

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/accel"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/isect"
)

// Face is one index triple into the mesh's vertex/normal/UV pools. V, N and
// UVIdx may reference different pool entries, matching an OBJ-style mesh
// where a vertex position can be shared by corners with distinct shading
// normals or texture coordinates.
type Face struct {
	V     [3]int32
	N     [3]int32
	UVIdx [3]int32
}

// DisplacementFunc returns a scalar offset to apply along a vertex's normal,
// parameterized by that vertex's texture coordinate (§4.5 step 4).
type DisplacementFunc func(uv geom.UV) float64

// BuildOptions controls the optional mesh-build passes of §4.5.
type BuildOptions struct {
	ComputeNormals bool
	MirrorUV       bool
	Displace       DisplacementFunc
	DoubleSided    bool
	UseBSP         bool
	MaxPerNode     int
	MaxRecursion   int
}

// TriangleMesh is an indexed triangle mesh with a spatial index over
// pointer-triangles (faces referencing this mesh's own pools) and a
// precomputed per-face surface-area CDF for uniform sampling.
type TriangleMesh struct {
	vertices []geom.Vector3
	normals  []geom.Vector3
	uvs      []geom.UV
	faces    []Face

	doubleSided bool

	octree *accel.Octree[int32]
	bsp    *accel.BSPTree[int32]

	cdf       []float64 // cumulative, cdf[len(faces)-1] == totalArea
	totalArea float64
}

// Build constructs a TriangleMesh from raw pool data, applying the optional
// passes of §4.5 in order: normal recomputation, UV mirroring, displacement,
// spatial-index build, area-CDF computation.
func Build(vertices []geom.Vector3, normals []geom.Vector3, uvs []geom.UV, faces []Face, opts BuildOptions) *TriangleMesh {
	m := &TriangleMesh{
		vertices:    append([]geom.Vector3{}, vertices...),
		normals:     append([]geom.Vector3{}, normals...),
		uvs:         append([]geom.UV{}, uvs...),
		faces:       append([]Face{}, faces...),
		doubleSided: opts.DoubleSided,
	}

	if opts.ComputeNormals {
		m.computeAreaWeightedNormals()
	}
	if opts.MirrorUV {
		m.mirrorUVs()
	}
	if opts.Displace != nil {
		m.displace(opts.Displace)
	}

	maxPerNode, maxRecursion := opts.MaxPerNode, opts.MaxRecursion
	if maxPerNode <= 0 {
		maxPerNode = 4
	}
	if maxRecursion <= 0 {
		maxRecursion = 16
	}
	m.buildSpatialIndex(opts.UseBSP, maxPerNode, maxRecursion)
	m.buildAreaCDF()
	return m
}

func (m *TriangleMesh) faceVertices(f Face) (v0, v1, v2 geom.Vector3) {
	return m.vertices[f.V[0]], m.vertices[f.V[1]], m.vertices[f.V[2]]
}

// computeAreaWeightedNormals replaces the normal pool with one entry per
// original vertex, accumulated as the area-weighted sum of each incident
// face's geometric normal, then renormalized. Every face's N indices are
// repointed at the corresponding V index so the new pool is referenced
// consistently (§4.5 step 2).
func (m *TriangleMesh) computeAreaWeightedNormals() {
	accum := make([]geom.Vector3, len(m.vertices))
	for _, f := range m.faces {
		v0, v1, v2 := m.faceVertices(f)
		e1, e2 := v1.Sub(v0), v2.Sub(v0)
		faceNormal := e1.Cross(e2) // magnitude encodes 2x triangle area
		for _, vi := range f.V {
			accum[vi] = accum[vi].Add(faceNormal)
		}
	}
	for i := range accum {
		accum[i] = accum[i].Normalize()
	}
	m.normals = accum
	for i := range m.faces {
		m.faces[i].N = m.faces[i].V
	}
}

// mirrorUVs remaps every U coordinate so [0, 0.5] and [0.5, 1] domains both
// map onto [0, 1] (§4.5 step 3), used for symmetric texture layouts.
func (m *TriangleMesh) mirrorUVs() {
	for i, uv := range m.uvs {
		if uv.U < 0.5 {
			m.uvs[i].U = uv.U * 2
		} else {
			m.uvs[i].U = (uv.U - 0.5) * 2
		}
	}
}

// displace offsets each unique vertex along its shading normal by
// fn(uv), guarded by a done-bitset so a vertex shared by multiple faces is
// only displaced once (§4.5 step 4).
func (m *TriangleMesh) displace(fn DisplacementFunc) {
	done := make([]bool, len(m.vertices))
	for _, f := range m.faces {
		for c := 0; c < 3; c++ {
			vi := f.V[c]
			if done[vi] {
				continue
			}
			done[vi] = true
			n := m.normals[f.N[c]]
			uv := m.uvs[f.UVIdx[c]]
			m.vertices[vi] = m.vertices[vi].Add(n.Scale(fn(uv)))
		}
	}
}

func (m *TriangleMesh) buildSpatialIndex(useBSP bool, maxPerNode, maxRecursion int) {
	indices := make([]int32, len(m.faces))
	box := geom.EmptyBox()
	for i, f := range m.faces {
		indices[i] = int32(i)
		v0, v1, v2 := m.faceVertices(f)
		box = box.Include(v0).Include(v1).Include(v2)
	}
	box = box.EnsureHasVolume()
	proc := triProc{mesh: m}
	if useBSP {
		m.bsp = accel.BuildBSPTree(indices, proc, box, maxPerNode, maxRecursion)
	} else {
		m.octree = accel.BuildOctree(indices, proc, box, maxPerNode, maxRecursion)
	}
}

func (m *TriangleMesh) faceArea(f Face) float64 {
	v0, v1, v2 := m.faceVertices(f)
	return 0.5 * v1.Sub(v0).Cross(v2.Sub(v0)).Length()
}

func (m *TriangleMesh) buildAreaCDF() {
	m.cdf = make([]float64, len(m.faces))
	running := 0.0
	for i, f := range m.faces {
		running += m.faceArea(f)
		m.cdf[i] = running
	}
	m.totalArea = running
}

// TotalArea returns the mesh's total surface area, as used by light-source
// power estimates over luminaire meshes.
func (m *TriangleMesh) TotalArea() float64 { return m.totalArea }

// Intersect performs the full ray test by delegating to whichever spatial
// index was built, then interpolating the hit's normal and UV from the
// struck face. Double-sided meshes flip the normal to face the ray on hit
// (§4.5 "Double-sided handling").
func (m *TriangleMesh) Intersect(r geom.Ray, tMin, tMax float64) (isect.Hit, bool) {
	var faceIdx int32
	var hit isect.Hit
	var found bool
	if m.bsp != nil {
		hit, faceIdx, found = m.bsp.Intersect(r, tMin, tMax)
	} else {
		hit, faceIdx, found = m.octree.Intersect(r, tMin, tMax)
	}
	if !found {
		return isect.NoHit, false
	}
	if m.doubleSided && hit.Normal.Dot(r.Dir) > 0 {
		hit.Normal = hit.Normal.Negate()
	}
	_ = faceIdx
	return hit, true
}

// IntersectAny is the shadow-ray any-hit path.
func (m *TriangleMesh) IntersectAny(r geom.Ray, tMin, tMax float64) bool {
	if m.bsp != nil {
		return m.bsp.IntersectAny(r, tMin, tMax)
	}
	return m.octree.IntersectAny(r, tMin, tMax)
}

// LocalBoundingBox implements surface.Geometry.
func (m *TriangleMesh) LocalBoundingBox() geom.BoundingBox {
	box := geom.EmptyBox()
	for _, f := range m.faces {
		v0, v1, v2 := m.faceVertices(f)
		box = box.Include(v0).Include(v1).Include(v2)
	}
	return box.EnsureHasVolume()
}

// WantsLocalBoxTest implements surface.Geometry; the object manager's AABB
// pre-test is cheap relative to even one tree descent, so meshes opt in.
func (m *TriangleMesh) WantsLocalBoxTest() bool { return true }

// Sample draws a uniformly-distributed point on the mesh surface from three
// random values. w selects the triangle by binary-searching the area CDF;
// (u, v) are barycentric-mapped per §4.5: a = sqrt(1-u), (alpha, beta) =
// (1-a, a*v), with weights (1-alpha-beta, alpha, beta) on vertices (1,2,0).
func (m *TriangleMesh) Sample(u, v, w float64) (p, n geom.Vector3, uv geom.UV, pdf float64) {
	if len(m.faces) == 0 || m.totalArea <= 0 {
		return geom.Vector3{}, geom.Vector3{}, geom.UV{}, 0
	}
	target := w * m.totalArea
	idx := sort.Search(len(m.cdf), func(i int) bool { return m.cdf[i] >= target })
	if idx >= len(m.cdf) {
		idx = len(m.cdf) - 1
	}
	f := m.faces[idx]

	a := math.Sqrt(1 - u)
	alpha := 1 - a
	beta := a * v
	w0 := 1 - alpha - beta

	v0, v1, v2 := m.vertices[f.V[0]], m.vertices[f.V[1]], m.vertices[f.V[2]]
	// Weights (w0, alpha, beta) land on vertices (1, 2, 0) per spec.
	p = geom.Barycentric(v1, v2, v0, w0, alpha, beta)

	n0, n1, n2 := m.normals[f.N[0]], m.normals[f.N[1]], m.normals[f.N[2]]
	n = geom.Barycentric(n1, n2, n0, w0, alpha, beta).Normalize()

	uv0, uv1, uv2 := m.uvs[f.UVIdx[0]], m.uvs[f.UVIdx[1]], m.uvs[f.UVIdx[2]]
	uv = geom.BarycentricUV(uv1, uv2, uv0, w0, alpha, beta)

	pdf = 1.0 / m.totalArea
	return p, n, uv, pdf
}

// triProc is the accel.ElementProcessor for pointer-triangles: each element
// is just a face index, resolved back into the owning mesh's pools.
type triProc struct {
	mesh *TriangleMesh
}

func (p triProc) Intersect(faceIdx int32, r geom.Ray, tMin, tMax float64) (isect.Hit, bool) {
	f := p.mesh.faces[faceIdx]
	v0, v1, v2 := p.mesh.faceVertices(f)
	res := isect.Triangle(r, v0, v1, v2)
	if !res.Found || res.T < tMin || res.T > tMax {
		return isect.NoHit, false
	}
	n0, n1, n2 := p.mesh.normals[f.N[0]], p.mesh.normals[f.N[1]], p.mesh.normals[f.N[2]]
	uv0, uv1, uv2 := p.mesh.uvs[f.UVIdx[0]], p.mesh.uvs[f.UVIdx[1]], p.mesh.uvs[f.UVIdx[2]]
	hit := isect.Hit{
		Found:  true,
		Range:  res.T,
		Range2: res.T,
		Point:  r.PointAt(res.T),
		Normal: isect.InterpolateNormal(res, n0, n1, n2),
		UV:     isect.InterpolateUV(res, uv0, uv1, uv2),
	}
	hit.Basis = geom.CreateFromW(hit.Normal)
	return hit, true
}

func (p triProc) IntersectAny(faceIdx int32, r geom.Ray, tMin, tMax float64) bool {
	_, ok := p.Intersect(faceIdx, r, tMin, tMax)
	return ok
}

func (p triProc) BoundingBox(faceIdx int32) geom.BoundingBox {
	f := p.mesh.faces[faceIdx]
	v0, v1, v2 := p.mesh.faceVertices(f)
	return geom.EmptyBox().Include(v0).Include(v1).Include(v2).EnsureHasVolume()
}

func (p triProc) Overlaps(faceIdx int32, box geom.BoundingBox) bool {
	return p.BoundingBox(faceIdx).Overlaps(box)
}

func (p triProc) ClassifyAxis(faceIdx int32, axis int, axisValue float64) accel.Side {
	f := p.mesh.faces[faceIdx]
	v0, v1, v2 := p.mesh.faceVertices(f)
	lo := math.Min(v0.Component(axis), math.Min(v1.Component(axis), v2.Component(axis)))
	hi := math.Max(v0.Component(axis), math.Max(v1.Component(axis), v2.Component(axis)))
	switch {
	case hi < axisValue:
		return accel.SideNegative
	case lo > axisValue:
		return accel.SidePositive
	default:
		return accel.SideStraddle
	}
}

func (p triProc) Serialize(faceIdx int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(faceIdx))
	return buf
}

func (p triProc) Deserialize(b []byte) (int32, int) {
	return int32(binary.LittleEndian.Uint32(b[0:4])), 4
}
