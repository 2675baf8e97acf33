// Package bezierpatch implements bicubic-Bézier and bilinear patch geometry
// backed by an on-demand tessellation-to-mesh pipeline with a
// most-recently-used proxy cache (§4.6). Patches are indexed by bounding
// box in a top-level tree; a ray test against a patch tessellates it into a
// triangle mesh at a fixed subdivision density and delegates to
// internal/mesh, caching the result so repeated rays against the same
// patch reuse the tessellation.
package bezierpatch

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/accel"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/isect"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/mesh"
)

// BicubicPatch holds 16 control points in row-major (u, v) order.
type BicubicPatch struct {
	ID      int64
	Control [4][4]geom.Vector3
	Box     geom.BoundingBox
}

// BilinearPatch holds 4 control points, also addressable through the same
// ProxyCache by giving it a distinct ID space from BicubicPatch.
type BilinearPatch struct {
	ID      int64
	P00, P01, P10, P11 geom.Vector3
	Box     geom.BoundingBox
}

// TessellationDensity is the fixed per-edge subdivision count used to
// convert a patch into a triangle mesh (§4.6: "a fixed subdivision
// density").
const TessellationDensity = 8

// Tessellate converts a bicubic patch into an indexed triangle mesh by
// evaluating the Bézier surface and its partial-derivative normal on a
// regular (n+1)x(n+1) grid, per the fixed TessellationDensity.
func Tessellate(p *BicubicPatch, opts mesh.BuildOptions) *mesh.TriangleMesh {
	n := TessellationDensity
	verts := make([]geom.Vector3, 0, (n+1)*(n+1))
	norms := make([]geom.Vector3, 0, (n+1)*(n+1))
	uvs := make([]geom.UV, 0, (n+1)*(n+1))

	for j := 0; j <= n; j++ {
		v := float64(j) / float64(n)
		for i := 0; i <= n; i++ {
			u := float64(i) / float64(n)
			pt, du, dv := evalBicubic(p.Control, u, v)
			verts = append(verts, pt)
			norms = append(norms, du.Cross(dv).Normalize())
			uvs = append(uvs, geom.UV{U: u, V: v})
		}
	}

	faces := make([]mesh.Face, 0, n*n*2)
	idx := func(i, j int) int32 { return int32(j*(n+1) + i) }
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			a, b, c, d := idx(i, j), idx(i+1, j), idx(i+1, j+1), idx(i, j+1)
			faces = append(faces,
				mesh.Face{V: [3]int32{a, b, c}, N: [3]int32{a, b, c}, UVIdx: [3]int32{a, b, c}},
				mesh.Face{V: [3]int32{a, c, d}, N: [3]int32{a, c, d}, UVIdx: [3]int32{a, c, d}},
			)
		}
	}
	return mesh.Build(verts, norms, uvs, faces, opts)
}

// TessellateBilinear converts a 4-point bilinear patch into a single quad's
// worth of two triangles; the indexed-triangle proxy machinery is the same
// regardless of patch degree.
func TessellateBilinear(p *BilinearPatch, opts mesh.BuildOptions) *mesh.TriangleMesh {
	verts := []geom.Vector3{p.P00, p.P10, p.P11, p.P01}
	e1, e2 := p.P10.Sub(p.P00), p.P01.Sub(p.P00)
	n := e1.Cross(e2).Normalize()
	norms := []geom.Vector3{n}
	uvs := []geom.UV{{U: 0, V: 0}, {U: 1, V: 0}, {U: 1, V: 1}, {U: 0, V: 1}}
	faces := []mesh.Face{
		{V: [3]int32{0, 1, 2}, N: [3]int32{0, 0, 0}, UVIdx: [3]int32{0, 1, 2}},
		{V: [3]int32{0, 2, 3}, N: [3]int32{0, 0, 0}, UVIdx: [3]int32{0, 2, 3}},
	}
	return mesh.Build(verts, norms, uvs, faces, opts)
}

// evalBicubic evaluates the tensor-product Bézier surface and its partial
// derivatives at (u, v) via repeated De Casteljau reduction.
func evalBicubic(cp [4][4]geom.Vector3, u, v float64) (p, du, dv geom.Vector3) {
	// Reduce along v first to get 4 control points and their v-derivative,
	// each as a function of u; then reduce those along u.
	var curveU [4]geom.Vector3
	var curveUdv [4]geom.Vector3
	for i := 0; i < 4; i++ {
		row := [4]geom.Vector3{cp[i][0], cp[i][1], cp[i][2], cp[i][3]}
		curveU[i], curveUdv[i] = deCasteljauWithDeriv(row, v)
	}
	p, du = deCasteljauWithDeriv(curveU, u)
	dv, _ = deCasteljauWithDeriv(curveUdv, u) // surface v-derivative is curveUdv's value at u
	return p, du, dv
}

// deCasteljauWithDeriv returns the point at parameter t and the tangent
// (first derivative) of the cubic Bézier curve through the 4 control
// points, via the standard reduction plus the n*(b1-b0) derivative rule.
func deCasteljauWithDeriv(cp [4]geom.Vector3, t float64) (point, deriv geom.Vector3) {
	a := cp
	for k := 3; k > 1; k-- {
		var next [4]geom.Vector3
		for i := 0; i < k; i++ {
			next[i] = geom.Lerp(a[i], a[i+1], t)
		}
		a = [4]geom.Vector3{next[0], next[1], next[2], next[3]}
	}
	deriv = a[1].Sub(a[0]).Scale(3)
	point = geom.Lerp(a[0], a[1], t)
	return point, deriv
}

// Proxy is a cached tessellation, plus a borrow count so a mesh cannot be
// evicted while a ray test has it checked out (§4.6, §5 "MRU proxy cache").
type Proxy struct {
	Mesh    *mesh.TriangleMesh
	borrows int
}

// Generator produces a proxy mesh for a patch ID on a cache miss and is
// notified when a proxy is evicted so it can release any extra storage.
type Generator interface {
	Generate(id int64) *mesh.TriangleMesh
	Release(id int64, m *mesh.TriangleMesh)
}

// ProxyCache is the most-recently-used cache of §4.6. Entries with an
// outstanding borrow are held in a side table outside the underlying LRU so
// that the LRU only ever evicts unborrowed entries: calling back into the
// LRU from its own eviction callback would deadlock on hashicorp/golang-lru's
// internal lock, so Get/Return move entries between the two stores instead
// of asking the LRU to special-case a borrowed hit.
type ProxyCache struct {
	mu       sync.Mutex
	gen      Generator
	lru      *lru.Cache
	borrowed map[int64]*Proxy
}

// NewProxyCache builds a cache with the given capacity (number of
// unborrowed proxy meshes retained) backed by gen for on-miss tessellation.
func NewProxyCache(capacity int, gen Generator) *ProxyCache {
	c := &ProxyCache{gen: gen, borrowed: make(map[int64]*Proxy)}
	c.lru, _ = lru.NewWithEvict(capacity, func(key, value interface{}) {
		proxy := value.(*Proxy)
		gen.Release(key.(int64), proxy.Mesh)
	})
	return c
}

// Get returns the proxy mesh for id, generating it on a cache miss, and
// increments its borrow count so it cannot be evicted before Return.
func (c *ProxyCache) Get(id int64) *mesh.TriangleMesh {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.borrowed[id]; ok {
		p.borrows++
		return p.Mesh
	}
	if v, ok := c.lru.Get(id); ok {
		p := v.(*Proxy)
		c.lru.Remove(id)
		p.borrows = 1
		c.borrowed[id] = p
		return p.Mesh
	}

	m := c.gen.Generate(id)
	c.borrowed[id] = &Proxy{Mesh: m, borrows: 1}
	return m
}

// Return releases the caller's borrow on id. Once the borrow count reaches
// zero the proxy moves back into the LRU proper, where it becomes eligible
// for eviction under the configured capacity.
func (c *ProxyCache) Return(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.borrowed[id]
	if !ok {
		return
	}
	if p.borrows > 0 {
		p.borrows--
	}
	if p.borrows == 0 {
		delete(c.borrowed, id)
		p.borrows = 0
		c.lru.Add(id, p)
	}
}

// Len reports the number of unborrowed entries currently resident in the
// LRU proper (borrowed entries are tracked separately).
func (c *ProxyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// patchGenerator adapts Tessellate/TessellateBilinear into the Generator
// interface ProxyCache expects, looking patches up by ID from the owning
// geometry's registries.
type patchGenerator struct {
	bicubic  map[int64]*BicubicPatch
	bilinear map[int64]*BilinearPatch
	opts     mesh.BuildOptions
}

func (g *patchGenerator) Generate(id int64) *mesh.TriangleMesh {
	if p, ok := g.bicubic[id]; ok {
		return Tessellate(p, g.opts)
	}
	if p, ok := g.bilinear[id]; ok {
		return TessellateBilinear(p, g.opts)
	}
	return mesh.Build(nil, nil, nil, nil, g.opts)
}

func (g *patchGenerator) Release(id int64, m *mesh.TriangleMesh) {
	// Tessellated meshes hold no external resources beyond Go-GC'd slices;
	// nothing to release explicitly.
}

// PatchSet is the top-level Bézier/bilinear patch geometry of §4.6: a tree
// over patch bounding boxes, with ray tests against individual patches
// delegated through a shared ProxyCache.
type PatchSet struct {
	bicubic  []*BicubicPatch
	bilinear []*BilinearPatch
	tree     *accel.Octree[int64]
	cache    *ProxyCache
}

// NewPatchSet builds the patch index and its backing proxy cache with the
// given cache capacity.
func NewPatchSet(bicubic []*BicubicPatch, bilinear []*BilinearPatch, cacheCapacity int, opts mesh.BuildOptions) *PatchSet {
	gen := &patchGenerator{bicubic: map[int64]*BicubicPatch{}, bilinear: map[int64]*BilinearPatch{}, opts: opts}
	box := geom.EmptyBox()
	ids := make([]int64, 0, len(bicubic)+len(bilinear))
	for _, p := range bicubic {
		gen.bicubic[p.ID] = p
		ids = append(ids, p.ID)
		box = box.Union(p.Box)
	}
	for _, p := range bilinear {
		gen.bilinear[p.ID] = p
		ids = append(ids, p.ID)
		box = box.Union(p.Box)
	}
	box = box.EnsureHasVolume()

	ps := &PatchSet{bicubic: bicubic, bilinear: bilinear, cache: NewProxyCache(cacheCapacity, gen)}
	proc := patchProc{set: ps}
	ps.tree = accel.BuildOctree(ids, proc, box, 2, 16)
	return ps
}

func (ps *PatchSet) boxForID(id int64) geom.BoundingBox {
	for _, p := range ps.bicubic {
		if p.ID == id {
			return p.Box
		}
	}
	for _, p := range ps.bilinear {
		if p.ID == id {
			return p.Box
		}
	}
	return geom.EmptyBox()
}

// Intersect tests r against every patch whose box the tree visits,
// tessellating (or reusing a cached tessellation of) each candidate patch
// and delegating the actual ray test to that mesh.
func (ps *PatchSet) Intersect(r geom.Ray, tMin, tMax float64) (isect.Hit, bool) {
	hit, _, found := ps.tree.Intersect(r, tMin, tMax)
	if !found {
		return isect.NoHit, false
	}
	return hit, true
}

func (ps *PatchSet) IntersectAny(r geom.Ray, tMin, tMax float64) bool {
	return ps.tree.IntersectAny(r, tMin, tMax)
}

func (ps *PatchSet) LocalBoundingBox() geom.BoundingBox {
	box := geom.EmptyBox()
	for _, p := range ps.bicubic {
		box = box.Union(p.Box)
	}
	for _, p := range ps.bilinear {
		box = box.Union(p.Box)
	}
	return box.EnsureHasVolume()
}

func (ps *PatchSet) WantsLocalBoxTest() bool { return true }

// patchProc adapts patch IDs for tree storage, delegating the actual
// triangle test to the ProxyCache's tessellated mesh for that ID.
type patchProc struct {
	set *PatchSet
}

func (p patchProc) Intersect(id int64, r geom.Ray, tMin, tMax float64) (isect.Hit, bool) {
	m := p.set.cache.Get(id)
	defer p.set.cache.Return(id)
	return m.Intersect(r, tMin, tMax)
}

func (p patchProc) IntersectAny(id int64, r geom.Ray, tMin, tMax float64) bool {
	m := p.set.cache.Get(id)
	defer p.set.cache.Return(id)
	return m.IntersectAny(r, tMin, tMax)
}

func (p patchProc) BoundingBox(id int64) geom.BoundingBox {
	return p.set.boxForID(id)
}

func (p patchProc) Overlaps(id int64, box geom.BoundingBox) bool {
	return p.set.boxForID(id).Overlaps(box)
}

func (p patchProc) ClassifyAxis(id int64, axis int, axisValue float64) accel.Side {
	b := p.set.boxForID(id)
	lo, hi := b.LL.Component(axis), b.UR.Component(axis)
	switch {
	case hi < axisValue:
		return accel.SideNegative
	case lo > axisValue:
		return accel.SidePositive
	default:
		return accel.SideStraddle
	}
}

func (p patchProc) Serialize(id int64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(id >> (8 * i))
	}
	return buf
}

func (p patchProc) Deserialize(b []byte) (int64, int) {
	var id int64
	for i := 0; i < 8; i++ {
		id |= int64(b[i]) << (8 * i)
	}
	return id, 8
}
