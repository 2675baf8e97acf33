// Package scene implements the top-level object manager of §4.7: a
// registry of world-visible objects, each composing a geometry, transform,
// material, modifier, shader and optional radiance map, tested either by
// linear iteration or through a lazily-built acceleration tree once the
// object count passes a configurable threshold.
package scene

import (
	"math"
	"sync"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/accel"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/isect"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/surface"
)

// Object composes one world-visible entity: its local-frame geometry, the
// object-to-world transform (with cached inverse and inverse-transpose),
// and its shading collaborators.
type Object struct {
	Geometry    surface.Geometry
	ObjToWorld  geom.Matrix4
	WorldToObj  geom.Matrix4
	NormalXform geom.Matrix4 // transpose of WorldToObj's linear part
	Material    surface.Material
	Modifier    surface.Modifier
	ShaderOp    surface.ShaderOp
	EmitterImpl surface.Emitter
	RadMap      surface.RadianceMap
	ShadowCaster bool
}

// objRef adapts an *Object plus the world-frame hit it produced into the
// surface.ObjectRef handed back from CastRay, without forcing Object itself
// to satisfy the ObjectRef method names verbatim (Material/Modifier clash
// with the struct field names above).
type objRef struct{ o *Object }

func (r objRef) Material() surface.Material      { return r.o.Material }
func (r objRef) Modifier() surface.Modifier      { return r.o.Modifier }
func (r objRef) Shader() surface.ShaderOp        { return r.o.ShaderOp }
func (r objRef) Emitter() surface.Emitter        { return r.o.EmitterImpl }
func (r objRef) RadianceMap() surface.RadianceMap { return r.o.RadMap }
func (r objRef) CastsShadow() bool               { return r.o.ShadowCaster }

// NewObject builds an Object from a geometry and an object-to-world
// transform, precomputing the inverse and inverse-transpose used by every
// ray test.
func NewObject(g surface.Geometry, objToWorld geom.Matrix4) *Object {
	inv, ok := objToWorld.Inverse()
	if !ok {
		inv = geom.Identity()
	}
	return &Object{
		Geometry:     g,
		ObjToWorld:   objToWorld,
		WorldToObj:   inv,
		NormalXform:  inv.Transpose3x3(),
		ShadowCaster: true,
	}
}

// Manager is the object registry of §4.7. Above treeThreshold objects it
// lazily builds an octree (once, under mu) and dispatches rays through it;
// below threshold it falls back to linear iteration.
type Manager struct {
	mu            sync.Mutex
	objects       []*Object
	treeThreshold int
	tree          *accel.Octree[int]
}

// NewManager creates an empty manager. treeThreshold is the object count
// above which an acceleration tree is built; 0 disables the tree entirely
// (always linear).
func NewManager(treeThreshold int) *Manager {
	return &Manager{treeThreshold: treeThreshold}
}

// Add registers an object. Objects may only be added before the first ray
// test triggers tree construction; adding afterward invalidates the tree's
// coverage and is a programming error the caller must avoid, matching the
// "tree becomes immutable after construction" discipline of §5.
func (m *Manager) Add(o *Object) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects = append(m.objects, o)
}

func (m *Manager) ensureTree() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tree != nil || len(m.objects) <= m.treeThreshold || m.treeThreshold <= 0 {
		return
	}
	box := geom.EmptyBox()
	indices := make([]int, len(m.objects))
	for i, o := range m.objects {
		indices[i] = i
		box = box.Union(worldBox(o))
	}
	box = box.EnsureHasVolume()
	m.tree = accel.BuildOctree(indices, objProc{m: m}, box, 4, 20)
}

func worldBox(o *Object) geom.BoundingBox {
	local := o.Geometry.LocalBoundingBox()
	box := geom.EmptyBox()
	corners := [8]geom.Vector3{
		{local.LL.X, local.LL.Y, local.LL.Z}, {local.UR.X, local.LL.Y, local.LL.Z},
		{local.LL.X, local.UR.Y, local.LL.Z}, {local.UR.X, local.UR.Y, local.LL.Z},
		{local.LL.X, local.LL.Y, local.UR.Z}, {local.UR.X, local.LL.Y, local.UR.Z},
		{local.LL.X, local.UR.Y, local.UR.Z}, {local.UR.X, local.UR.Y, local.UR.Z},
	}
	for _, c := range corners {
		box = box.Include(o.ObjToWorld.TransformPoint(c))
	}
	return box
}

// intersectObject performs the per-object ray test of §4.7 steps 1-3:
// transform into local space (scaling the distance budget), optional local
// AABB pre-test, dispatch to the geometry, then transform the hit back to
// world space with the normal carried through the inverse-transpose and
// the ONB rebuilt.
func intersectObject(o *Object, r geom.Ray, tMin, tMax float64) (isect.Hit, bool) {
	localOrigin := o.WorldToObj.TransformPoint(r.Origin)
	localDirRaw := o.WorldToObj.TransformVector(r.Dir)
	localDirLen := localDirRaw.Length()
	if localDirLen < geom.Epsilon {
		return isect.NoHit, false
	}
	scale := localDirLen // local units per world unit along the ray
	localRay := geom.Ray{Origin: localOrigin, Dir: localDirRaw.Scale(1.0 / localDirLen)}
	localTMin, localTMax := tMin*scale, tMax*scale

	if o.Geometry.WantsLocalBoxTest() {
		boxHit := isect.Box(localRay, o.Geometry.LocalBoundingBox())
		if !boxHit.Found || boxHit.Range > localTMax || boxHit.Range2 < localTMin {
			return isect.NoHit, false
		}
	}

	hit, ok := o.Geometry.Intersect(localRay, localTMin, localTMax)
	if !ok {
		return isect.NoHit, false
	}

	worldNormal := o.NormalXform.TransformVector(hit.Normal).Normalize()
	worldPoint := o.ObjToWorld.TransformPoint(hit.Point)
	// Advance slightly along the world ray to reduce self-intersection on
	// the next ray cast from this point.
	worldPoint = worldPoint.Add(r.Dir.Scale(geom.RayEpsilon))

	hit.Normal = worldNormal
	hit.Point = worldPoint
	hit.Basis = geom.CreateFromW(worldNormal)
	hit.Range = hit.Range / scale
	hit.Range2 = hit.Range2 / scale
	return hit, true
}

// CastRay implements surface.RayCaster: it finds the nearest object hit
// across the registry, via the tree if built, else linear iteration.
func (m *Manager) CastRay(r geom.Ray, tMin, tMax float64) (isect.Hit, surface.ObjectRef, bool) {
	m.ensureTree()

	m.mu.Lock()
	tree := m.tree
	objs := m.objects
	m.mu.Unlock()

	if tree != nil {
		hit, idx, found := tree.Intersect(r, tMin, tMax)
		if !found {
			return isect.NoHit, nil, false
		}
		return hit, objRef{o: objs[idx]}, true
	}

	bestT := math.MaxFloat64
	var bestHit isect.Hit
	var bestObj *Object
	found := false
	for _, o := range objs {
		hit, ok := intersectObject(o, r, tMin, tMax)
		if ok && hit.Range < bestT {
			bestT = hit.Range
			bestHit = hit
			bestObj = o
			found = true
		}
	}
	if !found {
		return isect.NoHit, nil, false
	}
	return bestHit, objRef{o: bestObj}, true
}

// TestShadowRay implements surface.RayCaster's any-hit path, skipping
// objects configured not to cast shadows.
func (m *Manager) TestShadowRay(r geom.Ray, tMin, tMax float64) bool {
	m.ensureTree()

	m.mu.Lock()
	tree := m.tree
	objs := m.objects
	m.mu.Unlock()

	if tree != nil {
		return tree.IntersectAny(r, tMin, tMax)
	}
	for _, o := range objs {
		if !o.ShadowCaster {
			continue
		}
		if _, ok := intersectObject(o, r, tMin, tMax); ok {
			return true
		}
	}
	return false
}

// objProc adapts object indices for tree storage over the manager's own
// object slice.
type objProc struct{ m *Manager }

func (p objProc) Intersect(idx int, r geom.Ray, tMin, tMax float64) (isect.Hit, bool) {
	return intersectObject(p.m.objects[idx], r, tMin, tMax)
}

func (p objProc) IntersectAny(idx int, r geom.Ray, tMin, tMax float64) bool {
	o := p.m.objects[idx]
	if !o.ShadowCaster {
		return false
	}
	_, ok := intersectObject(o, r, tMin, tMax)
	return ok
}

func (p objProc) BoundingBox(idx int) geom.BoundingBox {
	return worldBox(p.m.objects[idx])
}

func (p objProc) Overlaps(idx int, box geom.BoundingBox) bool {
	return worldBox(p.m.objects[idx]).Overlaps(box)
}

func (p objProc) ClassifyAxis(idx int, axis int, axisValue float64) accel.Side {
	b := worldBox(p.m.objects[idx])
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

func (p objProc) Serialize(idx int) []byte {
	buf := make([]byte, 4)
	for i := 0; i < 4; i++ {
		buf[i] = byte(idx >> (8 * i))
	}
	return buf
}

func (p objProc) Deserialize(b []byte) (int, int) {
	var idx int
	for i := 0; i < 4; i++ {
		idx |= int(b[i]) << (8 * i)
	}
	return idx, 4
}
