// Package irradiance implements the octree-indexed irradiance cache of
// §4.10: a spatial store of diffuse-illumination samples reused across
// nearby shading points to avoid recomputing expensive indirect-lighting
// integrals at every pixel.
package irradiance

import (
	"math"
	"sync"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/surface"
)

// Gradients optionally accompanies an element with the rotational and
// translational derivatives used by gradient-based irradiance
// extrapolation; nil when not computed.
type Gradients struct {
	Rotational    geom.Vector3
	Translational geom.Vector3
}

// Element is one cached sample: position, surface normal, cached
// irradiance, validity radius r0, and optional gradients (§3 "Irradiance
// cache element").
type Element struct {
	P         geom.Vector3
	N         geom.Vector3
	E         surface.Color
	R0        float64
	Gradients *Gradients
}

type node struct {
	center   geom.Vector3
	size     float64 // edge length
	elements []Element
	children [8]*node
}

// Cache is the irradiance cache of §4.10. Tol is the spatial tolerance
// factor; minSpacing/maxSpacing bound the clamped r0 used at insertion.
type Cache struct {
	mu       sync.RWMutex
	root     *node
	tol      float64
	minR0    float64
	maxR0    float64
	finished bool
}

// New builds an empty cache whose root octree node is centered on rootBox's
// center, with a root edge length of tol times harmonicRadius (§4.10
// "Backing store").
func New(rootBox geom.BoundingBox, tol, harmonicRadius, minSpacing, maxSpacing float64) *Cache {
	edge := tol * harmonicRadius
	return &Cache{
		root:  &node{center: rootBox.Center(), size: edge},
		tol:   tol,
		minR0: minSpacing / tol,
		maxR0: maxSpacing / tol,
	}
}

func clampR0(r0, lo, hi float64) float64 {
	if r0 < lo {
		return lo
	}
	if r0 > hi {
		return hi
	}
	return r0
}

// Insert adds a new sample at p with normal n and irradiance e, computing
// and clamping r0 from rawR0 (the caller's harmonic-mean distance
// estimate), then descending to the first node whose size is below
// r0/tol*4 (§4.10 "Insertion").
func (c *Cache) Insert(p, n geom.Vector3, e surface.Color, rawR0 float64, grad *Gradients) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		panic("irradiance: Insert called after finished_precomputation")
	}
	r0 := clampR0(rawR0, c.minR0, c.maxR0)
	threshold := r0 / c.tol * 4
	elem := Element{P: p, N: n, E: e, R0: r0, Gradients: grad}
	insertInto(c.root, p, elem, threshold)
}

func insertInto(n *node, p geom.Vector3, elem Element, threshold float64) {
	if n.size < threshold {
		n.elements = append(n.elements, elem)
		return
	}
	octant := childOctant(n.center, p)
	child := n.children[octant]
	if child == nil {
		child = &node{center: childCenter(n.center, n.size, octant), size: n.size / 2}
		n.children[octant] = child
	}
	insertInto(child, p, elem, threshold)
}

func childOctant(center, p geom.Vector3) int {
	o := 0
	if p.X >= center.X {
		o |= 1
	}
	if p.Y >= center.Y {
		o |= 2
	}
	if p.Z >= center.Z {
		o |= 4
	}
	return o
}

func childCenter(center geom.Vector3, size float64, octant int) geom.Vector3 {
	q := size / 4
	dx, dy, dz := -q, -q, -q
	if octant&1 != 0 {
		dx = q
	}
	if octant&2 != 0 {
		dy = q
	}
	if octant&4 != 0 {
		dz = q
	}
	return center.Add(geom.Vec3(dx, dy, dz))
}

// weight computes the §4.10 query weight for an element against (p, n),
// clamped to 1e10.
func weight(e Element, p, n geom.Vector3) float64 {
	dist := p.Sub(e.P).Length() / e.R0
	cosTerm := 1 - n.Dot(e.N)
	if cosTerm < 0 {
		cosTerm = 0
	}
	denom := dist + math.Sqrt(cosTerm)
	if denom < 1e-10 {
		return 1e10
	}
	w := 1.0 / denom
	if w > 1e10 {
		return 1e10
	}
	return w
}

// nodeContains reports whether p lies within node n's cubical extent.
func nodeContains(n *node, p geom.Vector3) bool {
	half := n.size / 2
	return math.Abs(p.X-n.center.X) <= half &&
		math.Abs(p.Y-n.center.Y) <= half &&
		math.Abs(p.Z-n.center.Z) <= half
}

// Query sums weighted contributions from every element whose weight
// exceeds 1/tol, descending into children whose box contains p (§4.10
// "Query"). The caller divides weightedSum by totalWeight to get the
// estimate; a totalWeight of 0 means no sample was usable.
func (c *Cache) Query(p, n geom.Vector3) (weightedSum surface.Color, totalWeight float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	threshold := 1.0 / c.tol
	queryNode(c.root, p, n, threshold, &weightedSum, &totalWeight)
	return weightedSum, totalWeight
}

func queryNode(nd *node, p, n geom.Vector3, threshold float64, sum *surface.Color, total *float64) {
	if nd == nil {
		return
	}
	for _, e := range nd.elements {
		w := weight(e, p, n)
		if w > threshold {
			*sum = sum.Add(e.E.Scale(w))
			*total += w
		}
	}
	for _, c := range nd.children {
		if c != nil && nodeContains(c, p) {
			queryNode(c, p, n, threshold, sum, total)
		}
	}
}

// IsSampleNeeded returns false if any stored element at or under the
// containing node already weighs above the threshold for (p, n); true
// otherwise (§4.10). Used during the precomputation prepass; it takes the
// read half of the same writer-exclusive lock used during insertion.
func (c *Cache) IsSampleNeeded(p, n geom.Vector3) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	threshold := 1.0 / c.tol
	return !anyAboveThreshold(c.root, p, n, threshold)
}

func anyAboveThreshold(nd *node, p, n geom.Vector3, threshold float64) bool {
	if nd == nil {
		return false
	}
	for _, e := range nd.elements {
		if weight(e, p, n) > threshold {
			return true
		}
	}
	for _, c := range nd.children {
		if c != nil && nodeContains(c, p) {
			if anyAboveThreshold(c, p, n, threshold) {
				return true
			}
		}
	}
	return false
}

// FinishPrecomputation freezes the cache: subsequent Insert calls panic,
// and Query/IsSampleNeeded no longer need the mutex's writer-exclusion
// (they still take the read lock here for simplicity and safety under
// race detection; the lock is never contended once writes have stopped).
func (c *Cache) FinishPrecomputation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = true
}
