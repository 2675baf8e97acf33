package accel

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/isect"
)

// Octree is an 8-way spatial partition over a fixed root box (§4.3). Nodes
// are either leaves holding an element list or interior nodes with up to 8
// lazily-created children addressed by the sign of (x,y,z) relative to the
// node center. An element is replicated into every child whose box
// overlaps the element's bounds; it is never promoted back up.
type Octree[E any] struct {
	proc         ElementProcessor[E]
	maxPerNode   int
	maxRecursion int
	root         *octNode[E]
}

type octNode[E any] struct {
	box      geom.BoundingBox
	elements []E
	children [8]*octNode[E]
	leaf     bool
}

// BuildOctree constructs an octree over elements within rootBox. An empty
// element set is not an error (§7 "tree-build failure"): the returned tree
// has a nil root and every query on it returns no hit.
func BuildOctree[E any](elements []E, proc ElementProcessor[E], rootBox geom.BoundingBox, maxPerNode, maxRecursionLevel int) *Octree[E] {
	t := &Octree[E]{proc: proc, maxPerNode: maxPerNode, maxRecursion: maxRecursionLevel}
	if len(elements) == 0 {
		return t
	}
	t.root = t.buildNode(elements, rootBox, 0)
	return t
}

func (t *Octree[E]) buildNode(elements []E, box geom.BoundingBox, depth int) *octNode[E] {
	if len(elements) <= t.maxPerNode || depth >= t.maxRecursion || box.MinExtent() <= geom.BoxEpsilon {
		return &octNode[E]{box: box, elements: elements, leaf: true}
	}

	center := box.Center()
	node := &octNode[E]{box: box}

	anyChild := false
	for octant := 0; octant < 8; octant++ {
		childBox := octantBox(box, center, octant).WidenedByFace()
		var childElems []E
		for _, e := range elements {
			if t.proc.Overlaps(e, childBox) {
				childElems = append(childElems, e)
			}
		}
		if len(childElems) == 0 {
			continue
		}
		anyChild = true
		node.children[octant] = t.buildNode(childElems, unwidenBox(childBox), depth+1)
	}

	if !anyChild {
		return &octNode[E]{box: box, elements: elements, leaf: true}
	}
	return node
}

func unwidenBox(b geom.BoundingBox) geom.BoundingBox {
	eps := geom.Vec3(geom.BoxEpsilon, geom.BoxEpsilon, geom.BoxEpsilon)
	return geom.BoundingBox{LL: b.LL.Add(eps), UR: b.UR.Sub(eps)}
}

// octantBox returns the un-widened box for one of the 8 octants of box
// split at center. Bit 0 of octant selects the X half, bit 1 Y, bit 2 Z
// (0=negative side, 1=positive side).
func octantBox(box geom.BoundingBox, center geom.Vector3, octant int) geom.BoundingBox {
	ll, ur := box.LL, box.UR
	if octant&1 != 0 {
		ll.X = center.X
	} else {
		ur.X = center.X
	}
	if octant&2 != 0 {
		ll.Y = center.Y
	} else {
		ur.Y = center.Y
	}
	if octant&4 != 0 {
		ll.Z = center.Z
	} else {
		ur.Z = center.Z
	}
	return geom.BoundingBox{LL: ll, UR: ur}
}

// Intersect returns the globally nearest hit along r within [tMin, tMax],
// descending child boxes in ascending entry-range order and pruning any
// child whose entry range is no less than the current best (§4.3).
func (t *Octree[E]) Intersect(r geom.Ray, tMin, tMax float64) (isect.Hit, E, bool) {
	var zero E
	if t.root == nil {
		return isect.NoHit, zero, false
	}

	rootHit := isect.Box(r, t.root.box)
	if !rootHit.Found {
		return isect.NoHit, zero, false
	}
	entry := math.Max(tMin, rootHit.Range)
	if t.root.box.Inside(r.Origin) {
		entry = math.Max(tMin, geom.RayEpsilon)
	}
	exit := math.Min(tMax, rootHit.Range2)

	s := &octreeSearch[E]{proc: t.proc, ray: r, bestT: math.MaxFloat64}
	t.descend(t.root, entry, exit, s)
	if !s.found {
		return isect.NoHit, zero, false
	}
	return s.bestHit, s.bestElem, true
}

type octreeSearch[E any] struct {
	proc    ElementProcessor[E]
	ray     geom.Ray
	bestT   float64
	bestHit isect.Hit
	bestElem E
	found   bool
}

func (t *Octree[E]) descend(n *octNode[E], tMin, tMax float64, s *octreeSearch[E]) {
	if n == nil || tMin > tMax {
		return
	}
	if n.leaf {
		for _, e := range n.elements {
			hit, ok := t.proc.Intersect(e, s.ray, tMin, tMax)
			if ok && hit.Range < s.bestT {
				s.bestT = hit.Range
				s.bestHit = hit
				s.bestElem = e
				s.found = true
			}
		}
		return
	}

	type childEntry struct {
		idx   int
		enter float64
		exit  float64
	}
	var candidates []childEntry
	for i, c := range n.children {
		if c == nil {
			continue
		}
		bh := isect.Box(s.ray, c.box)
		if !bh.Found {
			continue
		}
		enter := math.Max(tMin, bh.Range)
		exit := math.Min(tMax, bh.Range2)
		if enter > exit {
			continue
		}
		candidates = append(candidates, childEntry{i, enter, exit})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].enter < candidates[j].enter })

	for _, c := range candidates {
		if s.found && c.enter >= s.bestT {
			continue
		}
		t.descend(n.children[c.idx], c.enter, c.exit, s)
	}
}

// IntersectAny performs the any-hit (shadow ray) descent, short-circuiting
// on the first intersection found within [tMin, dHowFar].
func (t *Octree[E]) IntersectAny(r geom.Ray, tMin, dHowFar float64) bool {
	if t.root == nil {
		return false
	}
	rootHit := isect.Box(r, t.root.box)
	if !rootHit.Found {
		return false
	}
	entry := math.Max(tMin, rootHit.Range)
	if t.root.box.Inside(r.Origin) {
		entry = math.Max(tMin, geom.RayEpsilon)
	}
	exit := math.Min(dHowFar, rootHit.Range2)
	return t.descendAny(t.root, r, entry, exit)
}

func (t *Octree[E]) descendAny(n *octNode[E], r geom.Ray, tMin, tMax float64) bool {
	if n == nil || tMin > tMax {
		return false
	}
	if n.leaf {
		for _, e := range n.elements {
			if t.proc.IntersectAny(e, r, tMin, tMax) {
				return true
			}
		}
		return false
	}
	for _, c := range n.children {
		if c == nil {
			continue
		}
		bh := isect.Box(r, c.box)
		if !bh.Found {
			continue
		}
		enter := math.Max(tMin, bh.Range)
		exit := math.Min(tMax, bh.Range2)
		if enter > exit {
			continue
		}
		if t.descendAny(c, r, enter, exit) {
			return true
		}
	}
	return false
}

// EachLeaf calls fn on every leaf node's box and element list, used by
// testable-property checks that every element's bounds overlap the leaf
// nodes that contain it (§8 property 3).
func (t *Octree[E]) EachLeaf(fn func(box geom.BoundingBox, elements []E)) {
	if t.root == nil {
		return
	}
	var walk func(n *octNode[E])
	walk = func(n *octNode[E]) {
		if n == nil {
			return
		}
		if n.leaf {
			fn(n.box, n.elements)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
}

// --- Serialization (§8 round-trip property) ---

const (
	tagNil     = 0
	tagLeaf    = 1
	tagInterior = 2
)

// Serialize encodes the tree's structure (box bounds, leaf/interior tags,
// element payloads via the processor) in a deterministic order so that
// Serialize(Deserialize(Serialize(t))) == Serialize(t) bytewise.
func (t *Octree[E]) Serialize() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int32(t.maxPerNode))
	binary.Write(&buf, binary.LittleEndian, int32(t.maxRecursion))
	writeOctNode(&buf, t.root, t.proc)
	return buf.Bytes()
}

func writeOctNode[E any](buf *bytes.Buffer, n *octNode[E], proc ElementProcessor[E]) {
	if n == nil {
		buf.WriteByte(tagNil)
		return
	}
	if n.leaf {
		buf.WriteByte(tagLeaf)
		writeBox(buf, n.box)
		binary.Write(buf, binary.LittleEndian, int32(len(n.elements)))
		for _, e := range n.elements {
			payload := proc.Serialize(e)
			binary.Write(buf, binary.LittleEndian, int32(len(payload)))
			buf.Write(payload)
		}
		return
	}
	buf.WriteByte(tagInterior)
	writeBox(buf, n.box)
	for _, c := range n.children {
		writeOctNode(buf, c, proc)
	}
}

func writeBox(buf *bytes.Buffer, b geom.BoundingBox) {
	binary.Write(buf, binary.LittleEndian, b.LL.X)
	binary.Write(buf, binary.LittleEndian, b.LL.Y)
	binary.Write(buf, binary.LittleEndian, b.LL.Z)
	binary.Write(buf, binary.LittleEndian, b.UR.X)
	binary.Write(buf, binary.LittleEndian, b.UR.Y)
	binary.Write(buf, binary.LittleEndian, b.UR.Z)
}

func readBox(r *bytes.Reader) geom.BoundingBox {
	var b geom.BoundingBox
	binary.Read(r, binary.LittleEndian, &b.LL.X)
	binary.Read(r, binary.LittleEndian, &b.LL.Y)
	binary.Read(r, binary.LittleEndian, &b.LL.Z)
	binary.Read(r, binary.LittleEndian, &b.UR.X)
	binary.Read(r, binary.LittleEndian, &b.UR.Y)
	binary.Read(r, binary.LittleEndian, &b.UR.Z)
	return b
}

// DeserializeOctree reconstructs a tree from the bytes produced by
// Serialize, using proc to decode element payloads.
func DeserializeOctree[E any](data []byte, proc ElementProcessor[E]) *Octree[E] {
	r := bytes.NewReader(data)
	var maxPerNode, maxRecursion int32
	binary.Read(r, binary.LittleEndian, &maxPerNode)
	binary.Read(r, binary.LittleEndian, &maxRecursion)
	t := &Octree[E]{proc: proc, maxPerNode: int(maxPerNode), maxRecursion: int(maxRecursion)}
	t.root = readOctNode(r, proc)
	return t
}

func readOctNode[E any](r *bytes.Reader, proc ElementProcessor[E]) *octNode[E] {
	tag, err := r.ReadByte()
	if err != nil || tag == tagNil {
		return nil
	}
	box := readBox(r)
	switch tag {
	case tagLeaf:
		var count int32
		binary.Read(r, binary.LittleEndian, &count)
		elements := make([]E, 0, count)
		for i := int32(0); i < count; i++ {
			var plen int32
			binary.Read(r, binary.LittleEndian, &plen)
			payload := make([]byte, plen)
			r.Read(payload)
			e, _ := proc.Deserialize(payload)
			elements = append(elements, e)
		}
		return &octNode[E]{box: box, leaf: true, elements: elements}
	case tagInterior:
		n := &octNode[E]{box: box}
		for i := 0; i < 8; i++ {
			n.children[i] = readOctNode(r, proc)
		}
		return n
	}
	return nil
}
