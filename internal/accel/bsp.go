package accel

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/isect"
)

// straddleFraction is the largest share of a node's element set that may be
// "both sides" for the node (once past a quarter of the depth limit) to
// retain those elements locally instead of pushing them into both children
// (§4.4).
const straddleFraction = 0.6

// BSPTree splits by axis-aligned mid-planes cycling X -> Y -> Z with depth
// (§4.4).
type BSPTree[E any] struct {
	proc         ElementProcessor[E]
	maxPerNode   int
	maxRecursion int
	root         *bspNode[E]
}

type bspNode[E any] struct {
	box      geom.BoundingBox
	axis     int
	split    float64
	retained []E // elements kept at this node instead of pushed down
	left     *bspNode[E]
	right    *bspNode[E]
	leaf     bool
	elements []E // leaf-only
}

// BuildBSPTree constructs a BSP tree over elements within rootBox.
func BuildBSPTree[E any](elements []E, proc ElementProcessor[E], rootBox geom.BoundingBox, maxPerNode, maxRecursionLevel int) *BSPTree[E] {
	t := &BSPTree[E]{proc: proc, maxPerNode: maxPerNode, maxRecursion: maxRecursionLevel}
	if len(elements) == 0 {
		return t
	}
	t.root = t.buildNode(elements, rootBox, 0)
	return t
}

func (t *BSPTree[E]) buildNode(elements []E, box geom.BoundingBox, depth int) *bspNode[E] {
	if len(elements) <= t.maxPerNode || depth >= t.maxRecursion || box.MinExtent() <= geom.BoxEpsilon {
		return &bspNode[E]{box: box, leaf: true, elements: elements}
	}

	axis := depth % 3
	mid := box.Center().Component(axis)

	var left, right, both []E
	for _, e := range elements {
		switch t.proc.ClassifyAxis(e, axis, mid) {
		case SideNegative:
			left = append(left, e)
		case SidePositive:
			right = append(right, e)
		default:
			both = append(both, e)
		}
	}

	node := &bspNode[E]{box: box, axis: axis, split: mid}

	smallStraddle := float64(len(both)) <= straddleFraction*float64(len(elements))
	pastQuarter := depth > t.maxRecursion/4
	noProgress := len(left)+len(right) == 0

	if (smallStraddle && pastQuarter) || noProgress {
		node.retained = both
		if len(left) > 0 {
			leftBox := box
			leftBox.UR = leftBox.UR.SetComponent(axis, mid)
			node.left = t.buildNode(left, leftBox, depth+1)
		}
		if len(right) > 0 {
			rightBox := box
			rightBox.LL = rightBox.LL.SetComponent(axis, mid)
			node.right = t.buildNode(right, rightBox, depth+1)
		}
		return node
	}

	leftAll := append(append([]E{}, left...), both...)
	rightAll := append(append([]E{}, right...), both...)

	leftBox := box
	leftBox.UR = leftBox.UR.SetComponent(axis, mid)
	rightBox := box
	rightBox.LL = rightBox.LL.SetComponent(axis, mid)

	node.left = t.buildNode(leftAll, leftBox, depth+1)
	node.right = t.buildNode(rightAll, rightBox, depth+1)
	return node
}

// Intersect returns the nearest hit along r, determining which child the
// ray enters first by comparing slab-entry ranges, visiting near then far,
// and short-circuiting when the current best beats the far child's entry
// range (§4.4).
func (t *BSPTree[E]) Intersect(r geom.Ray, tMin, tMax float64) (isect.Hit, E, bool) {
	var zero E
	if t.root == nil {
		return isect.NoHit, zero, false
	}
	s := &bspSearch[E]{proc: t.proc, ray: r, bestT: math.MaxFloat64}
	t.descend(t.root, tMin, tMax, s)
	if !s.found {
		return isect.NoHit, zero, false
	}
	return s.bestHit, s.bestElem, true
}

type bspSearch[E any] struct {
	proc     ElementProcessor[E]
	ray      geom.Ray
	bestT    float64
	bestHit  isect.Hit
	bestElem E
	found    bool
}

func (t *BSPTree[E]) testElements(elements []E, tMin, tMax float64, s *bspSearch[E]) {
	for _, e := range elements {
		hit, ok := t.proc.Intersect(e, s.ray, tMin, tMax)
		if ok && hit.Range < s.bestT {
			s.bestT = hit.Range
			s.bestHit = hit
			s.bestElem = e
			s.found = true
		}
	}
}

func (t *BSPTree[E]) descend(n *bspNode[E], tMin, tMax float64, s *bspSearch[E]) {
	if n == nil || tMin > tMax {
		return
	}
	if n.leaf {
		t.testElements(n.elements, tMin, tMax, s)
		return
	}
	t.testElements(n.retained, tMin, tMax, s)

	dirComp := s.ray.Dir.Component(n.axis)
	originComp := s.ray.Origin.Component(n.axis)

	var near, far *bspNode[E]
	if dirComp >= 0 {
		near, far = n.left, n.right
	} else {
		near, far = n.right, n.left
	}

	var tSplit float64
	if dirComp > -geom.Epsilon && dirComp < geom.Epsilon {
		if originComp < n.split {
			near, far = n.left, n.right
		} else {
			near, far = n.right, n.left
		}
		tSplit = tMax
	} else {
		tSplit = (n.split - originComp) / dirComp
	}

	t.descend(near, tMin, math.Min(tMax, tSplit), s)
	if s.found && tSplit >= s.bestT {
		return
	}
	t.descend(far, math.Max(tMin, tSplit), tMax, s)
}

// IntersectAny is the shadow-ray any-hit descent.
func (t *BSPTree[E]) IntersectAny(r geom.Ray, tMin, tMax float64) bool {
	if t.root == nil {
		return false
	}
	return t.descendAny(t.root, r, tMin, tMax)
}

func (t *BSPTree[E]) descendAny(n *bspNode[E], r geom.Ray, tMin, tMax float64) bool {
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
	for _, e := range n.retained {
		if t.proc.IntersectAny(e, r, tMin, tMax) {
			return true
		}
	}
	return t.descendAny(n.left, r, tMin, tMax) || t.descendAny(n.right, r, tMin, tMax)
}

// --- Serialization ---

func (t *BSPTree[E]) Serialize() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int32(t.maxPerNode))
	binary.Write(&buf, binary.LittleEndian, int32(t.maxRecursion))
	writeBSPNode(&buf, t.root, t.proc)
	return buf.Bytes()
}

func writeBSPNode[E any](buf *bytes.Buffer, n *bspNode[E], proc ElementProcessor[E]) {
	if n == nil {
		buf.WriteByte(tagNil)
		return
	}
	if n.leaf {
		buf.WriteByte(tagLeaf)
		writeBox(buf, n.box)
		writeElements(buf, n.elements, proc)
		return
	}
	buf.WriteByte(tagInterior)
	writeBox(buf, n.box)
	binary.Write(buf, binary.LittleEndian, int32(n.axis))
	binary.Write(buf, binary.LittleEndian, n.split)
	writeElements(buf, n.retained, proc)
	writeBSPNode(buf, n.left, proc)
	writeBSPNode(buf, n.right, proc)
}

func writeElements[E any](buf *bytes.Buffer, elements []E, proc ElementProcessor[E]) {
	binary.Write(buf, binary.LittleEndian, int32(len(elements)))
	for _, e := range elements {
		payload := proc.Serialize(e)
		binary.Write(buf, binary.LittleEndian, int32(len(payload)))
		buf.Write(payload)
	}
}

func readElements[E any](r *bytes.Reader, proc ElementProcessor[E]) []E {
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
	return elements
}

// DeserializeBSPTree reconstructs a tree from bytes produced by Serialize.
func DeserializeBSPTree[E any](data []byte, proc ElementProcessor[E]) *BSPTree[E] {
	r := bytes.NewReader(data)
	var maxPerNode, maxRecursion int32
	binary.Read(r, binary.LittleEndian, &maxPerNode)
	binary.Read(r, binary.LittleEndian, &maxRecursion)
	t := &BSPTree[E]{proc: proc, maxPerNode: int(maxPerNode), maxRecursion: int(maxRecursion)}
	t.root = readBSPNode(r, proc)
	return t
}

func readBSPNode[E any](r *bytes.Reader, proc ElementProcessor[E]) *bspNode[E] {
	tag, err := r.ReadByte()
	if err != nil || tag == tagNil {
		return nil
	}
	box := readBox(r)
	switch tag {
	case tagLeaf:
		elements := readElements(r, proc)
		return &bspNode[E]{box: box, leaf: true, elements: elements}
	case tagInterior:
		n := &bspNode[E]{box: box}
		var axis int32
		binary.Read(r, binary.LittleEndian, &axis)
		n.axis = int(axis)
		binary.Read(r, binary.LittleEndian, &n.split)
		n.retained = readElements(r, proc)
		n.left = readBSPNode(r, proc)
		n.right = readBSPNode(r, proc)
		return n
	}
	return nil
}
