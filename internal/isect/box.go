package isect

import "github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"

// BoxHit is the AABB slab-test result: besides the usual near/far range it
// records which face is the entry (SideA) and exit (SideB), encoded as
// 0..5 (−X,+X,−Y,+Y,−Z,+Z), matching §4.1's "side index" requirement.
type BoxHit struct {
	Found          bool
	Range, Range2  float64
	SideA, SideB   int
	NormalA        geom.Vector3
	NormalB        geom.Vector3
}

var axisNormals = [3]geom.Vector3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// Box performs the slab method against an axis-aligned box, tracking the
// largest entry and smallest exit across the three axes.
func Box(r geom.Ray, box geom.BoundingBox) BoxHit {
	tMin, tMax := -1e300, 1e300
	sideA, sideB := -1, -1

	origin := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float64{r.Dir.X, r.Dir.Y, r.Dir.Z}
	lo := [3]float64{box.LL.X, box.LL.Y, box.LL.Z}
	hi := [3]float64{box.UR.X, box.UR.Y, box.UR.Z}

	for axis := 0; axis < 3; axis++ {
		if dir[axis] > -Epsilon && dir[axis] < Epsilon {
			if origin[axis] < lo[axis] || origin[axis] > hi[axis] {
				return BoxHit{}
			}
			continue
		}
		invD := 1.0 / dir[axis]
		t1 := (lo[axis] - origin[axis]) * invD
		t2 := (hi[axis] - origin[axis]) * invD
		enterSign, exitSign := 2*axis, 2*axis+1
		if t1 > t2 {
			t1, t2 = t2, t1
			enterSign, exitSign = exitSign, enterSign
		}
		if t1 > tMin {
			tMin = t1
			sideA = enterSign
		}
		if t2 < tMax {
			tMax = t2
			sideB = exitSign
		}
		if tMin > tMax {
			return BoxHit{}
		}
	}

	if tMax < Epsilon {
		return BoxHit{}
	}

	// Side indices are 2*axis (negative face, outward normal -axis) and
	// 2*axis+1 (positive face, outward normal +axis).
	var nA, nB geom.Vector3
	if sideA >= 0 {
		nA = axisNormals[sideA/2]
		if sideA%2 == 0 {
			nA = nA.Negate()
		}
	}
	if sideB >= 0 {
		nB = axisNormals[sideB/2]
		if sideB%2 == 0 {
			nB = nB.Negate()
		}
	}

	return BoxHit{
		Found: true, Range: tMin, Range2: tMax,
		SideA: sideA, SideB: sideB,
		NormalA: nA, NormalB: nB,
	}
}
