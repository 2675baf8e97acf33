package geom

// BoxEpsilon (ε_box) bounds the minimum extent a tree node's box may reach
// before subdivision stops (§4.3, §4.4) and is also used to widen
// zero-volume boxes.
const BoxEpsilon = 1e-4

// BoundingBox is an axis-aligned box described by two opposite corners.
type BoundingBox struct {
	LL, UR Vector3
}

// EmptyBox returns a box primed so the first Include call establishes real
// bounds (LL = +inf, UR = -inf on every axis).
func EmptyBox() BoundingBox {
	const inf = 1e300
	return BoundingBox{
		LL: Vector3{inf, inf, inf},
		UR: Vector3{-inf, -inf, -inf},
	}
}

// Include grows the box, if necessary, to contain p.
func (b BoundingBox) Include(p Vector3) BoundingBox {
	if p.X < b.LL.X {
		b.LL.X = p.X
	}
	if p.Y < b.LL.Y {
		b.LL.Y = p.Y
	}
	if p.Z < b.LL.Z {
		b.LL.Z = p.Z
	}
	if p.X > b.UR.X {
		b.UR.X = p.X
	}
	if p.Y > b.UR.Y {
		b.UR.Y = p.Y
	}
	if p.Z > b.UR.Z {
		b.UR.Z = p.Z
	}
	return b
}

// Union returns a box covering both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return b.Include(o.LL).Include(o.UR)
}

// SanityCheck restores the invariant ll[i] <= ur[i] on every axis by
// swapping any axis found inverted. Called after construction from
// arbitrary corner data.
func (b BoundingBox) SanityCheck() BoundingBox {
	if b.LL.X > b.UR.X {
		b.LL.X, b.UR.X = b.UR.X, b.LL.X
	}
	if b.LL.Y > b.UR.Y {
		b.LL.Y, b.UR.Y = b.UR.Y, b.LL.Y
	}
	if b.LL.Z > b.UR.Z {
		b.LL.Z, b.UR.Z = b.UR.Z, b.LL.Z
	}
	return b
}

// EnsureHasVolume widens any axis whose extent is (near) zero by BoxEpsilon
// on each side, so degenerate (planar) geometry still yields a testable box.
func (b BoundingBox) EnsureHasVolume() BoundingBox {
	for i := 0; i < 3; i++ {
		lo, hi := b.LL.Component(i), b.UR.Component(i)
		if hi-lo < BoxEpsilon {
			mid := (lo + hi) * 0.5
			b.LL = b.LL.SetComponent(i, mid-BoxEpsilon)
			b.UR = b.UR.SetComponent(i, mid+BoxEpsilon)
		}
	}
	return b
}

// WidenedByFace returns a copy of b widened by BoxEpsilon on every face,
// used when building octree/BSP child boxes so elements lying exactly on a
// split plane are included on both sides.
func (b BoundingBox) WidenedByFace() BoundingBox {
	eps := Vector3{BoxEpsilon, BoxEpsilon, BoxEpsilon}
	return BoundingBox{LL: b.LL.Sub(eps), UR: b.UR.Add(eps)}
}

// Overlaps reports whether b and o share any volume.
func (b BoundingBox) Overlaps(o BoundingBox) bool {
	return b.LL.X <= o.UR.X && b.UR.X >= o.LL.X &&
		b.LL.Y <= o.UR.Y && b.UR.Y >= o.LL.Y &&
		b.LL.Z <= o.UR.Z && b.UR.Z >= o.LL.Z
}

// Contains reports whether p lies within b (inclusive).
func (b BoundingBox) Contains(p Vector3) bool {
	return p.X >= b.LL.X && p.X <= b.UR.X &&
		p.Y >= b.LL.Y && p.Y <= b.UR.Y &&
		p.Z >= b.LL.Z && p.Z <= b.UR.Z
}

// Center returns the box midpoint.
func (b BoundingBox) Center() Vector3 {
	return b.LL.Add(b.UR).Scale(0.5)
}

// Extent returns the per-axis extent (UR - LL).
func (b BoundingBox) Extent() Vector3 {
	return b.UR.Sub(b.LL)
}

// MinExtent returns the smallest of the three axis extents, used by
// subdivision-stop checks ("any extent <= ε_box").
func (b BoundingBox) MinExtent() float64 {
	e := b.Extent()
	m := e.X
	if e.Y < m {
		m = e.Y
	}
	if e.Z < m {
		m = e.Z
	}
	return m
}

// Inside reports whether p is strictly interior, used by ray descent to
// decide whether a ray originates inside the root box.
func (b BoundingBox) Inside(p Vector3) bool {
	return p.X > b.LL.X && p.X < b.UR.X &&
		p.Y > b.LL.Y && p.Y < b.UR.Y &&
		p.Z > b.LL.Z && p.Z < b.UR.Z
}
