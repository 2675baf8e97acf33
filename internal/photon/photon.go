// Package photon implements the photon data-model variants of §3 and a
// brute-force spectral radiance-estimate map consumed by the caustic/global
// shader operations of §4.8. The photon-tracing/emission pipeline that
// populates a map is outside the spatial-acceleration-and-intersection
// core named in §1's scope and is not implemented here; this package only
// carries the data and answers nearest-neighbour radiance queries.
package photon

import (
	"math"
	"sort"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/isect"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/surface"
)

// QuantizedDirection packs an incoming direction into two bytes (θ, φ), the
// representation the original format uses to keep photon records compact.
type QuantizedDirection struct {
	Theta, Phi byte
}

// QuantizeDirection maps a unit vector to its (θ, φ) byte pair.
func QuantizeDirection(d geom.Vector3) QuantizedDirection {
	theta := math.Acos(clampUnit(d.Z))
	phi := math.Atan2(d.Y, d.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return QuantizedDirection{
		Theta: byte(theta / math.Pi * 255),
		Phi:   byte(phi / (2 * math.Pi) * 255),
	}
}

// Direction reconstructs the approximate unit vector from a quantized pair.
func (q QuantizedDirection) Direction() geom.Vector3 {
	theta := float64(q.Theta) / 255 * math.Pi
	phi := float64(q.Phi) / 255 * 2 * math.Pi
	sinT := math.Sin(theta)
	return geom.Vec3(sinT*math.Cos(phi), sinT*math.Sin(phi), math.Cos(theta))
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Photon is the base record: position, quantized incoming direction and
// power (§3 "Photon variants").
type Photon struct {
	Position geom.Vector3
	Incoming QuantizedDirection
	Power    surface.Color
}

// SpectralPhoton additionally carries a single sample wavelength, used by
// spectral (as opposed to RGB) photon maps.
type SpectralPhoton struct {
	Photon
	WavelengthNM float64
}

// ShadowPhoton carries a boolean instead of power, recording only whether
// light reached that point for fast soft-shadow density estimates.
type ShadowPhoton struct {
	Position geom.Vector3
	Incoming QuantizedDirection
	Lit      bool
}

// IrradiancePhoton caches a precomputed irradiance and surface normal so
// repeated final-gather queries at nearby points avoid re-summing nearby
// photons.
type IrradiancePhoton struct {
	Photon
	Irradiance surface.Color
	Normal     geom.Vector3
}

// Map is a brute-force nearest-neighbour store of Photon records. Callers
// needing true spatial-hash or kd-tree performance can swap this out
// without changing the shader operations that consume RadianceEstimate.
type Map struct {
	photons []Photon
}

// NewMap builds a map over a fixed photon set (maps are built once then
// queried many times during rendering).
func NewMap(photons []Photon) *Map {
	return &Map{photons: append([]Photon{}, photons...)}
}

func (m *Map) Len() int { return len(m.photons) }

// RadianceEstimate sums the k nearest photons to p within maxDist weighted
// by bsdf.Evaluate(hit, wo, photon direction), then divides by the disc
// area they were drawn from — the standard photon-mapping density
// estimator, used by the caustic/global shader operations (§4.8).
func (m *Map) RadianceEstimate(hit isect.Hit, wo geom.Vector3, bsdf surface.BSDF, k int, maxDist float64) surface.Color {
	type candidate struct {
		p    Photon
		dist float64
	}
	var candidates []candidate
	for _, ph := range m.photons {
		d := ph.Position.Sub(hit.Point).Length()
		if d <= maxDist {
			candidates = append(candidates, candidate{ph, d})
		}
	}
	if len(candidates) == 0 {
		return surface.Color{}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	radius := candidates[len(candidates)-1].dist
	if radius < geom.Epsilon {
		radius = geom.Epsilon
	}

	var sum surface.Color
	for _, c := range candidates {
		wi := c.p.Incoming.Direction().Negate()
		sum = sum.Add(bsdf.Evaluate(hit, wo, wi).Mul(c.p.Power))
	}
	area := math.Pi * radius * radius
	return sum.Scale(1.0 / area)
}
