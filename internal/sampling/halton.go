// Package sampling implements the low-discrepancy point generator used by
// subsurface-scattering sample placement (§4.9: "optionally from a
// low-discrepancy Halton sequence across three dimensions").
package sampling

// HaltonSource produces a multi-dimensional Halton sequence, one radical
// inverse per dimension, each in a distinct prime base. Dimension 0 uses
// base 2, dimension 1 base 3, dimension 2 base 5, matching the three-axis
// usage SSS sample generation needs.
type HaltonSource struct {
	bases []int
}

// primes covers the dimension count any caller in this codebase needs;
// extend if a future use case needs more than 8 independent dimensions.
var primes = []int{2, 3, 5, 7, 11, 13, 17, 19}

// NewHaltonSource builds a source for the given number of dimensions
// (capped at len(primes)).
func NewHaltonSource(dimensions int) *HaltonSource {
	if dimensions > len(primes) {
		dimensions = len(primes)
	}
	bases := make([]int, dimensions)
	copy(bases, primes[:dimensions])
	return &HaltonSource{bases: bases}
}

// Sample returns the index'th point of the sequence, one radical-inverse
// value per configured dimension, each in [0, 1).
func (h *HaltonSource) Sample(index int) []float64 {
	out := make([]float64, len(h.bases))
	for d, base := range h.bases {
		out[d] = radicalInverse(index, base)
	}
	return out
}

// Dim returns the index'th value of a single dimension without allocating
// the full point, used when only one axis is needed.
func (h *HaltonSource) Dim(dimension, index int) float64 {
	return radicalInverse(index, h.bases[dimension])
}

// radicalInverse reflects n's base-b digits across the "decimal" point,
// the construction underlying every Halton/van der Corput sequence.
func radicalInverse(n, base int) float64 {
	inv := 1.0 / float64(base)
	f := inv
	result := 0.0
	for n > 0 {
		result += float64(n%base) * f
		n /= base
		f *= inv
	}
	return result
}

// Mod1 wraps v into [0, 1), matching the original generator's habit of
// summing a Halton value against a per-sample offset before use.
func Mod1(v float64) float64 {
	v -= float64(int(v))
	if v < 0 {
		v += 1
	}
	return v
}
