package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRadicalInverseStaysInUnitInterval(t *testing.T) {
	for n := 0; n < 200; n++ {
		v := radicalInverse(n, 2)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestHaltonSourceDimensionsAreDistinct(t *testing.T) {
	h := NewHaltonSource(3)
	p10 := h.Sample(10)
	require3D := []float64{radicalInverse(10, 2), radicalInverse(10, 3), radicalInverse(10, 5)}
	for i := range p10 {
		assert.InDelta(t, require3D[i], p10[i], 1e-12)
	}
}

func TestMod1WrapsIntoUnitInterval(t *testing.T) {
	assert.InDelta(t, 0.25, Mod1(3.25), 1e-12)
	assert.InDelta(t, 0.75, Mod1(-0.25), 1e-12)
}
