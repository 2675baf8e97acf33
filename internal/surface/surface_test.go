package surface

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetOrComputeCachesResultPerKey(t *testing.T) {
	c := NewShaderStateCache()
	var calls int32
	key := ShaderStateKey{Op: "emission", X: 1, Y: 2}

	compute := func() Color {
		atomic.AddInt32(&calls, 1)
		return Color{R: 1}
	}

	first := c.GetOrCompute(key, compute)
	second := c.GetOrCompute(key, compute)

	assert.Equal(t, Color{R: 1}, first)
	assert.Equal(t, Color{R: 1}, second)
	assert.Equal(t, int32(1), calls)
}

func TestGetOrComputeRunsFnOnceUnderConcurrency(t *testing.T) {
	c := NewShaderStateCache()
	var calls int32
	key := ShaderStateKey{Op: "direct-lighting", X: 4, Y: 4}

	var wg sync.WaitGroup
	results := make([]Color, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.GetOrCompute(key, func() Color {
				atomic.AddInt32(&calls, 1)
				return Color{G: 1}
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls)
	for _, r := range results {
		assert.Equal(t, Color{G: 1}, r)
	}
}

func TestGetOrComputeDistinguishesKeys(t *testing.T) {
	c := NewShaderStateCache()
	a := c.GetOrCompute(ShaderStateKey{Op: "emission", X: 0, Y: 0}, func() Color { return Color{R: 1} })
	b := c.GetOrCompute(ShaderStateKey{Op: "emission", X: 0, Y: 1}, func() Color { return Color{R: 2} })

	assert.NotEqual(t, a, b)
}

func TestColorArithmetic(t *testing.T) {
	a := Color{R: 1, G: 2, B: 3, A: 1}
	b := Color{R: 0.5, G: 0.5, B: 0.5, A: 1}

	assert.Equal(t, Color{R: 1.5, G: 2.5, B: 3.5, A: 1}, a.Add(b))
	assert.Equal(t, Color{R: 2, G: 4, B: 6, A: 1}, a.Scale(2))
	assert.Equal(t, Color{R: 0.5, G: 1, B: 1.5, A: 1}, a.Mul(b))
}
