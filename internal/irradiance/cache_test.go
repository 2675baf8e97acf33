package irradiance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/surface"
)

func newTestCache() *Cache {
	box := geom.BoundingBox{LL: geom.Vec3(-10, -10, -10), UR: geom.Vec3(10, 10, 10)}
	return New(box, 0.2, 5.0, 0.1, 5.0)
}

func TestQueryOnEmptyCacheReturnsZeroWeight(t *testing.T) {
	c := newTestCache()
	_, total := c.Query(geom.Vec3(0, 0, 0), geom.Vec3(0, 0, 1))
	assert.Equal(t, 0.0, total)
}

func TestIsSampleNeededTrueBeforeAnyInsert(t *testing.T) {
	c := newTestCache()
	assert.True(t, c.IsSampleNeeded(geom.Vec3(0, 0, 0), geom.Vec3(0, 0, 1)))
}

func TestInsertThenQueryAtSamePointFindsStrongWeight(t *testing.T) {
	c := newTestCache()
	p := geom.Vec3(1, 1, 1)
	n := geom.Vec3(0, 0, 1)
	c.Insert(p, n, surface.Color{R: 1, G: 1, B: 1}, 1.0, nil)

	sum, total := c.Query(p, n)
	require.Greater(t, total, 0.0)
	assert.Greater(t, sum.R/total, 0.5)
}

func TestIsSampleNeededFalseNearAStrongExistingSample(t *testing.T) {
	c := newTestCache()
	p := geom.Vec3(2, 2, 2)
	n := geom.Vec3(0, 1, 0)
	c.Insert(p, n, surface.Color{R: 1, G: 1, B: 1}, 1.0, nil)

	assert.False(t, c.IsSampleNeeded(p, n))
}

func TestInsertAfterFinishedPrecomputationPanics(t *testing.T) {
	c := newTestCache()
	c.FinishPrecomputation()
	assert.Panics(t, func() {
		c.Insert(geom.Vec3(0, 0, 0), geom.Vec3(0, 0, 1), surface.Color{}, 1.0, nil)
	})
}

func TestDistantSampleContributesLessWeightThanNearSample(t *testing.T) {
	c := newTestCache()
	near := geom.Vec3(0, 0, 0)
	far := geom.Vec3(9, 9, 9)
	n := geom.Vec3(0, 0, 1)
	c.Insert(near, n, surface.Color{R: 1, G: 1, B: 1}, 1.0, nil)
	c.Insert(far, n, surface.Color{R: 1, G: 1, B: 1}, 1.0, nil)

	nearCache := newTestCache()
	nearCache.Insert(near, n, surface.Color{R: 1, G: 1, B: 1}, 1.0, nil)

	query := geom.Vec3(0.1, 0.1, 0.1)
	_, total := c.Query(query, n)
	_, nearOnly := nearCache.Query(query, n)
	assert.Equal(t, total, nearOnly, "far sample at distance ~15 with r0=1 should fall below the query weight threshold")
}
