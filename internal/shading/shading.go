// Package shading implements the shader-operation chain of §4.8 and the
// subsurface-scattering operation of §4.9: independent units invoked by
// the ray caster against a surface.RayCaster, each accumulating its
// contribution into a surface.Color accumulator.
package shading

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/isect"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/irradiance"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/photon"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/sampling"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/surface"
)

// EmissionOp accumulates emitted radiance, scaled down on view rays so
// anti-aliasing behaves (§4.8 "Emission").
type EmissionOp struct {
	ViewRayScale float64 // e.g. 0.5; applied only when state.Depth == 0
}

func (op EmissionOp) Shade(ctx *surface.ShadingContext, hit isect.Hit, obj surface.ObjectRef, state *surface.RayState, out *surface.Color) {
	if !state.CountEmission {
		return
	}
	emitter := obj.Emitter()
	if emitter == nil {
		return
	}
	isView := state.Depth == 0
	wo := state.Incident.Negate()
	c := emitter.EmittedRadiance(hit, wo, isView)
	if isView && op.ViewRayScale > 0 {
		c = c.Scale(op.ViewRayScale)
	}
	*out = out.Add(c)
}

// Light is a non-mesh point/area light consulted by DirectLightingOp for
// lights that are not themselves scene objects.
type Light interface {
	SampleIncoming(p geom.Vector3) (wi geom.Vector3, distance float64, radiance surface.Color)
}

// DirectLightingOp sums contributions over a light list, each weighted by
// the BSDF and gated by a shadow-ray test (§4.8 "Direct lighting"). A
// mesh/luminary object is wired in the same way as any other Light: by
// adapting its surface sampler and emitter behind the Light interface, so
// this op does not need to special-case object-backed lights itself.
type DirectLightingOp struct {
	Lights []Light
	BSDF   surface.BSDF
	Op     string
}

func (op DirectLightingOp) Shade(ctx *surface.ShadingContext, hit isect.Hit, obj surface.ObjectRef, state *surface.RayState, out *surface.Color) {
	compute := func() surface.Color {
		var sum surface.Color
		wo := state.Incident.Negate()
		for _, l := range op.Lights {
			wi, dist, radiance := l.SampleIncoming(hit.Point)
			if radiance == (surface.Color{}) {
				continue
			}
			shadowRay := geom.NewRay(hit.Point.Add(hit.Normal.Scale(geom.RayEpsilon)), wi)
			if ctx.Caster.TestShadowRay(shadowRay, geom.RayEpsilon, dist-geom.RayEpsilon) {
				continue
			}
			cosTerm := math.Max(0, hit.Normal.Dot(wi))
			sum = sum.Add(op.BSDF.Evaluate(hit, wo, wi).Mul(radiance).Scale(cosTerm))
		}
		return sum
	}
	if ctx.Cache != nil {
		key := surface.ShaderStateKey{Op: op.Op, Object: obj, X: ctx.RasterX, Y: ctx.RasterY}
		*out = out.Add(ctx.Cache.GetOrCompute(key, compute))
		return
	}
	*out = out.Add(compute())
}

// ReflectionRefractionOp iterates the scattered rays staged on state by an
// upstream BSDF sampling step, recursing through the caster at depth+1
// with importance scaled by each scatter's weight (§4.8).
type ReflectionRefractionOp struct {
	MaxDepth int
	Trace    func(ctx *surface.ShadingContext, r geom.Ray, state *surface.RayState) surface.Color
}

func (op ReflectionRefractionOp) Shade(ctx *surface.ShadingContext, hit isect.Hit, obj surface.ObjectRef, state *surface.RayState, out *surface.Color) {
	if state.Depth >= op.MaxDepth || op.Trace == nil {
		return
	}
	for _, sc := range state.Scattered {
		childState := &surface.RayState{
			Depth:         state.Depth + 1,
			Importance:    state.Importance * colorMagnitude(sc.Weight),
			FromSpecular:  true,
			CountEmission: true,
			IORStack:      state.IORStack,
		}
		result := op.Trace(ctx, sc.Ray, childState)
		*out = out.Add(result.Mul(sc.Weight))
	}
}

func colorMagnitude(c surface.Color) float64 {
	return (c.R + c.G + c.B) / 3
}

// MeshLight adapts a surface-sampleable luminary (an emissive mesh or
// patch) into the Light interface, so DirectLightingOp treats mesh/area
// lights exactly like any other light source (§4.8's "mesh/luminary
// lights" are plain Lights from this op's point of view).
type MeshLight struct {
	Surface surfaceSampler
	Emitter surface.Emitter
	RNG     surface.RandomSource
}

func (l MeshLight) SampleIncoming(p geom.Vector3) (wi geom.Vector3, distance float64, radiance surface.Color) {
	u, v, w := 0.5, 0.5, 0.5
	if l.RNG != nil {
		u, v, w = l.RNG.Float64(), l.RNG.Float64(), l.RNG.Float64()
	}
	sp, sn, _, pdf := l.Surface.Sample(u, v, w)
	if pdf <= 0 {
		return geom.Vector3{}, 0, surface.Color{}
	}
	toLight := sp.Sub(p)
	distance = toLight.Length()
	if distance < geom.Epsilon {
		return geom.Vector3{}, 0, surface.Color{}
	}
	wi = toLight.Scale(1.0 / distance)
	cosAtLight := math.Max(0, sn.Dot(wi.Negate()))
	if cosAtLight <= 0 {
		return geom.Vector3{}, 0, surface.Color{}
	}
	emitted := l.Emitter.EmittedRadiance(isect.Hit{Point: sp, Normal: sn}, wi.Negate(), false)
	solidAngle := cosAtLight / (distance * distance * pdf)
	return wi, distance, emitted.Scale(solidAngle)
}

// PhotonMapOp queries a photon map (caustic or global) for a radiance
// estimate at the hit using the surface BSDF (§4.8 "Photon-map ops").
type PhotonMapOp struct {
	Map      *photon.Map
	BSDF     surface.BSDF
	K        int
	MaxDist  float64
}

func (op PhotonMapOp) Shade(ctx *surface.ShadingContext, hit isect.Hit, obj surface.ObjectRef, state *surface.RayState, out *surface.Color) {
	if op.Map == nil || op.Map.Len() == 0 {
		return
	}
	wo := state.Incident.Negate()
	*out = out.Add(op.Map.RadianceEstimate(hit, wo, op.BSDF, op.K, op.MaxDist))
}

// ShadowDensity classifies how occluded a point is, for ShadowPhotonMapOp.
type ShadowDensity int

const (
	ShadowNone ShadowDensity = iota
	ShadowPartial
	ShadowFull
)

// ShadowPhotonMapOp queries a shadow-photon density estimate and shades
// 0/partial/bright accordingly (§4.8 "Shadow-photon-map op").
type ShadowPhotonMapOp struct {
	Query func(p geom.Vector3) ShadowDensity
	Full  surface.Color
	Partial surface.Color
}

func (op ShadowPhotonMapOp) Shade(ctx *surface.ShadingContext, hit isect.Hit, obj surface.ObjectRef, state *surface.RayState, out *surface.Color) {
	if op.Query == nil {
		return
	}
	switch op.Query(hit.Point) {
	case ShadowFull:
		*out = out.Add(op.Full)
	case ShadowPartial:
		*out = out.Add(op.Partial)
	case ShadowNone:
	}
}

// --- Subsurface scattering (§4.9) ---

// SSSConfig configures subsurface-scattering sample generation for one
// object: sample count, irradiance scale, whether to use Halton points,
// and whether the point set is discarded at pass boundaries.
type SSSConfig struct {
	SampleCount        int
	IrradianceScale    float64
	UseHalton          bool
	RegenerateEachPass bool
	Extinction         func(dist float64) float64
	MultiplyByBSDF     bool
	BSDF               surface.BSDF
}

type sssPoint struct {
	p, n        geom.Vector3
	irradiance  surface.Color
}

// SSSOp implements subsurface scattering: on first encounter with an
// object it builds a surface sample-point set (serialized by a per-object
// mutex), then evaluates queries as a weighted sum over nearby samples.
type SSSOp struct {
	cfg     SSSConfig
	surf    surfaceSampler
	cache   *irradiance.Cache
	samples []sssPoint
	// requestedCount is the sample count asked for in generate(), kept
	// separate from len(samples) because zero-irradiance points are
	// discarded (§4.9 step 2) and evaluate must still divide by the
	// original request, not the surviving count.
	requestedCount int
	built          bool
	mu             buildOnceMutex
	op             string
}

// surfaceSampler is the narrow view of a geometry SSS needs: uniform
// surface sampling, as implemented by internal/mesh.TriangleMesh.Sample.
type surfaceSampler interface {
	Sample(u, v, w float64) (p, n geom.Vector3, uv geom.UV, pdf float64)
}

// NewSSSOp builds an operator bound to one object's surface sampler and
// configuration. Sample generation is deferred to the first Shade call.
func NewSSSOp(opName string, surf surfaceSampler, cfg SSSConfig) *SSSOp {
	return &SSSOp{cfg: cfg, surf: surf, op: opName}
}

// Shade generates the sample set on first use (double-checked under the
// generator mutex, §4.9 "A generator mutex ensures at most one constructor
// per object across threads"), then sums weighted contributions.
func (s *SSSOp) Shade(ctx *surface.ShadingContext, hit isect.Hit, obj surface.ObjectRef, state *surface.RayState, out *surface.Color) {
	s.ensureBuilt(ctx)

	compute := func() surface.Color {
		return s.evaluate(hit.Point, hit.Normal)
	}
	if ctx.Cache != nil {
		key := surface.ShaderStateKey{Op: s.op, Object: obj, X: ctx.RasterX, Y: ctx.RasterY}
		*out = out.Add(ctx.Cache.GetOrCompute(key, compute))
		return
	}
	*out = out.Add(compute())
}

// buildOnceMutex is a tiny sync.Mutex wrapper kept as its own type so the
// zero value of SSSOp is directly usable without an explicit constructor
// call for the mutex itself.
type buildOnceMutex struct{ locked chan struct{} }

func (m *buildOnceMutex) lock() {
	if m.locked == nil {
		m.locked = make(chan struct{}, 1)
	}
	m.locked <- struct{}{}
}

func (m *buildOnceMutex) unlock() { <-m.locked }

func (s *SSSOp) ensureBuilt(ctx *surface.ShadingContext) {
	if s.built && !s.cfg.RegenerateEachPass {
		return
	}
	s.mu.lock()
	defer s.mu.unlock()
	if s.built && !s.cfg.RegenerateEachPass {
		return
	}
	s.generate(ctx)
	s.built = true
}

func (s *SSSOp) generate(ctx *surface.ShadingContext) {
	n := s.cfg.SampleCount
	if n <= 0 {
		n = 256
	}
	s.requestedCount = n
	var halton *sampling.HaltonSource
	if s.cfg.UseHalton {
		halton = sampling.NewHaltonSource(3)
	}

	// Draw the (u, v, w) triples sequentially: a RandomSource is not
	// guaranteed safe for concurrent use, while HaltonSource.Sample is pure
	// and safe either way. The per-point surface sample and BSDF evaluation
	// that follow are independent and the expensive half of this loop, so
	// those fan out across an errgroup (§5 "EXPANSION": bounded, no
	// cooperative yielding beyond the group's own join).
	uvws := make([][3]float64, n)
	for i := 0; i < n; i++ {
		if halton != nil {
			vals := halton.Sample(i)
			uvws[i] = [3]float64{vals[0], vals[1], vals[2]}
		} else if ctx != nil && ctx.RNG != nil {
			uvws[i] = [3]float64{ctx.RNG.Float64(), ctx.RNG.Float64(), ctx.RNG.Float64()}
		}
	}

	raw := make([]*sssPoint, n)
	var group errgroup.Group
	group.SetLimit(8)
	for i := 0; i < n; i++ {
		i := i
		group.Go(func() error {
			u, v, w := uvws[i][0], uvws[i][1], uvws[i][2]
			p, nrm, _, _ := s.surf.Sample(u, v, w)

			// Synthesize a pseudo-intersection facing outward along the
			// normal and shade it to obtain irradiance (§4.9 step 2).
			irr := surface.Color{}
			if s.cfg.BSDF != nil {
				irr = s.cfg.BSDF.Evaluate(isect.Hit{Point: p, Normal: nrm}, nrm, nrm)
			}
			irr = irr.Scale(s.cfg.IrradianceScale)
			if irr == (surface.Color{}) {
				return nil
			}
			raw[i] = &sssPoint{p: p, n: nrm, irradiance: irr}
			return nil
		})
	}
	_ = group.Wait()

	pts := make([]sssPoint, 0, n)
	box := geom.EmptyBox()
	for _, pt := range raw {
		if pt == nil {
			continue
		}
		pts = append(pts, *pt)
		box = box.Include(pt.p)
	}
	box = box.EnsureHasVolume()
	s.cache = irradiance.New(box, 0.2, box.Extent().Length(), 0.01, box.Extent().Length())
	for _, pt := range pts {
		s.cache.Insert(pt.p, pt.n, pt.irradiance, 1.0, nil)
	}
	s.cache.FinishPrecomputation()
	s.samples = pts
}

// evaluate sums per-sample contributions weighted by the configured
// extinction function of sample-to-query distance, divided by the original
// sample count (§4.9 "Evaluation") — the count requested in generate(), not
// the number of samples that survived the zero-irradiance discard.
func (s *SSSOp) evaluate(p, n geom.Vector3) surface.Color {
	if len(s.samples) == 0 || s.requestedCount == 0 {
		return surface.Color{}
	}
	extinction := s.cfg.Extinction
	if extinction == nil {
		extinction = func(d float64) float64 { return 1.0 / (1.0 + d*d) }
	}
	var sum surface.Color
	for _, pt := range s.samples {
		d := p.Sub(pt.p).Length()
		w := extinction(d)
		contribution := pt.irradiance.Scale(w)
		if s.cfg.MultiplyByBSDF && s.cfg.BSDF != nil {
			contribution = contribution.Mul(s.cfg.BSDF.Evaluate(isect.Hit{Point: p, Normal: n}, n, pt.n))
		}
		sum = sum.Add(contribution)
	}
	return sum.Scale(1.0 / float64(s.requestedCount))
}
