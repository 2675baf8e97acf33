// Package surface holds the small set of role traits that replace the
// original renderer's deep virtual-inheritance chains (§9 "Inheritance
// flattening"): Geometry, ShaderOp, Emitter, BSDF and UVGenerator. Concrete
// geometries (internal/mesh, internal/bezierpatch), the object manager
// (internal/scene) and the shader operations (internal/shading) all depend
// on this package instead of on each other, which keeps the dependency
// graph acyclic despite the original's deeply circular class hierarchy.
package surface

import (
	"sync"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/geom"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/isect"
)

// Geometry is anything that can be ray-tested in its own local frame
// (§4.6, §4.7). WantsLocalBoxTest lets a geometry opt into an AABB
// pre-test before the more expensive full intersection, as the object
// manager does in step 2 of §4.7.
type Geometry interface {
	Intersect(r geom.Ray, tMin, tMax float64) (isect.Hit, bool)
	IntersectAny(r geom.Ray, tMin, tMax float64) bool
	LocalBoundingBox() geom.BoundingBox
	WantsLocalBoxTest() bool
}

// Color is a linear RGB radiance/reflectance triple. A fourth, alpha,
// channel supports the sRGB/ProPhoto output writers (§6).
type Color struct {
	R, G, B, A float64
}

func (c Color) Add(o Color) Color    { return Color{c.R + o.R, c.G + o.G, c.B + o.B, c.A} }
func (c Color) Scale(s float64) Color { return Color{c.R * s, c.G * s, c.B * s, c.A} }
func (c Color) Mul(o Color) Color    { return Color{c.R * o.R, c.G * o.G, c.B * o.B, c.A} }

// Material is an opaque handle to the out-of-scope shading-parameter
// collection (BSDF coefficients, textures, etc.). The core only needs to
// carry it through from Object to ShadingContext.
type Material interface{}

// Modifier is an opaque handle to a geometric perturbation (bump/displace)
// applied before shading; out of scope beyond being carried through.
type Modifier interface{}

// RadianceMap is an opaque handle to an environment/IBL lookup; out of
// scope beyond being carried through.
type RadianceMap interface{}

// Emitter computes emitted radiance at a hit, optionally scaled down for
// view rays to keep anti-aliasing well-behaved (§4.8 "Emission").
type Emitter interface {
	EmittedRadiance(hit isect.Hit, wo geom.Vector3, isViewRay bool) Color
}

// BSDF evaluates or samples a surface's scattering distribution. Only the
// evaluation form is needed by the shader operations named in §4.8/§4.9;
// sampling for reflection/refraction is delegated to a precomputed
// ScatteredRay container instead (§4.8 "Reflection/refraction").
type BSDF interface {
	Evaluate(hit isect.Hit, wo, wi geom.Vector3) Color
}

// UVGenerator computes a texture coordinate for a hit, used by shaders that
// need UVs beyond what the geometry already interpolated.
type UVGenerator interface {
	UV(hit isect.Hit) geom.UV
}

// RayCaster is the narrow view of the scene that a shader operation needs:
// cast a ray and get the nearest hit, or ask whether anything occludes a
// shadow ray. internal/scene.Manager implements this; internal/shading
// depends only on this interface, not on internal/scene, keeping the graph
// acyclic.
type RayCaster interface {
	CastRay(r geom.Ray, tMin, tMax float64) (isect.Hit, ObjectRef, bool)
	TestShadowRay(r geom.Ray, tMin, tMax float64) bool
}

// ObjectRef is an opaque handle a RayCaster hands back with a hit so a
// shader can look up the struck object's material/shader/modifier without
// either package importing the other's concrete type.
type ObjectRef interface {
	Material() Material
	Modifier() Modifier
	Shader() ShaderOp
	Emitter() Emitter
	RadianceMap() RadianceMap
	CastsShadow() bool
}

// ShaderOp is one link in the fixed shader-operation chain of §4.8: given a
// rendering context and a hit, it accumulates its contribution into out.
type ShaderOp interface {
	Shade(ctx *ShadingContext, hit isect.Hit, obj ObjectRef, state *RayState, out *Color)
}

// PassKind names the pass a ShadingContext belongs to: the normal pass or a
// final-gather-only pass. The shader operations in internal/shading do not
// read it, so every operation runs the same way in either pass.
type PassKind int

const (
	PassNormal PassKind = iota
	PassFinalGatherOnly
)

// RandomSource is the narrow RNG surface the core needs; selecting a
// concrete generator is out of scope (§1).
type RandomSource interface {
	Float64() float64
}

// ShadingContext carries everything a ShaderOp needs beyond the hit itself:
// the RNG, which pass is running, the ray caster to recurse through, and a
// cache key space for the per-(op,object,raster-position) memoization
// described in §4.8/§4.9.
type ShadingContext struct {
	RNG       RandomSource
	Pass      PassKind
	Caster    RayCaster
	RasterX   int
	RasterY   int
	Cache     *ShaderStateCache
}

// RayState threads per-ray bookkeeping through the shader chain: recursion
// depth, Monte-Carlo importance weight, whether the current ray came from a
// perfectly specular bounce, whether emission should be counted, and the
// current stack of indices of refraction for nested dielectrics.
type RayState struct {
	Depth         int
	Importance    float64
	FromSpecular  bool
	CountEmission bool
	IORStack      []float64
	Scattered     []ScatteredRay
	// Incident is the unit direction of the ray that produced the current
	// hit, set by the caster before invoking the shader chain; wo (outgoing,
	// toward the viewer) is always Incident.Negate().
	Incident geom.Vector3
}

// ScatteredRay is one weighted outgoing ray produced by a BSDF sample, used
// by the reflection/refraction operation (§4.8).
type ScatteredRay struct {
	Ray    geom.Ray
	Weight Color
	Kind   ScatterKind
}

type ScatterKind int

const (
	ScatterReflect ScatterKind = iota
	ScatterRefract
)

// ShaderStateKey identifies one memoized shader result within a single
// pixel's super-sampling set (§4.8: "cache results keyed by (op, object,
// rasterization position)").
type ShaderStateKey struct {
	Op     string
	Object ObjectRef
	X, Y   int
}

// ShaderStateCache memoizes shader-operation results per §5's "shader-state
// cache" consistency requirement: two concurrent readers with the same key
// must observe either both the pre-compute or both the post-compute value.
// sync.Map's LoadOrStore gives exactly that — a second caller racing the
// first either gets back the first's in-flight placeholder (and can wait
// on it) or the finished value, never a half-written one.
type ShaderStateCache struct {
	entries sync.Map // ShaderStateKey -> *shaderStateEntry
}

type shaderStateEntry struct {
	once  sync.Once
	value Color
}

// GetOrCompute returns the cached color for key, computing it via fn (at
// most once across concurrent callers) on a miss.
func (c *ShaderStateCache) GetOrCompute(key ShaderStateKey, fn func() Color) Color {
	v, _ := c.entries.LoadOrStore(key, &shaderStateEntry{})
	entry := v.(*shaderStateEntry)
	entry.once.Do(func() { entry.value = fn() })
	return entry.value
}

// NewShaderStateCache returns an empty cache, typically one per pixel's
// super-sampling set.
func NewShaderStateCache() *ShaderStateCache { return &ShaderStateCache{} }
