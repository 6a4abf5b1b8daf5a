package integrator

import (
	"math/rand"

	"github.com/LuniumLuk/Tira/scene"
	"github.com/LuniumLuk/Tira/types"
)

// Whitted is a one-shot direct-lighting integrator: every non-delta hit
// samples each active light strategy once and takes a single BSDF bounce,
// with no multiple importance sampling, grounded on
// original_source/Tira/integrator/whitted.cpp.
type Whitted struct {
	Config
}

// NewWhitted returns a Whitted integrator with cfg's bounce cap; UseMIS and
// RussianRoulette are ignored (Whitted never combines strategies or
// terminates paths early).
func NewWhitted(cfg Config) *Whitted {
	return &Whitted{Config: cfg}
}

// PixelColor implements Integrator.
func (w *Whitted) PixelColor(x, y, width, height, sampleID int, s *scene.Scene, rng *rand.Rand) types.Vec3 {
	L := types.Vec3{}
	attenuation := types.Vec3{1, 1, 1}

	ray := s.Camera.GenerateRay(x, y, width, height, rng)

	for depth := 0; depth < w.MaxDepth; depth++ {
		isect := s.Intersect(ray)
		if !isect.Hit {
			L = L.Add(attenuation.MulVec3(s.EvalBackground(ray.Dir)))
			break
		}

		wo := ray.Dir.Neg()

		if isect.Material.IsDelta {
			wi, _, isDelta := isect.Material.Sample(wo, isect.Normal, isect.Tangent, isect.Bitangent, rng)
			attenuation = attenuation.MulVec3(isect.Material.Eval(wo, wi, isect.Normal, isect.UV, isect.Tangent, isect.Bitangent))
			ray = spawnBounce(isect.Position, isect.Normal, wi, isDelta)
			continue
		}

		if isect.Material.Emissive {
			if depth == 0 || ray.IsDelta {
				L = L.Add(attenuation.MulVec3(isect.Material.Emission))
			}
			break
		}

		L = L.Add(attenuation.MulVec3(w.directLight(s, isect, wo, rng)))

		wi, pdf, isDelta := isect.Material.Sample(wo, isect.Normal, isect.Tangent, isect.Bitangent, rng)
		f := isect.Material.Eval(wo, wi, isect.Normal, isect.UV, isect.Tangent, isect.Bitangent)
		if !isDelta {
			f = f.Mul(absf(wi.Dot(isect.Normal)))
		}
		if pdf > epsilon {
			attenuation = attenuation.MulVec3(f.Mul(1 / pdf))
		}
		ray = spawnBounce(isect.Position, isect.Normal, wi, isDelta)
	}

	return L
}

// directLight sums the unweighted contribution of every active light
// strategy at isect, one sample each, matching whitted.cpp's per-strategy
// loop (no MIS weighting against the BSDF-sampling strategy).
func (w *Whitted) directLight(s *scene.Scene, isect scene.Intersection, wo types.Vec3, rng *rand.Rand) types.Vec3 {
	L := types.Vec3{}

	if ls, ok := s.SampleLight(isect.Position, isect.Normal, rng); ok {
		L = L.Add(shade(isect, wo, ls))
	}
	if ls, ok := s.SampleSun(isect.Position, isect.Normal, rng); ok {
		L = L.Add(shade(isect, wo, ls))
	}
	if ls, ok := s.SampleEnvironment(isect.Position, isect.Normal, rng); ok {
		L = L.Add(shade(isect, wo, ls))
	}
	return L
}

func shade(isect scene.Intersection, wo types.Vec3, ls scene.LightSample) types.Vec3 {
	if ls.Pdf <= epsilon {
		return types.Vec3{}
	}
	f := isect.Material.Eval(wo, ls.Wi, isect.Normal, isect.UV, isect.Tangent, isect.Bitangent)
	return f.MulVec3(ls.Radiance).Mul(absf(ls.Wi.Dot(isect.Normal)) / ls.Pdf)
}

// spawnBounce offsets p along n towards wi to avoid self-intersection and
// builds the next path ray, matching the rEPSILON nudge every integrator
// applies before spawning a bounce.
func spawnBounce(p, n, wi types.Vec3, isDelta bool) types.Ray {
	offset := n.Mul(bounceEpsilon)
	if wi.Dot(n) <= 0 {
		offset = offset.Neg()
	}
	ray := types.NewRay(p.Add(offset), wi)
	ray.IsDelta = isDelta
	return ray
}

const epsilon = 1e-6
const bounceEpsilon = 1e-3

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
