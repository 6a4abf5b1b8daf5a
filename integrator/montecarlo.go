package integrator

import (
	"math"
	"math/rand"

	"github.com/LuniumLuk/Tira/scene"
	"github.com/LuniumLuk/Tira/types"
)

// russianRouletteMinDepth is the bounce count past which MonteCarlo starts
// rolling for early termination; primary and first-bounce rays always
// survive so short paths never pay the roulette tax.
const russianRouletteMinDepth = 3

// MonteCarlo is a path tracer that combines light-sampling and
// BSDF-sampling at every non-delta vertex via the power heuristic, with
// Russian roulette termination past a few bounces, grounded on
// original_source/Tira/integrator/montecarlo.cpp.
type MonteCarlo struct {
	Config
}

// NewMonteCarlo returns a MonteCarlo integrator configured by cfg.
func NewMonteCarlo(cfg Config) *MonteCarlo {
	return &MonteCarlo{Config: cfg}
}

// PixelColor implements Integrator.
func (mc *MonteCarlo) PixelColor(x, y, width, height, sampleID int, s *scene.Scene, rng *rand.Rand) types.Vec3 {
	L := types.Vec3{}
	attenuation := types.Vec3{1, 1, 1}

	ray := s.Camera.GenerateRay(x, y, width, height, rng)

	for depth := 0; depth < mc.MaxDepth; depth++ {
		isect := s.Intersect(ray)
		if !isect.Hit {
			L = L.Add(attenuation.MulVec3(s.EvalBackground(ray.Dir)))
			break
		}

		wo := ray.Dir.Neg()

		if isect.Material.Emissive {
			if depth == 0 || ray.IsDelta {
				if ray.Dir.Dot(isect.Normal) < 0 {
					L = L.Add(attenuation.MulVec3(isect.Material.Emission))
				}
			}
			break
		}

		if isect.Material.IsDelta {
			wi, _, isDelta := isect.Material.Sample(wo, isect.Normal, isect.Tangent, isect.Bitangent, rng)
			attenuation = attenuation.MulVec3(isect.Material.Eval(wo, wi, isect.Normal, isect.UV, isect.Tangent, isect.Bitangent))
			ray = spawnBounce(isect.Position, isect.Normal, wi, isDelta)
			continue
		}

		survival := float32(1)
		if mc.RussianRoulette > 0 && depth >= russianRouletteMinDepth {
			if rng.Float32() > mc.RussianRoulette {
				break
			}
			survival = mc.RussianRoulette
		}

		direct := types.Vec3{}
		if len(s.Lights) > 0 {
			direct = direct.Add(mc.calculateDirectLight(s, lightArea, isect, wo, rng))
		}
		if s.SunEnabled {
			direct = direct.Add(mc.calculateDirectLight(s, lightSun, isect, wo, rng))
		}
		if s.Env != nil {
			direct = direct.Add(mc.calculateDirectLight(s, lightEnv, isect, wo, rng))
		}
		L = L.Add(attenuation.MulVec3(direct).Mul(1 / survival))

		wi, pdf, isDelta := isect.Material.Sample(wo, isect.Normal, isect.Tangent, isect.Bitangent, rng)
		if pdf > epsilon {
			f := isect.Material.Eval(wo, wi, isect.Normal, isect.UV, isect.Tangent, isect.Bitangent)
			if !isDelta {
				f = f.Mul(absf(wi.Dot(isect.Normal)))
			}
			attenuation = attenuation.MulVec3(f.Mul(1 / pdf))
		}
		ray = spawnBounce(isect.Position, isect.Normal, wi, isDelta)
	}

	return L
}

// lightType selects which light-sampling strategy calculateDirectLight
// combines against the BSDF-sampling strategy.
type lightType int

const (
	lightArea lightType = iota
	lightSun
	lightEnv
)

// calculateDirectLight estimates the direct lighting at isect from one
// strategy using both a light sample and a BSDF sample, combined by the
// heuristic mc.Heuristic names when mc.UseMIS is set, grounded on
// montecarlo.cpp's calculate_direct_light.
func (mc *MonteCarlo) calculateDirectLight(s *scene.Scene, strategy lightType, isect scene.Intersection, wo types.Vec3, rng *rand.Rand) types.Vec3 {
	Ld := types.Vec3{}

	var ls scene.LightSample
	var ok bool
	switch strategy {
	case lightArea:
		ls, ok = s.SampleLight(isect.Position, isect.Normal, rng)
	case lightSun:
		ls, ok = s.SampleSun(isect.Position, isect.Normal, rng)
	case lightEnv:
		ls, ok = s.SampleEnvironment(isect.Position, isect.Normal, rng)
	}

	if ok && ls.Pdf > epsilon {
		f := isect.Material.Eval(wo, ls.Wi, isect.Normal, isect.UV, isect.Tangent, isect.Bitangent).Mul(absf(ls.Wi.Dot(isect.Normal)))
		weight := float32(1)
		if mc.UseMIS {
			bsdfPdf := isect.Material.Pdf(wo, ls.Wi, isect.Normal, isect.Tangent, isect.Bitangent)
			weight = misWeight(mc.Heuristic, ls.Pdf, bsdfPdf)
		}
		if !f.IsZero() {
			Ld = Ld.Add(ls.Radiance.MulVec3(f).Mul(weight / ls.Pdf))
		}
	}

	if mc.UseMIS {
		wi, bsdfPdf, isDelta := isect.Material.Sample(wo, isect.Normal, isect.Tangent, isect.Bitangent, rng)
		f := isect.Material.Eval(wo, wi, isect.Normal, isect.UV, isect.Tangent, isect.Bitangent)
		if !isDelta {
			f = f.Mul(absf(wi.Dot(isect.Normal)))
		}
		if !f.IsZero() && bsdfPdf > epsilon {
			radiance, lightPdf, hit := traceLightHit(s, strategy, isect.Position, wi)
			if hit {
				weight := float32(1)
				if !isDelta {
					weight = misWeight(mc.Heuristic, bsdfPdf, lightPdf)
				}
				Ld = Ld.Add(radiance.MulVec3(f).Mul(weight / bsdfPdf))
			}
		}
	}

	return Ld
}

// traceLightHit shoots a ray from p in direction wi and reports whether it
// lands on a surface (or miss direction) consistent with strategy, along
// with that strategy's light pdf for wi, needed to weight the
// BSDF-sampling half of calculateDirectLight's MIS estimate.
func traceLightHit(s *scene.Scene, strategy lightType, p, wi types.Vec3) (types.Vec3, float32, bool) {
	ray := types.NewRay(p.Add(wi.Mul(bounceEpsilon)), wi)
	ray.Shadow = true
	isect := s.Intersect(ray)

	switch strategy {
	case lightArea:
		if isect.Hit && isect.Material.Emissive && wi.Dot(isect.Normal) < 0 && s.LightsArea > 0 {
			return isect.Material.Emission, 1.0 / s.LightsArea, true
		}
	case lightSun:
		if !isect.Hit && s.SunEnabled {
			cosThetaMax := float32(math.Cos(float64(s.SunAngularSize)))
			if wi.Dot(s.SunDirection) >= cosThetaMax {
				return s.SunRadiance, 1.0 / s.SunSolidAngle(), true
			}
		}
	case lightEnv:
		if !isect.Hit && s.Env != nil {
			return s.Env.Eval(wi), s.Env.Pdf(wi), true
		}
	}
	return types.Vec3{}, 0, false
}
