package scene

import (
	"math"
	"math/rand"

	"github.com/LuniumLuk/Tira/types"
)

// infDist stands in for TMax on rays with no known hit distance (sun and
// environment shadow rays), since types.Ray has no exported infinity.
const infDist float32 = 1.0e30

// LightSample carries the result of sampling a direct-lighting strategy:
// the incident direction, the pdf with respect to solid angle, the
// unoccluded radiance, and a flag distinguishing delta (sun) samples whose
// pdf is a Dirac mass rather than a density.
type LightSample struct {
	Wi      types.Vec3
	Pdf     float32
	Radiance types.Vec3
	Delta   bool
	Dist    float32
}

// SampleLight draws one of the emissive primitives via inverse-CDF over
// their cumulative area, samples a point on it, and tests its visibility
// from p (spec section 4.4, "Area light sampling"), grounded on
// original_source/Tira/scene.cpp's sample_light.
func (s *Scene) SampleLight(p, n types.Vec3, rng *rand.Rand) (LightSample, bool) {
	if len(s.Lights) == 0 || s.LightsArea <= 0 {
		return LightSample{}, false
	}

	target := rng.Float32() * s.LightsArea
	idx := sampleCDF(s.LightCDF, target)
	light := s.Lights[idx]

	q, lightN, areaPdf := light.Sample(rng.Float32(), rng.Float32())
	if areaPdf <= 0 {
		return LightSample{}, false
	}

	pq := q.Sub(p)
	dist2 := pq.Dot(pq)
	if dist2 <= 0 {
		return LightSample{}, false
	}
	dist := sqrtf(dist2)
	wi := pq.Mul(1.0 / dist)

	cosLight := -wi.Dot(lightN)
	if cosLight <= 0 {
		return LightSample{}, false
	}

	if !s.Visible(p, wi, dist) {
		return LightSample{}, false
	}

	matIdx := light.MaterialIndex()
	emission := s.Materials[matIdx].Emission

	// Area pdf -> solid angle pdf: pdf_area * dist^2 / cos(theta_light),
	// then average over the uniform 1/LightsArea selection probability
	// already folded into areaPdf (1/Area(light)) times P(pick light) =
	// Area(light)/LightsArea, giving the constant 1/LightsArea overall.
	pdf := (1.0 / s.LightsArea) * dist2 / cosLight

	return LightSample{Wi: wi, Pdf: pdf, Radiance: emission, Dist: dist}, true
}

// SampleSun draws a direction uniformly within the sun's angular disk and
// tests its visibility, returning a delta light sample (spec section 4.4,
// "Sun sampling"), grounded on sample_sun in the same file.
func (s *Scene) SampleSun(p, n types.Vec3, rng *rand.Rand) (LightSample, bool) {
	if !s.SunEnabled {
		return LightSample{}, false
	}

	dir, solidAngle := types.UniformSampleCone(rng.Float32(), rng.Float32(), s.SunAngularSize)
	frame := types.FrameFromNormal(s.SunDirection)
	wi := frame.ToWorld(dir)

	if wi.Dot(n) <= 0 {
		return LightSample{}, false
	}
	if !s.Visible(p, wi, infDist) {
		return LightSample{}, false
	}

	return LightSample{Wi: wi, Pdf: 1.0 / solidAngle, Radiance: s.SunRadiance, Delta: true, Dist: infDist}, true
}

// SampleEnvironment importance-samples the environment map and tests
// visibility along the drawn direction (spec section 4.4, "Environment map
// sampling").
func (s *Scene) SampleEnvironment(p, n types.Vec3, rng *rand.Rand) (LightSample, bool) {
	if s.Env == nil {
		return LightSample{}, false
	}

	dir, radiance, pdf := s.Env.Sample(rng.Float32(), rng.Float32())
	if pdf <= 0 || dir.Dot(n) <= 0 {
		return LightSample{}, false
	}
	if !s.Visible(p, dir, infDist) {
		return LightSample{}, false
	}
	return LightSample{Wi: dir, Pdf: pdf, Radiance: radiance, Dist: infDist}, true
}

// SampleLightRay draws a ray leaving a randomly chosen light's surface, for
// use as the light-subpath seed in bidirectional path tracing (spec section
// 4.4/4.6, "BDPT light subpath"), grounded on sample_light_ray in the same
// file. By default the direction is drawn uniformly over the light's upper
// hemisphere (pdfDir = 1/2pi); when s.DirectionalAreaLight is set every
// light instead emits straight along its own normal, a Dirac direction
// (pdfDir = 1) that trades subpath diversity for a sharper, spotlight-like
// emitter.
func (s *Scene) SampleLightRay(rng *rand.Rand) (ray types.Ray, emission types.Vec3, pdfPos, pdfDir float32, ok bool) {
	if len(s.Lights) == 0 || s.LightsArea <= 0 {
		return types.Ray{}, types.Vec3{}, 0, 0, false
	}

	target := rng.Float32() * s.LightsArea
	idx := sampleCDF(s.LightCDF, target)
	light := s.Lights[idx]

	p, n, areaPdf := light.Sample(rng.Float32(), rng.Float32())
	if areaPdf <= 0 {
		return types.Ray{}, types.Vec3{}, 0, 0, false
	}

	var dir types.Vec3
	if s.DirectionalAreaLight {
		dir = n
		pdfDir = 1
	} else {
		local, dp := types.UniformSampleHemisphere(rng.Float32(), rng.Float32())
		frame := types.FrameFromNormal(n)
		dir = frame.ToWorld(local)
		pdfDir = dp
	}

	matIdx := light.MaterialIndex()
	emission = s.Materials[matIdx].Emission
	pdfPos = 1.0 / s.LightsArea

	ray = types.NewRay(p.Add(n.Mul(shadowEpsilon)), dir)
	return ray, emission, pdfPos, pdfDir, true
}

// sampleCDF returns the smallest index i with cdf[i] >= target, the
// inverse-CDF draw used by every light-selection strategy above.
func sampleCDF(cdf []float32, target float32) int {
	lo, hi := 0, len(cdf)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cdf[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func sqrtf(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
