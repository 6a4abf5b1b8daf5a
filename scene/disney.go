package scene

import (
	"math"
	"math/rand"

	"github.com/LuniumLuk/Tira/types"
)

// NewDisney builds a Disney principled material (spec section 4.2,
// "Disney Principled"): anisotropic GTR2 specular mixed with a cosine
// diffuse lobe.
func NewDisney(baseColor types.Vec3, roughness, metallic, specular, specularTint, anisotropic, clearcoat, clearcoatGloss, sheen, sheenTint, subsurface float32) *Material {
	return &Material{
		Type:           Disney,
		BaseColor:      baseColor,
		Roughness:      roughness,
		Metallic:       metallic,
		SpecularAmt:    specular,
		SpecularTint:   specularTint,
		Anisotropic:    anisotropic,
		Clearcoat:      clearcoat,
		ClearcoatGloss: clearcoatGloss,
		Sheen:          sheen,
		SheenTint:      sheenTint,
		Subsurface:     subsurface,
	}
}

// anisoAlpha returns the GTR2 roughness pair (alphaX, alphaY): roughness
// squared, stretched by the anisotropic aspect factor and floored at 1e-4.
func (m *Material) anisoAlpha() (float32, float32) {
	aspect := float32(math.Sqrt(1 - 0.9*float64(m.Anisotropic)))
	rough2 := m.Roughness * m.Roughness
	ax := rough2 / aspect
	ay := rough2 * aspect
	if ax < 1e-4 {
		ax = 1e-4
	}
	if ay < 1e-4 {
		ay = 1e-4
	}
	return ax, ay
}

// gtr2Aniso evaluates the anisotropic GTR2 (GGX) normal distribution in the
// local shading frame, h being the half-vector.
func gtr2Aniso(hx, hy, hz, ax, ay float32) float32 {
	denom := (hx*hx)/(ax*ax) + (hy*hy)/(ay*ay) + hz*hz
	if denom <= 0 {
		return 0
	}
	return 1.0 / (math.Pi * ax * ay * denom * denom)
}

// smithGAniso evaluates the anisotropic Smith masking term for one
// direction v (local space) against alphaX/alphaY.
func smithGAniso(vx, vy, vz, ax, ay float32) float32 {
	if vz <= 0 {
		return 0
	}
	lambda := (-1 + float32(math.Sqrt(float64(1+(vx*vx*ax*ax+vy*vy*ay*ay)/(vz*vz))))) / 2
	return 1.0 / (1.0 + lambda)
}

// schlickWeight is the (1-cosTheta)^5 grazing-angle term Schlick's Fresnel
// approximation and the sheen/subsurface terms below all share.
func schlickWeight(cosTheta float32) float32 {
	m := types.Clamp(1-cosTheta, 0, 1)
	m2 := m * m
	return m2 * m2 * m
}

// gtr1 evaluates the isotropic GTR1 (Berry) distribution clearcoat uses,
// matching the Disney BRDF explorer reference's GTR1.
func gtr1(hz, alpha float32) float32 {
	if alpha >= 1 {
		return 1.0 / math.Pi
	}
	a2 := alpha * alpha
	t := 1 + (a2-1)*hz*hz
	return float32(float64(a2-1) / (math.Pi * math.Log(float64(a2)) * float64(t)))
}

// smithGGX evaluates the isotropic Smith masking term clearcoat's
// fixed-roughness (alpha=0.25) lobe uses.
func smithGGX(cosTheta, alpha float32) float32 {
	a2 := alpha * alpha
	b2 := cosTheta * cosTheta
	return 1.0 / (cosTheta + float32(math.Sqrt(float64(a2+b2-a2*b2))))
}

// clearcoatAlpha maps clearcoatGloss in [0,1] to the GTR1 roughness
// parameter, matching the reference's mix(0.1, 0.001, gloss).
func clearcoatAlpha(gloss float32) float32 {
	return (1-gloss)*0.1 + gloss*0.001
}

// lobeWeightsDisney splits sampleDisney's lobe-selection probability between the
// diffuse, primary specular and clearcoat lobes, proportional to how much
// each can contribute (metallic suppresses diffuse entirely; clearcoat only
// contributes when the coat weight is non-zero).
func (m *Material) lobeWeightsDisney() (pDiffuse, pSpec, pClearcoat float32) {
	diffuseW := 1 - m.Metallic
	specW := float32(1)
	coatW := 0.25 * m.Clearcoat
	total := diffuseW + specW + coatW
	if total <= 0 {
		return 0, 1, 0
	}
	return diffuseW / total, specW / total, coatW / total
}

func (m *Material) sampleDisney(wo, n, tangent, bitangent types.Vec3, rng *rand.Rand) (types.Vec3, float32, bool) {
	frame := types.Frame{T: tangent, B: bitangent, N: n}
	pDiffuse, pSpec, _ := m.lobeWeightsDisney()

	u := rng.Float32()
	if u < pDiffuse {
		local, _ := types.CosineSampleHemisphere(rng.Float32(), rng.Float32())
		wi := frame.ToWorld(local)
		return wi, m.pdfDisney(wo, wi, n, tangent, bitangent), false
	}

	woLocalZ := frame.ToLocal(wo)[2]

	if u < pDiffuse+pSpec {
		ax, ay := m.anisoAlpha()
		u0, u1 := rng.Float32(), rng.Float32()
		// GTR2 (GGX) half-vector importance sample in local space.
		phi := math.Atan(float64(ay/ax)*math.Tan(2*math.Pi*float64(u0)+math.Pi/2)) + math.Pi*math.Floor(2*float64(u0)+0.5)
		cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)
		axC := float64(ax) * cosPhi
		aySi := float64(ay) * sinPhi
		alpha2 := 1.0 / (axC*axC + aySi*aySi)
		tanTheta2 := float64(u1) / (1 - float64(u1)) * alpha2
		cosTheta := 1.0 / math.Sqrt(1+tanTheta2)
		sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))

		hLocal := types.Vec3{
			float32(sinTheta * cosPhi), float32(sinTheta * sinPhi), float32(cosTheta),
		}
		hWorld := frame.ToWorld(hLocal)
		if woLocalZ < 0 {
			hWorld = hWorld.Neg()
		}
		wi := types.Reflect(wo, hWorld)
		return wi, m.pdfDisney(wo, wi, n, tangent, bitangent), false
	}

	// Clearcoat: importance-sample the GTR1 half-vector.
	alpha := clearcoatAlpha(m.ClearcoatGloss)
	alpha2 := alpha * alpha
	u0, u1 := rng.Float32(), rng.Float32()
	cosTheta := math.Sqrt((1 - math.Pow(float64(alpha2), float64(1-u1))) / float64(1-alpha2))
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := 2 * math.Pi * float64(u0)
	hLocal := types.Vec3{
		float32(sinTheta * math.Cos(phi)), float32(sinTheta * math.Sin(phi)), float32(cosTheta),
	}
	hWorld := frame.ToWorld(hLocal)
	if woLocalZ < 0 {
		hWorld = hWorld.Neg()
	}
	wi := types.Reflect(wo, hWorld)
	return wi, m.pdfDisney(wo, wi, n, tangent, bitangent), false
}

func (m *Material) evalDisney(wo, wi, n, tangent, bitangent types.Vec3) types.Vec3 {
	cosWo := wo.Dot(n)
	cosWi := wi.Dot(n)
	if cosWo <= 0 || cosWi <= 0 {
		return types.Vec3{}
	}

	frame := types.Frame{T: tangent, B: bitangent, N: n}
	woL := frame.ToLocal(wo)
	wiL := frame.ToLocal(wi)
	h := woL.Add(wiL).Normalize()

	lum := types.Luminance(m.BaseColor)
	var tint types.Vec3
	if lum > 0 {
		tint = m.BaseColor.Mul(1.0 / lum)
	} else {
		tint = types.Vec3{1, 1, 1}
	}
	specularTintCol := lerp3(types.Vec3{1, 1, 1}, tint, m.SpecularTint)
	specColor := lerp3(specularTintCol.Mul(0.08 * m.SpecularAmt), m.BaseColor, m.Metallic)

	cosHWi := h.Dot(wiL)
	fh := schlickWeight(cosHWi)
	fSpec := lerp3(specColor, types.Vec3{1, 1, 1}, fh)

	ax, ay := m.anisoAlpha()
	d := gtr2Aniso(h[0], h[1], h[2], ax, ay)
	gWo := smithGAniso(woL[0], woL[1], woL[2], ax, ay)
	gWi := smithGAniso(wiL[0], wiL[1], wiL[2], ax, ay)
	specular := fSpec.Mul(d * gWo * gWi / (4 * cosWo * cosWi))

	// Burley's "extended diffuse": retro-reflection grazing-angle term,
	// blended with a Hanrahan-Krueger subsurface approximation by
	// m.Subsurface.
	fl := schlickWeight(cosWi)
	fv := schlickWeight(cosWo)
	fd90 := 0.5 + 2*m.Roughness*cosHWi*cosHWi
	fd := (1 + (fd90-1)*fl) * (1 + (fd90-1)*fv)

	fss90 := cosHWi * cosHWi * m.Roughness
	fss := (1 + (fss90-1)*fl) * (1 + (fss90-1)*fv)
	ss := float32(1.25) * (fss*(1/(cosWi+cosWo)-0.5) + 0.5)

	diffuseBrdf := fd*(1-m.Subsurface) + ss*m.Subsurface
	diffuse := m.BaseColor.Mul((1 / math.Pi) * diffuseBrdf)

	sheenCol := lerp3(types.Vec3{1, 1, 1}, tint, m.SheenTint)
	sheen := sheenCol.Mul(fh * m.Sheen)

	diffuseAndSheen := diffuse.Add(sheen).Mul(1 - m.Metallic)

	clearcoatAlp := clearcoatAlpha(m.ClearcoatGloss)
	dc := gtr1(h[2], clearcoatAlp)
	fc := float32(0.04) + (1-0.04)*fh
	gc := smithGGX(cosWo, 0.25) * smithGGX(cosWi, 0.25)
	clearcoat := 0.25 * m.Clearcoat * dc * fc * gc

	return diffuseAndSheen.Add(specular).Add(types.Vec3{clearcoat, clearcoat, clearcoat})
}

func (m *Material) pdfDisney(wo, wi, n, tangent, bitangent types.Vec3) float32 {
	cosWi := wi.Dot(n)
	if cosWi <= 0 {
		return 0
	}
	pDiffuse, pSpec, pClearcoat := m.lobeWeightsDisney()

	diffusePdf := types.CosineHemispherePdf(cosWi)

	frame := types.Frame{T: tangent, B: bitangent, N: n}
	woL := frame.ToLocal(wo)
	wiL := frame.ToLocal(wi)
	h := woL.Add(wiL).Normalize()
	cosWoH := woL.Dot(h)

	ax, ay := m.anisoAlpha()
	d := gtr2Aniso(h[0], h[1], h[2], ax, ay)
	specPdf := float32(0)
	if h[2] > 0 && cosWoH != 0 {
		specPdf = d * h[2] / (4 * float32(math.Abs(float64(cosWoH))))
	}

	clearcoatPdf := float32(0)
	if pClearcoat > 0 && h[2] > 0 && cosWoH != 0 {
		dc := gtr1(h[2], clearcoatAlpha(m.ClearcoatGloss))
		clearcoatPdf = dc * h[2] / (4 * float32(math.Abs(float64(cosWoH))))
	}

	return pDiffuse*diffusePdf + pSpec*specPdf + pClearcoat*clearcoatPdf
}

func lerp3(a, b types.Vec3, t float32) types.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}
