package scene

import (
	"math"
	"math/rand"

	"github.com/LuniumLuk/Tira/types"
)

// MaterialType tags the concrete BSDF a Material carries, following the
// teacher's BxdfType taxonomy (asset/material/bxdf.go) generalized to the
// three concrete lobes this renderer implements.
type MaterialType uint8

const (
	BlinnPhong MaterialType = iota
	Glass
	Disney
)

func (t MaterialType) String() string {
	switch t {
	case BlinnPhong:
		return "blinn-phong"
	case Glass:
		return "glass"
	case Disney:
		return "disney"
	default:
		return "unknown"
	}
}

// BlinnPhongShininessThreshold is the shininess above which the specular
// lobe is treated as a delta (mirror) lobe instead of a sampleable glossy
// one.
const BlinnPhongShininessThreshold float32 = 500

// Material is a tagged union over the three BSDFs this renderer supports.
// Every variant exposes Sample/Eval/Pdf plus the emissive/delta metadata
// common to all materials (spec section 3, "Material").
type Material struct {
	Type MaterialType

	Emissive bool
	Emission types.Vec3

	// IsDelta is true when every lobe of this material instance is a
	// Dirac delta (always true for Glass; for BlinnPhong it is true only
	// when the diffuse color is zero and specular shininess exceeds
	// BlinnPhongShininessThreshold, leaving only the mirror lobe and the
	// refraction lobe, which is itself a delta).
	IsDelta bool

	// BlinnPhong parameters.
	Diffuse    types.Vec3
	DiffuseTex *Texture2D
	Specular   types.Vec3
	Shininess  float32
	IOR        float32 // shared with Glass; refraction enabled when != 1

	// Glass parameters.
	Transmittance types.Vec3

	// Disney principled parameters.
	BaseColor      types.Vec3
	Roughness      float32
	Metallic       float32
	SpecularAmt    float32
	SpecularTint   float32
	Anisotropic    float32
	Clearcoat      float32
	ClearcoatGloss float32
	Sheen          float32
	SheenTint      float32
	Subsurface     float32
}

// DefaultMaterial is substituted for triangles whose material reference is
// missing (spec section 7, "Missing material on a triangle").
var DefaultMaterial = &Material{
	Type:      BlinnPhong,
	Diffuse:   types.Vec3{1, 0, 1},
	Specular:  types.Vec3{},
	Shininess: 1,
	IOR:       1,
}

// NewBlinnPhong builds a BlinnPhong material and resolves IsDelta for the
// degenerate all-mirror case.
func NewBlinnPhong(diffuse, specular types.Vec3, shininess, ior float32) *Material {
	m := &Material{
		Type:      BlinnPhong,
		Diffuse:   diffuse,
		Specular:  specular,
		Shininess: shininess,
		IOR:       ior,
	}
	m.IsDelta = diffuse.IsZero() && shininess > BlinnPhongShininessThreshold
	return m
}

// NewGlass builds a pure delta dielectric material.
func NewGlass(transmittance types.Vec3, ior float32) *Material {
	return &Material{Type: Glass, Transmittance: transmittance, IOR: ior, IsDelta: true}
}

// NewEmissive builds a black (zero-diffuse) BlinnPhong material that emits
// emission, e.g. an area light surface.
func NewEmissive(emission types.Vec3) *Material {
	return &Material{Type: BlinnPhong, Emissive: true, Emission: emission, Diffuse: types.Vec3{}}
}

// blinnPhongDiffuse returns the (possibly textured) diffuse albedo at uv.
func (m *Material) blinnPhongDiffuse(uv types.Vec2) types.Vec3 {
	if m.DiffuseTex != nil {
		return m.DiffuseTex.Sample(uv)
	}
	return m.Diffuse
}

// lobeWeights returns the renormalized {diffuse, specular, refraction}
// selection probabilities for a BlinnPhong material, per spec section 4.2.
func (m *Material) lobeWeights(cosTheta float32) (pd, ps, pr float32) {
	pd = types.Luminance(m.Diffuse)
	ps = types.Luminance(m.Specular)
	pr = 0
	if m.IOR != 1 {
		fr := types.SchlickFresnel(cosTheta, schlickR0(m.IOR))
		pr = types.Luminance(types.Vec3{1, 1, 1}) * (1 - fr)
	}
	total := pd + ps + pr
	if total <= 0 {
		return 1, 0, 0
	}
	return pd / total, ps / total, pr / total
}

func schlickR0(ior float32) float32 {
	r0 := (1 - ior) / (1 + ior)
	return r0 * r0
}

// Sample draws an outgoing-scattering direction wi for wo measured against
// the local shading frame (n, tangent, bitangent). Returns the direction,
// its pdf, and whether the sampled lobe is a delta lobe.
func (m *Material) Sample(wo, n, tangent, bitangent types.Vec3, rng *rand.Rand) (types.Vec3, float32, bool) {
	switch m.Type {
	case Glass:
		return m.sampleGlass(wo, n, rng)
	case Disney:
		return m.sampleDisney(wo, n, tangent, bitangent, rng)
	default:
		return m.sampleBlinnPhong(wo, n, tangent, bitangent, rng)
	}
}

func (m *Material) sampleBlinnPhong(wo, n, tangent, bitangent types.Vec3, rng *rand.Rand) (types.Vec3, float32, bool) {
	cosWo := wo.Dot(n)
	pd, ps, _ := m.lobeWeights(cosWo)
	frame := types.Frame{T: tangent, B: bitangent, N: n}

	pick := rng.Float32()
	switch {
	case pick < pd:
		local, _ := types.CosineSampleHemisphere(rng.Float32(), rng.Float32())
		wi := frame.ToWorld(local)
		return wi, m.pdfBlinnPhong(wo, wi, n, tangent, bitangent), false

	case pick < pd+ps:
		if m.Shininess > BlinnPhongShininessThreshold {
			wi := types.Reflect(wo, n)
			return wi, 1, true
		}
		// Power-cosine lobe around the mirror direction.
		mirror := types.Reflect(wo, n)
		mFrame := types.FrameFromNormal(mirror)
		u0, u1 := rng.Float32(), rng.Float32()
		cosAlpha := float32(math.Pow(float64(u0), 1.0/float64(m.Shininess+1)))
		sinAlpha := float32(math.Sqrt(math.Max(0, float64(1-cosAlpha*cosAlpha))))
		phi := 2 * math.Pi * float64(u1)
		local := types.Vec3{sinAlpha * float32(math.Cos(phi)), sinAlpha * float32(math.Sin(phi)), cosAlpha}
		wi := mFrame.ToWorld(local)
		return wi, m.pdfBlinnPhong(wo, wi, n, tangent, bitangent), false

	default:
		eta := float32(1) / m.IOR
		nn := n
		if cosWo < 0 {
			eta = m.IOR
			nn = n.Neg()
		}
		wt, ok := types.Refract(wo, nn, eta)
		if !ok {
			// Total internal reflection: fall back to mirror reflection.
			wi := types.Reflect(wo, n)
			return wi, 1, true
		}
		return wt.Neg(), 1, true
	}
}

// Eval returns the BSDF value (not premultiplied by |N.wi|). Zero when wo
// and wi straddle the surface inconsistently with the reflection lobes (the
// delta refraction lobe is handled by Sample/Pdf alone, not Eval, since its
// contribution is never queried by light sampling).
func (m *Material) Eval(wo, wi, n types.Vec3, uv types.Vec2, tangent, bitangent types.Vec3) types.Vec3 {
	switch m.Type {
	case Glass:
		return m.Transmittance
	case Disney:
		return m.evalDisney(wo, wi, n, tangent, bitangent)
	default:
		return m.evalBlinnPhong(wo, wi, n, uv)
	}
}

func (m *Material) evalBlinnPhong(wo, wi, n types.Vec3, uv types.Vec2) types.Vec3 {
	cosWo := wo.Dot(n)
	cosWi := wi.Dot(n)
	if cosWo*cosWi <= 0 {
		return types.Vec3{}
	}

	diffuse := m.blinnPhongDiffuse(uv).Mul(1.0 / math.Pi)

	var specular types.Vec3
	if m.Shininess <= BlinnPhongShininessThreshold {
		h := wo.Add(wi).Normalize()
		cosAlpha := types.Clamp(h.Dot(n), 0, 1)
		norm := (m.Shininess + 2) / (2 * math.Pi)
		specular = m.Specular.Mul(norm * float32(math.Pow(float64(cosAlpha), float64(m.Shininess))))
	}

	return diffuse.Add(specular)
}

// Pdf returns the mixture pdf for a non-delta material; delta materials
// always report 1 per spec section 4.2.
func (m *Material) Pdf(wo, wi, n, tangent, bitangent types.Vec3) float32 {
	if m.IsDelta {
		return 1
	}
	switch m.Type {
	case Glass:
		return 1
	case Disney:
		return m.pdfDisney(wo, wi, n, tangent, bitangent)
	default:
		return m.pdfBlinnPhong(wo, wi, n, tangent, bitangent)
	}
}

func (m *Material) pdfBlinnPhong(wo, wi, n, tangent, bitangent types.Vec3) float32 {
	cosWi := wi.Dot(n)
	if cosWi <= 0 {
		return 0
	}
	pd, ps, _ := m.lobeWeights(wo.Dot(n))

	diffusePdf := types.CosineHemispherePdf(cosWi)

	var specPdf float32
	if ps > 0 && m.Shininess <= BlinnPhongShininessThreshold {
		mirror := types.Reflect(wo, n)
		cosAlpha := types.Clamp(mirror.Dot(wi), 0, 1)
		specPdf = (m.Shininess + 1) / (2 * math.Pi) * float32(math.Pow(float64(cosAlpha), float64(m.Shininess)))
	}

	return pd*diffusePdf + ps*specPdf
}

// sampleGlass implements the pure delta dielectric lobe (spec section 4.2,
// "Glass"): Schlick Fresnel decides reflect vs refract, with forced
// reflection on total internal reflection.
func (m *Material) sampleGlass(wo, n types.Vec3, rng *rand.Rand) (types.Vec3, float32, bool) {
	cosWo := wo.Dot(n)
	nn := n
	eta := float32(1) / m.IOR
	if cosWo < 0 {
		nn = n.Neg()
		eta = m.IOR
		cosWo = -cosWo
	}

	fr := types.SchlickFresnel(cosWo, schlickR0(m.IOR))
	if rng.Float32() < fr {
		return types.Reflect(wo, nn), 1, true
	}

	wt, ok := types.Refract(wo, nn, eta)
	if !ok {
		return types.Reflect(wo, nn), 1, true
	}
	return wt.Neg(), 1, true
}

// SampleUniform draws a cosine-weighted hemisphere sample as the baseline
// fallback available on every material (spec section 4.2, "Uniform
// sampler").
func (m *Material) SampleUniform(n, tangent, bitangent types.Vec3, rng *rand.Rand) (types.Vec3, float32) {
	frame := types.Frame{T: tangent, B: bitangent, N: n}
	local, pdf := types.CosineSampleHemisphere(rng.Float32(), rng.Float32())
	return frame.ToWorld(local), pdf
}
