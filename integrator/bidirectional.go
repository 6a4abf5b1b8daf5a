package integrator

import (
	"math/rand"

	"github.com/LuniumLuk/Tira/scene"
	"github.com/LuniumLuk/Tira/types"
)

// bdptLightSamples is the number of independent light subpaths traced per
// pixel sample, matching NUM_LIGHT_SAMPLES.
const bdptLightSamples = 8

// bdptVertex is one vertex of a camera or light subpath: the surface point,
// its shading frame, the material hit there, the throughput accumulated up
// to (but not including) this vertex, and the product of the sampling pdfs
// of every bounce before it (1 for the first vertex), grounded on
// original_source/Tira/integrator/bidirectional.h's VertexInfo.
type bdptVertex struct {
	Position, Normal, Tangent, Bitangent types.Vec3
	UV                                   types.Vec2
	Wi, Wo                               types.Vec3
	Pdf                                  float32
	Material                             *scene.Material
	Attenuation                          types.Vec3
}

type pathType int

const (
	pathCamera pathType = iota
	pathLight
)

// Bidirectional traces independent camera and light subpaths and connects
// every (t,s) pair of prefixes whose combined length fits the bounce
// budget, weighting each connection's contribution by the square of its
// sampling pdf (a one-sample MIS estimator), grounded on
// original_source/Tira/integrator/bidirectional.cpp.
type Bidirectional struct {
	Config
}

// NewBidirectional returns a Bidirectional integrator configured by cfg.
func NewBidirectional(cfg Config) *Bidirectional {
	return &Bidirectional{Config: cfg}
}

// PixelColor implements Integrator.
func (bd *Bidirectional) PixelColor(x, y, width, height, sampleID int, scn *scene.Scene, rng *rand.Rand) types.Vec3 {
	cameraRay := scn.Camera.GenerateRay(x, y, width, height, rng)

	misWeights := make([]float32, bd.MaxDepth)
	Ls := make([]types.Vec3, bd.MaxDepth)

	for i := 0; i < bdptLightSamples; i++ {
		lightRay, Le, pdfPos, pdfDir, ok := scn.SampleLightRay(rng)
		if !ok {
			continue
		}
		pdf := pdfPos * pdfDir
		if pdf <= epsilon {
			continue
		}
		Le = Le.Mul(1 / pdf)
		bd.renderPaths(cameraRay, lightRay, Le, scn, rng, misWeights, Ls)
	}

	L := types.Vec3{}
	for d := 0; d < bd.MaxDepth; d++ {
		if misWeights[d] > epsilon {
			L = L.Add(Ls[d].Mul(1 / misWeights[d]))
		}
	}
	return L
}

// renderPaths generates one camera subpath and one light subpath and
// accumulates every valid (t,s) connection's contribution into Ls/misWeights
// indexed by total path depth, grounded on bidirectional.cpp's render_paths.
func (bd *Bidirectional) renderPaths(cameraRay, lightRay types.Ray, Le types.Vec3, scn *scene.Scene, rng *rand.Rand, misWeights []float32, Ls []types.Vec3) {
	cameraPath := generatePath(cameraRay, scn, pathCamera, bd.MaxDepth, rng)
	lightPath := generatePath(lightRay, scn, pathLight, bd.MaxDepth, rng)

	for t := 1; t <= len(cameraPath); t++ {
		for s := 0; s <= len(lightPath); s++ {
			if t+s > bd.MaxDepth {
				continue
			}
			L, pdf := evalPath(scn, cameraPath, lightPath, Le, t, s, rng)
			w := pdf * pdf
			d := t + s - 1
			Ls[d] = Ls[d].Add(L.Mul(w))
			misWeights[d] += w
		}
	}
}

// evalPath evaluates the radiance carried by joining the camera subpath's
// first t vertices to the light subpath's first s vertices, along with the
// pdf of having generated exactly this connection, grounded on
// bidirectional.cpp's eval_path. s == 0 connects the camera path's last
// vertex straight to a fresh light sample instead of the light subpath.
func evalPath(scn *scene.Scene, cameraPath, lightPath []bdptVertex, Le types.Vec3, t, s int, rng *rand.Rand) (types.Vec3, float32) {
	cv := cameraPath[t-1]

	if cv.Material.Emissive {
		if cv.Wo.Dot(cv.Normal) > 0 {
			return cv.Material.Emission.MulVec3(cv.Attenuation), cv.Pdf
		}
		return types.Vec3{}, 0
	}

	if s == 0 {
		pdf := cv.Pdf

		if cv.Material.IsDelta {
			wi, _, _ := cv.Material.Sample(cv.Wo, cv.Normal, cv.Tangent, cv.Bitangent, rng)
			ray := spawnBounce(cv.Position, cv.Normal, wi, true)
			isect := scn.Intersect(ray)
			if isect.Hit && isect.Material.Emissive && wi.Dot(isect.Normal) < 0 {
				f := cv.Material.Eval(cv.Wo, wi, cv.Normal, cv.UV, cv.Tangent, cv.Bitangent)
				return isect.Material.Emission.MulVec3(cv.Attenuation).MulVec3(f), pdf
			}
			return types.Vec3{}, pdf
		}

		ls, ok := scn.SampleLight(cv.Position, cv.Normal, rng)
		if !ok || ls.Pdf <= epsilon {
			return types.Vec3{}, pdf
		}
		f := cv.Material.Eval(cv.Wo, ls.Wi, cv.Normal, cv.UV, cv.Tangent, cv.Bitangent)
		contrib := ls.Radiance.MulVec3(cv.Attenuation).MulVec3(f).Mul(absf(ls.Wi.Dot(cv.Normal)) / ls.Pdf)
		return contrib, pdf
	}

	if cv.Material.IsDelta {
		return types.Vec3{}, 0
	}
	lv := lightPath[s-1]

	d := lv.Position.Sub(cv.Position)
	dist := d.Len()
	dir := d.Mul(1 / dist)

	f := lv.Attenuation.MulVec3(lv.Material.Eval(dir.Neg(), lv.Wi, lv.Normal, lv.UV, lv.Tangent, lv.Bitangent)).
		MulVec3(cv.Attenuation).MulVec3(cv.Material.Eval(cv.Wo, dir, cv.Normal, cv.UV, cv.Tangent, cv.Bitangent))

	geom := geometryTerm(cv.Position, cv.Normal, lv.Position, lv.Normal)
	visible := scn.Visible(cv.Position, dir, dist)
	pdf := cv.Pdf * lv.Pdf

	var lIndir types.Vec3
	if visible {
		lIndir = Le.MulVec3(f).Mul(geom)
	}

	var lDir types.Vec3
	if ls, ok := scn.SampleLight(cv.Position, cv.Normal, rng); ok && ls.Pdf > epsilon {
		fDir := cv.Material.Eval(cv.Wo, ls.Wi, cv.Normal, cv.UV, cv.Tangent, cv.Bitangent)
		lDir = ls.Radiance.MulVec3(cv.Attenuation).MulVec3(fDir).Mul(1 / ls.Pdf)
		if !cv.Material.IsDelta {
			lDir = lDir.Mul(absf(ls.Wi.Dot(cv.Normal)))
		}
	}

	return lDir.Add(lIndir), pdf
}

// geometryTerm is the mutual visibility-independent geometric coupling term
// |cos(theta0)*cos(theta1)|/dist^2 between two surface points.
func geometryTerm(p0, n0, p1, n1 types.Vec3) float32 {
	w := p1.Sub(p0)
	dist := w.Len()
	if dist <= 0 {
		return 0
	}
	w = w.Mul(1 / dist)
	return absf(w.Dot(n0)*w.Dot(n1)) / (dist * dist)
}

// generatePath walks a path of at most maxDepth bounces starting at
// initRay, recording one bdptVertex per non-delta-terminating surface hit
// (and, for camera paths, the single vertex where the path terminates on an
// emissive surface), grounded on bidirectional.cpp's generate_path.
func generatePath(initRay types.Ray, scn *scene.Scene, pt pathType, maxDepth int, rng *rand.Rand) []bdptVertex {
	path := make([]bdptVertex, 0, maxDepth)
	ray := initRay
	attenuation := types.Vec3{1, 1, 1}
	accumPdf := float32(1)

	for depth := 0; depth < maxDepth; depth++ {
		isect := scn.Intersect(ray)
		if !isect.Hit {
			break
		}

		v := bdptVertex{
			Position:    isect.Position,
			Normal:      isect.Normal,
			Tangent:     isect.Tangent,
			Bitangent:   isect.Bitangent,
			UV:          isect.UV,
			Material:    isect.Material,
			Attenuation: attenuation,
		}
		switch pt {
		case pathCamera:
			v.Wo = ray.Dir.Neg()
		case pathLight:
			v.Wi = ray.Dir.Neg()
		}

		if v.Material.Emissive {
			if pt == pathCamera && (depth == 0 || ray.IsDelta) {
				v.Pdf = 1
				path = append(path, v)
			}
			break
		}

		var sampleDir types.Vec3
		var pdf float32
		var isDelta bool
		switch pt {
		case pathCamera:
			sampleDir, pdf, isDelta = v.Material.Sample(v.Wo, v.Normal, v.Tangent, v.Bitangent, rng)
			v.Wi = sampleDir
		case pathLight:
			sampleDir, pdf, isDelta = v.Material.Sample(v.Wi, v.Normal, v.Tangent, v.Bitangent, rng)
			v.Wo = sampleDir
		}

		f := v.Material.Eval(v.Wo, v.Wi, v.Normal, v.UV, v.Tangent, v.Bitangent)
		if !isDelta {
			f = f.Mul(absf(sampleDir.Dot(v.Normal)))
		}
		if pdf > epsilon {
			attenuation = attenuation.MulVec3(f.Mul(1 / pdf))
		}

		v.Pdf = accumPdf
		path = append(path, v)
		accumPdf *= pdf

		ray = spawnBounce(v.Position, v.Normal, sampleDir, isDelta)
	}

	return path
}
