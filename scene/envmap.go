package scene

import (
	"math"

	"github.com/LuniumLuk/Tira/types"
)

// importanceGridSize is the resolution of the precomputed luminance CDF
// grid used to importance-sample the environment map; original_source's
// Tira/scene.cpp sample_envmap used a plain cosine-hemisphere sample with
// no importance weighting at all.
const importanceGridSize = 16

// EnvMap is an equirectangular HDR background, sampled directly for Eval
// and importance-sampled over a coarse luminance grid for light sampling.
type EnvMap struct {
	tex *Texture2D

	// Scale multiplies every radiance value the map returns, matching
	// envmap.scale (spec section 6.1).
	Scale float32

	// marginal[i] holds the cumulative row weight up to row i (normalized to
	// [0,1]); conditional[i] holds the per-row cumulative column weight.
	marginal    [importanceGridSize + 1]float32
	conditional [importanceGridSize][importanceGridSize + 1]float32
	rowWeight   [importanceGridSize]float32
}

// NewEnvMap wraps a decoded equirectangular texture and builds its
// importance grid. Scale defaults to 1.
func NewEnvMap(tex *Texture2D) *EnvMap {
	e := &EnvMap{tex: tex, Scale: 1}
	e.buildImportanceGrid()
	return e
}

func (e *EnvMap) buildImportanceGrid() {
	var totalWeight float32
	for row := 0; row < importanceGridSize; row++ {
		v := (float32(row) + 0.5) / importanceGridSize
		// sin(theta) solid-angle compensation: rows near the poles cover
		// less solid angle per texel.
		sinTheta := float32(math.Sin(math.Pi * float64(v)))

		var rowAccum float32
		for col := 0; col < importanceGridSize; col++ {
			u := (float32(col) + 0.5) / importanceGridSize
			lum := types.Luminance(e.tex.Sample(types.Vec2{u, v})) * sinTheta
			rowAccum += lum
			e.conditional[row][col+1] = rowAccum
		}
		if rowAccum > 0 {
			for col := range e.conditional[row] {
				e.conditional[row][col] /= rowAccum
			}
		}
		e.rowWeight[row] = rowAccum
		totalWeight += rowAccum
		e.marginal[row+1] = totalWeight
	}
	if totalWeight > 0 {
		for i := range e.marginal {
			e.marginal[i] /= totalWeight
		}
	}
}

// Eval returns the radiance of the environment along world direction dir.
func (e *EnvMap) Eval(dir types.Vec3) types.Vec3 {
	d := dir.Normalize()
	theta := float32(math.Acos(float64(types.Clamp(d[1], -1, 1))))
	phi := float32(math.Atan2(float64(d[2]), float64(d[0])))
	uv := types.Vec2{phi/(2*math.Pi) + 0.5, theta / math.Pi}
	return e.tex.Sample(uv).Mul(e.Scale)
}

// Sample importance-samples a direction from the precomputed luminance
// grid, returning the direction, its radiance and its solid-angle pdf.
func (e *EnvMap) Sample(u0, u1 float32) (dir types.Vec3, radiance types.Vec3, pdf float32) {
	row := sampleDiscreteCDF(e.marginal[:], u0)
	col := sampleDiscreteCDF(e.conditional[row][:], u1)

	v := (float32(row) + 0.5) / importanceGridSize
	u := (float32(col) + 0.5) / importanceGridSize

	theta := v * math.Pi
	phi := (u - 0.5) * 2 * math.Pi
	sinTheta := float32(math.Sin(float64(theta)))
	dir = types.Vec3{
		sinTheta * float32(math.Cos(float64(phi))),
		float32(math.Cos(float64(theta))),
		sinTheta * float32(math.Sin(float64(phi))),
	}

	radiance = e.tex.Sample(types.Vec2{u, v}).Mul(e.Scale)

	rowPdf := e.marginal[row+1] - e.marginal[row]
	colPdf := e.conditional[row][col+1] - e.conditional[row][col]
	if sinTheta <= 0 || rowPdf <= 0 || colPdf <= 0 {
		pdf = 0
		return
	}
	// Jacobian from (u,v) unit square to solid angle on the sphere.
	pdf = (rowPdf * importanceGridSize) * (colPdf * importanceGridSize) / (2 * math.Pi * math.Pi * sinTheta)
	return
}

// Pdf returns the solid-angle pdf of direction dir under Sample's
// distribution, needed for MIS against BSDF sampling.
func (e *EnvMap) Pdf(dir types.Vec3) float32 {
	d := dir.Normalize()
	theta := float32(math.Acos(float64(types.Clamp(d[1], -1, 1))))
	phi := float32(math.Atan2(float64(d[2]), float64(d[0])))
	v := theta / math.Pi
	u := phi/(2*math.Pi) + 0.5

	row := int(v * importanceGridSize)
	col := int(u * importanceGridSize)
	if row < 0 {
		row = 0
	}
	if row >= importanceGridSize {
		row = importanceGridSize - 1
	}
	if col < 0 {
		col = 0
	}
	if col >= importanceGridSize {
		col = importanceGridSize - 1
	}

	sinTheta := float32(math.Sin(float64(theta)))
	if sinTheta <= 0 {
		return 0
	}
	rowPdf := e.marginal[row+1] - e.marginal[row]
	colPdf := e.conditional[row][col+1] - e.conditional[row][col]
	return (rowPdf * importanceGridSize) * (colPdf * importanceGridSize) / (2 * math.Pi * math.Pi * sinTheta)
}

// sampleDiscreteCDF returns the index i such that cdf[i] <= u < cdf[i+1],
// via linear scan over the (small, fixed-size) importance grid.
func sampleDiscreteCDF(cdf []float32, u float32) int {
	n := len(cdf) - 1
	for i := 0; i < n; i++ {
		if u < cdf[i+1] {
			return i
		}
	}
	return n - 1
}
