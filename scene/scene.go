package scene

import (
	"fmt"
	"math"

	"github.com/LuniumLuk/Tira/types"
)

// shadowEpsilon biases shadow/secondary ray origins off the surface to
// avoid self-intersection, mirroring rEPSILON in
// original_source/Tira/scene.cpp's sample_light/sample_sun.
const shadowEpsilon float32 = 1e-3

// shadowRaySlack inflates the distance test on a light-visibility ray by a
// percent of the point-to-light distance, preventing seam artifacts on
// area lights that are themselves part of the accelerator (spec section 7,
// "Shadow-ray self-intersection").
const shadowRaySlack float32 = 1.01

// Accelerator abstracts the spatial structure that answers ray queries
// against the scene's primitives (implemented by the BVH in bvh.go).
type Accelerator interface {
	Intersect(ray types.Ray, isect *Intersection) bool
	Bound() Bound3
}

// Scene owns every piece of state an integrator needs to shade a ray: the
// accelerator, the material table, the camera, the subset of emissive
// primitives usable as lights plus their area CDF, and the optional
// environment map / sun (spec section 3, "Scene").
type Scene struct {
	Camera *Camera

	Materials []*Material
	Accel     Accelerator

	// Lights is the subset of Accel's primitives with an emissive
	// material, and LightCDF is the cumulative-area CDF over Lights used
	// by SampleLight's inverse-CDF draw.
	Lights       []Object
	LightCDF     []float32
	LightsArea   float32

	Env *EnvMap

	SunEnabled     bool
	SunDirection   types.Vec3
	SunRadiance    types.Vec3
	SunAngularSize float32 // angular radius, radians

	// Background is returned by EvalBackground when neither Env nor the
	// sun covers a miss direction.
	Background types.Vec3

	// RobustLight enables shadowRaySlack on Visible's distance test
	// (integrator.Config.RobustLight, spec section 6.2), accepting a
	// shadow-ray hit within 1% of the expected distance as non-occluding
	// rather than requiring an exact miss.
	RobustLight bool

	// DirectionalAreaLight switches SampleLightRay's light-subpath
	// direction from uniform-hemisphere to straight along the sampled
	// light's normal; DirectionalAreaLightSolidAngle is the acceptance
	// cone used when matching a BDPT vertex back to such a light.
	DirectionalAreaLight           bool
	DirectionalAreaLightSolidAngle float32
}

// NewScene returns an empty scene ready to have its accelerator and lights
// installed by the caller (normally scene.FromRaw).
func NewScene() *Scene {
	return &Scene{}
}

// Intersect finds the closest hit of ray against the scene, initializing
// isect to a miss state.
func (s *Scene) Intersect(ray types.Ray) Intersection {
	isect := NewIntersection()
	if s.Accel == nil {
		return isect
	}
	s.Accel.Intersect(ray, &isect)
	if isect.Hit {
		matIdx := isect.Object.MaterialIndex()
		if matIdx >= 0 && matIdx < len(s.Materials) {
			isect.Material = s.Materials[matIdx]
		} else {
			isect.Material = DefaultMaterial
		}
	}
	return isect
}

// Visible reports whether the segment from p towards wi up to distance
// maxDist (exclusive) is unobstructed, short-circuiting at the first hit
// (spec section 7, "Shadow-ray short-circuit").
func (s *Scene) Visible(p, wi types.Vec3, maxDist float32) bool {
	slack := float32(1)
	if s.RobustLight {
		slack = shadowRaySlack
	}
	ray := types.NewRay(p.Add(wi.Mul(shadowEpsilon)), wi)
	ray.Shadow = true
	ray.TMax = (maxDist - shadowEpsilon) / slack
	isect := NewIntersection()
	isect.Distance = ray.TMax
	if s.Accel == nil {
		return true
	}
	return !s.Accel.Intersect(ray, &isect)
}

// EvalBackground returns the radiance seen along a miss direction: the
// environment map if present, else the sun disk if dir falls inside its
// angular size, else the flat Background color.
func (s *Scene) EvalBackground(dir types.Vec3) types.Vec3 {
	if s.Env != nil {
		return s.Env.Eval(dir)
	}
	if s.SunEnabled {
		cosAngle := dir.Normalize().Dot(s.SunDirection)
		cosThetaMax := float32(math.Cos(float64(s.SunAngularSize)))
		if cosAngle >= cosThetaMax {
			return s.SunRadiance
		}
	}
	return s.Background
}

// SunSolidAngle returns the solid angle subtended by the sun disk, matching
// uniform_sample_cone's cone geometry.
func (s *Scene) SunSolidAngle() float32 {
	cosThetaMax := float32(math.Cos(float64(s.SunAngularSize)))
	return 2 * math.Pi * (1 - cosThetaMax)
}

// SetupLights scans the accelerator's objects for emissive materials and
// builds the cumulative-area CDF used by SampleLight (spec section 4.4,
// "Light selection"), grounded on original_source/Tira/scene.cpp's
// setup_lights. objects is supplied by the caller (the BVH builder) since
// the accelerator only exposes queries, not iteration.
func (s *Scene) SetupLights(objects []Object) error {
	s.Lights = s.Lights[:0]
	s.LightCDF = s.LightCDF[:0]
	s.LightsArea = 0

	for _, o := range objects {
		matIdx := o.MaterialIndex()
		if matIdx < 0 || matIdx >= len(s.Materials) {
			continue
		}
		if !s.Materials[matIdx].Emissive {
			continue
		}
		s.LightsArea += o.Area()
		s.Lights = append(s.Lights, o)
		s.LightCDF = append(s.LightCDF, s.LightsArea)
	}

	if len(s.Lights) == 0 && !s.SunEnabled && s.Env == nil {
		return fmt.Errorf("scene: no emissive primitives, sun or environment map; nothing to light the scene")
	}
	return nil
}
