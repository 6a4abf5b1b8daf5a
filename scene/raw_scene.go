package scene

import (
	"fmt"

	"github.com/LuniumLuk/Tira/types"
)

// RawScene is the in-memory contract an external loader (OBJ geometry +
// XML scene/camera/light/integrator attributes, image codecs for
// environment maps) is expected to produce. FromRaw never parses a file
// itself; it only validates the required-attribute list and assembles a
// Scene, grounded on asset/material/defaults.go's default-value table
// pattern and fail-fast attribute checks over an XML scene description.
type RawScene struct {
	Scale float32
	Accel RawAccel

	Camera RawCamera

	Materials []RawMaterial

	Triangles []RawTriangle
	Spheres   []RawSphere
	Lights    []RawLight

	EnvMap *RawEnvMap
	Sun    *RawSun

	Background types.Vec3

	// DirectionalAreaLight, when set, makes SampleLightRay emit BDPT light
	// subpaths straight along each sampled light's normal instead of
	// uniformly over its upper hemisphere (spec section 4.4/4.6,
	// "directional_area_light"), grounded on
	// original_source/Tira/scene/scene.h's directional_area_light /
	// directional_area_light_solid_angle.
	DirectionalAreaLight           bool
	DirectionalAreaLightSolidAngle float32

	Integrator RawIntegratorConfig
	Kernel     RawKernelConfig
}

// RawAccel names the accelerator build/traversal strategy. FromRaw passes
// it to NewBVH unchecked; a MaxLeafSize of 0 or less selects 4.
type RawAccel struct {
	SplitMethod SplitMethod
	Traverse    TraverseMode
	MaxLeafSize int
}

// RawCamera carries camera.type/width/height/fovy plus the optional
// thinlens focus/aperature attributes.
type RawCamera struct {
	Type           string // "pinhole" or "thinlens"
	Width, Height  int
	FOVY           float32
	Eye, LookAt    types.Vec3
	Up             types.Vec3
	FocusDistance  float32
	ApertureRadius float32
}

// RawMaterial is the union of every attribute any of the three concrete
// BSDFs needs; FromRaw dispatches on Type to build the right scene.Material.
type RawMaterial struct {
	Name string
	Type MaterialType

	Diffuse    types.Vec3
	DiffuseTex *Texture2D
	Specular   types.Vec3
	Shininess  float32
	IOR        float32

	Transmittance types.Vec3

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

	Emissive bool
	Emission types.Vec3
}

// RawTriangle is a single parsed triangle referencing a material by name.
type RawTriangle struct {
	P          [3]types.Vec3
	N          [3]types.Vec3
	HasNormals bool
	UV         [3]types.Vec2
	Material   string
}

// RawSphere carries sphere.mtlname/center/radius.
type RawSphere struct {
	Material string
	Center   types.Vec3
	Radius   float32
}

// RawLight overrides a named material's emission, matching light.mtlname
// and light.radiance: any triangle or sphere already referencing Material
// becomes a light.
type RawLight struct {
	Material string
	Radiance types.Vec3
}

// RawEnvMap carries envmap.url (retained for provenance/output naming) and
// the already-decoded texture the external image loader produced.
type RawEnvMap struct {
	URL     string
	Scale   float32
	Texture *Texture2D
}

// RawSun carries sunlight.direction/radiance plus the angular radius of the
// sun disk.
type RawSun struct {
	Direction   types.Vec3
	Radiance    types.Vec3
	AngularSize float32
}

// RawIntegratorConfig carries integrator.spp and the rest of the
// integrator's tunable knobs (spec section 6.2).
type RawIntegratorConfig struct {
	SPP             int
	MaxBounce       int
	UseMIS          bool
	RussianRoulette float32
}

// RawKernelConfig carries kernel.size (spec section 6.2's tracer.Kernel).
type RawKernelConfig struct {
	Size int
}

// FromRaw validates the required-attribute list from spec section 6.1 and
// assembles a fully materialized Scene, returning a descriptive error on
// the first missing or malformed field. It never partially builds a scene:
// on error the returned *Scene is nil.
func FromRaw(raw RawScene) (*Scene, error) {
	if raw.Scale <= 0 {
		return nil, fmt.Errorf("scene.scale: required positive attribute missing")
	}
	if raw.Camera.Type != "pinhole" && raw.Camera.Type != "thinlens" {
		return nil, fmt.Errorf("camera.type: unsupported camera type %q", raw.Camera.Type)
	}
	if raw.Camera.Width <= 0 {
		return nil, fmt.Errorf("camera.width: required positive attribute missing")
	}
	if raw.Camera.Height <= 0 {
		return nil, fmt.Errorf("camera.height: required positive attribute missing")
	}
	if raw.Camera.FOVY <= 0 {
		return nil, fmt.Errorf("camera.fovy: required positive attribute missing")
	}
	if raw.Camera.Type == "thinlens" {
		if raw.Camera.FocusDistance <= 0 {
			return nil, fmt.Errorf("camera.thinlens.focus: required positive attribute missing")
		}
		if raw.Camera.ApertureRadius <= 0 {
			return nil, fmt.Errorf("camera.thinlens.aperature: required positive attribute missing")
		}
	}
	for i, sp := range raw.Spheres {
		if sp.Material == "" {
			return nil, fmt.Errorf("sphere[%d].mtlname: required attribute missing", i)
		}
		if sp.Radius <= 0 {
			return nil, fmt.Errorf("sphere[%d].radius: required positive attribute missing", i)
		}
	}
	for i, l := range raw.Lights {
		if l.Material == "" {
			return nil, fmt.Errorf("light[%d].mtlname: required attribute missing", i)
		}
		if l.Radiance.IsZero() {
			return nil, fmt.Errorf("light[%d].radiance: required attribute missing", i)
		}
	}
	if raw.EnvMap != nil {
		if raw.EnvMap.URL == "" {
			return nil, fmt.Errorf("envmap.url: required attribute missing")
		}
		if raw.EnvMap.Texture == nil {
			return nil, fmt.Errorf("envmap.url %q: texture was not decoded by the loader", raw.EnvMap.URL)
		}
	}
	if raw.Sun != nil {
		if raw.Sun.Direction.IsZero() {
			return nil, fmt.Errorf("sunlight.direction: required attribute missing")
		}
		if raw.Sun.Radiance.IsZero() {
			return nil, fmt.Errorf("sunlight.radiance: required attribute missing")
		}
	}
	if raw.Integrator.SPP <= 0 {
		return nil, fmt.Errorf("integrator.spp: required positive attribute missing")
	}
	if raw.Kernel.Size <= 0 {
		return nil, fmt.Errorf("kernel.size: required positive attribute missing")
	}

	s := NewScene()

	materialIdx := make(map[string]int, len(raw.Materials))
	for _, rm := range raw.Materials {
		mat := materialFromRaw(rm)
		materialIdx[rm.Name] = s.AddMaterial(mat)
	}
	for _, l := range raw.Lights {
		idx, ok := materialIdx[l.Material]
		if !ok {
			return nil, fmt.Errorf("light.mtlname %q: no such material", l.Material)
		}
		s.Materials[idx].Emissive = true
		s.Materials[idx].Emission = l.Radiance
	}

	lookupMaterial := func(name string) (int, error) {
		if name == "" {
			return s.AddMaterial(DefaultMaterial), nil
		}
		idx, ok := materialIdx[name]
		if !ok {
			return 0, fmt.Errorf("unresolved material reference %q", name)
		}
		return idx, nil
	}

	var objects []Object
	for i, rt := range raw.Triangles {
		idx, err := lookupMaterial(rt.Material)
		if err != nil {
			return nil, fmt.Errorf("triangle[%d]: %w", i, err)
		}
		objects = append(objects, NewTriangle(rt.P, rt.N, rt.HasNormals, rt.UV, idx))
	}
	for i, rs := range raw.Spheres {
		idx, err := lookupMaterial(rs.Material)
		if err != nil {
			return nil, fmt.Errorf("sphere[%d]: %w", i, err)
		}
		objects = append(objects, NewSphere(rs.Center, rs.Radius, idx))
	}

	s.Accel = NewBVH(objects, raw.Accel.maxLeafOrDefault(), raw.Accel.SplitMethod, raw.Accel.Traverse)

	s.Camera = cameraFromRaw(raw.Camera)
	s.Background = raw.Background

	if raw.EnvMap != nil {
		env := NewEnvMap(raw.EnvMap.Texture)
		if raw.EnvMap.Scale > 0 {
			env.Scale = raw.EnvMap.Scale
		}
		s.Env = env
	}
	if raw.Sun != nil {
		s.SunEnabled = true
		s.SunDirection = raw.Sun.Direction.Normalize()
		s.SunRadiance = raw.Sun.Radiance
		s.SunAngularSize = raw.Sun.AngularSize
	}

	s.DirectionalAreaLight = raw.DirectionalAreaLight
	s.DirectionalAreaLightSolidAngle = raw.DirectionalAreaLightSolidAngle
	if s.DirectionalAreaLightSolidAngle <= 0 {
		s.DirectionalAreaLightSolidAngle = 0.1
	}

	if err := s.SetupLights(objects); err != nil {
		return nil, err
	}

	return s, nil
}

func (a RawAccel) maxLeafOrDefault() int {
	if a.MaxLeafSize > 0 {
		return a.MaxLeafSize
	}
	return 4
}

func materialFromRaw(rm RawMaterial) *Material {
	var m *Material
	switch rm.Type {
	case Glass:
		m = NewGlass(rm.Transmittance, rm.IOR)
	case Disney:
		m = NewDisney(rm.BaseColor, rm.Roughness, rm.Metallic, rm.SpecularAmt, rm.SpecularTint,
			rm.Anisotropic, rm.Clearcoat, rm.ClearcoatGloss, rm.Sheen, rm.SheenTint, rm.Subsurface)
	default:
		m = NewBlinnPhong(rm.Diffuse, rm.Specular, rm.Shininess, rm.IOR)
		m.DiffuseTex = rm.DiffuseTex
	}
	if rm.Emissive {
		m.Emissive = true
		m.Emission = rm.Emission
	}
	return m
}

func cameraFromRaw(rc RawCamera) *Camera {
	aspect := float32(rc.Width) / float32(rc.Height)
	cam := NewCamera(rc.Eye, rc.LookAt, rc.Up, rc.FOVY, aspect)
	if rc.Type == "thinlens" {
		cam.FocusDistance = rc.FocusDistance
		cam.ApertureRadius = rc.ApertureRadius
	}
	cam.Update()
	return cam
}

// AddMaterial appends mat to the scene's material table and returns its
// index, the ownership boundary every primitive's MaterialIndex refers
// into (spec section 6.1).
func (s *Scene) AddMaterial(mat *Material) int {
	s.Materials = append(s.Materials, mat)
	return len(s.Materials) - 1
}
