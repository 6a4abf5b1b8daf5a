package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/LuniumLuk/Tira/scene"
	"github.com/LuniumLuk/Tira/types"
)

// jsonScene is the on-disk document a render invocation reads: a minimal
// Go-native stand-in for the OBJ/XML loader spec section 6.1 places
// outside the core's scope. It mirrors scene.RawScene field for field so
// decoding it is a one-to-one json.Unmarshal, not a parser.
type jsonScene struct {
	Scale float32 `json:"scale"`
	Accel struct {
		SplitMethod string `json:"split_method"`
		Traverse    string `json:"traverse"`
		MaxLeaf     int    `json:"max_leaf_size"`
	} `json:"accel"`

	Camera struct {
		Type           string     `json:"type"`
		Width          int        `json:"width"`
		Height         int        `json:"height"`
		FOVY           float32    `json:"fovy"`
		Eye            types.Vec3 `json:"eye"`
		LookAt         types.Vec3 `json:"look_at"`
		Up             types.Vec3 `json:"up"`
		FocusDistance  float32    `json:"focus"`
		ApertureRadius float32    `json:"aperature"`
	} `json:"camera"`

	Materials []struct {
		Name           string     `json:"name"`
		Type           string     `json:"type"`
		Diffuse        types.Vec3 `json:"diffuse"`
		Specular       types.Vec3 `json:"specular"`
		Shininess      float32    `json:"shininess"`
		IOR            float32    `json:"ior"`
		Transmittance  types.Vec3 `json:"transmittance"`
		BaseColor      types.Vec3 `json:"base_color"`
		Roughness      float32    `json:"roughness"`
		Metallic       float32    `json:"metallic"`
		SpecularAmt    float32    `json:"specular_amt"`
		SpecularTint   float32    `json:"specular_tint"`
		Anisotropic    float32    `json:"anisotropic"`
		Clearcoat      float32    `json:"clearcoat"`
		ClearcoatGloss float32    `json:"clearcoat_gloss"`
		Sheen          float32    `json:"sheen"`
		SheenTint      float32    `json:"sheen_tint"`
		Subsurface     float32    `json:"subsurface"`
	} `json:"materials"`

	Triangles []struct {
		P        [3]types.Vec3 `json:"p"`
		N        [3]types.Vec3 `json:"n"`
		HasNorm  bool           `json:"has_normals"`
		UV       [3]types.Vec2  `json:"uv"`
		Material string         `json:"mtlname"`
	} `json:"triangles"`

	Spheres []struct {
		Material string     `json:"mtlname"`
		Center   types.Vec3 `json:"center"`
		Radius   float32    `json:"radius"`
	} `json:"spheres"`

	Lights []struct {
		Material string     `json:"mtlname"`
		Radiance types.Vec3 `json:"radiance"`
	} `json:"lights"`

	EnvMap *struct {
		URL   string  `json:"url"`
		Scale float32 `json:"scale"`
	} `json:"envmap"`

	Sun *struct {
		Direction   types.Vec3 `json:"direction"`
		Radiance    types.Vec3 `json:"radiance"`
		AngularSize float32    `json:"angular_size"`
	} `json:"sunlight"`

	Background types.Vec3 `json:"background"`

	DirectionalAreaLight           bool    `json:"directional_area_light"`
	DirectionalAreaLightSolidAngle float32 `json:"directional_area_light_solid_angle"`

	Integrator struct {
		SPP             int     `json:"spp"`
		MaxBounce       int     `json:"max_bounce"`
		UseMIS          bool    `json:"use_mis"`
		RussianRoulette float32 `json:"russian_roulette"`
	} `json:"integrator"`

	Kernel struct {
		Size int `json:"size"`
	} `json:"kernel"`
}

// loadScene reads path as a jsonScene document and assembles a *scene.Scene
// via scene.FromRaw, the validation boundary described in spec section 6.1.
func loadScene(path string) (*scene.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scene file: %w", err)
	}
	defer f.Close()

	var doc jsonScene
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding scene file: %w", err)
	}

	raw := scene.RawScene{
		Scale: doc.Scale,
		Accel: scene.RawAccel{
			SplitMethod: parseSplitMethod(doc.Accel.SplitMethod),
			Traverse:    parseTraverseMode(doc.Accel.Traverse),
			MaxLeafSize: doc.Accel.MaxLeaf,
		},
		Camera: scene.RawCamera{
			Type: doc.Camera.Type, Width: doc.Camera.Width, Height: doc.Camera.Height,
			FOVY: doc.Camera.FOVY, Eye: doc.Camera.Eye, LookAt: doc.Camera.LookAt, Up: doc.Camera.Up,
			FocusDistance: doc.Camera.FocusDistance, ApertureRadius: doc.Camera.ApertureRadius,
		},
		Background:                     doc.Background,
		DirectionalAreaLight:           doc.DirectionalAreaLight,
		DirectionalAreaLightSolidAngle: doc.DirectionalAreaLightSolidAngle,
		Integrator: scene.RawIntegratorConfig{
			SPP: doc.Integrator.SPP, MaxBounce: doc.Integrator.MaxBounce,
			UseMIS: doc.Integrator.UseMIS, RussianRoulette: doc.Integrator.RussianRoulette,
		},
		Kernel: scene.RawKernelConfig{Size: doc.Kernel.Size},
	}

	for _, m := range doc.Materials {
		raw.Materials = append(raw.Materials, scene.RawMaterial{
			Name: m.Name, Type: parseMaterialType(m.Type),
			Diffuse: m.Diffuse, Specular: m.Specular, Shininess: m.Shininess, IOR: m.IOR,
			Transmittance: m.Transmittance,
			BaseColor:     m.BaseColor, Roughness: m.Roughness, Metallic: m.Metallic,
			SpecularAmt: m.SpecularAmt, SpecularTint: m.SpecularTint, Anisotropic: m.Anisotropic,
			Clearcoat: m.Clearcoat, ClearcoatGloss: m.ClearcoatGloss,
			Sheen: m.Sheen, SheenTint: m.SheenTint, Subsurface: m.Subsurface,
		})
	}
	for _, t := range doc.Triangles {
		raw.Triangles = append(raw.Triangles, scene.RawTriangle{
			P: t.P, N: t.N, HasNormals: t.HasNorm, UV: t.UV, Material: t.Material,
		})
	}
	for _, s := range doc.Spheres {
		raw.Spheres = append(raw.Spheres, scene.RawSphere{Material: s.Material, Center: s.Center, Radius: s.Radius})
	}
	for _, l := range doc.Lights {
		raw.Lights = append(raw.Lights, scene.RawLight{Material: l.Material, Radiance: l.Radiance})
	}
	if doc.EnvMap != nil {
		raw.EnvMap = &scene.RawEnvMap{URL: doc.EnvMap.URL, Scale: doc.EnvMap.Scale}
	}
	if doc.Sun != nil {
		raw.Sun = &scene.RawSun{Direction: doc.Sun.Direction, Radiance: doc.Sun.Radiance, AngularSize: doc.Sun.AngularSize}
	}

	return scene.FromRaw(raw)
}

func parseSplitMethod(s string) scene.SplitMethod {
	if s == "sah" {
		return scene.SplitSAH
	}
	return scene.SplitMidpoint
}

func parseTraverseMode(s string) scene.TraverseMode {
	switch s {
	case "stack":
		return scene.TraverseStack
	case "threaded":
		return scene.TraverseThreaded
	default:
		return scene.TraverseRecursive
	}
}

func parseMaterialType(s string) scene.MaterialType {
	switch s {
	case "glass":
		return scene.Glass
	case "disney":
		return scene.Disney
	default:
		return scene.BlinnPhong
	}
}
