package scene

import (
	"testing"

	"github.com/LuniumLuk/Tira/types"
)

func minimalRaw() RawScene {
	return RawScene{
		Scale: 1,
		Camera: RawCamera{
			Type: "pinhole", Width: 64, Height: 64, FOVY: 45,
			Eye: types.Vec3{0, 0, 5}, LookAt: types.Vec3{0, 0, 0}, Up: types.Vec3{0, 1, 0},
		},
		Materials: []RawMaterial{
			{Name: "white", Type: BlinnPhong, Diffuse: types.Vec3{1, 1, 1}},
			{Name: "emitter", Type: BlinnPhong, Diffuse: types.Vec3{1, 1, 1}},
		},
		Triangles: []RawTriangle{
			{
				P: [3]types.Vec3{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}},
				N: [3]types.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
				HasNormals: true,
				Material:   "white",
			},
		},
		Lights: []RawLight{
			{Material: "emitter", Radiance: types.Vec3{10, 10, 10}},
		},
		Spheres: []RawSphere{
			{Material: "emitter", Center: types.Vec3{0, 2, 0}, Radius: 0.5},
		},
		Integrator: RawIntegratorConfig{SPP: 16, MaxBounce: 4},
		Kernel:     RawKernelConfig{Size: 32},
	}
}

func TestFromRawBuildsScene(t *testing.T) {
	s, err := FromRaw(minimalRaw())
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	if s.Camera == nil {
		t.Fatal("expected camera to be set")
	}
	if len(s.Lights) == 0 {
		t.Fatal("expected at least one emissive light, the sphere referencing \"emitter\"")
	}
	if s.Accel == nil {
		t.Fatal("expected accelerator to be built")
	}
}

func TestFromRawRejectsMissingScale(t *testing.T) {
	raw := minimalRaw()
	raw.Scale = 0
	if _, err := FromRaw(raw); err == nil {
		t.Fatal("expected an error for missing scene.scale")
	}
}

func TestFromRawRejectsUnknownCameraType(t *testing.T) {
	raw := minimalRaw()
	raw.Camera.Type = "orthographic"
	if _, err := FromRaw(raw); err == nil {
		t.Fatal("expected an error for an unsupported camera.type")
	}
}

func TestFromRawRejectsThinlensWithoutFocus(t *testing.T) {
	raw := minimalRaw()
	raw.Camera.Type = "thinlens"
	if _, err := FromRaw(raw); err == nil {
		t.Fatal("expected an error for thinlens camera missing focus/aperature")
	}
}

func TestFromRawRejectsUnresolvedMaterial(t *testing.T) {
	raw := minimalRaw()
	raw.Triangles[0].Material = "does-not-exist"
	if _, err := FromRaw(raw); err == nil {
		t.Fatal("expected an error for an unresolved material reference")
	}
}

func TestFromRawDefaultsMissingMaterialReference(t *testing.T) {
	raw := minimalRaw()
	raw.Triangles[0].Material = ""
	s, err := FromRaw(raw)
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	if len(s.Materials) != len(raw.Materials)+1 || s.Materials[len(s.Materials)-1] != DefaultMaterial {
		t.Fatal("expected DefaultMaterial to have been appended")
	}
}
