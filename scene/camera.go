package scene

import (
	"math"
	"math/rand"

	"github.com/LuniumLuk/Tira/types"
)

// Camera holds the eye/lookat/up basis and the thin-lens parameters needed
// to generate primary rays (spec section 3, "Camera"; ray generation
// grounded on original_source/Tira/camera.h's get_ray_pinhole /
// get_ray_thin_lens, keeping ViewMat/ProjMat bookkeeping alongside the ray
// generation math).
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	FOV    float32 // vertical field of view, radians
	Aspect float32
	Near   float32
	Far    float32

	// FocusDistance and ApertureRadius enable depth of field when
	// ApertureRadius > 0; ApertureRadius == 0 degenerates to a pinhole
	// camera.
	FocusDistance  float32
	ApertureRadius float32

	ViewMat types.Mat4
	ProjMat types.Mat4
}

// NewCamera builds a pinhole camera looking from eye to at.
func NewCamera(eye, at, up types.Vec3, fov, aspect float32) *Camera {
	c := &Camera{
		Position:      eye,
		LookAt:        at,
		Up:            up,
		FOV:           fov,
		Aspect:        aspect,
		Near:          0.01,
		Far:           1000,
		FocusDistance: 4,
	}
	c.Update()
	return c
}

// Update recomputes the view/projection matrices after Position/LookAt/Up,
// FOV or Aspect change.
func (c *Camera) Update() {
	c.ViewMat = types.LookAtV(c.Position, c.LookAt, c.Up)
	c.ProjMat = types.Perspective4(c.FOV, c.Aspect, c.Near, c.Far)
}

// basis returns the camera's forward/right/up orthonormal triad.
func (c *Camera) basis() (forward, right, up types.Vec3) {
	forward = c.LookAt.Sub(c.Position).Normalize()
	right = forward.Cross(c.Up).Normalize()
	up = right.Cross(forward)
	return
}

// screenExtent returns the half-height/half-width of the z=1 image plane in
// camera space.
func (c *Camera) screenExtent() (vh, vw float32) {
	vh = float32(math.Tan(float64(c.FOV) * 0.5))
	vw = vh * c.Aspect
	return
}

// RayPinhole generates the primary ray through raster pixel (x,y) of a
// w x h image, jittered within the pixel by (jx,jy) in [0,1) (used for
// pixel-area antialiasing).
func (c *Camera) RayPinhole(x, y, w, h int, jx, jy float32) types.Ray {
	u := (float32(x)+jx)/float32(w)*2 - 1
	v := 1 - (float32(y)+jy)/float32(h)*2

	forward, right, up := c.basis()
	vh, vw := c.screenExtent()

	dir := forward.Add(right.Mul(u * vw)).Add(up.Mul(v * vh))
	return types.NewRay(c.Position, dir)
}

// RayThinLens generates a depth-of-field primary ray through raster pixel
// (x,y), jittered within the pixel by (jx,jy) and sampling the lens aperture
// at (lu,lv) via a concentric disk mapping.
func (c *Camera) RayThinLens(x, y, w, h int, jx, jy, lu, lv float32) types.Ray {
	if c.ApertureRadius <= 0 {
		return c.RayPinhole(x, y, w, h, jx, jy)
	}

	u := (float32(x)+jx)/float32(w)*2 - 1
	v := 1 - (float32(y)+jy)/float32(h)*2

	forward, right, up := c.basis()
	vh, vw := c.screenExtent()

	forward = forward.Mul(c.FocusDistance)
	right = right.Mul(c.FocusDistance * vw)
	up = up.Mul(c.FocusDistance * vh)

	dx, dy := types.ConcentricSampleDisk(lu, lv)
	lensOffset := right.Mul(dx * c.ApertureRadius).Add(up.Mul(dy * c.ApertureRadius))

	dir := forward.Add(right.Mul(u)).Add(up.Mul(v)).Sub(lensOffset)
	origin := c.Position.Add(lensOffset)
	return types.NewRay(origin, dir)
}

// GenerateRay dispatches to RayThinLens when the camera has a nonzero
// aperture, and to RayPinhole otherwise, drawing its own jitter/lens samples
// from rng.
func (c *Camera) GenerateRay(x, y, w, h int, rng *rand.Rand) types.Ray {
	jx, jy := rng.Float32(), rng.Float32()
	if c.ApertureRadius <= 0 {
		return c.RayPinhole(x, y, w, h, jx, jy)
	}
	return c.RayThinLens(x, y, w, h, jx, jy, rng.Float32(), rng.Float32())
}
