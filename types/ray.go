package types

// TMin is the ray domain lower bound used to avoid self-intersection with
// the surface a ray was spawned from.
const TMin float32 = 1e-3

// Ray is a parametric ray with a closed domain [TMin, TMax]. InvDir and Sign
// are precomputed for the BVH slab test and must stay in sync with Dir -
// always go through SetDir (or NewRay) to update them together.
type Ray struct {
	Origin Vec3
	Dir    Vec3

	InvDir Vec3
	Sign   [3]int

	TMax float32

	// Shadow short-circuits shading: the accelerator may stop at the
	// first qualifying hit instead of finding the closest one.
	Shadow bool

	// Depth counts bounces so integrators can cap recursion.
	Depth int

	// IsDelta records whether the interaction that spawned this ray was
	// a specular/Dirac event (mirror, ideal refraction).
	IsDelta bool
}

// NewRay creates a ray with direction dir (normalized internally) and the
// default [TMin, +Inf) domain.
func NewRay(origin, dir Vec3) Ray {
	r := Ray{Origin: origin, TMax: float32(inf)}
	r.SetDir(dir)
	return r
}

const inf = 1.0e30

// SetDir renormalizes dir and recomputes InvDir/Sign. Must be called
// whenever the ray direction changes.
func (r *Ray) SetDir(dir Vec3) {
	r.Dir = dir.Normalize()
	for i := 0; i < 3; i++ {
		if r.Dir[i] != 0 {
			r.InvDir[i] = 1.0 / r.Dir[i]
		} else {
			r.InvDir[i] = float32(inf)
		}
		if r.InvDir[i] < 0 {
			r.Sign[i] = 1
		} else {
			r.Sign[i] = 0
		}
	}
}

// At returns the point at parametric distance t along the ray.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Spawn returns a new ray starting at p in direction dir, inheriting the
// shadow/depth/delta bookkeeping appropriate for a bounce: depth+1 and
// isDelta as supplied by the caller (the scattering event that produced dir).
func (r Ray) Spawn(p, dir Vec3, isDelta bool) Ray {
	nr := NewRay(p, dir)
	nr.Depth = r.Depth + 1
	nr.IsDelta = isDelta
	return nr
}
