package scene

import (
	"math"

	"github.com/LuniumLuk/Tira/types"
)

// Bound3 is an axis-aligned bounding box with Min <= Max componentwise.
type Bound3 struct {
	Min, Max types.Vec3
}

// EmptyBound3 returns a degenerate bound suitable as the identity element
// for repeated Union calls.
func EmptyBound3() Bound3 {
	inf := float32(math.MaxFloat32)
	return Bound3{
		Min: types.Vec3{inf, inf, inf},
		Max: types.Vec3{-inf, -inf, -inf},
	}
}

// UnionPoint grows the bound to include p.
func (b Bound3) UnionPoint(p types.Vec3) Bound3 {
	return Bound3{
		Min: types.MinVec3(b.Min, p),
		Max: types.MaxVec3(b.Max, p),
	}
}

// Union grows the bound to include other.
func (b Bound3) Union(other Bound3) Bound3 {
	return Bound3{
		Min: types.MinVec3(b.Min, other.Min),
		Max: types.MaxVec3(b.Max, other.Max),
	}
}

// Extent returns Max - Min.
func (b Bound3) Extent() types.Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b Bound3) Center() types.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// SurfaceArea returns 2*(xy+yz+zx) of the box extent.
func (b Bound3) SurfaceArea() float32 {
	e := b.Extent()
	return 2 * (e[0]*e[1] + e[1]*e[2] + e[0]*e[2])
}

// MaxExtentAxis returns the axis (0=x,1=y,2=z) along which the box is
// widest, used by the midpoint BVH split heuristic.
func (b Bound3) MaxExtentAxis() int {
	e := b.Extent()
	axis := 0
	if e[1] > e[axis] {
		axis = 1
	}
	if e[2] > e[axis] {
		axis = 2
	}
	return axis
}

// Intersect performs the slab test against ray, returning the entry
// distance and true, or false if the ray misses the box or exits behind
// its origin. tMax bounds the search (typically ray.TMax or the closest
// hit distance found so far).
func (b Bound3) Intersect(ray types.Ray, tMax float32) (float32, bool) {
	tNear := types.TMin
	tFar := tMax

	for axis := 0; axis < 3; axis++ {
		invD := ray.InvDir[axis]
		t0 := (b.Min[axis] - ray.Origin[axis]) * invD
		t1 := (b.Max[axis] - ray.Origin[axis]) * invD
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
		if tNear > tFar {
			return 0, false
		}
	}
	return tNear, true
}
