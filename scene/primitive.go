package scene

import (
	"math"

	"github.com/LuniumLuk/Tira/types"
)

// Intersection carries the result of a ray-primitive (or ray-scene) query.
// Distance is initialized to +Inf by the caller; every primitive that finds
// a closer hit overwrites it together with the rest of the fields.
type Intersection struct {
	Hit      bool
	Distance float32

	Position types.Vec3

	// Geometric normal (from the raw triangle/sphere geometry) and the
	// (possibly interpolated) shading normal, plus its tangent frame.
	GeomNormal types.Vec3
	Normal     types.Vec3
	Tangent    types.Vec3
	Bitangent  types.Vec3

	UV types.Vec2

	Backface bool

	// Object/Material are index-neutral references into the owning
	// Scene's Primitives/Materials slices, never owning pointers.
	Object   Object
	Material *Material
}

// NewIntersection returns an Intersection ready for a fresh query: Hit is
// false and Distance is +Inf so the first primitive tested always wins.
func NewIntersection() Intersection {
	return Intersection{Distance: float32(math.MaxFloat32)}
}

// Object is the common contract for scene geometry (Triangle, Sphere).
// Implementations intersect a single primitive, sample a point on its
// surface (for light sampling), and report their bound/centroid/area.
type Object interface {
	// Intersect tests ray against the primitive, narrowing isect.Distance
	// and filling in the rest of isect's fields on a closer hit. Returns
	// true iff a new closest hit was recorded.
	Intersect(ray types.Ray, isect *Intersection) bool

	// Sample returns a uniformly distributed point on the primitive's
	// surface, its normal at that point, and the pdf with respect to
	// area (1/Area()).
	Sample(u0, u1 float32) (p, n types.Vec3, pdf float32)

	Bound() Bound3
	Center() types.Vec3
	Area() float32

	// MaterialIndex is an index into the owning Scene's Materials slice.
	MaterialIndex() int
}

// Triangle is a three-vertex polygon with optional per-vertex normals/UVs.
type Triangle struct {
	P  [3]types.Vec3
	N  [3]types.Vec3 // per-vertex normals; HasNormals reports whether they were supplied
	UV [3]types.Vec2

	HasNormals bool

	// Precomputed edges and geometric normal.
	e01, e02    types.Vec3
	geomNormal  types.Vec3
	area        float32
	materialIdx int
}

// NewTriangle builds a Triangle from its three vertex positions, optional
// per-vertex normals (pass hasNormals=false to derive shading normal from
// the geometric one) and UVs.
func NewTriangle(p [3]types.Vec3, n [3]types.Vec3, hasNormals bool, uv [3]types.Vec2, materialIdx int) *Triangle {
	t := &Triangle{P: p, N: n, UV: uv, HasNormals: hasNormals, materialIdx: materialIdx}
	t.e01 = p[1].Sub(p[0])
	t.e02 = p[2].Sub(p[0])
	cross := t.e01.Cross(t.e02)
	t.area = 0.5 * cross.Len()
	t.geomNormal = cross.Normalize()
	return t
}

// MaterialIndex implements Object.
func (t *Triangle) MaterialIndex() int { return t.materialIdx }

// Area implements Object.
func (t *Triangle) Area() float32 { return t.area }

// Center implements Object.
func (t *Triangle) Center() types.Vec3 {
	return t.P[0].Add(t.P[1]).Add(t.P[2]).Mul(1.0 / 3.0)
}

// Bound implements Object.
func (t *Triangle) Bound() Bound3 {
	b := EmptyBound3()
	b = b.UnionPoint(t.P[0])
	b = b.UnionPoint(t.P[1])
	b = b.UnionPoint(t.P[2])
	return b
}

// Intersect implements Object using the Möller-Trumbore algorithm.
func (t *Triangle) Intersect(ray types.Ray, isect *Intersection) bool {
	pvec := ray.Dir.Cross(t.e02)
	det := t.e01.Dot(pvec)
	if det > -1e-8 && det < 1e-8 {
		return false
	}
	invDet := 1.0 / det

	tvec := ray.Origin.Sub(t.P[0])
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return false
	}

	qvec := tvec.Cross(t.e01)
	v := ray.Dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return false
	}

	dist := t.e02.Dot(qvec) * invDet
	if dist < types.TMin || dist >= isect.Distance {
		return false
	}

	isect.Hit = true
	isect.Distance = dist
	isect.Position = ray.At(dist)
	isect.UV = t.UV[0].Mul(1 - u - v).Add(t.UV[1].Mul(u)).Add(t.UV[2].Mul(v))
	isect.GeomNormal = t.geomNormal
	isect.Backface = ray.Dir.Dot(t.geomNormal) > 0

	shNormal := t.geomNormal
	if t.HasNormals {
		shNormal = t.N[0].Mul(1 - u - v).Add(t.N[1].Mul(u)).Add(t.N[2].Mul(v)).Normalize()
	}
	if isect.Backface {
		isect.Normal = shNormal.Neg()
	} else {
		isect.Normal = shNormal
	}

	frame := types.FrameFromNormal(isect.Normal)
	isect.Tangent = frame.T
	isect.Bitangent = frame.B
	return true
}

// Sample implements Object with a uniform-area sample via the standard
// sqrt(u0) barycentric mapping.
func (t *Triangle) Sample(u0, u1 float32) (types.Vec3, types.Vec3, float32) {
	su0 := float32(math.Sqrt(float64(u0)))
	b0 := 1 - su0
	b1 := u1 * su0
	p := t.P[0].Mul(b0).Add(t.P[1].Mul(b1)).Add(t.P[2].Mul(1 - b0 - b1))
	n := t.geomNormal
	if t.Area() <= 0 {
		return p, n, 0
	}
	return p, n, 1.0 / t.Area()
}

// Sphere is a center+radius analytic primitive.
type Sphere struct {
	Center_ types.Vec3
	Radius  float32

	materialIdx int
}

// NewSphere builds a Sphere primitive.
func NewSphere(center types.Vec3, radius float32, materialIdx int) *Sphere {
	return &Sphere{Center_: center, Radius: radius, materialIdx: materialIdx}
}

// MaterialIndex implements Object.
func (s *Sphere) MaterialIndex() int { return s.materialIdx }

// Area implements Object.
func (s *Sphere) Area() float32 { return 4 * math.Pi * s.Radius * s.Radius }

// Center implements Object.
func (s *Sphere) Center() types.Vec3 { return s.Center_ }

// Bound implements Object.
func (s *Sphere) Bound() Bound3 {
	r := types.Vec3{s.Radius, s.Radius, s.Radius}
	return Bound3{Min: s.Center_.Sub(r), Max: s.Center_.Add(r)}
}

// Intersect implements Object.
func (s *Sphere) Intersect(ray types.Ray, isect *Intersection) bool {
	oc := ray.Origin.Sub(s.Center_)
	a := ray.Dir.Dot(ray.Dir)
	b := 2 * oc.Dot(ray.Dir)
	c := oc.Dot(oc) - s.Radius*s.Radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return false
	}
	sq := float32(math.Sqrt(float64(disc)))
	t := (-b - sq) / (2 * a)
	if t < types.TMin || t >= isect.Distance {
		t = (-b + sq) / (2 * a)
		if t < types.TMin || t >= isect.Distance {
			return false
		}
	}

	isect.Hit = true
	isect.Distance = t
	isect.Position = ray.At(t)
	geomN := isect.Position.Sub(s.Center_).Mul(1.0 / s.Radius)
	isect.GeomNormal = geomN
	isect.Backface = ray.Dir.Dot(geomN) > 0
	if isect.Backface {
		isect.Normal = geomN.Neg()
	} else {
		isect.Normal = geomN
	}

	// Equirectangular UV parameterization of the local-space normal.
	theta := float32(math.Acos(float64(types.Clamp(geomN[1], -1, 1))))
	phi := float32(math.Atan2(float64(geomN[2]), float64(geomN[0])))
	isect.UV = types.Vec2{phi/(2*math.Pi) + 0.5, theta / math.Pi}

	frame := types.FrameFromNormal(isect.Normal)
	isect.Tangent = frame.T
	isect.Bitangent = frame.B
	return true
}

// Sample implements Object with a uniform-area sample over the full sphere.
func (s *Sphere) Sample(u0, u1 float32) (types.Vec3, types.Vec3, float32) {
	z := 1 - 2*u0
	r := float32(math.Sqrt(math.Max(0, float64(1-z*z))))
	phi := 2 * math.Pi * float64(u1)
	n := types.Vec3{r * float32(math.Cos(phi)), r * float32(math.Sin(phi)), z}
	p := s.Center_.Add(n.Mul(s.Radius))
	return p, n, 1.0 / s.Area()
}
