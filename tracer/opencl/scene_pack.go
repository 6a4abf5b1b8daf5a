package opencl

import (
	"fmt"

	"github.com/LuniumLuk/Tira/scene"
	"github.com/LuniumLuk/Tira/types"
)

// packedMaterial is the device-side layout of a scene.Material, flattening
// every lobe's parameters into one fixed-size struct so the kernel can index
// it uniformly regardless of Type.
type packedMaterial struct {
	Type     int32
	Emissive int32
	Emission types.Vec3

	BaseColor types.Vec3 // Diffuse (BlinnPhong) or Transmittance (Glass) or BaseColor (Disney)
	Specular  types.Vec3

	Shininess    float32
	IOR          float32
	Roughness    float32
	Metallic     float32
	SpecularAmt  float32
	SpecularTint float32
	Anisotropic  float32

	Clearcoat      float32
	ClearcoatGloss float32
	Sheen          float32
	SheenTint      float32
	Subsurface     float32
}

// packedPrimitive is the device-side layout of a single scene primitive.
// Triangle and Sphere primitives both write into this struct; Kind selects
// which fields the kernel treats as meaningful (P0 doubles as a sphere's
// center, and Radius is set only for spheres).
type packedPrimitive struct {
	Kind        int32 // 0 = triangle, 1 = sphere
	MaterialIdx int32

	P0, P1, P2 types.Vec3
	N0, N1, N2 types.Vec3
	UV0        types.Vec2
	UV1        types.Vec2
	UV2        types.Vec2

	Radius float32
}

const (
	packedPrimitiveTriangle int32 = 0
	packedPrimitiveSphere   int32 = 1
)

// packedBVHNode mirrors scene.BVHNode using the flat threaded layout the
// accelerator already computes (HitIdx/MissIdx), so the kernel can walk the
// tree stacklessly the same way scene.BVH.intersectThreaded does on the
// host.
type packedBVHNode struct {
	BoundMin, BoundMax types.Vec3
	FirstPrim          int32
	PrimCount          int32
	HitIdx             int32
	MissIdx            int32
}

// packScene flattens a scene's BVH, primitives and materials into
// device-uploadable slices. It requires the scene's accelerator to be a
// *scene.BVH; the tracer has no other accelerator implementation to fall
// back to on the device side.
func packScene(sc *scene.Scene) ([]packedBVHNode, []packedPrimitive, []packedMaterial, error) {
	bvh, ok := sc.Accel.(*scene.BVH)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: got %T", ErrNoAccelerator, sc.Accel)
	}

	nodes := make([]packedBVHNode, len(bvh.Nodes))
	for i, n := range bvh.Nodes {
		nodes[i] = packedBVHNode{
			BoundMin:  n.Bound.Min,
			BoundMax:  n.Bound.Max,
			FirstPrim: int32(n.FirstPrim),
			PrimCount: int32(n.PrimCount),
			HitIdx:    int32(n.HitIdx),
			MissIdx:   int32(n.MissIdx),
		}
	}

	prims := make([]packedPrimitive, len(bvh.Objects))
	for i, obj := range bvh.Objects {
		switch p := obj.(type) {
		case *scene.Triangle:
			prims[i] = packedPrimitive{
				Kind:        packedPrimitiveTriangle,
				MaterialIdx: int32(p.MaterialIndex()),
				P0:          p.P[0], P1: p.P[1], P2: p.P[2],
				N0: p.N[0], N1: p.N[1], N2: p.N[2],
				UV0: p.UV[0], UV1: p.UV[1], UV2: p.UV[2],
			}
		case *scene.Sphere:
			prims[i] = packedPrimitive{
				Kind:        packedPrimitiveSphere,
				MaterialIdx: int32(p.MaterialIndex()),
				P0:          p.Center_,
				Radius:      p.Radius,
			}
		default:
			return nil, nil, nil, fmt.Errorf("opencl tracer: unsupported primitive type %T", obj)
		}
	}

	mats := make([]packedMaterial, len(sc.Materials))
	for i, m := range sc.Materials {
		emissive := int32(0)
		if m.Emissive {
			emissive = 1
		}
		baseColor := m.Diffuse
		switch m.Type {
		case scene.Glass:
			baseColor = m.Transmittance
		case scene.Disney:
			baseColor = m.BaseColor
		}
		mats[i] = packedMaterial{
			Type:           int32(m.Type),
			Emissive:       emissive,
			Emission:       m.Emission,
			BaseColor:      baseColor,
			Specular:       m.Specular,
			Shininess:      m.Shininess,
			IOR:            m.IOR,
			Roughness:      m.Roughness,
			Metallic:       m.Metallic,
			SpecularAmt:    m.SpecularAmt,
			SpecularTint:   m.SpecularTint,
			Anisotropic:    m.Anisotropic,
			Clearcoat:      m.Clearcoat,
			ClearcoatGloss: m.ClearcoatGloss,
			Sheen:          m.Sheen,
			SheenTint:      m.SheenTint,
			Subsurface:     m.Subsurface,
		}
	}

	return nodes, prims, mats, nil
}
