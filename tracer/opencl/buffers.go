package opencl

import (
	"github.com/LuniumLuk/Tira/scene"
	"github.com/LuniumLuk/Tira/tracer/opencl/device"
	"github.com/achilleasa/gopencl/v1.2/cl"
)

// bufferSet holds every device buffer the tracer needs: the read-only scene
// data re-uploaded whenever the scene changes, and the frame-sized
// accumulator each dispatch overwrites with its tile's radiance; the running
// sums live in the host-side accum slice, as they do for tracer.CPU.
type bufferSet struct {
	BVHNodes   *device.Buffer
	Primitives *device.Buffer
	Materials  *device.Buffer

	Accumulator *device.Buffer
}

func newBufferSet(dev *device.Device) *bufferSet {
	return &bufferSet{
		BVHNodes:    dev.Buffer("bvhNodes"),
		Primitives:  dev.Buffer("primitives"),
		Materials:   dev.Buffer("materials"),
		Accumulator: dev.Buffer("accumulator"),
	}
}

// Release frees every buffer in the set.
func (b *bufferSet) Release() {
	b.BVHNodes.Release()
	b.Primitives.Release()
	b.Materials.Release()
	b.Accumulator.Release()
}

// Resize (re)allocates the frame accumulator for a frameW x frameH frame,
// discarding any samples accumulated so far.
func (b *bufferSet) Resize(frameW, frameH uint32) error {
	size := int(frameW) * int(frameH) * 3 * 4 // vec3 of float32 per pixel
	return b.Accumulator.Allocate(size, cl.MEM_READ_WRITE)
}

// UploadSceneData packs the scene's BVH, primitives and materials and
// writes them to their device buffers, replacing whatever was uploaded
// before.
func (b *bufferSet) UploadSceneData(sc *scene.Scene) error {
	nodes, prims, mats, err := packScene(sc)
	if err != nil {
		return err
	}
	if len(nodes) == 0 || len(prims) == 0 {
		return ErrEmptyScene
	}

	if err := b.BVHNodes.AllocateAndWriteData(nodes, cl.MEM_READ_ONLY); err != nil {
		return err
	}
	if err := b.Primitives.AllocateAndWriteData(prims, cl.MEM_READ_ONLY); err != nil {
		return err
	}
	if len(mats) > 0 {
		if err := b.Materials.AllocateAndWriteData(mats, cl.MEM_READ_ONLY); err != nil {
			return err
		}
	}
	return nil
}
