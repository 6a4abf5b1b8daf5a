package opencl

import (
	"time"

	"github.com/LuniumLuk/Tira/scene"
	"github.com/LuniumLuk/Tira/tracer"
	"github.com/LuniumLuk/Tira/tracer/opencl/device"
)

const relativePathToMainKernel = "CL/main.cl"

// deviceResources bundles a device, its buffers and its single traceTile
// kernel. Unlike the teacher's deviceResources (nine kernels dispatched in
// sequence over ray-counter-compacted buffers), this tracer schedules whole
// tiles the same way tracer.CPU does, with one kernel dispatch per tile.
type deviceResources struct {
	device  *device.Device
	buffers *bufferSet
	kernel  *device.Kernel
}

func newDeviceResources(dev *device.Device, programFile string) (*deviceResources, error) {
	if err := dev.Init(programFile); err != nil {
		return nil, err
	}
	kernel, err := dev.Kernel(traceTile.String())
	if err != nil {
		return nil, err
	}
	return &deviceResources{
		device:  dev,
		buffers: newBufferSet(dev),
		kernel:  kernel,
	}, nil
}

// Close releases the kernel, buffers and underlying device in that order.
func (r *deviceResources) Close() {
	r.kernel.Release()
	r.buffers.Release()
	r.device.Close()
}

// TraceTile dispatches the traceTile kernel over req's rectangle, passing
// req.SamplesPerPixel and req.Seed along with the camera. The kernel
// overwrites the tile's region of the device accumulator (with zero) rather
// than adding to it. frameW/frameH size the accumulator's row stride.
func (r *deviceResources) TraceTile(req tracer.TileRequest, cam *scene.Camera, frameW, frameH uint32) (time.Duration, error) {
	err := r.kernel.SetArgs(
		r.buffers.BVHNodes,
		r.buffers.Primitives,
		r.buffers.Materials,
		r.buffers.Accumulator,
		int32(frameW), int32(frameH),
		int32(req.TileX), int32(req.TileY),
		int32(req.SamplesPerPixel),
		uint32(req.Seed),
		cam.Position, cam.LookAt, cam.Up,
		cam.FOV, cam.Aspect,
		cam.FocusDistance, cam.ApertureRadius,
	)
	if err != nil {
		return 0, err
	}
	return r.kernel.Exec2D(0, 0, int(req.TileW), int(req.TileH), 0, 0)
}
