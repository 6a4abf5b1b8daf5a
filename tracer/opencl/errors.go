package opencl

import "errors"

var (
	ErrNoAccelerator  = errors.New("opencl tracer: scene has no BVH accelerator")
	ErrEmptyScene     = errors.New("opencl tracer: scene has no primitives to upload")
	ErrTracerClosed   = errors.New("opencl tracer: tracer has been closed")
	ErrTileOutOfRange = errors.New("opencl tracer: requested tile lies outside the frame")
)
