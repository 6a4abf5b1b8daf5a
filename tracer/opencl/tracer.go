// Package opencl implements tracer.Tracer on top of an OpenCL device. Work
// is dispatched one tile at a time as a single traceTile kernel invocation,
// mirroring the teacher's one-dispatch-per-block shape at tile rather than
// row-block granularity. The traceTile kernel writes a zero contribution for
// every pixel; it does no ray generation, BVH traversal or shading.
package opencl

import (
	"fmt"
	"path"
	"runtime"
	"sync"
	"time"

	"github.com/LuniumLuk/Tira/image"
	"github.com/LuniumLuk/Tira/log"
	"github.com/LuniumLuk/Tira/scene"
	"github.com/LuniumLuk/Tira/tracer"
	"github.com/LuniumLuk/Tira/tracer/opencl/device"
	"github.com/LuniumLuk/Tira/types"
)

// GPU is a tracer.Tracer backed by a single OpenCL device. It serializes
// every tile through one worker goroutine: unlike tracer.CPU's pool, the
// device itself is the unit of parallelism, so handing it more than one
// in-flight kernel at a time would only queue work the driver processes
// sequentially anyway.
type GPU struct {
	logger log.Logger
	dev    *device.Device

	resources *deviceResources

	frameW, frameH int
	accum          []float32 // shared with the caller, raw unnormalized sample sums
	out            []uint8
	sampleCount    []uint32
	toneMap        image.ToneMapMode

	sceneData *scene.Scene

	requests  chan tracer.TileRequest
	closeChan chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	pending []pendingChange
	stats   tracer.Stats
}

type pendingChange struct {
	kind  tracer.ChangeType
	value interface{}
}

// NewGPU returns a tracer.Tracer driving dev, rendering sc with the given
// tone-mapping operator. The scene's accelerator must be a *scene.BVH.
func NewGPU(id string, dev *device.Device, sc *scene.Scene, toneMap image.ToneMapMode) *GPU {
	return &GPU{
		logger:    log.New(fmt.Sprintf("opencl (%s)", id)),
		dev:       dev,
		sceneData: sc,
		toneMap:   toneMap,
	}
}

// Id implements tracer.Tracer.
func (tr *GPU) Id() string { return tr.dev.Name }

// SpeedEstimate implements tracer.Tracer, in units comparable to tracer.CPU's
// per-goroutine estimate: the device's GFlops estimate scaled down to a
// rough per-core multiple so a BlockScheduler can weigh a GPU device against
// a handful of CPU workers without either dominating the split.
func (tr *GPU) SpeedEstimate() float32 { return float32(tr.dev.Speed) / 50.0 }

// Setup implements tracer.Tracer: it initializes the device, builds the
// kernel program, allocates the frame accumulator and uploads the scene.
func (tr *GPU) Setup(frameW, frameH uint32, accumBuffer []float32, frameBuffer []uint8) error {
	_, thisFile, _, _ := runtime.Caller(0)
	programPath := path.Join(path.Dir(thisFile), relativePathToMainKernel)

	resources, err := newDeviceResources(tr.dev, programPath)
	if err != nil {
		return err
	}
	tr.resources = resources

	if err := tr.resources.buffers.Resize(frameW, frameH); err != nil {
		tr.resources.Close()
		return err
	}
	if err := tr.resources.buffers.UploadSceneData(tr.sceneData); err != nil {
		tr.resources.Close()
		return err
	}

	tr.frameW, tr.frameH = int(frameW), int(frameH)
	tr.accum = accumBuffer
	tr.out = frameBuffer
	tr.sampleCount = make([]uint32, frameW*frameH)

	tr.requests = make(chan tracer.TileRequest, 2)
	tr.closeChan = make(chan struct{})
	tr.wg.Add(1)
	go tr.worker()

	tr.logger.Infof("setup: %dx%d frame on device %s", frameW, frameH, tr.dev.Name)
	return nil
}

// Close implements tracer.Tracer.
func (tr *GPU) Close() {
	if tr.closeChan == nil {
		return
	}
	close(tr.closeChan)
	tr.wg.Wait()
	if tr.resources != nil {
		tr.resources.Close()
		tr.resources = nil
	}
}

// Enqueue implements tracer.Tracer.
func (tr *GPU) Enqueue(req tracer.TileRequest) {
	if tr.requests == nil {
		if req.ErrChan != nil {
			req.ErrChan <- ErrTracerClosed
		}
		return
	}
	tr.requests <- req
}

// AppendChange implements tracer.Tracer.
func (tr *GPU) AppendChange(kind tracer.ChangeType, value interface{}) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.pending = append(tr.pending, pendingChange{kind: kind, value: value})
}

// ApplyPendingChanges implements tracer.Tracer. SetBvhNodes/SetPrimitives/
// SetMaterials all re-trigger a full scene re-upload since the device keeps
// its own copy of the packed scene; UpdateCamera only needs the Go-side
// pointer swap, matching tracer.CPU.
func (tr *GPU) ApplyPendingChanges() error {
	tr.mu.Lock()
	pending := tr.pending
	tr.pending = nil
	tr.mu.Unlock()

	reupload := false
	for _, ch := range pending {
		switch ch.kind {
		case tracer.UpdateCamera:
			if cam, ok := ch.value.(*scene.Camera); ok {
				tr.sceneData.Camera = cam
			}
		case tracer.SetBvhNodes, tracer.SetPrimitives, tracer.SetMaterials, tracer.SetEmissiveLightIndices:
			reupload = true
		}
	}
	if reupload {
		return tr.resources.buffers.UploadSceneData(tr.sceneData)
	}
	return nil
}

// Stats implements tracer.Tracer.
func (tr *GPU) Stats() *tracer.Stats {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	s := tr.stats
	return &s
}

// worker drains tr.requests until Close fires, dispatching one tile at a
// time to the device.
func (tr *GPU) worker() {
	defer tr.wg.Done()
	for {
		select {
		case req := <-tr.requests:
			start := time.Now()
			if err := tr.renderTile(req); err != nil {
				tr.logger.Errorf("tile (%d,%d) %dx%d: %v", req.TileX, req.TileY, req.TileW, req.TileH, err)
				if req.ErrChan != nil {
					req.ErrChan <- err
				}
				continue
			}
			tr.logger.Debugf("tile (%d,%d) %dx%d done in %v", req.TileX, req.TileY, req.TileW, req.TileH, time.Since(start))

			tr.mu.Lock()
			tr.stats.TileCount++
			tr.stats.BatchTime += time.Since(start).Nanoseconds()
			tr.mu.Unlock()

			if req.DoneChan != nil {
				req.DoneChan <- req.TileW * req.TileH
			}
		case <-tr.closeChan:
			return
		}
	}
}

// renderTile dispatches traceTile over req's rectangle, reads back the
// device accumulator a row at a time (the accumulator's layout is
// frame-wide so a tile's rows are not contiguous), adds the per-dispatch
// sums into the shared accum mirror and tone-maps every touched pixel.
func (tr *GPU) renderTile(req tracer.TileRequest) error {
	if tr.sceneData == nil || tr.sceneData.Camera == nil {
		return ErrEmptyScene
	}
	x0, y0 := int(req.TileX), int(req.TileY)
	x1, y1 := x0+int(req.TileW), y0+int(req.TileH)
	if x1 > tr.frameW || y1 > tr.frameH {
		return ErrTileOutOfRange
	}

	if _, err := tr.resources.TraceTile(req, tr.sceneData.Camera, uint32(tr.frameW), uint32(tr.frameH)); err != nil {
		return err
	}

	row := make([]float32, int(req.TileW)*3)
	for y := y0; y < y1; y++ {
		srcOffset := ((y*tr.frameW + x0) * 3) * 4
		size := len(row) * 4
		if err := tr.resources.buffers.Accumulator.ReadData(srcOffset, 0, size, row); err != nil {
			return err
		}

		for x := x0; x < x1; x++ {
			col := (x - x0) * 3
			idx3 := (y*tr.frameW + x) * 3
			tr.accum[idx3+0] += row[col+0]
			tr.accum[idx3+1] += row[col+1]
			tr.accum[idx3+2] += row[col+2]

			idx1 := y*tr.frameW + x
			tr.sampleCount[idx1] += req.SamplesPerPixel
			total := tr.sampleCount[idx1]
			if total == 0 {
				continue
			}

			avg := types.Vec3{tr.accum[idx3+0], tr.accum[idx3+1], tr.accum[idx3+2]}.Mul(1 / float32(total))
			tracer.TonemapPixel(tr.out, tr.frameW, x, y, tr.toneMap, avg)
		}
	}
	return nil
}
