package tracer

import (
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/LuniumLuk/Tira/image"
	"github.com/LuniumLuk/Tira/integrator"
	"github.com/LuniumLuk/Tira/log"
	"github.com/LuniumLuk/Tira/scene"
	"github.com/LuniumLuk/Tira/types"
)

var cpuLogger = log.New("cpu")

// CPU is a Tracer that renders tiles on a fixed pool of goroutines, one
// *rand.Rand per tile request. Tiles never overlap, so every worker writes
// disjoint regions of accumBuffer/frameBuffer and no synchronization is
// needed on the pixel data itself.
type CPU struct {
	scene      *scene.Scene
	integrator integrator.Integrator
	config     integrator.Config
	toneMap    image.ToneMapMode

	frameW, frameH int
	accum          []float32 // w*h*3, linear HDR, raw (unnormalized) sample sums
	out            []uint8   // w*h*4, tone-mapped RGBA8
	sampleCount    []uint32  // w*h, persistent per-pixel taken-sample count

	numWorkers int
	requests   chan TileRequest
	wg         sync.WaitGroup

	mu      sync.Mutex
	pending []pendingChange
	stats   Stats
}

type pendingChange struct {
	kind  ChangeType
	value interface{}
}

// NewCPU returns a CPU tracer with numWorkers rendering goroutines; if
// numWorkers <= 0 it defaults to runtime.GOMAXPROCS(0).
func NewCPU(s *scene.Scene, cfg integrator.Config, toneMap image.ToneMapMode, numWorkers int) *CPU {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	s.RobustLight = cfg.RobustLight
	return &CPU{scene: s, integrator: integrator.New(cfg), config: cfg, toneMap: toneMap, numWorkers: numWorkers}
}

// Id implements Tracer.
func (tr *CPU) Id() string { return "cpu" }

// SpeedEstimate implements Tracer, weighting by worker count since every
// goroutine is an equivalent CPU core's worth of throughput.
func (tr *CPU) SpeedEstimate() float32 { return float32(tr.numWorkers) }

// Setup implements Tracer, storing the caller's flat buffers and starting
// the worker pool.
func (tr *CPU) Setup(frameW, frameH uint32, accumBuffer []float32, frameBuffer []uint8) error {
	tr.frameW, tr.frameH = int(frameW), int(frameH)
	tr.accum = accumBuffer
	tr.out = frameBuffer
	tr.sampleCount = make([]uint32, frameW*frameH)

	tr.requests = make(chan TileRequest, tr.numWorkers*2)
	for i := 0; i < tr.numWorkers; i++ {
		tr.wg.Add(1)
		go tr.worker(i)
	}
	cpuLogger.Infof("setup: %dx%d frame, %d workers", frameW, frameH, tr.numWorkers)
	return nil
}

// Close implements Tracer, draining the request channel and waiting for
// in-flight tiles to finish.
func (tr *CPU) Close() {
	if tr.requests != nil {
		close(tr.requests)
		tr.wg.Wait()
	}
}

// Enqueue implements Tracer.
func (tr *CPU) Enqueue(req TileRequest) {
	tr.requests <- req
}

// AppendChange implements Tracer.
func (tr *CPU) AppendChange(kind ChangeType, value interface{}) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.pending = append(tr.pending, pendingChange{kind: kind, value: value})
}

// ApplyPendingChanges implements Tracer. The CPU tracer shares the live
// *scene.Scene with its caller, so most change kinds are no-ops here; only
// UpdateCamera needs to swap in a new camera, since a caller may hand over
// a freshly built one after an interactive move.
func (tr *CPU) ApplyPendingChanges() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, ch := range tr.pending {
		if ch.kind == UpdateCamera {
			if cam, ok := ch.value.(*scene.Camera); ok {
				tr.scene.Camera = cam
			}
		}
	}
	tr.pending = tr.pending[:0]
	return nil
}

// Stats implements Tracer.
func (tr *CPU) Stats() *Stats {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	s := tr.stats
	return &s
}

// worker pulls tiles off the request channel until it's closed, rendering
// each with its own *rand.Rand seeded from the request so runs are
// reproducible given the same seed and tile assignment.
func (tr *CPU) worker(workerIdx int) {
	defer tr.wg.Done()
	for req := range tr.requests {
		start := time.Now()
		rng := rand.New(rand.NewSource(int64(req.Seed)))

		if err := tr.renderTile(req, rng); err != nil {
			cpuLogger.Errorf("worker %d: tile (%d,%d) %dx%d: %v", workerIdx, req.TileX, req.TileY, req.TileW, req.TileH, err)
			if req.ErrChan != nil {
				req.ErrChan <- err
			}
			continue
		}
		cpuLogger.Debugf("worker %d: tile (%d,%d) %dx%d done in %v", workerIdx, req.TileX, req.TileY, req.TileW, req.TileH, time.Since(start))

		tr.mu.Lock()
		tr.stats.TileCount++
		tr.stats.BatchTime += time.Since(start).Nanoseconds()
		tr.mu.Unlock()

		if req.DoneChan != nil {
			req.DoneChan <- req.TileW * req.TileH
		}
	}
}

func (tr *CPU) renderTile(req TileRequest, rng *rand.Rand) error {
	w, h := tr.frameW, tr.frameH
	x0, y0 := int(req.TileX), int(req.TileY)
	x1, y1 := x0+int(req.TileW), y0+int(req.TileH)
	if x1 > w {
		x1 = w
	}
	if y1 > h {
		y1 = h
	}

	cfg := tr.config
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			sum := types.Vec3{}
			var taken uint32
			for s := uint32(0); s < req.SamplesPerPixel; s++ {
				c := tr.integrator.PixelColor(x, y, w, h, int(s), tr.scene, rng)
				if !integrator.Finite(c) {
					continue
				}
				sum = sum.Add(integrator.Clamp(cfg, c))
				taken++
			}
			if taken == 0 {
				continue
			}

			idx3 := (y*w + x) * 3
			tr.accum[idx3+0] += sum[0]
			tr.accum[idx3+1] += sum[1]
			tr.accum[idx3+2] += sum[2]

			idx1 := y*w + x
			tr.sampleCount[idx1] += taken
			total := tr.sampleCount[idx1]

			avg := types.Vec3{tr.accum[idx3+0], tr.accum[idx3+1], tr.accum[idx3+2]}.Mul(1 / float32(total))
			tr.writePixel(x, y, avg)
		}
	}
	return nil
}

// writePixel tone-maps and gamma-encodes a single already-normalized
// accumulated radiance value into the RGBA8 output buffer.
func (tr *CPU) writePixel(x, y int, c types.Vec3) {
	TonemapPixel(tr.out, tr.frameW, x, y, tr.toneMap, c)
}

// TonemapPixel tone-maps and gamma-encodes an already-normalized linear HDR
// radiance value into out's RGBA8 slot at pixel (x,y) of a frameW-wide
// image. The CPU and OpenCL tracers share this so a frame looks identical
// regardless of which tracer rendered a given tile.
func TonemapPixel(out []uint8, frameW, x, y int, toneMap image.ToneMapMode, c types.Vec3) {
	var mapped types.Vec3
	switch toneMap {
	case image.ToneMapACES:
		mapped = image.ACESToneMap(c)
	case image.ToneMapNone:
		mapped = types.Vec3{types.Clamp(c[0], 0, 1), types.Clamp(c[1], 0, 1), types.Clamp(c[2], 0, 1)}
	default:
		mapped = image.ReinhardToneMap(c)
	}
	encoded := image.GammaEncode(mapped)

	idx4 := (y*frameW + x) * 4
	out[idx4+0] = toByte(encoded[0])
	out[idx4+1] = toByte(encoded[1])
	out[idx4+2] = toByte(encoded[2])
	out[idx4+3] = 255
}

func toByte(c float32) byte {
	return byte(types.Clamp(c, 0, 1)*255.0 + 0.5)
}
