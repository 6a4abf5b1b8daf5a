package renderer

import (
	"sync/atomic"
	"time"

	"github.com/LuniumLuk/Tira/image"
	"github.com/LuniumLuk/Tira/scene"
	"github.com/LuniumLuk/Tira/tracer"
)

// Renderer drives one or more Tracers over a scene's tiles and reports the
// combined result as a tone-mapped framebuffer (spec section 5, "Renderer").
type Renderer interface {
	// Render dispatches every tile of the frame across the attached
	// tracers and blocks until the frame is complete, or until Cancel is
	// called from another goroutine, in which case it returns
	// ErrInterrupted once the tiles already in flight finish (spec
	// section 5, "Cancellation").
	Render() error

	// Cancel requests that an in-progress Render stop dispatching new
	// tiles; it is safe to call from another goroutine. Tiles already
	// enqueued still run to completion and their pixels remain in
	// Framebuffer.
	Cancel()

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats

	// Framebuffer returns the tone-mapped RGBA8 result of the last
	// completed Render call.
	Framebuffer() *image.Byte
}

type pathTraceRenderer struct {
	scene   *scene.Scene
	opts    Options
	tracers []tracer.Tracer
	sched   tracer.BlockScheduler

	accum []float32
	out   *image.Byte

	stats  FrameStats
	cancel int32 // atomic; set by Cancel, polled between tile dispatches
}

// New builds a Renderer that dispatches tiles of opts.FrameW x opts.FrameH
// across tracers, using sched to balance load between them (spec section
// 5, "Tile scheduler").
func New(s *scene.Scene, opts Options, tracers []tracer.Tracer, sched tracer.BlockScheduler) (Renderer, error) {
	if len(tracers) == 0 {
		return nil, ErrNoTracers
	}
	if s == nil {
		return nil, ErrSceneNotDefined
	}
	if s.Camera == nil {
		return nil, ErrCameraNotDefined
	}

	r := &pathTraceRenderer{
		scene:   s,
		opts:    opts,
		tracers: tracers,
		sched:   sched,
		accum:   make([]float32, opts.FrameW*opts.FrameH*3),
		out:     image.NewByte(int(opts.FrameW), int(opts.FrameH)),
	}

	for _, tr := range tracers {
		if err := tr.Setup(opts.FrameW, opts.FrameH, r.accum, r.out.Pix); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// tileSize returns opts.TileSize, defaulting to tracer.DefaultTileSize.
func (r *pathTraceRenderer) tileSize() uint32 {
	if r.opts.TileSize > 0 {
		return r.opts.TileSize
	}
	return tracer.DefaultTileSize
}

// Render implements Renderer: it tiles the frame, asks the scheduler how
// many tiles each tracer gets this batch, then hands each tracer in turn a
// contiguous run of that many tiles (any remainder goes to the last tracer)
// until every tile has been dispatched, blocking until all of them report
// done.
func (r *pathTraceRenderer) Render() error {
	start := time.Now()
	atomic.StoreInt32(&r.cancel, 0)

	ts := r.tileSize()
	tilesX := (r.opts.FrameW + ts - 1) / ts
	tilesY := (r.opts.FrameH + ts - 1) / ts
	totalTiles := tilesX * tilesY

	assignment := r.sched.Schedule(r.tracers, totalTiles)

	doneChan := make(chan uint32, totalTiles)
	errChan := make(chan error, totalTiles)

	enqueue := func(tr tracer.Tracer, tileIdx uint32) {
		tx := (tileIdx % tilesX) * ts
		ty := (tileIdx / tilesX) * ts
		tr.Enqueue(tracer.TileRequest{
			TileX: tx, TileY: ty,
			TileW: ts, TileH: ts,
			SamplesPerPixel: uint32(r.opts.Integrator.SPP),
			Seed:            r.opts.Seed + tileIdx,
			DoneChan:        doneChan,
			ErrChan:         errChan,
		})
	}

	tileIdx := uint32(0)
	var enqueued uint32
dispatch:
	for ti, tr := range r.tracers {
		for n := uint32(0); n < assignment[ti] && tileIdx < totalTiles; n++ {
			if atomic.LoadInt32(&r.cancel) != 0 {
				break dispatch
			}
			enqueue(tr, tileIdx)
			tileIdx++
			enqueued++
		}
	}
	// Any remainder (rounding, or a tracer pool shorter than totalTiles)
	// goes to the last tracer, unless a cancel already cut dispatch short.
	if atomic.LoadInt32(&r.cancel) == 0 {
		last := r.tracers[len(r.tracers)-1]
		for ; tileIdx < totalTiles; tileIdx++ {
			if atomic.LoadInt32(&r.cancel) != 0 {
				break
			}
			enqueue(last, tileIdx)
			enqueued++
		}
	}

	var completed uint32
	for completed < enqueued {
		select {
		case err := <-errChan:
			return err
		case <-doneChan:
			completed++
		}
	}

	r.stats = FrameStats{RenderTime: time.Since(start)}
	for i, tr := range r.tracers {
		st := tr.Stats()
		r.stats.Tracers = append(r.stats.Tracers, TracerStat{
			Id:           tr.Id(),
			IsPrimary:    i == 0,
			TileCount:    st.TileCount,
			FramePercent: float32(assignment[i]) / float32(totalTiles) * 100,
			RenderTime:   time.Duration(st.BatchTime),
		})
	}

	if atomic.LoadInt32(&r.cancel) != 0 {
		return ErrInterrupted
	}
	return nil
}

// Cancel implements Renderer.
func (r *pathTraceRenderer) Cancel() {
	atomic.StoreInt32(&r.cancel, 1)
}

// Close implements Renderer.
func (r *pathTraceRenderer) Close() {
	for _, tr := range r.tracers {
		tr.Close()
	}
}

// Stats implements Renderer.
func (r *pathTraceRenderer) Stats() FrameStats { return r.stats }

// Framebuffer implements Renderer.
func (r *pathTraceRenderer) Framebuffer() *image.Byte { return r.out }
