package renderer

import "time"

type TracerStat struct {
	// The tracer id.
	Id string

	// True if this is the primary tracer
	IsPrimary bool

	// The number of tiles this tracer rendered and the percentage of the
	// frame's total tile count it represents.
	TileCount    uint32
	FramePercent float32

	// Render time for the assigned tiles.
	RenderTime time.Duration
}

type FrameStats struct {
	// Individual tracer stats.
	Tracers []TracerStat

	// Total render time for entire frame.
	RenderTime time.Duration
}
