package renderer

import (
	"fmt"
	"path/filepath"

	"github.com/LuniumLuk/Tira/integrator"
)

// OutputPath builds the conventional output filename for a render of
// sceneName at w x h with cfg, matching
// <out>/<scene>_<spp>SPP_<W>X<H>[_MIS]_<integrator>.png (spec section 6.3).
func OutputPath(dir, sceneName string, cfg integrator.Config, w, h int) string {
	mis := ""
	if cfg.UseMIS {
		mis = "_MIS"
	}
	name := fmt.Sprintf("%s_%dSPP_%dX%d%s_%s.png", sceneName, cfg.SPP, w, h, mis, cfg.Type)
	return filepath.Join(dir, name)
}

// Options configures a single Render call.
type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Integrator selects the light transport algorithm and its tunables
	// (spec section 6.2).
	Integrator integrator.Config

	// Exposure is read from the --exposure flag; no tracer's tone mapping
	// applies it.
	Exposure float32

	// TileSize is the edge length of a square tile; 0 selects
	// tracer.DefaultTileSize.
	TileSize uint32

	// NumWorkers bounds the CPU tracer's goroutine pool; 0 selects
	// runtime.GOMAXPROCS(0).
	NumWorkers int

	// Seed derives every tile worker's *rand.Rand, making a render run
	// reproducible.
	Seed uint32

	// Device selection (kept for parity with the GPU tracer path; unused
	// by the CPU-only tracer pool).
	BlackListedDevices []string
	ForcePrimaryDevice string
}
