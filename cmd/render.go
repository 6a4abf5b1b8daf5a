package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"time"

	"github.com/LuniumLuk/Tira/image"
	"github.com/LuniumLuk/Tira/integrator"
	"github.com/LuniumLuk/Tira/renderer"
	"github.com/LuniumLuk/Tira/scene"
	"github.com/LuniumLuk/Tira/tracer"
	"github.com/LuniumLuk/Tira/tracer/opencl"
	"github.com/LuniumLuk/Tira/tracer/opencl/device"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// RenderFrame loads a scene, runs one still-frame render and writes the
// result to a PNG file.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	sc, err := loadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	integratorType := integrator.TypeMonteCarlo
	switch ctx.String("integrator") {
	case "whitted":
		integratorType = integrator.TypeWhitted
	case "bdpt":
		integratorType = integrator.TypeBidirectional
	}

	opts := renderer.Options{
		FrameW: uint32(ctx.Int("width")),
		FrameH: uint32(ctx.Int("height")),
		Integrator: integrator.Config{
			Type:            integratorType,
			SPP:             ctx.Int("spp"),
			MaxDepth:        ctx.Int("num-bounces"),
			UseMIS:          !ctx.Bool("no-mis"),
			RussianRoulette: float32(ctx.Float64("rr-threshold")),
			ClampMin:        0,
			ClampMax:        float32(ctx.Float64("clamp-max")),
		},
		Exposure:   float32(ctx.Float64("exposure")),
		TileSize:   uint32(ctx.Int("tile-size")),
		NumWorkers: ctx.Int("workers"),
		Seed:       uint32(ctx.Int("seed")),

		BlackListedDevices: ctx.StringSlice("blacklist-device"),
		ForcePrimaryDevice: ctx.String("device"),
	}

	cpu := tracer.NewCPU(sc, opts.Integrator, 0, opts.NumWorkers)
	tracers := []tracer.Tracer{cpu}
	if ctx.Bool("gpu") {
		tracers = append(tracers, gpuTracers(sc, opts)...)
	}

	r, err := renderer.New(sc, opts, tracers, tracer.NaiveScheduler())
	if err != nil {
		return err
	}
	defer r.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		if _, ok := <-sigChan; ok {
			logger.Notice("interrupt received, cancelling render after in-flight tiles finish")
			r.Cancel()
		}
	}()
	defer signal.Stop(sigChan)
	defer close(sigChan)

	logger.Noticef("rendering %dx%d at %d spp using %s", opts.FrameW, opts.FrameH, opts.Integrator.SPP, integratorType)
	start := time.Now()
	renderErr := r.Render()
	if renderErr != nil && renderErr != renderer.ErrInterrupted {
		return renderErr
	}
	if renderErr == renderer.ErrInterrupted {
		logger.Warningf("render interrupted after %s, writing partial frame", time.Since(start))
	} else {
		logger.Noticef("rendered frame in %s", time.Since(start))
	}

	out := ctx.String("out")
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, r.Framebuffer()); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	logger.Noticef("wrote frame to %s", out)

	displayFrameStats(r.Stats())
	return nil
}

// gpuTracers builds one opencl.GPU tracer per non-blacklisted GPU device,
// or just the device named by opts.ForcePrimaryDevice if set. Devices are
// attached without being probed: one whose OpenCL context cannot be created
// fails its Setup, and with it renderer.New.
func gpuTracers(sc *scene.Scene, opts renderer.Options) []tracer.Tracer {
	devices, err := device.SelectDevices(device.GpuDevice, opts.ForcePrimaryDevice)
	if err != nil {
		logger.Warningf("opencl: could not enumerate devices: %v", err)
		return nil
	}

	blacklisted := make(map[string]bool, len(opts.BlackListedDevices))
	for _, name := range opts.BlackListedDevices {
		blacklisted[name] = true
	}

	var tracers []tracer.Tracer
	for _, dev := range devices {
		if blacklisted[dev.Name] {
			continue
		}
		gpu := opencl.NewGPU(dev.Name, dev, sc, image.ToneMapReinhard)
		tracers = append(tracers, gpu)
		logger.Infof("opencl: attached device %s", dev.Name)
	}
	return tracers
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Primary", "Tiles", "% of frame", "Render time"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%t", stat.IsPrimary),
			fmt.Sprintf("%d", stat.TileCount),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			fmt.Sprintf("%s", stat.RenderTime),
		})
	}
	table.SetFooter([]string{"", "", "", "TOTAL", fmt.Sprintf("%s", stats.RenderTime)})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}
