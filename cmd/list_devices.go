package cmd

import (
	"bytes"
	"fmt"

	"github.com/LuniumLuk/Tira/tracer/opencl/device"
	"github.com/urfave/cli"
)

// ListDevices prints every opencl platform/device the system exposes, for
// operators deciding which devices to blacklist from a render.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	platforms, err := device.GetPlatformInfo()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("\nSystem provides %d opencl platform(s):\n\n", len(platforms)))
	for pIdx, pl := range platforms {
		buf.WriteString(fmt.Sprintf("[Platform %02d]\n", pIdx))
		buf.WriteString(pl.String())
	}

	logger.Notice(buf.String())
	return nil
}
