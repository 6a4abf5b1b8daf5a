package main

import (
	"os"

	"github.com/LuniumLuk/Tira/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "tira"
	app.Usage = "render scenes using Monte Carlo path tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list-devices",
			Usage:  "list available opencl devices",
			Action: cmd.ListDevices,
		},
		{
			Name:      "scene-info",
			Usage:     "print a tabular summary of a scene file without rendering it",
			ArgsUsage: "scene.json",
			Action:    cmd.SceneInfo,
		},
		{
			Name:      "render",
			Usage:     "render a scene to a PNG file",
			ArgsUsage: "scene.json",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 512,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "spp",
					Value: 16,
					Usage: "samples per pixel",
				},
				cli.StringFlag{
					Name:  "integrator",
					Value: "mc",
					Usage: "light transport algorithm: whitted, mc, bdpt",
				},
				cli.IntFlag{
					Name:  "num-bounces",
					Value: 8,
					Usage: "maximum path depth",
				},
				cli.BoolFlag{
					Name:  "no-mis",
					Usage: "disable multiple importance sampling",
				},
				cli.Float64Flag{
					Name:  "rr-threshold",
					Value: 0.8,
					Usage: "russian roulette survival probability",
				},
				cli.Float64Flag{
					Name:  "clamp-max",
					Value: 0,
					Usage: "clamp each sample's radiance to this value; 0 disables clamping",
				},
				cli.Float64Flag{
					Name:  "exposure",
					Value: 1.0,
					Usage: "camera exposure for tone-mapping",
				},
				cli.IntFlag{
					Name:  "tile-size",
					Value: 32,
					Usage: "edge length of a square render tile",
				},
				cli.IntFlag{
					Name:  "workers",
					Value: 0,
					Usage: "CPU tracer worker count; 0 selects GOMAXPROCS",
				},
				cli.IntFlag{
					Name:  "seed",
					Value: 1,
					Usage: "base RNG seed",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
				cli.BoolFlag{
					Name:  "gpu",
					Usage: "also render tiles on available opencl GPU devices",
				},
				cli.StringFlag{
					Name:  "device",
					Usage: "only attach GPU devices whose name contains this substring",
				},
				cli.StringSliceFlag{
					Name:  "blacklist-device",
					Usage: "exclude a GPU device by exact name; may be repeated",
				},
			},
			Action: cmd.RenderFrame,
		},
	}

	app.Run(os.Args)
}
