package main

import (
	"fmt"
	"os"

	"github.com/BRL-CAD/brlcad-sub112/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	cacheFlag := cli.StringFlag{
		Name:  "cache-dir",
		Usage: "directory for caching compiled kd-trees",
	}
	leafFlag := cli.IntFlag{
		Name:  "leaf-triangles",
		Value: 0,
		Usage: "maximum triangles per kd-tree leaf (0 uses the engine default)",
	}

	app := cli.NewApp()
	app.Name = "tie"
	app.Usage = "triangle intersection engine"
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
			Name:  "compile",
			Usage: "compile wavefront meshes into scene archives with a prebuilt kd-tree",
			Description: `
Parse a scene definition from a wavefront obj file, build a kd-tree to
accelerate ray/triangle intersection tests and serialize it in the compact
cache format.

The compiled scene is written to a zip archive next to the input file which
can be supplied as an argument to the info, shoot and render commands.`,
			ArgsUsage: "scene_file1.obj scene_file2.obj ...",
			Flags:     []cli.Flag{cacheFlag, leafFlag},
			Action:    cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "display scene and kd-tree statistics",
			ArgsUsage: "scene_file",
			Flags:     []cli.Flag{cacheFlag, leafFlag},
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:        "shoot",
			Usage:       "trace a single ray and list all hits",
			Description: `Trace a ray through the scene and print every hit ordered by distance.`,
			ArgsUsage:   "scene_file",
			Flags: []cli.Flag{
				cacheFlag,
				leafFlag,
				cli.StringFlag{
					Name:  "origin",
					Value: "0,0,0",
					Usage: "ray origin as x,y,z",
				},
				cli.StringFlag{
					Name:  "dir",
					Value: "0,0,-1",
					Usage: "ray direction as x,y,z",
				},
			},
			Action: cmd.ShootRay,
		},
		{
			Name:        "render",
			Usage:       "render a shaded frame of the scene",
			Description: `Render a grayscale frame of the scene from the scene camera.`,
			ArgsUsage:   "scene_file",
			Flags: []cli.Flag{
				cacheFlag,
				leafFlag,
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
					Name:  "workers",
					Value: 0,
					Usage: "number of render workers (0 uses all CPUs)",
				},
				cli.IntFlag{
					Name:  "frames",
					Value: 1,
					Usage: "number of frames to render; useful for benchmarking the block scheduler",
				},
				cli.Float64Flag{
					Name:  "background",
					Value: 0,
					Usage: "background intensity in the [0, 1] range",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			},
			Action: cmd.RenderFrame,
		},
		{
			Name:  "cache",
			Usage: "manage the kd-tree cache",
			Subcommands: []cli.Command{
				{
					Name:   "list",
					Usage:  "list cached kd-trees",
					Flags:  []cli.Flag{cacheFlag},
					Action: cmd.ListCache,
				},
				{
					Name:   "purge",
					Usage:  "remove all cached kd-trees",
					Flags:  []cli.Flag{cacheFlag},
					Action: cmd.PurgeCache,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
