package main

import (
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "cullbench"
	app.Usage = "benchmark and inspect hierarchical visibility culling"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load culling settings from a .toml or .yaml file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "bench",
			Usage: "cull a synthetic scene from an orbiting camera",
			Description: `
Scatter cubes of random size over a square area, build the spatial index
selected by the settings and cull the scene from a camera orbiting it. The
main view and the shadow cascades of every frame go through the culling
coordinator; averages are printed at the end.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "objects, n",
					Value: 50000,
					Usage: "number of objects to scatter",
				},
				cli.IntFlag{
					Name:  "frames, f",
					Value: 360,
					Usage: "number of frames to cull",
				},
				cli.Float64Flag{
					Name:  "size",
					Value: 500,
					Usage: "side of the scattered area",
				},
				cli.Uint64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "random seed of the scene",
				},
				cli.StringFlag{
					Name:  "tree, t",
					Usage: "override the index: kdtree, octree or quadtree",
				},
			},
			Action: Bench,
		},
		{
			Name:      "inspect",
			Usage:     "print the shape of every index built over a model",
			ArgsUsage: "model.glb|model.gltf|model.obj",
			Action:    Inspect,
		},
		{
			Name:  "view",
			Usage: "show the culled tree nodes in a window",
			Description: `
Open a window drawing the bounds of the tree nodes accepted by the culling
walk, coloured by depth, and the bounds of the visible objects. Without a
model a synthetic scene is used. The settings file given with --config is
watched and reloaded on change.

Keys: A/D orbit, W/S tilt, Up/Down zoom, N toggle nodes, F freeze culling,
Space reset the view. Drag with the left button to orbit, scroll to zoom.`,
			ArgsUsage: "[model.glb]",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "objects, n",
					Value: 5000,
					Usage: "number of objects to scatter without a model",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 1280,
					Usage: "window width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 720,
					Usage: "window height",
				},
			},
			Action: View,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
