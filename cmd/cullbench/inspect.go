package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"render-culling/config"
	"render-culling/renderer"
	"render-culling/scene"
)

// Inspect builds every index kind over a model and prints their shape.
func Inspect(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return fmt.Errorf("inspect expects exactly one model file")
	}
	path := ctx.Args().First()

	sc, err := scene.LoadFile(path)
	if err != nil {
		return err
	}
	objects := sc.Renderables()
	logger.Infof("loaded %d renderables from %s", len(objects), path)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Index", "Objects", "Nodes", "Leaves", "Max depth", "Objects per depth", "Build time"})

	for _, kind := range []config.TreeKind{config.TreeKdTree, config.TreeOctree, config.TreeQuadtree} {
		start := time.Now()
		index, err := renderer.BuildIndex(kind, objects)
		if err != nil {
			return err
		}
		buildTime := time.Since(start)

		stats, err := indexStats(index)
		if err != nil {
			return err
		}
		perDepth := make([]string, len(stats.ObjectsPerDepth))
		for d, n := range stats.ObjectsPerDepth {
			perDepth[d] = fmt.Sprintf("%d", n)
		}
		table.Append([]string{
			string(kind),
			fmt.Sprintf("%d", stats.Objects),
			fmt.Sprintf("%d", stats.Nodes),
			fmt.Sprintf("%d", stats.Leaves),
			fmt.Sprintf("%d", stats.MaxDepth),
			strings.Join(perDepth, " "),
			buildTime.String(),
		})
	}

	table.Render()
	logger.Noticef("index statistics for %s\n%s", path, buf.String())
	return nil
}
