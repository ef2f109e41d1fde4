package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/chewxy/math32"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"render-culling/bounds"
	"render-culling/config"
	"render-culling/math"
	"render-culling/renderer"
	"render-culling/scene"
)

// Bench culls a scattered scene from a camera orbiting it.
func Bench(ctx *cli.Context) error {
	setupLogging(ctx)

	settings, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	if tree := ctx.String("tree"); tree != "" {
		settings.Tree = config.TreeKind(tree)
		if err := settings.Validate(); err != nil {
			return err
		}
	}

	n, frames := ctx.Int("objects"), ctx.Int("frames")
	if n < 1 || frames < 1 {
		return fmt.Errorf("bench needs at least one object and one frame")
	}
	half := float32(ctx.Float64("size")) / 2
	extent := bounds.New(math.NewVec3(-half, 0, -half), math.NewVec3(half, 40, half))

	sc := scene.Scatter(n, extent, ctx.Uint64("seed"))
	objects := sc.Renderables()

	start := time.Now()
	index, err := renderer.BuildIndex(settings.Tree, objects)
	if err != nil {
		return err
	}
	buildTime := time.Since(start)
	logger.Infof("built %s over %d objects in %s", settings.Tree, len(objects), buildTime)

	culler, err := renderer.NewCuller(index, settings)
	if err != nil {
		return err
	}

	orbit := scene.NewOrbitCamera(extent.Center(), half*1.2, math32.Pi/3, 16.0/9.0)
	orbit.FarPlane = half * 4
	light := sc.ShadowLight()

	stats := make([]renderer.FrameStats, 0, frames)
	step := 2 * math32.Pi / float32(frames)
	for range frames {
		orbit.Orbit(step, 0)
		cam := &orbit.Camera

		cascades := renderer.ShadowCascades(cam, light, settings)
		res := culler.CullFrame(cam.CullingParams(settings.DetailCullingThreshold), renderer.CascadeParams(cascades))
		stats = append(stats, res.Stats)
	}

	displayBenchStats(settings, len(objects), buildTime, renderer.Summarize(stats))
	return nil
}

func displayBenchStats(settings config.Settings, objects int, buildTime time.Duration, sum renderer.Summary) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Index", string(settings.Tree)})
	table.Append([]string{"Objects", fmt.Sprintf("%d", objects)})
	table.Append([]string{"Build time", buildTime.String()})
	table.Append([]string{"Workers", fmt.Sprintf("%d", settings.WorkerCount())})
	table.Append([]string{"Detail threshold", fmt.Sprintf("%g", settings.DetailCullingThreshold)})
	table.Append([]string{" ", " "})
	table.Append([]string{"Frames", fmt.Sprintf("%d", sum.Frames)})
	table.Append([]string{"Candidates / frame", fmt.Sprintf("%.1f", sum.Candidates)})
	table.Append([]string{"Visible / frame", fmt.Sprintf("%.1f", sum.Visible)})
	table.Append([]string{"Shadow casters / frame", fmt.Sprintf("%.1f", sum.ShadowVisible)})
	table.Append([]string{"Fanned out passes", fmt.Sprintf("%02.1f %%", sum.FannedOut*100)})
	table.Append([]string{"Main view time", sum.ViewTime.String()})
	table.Append([]string{"Worst frame", sum.MaxFrame.String()})
	table.SetFooter([]string{"Frame time", sum.FrameTime.String()})

	table.Render()
	logger.Noticef("culling statistics\n%s", buf.String())
}
