package main

import (
	"context"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/urfave/cli"

	"render-culling/bounds"
	"render-culling/config"
	"render-culling/core"
	"render-culling/math"
	"render-culling/opengl"
	"render-culling/renderer"
	"render-culling/scene"
)

var (
	skyColor     = core.Color{R: 0.05, G: 0.06, B: 0.08, A: 1}
	visibleColor = core.Color{R: 0.3, G: 1, B: 0.4, A: 1}
	frustumColor = core.ColorYellow
)

// View draws the culled tree nodes of a scene in a window.
func View(ctx *cli.Context) error {
	setupLogging(ctx)

	settings, err := loadSettings(ctx)
	if err != nil {
		return err
	}

	var sc *scene.Scene
	if ctx.NArg() > 0 {
		if sc, err = scene.LoadFile(ctx.Args().First()); err != nil {
			return err
		}
	} else {
		extent := bounds.New(math.NewVec3(-150, 0, -150), math.NewVec3(150, 30, 150))
		sc = scene.Scatter(ctx.Int("objects"), extent, 1)
	}
	objects := sc.Renderables()

	index, err := renderer.BuildIndex(settings.Tree, objects)
	if err != nil {
		return err
	}
	culler, err := renderer.NewCuller(index, settings)
	if err != nil {
		return err
	}

	if path := ctx.GlobalString("config"); path != "" {
		watchCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			err := config.Watch(watchCtx, path, func(s config.Settings) {
				if s.Tree != culler.Settings().Tree {
					logger.Warningf("tree %q takes effect on restart", s.Tree)
				}
				if err := culler.SetSettings(s); err != nil {
					logger.Warning(err)
				}
			})
			if err != nil {
				logger.Errorf("settings watch stopped: %v", err)
			}
		}()
	}

	windowConfig := opengl.DefaultWindowConfig()
	windowConfig.Width = ctx.Int("width")
	windowConfig.Height = ctx.Int("height")
	window, err := opengl.NewWindow(windowConfig)
	if err != nil {
		return err
	}
	defer window.Destroy()

	boxes, err := opengl.NewBoxRenderer()
	if err != nil {
		return err
	}
	defer boxes.Destroy()

	sceneBox := bounds.Empty()
	for _, obj := range objects {
		sceneBox = sceneBox.Union(obj.Bounds())
	}
	radius := math32.Max(sceneBox.Size().Length(), 1)
	orbit := scene.NewOrbitCamera(sceneBox.Center(), radius*0.6, math32.Pi/3, float32(windowConfig.Width)/float32(windowConfig.Height))
	orbit.FarPlane = radius * 2

	v := viewer{
		window: window,
		boxes:  boxes,
		orbit:  orbit,
		home:   *orbit,
		culler: culler,
		light:  sc.ShadowLight(),
		nodes:  true,
	}
	window.SetScrollCallback(func(_, yoff float64) {
		v.orbit.Zoom(-float32(yoff) * 0.1 * v.orbit.Distance)
	})
	v.run()
	return nil
}

type viewer struct {
	window *opengl.Window
	boxes  *opengl.BoxRenderer
	orbit  *scene.OrbitCamera
	home   scene.OrbitCamera
	culler *renderer.Culler[*scene.Renderable]
	light  *scene.Light

	nodes  bool
	frozen *scene.Camera

	nodesKeyWasDown  bool
	freezeKeyWasDown bool

	dragging     bool
	lastX, lastY float64
}

func (v *viewer) run() {
	last := v.window.Time()
	for !v.window.ShouldClose() {
		v.window.PollEvents()
		if v.window.IsKeyPressed(opengl.KeyEscape) {
			break
		}

		now := v.window.Time()
		dt := float32(now - last)
		last = now
		v.handleInput(dt)

		w, h := v.window.GetFramebufferSize()
		v.boxes.SetViewport(w, h)
		v.orbit.UpdateAspectRatio(float32(w), float32(h))

		v.drawFrame()
		v.window.SwapBuffers()
	}
}

func (v *viewer) handleInput(dt float32) {
	const orbitSpeed, zoomSpeed = 1.2, 0.8

	var yaw, pitch float32
	if v.window.IsKeyPressed(opengl.KeyA) {
		yaw -= orbitSpeed * dt
	}
	if v.window.IsKeyPressed(opengl.KeyD) {
		yaw += orbitSpeed * dt
	}
	if v.window.IsKeyPressed(opengl.KeyW) {
		pitch += orbitSpeed * dt
	}
	if v.window.IsKeyPressed(opengl.KeyS) {
		pitch -= orbitSpeed * dt
	}

	// drag with the left button to orbit
	x, y := v.window.GetCursorPos()
	if v.window.IsMouseButtonPressed(opengl.MouseButtonLeft) {
		if v.dragging {
			yaw -= float32(x-v.lastX) * 0.005
			pitch += float32(y-v.lastY) * 0.005
		}
		v.dragging = true
	} else {
		v.dragging = false
	}
	v.lastX, v.lastY = x, y

	if yaw != 0 || pitch != 0 {
		v.orbit.Orbit(yaw, pitch)
	}
	if v.window.IsKeyPressed(opengl.KeyUp) {
		v.orbit.Zoom(-zoomSpeed * v.orbit.Distance * dt)
	}
	if v.window.IsKeyPressed(opengl.KeyDown) {
		v.orbit.Zoom(zoomSpeed * v.orbit.Distance * dt)
	}

	// debounced toggles
	nDown := v.window.IsKeyPressed(opengl.KeyN)
	if nDown && !v.nodesKeyWasDown {
		v.nodes = !v.nodes
	}
	v.nodesKeyWasDown = nDown

	fDown := v.window.IsKeyPressed(opengl.KeyF)
	if fDown && !v.freezeKeyWasDown {
		if v.frozen == nil {
			cam := v.orbit.Camera
			v.frozen = &cam
			logger.Info("culling camera frozen")
		} else {
			v.frozen = nil
			logger.Info("culling camera follows the view")
		}
	}
	v.freezeKeyWasDown = fDown

	if v.window.IsKeyPressed(opengl.KeySpace) {
		*v.orbit = v.home
	}
}

func (v *viewer) drawFrame() {
	settings := v.culler.Settings()

	cullCam := &v.orbit.Camera
	if v.frozen != nil {
		cullCam = v.frozen
	}
	p := cullCam.CullingParams(settings.DetailCullingThreshold)
	cascades := renderer.ShadowCascades(cullCam, v.light, settings)
	res := v.culler.CullFrame(p, renderer.CascadeParams(cascades))

	v.boxes.BeginFrame(skyColor)
	if v.nodes {
		v.boxes.AddNodes(v.culler.Index().CullVisibleNodes(&p, nil))
	}
	opengl.AddObjects(v.boxes, res.Visible, visibleColor)
	if v.frozen != nil {
		addFrustum(v.boxes, v.frozen)
	}
	v.boxes.Flush(v.orbit.GetViewProjectionMatrix())

	v.window.SetTitle(fmt.Sprintf("cullbench: %d/%d visible, %d shadow casters, %s",
		res.Stats.View.Visible, v.culler.Index().Len(), res.Stats.ShadowVisible(), res.Stats.Duration))
}

// addFrustum outlines the near and far slice of a frozen camera.
func addFrustum(boxes *opengl.BoxRenderer, cam *scene.Camera) {
	corners := cam.SplitFrustum(cam.NearPlane, math32.Min(cam.FarPlane, 200))
	for i := range 4 {
		j := (i + 1) % 4
		boxes.AddLine(corners[i], corners[j], frustumColor)
		boxes.AddLine(corners[i+4], corners[j+4], frustumColor)
		boxes.AddLine(corners[i], corners[i+4], frustumColor)
	}
}
