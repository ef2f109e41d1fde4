// Package opengl draws the debug view of the culling walk: the bounds of
// every accepted tree node, coloured by depth, and the bounds of the visible
// objects. It needs a current OpenGL 4.1 context, see NewWindow.
package opengl

import (
	"fmt"
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"render-culling/bounds"
	"render-culling/core"
	"render-culling/log"
	"render-culling/math"
	"render-culling/spatial"
)

var logger = log.New("opengl")

// lineVertex is the GPU vertex layout of the line program.
type lineVertex struct {
	Position math.Vec3
	Color    core.Color
}

// BoxRenderer draws axis-aligned boxes as wireframes.
type BoxRenderer struct {
	program uint32
	vpLoc   int32
	vao     uint32
	vbo     uint32

	// capacity of vbo in vertices
	capacity int
	lines    []lineVertex

	// MaxDepth is the node depth drawn in the warmest colour.
	MaxDepth int
}

const vertSrc = `
#version 410 core
layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec4 inColor;

uniform mat4 viewProj;

out vec4 fragColor;

void main() {
    gl_Position = viewProj * vec4(inPosition, 1.0);
    fragColor   = inColor;
}
` + "\x00"

const fragSrc = `
#version 410 core
in vec4 fragColor;
out vec4 outColor;

void main() {
    outColor = fragColor;
}
` + "\x00"

// NewBoxRenderer initialises OpenGL. Must be called after the GLFW window
// context is made current.
func NewBoxRenderer() (*BoxRenderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	logger.Infof("OpenGL version: %s", gl.GoStr(gl.GetString(gl.VERSION)))

	prog, err := newProgram(vertSrc, fragSrc)
	if err != nil {
		return nil, fmt.Errorf("shader compile: %w", err)
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	r := &BoxRenderer{
		program:  prog,
		vpLoc:    gl.GetUniformLocation(prog, gl.Str("viewProj\x00")),
		MaxDepth: 12,
	}

	stride := int32(unsafe.Sizeof(lineVertex{}))
	var v lineVertex

	gl.GenVertexArrays(1, &r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)

	// location 0: Position (vec3)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(int(unsafe.Offsetof(v.Position))))

	// location 1: Color (vec4 RGBA float32)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 4, gl.FLOAT, false, stride, gl.PtrOffset(int(unsafe.Offsetof(v.Color))))

	gl.BindVertexArray(0)
	return r, nil
}

// SetViewport resizes the OpenGL viewport.
func (r *BoxRenderer) SetViewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// BeginFrame clears the framebuffer and drops the boxes of the last frame.
func (r *BoxRenderer) BeginFrame(sky core.Color) {
	gl.ClearColor(sky.R, sky.G, sky.B, sky.A)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	r.lines = r.lines[:0]
}

// AddNodes queues the bounds of nodes, coloured by depth. Leaves are drawn
// opaque, inner nodes faded.
func (r *BoxRenderer) AddNodes(nodes []spatial.NodeView) {
	for _, n := range nodes {
		c := DepthColor(n.Depth(), r.MaxDepth)
		if !n.IsLeaf() {
			c.A = 0.35
		}
		r.AddBox(n.Bounds(), c)
	}
}

// AddObjects queues the bounds of objects in a single colour.
func AddObjects[T spatial.Object](r *BoxRenderer, objects []T, c core.Color) {
	for _, obj := range objects {
		r.AddBox(obj.Bounds(), c)
	}
}

// AddBox queues the twelve edges of box. Empty and unbounded boxes are
// skipped.
func (r *BoxRenderer) AddBox(box bounds.AABB, c core.Color) {
	if box.IsEmpty() || !box.IsFinite() {
		return
	}
	corners := box.Corners()
	for _, e := range boxEdges {
		r.lines = append(r.lines,
			lineVertex{Position: corners[e[0]], Color: c},
			lineVertex{Position: corners[e[1]], Color: c})
	}
}

// AddLine queues a single segment.
func (r *BoxRenderer) AddLine(a, b math.Vec3, c core.Color) {
	r.lines = append(r.lines, lineVertex{Position: a, Color: c}, lineVertex{Position: b, Color: c})
}

// Flush uploads the queued boxes and draws them with viewProj.
func (r *BoxRenderer) Flush(viewProj math.Mat4) {
	if len(r.lines) == 0 {
		return
	}
	stride := int(unsafe.Sizeof(lineVertex{}))

	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	if len(r.lines) > r.capacity {
		r.capacity = len(r.lines) * 2
		gl.BufferData(gl.ARRAY_BUFFER, r.capacity*stride, nil, gl.DYNAMIC_DRAW)
	}
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(r.lines)*stride, gl.Ptr(r.lines))

	gl.UseProgram(r.program)
	// Mat4 rows are contiguous, which GL reads as the columns of the
	// transpose: exactly what a column-vector shader needs.
	gl.UniformMatrix4fv(r.vpLoc, 1, false, (*float32)(unsafe.Pointer(&viewProj[0][0])))

	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.LINES, 0, int32(len(r.lines)))
	gl.BindVertexArray(0)
}

// Destroy releases all GPU resources.
func (r *BoxRenderer) Destroy() {
	gl.DeleteVertexArrays(1, &r.vao)
	gl.DeleteBuffers(1, &r.vbo)
	gl.DeleteProgram(r.program)
}

// boxEdges indexes the corners returned by AABB.Corners.
var boxEdges = [12][2]int{
	{0, 1}, {1, 3}, {3, 2}, {2, 0}, // min z
	{4, 5}, {5, 7}, {7, 6}, {6, 4}, // max z
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

var (
	shallowColor = core.Color{R: 0.2, G: 0.5, B: 1, A: 1}
	deepColor    = core.Color{R: 1, G: 0.3, B: 0.1, A: 1}
)

// DepthColor maps depth 0..maxDepth onto a blue to red ramp.
func DepthColor(depth, maxDepth int) core.Color {
	if maxDepth <= 0 {
		return shallowColor
	}
	t := float32(min(depth, maxDepth)) / float32(maxDepth)
	return shallowColor.Lerp(deepColor, t)
}

// ── shader helpers ────────────────────────────────────────────────────────────

func newProgram(vertSrc, fragSrc string) (uint32, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex: %w", err)
	}
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment: %w", err)
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		msg := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(msg))
		return 0, fmt.Errorf("link failed: %v", msg)
	}

	gl.DeleteShader(vert)
	gl.DeleteShader(frag)
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		msg := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(msg))
		return 0, fmt.Errorf("compile failed: %v", msg)
	}
	return shader, nil
}
