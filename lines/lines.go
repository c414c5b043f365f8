// Package lines batches debug line segments and draws them as a single
// line-list per frame.
package lines

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/debugdraw/device"
	"github.com/gogpu/debugdraw/internal/buffer"
	"github.com/gogpu/debugdraw/internal/pipeline"
	"github.com/gogpu/debugdraw/internal/vertex"
)

//go:embed shaders/lines.wgsl
var shaderSource string

// VertexSize is the byte size of one serialized Vertex:
// position vec3<f32> + color vec4<f32>.
const VertexSize = 28

// DrawLabel identifies line draw calls.
const DrawLabel = "debugdraw_lines"

// Vertex is one end of a line segment.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec4
}

// Layout returns the vertex buffer layout matching Vertex.
func Layout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: VertexSize,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 1},
		},
	}
}

// Config configures a Renderer.
type Config struct {
	// InitialCapacity is the starting vertex buffer size in vertices.
	// Default: 1024.
	InitialCapacity int

	// Depth controls depth testing and writing against the target's depth
	// attachment.
	Depth device.DepthState

	// Blend is the color blend state. Nil draws opaque.
	Blend *gputypes.BlendState

	// Logger receives debug diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default line configuration: alpha blending,
// depth tested against LessEqual without depth writes.
func DefaultConfig() Config {
	blend := gputypes.BlendStateAlpha()
	return Config{
		InitialCapacity: 1024,
		Depth:           device.DepthState{Test: true, Compare: gputypes.CompareFunctionLessEqual},
		Blend:           &blend,
	}
}

// Stats reports renderer activity.
type Stats struct {
	Draws          int // draw calls submitted
	LastVertices   int // vertices in the most recent batch
	TotalVertices  int // vertices drawn since creation
	BufferGrows    int
	Capacity       int
	PipelineBuilds int
	PipelineHits   int // renders that reused a built pipeline
}

// Renderer accumulates line vertices and draws them once per Render.
//
// Renderer is not safe for concurrent use.
type Renderer struct {
	dev       device.GraphicsDevice
	program   device.Program
	pipelines *pipeline.Cache
	vertices  *buffer.Dynamic
	logger    *slog.Logger

	pending  []Vertex
	scratch  []byte
	uniforms [vertex.Mat4Size]byte
	stats    Stats
}

// New compiles the line program and allocates the vertex buffer.
func New(dev device.GraphicsDevice, cfg Config) (*Renderer, error) {
	if dev == nil {
		return nil, errors.New("lines: nil device")
	}
	if cfg.InitialCapacity <= 0 {
		cfg.InitialCapacity = DefaultConfig().InitialCapacity
	}

	program, err := dev.CompileProgram(&device.ProgramDescriptor{
		Label:         "debugdraw_lines",
		Source:        shaderSource,
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
		Layout:        Layout(),
		UniformSize:   vertex.Mat4Size,
	})
	if err != nil {
		return nil, fmt.Errorf("lines: %w: compile program: %w", device.ErrPipelineState, err)
	}

	vertices, err := buffer.NewDynamic(dev, device.BufferDescriptor{
		Label:    "debugdraw_lines_vertices",
		Usage:    device.BufferVertex,
		Stride:   VertexSize,
		Capacity: cfg.InitialCapacity,
	}, cfg.Logger)
	if err != nil {
		dev.DestroyProgram(program)
		return nil, fmt.Errorf("lines: %w", err)
	}

	return &Renderer{
		dev:     dev,
		program: program,
		pipelines: pipeline.New(dev, program, device.PipelineDescriptor{
			Label:    "debugdraw_lines",
			Topology: gputypes.PrimitiveTopologyLineList,
			Blend:    cfg.Blend,
			Depth:    cfg.Depth,
		}, cfg.Logger),
		vertices: vertices,
		logger:   cfg.Logger,
	}, nil
}

// DrawLine queues a segment from start to end.
func (r *Renderer) DrawLine(start, end mgl32.Vec3, color mgl32.Vec4) {
	r.pending = append(r.pending,
		Vertex{Position: start, Color: color},
		Vertex{Position: end, Color: color})
}

// Pending returns the number of queued vertices.
func (r *Renderer) Pending() int { return len(r.pending) }

// Render uploads the queued vertices and draws them into target using
// projection as the model-view-projection matrix. The batch is cleared
// whether or not drawing succeeds. An empty batch draws nothing.
func (r *Renderer) Render(projection mgl32.Mat4, target device.Target) error {
	defer r.clear()

	n := len(r.pending)
	if n == 0 {
		return nil
	}

	r.scratch = r.scratch[:0]
	for _, v := range r.pending {
		r.scratch = vertex.AppendFloat32(r.scratch,
			v.Position[0], v.Position[1], v.Position[2],
			v.Color[0], v.Color[1], v.Color[2], v.Color[3])
	}
	growsBefore := r.vertices.Grows()
	err := r.vertices.Upload(r.scratch, n)
	r.stats.BufferGrows += r.vertices.Grows() - growsBefore
	if err != nil {
		return fmt.Errorf("lines: upload %d vertices: %w", n, err)
	}

	p, err := r.pipelines.Get(target.Format())
	if err != nil {
		return fmt.Errorf("lines: %w", err)
	}

	vertex.PutMat4(r.uniforms[:], projection)
	err = r.dev.Submit(&device.DrawCall{
		Label:        DrawLabel,
		Pipeline:     p,
		Target:       target,
		VertexBuffer: r.vertices.Buffer(),
		VertexCount:  n,
		Uniforms:     r.uniforms[:],
	})
	if err != nil {
		return fmt.Errorf("lines: %w: %w", device.ErrSubmit, err)
	}

	r.stats.Draws++
	r.stats.LastVertices = n
	r.stats.TotalVertices += n
	return nil
}

func (r *Renderer) clear() {
	r.pending = r.pending[:0]
}

// Stats returns renderer activity counters.
func (r *Renderer) Stats() Stats {
	s := r.stats
	s.PipelineBuilds = r.pipelines.Builds()
	s.PipelineHits = r.pipelines.Hits()
	if r.vertices.Buffer() != nil {
		s.Capacity = r.vertices.Capacity()
	}
	return s
}

// Close releases the program, pipelines and vertex buffer.
func (r *Renderer) Close() {
	r.pipelines.Close()
	r.vertices.Release()
	if r.program != nil {
		r.dev.DestroyProgram(r.program)
		r.program = nil
	}
}
