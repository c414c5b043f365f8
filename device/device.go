// Package device defines the graphics capability interface the debug
// renderers draw through.
//
// A GraphicsDevice hides the concrete GPU API behind the handful of
// operations the line and text batches need: buffers, one atlas texture,
// compiled shader programs, per-format pipelines and draw submission. The
// hal-backed implementation lives in backend/native; tests use the recording
// device in internal/devicetest.
package device

import (
	"github.com/gogpu/gputypes"
)

// GraphicsDevice is the capability interface consumed by the batch renderers.
//
// Implementations are not required to be safe for concurrent use. The
// renderers call them from the single goroutine that drives Render.
type GraphicsDevice interface {
	// CreateBuffer allocates a GPU buffer holding desc.Capacity elements of
	// desc.Stride bytes each.
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)

	// DestroyBuffer releases a buffer. Implementations may defer the actual
	// release until in-flight GPU work that references it has completed.
	DestroyBuffer(buf Buffer)

	// WriteBuffer uploads data at offset 0, overwriting previous contents.
	WriteBuffer(buf Buffer, data []byte) error

	// CreateTexture uploads an RGBA8 texture used for sampling.
	CreateTexture(desc *TextureDescriptor) (Texture, error)

	// DestroyTexture releases a texture.
	DestroyTexture(tex Texture)

	// CompileProgram compiles and links a shader program.
	CompileProgram(desc *ProgramDescriptor) (Program, error)

	// DestroyProgram releases a program and everything bound to it.
	DestroyProgram(p Program)

	// CreatePipeline builds a pipeline state for one output format.
	CreatePipeline(p Program, desc *PipelineDescriptor) (Pipeline, error)

	// DestroyPipeline releases a pipeline.
	DestroyPipeline(p Pipeline)

	// Submit records and submits one draw call.
	Submit(call *DrawCall) error
}

// BufferUsage tells the device how a buffer is bound.
type BufferUsage uint8

const (
	// BufferVertex marks a vertex buffer.
	BufferVertex BufferUsage = iota + 1
	// BufferIndex marks a uint32 index buffer.
	BufferIndex
)

// String returns the usage name.
func (u BufferUsage) String() string {
	switch u {
	case BufferVertex:
		return "vertex"
	case BufferIndex:
		return "index"
	default:
		return "unknown"
	}
}

// BufferDescriptor describes a buffer to allocate.
type BufferDescriptor struct {
	Label    string
	Usage    BufferUsage
	Stride   int // bytes per element
	Capacity int // elements
}

// Size returns the allocation size in bytes.
func (d *BufferDescriptor) Size() uint64 {
	return uint64(d.Stride) * uint64(d.Capacity)
}

// Buffer is an opaque GPU buffer handle.
type Buffer interface {
	// Descriptor returns the descriptor the buffer was created with.
	Descriptor() BufferDescriptor
	// Capacity returns the buffer size in elements.
	Capacity() int
}

// TextureDescriptor describes a sampled RGBA8 texture.
// Pixels holds Width*Height*4 bytes, rows top to bottom.
type TextureDescriptor struct {
	Label  string
	Width  int
	Height int
	Pixels []byte
}

// Texture is an opaque sampled texture handle.
type Texture interface {
	Size() (width, height int)
}

// ProgramDescriptor describes a WGSL shader program and the resources it binds.
//
// Bind group 0 always holds the uniform block at binding 0. Textured
// programs additionally bind a sampled texture at binding 1 and a sampler
// at binding 2.
type ProgramDescriptor struct {
	Label         string
	Source        string // WGSL
	VertexEntry   string
	FragmentEntry string
	Layout        gputypes.VertexBufferLayout
	UniformSize   uint64
	Textured      bool
}

// Program is an opaque compiled shader program.
type Program interface {
	Label() string
}

// Pipeline is an opaque pipeline state object specialized for one
// TargetFormat.
type Pipeline interface {
	Format() TargetFormat
}
