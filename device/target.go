package device

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// TextureView is a device-specific render target view. The native backend
// expects a hal.TextureView.
type TextureView any

// Target is the output a batch is rendered into.
// Depth is nil when the target has no depth attachment.
type Target struct {
	Color       TextureView
	ColorFormat gputypes.TextureFormat
	Depth       TextureView
	DepthFormat gputypes.TextureFormat
}

// Format returns the pipeline cache key for the target.
func (t Target) Format() TargetFormat {
	f := TargetFormat{Color: t.ColorFormat}
	if t.Depth != nil {
		f.Depth = t.DepthFormat
	}
	return f
}

// TargetFormat identifies the output pixel encoding a pipeline is built for.
// It is comparable and used as a map key.
type TargetFormat struct {
	Color gputypes.TextureFormat
	Depth gputypes.TextureFormat // TextureFormatUndefined when no depth attachment
}

// HasDepth reports whether the format includes a depth attachment.
func (f TargetFormat) HasDepth() bool {
	return f.Depth != gputypes.TextureFormatUndefined
}

func (f TargetFormat) String() string {
	if !f.HasDepth() {
		return fmt.Sprintf("%v", f.Color)
	}
	return fmt.Sprintf("%v+%v", f.Color, f.Depth)
}

// DepthState configures depth testing for a pipeline. It only applies when
// the target has a depth attachment.
type DepthState struct {
	Test    bool
	Write   bool
	Compare gputypes.CompareFunction // defaults to LessEqual
}

// CompareFunc returns the comparison used when testing is enabled.
func (d DepthState) CompareFunc() gputypes.CompareFunction {
	if !d.Test {
		return gputypes.CompareFunctionAlways
	}
	if d.Compare == gputypes.CompareFunctionUndefined {
		return gputypes.CompareFunctionLessEqual
	}
	return d.Compare
}

// PipelineDescriptor holds the per-format pipeline configuration.
type PipelineDescriptor struct {
	Label    string
	Format   TargetFormat
	Topology gputypes.PrimitiveTopology
	Blend    *gputypes.BlendState // nil disables blending
	Depth    DepthState
}

// DrawCall describes a single draw submission. IndexBuffer is nil for
// non-indexed draws.
type DrawCall struct {
	Label        string
	Pipeline     Pipeline
	Target       Target
	VertexBuffer Buffer
	VertexCount  int
	IndexBuffer  Buffer
	IndexCount   int
	Uniforms     []byte
	Texture      Texture
}

// Indexed reports whether the draw uses an index buffer.
func (c *DrawCall) Indexed() bool {
	return c.IndexBuffer != nil
}
