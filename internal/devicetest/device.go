// Package devicetest provides a recording GraphicsDevice for tests.
package devicetest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/debugdraw/device"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("devicetest: injected failure")

// Device records every call and keeps buffer contents in memory.
// Failure injection fields are read on each call.
type Device struct {
	mu sync.Mutex

	FailCreateBuffer   bool
	FailWriteBuffer    bool
	FailCreateTexture  bool
	FailCompileProgram bool
	FailCreatePipeline bool
	FailSubmit         bool

	BuffersCreated   int
	BuffersDestroyed int
	Writes           int
	TexturesCreated  int
	ProgramsCompiled int
	PipelinesBuilt   int
	Pipelines        []*Pipeline

	Draws []Draw
}

// Draw is a recorded submission. Vertex and index data is copied out of the
// bound buffers at submit time.
type Draw struct {
	Label       string
	Format      device.TargetFormat
	Pipeline    *Pipeline
	VertexCount int
	IndexCount  int
	Vertices    []byte
	Indices     []byte
	Uniforms    []byte
	Textured    bool
}

// Buffer is an in-memory buffer.
type Buffer struct {
	desc      device.BufferDescriptor
	Data      []byte
	Destroyed bool
}

func (b *Buffer) Descriptor() device.BufferDescriptor { return b.desc }
func (b *Buffer) Capacity() int                       { return b.desc.Capacity }

// Texture is an in-memory texture.
type Texture struct {
	Desc      device.TextureDescriptor
	Destroyed bool
}

func (t *Texture) Size() (int, int) { return t.Desc.Width, t.Desc.Height }

// Program is a recorded program.
type Program struct {
	Desc      device.ProgramDescriptor
	Destroyed bool
}

func (p *Program) Label() string { return p.Desc.Label }

// Pipeline is a recorded pipeline.
type Pipeline struct {
	Program   *Program
	Desc      device.PipelineDescriptor
	Destroyed bool
}

func (p *Pipeline) Format() device.TargetFormat { return p.Desc.Format }

// New returns an empty recording device.
func New() *Device {
	return &Device{}
}

func (d *Device) CreateBuffer(desc *device.BufferDescriptor) (device.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCreateBuffer {
		return nil, ErrInjected
	}
	d.BuffersCreated++
	return &Buffer{desc: *desc, Data: make([]byte, desc.Size())}, nil
}

func (d *Device) DestroyBuffer(buf device.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := buf.(*Buffer); ok && !b.Destroyed {
		b.Destroyed = true
		d.BuffersDestroyed++
	}
}

func (d *Device) WriteBuffer(buf device.Buffer, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailWriteBuffer {
		return ErrInjected
	}
	b, ok := buf.(*Buffer)
	if !ok {
		return device.ErrInvalidHandle
	}
	if b.Destroyed {
		return fmt.Errorf("devicetest: write to destroyed buffer %q", b.desc.Label)
	}
	if len(data) > len(b.Data) {
		return fmt.Errorf("devicetest: write of %d bytes overflows %d byte buffer", len(data), len(b.Data))
	}
	copy(b.Data, data)
	d.Writes++
	return nil
}

func (d *Device) CreateTexture(desc *device.TextureDescriptor) (device.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCreateTexture {
		return nil, ErrInjected
	}
	d.TexturesCreated++
	return &Texture{Desc: *desc}, nil
}

func (d *Device) DestroyTexture(tex device.Texture) {
	if t, ok := tex.(*Texture); ok {
		t.Destroyed = true
	}
}

func (d *Device) CompileProgram(desc *device.ProgramDescriptor) (device.Program, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCompileProgram {
		return nil, ErrInjected
	}
	d.ProgramsCompiled++
	return &Program{Desc: *desc}, nil
}

func (d *Device) DestroyProgram(p device.Program) {
	if pr, ok := p.(*Program); ok {
		pr.Destroyed = true
	}
}

func (d *Device) CreatePipeline(p device.Program, desc *device.PipelineDescriptor) (device.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCreatePipeline {
		return nil, ErrInjected
	}
	prog, ok := p.(*Program)
	if !ok {
		return nil, device.ErrInvalidHandle
	}
	pl := &Pipeline{Program: prog, Desc: *desc}
	d.PipelinesBuilt++
	d.Pipelines = append(d.Pipelines, pl)
	return pl, nil
}

func (d *Device) DestroyPipeline(p device.Pipeline) {
	if pl, ok := p.(*Pipeline); ok {
		pl.Destroyed = true
	}
}

func (d *Device) Submit(call *device.DrawCall) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailSubmit {
		return ErrInjected
	}
	pl, ok := call.Pipeline.(*Pipeline)
	if !ok {
		return device.ErrInvalidHandle
	}
	vb, ok := call.VertexBuffer.(*Buffer)
	if !ok {
		return device.ErrInvalidHandle
	}
	stride := vb.desc.Stride
	if call.VertexCount > vb.desc.Capacity {
		return fmt.Errorf("devicetest: %d vertices exceed capacity %d", call.VertexCount, vb.desc.Capacity)
	}
	draw := Draw{
		Label:       call.Label,
		Format:      call.Target.Format(),
		Pipeline:    pl,
		VertexCount: call.VertexCount,
		Vertices:    append([]byte(nil), vb.Data[:call.VertexCount*stride]...),
		Uniforms:    append([]byte(nil), call.Uniforms...),
		Textured:    call.Texture != nil,
	}
	if call.Indexed() {
		ib, ok := call.IndexBuffer.(*Buffer)
		if !ok {
			return device.ErrInvalidHandle
		}
		if call.IndexCount > ib.desc.Capacity {
			return fmt.Errorf("devicetest: %d indices exceed capacity %d", call.IndexCount, ib.desc.Capacity)
		}
		draw.IndexCount = call.IndexCount
		draw.Indices = append([]byte(nil), ib.Data[:call.IndexCount*ib.desc.Stride]...)
	}
	d.Draws = append(d.Draws, draw)
	return nil
}

// LastDraw returns the most recent draw with the given label.
func (d *Device) LastDraw(label string) (Draw, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.Draws) - 1; i >= 0; i-- {
		if d.Draws[i].Label == label {
			return d.Draws[i], true
		}
	}
	return Draw{}, false
}

// DrawCount returns the number of draws recorded with the given label.
func (d *Device) DrawCount(label string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, dr := range d.Draws {
		if dr.Label == label {
			n++
		}
	}
	return n
}

var _ device.GraphicsDevice = (*Device)(nil)
