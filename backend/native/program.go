//go:build !nogpu

package native

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/debugdraw/device"
)

// Bind group 0 layout shared by every program.
const (
	bindingUniforms = 0
	bindingTexture  = 1
	bindingSampler  = 2
)

// program holds a shader module and the layouts every pipeline built from
// it shares. Textured programs also own a sampler. Bind groups are cached
// per texture.
type program struct {
	desc       device.ProgramDescriptor
	module     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	uniforms   hal.Buffer
	sampler    hal.Sampler
	groups     map[*texture]hal.BindGroup
	lastUse    uint64
}

func (p *program) Label() string { return p.desc.Label }

// CompileProgram validates desc.Source with naga and creates the shader
// module, bind group layout, pipeline layout and uniform buffer. Shader
// errors wrap device.ErrPipelineState.
func (d *Device) CompileProgram(desc *device.ProgramDescriptor) (device.Program, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if _, err := naga.Compile(desc.Source); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", device.ErrPipelineState, desc.Label, err)
	}

	p := &program{desc: *desc}
	ok := false
	defer func() {
		if !ok {
			d.destroyProgram(p)
		}
	}()

	var err error
	p.module, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label + "_shader",
		Source: hal.ShaderSource{WGSL: desc.Source},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: shader module: %w", device.ErrPipelineState, desc.Label, err)
	}

	entries := []gputypes.BindGroupLayoutEntry{{
		Binding:    bindingUniforms,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}}
	if desc.Textured {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    bindingTexture,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    bindingSampler,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}
	p.layout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: bind group layout: %w", device.ErrPipelineState, desc.Label, err)
	}
	p.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.layout},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: pipeline layout: %w", device.ErrPipelineState, desc.Label, err)
	}

	p.uniforms, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label + "_uniforms",
		Size:  align4(desc.UniformSize),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: uniform buffer: %w", device.ErrBufferUpdate, desc.Label, err)
	}

	if desc.Textured {
		p.sampler, err = d.device.CreateSampler(&hal.SamplerDescriptor{
			Label:        desc.Label + "_sampler",
			AddressModeU: gputypes.AddressModeClampToEdge,
			AddressModeV: gputypes.AddressModeClampToEdge,
			AddressModeW: gputypes.AddressModeClampToEdge,
			MagFilter:    gputypes.FilterModeNearest,
			MinFilter:    gputypes.FilterModeNearest,
			MipmapFilter: gputypes.FilterModeNearest,
			Anisotropy:   1,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: sampler: %w", device.ErrPipelineState, desc.Label, err)
		}
		p.groups = make(map[*texture]hal.BindGroup)
	}

	ok = true
	d.logger.Debug("native: program compiled", slog.String("label", desc.Label))
	return p, nil
}

// DestroyProgram releases prog and its cached bind groups once the GPU no
// longer uses them.
func (d *Device) DestroyProgram(prog device.Program) {
	p, ok := prog.(*program)
	if !ok || p.module == nil {
		return
	}
	released := *p
	p.module = nil
	d.deferRelease(p.lastUse, func() { d.destroyProgram(&released) })
}

func (d *Device) destroyProgram(p *program) {
	for _, g := range p.groups {
		d.device.DestroyBindGroup(g)
	}
	clear(p.groups)
	if p.sampler != nil {
		d.device.DestroySampler(p.sampler)
	}
	if p.uniforms != nil {
		d.device.DestroyBuffer(p.uniforms)
	}
	if p.pipeLayout != nil {
		d.device.DestroyPipelineLayout(p.pipeLayout)
	}
	if p.layout != nil {
		d.device.DestroyBindGroupLayout(p.layout)
	}
	if p.module != nil {
		d.device.DestroyShaderModule(p.module)
	}
}

// bindGroup returns the bind group for tex, creating it on first use.
// Untextured programs use a single group keyed by nil.
func (d *Device) bindGroup(p *program, tex *texture) (hal.BindGroup, error) {
	if g, ok := p.groups[tex]; ok {
		return g, nil
	}
	entries := []gputypes.BindGroupEntry{{
		Binding: bindingUniforms,
		Resource: gputypes.BufferBinding{
			Buffer: p.uniforms.NativeHandle(),
			Size:   align4(p.desc.UniformSize),
		},
	}}
	if p.desc.Textured {
		if tex == nil || tex.view == nil {
			return nil, fmt.Errorf("%w: %s: textured program drawn without a texture", device.ErrInvalidHandle, p.desc.Label)
		}
		entries = append(entries,
			gputypes.BindGroupEntry{
				Binding:  bindingTexture,
				Resource: gputypes.TextureViewBinding{TextureView: tex.view.NativeHandle()},
			},
			gputypes.BindGroupEntry{
				Binding:  bindingSampler,
				Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()},
			},
		)
	}
	g, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   p.desc.Label + "_bind_group",
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("native: %s: create bind group: %w", p.desc.Label, err)
	}
	if p.groups == nil {
		p.groups = make(map[*texture]hal.BindGroup)
	}
	p.groups[tex] = g
	if tex != nil {
		tex.users = append(tex.users, p)
	}
	return g, nil
}

// pipeline is a render pipeline specialized for one target format.
type pipeline struct {
	raw     hal.RenderPipeline
	format  device.TargetFormat
	program *program
	lastUse uint64
}

func (p *pipeline) Format() device.TargetFormat { return p.format }

// CreatePipeline builds a render pipeline for desc.Format. A depth-stencil
// state is attached only when the format has a depth attachment.
func (d *Device) CreatePipeline(prog device.Program, desc *device.PipelineDescriptor) (device.Pipeline, error) {
	if d.closed {
		return nil, ErrClosed
	}
	p, ok := prog.(*program)
	if !ok || p.module == nil {
		return nil, fmt.Errorf("%w: program %T", device.ErrInvalidHandle, prog)
	}

	var depth *hal.DepthStencilState
	if desc.Format.HasDepth() {
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		depth = &hal.DepthStencilState{
			Format:            desc.Format.Depth,
			DepthWriteEnabled: desc.Depth.Test && desc.Depth.Write,
			DepthCompare:      desc.Depth.CompareFunc(),
			StencilFront:      keep,
			StencilBack:       keep,
		}
	}

	raw, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: p.desc.VertexEntry,
			Buffers:    []gputypes.VertexBufferLayout{p.desc.Layout},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: desc.Topology,
			CullMode: gputypes.CullModeNone,
		},
		DepthStencil: depth,
		Multisample:  gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: p.desc.FragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    desc.Format.Color,
				Blend:     desc.Blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s for %v: %w", device.ErrPipelineState, desc.Label, desc.Format, err)
	}
	d.logger.Debug("native: pipeline created",
		slog.String("label", desc.Label),
		slog.String("format", desc.Format.String()))
	return &pipeline{raw: raw, format: desc.Format, program: p}, nil
}

// DestroyPipeline releases pipe once the GPU no longer uses it.
func (d *Device) DestroyPipeline(pipe device.Pipeline) {
	p, ok := pipe.(*pipeline)
	if !ok || p.raw == nil {
		return
	}
	raw := p.raw
	p.raw = nil
	d.deferRelease(p.lastUse, func() { d.device.DestroyRenderPipeline(raw) })
}
