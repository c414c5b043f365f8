//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/debugdraw/device"
)

// Submit encodes call as a single render pass over call.Target and submits
// it. The pass loads existing attachment contents so the draw composites
// over the frame.
func (d *Device) Submit(call *device.DrawCall) error {
	if d.closed {
		return ErrClosed
	}
	pipe, ok := call.Pipeline.(*pipeline)
	if !ok || pipe.raw == nil {
		return fmt.Errorf("%w: %s: pipeline %T", device.ErrInvalidHandle, call.Label, call.Pipeline)
	}
	vb, ok := call.VertexBuffer.(*buffer)
	if !ok || vb.raw == nil {
		return fmt.Errorf("%w: %s: vertex buffer %T", device.ErrInvalidHandle, call.Label, call.VertexBuffer)
	}
	var ib *buffer
	if call.Indexed() {
		ib, ok = call.IndexBuffer.(*buffer)
		if !ok || ib.raw == nil {
			return fmt.Errorf("%w: %s: index buffer %T", device.ErrInvalidHandle, call.Label, call.IndexBuffer)
		}
	}
	var tex *texture
	if call.Texture != nil {
		tex, ok = call.Texture.(*texture)
		if !ok || tex.raw == nil {
			return fmt.Errorf("%w: %s: texture %T", device.ErrInvalidHandle, call.Label, call.Texture)
		}
	}
	color, ok := call.Target.Color.(hal.TextureView)
	if !ok || color == nil {
		return fmt.Errorf("%w: %s", ErrNilTarget, call.Label)
	}
	var depthView hal.TextureView
	if call.Target.Depth != nil {
		depthView, ok = call.Target.Depth.(hal.TextureView)
		if !ok {
			return fmt.Errorf("%w: %s: depth view %T", device.ErrInvalidHandle, call.Label, call.Target.Depth)
		}
	}

	prog := pipe.program
	if len(call.Uniforms) > 0 {
		if err := d.queue.WriteBuffer(prog.uniforms, 0, padded(call.Uniforms)); err != nil {
			return fmt.Errorf("%w: %s: uniforms: %w", device.ErrBufferUpdate, call.Label, err)
		}
	}
	group, err := d.bindGroup(prog, tex)
	if err != nil {
		return err
	}

	cmd, err := d.encode(call, pipe, group, vb, ib, color, depthView)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", device.ErrSubmit, call.Label, err)
	}
	index, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		d.device.FreeCommandBuffer(cmd)
		return fmt.Errorf("%w: %s: %w", device.ErrSubmit, call.Label, err)
	}

	d.lastSubmit = index
	pipe.lastUse = index
	prog.lastUse = index
	vb.lastUse = index
	if ib != nil {
		ib.lastUse = index
	}
	if tex != nil {
		tex.lastUse = index
	}
	d.deferRelease(index, func() { d.device.FreeCommandBuffer(cmd) })
	d.collect()
	return nil
}

func (d *Device) encode(call *device.DrawCall, pipe *pipeline, group hal.BindGroup,
	vb, ib *buffer, color, depth hal.TextureView,
) (hal.CommandBuffer, error) {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: call.Label})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(call.Label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	desc := &hal.RenderPassDescriptor{
		Label: call.Label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    color,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	}
	if depth != nil {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:         depth,
			DepthLoadOp:  gputypes.LoadOpLoad,
			DepthStoreOp: gputypes.StoreOpStore,
		}
	}

	pass := enc.BeginRenderPass(desc)
	pass.SetPipeline(pipe.raw)
	pass.SetBindGroup(0, group, nil)
	pass.SetVertexBuffer(0, vb.raw, 0)
	if ib != nil {
		pass.SetIndexBuffer(ib.raw, gputypes.IndexFormatUint32, 0)
		pass.DrawIndexed(uint32(call.IndexCount), 1, 0, 0, 0) //nolint:gosec // counts fit the buffer capacity
	} else {
		pass.Draw(uint32(call.VertexCount), 1, 0, 0) //nolint:gosec // counts fit the buffer capacity
	}
	pass.End()

	cmd, err := enc.EndEncoding()
	if err != nil {
		enc.DiscardEncoding()
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	return cmd, nil
}
