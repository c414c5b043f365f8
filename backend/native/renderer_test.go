//go:build !nogpu

package native_test

import (
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/debugdraw"
	"github.com/gogpu/debugdraw/backend/native"
	"github.com/gogpu/debugdraw/device"
)

func newNoopTarget(t *testing.T) (*native.Device, device.Target) {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	open, err := instance.EnumerateAdapters(nil)[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		open.Device.Destroy()
		instance.Destroy()
	})

	dev, err := native.New(open.Device, open.Queue)
	if err != nil {
		t.Fatalf("native.New: %v", err)
	}
	t.Cleanup(func() { _ = dev.Close() })

	makeView := func(format gputypes.TextureFormat) hal.TextureView {
		tex, err := open.Device.CreateTexture(&hal.TextureDescriptor{
			Label:         format.String(),
			Size:          hal.Extent3D{Width: 320, Height: 240, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        format,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			t.Fatalf("CreateTexture: %v", err)
		}
		view, err := open.Device.CreateTextureView(tex, &hal.TextureViewDescriptor{Format: format})
		if err != nil {
			t.Fatalf("CreateTextureView: %v", err)
		}
		return view
	}

	return dev, device.Target{
		Color:       makeView(gputypes.TextureFormatBGRA8Unorm),
		ColorFormat: gputypes.TextureFormatBGRA8Unorm,
		Depth:       makeView(gputypes.TextureFormatDepth24Plus),
		DepthFormat: gputypes.TextureFormatDepth24Plus,
	}
}

func TestRendererOnNativeDevice(t *testing.T) {
	dev, target := newNoopTarget(t)
	r, err := debugdraw.New(dev,
		debugdraw.WithTarget(target),
		debugdraw.WithScreenSize(320, 240),
		debugdraw.WithInitialCapacity(1, 1),
	)
	if err != nil {
		t.Fatalf("debugdraw.New: %v", err)
	}

	red := mgl32.Vec4{1, 0, 0, 1}
	for frame := range 3 {
		for i := range 20 {
			x := float32(i)
			r.DrawLine(mgl32.Vec3{x, 0, 0}, mgl32.Vec3{x, 1, 0}, red)
		}
		r.DrawMarker(mgl32.Vec3{0, 0, -5}, 0.5, red)
		r.DrawTextOnScreen("frame", image.Pt(4, 4), red)
		r.Queue().WorldText("origin", mgl32.Vec3{}, red)

		proj := mgl32.Perspective(mgl32.DegToRad(60), 320.0/240.0, 0.1, 100)
		if err := r.Render(proj); err != nil {
			t.Fatalf("frame %d: Render: %v", frame, err)
		}
	}

	st := r.Stats()
	if st.Frames != 3 {
		t.Errorf("Frames = %d, want 3", st.Frames)
	}
	if st.Lines.LastVertices != 2*(20+3) {
		t.Errorf("line vertices = %d, want %d", st.Lines.LastVertices, 2*(20+3))
	}
	if st.Text.LastGlyphs != len("frame")+len("origin") {
		t.Errorf("glyphs = %d, want %d", st.Text.LastGlyphs, len("frame")+len("origin"))
	}
	if st.Lines.PipelineBuilds != 1 || st.Text.PipelineBuilds != 1 {
		t.Errorf("pipeline builds = %d lines, %d text; want 1 each", st.Lines.PipelineBuilds, st.Text.PipelineBuilds)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("device Close: %v", err)
	}
	if dev.Pending() != 0 {
		t.Errorf("Pending = %d after Close", dev.Pending())
	}
}
