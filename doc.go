// Package debugdraw provides an immediate-mode debug overlay for real-time
// 3D applications.
//
// # Overview
//
// Each frame, callers queue short-lived primitives: lines, axis markers,
// screen-anchored text and world-anchored text. Render batches everything
// queued since the previous frame, uploads it into GPU buffers that grow
// on demand, and draws it with at most one draw call per primitive
// category. Nothing persists between frames.
//
// # Quick Start
//
//	r, err := debugdraw.New(dev, debugdraw.WithTarget(target))
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	// Every frame:
//	r.DrawLine(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec4{1, 0, 0, 1})
//	r.DrawMarker(mgl32.Vec3{0, 0, 5}, 0.25, mgl32.Vec4{0, 1, 0, 1})
//	r.DrawTextOnScreen("fps 60", image.Pt(8, 8), mgl32.Vec4{1, 1, 1, 1})
//	r.DrawTextAtPosition("spawn", mgl32.Vec3{0, 2, 0}, mgl32.Vec4{1, 1, 0, 1})
//	if err := r.Render(proj.Mul4(view)); err != nil {
//	    log.Print(err)
//	}
//
// # Devices
//
// The renderer draws through a [device.GraphicsDevice]. The backend/native
// package implements it on gogpu/wgpu's hal layer; internal tests use a
// recording fake.
//
// # Concurrency
//
// Renderer methods belong to the render goroutine. Other goroutines push
// commands through [Renderer.Queue], or through the package-level helpers
// after [SetDefault]. Queued commands are drawn by the next Render in the
// order they were pushed.
//
// # Errors
//
// Errors wrap one of [ErrFontParse], [ErrFontTexture], [ErrPipelineState],
// [ErrBufferUpdate] or [ErrSubmit]. A failed Render still consumes the
// frame's commands.
package debugdraw
