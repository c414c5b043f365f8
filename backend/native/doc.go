// Package native implements device.GraphicsDevice on the gogpu/wgpu HAL.
//
// Every draw call is encoded as one render pass that loads and stores the
// target's color attachment (and depth attachment when present), so the
// overlay composites over whatever the application already rendered.
//
// Shaders are WGSL. They are validated with gogpu/naga when a program is
// compiled, so a bad shader is reported at renderer construction rather
// than at the first draw.
//
// Resources released by the caller may still be referenced by submitted
// GPU work. The backend keeps them until the queue reports that the last
// submission using them has completed.
//
// Building with the nogpu tag leaves only the error values; the HAL-backed
// device is compiled out.
//
// Example with a gogpu application:
//
//	dev, err := native.NewFromProvider(app)
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//	r, err := debugdraw.New(dev, debugdraw.WithTarget(device.Target{
//	    Color:       surfaceView,
//	    ColorFormat: app.SurfaceFormat(),
//	}))
package native
