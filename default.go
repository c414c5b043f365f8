package debugdraw

import (
	"image"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// defaultRenderer is the renderer behind the package-level draw helpers.
var defaultRenderer atomic.Pointer[Renderer]

// SetDefault makes r the target of the package-level helpers [Line],
// [Marker], [ScreenText] and [WorldText]. Pass nil to detach. Closing the
// default renderer detaches it.
func SetDefault(r *Renderer) {
	defaultRenderer.Store(r)
}

// Default returns the renderer set by SetDefault, or nil.
func Default() *Renderer {
	return defaultRenderer.Load()
}

// Line queues a line on the default renderer. It reports whether the
// command was queued.
func Line(start, end mgl32.Vec3, color mgl32.Vec4) bool {
	if r := Default(); r != nil {
		return r.Queue().Line(start, end, color)
	}
	return false
}

// Marker queues a marker on the default renderer.
func Marker(center mgl32.Vec3, size float32, color mgl32.Vec4) bool {
	if r := Default(); r != nil {
		return r.Queue().Marker(center, size, color)
	}
	return false
}

// ScreenText queues a screen-anchored label on the default renderer.
func ScreenText(s string, pos image.Point, color mgl32.Vec4) bool {
	if r := Default(); r != nil {
		return r.Queue().ScreenText(s, pos, color)
	}
	return false
}

// WorldText queues a world-anchored label on the default renderer.
func WorldText(s string, world mgl32.Vec3, color mgl32.Vec4) bool {
	if r := Default(); r != nil {
		return r.Queue().WorldText(s, world, color)
	}
	return false
}
