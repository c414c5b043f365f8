package debugdraw

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/debugdraw/capture"
	"github.com/gogpu/debugdraw/device"
	"github.com/gogpu/debugdraw/lines"
	"github.com/gogpu/debugdraw/text"
)

// Renderer is an immediate-mode debug overlay. Draw calls queue primitives
// for the current frame; Render draws everything queued since the previous
// Render and starts a new frame.
//
// Renderer methods must be called from one goroutine, the one that owns the
// device. Other goroutines queue work through [Renderer.Queue].
type Renderer struct {
	dev    device.GraphicsDevice
	lines  *lines.Renderer
	text   *text.Renderer
	target device.Target
	logger *slog.Logger

	queueOnce sync.Once
	queue     *CommandQueue

	pending  []Command
	capture  *capture.Recorder
	closed   bool
	frames   uint64
	commands int
}

// New creates a renderer drawing through dev. Construction errors wrap
// ErrFontParse, ErrFontTexture, ErrPipelineState or ErrBufferUpdate.
func New(dev device.GraphicsDevice, opts ...Option) (*Renderer, error) {
	if dev == nil {
		return nil, errors.New("debugdraw: nil device")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = Logger()
	}

	font, atlas, err := o.loadFont()
	if err != nil {
		return nil, fmt.Errorf("debugdraw: load font: %w", err)
	}

	o.lines.Logger = logger
	o.text.Logger = logger
	lr, err := lines.New(dev, o.lines)
	if err != nil {
		return nil, fmt.Errorf("debugdraw: %w", err)
	}
	tr, err := text.New(dev, font, atlas, o.text)
	if err != nil {
		lr.Close()
		return nil, fmt.Errorf("debugdraw: %w", err)
	}

	r := &Renderer{
		dev:     dev,
		lines:   lr,
		text:    tr,
		logger:  logger,
		capture: o.capture,
	}
	if o.target != nil {
		r.target = *o.target
	}

	w, h := tr.ScreenSize()
	logger.Info("debugdraw: renderer created",
		slog.Int("glyphs", font.Len()),
		slog.Int("screen_width", w),
		slog.Int("screen_height", h))
	return r, nil
}

// Queue returns the renderer's command queue, creating it on first use.
// The queue is safe for concurrent producers and is drained by Render.
func (r *Renderer) Queue() *CommandQueue {
	r.queueOnce.Do(func() {
		r.queue = &CommandQueue{}
	})
	return r.queue
}

// DrawLine queues a line segment from start to end.
func (r *Renderer) DrawLine(start, end mgl32.Vec3, color mgl32.Vec4) {
	r.pending = append(r.pending, Command{Kind: CommandLine, Start: start, End: end, Color: color})
}

// DrawMarker queues three axis-aligned segments of length 2*size crossing
// at center.
func (r *Renderer) DrawMarker(center mgl32.Vec3, size float32, color mgl32.Vec4) {
	r.pending = append(r.pending, Command{Kind: CommandMarker, Start: center, Size: size, Color: color})
}

// DrawTextOnScreen queues a label with its top-left origin at pos, in
// pixels from the top-left corner of the target.
func (r *Renderer) DrawTextOnScreen(s string, pos image.Point, color mgl32.Vec4) {
	r.pending = append(r.pending, Command{Kind: CommandScreenText, Pos: pos, Text: s, Color: color})
}

// DrawTextAtPosition queues a label anchored at a world position. The label
// keeps a constant pixel size.
func (r *Renderer) DrawTextAtPosition(s string, world mgl32.Vec3, color mgl32.Vec4) {
	r.pending = append(r.pending, Command{Kind: CommandWorldText, Start: world, Text: s, Color: color})
}

// SetTarget sets the target used by Render.
func (r *Renderer) SetTarget(target device.Target) {
	r.target = target
}

// Target returns the target used by Render.
func (r *Renderer) Target() device.Target { return r.target }

// Resize updates the screen size used to place text.
func (r *Renderer) Resize(width, height int) {
	r.text.Resize(width, height)
}

// BindResize calls Resize whenever src reports a new window size. src must
// deliver events on the goroutine that renders.
func (r *Renderer) BindResize(src gpucontext.EventSource) {
	src.OnResize(r.Resize)
}

// SetCapture records every subsequent frame to rec. Pass nil to stop
// recording. The renderer closes the active recorder when it is closed.
func (r *Renderer) SetCapture(rec *capture.Recorder) {
	r.capture = rec
}

// Render draws the current frame into the target set by SetTarget or
// WithTarget. See RenderTo.
func (r *Renderer) Render(projection mgl32.Mat4) error {
	return r.RenderTo(projection, r.target)
}

// RenderTo draws every command queued since the last frame into target,
// transformed by projection, and starts a new frame. Queued commands are
// consumed even when drawing fails. Line and text failures are joined.
func (r *Renderer) RenderTo(projection mgl32.Mat4, target device.Target) error {
	if r.closed {
		return ErrClosed
	}
	cmds := r.Queue().drain(r.pending)
	r.pending = cmds[:0]

	r.record(projection, cmds)
	for _, c := range cmds {
		r.apply(c)
	}
	clear(cmds)

	err := errors.Join(
		r.lines.Render(projection, target),
		r.text.Render(projection, target),
	)
	r.frames++
	r.commands = len(cmds)

	if err != nil {
		r.logger.Warn("debugdraw: frame failed", slog.Uint64("frame", r.frames), slog.Any("err", err))
		return err
	}
	if r.logger.Enabled(context.Background(), slog.LevelDebug) {
		r.logger.Debug("debugdraw: frame rendered", slog.Any("stats", r.Stats()))
	}
	return nil
}

// Replay renders a recorded frame: it resizes to the recorded screen size,
// queues the recorded commands and renders them with the recorded
// projection into the current target.
func (r *Renderer) Replay(f capture.Frame) error {
	if f.ScreenWidth > 0 && f.ScreenHeight > 0 {
		r.Resize(f.ScreenWidth, f.ScreenHeight)
	}
	for _, c := range f.Commands {
		r.pending = append(r.pending, commandFromRecord(c))
	}
	return r.Render(f.Projection)
}

func (r *Renderer) apply(c Command) {
	switch c.Kind {
	case CommandLine:
		r.lines.DrawLine(c.Start, c.End, c.Color)
	case CommandMarker:
		for axis := range 3 {
			var d mgl32.Vec3
			d[axis] = c.Size
			r.lines.DrawLine(c.Start.Sub(d), c.Start.Add(d), c.Color)
		}
	case CommandScreenText:
		r.text.DrawTextOnScreen(c.Text, c.Pos, c.Color)
	case CommandWorldText:
		r.text.DrawTextAtPosition(c.Text, c.Start, c.Color)
	}
}

func (r *Renderer) record(projection mgl32.Mat4, cmds []Command) {
	if r.capture == nil {
		return
	}
	w, h := r.text.ScreenSize()
	f := capture.Frame{
		Projection:   projection,
		ScreenWidth:  w,
		ScreenHeight: h,
		Commands:     make([]capture.Command, len(cmds)),
	}
	for i, c := range cmds {
		f.Commands[i] = c.record()
	}
	if err := r.capture.Record(f); err != nil {
		r.logger.Warn("debugdraw: capture failed", slog.Any("err", err))
	}
}

// Close releases every GPU resource held by the renderer, closes its
// queue and active capture, and detaches it from the package-level
// helpers. Close is idempotent.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.Queue().close()
	defaultRenderer.CompareAndSwap(r, nil)

	r.lines.Close()
	r.text.Close()
	r.pending = nil

	if r.capture != nil {
		err := r.capture.Close()
		r.capture = nil
		if err != nil {
			return fmt.Errorf("debugdraw: %w", err)
		}
	}
	return nil
}
