package debugdraw

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/debugdraw/bmfont"
	"github.com/gogpu/debugdraw/capture"
	"github.com/gogpu/debugdraw/device"
	"github.com/gogpu/debugdraw/internal/devicetest"
	"github.com/gogpu/debugdraw/internal/vertex"
	"github.com/gogpu/debugdraw/lines"
	"github.com/gogpu/debugdraw/text"
)

var testTarget = device.Target{Color: "color", ColorFormat: gputypes.TextureFormatBGRA8Unorm}

var white = mgl32.Vec4{1, 1, 1, 1}

func newTestRenderer(t *testing.T, dev *devicetest.Device, opts ...Option) *Renderer {
	t.Helper()
	r, err := New(dev, append([]Option{WithTarget(testTarget)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// linePositions decodes the positions of a line draw.
func linePositions(draw devicetest.Draw) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, draw.VertexCount)
	for i := range out {
		off := i * lines.VertexSize
		out[i] = mgl32.Vec3{
			vertex.Float32At(draw.Vertices, off),
			vertex.Float32At(draw.Vertices, off+4),
			vertex.Float32At(draw.Vertices, off+8),
		}
	}
	return out
}

func TestDrawMarker(t *testing.T) {
	dev := devicetest.New()
	r := newTestRenderer(t, dev)

	center := mgl32.Vec3{1, 2, 3}
	const size = 0.5
	r.DrawMarker(center, size, white)
	if err := r.Render(mgl32.Ident4()); err != nil {
		t.Fatal(err)
	}

	draw, ok := dev.LastDraw(lines.DrawLabel)
	if !ok {
		t.Fatal("no line draw")
	}
	pos := linePositions(draw)
	if len(pos) != 6 {
		t.Fatalf("%d vertices, want 6", len(pos))
	}
	for axis := range 3 {
		a, b := pos[2*axis], pos[2*axis+1]
		if l := b.Sub(a).Len(); l != 2*size {
			t.Errorf("axis %d: length = %v, want %v", axis, l, 2*size)
		}
		mid := a.Add(b).Mul(0.5)
		if !mid.ApproxEqual(center) {
			t.Errorf("axis %d: midpoint = %v, want %v", axis, mid, center)
		}
		for c := range 3 {
			if c != axis && (a[c] != center[c] || b[c] != center[c]) {
				t.Errorf("axis %d: segment %v-%v leaves the axis", axis, a, b)
			}
		}
	}
}

func TestRenderDrawsBothCategories(t *testing.T) {
	dev := devicetest.New()
	r := newTestRenderer(t, dev)

	r.DrawLine(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, white)
	r.DrawLine(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, white)
	r.DrawTextOnScreen("hi", image.Pt(4, 4), white)
	r.DrawTextAtPosition("there", mgl32.Vec3{0, 1, 0}, white)
	if err := r.Render(mgl32.Ident4()); err != nil {
		t.Fatal(err)
	}

	if n := dev.DrawCount(lines.DrawLabel); n != 1 {
		t.Errorf("%d line draws, want 1", n)
	}
	if n := dev.DrawCount(text.DrawLabel); n != 1 {
		t.Errorf("%d text draws, want 1", n)
	}
	if d, _ := dev.LastDraw(lines.DrawLabel); d.VertexCount != 4 {
		t.Errorf("line vertices = %d, want 4", d.VertexCount)
	}
	if d, _ := dev.LastDraw(text.DrawLabel); d.VertexCount != 7*4 || d.IndexCount != 7*6 {
		t.Errorf("text counts = %d/%d, want 28/42", d.VertexCount, d.IndexCount)
	}

	s := r.Stats()
	if s.Frames != 1 || s.Commands != 4 {
		t.Errorf("stats = %+v", s)
	}

	// A second frame without commands draws nothing.
	if err := r.Render(mgl32.Ident4()); err != nil {
		t.Fatal(err)
	}
	if n := len(dev.Draws); n != 2 {
		t.Errorf("%d draws after empty frame, want 2", n)
	}
}

func TestTextOneQuadPerRune(t *testing.T) {
	decomposed := "cafe\u0301"
	tests := []struct {
		name      string
		opts      []Option
		wantQuads int
	}{
		{"default", nil, 5},
		{"normalized", []Option{WithNormalization(true)}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := devicetest.New()
			r := newTestRenderer(t, dev, tt.opts...)
			r.DrawTextOnScreen(decomposed, image.Pt(0, 0), white)
			if err := r.Render(mgl32.Ident4()); err != nil {
				t.Fatal(err)
			}
			d, ok := dev.LastDraw(text.DrawLabel)
			if !ok {
				t.Fatal("no text draw")
			}
			if d.VertexCount != 4*tt.wantQuads || d.IndexCount != 6*tt.wantQuads {
				t.Errorf("counts = %d/%d, want %d quads", d.VertexCount, d.IndexCount, tt.wantQuads)
			}
			// The built-in font has neither the combining accent nor é.
			if s := r.Stats(); s.Text.MissingGlyphs != 1 {
				t.Errorf("missing = %d, want 1", s.Text.MissingGlyphs)
			}
		})
	}
}

func TestPipelineBuiltOncePerFormat(t *testing.T) {
	dev := devicetest.New()
	r := newTestRenderer(t, dev)

	for range 3 {
		r.DrawLine(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, white)
		r.DrawTextOnScreen("x", image.Pt(0, 0), white)
		if err := r.Render(mgl32.Ident4()); err != nil {
			t.Fatal(err)
		}
	}
	if dev.PipelinesBuilt != 2 {
		t.Errorf("pipelines built = %d, want 2", dev.PipelinesBuilt)
	}
	s := r.Stats()
	if s.Lines.PipelineBuilds != 1 || s.Text.PipelineBuilds != 1 {
		t.Errorf("builds = %d/%d, want 1/1", s.Lines.PipelineBuilds, s.Text.PipelineBuilds)
	}
	if s.Lines.PipelineHits != 2 || s.Text.PipelineHits != 2 {
		t.Errorf("hits = %d/%d, want 2/2", s.Lines.PipelineHits, s.Text.PipelineHits)
	}

	other := device.Target{Color: "other", ColorFormat: gputypes.TextureFormatRGBA8UnormSrgb}
	r.DrawLine(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, white)
	if err := r.RenderTo(mgl32.Ident4(), other); err != nil {
		t.Fatal(err)
	}
	if dev.PipelinesBuilt != 3 {
		t.Errorf("pipelines built = %d, want 3", dev.PipelinesBuilt)
	}
}

func TestRenderJoinsErrors(t *testing.T) {
	dev := devicetest.New()
	r := newTestRenderer(t, dev)
	dev.FailSubmit = true

	r.DrawLine(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, white)
	r.DrawTextOnScreen("x", image.Pt(0, 0), white)
	err := r.Render(mgl32.Ident4())
	if !errors.Is(err, ErrSubmit) {
		t.Fatalf("err = %v, want ErrSubmit", err)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 2 {
		t.Errorf("err = %v, want both categories reported", err)
	}

	// The failed frame is consumed.
	dev.FailSubmit = false
	if err := r.Render(mgl32.Ident4()); err != nil {
		t.Fatal(err)
	}
	if len(dev.Draws) != 0 {
		t.Errorf("%d draws, want 0 after a failed frame", len(dev.Draws))
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) succeeded")
	}

	tests := []struct {
		name    string
		dev     func() *devicetest.Device
		opts    []Option
		wantErr error
	}{
		{
			name:    "missing font file",
			dev:     devicetest.New,
			opts:    []Option{WithFontFile("testdata/missing.fnt")},
			wantErr: ErrFontParse,
		},
		{
			name:    "atlas mismatch",
			dev:     devicetest.New,
			opts:    []Option{WithFont(&bmfont.Font{ScaleW: 8, ScaleH: 8}, image.NewRGBA(image.Rect(0, 0, 4, 4)))},
			wantErr: ErrFontTexture,
		},
		{
			name: "program",
			dev: func() *devicetest.Device {
				d := devicetest.New()
				d.FailCompileProgram = true
				return d
			},
			wantErr: ErrPipelineState,
		},
		{
			name: "buffer",
			dev: func() *devicetest.Device {
				d := devicetest.New()
				d.FailCreateBuffer = true
				return d
			},
			wantErr: ErrBufferUpdate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := tt.dev()
			_, err := New(dev, tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if dev.ProgramsCompiled > 0 && dev.BuffersCreated != dev.BuffersDestroyed {
				t.Errorf("leaked buffers: created %d, destroyed %d", dev.BuffersCreated, dev.BuffersDestroyed)
			}
		})
	}
}

func TestClose(t *testing.T) {
	dev := devicetest.New()
	r, err := New(dev)
	if err != nil {
		t.Fatal(err)
	}
	SetDefault(r)
	q := r.Queue()

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if Default() != nil {
		t.Error("Close did not detach the default renderer")
	}
	if q.Line(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, white) {
		t.Error("push after Close accepted")
	}
	if r.Queue() != q {
		t.Error("Queue changed after Close")
	}
	if err := r.Render(mgl32.Ident4()); !errors.Is(err, ErrClosed) {
		t.Errorf("Render after Close: err = %v, want ErrClosed", err)
	}
	if dev.BuffersCreated != dev.BuffersDestroyed {
		t.Errorf("buffers created %d, destroyed %d", dev.BuffersCreated, dev.BuffersDestroyed)
	}
}

func TestResizeAndBindResize(t *testing.T) {
	dev := devicetest.New()
	r := newTestRenderer(t, dev, WithScreenSize(320, 200))

	src := &resizeSource{}
	r.BindResize(src)
	src.resize(1024, 768)

	r.DrawTextOnScreen("x", image.Pt(0, 0), white)
	if err := r.Render(mgl32.Ident4()); err != nil {
		t.Fatal(err)
	}
	draw, _ := dev.LastDraw(text.DrawLabel)
	w := vertex.Float32At(draw.Uniforms, vertex.Mat4Size)
	h := vertex.Float32At(draw.Uniforms, vertex.Mat4Size+4)
	if w != 1024 || h != 768 {
		t.Errorf("screen size = %vx%v, want 1024x768", w, h)
	}
}

type resizeSource struct {
	gpucontext.NullEventSource
	onResize func(int, int)
}

func (s *resizeSource) OnResize(fn func(int, int)) { s.onResize = fn }

func (s *resizeSource) resize(w, h int) { s.onResize(w, h) }

func TestCaptureReplay(t *testing.T) {
	var buf bytes.Buffer
	rec, err := capture.NewRecorder(&buf)
	if err != nil {
		t.Fatal(err)
	}

	dev := devicetest.New()
	r := newTestRenderer(t, dev, WithCapture(rec), WithScreenSize(640, 480))
	proj := mgl32.Ortho(0, 10, 0, 10, -1, 1)
	r.DrawLine(mgl32.Vec3{}, mgl32.Vec3{1, 2, 3}, white)
	r.Queue().Marker(mgl32.Vec3{4, 5, 6}, 1, white)
	r.DrawTextOnScreen("abc", image.Pt(3, 4), white)
	r.DrawTextAtPosition("d", mgl32.Vec3{7, 8, 9}, white)
	if err := r.Render(proj); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	frames, err := capture.ReadAll(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 1 || len(frames[0].Commands) != 4 {
		t.Fatalf("captured %d frames", len(frames))
	}
	if frames[0].Projection != proj || frames[0].ScreenWidth != 640 {
		t.Errorf("frame header = %+v", frames[0])
	}

	replayDev := devicetest.New()
	replay := newTestRenderer(t, replayDev)
	if err := replay.Replay(frames[0]); err != nil {
		t.Fatal(err)
	}
	for _, label := range []string{lines.DrawLabel, text.DrawLabel} {
		want, _ := dev.LastDraw(label)
		got, _ := replayDev.LastDraw(label)
		if !bytes.Equal(got.Vertices, want.Vertices) || !bytes.Equal(got.Uniforms, want.Uniforms) {
			t.Errorf("%s: replayed draw differs from the original", label)
		}
	}
}
