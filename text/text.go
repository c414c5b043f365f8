// Package text batches debug text labels into textured quads sampled from a
// bitmap font atlas and draws them with one indexed draw per frame.
//
// Labels are either screen-anchored, placed in pixels from the viewport's
// top-left corner, or world-anchored, placed at a projected 3D point and
// drawn at a constant pixel size. Both kinds share one batch.
package text

import (
	_ "embed"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/debugdraw/bmfont"
	"github.com/gogpu/debugdraw/device"
	"github.com/gogpu/debugdraw/internal/buffer"
	"github.com/gogpu/debugdraw/internal/pipeline"
	"github.com/gogpu/debugdraw/internal/vertex"
)

//go:embed shaders/text.wgsl
var shaderSource string

const (
	// VertexSize is the byte size of one serialized Vertex.
	VertexSize = 48

	// IndexSize is the byte size of one index.
	IndexSize = 4

	// UniformSize is the byte size of the text uniform block:
	// mat4x4<f32> + vec2<f32>, padded to 16 bytes.
	UniformSize = 80

	// DrawLabel identifies text draw calls.
	DrawLabel = "debugdraw_text"
)

// Vertex is one corner of a glyph quad.
type Vertex struct {
	Screen         mgl32.Vec2 // pixels, from the anchor for world text
	TexCoord       mgl32.Vec2
	World          mgl32.Vec3
	ScreenRelative int32 // 1 for screen-anchored, 0 for world-anchored
	Color          mgl32.Vec4
}

// Layout returns the vertex buffer layout matching Vertex.
func Layout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: VertexSize,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
			{Format: gputypes.VertexFormatFloat32x3, Offset: 16, ShaderLocation: 2},
			{Format: gputypes.VertexFormatSint32, Offset: 28, ShaderLocation: 3},
			{Format: gputypes.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 4},
		},
	}
}

// Config configures a Renderer.
type Config struct {
	// InitialCapacity is the starting buffer size in glyphs.
	// Default: 256.
	InitialCapacity int

	// ScreenWidth and ScreenHeight are the initial target size in pixels.
	// Default: 800x600.
	ScreenWidth  int
	ScreenHeight int

	// Depth controls depth testing of world-anchored labels.
	Depth device.DepthState

	// Blend is the color blend state. Nil draws opaque.
	Blend *gputypes.BlendState

	// Normalize converts text to Unicode NFC before layout, so decomposed
	// accents find precomposed glyphs.
	Normalize bool

	// LayoutCacheSize is the number of laid-out strings kept for reuse.
	// Zero disables the cache.
	LayoutCacheSize int

	// Logger receives debug diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default text configuration: alpha blending, no
// depth testing so labels stay visible and a 256-entry layout cache. Text is
// laid out rune by rune as given; set Normalize to compose it first.
func DefaultConfig() Config {
	blend := gputypes.BlendStateAlpha()
	return Config{
		InitialCapacity: 256,
		ScreenWidth:     800,
		ScreenHeight:    600,
		Blend:           &blend,
		LayoutCacheSize: 256,
	}
}

// Stats reports renderer activity.
type Stats struct {
	Draws          int
	LastGlyphs     int // glyphs in the most recent batch
	TotalGlyphs    int
	MissingGlyphs  int // runes drawn with the zero placeholder
	LayoutHits     int
	LayoutMisses   int
	BufferGrows    int
	PipelineBuilds int
	PipelineHits   int // renders that reused a built pipeline
}

// Renderer accumulates glyph quads and draws them once per Render.
//
// Renderer is not safe for concurrent use.
type Renderer struct {
	dev       device.GraphicsDevice
	font      *bmfont.Font
	atlas     device.Texture
	program   device.Program
	pipelines *pipeline.Cache
	vertices  *buffer.Dynamic
	indices   *buffer.Dynamic
	layouts   *lru.Cache[string, layout]
	normalize bool
	logger    *slog.Logger

	screenW, screenH int

	pending  []Vertex
	indexed  []uint32
	vscratch []byte
	iscratch []byte
	uniforms [UniformSize]byte
	stats    Stats
}

// New validates the atlas against font, uploads it, compiles the text
// program and allocates the vertex and index buffers.
func New(dev device.GraphicsDevice, font *bmfont.Font, atlas *image.RGBA, cfg Config) (*Renderer, error) {
	if dev == nil {
		return nil, errors.New("text: nil device")
	}
	if font == nil {
		return nil, fmt.Errorf("text: %w: nil font", bmfont.ErrParse)
	}
	if atlas == nil {
		return nil, fmt.Errorf("text: %w: nil atlas", bmfont.ErrTexture)
	}
	if err := bmfont.CheckAtlas(font, atlas); err != nil {
		return nil, fmt.Errorf("text: %w", err)
	}
	def := DefaultConfig()
	if cfg.InitialCapacity <= 0 {
		cfg.InitialCapacity = def.InitialCapacity
	}
	if cfg.ScreenWidth <= 0 || cfg.ScreenHeight <= 0 {
		cfg.ScreenWidth, cfg.ScreenHeight = def.ScreenWidth, def.ScreenHeight
	}

	r := &Renderer{
		dev:       dev,
		font:      font,
		normalize: cfg.Normalize,
		logger:    cfg.Logger,
		screenW:   cfg.ScreenWidth,
		screenH:   cfg.ScreenHeight,
	}
	if err := r.init(cfg, atlas); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init(cfg Config, atlas *image.RGBA) error {
	var err error
	r.atlas, err = r.dev.CreateTexture(&device.TextureDescriptor{
		Label:  "debugdraw_font_atlas",
		Width:  atlas.Bounds().Dx(),
		Height: atlas.Bounds().Dy(),
		Pixels: tightPixels(atlas),
	})
	if err != nil {
		return fmt.Errorf("text: %w: upload atlas: %w", bmfont.ErrTexture, err)
	}

	r.program, err = r.dev.CompileProgram(&device.ProgramDescriptor{
		Label:         "debugdraw_text",
		Source:        shaderSource,
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
		Layout:        Layout(),
		UniformSize:   UniformSize,
		Textured:      true,
	})
	if err != nil {
		return fmt.Errorf("text: %w: compile program: %w", device.ErrPipelineState, err)
	}
	r.pipelines = pipeline.New(r.dev, r.program, device.PipelineDescriptor{
		Label:    "debugdraw_text",
		Topology: gputypes.PrimitiveTopologyTriangleList,
		Blend:    cfg.Blend,
		Depth:    cfg.Depth,
	}, cfg.Logger)

	r.vertices, err = buffer.NewDynamic(r.dev, device.BufferDescriptor{
		Label:    "debugdraw_text_vertices",
		Usage:    device.BufferVertex,
		Stride:   VertexSize,
		Capacity: cfg.InitialCapacity * 4,
	}, cfg.Logger)
	if err != nil {
		return fmt.Errorf("text: %w", err)
	}
	r.indices, err = buffer.NewDynamic(r.dev, device.BufferDescriptor{
		Label:    "debugdraw_text_indices",
		Usage:    device.BufferIndex,
		Stride:   IndexSize,
		Capacity: cfg.InitialCapacity * 6,
	}, cfg.Logger)
	if err != nil {
		return fmt.Errorf("text: %w", err)
	}

	if cfg.LayoutCacheSize > 0 {
		r.layouts, err = lru.New[string, layout](cfg.LayoutCacheSize)
		if err != nil {
			return fmt.Errorf("text: layout cache: %w", err)
		}
	}
	return nil
}

// tightPixels returns the atlas pixels with rows packed back to back.
func tightPixels(img *image.RGBA) []byte {
	b := img.Bounds()
	rowBytes := b.Dx() * 4
	if img.Stride == rowBytes && b.Min == (image.Point{}) {
		return img.Pix[:rowBytes*b.Dy()]
	}
	pix := make([]byte, 0, rowBytes*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		pix = append(pix, img.Pix[off:off+rowBytes]...)
	}
	return pix
}

// Font returns the font table used for layout.
func (r *Renderer) Font() *bmfont.Font { return r.font }

// ScreenSize returns the size used to map pixels to clip space.
func (r *Renderer) ScreenSize() (width, height int) { return r.screenW, r.screenH }

// Resize updates the screen size used for pixel placement. Call it whenever
// the render target changes size.
func (r *Renderer) Resize(width, height int) {
	r.screenW = max(width, 1)
	r.screenH = max(height, 1)
}

// DrawTextOnScreen queues s with its origin at pos, in pixels from the
// top-left corner of the target.
func (r *Renderer) DrawTextOnScreen(s string, pos image.Point, color mgl32.Vec4) {
	r.drawText(s, mgl32.Vec2{float32(pos.X), float32(pos.Y)}, mgl32.Vec3{}, 1, color)
}

// DrawTextAtPosition queues s anchored at the projection of world.
func (r *Renderer) DrawTextAtPosition(s string, world mgl32.Vec3, color mgl32.Vec4) {
	r.drawText(s, mgl32.Vec2{}, world, 0, color)
}

// Measure returns the horizontal advance of s in pixels.
func (r *Renderer) Measure(s string) int {
	return r.layout(s).advance
}

func (r *Renderer) layout(s string) layout {
	if r.normalize {
		s = norm.NFC.String(s)
	}
	if r.layouts == nil {
		return layoutString(r.font, s)
	}
	if l, ok := r.layouts.Get(s); ok {
		r.stats.LayoutHits++
		return l
	}
	r.stats.LayoutMisses++
	l := layoutString(r.font, s)
	r.layouts.Add(s, l)
	return l
}

func (r *Renderer) drawText(s string, origin mgl32.Vec2, world mgl32.Vec3, relative int32, color mgl32.Vec4) {
	l := r.layout(s)
	r.stats.MissingGlyphs += l.missing

	for _, q := range l.quads {
		base := uint32(len(r.pending))
		x0, y0 := origin[0]+q.x, origin[1]+q.y
		x1, y1 := x0+q.w, y0+q.h
		r.pending = append(r.pending,
			Vertex{Screen: mgl32.Vec2{x0, y0}, TexCoord: mgl32.Vec2{q.u0, q.v0}, World: world, ScreenRelative: relative, Color: color}, // top left
			Vertex{Screen: mgl32.Vec2{x0, y1}, TexCoord: mgl32.Vec2{q.u0, q.v1}, World: world, ScreenRelative: relative, Color: color}, // bottom left
			Vertex{Screen: mgl32.Vec2{x1, y1}, TexCoord: mgl32.Vec2{q.u1, q.v1}, World: world, ScreenRelative: relative, Color: color}, // bottom right
			Vertex{Screen: mgl32.Vec2{x1, y0}, TexCoord: mgl32.Vec2{q.u1, q.v0}, World: world, ScreenRelative: relative, Color: color}, // top right
		)
		r.indexed = append(r.indexed,
			base+0, base+1, base+3,
			base+3, base+1, base+2)
	}
}

// Pending returns the number of queued vertices and indices.
func (r *Renderer) Pending() (vertices, indices int) {
	return len(r.pending), len(r.indexed)
}

// Render uploads the queued glyphs and draws them into target. The batch is
// cleared whether or not drawing succeeds. An empty batch draws nothing.
func (r *Renderer) Render(projection mgl32.Mat4, target device.Target) error {
	defer r.clear()

	nv, ni := len(r.pending), len(r.indexed)
	if ni == 0 {
		return nil
	}

	r.vscratch = r.vscratch[:0]
	for _, v := range r.pending {
		r.vscratch = vertex.AppendFloat32(r.vscratch,
			v.Screen[0], v.Screen[1], v.TexCoord[0], v.TexCoord[1],
			v.World[0], v.World[1], v.World[2])
		r.vscratch = vertex.AppendInt32(r.vscratch, v.ScreenRelative)
		r.vscratch = vertex.AppendFloat32(r.vscratch, v.Color[0], v.Color[1], v.Color[2], v.Color[3])
	}
	r.iscratch = vertex.AppendUint32(r.iscratch[:0], r.indexed...)

	grows := r.vertices.Grows() + r.indices.Grows()
	err := r.vertices.Upload(r.vscratch, nv)
	if err == nil {
		err = r.indices.Upload(r.iscratch, ni)
	}
	r.stats.BufferGrows += r.vertices.Grows() + r.indices.Grows() - grows
	if err != nil {
		return fmt.Errorf("text: upload %d vertices, %d indices: %w", nv, ni, err)
	}

	p, err := r.pipelines.Get(target.Format())
	if err != nil {
		return fmt.Errorf("text: %w", err)
	}

	vertex.PutMat4(r.uniforms[:], projection)
	copy(r.uniforms[vertex.Mat4Size:], vertex.AppendFloat32(nil, float32(r.screenW), float32(r.screenH)))

	err = r.dev.Submit(&device.DrawCall{
		Label:        DrawLabel,
		Pipeline:     p,
		Target:       target,
		VertexBuffer: r.vertices.Buffer(),
		VertexCount:  nv,
		IndexBuffer:  r.indices.Buffer(),
		IndexCount:   ni,
		Uniforms:     r.uniforms[:],
		Texture:      r.atlas,
	})
	if err != nil {
		return fmt.Errorf("text: %w: %w", device.ErrSubmit, err)
	}

	glyphs := nv / 4
	r.stats.Draws++
	r.stats.LastGlyphs = glyphs
	r.stats.TotalGlyphs += glyphs
	return nil
}

func (r *Renderer) clear() {
	r.pending = r.pending[:0]
	r.indexed = r.indexed[:0]
}

// Stats returns renderer activity counters.
func (r *Renderer) Stats() Stats {
	s := r.stats
	s.PipelineBuilds = r.pipelines.Builds()
	s.PipelineHits = r.pipelines.Hits()
	return s
}

// Close releases every GPU resource held by the renderer.
func (r *Renderer) Close() {
	if r.pipelines != nil {
		r.pipelines.Close()
	}
	if r.vertices != nil {
		r.vertices.Release()
	}
	if r.indices != nil {
		r.indices.Release()
	}
	if r.program != nil {
		r.dev.DestroyProgram(r.program)
		r.program = nil
	}
	if r.atlas != nil {
		r.dev.DestroyTexture(r.atlas)
		r.atlas = nil
	}
}
