package bmfont

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"slices"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// GenerateOptions configures atlas generation.
type GenerateOptions struct {
	// Name is written to the font's info element.
	Name string

	// Size is the nominal point size written to the info element.
	Size int

	// Width is the atlas width in pixels. Default: 256.
	Width int

	// Padding is the gap between packed glyphs. Default: 1.
	Padding int

	// Page is the atlas file name recorded in the description.
	Page string
}

func (o GenerateOptions) withDefaults() GenerateOptions {
	if o.Width <= 0 {
		o.Width = 256
	}
	if o.Padding <= 0 {
		o.Padding = 1
	}
	return o
}

// ASCII returns the printable ASCII runes.
func ASCII() []rune {
	runes := make([]rune, 0, 95)
	for r := rune(' '); r <= '~'; r++ {
		runes = append(runes, r)
	}
	return runes
}

type rasterGlyph struct {
	r       rune
	mask    *image.Alpha
	bounds  image.Rectangle // relative to the line's top-left cursor
	advance int
	x, y    int
}

// Generate rasterizes runes from face into an RGBA atlas. Coverage is stored
// in the alpha channel over white. Runes the face cannot render are skipped.
// The atlas height is the smallest power of two that holds every glyph.
func Generate(face font.Face, runes []rune, opts GenerateOptions) (*Font, *image.RGBA, error) {
	opts = opts.withDefaults()
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()

	runes = slices.Clone(runes)
	slices.Sort(runes)
	runes = slices.Compact(runes)

	packer := newShelfPacker(opts.Width, opts.Padding)
	glyphs := make([]rasterGlyph, 0, len(runes))
	for _, r := range runes {
		dr, mask, maskp, adv, ok := face.Glyph(fixed.P(0, ascent), r)
		if !ok {
			continue
		}
		g := rasterGlyph{r: r, bounds: dr, advance: adv.Round()}
		if !dr.Empty() {
			// Faces may reuse the mask between calls.
			g.mask = image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
			draw.Draw(g.mask, g.mask.Bounds(), mask, maskp, draw.Src)
			x, y, ok := packer.allocate(dr.Dx(), dr.Dy())
			if !ok {
				return nil, nil, fmt.Errorf("%w: glyph %q (%dx%d) wider than atlas width %d",
					ErrTexture, r, dr.Dx(), dr.Dy(), opts.Width)
			}
			g.x, g.y = x, y
		}
		glyphs = append(glyphs, g)
	}

	height := nextPow2(packer.Height())
	if height > math.MaxUint16 || opts.Width > math.MaxUint16 {
		return nil, nil, fmt.Errorf("%w: atlas %dx%d exceeds 65535", ErrTexture, opts.Width, height)
	}

	atlas := image.NewRGBA(image.Rect(0, 0, opts.Width, height))
	white := image.NewUniform(color.White)
	f := &Font{
		Info: Info{
			Face:       opts.Name,
			Size:       opts.Size,
			LineHeight: metrics.Height.Ceil(),
			Base:       ascent,
			Page:       opts.Page,
		},
		ScaleW: uint16(opts.Width),
		ScaleH: uint16(height),
		Chars:  make(map[rune]Glyph, len(glyphs)),
	}
	for _, g := range glyphs {
		glyph := Glyph{
			XOffset:  int16(g.bounds.Min.X),
			YOffset:  int16(g.bounds.Min.Y),
			XAdvance: int16(g.advance),
		}
		if g.mask != nil {
			glyph.X, glyph.Y = uint16(g.x), uint16(g.y)
			glyph.Width, glyph.Height = uint16(g.bounds.Dx()), uint16(g.bounds.Dy())
			dst := image.Rect(g.x, g.y, g.x+g.bounds.Dx(), g.y+g.bounds.Dy())
			draw.DrawMask(atlas, dst, white, image.Point{}, g.mask, image.Point{}, draw.Over)
		}
		f.Chars[g.r] = glyph
	}
	return f, atlas, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

var defaultFont = sync.OnceValues(func() (*Font, *image.RGBA) {
	f, atlas, err := Generate(basicfont.Face7x13, ASCII(), GenerateOptions{
		Name:  "basicfont 7x13",
		Size:  13,
		Width: 128,
	})
	if err != nil {
		panic("bmfont: default font: " + err.Error())
	}
	return f, atlas
})

// Default returns the bundled fixed-width font, printable ASCII rendered
// from basicfont.Face7x13. The returned values are shared and must not be
// modified.
func Default() (*Font, *image.RGBA) {
	return defaultFont()
}
