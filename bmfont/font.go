// Package bmfont loads bitmap font tables in the AngelCode BMFont XML format
// and builds font atlases from x/image font faces.
//
// A Font maps runes to glyph rectangles inside a single atlas image. The
// text renderer samples only the atlas alpha channel, so any RGBA image with
// coverage in alpha can serve as the atlas.
package bmfont

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrParse is returned when a font description is missing, unreadable
	// or malformed.
	ErrParse = errors.New("bmfont: font parse error")

	// ErrTexture is returned when an atlas image cannot be decoded, is not
	// RGBA, or does not match the font's atlas size.
	ErrTexture = errors.New("bmfont: font texture error")
)

// Glyph holds the atlas rectangle and placement metrics of one character.
// The zero Glyph is used for characters missing from the font.
type Glyph struct {
	X, Y          uint16 // top-left corner in the atlas
	Width, Height uint16
	XOffset       int16 // added to the cursor before drawing
	YOffset       int16
	XAdvance      int16 // cursor advance after drawing
}

// Info carries the optional descriptive fields of a font file.
type Info struct {
	Face       string
	Size       int
	LineHeight int
	Base       int
	Page       string // atlas file of page 0
}

// Font is an immutable rune to glyph table for one atlas.
type Font struct {
	Info   Info
	ScaleW uint16 // atlas width in pixels
	ScaleH uint16 // atlas height in pixels
	Chars  map[rune]Glyph
}

// Glyph returns the metrics for r. Missing runes yield the zero Glyph and
// false.
func (f *Font) Glyph(r rune) (Glyph, bool) {
	g, ok := f.Chars[r]
	return g, ok
}

// Len returns the number of glyphs in the table.
func (f *Font) Len() int { return len(f.Chars) }

// AtlasSize returns the atlas dimensions in pixels.
func (f *Font) AtlasSize() (width, height int) {
	return int(f.ScaleW), int(f.ScaleH)
}

// CheckAtlas returns ErrTexture unless img has exactly the atlas size
// declared by the font.
func CheckAtlas(f *Font, img image.Image) error {
	w, h := f.AtlasSize()
	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h {
		return fmt.Errorf("%w: atlas is %dx%d, font expects %dx%d", ErrTexture, b.Dx(), b.Dy(), w, h)
	}
	return nil
}
