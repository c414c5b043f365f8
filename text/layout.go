package text

import (
	"github.com/gogpu/debugdraw/bmfont"
)

// quad is one laid-out glyph in pixels, relative to the text origin.
type quad struct {
	x, y, w, h     float32
	u0, v0, u1, v1 float32
}

// layout holds the glyph quads for one string and how many of its runes
// were missing from the font.
type layout struct {
	quads   []quad
	missing int
	advance int
}

// layoutString places one quad per rune, left to right from the origin.
// Missing runes, newlines included, produce a zero-size quad with no
// advance.
func layoutString(font *bmfont.Font, s string) layout {
	scaleW, scaleH := float32(font.ScaleW), float32(font.ScaleH)
	if scaleW == 0 {
		scaleW = 1
	}
	if scaleH == 0 {
		scaleH = 1
	}

	var l layout
	x := 0
	for _, r := range s {
		g, ok := font.Glyph(r)
		if !ok {
			l.missing++
		}
		l.quads = append(l.quads, quad{
			x:  float32(x + int(g.XOffset)),
			y:  float32(g.YOffset),
			w:  float32(g.Width),
			h:  float32(g.Height),
			u0: float32(g.X) / scaleW,
			v0: float32(g.Y) / scaleH,
			u1: float32(int(g.X)+int(g.Width)) / scaleW,
			v1: float32(int(g.Y)+int(g.Height)) / scaleH,
		})
		x += int(g.XAdvance)
	}
	l.advance = x
	return l
}
