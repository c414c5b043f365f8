package bmfont

// shelfPacker places rectangles left to right on horizontal shelves of
// fixed width. A new shelf starts below the previous one when the current
// shelf is full; height is unbounded and reported by Height.
type shelfPacker struct {
	width   int
	padding int
	shelves []shelf
}

type shelf struct {
	y      int // top of the shelf
	height int // tallest item so far
	x      int // next free column
}

func newShelfPacker(width, padding int) *shelfPacker {
	return &shelfPacker{width: width, padding: padding}
}

// allocate returns the top-left corner for a w x h rectangle, or false if
// the rectangle is wider than the packer.
func (p *shelfPacker) allocate(w, h int) (x, y int, ok bool) {
	pw := w + p.padding
	if pw > p.width {
		return -1, -1, false
	}

	for i := range p.shelves {
		s := &p.shelves[i]
		if s.x+pw > p.width {
			continue
		}
		last := i == len(p.shelves)-1
		if h > s.height && !last {
			continue
		}
		if h > s.height {
			s.height = h
		}
		x, y = s.x, s.y
		s.x += pw
		return x, y, true
	}

	y = p.Height()
	p.shelves = append(p.shelves, shelf{y: y, height: h, x: pw})
	return 0, y, true
}

// Height returns the total height used, including padding below the last
// shelf.
func (p *shelfPacker) Height() int {
	if len(p.shelves) == 0 {
		return 0
	}
	last := p.shelves[len(p.shelves)-1]
	return last.y + last.height + p.padding
}
