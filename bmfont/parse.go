package bmfont

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"
)

// Parse reads an XML font description.
//
// The document must contain a common element carrying scaleW and scaleH and
// a chars element with char children, both directly under the root. Numeric
// attributes that are missing or malformed are read as 0; a char whose id
// reads as 0 is skipped.
func Parse(r io.Reader) (*Font, error) {
	f := &Font{Chars: make(map[rune]Glyph)}
	var sawCommon, sawChars bool
	var path []string

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		if _, ok := tok.(xml.EndElement); ok {
			path = path[:len(path)-1]
			continue
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		parent := ""
		if len(path) > 0 {
			parent = path[len(path)-1]
		}
		depth := len(path)
		path = append(path, se.Name.Local)

		a := attrs(se.Attr)
		switch {
		case depth == 1 && se.Name.Local == "info":
			f.Info.Face = a.get("face")
			f.Info.Size = a.num("size")
		case depth == 1 && se.Name.Local == "common":
			sawCommon = true
			f.ScaleW = a.u16("scaleW")
			f.ScaleH = a.u16("scaleH")
			f.Info.LineHeight = a.num("lineHeight")
			f.Info.Base = a.num("base")
		case parent == "pages" && se.Name.Local == "page":
			if f.Info.Page == "" {
				f.Info.Page = a.get("file")
			}
		case depth == 1 && se.Name.Local == "chars":
			sawChars = true
		case depth == 2 && parent == "chars" && se.Name.Local == "char":
			id := a.codePoint("id")
			if id == 0 {
				continue
			}
			f.Chars[id] = Glyph{
				X:        a.u16("x"),
				Y:        a.u16("y"),
				Width:    a.u16("width"),
				Height:   a.u16("height"),
				XOffset:  a.i16("xoffset"),
				YOffset:  a.i16("yoffset"),
				XAdvance: a.i16("xadvance"),
			}
		}
	}

	if !sawCommon {
		return nil, fmt.Errorf("%w: missing common element", ErrParse)
	}
	if !sawChars {
		return nil, fmt.Errorf("%w: missing chars element", ErrParse)
	}
	return f, nil
}

// ParseBytes parses a font description held in memory.
func ParseBytes(data []byte) (*Font, error) {
	return Parse(bytes.NewReader(data))
}

// LoadFile reads a font description from disk. Files ending in .zst are
// decompressed first.
func LoadFile(path string) (*Font, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer file.Close()

	if !strings.HasSuffix(path, ".zst") {
		return Parse(file)
	}

	zr, err := zstd.NewReader(file, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	defer zr.Close()
	return Parse(zr)
}

// LoadFileWithAtlas loads a font description and the atlas image named by
// its first page element, resolved relative to the description's directory.
func LoadFileWithAtlas(path string) (*Font, *image.RGBA, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if f.Info.Page == "" {
		return nil, nil, fmt.Errorf("%w: %s names no atlas page", ErrTexture, path)
	}
	atlas, err := LoadAtlas(filepath.Join(filepath.Dir(path), f.Info.Page))
	if err != nil {
		return nil, nil, err
	}
	if err := CheckAtlas(f, atlas); err != nil {
		return nil, nil, err
	}
	return f, atlas, nil
}

type attrs []xml.Attr

func (a attrs) get(name string) string {
	for _, attr := range a {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}

func (a attrs) num(name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(a.get(name)))
	if err != nil {
		return 0
	}
	return v
}

// codePoint reads a Unicode code point. Values outside the Unicode range read
// as 0.
func (a attrs) codePoint(name string) rune {
	v, err := strconv.ParseUint(strings.TrimSpace(a.get(name)), 10, 32)
	if err != nil || !utf8.ValidRune(rune(v)) {
		return 0
	}
	return rune(v)
}

func (a attrs) u16(name string) uint16 {
	v, err := strconv.ParseUint(strings.TrimSpace(a.get(name)), 10, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}

func (a attrs) i16(name string) int16 {
	v, err := strconv.ParseInt(strings.TrimSpace(a.get(name)), 10, 16)
	if err != nil {
		return 0
	}
	return int16(v)
}
