// Command bmfontgen rasterizes a TrueType or OpenType font into a bitmap
// font: an XML .fnt description plus a PNG atlas that debugdraw loads with
// WithFontFile.
//
// Usage:
//
//	bmfontgen -ttf DejaVuSans.ttf -size 14 -runes latin1 -out fonts/dejavu14
//
// writes fonts/dejavu14.fnt and fonts/dejavu14.png. With -zstd the
// description is written compressed as fonts/dejavu14.fnt.zst. Without -ttf
// the Go Regular font is used.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/debugdraw/bmfont"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(os.Args[1:], logger); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			logger.Error("bmfontgen failed", slog.Any("err", err))
		}
		os.Exit(1)
	}
}

type config struct {
	ttf     string
	size    float64
	dpi     float64
	runes   string
	chars   string
	width   int
	padding int
	out     string
	zstd    bool
}

func parseFlags(args []string) (config, error) {
	var c config
	fs := flag.NewFlagSet("bmfontgen", flag.ContinueOnError)
	fs.StringVar(&c.ttf, "ttf", "", "TrueType/OpenType font file (default: Go Regular)")
	fs.Float64Var(&c.size, "size", 14, "font size in points")
	fs.Float64Var(&c.dpi, "dpi", 72, "rasterization DPI")
	fs.StringVar(&c.runes, "runes", "ascii", `rune set: "ascii", "latin1" or ranges like "0x20-0x7e,0x2190-0x2193"`)
	fs.StringVar(&c.chars, "chars", "", "extra characters to include")
	fs.IntVar(&c.width, "width", 256, "atlas width in pixels")
	fs.IntVar(&c.padding, "padding", 1, "gap between glyphs in pixels")
	fs.StringVar(&c.out, "out", "font", "output path without extension")
	fs.BoolVar(&c.zstd, "zstd", false, "write the description zstd-compressed")
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if c.size <= 0 {
		return c, fmt.Errorf("invalid -size %v", c.size)
	}
	return c, nil
}

func run(args []string, logger *slog.Logger) error {
	c, err := parseFlags(args)
	if err != nil {
		return err
	}
	runes, err := parseRunes(c.runes)
	if err != nil {
		return err
	}
	runes = appendChars(runes, c.chars)

	face, name, err := loadFace(c)
	if err != nil {
		return err
	}
	defer face.Close()

	base := filepath.Base(c.out)
	f, atlas, err := bmfont.Generate(face, runes, bmfont.GenerateOptions{
		Name:    name,
		Size:    int(c.size),
		Width:   c.width,
		Padding: c.padding,
		Page:    base + ".png",
	})
	if err != nil {
		return err
	}

	if dir := filepath.Dir(c.out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := writeFile(c.out+".png", func(w io.Writer) error { return png.Encode(w, atlas) }); err != nil {
		return fmt.Errorf("write atlas: %w", err)
	}

	fntPath := c.out + ".fnt"
	encode := f.Encode
	if c.zstd {
		fntPath += ".zst"
		encode = func(w io.Writer) error {
			zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
			if err != nil {
				return err
			}
			if err := f.Encode(zw); err != nil {
				zw.Close()
				return err
			}
			return zw.Close()
		}
	}
	if err := writeFile(fntPath, encode); err != nil {
		return fmt.Errorf("write description: %w", err)
	}

	w, h := f.AtlasSize()
	logger.Info("bitmap font written",
		slog.String("font", fntPath),
		slog.Int("glyphs", f.Len()),
		slog.Int("requested", len(runes)),
		slog.Int("atlas_width", w),
		slog.Int("atlas_height", h))
	return nil
}

func loadFace(c config) (font.Face, string, error) {
	data, name := goregular.TTF, "Go Regular"
	if c.ttf != "" {
		var err error
		if data, err = os.ReadFile(c.ttf); err != nil {
			return nil, "", err
		}
		name = strings.TrimSuffix(filepath.Base(c.ttf), filepath.Ext(c.ttf))
	}
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", name, err)
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    c.size,
		DPI:     c.dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, "", fmt.Errorf("face %s: %w", name, err)
	}
	return face, name, nil
}

// parseRunes expands a named rune set or a comma-separated list of single
// code points and inclusive ranges.
func parseRunes(set string) ([]rune, error) {
	switch set {
	case "ascii":
		return bmfont.ASCII(), nil
	case "latin1":
		runes := bmfont.ASCII()
		for r := rune(0xA0); r <= 0xFF; r++ {
			runes = append(runes, r)
		}
		return runes, nil
	case "":
		return nil, nil
	}

	var runes []rune
	for part := range strings.SplitSeq(set, ",") {
		lo, hi, isRange := strings.Cut(strings.TrimSpace(part), "-")
		first, err := parseCodePoint(lo)
		if err != nil {
			return nil, err
		}
		last := first
		if isRange {
			if last, err = parseCodePoint(hi); err != nil {
				return nil, err
			}
		}
		if last < first {
			return nil, fmt.Errorf("invalid rune range %q", part)
		}
		for r := first; r <= last; r++ {
			runes = append(runes, r)
		}
	}
	return runes, nil
}

func parseCodePoint(s string) (rune, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil || v > 0x10FFFF {
		return 0, fmt.Errorf("invalid code point %q", s)
	}
	return rune(v), nil
}

// appendChars adds the NFC-composed runes of chars not already present.
func appendChars(runes []rune, chars string) []rune {
	for _, r := range norm.NFC.String(chars) {
		if !slices.Contains(runes, r) {
			runes = append(runes, r)
		}
	}
	return runes
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
