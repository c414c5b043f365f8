package debugdraw

import (
	"image"
	"log/slog"

	"github.com/gogpu/debugdraw/bmfont"
	"github.com/gogpu/debugdraw/capture"
	"github.com/gogpu/debugdraw/device"
	"github.com/gogpu/debugdraw/lines"
	"github.com/gogpu/debugdraw/text"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := debugdraw.New(dev,
//	    debugdraw.WithFontFile("assets/hud.fnt"),
//	    debugdraw.WithScreenSize(1920, 1080),
//	    debugdraw.WithLineDepth(device.DepthState{}),
//	)
type Option func(*options)

type options struct {
	lines lines.Config
	text  text.Config

	font     *bmfont.Font
	atlas    *image.RGBA
	fontFile string

	target  *device.Target
	capture *capture.Recorder
	logger  *slog.Logger
}

func defaultOptions() options {
	return options{
		lines: lines.DefaultConfig(),
		text:  text.DefaultConfig(),
	}
}

// WithFont uses font and its atlas for text. Without a font option the
// renderer uses [bmfont.Default].
func WithFont(font *bmfont.Font, atlas *image.RGBA) Option {
	return func(o *options) {
		o.font, o.atlas, o.fontFile = font, atlas, ""
	}
}

// WithFontFile loads a .fnt description and its page atlas from disk.
// The atlas path is resolved relative to the .fnt file.
func WithFontFile(path string) Option {
	return func(o *options) {
		o.fontFile, o.font, o.atlas = path, nil, nil
	}
}

// WithInitialCapacity sets the starting buffer sizes, in lines and glyphs.
// Non-positive values keep the defaults.
func WithInitialCapacity(lineCount, glyphCount int) Option {
	return func(o *options) {
		if lineCount > 0 {
			o.lines.InitialCapacity = 2 * lineCount
		}
		if glyphCount > 0 {
			o.text.InitialCapacity = glyphCount
		}
	}
}

// WithScreenSize sets the initial size, in pixels, used to place text.
func WithScreenSize(width, height int) Option {
	return func(o *options) {
		o.text.ScreenWidth, o.text.ScreenHeight = width, height
	}
}

// WithTarget sets the target used by [Renderer.Render].
func WithTarget(target device.Target) Option {
	return func(o *options) {
		o.target = &target
	}
}

// WithLineDepth sets the depth behavior of lines and markers.
// The default tests against the depth buffer without writing to it.
func WithLineDepth(depth device.DepthState) Option {
	return func(o *options) {
		o.lines.Depth = depth
	}
}

// WithTextDepth sets the depth behavior of world-anchored text.
// The default disables depth so labels are never hidden.
func WithTextDepth(depth device.DepthState) Option {
	return func(o *options) {
		o.text.Depth = depth
	}
}

// WithLayoutCache sets how many laid-out strings are kept between frames.
// Zero disables the cache.
func WithLayoutCache(size int) Option {
	return func(o *options) {
		o.text.LayoutCacheSize = max(size, 0)
	}
}

// WithNormalization enables or disables NFC normalization of text. It is
// off by default.
func WithNormalization(enabled bool) Option {
	return func(o *options) {
		o.text.Normalize = enabled
	}
}

// WithCapture records every rendered frame to rec. See [Renderer.SetCapture].
func WithCapture(rec *capture.Recorder) Option {
	return func(o *options) {
		o.capture = rec
	}
}

// WithLogger overrides the package logger for this renderer.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// loadFont resolves the font options.
func (o *options) loadFont() (*bmfont.Font, *image.RGBA, error) {
	switch {
	case o.fontFile != "":
		return bmfont.LoadFileWithAtlas(o.fontFile)
	case o.font != nil:
		return o.font, o.atlas, nil
	default:
		font, atlas := bmfont.Default()
		return font, atlas, nil
	}
}
