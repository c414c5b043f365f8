// Package pipeline caches one pipeline state per output format for a shader
// program compiled once by its owner.
package pipeline

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/debugdraw/device"
	"github.com/gogpu/debugdraw/internal/cache"
)

// Cache builds pipelines lazily, at most once per device.TargetFormat.
type Cache struct {
	dev     device.GraphicsDevice
	program device.Program
	tmpl    device.PipelineDescriptor
	entries *cache.Cache[device.TargetFormat, device.Pipeline]
	builds  atomic.Int64
	logger  *slog.Logger
}

// New creates a cache for program. tmpl supplies the format-independent
// parts of every pipeline; its Format field is ignored.
func New(dev device.GraphicsDevice, program device.Program, tmpl device.PipelineDescriptor, logger *slog.Logger) *Cache {
	return &Cache{
		dev:     dev,
		program: program,
		tmpl:    tmpl,
		entries: cache.New[device.TargetFormat, device.Pipeline](),
		logger:  logger,
	}
}

// Get returns the pipeline for format, building it on first use.
// Build failures wrap device.ErrPipelineState and are not cached.
func (c *Cache) Get(format device.TargetFormat) (device.Pipeline, error) {
	return c.entries.GetOrCreate(format, func() (device.Pipeline, error) {
		desc := Specialize(c.tmpl, format)
		p, err := c.dev.CreatePipeline(c.program, &desc)
		if err != nil {
			return nil, fmt.Errorf("%w: build %q for %v: %w", device.ErrPipelineState, desc.Label, format, err)
		}
		c.builds.Add(1)
		if c.logger != nil {
			c.logger.Debug("debugdraw: pipeline built",
				slog.String("label", desc.Label),
				slog.String("format", format.String()),
				slog.Bool("blend", desc.Blend != nil))
		}
		return p, nil
	})
}

// Builds returns how many pipelines were built.
func (c *Cache) Builds() int { return int(c.builds.Load()) }

// Hits returns how many lookups were served by an already built pipeline.
func (c *Cache) Hits() int { return c.entries.Stats().Hits }

// Len returns the number of cached pipelines.
func (c *Cache) Len() int { return c.entries.Len() }

// Close destroys every cached pipeline.
func (c *Cache) Close() {
	c.entries.Drain(func(_ device.TargetFormat, p device.Pipeline) {
		c.dev.DestroyPipeline(p)
	})
}

// Specialize derives the pipeline descriptor for one output format.
// Blending is dropped for color formats that cannot be blended, and depth
// state is cleared when the format has no depth attachment.
func Specialize(tmpl device.PipelineDescriptor, format device.TargetFormat) device.PipelineDescriptor {
	desc := tmpl
	desc.Format = format
	if tmpl.Blend != nil {
		if Blendable(format.Color) {
			b := *tmpl.Blend
			desc.Blend = &b
		} else {
			desc.Blend = nil
		}
	}
	if !format.HasDepth() {
		desc.Depth = device.DepthState{}
	}
	return desc
}

// Blendable reports whether fixed-function blending is available for f.
// Integer and 32-bit float color formats are not blendable.
func Blendable(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatR8Uint, gputypes.TextureFormatR8Sint,
		gputypes.TextureFormatR16Uint, gputypes.TextureFormatR16Sint,
		gputypes.TextureFormatRG8Uint, gputypes.TextureFormatRG8Sint,
		gputypes.TextureFormatR32Uint, gputypes.TextureFormatR32Sint,
		gputypes.TextureFormatRG16Uint, gputypes.TextureFormatRG16Sint,
		gputypes.TextureFormatRGBA8Uint, gputypes.TextureFormatRGBA8Sint,
		gputypes.TextureFormatRGB10A2Uint,
		gputypes.TextureFormatRG32Uint, gputypes.TextureFormatRG32Sint,
		gputypes.TextureFormatRGBA16Uint, gputypes.TextureFormatRGBA16Sint,
		gputypes.TextureFormatRGBA32Uint, gputypes.TextureFormatRGBA32Sint,
		gputypes.TextureFormatR32Float, gputypes.TextureFormatRG32Float,
		gputypes.TextureFormatRGBA32Float:
		return false
	default:
		return true
	}
}
