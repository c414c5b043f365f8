//go:build !nogpu

// Command ddreplay replays a debugdraw capture on a headless device and
// reports per-frame batch statistics.
//
// Captures are written by a renderer created with debugdraw.WithCapture.
// Replaying one exercises the same batching, glyph layout and pipeline
// paths as the live application, which makes it useful for reproducing
// overlay bugs without the application.
//
// Usage:
//
//	ddreplay -in session.ddcap -log replay.log -frames 100
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gogpu/debugdraw"
	"github.com/gogpu/debugdraw/backend/native"
	"github.com/gogpu/debugdraw/capture"
	"github.com/gogpu/debugdraw/device"
)

func main() {
	c, err := parseFlags(os.Args[1:])
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "ddreplay:", err)
		}
		os.Exit(2)
	}
	logger, closeLog := newLogger(c)
	defer closeLog()

	summary, err := run(context.Background(), c, logger)
	if err != nil {
		logger.Error("replay failed", slog.Any("err", err))
		closeLog()
		os.Exit(1)
	}
	fmt.Printf("replayed %d frames, %d commands, %d failed\n", summary.Frames, summary.Commands, summary.Failed)
}

type config struct {
	in       string
	logFile  string
	level    string
	frames   int
	fontFile string
}

func parseFlags(args []string) (config, error) {
	var c config
	fs := flag.NewFlagSet("ddreplay", flag.ContinueOnError)
	fs.StringVar(&c.in, "in", "", "capture file to replay")
	fs.StringVar(&c.logFile, "log", "", "JSON log file, rotated when large (default: text on stderr)")
	fs.StringVar(&c.level, "level", "info", "log level: debug, info, warn or error")
	fs.IntVar(&c.frames, "frames", 0, "replay at most this many frames (0: all)")
	fs.StringVar(&c.fontFile, "font", "", "bitmap font description (default: built-in)")
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if c.in == "" {
		return c, errors.New("-in is required")
	}
	return c, nil
}

func newLogger(c config) (*slog.Logger, func()) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.level)); err != nil {
		fmt.Fprintf(os.Stderr, "ddreplay: invalid log level %q, using info\n", c.level)
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.logFile == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}
	}
	w := &lumberjack.Logger{
		Filename:   c.logFile,
		MaxSize:    32, // MB
		MaxBackups: 2,
	}
	return slog.New(slog.NewJSONHandler(w, opts)), func() { _ = w.Close() }
}

// Summary totals a replay.
type Summary struct {
	Frames   int
	Commands int
	Failed   int
}

func run(ctx context.Context, c config, logger *slog.Logger) (Summary, error) {
	file, err := os.Open(c.in)
	if err != nil {
		return Summary{}, err
	}
	defer file.Close()
	return replay(ctx, file, c, logger)
}

// replay decodes frames on one goroutine and renders them on another.
// Rendering stays on a single goroutine, as the renderer requires.
func replay(ctx context.Context, r io.Reader, c config, logger *slog.Logger) (Summary, error) {
	dev, target, cleanup, err := openHeadless(logger)
	if err != nil {
		return Summary{}, err
	}
	defer cleanup()

	opts := []debugdraw.Option{debugdraw.WithTarget(target), debugdraw.WithLogger(logger)}
	if c.fontFile != "" {
		opts = append(opts, debugdraw.WithFontFile(c.fontFile))
	}
	renderer, err := debugdraw.New(dev, opts...)
	if err != nil {
		return Summary{}, err
	}
	defer renderer.Close()

	frames := make(chan capture.Frame, 8)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(frames)
		reader, err := capture.NewReader(r)
		if err != nil {
			return err
		}
		defer reader.Close()
		for n := 0; c.frames <= 0 || n < c.frames; n++ {
			f, err := reader.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("frame %d: %w", n, err)
			}
			select {
			case frames <- f:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var sum Summary
	g.Go(func() error {
		for f := range frames {
			sum.Frames++
			sum.Commands += len(f.Commands)
			if err := renderer.Replay(f); err != nil {
				sum.Failed++
				logger.Warn("frame failed", slog.Uint64("index", f.Index), slog.Any("err", err))
				continue
			}
			logger.Info("frame replayed",
				slog.Uint64("index", f.Index),
				slog.Int("commands", len(f.Commands)),
				slog.Any("stats", renderer.Stats()))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return sum, err
	}
	return sum, nil
}

// openHeadless opens the noop HAL backend and a render target sized for
// replay. The noop backend validates resource usage without a GPU.
func openHeadless(logger *slog.Logger) (*native.Device, device.Target, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, device.Target{}, nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, device.Target{}, nil, errors.New("no headless adapter")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, device.Target{}, nil, err
	}

	const format = gputypes.TextureFormatBGRA8Unorm
	tex, err := open.Device.CreateTexture(&hal.TextureDescriptor{
		Label:         "ddreplay_target",
		Size:          hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, device.Target{}, nil, err
	}
	view, err := open.Device.CreateTextureView(tex, &hal.TextureViewDescriptor{Format: format})
	if err != nil {
		open.Device.DestroyTexture(tex)
		open.Device.Destroy()
		instance.Destroy()
		return nil, device.Target{}, nil, err
	}

	dev, err := native.New(open.Device, open.Queue, native.WithLogger(logger))
	if err != nil {
		return nil, device.Target{}, nil, err
	}
	cleanup := func() {
		_ = dev.Close()
		open.Device.DestroyTextureView(view)
		open.Device.DestroyTexture(tex)
		open.Device.Destroy()
		instance.Destroy()
	}
	return dev, device.Target{Color: view, ColorFormat: format}, cleanup, nil
}
