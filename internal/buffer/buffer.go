// Package buffer implements the grow-on-demand policy for GPU buffers that
// are rewritten in full every frame.
package buffer

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/debugdraw/device"
)

// NextCapacity returns the smallest current*2^k (k >= 0) that is >= required.
// A zero current capacity starts from 1.
func NextCapacity(current, required int) int {
	c := current
	if c <= 0 {
		c = 1
	}
	for c < required {
		c *= 2
	}
	return c
}

// EnsureCapacity returns buf when it already holds required elements.
// Otherwise it allocates a larger buffer with the same descriptor, sized by
// NextCapacity, and destroys buf. Contents are not preserved.
func EnsureCapacity(dev device.GraphicsDevice, buf device.Buffer, required int) (device.Buffer, error) {
	if required <= buf.Capacity() {
		return buf, nil
	}
	desc := buf.Descriptor()
	desc.Capacity = NextCapacity(buf.Capacity(), required)
	grown, err := dev.CreateBuffer(&desc)
	if err != nil {
		return buf, fmt.Errorf("%w: grow %s buffer %q to %d elements: %w",
			device.ErrBufferUpdate, desc.Usage, desc.Label, desc.Capacity, err)
	}
	dev.DestroyBuffer(buf)
	return grown, nil
}

// Dynamic is a buffer owned by one batch renderer.
type Dynamic struct {
	dev    device.GraphicsDevice
	buf    device.Buffer
	grows  int
	logger *slog.Logger
}

// NewDynamic allocates the initial buffer described by desc.
func NewDynamic(dev device.GraphicsDevice, desc device.BufferDescriptor, logger *slog.Logger) (*Dynamic, error) {
	if desc.Capacity <= 0 {
		desc.Capacity = 1
	}
	buf, err := dev.CreateBuffer(&desc)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s buffer %q: %w", device.ErrBufferUpdate, desc.Usage, desc.Label, err)
	}
	return &Dynamic{dev: dev, buf: buf, logger: logger}, nil
}

// Buffer returns the current buffer.
func (d *Dynamic) Buffer() device.Buffer { return d.buf }

// Capacity returns the current capacity in elements.
func (d *Dynamic) Capacity() int { return d.buf.Capacity() }

// Grows returns how many times the buffer was reallocated.
func (d *Dynamic) Grows() int { return d.grows }

// Ensure grows the buffer to hold required elements.
func (d *Dynamic) Ensure(required int) error {
	prev := d.buf
	buf, err := EnsureCapacity(d.dev, d.buf, required)
	if err != nil {
		return err
	}
	if buf != prev {
		d.grows++
		if d.logger != nil {
			d.logger.Debug("debugdraw: buffer grown",
				slog.String("label", buf.Descriptor().Label),
				slog.Int("from", prev.Capacity()),
				slog.Int("to", buf.Capacity()))
		}
	}
	d.buf = buf
	return nil
}

// Upload ensures capacity for count elements and writes data at offset 0.
func (d *Dynamic) Upload(data []byte, count int) error {
	if err := d.Ensure(count); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.dev.WriteBuffer(d.buf, data); err != nil {
		return fmt.Errorf("%w: write %q: %w", device.ErrBufferUpdate, d.buf.Descriptor().Label, err)
	}
	return nil
}

// Release destroys the buffer.
func (d *Dynamic) Release() {
	if d.buf != nil {
		d.dev.DestroyBuffer(d.buf)
		d.buf = nil
	}
}
