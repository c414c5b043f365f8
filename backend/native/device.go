//go:build !nogpu

package native

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/debugdraw/device"
)

// Device is a device.GraphicsDevice backed by a HAL device and queue.
//
// Device is not safe for concurrent use; call it from the goroutine that
// renders.
type Device struct {
	device hal.Device
	queue  hal.Queue
	logger *slog.Logger

	// lastSubmit is the index returned by the most recent queue submission.
	lastSubmit uint64

	// pending holds releases waiting for GPU work to complete, in
	// submission order.
	pending []release
	closed  bool
}

// release frees a resource once submission index has completed.
type release struct {
	index uint64
	free  func()
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger for resource diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		d.logger = l
	}
}

// New creates a backend drawing through device and queue. The caller keeps
// ownership of both.
func New(dev hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, ErrNilDevice
	}
	d := &Device{device: dev, queue: queue}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	return d, nil
}

// NewFromProvider creates a backend sharing the device of an external
// provider, such as a gogpu application. The provider must expose
// hal.Device and hal.Queue, either through HalDevice() and HalQueue()
// methods or directly from Device() and Queue().
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	var rawDevice, rawQueue any
	if hp, ok := provider.(halProvider); ok {
		rawDevice, rawQueue = hp.HalDevice(), hp.HalQueue()
	} else {
		rawDevice, rawQueue = provider.Device(), provider.Queue()
	}
	dev, ok := rawDevice.(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: device is %T", ErrProvider, rawDevice)
	}
	queue, ok := rawQueue.(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: queue is %T", ErrProvider, rawQueue)
	}
	return New(dev, queue, opts...)
}

// Close waits for the GPU to go idle and frees every deferred release.
// Resources still held by renderers must be destroyed before Close.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	err := d.device.WaitIdle()
	for _, r := range d.pending {
		r.free()
	}
	d.pending = nil
	if err != nil {
		return fmt.Errorf("native: wait idle: %w", err)
	}
	return nil
}

// Pending returns the number of releases waiting for GPU work.
func (d *Device) Pending() int { return len(d.pending) }

// deferRelease runs free once the GPU has completed submission index, or right
// away when it already has.
func (d *Device) deferRelease(index uint64, free func()) {
	if d.closed || index <= d.queue.PollCompleted() {
		free()
		return
	}
	d.pending = append(d.pending, release{index: index, free: free})
}

// collect frees every deferred release whose submission has completed.
func (d *Device) collect() {
	if len(d.pending) == 0 {
		return
	}
	completed := d.queue.PollCompleted()
	n := 0
	for _, r := range d.pending {
		if r.index <= completed {
			r.free()
			continue
		}
		d.pending[n] = r
		n++
	}
	clear(d.pending[n:])
	d.pending = d.pending[:n]
}

// buffer is a HAL buffer with its element layout.
type buffer struct {
	desc    device.BufferDescriptor
	raw     hal.Buffer
	lastUse uint64
}

func (b *buffer) Descriptor() device.BufferDescriptor { return b.desc }
func (b *buffer) Capacity() int                       { return b.desc.Capacity }

// CreateBuffer allocates a vertex or index buffer. Sizes are rounded up to
// 4 bytes as required by queue writes.
func (d *Device) CreateBuffer(desc *device.BufferDescriptor) (device.Buffer, error) {
	if d.closed {
		return nil, ErrClosed
	}
	usage := gputypes.BufferUsageCopyDst
	switch desc.Usage {
	case device.BufferVertex:
		usage |= gputypes.BufferUsageVertex
	case device.BufferIndex:
		usage |= gputypes.BufferUsageIndex
	default:
		return nil, fmt.Errorf("native: buffer %q: unknown usage %v", desc.Label, desc.Usage)
	}
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  align4(desc.Size()),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create buffer %q: %w", desc.Label, err)
	}
	d.logger.Debug("native: buffer created",
		slog.String("label", desc.Label),
		slog.Uint64("bytes", desc.Size()))
	return &buffer{desc: *desc, raw: raw}, nil
}

// DestroyBuffer releases buf once the GPU no longer uses it.
func (d *Device) DestroyBuffer(buf device.Buffer) {
	b, ok := buf.(*buffer)
	if !ok || b.raw == nil {
		return
	}
	raw := b.raw
	b.raw = nil
	d.deferRelease(b.lastUse, func() { d.device.DestroyBuffer(raw) })
}

// WriteBuffer writes data at offset 0.
func (d *Device) WriteBuffer(buf device.Buffer, data []byte) error {
	b, ok := buf.(*buffer)
	if !ok || b.raw == nil {
		return fmt.Errorf("%w: buffer %T", device.ErrInvalidHandle, buf)
	}
	if uint64(len(data)) > b.desc.Size() {
		return fmt.Errorf("native: write %d bytes into %q of %d bytes", len(data), b.desc.Label, b.desc.Size())
	}
	if err := d.queue.WriteBuffer(b.raw, 0, padded(data)); err != nil {
		return fmt.Errorf("native: write buffer %q: %w", b.desc.Label, err)
	}
	return nil
}

// texture is a sampled RGBA8 texture and its default view.
type texture struct {
	width, height int
	raw           hal.Texture
	view          hal.TextureView
	lastUse       uint64

	// users are the programs holding a bind group for this texture.
	users []*program
}

func (t *texture) Size() (width, height int) { return t.width, t.height }

// CreateTexture creates an RGBA8 texture and uploads desc.Pixels.
func (d *Device) CreateTexture(desc *device.TextureDescriptor) (device.Texture, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("native: texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if want := desc.Width * desc.Height * 4; len(desc.Pixels) != want {
		return nil, fmt.Errorf("native: texture %q: %d bytes of pixels, want %d", desc.Label, len(desc.Pixels), want)
	}
	w, h := uint32(desc.Width), uint32(desc.Height) //nolint:gosec // validated positive above
	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create texture %q: %w", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:         desc.Label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(raw)
		return nil, fmt.Errorf("native: create texture view %q: %w", desc.Label, err)
	}
	err = d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: raw, MipLevel: 0},
		desc.Pixels,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&size,
	)
	if err != nil {
		d.device.DestroyTextureView(view)
		d.device.DestroyTexture(raw)
		return nil, fmt.Errorf("native: upload texture %q: %w", desc.Label, err)
	}
	return &texture{width: desc.Width, height: desc.Height, raw: raw, view: view}, nil
}

// DestroyTexture releases tex once the GPU no longer uses it.
func (d *Device) DestroyTexture(tex device.Texture) {
	t, ok := tex.(*texture)
	if !ok || t.raw == nil {
		return
	}
	raw, view := t.raw, t.view
	t.raw, t.view = nil, nil
	var groups []hal.BindGroup
	for _, p := range t.users {
		if g, ok := p.groups[t]; ok {
			groups = append(groups, g)
			delete(p.groups, t)
		}
	}
	t.users = nil
	d.deferRelease(t.lastUse, func() {
		for _, g := range groups {
			d.device.DestroyBindGroup(g)
		}
		d.device.DestroyTextureView(view)
		d.device.DestroyTexture(raw)
	})
}

func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}

// padded returns data extended with zeros to a multiple of 4 bytes.
func padded(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	out := make([]byte, align4(uint64(len(data))))
	copy(out, data)
	return out
}
