// Package capture records debug-draw frames to a compressed stream and reads
// them back.
//
// A capture is a zstd stream of msgpack-encoded Frame records written back
// to back. Frames hold the draw commands a renderer drained for one Render
// call together with the projection and screen size it rendered with, so a
// capture can be replayed into another renderer.
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrCorrupt is returned when a capture stream cannot be decoded.
var ErrCorrupt = errors.New("capture: corrupt stream")

// ErrClosed is returned when recording to a closed Recorder.
var ErrClosed = errors.New("capture: recorder closed")

// Kind identifies the command payload.
type Kind uint8

// Command kinds. The values are part of the stream format.
const (
	KindLine Kind = iota + 1
	KindMarker
	KindScreenText
	KindWorldText
)

// Command is one recorded draw command.
//
// Lines use Start and End, markers use Start as the center and Size, world
// text uses Start as the anchor, screen text uses X and Y.
type Command struct {
	Kind  Kind       `msgpack:"k"`
	Start mgl32.Vec3 `msgpack:"a,omitempty"`
	End   mgl32.Vec3 `msgpack:"b,omitempty"`
	Size  float32    `msgpack:"s,omitempty"`
	X     int32      `msgpack:"x,omitempty"`
	Y     int32      `msgpack:"y,omitempty"`
	Text  string     `msgpack:"t,omitempty"`
	Color mgl32.Vec4 `msgpack:"c"`
}

// Frame is the recorded content of one Render call.
type Frame struct {
	Index        uint64     `msgpack:"i"`
	Projection   mgl32.Mat4 `msgpack:"p"`
	ScreenWidth  int        `msgpack:"w"`
	ScreenHeight int        `msgpack:"h"`
	Commands     []Command  `msgpack:"cmds"`
}

// Recorder appends frames to a capture stream. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	zw     *zstd.Encoder
	enc    *msgpack.Encoder
	frames uint64
	closed bool
}

// NewRecorder starts a capture stream on w. The stream is complete only
// after Close.
func NewRecorder(w io.Writer) (*Recorder, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("capture: create zstd writer: %w", err)
	}
	return &Recorder{zw: zw, enc: msgpack.NewEncoder(zw)}, nil
}

// Record appends f, assigning it the next frame index.
func (r *Recorder) Record(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	f.Index = r.frames
	if err := r.enc.Encode(&f); err != nil {
		return fmt.Errorf("capture: encode frame %d: %w", f.Index, err)
	}
	r.frames++
	return nil
}

// Frames returns the number of frames recorded so far.
func (r *Recorder) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close flushes the stream. It does not close the underlying writer.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.zw.Close(); err != nil {
		return fmt.Errorf("capture: close zstd writer: %w", err)
	}
	return nil
}

// Reader reads frames from a capture stream.
type Reader struct {
	zr  *zstd.Decoder
	dec *msgpack.Decoder
}

// NewReader opens a capture stream for reading.
func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &Reader{zr: zr, dec: msgpack.NewDecoder(zr)}, nil
}

// Next returns the next frame, or io.EOF at the end of the stream.
func (r *Reader) Next() (Frame, error) {
	var f Frame
	if err := r.dec.Decode(&f); err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return f, nil
}

// Close releases the decoder.
func (r *Reader) Close() {
	r.zr.Close()
}

// ReadAll reads every frame in the stream.
func ReadAll(r io.Reader) ([]Frame, error) {
	cr, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	var frames []Frame
	for {
		f, err := cr.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}
