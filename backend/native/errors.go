package native

import "errors"

// Backend errors.
var (
	// ErrNilDevice is returned when a backend is created without a HAL
	// device or queue.
	ErrNilDevice = errors.New("native: HAL device or queue is nil")

	// ErrProvider is returned when a device provider does not expose HAL
	// types.
	ErrProvider = errors.New("native: provider does not expose HAL device and queue")

	// ErrClosed is returned when using a closed backend.
	ErrClosed = errors.New("native: backend closed")

	// ErrNilTarget is returned when a draw has no color attachment.
	ErrNilTarget = errors.New("native: draw target has no color view")
)
