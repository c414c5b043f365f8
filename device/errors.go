package device

import "errors"

// Error kinds reported by renderers and devices. Wrap them with %w so callers
// can classify failures with errors.Is.
var (
	// ErrPipelineState is returned when a shader fails to compile or link,
	// or a pipeline cannot be built.
	ErrPipelineState = errors.New("device: pipeline state error")

	// ErrBufferUpdate is returned when a buffer cannot be allocated or
	// written.
	ErrBufferUpdate = errors.New("device: buffer update error")

	// ErrSubmit is returned when a draw cannot be encoded or submitted.
	ErrSubmit = errors.New("device: draw submission failed")

	// ErrInvalidHandle is returned when a resource handle was created by a
	// different device.
	ErrInvalidHandle = errors.New("device: invalid resource handle")
)
