package debugdraw

import (
	"errors"

	"github.com/gogpu/debugdraw/bmfont"
	"github.com/gogpu/debugdraw/device"
)

// Error kinds returned by the renderer. Use errors.Is to classify them.
var (
	// ErrFontParse reports an unreadable or malformed font description.
	ErrFontParse = bmfont.ErrParse

	// ErrFontTexture reports an atlas that could not be decoded, does not
	// match its font, or could not be uploaded.
	ErrFontTexture = bmfont.ErrTexture

	// ErrPipelineState reports a shader program or pipeline the device
	// could not build.
	ErrPipelineState = device.ErrPipelineState

	// ErrBufferUpdate reports a failed buffer allocation or upload.
	ErrBufferUpdate = device.ErrBufferUpdate

	// ErrSubmit reports a draw the device could not encode or submit.
	ErrSubmit = device.ErrSubmit

	// ErrClosed is returned when rendering with a closed Renderer.
	ErrClosed = errors.New("debugdraw: renderer closed")
)
