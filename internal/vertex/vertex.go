// Package vertex serializes vertex, index and uniform data into the
// little-endian layouts the shaders read.
package vertex

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Mat4Size is the byte size of a mat4x4<f32> uniform.
const Mat4Size = 64

// AppendFloat32 appends each value as a little-endian float32.
func AppendFloat32(b []byte, vs ...float32) []byte {
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

// AppendInt32 appends v as a little-endian int32.
func AppendInt32(b []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(b, uint32(v))
}

// AppendUint32 appends each index as a little-endian uint32.
func AppendUint32(b []byte, vs ...uint32) []byte {
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	return b
}

// PutMat4 writes m in column-major order, matching WGSL mat4x4<f32>.
// dst must hold at least Mat4Size bytes.
func PutMat4(dst []byte, m mgl32.Mat4) {
	for i, v := range m {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// Float32At reads the little-endian float32 at byte offset off.
func Float32At(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

// Uint32At reads the little-endian uint32 at byte offset off.
func Uint32At(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}
