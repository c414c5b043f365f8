package vertex

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestAppendFloat32(t *testing.T) {
	b := AppendFloat32(nil, 1, -2.5, 0)
	if len(b) != 12 {
		t.Fatalf("len = %d, want 12", len(b))
	}
	for i, want := range []float32{1, -2.5, 0} {
		if got := Float32At(b, i*4); got != want {
			t.Errorf("value %d = %v, want %v", i, got, want)
		}
	}
}

func TestAppendInt32(t *testing.T) {
	b := AppendInt32(nil, -1)
	if Uint32At(b, 0) != 0xFFFFFFFF {
		t.Errorf("AppendInt32(-1) = %x", b)
	}
}

func TestPutMat4ColumnMajor(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	b := make([]byte, Mat4Size)
	PutMat4(b, m)

	// Translation lives in the fourth column, elements 12..14.
	for i, want := range []float32{1, 2, 3} {
		if got := Float32At(b, (12+i)*4); got != want {
			t.Errorf("element %d = %v, want %v", 12+i, got, want)
		}
	}
	if got := Float32At(b, 15*4); got != 1 {
		t.Errorf("element 15 = %v, want 1", got)
	}
}
