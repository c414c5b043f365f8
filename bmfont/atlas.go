package bmfont

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/png" // atlas decoders
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DecodeAtlas decodes a PNG, BMP or WebP atlas image. The image must carry
// an alpha channel: RGBA is returned as is and NRGBA is converted. Other
// color models fail with ErrTexture.
func DecodeAtlas(r io.Reader) (*image.RGBA, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decode atlas: %w", ErrTexture, err)
	}
	switch m := img.(type) {
	case *image.RGBA:
		return m, nil
	case *image.NRGBA:
		rgba := image.NewRGBA(m.Bounds())
		draw.Draw(rgba, rgba.Bounds(), m, m.Bounds().Min, draw.Src)
		return rgba, nil
	default:
		return nil, fmt.Errorf("%w: %s atlas has color model %T, want RGBA", ErrTexture, format, img)
	}
}

// LoadAtlas reads an atlas image from disk.
func LoadAtlas(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTexture, err)
	}
	defer f.Close()
	return DecodeAtlas(f)
}
