// Package tensor holds the host's image tensor representation and its
// conversion to and from decoded images.
package tensor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

var ErrShape = errors.New("tensor: invalid shape")

// Image is a host image batch in NHWC layout with float32 samples in [0,1].
type Image struct {
	Shape [4]int // batch, height, width, channels
	Data  []float32
}

func New(batch, height, width, channels int) *Image {
	return &Image{
		Shape: [4]int{batch, height, width, channels},
		Data:  make([]float32, batch*height*width*channels),
	}
}

func (t *Image) Batch() int    { return t.Shape[0] }
func (t *Image) Height() int   { return t.Shape[1] }
func (t *Image) Width() int    { return t.Shape[2] }
func (t *Image) Channels() int { return t.Shape[3] }

func (t *Image) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil tensor", ErrShape)
	}
	b, h, w, c := t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3]
	if b < 1 || h < 1 || w < 1 {
		return fmt.Errorf("%w: %v", ErrShape, t.Shape)
	}
	if c != 3 && c != 4 {
		return fmt.Errorf("%w: expected 3 or 4 channels, got %d", ErrShape, c)
	}
	if len(t.Data) != b*h*w*c {
		return fmt.Errorf("%w: %v needs %d values, got %d", ErrShape, t.Shape, b*h*w*c, len(t.Data))
	}
	return nil
}

// ToImage converts the first image of the batch to 8-bit RGBA. Samples are
// scaled by 255 and truncated; alpha is forced opaque.
func ToImage(t *Image) (*image.RGBA, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	h, w, c := t.Height(), t.Width(), t.Channels()
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := (y*w + x) * c
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(t.Data[base]),
				G: toByte(t.Data[base+1]),
				B: toByte(t.Data[base+2]),
				A: 255,
			})
		}
	}

	return img, nil
}

// FromImage builds a single-image RGB batch from any decoded image.
func FromImage(src image.Image) *Image {
	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	h, w := bounds.Dy(), bounds.Dx()
	t := New(1, h, w, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := rgba.RGBAAt(x, y)
			base := (y*w + x) * 3
			t.Data[base] = float32(p.R) / 255.0
			t.Data[base+1] = float32(p.G) / 255.0
			t.Data[base+2] = float32(p.B) / 255.0
		}
	}
	return t
}

func toByte(v float32) uint8 {
	v *= 255
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
