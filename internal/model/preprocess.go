package model

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// Normalization constants used by the supported checkpoints.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}

	CLIPMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	CLIPStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// ResizeShortest scales img so that its shorter side equals size and the
// longer side keeps the aspect ratio.
func ResizeShortest(img image.Image, size int) (image.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid resize target %d", size)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("cannot resize empty image")
	}

	var nw, nh int
	if w <= h {
		nw, nh = size, int(float64(size)*float64(h)/float64(w))
	} else {
		nw, nh = int(float64(size)*float64(w)/float64(h)), size
	}
	if nw == w && nh == h {
		return img, nil
	}

	return resize.Resize(uint(nw), uint(nh), img, resize.Bicubic), nil
}

// CenterCrop cuts a size x size square out of the middle of img. Images
// smaller than the crop are padded with black.
func CenterCrop(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	top := int(math.RoundToEven(float64(b.Dy()-size) / 2))
	left := int(math.RoundToEven(float64(b.Dx()-size) / 2))

	// Negative offsets mean padding: shift the destination instead.
	dr := dst.Bounds()
	sp := image.Pt(b.Min.X+left, b.Min.Y+top)
	if left < 0 {
		dr.Min.X = -left
		sp.X = b.Min.X
	}
	if top < 0 {
		dr.Min.Y = -top
		sp.Y = b.Min.Y
	}
	draw.Draw(dst, dr, img, sp, draw.Src)
	return dst
}

// NormalizeCHW converts img to a planar float32 tensor. Each 8-bit sample is
// multiplied by scale and then normalized with mean and std.
func NormalizeCHW(img image.Image, mean, std [3]float32, scale float32) []float32 {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	plane := width * height
	inputData := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()

			pixelIndex := y*width + x
			inputData[pixelIndex] = (float32(r>>8)*scale - mean[0]) / std[0]
			inputData[plane+pixelIndex] = (float32(g>>8)*scale - mean[1]) / std[1]
			inputData[2*plane+pixelIndex] = (float32(bl>>8)*scale - mean[2]) / std[2]
		}
	}

	return inputData
}

// Transform is a resize, center-crop and normalize pipeline.
type Transform struct {
	Resize int
	Crop   int
	Mean   [3]float32
	Std    [3]float32
}

// DINOTransform resizes to 256, crops 224 and applies ImageNet statistics.
func DINOTransform(meta *Metadata) Transform {
	t := Transform{Resize: 256, Crop: 224, Mean: ImageNetMean, Std: ImageNetStd}
	if meta != nil {
		t.Crop = meta.ImageSize
		if meta.ResizeSize > 0 {
			t.Resize = meta.ResizeSize
		}
		t.Mean, t.Std = meta.Mean, meta.Std
	}
	return t
}

// CLIPTransform mirrors the CLIP image processor: shortest side to the
// model resolution, center crop, CLIP statistics.
func CLIPTransform(meta *Metadata) Transform {
	t := Transform{Resize: 224, Crop: 224, Mean: CLIPMean, Std: CLIPStd}
	if meta != nil {
		t.Resize, t.Crop = meta.ImageSize, meta.ImageSize
		t.Mean, t.Std = meta.Mean, meta.Std
	}
	return t
}

func (t Transform) Apply(img image.Image) ([]float32, error) {
	resized, err := ResizeShortest(img, t.Resize)
	if err != nil {
		return nil, err
	}
	cropped := CenterCrop(resized, t.Crop)
	return NormalizeCHW(cropped, t.Mean, t.Std, 1.0/255.0), nil
}

// ScoreCrop is the resize 256 / crop 224 step applied to images before they
// are handed to the CLIP text-image metric.
func ScoreCrop(img image.Image) (*image.RGBA, error) {
	resized, err := ResizeShortest(img, 256)
	if err != nil {
		return nil, err
	}
	return CenterCrop(resized, 224), nil
}
