package vision

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/your-org/outfit/internal/errs"
)

// ImageNet normalisation in 0-255 pixel units, used by both model families.
var (
	imagenetMean = [3]float32{123.675, 116.28, 103.53}
	imagenetStd  = [3]float32{58.395, 57.12, 57.375}
)

// DecodeImage decodes JPEG, PNG, GIF or WebP bytes. Undecodable input is the
// caller's mistake and is reported as an input error.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errs.Input("decode image", "image is empty")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.WrapInput("decode image", err)
	}
	if img.Bounds().Empty() {
		return nil, errs.Input("decode image", "image has no pixels")
	}
	return img, nil
}

// imageToFloat32CHW converts an image to CHW float32 format with normalization:
//
//	pixel = (pixel - mean) / std
func imageToFloat32CHW(img image.Image, targetW, targetH int, mean, std [3]float32) []float32 {
	resized := resizeImage(img, targetW, targetH)
	w, h := targetW, targetH

	data := make([]float32, 3*h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := resized.PixOffset(x, y)
			rf := float32(resized.Pix[off])
			gf := float32(resized.Pix[off+1])
			bf := float32(resized.Pix[off+2])

			// CHW layout: [C][H][W]
			idx := y*w + x
			data[0*h*w+idx] = (rf - mean[0]) / std[0]
			data[1*h*w+idx] = (gf - mean[1]) / std[1]
			data[2*h*w+idx] = (bf - mean[2]) / std[2]
		}
	}
	return data
}

// resizeImage scales img to exactly targetW x targetH with bilinear filtering.
func resizeImage(img image.Image, targetW, targetH int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// toRGBA returns img as *image.RGBA anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// runWithContext bounds a blocking call by ctx. ONNX sessions cannot be
// interrupted, so an expired call keeps running in the background and its
// result is discarded.
func runWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
