package commands

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
)

const (
	TargetJPEG = "jpeg"
	TargetPNG  = "png"

	// DefaultJPEGQuality matches the default of most imaging libraries
	DefaultJPEGQuality = 75
)

// encodeRaster writes img in the requested portable raster format
func encodeRaster(img image.Image, target string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch target {
	case TargetPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
		}
	case TargetJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode image to JPEG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported target format: %s", target)
	}
	return buf.Bytes(), nil
}

// createTargetCanvas returns an RGBA canvas filled with bg
func createTargetCanvas(w, h int, bg color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)
	return dst
}

// pixelLayout describes the decoded pixel buffer: color mode and row stride.
func pixelLayout(img image.Image) (string, int) {
	switch p := img.(type) {
	case *image.YCbCr:
		return "YCbCr", p.YStride
	case *image.NYCbCrA:
		return "NYCbCrA", p.YStride
	case *image.RGBA:
		return "RGBA", p.Stride
	case *image.NRGBA:
		return "NRGBA", p.Stride
	case *image.RGBA64:
		return "RGBA64", p.Stride
	case *image.NRGBA64:
		return "NRGBA64", p.Stride
	case *image.Gray:
		return "Gray", p.Stride
	case *image.Gray16:
		return "Gray16", p.Stride
	default:
		return fmt.Sprintf("%T", img), 0
	}
}
