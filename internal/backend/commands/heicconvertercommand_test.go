package commands

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gen2brain/heic"
	"github.com/jo-hoe/ocrgateway/internal/backend/commandstructure"
)

// checkerboard returns a small NRGBA image with distinct pixel values
func checkerboard(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: uint8((x + y) % 2 * 255), A: 255})
		}
	}
	return img
}

func newHeicCommandWithDecoder(t *testing.T, params map[string]any, decode func(io.Reader) (image.Image, error)) *HeicConverterCommand {
	t.Helper()
	command, err := NewHeicConverterCommand(params)
	if err != nil {
		t.Fatalf("Failed to create command: %v", err)
	}
	heicCmd := command.(*HeicConverterCommand)
	heicCmd.decode = decode
	return heicCmd
}

func TestNewHeicConverterCommand_Params(t *testing.T) {
	tests := []struct {
		name       string
		params     map[string]any
		wantErr    bool
		wantTarget string
	}{
		{name: "defaults", params: map[string]any{}, wantTarget: TargetJPEG},
		{name: "png target", params: map[string]any{"target": "png"}, wantTarget: TargetPNG},
		{name: "unknown target", params: map[string]any{"target": "gif"}, wantErr: true},
		{name: "quality too high", params: map[string]any{"jpegQuality": 101}, wantErr: true},
		{name: "quality zero", params: map[string]any{"jpegQuality": 0}, wantErr: true},
		{name: "negative max edge", params: map[string]any{"maxEdge": -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, err := NewHeicConverterCommand(tt.params)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			heicCmd := command.(*HeicConverterCommand)
			if heicCmd.Target() != tt.wantTarget {
				t.Errorf("Expected target %s, got %s", tt.wantTarget, heicCmd.Target())
			}
			if heicCmd.Name() != "HeicConverterCommand" {
				t.Errorf("Expected name 'HeicConverterCommand', got '%s'", heicCmd.Name())
			}
		})
	}
}

func TestHeicConverterCommand_PNGTargetIsPixelExact(t *testing.T) {
	src := checkerboard(6, 5)
	command := newHeicCommandWithDecoder(t, map[string]any{"target": "png"}, func(io.Reader) (image.Image, error) {
		return src, nil
	})

	out, err := command.Execute([]byte("heic-bytes"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Result is not valid PNG: %v", err)
	}
	if decoded.Bounds() != src.Bounds() {
		t.Fatalf("Expected bounds %v, got %v", src.Bounds(), decoded.Bounds())
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			want := color.NRGBAModel.Convert(src.At(x, y))
			got := color.NRGBAModel.Convert(decoded.At(x, y))
			if want != got {
				t.Fatalf("pixel (%d,%d): expected %v, got %v", x, y, want, got)
			}
		}
	}
}

func TestHeicConverterCommand_JPEGTarget(t *testing.T) {
	command := newHeicCommandWithDecoder(t, map[string]any{}, func(io.Reader) (image.Image, error) {
		return checkerboard(16, 8), nil
	})

	out, err := command.Execute([]byte("heic-bytes"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Result is not valid JPEG: %v", err)
	}
	if cfg.Width != 16 || cfg.Height != 8 {
		t.Errorf("Expected 16x8, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestHeicConverterCommand_MaxEdgeBoundsOutput(t *testing.T) {
	command := newHeicCommandWithDecoder(t, map[string]any{"target": "png", "maxEdge": 8}, func(io.Reader) (image.Image, error) {
		return checkerboard(16, 4), nil
	})

	out, err := command.Execute([]byte("heic-bytes"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Result is not valid PNG: %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 2 {
		t.Errorf("Expected 8x2, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestHeicConverterCommand_DecodeFailures(t *testing.T) {
	tests := []struct {
		name   string
		decode func(io.Reader) (image.Image, error)
	}{
		{name: "decoder error", decode: func(io.Reader) (image.Image, error) { return nil, errors.New("bad box") }},
		{name: "decoder panic", decode: func(io.Reader) (image.Image, error) { panic("index out of range") }},
		{name: "nil image", decode: func(io.Reader) (image.Image, error) { return nil, nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command := newHeicCommandWithDecoder(t, map[string]any{}, tt.decode)
			if _, err := command.Execute([]byte("heic-bytes")); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestHeicConverterCommand_RealDecoderRejectsGarbage(t *testing.T) {
	command, err := NewHeicConverterCommand(map[string]any{})
	if err != nil {
		t.Fatalf("Failed to create command: %v", err)
	}

	if _, err := command.Execute([]byte("not a valid image")); err == nil {
		t.Error("Expected error for invalid image data, got nil")
	}
	if _, err := command.Execute(nil); err == nil {
		t.Error("Expected error for empty payload, got nil")
	}
}

func TestHeicConverterCommand_RealFixtures(t *testing.T) {
	for _, name := range []string{"gray.heic", "test8.heic"} {
		t.Run(name, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join("testdata", name))
			if err != nil {
				t.Fatalf("read fixture: %v", err)
			}
			want, err := heic.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("reference decode failed: %v", err)
			}

			pngCmd, err := NewHeicConverterCommand(map[string]any{"target": "png"})
			if err != nil {
				t.Fatalf("Failed to create command: %v", err)
			}
			out, err := pngCmd.Execute(data)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			got, err := png.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("Result is not valid PNG: %v", err)
			}
			if diff := countDifferingPixels(want, got); diff != 0 {
				t.Errorf("Expected identical pixels, %d differ", diff)
			}

			jpegCmd, err := NewHeicConverterCommand(map[string]any{})
			if err != nil {
				t.Fatalf("Failed to create command: %v", err)
			}
			out, err = jpegCmd.Execute(data)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("Result is not valid JPEG: %v", err)
			}
			if cfg.Width != want.Bounds().Dx() || cfg.Height != want.Bounds().Dy() {
				t.Errorf("Expected %v, got %dx%d", want.Bounds().Size(), cfg.Width, cfg.Height)
			}
		})
	}
}

// countDifferingPixels compares two images in 16-bit RGBA space
func countDifferingPixels(a, b image.Image) int {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Size() != bb.Size() {
		return ab.Dx() * ab.Dy()
	}
	diff := 0
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, a1 := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, a2 := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				diff++
			}
		}
	}
	return diff
}

func TestHeicConverterCommand_RegisteredInDefaultRegistry(t *testing.T) {
	if !commandstructure.DefaultRegistry.IsRegistered("HeicConverterCommand") {
		t.Fatal("Expected HeicConverterCommand to be registered in DefaultRegistry")
	}
	command, err := commandstructure.DefaultRegistry.Create("HeicConverterCommand", map[string]any{})
	if err != nil {
		t.Fatalf("Failed to create command via registry: %v", err)
	}
	if _, ok := command.(*HeicConverterCommand); !ok {
		t.Fatal("Expected command to be *HeicConverterCommand")
	}
}

func TestPixelLayout(t *testing.T) {
	tests := []struct {
		name       string
		img        image.Image
		wantMode   string
		wantStride int
	}{
		{name: "rgba", img: image.NewRGBA(image.Rect(0, 0, 3, 2)), wantMode: "RGBA", wantStride: 12},
		{name: "gray", img: image.NewGray(image.Rect(0, 0, 3, 2)), wantMode: "Gray", wantStride: 3},
		{name: "ycbcr", img: image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420), wantMode: "YCbCr", wantStride: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, stride := pixelLayout(tt.img)
			if mode != tt.wantMode || stride != tt.wantStride {
				t.Errorf("Expected (%s, %d), got (%s, %d)", tt.wantMode, tt.wantStride, mode, stride)
			}
		})
	}
}
