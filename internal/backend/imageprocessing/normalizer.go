package imageprocessing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jo-hoe/ocrgateway/internal/backend/commandstructure"

	// converters register themselves in commandstructure.DefaultRegistry
	_ "github.com/jo-hoe/ocrgateway/internal/backend/commands"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage marks payloads whose container could not be decoded
var ErrUnsupportedImage = errors.New("unsupported image payload")

// ConverterConfig routes file extensions to a registered converter command
type ConverterConfig struct {
	Extensions []string
	Command    string
	Params     map[string]any
}

// NormalizerOptions are the user-facing knobs of the default converter set
type NormalizerOptions struct {
	Target            string
	JPEGQuality       int
	MaxEdge           int
	SVGFallbackWidth  int
	SVGFallbackHeight int
}

// DefaultConverters converts HEIC/HEIF to Target and rasterizes SVG to PNG
func DefaultConverters(opts NormalizerOptions) []ConverterConfig {
	return []ConverterConfig{
		{
			Extensions: []string{".heic", ".heif"},
			Command:    "HeicConverterCommand",
			Params: map[string]any{
				"target":      opts.Target,
				"jpegQuality": opts.JPEGQuality,
				"maxEdge":     opts.MaxEdge,
			},
		},
		{
			Extensions: []string{".svg"},
			Command:    "SvgConverterCommand",
			Params: map[string]any{
				"svgFallbackWidth":  opts.SVGFallbackWidth,
				"svgFallbackHeight": opts.SVGFallbackHeight,
			},
		},
	}
}

// Normalizer turns camera-native containers into formats the OCR gateway
// accepts. Anything it has no converter for is returned untouched.
type Normalizer struct {
	converters map[string]commandstructure.Command
}

// NewNormalizer builds converters from the default registry
func NewNormalizer(configs []ConverterConfig) (*Normalizer, error) {
	return NewNormalizerWithRegistry(commandstructure.DefaultRegistry, configs)
}

// NewNormalizerWithRegistry builds converters from registry
func NewNormalizerWithRegistry(registry *commandstructure.CommandRegistry, configs []ConverterConfig) (*Normalizer, error) {
	n := &Normalizer{converters: make(map[string]commandstructure.Command)}
	for i, cfg := range configs {
		if len(cfg.Extensions) == 0 {
			return nil, fmt.Errorf("converter at index %d has no extensions", i)
		}
		command, err := registry.Create(cfg.Command, cfg.Params)
		if err != nil {
			return nil, err
		}
		for _, ext := range cfg.Extensions {
			key := normalizeExtension(ext)
			if key == "" {
				return nil, fmt.Errorf("converter %s has an empty extension", cfg.Command)
			}
			if existing, ok := n.converters[key]; ok {
				return nil, fmt.Errorf("extension %s is claimed by both %s and %s", key, existing.Name(), command.Name())
			}
			n.converters[key] = command
		}
	}
	return n, nil
}

// Normalize converts imageData when filename's extension has a converter.
// Decode failures are reported as ErrUnsupportedImage.
func (n *Normalizer) Normalize(imageData []byte, filename string) ([]byte, error) {
	ext := normalizeExtension(filepath.Ext(filename))
	command, ok := n.converters[ext]
	if !ok {
		logPassThrough(imageData, filename)
		return imageData, nil
	}

	slog.Info("normalizing image",
		"filename", filename,
		"command_name", command.Name(),
		"input_size_bytes", len(imageData))

	out, err := command.Execute(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedImage, filename, err)
	}

	slog.Info("image normalized",
		"filename", filename,
		"command_name", command.Name(),
		"output_size_bytes", len(out))
	return out, nil
}

// HandledExtensions lists the extensions that trigger a conversion, sorted
func (n *Normalizer) HandledExtensions() []string {
	exts := make([]string, 0, len(n.converters))
	for ext := range n.converters {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// logPassThrough records what the forwarded bytes look like. It never fails:
// content is not validated beyond the extension.
func logPassThrough(imageData []byte, filename string) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		slog.Debug("passing image through unrecognised", "filename", filename, "size_bytes", len(imageData))
		return
	}
	slog.Debug("passing image through",
		"filename", filename,
		"format", format,
		"width", cfg.Width,
		"height", cfg.Height,
		"size_bytes", len(imageData))
}
