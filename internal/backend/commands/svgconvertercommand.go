package commands

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image/color"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jo-hoe/ocrgateway/internal/backend/commandstructure"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	svgConverterName = "SvgConverterCommand"
	// upper bound for either rendered edge, keeps a hostile width="1e9" from allocating
	maxSvgEdge = 8192
)

// SvgConverterCommand rasterizes SVG documents onto a white PNG canvas
type SvgConverterCommand struct {
	name           string
	fallbackWidth  int
	fallbackHeight int
}

// NewSvgConverterCommand reads optional "svgFallbackWidth"/"svgFallbackHeight",
// used when the document carries no explicit size.
func NewSvgConverterCommand(params map[string]any) (commandstructure.Command, error) {
	w := commandstructure.GetIntParam(params, "svgFallbackWidth", 0)
	h := commandstructure.GetIntParam(params, "svgFallbackHeight", 0)
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("svg fallback size must not be negative, got %dx%d", w, h)
	}
	return &SvgConverterCommand{
		name:           svgConverterName,
		fallbackWidth:  w,
		fallbackHeight: h,
	}, nil
}

// Name returns the command name
func (c *SvgConverterCommand) Name() string {
	return c.name
}

func (c *SvgConverterCommand) Execute(imageData []byte) ([]byte, error) {
	slog.Debug("SvgConverterCommand: start", "input_size_bytes", len(imageData))

	icon, err := oksvg.ReadIconStream(bytes.NewReader(imageData))
	if err != nil {
		slog.Error("SvgConverterCommand: failed to parse SVG", "error", err)
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	w, h, err := c.renderSize(imageData, icon)
	if err != nil {
		return nil, err
	}
	slog.Debug("SvgConverterCommand: render size resolved", "width", w, "height", h)

	icon.SetTarget(0, 0, float64(w), float64(h))
	dst := createTargetCanvas(w, h, color.RGBA{255, 255, 255, 255})
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)

	out, err := encodeRaster(dst, TargetPNG, 0)
	if err != nil {
		return nil, err
	}
	slog.Debug("SvgConverterCommand: render complete", "output_size_bytes", len(out))
	return out, nil
}

// renderSize prefers the root element's width/height, then the configured
// fallback, then the viewBox extent.
func (c *SvgConverterCommand) renderSize(data []byte, icon *oksvg.SvgIcon) (int, int, error) {
	w, h, ok := parseSvgExplicitSize(data)
	if !ok && c.fallbackWidth > 0 && c.fallbackHeight > 0 {
		w, h, ok = c.fallbackWidth, c.fallbackHeight, true
	}
	if !ok && icon.ViewBox.W >= 1 && icon.ViewBox.H >= 1 {
		w, h, ok = int(icon.ViewBox.W), int(icon.ViewBox.H), true
	}
	if !ok {
		return 0, 0, fmt.Errorf("SVG has no size and no fallback size is configured")
	}
	if w > maxSvgEdge || h > maxSvgEdge {
		return 0, 0, fmt.Errorf("SVG render size %dx%d exceeds limit %d", w, h, maxSvgEdge)
	}
	return w, h, nil
}

// parseSvgExplicitSize reads width and height from the root <svg> element.
// Unit suffixes such as "px" are ignored; percentages are not a size.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			return 0, 0, false
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !strings.EqualFold(start.Name.Local, "svg") {
			return 0, 0, false
		}
		var w, h int
		for _, attr := range start.Attr {
			switch strings.ToLower(attr.Name.Local) {
			case "width":
				w = leadingInt(attr.Value)
			case "height":
				h = leadingInt(attr.Value)
			}
		}
		return w, h, w > 0 && h > 0
	}
}

func leadingInt(v string) int {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "%") {
		return 0
	}
	end := 0
	for end < len(v) && (v[end] >= '0' && v[end] <= '9' || v[end] == '.') {
		end++
	}
	f, err := strconv.ParseFloat(v[:end], 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(svgConverterName, NewSvgConverterCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", svgConverterName, err))
	}
}
