package commands

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/gen2brain/heic"
	"github.com/jo-hoe/ocrgateway/internal/backend/commandstructure"
)

const heicConverterName = "HeicConverterCommand"

// HeicConverterCommand decodes HEIC/HEIF containers and re-encodes the pixels
// as JPEG (default) or PNG.
type HeicConverterCommand struct {
	name    string
	target  string
	quality int
	maxEdge int
	decode  func(io.Reader) (image.Image, error)
}

// NewHeicConverterCommand reads "target" (jpeg|png), "jpegQuality" (1..100)
// and "maxEdge" (0 keeps the decoded size)
func NewHeicConverterCommand(params map[string]any) (commandstructure.Command, error) {
	target, err := commandstructure.GetOneOfParam(params, "target", TargetJPEG, TargetJPEG, TargetPNG)
	if err != nil {
		return nil, err
	}
	quality := commandstructure.GetIntParam(params, "jpegQuality", DefaultJPEGQuality)
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("jpegQuality must be between 1 and 100, got %d", quality)
	}
	maxEdge := commandstructure.GetIntParam(params, "maxEdge", 0)
	if maxEdge < 0 {
		return nil, fmt.Errorf("maxEdge must not be negative, got %d", maxEdge)
	}

	return &HeicConverterCommand{
		name:    heicConverterName,
		target:  target,
		quality: quality,
		maxEdge: maxEdge,
		decode:  heic.Decode,
	}, nil
}

// Name returns the command name
func (c *HeicConverterCommand) Name() string {
	return c.name
}

// Target returns the output raster format
func (c *HeicConverterCommand) Target() string {
	return c.target
}

func (c *HeicConverterCommand) Execute(imageData []byte) ([]byte, error) {
	slog.Debug("HeicConverterCommand: start",
		"input_size_bytes", len(imageData),
		"target", c.target)

	if len(imageData) == 0 {
		return nil, fmt.Errorf("empty HEIC payload")
	}

	img, err := c.decodeSafely(imageData)
	if err != nil {
		slog.Error("HeicConverterCommand: failed to decode image", "error", err)
		return nil, fmt.Errorf("failed to decode HEIC image: %w", err)
	}

	mode, stride := pixelLayout(img)
	slog.Debug("HeicConverterCommand: decoded pixel buffer",
		"mode", mode,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"stride", stride)

	if c.maxEdge > 0 {
		img = downscale(img, c.maxEdge)
		slog.Debug("HeicConverterCommand: bounded to max edge",
			"max_edge", c.maxEdge,
			"width", img.Bounds().Dx(),
			"height", img.Bounds().Dy())
	}

	out, err := encodeRaster(img, c.target, c.quality)
	if err != nil {
		slog.Error("HeicConverterCommand: failed to encode image", "target", c.target, "error", err)
		return nil, err
	}
	slog.Debug("HeicConverterCommand: conversion complete", "output_size_bytes", len(out))
	return out, nil
}

// decodeSafely turns decoder panics on malformed containers into errors
func (c *HeicConverterCommand) decodeSafely(imageData []byte) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	img, err = c.decode(bytes.NewReader(imageData))
	if err == nil && img == nil {
		err = fmt.Errorf("decoder returned no image")
	}
	return img, err
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(heicConverterName, NewHeicConverterCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", heicConverterName, err))
	}
}
