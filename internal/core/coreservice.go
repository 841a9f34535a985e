package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/ocrgateway/internal/backend/database"
	"github.com/jo-hoe/ocrgateway/internal/backend/imageprocessing"
	"github.com/jo-hoe/ocrgateway/internal/backend/ocr"
)

// TextDetector is the part of the OCR client the service depends on
type TextDetector interface {
	DetectText(ctx context.Context, imageData []byte) (json.RawMessage, error)
}

type CoreService struct {
	config          *ServiceConfig
	normalizer      *imageprocessing.Normalizer
	textDetector    TextDetector
	databaseService database.HistoryStore
}

// NewCoreService wires the normalizer, OCR client and history store from config
func NewCoreService(config *ServiceConfig) (*CoreService, error) {
	normalizer, err := imageprocessing.NewNormalizer(imageprocessing.DefaultConverters(imageprocessing.NormalizerOptions{
		Target:            config.Normalizer.Target,
		JPEGQuality:       config.Normalizer.JPEGQuality,
		MaxEdge:           config.Normalizer.MaxEdge,
		SVGFallbackWidth:  config.Normalizer.SVGFallbackWidth,
		SVGFallbackHeight: config.Normalizer.SVGFallbackHeight,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image normalizer: %w", err)
	}
	slog.Info("image normalizer ready", "converted_extensions", normalizer.HandledExtensions())

	if config.OCR.APIKey == "" {
		slog.Warn("no OCR API key configured; the gateway will answer with its own error payload")
	}
	client := ocr.NewClient(ocr.Config{
		APIKey:   config.OCR.APIKey,
		Endpoint: config.OCR.Endpoint,
		Timeout:  config.OCR.Timeout,
	}, slog.Default())

	databaseService, err := database.NewDatabase(config.History.Type, config.History.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}

	return NewCoreServiceWith(config, normalizer, client, databaseService), nil
}

// NewCoreServiceWith assembles a service from already constructed parts
func NewCoreServiceWith(config *ServiceConfig, normalizer *imageprocessing.Normalizer, detector TextDetector, store database.HistoryStore) *CoreService {
	return &CoreService{
		config:          config,
		normalizer:      normalizer,
		textDetector:    detector,
		databaseService: store,
	}
}

// ProcessImage normalizes the upload and returns the OCR gateway's answer
func (service *CoreService) ProcessImage(ctx context.Context, filename string, imageData []byte) (json.RawMessage, error) {
	normalized, err := service.normalizer.Normalize(imageData, filename)
	if err != nil {
		return nil, err
	}
	return service.textDetector.DetectText(ctx, normalized)
}

func (service *CoreService) ListHistory(ctx context.Context) ([]database.Record, error) {
	return service.databaseService.ListAll(ctx)
}

// AddHistory persists record with a server timestamp and returns what was stored
func (service *CoreService) AddHistory(ctx context.Context, record database.Record) (database.Record, error) {
	return service.databaseService.Append(ctx, record)
}

func (service *CoreService) ClearHistory(ctx context.Context) error {
	return service.databaseService.Clear(ctx)
}

func (service *CoreService) Close() error {
	if service.databaseService == nil {
		return nil
	}
	return service.databaseService.Close()
}
