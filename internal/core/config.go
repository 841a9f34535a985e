package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

type HistoryConfig struct {
	Type             string `yaml:"type" validate:"oneof=jsonl sqlite redis"`
	ConnectionString string `yaml:"connectionString" validate:"required"`
}

type OCRConfig struct {
	Endpoint string        `yaml:"endpoint" validate:"required,url"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout" validate:"min=0"`
}

type NormalizerConfig struct {
	Target            string `yaml:"target" validate:"oneof=jpeg png"`
	JPEGQuality       int    `yaml:"jpegQuality" validate:"min=1,max=100"`
	MaxEdge           int    `yaml:"maxEdge" validate:"min=0"`
	SVGFallbackWidth  int    `yaml:"svgFallbackWidth" validate:"min=0"`
	SVGFallbackHeight int    `yaml:"svgFallbackHeight" validate:"min=0"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins" validate:"required,min=1"`
}

type ServiceConfig struct {
	Port       int              `yaml:"port" validate:"min=1,max=65535"`
	LogLevel   string           `yaml:"logLevel" validate:"oneof=debug info warn error"`
	BodyLimit  string           `yaml:"bodyLimit" validate:"required"`
	CORS       CORSConfig       `yaml:"cors"`
	History    HistoryConfig    `yaml:"history"`
	OCR        OCRConfig        `yaml:"ocr"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
}

// DefaultConfig mirrors a bare local run: port 8000, history.json in the
// working directory, every origin allowed.
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:      8000,
		LogLevel:  "info",
		BodyLimit: "20M",
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
		},
		History: HistoryConfig{
			Type:             "jsonl",
			ConnectionString: "history.json",
		},
		OCR: OCRConfig{
			Endpoint: "https://vision.googleapis.com/v1/images:annotate",
		},
		Normalizer: NormalizerConfig{
			Target:      "jpeg",
			JPEGQuality: 75,
		},
	}
}

// LoadConfig reads configPath over the defaults, applies environment
// overrides and validates the result. A missing file is only tolerated when
// optional is set.
func LoadConfig(configPath string, optional bool) (*ServiceConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv lets the process environment override the file
func (c *ServiceConfig) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("GOOGLE_API_KEY"); ok {
		c.OCR.APIKey = v
	}
	if v, ok := lookup("HISTORY_PATH"); ok && v != "" {
		c.History.ConnectionString = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	return nil
}

// Validate checks struct tags
func (c *ServiceConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
