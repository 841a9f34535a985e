// Package ocr forwards images to a text-detection service and returns its
// JSON answer unchanged.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultEndpoint      = "https://vision.googleapis.com/v1/images:annotate"
	FeatureTextDetection = "TEXT_DETECTION"
)

var (
	// ErrTransport means the request never produced an HTTP response
	ErrTransport = errors.New("ocr gateway unreachable")
	// ErrInvalidResponse means the gateway answered with a body that is not JSON
	ErrInvalidResponse = errors.New("ocr gateway returned a non-JSON body")
)

// Config for the gateway client. The credential is injected here and never
// looked up from the environment by the client itself.
type Config struct {
	APIKey   string
	Endpoint string        // default DefaultEndpoint
	Timeout  time.Duration // zero keeps the transport default
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

type annotateRequest struct {
	Requests []annotateImageRequest `json:"requests"`
}

type annotateImageRequest struct {
	Image    imagePayload `json:"image"`
	Features []feature    `json:"features"`
}

type imagePayload struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// DetectText sends imageData for text detection. Whatever JSON the gateway
// returns, error payloads included, comes back as-is; only a failed exchange
// or a non-JSON body is reported as an error.
func (c *Client) DetectText(ctx context.Context, imageData []byte) (json.RawMessage, error) {
	reqID := uuid.New().String()
	start := time.Now()

	body, err := json.Marshal(buildAnnotateRequest(imageData))
	if err != nil {
		return nil, fmt.Errorf("encode ocr request: %w", err)
	}

	endpoint, err := c.endpointURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("ocr.http.request",
		"req_id", reqID,
		"image_bytes", len(imageData),
		"content_length", len(body),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("ocr.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("ocr.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("ocr.http.read_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	c.logger.Info("ocr.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w (status %d)", ErrInvalidResponse, resp.StatusCode)
	}
	if resp.StatusCode/100 != 2 {
		c.logger.Warn("ocr.http.non_2xx", "req_id", reqID, "status", resp.StatusCode)
	}
	return json.RawMessage(raw), nil
}

func (c *Client) endpointURL() (string, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid ocr endpoint %q: %w", c.cfg.Endpoint, err)
	}
	q := u.Query()
	q.Set("key", c.cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func buildAnnotateRequest(imageData []byte) annotateRequest {
	return annotateRequest{
		Requests: []annotateImageRequest{{
			Image:    imagePayload{Content: base64.StdEncoding.EncodeToString(imageData)},
			Features: []feature{{Type: FeatureTextDetection}},
		}},
	}
}
