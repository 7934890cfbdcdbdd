package display

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"inkdisplay/pkg/display"
)

// WebhookSink POSTs each image as PNG to a URL, for frames that pull
// content from another service.
type WebhookSink struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookSink creates a sink posting to url.
func NewWebhookSink(url string, client *http.Client, logger *zap.Logger) (*WebhookSink, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook display requires webhook_url")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookSink{url: url, client: client, logger: logger.Named("webhook")}, nil
}

func (s *WebhookSink) Name() string { return "webhook" }

// Display encodes img as PNG and POSTs it. Any non-2xx response is an error.
func (s *WebhookSink) Display(ctx context.Context, img image.Image) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &buf)
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}

	s.logger.Debug("Image posted to webhook", zap.Int("status", resp.StatusCode))
	return nil
}

func newWebhookFromOptions(opts display.Options) (display.Sink, error) {
	return NewWebhookSink(opts.WebhookURL, opts.HTTPClient, opts.Logger)
}
