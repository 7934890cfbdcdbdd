// Package imageurl displays an image fetched from a URL.
package imageurl

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"inkdisplay/pkg/plugin"
)

// ID is the plugin id used in playlists.
const ID = "image_url"

// maxImageBytes caps downloads.
const maxImageBytes = 32 << 20

// Plugin downloads settings["url"] and decodes it.
type Plugin struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// New creates the plugin.
func New(client *http.Client, userAgent string, logger *zap.Logger) *Plugin {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plugin{client: client, userAgent: userAgent, logger: logger.Named(ID)}
}

func (p *Plugin) ID() string { return ID }

// GenerateImage fetches and decodes the configured URL.
func (p *Plugin) GenerateImage(ctx context.Context, settings plugin.Settings, device plugin.Device) (image.Image, error) {
	url, err := settings.Required("url")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", url, err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: %s", resp.Status)
	}

	img, err := imaging.Decode(io.LimitReader(resp.Body, maxImageBytes), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image from %s: %w", url, err)
	}

	p.logger.Debug("Image fetched",
		zap.String("url", url),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return img, nil
}
