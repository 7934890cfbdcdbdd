// Package webpage screenshots a web page with a headless browser.
package webpage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/url"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"inkdisplay/pkg/plugin"
)

// ID is the plugin id used in playlists.
const ID = "webpage"

// Launcher starts (or locates) a browser and returns its DevTools control
// URL plus a function releasing it.
type Launcher func(ctx context.Context) (controlURL string, release func(), err error)

// Plugin renders settings["url"] at the device resolution.
type Plugin struct {
	launch Launcher
	logger *zap.Logger
}

// New creates the plugin. A nil launcher starts a local headless browser.
func New(launch Launcher, logger *zap.Logger) *Plugin {
	if launch == nil {
		launch = LocalLauncher
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plugin{launch: launch, logger: logger.Named(ID)}
}

func (p *Plugin) ID() string { return ID }

// LocalLauncher launches a headless browser, downloading one if needed.
func LocalLauncher(ctx context.Context) (string, func(), error) {
	l := launcher.New().Headless(true).Context(ctx)
	u, err := l.Launch()
	if err != nil {
		return "", nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return u, l.Kill, nil
}

// RemoteLauncher connects to an already running browser.
func RemoteLauncher(controlURL string) Launcher {
	return func(ctx context.Context) (string, func(), error) {
		return controlURL, func() {}, nil
	}
}

// GenerateImage loads the page and returns a viewport screenshot.
func (p *Plugin) GenerateImage(ctx context.Context, settings plugin.Settings, device plugin.Device) (image.Image, error) {
	target, err := settings.Required("url")
	if err != nil {
		return nil, err
	}
	if u, err := url.Parse(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid url %q: must be http or https", target)
	}

	w, h := plugin.Dimensions(device)

	controlURL, release, err := p.launch(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             w,
		Height:            h,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page did not load: %w", err)
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	p.logger.Debug("Page captured", zap.String("url", target), zap.Int("bytes", len(data)))
	return img, nil
}

// Cleanup implements plugin.Cleaner. Screenshots are not cached, so there
// is nothing to release.
func (p *Plugin) Cleanup(settings plugin.Settings) error {
	return nil
}
