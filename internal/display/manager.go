package display

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"inkdisplay/internal/config"
	"inkdisplay/pkg/display"
	"inkdisplay/pkg/plugin"
)

// File names kept in the image directory.
const (
	CurrentImageFile     = "current_image.png"
	TransformedImageFile = "current_transformed_image.png"
	PluginImageDir       = "plugins"
)

// Device is the configuration the display manager reads on every display.
type Device interface {
	plugin.Device
	ImageSettings() config.ImageSettings
}

// Manager post-processes rendered images and hands them to the sink.
type Manager struct {
	sink     display.Sink
	device   Device
	imageDir string
	logger   *zap.Logger

	mu sync.Mutex
}

// NewManager creates a display manager writing files under imageDir.
func NewManager(sink display.Sink, device Device, imageDir string, logger *zap.Logger) (*Manager, error) {
	if err := os.MkdirAll(filepath.Join(imageDir, PluginImageDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Manager{
		sink:     sink,
		device:   device,
		imageDir: imageDir,
		logger:   logger.Named("display"),
	}, nil
}

// SinkName returns the name of the underlying sink.
func (m *Manager) SinkName() string {
	return m.sink.Name()
}

// Display saves the raw image, applies device transforms and shows the result.
func (m *Manager) Display(ctx context.Context, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := imaging.Save(img, filepath.Join(m.imageDir, CurrentImageFile)); err != nil {
		return fmt.Errorf("failed to save current image: %w", err)
	}

	w, h := m.device.Resolution()
	inverted, _ := m.device.Get("inverted_image", false).(bool)
	out := Transform(img, w, h, m.device.Orientation(), inverted, m.device.ImageSettings())

	if err := imaging.Save(out, filepath.Join(m.imageDir, TransformedImageFile)); err != nil {
		return fmt.Errorf("failed to save transformed image: %w", err)
	}

	if err := m.sink.Display(ctx, out); err != nil {
		return fmt.Errorf("display %s: %w", m.sink.Name(), err)
	}

	m.logger.Debug("Image displayed",
		zap.String("sink", m.sink.Name()),
		zap.Int("width", out.Bounds().Dx()),
		zap.Int("height", out.Bounds().Dy()))
	return nil
}

// Transform produces the panel-ready image: rotate for vertical devices,
// fit or fill to the panel, rotate 180 for inverted mounts, then apply
// enhancement factors.
func Transform(img image.Image, width, height int, orientation string, inverted bool, settings config.ImageSettings) *image.NRGBA {
	var out *image.NRGBA
	if orientation == config.OrientationVertical {
		out = imaging.Rotate90(img)
	} else {
		out = imaging.Clone(img)
	}

	if b := out.Bounds(); b.Dx() != width || b.Dy() != height {
		if settings.Fill {
			out = imaging.Fill(out, width, height, imaging.Center, imaging.Lanczos)
		} else {
			fitted := imaging.Fit(out, width, height, imaging.Lanczos)
			out = imaging.PasteCenter(imaging.New(width, height, color.White), fitted)
		}
	}

	if inverted {
		out = imaging.Rotate180(out)
	}

	return enhance(out, settings)
}

func enhance(img *image.NRGBA, s config.ImageSettings) *image.NRGBA {
	if s.Brightness > 0 && s.Brightness != 1 {
		img = imaging.AdjustBrightness(img, (s.Brightness-1)*100)
	}
	if s.Contrast > 0 && s.Contrast != 1 {
		img = imaging.AdjustContrast(img, (s.Contrast-1)*100)
	}
	if s.Saturation > 0 && s.Saturation != 1 {
		img = imaging.AdjustSaturation(img, (s.Saturation-1)*100)
	}
	switch {
	case s.Sharpness > 1:
		img = imaging.Sharpen(img, s.Sharpness-1)
	case s.Sharpness > 0 && s.Sharpness < 1:
		img = imaging.Blur(img, 1-s.Sharpness)
	}
	return img
}

// Hash returns the hex SHA-256 of an image's dimensions and pixels.
func Hash(img image.Image) string {
	nrgba := imaging.Clone(img)
	h := sha256.New()

	var dims [8]byte
	binary.BigEndian.PutUint32(dims[:4], uint32(nrgba.Bounds().Dx()))
	binary.BigEndian.PutUint32(dims[4:], uint32(nrgba.Bounds().Dy()))
	h.Write(dims[:])
	h.Write(nrgba.Pix)

	return hex.EncodeToString(h.Sum(nil))
}

// SaveImage stores a rendered instance image under the plugin image directory.
func (m *Manager) SaveImage(img image.Image, name string) error {
	if err := imaging.Save(img, m.pluginImagePath(name)); err != nil {
		return fmt.Errorf("failed to save plugin image %s: %w", name, err)
	}
	return nil
}

// LoadImage reads a cached instance image. The error satisfies
// errors.Is(err, fs.ErrNotExist) when nothing is cached.
func (m *Manager) LoadImage(name string) (image.Image, error) {
	img, err := imaging.Open(m.pluginImagePath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin image %s: %w", name, err)
	}
	return img, nil
}

// RemoveImage deletes a cached instance image; a missing file is not an error.
func (m *Manager) RemoveImage(name string) error {
	err := os.Remove(m.pluginImagePath(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plugin image %s: %w", name, err)
	}
	return nil
}

func (m *Manager) pluginImagePath(name string) string {
	return filepath.Join(m.imageDir, PluginImageDir, filepath.Base(name))
}
