// Package imagefolder rotates through the images in a local directory.
package imagefolder

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"inkdisplay/pkg/plugin"
)

// ID is the plugin id used in playlists.
const ID = "image_folder"

// IndexKey is the settings key holding the index of the last shown file.
const IndexKey = "folder_index"

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// Plugin shows the next image of settings["folder_path"] on every render.
type Plugin struct {
	logger *zap.Logger
}

// New creates the plugin.
func New(logger *zap.Logger) *Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plugin{logger: logger.Named(ID)}
}

func (p *Plugin) ID() string { return ID }

// GenerateImage opens the file after the one recorded in folder_index and
// stores its index back into settings.
func (p *Plugin) GenerateImage(ctx context.Context, settings plugin.Settings, device plugin.Device) (image.Image, error) {
	dir, err := settings.Required("folder_path")
	if err != nil {
		return nil, err
	}

	files, err := listImages(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}

	next := (settings.Int(IndexKey, -1) + 1) % len(files)
	if next < 0 {
		next = 0
	}

	img, err := imaging.Open(files[next], imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", files[next], err)
	}
	settings[IndexKey] = next

	p.logger.Debug("Image selected",
		zap.String("file", filepath.Base(files[next])),
		zap.Int("index", next),
		zap.Int("total", len(files)))
	return img, nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
