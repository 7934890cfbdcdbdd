package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Load reads the device document at path and returns a Store over it.
// A missing file is created from DefaultDevice.
func Load(path string, logger *zap.Logger) (*Store, error) {
	logger = logger.Named("config")
	logger.Debug("Loading device config", zap.String("path", path))

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("Device config not found, writing defaults", zap.String("path", path))
		s, err := NewStore(path, DefaultDevice(), logger)
		if err != nil {
			return nil, err
		}
		if err := s.Write(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read device config: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	s, err := NewStore(path, doc, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Device config loaded successfully",
		zap.String("name", doc.Name),
		zap.String("display_type", doc.DisplayType),
		zap.Int("playlists", len(doc.Playlists.Playlists)))
	return s, nil
}

// Parse decodes a device document and fills defaults.
func Parse(data []byte) (*Device, error) {
	var doc Device
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse device config: %w", err)
	}
	doc.applyDefaults()
	return &doc, nil
}
