package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"inkdisplay/internal/playlist"
	"inkdisplay/internal/status"
)

// Store owns the device document. Reads return snapshots; mutations go
// through Update and are made durable by Write.
type Store struct {
	path   string
	logger *zap.Logger

	mu  sync.RWMutex
	doc *Device
	loc *time.Location

	writeMu sync.Mutex
}

// NewStore validates doc and wraps it. An empty path keeps the store in
// memory only.
func NewStore(path string, doc *Device, logger *zap.Logger) (*Store, error) {
	doc.applyDefaults()
	loc, err := doc.Validate()
	if err != nil {
		return nil, err
	}
	return &Store{
		path:   path,
		logger: logger,
		doc:    doc,
		loc:    loc,
	}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a deep copy of the whole document.
func (s *Store) Snapshot() *Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// PlaylistManager returns a consistent deep copy of the playlists.
func (s *Store) PlaylistManager() *playlist.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Playlists.Clone()
}

// RefreshInfo returns the persisted info about the image on screen.
func (s *Store) RefreshInfo() *status.RefreshInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.RefreshInfo.Clone()
}

// Resolution returns the configured panel size in landscape terms.
func (s *Store) Resolution() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Resolution[0], s.doc.Resolution[1]
}

// Orientation returns "horizontal" or "vertical".
func (s *Store) Orientation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Orientation
}

// Get returns a top-level setting by YAML key, or def when absent.
func (s *Store) Get(key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.doc.lookup(key); ok {
		return playlist.CloneSettings(map[string]any{key: v})[key]
	}
	return def
}

// Location returns the device timezone.
func (s *Store) Location() *time.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loc
}

// ImageSettings returns the post-processing settings.
func (s *Store) ImageSettings() ImageSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.ImageSettings
}

// PollInterval returns how long the scheduler sleeps between cycles.
func (s *Store) PollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc.PollIntervalSeconds <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(s.doc.PollIntervalSeconds) * time.Second
}

// Update applies fn to a copy of the document and swaps it in if fn
// succeeds and the result validates. It does not persist.
func (s *Store) Update(fn func(d *Device) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.applyDefaults()
	loc, err := next.Validate()
	if err != nil {
		return err
	}

	s.doc = next
	s.loc = loc
	return nil
}

// UpdatePlaylists is Update scoped to the playlist manager.
func (s *Store) UpdatePlaylists(fn func(m *playlist.Manager) error) error {
	return s.Update(func(d *Device) error {
		return fn(d.Playlists)
	})
}

// SetRefreshInfo records what is on the display.
func (s *Store) SetRefreshInfo(info status.RefreshInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.RefreshInfo = &info
}

// Write durably persists the document: the YAML is written to a temporary
// file in the same directory, synced, and renamed over the target.
func (s *Store) Write() error {
	if s.path == "" {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	data, err := yaml.Marshal(s.doc)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal device config: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write device config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync device config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close device config: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace device config: %w", err)
	}

	s.logger.Debug("Device config written", zap.String("path", s.path))
	return nil
}
