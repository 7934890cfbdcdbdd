// Package editor applies playlist and instance edits to the device
// configuration and persists them.
package editor

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"inkdisplay/internal/config"
	"inkdisplay/internal/playlist"
	"inkdisplay/pkg/plugin"
)

var (
	// ErrInvalid marks edits rejected because the input does not validate.
	ErrInvalid = errors.New("invalid edit")
	// ErrUnknownPlugin is returned when an instance names an unregistered plugin.
	ErrUnknownPlugin = errors.New("unknown plugin")
)

// PlaylistParams describes a playlist to create or the new values of an
// existing one.
type PlaylistParams struct {
	Name  string
	Start playlist.TimeOfDay
	End   playlist.TimeOfDay
}

// InstanceParams describes a plugin instance to add.
type InstanceParams struct {
	PluginID string
	Name     string
	Settings map[string]any
	Refresh  playlist.Refresh
}

// Editor serializes edits through the config store. Each successful edit is
// written to disk and reported through onChange.
type Editor struct {
	store    *config.Store
	plugins  *plugin.Set
	logger   *zap.Logger
	onChange func()
}

// New creates an editor. onChange, if not nil, is called after every
// persisted edit.
func New(store *config.Store, plugins *plugin.Set, logger *zap.Logger, onChange func()) *Editor {
	return &Editor{
		store:    store,
		plugins:  plugins,
		logger:   logger.Named("editor"),
		onChange: onChange,
	}
}

// CreatePlaylist adds an empty playlist.
func (e *Editor) CreatePlaylist(params PlaylistParams) error {
	err := e.apply(func(m *playlist.Manager) error {
		return m.AddPlaylist(playlist.New(params.Name, params.Start, params.End))
	})
	if err != nil {
		return err
	}
	e.logger.Info("Created playlist",
		zap.String("playlist", params.Name),
		zap.Stringer("window", playlist.Window{Start: params.Start, End: params.End}))
	return nil
}

// UpdatePlaylist renames a playlist and replaces its window.
func (e *Editor) UpdatePlaylist(name string, params PlaylistParams) error {
	err := e.apply(func(m *playlist.Manager) error {
		return m.UpdatePlaylist(name, params.Name, params.Start, params.End)
	})
	if err != nil {
		return err
	}
	e.logger.Info("Updated playlist",
		zap.String("playlist", name),
		zap.String("new_name", params.Name),
		zap.Stringer("window", playlist.Window{Start: params.Start, End: params.End}))
	return nil
}

// AddInstance appends a plugin instance to a playlist's rotation.
func (e *Editor) AddInstance(playlistName string, params InstanceParams) error {
	if _, ok := e.plugins.Get(params.PluginID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlugin, params.PluginID)
	}

	err := e.apply(func(m *playlist.Manager) error {
		p, ok := m.Get(playlistName)
		if !ok {
			return fmt.Errorf("%w: %q", playlist.ErrPlaylistNotFound, playlistName)
		}
		return p.AddPlugin(&playlist.PluginInstance{
			PluginID: params.PluginID,
			Name:     params.Name,
			Settings: playlist.CloneSettings(params.Settings),
			Refresh:  params.Refresh,
		})
	})
	if err != nil {
		return err
	}
	e.logger.Info("Added plugin instance",
		zap.String("playlist", playlistName),
		zap.String("plugin_id", params.PluginID),
		zap.String("instance", params.Name),
		zap.Stringer("refresh", params.Refresh))
	return nil
}

// UpdateInstance replaces an instance's settings and refresh cadence. The
// last refresh time is kept, so a new cadence applies from that point.
func (e *Editor) UpdateInstance(ref playlist.InstanceRef, settings map[string]any, refresh playlist.Refresh) error {
	err := e.apply(func(m *playlist.Manager) error {
		p, ok := m.Get(ref.Playlist)
		if !ok {
			return fmt.Errorf("%w: %q", playlist.ErrPlaylistNotFound, ref.Playlist)
		}
		return p.UpdatePlugin(ref.PluginID, ref.Instance, settings, refresh)
	})
	if err != nil {
		return err
	}
	e.logger.Info("Updated plugin instance", zap.String("ref", ref.String()), zap.Stringer("refresh", refresh))
	return nil
}

// apply runs fn through the store, persists, and signals the change.
// Errors other than lookups and duplicates are reported as ErrInvalid.
func (e *Editor) apply(fn func(m *playlist.Manager) error) error {
	if err := e.store.UpdatePlaylists(fn); err != nil {
		switch {
		case errors.Is(err, playlist.ErrPlaylistNotFound),
			errors.Is(err, playlist.ErrInstanceNotFound),
			errors.Is(err, playlist.ErrDuplicatePlaylist),
			errors.Is(err, playlist.ErrDuplicateInstance):
			return err
		default:
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}

	if err := e.store.Write(); err != nil {
		return fmt.Errorf("failed to persist device config: %w", err)
	}
	if e.onChange != nil {
		e.onChange()
	}
	return nil
}
