// Package cleanup removes plugin instances and playlists along with the
// resources their plugins hold.
package cleanup

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"inkdisplay/internal/config"
	"inkdisplay/internal/playlist"
	"inkdisplay/pkg/plugin"
)

// ErrCleanup marks failures that happened after the configuration record
// was already removed and persisted.
var ErrCleanup = errors.New("instance cleanup failed")

// ImageStore deletes cached instance images.
type ImageStore interface {
	RemoveImage(name string) error
}

// Coordinator removes configuration records first, persists, and then
// releases each removed instance's resources.
type Coordinator struct {
	store    *config.Store
	plugins  *plugin.Set
	images   ImageStore
	logger   *zap.Logger
	onChange func()
}

// NewCoordinator creates a cleanup coordinator. onChange, if not nil, is
// called after the configuration has been modified.
func NewCoordinator(store *config.Store, plugins *plugin.Set, images ImageStore, logger *zap.Logger, onChange func()) *Coordinator {
	return &Coordinator{
		store:    store,
		plugins:  plugins,
		images:   images,
		logger:   logger.Named("cleanup"),
		onChange: onChange,
	}
}

// RemoveInstance deletes one instance from its playlist and cleans it up.
// The record is gone once this returns without a config error, even if the
// plugin's cleanup failed.
func (c *Coordinator) RemoveInstance(ctx context.Context, ref playlist.InstanceRef) error {
	var removed *playlist.PluginInstance
	err := c.store.UpdatePlaylists(func(m *playlist.Manager) error {
		p, ok := m.Get(ref.Playlist)
		if !ok {
			return fmt.Errorf("%w: %q", playlist.ErrPlaylistNotFound, ref.Playlist)
		}
		inst, err := p.RemovePlugin(ref.PluginID, ref.Instance)
		if err != nil {
			return err
		}
		removed = inst
		return nil
	})
	if err != nil {
		return err
	}

	if err := c.persist(); err != nil {
		return err
	}

	c.logger.Info("Removed plugin instance", zap.String("ref", ref.String()))
	return c.cleanupInstance(ctx, ref.Playlist, removed)
}

// RemovePlaylist deletes a playlist and cleans up every instance it held.
// A failing cleanup is logged and the rest still run.
func (c *Coordinator) RemovePlaylist(ctx context.Context, name string) error {
	var removed *playlist.Playlist
	err := c.store.UpdatePlaylists(func(m *playlist.Manager) error {
		p, err := m.DeletePlaylist(name)
		if err != nil {
			return err
		}
		removed = p
		return nil
	})
	if err != nil {
		return err
	}

	if err := c.persist(); err != nil {
		return err
	}

	c.logger.Info("Removed playlist, cleaning up instances",
		zap.String("playlist", name),
		zap.Int("instance_count", len(removed.Plugins)))

	successCount := 0
	errorCount := 0
	var errs []error

	for _, inst := range removed.Plugins {
		if err := c.cleanupInstance(ctx, name, inst); err != nil {
			errorCount++
			errs = append(errs, err)
			// Continue with the remaining instances
			continue
		}
		successCount++
	}

	c.logger.Info("Playlist cleanup complete",
		zap.String("playlist", name),
		zap.Int("success", successCount),
		zap.Int("errors", errorCount),
		zap.Int("total", len(removed.Plugins)))

	return errors.Join(errs...)
}

func (c *Coordinator) persist() error {
	if err := c.store.Write(); err != nil {
		return fmt.Errorf("failed to persist device config: %w", err)
	}
	if c.onChange != nil {
		c.onChange()
	}
	return nil
}

// cleanupInstance runs the plugin's Cleanup, if it has one, and removes the
// cached image.
func (c *Coordinator) cleanupInstance(ctx context.Context, playlistName string, inst *playlist.PluginInstance) error {
	logger := c.logger.With(
		zap.String("playlist", playlistName),
		zap.String("plugin_id", inst.PluginID),
		zap.String("instance", inst.Name))

	if err := ctx.Err(); err != nil {
		return err
	}

	var errs []error

	if p, ok := c.plugins.Get(inst.PluginID); ok {
		if cleaner, ok := p.(plugin.Cleaner); ok {
			if err := cleaner.Cleanup(plugin.Settings(inst.Settings)); err != nil {
				logger.Error("Plugin cleanup failed", zap.Error(err))
				errs = append(errs, fmt.Errorf("cleanup %s/%s: %w", inst.PluginID, inst.Name, err))
			}
		}
	} else {
		logger.Warn("Plugin not registered, skipping plugin cleanup")
	}

	if err := c.images.RemoveImage(inst.ImageFile()); err != nil {
		logger.Error("Failed to remove cached image", zap.Error(err))
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrCleanup, errors.Join(errs...))
	}
	logger.Debug("Instance cleaned up")
	return nil
}
