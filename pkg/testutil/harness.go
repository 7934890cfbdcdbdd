package testutil

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"inkdisplay/internal/clock"
	"inkdisplay/internal/config"
	"inkdisplay/internal/display"
	"inkdisplay/internal/playlist"
	"inkdisplay/internal/status"
	"inkdisplay/pkg/plugin"
)

// TestEnv wires the real store, display manager and tracker around fake
// plugins, a recording sink and a mock clock, all rooted in one directory.
//
// Example usage:
//
//	env, err := testutil.NewTestEnv(t.TempDir(), start, fakePlugin)
//	require.NoError(t, err)
//	env.AddInstance("Default", "fake", "one", playlist.IntervalRefresh(60), nil)
type TestEnv struct {
	Dir     string
	Store   *config.Store
	Display *display.Manager
	Sink    *RecordingSink
	Plugins *plugin.Set
	Tracker *status.Tracker
	Clock   *clock.MockClock
	Logger  *zap.Logger
}

// NewTestEnv creates an environment whose device config lives at
// dir/device.yaml and whose images live under dir/images. The device
// starts with only the all-day Default playlist.
func NewTestEnv(dir string, start time.Time, plugins ...plugin.Plugin) (*TestEnv, error) {
	logger, _ := zap.NewDevelopment()

	doc := config.DefaultDevice()
	doc.Timezone = start.Location().String()
	store, err := config.NewStore(filepath.Join(dir, "device.yaml"), doc, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	sink := NewRecordingSink()
	manager, err := display.NewManager(sink, store, filepath.Join(dir, "images"), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create display manager: %w", err)
	}

	return &TestEnv{
		Dir:     dir,
		Store:   store,
		Display: manager,
		Sink:    sink,
		Plugins: plugin.NewSet(plugins...),
		Tracker: status.NewTracker(0),
		Clock:   clock.NewMockClock(start),
		Logger:  logger,
	}, nil
}

// AddPlaylist adds an empty playlist with the given window.
func (e *TestEnv) AddPlaylist(name, start, end string) error {
	return e.Store.UpdatePlaylists(func(m *playlist.Manager) error {
		return m.AddPlaylist(playlist.New(name,
			playlist.MustParseTimeOfDay(start), playlist.MustParseTimeOfDay(end)))
	})
}

// AddInstance appends an instance to an existing playlist.
func (e *TestEnv) AddInstance(playlistName, pluginID, name string, refresh playlist.Refresh, settings map[string]any) error {
	return e.Store.UpdatePlaylists(func(m *playlist.Manager) error {
		p, ok := m.Get(playlistName)
		if !ok {
			return fmt.Errorf("%w: %q", playlist.ErrPlaylistNotFound, playlistName)
		}
		return p.AddPlugin(&playlist.PluginInstance{
			PluginID: pluginID,
			Name:     name,
			Settings: settings,
			Refresh:  refresh,
		})
	})
}

// Instance returns a copy of the named instance's current record.
func (e *TestEnv) Instance(playlistName, pluginID, name string) (*playlist.PluginInstance, error) {
	_, inst, err := e.Store.PlaylistManager().Resolve(playlist.InstanceRef{
		Playlist: playlistName,
		PluginID: pluginID,
		Instance: name,
	})
	return inst, err
}

// Cursor returns a playlist's cursor, or -1 when unset.
func (e *TestEnv) Cursor(playlistName string) int {
	p, ok := e.Store.PlaylistManager().Get(playlistName)
	if !ok || p.Cursor == nil {
		return -1
	}
	return *p.Cursor
}

// Reload reads the device config back from disk.
func (e *TestEnv) Reload() (*config.Store, error) {
	return config.Load(e.Store.Path(), e.Logger)
}
