package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inkdisplay/internal/playlist"
	"inkdisplay/internal/status"
)

func newTestStore(t *testing.T) *Store {
	s, err := Load(writeSample(t, sampleDevice), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	s := newTestStore(t)

	snap := s.PlaylistManager()
	morning, ok := snap.Get("Morning")
	require.True(t, ok)
	morning.Plugins[0].Settings["mutated"] = true
	morning.SetCursor(0)

	fresh, _ := s.PlaylistManager().Get("Morning")
	assert.NotContains(t, fresh.Plugins[0].Settings, "mutated")
	assert.Nil(t, fresh.Cursor)

	require.NoError(t, s.UpdatePlaylists(func(m *playlist.Manager) error {
		_, err := m.DeletePlaylist("Morning")
		return err
	}))
	assert.Equal(t, []string{"Morning", "Default"}, snap.Names())
	assert.Equal(t, []string{"Default"}, s.PlaylistManager().Names())
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	s := newTestStore(t)

	err := s.Update(func(d *Device) error {
		d.Name = "changed"
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, "Kitchen Frame", s.Get("name", ""))

	err = s.Update(func(d *Device) error {
		d.Timezone = "Nowhere/Land"
		return nil
	})
	assert.Error(t, err)
	assert.Equal(t, "America/Chicago", s.Location().String())

	require.NoError(t, s.Update(func(d *Device) error {
		d.Timezone = "Europe/Paris"
		return nil
	}))
	assert.Equal(t, "Europe/Paris", s.Location().String())
}

func TestStore_WriteRoundTrip(t *testing.T) {
	s := newTestStore(t)
	refreshed := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpdatePlaylists(func(m *playlist.Manager) error {
		p, inst, err := m.Resolve(playlist.InstanceRef{Playlist: "Morning", PluginID: "year_progress", Instance: "Year"})
		if err != nil {
			return err
		}
		inst.MarkRefreshed(refreshed)
		inst.Settings["stash"] = 3
		p.SetCursor(0)
		return nil
	}))
	s.SetRefreshInfo(status.RefreshInfo{
		RefreshType: status.RefreshTypeManual,
		PluginID:    "image_url",
		RefreshTime: refreshed,
		ImageHash:   "ffff",
	})
	require.NoError(t, s.Write())

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")

	reloaded, err := Load(s.Path(), zap.NewNop())
	require.NoError(t, err)

	p, inst, err := reloaded.PlaylistManager().Resolve(playlist.InstanceRef{Playlist: "Morning", PluginID: "year_progress", Instance: "Year"})
	require.NoError(t, err)
	require.NotNil(t, inst.LatestRefresh)
	assert.True(t, inst.LatestRefresh.Equal(refreshed))
	assert.Equal(t, 3, inst.Settings["stash"])
	require.NotNil(t, p.Cursor)
	assert.Equal(t, 0, *p.Cursor)

	info := reloaded.RefreshInfo()
	require.NotNil(t, info)
	assert.Equal(t, status.RefreshTypeManual, info.RefreshType)
	assert.Equal(t, "ffff", info.ImageHash)
	assert.Equal(t, "metric", reloaded.Get("weather_units", ""))
}

func TestStore_InMemoryWriteIsNoop(t *testing.T) {
	s, err := NewStore("", DefaultDevice(), zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, s.Write())
	assert.Equal(t, "", s.Path())
}

func TestStore_ConcurrentReadsAndUpdates(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.UpdatePlaylists(func(m *playlist.Manager) error {
				p, _ := m.Get("Default")
				p.SetCursor(i)
				return nil
			})
		}(i)
		go func() {
			defer wg.Done()
			m := s.PlaylistManager()
			assert.Len(t, m.Playlists, 2)
		}()
	}
	wg.Wait()
}
