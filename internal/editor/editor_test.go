package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkdisplay/internal/playlist"
	"inkdisplay/pkg/testutil"
)

var start = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func newEditor(t *testing.T) (*Editor, *testutil.TestEnv, *int) {
	t.Helper()

	env, err := testutil.NewTestEnv(t.TempDir(), start, testutil.NewFakePlugin("fake"))
	require.NoError(t, err)

	changes := 0
	return New(env.Store, env.Plugins, env.Logger, func() { changes++ }), env, &changes
}

func tod(s string) playlist.TimeOfDay { return playlist.MustParseTimeOfDay(s) }

func TestCreateAndUpdatePlaylist(t *testing.T) {
	e, env, changes := newEditor(t)

	require.NoError(t, e.CreatePlaylist(PlaylistParams{Name: "Morning", Start: tod("06:00"), End: tod("09:00")}))
	require.NoError(t, env.AddInstance("Morning", "fake", "one", playlist.IntervalRefresh(60), nil))
	require.NoError(t, e.UpdatePlaylist("Morning", PlaylistParams{Name: "Breakfast", Start: tod("07:00"), End: tod("08:30")}))
	assert.Equal(t, 2, *changes)

	reloaded, err := env.Reload()
	require.NoError(t, err)
	_, ok := reloaded.PlaylistManager().Get("Morning")
	assert.False(t, ok)
	p, ok := reloaded.PlaylistManager().Get("Breakfast")
	require.True(t, ok, "edits are persisted")
	assert.Equal(t, 90, p.Priority())
	assert.Len(t, p.Plugins, 1, "instances survive a rename")
}

func TestPlaylistEditErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func(e *Editor) error
		want error
	}{
		{"duplicate", func(e *Editor) error {
			return e.CreatePlaylist(PlaylistParams{Name: playlist.DefaultPlaylistName, Start: tod("06:00"), End: tod("09:00")})
		}, playlist.ErrDuplicatePlaylist},
		{"end out of range", func(e *Editor) error {
			return e.CreatePlaylist(PlaylistParams{Name: "Late", Start: tod("06:00"), End: playlist.TimeOfDay(1500)})
		}, ErrInvalid},
		{"missing name", func(e *Editor) error {
			return e.CreatePlaylist(PlaylistParams{Start: tod("06:00"), End: tod("09:00")})
		}, ErrInvalid},
		{"update missing", func(e *Editor) error {
			return e.UpdatePlaylist("Nope", PlaylistParams{Name: "Nope", Start: tod("06:00"), End: tod("09:00")})
		}, playlist.ErrPlaylistNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, env, changes := newEditor(t)
			assert.ErrorIs(t, tt.run(e), tt.want)
			assert.Zero(t, *changes)
			assert.Len(t, env.Store.PlaylistManager().Playlists, 1, "rejected edits leave the config alone")
		})
	}
}

func TestAddAndUpdateInstance(t *testing.T) {
	e, env, changes := newEditor(t)

	require.NoError(t, e.AddInstance(playlist.DefaultPlaylistName, InstanceParams{
		PluginID: "fake",
		Name:     "Clock",
		Settings: map[string]any{"color": "red"},
		Refresh:  playlist.IntervalRefresh(300),
	}))

	ref := playlist.InstanceRef{Playlist: playlist.DefaultPlaylistName, PluginID: "fake", Instance: "Clock"}
	require.NoError(t, e.UpdateInstance(ref, map[string]any{"color": "blue"}, playlist.ScheduledRefresh(tod("07:30"))))
	assert.Equal(t, 2, *changes)

	reloaded, err := env.Reload()
	require.NoError(t, err)
	_, inst, err := reloaded.PlaylistManager().Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, "blue", inst.Settings["color"])
	require.NotNil(t, inst.Refresh.Scheduled)
	assert.Equal(t, tod("07:30"), *inst.Refresh.Scheduled)
}

func TestInstanceEditErrors(t *testing.T) {
	valid := InstanceParams{PluginID: "fake", Name: "one", Refresh: playlist.IntervalRefresh(60)}

	tests := []struct {
		name string
		run  func(e *Editor) error
		want error
	}{
		{"unknown plugin", func(e *Editor) error {
			params := valid
			params.PluginID = "nope"
			return e.AddInstance(playlist.DefaultPlaylistName, params)
		}, ErrUnknownPlugin},
		{"missing playlist", func(e *Editor) error {
			return e.AddInstance("Nope", valid)
		}, playlist.ErrPlaylistNotFound},
		{"duplicate", func(e *Editor) error {
			if err := e.AddInstance(playlist.DefaultPlaylistName, valid); err != nil {
				return err
			}
			return e.AddInstance(playlist.DefaultPlaylistName, valid)
		}, playlist.ErrDuplicateInstance},
		{"no cadence", func(e *Editor) error {
			params := valid
			params.Refresh = playlist.Refresh{}
			return e.AddInstance(playlist.DefaultPlaylistName, params)
		}, ErrInvalid},
		{"update missing instance", func(e *Editor) error {
			ref := playlist.InstanceRef{Playlist: playlist.DefaultPlaylistName, PluginID: "fake", Instance: "one"}
			return e.UpdateInstance(ref, nil, playlist.IntervalRefresh(60))
		}, playlist.ErrInstanceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newEditor(t)
			assert.ErrorIs(t, tt.run(e), tt.want)
		})
	}
}
