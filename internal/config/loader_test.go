package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleDevice = `name: Kitchen Frame
display_type: mock
resolution: [800, 480]
orientation: vertical
inverted_image: true
timezone: America/Chicago
poll_interval_seconds: 30
image_settings:
  fill: true
  brightness: 1.1
  contrast: 1.2
  saturation: 1.0
  sharpness: 1.0
output_dir: /tmp/frames
latitude: 41.88
longitude: -87.63
weather_units: metric
playlist_config:
  playlists:
    - name: Morning
      start_time: "06:00"
      end_time: "10:00"
      plugins:
        - plugin_id: year_progress
          name: Year
          plugin_settings: {}
          refresh:
            interval: 3600
    - name: Default
      start_time: "00:00"
      end_time: "24:00"
      plugins: []
refresh_info:
  refresh_type: Playlist
  plugin_id: year_progress
  playlist: Morning
  plugin_instance: Year
  refresh_time: 2025-06-01T06:00:00Z
  image_hash: abc123
`

func writeSample(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "device.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	s, err := Load(writeSample(t, sampleDevice), logger)
	require.NoError(t, err)

	w, h := s.Resolution()
	assert.Equal(t, 800, w)
	assert.Equal(t, 480, h)
	assert.Equal(t, OrientationVertical, s.Orientation())
	assert.Equal(t, "America/Chicago", s.Location().String())
	assert.Equal(t, 30, int(s.PollInterval().Seconds()))
	assert.True(t, s.ImageSettings().Fill)

	assert.Equal(t, true, s.Get("inverted_image", false))
	assert.Equal(t, 41.88, s.Get("latitude", 0.0))
	assert.Equal(t, "metric", s.Get("weather_units", "imperial"))
	assert.Equal(t, "fallback", s.Get("missing", "fallback"))
	assert.Equal(t, "", s.Get("webhook_url", ""))

	m := s.PlaylistManager()
	assert.Equal(t, []string{"Morning", "Default"}, m.Names())

	info := s.RefreshInfo()
	require.NotNil(t, info)
	assert.Equal(t, "abc123", info.ImageHash)
	assert.Equal(t, "Year", info.PluginInstance)
}

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device.yaml")

	s, err := Load(path, zap.NewNop())
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, []string{"Default"}, s.PlaylistManager().Names())

	again, err := Load(path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "InkDisplay", again.Get("name", ""))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "name: [unclosed"},
		{name: "bad timezone", content: "resolution: [800, 480]\ntimezone: Mars/Olympus\n"},
		{name: "bad orientation", content: "resolution: [800, 480]\norientation: diagonal\n"},
		{name: "no resolution", content: "name: x\n"},
		{name: "bad window", content: `resolution: [800, 480]
playlist_config:
  playlists:
    - name: Bad
      start_time: "25:00"
      end_time: "10:00"
      plugins: []
`},
		{name: "bad refresh", content: `resolution: [800, 480]
playlist_config:
  playlists:
    - name: P
      start_time: "00:00"
      end_time: "10:00"
      plugins:
        - plugin_id: a
          name: b
          refresh: {}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSample(t, tt.content), zap.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestParse_AppliesDefaults(t *testing.T) {
	doc, err := Parse([]byte("resolution: [600, 448]\n"))
	require.NoError(t, err)

	assert.Equal(t, "mock", doc.DisplayType)
	assert.Equal(t, OrientationHorizontal, doc.Orientation)
	assert.Equal(t, "UTC", doc.Timezone)
	assert.Equal(t, DefaultImageSettings(), doc.ImageSettings)
	assert.Equal(t, []string{"Default"}, doc.Playlists.Names())
}
