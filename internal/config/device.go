package config

import (
	"fmt"
	"time"

	"inkdisplay/internal/playlist"
	"inkdisplay/internal/status"
)

// Orientations
const (
	OrientationHorizontal = "horizontal"
	OrientationVertical   = "vertical"
)

// DefaultPollInterval is used when poll_interval_seconds is absent.
const DefaultPollInterval = 60 * time.Second

// ImageSettings are post-processing factors applied before display.
// A factor of 1.0 leaves the image unchanged.
type ImageSettings struct {
	Fill       bool    `yaml:"fill,omitempty" json:"fill,omitempty"`
	Brightness float64 `yaml:"brightness" json:"brightness"`
	Contrast   float64 `yaml:"contrast" json:"contrast"`
	Saturation float64 `yaml:"saturation" json:"saturation"`
	Sharpness  float64 `yaml:"sharpness" json:"sharpness"`
}

// DefaultImageSettings returns neutral factors.
func DefaultImageSettings() ImageSettings {
	return ImageSettings{Brightness: 1, Contrast: 1, Saturation: 1, Sharpness: 1}
}

// Device represents the device.yaml structure
type Device struct {
	Name                string        `yaml:"name"`
	DisplayType         string        `yaml:"display_type"`
	Resolution          [2]int        `yaml:"resolution,flow"`
	Orientation         string        `yaml:"orientation"`
	InvertedImage       bool          `yaml:"inverted_image"`
	Timezone            string        `yaml:"timezone"`
	PollIntervalSeconds int           `yaml:"poll_interval_seconds"`
	ImageSettings       ImageSettings `yaml:"image_settings"`
	WebhookURL          string        `yaml:"webhook_url,omitempty"`
	OutputDir           string        `yaml:"output_dir,omitempty"`
	Latitude            *float64      `yaml:"latitude,omitempty"`
	Longitude           *float64      `yaml:"longitude,omitempty"`

	Playlists   *playlist.Manager   `yaml:"playlist_config"`
	RefreshInfo *status.RefreshInfo `yaml:"refresh_info,omitempty"`

	// Raw data for any additional fields
	Extra map[string]interface{} `yaml:",inline"`
}

// DefaultDevice returns the document written for a fresh install.
func DefaultDevice() *Device {
	d := &Device{
		Name:                "InkDisplay",
		DisplayType:         "mock",
		Resolution:          [2]int{800, 480},
		Orientation:         OrientationHorizontal,
		Timezone:            "UTC",
		PollIntervalSeconds: int(DefaultPollInterval / time.Second),
		ImageSettings:       DefaultImageSettings(),
		Playlists:           playlist.NewManager(),
	}
	d.Playlists.AddDefaultPlaylist()
	return d
}

// applyDefaults fills zero values left out of a hand-written document.
func (d *Device) applyDefaults() {
	if d.DisplayType == "" {
		d.DisplayType = "mock"
	}
	if d.Orientation == "" {
		d.Orientation = OrientationHorizontal
	}
	if d.Timezone == "" {
		d.Timezone = "UTC"
	}
	if d.PollIntervalSeconds == 0 {
		d.PollIntervalSeconds = int(DefaultPollInterval / time.Second)
	}
	if d.ImageSettings == (ImageSettings{}) {
		d.ImageSettings = DefaultImageSettings()
	}
	if d.Playlists == nil {
		d.Playlists = playlist.NewManager()
	}
	if len(d.Playlists.Playlists) == 0 {
		d.Playlists.AddDefaultPlaylist()
	}
}

// Validate checks the document and returns the loaded timezone.
func (d *Device) Validate() (*time.Location, error) {
	if d.Resolution[0] <= 0 || d.Resolution[1] <= 0 {
		return nil, fmt.Errorf("invalid resolution %dx%d", d.Resolution[0], d.Resolution[1])
	}
	if d.Orientation != OrientationHorizontal && d.Orientation != OrientationVertical {
		return nil, fmt.Errorf("invalid orientation %q", d.Orientation)
	}
	if d.PollIntervalSeconds < 0 {
		return nil, fmt.Errorf("invalid poll_interval_seconds %d", d.PollIntervalSeconds)
	}

	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", d.Timezone, err)
	}

	if d.Playlists != nil {
		if err := d.Playlists.Validate(); err != nil {
			return nil, fmt.Errorf("invalid playlist_config: %w", err)
		}
	}
	return loc, nil
}

// Clone returns a deep copy.
func (d *Device) Clone() *Device {
	c := *d
	if d.Latitude != nil {
		v := *d.Latitude
		c.Latitude = &v
	}
	if d.Longitude != nil {
		v := *d.Longitude
		c.Longitude = &v
	}
	if d.Playlists != nil {
		c.Playlists = d.Playlists.Clone()
	}
	c.RefreshInfo = d.RefreshInfo.Clone()
	if d.Extra != nil {
		c.Extra = playlist.CloneSettings(d.Extra)
	}
	return &c
}

// lookup returns a top-level setting by its YAML key.
func (d *Device) lookup(key string) (interface{}, bool) {
	switch key {
	case "name":
		return d.Name, true
	case "display_type":
		return d.DisplayType, true
	case "resolution":
		return []int{d.Resolution[0], d.Resolution[1]}, true
	case "orientation":
		return d.Orientation, true
	case "inverted_image":
		return d.InvertedImage, true
	case "timezone":
		return d.Timezone, true
	case "poll_interval_seconds":
		return d.PollIntervalSeconds, true
	case "webhook_url":
		return d.WebhookURL, d.WebhookURL != ""
	case "output_dir":
		return d.OutputDir, d.OutputDir != ""
	case "latitude":
		if d.Latitude == nil {
			return nil, false
		}
		return *d.Latitude, true
	case "longitude":
		if d.Longitude == nil {
			return nil, false
		}
		return *d.Longitude, true
	}
	v, ok := d.Extra[key]
	return v, ok
}
