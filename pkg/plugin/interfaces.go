// Package plugin provides the content plugin interfaces and registry for
// inkdisplay. Plugins register themselves with the global registry using
// init() functions, allowing for compile-time plugin selection and override
// mechanisms for private implementations.
package plugin

import (
	"context"
	"image"
	"time"
)

// Plugin is the core interface that all content plugins must implement.
// A plugin turns an instance's settings into an image sized for the device.
type Plugin interface {
	// ID returns the unique identifier for this plugin.
	// Playlist instances refer to plugins by this id.
	ID() string

	// GenerateImage renders one image.
	// - settings is a private copy; the plugin may stash values in it
	//   (e.g. rotation state) and they are persisted after a successful display
	// - must not mutate shared state on failure
	GenerateImage(ctx context.Context, settings Settings, device Device) (image.Image, error)
}

// Cleaner is an optional interface for plugins that own side resources
// (generated files, caches). Cleanup is called once when an instance is
// permanently removed.
type Cleaner interface {
	Cleanup(settings Settings) error
}

// Device is the read-only view of device configuration handed to plugins.
type Device interface {
	// Resolution returns the panel size as configured (landscape).
	Resolution() (width, height int)

	// Orientation returns "horizontal" or "vertical".
	Orientation() string

	// Get returns a top-level device setting, or def when absent.
	Get(key string, def any) any

	// Location returns the device timezone.
	Location() *time.Location
}

// Dimensions returns the size a plugin should render at, swapping width
// and height for vertical devices.
func Dimensions(d Device) (int, int) {
	w, h := d.Resolution()
	if d.Orientation() == "vertical" {
		return h, w
	}
	return w, h
}

// Factory is a function that creates a new plugin instance given a context.
// Factories are registered with the global registry and called during
// application startup to instantiate plugins.
type Factory func(ctx *Context) (Plugin, error)
