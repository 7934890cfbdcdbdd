package testutil

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"inkdisplay/pkg/plugin"
)

// RenderCall records one GenerateImage call for verification.
type RenderCall struct {
	Timestamp time.Time
	Settings  plugin.Settings
}

// FakePlugin is a configurable plugin.Plugin and plugin.Cleaner.
// By default it renders a solid image whose shade changes on every call,
// so consecutive renders never hash the same.
type FakePlugin struct {
	PluginID string

	// Render overrides the default image. It may mutate settings.
	Render func(ctx context.Context, settings plugin.Settings, device plugin.Device) (image.Image, error)
	// Err makes every render fail.
	Err error
	// Panic makes every render panic with this value.
	Panic any
	// CleanupErr is returned from Cleanup.
	CleanupErr error

	mu       sync.Mutex
	calls    []RenderCall
	cleanups []plugin.Settings
}

// NewFakePlugin creates a fake with the given id.
func NewFakePlugin(id string) *FakePlugin {
	return &FakePlugin{PluginID: id}
}

func (p *FakePlugin) ID() string { return p.PluginID }

// GenerateImage records the call and renders.
func (p *FakePlugin) GenerateImage(ctx context.Context, settings plugin.Settings, device plugin.Device) (image.Image, error) {
	p.mu.Lock()
	n := len(p.calls)
	p.calls = append(p.calls, RenderCall{Timestamp: time.Now(), Settings: copySettings(settings)})
	render, err, panicValue := p.Render, p.Err, p.Panic
	p.mu.Unlock()

	if panicValue != nil {
		panic(panicValue)
	}
	if err != nil {
		return nil, err
	}
	if render != nil {
		return render(ctx, settings, device)
	}

	w, h := plugin.Dimensions(device)
	return SolidImage(w, h, uint8(n%256)), nil
}

// Cleanup records the settings it was called with.
func (p *FakePlugin) Cleanup(settings plugin.Settings) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleanups = append(p.cleanups, copySettings(settings))
	return p.CleanupErr
}

// Calls returns every recorded render.
func (p *FakePlugin) Calls() []RenderCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RenderCall, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns the number of renders so far.
func (p *FakePlugin) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// Cleanups returns the settings passed to every Cleanup call.
func (p *FakePlugin) Cleanups() []plugin.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]plugin.Settings, len(p.cleanups))
	copy(out, p.cleanups)
	return out
}

// SetErr changes the render error under the fake's lock.
func (p *FakePlugin) SetErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Err = err
}

// SolidImage returns a w x h image filled with the given gray level.
func SolidImage(w, h int, gray uint8) *image.NRGBA {
	return imaging.New(w, h, color.NRGBA{R: gray, G: gray, B: gray, A: 255})
}

// FilterRenderCalls returns the calls whose settings contain key=value.
func FilterRenderCalls(calls []RenderCall, key string, value any) []RenderCall {
	var filtered []RenderCall
	for _, call := range calls {
		if v, ok := call.Settings[key]; ok && v == value {
			filtered = append(filtered, call)
		}
	}
	return filtered
}

func copySettings(s plugin.Settings) plugin.Settings {
	out := make(plugin.Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
