// Package testutil provides fakes and a test environment for inkdisplay
// plugins, sinks and the scheduler.
package testutil

import (
	"time"
)

// FakeDevice is an in-memory plugin.Device.
type FakeDevice struct {
	Width, Height int
	Orient        string
	Loc           *time.Location
	Values        map[string]any
}

// NewFakeDevice returns an 800x480 horizontal UTC device.
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{
		Width:  800,
		Height: 480,
		Orient: "horizontal",
		Loc:    time.UTC,
		Values: map[string]any{},
	}
}

func (d *FakeDevice) Resolution() (int, int) { return d.Width, d.Height }
func (d *FakeDevice) Orientation() string    { return d.Orient }

func (d *FakeDevice) Get(key string, def any) any {
	if v, ok := d.Values[key]; ok {
		return v
	}
	return def
}

func (d *FakeDevice) Location() *time.Location {
	if d.Loc == nil {
		return time.UTC
	}
	return d.Loc
}
