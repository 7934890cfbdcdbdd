package playlist

import (
	"fmt"
	"time"
)

// Playlist is a named, time-windowed, ordered list of plugin instances.
// Insertion order is rotation order.
type Playlist struct {
	Name    string            `yaml:"name" json:"name"`
	Start   TimeOfDay         `yaml:"start_time" json:"start_time"`
	End     TimeOfDay         `yaml:"end_time" json:"end_time"`
	Plugins []*PluginInstance `yaml:"plugins" json:"plugins"`

	// Cursor is the index of the last selected instance; nil before the
	// first selection.
	Cursor *int `yaml:"current_plugin_index,omitempty" json:"current_plugin_index,omitempty"`
}

// New creates an empty playlist.
func New(name string, start, end TimeOfDay) *Playlist {
	return &Playlist{
		Name:    name,
		Start:   start,
		End:     end,
		Plugins: []*PluginInstance{},
	}
}

// Window returns the playlist's activity window.
func (p *Playlist) Window() Window {
	return Window{Start: p.Start, End: p.End}
}

// IsActive reports whether the playlist's window contains now's time of day.
func (p *Playlist) IsActive(now time.Time) bool {
	return p.Window().IsActive(FromTime(now))
}

// Priority returns the window length in minutes; lower wins.
func (p *Playlist) Priority() int {
	return p.Window().Priority()
}

// Validate checks the name, window bounds, and every instance.
func (p *Playlist) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("playlist name is required")
	}
	if err := p.Window().Validate(); err != nil {
		return fmt.Errorf("playlist %q: %w", p.Name, err)
	}

	seen := make(map[InstanceKey]bool, len(p.Plugins))
	for _, inst := range p.Plugins {
		if err := inst.Validate(); err != nil {
			return fmt.Errorf("playlist %q: %w", p.Name, err)
		}
		key := InstanceKey{PluginID: inst.PluginID, Name: inst.Name}
		if seen[key] {
			return fmt.Errorf("playlist %q: %w: %s/%s", p.Name, ErrDuplicateInstance, inst.PluginID, inst.Name)
		}
		seen[key] = true
	}
	return nil
}

// IndexOf returns the position of the instance or -1.
func (p *Playlist) IndexOf(pluginID, name string) int {
	for i, inst := range p.Plugins {
		if inst.PluginID == pluginID && inst.Name == name {
			return i
		}
	}
	return -1
}

// FindPlugin returns the instance identified by plugin id and name.
func (p *Playlist) FindPlugin(pluginID, name string) (*PluginInstance, bool) {
	if i := p.IndexOf(pluginID, name); i >= 0 {
		return p.Plugins[i], true
	}
	return nil, false
}

// AddPlugin appends an instance to the end of the rotation.
func (p *Playlist) AddPlugin(inst *PluginInstance) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	if p.IndexOf(inst.PluginID, inst.Name) >= 0 {
		return fmt.Errorf("%w: %s/%s in playlist %q", ErrDuplicateInstance, inst.PluginID, inst.Name, p.Name)
	}
	if inst.Settings == nil {
		inst.Settings = map[string]any{}
	}
	p.Plugins = append(p.Plugins, inst)
	return nil
}

// UpdatePlugin replaces the settings and refresh cadence of an instance.
func (p *Playlist) UpdatePlugin(pluginID, name string, settings map[string]any, refresh Refresh) error {
	inst, ok := p.FindPlugin(pluginID, name)
	if !ok {
		return fmt.Errorf("%w: %s/%s in playlist %q", ErrInstanceNotFound, pluginID, name, p.Name)
	}
	if err := refresh.Validate(); err != nil {
		return err
	}
	inst.Settings = CloneSettings(settings)
	inst.Refresh = refresh
	return nil
}

// RemovePlugin deletes an instance and keeps the cursor pointing at the
// same "last shown" position so rotation continues with the next instance.
func (p *Playlist) RemovePlugin(pluginID, name string) (*PluginInstance, error) {
	i := p.IndexOf(pluginID, name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s/%s in playlist %q", ErrInstanceNotFound, pluginID, name, p.Name)
	}
	removed := p.Plugins[i]
	p.Plugins = append(p.Plugins[:i], p.Plugins[i+1:]...)

	switch {
	case len(p.Plugins) == 0:
		p.Cursor = nil
	case p.Cursor != nil && i <= *p.Cursor:
		if *p.Cursor == 0 {
			p.Cursor = nil
		} else {
			p.SetCursor(*p.Cursor - 1)
		}
	}
	return removed, nil
}

// NextDue walks one full pass starting after the cursor, wrapping, and
// returns the first instance due at now.
func (p *Playlist) NextDue(now time.Time) (int, *PluginInstance, bool) {
	n := len(p.Plugins)
	if n == 0 {
		return -1, nil, false
	}

	start := 0
	if p.Cursor != nil {
		start = (*p.Cursor + 1) % n
		if start < 0 {
			start = 0
		}
	}

	for k := 0; k < n; k++ {
		i := (start + k) % n
		if p.Plugins[i].IsDue(now) {
			return i, p.Plugins[i], true
		}
	}
	return -1, nil, false
}

// SetCursor records the index of the most recently selected instance.
func (p *Playlist) SetCursor(index int) {
	p.Cursor = &index
}

// Clone returns a deep copy.
func (p *Playlist) Clone() *Playlist {
	c := &Playlist{
		Name:    p.Name,
		Start:   p.Start,
		End:     p.End,
		Plugins: make([]*PluginInstance, len(p.Plugins)),
	}
	for i, inst := range p.Plugins {
		c.Plugins[i] = inst.Clone()
	}
	if p.Cursor != nil {
		c.SetCursor(*p.Cursor)
	}
	return c
}

// InstanceKey identifies an instance inside a single playlist.
type InstanceKey struct {
	PluginID string
	Name     string
}
