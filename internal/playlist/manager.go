package playlist

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPlaylistNotFound is returned when no playlist has the requested name.
	ErrPlaylistNotFound = errors.New("playlist not found")
	// ErrInstanceNotFound is returned when a playlist has no such plugin instance.
	ErrInstanceNotFound = errors.New("plugin instance not found")
	// ErrDuplicatePlaylist is returned when adding or renaming to an existing name.
	ErrDuplicatePlaylist = errors.New("playlist already exists")
	// ErrDuplicateInstance is returned when a playlist already holds the instance.
	ErrDuplicateInstance = errors.New("plugin instance already exists")
)

// DefaultPlaylistName is the name of the all-day playlist created for a
// fresh device.
const DefaultPlaylistName = "Default"

// InstanceRef addresses one plugin instance record across the whole
// configuration.
type InstanceRef struct {
	Playlist string `json:"playlist"`
	PluginID string `json:"plugin_id"`
	Instance string `json:"instance"`
}

func (r InstanceRef) String() string {
	return r.Playlist + "/" + r.PluginID + "/" + r.Instance
}

// Manager owns the collection of playlists in declaration order.
type Manager struct {
	Playlists []*Playlist `yaml:"playlists" json:"playlists"`
}

// NewManager creates a manager over the given playlists.
func NewManager(playlists ...*Playlist) *Manager {
	if playlists == nil {
		playlists = []*Playlist{}
	}
	return &Manager{Playlists: playlists}
}

// Validate checks every playlist and name uniqueness.
func (m *Manager) Validate() error {
	seen := make(map[string]bool, len(m.Playlists))
	for _, p := range m.Playlists {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicatePlaylist, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Get returns the playlist with the given name.
func (m *Manager) Get(name string) (*Playlist, bool) {
	for _, p := range m.Playlists {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Names returns playlist names in declaration order.
func (m *Manager) Names() []string {
	names := make([]string, len(m.Playlists))
	for i, p := range m.Playlists {
		names[i] = p.Name
	}
	return names
}

// FindPlugin returns the first instance matching plugin id and name,
// searching playlists in declaration order.
func (m *Manager) FindPlugin(pluginID, name string) (*Playlist, *PluginInstance, bool) {
	for _, p := range m.Playlists {
		if inst, ok := p.FindPlugin(pluginID, name); ok {
			return p, inst, true
		}
	}
	return nil, nil, false
}

// Resolve looks up the playlist and instance a ref points at.
func (m *Manager) Resolve(ref InstanceRef) (*Playlist, *PluginInstance, error) {
	p, ok := m.Get(ref.Playlist)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrPlaylistNotFound, ref.Playlist)
	}
	inst, ok := p.FindPlugin(ref.PluginID, ref.Instance)
	if !ok {
		return p, nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, ref)
	}
	return p, inst, nil
}

// Active returns the most specific playlist active at now, or nil.
// Ties on priority go to the playlist declared first.
func (m *Manager) Active(now time.Time) *Playlist {
	var best *Playlist
	for _, p := range m.Playlists {
		if !p.IsActive(now) {
			continue
		}
		if best == nil || p.Priority() < best.Priority() {
			best = p
		}
	}
	return best
}

// AddPlaylist appends a new, empty-or-populated playlist.
func (m *Manager) AddPlaylist(p *Playlist) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, exists := m.Get(p.Name); exists {
		return fmt.Errorf("%w: %q", ErrDuplicatePlaylist, p.Name)
	}
	m.Playlists = append(m.Playlists, p)
	return nil
}

// UpdatePlaylist renames a playlist and replaces its window. Instances and
// the rotation cursor are kept.
func (m *Manager) UpdatePlaylist(oldName, newName string, start, end TimeOfDay) error {
	p, ok := m.Get(oldName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrPlaylistNotFound, oldName)
	}
	if newName != oldName {
		if _, exists := m.Get(newName); exists {
			return fmt.Errorf("%w: %q", ErrDuplicatePlaylist, newName)
		}
	}

	w := Window{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return fmt.Errorf("playlist %q: %w", oldName, err)
	}
	if newName == "" {
		return fmt.Errorf("playlist name is required")
	}

	p.Name = newName
	p.Start = start
	p.End = end
	return nil
}

// DeletePlaylist removes a playlist and returns it so callers can clean up
// its instances.
func (m *Manager) DeletePlaylist(name string) (*Playlist, error) {
	for i, p := range m.Playlists {
		if p.Name == name {
			m.Playlists = append(m.Playlists[:i], m.Playlists[i+1:]...)
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPlaylistNotFound, name)
}

// AddDefaultPlaylist adds the all-day "Default" playlist if missing.
func (m *Manager) AddDefaultPlaylist() *Playlist {
	if p, ok := m.Get(DefaultPlaylistName); ok {
		return p
	}
	p := New(DefaultPlaylistName, Midnight, EndOfDay)
	m.Playlists = append(m.Playlists, p)
	return p
}

// Clone returns a deep copy.
func (m *Manager) Clone() *Manager {
	c := &Manager{Playlists: make([]*Playlist, len(m.Playlists))}
	for i, p := range m.Playlists {
		c.Playlists[i] = p.Clone()
	}
	return c
}
