package plugin

import "sort"

// Set is the immutable collection of instantiated plugins, resolved once at
// startup and looked up by id afterwards.
type Set struct {
	plugins map[string]Plugin
}

// NewSet builds a set; a later plugin with a duplicate id replaces an earlier one.
func NewSet(plugins ...Plugin) *Set {
	s := &Set{plugins: make(map[string]Plugin, len(plugins))}
	for _, p := range plugins {
		s.plugins[p.ID()] = p
	}
	return s
}

// Get returns the plugin with the given id.
func (s *Set) Get(id string) (Plugin, bool) {
	p, ok := s.plugins[id]
	return p, ok
}

// IDs returns the sorted plugin ids.
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.plugins))
	for id := range s.plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of plugins.
func (s *Set) Len() int {
	return len(s.plugins)
}
