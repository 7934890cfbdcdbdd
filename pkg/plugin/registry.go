package plugin

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Priority constants for plugin registration.
// Higher priority values override lower priority plugins with the same id.
const (
	// PriorityDefault is the default priority for plugins.
	// Public/reference implementations should use this priority.
	PriorityDefault = 0

	// PriorityOverride is used by private implementations to override
	// public plugins.
	PriorityOverride = 100
)

// PluginInfo contains metadata about a registered plugin.
type PluginInfo struct {
	// ID is the unique identifier for the plugin.
	// Plugins with the same id will override based on priority.
	ID string

	// Description is a human-readable description of the plugin.
	Description string

	// Priority determines which plugin wins when multiple plugins
	// register with the same id. Higher priority wins.
	Priority int

	// Factory creates new instances of the plugin.
	Factory Factory
}

// Registry manages plugin registration and instantiation.
// It supports priority-based override, allowing private implementations
// to replace public ones at compile time through import ordering.
//
// Registration runs from init() before any logger exists, so the losing
// priorities of each id are kept and reported by CreateAll.
type Registry struct {
	mu       sync.RWMutex
	plugins  map[string]PluginInfo
	order    []string
	shadowed map[string][]int
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:  make(map[string]PluginInfo),
		order:    make([]string, 0),
		shadowed: make(map[string][]int),
	}
}

// Register adds a plugin to the registry.
// If a plugin with the same id already exists, the one with higher
// priority wins. If priorities are equal, the later registration wins.
func (r *Registry) Register(info PluginInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info.ID == "" {
		return fmt.Errorf("plugin id cannot be empty")
	}

	if info.Factory == nil {
		return fmt.Errorf("plugin %s: factory cannot be nil", info.ID)
	}

	existing, exists := r.plugins[info.ID]
	if exists {
		if info.Priority < existing.Priority {
			r.shadowed[info.ID] = append(r.shadowed[info.ID], info.Priority)
			return nil
		}
		r.shadowed[info.ID] = append(r.shadowed[info.ID], existing.Priority)
	}

	r.plugins[info.ID] = info

	if !exists {
		r.order = append(r.order, info.ID)
	}

	return nil
}

// Get returns the plugin info for a given id, or nil if not found.
func (r *Registry) Get(id string) *PluginInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.plugins[id]
	if !ok {
		return nil
	}
	return &info
}

// List returns all registered plugins sorted by id.
func (r *Registry) List() []PluginInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]PluginInfo, 0, len(r.plugins))
	for _, id := range r.order {
		result = append(result, r.plugins[id])
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

// CreateAll instantiates every registered plugin into a Set and logs each
// one, with any registrations it won over, through the context's logger.
func (r *Registry) CreateAll(ctx *Context) (*Set, error) {
	logger := zap.NewNop()
	if ctx != nil && ctx.Logger != nil {
		logger = ctx.Logger.Named("plugins")
	}

	infos := r.List()
	plugins := make([]Plugin, 0, len(infos))

	for _, info := range infos {
		p, err := info.Factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create plugin %s: %w", info.ID, err)
		}
		if p.ID() != info.ID {
			return nil, fmt.Errorf("plugin registered as %s reports id %s", info.ID, p.ID())
		}
		plugins = append(plugins, p)

		fields := []zap.Field{
			zap.String("plugin_id", info.ID),
			zap.Int("priority", info.Priority),
			zap.String("description", info.Description),
		}
		if lost := r.shadowedBy(info.ID); len(lost) > 0 {
			fields = append(fields, zap.Ints("overrides_priorities", lost))
		}
		logger.Info("Plugin created", fields...)
	}

	return NewSet(plugins...), nil
}

func (r *Registry) shadowedBy(id string) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]int(nil), r.shadowed[id]...)
}

// IDs returns the ids of all registered plugins in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// Clear removes all registered plugins. Useful for testing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plugins = make(map[string]PluginInfo)
	r.order = make([]string, 0)
	r.shadowed = make(map[string][]int)
}

// Global registry instance
var globalRegistry = NewRegistry()

// Register adds a plugin to the global registry.
// This is typically called from init() functions in plugin packages.
func Register(info PluginInfo) error {
	return globalRegistry.Register(info)
}

// Get returns plugin info from the global registry.
func Get(id string) *PluginInfo {
	return globalRegistry.Get(id)
}

// List returns all plugins from the global registry.
func List() []PluginInfo {
	return globalRegistry.List()
}

// CreateAll creates all plugins from the global registry.
func CreateAll(ctx *Context) (*Set, error) {
	return globalRegistry.CreateAll(ctx)
}

// IDs returns all plugin ids from the global registry.
func IDs() []string {
	return globalRegistry.IDs()
}

// ClearGlobal clears the global registry. Useful for testing.
func ClearGlobal() {
	globalRegistry.Clear()
}
