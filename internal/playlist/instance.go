package playlist

import (
	"fmt"
	"strings"
	"time"
)

// PluginInstance is one configured content source inside a playlist.
type PluginInstance struct {
	PluginID string         `yaml:"plugin_id" json:"plugin_id"`
	Name     string         `yaml:"name" json:"name"`
	Settings map[string]any `yaml:"plugin_settings" json:"plugin_settings"`
	Refresh  Refresh        `yaml:"refresh" json:"refresh"`

	// LatestRefresh is the time of the last successful display.
	// Only the scheduler writes it.
	LatestRefresh *time.Time `yaml:"latest_refresh_time,omitempty" json:"latest_refresh_time,omitempty"`
}

// Validate checks identity fields and the refresh cadence.
func (p *PluginInstance) Validate() error {
	if p.PluginID == "" {
		return fmt.Errorf("plugin instance %q: plugin_id is required", p.Name)
	}
	if p.Name == "" {
		return fmt.Errorf("plugin %s: instance name is required", p.PluginID)
	}
	if err := p.Refresh.Validate(); err != nil {
		return fmt.Errorf("plugin instance %s/%s: %w", p.PluginID, p.Name, err)
	}
	return nil
}

// IsDue reports whether the instance should be rendered again at now.
//
// Interval cadence: due when never refreshed or at least Interval has passed.
// Scheduled cadence: due when the most recent scheduled instant at or before
// now (today's, or yesterday's if today's is still ahead) falls after the
// last refresh. A missed or failed run stays due until it succeeds.
func (p *PluginInstance) IsDue(now time.Time) bool {
	if p.LatestRefresh == nil {
		return true
	}
	last := *p.LatestRefresh

	if p.Refresh.Scheduled != nil {
		at := p.Refresh.Scheduled.On(now)
		if now.Before(at) {
			at = p.Refresh.Scheduled.On(now.AddDate(0, 0, -1))
		}
		return last.Before(at)
	}

	if p.Refresh.Interval <= 0 {
		return false
	}
	return now.Sub(last) >= p.Refresh.IntervalDuration()
}

// MarkRefreshed records a successful display at t.
func (p *PluginInstance) MarkRefreshed(t time.Time) {
	p.LatestRefresh = &t
}

// ImageFile is the file name of the cached render for this instance.
func (p *PluginInstance) ImageFile() string {
	return fmt.Sprintf("%s_%s.png", p.PluginID, strings.ReplaceAll(p.Name, " ", "_"))
}

// Clone returns a deep copy, settings included.
func (p *PluginInstance) Clone() *PluginInstance {
	c := *p
	c.Settings = CloneSettings(p.Settings)
	if p.Refresh.Scheduled != nil {
		at := *p.Refresh.Scheduled
		c.Refresh.Scheduled = &at
	}
	if p.LatestRefresh != nil {
		t := *p.LatestRefresh
		c.LatestRefresh = &t
	}
	return &c
}

// CloneSettings deep-copies an opaque settings map. Nested maps and slices
// are copied; scalars are shared.
func CloneSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneSettings(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
