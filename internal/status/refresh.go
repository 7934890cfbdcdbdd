package status

import "time"

// Refresh types recorded in RefreshInfo.
const (
	RefreshTypePlaylist = "Playlist"
	RefreshTypeManual   = "Manual Update"
)

// RefreshInfo describes the image currently on the display.
type RefreshInfo struct {
	RefreshType    string    `yaml:"refresh_type" json:"refresh_type"`
	PluginID       string    `yaml:"plugin_id" json:"plugin_id"`
	Playlist       string    `yaml:"playlist,omitempty" json:"playlist,omitempty"`
	PluginInstance string    `yaml:"plugin_instance,omitempty" json:"plugin_instance,omitempty"`
	RefreshTime    time.Time `yaml:"refresh_time" json:"refresh_time"`
	ImageHash      string    `yaml:"image_hash" json:"image_hash"`
	RequestID      string    `yaml:"-" json:"request_id,omitempty"`
}

// Clone returns a copy, or nil for a nil receiver.
func (r *RefreshInfo) Clone() *RefreshInfo {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// IsPlaylist reports whether the refresh came from a playlist instance.
func (r *RefreshInfo) IsPlaylist() bool {
	return r != nil && r.RefreshType == RefreshTypePlaylist
}
