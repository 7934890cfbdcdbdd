package scheduler

import (
	"github.com/google/uuid"

	"inkdisplay/internal/playlist"
	"inkdisplay/pkg/plugin"
)

// Request is a manual refresh submitted to the scheduler. The set of
// implementations is closed: PlaylistRefresh and ManualRefresh.
type Request interface {
	// ID identifies the request in logs and refresh records.
	ID() string
	// Kind is a short name for logs.
	Kind() string

	withID(id string) Request
}

// PlaylistRefresh shows a specific playlist instance. Without Force an
// instance that is not due is shown from its cached image when one exists.
type PlaylistRefresh struct {
	Ref   playlist.InstanceRef
	Force bool

	id string
}

// NewPlaylistRefresh creates a playlist refresh with a fresh request id.
func NewPlaylistRefresh(ref playlist.InstanceRef, force bool) PlaylistRefresh {
	return PlaylistRefresh{Ref: ref, Force: force, id: uuid.NewString()}
}

func (r PlaylistRefresh) ID() string   { return r.id }
func (r PlaylistRefresh) Kind() string { return "playlist" }

func (r PlaylistRefresh) withID(id string) Request {
	r.id = id
	return r
}

// ManualRefresh renders a plugin with ad-hoc settings. It never touches
// playlists or instances.
type ManualRefresh struct {
	PluginID string
	Settings plugin.Settings

	id string
}

// NewManualRefresh creates a manual refresh with a fresh request id. The
// settings are copied.
func NewManualRefresh(pluginID string, settings plugin.Settings) ManualRefresh {
	return ManualRefresh{
		PluginID: pluginID,
		Settings: plugin.Settings(playlist.CloneSettings(settings)),
		id:       uuid.NewString(),
	}
}

func (r ManualRefresh) ID() string   { return r.id }
func (r ManualRefresh) Kind() string { return "manual" }

func (r ManualRefresh) withID(id string) Request {
	r.id = id
	return r
}

// ensureID gives requests built as literals an id.
func ensureID(req Request) Request {
	if req.ID() != "" {
		return req
	}
	return req.withID(uuid.NewString())
}
