package scheduler

import (
	"errors"

	"inkdisplay/internal/playlist"
)

var (
	// ErrPluginNotFound is returned when no registered plugin has the requested id.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrPlaylistNotFound and ErrInstanceNotFound are the playlist
	// package's sentinels so errors.Is matches either.
	ErrPlaylistNotFound = playlist.ErrPlaylistNotFound
	ErrInstanceNotFound = playlist.ErrInstanceNotFound

	// ErrStopped fails requests still queued when the scheduler stops.
	ErrStopped = errors.New("scheduler stopped")
)
