// Package yearprogress draws how much of the current year has elapsed.
package yearprogress

import (
	"context"
	"image"
	"time"

	"go.uber.org/zap"

	"inkdisplay/internal/plugins/canvas"
	"inkdisplay/pkg/plugin"
)

// ID is the plugin id used in playlists.
const ID = "year_progress"

// Plugin renders a progress bar with a tick at the start of every month.
type Plugin struct {
	logger *zap.Logger
	now    func() time.Time
}

// New creates the plugin.
func New(logger *zap.Logger) *Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plugin{logger: logger.Named(ID), now: time.Now}
}

func (p *Plugin) ID() string { return ID }

// Progress returns the elapsed fraction of t's year in t's location.
func Progress(t time.Time) float64 {
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(1, 0, 0)
	return float64(t.Sub(start)) / float64(end.Sub(start))
}

// GenerateImage draws the bar at device size.
func (p *Plugin) GenerateImage(ctx context.Context, settings plugin.Settings, device plugin.Device) (image.Image, error) {
	w, h := plugin.Dimensions(device)
	now := p.now().In(device.Location())
	fraction := Progress(now)

	img := canvas.New(w, h)
	margin := w / 10
	barHeight := h / 6
	top := (h - barHeight) / 2
	bar := image.Rect(margin, top, w-margin, top+barHeight)

	filled := bar
	filled.Max.X = bar.Min.X + int(float64(bar.Dx())*fraction)
	canvas.FillRect(img, filled, canvas.Black)
	canvas.StrokeRect(img, bar, 3, canvas.Black)

	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	for m := 1; m < 12; m++ {
		x := bar.Min.X + int(float64(bar.Dx())*Progress(start.AddDate(0, m, 0)))
		canvas.VLine(img, x, bar.Max.Y, bar.Max.Y+barHeight/3, 2, canvas.Gray)
	}

	p.logger.Debug("Year progress rendered", zap.Float64("fraction", fraction))
	return img, nil
}
