// Package daylight draws today's daylight as a 24 hour strip.
package daylight

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"time"

	"go.uber.org/zap"

	"inkdisplay/internal/dayphase"
	"inkdisplay/internal/plugins/canvas"
	"inkdisplay/pkg/plugin"
)

// ID is the plugin id used in playlists.
const ID = "daylight"

var eventColors = map[dayphase.SunEvent]color.Color{
	dayphase.SunEventNight:   canvas.Black,
	dayphase.SunEventMorning: canvas.Gray,
	dayphase.SunEventDay:     canvas.White,
	dayphase.SunEventSunset:  canvas.Light,
	dayphase.SunEventDusk:    canvas.Gray,
}

// Plugin renders one column per slice of the day shaded by sun event, with
// a marker at the current time. Coordinates come from the instance settings
// or fall back to the device's latitude/longitude.
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

// GenerateImage draws the strip for today in the device timezone.
func (p *Plugin) GenerateImage(ctx context.Context, settings plugin.Settings, device plugin.Device) (image.Image, error) {
	lat, lon, err := coordinates(settings, device)
	if err != nil {
		return nil, err
	}

	w, h := plugin.Dimensions(device)
	now := p.now().In(device.Location())
	sun := dayphase.Calculate(lat, lon, now)

	img := canvas.New(w, h)
	strip := canvas.Inset(img.Bounds(), h/8)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for x := strip.Min.X; x < strip.Max.X; x++ {
		offset := time.Duration(float64(24*time.Hour) * float64(x-strip.Min.X) / float64(strip.Dx()))
		c := eventColors[sun.EventAt(midnight.Add(offset))]
		canvas.FillRect(img, image.Rect(x, strip.Min.Y, x+1, strip.Max.Y), c)
	}
	canvas.StrokeRect(img, strip, 2, canvas.Black)

	elapsed := now.Sub(midnight)
	markerX := strip.Min.X + int(float64(strip.Dx())*elapsed.Hours()/24)
	canvas.VLine(img, markerX, strip.Min.Y-h/16, strip.Max.Y+h/16, 6, canvas.White)
	canvas.VLine(img, markerX, strip.Min.Y-h/16, strip.Max.Y+h/16, 2, canvas.Black)

	p.logger.Debug("Daylight rendered",
		zap.Time("sunrise", sun.Sunrise),
		zap.Time("sunset", sun.Sunset),
		zap.Duration("daylight", sun.Daylight()))
	return img, nil
}

func coordinates(settings plugin.Settings, device plugin.Device) (float64, float64, error) {
	lat, latOK := number(settings["latitude"])
	if !latOK {
		lat, latOK = number(device.Get("latitude", nil))
	}
	lon, lonOK := number(settings["longitude"])
	if !lonOK {
		lon, lonOK = number(device.Get("longitude", nil))
	}

	if !latOK || !lonOK {
		return 0, 0, fmt.Errorf("latitude and longitude are required")
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("coordinates out of range: %f, %f", lat, lon)
	}
	return lat, lon, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
