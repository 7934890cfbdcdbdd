package daylight

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkdisplay/internal/plugins/canvas"
	"inkdisplay/pkg/plugin"
	"inkdisplay/pkg/testutil"
)

func TestGenerateImage_ShadesNightAndDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	p := New(nil)
	p.now = func() time.Time { return time.Date(2025, 6, 21, 12, 0, 0, 0, loc) }

	dev := testutil.NewFakeDevice()
	dev.Loc = loc
	dev.Values["latitude"] = 41.8781
	dev.Values["longitude"] = -87.6298

	img, err := p.GenerateImage(context.Background(), plugin.Settings{}, dev)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 800, 480), img.Bounds())

	nrgba := img.(*image.NRGBA)
	strip := canvas.Inset(nrgba.Bounds(), 480/8)
	y := strip.Min.Y + 20
	xAt := func(hour float64) int {
		return strip.Min.X + int(float64(strip.Dx())*hour/24)
	}

	assert.Equal(t, canvas.Black, nrgba.NRGBAAt(xAt(2), y), "02:00 is night")
	assert.Equal(t, canvas.White, nrgba.NRGBAAt(xAt(10), y), "10:00 is day")
	assert.Equal(t, canvas.Black, nrgba.NRGBAAt(xAt(23), y), "23:00 is night")
	assert.Equal(t, canvas.Black, nrgba.NRGBAAt(xAt(12), y), "marker at noon")
}

func TestGenerateImage_SettingsOverrideDevice(t *testing.T) {
	dev := testutil.NewFakeDevice()
	p := New(nil)

	_, err := p.GenerateImage(context.Background(), plugin.Settings{}, dev)
	assert.ErrorContains(t, err, "latitude and longitude are required")

	_, err = p.GenerateImage(context.Background(), plugin.Settings{"latitude": "51.5", "longitude": "-0.12"}, dev)
	assert.NoError(t, err)

	_, err = p.GenerateImage(context.Background(), plugin.Settings{"latitude": 95.0, "longitude": 0}, dev)
	assert.ErrorContains(t, err, "out of range")

	_, err = p.GenerateImage(context.Background(), plugin.Settings{"latitude": "north", "longitude": 0}, dev)
	assert.Error(t, err)
}
