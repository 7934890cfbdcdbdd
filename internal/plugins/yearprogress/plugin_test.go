package yearprogress

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

func TestProgress(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want float64
	}{
		{name: "new year", at: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), want: 0},
		{name: "mid year", at: time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC), want: 0.5},
		{name: "leap year end", at: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), want: 365.0 / 366.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Progress(tt.at), 0.0001)
		})
	}
}

func TestGenerateImage(t *testing.T) {
	p := New(nil)
	p.now = func() time.Time { return time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC) }

	dev := testutil.NewFakeDevice()
	img, err := p.GenerateImage(context.Background(), plugin.Settings{}, dev)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 800, 480), img.Bounds())

	nrgba := img.(*image.NRGBA)
	mid := 480 / 2
	assert.Equal(t, canvas.Black, nrgba.NRGBAAt(200, mid), "first half is filled")
	assert.Equal(t, canvas.White, nrgba.NRGBAAt(600, mid), "second half is empty")
}

func TestGenerateImage_Vertical(t *testing.T) {
	dev := testutil.NewFakeDevice()
	dev.Orient = "vertical"

	img, err := New(nil).GenerateImage(context.Background(), plugin.Settings{}, dev)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 480, 800), img.Bounds())
}
