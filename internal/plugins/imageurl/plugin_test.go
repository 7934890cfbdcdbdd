package imageurl

import (
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inkdisplay/pkg/plugin"
	"inkdisplay/pkg/testutil"
)

func TestGenerateImage(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		_ = imaging.Encode(w, imaging.New(30, 20, color.Black), imaging.PNG)
	}))
	defer server.Close()

	p := New(server.Client(), "inkdisplay-test", zap.NewNop())
	img, err := p.GenerateImage(context.Background(), plugin.Settings{"url": server.URL}, testutil.NewFakeDevice())
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())
	assert.Equal(t, "inkdisplay-test", gotUA)
	assert.Equal(t, ID, p.ID())
}

func TestGenerateImage_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		default:
			_, _ = w.Write([]byte("not an image"))
		}
	}))
	defer server.Close()

	p := New(server.Client(), "", nil)
	dev := testutil.NewFakeDevice()

	tests := []struct {
		name     string
		settings plugin.Settings
		contains string
	}{
		{name: "no url", settings: plugin.Settings{}, contains: "url is required"},
		{name: "not found", settings: plugin.Settings{"url": server.URL + "/missing"}, contains: "404"},
		{name: "garbage", settings: plugin.Settings{"url": server.URL + "/garbage"}, contains: "decode"},
		{name: "bad url", settings: plugin.Settings{"url": "://nope"}, contains: "invalid url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.GenerateImage(context.Background(), tt.settings, dev)
			assert.ErrorContains(t, err, tt.contains)
		})
	}
}

func TestRegistered(t *testing.T) {
	info := plugin.Get(ID)
	require.NotNil(t, info)

	p, err := info.Factory(plugin.NewContext(zap.NewNop(), nil, "", t.TempDir(), nil))
	require.NoError(t, err)
	assert.Equal(t, ID, p.ID())
}
