// Package canvas has the few drawing primitives the reference plugins use.
package canvas

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Palette suited to e-ink panels.
var (
	Black = color.NRGBA{0, 0, 0, 255}
	White = color.NRGBA{255, 255, 255, 255}
	Gray  = color.NRGBA{160, 160, 160, 255}
	Light = color.NRGBA{220, 220, 220, 255}
)

// New returns a white canvas.
func New(width, height int) *image.NRGBA {
	return imaging.New(width, height, White)
}

// FillRect paints r with c, clipped to the image.
func FillRect(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

// StrokeRect draws the outline of r with the given thickness.
func StrokeRect(img draw.Image, r image.Rectangle, thickness int, c color.Color) {
	FillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness), c)
	FillRect(img, image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y), c)
	FillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y), c)
	FillRect(img, image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y), c)
}

// VLine draws a vertical line centred on x.
func VLine(img draw.Image, x, y0, y1, thickness int, c color.Color) {
	half := thickness / 2
	FillRect(img, image.Rect(x-half, y0, x-half+thickness, y1), c)
}

// Inset shrinks r by n pixels on every side.
func Inset(r image.Rectangle, n int) image.Rectangle {
	return image.Rect(r.Min.X+n, r.Min.Y+n, r.Max.X-n, r.Max.Y-n)
}
