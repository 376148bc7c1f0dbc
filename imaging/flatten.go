package imaging

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// hasAlpha reports whether img is palette indexed or its color model carries an alpha channel.
func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.Paletted, *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64, *image.Alpha, *image.Alpha16:
		return true
	}
	switch img.ColorModel() {
	case color.NRGBAModel, color.NRGBA64Model, color.RGBAModel, color.RGBA64Model, color.AlphaModel, color.Alpha16Model:
		return true
	}
	return false
}

// flatten returns a fully opaque RGBA copy of img anchored at the origin.
// Transparent and paletted sources are composited over white.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	if hasAlpha(img) {
		dc := gg.NewContext(b.Dx(), b.Dy())
		dc.SetColor(color.White)
		dc.Clear()
		dc.DrawImage(img, -b.Min.X, -b.Min.Y)
		if rgba, ok := dc.Image().(*image.RGBA); ok {
			return rgba
		}
		return toRGBA(dc.Image())
	}
	return toRGBA(img)
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
