// Package placeholder builds the conditioning image handed to the
// image-to-video pipeline.
package placeholder

import (
	"image"
	"image/color"

	"github.com/llgcode/draw2d/draw2dimg"
)

const (
	Width  = 512
	Height = 512
)

// Fill is the uniform color of the placeholder
var Fill = color.RGBA{255, 255, 255, 255}

// New returns a fresh 512x512 image painted solid white. It takes no prompt:
// the prompt is passed to the generator separately and never drawn here.
func New() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	gc := draw2dimg.NewGraphicContext(img)
	gc.SetFillColor(Fill)
	gc.Clear()
	return img
}

// Save writes img as a PNG file
func Save(img image.Image, path string) error {
	return draw2dimg.SaveToPngFile(path, img)
}
