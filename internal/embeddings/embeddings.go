package embeddings

import (
	"context"
	"fmt"
	"image"
	"math"
	"runtime"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// Dimensions is the number of values produced per frame
const Dimensions = 3

// Fingerprint computes the mean normalized R, G, B of every frame, in order.
// Frames are reduced concurrently; the result has len(frames)*Dimensions values.
func Fingerprint(ctx context.Context, frames []image.Image) ([]float32, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to fingerprint")
	}

	out := make([]float32, len(frames)*Dimensions)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, frame := range frames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, gr, b := meanColor(frame)
			out[i*Dimensions] = r
			out[i*Dimensions+1] = gr
			out[i*Dimensions+2] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// meanColor averages a frame by scaling it down to a single pixel
func meanColor(img image.Image) (float32, float32, float32) {
	dst := image.NewRGBA(image.Rect(0, 0, 1, 1))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	c := dst.RGBAAt(0, 0)
	return float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255
}

// Similarity returns the cosine similarity of two fingerprints of equal length
func Similarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
