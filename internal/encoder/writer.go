package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"golang.org/x/image/draw"

	"github.com/bdougie/genvideo/internal/models"
)

// Writer encodes frame sequences to MP4 with ffmpeg
type Writer struct {
	ffmpeg  string
	ffprobe string
}

// NewWriter returns a Writer using ffmpeg and ffprobe from PATH
func NewWriter() *Writer {
	return &Writer{ffmpeg: "ffmpeg", ffprobe: "ffprobe"}
}

// Validate checks that ffmpeg is installed
func (w *Writer) Validate() error {
	if _, err := exec.LookPath(w.ffmpeg); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return nil
}

// BuildArgs returns the ffmpeg arguments for encoding raw RGBA frames read
// from stdin into an H.264 MP4 at path. An existing file is overwritten.
func BuildArgs(width, height, fps int, path string) []string {
	return []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-framerate", strconv.Itoa(fps),
		"-i", "-",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-movflags", "+faststart",
		"-f", "mp4",
		path,
	}
}

// Write encodes frames to path at frames.FPS and blocks until ffmpeg exits.
// Frames that differ in size from the first one are scaled to match.
func (w *Writer) Write(ctx context.Context, frames models.FrameSequence, path string) error {
	if frames.Len() == 0 {
		return fmt.Errorf("no frames to encode")
	}
	if frames.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %d", frames.FPS)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory '%s': %v", dir, err)
		}
	}

	size := frames.Size()
	cmd := exec.CommandContext(ctx, w.ffmpeg, BuildArgs(size.X, size.Y, frames.FPS, path)...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	writeErr := writeFrames(stdin, frames.Frames, size)
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, output.String())
	}
	if writeErr != nil {
		return fmt.Errorf("failed to stream frames to ffmpeg: %w", writeErr)
	}
	return nil
}

func writeFrames(w io.Writer, frames []image.Image, size image.Point) error {
	for i, f := range frames {
		if _, err := w.Write(toRGBA(f, size).Pix); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// toRGBA returns a tightly packed RGBA copy of img at the given size
func toRGBA(img image.Image, size image.Point) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok &&
		rgba.Rect.Min == (image.Point{}) &&
		rgba.Rect.Size() == size &&
		rgba.Stride == 4*size.X {
		return rgba
	}

	dst := image.NewRGBA(image.Rectangle{Max: size})
	src := img.Bounds()
	if src.Size() == size {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	}
	return dst
}
