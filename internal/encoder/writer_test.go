package encoder

import (
	"context"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/bdougie/genvideo/internal/models"
)

func TestBuildArgs(t *testing.T) {
	got := BuildArgs(512, 512, 8, "generated_video.mp4")
	want := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", "512x512",
		"-framerate", "8",
		"-i", "-",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-movflags", "+faststart",
		"-f", "mp4",
		"generated_video.mp4",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("BuildArgs mismatch\n got: %v\nwant: %v", got, want)
	}
}

func TestToRGBA(t *testing.T) {
	size := image.Pt(4, 4)

	same := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if toRGBA(same, size) != same {
		t.Fatal("packed RGBA frame of the right size should be used as is")
	}

	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range gray.Pix {
		gray.Pix[i] = 200
	}
	converted := toRGBA(gray, size)
	if c := converted.RGBAAt(2, 2); c != (color.RGBA{200, 200, 200, 255}) {
		t.Fatalf("converted pixel = %v", c)
	}

	big := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for i := 0; i < len(big.Pix); i += 4 {
		big.Pix[i], big.Pix[i+3] = 255, 255
	}
	scaled := toRGBA(big, size)
	if scaled.Bounds().Size() != size {
		t.Fatalf("scaled size = %v, want %v", scaled.Bounds().Size(), size)
	}
	if c := scaled.RGBAAt(1, 1); c.R != 255 || c.G != 0 {
		t.Fatalf("scaled pixel = %v", c)
	}
}

func TestWriteRejectsEmptySequence(t *testing.T) {
	w := NewWriter()
	err := w.Write(context.Background(), models.FrameSequence{FPS: 8}, filepath.Join(t.TempDir(), "out.mp4"))
	if err == nil {
		t.Fatal("expected error for empty sequence, got nil")
	}
}

func TestWriteRejectsZeroFPS(t *testing.T) {
	w := NewWriter()
	seq := models.FrameSequence{Frames: []image.Image{image.NewRGBA(image.Rect(0, 0, 2, 2))}}
	if err := w.Write(context.Background(), seq, filepath.Join(t.TempDir(), "out.mp4")); err == nil {
		t.Fatal("expected error for zero fps, got nil")
	}
}

func TestValidateMissingBinary(t *testing.T) {
	w := &Writer{ffmpeg: "genvideo-no-such-ffmpeg"}
	if err := w.Validate(); err == nil {
		t.Fatal("expected error for missing ffmpeg, got nil")
	}
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{"streams":[{"width":512,"height":512,"r_frame_rate":"8/1","nb_read_frames":"16"}]}`)
	info, err := parseProbe(out)
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}
	want := Info{Frames: 16, FPS: 8, Width: 512, Height: 512}
	if info != want {
		t.Fatalf("info = %+v, want %+v", info, want)
	}

	if _, err := parseProbe([]byte(`{"streams":[]}`)); err == nil {
		t.Fatal("expected error for no streams")
	}
}

func TestParseRate(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "8/1", want: 8},
		{in: "30000/1001", want: 30000.0 / 1001.0},
		{in: "25", want: 25},
		{in: "8/0", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseRate(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseRate(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("parseRate(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func solidFrames(n int, w, h int) []image.Image {
	frames := make([]image.Image, n)
	for i := range frames {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = uint8(i*15), 128, 64, 255
		}
		frames[i] = img
	}
	return frames
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not installed", bin)
		}
	}
}

func TestWriteAndProbe(t *testing.T) {
	requireFFmpeg(t)

	w := NewWriter()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "generated_video.mp4")

	err := w.Write(ctx, models.FrameSequence{Frames: solidFrames(16, 64, 64), FPS: 8}, path)
	if err != nil && strings.Contains(err.Error(), "libx264") {
		t.Skip("ffmpeg built without libx264")
	}
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := w.Probe(ctx, path)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.Frames != 16 {
		t.Errorf("frames = %d, want 16", info.Frames)
	}
	if info.FPS != 8 {
		t.Errorf("fps = %v, want 8", info.FPS)
	}
	if info.Width != 64 || info.Height != 64 {
		t.Errorf("size = %dx%d, want 64x64", info.Width, info.Height)
	}

	// Second write to the same path replaces the first clip.
	if err := w.Write(ctx, models.FrameSequence{Frames: solidFrames(4, 64, 64), FPS: 8}, path); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	info, err = w.Probe(ctx, path)
	if err != nil {
		t.Fatalf("Probe after overwrite failed: %v", err)
	}
	if info.Frames != 4 {
		t.Errorf("frames after overwrite = %d, want 4", info.Frames)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}
