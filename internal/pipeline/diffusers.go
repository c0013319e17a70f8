package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bdougie/genvideo/internal/placeholder"
)

// Pipeline turns a conditioning image and a prompt into an ordered set of frames
type Pipeline interface {
	Generate(ctx context.Context, img image.Image, prompt string, numFrames int) ([]image.Image, error)
	ModelID() string
}

// Loader prepares a Pipeline
type Loader interface {
	Load(ctx context.Context) (Pipeline, error)
}

type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// DiffusersLoader loads the pretrained model through the embedded runner
type DiffusersLoader struct {
	opts    Options
	command commandFunc
}

// NewDiffusersLoader creates a loader; zero fields of opts take the defaults
func NewDiffusersLoader(opts Options) *DiffusersLoader {
	opts.normalize()
	return &DiffusersLoader{opts: opts, command: exec.CommandContext}
}

// Load checks that the interpreter, torch, diffusers and the requested device
// are usable. Weights are loaded by each Generate call in its own runner
// process.
func (l *DiffusersLoader) Load(ctx context.Context) (Pipeline, error) {
	interpreter, err := exec.LookPath(l.opts.Interpreter)
	if err != nil {
		return nil, fmt.Errorf("python interpreter %q not found: %w", l.opts.Interpreter, err)
	}

	cmd := l.command(ctx, interpreter, l.args("check")...)
	cmd.Stderr = l.opts.Stderr
	if _, err := cmd.Output(); err != nil {
		return nil, fmt.Errorf("load pipeline %s on %s: %w", l.opts.ModelID, l.opts.Device, err)
	}

	return &diffusersPipeline{opts: l.opts, interpreter: interpreter, command: l.command}, nil
}

func (l *DiffusersLoader) args(mode string, extra ...string) []string {
	args := []string{
		"-c", runnerScript,
		mode,
		flag("model", l.opts.ModelID),
		flag("dtype", l.opts.Precision),
		flag("variant", l.opts.Variant),
		flag("device", l.opts.Device),
	}
	return append(args, extra...)
}

// flag joins name and value into one argv token so values starting with a
// dash are not read as options by the runner
func flag(name, value string) string {
	return "--" + name + "=" + value
}

type diffusersPipeline struct {
	opts        Options
	interpreter string
	command     commandFunc
}

func (p *diffusersPipeline) ModelID() string {
	return p.opts.ModelID
}

// Generate runs the pipeline once and reads the frames back in order
func (p *diffusersPipeline) Generate(ctx context.Context, img image.Image, prompt string, numFrames int) ([]image.Image, error) {
	if numFrames <= 0 {
		numFrames = p.opts.NumFrames
	}

	workDir, err := os.MkdirTemp(p.opts.WorkDir, "genvideo-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	imagePath := filepath.Join(workDir, "conditioning.png")
	if err := placeholder.Save(img, imagePath); err != nil {
		return nil, fmt.Errorf("failed to write conditioning image: %w", err)
	}

	frameDir := filepath.Join(workDir, "frames")
	loader := DiffusersLoader{opts: p.opts}
	args := loader.args("generate",
		flag("image", imagePath),
		flag("prompt", prompt),
		flag("num-frames", strconv.Itoa(numFrames)),
		flag("out", frameDir),
	)

	cmd := p.command(ctx, p.interpreter, args...)
	cmd.Stderr = p.opts.Stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("video generation failed: %w", err)
	}

	m, err := parseManifest(out)
	if err != nil {
		return nil, err
	}

	frames, err := readFrames(frameDir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("pipeline returned no frames")
	}
	if len(frames) != m.Frames {
		return nil, fmt.Errorf("pipeline reported %d frames but wrote %d", m.Frames, len(frames))
	}

	return frames, nil
}

type manifest struct {
	Frames int `json:"frames"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// parseManifest decodes the last non-empty stdout line
func parseManifest(out []byte) (manifest, error) {
	var m manifest
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return m, fmt.Errorf("runner produced no manifest")
	}
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		return m, fmt.Errorf("failed to parse runner manifest %q: %w", last, err)
	}
	return m, nil
}

func readFrames(dir string) ([]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory '%s': %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "frame_") && strings.HasSuffix(strings.ToLower(name), ".png") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	frames := make([]image.Image, 0, len(names))
	for _, name := range names {
		img, err := decodePNG(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		frames = append(frames, img)
	}
	return frames, nil
}

func decodePNG(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %s: %w", path, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", path, err)
	}
	return img, nil
}
