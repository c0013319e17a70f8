package pipeline

import "io"

const (
	DefaultModelID   = "stabilityai/stable-video-diffusion-img2vid"
	DefaultPrecision = "float16"
	DefaultVariant   = "fp16"
	DefaultDevice    = "cuda"
	DefaultNumFrames = 16
)

// Options configures how the diffusers runner is invoked. The CLI only ever
// sets Interpreter; everything else keeps the defaults.
type Options struct {
	ModelID     string
	Precision   string
	Variant     string
	Device      string
	NumFrames   int
	Interpreter string
	WorkDir     string    // parent for per-run temp dirs, empty means os.TempDir
	Stderr      io.Writer // receives the runtime's own diagnostics
}

func (o *Options) normalize() {
	if o.ModelID == "" {
		o.ModelID = DefaultModelID
	}
	if o.Precision == "" {
		o.Precision = DefaultPrecision
	}
	if o.Variant == "" {
		o.Variant = DefaultVariant
	}
	if o.Device == "" {
		o.Device = DefaultDevice
	}
	if o.NumFrames == 0 {
		o.NumFrames = DefaultNumFrames
	}
	if o.Interpreter == "" {
		o.Interpreter = "python3"
	}
	if o.Stderr == nil {
		o.Stderr = io.Discard
	}
}
