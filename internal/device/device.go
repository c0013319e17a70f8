package device

import (
	"context"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"time"
)

// GPU describes one detected graphics device
type GPU struct {
	Vendor        string `json:"vendor"`
	Model         string `json:"model"`
	Memory        string `json:"memory,omitempty"`
	DriverVersion string `json:"driver_version,omitempty"`
}

// Detector inspects the host for GPUs using whatever tools are installed
type Detector struct {
	timeout  time.Duration
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
	readFile func(name string) ([]byte, error)
	goos     string
}

// NewDetector creates a Detector with a 10 second per-command timeout
func NewDetector() *Detector {
	return &Detector{
		timeout: 10 * time.Second,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
		readFile: os.ReadFile,
		goos:     runtime.GOOS,
	}
}

// Detect returns every GPU found. An empty result means none could be identified.
func (d *Detector) Detect(ctx context.Context) []GPU {
	switch d.goos {
	case "linux":
		return d.detectLinux(ctx)
	case "darwin":
		return d.detectMac(ctx)
	default:
		return nil
	}
}

// HasCUDA reports whether an NVIDIA device with a loaded driver is visible
func (d *Detector) HasCUDA(ctx context.Context) bool {
	for _, gpu := range d.Detect(ctx) {
		if gpu.Vendor == "nvidia" && gpu.DriverVersion != "" {
			return true
		}
	}
	return false
}

func (d *Detector) output(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.run(ctx, name, args...)
	return string(out), err
}

func (d *Detector) detectLinux(ctx context.Context) []GPU {
	var gpus []GPU

	if out, err := d.output(ctx, "nvidia-smi", "--query-gpu=name,memory.total,driver_version", "--format=csv,noheader"); err == nil {
		gpus = merge(gpus, parseNvidiaSmi(out))
	}

	if data, err := d.readFile("/proc/driver/nvidia/version"); err == nil {
		gpus = merge(gpus, []GPU{{
			Vendor:        "nvidia",
			Model:         "NVIDIA GPU",
			DriverVersion: nvidiaProcVersion(string(data)),
		}})
	}

	if out, err := d.output(ctx, "lspci"); err == nil {
		gpus = merge(gpus, parseLspci(out))
	}

	return gpus
}

func (d *Detector) detectMac(ctx context.Context) []GPU {
	out, err := d.output(ctx, "system_profiler", "SPDisplaysDataType")
	if err != nil {
		return nil
	}
	return parseSystemProfiler(out)
}

func parseNvidiaSmi(out string) []GPU {
	var gpus []GPU
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(line, ",")
		if len(fields) < 3 {
			continue
		}
		gpus = append(gpus, GPU{
			Vendor:        "nvidia",
			Model:         strings.TrimSpace(fields[0]),
			Memory:        strings.TrimSpace(fields[1]),
			DriverVersion: strings.TrimSpace(fields[2]),
		})
	}
	return gpus
}

var lspciRe = regexp.MustCompile(`(?i)(VGA compatible controller|3D controller|Display controller):\s*(.+)`)

func parseLspci(out string) []GPU {
	var gpus []GPU
	for _, match := range lspciRe.FindAllStringSubmatch(out, -1) {
		model := strings.TrimSpace(match[2])
		if isGeneric(model) {
			continue
		}
		gpus = append(gpus, GPU{Vendor: Vendor(model), Model: model})
	}
	return gpus
}

func parseSystemProfiler(out string) []GPU {
	var gpus []GPU
	var current *GPU
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch {
		case key == "Chipset Model":
			gpus = append(gpus, GPU{Vendor: Vendor(value), Model: value})
			current = &gpus[len(gpus)-1]
		case strings.HasPrefix(key, "VRAM") && current != nil:
			current.Memory = value
		}
	}
	return gpus
}

var nvidiaVersionRe = regexp.MustCompile(`NVIDIA.*?(\d+\.\d+(?:\.\d+)?)`)

func nvidiaProcVersion(data string) string {
	if match := nvidiaVersionRe.FindStringSubmatch(data); len(match) > 1 {
		return match[1]
	}
	return ""
}

// Vendor guesses the vendor from a device model string
func Vendor(model string) string {
	lower := strings.ToLower(model)

	patterns := []struct {
		vendor string
		terms  []string
	}{
		{"nvidia", []string{"nvidia", "geforce", "quadro", "tesla", "rtx", "gtx", "titan"}},
		{"amd", []string{"amd", "radeon", "vega", "navi", "firepro"}},
		{"intel", []string{"intel", "iris", "uhd graphics", "hd graphics", "xe graphics"}},
		{"apple", []string{"apple", "m1", "m2", "m3", "m4"}},
	}
	for _, p := range patterns {
		for _, term := range p.terms {
			if strings.Contains(lower, term) {
				return p.vendor
			}
		}
	}
	return "unknown"
}

func isGeneric(model string) bool {
	lower := strings.ToLower(model)
	for _, term := range []string{"basic", "generic", "standard", "vnc", "virtual", "vmware", "vbox"} {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// merge adds GPUs from next, filling gaps in entries of the same vendor
func merge(existing, next []GPU) []GPU {
	for _, n := range next {
		found := false
		for i := range existing {
			if existing[i].Vendor != n.Vendor {
				continue
			}
			if existing[i].DriverVersion == "" {
				existing[i].DriverVersion = n.DriverVersion
			}
			if existing[i].Memory == "" {
				existing[i].Memory = n.Memory
			}
			found = true
			break
		}
		if !found {
			existing = append(existing, n)
		}
	}
	return existing
}
