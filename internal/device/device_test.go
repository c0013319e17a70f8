package device

import (
	"context"
	"errors"
	"testing"
)

const lspciOutput = `00:02.0 VGA compatible controller: Intel Corporation UHD Graphics 630
01:00.0 3D controller: NVIDIA Corporation GA102GL [A10] (rev a1)
02:00.0 VGA compatible controller: VMware SVGA II Adapter
`

func fakeDetector(goos string, outputs map[string]string, files map[string]string) *Detector {
	d := NewDetector()
	d.goos = goos
	d.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if out, ok := outputs[name]; ok {
			return []byte(out), nil
		}
		return nil, errors.New("executable file not found")
	}
	d.readFile = func(name string) ([]byte, error) {
		if data, ok := files[name]; ok {
			return []byte(data), nil
		}
		return nil, errors.New("no such file")
	}
	return d
}

func TestVendor(t *testing.T) {
	cases := map[string]string{
		"NVIDIA Corporation GA102GL [A10]": "nvidia",
		"GeForce RTX 4090":                 "nvidia",
		"AMD Radeon Pro 5500M":             "amd",
		"Intel Corporation UHD Graphics":   "intel",
		"Apple M2 Max":                     "apple",
		"Matrox G200eR2":                   "unknown",
	}
	for model, want := range cases {
		if got := Vendor(model); got != want {
			t.Errorf("Vendor(%q) = %q, want %q", model, got, want)
		}
	}
}

func TestParseLspciSkipsGeneric(t *testing.T) {
	gpus := parseLspci(lspciOutput)
	if len(gpus) != 2 {
		t.Fatalf("got %d gpus, want 2: %+v", len(gpus), gpus)
	}
	if gpus[0].Vendor != "intel" || gpus[1].Vendor != "nvidia" {
		t.Fatalf("unexpected vendors: %+v", gpus)
	}
}

func TestHasCUDAWithDriver(t *testing.T) {
	d := fakeDetector("linux",
		map[string]string{"lspci": lspciOutput},
		map[string]string{"/proc/driver/nvidia/version": "NVRM version: NVIDIA UNIX x86_64 Kernel Module  535.104.05  Sat Aug 19 01:15:15 UTC 2023\n"},
	)

	if !d.HasCUDA(context.Background()) {
		t.Fatal("expected CUDA to be detected")
	}
}

func TestHasCUDAWithoutDriver(t *testing.T) {
	d := fakeDetector("linux", map[string]string{"lspci": lspciOutput}, nil)

	if d.HasCUDA(context.Background()) {
		t.Fatal("an NVIDIA card without a loaded driver should not count as CUDA")
	}
}

func TestDetectNvidiaSmi(t *testing.T) {
	d := fakeDetector("linux",
		map[string]string{"nvidia-smi": "NVIDIA A10G, 23028 MiB, 535.104.05\n"},
		nil,
	)

	gpus := d.Detect(context.Background())
	if len(gpus) != 1 {
		t.Fatalf("got %d gpus, want 1", len(gpus))
	}
	want := GPU{Vendor: "nvidia", Model: "NVIDIA A10G", Memory: "23028 MiB", DriverVersion: "535.104.05"}
	if gpus[0] != want {
		t.Fatalf("gpu = %+v, want %+v", gpus[0], want)
	}
}

func TestDetectMac(t *testing.T) {
	out := `Graphics/Displays:

    Apple M2 Pro:

      Chipset Model: Apple M2 Pro
      Type: GPU
      Total Number of Cores: 19
`
	d := fakeDetector("darwin", map[string]string{"system_profiler": out}, nil)

	gpus := d.Detect(context.Background())
	if len(gpus) != 1 || gpus[0].Vendor != "apple" {
		t.Fatalf("unexpected result: %+v", gpus)
	}
	if d.HasCUDA(context.Background()) {
		t.Fatal("apple silicon has no CUDA")
	}
}

func TestDetectNothing(t *testing.T) {
	d := fakeDetector("linux", nil, nil)
	if gpus := d.Detect(context.Background()); len(gpus) != 0 {
		t.Fatalf("expected no gpus, got %+v", gpus)
	}
}
