package encoder

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Info describes the first video stream of an encoded file
type Info struct {
	Frames int
	FPS    float64
	Width  int
	Height int
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		NbReadFrames string `json:"nb_read_frames"`
	} `json:"streams"`
}

// Probe reads stream information from path with ffprobe
func (w *Writer) Probe(ctx context.Context, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, w.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_frames",
		"-show_entries", "stream=width,height,r_frame_rate,nb_read_frames",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(data []byte) (Info, error) {
	var p probeOutput
	if err := json.Unmarshal(data, &p); err != nil {
		return Info{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(p.Streams) == 0 {
		return Info{}, fmt.Errorf("no video stream found")
	}

	s := p.Streams[0]
	info := Info{Width: s.Width, Height: s.Height}

	fps, err := parseRate(s.RFrameRate)
	if err != nil {
		return Info{}, err
	}
	info.FPS = fps

	if s.NbReadFrames != "" {
		n, err := strconv.Atoi(s.NbReadFrames)
		if err != nil {
			return Info{}, fmt.Errorf("invalid frame count %q: %w", s.NbReadFrames, err)
		}
		info.Frames = n
	}
	return info, nil
}

// parseRate converts an ffprobe rational like "8/1" to a float
func parseRate(rate string) (float64, error) {
	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q", rate)
	}
	if !found {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid frame rate %q", rate)
	}
	return n / d, nil
}
