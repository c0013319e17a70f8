package extractor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ExtractFrame pulls the frame at index (zero based) out of videoPath and
// writes it as frame_NNNN.jpg in outputDir, numbered from one. It returns the
// path of the written image.
func ExtractFrame(ctx context.Context, videoPath, outputDir string, index int) (string, error) {
	// Check if video file exists
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return "", fmt.Errorf("video file does not exist at path: '%s'", videoPath)
	}
	if index < 0 {
		return "", fmt.Errorf("invalid frame index %d", index)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory '%s': %v", outputDir, err)
	}

	framePath := filepath.Join(outputDir, fmt.Sprintf("frame_%04d.jpg", index+1))

	ffmpegCommand := exec.CommandContext(ctx,
		"ffmpeg",
		"-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf(`select=eq(n\,%d)`, index),
		"-vframes", "1",
		framePath,
	)

	// Capture output for better error reporting
	output, err := ffmpegCommand.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, string(output))
	}

	// ffmpeg exits cleanly when the index is past the last frame
	if _, err := os.Stat(framePath); err != nil {
		return "", fmt.Errorf("frame %d not found in '%s'", index, videoPath)
	}

	return framePath, nil
}
