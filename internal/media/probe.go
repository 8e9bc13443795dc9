// Package media wraps the ffmpeg tooling used to probe and slice audio.
package media

import (
	"encoding/json"
	"os/exec"
	"strconv"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns the length of an audio or video file in seconds.
func Duration(path string) (float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to probe %s", path)
	}

	var result probeResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return 0, errors.Wrap(err, "failed to parse probe output")
	}

	dur, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration %q", result.Format.Duration)
	}
	if dur <= 0 {
		return 0, errors.Errorf("%s has non-positive duration %.3f", path, dur)
	}
	return dur, nil
}

// EnsureTools verifies ffmpeg and ffprobe are on PATH before any work
// starts, so a missing install fails fast instead of mid-render.
func EnsureTools() error {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			return errors.Errorf("%s not found in PATH, install ffmpeg first", tool)
		}
	}
	return nil
}
