package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/karatext/karatext/internal/config"
	"github.com/karatext/karatext/internal/models"
)

// ProgressFunc receives pipeline step progress: step name, fraction 0..1
// and a human-readable message.
type ProgressFunc func(step string, progress float64, message string)

// How often the frame loop reports progress, in frames.
const progressEvery = 30

// Assembler renders every frame of a karaoke video and muxes them with the
// narration audio through ffmpeg.
type Assembler struct {
	Settings config.Settings
	Layout   *Layout
	Progress ProgressFunc
}

func (a *Assembler) report(step string, progress float64, message string) {
	if a.Progress != nil {
		a.Progress(step, progress, message)
	}
}

// Render writes the finished video to outputPath. Frames are staged as PNGs
// in an exclusive temp directory that is removed on every exit path; the
// output is truncated to the audio duration.
func (a *Assembler) Render(chunks []models.TimedChunk, audioPath, outputPath string, audioDuration float64) error {
	set := a.Settings
	totalFrames := int(audioDuration * float64(set.FPS))
	if totalFrames <= 0 {
		return errors.Errorf("audio duration %.2fs yields no frames at %dfps", audioDuration, set.FPS)
	}

	log.Printf("[render] video: %dx%d @ %dfps", set.Width, set.Height, set.FPS)
	log.Printf("[render] audio duration: %.2fs, total frames: %d, chunks: %d",
		audioDuration, totalFrames, len(chunks))

	tempDir, err := os.MkdirTemp("", "karatext_frames_")
	if err != nil {
		return errors.Wrap(err, "failed to create frames directory")
	}
	defer os.RemoveAll(tempDir)

	comp := NewCompositor(set, a.Layout)
	img := image.NewRGBA(image.Rect(0, 0, set.Width, set.Height))
	lastPercent := -1

	for frame := 0; frame < totalFrames; frame++ {
		t := float64(frame) / float64(set.FPS)
		state := comp.StateAt(t, audioDuration, chunks)
		comp.Draw(img, chunks, state, t)

		framePath := filepath.Join(tempDir, fmt.Sprintf("frame_%06d.png", frame))
		if err := writePNG(framePath, img); err != nil {
			return errors.Wrapf(err, "failed to write frame %d", frame)
		}

		percent := (frame + 1) * 100 / totalFrames
		if percent != lastPercent && percent%5 == 0 {
			log.Printf("[render] %d%% (%d/%d frames)", percent, frame+1, totalFrames)
			lastPercent = percent
		}
		if frame%progressEvery == 0 {
			a.report("rendering", float64(frame)/float64(totalFrames),
				fmt.Sprintf("Rendering frame %d/%d", frame, totalFrames))
		}
	}

	log.Printf("[render] all frames rendered, assembling video")
	a.report("rendering", 0.95, "Assembling video with ffmpeg...")

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	if err := mux(tempDir, audioPath, outputPath, set.FPS, audioDuration); err != nil {
		return err
	}

	if info, err := os.Stat(outputPath); err == nil {
		log.Printf("[render] video saved to %s (%.1f MB)", outputPath, float64(info.Size())/(1024*1024))
	}
	a.report("rendering", 1.0, "Video rendering complete")
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// mux encodes the frame sequence with the audio track. The explicit output
// duration keeps the video from outrunning the audio when frame count
// rounds up.
func mux(framesDir, audioPath, outputPath string, fps int, duration float64) error {
	frames := ffmpeg.Input(filepath.Join(framesDir, "frame_%06d.png"), ffmpeg.KwArgs{
		"framerate": fps,
	})
	audio := ffmpeg.Input(audioPath)

	cmd := ffmpeg.Output([]*ffmpeg.Stream{frames, audio}, outputPath, ffmpeg.KwArgs{
		"c:v":     "libx264",
		"preset":  "medium",
		"crf":     "23",
		"pix_fmt": "yuv420p",
		"c:a":     "aac",
		"b:a":     "192k",
		"t":       fmt.Sprintf("%.3f", duration),
	}).OverWriteOutput().Compile()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "ffmpeg mux failed: %s", tail(stderr.String(), 2000))
	}
	return nil
}

// tail keeps the end of ffmpeg's stderr, where the actual error lives.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
