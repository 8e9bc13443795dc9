package export

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/karatext/karatext/internal/config"
	"github.com/karatext/karatext/internal/models"
	"github.com/karatext/karatext/internal/render"
)

// Thumbnail renders the first non-empty chunk as a static preview image
// with its first word highlighted.
func Thumbnail(chunks []models.TimedChunk, settings config.Settings, layout *render.Layout, outputPath string) error {
	comp := render.NewCompositor(settings, layout)
	img := image.NewRGBA(image.Rect(0, 0, settings.Width, settings.Height))

	state := render.FrameState{ActiveChunk: -1, FadeAlpha: 1}
	t := 0.0
	for i, chunk := range chunks {
		if len(chunk) > 0 {
			state.ActiveChunk = i
			t = chunk.Start()
			break
		}
	}
	comp.Draw(img, chunks, state, t)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return f.Close()
}
