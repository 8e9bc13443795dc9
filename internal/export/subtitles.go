// Package export writes subtitle files and thumbnails from timed chunks.
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/karatext/karatext/internal/models"
)

// formatTime renders seconds as HH:MM:SS<sep>mmm. Negative or NaN times
// clamp to zero.
func formatTime(seconds float64, sep byte) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	ms := int(math.Round((seconds - float64(whole)) * 1000))
	if ms == 1000 {
		whole++
		ms = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d%c%03d",
		whole/3600, (whole%3600)/60, whole%60, sep, ms)
}

// SRT writes SubRip subtitles, one cue per chunk spanning the first word's
// start to the last word's end.
func SRT(chunks []models.TimedChunk, outputPath string) error {
	var b strings.Builder
	n := 0
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			n,
			formatTime(chunk.Start(), ','),
			formatTime(chunk.End(), ','),
			chunk.Text(),
		)
	}
	return writeFile(outputPath, strings.TrimSuffix(b.String(), "\n"))
}

// VTT writes WebVTT subtitles with inline per-word timestamps, so players
// that support cue timing can highlight words karaoke-style.
func VTT(chunks []models.TimedChunk, outputPath string) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")

	n := 0
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d\n%s --> %s\n",
			n,
			formatTime(chunk.Start(), '.'),
			formatTime(chunk.End(), '.'),
		)
		for _, w := range chunk {
			fmt.Fprintf(&b, "<%s>%s", formatTime(w.Start, '.'), w.Word)
		}
		b.WriteString("\n\n")
	}
	return writeFile(outputPath, strings.TrimSuffix(b.String(), "\n"))
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create subtitle directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
