package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/karatext/karatext/internal/models"
)

func sampleChunks() []models.TimedChunk {
	return []models.TimedChunk{
		{
			{Word: "Hello", Start: 0.0, End: 0.4},
			{Word: "world.", Start: 0.4, End: 1.0},
		},
		{}, // empty chunks are skipped, not numbered
		{
			{Word: "Goodbye.", Start: 61.25, End: 62.0},
		},
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds float64
		sep     byte
		want    string
	}{
		{0, ',', "00:00:00,000"},
		{61.25, ',', "00:01:01,250"},
		{3661.5, '.', "01:01:01.500"},
		{-2.0, ',', "00:00:00,000"},
		{0.9996, '.', "00:00:01.000"},
	}
	for _, tt := range tests {
		if got := formatTime(tt.seconds, tt.sep); got != tt.want {
			t.Errorf("formatTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestSRT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs", "out.srt")
	if err := SRT(sampleChunks(), path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)

	want := "1\n00:00:00,000 --> 00:00:01,000\nHello world.\n\n" +
		"2\n00:01:01,250 --> 00:01:02,000\nGoodbye.\n"
	if got != want {
		t.Errorf("SRT content:\n%q\nwant:\n%q", got, want)
	}
}

func TestVTT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.vtt")
	if err := VTT(sampleChunks(), path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)

	if !strings.HasPrefix(got, "WEBVTT\n\n") {
		t.Errorf("missing WEBVTT header: %q", got)
	}
	if !strings.Contains(got, "00:00:00.000 --> 00:00:01.000") {
		t.Errorf("missing cue timing line: %q", got)
	}
	// Inline word cues carry each word's own start time.
	if !strings.Contains(got, "<00:00:00.000>Hello<00:00:00.400>world.") {
		t.Errorf("missing inline word timestamps: %q", got)
	}
	if strings.Contains(got, "3\n") {
		t.Errorf("empty chunk should not produce a cue: %q", got)
	}
}
