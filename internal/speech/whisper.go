package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/karatext/karatext/internal/models"
)

// Transcription is one whisper run: the full text plus per-word timestamps.
type Transcription struct {
	Text  string
	Words []models.TimedWord
}

type whisperOutput struct {
	Text     string `json:"text"`
	Segments []struct {
		Words []struct {
			Word  string  `json:"word"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"words"`
	} `json:"segments"`
}

// Transcribe runs whisper with word timestamps enabled. An empty word list
// is fatal: alignment cannot proceed without at least one timestamp.
func Transcribe(ctx context.Context, audioPath string) (*Transcription, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, errors.Wrapf(err, "audio file not found: %s", audioPath)
	}

	outDir, err := os.MkdirTemp("", "karatext_whisper_")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create whisper output directory")
	}
	defer os.RemoveAll(outDir)

	log.Printf("[align] transcribing %s with whisper for word-level timestamps", audioPath)

	cmd := exec.CommandContext(ctx, "whisper", audioPath,
		"--model", "turbo",
		"--word_timestamps", "True",
		"--output_format", "json",
		"--output_dir", outDir,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "whisper failed: %s", strings.TrimSpace(stderr.String()))
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, stem+".json"))
	if err != nil {
		return nil, errors.Wrap(err, "whisper produced no output")
	}

	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "failed to parse whisper output")
	}

	var words []models.TimedWord
	for _, seg := range out.Segments {
		for _, w := range seg.Words {
			words = append(words, models.TimedWord{
				Word:  strings.TrimSpace(w.Word),
				Start: w.Start,
				End:   w.End,
			})
		}
	}
	if len(words) == 0 {
		return nil, errors.New("whisper returned no word-level timestamps, " +
			"ensure the audio file is valid and contains speech")
	}

	log.Printf("[align] got timestamps for %d words, last ends at %.2fs",
		len(words), words[len(words)-1].End)

	return &Transcription{
		Text:  strings.TrimSpace(out.Text),
		Words: words,
	}, nil
}
