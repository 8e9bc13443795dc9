// Package speech drives the external speech tools: edge-tts for synthesis
// and whisper for transcription and word timestamps.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ProgressFunc receives step progress: step name, fraction 0..1, message.
type ProgressFunc func(step string, progress float64, message string)

// voiceMap resolves friendly names to edge-tts voice IDs.
var voiceMap = map[string]string{
	"andrew":      "en-US-AndrewNeural",
	"ava":         "en-US-AvaNeural",
	"brian":       "en-US-BrianNeural",
	"christopher": "en-US-ChristopherNeural",
	"emma":        "en-US-EmmaNeural",
	"eric":        "en-US-EricNeural",
	"guy":         "en-US-GuyNeural",
	"jenny":       "en-US-JennyNeural",
	"roger":       "en-US-RogerNeural",
	"steffan":     "en-US-SteffanNeural",
}

const (
	defaultVoice = "andrew"

	// Long texts are synthesized in pieces of roughly this many characters
	// so the engine stays responsive and progress is reportable.
	ttsChunkChars = 4000

	maxRetries = 3
)

// Voices lists the friendly voice names.
func Voices() []string {
	names := make([]string, 0, len(voiceMap))
	for name := range voiceMap {
		names = append(names, name)
	}
	return names
}

// ResolveVoice maps a friendly name to its engine voice ID. Full engine IDs
// pass through; anything unrecognized falls back to the default voice.
func ResolveVoice(voice string) string {
	if id, ok := voiceMap[strings.ToLower(strings.TrimSpace(voice))]; ok {
		return id
	}
	if strings.Contains(voice, "-") && strings.Contains(voice, "Neural") {
		return voice
	}
	return voiceMap[defaultVoice]
}

// Synthesize generates narration audio for text, writing MP3 to outputPath.
// Texts beyond the chunk size are synthesized in sentence-boundary pieces
// and binary-concatenated.
func Synthesize(ctx context.Context, text, voice, outputPath string, progress ProgressFunc) error {
	voiceID := ResolveVoice(voice)
	pieces := splitByChars(text, ttsChunkChars)

	log.Printf("[tts] generating speech, voice=%s, %d chars, %d piece(s)",
		voiceID, len(text), len(pieces))
	report(progress, "tts", 0.0, fmt.Sprintf("Generating speech (%s)...", voice))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create audio directory")
	}

	if len(pieces) == 1 {
		if err := synthesizeOne(ctx, pieces[0], voiceID, outputPath); err != nil {
			return err
		}
	} else {
		tempDir, err := os.MkdirTemp("", "karatext_tts_")
		if err != nil {
			return errors.Wrap(err, "failed to create tts temp directory")
		}
		defer os.RemoveAll(tempDir)

		segPaths := make([]string, 0, len(pieces))
		for i, piece := range pieces {
			log.Printf("[tts] piece %d/%d (%d chars)", i+1, len(pieces), len(piece))
			report(progress, "tts", float64(i)/float64(len(pieces)),
				fmt.Sprintf("Generating speech (%d/%d)...", i+1, len(pieces)))

			segPath := filepath.Join(tempDir, fmt.Sprintf("seg_%03d.mp3", i))
			if err := synthesizeOne(ctx, piece, voiceID, segPath); err != nil {
				return err
			}
			segPaths = append(segPaths, segPath)
		}
		if err := ConcatMP3(segPaths, outputPath); err != nil {
			return err
		}
	}

	if info, err := os.Stat(outputPath); err == nil {
		log.Printf("[tts] audio saved to %s (%.1f KB)", outputPath, float64(info.Size())/1024)
	}
	report(progress, "tts", 1.0, "Speech generated")
	return nil
}

// synthesizeOne runs edge-tts for a single piece, retrying transient
// failures with linear backoff.
func synthesizeOne(ctx context.Context, text, voiceID, outputPath string) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		cmd := exec.CommandContext(ctx, "edge-tts",
			"--voice", voiceID,
			"--text", text,
			"--write-media", outputPath,
		)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			lastErr = errors.Wrapf(err, "edge-tts failed: %s", strings.TrimSpace(stderr.String()))
			if attempt < maxRetries {
				wait := time.Duration(attempt) * 2 * time.Second
				log.Printf("[tts] attempt %d failed (%v), retrying in %s", attempt, err, wait)
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue
		}
		return nil
	}
	return lastErr
}

// ConcatMP3 binary-appends MP3 files into one. MP3 frames are
// self-synchronizing, so plain concatenation yields a valid stream.
func ConcatMP3(segmentPaths []string, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return errors.Wrap(err, "failed to create concatenated audio")
	}
	defer out.Close()

	for _, p := range segmentPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return errors.Wrapf(err, "failed to read segment %s", p)
		}
		if _, err := out.Write(data); err != nil {
			return errors.Wrap(err, "failed to append segment")
		}
	}
	log.Printf("[tts] concatenated %d segments -> %s", len(segmentPaths), outputPath)
	return out.Close()
}

// splitByChars splits text at sentence boundaries into pieces under
// maxChars. Sentences longer than the limit fall back to word boundaries.
func splitByChars(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}

	var pieces []string
	current := ""
	push := func() {
		if s := strings.TrimSpace(current); s != "" {
			pieces = append(pieces, s)
		}
		current = ""
	}

	for _, sentence := range splitTerminals(text) {
		switch {
		case len(sentence) > maxChars:
			push()
			for _, word := range strings.Fields(sentence) {
				if len(current)+len(word)+1 > maxChars {
					push()
					current = word
				} else if current == "" {
					current = word
				} else {
					current += " " + word
				}
			}
		case len(current)+len(sentence)+1 > maxChars:
			push()
			current = sentence
		case current == "":
			current = sentence
		default:
			current += " " + sentence
		}
	}
	push()
	return pieces
}

// splitTerminals breaks text after .!? followed by whitespace.
func splitTerminals(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		if (text[i] == '.' || text[i] == '!' || text[i] == '?') &&
			(text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t') {
			out = append(out, strings.TrimSpace(text[start:i+1]))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func report(progress ProgressFunc, step string, fraction float64, message string) {
	if progress != nil {
		progress(step, fraction, message)
	}
}
