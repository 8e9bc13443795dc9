package speech

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/karatext/karatext/internal/media"
	"github.com/karatext/karatext/internal/models"
)

// SplitLongText partitions text for segmented synthesis. Chapter structure
// wins when present; otherwise sentences are grouped into segments of at
// most maxWords words.
func SplitLongText(text string, chapters []models.Chapter, maxWords int) []string {
	if len(chapters) > 0 {
		segments := make([]string, 0, len(chapters))
		for _, ch := range chapters {
			if t := strings.TrimSpace(ch.Text); t != "" {
				segments = append(segments, t)
			}
		}
		return segments
	}

	var segments []string
	var current []string
	count := 0
	for _, sentence := range splitTerminals(text) {
		n := len(strings.Fields(sentence))
		if count > 0 && count+n > maxWords {
			segments = append(segments, strings.Join(current, " "))
			current, count = nil, 0
		}
		current = append(current, sentence)
		count += n
	}
	if len(current) > 0 {
		segments = append(segments, strings.Join(current, " "))
	}
	return segments
}

// SynthesizeSegments runs synthesis and transcription independently per
// segment, then binary-concatenates the audio and shifts each segment's
// word timestamps by the cumulative duration of everything before it. The
// result is one flat monotonic timeline, exactly as if the input had been
// processed in a single pass. Any segment failure aborts the run.
func SynthesizeSegments(ctx context.Context, segments []string, voice, outputPath string, progress ProgressFunc) ([]models.TimedWord, error) {
	tempDir, err := os.MkdirTemp("", "karatext_segments_")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create segments directory")
	}
	defer os.RemoveAll(tempDir)

	var words []models.TimedWord
	segPaths := make([]string, 0, len(segments))
	offset := 0.0

	for i, segText := range segments {
		report(progress, "tts", float64(i)/float64(len(segments)),
			fmt.Sprintf("Processing segment %d/%d...", i+1, len(segments)))
		log.Printf("[tts] segment %d/%d: %d words", i+1, len(segments), len(strings.Fields(segText)))

		segPath := filepath.Join(tempDir, fmt.Sprintf("part_%03d.mp3", i))
		if err := Synthesize(ctx, segText, voice, segPath, nil); err != nil {
			return nil, errors.Wrapf(err, "segment %d synthesis failed", i+1)
		}

		tr, err := Transcribe(ctx, segPath)
		if err != nil {
			return nil, errors.Wrapf(err, "segment %d transcription failed", i+1)
		}
		words = append(words, shiftWords(tr.Words, offset)...)

		dur, err := media.Duration(segPath)
		if err != nil {
			return nil, errors.Wrapf(err, "segment %d duration probe failed", i+1)
		}
		offset += dur
		segPaths = append(segPaths, segPath)
	}

	if err := ConcatMP3(segPaths, outputPath); err != nil {
		return nil, err
	}
	return words, nil
}

// TranscribeLong slices long audio into fixed-duration pieces, transcribes
// each, and stitches the results back onto a single timeline.
func TranscribeLong(ctx context.Context, audioPath string, sliceSeconds float64, progress ProgressFunc) (*Transcription, error) {
	total, err := media.Duration(audioPath)
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "karatext_slices_")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create slices directory")
	}
	defer os.RemoveAll(tempDir)

	numSlices := int(total/sliceSeconds) + 1
	log.Printf("[align] slicing %.1fs of audio into %d pieces of %.0fs", total, numSlices, sliceSeconds)

	var texts []string
	var words []models.TimedWord
	offset := 0.0

	for i := 0; i < numSlices; i++ {
		start := float64(i) * sliceSeconds
		if start >= total {
			break
		}
		report(progress, "alignment", float64(i)/float64(numSlices),
			fmt.Sprintf("Transcribing slice %d/%d...", i+1, numSlices))

		slicePath := filepath.Join(tempDir, fmt.Sprintf("slice_%03d.mp3", i))
		if err := cutAudio(audioPath, slicePath, start, sliceSeconds); err != nil {
			return nil, errors.Wrapf(err, "slice %d extraction failed", i+1)
		}

		tr, err := Transcribe(ctx, slicePath)
		if err != nil {
			return nil, errors.Wrapf(err, "slice %d transcription failed", i+1)
		}
		texts = append(texts, tr.Text)
		words = append(words, shiftWords(tr.Words, offset)...)

		dur, err := media.Duration(slicePath)
		if err != nil {
			return nil, errors.Wrapf(err, "slice %d duration probe failed", i+1)
		}
		offset += dur
	}

	if len(words) == 0 {
		return nil, errors.New("no speech found in any audio slice")
	}
	return &Transcription{
		Text:  strings.Join(texts, " "),
		Words: words,
	}, nil
}

func cutAudio(inputPath, outputPath string, start, duration float64) error {
	cmd := ffmpeg.Input(inputPath, ffmpeg.KwArgs{
		"ss": fmt.Sprintf("%.3f", start),
	}).Output(outputPath, ffmpeg.KwArgs{
		"t": fmt.Sprintf("%.3f", duration),
		"c": "copy",
	}).OverWriteOutput().Compile()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "ffmpeg cut failed: %s", strings.TrimSpace(stderr.String()))
	}
	return nil
}

func shiftWords(words []models.TimedWord, offset float64) []models.TimedWord {
	out := make([]models.TimedWord, len(words))
	for i, w := range words {
		out[i] = models.TimedWord{Word: w.Word, Start: w.Start + offset, End: w.End + offset}
	}
	return out
}
