// Package pipeline orchestrates a full karaoke run: read or transcribe the
// narration, synthesize audio when needed, chunk, align, and optionally
// render the video.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/karatext/karatext/internal/align"
	"github.com/karatext/karatext/internal/config"
	"github.com/karatext/karatext/internal/media"
	"github.com/karatext/karatext/internal/models"
	"github.com/karatext/karatext/internal/render"
	"github.com/karatext/karatext/internal/segment"
	"github.com/karatext/karatext/internal/speech"
	"github.com/karatext/karatext/internal/textio"
)

// Pipeline holds one run's inputs. OutputPath empty means no video is
// rendered, only chunks and timings are produced.
type Pipeline struct {
	Settings   config.Settings
	TextPath   string
	AudioPath  string
	OutputPath string
	// Progress receives step events; nil is fine.
	Progress func(Event)
}

// Result is everything a run produced.
type Result struct {
	Text      string                `json:"text"`
	AudioPath string                `json:"audio_path"`
	Chunks    []string              `json:"chunks"`
	Timings   []models.TimedChunk   `json:"timings"`
	Styles    map[string]string     `json:"styles,omitempty"`
	Chapters  []models.ChapterRange `json:"chapters,omitempty"`
	VideoPath string                `json:"video_path,omitempty"`
	Duration  float64               `json:"duration"`
}

func (p *Pipeline) report(step Step, progress float64, message string) {
	if p.Progress != nil {
		p.Progress(Event{Step: step, Progress: progress, Message: message})
	}
}

// progressFunc adapts the event channel to the callback shape the speech
// and render packages report through.
func (p *Pipeline) progressFunc() func(step string, progress float64, message string) {
	return func(step string, progress float64, message string) {
		p.report(Step(step), progress, message)
	}
}

// Validate checks the run's inputs before any processing starts, so missing
// files fail fast.
func (p *Pipeline) Validate() error {
	switch p.Settings.InputMode {
	case config.ModeText:
		if p.TextPath == "" {
			return errors.New("text mode requires a text file")
		}
	case config.ModeAudio:
		if p.AudioPath == "" {
			return errors.New("audio mode requires an audio file")
		}
	case config.ModeTextAndAudio:
		if p.TextPath == "" || p.AudioPath == "" {
			return errors.New("text_and_audio mode requires both a text and an audio file")
		}
	default:
		return errors.Errorf("unknown input mode %q", p.Settings.InputMode)
	}

	for _, path := range []string{p.TextPath, p.AudioPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return errors.Wrapf(err, "input file not found: %s", path)
		}
	}
	return p.Settings.Validate()
}

// Run executes the pipeline. Long inputs are partitioned into independently
// synthesized or transcribed segments; the rest of the run never notices.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	t0 := time.Now()

	var (
		doc         *textio.Document
		text        string
		audioPath   string
		engineWords []models.TimedWord
		err         error
	)

	switch p.Settings.InputMode {
	case config.ModeText:
		doc, err = p.readText()
		if err != nil {
			return nil, err
		}
		text = doc.Text
		audioPath = p.generatedAudioPath()
		engineWords, err = p.synthesize(ctx, text, doc.Chapters, audioPath)
		if err != nil {
			return nil, err
		}

	case config.ModeAudio:
		audioPath = p.AudioPath
		text, engineWords, err = p.transcribe(ctx, audioPath)
		if err != nil {
			return nil, err
		}

	case config.ModeTextAndAudio:
		doc, err = p.readText()
		if err != nil {
			return nil, err
		}
		text = doc.Text
		audioPath = p.AudioPath
	}

	// Single-pass text and text+audio modes still need word timestamps
	// from the finished audio.
	if engineWords == nil {
		p.report(StepAlign, 0.0, "Aligning words to audio...")
		tr, err := speech.Transcribe(ctx, audioPath)
		if err != nil {
			return nil, err
		}
		engineWords = tr.Words
		p.report(StepAlign, 1.0, fmt.Sprintf("Aligned %d words", len(engineWords)))
	}

	p.report(StepChunk, 0.0, "Building display chunks...")
	var chunks []string
	var chapterRanges []models.ChapterRange
	if doc != nil && len(doc.Chapters) > 0 {
		chunks, chapterRanges = segment.ChunkChapters(doc.Chapters, p.Settings.MaxWordsPerChunk)
	} else {
		chunks = segment.Chunk(text, p.Settings.MaxWordsPerChunk)
	}
	timings := align.MapToChunks(chunks, engineWords)
	p.report(StepChunk, 1.0, fmt.Sprintf("Created %d chunks", len(chunks)))

	duration, err := media.Duration(audioPath)
	if err != nil {
		return nil, err
	}

	videoPath := ""
	if p.OutputPath != "" {
		if err := p.renderVideo(timings, audioPath, styles(doc)); err != nil {
			return nil, err
		}
		videoPath = p.OutputPath
	}

	p.report(StepDone, 1.0, fmt.Sprintf("Pipeline complete in %.1fs", time.Since(t0).Seconds()))

	return &Result{
		Text:      text,
		AudioPath: audioPath,
		Chunks:    chunks,
		Timings:   timings,
		Styles:    styles(doc),
		Chapters:  resolveChapterTimes(chapterRanges, timings, duration),
		VideoPath: videoPath,
		Duration:  duration,
	}, nil
}

func (p *Pipeline) readText() (*textio.Document, error) {
	p.report(StepReadText, 0.0, "Reading text file...")
	doc, err := textio.Read(p.TextPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read input text")
	}
	words := len(strings.Fields(doc.Text))
	p.report(StepReadText, 1.0, fmt.Sprintf("Read %d words", words))
	return doc, nil
}

// generatedAudioPath places TTS output next to the video, or next to the
// text file when no video is requested.
func (p *Pipeline) generatedAudioPath() string {
	dir := filepath.Dir(p.TextPath)
	if p.OutputPath != "" {
		dir = filepath.Dir(p.OutputPath)
	}
	return filepath.Join(dir, "audio.mp3")
}

// synthesize produces narration audio. Long texts are partitioned and come
// back with their word timestamps already on one timeline; short texts
// return nil words and are aligned from the finished audio afterwards.
func (p *Pipeline) synthesize(ctx context.Context, text string, chapters []models.Chapter, audioPath string) ([]models.TimedWord, error) {
	wordCount := len(strings.Fields(text))
	if wordCount > p.Settings.MaxWordsSinglePass {
		log.Printf("[pipeline] %d words exceeds single-pass limit %d, partitioning",
			wordCount, p.Settings.MaxWordsSinglePass)
		segments := speech.SplitLongText(text, chapters, p.Settings.MaxWordsSinglePass)
		return speech.SynthesizeSegments(ctx, segments, p.Settings.Voice, audioPath, p.progressFunc())
	}

	if err := speech.Synthesize(ctx, text, p.Settings.Voice, audioPath, p.progressFunc()); err != nil {
		return nil, err
	}
	return nil, nil
}

// transcribe recovers text and word timestamps from existing audio, slicing
// recordings past the single-pass duration limit.
func (p *Pipeline) transcribe(ctx context.Context, audioPath string) (string, []models.TimedWord, error) {
	p.report(StepTranscribe, 0.0, "Transcribing audio...")

	dur, err := media.Duration(audioPath)
	if err != nil {
		return "", nil, err
	}

	var tr *speech.Transcription
	if dur > p.Settings.MaxAudioSinglePass {
		log.Printf("[pipeline] %.0fs of audio exceeds single-pass limit %.0fs, slicing",
			dur, p.Settings.MaxAudioSinglePass)
		tr, err = speech.TranscribeLong(ctx, audioPath, p.Settings.AudioSliceSeconds, p.progressFunc())
	} else {
		tr, err = speech.Transcribe(ctx, audioPath)
	}
	if err != nil {
		return "", nil, err
	}

	p.report(StepTranscribe, 1.0,
		fmt.Sprintf("Transcribed %d words", len(strings.Fields(tr.Text))))
	return tr.Text, tr.Words, nil
}

func (p *Pipeline) renderVideo(timings []models.TimedChunk, audioPath string, wordStyles map[string]string) error {
	p.report(StepRender, 0.0, "Rendering video...")

	set := p.Settings
	if set.FontSize <= 0 {
		set.FontSize = config.AutoFontSize(set.Width, set.Height)
	}

	layout := &render.Layout{
		Width:       set.Width,
		Height:      set.Height,
		MarginX:     set.MarginX,
		LineSpacing: set.LineSpacing,
		Face:        render.LoadFace(set.FontSize, false),
		Styles:      wordStyles,
	}
	if len(wordStyles) > 0 {
		layout.BoldFace = render.LoadFace(set.FontSize, true)
	}

	assembler := &render.Assembler{
		Settings: set,
		Layout:   layout,
		Progress: p.progressFunc(),
	}

	duration, err := media.Duration(audioPath)
	if err != nil {
		return err
	}
	if err := assembler.Render(timings, audioPath, p.OutputPath, duration); err != nil {
		return err
	}

	p.report(StepRender, 1.0, "Video rendered")
	return nil
}

func styles(doc *textio.Document) map[string]string {
	if doc == nil {
		return nil
	}
	return doc.Styles
}

// resolveChapterTimes fills each chapter range's start and end times from
// the aligned chunk timings. A chapter whose chunks carry no timing falls
// back to 0 and the full duration.
func resolveChapterTimes(ranges []models.ChapterRange, timings []models.TimedChunk, duration float64) []models.ChapterRange {
	if len(ranges) == 0 {
		return nil
	}
	out := make([]models.ChapterRange, len(ranges))
	for i, cr := range ranges {
		cr.StartTime = 0
		cr.EndTime = duration
		if cr.StartChunk < len(timings) && len(timings[cr.StartChunk]) > 0 {
			cr.StartTime = timings[cr.StartChunk].Start()
		}
		if cr.EndChunk < len(timings) && len(timings[cr.EndChunk]) > 0 {
			cr.EndTime = timings[cr.EndChunk].End()
		}
		out[i] = cr
	}
	return out
}
