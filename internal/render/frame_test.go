package render

import (
	"image"
	"math"
	"testing"

	"golang.org/x/image/font/basicfont"

	"github.com/karatext/karatext/internal/config"
	"github.com/karatext/karatext/internal/models"
)

func testSettings() config.Settings {
	s := config.Default()
	s.Width = 100
	s.Height = 100
	s.ProgressBarMargin = 10
	s.ProgressBarBottomOffset = 10
	s.ProgressBarHeight = 4
	return s
}

func testLayout(width int) *Layout {
	// The bitmap face has a fixed 7px advance, making widths predictable.
	return &Layout{
		Width:       width,
		Height:      100,
		MarginX:     10,
		LineSpacing: 1.5,
		Face:        basicfont.Face7x13,
	}
}

func timedChunk(start, end float64, words ...string) models.TimedChunk {
	chunk := make(models.TimedChunk, len(words))
	step := (end - start) / float64(len(words))
	for i, w := range words {
		chunk[i] = models.TimedWord{
			Word:  w,
			Start: start + float64(i)*step,
			End:   start + float64(i+1)*step,
		}
	}
	return chunk
}

func TestWordStateAt(t *testing.T) {
	tests := []struct {
		t    float64
		want WordState
	}{
		{0.0, Upcoming},
		{0.99, Upcoming},
		{1.0, Active},
		{1.49, Active},
		{1.5, Spoken}, // end boundary belongs to the next word
		{9.0, Spoken},
	}
	for _, tt := range tests {
		if got := WordStateAt(tt.t, 1.0, 1.5); got != tt.want {
			t.Errorf("WordStateAt(%.2f) = %d, want %d", tt.t, got, tt.want)
		}
	}
}

func TestStateAt_GapBetweenChunks(t *testing.T) {
	comp := NewCompositor(testSettings(), testLayout(100))
	chunks := []models.TimedChunk{
		timedChunk(0, 1, "one"),
		timedChunk(2, 3, "two"),
	}

	// 1.5 is past chunk 0's post-roll (1.3) and before chunk 1's
	// pre-roll window (1.7): nothing on screen.
	state := comp.StateAt(1.5, 4.0, chunks)
	if state.ActiveChunk != -1 {
		t.Errorf("expected no active chunk at 1.5, got %d", state.ActiveChunk)
	}
	if state.Progress != 1.5/4.0 {
		t.Errorf("progress = %f, want %f", state.Progress, 1.5/4.0)
	}
}

func TestStateAt_FadeRamps(t *testing.T) {
	comp := NewCompositor(testSettings(), testLayout(100))
	chunks := []models.TimedChunk{
		timedChunk(0, 1, "one"),
		timedChunk(2, 3, "two"),
	}

	tests := []struct {
		name      string
		t         float64
		wantChunk int
		wantAlpha float64
	}{
		{"steady state", 0.5, 0, 1.0},
		{"fading out", 1.2, 0, 1.0 - 0.2/0.3},
		{"fading in", 1.8, 1, 1.0 - 0.2/0.3},
		{"final chunk long post-roll", 3.5, 1, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := comp.StateAt(tt.t, 4.0, chunks)
			if state.ActiveChunk != tt.wantChunk {
				t.Fatalf("active chunk = %d, want %d", state.ActiveChunk, tt.wantChunk)
			}
			if math.Abs(state.FadeAlpha-tt.wantAlpha) > 1e-6 {
				t.Errorf("fade alpha = %f, want %f", state.FadeAlpha, tt.wantAlpha)
			}
		})
	}
}

func TestStateAt_OverlapEarliestWins(t *testing.T) {
	comp := NewCompositor(testSettings(), testLayout(100))
	chunks := []models.TimedChunk{
		timedChunk(0, 1, "one"),
		timedChunk(1.1, 2, "two"),
	}

	// Both windows cover 0.9; the earlier chunk keeps the screen.
	state := comp.StateAt(0.9, 2.0, chunks)
	if state.ActiveChunk != 0 {
		t.Errorf("active chunk = %d, want 0", state.ActiveChunk)
	}
	if state.FadeAlpha != 1.0 {
		t.Errorf("fade alpha = %f, want 1.0", state.FadeAlpha)
	}
}

func TestStateAt_ProgressClamped(t *testing.T) {
	comp := NewCompositor(testSettings(), testLayout(100))
	state := comp.StateAt(5.0, 4.0, nil)
	if state.Progress != 1.0 {
		t.Errorf("progress = %f, want clamped to 1.0", state.Progress)
	}
}

func TestLayoutLines_Wrap(t *testing.T) {
	l := testLayout(100) // 80px of text area, 21px words, 7px spaces

	lines := l.Lines([]string{"aaa", "bbb", "ccc", "ddd", "eee"})

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(lines), lines)
	}
	if len(lines[0]) != 3 || len(lines[1]) != 2 {
		t.Errorf("line sizes %d/%d, want 3/2", len(lines[0]), len(lines[1]))
	}
	// Offsets within the line: 0, 28, 56.
	wantX := []int{0, 28, 56}
	for i, p := range lines[0] {
		if p.X != wantX[i] {
			t.Errorf("word %d at x=%d, want %d", i, p.X, wantX[i])
		}
	}
	if lines[1][0].Index != 3 {
		t.Errorf("second line starts at index %d, want 3", lines[1][0].Index)
	}
}

func TestLayoutLines_OversizedWord(t *testing.T) {
	l := testLayout(40) // 20px of text area, narrower than any 3-char word

	lines := l.Lines([]string{"aaa", "bbb"})

	if len(lines) != 2 {
		t.Fatalf("oversized words must each get a line, got %d", len(lines))
	}
}

func TestDraw_GapFrameHasBarOnly(t *testing.T) {
	set := testSettings()
	comp := NewCompositor(set, testLayout(100))
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	comp.Draw(img, []models.TimedChunk{timedChunk(0, 1, "x")},
		FrameState{ActiveChunk: -1, FadeAlpha: 1, Progress: 0.5}, 5.0)

	bg := config.MustRGBA(set.BGColor)
	if got := img.RGBAAt(1, 1); got != bg {
		t.Errorf("corner pixel = %v, want background %v", got, bg)
	}

	// Bar spans x=[10,90) at y=90; fill covers the first half.
	fg := config.MustRGBA(set.ProgressFGColor)
	pbg := config.MustRGBA(set.ProgressBGColor)
	if got := img.RGBAAt(30, 91); got != fg {
		t.Errorf("filled bar pixel = %v, want %v", got, fg)
	}
	if got := img.RGBAAt(70, 91); got != pbg {
		t.Errorf("unfilled bar pixel = %v, want %v", got, pbg)
	}
}

func TestScaleColor(t *testing.T) {
	c := scaleColor(config.MustRGBA("#FFD700"), 0.5)
	if c.R != 127 || c.G != 107 || c.B != 0 || c.A != 255 {
		t.Errorf("unexpected scaled color %v", c)
	}
}
