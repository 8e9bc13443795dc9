package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/karatext/karatext/internal/config"
	"github.com/karatext/karatext/internal/models"
)

// WordState is where a word sits relative to playback time.
type WordState int

const (
	Upcoming WordState = iota
	Active
	Spoken
)

// WordStateAt classifies a word at time t. The active interval is
// half-open, so a word whose end equals the next word's start never
// highlights twice.
func WordStateAt(t, start, end float64) WordState {
	switch {
	case t < start:
		return Upcoming
	case t < end:
		return Active
	default:
		return Spoken
	}
}

// FrameState is everything time-dependent about a single frame.
type FrameState struct {
	// ActiveChunk is the index of the chunk on screen, or -1 between
	// chunks and outside the narration.
	ActiveChunk int
	// FadeAlpha scales text brightness during chunk transitions, 0..1.
	FadeAlpha float64
	// Progress is overall playback position, 0..1.
	Progress float64
}

// Compositor draws karaoke frames for one render configuration.
type Compositor struct {
	settings config.Settings
	layout   *Layout

	bg         color.RGBA
	highlight  color.RGBA
	spoken     color.RGBA
	upcoming   color.RGBA
	progressBG color.RGBA
	progressFG color.RGBA
}

func NewCompositor(settings config.Settings, layout *Layout) *Compositor {
	return &Compositor{
		settings:   settings,
		layout:     layout,
		bg:         config.MustRGBA(settings.BGColor),
		highlight:  config.MustRGBA(settings.HighlightColor),
		spoken:     config.MustRGBA(settings.SpokenColor),
		upcoming:   config.MustRGBA(settings.UpcomingColor),
		progressBG: config.MustRGBA(settings.ProgressBGColor),
		progressFG: config.MustRGBA(settings.ProgressFGColor),
	}
}

// StateAt resolves the frame state at time t. Each chunk is visible from
// pre-roll before its first word to post-roll after its last; when windows
// overlap, the earliest chunk wins so transitions stay in reading order.
func (c *Compositor) StateAt(t, totalDuration float64, chunks []models.TimedChunk) FrameState {
	state := FrameState{ActiveChunk: -1, FadeAlpha: 1.0}
	if totalDuration > 0 {
		state.Progress = t / totalDuration
		if state.Progress > 1 {
			state.Progress = 1
		}
	}

	for i, chunk := range chunks {
		cs, ce := chunk.Start(), chunk.End()
		postRoll := c.settings.PostRoll
		if i == len(chunks)-1 {
			postRoll = c.settings.LastPostRoll
		}
		if t < cs-c.settings.PreRoll || t > ce+postRoll {
			continue
		}

		state.ActiveChunk = i
		switch {
		case t < cs:
			state.FadeAlpha = clampAlpha(1.0 - (cs-t)/c.settings.PreRoll)
		case t > ce:
			state.FadeAlpha = clampAlpha(1.0 - (t-ce)/postRoll)
		}
		break
	}
	return state
}

func clampAlpha(a float64) float64 {
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

// Draw renders a full frame: background, the active chunk's words colored
// by state, and the progress bar. Gap frames get background and bar only.
func (c *Compositor) Draw(img *image.RGBA, chunks []models.TimedChunk, state FrameState, t float64) {
	fillRect(img, img.Bounds(), c.bg)

	if state.ActiveChunk >= 0 {
		c.drawChunk(img, chunks[state.ActiveChunk], state.FadeAlpha, t)
	}
	c.drawProgressBar(img, state.Progress)
}

func (c *Compositor) drawChunk(img *image.RGBA, chunk models.TimedChunk, fadeAlpha, t float64) {
	words := make([]string, len(chunk))
	for i, w := range chunk {
		words[i] = w.Word
	}

	lines := c.layout.Lines(words)
	y := c.layout.VerticalOffset(lines)
	lineH := c.layout.LineHeight()
	ascent := c.layout.Face.Metrics().Ascent.Ceil()

	for _, line := range lines {
		xOffset := (c.settings.Width - c.layout.LineWidth(line)) / 2

		for _, p := range line {
			var col color.RGBA
			switch WordStateAt(t, chunk[p.Index].Start, chunk[p.Index].End) {
			case Active:
				col = c.highlight
			case Spoken:
				col = c.spoken
			default:
				col = c.upcoming
			}
			if fadeAlpha < 1.0 {
				col = scaleColor(col, fadeAlpha)
			}

			d := font.Drawer{
				Dst:  img,
				Src:  image.NewUniform(col),
				Face: c.layout.faceFor(p.Word),
				Dot:  fixed.P(xOffset+p.X, y+ascent),
			}
			d.DrawString(p.Word)
		}
		y += lineH
	}
}

func (c *Compositor) drawProgressBar(img *image.RGBA, progress float64) {
	barY := c.settings.Height - c.settings.ProgressBarBottomOffset
	barW := c.settings.Width - 2*c.settings.ProgressBarMargin
	left := c.settings.ProgressBarMargin

	fillRect(img, image.Rect(left, barY, left+barW, barY+c.settings.ProgressBarHeight), c.progressBG)

	fillW := int(float64(barW) * progress)
	if fillW > 0 {
		fillRect(img, image.Rect(left, barY, left+fillW, barY+c.settings.ProgressBarHeight), c.progressFG)
	}
}

// scaleColor dims toward the background for fade transitions.
func scaleColor(c color.RGBA, alpha float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * alpha),
		G: uint8(float64(c.G) * alpha),
		B: uint8(float64(c.B) * alpha),
		A: c.A,
	}
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}
