package render

import (
	"golang.org/x/image/font"

	"github.com/karatext/karatext/internal/align"
)

// Layout wraps chunk words into centered lines that fit the frame.
type Layout struct {
	Width       int
	Height      int
	MarginX     int
	LineSpacing float64

	Face     font.Face
	BoldFace font.Face
	// Styles maps normalized words to "bold", "italic" or "bold-italic";
	// bold variants draw and measure with BoldFace.
	Styles map[string]string
}

// PlacedWord is a word positioned within a line: X is the pixel offset from
// the line's left edge, Index the word's position in the chunk.
type PlacedWord struct {
	Word  string
	X     int
	Index int
}

func (l *Layout) faceFor(word string) font.Face {
	if l.BoldFace == nil || l.Styles == nil {
		return l.Face
	}
	switch l.Styles[align.Normalize(word)] {
	case "bold", "bold-italic":
		return l.BoldFace
	}
	return l.Face
}

// WordWidth measures a word in pixels with the face it will draw with.
func (l *Layout) WordWidth(word string) int {
	return font.MeasureString(l.faceFor(word), word).Ceil()
}

func (l *Layout) spaceWidth() int {
	return font.MeasureString(l.Face, " ").Ceil()
}

// maxTextWidth is the usable width between the horizontal margins.
func (l *Layout) maxTextWidth() int {
	return l.Width - 2*l.MarginX
}

// Lines greedily wraps words into lines no wider than the text area. A word
// wider than the whole area still gets a line of its own.
func (l *Layout) Lines(words []string) [][]PlacedWord {
	var lines [][]PlacedWord
	var current []PlacedWord
	x := 0
	spaceW := l.spaceWidth()
	limit := l.maxTextWidth()

	for i, word := range words {
		w := l.WordWidth(word)

		if len(current) > 0 && x+spaceW+w > limit {
			lines = append(lines, current)
			current = nil
			x = 0
		}
		if len(current) > 0 {
			x += spaceW
		}
		current = append(current, PlacedWord{Word: word, X: x, Index: i})
		x += w
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}
	return lines
}

// LineHeight is the vertical advance between lines, scaled by LineSpacing.
func (l *Layout) LineHeight() int {
	m := l.Face.Metrics()
	return int(float64((m.Ascent + m.Descent).Ceil()) * l.LineSpacing)
}

// LineWidth is the pixel width of a laid-out line, used to center it.
func (l *Layout) LineWidth(line []PlacedWord) int {
	if len(line) == 0 {
		return 0
	}
	last := line[len(line)-1]
	return last.X + l.WordWidth(last.Word)
}

// VerticalOffset centers the block vertically with a slight upward bias so
// the text sits just above the optical middle.
func (l *Layout) VerticalOffset(lines [][]PlacedWord) int {
	blockH := l.LineHeight() * len(lines)
	y := (l.Height-blockH)/2 - 40
	if y < 0 {
		y = 0
	}
	return y
}
