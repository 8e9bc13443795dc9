package models

// TimedWord is a display word annotated with the narration time span it is
// spoken in. Times are seconds from the start of the audio.
type TimedWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TimedChunk is one display chunk's words in order, same length and order as
// the chunk text it was aligned from.
type TimedChunk []TimedWord

// Start returns the chunk's on-air start: the first word's start time.
func (c TimedChunk) Start() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[0].Start
}

// End returns the chunk's on-air end: the last word's end time.
func (c TimedChunk) End() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1].End
}

func (c TimedChunk) Text() string {
	out := ""
	for i, w := range c {
		if i > 0 {
			out += " "
		}
		out += w.Word
	}
	return out
}

// Chapter is a source chapter before chunking.
type Chapter struct {
	Title string
	Text  string
}

// ChapterRange records which span of the flat chunk list a chapter occupies.
// Ranges are disjoint, ordered, and never split a chunk across chapters.
type ChapterRange struct {
	Title      string  `json:"title"`
	StartChunk int     `json:"start_chunk"`
	EndChunk   int     `json:"end_chunk"`
	WordCount  int     `json:"word_count"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
}
