package align

import (
	"testing"

	"github.com/karatext/karatext/internal/models"
)

func tw(word string, start, end float64) models.TimedWord {
	return models.TimedWord{Word: word, Start: start, End: end}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello,", "hello"},
		{"don't", "don't"},
		{"--", ""},
		{"1984.", "1984"},
		{"“Quoted”", "quoted"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapToChunks_ExactMatch(t *testing.T) {
	// Engine words matching the chunk exactly must come back untouched.
	engine := []models.TimedWord{
		tw("the", 0, 0.2),
		tw("quick", 0.2, 0.5),
		tw("fox", 0.5, 0.9),
	}

	result := MapToChunks([]string{"the quick fox"}, engine)

	if len(result) != 1 || len(result[0]) != 3 {
		t.Fatalf("unexpected shape: %+v", result)
	}
	for i, got := range result[0] {
		if got.Start != engine[i].Start || got.End != engine[i].End {
			t.Errorf("word %d = %.2f-%.2f, want %.2f-%.2f",
				i, got.Start, got.End, engine[i].Start, engine[i].End)
		}
	}
}

func TestMapToChunks_MergedToken(t *testing.T) {
	// Engine merged "quick, brown" into one token; all four display words
	// must still come out with start <= end and monotonic starts.
	engine := []models.TimedWord{
		tw("the", 0, 0.2),
		tw("quick,brown", 0.2, 0.7),
		tw("fox", 0.7, 1.0),
	}

	result := MapToChunks([]string{"the quick, brown fox"}, engine)

	if len(result[0]) != 4 {
		t.Fatalf("expected 4 words, got %d", len(result[0]))
	}
	prevStart := -1.0
	for i, w := range result[0] {
		if w.Start > w.End {
			t.Errorf("word %d %q: start %.2f > end %.2f", i, w.Word, w.Start, w.End)
		}
		if w.Start < prevStart {
			t.Errorf("word %d %q: start %.2f went backwards from %.2f", i, w.Word, w.Start, prevStart)
		}
		prevStart = w.Start
	}
}

func TestMapToChunks_PunctuationToken(t *testing.T) {
	engine := []models.TimedWord{
		tw("wait", 0, 0.4),
		tw("here", 0.6, 0.9),
	}

	result := MapToChunks([]string{"wait -- here"}, engine)

	if len(result[0]) != 3 {
		t.Fatalf("expected 3 words, got %d", len(result[0]))
	}
	dash := result[0][1]
	if dash.Start != 0.6 || dash.End != 0.6 {
		t.Errorf("punctuation token got %.2f-%.2f, want the next word's start 0.60", dash.Start, dash.End)
	}
}

func TestMapToChunks_TrailingPunctuationToken(t *testing.T) {
	engine := []models.TimedWord{tw("done", 0, 0.5)}

	result := MapToChunks([]string{"done --"}, engine)

	last := result[0][1]
	if last.Start != 0.5 || last.End != 0.5 {
		t.Errorf("trailing punctuation got %.2f-%.2f, want previous end 0.50", last.Start, last.End)
	}
}

func TestMapToChunks_DriftFallback(t *testing.T) {
	// "missing" never appears in the engine stream and nothing nearby
	// matches, so it gets the previous word's end plus a synthetic span.
	engine := []models.TimedWord{
		tw("alpha", 0, 0.3),
		tw("gamma", 0.3, 0.6),
	}

	result := MapToChunks([]string{"alpha missing gamma"}, engine)

	m := result[0][1]
	if m.Start != 0.3 || m.End != 0.5 {
		t.Errorf("fallback word got %.2f-%.2f, want 0.30-0.50", m.Start, m.End)
	}
	// gamma still matches after the fallback.
	if g := result[0][2]; g.Start != 0.3 || g.End != 0.6 {
		t.Errorf("word after fallback got %.2f-%.2f, want 0.30-0.60", g.Start, g.End)
	}
}

func TestMapToChunks_FirstWordBorrowsEngineWord(t *testing.T) {
	// First chunk word has no match in the window; it borrows the next
	// unconsumed engine word's span.
	engine := []models.TimedWord{
		tw("completely", 1.0, 1.4),
		tw("different", 1.4, 1.9),
	}

	result := MapToChunks([]string{"unmatchable token"}, engine)

	first := result[0][0]
	if first.Start != 1.0 || first.End != 1.4 {
		t.Errorf("first word got %.2f-%.2f, want borrowed 1.00-1.40", first.Start, first.End)
	}
}

func TestMapToChunks_ExhaustedEngineStream(t *testing.T) {
	engine := []models.TimedWord{tw("only", 0, 0.2)}

	result := MapToChunks([]string{"only words left behind"}, engine)

	if len(result[0]) != 4 {
		t.Fatalf("expected 4 words, got %d", len(result[0]))
	}
	for i, w := range result[0] {
		if w.Start > w.End {
			t.Errorf("word %d: start %.2f > end %.2f", i, w.Start, w.End)
		}
	}
}

func TestMapToChunks_MultipleChunksMonotonic(t *testing.T) {
	engine := []models.TimedWord{
		tw("one", 0, 0.2), tw("two", 0.2, 0.4), tw("three", 0.4, 0.6),
		tw("four", 0.6, 0.8), tw("five", 0.8, 1.0), tw("six", 1.0, 1.2),
	}

	result := MapToChunks([]string{"one two three", "four five six"}, engine)

	if len(result) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(result))
	}
	if result[0].End() > result[1].Start() {
		t.Errorf("chunk order broken: chunk0 ends %.2f after chunk1 starts %.2f",
			result[0].End(), result[1].Start())
	}
	prev := -1.0
	for _, chunk := range result {
		for _, w := range chunk {
			if w.Start < prev {
				t.Errorf("start %.2f went backwards from %.2f", w.Start, prev)
			}
			prev = w.Start
		}
	}
}

func TestMapToChunks_EmptyChunks(t *testing.T) {
	result := MapToChunks(nil, []models.TimedWord{tw("x", 0, 1)})
	if len(result) != 0 {
		t.Errorf("expected no chunks, got %d", len(result))
	}
}
