// Package align matches an externally produced word-timestamp stream against
// display chunks, producing one timed word per displayed word.
package align

import (
	"log"
	"strings"

	"github.com/karatext/karatext/internal/models"
)

const (
	// How many engine words ahead of the cursor to scan for a match. The
	// window absorbs insertions/deletions from tokenization drift without a
	// full edit-distance alignment.
	lookahead = 10

	// Synthetic duration for a word the engine has no timestamp for.
	fallbackDuration = 0.2
)

// Normalize strips a word down to its matchable core: lowercase letters,
// digits and apostrophes only. Everything else is punctuation.
func Normalize(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '\'' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MapToChunks assigns engine timestamps to each chunk's display words.
// Matching is sequential and greedy over a single cursor, never
// backtracking; a word the engine stream cannot account for gets
// interpolated timing instead of failing the run. Every chunk word comes
// back timed, in chunk order.
func MapToChunks(chunks []string, engineWords []models.TimedWord) []models.TimedChunk {
	out := make([]models.TimedChunk, 0, len(chunks))
	cursor := 0

	for _, chunk := range chunks {
		chunkWords := strings.Fields(chunk)
		timings := make(models.TimedChunk, 0, len(chunkWords))
		// Punctuation-only tokens stay provisional until the post-pass.
		resolved := make([]bool, 0, len(chunkWords))

		for _, cw := range chunkWords {
			norm := Normalize(cw)
			if norm == "" {
				timings = append(timings, models.TimedWord{Word: cw})
				resolved = append(resolved, false)
				continue
			}

			matched := false
			limit := cursor + lookahead
			if limit > len(engineWords) {
				limit = len(engineWords)
			}
			for j := cursor; j < limit; j++ {
				en := Normalize(engineWords[j].Word)
				if en == norm || strings.HasPrefix(norm, en) || strings.HasPrefix(en, norm) {
					timings = append(timings, models.TimedWord{
						Word:  cw,
						Start: engineWords[j].Start,
						End:   engineWords[j].End,
					})
					resolved = append(resolved, true)
					cursor = j + 1
					matched = true
					break
				}
			}
			if matched {
				continue
			}

			// Drift beyond the window: reuse the previous word's end, or
			// borrow the next unconsumed engine word when there is no
			// resolved word behind us yet.
			switch {
			case len(timings) > 0 && resolved[len(resolved)-1]:
				lastEnd := timings[len(timings)-1].End
				timings = append(timings, models.TimedWord{
					Word:  cw,
					Start: lastEnd,
					End:   lastEnd + fallbackDuration,
				})
			case cursor < len(engineWords):
				timings = append(timings, models.TimedWord{
					Word:  cw,
					Start: engineWords[cursor].Start,
					End:   engineWords[cursor].End,
				})
				cursor++
			default:
				timings = append(timings, models.TimedWord{Word: cw})
			}
			resolved = append(resolved, true)
			log.Printf("[align] no engine match for %q, interpolated %.2f-%.2f",
				cw, timings[len(timings)-1].Start, timings[len(timings)-1].End)
		}

		// Post-pass: provisional punctuation tokens copy the nearest
		// neighbor's time, preferring the following word's start.
		for i := range timings {
			if resolved[i] {
				continue
			}
			switch {
			case i+1 < len(timings) && resolved[i+1]:
				timings[i].Start = timings[i+1].Start
				timings[i].End = timings[i+1].Start
			case i > 0:
				timings[i].Start = timings[i-1].End
				timings[i].End = timings[i-1].End
			}
			resolved[i] = true
		}

		out = append(out, timings)
	}

	return out
}
