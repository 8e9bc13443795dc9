// Package segment splits cleaned narration text into display chunks sized
// for on-screen karaoke lines, optionally respecting chapter boundaries.
package segment

import (
	"strings"

	"github.com/karatext/karatext/internal/models"
)

// How far back from the word limit to look for a natural phrase break when a
// single sentence exceeds the chunk limit.
const breakSearchWindow = 5

// SplitSentences splits text into sentences using punctuation-terminal
// heuristics: a word ending in .?! closes a sentence when the next word
// starts with an uppercase letter or an opening quote, or at end of input.
func SplitSentences(text string) []string {
	words := strings.Fields(text)
	var sentences []string
	var current []string

	for i, word := range words {
		current = append(current, word)
		stripped := strings.TrimRight(word, `"'`+"”’")
		if stripped == "" || !strings.ContainsRune(".?!", rune(stripped[len(stripped)-1])) {
			continue
		}
		if i == len(words)-1 {
			sentences = append(sentences, strings.Join(current, " "))
			current = nil
			continue
		}
		next := strings.TrimLeft(words[i+1], `"'`+"“‘")
		if next != "" && (isUpper(rune(next[0])) || strings.HasPrefix(next, "“")) {
			sentences = append(sentences, strings.Join(current, " "))
			current = nil
		}
	}

	if len(current) > 0 {
		sentences = append(sentences, strings.Join(current, " "))
	}
	return sentences
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// isPhraseBreak reports whether a word is a natural place to cut a long
// sentence: trailing comma/semicolon/double-dash, or a coordinating
// conjunction.
func isPhraseBreak(word string) bool {
	if strings.HasSuffix(word, ",") || strings.HasSuffix(word, ";") || strings.HasSuffix(word, "--") {
		return true
	}
	switch strings.ToLower(word) {
	case "and", "but", "or", "then":
		return true
	}
	return false
}

// Chunk splits text into display chunks of at most maxWords words each,
// accumulating whole sentences until the limit would be exceeded. Sentences
// longer than maxWords are cut at the last natural phrase break within the
// final words of the limit window, else hard-split at the limit.
func Chunk(text string, maxWords int) []string {
	sentences := SplitSentences(text)
	var chunks []string
	var current []string

	for _, sentence := range sentences {
		sentenceWords := strings.Fields(sentence)

		if len(current) > 0 && len(current)+len(sentenceWords) > maxWords {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
		}

		if len(sentenceWords) <= maxWords {
			current = append(current, sentenceWords...)
			continue
		}

		// Oversized sentence: emit limit-sized pieces, preferring a phrase
		// break near the end of each window.
		var window []string
		for _, w := range sentenceWords {
			window = append(window, w)
			if len(window) < maxWords {
				continue
			}
			best := len(window)
			for j := len(window) - 1; j > len(window)-1-breakSearchWindow && j > 0; j-- {
				if isPhraseBreak(window[j]) {
					best = j + 1
					break
				}
			}
			if len(current) > 0 {
				chunks = append(chunks, strings.Join(current, " "))
				current = nil
			}
			chunks = append(chunks, strings.Join(window[:best], " "))
			window = window[best:]
		}
		current = append(current, window...)
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// ChunkChapters chunks each chapter independently so no chunk straddles a
// chapter boundary, and records each chapter's span over the flat chunk
// list. Chapters with no text are skipped.
func ChunkChapters(chapters []models.Chapter, maxWords int) ([]string, []models.ChapterRange) {
	var flat []string
	var ranges []models.ChapterRange

	for _, ch := range chapters {
		text := strings.TrimSpace(ch.Text)
		if text == "" {
			continue
		}

		start := len(flat)
		flat = append(flat, Chunk(text, maxWords)...)

		ranges = append(ranges, models.ChapterRange{
			Title:      ch.Title,
			StartChunk: start,
			EndChunk:   len(flat) - 1,
			WordCount:  len(strings.Fields(text)),
		})
	}

	return flat, ranges
}
