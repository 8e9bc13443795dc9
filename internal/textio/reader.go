// Package textio reads narration source files (plain text, markdown, PDF,
// EPUB) and normalizes their content for downstream chunking.
package textio

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/karatext/karatext/internal/models"
)

// Document is the result of reading an input file: cleaned narration text,
// optional chapter structure, and a word-style map for emphasized words.
type Document struct {
	Text     string
	Chapters []models.Chapter
	// Styles maps a normalized word to "bold", "italic" or "bold-italic".
	Styles map[string]string
}

// Read loads a source file by extension. PDF and EPUB get dedicated
// extractors; markdown goes through the AST for styles and chapters;
// everything else is treated as plain text.
func Read(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".pdf":
		text, err := readPDF(path)
		if err != nil {
			return nil, err
		}
		return &Document{Text: Clean(text)}, nil

	case ".epub":
		chapters, err := readEPUB(path)
		if err != nil {
			return nil, err
		}
		var parts []string
		for _, ch := range chapters {
			parts = append(parts, ch.Text)
		}
		return &Document{
			Text:     Clean(strings.Join(parts, "\n\n")),
			Chapters: cleanChapters(chapters),
		}, nil

	case ".md", ".markdown":
		raw, err := readPlain(path)
		if err != nil {
			return nil, err
		}
		doc := &Document{
			Text:     Clean(MarkdownText(raw)),
			Chapters: cleanChapters(MarkdownChapters(raw)),
			Styles:   MarkdownStyles(raw),
		}
		return doc, nil

	default:
		raw, err := readPlain(path)
		if err != nil {
			return nil, err
		}
		return &Document{Text: Clean(raw)}, nil
	}
}

// readPlain reads a file as UTF-8, falling back to latin-1 when the bytes
// are not valid UTF-8. Latin-1 accepts any byte, so this never fails on
// encoding.
func readPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

var (
	multiSpace   = regexp.MustCompile(`  +`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes narration text: em-dashes become a spaced double dash so
// they survive word splitting, and runs of whitespace collapse.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "—", " -- ")
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiNewline.ReplaceAllString(text, "\n\n")
	return text
}

func cleanChapters(chapters []models.Chapter) []models.Chapter {
	out := make([]models.Chapter, len(chapters))
	for i, ch := range chapters {
		out[i] = models.Chapter{Title: ch.Title, Text: Clean(ch.Text)}
	}
	return out
}
