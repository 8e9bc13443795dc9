package textio

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/karatext/karatext/internal/align"
	"github.com/karatext/karatext/internal/models"
)

var md = goldmark.New()

func parseMarkdown(source []byte) ast.Node {
	return md.Parser().Parse(gmtext.NewReader(source))
}

// MarkdownText extracts the readable narration from markdown source,
// dropping syntax but keeping content: link and image text survive, fenced
// code blocks do not.
func MarkdownText(source string) string {
	src := []byte(source)
	root := parseMarkdown(src)

	var b strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		default:
			if !entering && n.Type() == ast.TypeBlock {
				b.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// MarkdownChapters splits markdown into chapters at level 1 and 2 headings.
// Returns nil when the document has no such headings; text before the first
// heading becomes an "Introduction" chapter.
func MarkdownChapters(source string) []models.Chapter {
	src := []byte(source)
	root := parseMarkdown(src)

	var chapters []models.Chapter
	title := ""
	var body strings.Builder
	sawHeading := false

	flush := func() {
		text := strings.TrimSpace(body.String())
		body.Reset()
		if text == "" {
			return
		}
		t := title
		if t == "" {
			t = "Introduction"
		}
		chapters = append(chapters, models.Chapter{Title: t, Text: text})
	}

	for c := root.FirstChild(); c != nil; c = c.NextSibling() {
		if h, ok := c.(*ast.Heading); ok && h.Level <= 2 {
			flush()
			title = nodeText(h, src)
			sawHeading = true
			continue
		}
		body.WriteString(nodeText(c, src))
		body.WriteString("\n\n")
	}
	flush()

	if !sawHeading {
		return nil
	}
	return chapters
}

// MarkdownStyles maps normalized words inside emphasis spans to their style:
// "bold", "italic" or "bold-italic". Stronger styles win when a word appears
// emphasized more than once.
func MarkdownStyles(source string) map[string]string {
	src := []byte(source)
	root := parseMarkdown(src)

	rank := map[string]int{"italic": 1, "bold": 2, "bold-italic": 3}
	styles := make(map[string]string)
	bold, italic := 0, 0

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Emphasis:
			delta := 1
			if !entering {
				delta = -1
			}
			if node.Level >= 2 {
				bold += delta
			} else {
				italic += delta
			}
		case *ast.Text:
			if !entering || (bold == 0 && italic == 0) {
				break
			}
			style := "italic"
			switch {
			case bold > 0 && italic > 0:
				style = "bold-italic"
			case bold > 0:
				style = "bold"
			}
			for _, w := range strings.Fields(string(node.Segment.Value(src))) {
				key := align.Normalize(w)
				if key == "" {
					continue
				}
				if rank[style] > rank[styles[key]] {
					styles[key] = style
				}
			}
		}
		return ast.WalkContinue, nil
	})

	if len(styles) == 0 {
		return nil
	}
	return styles
}

// nodeText collects the plain text of a subtree, preserving word breaks
// across inline boundaries.
func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
