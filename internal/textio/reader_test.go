package textio

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"em dash", "wait—here", "wait -- here"},
		{"collapse spaces", "a  lot   of    space", "a lot of space"},
		{"collapse blank lines", "one\n\n\n\ntwo", "one\n\ntwo"},
		{"trims", "  padded  ", "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRead_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.txt")
	if err := os.WriteFile(path, []byte("Hello   world—again."), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "Hello world -- again." {
		t.Errorf("unexpected text %q", doc.Text)
	}
	if doc.Chapters != nil {
		t.Errorf("plain text should have no chapters, got %v", doc.Chapters)
	}
}

func TestRead_Latin1Fallback(t *testing.T) {
	// 0xE9 is latin-1 'é' and invalid on its own in UTF-8.
	path := filepath.Join(t.TempDir(), "story.txt")
	if err := os.WriteFile(path, []byte{'c', 'a', 'f', 0xE9}, 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "café" {
		t.Errorf("got %q, want %q", doc.Text, "café")
	}
}

func TestMarkdownText(t *testing.T) {
	src := "# Title\n\nSome **bold** and [linked](http://x) words.\n\n```\nignored code\n```\n\nMore text."

	got := Clean(MarkdownText(src))

	if strings.Contains(got, "ignored code") {
		t.Errorf("code block leaked into text: %q", got)
	}
	if strings.Contains(got, "**") || strings.Contains(got, "http://x") {
		t.Errorf("markdown syntax leaked into text: %q", got)
	}
	for _, want := range []string{"Title", "Some bold and linked words.", "More text."} {
		if !strings.Contains(got, want) {
			t.Errorf("text %q missing %q", got, want)
		}
	}
}

func TestMarkdownChapters(t *testing.T) {
	src := "intro paragraph\n\n# One\n\nfirst chapter body\n\n## Two\n\nsecond chapter body\n\n### Not a chapter\n\nstill second"

	chapters := MarkdownChapters(src)

	if len(chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d: %+v", len(chapters), chapters)
	}
	if chapters[0].Title != "Introduction" {
		t.Errorf("preamble title = %q, want Introduction", chapters[0].Title)
	}
	if chapters[1].Title != "One" || chapters[2].Title != "Two" {
		t.Errorf("unexpected titles: %q, %q", chapters[1].Title, chapters[2].Title)
	}
	if !strings.Contains(chapters[2].Text, "still second") {
		t.Errorf("level-3 heading should not split: %q", chapters[2].Text)
	}
}

func TestMarkdownChapters_NoHeadings(t *testing.T) {
	if got := MarkdownChapters("just a paragraph of text"); got != nil {
		t.Errorf("expected nil for heading-less markdown, got %+v", got)
	}
}

func TestMarkdownStyles(t *testing.T) {
	src := "A **bold word** and *slanted* and ***both at once*** here. Also **slanted** again."

	styles := MarkdownStyles(src)

	want := map[string]string{
		"bold":    "bold",
		"word":    "bold",
		"both":    "bold-italic",
		"at":      "bold-italic",
		"once":    "bold-italic",
		"slanted": "bold",
	}
	for key, style := range want {
		if styles[key] != style {
			t.Errorf("styles[%q] = %q, want %q", key, styles[key], style)
		}
	}
}

func writeTestEPUB(t *testing.T, dir string) string {
	t.Helper()
	long := strings.Repeat("word and another thing happens here ", 10)

	files := map[string]string{
		"META-INF/container.xml": `<?xml version="1.0"?>
<container xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`,
		"OEBPS/content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <manifest>
    <item id="cover" href="cover.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="cover"/>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`,
		"OEBPS/toc.ncx": `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/">
  <navMap>
    <navPoint id="n1"><navLabel><text>The Beginning</text></navLabel><content src="ch1.xhtml"/></navPoint>
    <navPoint id="n2"><navLabel><text>The End</text></navLabel><content src="ch2.xhtml#frag"/></navPoint>
  </navMap>
</ncx>`,
		"OEBPS/cover.xhtml": `<html><body><p>Cover Page</p></body></html>`,
		"OEBPS/ch1.xhtml":   `<html><body><h1>The Beginning</h1><p>` + long + `</p></body></html>`,
		"OEBPS/ch2.xhtml":   `<html><body><p>` + long + `</p></body></html>`,
	}

	path := filepath.Join(dir, "book.epub")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRead_EPUB(t *testing.T) {
	path := writeTestEPUB(t, t.TempDir())

	doc, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}

	// Cover page is under the word threshold and must be dropped.
	if len(doc.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d: %+v", len(doc.Chapters), doc.Chapters)
	}
	if doc.Chapters[0].Title != "The Beginning" {
		t.Errorf("chapter 1 title = %q", doc.Chapters[0].Title)
	}
	if doc.Chapters[1].Title != "The End" {
		t.Errorf("chapter 2 title = %q", doc.Chapters[1].Title)
	}
	if !strings.Contains(doc.Text, "another thing happens") {
		t.Errorf("combined text missing chapter content")
	}
	if strings.Contains(doc.Text, "Cover Page") {
		t.Errorf("cover page leaked into text")
	}
}

func TestRead_EPUB_FlatFallback(t *testing.T) {
	// No container.xml or OPF at all: fall back to xhtml files in name order.
	long := strings.Repeat("fallback words keep the chapter long enough ", 8)
	path := filepath.Join(t.TempDir(), "bare.epub")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("part-one.xhtml")
	w.Write([]byte("<html><body><p>" + long + "</p></body></html>"))
	zw.Close()
	f.Close()

	doc, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Chapters) != 1 || doc.Chapters[0].Title != "Part One" {
		t.Fatalf("unexpected chapters: %+v", doc.Chapters)
	}
}
