package textio

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/karatext/karatext/internal/models"
)

// Spine entries shorter than this are cover pages, title pages and
// copyright notices, not chapters.
const minChapterWords = 30

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Manifest struct {
		Items []epubItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type epubItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type ncxNavPoint struct {
	Label struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

type ncxDocument struct {
	NavPoints []ncxNavPoint `xml:"navMap>navPoint"`
}

// readEPUB extracts chapters in spine reading order, with titles resolved
// from the table of contents where available.
func readEPUB(p string) ([]models.Chapter, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer zr.Close()

	chapters := readSpineChapters(&zr.Reader)
	if len(chapters) == 0 {
		chapters = readFlatChapters(&zr.Reader)
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("no readable text found in epub")
	}
	return chapters, nil
}

func readSpineChapters(zr *zip.Reader) []models.Chapter {
	opfPath := findOPF(zr)
	if opfPath == "" {
		return nil
	}
	opfDir := path.Dir(opfPath)
	if opfDir == "." {
		opfDir = ""
	}

	var pkg epubPackage
	data, err := zipRead(zr, opfPath)
	if err != nil || xml.Unmarshal(data, &pkg) != nil {
		return nil
	}

	idToHref := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		if item.ID != "" && item.Href != "" {
			idToHref[item.ID] = item.Href
		}
	}

	titles := tocTitles(zr, pkg.Manifest.Items, opfDir)

	var chapters []models.Chapter
	for _, ref := range pkg.Spine.ItemRefs {
		href, ok := idToHref[ref.IDRef]
		if !ok {
			continue
		}
		full := joinOPF(opfDir, href)
		data, err := zipRead(zr, full)
		if err != nil {
			continue
		}
		text := stripHTML(string(data))
		if len(strings.Fields(text)) < minChapterWords {
			continue
		}

		stem := docStem(full)
		title := titles[full]
		if title == "" {
			title = titles[stem]
		}
		if title == "" {
			title = titleFromStem(stem)
		}
		chapters = append(chapters, models.Chapter{Title: title, Text: text})
	}
	return chapters
}

// readFlatChapters reads every xhtml document in name order, for epubs with
// a missing or unparseable package file.
func readFlatChapters(zr *zip.Reader) []models.Chapter {
	var names []string
	for _, f := range zr.File {
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".xhtml", ".html", ".htm":
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)

	var chapters []models.Chapter
	for _, name := range names {
		data, err := zipRead(zr, name)
		if err != nil {
			continue
		}
		text := stripHTML(string(data))
		if len(strings.Fields(text)) < minChapterWords {
			continue
		}
		chapters = append(chapters, models.Chapter{
			Title: titleFromStem(docStem(name)),
			Text:  text,
		})
	}
	return chapters
}

func findOPF(zr *zip.Reader) string {
	if data, err := zipRead(zr, "META-INF/container.xml"); err == nil {
		var c epubContainer
		if xml.Unmarshal(data, &c) == nil {
			for _, rf := range c.Rootfiles {
				if rf.FullPath != "" {
					return rf.FullPath
				}
			}
		}
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".opf") {
			return f.Name
		}
	}
	return ""
}

// tocTitles builds an href -> title map from toc.ncx (EPUB2) or the nav
// document (EPUB3). Entries are stored under both the full path and the
// bare filename stem so spine hrefs match loosely.
func tocTitles(zr *zip.Reader, items []epubItem, opfDir string) map[string]string {
	titles := make(map[string]string)

	ncxPath, navPath := "", ""
	for _, item := range items {
		if item.MediaType == "application/x-dtbncx+xml" {
			ncxPath = joinOPF(opfDir, item.Href)
		}
		if strings.Contains(item.Properties, "nav") {
			navPath = joinOPF(opfDir, item.Href)
		}
	}

	if ncxPath != "" {
		if data, err := zipRead(zr, ncxPath); err == nil {
			var ncx ncxDocument
			if xml.Unmarshal(data, &ncx) == nil {
				addNavPoints(titles, ncx.NavPoints, opfDir)
			}
		}
	}

	if navPath != "" && len(titles) == 0 {
		if data, err := zipRead(zr, navPath); err == nil {
			for _, m := range navAnchor.FindAllStringSubmatch(string(data), -1) {
				href := strings.SplitN(m[1], "#", 2)[0]
				title := strings.TrimSpace(stripHTML(m[2]))
				if title == "" {
					continue
				}
				full := joinOPF(opfDir, href)
				titles[full] = title
				titles[docStem(full)] = title
			}
		}
	}

	return titles
}

func addNavPoints(titles map[string]string, points []ncxNavPoint, opfDir string) {
	for _, np := range points {
		src := strings.SplitN(np.Content.Src, "#", 2)[0]
		title := strings.TrimSpace(np.Label.Text)
		if src != "" && title != "" {
			full := joinOPF(opfDir, src)
			titles[full] = title
			titles[docStem(full)] = title
		}
		addNavPoints(titles, np.Children, opfDir)
	}
}

var (
	tagPattern = regexp.MustCompile(`<[^>]+>`)
	wsPattern  = regexp.MustCompile(`\s+`)
	navAnchor  = regexp.MustCompile(`(?s)<a\s+[^>]*href=["']([^"']+)["'][^>]*>(.*?)</a>`)
)

func stripHTML(doc string) string {
	text := tagPattern.ReplaceAllString(doc, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(wsPattern.ReplaceAllString(text, " "))
}

func zipRead(zr *zip.Reader, name string) ([]byte, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

func joinOPF(opfDir, href string) string {
	href = strings.ReplaceAll(href, `\`, "/")
	if opfDir == "" {
		return href
	}
	return opfDir + "/" + href
}

func docStem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// titleFromStem derives a display title from a filename like
// "chapter-01_intro" when the table of contents has no entry for it.
func titleFromStem(stem string) string {
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(stem))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
