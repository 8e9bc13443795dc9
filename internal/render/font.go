// Package render lays out karaoke text, composites frames and assembles
// them into a video.
package render

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

var fontCandidates = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/truetype/freefont/FreeSans.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
	"/System/Library/Fonts/HelveticaNeue.ttc",
	"/Library/Fonts/Arial.ttf",
	"C:/Windows/Fonts/arial.ttf",
	"C:/Windows/Fonts/segoeui.ttf",
}

var boldFontCandidates = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
	"/usr/share/fonts/truetype/freefont/FreeSansBold.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
	"/Library/Fonts/Arial Bold.ttf",
	"C:/Windows/Fonts/arialbd.ttf",
	"C:/Windows/Fonts/segoeuib.ttf",
}

// LoadFace finds the best available font and returns a face at the
// requested pixel size. A project-local fonts/ directory wins over system
// fonts; if nothing loads, the built-in bitmap face keeps the render alive.
func LoadFace(size int, bold bool) font.Face {
	for _, path := range projectFonts() {
		if face, err := loadFaceFile(path, size); err == nil {
			return face
		}
	}

	candidates := fontCandidates
	if bold {
		candidates = boldFontCandidates
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if face, err := loadFaceFile(path, size); err == nil {
			return face
		}
	}

	log.Printf("[render] no usable truetype font found, using bitmap fallback")
	return basicfont.Face7x13
}

func projectFonts() []string {
	entries, err := os.ReadDir("fonts")
	if err != nil {
		return nil
	}
	var paths []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".ttf", ".otf", ".ttc":
			paths = append(paths, filepath.Join("fonts", e.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}

func loadFaceFile(path string, size int) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f *opentype.Font
	if strings.EqualFold(filepath.Ext(path), ".ttc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		f, err = coll.Font(0)
		if err != nil {
			return nil, err
		}
	} else {
		f, err = opentype.Parse(data)
		if err != nil {
			return nil, err
		}
	}

	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
