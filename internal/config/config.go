package config

import (
	"fmt"
	"image/color"

	"github.com/caarlos0/env/v10"
)

// Input modes accepted by the pipeline.
const (
	ModeText         = "text"
	ModeAudio        = "audio"
	ModeTextAndAudio = "text_and_audio"
)

// Settings carries every configurable parameter for a karaoke render. It is
// passed explicitly through the pipeline; nothing reads package-level
// defaults at call time.
type Settings struct {
	InputMode string

	// TTS
	Voice string

	// Video geometry
	Width  int
	Height int
	FPS    int

	// Typography
	FontSize    int
	MarginX     int
	LineSpacing float64

	// Chunking
	MaxWordsPerChunk int

	// Colors, hex strings like "#FFD700"
	BGColor         string
	HighlightColor  string
	SpokenColor     string
	UpcomingColor   string
	ProgressBGColor string
	ProgressFGColor string

	// Chunk transition timing, seconds
	PreRoll       float64
	PostRoll      float64
	LastPostRoll  float64
	FadeDuration  float64

	// Progress bar geometry
	ProgressBarHeight       int
	ProgressBarMargin       int
	ProgressBarBottomOffset int

	Theme string

	// Long-input partitioning thresholds
	MaxWordsSinglePass  int
	MaxAudioSinglePass  float64
	AudioSliceSeconds   float64
}

// Default returns the baseline settings: portrait 1080x1920 at 30fps with
// the dark theme, matching the values the renderer was tuned with.
func Default() Settings {
	s := Settings{
		InputMode:               ModeText,
		Voice:                   "andrew",
		Width:                   1080,
		Height:                  1920,
		FPS:                     30,
		FontSize:                52,
		MarginX:                 80,
		LineSpacing:             1.5,
		MaxWordsPerChunk:        20,
		PreRoll:                 0.3,
		PostRoll:                0.3,
		LastPostRoll:            1.0,
		FadeDuration:            0.3,
		ProgressBarHeight:       4,
		ProgressBarMargin:       80,
		ProgressBarBottomOffset: 60,
		MaxWordsSinglePass:      8000,
		MaxAudioSinglePass:      1800,
		AudioSliceSeconds:       600,
	}
	if err := s.ApplyTheme("dark"); err != nil {
		panic(err)
	}
	return s
}

// AutoFontSize picks a font size from the frame resolution when none was
// requested: 4.8% of the smaller dimension, clamped to [32, 72].
func AutoFontSize(width, height int) int {
	minDim := width
	if height < width {
		minDim = height
	}
	size := int(float64(minDim) * 0.048)
	if size < 32 {
		size = 32
	}
	if size > 72 {
		size = 72
	}
	return size
}

type themePreset struct {
	bg, highlight, spoken, upcoming, progressBG, progressFG string
}

var themePresets = map[string]themePreset{
	"dark": {
		bg:         "#1a1a2e",
		highlight:  "#FFD700",
		spoken:     "#BBBBBB",
		upcoming:   "#555555",
		progressBG: "#28283c",
		progressFG: "#FFD700",
	},
	"light": {
		bg:         "#f5f5f0",
		highlight:  "#d4380d",
		spoken:     "#333333",
		upcoming:   "#aaaaaa",
		progressBG: "#dddddd",
		progressFG: "#d4380d",
	},
	"sepia": {
		bg:         "#2b1d0e",
		highlight:  "#f4a460",
		spoken:     "#c8b89a",
		upcoming:   "#5c4a32",
		progressBG: "#3d2b16",
		progressFG: "#f4a460",
	},
	"neon": {
		bg:         "#0a0a0a",
		highlight:  "#00ff88",
		spoken:     "#cc66ff",
		upcoming:   "#333333",
		progressBG: "#1a1a1a",
		progressFG: "#00ff88",
	},
}

// Themes lists the available theme preset names.
func Themes() []string {
	return []string{"dark", "light", "sepia", "neon"}
}

// ApplyTheme overwrites the color fields with a named preset.
func (s *Settings) ApplyTheme(name string) error {
	preset, ok := themePresets[name]
	if !ok {
		return fmt.Errorf("unknown theme %q, available: dark, light, sepia, neon", name)
	}
	s.BGColor = preset.bg
	s.HighlightColor = preset.highlight
	s.SpokenColor = preset.spoken
	s.UpcomingColor = preset.upcoming
	s.ProgressBGColor = preset.progressBG
	s.ProgressFGColor = preset.progressFG
	s.Theme = name
	return nil
}

// HexToRGBA converts "#RRGGBB" to an opaque color.
func HexToRGBA(hex string) (color.RGBA, error) {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", hex)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// MustRGBA is HexToRGBA for colors already validated by ApplyTheme; a bad
// value falls back to black rather than failing a render mid-frame.
func MustRGBA(hex string) color.RGBA {
	c, err := HexToRGBA(hex)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return c
}

// Validate checks the fields a render cannot proceed without.
func (s *Settings) Validate() error {
	switch s.InputMode {
	case ModeText, ModeAudio, ModeTextAndAudio:
	default:
		return fmt.Errorf("unknown input mode %q, expected %s, %s or %s",
			s.InputMode, ModeText, ModeAudio, ModeTextAndAudio)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", s.Width, s.Height)
	}
	if s.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %d", s.FPS)
	}
	if s.MaxWordsPerChunk <= 0 {
		return fmt.Errorf("max words per chunk must be positive, got %d", s.MaxWordsPerChunk)
	}
	for _, hex := range []string{
		s.BGColor, s.HighlightColor, s.SpokenColor,
		s.UpcomingColor, s.ProgressBGColor, s.ProgressFGColor,
	} {
		if _, err := HexToRGBA(hex); err != nil {
			return err
		}
	}
	return nil
}

// ServerConfig is the environment-driven configuration for the job server.
type ServerConfig struct {
	Port          string `env:"PORT" envDefault:"8080"`
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	OutputDir     string `env:"OUTPUT_DIR" envDefault:"./output"`
	DBPath        string `env:"DB_PATH" envDefault:"./karatext.db"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"104857600"`
	Voice         string `env:"TTS_VOICE" envDefault:"andrew"`
	Theme         string `env:"THEME" envDefault:"dark"`
}

// LoadServer parses the server configuration from the environment.
func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
