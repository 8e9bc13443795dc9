package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/karatext/karatext/internal/api"
	"github.com/karatext/karatext/internal/config"
	"github.com/karatext/karatext/internal/export"
	"github.com/karatext/karatext/internal/job"
	"github.com/karatext/karatext/internal/media"
	"github.com/karatext/karatext/internal/pipeline"
	"github.com/karatext/karatext/internal/render"
	"github.com/karatext/karatext/internal/speech"
	"github.com/karatext/karatext/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:   "karatext",
		Short: "Turn books into karaoke-style narrated videos",
		Long: `karatext reads a text file (txt, markdown, pdf or epub), narrates it
with a neural voice, aligns every word to the audio, and renders a video
where the spoken word lights up as it is read.

Examples:
  # Narrate a book and render a karaoke video
  karatext render -i book.epub -o book.mp4 --voice ava --theme sepia

  # Caption an existing narration recording
  karatext render -a narration.mp3 -o out.mp4

  # Export subtitles and a thumbnail without rendering video
  karatext export -i book.txt --srt book.srt --vtt book.vtt

  # Run the upload/render server
  karatext serve`,
	}

	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Run the full pipeline and render a karaoke video",
		Long: fmt.Sprintf(`Render a karaoke video from a text file, an audio file, or both.

With only --text, narration is synthesized. With only --audio, the words
are transcribed from the recording. With both, the text is displayed and
the audio provides the timing.

Available voices: %s
Available themes: %s`,
			strings.Join(sortedVoices(), ", "),
			strings.Join(config.Themes(), ", ")),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, textPath, audioPath, err := settingsFromFlags(cmd)
			if err != nil {
				return err
			}

			outputPath, _ := cmd.Flags().GetString("output")
			if outputPath == "" {
				return fmt.Errorf("output path is required")
			}

			if err := media.EnsureTools(); err != nil {
				return err
			}

			p := &pipeline.Pipeline{
				Settings:   set,
				TextPath:   textPath,
				AudioPath:  audioPath,
				OutputPath: outputPath,
				Progress:   printProgress,
			}

			result, err := p.Run(context.Background())
			if err != nil {
				return err
			}

			fmt.Printf("\nDone: %s (%.1fs of audio, %d chunks)\n",
				result.VideoPath, result.Duration, len(result.Chunks))
			for _, ch := range result.Chapters {
				fmt.Printf("  chapter %q  %.1fs - %.1fs\n", ch.Title, ch.StartTime, ch.EndTime)
			}
			return nil
		},
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Produce subtitles or a thumbnail without rendering video",
		Long: `Run the pipeline up to word alignment and write SRT or VTT subtitles
and an optional PNG thumbnail. No video is rendered, so this is much
faster than a full render.

Example:
  karatext export -i book.txt --srt book.srt --thumbnail cover.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, textPath, audioPath, err := settingsFromFlags(cmd)
			if err != nil {
				return err
			}

			srtPath, _ := cmd.Flags().GetString("srt")
			vttPath, _ := cmd.Flags().GetString("vtt")
			thumbPath, _ := cmd.Flags().GetString("thumbnail")
			if srtPath == "" && vttPath == "" && thumbPath == "" {
				return fmt.Errorf("nothing to export, pass --srt, --vtt or --thumbnail")
			}

			if err := media.EnsureTools(); err != nil {
				return err
			}

			p := &pipeline.Pipeline{
				Settings:  set,
				TextPath:  textPath,
				AudioPath: audioPath,
				Progress:  printProgress,
			}

			result, err := p.Run(context.Background())
			if err != nil {
				return err
			}

			if srtPath != "" {
				if err := export.SRT(result.Timings, srtPath); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", srtPath)
			}
			if vttPath != "" {
				if err := export.VTT(result.Timings, vttPath); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", vttPath)
			}
			if thumbPath != "" {
				if set.FontSize <= 0 {
					set.FontSize = config.AutoFontSize(set.Width, set.Height)
				}
				layout := &render.Layout{
					Width:       set.Width,
					Height:      set.Height,
					MarginX:     set.MarginX,
					LineSpacing: set.LineSpacing,
					Face:        render.LoadFace(set.FontSize, false),
					Styles:      result.Styles,
				}
				if len(result.Styles) > 0 {
					layout.BoldFace = render.LoadFace(set.FontSize, true)
				}
				if err := export.Thumbnail(result.Timings, set, layout, thumbPath); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", thumbPath)
			}
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the upload and render job server",
		Long: `Start the HTTP server: upload texts or narration recordings, start
render jobs, follow their progress over server-sent events, and download
the finished videos.

Configuration is read from the environment (and a .env file if present):
PORT, UPLOAD_DIR, OUTPUT_DIR, DB_PATH, MAX_UPLOAD_SIZE, TTS_VOICE, THEME.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				log.Printf("[serve] skipping .env: %v", err)
			}

			cfg, err := config.LoadServer()
			if err != nil {
				return err
			}

			if err := media.EnsureTools(); err != nil {
				return err
			}

			set := config.Default()
			set.Voice = cfg.Voice
			if err := set.ApplyTheme(cfg.Theme); err != nil {
				return err
			}

			store, err := storage.NewLocalStorage(cfg.UploadDir)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}

			db, err := job.NewDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()

			svc := job.NewService(job.NewRepository(db), store, job.Config{
				OutputDir: cfg.OutputDir,
				Settings:  set,
			})

			app := &api.App{
				Jobs:          svc,
				Storage:       store,
				MaxUploadSize: cfg.MaxUploadSize,
			}

			log.Printf("Server starting on port %s", cfg.Port)
			log.Printf("Upload directory: %s", cfg.UploadDir)
			log.Printf("Output directory: %s", cfg.OutputDir)
			log.Printf("Database path: %s", cfg.DBPath)
			log.Printf("Max upload size: %d bytes", cfg.MaxUploadSize)

			return http.ListenAndServe(":"+cfg.Port, api.NewRouter(app))
		},
	}
)

// settingsFromFlags builds render settings from the shared input flags of
// the render and export commands.
func settingsFromFlags(cmd *cobra.Command) (config.Settings, string, string, error) {
	set := config.Default()

	textPath, _ := cmd.Flags().GetString("text")
	audioPath, _ := cmd.Flags().GetString("audio")

	switch {
	case textPath != "" && audioPath != "":
		set.InputMode = config.ModeTextAndAudio
	case textPath != "":
		set.InputMode = config.ModeText
	case audioPath != "":
		set.InputMode = config.ModeAudio
	default:
		return set, "", "", fmt.Errorf("pass --text, --audio, or both")
	}

	if theme, _ := cmd.Flags().GetString("theme"); theme != "" {
		if err := set.ApplyTheme(theme); err != nil {
			return set, "", "", err
		}
	}
	if voice, _ := cmd.Flags().GetString("voice"); voice != "" {
		set.Voice = voice
	}
	if res, _ := cmd.Flags().GetString("resolution"); res != "" {
		w, h, err := parseResolution(res)
		if err != nil {
			return set, "", "", err
		}
		set.Width, set.Height = w, h
	}
	if fps, _ := cmd.Flags().GetInt("fps"); fps > 0 {
		set.FPS = fps
	}
	if size, _ := cmd.Flags().GetInt("font-size"); size >= 0 {
		set.FontSize = size
	}
	if words, _ := cmd.Flags().GetInt("max-words"); words > 0 {
		set.MaxWordsPerChunk = words
	}

	return set, textPath, audioPath, nil
}

// parseResolution parses "WIDTHxHEIGHT", e.g. "1920x1080".
func parseResolution(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q, expected WIDTHxHEIGHT", s)
	}
	return w, h, nil
}

func printProgress(e pipeline.Event) {
	if e.Progress > 0 {
		fmt.Printf("[%s] %3.0f%%  %s\n", e.Step, e.Progress*100, e.Message)
		return
	}
	fmt.Printf("[%s]       %s\n", e.Step, e.Message)
}

func sortedVoices() []string {
	voices := speech.Voices()
	sort.Strings(voices)
	return voices
}

func init() {
	for _, cmd := range []*cobra.Command{renderCmd, exportCmd} {
		cmd.Flags().StringP("text", "i", "", "Input text file (txt, md, pdf, epub)")
		cmd.Flags().StringP("audio", "a", "", "Input narration audio file")
		cmd.Flags().String("voice", "", "Narration voice for synthesized audio")
		cmd.Flags().String("theme", "", "Color theme (dark, light, sepia, neon)")
		cmd.Flags().StringP("resolution", "r", "", "Video resolution as WIDTHxHEIGHT (default 1080x1920)")
		cmd.Flags().Int("fps", 0, "Frames per second (default 30)")
		cmd.Flags().Int("font-size", -1, "Font size in pixels, 0 picks one from the resolution")
		cmd.Flags().Int("max-words", 0, "Maximum words shown per screen (default 20)")
	}

	renderCmd.Flags().StringP("output", "o", "karaoke.mp4", "Output video path")

	exportCmd.Flags().String("srt", "", "Write SRT subtitles to this path")
	exportCmd.Flags().String("vtt", "", "Write VTT subtitles to this path")
	exportCmd.Flags().String("thumbnail", "", "Write a PNG thumbnail to this path")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
