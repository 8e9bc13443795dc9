package job

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/karatext/karatext/internal/config"
	"github.com/karatext/karatext/internal/export"
	"github.com/karatext/karatext/internal/models"
	"github.com/karatext/karatext/internal/pipeline"
	"github.com/karatext/karatext/internal/storage"
)

// Session is one running job's live progress feed. The Updates channel is
// closed when the run finishes, successfully or not.
type Session struct {
	JobID   string
	Updates chan pipeline.Event
}

type Config struct {
	OutputDir string
	Settings  config.Settings
}

// Service owns job persistence and background pipeline runs. One goroutine
// per started job; no cancellation once running.
type Service struct {
	repo      *Repository
	store     storage.Storage
	outputDir string
	settings  config.Settings

	sessions   map[string]*Session
	sessionsMu sync.RWMutex
}

func NewService(repo *Repository, store storage.Storage, cfg Config) *Service {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	return &Service{
		repo:      repo,
		store:     store,
		outputDir: cfg.OutputDir,
		settings:  cfg.Settings,
		sessions:  make(map[string]*Session),
	}
}

// Create registers an uploaded job in its initial state.
func (s *Service) Create(ctx context.Context, inputMode, textFile, audioFile string) (*models.Job, error) {
	j := models.NewJob(inputMode, textFile, audioFile)
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}
	log.Printf("[job] created %s (mode=%s)", j.ID, inputMode)
	return j, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Job, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Job, error) {
	return s.repo.List(ctx)
}

// GetSession returns the live session for a running job, if any.
func (s *Service) GetSession(jobID string) (*Session, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	session, exists := s.sessions[jobID]
	return session, exists
}

// Start moves an uploaded job to processing and launches its pipeline run
// in the background, returning the progress session.
func (s *Service) Start(ctx context.Context, jobID string) (*Session, error) {
	j, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	if err := j.Transition(models.JobProcessing); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, j); err != nil {
		return nil, err
	}

	session := &Session{
		JobID:   j.ID,
		Updates: make(chan pipeline.Event, 100),
	}
	s.sessionsMu.Lock()
	s.sessions[j.ID] = session
	s.sessionsMu.Unlock()

	go s.run(session, j)
	return session, nil
}

// run executes the pipeline for one job. It owns the session's Updates
// channel and the job's terminal transition.
func (s *Service) run(session *Session, j *models.Job) {
	defer close(session.Updates)
	// Runs outlive the HTTP request that started them.
	ctx := context.Background()

	log.Printf("[job] starting run for %s", j.ID)

	result, err := s.runPipeline(ctx, session, j)
	if err != nil {
		log.Printf("[job] run %s failed: %v", j.ID, err)
		j.Error = err.Error()
		if terr := j.Transition(models.JobError); terr != nil {
			log.Printf("[job] %v", terr)
		}
		if uerr := s.repo.Update(ctx, j); uerr != nil {
			log.Printf("[job] failed to persist error state: %v", uerr)
		}
		session.Updates <- pipeline.Event{
			Step:    pipeline.StepError,
			Message: err.Error(),
		}
		return
	}

	j.OutputFile = result.VideoPath
	if err := j.Transition(models.JobReady); err != nil {
		log.Printf("[job] %v", err)
	}
	if err := s.repo.Update(ctx, j); err != nil {
		log.Printf("[job] failed to persist ready state: %v", err)
	}
	log.Printf("[job] run %s complete: %s (%.1fs of audio)", j.ID, result.VideoPath, result.Duration)
}

func (s *Service) runPipeline(ctx context.Context, session *Session, j *models.Job) (*pipeline.Result, error) {
	textPath, audioPath := "", ""
	var err error
	if j.TextFile != "" {
		if textPath, err = s.store.FilePath(j.TextFile); err != nil {
			return nil, err
		}
	}
	if j.AudioFile != "" {
		if audioPath, err = s.store.FilePath(j.AudioFile); err != nil {
			return nil, err
		}
	}

	set := s.settings
	set.InputMode = j.InputMode
	outputPath := filepath.Join(s.outputDir, j.ID, "karaoke.mp4")

	p := &pipeline.Pipeline{
		Settings:   set,
		TextPath:   textPath,
		AudioPath:  audioPath,
		OutputPath: outputPath,
		Progress: func(e pipeline.Event) {
			// A slow SSE consumer must not stall the render.
			select {
			case session.Updates <- e:
			default:
			}
		},
	}

	result, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}

	// Subtitles ride along with every server render.
	base := filepath.Join(s.outputDir, j.ID, "karaoke")
	if err := export.SRT(result.Timings, base+".srt"); err != nil {
		log.Printf("[job] srt export failed for %s: %v", j.ID, err)
	}
	if err := export.VTT(result.Timings, base+".vtt"); err != nil {
		log.Printf("[job] vtt export failed for %s: %v", j.ID, err)
	}
	return result, nil
}

// WaitSettle is a small test hook: polls until the job leaves processing.
func (s *Service) WaitSettle(ctx context.Context, jobID string, timeout time.Duration) (*models.Job, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		j, err := s.repo.GetByID(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if j != nil && j.Status != models.JobProcessing {
			return j, nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil, fmt.Errorf("job %s still processing after %s", jobID, timeout)
}
