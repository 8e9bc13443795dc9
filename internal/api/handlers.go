// Package api exposes the job server over HTTP: uploads, job lifecycle,
// a server-sent-event progress stream, and result downloads.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/karatext/karatext/internal/config"
	"github.com/karatext/karatext/internal/job"
	"github.com/karatext/karatext/internal/models"
	"github.com/karatext/karatext/internal/pipeline"
	"github.com/karatext/karatext/internal/speech"
	"github.com/karatext/karatext/internal/storage"
)

type App struct {
	Jobs          *job.Service
	Storage       storage.Storage
	MaxUploadSize int64
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func VoicesHandler(w http.ResponseWriter, r *http.Request) {
	voices := speech.Voices()
	sort.Strings(voices)
	respondJSON(w, http.StatusOK, map[string][]string{"voices": voices})
}

func ThemesHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"themes": config.Themes()})
}

// CreateJobHandler accepts a multipart upload with an input_mode field and,
// depending on the mode, a text part, an audio part, or both. The job starts
// in the uploaded state; rendering begins on a separate start call.
func (app *App) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "upload too large or malformed")
		return
	}

	mode := r.FormValue("input_mode")
	if mode == "" {
		mode = config.ModeText
	}

	var textName, audioName string
	var err error

	switch mode {
	case config.ModeText:
		textName, err = app.saveUpload(r, "text", storage.KindText)
	case config.ModeAudio:
		audioName, err = app.saveUpload(r, "audio", storage.KindAudio)
	case config.ModeTextAndAudio:
		if textName, err = app.saveUpload(r, "text", storage.KindText); err == nil {
			if audioName, err = app.saveUpload(r, "audio", storage.KindAudio); err != nil {
				app.Storage.DeleteFile(textName)
			}
		}
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown input mode %q", mode))
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	j, err := app.Jobs.Create(r.Context(), mode, textName, audioName)
	if err != nil {
		if textName != "" {
			app.Storage.DeleteFile(textName)
		}
		if audioName != "" {
			app.Storage.DeleteFile(audioName)
		}
		respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	respondJSON(w, http.StatusCreated, j)
}

func (app *App) saveUpload(r *http.Request, field string, kind storage.Kind) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("missing %s file", field)
	}
	defer file.Close()

	return app.Storage.SaveFile(file, storage.FileInfo{
		Filename: header.Filename,
		Kind:     kind,
		Size:     header.Size,
	})
}

func (app *App) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs, err := app.Jobs.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	respondJSON(w, http.StatusOK, jobs)
}

func (app *App) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	j := app.lookupJob(w, r)
	if j == nil {
		return
	}
	respondJSON(w, http.StatusOK, j)
}

func (app *App) StartJobHandler(w http.ResponseWriter, r *http.Request) {
	j := app.lookupJob(w, r)
	if j == nil {
		return
	}

	if _, err := app.Jobs.Start(r.Context(), j.ID); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     j.ID,
		"status": string(models.JobProcessing),
	})
}

// JobEventsHandler streams pipeline progress as server-sent events. For jobs
// that already finished it emits a single terminal event and returns.
func (app *App) JobEventsHandler(w http.ResponseWriter, r *http.Request) {
	j := app.lookupJob(w, r)
	if j == nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	session, exists := app.Jobs.GetSession(j.ID)
	if !exists {
		writeEvent(w, terminalEvent(j))
		flusher.Flush()
		return
	}

	clientGone := r.Context().Done()

	for {
		select {
		case event, ok := <-session.Updates:
			if !ok {
				return
			}
			writeEvent(w, event)
			flusher.Flush()

		case <-clientGone:
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event pipeline.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[api] failed to marshal event: %v", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Step, data)
}

func terminalEvent(j *models.Job) pipeline.Event {
	switch j.Status {
	case models.JobReady:
		return pipeline.Event{Step: pipeline.StepDone, Progress: 1.0, Message: "video ready"}
	case models.JobError:
		return pipeline.Event{Step: pipeline.StepError, Message: j.Error}
	default:
		return pipeline.Event{Step: pipeline.Step(j.Status), Message: "not started"}
	}
}

func (app *App) DownloadVideoHandler(w http.ResponseWriter, r *http.Request) {
	j := app.lookupJob(w, r)
	if j == nil {
		return
	}
	if j.Status != models.JobReady {
		respondError(w, http.StatusConflict, fmt.Sprintf("job is %s, not ready", j.Status))
		return
	}
	if _, err := os.Stat(j.OutputFile); err != nil {
		respondError(w, http.StatusNotFound, "video file not found")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="karaoke.mp4"`)
	// ServeFile handles Range requests, so the result is also seekable in a
	// browser player.
	http.ServeFile(w, r, j.OutputFile)
}

// DownloadSubtitlesHandler serves the SRT written alongside the video, or
// the VTT when format=vtt is requested.
func (app *App) DownloadSubtitlesHandler(w http.ResponseWriter, r *http.Request) {
	j := app.lookupJob(w, r)
	if j == nil {
		return
	}
	if j.Status != models.JobReady {
		respondError(w, http.StatusConflict, fmt.Sprintf("job is %s, not ready", j.Status))
		return
	}

	ext := ".srt"
	contentType := "application/x-subrip"
	if r.URL.Query().Get("format") == "vtt" {
		ext = ".vtt"
		contentType = "text/vtt"
	}

	path := strings.TrimSuffix(j.OutputFile, ".mp4") + ext
	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "subtitle file not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="karaoke%s"`, ext))
	http.ServeFile(w, r, path)
}

// lookupJob resolves the {id} route parameter, writing the error response
// itself and returning nil when the job cannot be served.
func (app *App) lookupJob(w http.ResponseWriter, r *http.Request) *models.Job {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing job id")
		return nil
	}
	j, err := app.Jobs.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load job")
		return nil
	}
	if j == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", id))
		return nil
	}
	return j
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[api] failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
