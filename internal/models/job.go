package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a render job.
type JobStatus string

const (
	JobUploaded   JobStatus = "uploaded"
	JobProcessing JobStatus = "processing"
	JobReady      JobStatus = "ready"
	JobError      JobStatus = "error"
)

// validTransitions maps a status to the statuses it may move to.
var validTransitions = map[JobStatus][]JobStatus{
	JobUploaded:   {JobProcessing},
	JobProcessing: {JobReady, JobError},
}

// CanTransition reports whether moving from to next is a legal job
// lifecycle step.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Job is one pipeline invocation tracked by the server: an uploaded input,
// its processing state, and the produced video path once ready.
type Job struct {
	ID         string    `json:"id"`
	Status     JobStatus `json:"status"`
	InputMode  string    `json:"input_mode"`
	TextFile   string    `json:"text_file,omitempty"`
	AudioFile  string    `json:"audio_file,omitempty"`
	OutputFile string    `json:"output_file,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewJob(inputMode, textFile, audioFile string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		Status:    JobUploaded,
		InputMode: inputMode,
		TextFile:  textFile,
		AudioFile: audioFile,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the job to next, rejecting illegal lifecycle steps.
func (j *Job) Transition(next JobStatus) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("invalid job transition %s -> %s", j.Status, next)
	}
	j.Status = next
	j.UpdatedAt = time.Now()
	return nil
}
