package pipeline

// Step identifies a pipeline stage in progress events.
type Step string

const (
	StepReadText   Step = "read_text"
	StepTTS        Step = "tts"
	StepTranscribe Step = "transcribe"
	StepAlign      Step = "align"
	StepChunk      Step = "chunk"
	StepRender     Step = "rendering"
	StepDone       Step = "done"
	StepError      Step = "error"
)

// Event is one progress checkpoint: which step, how far along (0..1), and a
// human-readable message.
type Event struct {
	Step     Step    `json:"step"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}
