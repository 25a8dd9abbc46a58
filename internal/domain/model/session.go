package model

import "time"

// SubmissionStatus tracks the end-of-session batch call.
type SubmissionStatus string

// Submission states.
const (
	SubmissionIdle       SubmissionStatus = "idle"
	SubmissionSubmitting SubmissionStatus = "submitting"
	SubmissionDone       SubmissionStatus = "done"
	SubmissionError      SubmissionStatus = "error"
)

// ModuleState is the observable state of the active module.
type ModuleState string

// Module states.
const (
	StateIdle      ModuleState = "idle"
	StateArming    ModuleState = "arming"
	StateArmed     ModuleState = "armed"
	StateRecording ModuleState = "recording"
	StateFinished  ModuleState = "finished"
	StateFailed    ModuleState = "failed"
)

// SessionSnapshot is a point-in-time view of a running session.
type SessionSnapshot struct {
	ID          string           `json:"id"`
	ChildName   string           `json:"childName,omitempty"`
	AgeMonths   int              `json:"ageMonths"`
	Step        int              `json:"step"`
	Task        Task             `json:"task,omitempty"`
	ModuleState ModuleState      `json:"moduleState,omitempty"`
	Remaining   int              `json:"remainingSec"`
	Connected   bool             `json:"connected"`
	LastError   string           `json:"lastError,omitempty"`
	Feedback    any              `json:"feedback,omitempty"`
	Submission  SubmissionStatus `json:"submission"`
	Abandoned   bool             `json:"abandoned,omitempty"`
	Results     []ModuleResult   `json:"results"`
	Assessment  *RiskAssessment  `json:"assessment,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// SessionRequest describes a session to create.
type SessionRequest struct {
	ChildName string `json:"childName"`
	AgeMonths int    `json:"ageMonths,omitempty"`
	// SpeechRecognition is true when the caregiver's device will post
	// transcripts for the name cue.
	SpeechRecognition bool `json:"speechRecognition,omitempty"`
	// Headless auto-starts every module and skips failures.
	Headless bool `json:"headless,omitempty"`
}
