// Package feedback decodes the per-task messages the analysis service sends
// back over a telemetry link into typed variants.
//
// Decoding happens at the link boundary: a message that does not fit its
// task's variant is rejected there and never reaches a module reducer.
package feedback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/okian/neurolens/internal/domain/model"
)

// Feedback is one decoded message. The concrete type is one of EyeContact,
// NameResponse, Vocalization, Gestures or Repetitive.
type Feedback interface {
	Task() model.Task
	isFeedback()
}

// Side values reported for the visual-preference exercise.
const (
	SideSocial    = "social"
	SideGeometric = "geometric"
	SideNone      = "none"
)

// Volume levels reported for audio chunks.
const (
	VolumeSilence  = "silence"
	VolumeQuiet    = "quiet"
	VolumeModerate = "moderate"
	VolumeLoud     = "loud"
)

// EyeContact is feedback for the visual-preference exercise.
type EyeContact struct {
	FaceDetected bool     `json:"face_detected"`
	CurrentSide  string   `json:"current_side,omitempty"`
	GazeX        *float64 `json:"gaze_x,omitempty"`
}

// NameResponse is feedback for the response-to-name exercise.
type NameResponse struct {
	FaceDetected     bool    `json:"face_detected"`
	HeadTurnDetected bool    `json:"head_turn_detected"`
	YawChange        float64 `json:"yaw_change,omitempty"`
}

// Vocalization is feedback for one audio block.
type Vocalization struct {
	RMS             float64 `json:"rms"`
	IsSpeech        bool    `json:"is_speech"`
	VolumeLevel     string  `json:"volume_level,omitempty"`
	VocalPercentage float64 `json:"vocal_percentage"`
	SpeechChunks    int     `json:"speech_chunks"`
	TotalChunks     int     `json:"total_chunks"`
}

// Gestures is feedback for the gestures exercise.
type Gestures struct {
	HandsDetected bool `json:"hands_detected"`
}

// Repetitive is feedback for the repetitive-movement exercise.
type Repetitive struct {
	PoseDetected   bool    `json:"pose_detected"`
	MovementScore  float64 `json:"movement_score"`
	TotalMovements int     `json:"total_movements,omitempty"`
	HandFlapping   bool    `json:"hand_flapping_detected,omitempty"`
	Rocking        bool    `json:"rocking_detected,omitempty"`
	ArmSwaying     bool    `json:"arm_swaying_detected,omitempty"`
}

func (EyeContact) Task() model.Task   { return model.TaskEyeContact }
func (NameResponse) Task() model.Task { return model.TaskNameResponse }
func (Vocalization) Task() model.Task { return model.TaskVocalization }
func (Gestures) Task() model.Task     { return model.TaskGestures }
func (Repetitive) Task() model.Task   { return model.TaskRepetitive }

func (EyeContact) isFeedback()   {}
func (NameResponse) isFeedback() {}
func (Vocalization) isFeedback() {}
func (Gestures) isFeedback()     {}
func (Repetitive) isFeedback()   {}

// Decode parses a raw message for task and validates it.
func Decode(task model.Task, data []byte) (Feedback, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: %s: not a JSON object", ErrMalformed, task)
	}
	switch task {
	case model.TaskEyeContact:
		var f EyeContact
		if err := unmarshal(task, data, &f); err != nil {
			return nil, err
		}
		return f, f.validate()
	case model.TaskNameResponse:
		var f NameResponse
		if err := unmarshal(task, data, &f); err != nil {
			return nil, err
		}
		return f, f.validate()
	case model.TaskVocalization:
		var f Vocalization
		if err := unmarshal(task, data, &f); err != nil {
			return nil, err
		}
		return f, f.validate()
	case model.TaskGestures:
		var f Gestures
		if err := unmarshal(task, data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case model.TaskRepetitive:
		var f Repetitive
		if err := unmarshal(task, data, &f); err != nil {
			return nil, err
		}
		return f, f.validate()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
}

func unmarshal(task model.Task, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformed, task, err)
	}
	return nil
}

func (f EyeContact) validate() error {
	switch f.CurrentSide {
	case "", SideSocial, SideGeometric, SideNone:
	default:
		return fmt.Errorf("%w: eye_contact: current_side %q", ErrMalformed, f.CurrentSide)
	}
	if f.GazeX != nil && !finite(*f.GazeX) {
		return fmt.Errorf("%w: eye_contact: gaze_x", ErrMalformed)
	}
	return nil
}

func (f NameResponse) validate() error {
	if !finite(f.YawChange) || f.YawChange < 0 {
		return fmt.Errorf("%w: name_response: yaw_change %v", ErrMalformed, f.YawChange)
	}
	return nil
}

func (f Vocalization) validate() error {
	if !finite(f.VocalPercentage) || f.VocalPercentage < 0 || f.VocalPercentage > 100 {
		return fmt.Errorf("%w: vocalization: vocal_percentage %v", ErrMalformed, f.VocalPercentage)
	}
	if !finite(f.RMS) || f.RMS < 0 {
		return fmt.Errorf("%w: vocalization: rms %v", ErrMalformed, f.RMS)
	}
	if f.SpeechChunks < 0 || f.TotalChunks < 0 || f.SpeechChunks > f.TotalChunks {
		return fmt.Errorf("%w: vocalization: chunk counts %d/%d", ErrMalformed, f.SpeechChunks, f.TotalChunks)
	}
	return nil
}

func (f Repetitive) validate() error {
	if !finite(f.MovementScore) || f.MovementScore < 0 {
		return fmt.Errorf("%w: repetitive: movement_score %v", ErrMalformed, f.MovementScore)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
