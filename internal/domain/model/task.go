// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// Task identifies one exercise and doubles as the wire tag sent to the
// analysis service.
type Task string

// Exercise tags, in session order.
const (
	TaskEyeContact   Task = "eye_contact"
	TaskNameResponse Task = "name_response"
	TaskVocalization Task = "vocalization"
	TaskGestures     Task = "gestures"
	TaskRepetitive   Task = "repetitive"
)

// Sequence returns the fixed module order of a session.
func Sequence() []Task {
	return []Task{TaskEyeContact, TaskNameResponse, TaskVocalization, TaskGestures, TaskRepetitive}
}

// ParseTask validates a wire tag.
func ParseTask(s string) (Task, error) {
	t := Task(s)
	if t.Step() == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownTask, s)
	}
	return t, nil
}

// Step returns the 1-based position of t in the session, or 0 if t is unknown.
func (t Task) Step() int {
	for i, s := range Sequence() {
		if s == t {
			return i + 1
		}
	}
	return 0
}

// Audio reports whether the task captures the microphone instead of the camera.
func (t Task) Audio() bool { return t == TaskVocalization }

// Duration is the countdown length of the task.
func (t Task) Duration() time.Duration {
	switch t {
	case TaskEyeContact:
		return 60 * time.Second
	case TaskNameResponse:
		return 10 * time.Second
	case TaskVocalization, TaskGestures, TaskRepetitive:
		return 20 * time.Second
	default:
		return 0
	}
}

func (t Task) String() string { return string(t) }

// Score is a module outcome: 0 typical, 1 some concern, 2 most concerning.
type Score int

// Module score values.
const (
	ScoreTypical Score = 0
	ScoreMild    Score = 1
	ScoreConcern Score = 2
)

// Valid reports whether s is one of the three module score values.
func (s Score) Valid() bool { return s >= ScoreTypical && s <= ScoreConcern }

func (s Score) String() string { return fmt.Sprintf("%d", int(s)) }
