package module

import (
	"time"

	"github.com/okian/neurolens/internal/adapters/capture"
	"github.com/okian/neurolens/internal/domain/model"
)

// Params are the per-session inputs the exercises need.
type Params struct {
	ChildName         string
	SpeechRecognition bool
	NameFallbackDelay time.Duration
}

// Sequence builds the five modules of a session in order.
func Sequence(p Params, devices capture.Devices, dialer Dialer, opts ...Option) []Module {
	return []Module{
		New[EyeContactState](EyeContact{}, devices, dialer, opts...),
		New[NameResponseState](NameResponse{
			ChildName:         p.ChildName,
			SpeechRecognition: p.SpeechRecognition,
			FallbackDelay:     p.NameFallbackDelay,
		}, devices, dialer, opts...),
		New[VocalizationState](Vocalization{}, devices, dialer, opts...),
		New[GesturesState](Gestures{}, devices, dialer, opts...),
		New[RepetitiveState](Repetitive{}, devices, dialer, opts...),
	}
}

// Tasks returns the tags of modules in order.
func Tasks(modules []Module) []model.Task {
	out := make([]model.Task, len(modules))
	for i, m := range modules {
		out[i] = m.Task()
	}
	return out
}
