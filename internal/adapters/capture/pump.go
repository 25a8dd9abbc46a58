package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/pkg/metrics"
)

// Sink accepts outbound telemetry. Send must not block.
type Sink interface {
	Connected() bool
	Send(msg model.Outbound) bool
}

// VideoPump sends one encoded camera frame per display refresh while the
// sink is connected.
type VideoPump struct {
	Task      model.Task
	Source    VideoSource
	Encoder   *FrameEncoder
	Sink      Sink
	RefreshHz int
}

// Run blocks until ctx is done or the source fails. It returns nil on ctx
// cancellation.
func (p *VideoPump) Run(ctx context.Context) error {
	hz := p.RefreshHz
	if hz <= 0 {
		hz = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if !p.Sink.Connected() {
			continue
		}
		frame, err := p.Source.Frame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			metrics.RecordCaptureError(string(p.Task), "read")
			return fmt.Errorf("read frame: %w", err)
		}
		data, err := p.Encoder.Encode(frame)
		if err != nil {
			metrics.RecordCaptureError(string(p.Task), "encode")
			continue
		}
		p.Sink.Send(model.Outbound{Task: p.Task, Image: data})
	}
}

// AudioPump sends each block of samples as soon as the source fills it.
type AudioPump struct {
	Task      model.Task
	Source    AudioSource
	Sink      Sink
	BlockSize int
}

// Run blocks until ctx is done or the source fails. It returns nil on ctx
// cancellation.
func (p *AudioPump) Run(ctx context.Context) error {
	size := p.BlockSize
	if size <= 0 {
		size = DefaultBlockSize
	}
	buf := make([]float32, size)
	for {
		if err := p.Source.Read(ctx, buf); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			metrics.RecordCaptureError(string(p.Task), "read")
			return fmt.Errorf("read audio: %w", err)
		}
		if !p.Sink.Connected() {
			continue
		}
		p.Sink.Send(model.Outbound{Task: p.Task, Audio: EncodeAudioBlock(buf)})
	}
}
