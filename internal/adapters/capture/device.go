// Package capture acquires camera and microphone samples, encodes them for
// the wire, and pumps them into a telemetry sink while a module records.
package capture

import (
	"context"
	"image"
	"io"
	"time"
)

// Default capture geometry and rates.
const (
	DefaultWidth      = 320
	DefaultHeight     = 240
	DefaultSampleRate = 16000
	DefaultBlockSize  = 4096
)

// Devices acquires media sources. A source is owned by one module at a time
// and must be closed when that module stops.
type Devices interface {
	OpenCamera(ctx context.Context) (VideoSource, error)
	OpenMicrophone(ctx context.Context, sampleRate int) (AudioSource, error)
}

// VideoSource yields the current camera frame.
type VideoSource interface {
	io.Closer
	Frame(ctx context.Context) (image.Image, error)
}

// AudioSource fills buf with the next mono float32 samples in [-1,1],
// blocking until they are available.
type AudioSource interface {
	io.Closer
	Read(ctx context.Context, buf []float32) error
}

// blockPacer releases audio blocks at the rate a live microphone would.
type blockPacer struct {
	sampleRate int
	next       time.Time
}

func (p *blockPacer) wait(ctx context.Context, samples int) error {
	if p.sampleRate <= 0 {
		return ctx.Err()
	}
	now := time.Now()
	if p.next.IsZero() || p.next.Before(now) {
		p.next = now
	}
	p.next = p.next.Add(time.Duration(samples) * time.Second / time.Duration(p.sampleRate))
	t := time.NewTimer(time.Until(p.next))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
