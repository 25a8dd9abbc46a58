package capture

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
)

// SyntheticDevices generate a test pattern and a tone. They stand in for real
// hardware on headless hosts.
type SyntheticDevices struct {
	width, height int
	paced         bool
}

// NewSyntheticDevices creates synthetic devices. Audio is paced in real time
// unless paced is false.
func NewSyntheticDevices(paced bool) *SyntheticDevices {
	return &SyntheticDevices{width: DefaultWidth, height: DefaultHeight, paced: paced}
}

// OpenCamera returns a pattern with a bright disc sweeping left and right.
func (s *SyntheticDevices) OpenCamera(_ context.Context) (VideoSource, error) {
	return &syntheticCamera{width: s.width, height: s.height}, nil
}

// OpenMicrophone returns a 220 Hz tone gated on and off once per second.
func (s *SyntheticDevices) OpenMicrophone(_ context.Context, sampleRate int) (AudioSource, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	rate := 0
	if s.paced {
		rate = sampleRate
	}
	return &syntheticMic{sampleRate: sampleRate, pacer: blockPacer{sampleRate: rate}}, nil
}

type syntheticCamera struct {
	mu            sync.Mutex
	width, height int
	tick          int
	closed        bool
}

func (c *syntheticCamera) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	c.tick++

	img := image.NewGray(image.Rect(0, 0, c.width, c.height))
	for i := range img.Pix {
		img.Pix[i] = 32
	}
	phase := float64(c.tick) / 90
	cx := float64(c.width) * (0.5 + 0.35*math.Sin(phase))
	cy := float64(c.height) * 0.45
	r := float64(c.height) / 6
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r*r {
				img.SetGray(x, y, color.Gray{Y: 220})
			}
		}
	}
	return img, nil
}

func (c *syntheticCamera) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

type syntheticMic struct {
	mu         sync.Mutex
	sampleRate int
	n          int
	pacer      blockPacer
	closed     bool
}

func (m *syntheticMic) Read(ctx context.Context, buf []float32) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	for i := range buf {
		t := float64(m.n) / float64(m.sampleRate)
		gate := 0.0
		if math.Mod(t, 1) < 0.5 {
			gate = 0.3
		}
		buf[i] = float32(gate * math.Sin(2*math.Pi*220*t))
		m.n++
	}
	m.mu.Unlock()
	return m.pacer.wait(ctx, len(buf))
}

func (m *syntheticMic) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
