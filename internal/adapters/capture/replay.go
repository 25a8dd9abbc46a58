package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Replay layout inside the replay directory.
const (
	ReplayFramesDir = "frames"
	ReplayAudioFile = "audio.f32"
)

// ReplayDevices plays back a recorded session: frames/ holds JPEG or PNG
// stills looped in name order, audio.f32 holds little-endian float32 mono
// samples looped at the requested rate.
type ReplayDevices struct {
	dir    string
	paced  bool
	mu     sync.Mutex
	frames []image.Image
}

// ReplayOption configures ReplayDevices.
type ReplayOption func(*ReplayDevices)

// WithoutPacing releases audio blocks as fast as they are read.
func WithoutPacing() ReplayOption {
	return func(r *ReplayDevices) { r.paced = false }
}

// NewReplayDevices creates devices backed by dir.
func NewReplayDevices(dir string, opts ...ReplayOption) *ReplayDevices {
	r := &ReplayDevices{dir: dir, paced: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OpenCamera loads the frames on first use and returns a looping source.
func (r *ReplayDevices) OpenCamera(_ context.Context) (VideoSource, error) {
	frames, err := r.loadFrames()
	if err != nil {
		return nil, err
	}
	return &replayCamera{frames: frames}, nil
}

func (r *ReplayDevices) loadFrames() ([]image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frames != nil {
		return r.frames, nil
	}
	dir := filepath.Join(r.dir, ReplayFramesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: camera: %w", ErrDeviceUnavailable, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	slices.Sort(names)
	frames := make([]image.Image, 0, len(names))
	for _, name := range names {
		img, err := decodeFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: frame %s: %w", ErrDeviceUnavailable, name, err)
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFrames, dir)
	}
	r.frames = frames
	return frames, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	return img, err
}

// OpenMicrophone reads the whole sample file into memory.
func (r *ReplayDevices) OpenMicrophone(_ context.Context, sampleRate int) (AudioSource, error) {
	raw, err := os.ReadFile(filepath.Join(r.dir, ReplayAudioFile))
	if err != nil {
		return nil, fmt.Errorf("%w: microphone: %w", ErrDeviceUnavailable, err)
	}
	samples, err := DecodeFloat32LE(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: microphone: %w", ErrDeviceUnavailable, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: microphone: empty sample file", ErrDeviceUnavailable)
	}
	rate := 0
	if r.paced {
		rate = sampleRate
	}
	return &replayMic{samples: samples, pacer: blockPacer{sampleRate: rate}}, nil
}

// DecodeFloat32LE parses little-endian float32 samples.
func DecodeFloat32LE(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, errors.New("sample data is not a multiple of 4 bytes")
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

type replayCamera struct {
	mu     sync.Mutex
	frames []image.Image
	pos    int
	closed bool
}

func (c *replayCamera) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	img := c.frames[c.pos]
	c.pos = (c.pos + 1) % len(c.frames)
	return img, nil
}

func (c *replayCamera) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

type replayMic struct {
	mu      sync.Mutex
	samples []float32
	pos     int
	pacer   blockPacer
	closed  bool
}

func (m *replayMic) Read(ctx context.Context, buf []float32) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	for i := range buf {
		buf[i] = m.samples[m.pos]
		m.pos = (m.pos + 1) % len(m.samples)
	}
	m.mu.Unlock()
	return m.pacer.wait(ctx, len(buf))
}

func (m *replayMic) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
