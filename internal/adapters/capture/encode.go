package capture

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// JPEGDataURLPrefix starts every encoded frame.
const JPEGDataURLPrefix = "data:image/jpeg;base64,"

// FrameEncoder draws camera frames into an off-screen raster and encodes
// them as JPEG data URLs.
type FrameEncoder struct {
	width, height int
	quality       int
	mirror        bool
	raster        *image.RGBA
	buf           bytes.Buffer
}

// EncoderOption configures a FrameEncoder.
type EncoderOption func(*FrameEncoder)

// WithSize sets the raster size.
func WithSize(width, height int) EncoderOption {
	return func(e *FrameEncoder) {
		if width > 0 && height > 0 {
			e.width, e.height = width, height
		}
	}
}

// WithMirror flips frames horizontally to match a mirrored preview.
func WithMirror(mirror bool) EncoderOption {
	return func(e *FrameEncoder) { e.mirror = mirror }
}

// WithQuality sets JPEG quality as a fraction in (0,1].
func WithQuality(q float64) EncoderOption {
	return func(e *FrameEncoder) {
		if q > 0 && q <= 1 {
			e.quality = int(q*100 + 0.5)
		}
	}
}

// NewFrameEncoder creates an encoder. It is not safe for concurrent use.
func NewFrameEncoder(opts ...EncoderOption) *FrameEncoder {
	e := &FrameEncoder{width: DefaultWidth, height: DefaultHeight, quality: 50}
	for _, opt := range opts {
		opt(e)
	}
	e.raster = image.NewRGBA(image.Rect(0, 0, e.width, e.height))
	return e
}

// Quality returns the JPEG quality on the 1..100 scale.
func (e *FrameEncoder) Quality() int { return e.quality }

// Draw renders src into the raster and returns it. The raster is reused by
// the next call.
func (e *FrameEncoder) Draw(src image.Image) *image.RGBA {
	sb := src.Bounds()
	db := e.raster.Bounds()
	if !e.mirror {
		draw.ApproxBiLinear.Scale(e.raster, db, src, sb, draw.Src, nil)
		return e.raster
	}
	sx := float64(db.Dx()) / float64(sb.Dx())
	sy := float64(db.Dy()) / float64(sb.Dy())
	// Maps source pixels to destination pixels, flipped on x.
	m := f64.Aff3{
		-sx, 0, float64(db.Max.X) + sx*float64(sb.Min.X),
		0, sy, float64(db.Min.Y) - sy*float64(sb.Min.Y),
	}
	draw.ApproxBiLinear.Transform(e.raster, m, src, sb, draw.Src, nil)
	return e.raster
}

// Encode draws src and returns it as a JPEG data URL.
func (e *FrameEncoder) Encode(src image.Image) (string, error) {
	raster := e.Draw(src)
	e.buf.Reset()
	if err := jpeg.Encode(&e.buf, raster, &jpeg.Options{Quality: e.quality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return JPEGDataURLPrefix + base64.StdEncoding.EncodeToString(e.buf.Bytes()), nil
}

// PCM16 converts one float sample to a signed 16-bit value. The sample is
// clipped to [-1,1]; negatives scale by 32768 and the rest by 32767.
func PCM16(s float32) int16 {
	switch {
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	case math.IsNaN(float64(s)):
		s = 0
	}
	if s < 0 {
		return int16(s * 0x8000)
	}
	return int16(s * 0x7FFF)
}

// EncodePCM16 converts samples to little-endian 16-bit PCM.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(PCM16(s)))
	}
	return out
}

// EncodeAudioBlock returns samples as base64 16-bit PCM.
func EncodeAudioBlock(samples []float32) string {
	return base64.StdEncoding.EncodeToString(EncodePCM16(samples))
}
