package analysisstub

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"strings"

	"golang.org/x/image/draw"
)

// Observation is what a FrameAnalyzer sees in one frame. Coordinates are
// normalized to [0,1] of the frame width.
type Observation struct {
	FaceDetected  bool
	FaceX         float64
	GazeX         float64
	HeadYaw       float64
	HandsDetected bool
	PoseDetected  bool
	BodyX         float64
}

// FrameAnalyzer turns a decoded frame into an Observation.
type FrameAnalyzer interface {
	Analyze(img image.Image) Observation
}

// Luminance analyzer tuning.
const (
	probeWidth     = 32
	probeHeight    = 24
	minContrast    = 64
	handsCoverage  = 0.02
	yawSensitivity = 0.5
)

// LuminanceAnalyzer is a landmark-free stand-in for a vision model. It treats
// the bright blob in a frame as the subject: the blob's centroid drives face
// and body position, its offset from center drives head yaw, and bright
// pixels in the lower half count as hands.
type LuminanceAnalyzer struct{}

// Analyze implements FrameAnalyzer.
func (LuminanceAnalyzer) Analyze(img image.Image) Observation {
	probe := image.NewGray(image.Rect(0, 0, probeWidth, probeHeight))
	draw.ApproxBiLinear.Scale(probe, probe.Bounds(), img, img.Bounds(), draw.Src, nil)

	lo, hi := uint8(255), uint8(0)
	for _, p := range probe.Pix {
		lo = min(lo, p)
		hi = max(hi, p)
	}
	if int(hi)-int(lo) < minContrast {
		return Observation{}
	}
	mid := (int(lo) + int(hi)) / 2

	var sumX, weight float64
	lower := 0
	for y := range probeHeight {
		for x := range probeWidth {
			l := int(probe.Pix[y*probe.Stride+x])
			if l <= mid {
				continue
			}
			w := float64(l - mid)
			sumX += w * (float64(x) + 0.5)
			weight += w
			if y >= probeHeight/2 {
				lower++
			}
		}
	}
	if weight == 0 {
		return Observation{}
	}
	cx := sumX / weight / probeWidth
	return Observation{
		FaceDetected:  true,
		FaceX:         cx,
		GazeX:         cx,
		HeadYaw:       (cx - 0.5) * yawSensitivity,
		HandsDetected: float64(lower)/float64(probeWidth*probeHeight) >= handsCoverage,
		PoseDetected:  true,
		BodyX:         cx,
	}
}

// decodeFrame parses a data URL or bare base64 image.
func decodeFrame(payload string) (image.Image, error) {
	raw, err := decodeBase64Payload(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadFrame, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadFrame, err)
	}
	return img, nil
}

// decodeBase64Payload strips an optional "data:...," prefix and decodes the rest.
func decodeBase64Payload(payload string) ([]byte, error) {
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("empty payload")
	}
	return base64.StdEncoding.DecodeString(payload)
}
