package analysisstub

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/okian/neurolens/internal/domain/feedback"
)

// RMS thresholds on 16-bit PCM amplitude.
const (
	silenceRMS = 300
	speechRMS  = 600
	loudRMS    = 3000
)

// blockRMS decodes a base64 little-endian PCM16 block and returns its RMS.
func blockRMS(payload string) (float64, error) {
	raw, err := decodeBase64Payload(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBadAudio, err)
	}
	n := len(raw) / 2
	if n == 0 {
		return 0, fmt.Errorf("%w: no samples", ErrBadAudio)
	}
	var sum float64
	for i := range n {
		s := float64(int16(binary.LittleEndian.Uint16(raw[2*i:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n)), nil
}

// VolumeLevel buckets an RMS value.
func VolumeLevel(rms float64) string {
	switch {
	case rms < silenceRMS:
		return feedback.VolumeSilence
	case rms < speechRMS:
		return feedback.VolumeQuiet
	case rms < loudRMS:
		return feedback.VolumeModerate
	default:
		return feedback.VolumeLoud
	}
}

// audioSession keeps running chunk counts for one audio connection.
type audioSession struct {
	total   int
	speech  int
	silence int
	sumRMS  float64
	maxRMS  float64
}

func (s *audioSession) observe(rms float64) feedback.Vocalization {
	s.total++
	s.sumRMS += rms
	s.maxRMS = max(s.maxRMS, rms)
	isSpeech := rms > speechRMS
	switch {
	case isSpeech:
		s.speech++
	case rms < silenceRMS:
		s.silence++
	}
	return feedback.Vocalization{
		RMS:             rms,
		IsSpeech:        isSpeech,
		VolumeLevel:     VolumeLevel(rms),
		VocalPercentage: float64(s.speech) / float64(s.total) * 100,
		SpeechChunks:    s.speech,
		TotalChunks:     s.total,
	}
}
