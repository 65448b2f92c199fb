package audio

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidDuration = errors.New("frame duration must be positive")

// Frame is a contiguous slice of a decoded waveform.
type Frame struct {
	Index       int
	Samples     []float64
	SampleRate  int
	StartOffset float64 // seconds from the start of the file
}

// FrameLength is the number of samples in a full frame of the given duration,
// rounded to the nearest sample.
func FrameLength(duration float64, sampleRate int) int {
	return int(math.Round(duration * float64(sampleRate)))
}

// SliceFrames cuts samples into consecutive frames of duration seconds.
// There are ceil(len/frameLength) frames; the last one may be shorter and is
// not padded. Frames share the backing array of samples.
func SliceFrames(samples []float64, sampleRate int, duration float64) ([]Frame, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	frameLength := FrameLength(duration, sampleRate)
	if frameLength <= 0 {
		return nil, fmt.Errorf("%w: %.4fs is shorter than one sample at %d Hz", ErrInvalidDuration, duration, sampleRate)
	}

	total := (len(samples) + frameLength - 1) / frameLength
	frames := make([]Frame, 0, total)
	for i := 0; i < total; i++ {
		start := i * frameLength
		end := min((i+1)*frameLength, len(samples))
		frames = append(frames, Frame{
			Index:       i,
			Samples:     samples[start:end],
			SampleRate:  sampleRate,
			StartOffset: float64(start) / float64(sampleRate),
		})
	}
	return frames, nil
}
