package audio

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/nlouis56/vroume/pkg/utils"
)

// SegmentConfig controls active-part extraction.
type SegmentConfig struct {
	Threshold       float64 // fraction of the loudest RMS frame that counts as active
	MinGap          float64 // seconds; closer active frames merge into one segment
	SegmentDuration float64 // seconds per written piece
	FrameSize       int
	HopSize         int
}

func DefaultSegmentConfig() SegmentConfig {
	return SegmentConfig{
		Threshold:       0.1,
		MinGap:          1.0,
		SegmentDuration: 5.0,
		FrameSize:       2048,
		HopSize:         512,
	}
}

// Segment is a span of active audio, in seconds.
type Segment struct {
	Start float64
	End   float64
}

func frameRMS(samples []float64, frameSize, hopSize int) []float64 {
	if len(samples) == 0 {
		return nil
	}
	n := 1
	if len(samples) > frameSize {
		n = 1 + (len(samples)-frameSize)/hopSize
	}
	out := make([]float64, n)
	for i := range out {
		start := i * hopSize
		end := min(start+frameSize, len(samples))
		sum := 0.0
		for _, s := range samples[start:end] {
			sum += s * s
		}
		out[i] = math.Sqrt(sum / float64(end-start))
	}
	return out
}

// ActiveSegments finds spans whose short-term energy exceeds
// cfg.Threshold times the peak energy of the signal.
func ActiveSegments(samples []float64, sampleRate int, cfg SegmentConfig) []Segment {
	if sampleRate <= 0 || cfg.FrameSize <= 0 || cfg.HopSize <= 0 {
		return nil
	}
	rms := frameRMS(samples, cfg.FrameSize, cfg.HopSize)
	peak := 0.0
	for _, v := range rms {
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		return nil
	}

	var segments []Segment
	for i, v := range rms {
		if v <= cfg.Threshold*peak {
			continue
		}
		t := float64(i*cfg.HopSize) / float64(sampleRate)
		if n := len(segments); n > 0 && t-segments[n-1].End <= cfg.MinGap {
			segments[n-1].End = t
			continue
		}
		segments = append(segments, Segment{Start: t, End: t})
	}
	return segments
}

// ExtractActiveParts writes every full SegmentDuration piece of the active
// segments of a file to outDir as <stem>_<segment>_<piece>.wav and returns
// the written paths.
func ExtractActiveParts(path, outDir string, cfg SegmentConfig) ([]string, error) {
	if cfg.SegmentDuration <= 0 {
		return nil, ErrInvalidDuration
	}
	samples, sr, err := ReadWavAsFloat64(path)
	if err != nil {
		return nil, err
	}
	if err := utils.MakeDir(outDir); err != nil {
		return nil, err
	}

	stem := utils.FileStem(path)
	pieceLen := FrameLength(cfg.SegmentDuration, sr)
	var written []string
	for i, seg := range ActiveSegments(samples, sr, cfg) {
		piece := 0
		for start := seg.Start; seg.End-start >= cfg.SegmentDuration; start += cfg.SegmentDuration {
			from := int(start * float64(sr))
			to := min(from+pieceLen, len(samples))
			out := filepath.Join(outDir, fmt.Sprintf("%s_%d_%d.wav", stem, i, piece))
			if err := WriteWav(out, samples[from:to], sr); err != nil {
				return written, err
			}
			written = append(written, out)
			piece++
		}
	}
	return written, nil
}
