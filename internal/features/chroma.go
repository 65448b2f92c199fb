package features

import "math"

const (
	tuningFreq = 440.0
	numChroma  = 12
)

func frequencyToMIDI(f float64) float64 {
	return 69.0 + 12.0*math.Log2(f/tuningFreq)
}

// chromaMapping assigns each STFT bin to a pitch class (C=0), or -1 for DC
// and bins below the audible range.
func chromaMapping(freqs []float64) []int {
	m := make([]int, len(freqs))
	for k, f := range freqs {
		if f < 20 {
			m[k] = -1
			continue
		}
		// MIDI 60 is C
		pc := int(math.Round(frequencyToMIDI(f))) % numChroma
		if pc < 0 {
			pc += numChroma
		}
		m[k] = pc
	}
	return m
}

// ChromaSTFT folds a power spectrogram onto 12 pitch classes and normalizes
// each frame to a peak of 1. The result is chroma-major: out[class][frame].
func ChromaSTFT(power [][]float64, freqs []float64) [][]float64 {
	mapping := chromaMapping(freqs)
	out := make([][]float64, numChroma)
	for c := range out {
		out[c] = make([]float64, len(power))
	}
	for t, frame := range power {
		peak := 0.0
		for k, v := range frame {
			if c := mapping[k]; c >= 0 {
				out[c][t] += v
			}
		}
		for c := range out {
			peak = math.Max(peak, out[c][t])
		}
		if peak > 0 {
			for c := range out {
				out[c][t] /= peak
			}
		}
	}
	return out
}
