package features

import "math"

// framesOf yields the start offsets of centered analysis windows over a
// signal of n samples padded by frameLength/2 on each side.
func framesOf(n, frameLength, hop int) int {
	padded := n + 2*(frameLength/2)
	if padded < frameLength {
		return 1
	}
	return 1 + (padded-frameLength)/hop
}

// RMS is the root-mean-square energy of centered, zero-padded windows.
func RMS(samples []float64, frameLength, hop int) []float64 {
	pad := frameLength / 2
	count := framesOf(len(samples), frameLength, hop)
	out := make([]float64, count)
	for t := range out {
		start := t*hop - pad
		sum := 0.0
		for i := start; i < start+frameLength; i++ {
			if i >= 0 && i < len(samples) {
				sum += samples[i] * samples[i]
			}
		}
		out[t] = math.Sqrt(sum / float64(frameLength))
	}
	return out
}

// ZeroCrossingRate is the fraction of sign changes in centered windows.
// Edge samples are repeated for padding; zero counts as positive.
func ZeroCrossingRate(samples []float64, frameLength, hop int) []float64 {
	n := len(samples)
	if n == 0 {
		return nil
	}
	at := func(i int) float64 {
		return samples[max(0, min(i, n-1))]
	}
	pad := frameLength / 2
	count := framesOf(n, frameLength, hop)
	out := make([]float64, count)
	for t := range out {
		start := t*hop - pad
		crossings := 0
		prev := at(start) < 0
		for i := start + 1; i < start+frameLength; i++ {
			neg := at(i) < 0
			if neg != prev {
				crossings++
			}
			prev = neg
		}
		out[t] = float64(crossings) / float64(frameLength)
	}
	return out
}
