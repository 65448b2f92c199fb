package features

import "math"

const RolloffPercent = 0.85

// SpectralCentroid is the magnitude-weighted mean frequency of each frame.
func SpectralCentroid(mag [][]float64, freqs []float64) []float64 {
	out := make([]float64, len(mag))
	for t, frame := range mag {
		num, den := 0.0, 0.0
		for k, v := range frame {
			num += freqs[k] * v
			den += v
		}
		if den > 0 {
			out[t] = num / den
		}
	}
	return out
}

// SpectralBandwidth is the second-order spread of each frame around its
// centroid.
func SpectralBandwidth(mag [][]float64, freqs, centroid []float64) []float64 {
	out := make([]float64, len(mag))
	for t, frame := range mag {
		total := 0.0
		for _, v := range frame {
			total += v
		}
		if total == 0 {
			continue
		}
		sum := 0.0
		for k, v := range frame {
			d := freqs[k] - centroid[t]
			sum += (v / total) * d * d
		}
		out[t] = math.Sqrt(sum)
	}
	return out
}

// SpectralRolloff is the lowest frequency below which pct of the frame's
// magnitude lies.
func SpectralRolloff(mag [][]float64, freqs []float64, pct float64) []float64 {
	out := make([]float64, len(mag))
	for t, frame := range mag {
		total := 0.0
		for _, v := range frame {
			total += v
		}
		if total == 0 {
			continue
		}
		threshold := pct * total
		cum := 0.0
		for k, v := range frame {
			cum += v
			if cum >= threshold {
				out[t] = freqs[k]
				break
			}
		}
	}
	return out
}
