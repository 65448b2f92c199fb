package features

import (
	"math"
	"sort"
)

// HPSSKernel is the median filter length in frames and in bins.
const HPSSKernel = 31

func median(buf []float64) float64 {
	sort.Float64s(buf)
	n := len(buf)
	if n%2 == 1 {
		return buf[n/2]
	}
	return (buf[n/2-1] + buf[n/2]) / 2
}

// medianFilter smooths mag along time (horizontal) or frequency. Edges are
// reflected.
func medianFilter(mag [][]float64, kernel int, horizontal bool) [][]float64 {
	frames := len(mag)
	if frames == 0 {
		return nil
	}
	bins := len(mag[0])
	half := kernel / 2
	out := make([][]float64, frames)
	buf := make([]float64, kernel)
	for t := 0; t < frames; t++ {
		out[t] = make([]float64, bins)
		for k := 0; k < bins; k++ {
			for j := -half; j <= half; j++ {
				if horizontal {
					buf[j+half] = mag[reflectIndex(t+j, frames)][k]
				} else {
					buf[j+half] = mag[t][reflectIndex(k+j, bins)]
				}
			}
			out[t][k] = median(buf)
		}
	}
	return out
}

// HPSS splits a signal into harmonic and percussive waveforms using
// median-filtered soft masks on its spectrogram.
func HPSS(samples []float64, sampleRate int) (harmonic, percussive []float64, err error) {
	window := Hann(NFFT)
	spec, err := STFT(samples, sampleRate, NFFT, HopLength, window)
	if err != nil {
		return nil, nil, err
	}
	mag := spec.Magnitude()
	h := medianFilter(mag, HPSSKernel, true)
	p := medianFilter(mag, HPSSKernel, false)

	harm := make([][]complex128, len(spec.Complex))
	perc := make([][]complex128, len(spec.Complex))
	for t, row := range spec.Complex {
		harm[t] = make([]complex128, len(row))
		perc[t] = make([]complex128, len(row))
		for k, c := range row {
			hh, pp := h[t][k]*h[t][k], p[t][k]*p[t][k]
			total := hh + pp
			if total < math.SmallestNonzeroFloat64 {
				// Split evenly where both filters are silent
				hh, pp, total = 1, 1, 2
			}
			harm[t][k] = c * complex(hh/total, 0)
			perc[t][k] = c * complex(pp/total, 0)
		}
	}
	harmonic = ISTFT(harm, NFFT, HopLength, spec.Length, window)
	percussive = ISTFT(perc, NFFT, HopLength, spec.Length, window)
	return harmonic, percussive, nil
}
